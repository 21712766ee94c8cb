/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"nasgame/internal/domain"
	applog "nasgame/internal/log"
)

//go:embed catalog.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// Load reads the catalog file at path. The file handle is closed before
// Load returns. Duplicate titles are dropped, first occurrence wins.
//
// Errors are *Error values: KindNotFound when the file cannot be read,
// KindParse for malformed JSON and KindFormat when the document is not an
// array of game records.
func Load(path string) (domain.Catalog, error) {
	data, err := readAll(path)
	if err != nil {
		return nil, newError(KindNotFound, path, err)
	}
	games, dropped, err := Decode(data)
	if err != nil {
		var ce *Error
		if errors.As(err, &ce) {
			ce.Path = path
		}
		return nil, err
	}
	if len(dropped) > 0 {
		applog.WithOperation(applog.WithComponent("catalog"), "load").Warn("dropped duplicate titles",
			slog.String("path", path), slog.Any("titles", dropped))
	}
	return games, nil
}

func readAll(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Decode parses a catalog document and returns the records in document
// order together with the titles removed as duplicates.
func Decode(data []byte) (domain.Catalog, []string, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, newError(KindParse, "", err)
	}
	if err := dec.Decode(new(any)); err != io.EOF {
		return nil, nil, newError(KindParse, "", errors.New("trailing data after JSON document"))
	}
	if _, ok := doc.([]any); !ok {
		return nil, nil, newError(KindFormat, "", fmt.Errorf("expected a JSON array, got %s", jsonKind(doc)))
	}

	s, err := compiledSchema()
	if err != nil {
		return nil, nil, newError(KindFormat, "", fmt.Errorf("compile schema: %w", err))
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, nil, newError(KindFormat, "", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, nil, newError(KindFormat, "", errors.New(strings.Join(msgs, "; ")))
	}

	var games domain.Catalog
	if err := json.Unmarshal(data, &games); err != nil {
		return nil, nil, newError(KindFormat, "", err)
	}
	if games == nil {
		games = domain.Catalog{}
	}
	for i, g := range games {
		if err := g.Validate(); err != nil {
			return nil, nil, newError(KindFormat, "", fmt.Errorf("record %d: %w", i, err))
		}
	}
	games, dropped := Dedupe(games)
	return games, dropped, nil
}

// Dedupe removes records whose title was already seen, keeping the first.
// It returns the titles that were dropped, once per removed record.
func Dedupe(c domain.Catalog) (domain.Catalog, []string) {
	seen := make(map[string]struct{}, len(c))
	out := make(domain.Catalog, 0, len(c))
	var dropped []string
	for _, g := range c {
		if _, dup := seen[g.Title]; dup {
			dropped = append(dropped, g.Title)
			continue
		}
		seen[g.Title] = struct{}{}
		out = append(out, g)
	}
	return out, dropped
}

func jsonKind(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Encode renders c the way Persist writes it: two-space indentation and a
// trailing newline. A nil catalog encodes as an empty array.
func Encode(c domain.Catalog) ([]byte, error) {
	if c == nil {
		c = domain.Catalog{}
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
