/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package catalog

import (
	"errors"
	"fmt"
)

// Kind classifies catalog failures. Everything below the store boundary is
// converted to one of these before it reaches a caller.
type Kind int

const (
	// KindNotFound: the catalog file is missing or unreadable. Callers treat it as an empty catalog.
	KindNotFound Kind = iota + 1
	// KindParse: the file is not valid JSON.
	KindParse
	// KindFormat: valid JSON, but not an array of game records.
	KindFormat
	// KindWrite: persisting the catalog failed.
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindParse:
		return "parse"
	case KindFormat:
		return "format"
	case KindWrite:
		return "write"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels for errors.Is.
var (
	ErrNotFound = errors.New("catalog not found")
	ErrParse    = errors.New("catalog is not valid JSON")
	ErrFormat   = errors.New("catalog is not an array of games")
	ErrWrite    = errors.New("catalog write failed")
)

// Error is returned by Load and Persist.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("catalog %s: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("catalog %s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel that corresponds to the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrParse:
		return e.Kind == KindParse
	case ErrFormat:
		return e.Kind == KindFormat
	case ErrWrite:
		return e.Kind == KindWrite
	}
	return false
}

func newError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// KindOf returns the kind of a catalog error, or 0 for anything else.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}
