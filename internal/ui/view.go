/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"fmt"
	"strings"

	"nasgame/internal/catalog"
	"nasgame/internal/domain"
)

const anyOption = "All"

// sort labels in the order the select shows them
var sortLabels = []struct {
	label string
	key   string
}{
	{"Library order", catalog.SortNone},
	{"Title", catalog.SortTitle},
	{"Playtime", catalog.SortPlaytime},
}

func sortOptions() []string {
	out := make([]string, 0, len(sortLabels))
	for _, s := range sortLabels {
		out = append(out, s.label)
	}
	return out
}

func sortLabelFor(key string) string {
	for _, s := range sortLabels {
		if s.key == key {
			return s.label
		}
	}
	return sortLabels[0].label
}

func stateOptions() []string {
	out := []string{anyOption}
	for _, s := range domain.InstallStates {
		out = append(out, string(s))
	}
	return out
}

func statusOptions() []string {
	out := []string{anyOption}
	for _, s := range domain.CompletionStatuses {
		out = append(out, string(s))
	}
	return out
}

// queryFrom builds a catalog query from the toolbar widgets' values.
func queryFrom(text, state, status, sortLabel string) catalog.Query {
	q := catalog.Query{Text: text}
	if state != anyOption {
		q.State = domain.InstallState(state)
	}
	if status != anyOption {
		q.Status = domain.CompletionStatus(status)
	}
	for _, s := range sortLabels {
		if s.label == sortLabel {
			q.SortBy = s.key
		}
	}
	return q
}

// cardSubtitle is the second line of a library card.
func cardSubtitle(g domain.Game) string {
	return fmt.Sprintf("%s · %s · %s", g.State, g.Status, domain.FormatPlaytime(g.PlaytimeMinutes))
}

// cardSize maps the 1-100 card size setting to a card's cover size.
func cardSize(setting int) (w, h float32) {
	if setting < 1 {
		setting = 1
	}
	if setting > 100 {
		setting = 100
	}
	w = 120 + float32(setting-1)*180/99
	return w, w * 1.5
}

// resultLine is the status line under the library grid.
func resultLine(shown, total int, q catalog.Query) string {
	if shown == total && strings.TrimSpace(q.Text) == "" && q.Active() == 0 {
		return fmt.Sprintf("%d games", total)
	}
	return fmt.Sprintf("%d of %d games", shown, total)
}

// overviewLines renders the summary shown on the Overview tab.
func overviewLines(s catalog.Summary) []string {
	lines := []string{
		fmt.Sprintf("Games: %d", s.Games),
		fmt.Sprintf("Installed: %d", s.Installed),
		fmt.Sprintf("Total playtime: %s", domain.FormatPlaytime(s.TotalMinutes)),
	}
	for _, st := range domain.CompletionStatuses {
		lines = append(lines, fmt.Sprintf("%s: %d", st, s.ByStatus[st]))
	}
	if s.MostPlayed != "" {
		lines = append(lines, "Most played: "+s.MostPlayed)
	}
	return lines
}
