/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package catalog

import (
	"sort"
	"strings"

	"nasgame/internal/domain"
)

// Sort orders accepted by Query.SortBy.
const (
	SortNone     = ""
	SortTitle    = "title"
	SortPlaytime = "playtime"
)

// Query describes what the Library view shows. Zero values mean "any".
type Query struct {
	Text   string
	State  domain.InstallState
	Status domain.CompletionStatus
	SortBy string
}

// Active reports how many facets narrow the result (the "Filters (n)" badge).
func (q Query) Active() int {
	n := 0
	if q.State != "" {
		n++
	}
	if q.Status != "" {
		n++
	}
	return n
}

// Filter returns the games matching q in a new slice; c is not modified.
// Text matches a case-insensitive substring of the title after trimming.
func Filter(c domain.Catalog, q Query) domain.Catalog {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	out := make(domain.Catalog, 0, len(c))
	for _, g := range c {
		if needle != "" && !strings.Contains(strings.ToLower(g.Title), needle) {
			continue
		}
		if q.State != "" && g.State != q.State {
			continue
		}
		if q.Status != "" && g.Status != q.Status {
			continue
		}
		out = append(out, g)
	}
	switch q.SortBy {
	case SortTitle:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
		})
	case SortPlaytime:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].PlaytimeMinutes != out[j].PlaytimeMinutes {
				return out[i].PlaytimeMinutes > out[j].PlaytimeMinutes
			}
			return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
		})
	}
	return out
}

// Summary aggregates the catalog for the Overview tab.
type Summary struct {
	Games        int
	Installed    int
	ByStatus     map[domain.CompletionStatus]int
	TotalMinutes int
	// MostPlayed is empty for an empty catalog.
	MostPlayed string
}

// Summarize computes the Overview numbers.
func Summarize(c domain.Catalog) Summary {
	s := Summary{Games: len(c), ByStatus: make(map[domain.CompletionStatus]int, len(domain.CompletionStatuses))}
	best := -1
	for _, g := range c {
		if g.State == domain.Installed {
			s.Installed++
		}
		s.ByStatus[g.Status]++
		s.TotalMinutes += g.PlaytimeMinutes
		if g.PlaytimeMinutes > best {
			best = g.PlaytimeMinutes
			s.MostPlayed = g.Title
		}
	}
	return s
}
