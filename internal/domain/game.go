/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// InstallState tells whether a game is present on this machine.
// The string values are the ones stored in games.json and shown on cards.
type InstallState string

const (
	Installed    InstallState = "Installed"
	NotInstalled InstallState = "Not installed"
)

// InstallStates lists all install states in display order.
var InstallStates = []InstallState{Installed, NotInstalled}

func (s InstallState) Valid() bool { return s == Installed || s == NotInstalled }

func (s *InstallState) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("install state: %w", err)
	}
	if !InstallState(v).Valid() {
		return fmt.Errorf("unknown install state %q", v)
	}
	*s = InstallState(v)
	return nil
}

// CompletionStatus is how far the player got.
type CompletionStatus string

const (
	NotCompleted CompletionStatus = "Not completed"
	InProgress   CompletionStatus = "In progress"
	Completed    CompletionStatus = "Completed"
)

// CompletionStatuses lists all statuses in display order.
var CompletionStatuses = []CompletionStatus{NotCompleted, InProgress, Completed}

func (s CompletionStatus) Valid() bool {
	return s == NotCompleted || s == InProgress || s == Completed
}

func (s *CompletionStatus) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("completion status: %w", err)
	}
	if !CompletionStatus(v).Valid() {
		return fmt.Errorf("unknown completion status %q", v)
	}
	*s = CompletionStatus(v)
	return nil
}

// Game is one catalog entry. Title is the catalog's join key for cover
// images and must be unique within a catalog.
//
// Field order fixes the key order of the persisted JSON.
type Game struct {
	Title  string           `json:"title"`
	State  InstallState     `json:"state"`
	Status CompletionStatus `json:"status"`
	// PlaytimeMinutes is stored under "time". It only ever grows.
	PlaytimeMinutes int `json:"time"`
	// Cover is an optional file name inside the image directory. When empty
	// the cover is looked up by title.
	Cover string `json:"cover,omitempty"`
}

// NewGame returns a game with the default state and status.
func NewGame(title string) Game {
	return Game{Title: title, State: NotInstalled, Status: NotCompleted}
}

// UnmarshalJSON fills absent fields with the card defaults.
func (g *Game) UnmarshalJSON(b []byte) error {
	type plain Game
	v := plain{State: NotInstalled, Status: NotCompleted}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*g = Game(v)
	return nil
}

// Validate checks the record invariants that do not depend on other records.
func (g Game) Validate() error {
	switch {
	case strings.TrimSpace(g.Title) == "":
		return fmt.Errorf("game title is blank")
	case !g.State.Valid():
		return fmt.Errorf("game %q: unknown install state %q", g.Title, g.State)
	case !g.Status.Valid():
		return fmt.Errorf("game %q: unknown completion status %q", g.Title, g.Status)
	case g.PlaytimeMinutes < 0:
		return fmt.Errorf("game %q: negative playtime %d", g.Title, g.PlaytimeMinutes)
	}
	return nil
}

// Catalog is the ordered list of games; order is display order.
type Catalog []Game

// Index returns the position of the game with the given title, or -1.
func (c Catalog) Index(title string) int {
	for i := range c {
		if c[i].Title == title {
			return i
		}
	}
	return -1
}

// FormatPlaytime renders minutes as "25h 0m", or "45m" below one hour.
func FormatPlaytime(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
