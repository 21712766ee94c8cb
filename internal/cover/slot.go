/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cover

import (
	"context"
	"image"
	"sync"

	"nasgame/internal/domain"
)

// Ticket identifies one binding of a Slot. Results carrying an older
// ticket are stale.
type Ticket uint64

// Slot holds the cover currently shown by one display element. Each
// element owns its own Slot; nothing is shared between elements.
type Slot struct {
	mu     sync.Mutex
	gen    uint64
	cur    *Handle
	closed bool
}

// Begin starts a new binding and invalidates every earlier ticket.
func (s *Slot) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return Ticket(s.gen)
}

// Apply installs h if t is still the latest ticket and the slot is open.
// The superseded handle is released. A stale h is released and dropped.
// show, when non-nil, runs under the slot lock so that shows are ordered
// like the applies that produced them.
func (s *Slot) Apply(t Ticket, h *Handle, show func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || uint64(t) != s.gen {
		h.Release()
		return false
	}
	if s.cur != nil && s.cur != h {
		s.cur.Release()
	}
	s.cur = h
	if show != nil {
		show()
	}
	return true
}

// Current returns the handle on display, or nil.
func (s *Slot) Current() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Close unmounts the slot: the current handle is released and every
// pending result will be discarded.
func (s *Slot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.gen++
	if s.cur != nil {
		s.cur.Release()
		s.cur = nil
	}
}

// Bind resolves g for the binding t of slot and hands the result to show
// unless the slot was rebound or closed in the meantime. Callers take t
// with slot.Begin on their own goroutine before starting Bind, so bindings
// are ordered by when they were requested. Bind blocks on file I/O and
// reports whether the result was applied.
func Bind(ctx context.Context, slot *Slot, t Ticket, r *Resolver, g domain.Game, show func(*Handle, image.Image)) bool {
	h, img := r.Display(ctx, g)
	return slot.Apply(t, h, func() {
		if show != nil {
			show(h, img)
		}
	})
}
