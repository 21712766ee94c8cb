/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


package cover

import "sync"

// Handle owns the bytes of one resolved cover. It must be released once the
// displaying element no longer shows it. The fallback handle is shared and
// ignores Release.
type Handle struct {
	name     string
	path     string
	mime     string
	fallback bool

	mu       sync.Mutex
	data     []byte
	released bool
}

func newHandle(name, path, mime string, data []byte) *Handle {
	return &Handle{name: name, path: path, mime: mime, data: data}
}

// Name is the file name the bytes were read from.
func (h *Handle) Name() string { return h.name }

// Path is the full path of the source file, empty for the fallback.
func (h *Handle) Path() string { return h.path }

func (h *Handle) MIME() string { return h.mime }

func (h *Handle) IsFallback() bool { return h.fallback }

// Bytes returns the image bytes, or nil after Release.
func (h *Handle) Bytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.data
}

// Release drops the bytes. Calling it again is a no-op.
func (h *Handle) Release() {
	if h == nil || h.fallback {
		return
	}
	h.mu.Lock()
	h.data = nil
	h.released = true
	h.mu.Unlock()
}

func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}
