/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cover

import "errors"

var (
	// ErrNotFound means no readable cover file exists for the entry.
	ErrNotFound = errors.New("cover not found")
	// ErrOutsideDir means a cover hint points outside the image directory.
	ErrOutsideDir = errors.New("cover path escapes image directory")
	// ErrDecode means the cover bytes could not be turned into an image.
	ErrDecode = errors.New("cover not decodable")
)

// Result is the outcome of one resolution step: a handle or a failure.
type Result struct {
	handle *Handle
	err    error
}

// Found wraps a successfully resolved handle.
func Found(h *Handle) Result { return Result{handle: h} }

// Failed records why no handle is available.
func Failed(err error) Result {
	if err == nil {
		err = ErrNotFound
	}
	return Result{err: err}
}

func (r Result) OK() bool { return r.handle != nil }

// Err is nil on success.
func (r Result) Err() error { return r.err }

// Handle returns the resolved handle, if any.
func (r Result) Handle() (*Handle, bool) { return r.handle, r.handle != nil }

// Then runs step on a successful result and passes failures through.
func (r Result) Then(step func(*Handle) Result) Result {
	if !r.OK() {
		return r
	}
	return step(r.handle)
}

// Or returns the resolved handle, or fallback when resolution failed.
func (r Result) Or(fallback *Handle) *Handle {
	if r.OK() {
		return r.handle
	}
	return fallback
}
