/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cover

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Decode turns the handle's bytes into an image. Any failure, including an
// octet-stream handle or a released one, is reported as ErrDecode.
func Decode(h *Handle) (image.Image, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: nil handle", ErrDecode)
	}
	if !Displayable(h.MIME()) {
		return nil, fmt.Errorf("%w: %s has type %s", ErrDecode, h.Name(), h.MIME())
	}
	data := h.Bytes()
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s has no data", ErrDecode, h.Name())
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, h.Name(), err)
	}
	return img, nil
}
