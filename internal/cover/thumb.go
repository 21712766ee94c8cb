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
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"

	xdraw "golang.org/x/image/draw"

	"nasgame/internal/storage"
)

// Thumbnailer scales covers to card size and keeps the encoded result in
// the shared SQLite cover cache.
type Thumbnailer struct {
	cache *storage.CoverCache
	w, h  int
}

// NewThumbnailer returns a thumbnailer producing images that fit w x h.
// A nil cache scales on every call.
func NewThumbnailer(cache *storage.CoverCache, w, h int) *Thumbnailer {
	return &Thumbnailer{cache: cache, w: w, h: h}
}

// Image returns the scaled cover for h.
func (t *Thumbnailer) Image(ctx context.Context, h *Handle) (image.Image, error) {
	if t.cache == nil || h.Path() == "" {
		return t.scaled(h)
	}
	key, err := storage.KeyForFile(h.Path(), t.w, t.h)
	if err != nil {
		return t.scaled(h)
	}
	blob, err := t.cache.GetOrCreate(ctx, key, func(context.Context) ([]byte, error) {
		src, err := Decode(h)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, Scale(src, t.w, t.h)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
	if errors.Is(err, ErrDecode) {
		return nil, err
	}
	if err != nil {
		// cache trouble only costs the memoization
		return t.scaled(h)
	}
	img, err := png.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("%w: cached thumbnail: %w", ErrDecode, err)
	}
	return img, nil
}

func (t *Thumbnailer) scaled(h *Handle) (image.Image, error) {
	src, err := Decode(h)
	if err != nil {
		return nil, err
	}
	return Scale(src, t.w, t.h), nil
}

// Scale fits src inside w x h keeping its aspect ratio. Images that
// already fit are returned unchanged.
func Scale(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || sw == 0 || sh == 0 || (sw <= w && sh <= h) {
		return src
	}
	dw, dh := w, sh*w/sw
	if dh > h {
		dh = h
		dw = sw * h / sh
	}
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
