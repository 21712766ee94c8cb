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
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"
)

const (
	fallbackName = "fallback.png"
	fallbackW    = 230
	fallbackH    = 345
)

var (
	fallbackOnce   sync.Once
	fallbackHandle *Handle
	fallbackImage  image.Image
)

// Fallback returns the bundled default cover. The same handle is returned
// on every call and is never released.
func Fallback() *Handle {
	fallbackOnce.Do(buildFallback)
	return fallbackHandle
}

// FallbackImage is the decoded form of Fallback.
func FallbackImage() image.Image {
	fallbackOnce.Do(buildFallback)
	return fallbackImage
}

// buildFallback paints a dark card with a lighter frame and a play glyph.
func buildFallback() {
	img := image.NewRGBA(image.Rect(0, 0, fallbackW, fallbackH))
	bg := color.RGBA{R: 0x24, G: 0x27, B: 0x2e, A: 0xff}
	fg := color.RGBA{R: 0x5c, G: 0x63, B: 0x70, A: 0xff}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	const border = 6
	for x := 0; x < fallbackW; x++ {
		for y := 0; y < border; y++ {
			img.SetRGBA(x, y, fg)
			img.SetRGBA(x, fallbackH-1-y, fg)
		}
	}
	for y := 0; y < fallbackH; y++ {
		for x := 0; x < border; x++ {
			img.SetRGBA(x, y, fg)
			img.SetRGBA(fallbackW-1-x, y, fg)
		}
	}

	// right-pointing triangle in the middle
	cx, cy, size := fallbackW/2-20, fallbackH/2, 40
	for dx := 0; dx < size; dx++ {
		half := (size - dx) / 2
		for dy := -half; dy <= half; dy++ {
			img.SetRGBA(cx+dx, cy+dy, fg)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic("cover: encode fallback: " + err.Error())
	}
	fallbackImage = img
	fallbackHandle = &Handle{name: fallbackName, mime: MIMEPNG, fallback: true, data: buf.Bytes()}
}
