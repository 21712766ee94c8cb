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
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"nasgame/internal/domain"
)

// 1x1 lossless WebP
const tinyWebP = "UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA=="

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func writeImage(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveMissingCoverFallsBack(t *testing.T) {
	r := NewResolver(t.TempDir())
	res := r.ResolveTitle(context.Background(), "Celeste")
	if res.OK() {
		t.Fatalf("expected a miss")
	}
	if !errors.Is(res.Err(), ErrNotFound) {
		t.Fatalf("Err = %v, want ErrNotFound", res.Err())
	}
	if h := res.Or(Fallback()); h != Fallback() || !h.IsFallback() {
		t.Fatalf("Or did not substitute the fallback")
	}
}

func TestResolveMissingImageDir(t *testing.T) {
	r := NewResolver(filepath.Join(t.TempDir(), "does", "not", "exist"))
	h, img := r.Display(context.Background(), domain.NewGame("Celeste"))
	if !h.IsFallback() || img == nil {
		t.Fatalf("missing dir must yield the fallback")
	}
}

func TestResolveByTitle(t *testing.T) {
	dir := t.TempDir()
	data := pngBytes(t, 4, 6)
	writeImage(t, dir, "Celeste.png", data)
	r := NewResolver(dir)

	res := r.ResolveTitle(context.Background(), "Celeste")
	h, ok := res.Handle()
	if !ok {
		t.Fatalf("Resolve failed: %v", res.Err())
	}
	if h.Name() != "Celeste.png" || h.MIME() != MIMEPNG || h.Path() != filepath.Join(dir, "Celeste.png") {
		t.Fatalf("unexpected handle %s %s %s", h.Name(), h.MIME(), h.Path())
	}
	if !bytes.Equal(h.Bytes(), data) {
		t.Fatalf("bytes differ from file")
	}
}

func TestResolveProbeOrder(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "Hades.jpg", jpegBytes(t))
	writeImage(t, dir, "Hades.png", pngBytes(t, 2, 2))
	r := NewResolver(dir)
	h, ok := r.ResolveTitle(context.Background(), "Hades").Handle()
	if !ok || h.Name() != "Hades.png" {
		t.Fatalf("png must be probed before jpg, got %v", h)
	}
	writeImage(t, dir, "Hades.webp", mustBase64(t, tinyWebP))
	h, _ = r.ResolveTitle(context.Background(), "Hades").Handle()
	if h.Name() != "Hades.webp" || h.MIME() != MIMEWebP {
		t.Fatalf("webp must be probed first, got %s", h.Name())
	}
}

func TestResolveSanitizesTitle(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "Half-Life_ Alyx.jpeg", jpegBytes(t))
	r := NewResolver(dir)
	h, ok := r.ResolveTitle(context.Background(), "Half-Life: Alyx").Handle()
	if !ok || h.MIME() != MIMEJPEG {
		t.Fatalf("sanitized lookup failed: %v", h)
	}
}

func TestFileStem(t *testing.T) {
	cases := map[string]string{
		"Celeste":          "Celeste",
		"Half-Life: Alyx":  "Half-Life_ Alyx",
		"AC/DC Rock?":      "AC_DC Rock_",
		"../../etc/passwd": ".._.._etc_passwd",
		"  padded  ":       "padded",
		"trailing.":        "trailing",
		"":                 "_",
		"tab\there":        "tab_here",
	}
	for in, want := range cases {
		if got := FileStem(in); got != want {
			t.Errorf("FileStem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveHint(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "art/ow-cover.jpg", jpegBytes(t))
	writeImage(t, dir, "ow.png", pngBytes(t, 1, 1))
	r := NewResolver(dir)

	g := domain.NewGame("Outer Wilds")
	g.Cover = "art/ow-cover.jpg"
	h, ok := r.Resolve(context.Background(), g).Handle()
	if !ok || h.Name() != filepath.FromSlash("art/ow-cover.jpg") || h.MIME() != MIMEJPEG {
		t.Fatalf("hint with extension: %v", h)
	}

	g.Cover = "ow"
	h, ok = r.Resolve(context.Background(), g).Handle()
	if !ok || h.Name() != "ow.png" {
		t.Fatalf("hint without extension should probe: %v", h)
	}
}

func TestResolveRejectsEscapingHint(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "images")
	writeImage(t, root, "secret.png", pngBytes(t, 1, 1))
	r := NewResolver(dir)

	for _, hint := range []string{"../secret.png", "/etc/passwd", "a/../../secret.png"} {
		g := domain.NewGame("Sneaky")
		g.Cover = hint
		res := r.Resolve(context.Background(), g)
		if res.OK() || !errors.Is(res.Err(), ErrOutsideDir) {
			t.Fatalf("hint %q: got %v, want ErrOutsideDir", hint, res.Err())
		}
	}
}

func TestResolveUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "box.bmp", []byte("BM not really"))
	r := NewResolver(dir)
	g := domain.NewGame("Boxed")
	g.Cover = "box.bmp"

	h, ok := r.Resolve(context.Background(), g).Handle()
	if !ok || h.MIME() != MIMEOctetStream {
		t.Fatalf("unknown extension should still produce a handle: %v", h)
	}
	shown, img := r.Display(context.Background(), g)
	if !shown.IsFallback() || img != FallbackImage() {
		t.Fatalf("octet-stream cover must display as fallback")
	}
}

func TestDisplayCorruptCoverFallsBack(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "Broken.png", []byte("\x89PNG definitely not"))
	r := NewResolver(dir)
	h, img := r.Display(context.Background(), domain.NewGame("Broken"))
	if !h.IsFallback() || img == nil {
		t.Fatalf("corrupt cover must display as fallback")
	}
}

func TestDisplayDecodes(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "Celeste.png", pngBytes(t, 4, 6))
	writeImage(t, dir, "Tiny.webp", mustBase64(t, tinyWebP))
	r := NewResolver(dir)

	h, img := r.Display(context.Background(), domain.NewGame("Celeste"))
	if h.IsFallback() || img.Bounds().Dx() != 4 || img.Bounds().Dy() != 6 {
		t.Fatalf("png not decoded: fallback=%v bounds=%v", h.IsFallback(), img.Bounds())
	}
	h, img = r.Display(context.Background(), domain.NewGame("Tiny"))
	if h.IsFallback() || img.Bounds().Dx() != 1 {
		t.Fatalf("webp not decoded: fallback=%v", h.IsFallback())
	}
}

func TestResolveIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "Celeste.png", pngBytes(t, 3, 3))
	r := NewResolver(dir)
	a, _ := r.ResolveTitle(context.Background(), "Celeste").Handle()
	b, _ := r.ResolveTitle(context.Background(), "Celeste").Handle()
	if a == b {
		t.Fatalf("each resolve should produce its own handle")
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) || a.MIME() != b.MIME() {
		t.Fatalf("repeated resolve changed content")
	}
	a.Release()
	if b.Bytes() == nil {
		t.Fatalf("releasing one handle affected another")
	}
}

func TestResolveCancelled(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "Celeste.png", pngBytes(t, 1, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := NewResolver(dir).ResolveTitle(ctx, "Celeste")
	if res.OK() || !errors.Is(res.Err(), context.Canceled) {
		t.Fatalf("cancelled resolve = %v", res.Err())
	}
}

func TestResultThen(t *testing.T) {
	h := newHandle("a.png", "", MIMEPNG, []byte{1})
	called := false
	r := Found(h).Then(func(*Handle) Result { called = true; return Failed(ErrDecode) })
	if !called || r.OK() || !errors.Is(r.Err(), ErrDecode) {
		t.Fatalf("Then did not run on success")
	}
	r = Failed(nil).Then(func(*Handle) Result { t.Fatal("Then ran on failure"); return Result{} })
	if !errors.Is(r.Err(), ErrNotFound) {
		t.Fatalf("Failed(nil) should default to ErrNotFound")
	}
}

func TestHandleRelease(t *testing.T) {
	h := newHandle("a.png", "", MIMEPNG, []byte{1, 2, 3})
	h.Release()
	h.Release()
	if !h.Released() || h.Bytes() != nil {
		t.Fatalf("release did not drop bytes")
	}
	if _, err := Decode(h); !errors.Is(err, ErrDecode) {
		t.Fatalf("decoding a released handle should fail with ErrDecode, got %v", err)
	}

	fb := Fallback()
	fb.Release()
	if fb.Released() || len(fb.Bytes()) == 0 {
		t.Fatalf("fallback must survive Release")
	}
	if _, err := png.Decode(bytes.NewReader(fb.Bytes())); err != nil {
		t.Fatalf("fallback bytes are not a PNG: %v", err)
	}
}

func mustBase64(t *testing.T, s string) []byte {
	t.Helper()
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
