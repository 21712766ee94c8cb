/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders the catalog into shareable documents.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"time"

	"github.com/jung-kurt/gofpdf"

	"nasgame/internal/cover"
	"nasgame/internal/domain"
	applog "nasgame/internal/log"
	"nasgame/internal/storage"
	"nasgame/internal/version"
)

// PDFOptions controls the catalog contact sheet. Units are points.
type PDFOptions struct {
	Title   string
	Columns int // cards per row, default 4
	// Covers is used to draw each card's cover. Nil draws the fallback.
	Covers *cover.Resolver
	// Now stamps the footer; zero means time.Now.
	Now time.Time
}

const (
	pageW     = 595.28 // A4
	pageH     = 841.89
	margin    = 36.0
	headerH   = 28.0
	gutter    = 12.0
	textLines = 3
	lineH     = 11.0
)

// rgb is a plain color triple for gofpdf setters.
type rgb struct{ R, G, B int }

var (
	inkColor   = rgb{33, 33, 33}
	mutedColor = rgb{110, 110, 110}
	frameColor = rgb{200, 200, 200}
)

// WriteCatalogPDF renders c as a grid of cover cards and writes the PDF to w.
func WriteCatalogPDF(ctx context.Context, w io.Writer, c domain.Catalog, opt PDFOptions) error {
	cols := opt.Columns
	if cols <= 0 {
		cols = 4
	}
	title := opt.Title
	if title == "" {
		title = "Game library"
	}
	now := opt.Now
	if now.IsZero() {
		now = time.Now()
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: gofpdf.SizeType{Wd: pageW, Ht: pageH}})
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.SetCreator("nasgame "+version.Version, true)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetFooterFunc(func() {
		pdf.SetY(pageH - margin + 8)
		pdf.SetFont("Helvetica", "", 8)
		setTextColor(pdf, mutedColor)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("%s  |  %d games  |  %s  |  page %d",
			title, len(c), now.Format("2006-01-02"), pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	cardW := (pageW - 2*margin - float64(cols-1)*gutter) / float64(cols)
	coverH := cardW * 1.5
	cardH := coverH + 4 + textLines*lineH
	rows := int((pageH - 2*margin - headerH + gutter) / (cardH + gutter))
	if rows < 1 {
		rows = 1
	}
	perPage := rows * cols

	newPage := func() {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 16)
		setTextColor(pdf, inkColor)
		pdf.SetXY(margin, margin)
		pdf.CellFormat(0, 18, tr(title), "", 0, "L", false, 0, "")
	}
	if len(c) == 0 {
		newPage()
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetXY(margin, margin+headerH)
		pdf.CellFormat(0, 14, "No games in the library.", "", 0, "L", false, 0, "")
	}

	images := map[string]string{}
	for i, g := range c {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i%perPage == 0 {
			newPage()
		}
		slot := i % perPage
		x := margin + float64(slot%cols)*(cardW+gutter)
		y := margin + headerH + float64(slot/cols)*(cardH+gutter)

		name := coverImage(ctx, pdf, opt.Covers, g, images)
		pdf.ImageOptions(name, x, y, cardW, coverH, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		setDrawColor(pdf, frameColor)
		pdf.SetLineWidth(0.5)
		pdf.Rect(x, y, cardW, coverH, "D")

		ty := y + coverH + 4
		pdf.SetFont("Helvetica", "B", 9)
		setTextColor(pdf, inkColor)
		pdf.SetXY(x, ty)
		pdf.CellFormat(cardW, lineH, tr(fit(pdf, g.Title, cardW)), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		setTextColor(pdf, mutedColor)
		pdf.SetXY(x, ty+lineH)
		pdf.CellFormat(cardW, lineH, tr(fit(pdf, string(g.State)+" / "+string(g.Status), cardW)), "", 0, "L", false, 0, "")
		pdf.SetXY(x, ty+2*lineH)
		pdf.CellFormat(cardW, lineH, domain.FormatPlaytime(g.PlaytimeMinutes)+" played", "", 0, "L", false, 0, "")
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

// ExportCatalogPDF writes the contact sheet to outPath atomically.
func ExportCatalogPDF(ctx context.Context, c domain.Catalog, outPath string, opt PDFOptions) error {
	l := applog.WithOperation(applog.WithComponent("export"), "pdf").With(slog.String("path", outPath))
	var buf bytes.Buffer
	if err := WriteCatalogPDF(ctx, &buf, c, opt); err != nil {
		l.Error("render failed", slog.Any("err", err))
		return err
	}
	if err := storage.WriteFileAtomic(outPath, buf.Bytes()); err != nil {
		l.Error("write failed", slog.Any("err", err))
		return fmt.Errorf("write pdf: %w", err)
	}
	l.Info("catalog pdf written", slog.Int("games", len(c)), slog.Int("bytes", buf.Len()))
	return nil
}

// coverImage registers the cover of g with pdf and returns its image name.
// Images are registered once per source file.
func coverImage(ctx context.Context, pdf *gofpdf.Fpdf, r *cover.Resolver, g domain.Game, seen map[string]string) string {
	h, img := cover.Fallback(), cover.FallbackImage()
	if r != nil {
		h, img = r.Display(ctx, g)
		defer h.Release()
	}
	key := h.Name()
	if p := h.Path(); p != "" {
		key = p
	}
	if name, ok := seen[key]; ok {
		return name
	}
	name := fmt.Sprintf("cover-%d", len(seen))
	pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(encodePNG(img)))
	seen[key] = name
	return name
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return cover.Fallback().Bytes()
	}
	return buf.Bytes()
}

// fit shortens s with an ellipsis until it fits width w in the current font.
func fit(pdf *gofpdf.Fpdf, s string, w float64) string {
	if pdf.GetStringWidth(s) <= w {
		return s
	}
	r := []rune(s)
	for len(r) > 1 {
		r = r[:len(r)-1]
		if t := string(r) + "..."; pdf.GetStringWidth(t) <= w {
			return t
		}
	}
	return string(r)
}

func setDrawColor(pdf *gofpdf.Fpdf, c rgb) { pdf.SetDrawColor(c.R, c.G, c.B) }

func setTextColor(pdf *gofpdf.Fpdf, c rgb) { pdf.SetTextColor(c.R, c.G, c.B) }
