package framebuffer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// HUDFont wraps a parsed opentype face used to rasterize the diagnostics
// overlay directly onto a debug image, rather than building a GPU glyph
// atlas: there is no GPU pipeline in this module, so each glyph mask is
// drawn straight onto the destination RGBA with image/draw.
type HUDFont struct {
	face   font.Face
	glyphs map[rune]*image.Alpha
	bounds map[rune]fixed.Rectangle26_6
	advance map[rune]fixed.Int26_6
}

// NewHUDFont parses fontBytes (an OpenType/TrueType font) at the given point
// size and pre-rasterizes the printable ASCII range.
func NewHUDFont(fontBytes []byte, points float64) (*HUDFont, error) {
	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("framebuffer: parse HUD font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    points,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("framebuffer: build HUD font face: %w", err)
	}

	hf := &HUDFont{
		face:    face,
		glyphs:  make(map[rune]*image.Alpha),
		bounds:  make(map[rune]fixed.Rectangle26_6),
		advance: make(map[rune]fixed.Int26_6),
	}
	for r := rune(32); r < 127; r++ {
		bounds, mask, _, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}
		alpha, ok := mask.(*image.Alpha)
		if !ok {
			// Glyph returned a uniform/other mask type (e.g. the space
			// glyph); skip rasterizing it, advance-only is enough.
			hf.advance[r] = adv
			continue
		}
		hf.glyphs[r] = alpha
		hf.bounds[r] = fixed.R(bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
		hf.advance[r] = adv
	}
	return hf, nil
}

// DefaultHUDFont builds the overlay font from the embedded Go Regular
// typeface, so callers need no font file on disk to draw a HUD.
func DefaultHUDFont(points float64) (*HUDFont, error) {
	return NewHUDFont(goregular.TTF, points)
}

// lineHeight returns the font's recommended line advance in pixels.
func (hf *HUDFont) lineHeight() int {
	return hf.face.Metrics().Height.Ceil()
}

// drawString draws text onto dst with its top-left baseline origin at
// (x, y), in ink, and returns the pixel width consumed.
func (hf *HUDFont) drawString(dst draw.Image, x, y int, text string, ink color.Color) int {
	ascent := hf.face.Metrics().Ascent.Ceil()
	penX := x
	for _, r := range text {
		if r == '\n' {
			continue
		}
		mask, ok := hf.glyphs[r]
		if !ok {
			if adv, ok := hf.advance[r]; ok {
				penX += fixed.Int26_6(adv).Ceil()
			}
			continue
		}
		b := hf.bounds[r]
		dx := penX + b.Min.X.Ceil()
		dy := y + ascent + b.Min.Y.Ceil()
		w, h := mask.Bounds().Dx(), mask.Bounds().Dy()
		dr := image.Rect(dx, dy, dx+w, dy+h)
		draw.DrawMask(dst, dr, &image.Uniform{C: ink}, image.Point{}, mask, mask.Bounds().Min, draw.Over)
		penX += hf.advance[r].Ceil()
	}
	return penX - x
}

// HUDStats is the set of progress fields the driver exposes to the overlay;
// it is decoupled from render.Driver so this package never imports it.
type HUDStats struct {
	SPP, TargetSPP int
	ElapsedSeconds float64
	DroppedSamples uint64
	ActiveWorkers  int
}

// DrawHUD renders a small translucent status panel with spp progress,
// elapsed time, dropped-sample count and worker utilization into the
// top-left corner of img, in place. A nil font is a no-op so callers can
// unconditionally call DrawHUD without guarding on whether a font loaded.
func DrawHUD(img *image.RGBA, f *HUDFont, stats HUDStats) {
	if f == nil {
		return
	}
	lines := []string{
		fmt.Sprintf("spp %d/%d", stats.SPP, stats.TargetSPP),
		fmt.Sprintf("elapsed %.1fs", stats.ElapsedSeconds),
		fmt.Sprintf("dropped %d", stats.DroppedSamples),
		fmt.Sprintf("workers %d", stats.ActiveWorkers),
	}

	lh := f.lineHeight()
	pad := 4
	panelW, panelH := 0, lh*len(lines)+2*pad
	for _, l := range lines {
		if w := measureWidth(f, l); w > panelW {
			panelW = w
		}
	}
	panelW += 2 * pad

	panelRect := image.Rect(0, 0, panelW, panelH)
	draw.DrawMask(img, panelRect.Intersect(img.Bounds()), &image.Uniform{C: color.RGBA{0, 0, 0, 160}}, image.Point{}, nil, image.Point{}, draw.Over)

	y := pad
	for _, l := range lines {
		f.drawString(img, pad, y, l, color.RGBA{255, 255, 255, 255})
		y += lh
	}
}

func measureWidth(f *HUDFont, s string) int {
	w := 0
	for _, r := range s {
		w += f.advance[r].Ceil()
	}
	return w
}
