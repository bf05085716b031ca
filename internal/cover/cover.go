// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cover renders the 1200x630 PNG feature image for an article: an
// optional model-generated background (or a light gradient) with the title
// in white on a dark box along the bottom.
package cover

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/pdiddy/daily-digest/internal/logging"
)

// Cover geometry.
const (
	Width  = 1200
	Height = 630

	margin      = 48
	boxTop      = 220
	textTop     = 200
	lineSpacing = 56
	maxLines    = 2
	fontSize    = 44

	// ModelSize is requested from the image model and cropped to fit.
	ModelSize = "1792x1024"
)

var (
	gradientTop    = color.RGBA{240, 248, 255, 255}
	gradientBottom = color.RGBA{210, 225, 255, 255}
	boxFill        = color.RGBA{0, 24, 64, 255}
)

// ImageGenerator produces an image for a prompt.
type ImageGenerator interface {
	Image(ctx context.Context, prompt, size string) ([]byte, error)
}

// Renderer draws covers. A nil Images uses the gradient background.
type Renderer struct {
	Images ImageGenerator
	Logger *log.Logger

	face font.Face
}

// New returns a renderer with the bundled Go Bold face loaded.
func New(images ImageGenerator, logger *log.Logger) (*Renderer, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: fontSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("building font face: %w", err)
	}
	return &Renderer{Images: images, Logger: logger, face: face}, nil
}

// Render returns the PNG cover for title. Model failures fall back to the
// gradient; only encoding can fail.
func (r *Renderer) Render(ctx context.Context, title string) ([]byte, error) {
	logger := logging.Component(r.Logger, "cover")
	img := Gradient(Width, Height)
	if r.Images != nil {
		if bg, err := r.background(ctx, title); err != nil {
			logger.Warn("model cover failed, using gradient", "err", err)
		} else {
			img = bg
		}
	}
	r.overlay(img, title)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding cover: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) background(ctx context.Context, title string) (*image.RGBA, error) {
	prompt := "Minimalist, high-contrast blog cover, modern and clean, abstract tech shapes, vector style; " +
		"flat colors, glossy highlights; no letters, no words, no watermark, no logo. Theme: " + title + "."
	raw, err := r.Images.Image(ctx, prompt, ModelSize)
	if err != nil {
		return nil, err
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding model image: %w", err)
	}
	return CenterCrop(src, Width, Height), nil
}

// Gradient returns a vertical gradient from the light top color to the
// bottom color.
func Gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	den := max(1, h-1)
	for y := 0; y < h; y++ {
		c := color.RGBA{
			R: mix(gradientTop.R, gradientBottom.R, y, den),
			G: mix(gradientTop.G, gradientBottom.G, y, den),
			B: mix(gradientTop.B, gradientBottom.B, y, den),
			A: 255,
		}
		draw.Draw(img, image.Rect(0, y, w, y+1), image.NewUniform(c), image.Point{}, draw.Src)
	}
	return img
}

func mix(a, b uint8, num, den int) uint8 {
	return uint8((int(a)*(den-num) + int(b)*num) / den)
}

// CenterCrop scales src to cover w x h and crops the overflow evenly.
func CenterCrop(src image.Image, w, h int) *image.RGBA {
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if sw == 0 || sh == 0 {
		return dst
	}

	// Source region with the target aspect ratio.
	cw, ch := sw, sw*h/w
	if ch > sh {
		cw, ch = sh*w/h, sh
	}
	x0 := sb.Min.X + (sw-cw)/2
	y0 := sb.Min.Y + (sh-ch)/2
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, image.Rect(x0, y0, x0+cw, y0+ch), draw.Src, nil)
	return dst
}

func (r *Renderer) overlay(img *image.RGBA, title string) {
	b := img.Bounds()
	box := image.Rect(margin-16, b.Dy()-boxTop, b.Dx()-margin, b.Dy()-margin)
	draw.Draw(img, box, image.NewUniform(boxFill), image.Point{}, draw.Src)

	if r.face == nil {
		return
	}
	d := &font.Drawer{Dst: img, Src: image.White, Face: r.face}
	ascent := r.face.Metrics().Ascent.Ceil()
	y := b.Dy() - textTop
	for _, line := range Wrap(title, b.Dx()-2*margin, func(s string) int { return d.MeasureString(s).Ceil() }, maxLines) {
		d.Dot = fixed.P(margin, y+ascent)
		d.DrawString(line)
		y += lineSpacing
	}
}

// Wrap greedily packs the words of text into lines no wider than width, as
// measured by measure, and keeps at most maxLines. A single word wider than
// width gets a line of its own.
func Wrap(text string, width int, measure func(string) int, maxLines int) []string {
	var lines []string
	line := ""
	for _, w := range strings.Fields(text) {
		candidate := w
		if line != "" {
			candidate = line + " " + w
		}
		if measure(candidate) <= width {
			line = candidate
			continue
		}
		if line != "" {
			lines = append(lines, line)
		}
		line = w
	}
	if line != "" {
		lines = append(lines, line)
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}
