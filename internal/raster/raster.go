// Package raster converts SVG documents to PNG images of one exact size.
//
// Conversion has two stages. Rasterize draws the vector source at the target
// width, keeping its aspect ratio, onto an opaque background. Fit then scales
// that bitmap to fit entirely within the canonical box and centers it on the
// same background, so every output has identical pixel dimensions.
package raster

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// ErrUnsupported marks a document that uses markup the rasterizer cannot
// draw, such as <text> or <image>. Such sources fail rather than render blank.
var ErrUnsupported = errors.New("unsupported svg markup")

// ErrNoDimensions is returned for a document without a usable viewBox or
// width/height.
var ErrNoDimensions = errors.New("svg has no dimensions")

// overscan caps the stage-one bitmap at this multiple of the canonical
// height. Very tall sources are drawn narrower instead; the final scale-down
// would discard the extra rows anyway.
const overscan = 4

// Options describe the canonical output.
type Options struct {
	Width      int
	Height     int
	Background color.NRGBA
}

// Converter renders SVG bytes to canonical PNG bytes. It holds no mutable
// state and is safe for concurrent use.
type Converter struct {
	opts Options
}

// New returns a Converter for opts. Background alpha is forced opaque.
func New(opts Options) *Converter {
	opts.Background.A = 0xff
	return &Converter{opts: opts}
}

// Convert runs both stages and encodes the result as PNG. Any panic from the
// rasterizer is returned as an error.
func (c *Converter) Convert(ctx context.Context, svg []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, errors.Newf("rasterizer panic: %v", r)
		}
	}()

	img, err := c.Rasterize(svg)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	canvas := c.Fit(img)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return nil, errors.Wrap(err, "encode png")
	}
	return buf.Bytes(), nil
}

// Rasterize is stage one: draw svg at the canonical width, height following
// the source aspect ratio, over the opaque background.
func (c *Converter) Rasterize(svg []byte) (*image.NRGBA, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg), oksvg.StrictErrorMode)
	if err != nil {
		if strings.HasPrefix(err.Error(), "Cannot process svg element") {
			return nil, errors.Mark(errors.Wrap(err, "parse svg"), ErrUnsupported)
		}
		return nil, errors.Wrap(err, "parse svg")
	}
	vb := icon.ViewBox
	if !(vb.W > 0 && vb.H > 0) {
		return nil, ErrNoDimensions
	}

	w, h := stageSize(c.opts.Width, c.opts.Height, vb.W, vb.H)
	canvas := imaging.New(w, h, c.opts.Background)

	scanner := rasterx.NewScannerGV(w, h, canvas, canvas.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	// Map the viewBox origin to the canvas origin.
	sx, sy := float64(w)/vb.W, float64(h)/vb.H
	icon.Transform = rasterx.Identity.Scale(sx, sy).Translate(-vb.X, -vb.Y)
	icon.Draw(dasher, 1.0)
	return canvas, nil
}

// stageSize matches width and derives height from the aspect ratio,
// narrowing when the height would exceed overscan times the canonical height.
func stageSize(width, height int, vbW, vbH float64) (int, int) {
	w := width
	h := int(math.Round(float64(width) * vbH / vbW))
	if limit := height * overscan; h > limit {
		h = limit
		w = int(math.Round(float64(limit) * vbW / vbH))
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// Fit is stage two: contain-fit img into the canonical box and center it on
// the background.
func (c *Converter) Fit(img image.Image) *image.NRGBA {
	W, H := c.opts.Width, c.opts.Height
	b := img.Bounds()
	scale := math.Min(float64(W)/float64(b.Dx()), float64(H)/float64(b.Dy()))

	w := clamp(int(math.Round(float64(b.Dx())*scale)), 1, W)
	h := clamp(int(math.Round(float64(b.Dy())*scale)), 1, H)

	resized := imaging.Resize(img, w, h, imaging.Lanczos)
	return imaging.PasteCenter(imaging.New(W, H, c.opts.Background), resized)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
