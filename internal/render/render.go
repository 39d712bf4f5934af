// Package render turns a lifecycle store snapshot into an annotated frame.
//
// Each frame is a white canvas with a text margin on top and the downsampled
// object raster below it. The raster lays global object indexes out row by
// row on a square grid; cells past the last object stay black.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/louisbranch/statelapse/internal/lifecycle"
	"github.com/louisbranch/statelapse/internal/platform/fonts"
	"github.com/louisbranch/statelapse/internal/projection"
)

// MarginHeight is the height in pixels of the text band above the raster.
const MarginHeight = 400

const (
	fontSize = 45
	textLeft = 25
	textTop  = 25
	lineGap  = 20
)

// Renderer rasterizes lifecycle states and annotates them with batch
// statistics. It reuses its pixel buffers, so a returned frame is only
// valid until the next Frame call.
type Renderer struct {
	store   *lifecycle.Store
	size    int
	side    int
	face    font.Face
	printer *message.Printer

	raster *image.RGBA
	scaled *image.RGBA
	canvas *image.RGBA
}

// NewRenderer builds a renderer for the given store. The output canvas is
// size pixels wide and size+MarginHeight pixels tall.
func NewRenderer(store *lifecycle.Store, size int) (*Renderer, error) {
	if store == nil {
		return nil, errors.New("lifecycle store is required")
	}
	if size <= 0 {
		return nil, fmt.Errorf("output size %d is not positive", size)
	}
	face, err := fonts.Regular(fontSize)
	if err != nil {
		return nil, fmt.Errorf("load annotation font: %w", err)
	}
	side := int(math.Sqrt(float64(store.Len()))) + 1
	return &Renderer{
		store:   store,
		size:    size,
		side:    side,
		face:    face,
		printer: message.NewPrinter(language.English),
		raster:  image.NewRGBA(image.Rect(0, 0, side, side)),
		scaled:  image.NewRGBA(image.Rect(0, 0, size, size)),
		canvas:  image.NewRGBA(image.Rect(0, 0, size, size+MarginHeight)),
	}, nil
}

// Side reports the edge length of the full-resolution raster grid.
func (r *Renderer) Side() int {
	return r.side
}

// Frame renders the store's current states annotated with sum.
func (r *Renderer) Frame(sum projection.Summary) *image.RGBA {
	r.rasterize()
	draw.CatmullRom.Scale(r.scaled, r.scaled.Bounds(), r.raster, r.raster.Bounds(), draw.Src, nil)

	draw.Draw(r.canvas, r.canvas.Bounds(), image.White, image.Point{}, draw.Src)
	r.annotate(sum)
	// The raster lands after the text and owns everything below the margin.
	draw.Draw(r.canvas, image.Rect(0, MarginHeight, r.size, MarginHeight+r.size), r.scaled, image.Point{}, draw.Src)
	return r.canvas
}

func (r *Renderer) rasterize() {
	total := r.store.Len()
	for y := 0; y < r.side; y++ {
		row := y * r.side
		off := r.raster.PixOffset(0, y)
		for x := 0; x < r.side; x++ {
			c := colorBlack
			if idx := row + x; idx < total {
				c = stateColor(r.store.StateAt(idx))
			}
			r.raster.Pix[off+0] = c.R
			r.raster.Pix[off+1] = c.G
			r.raster.Pix[off+2] = c.B
			r.raster.Pix[off+3] = c.A
			off += 4
		}
	}
}

// annotate draws the stat lines into the top margin, advancing each line by
// its rendered height. All six lines land above MarginHeight.
func (r *Renderer) annotate(sum projection.Summary) {
	lines := []string{
		fmt.Sprintf("Hours: %d", int64(sum.SinceStart/time.Hour)),
		r.printer.Sprintf("Present: %d", sum.Counts.Present),
		r.printer.Sprintf("Delete Marker: %d", sum.Counts.DeleteMarker),
		r.printer.Sprintf("Expired: %d", sum.Counts.Expired),
		r.printer.Sprintf("Completed: %d", sum.Counts.DeleteMarkerDeleted),
		r.printer.Sprintf("Per second: %d", sum.Rate),
	}
	ascent := r.face.Metrics().Ascent.Ceil()
	drawer := font.Drawer{
		Dst:  r.canvas,
		Src:  image.Black,
		Face: r.face,
	}
	y := textTop
	for _, line := range lines {
		drawer.Dot = fixed.P(textLeft, y+ascent)
		drawer.DrawString(line)
		bounds, _ := font.BoundString(r.face, line)
		y += (bounds.Max.Y - bounds.Min.Y).Ceil() + lineGap
	}
}

var colorBlack = color.RGBA{A: 0xff}

// stateColor maps a lifecycle state to its raster cell color. Both terminal
// states render black, same as unused grid cells.
func stateColor(s lifecycle.State) color.RGBA {
	switch s {
	case lifecycle.Present:
		return color.RGBA{G: 0xff, A: 0xff}
	case lifecycle.DeleteMarker:
		return color.RGBA{R: 0xff, G: 0xff, A: 0xff}
	case lifecycle.Expired:
		return color.RGBA{R: 0xff, A: 0xff}
	default:
		return colorBlack
	}
}
