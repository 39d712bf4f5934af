package render

import (
	"image/color"
	"testing"
	"time"

	"github.com/louisbranch/statelapse/internal/lifecycle"
	"github.com/louisbranch/statelapse/internal/projection"
	"github.com/louisbranch/statelapse/internal/segment"
)

var white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

func newRenderStore(t *testing.T, num int) *lifecycle.Store {
	t.Helper()
	return lifecycle.NewStore(segment.BuildIndex([]segment.Descriptor{{Segment: 1, Num: num}}))
}

func TestNewRendererComputesSide(t *testing.T) {
	cases := []struct {
		total int
		side  int
	}{
		{1, 2},
		{3, 2},
		{4, 3},
		{10, 4},
		{100, 11},
	}
	for _, tc := range cases {
		r, err := NewRenderer(newRenderStore(t, tc.total), 64)
		if err != nil {
			t.Fatalf("new renderer for %d objects: %v", tc.total, err)
		}
		if r.Side() != tc.side {
			t.Fatalf("Side() for %d objects = %d, want %d", tc.total, r.Side(), tc.side)
		}
	}
}

func TestNewRendererRejectsBadInputs(t *testing.T) {
	if _, err := NewRenderer(nil, 64); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewRenderer(newRenderStore(t, 1), 0); err == nil {
		t.Fatal("expected error for zero size")
	}
	if _, err := NewRenderer(newRenderStore(t, 1), -10); err == nil {
		t.Fatal("expected error for negative size")
	}
}

func TestRasterizeStateColors(t *testing.T) {
	store := newRenderStore(t, 3)
	// Object 1 gets a delete marker, object 2 expires, object 3 stays put.
	if _, err := store.Apply(1, 1, lifecycle.Delete); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := store.Apply(1, 2, lifecycle.Delete); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := store.Apply(1, 2, lifecycle.Expire); err != nil {
		t.Fatalf("apply: %v", err)
	}

	r, err := NewRenderer(store, 64)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	r.rasterize()

	wantPix := []color.RGBA{
		{R: 0xff, G: 0xff, A: 0xff}, // delete marker
		{R: 0xff, A: 0xff},          // expired
		{G: 0xff, A: 0xff},          // present
		{A: 0xff},                   // unused grid cell
	}
	for i, want := range wantPix {
		x, y := i%2, i/2
		if got := r.raster.RGBAAt(x, y); got != want {
			t.Fatalf("raster (%d,%d) = %+v, want %+v", x, y, got, want)
		}
	}
}

func TestRasterizeTerminalStatesBlack(t *testing.T) {
	store := newRenderStore(t, 2)
	// Object 1 completes the lifecycle, object 2 lands in the absorbing state.
	for _, op := range []lifecycle.Operation{lifecycle.Delete, lifecycle.Expire, lifecycle.Expire} {
		if _, err := store.Apply(1, 1, op); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	for _, op := range []lifecycle.Operation{lifecycle.Delete, lifecycle.Expire, lifecycle.Expire, lifecycle.Expire} {
		if _, err := store.Apply(1, 2, op); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}

	r, err := NewRenderer(store, 64)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	r.rasterize()

	black := color.RGBA{A: 0xff}
	for _, pos := range [][2]int{{0, 0}, {1, 0}} {
		if got := r.raster.RGBAAt(pos[0], pos[1]); got != black {
			t.Fatalf("raster (%d,%d) = %+v, want black", pos[0], pos[1], got)
		}
	}
}

func TestFrameDimensions(t *testing.T) {
	r, err := NewRenderer(newRenderStore(t, 9), 120)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	img := r.Frame(projection.Summary{})
	bounds := img.Bounds()
	if bounds.Dx() != 120 {
		t.Fatalf("width = %d, want 120", bounds.Dx())
	}
	if bounds.Dy() != 120+MarginHeight {
		t.Fatalf("height = %d, want %d", bounds.Dy(), 120+MarginHeight)
	}
}

func TestFrameMarginAndAnnotations(t *testing.T) {
	store := newRenderStore(t, 100)
	r, err := NewRenderer(store, 1000)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	img := r.Frame(projection.Summary{
		Bucket:       time.Date(2022, 9, 2, 15, 55, 0, 0, time.UTC),
		SinceStart:   26 * time.Hour,
		TotalActions: 12,
		Rate:         4,
		Counts:       lifecycle.Counts{Present: 100},
	})

	// The top row of the margin sits above any glyph.
	for _, x := range []int{0, 500, 999} {
		if got := img.RGBAAt(x, 0); got != white {
			t.Fatalf("margin pixel (%d,0) = %+v, want white", x, got)
		}
	}

	// The annotation text leaves non-white pixels inside the margin.
	found := false
	for y := 0; y < MarginHeight && !found; y++ {
		for x := 0; x < 1000; x++ {
			if img.RGBAAt(x, y) != white {
				found = true
				break
			}
		}
	}
	if !found {
		t.Fatal("expected annotation text in the margin")
	}
}

func TestFrameAnnotationsStayInMargin(t *testing.T) {
	store := newRenderStore(t, 100)
	r, err := NewRenderer(store, 200)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	// Grouped counts and descender-heavy labels produce the tallest lines.
	img := r.Frame(projection.Summary{
		SinceStart: 100 * time.Hour,
		Rate:       2345,
		Counts: lifecycle.Counts{
			Present:             1234567,
			DeleteMarker:        890123,
			Expired:             45678,
			DeleteMarkerDeleted: 9012,
		},
	})

	// The last annotation lines sit in the lower half of the margin.
	found := false
	for y := MarginHeight - 150; y < MarginHeight && !found; y++ {
		for x := 0; x < 200; x++ {
			if img.RGBAAt(x, y) != white {
				found = true
				break
			}
		}
	}
	if !found {
		t.Fatal("expected annotation text in the lower margin")
	}

	// Every object is present, so the top of the raster region is solid
	// green; any dark pixel there is text that crossed the boundary.
	for y := MarginHeight; y < MarginHeight+60; y++ {
		for x := 0; x < 200; x++ {
			got := img.RGBAAt(x, y)
			if got.G < 200 || got.R > 60 || got.B > 60 {
				t.Fatalf("raster pixel (%d,%d) = %+v, want green", x, y, got)
			}
		}
	}
}

func TestFrameRasterRegion(t *testing.T) {
	store := newRenderStore(t, 100)
	r, err := NewRenderer(store, 200)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	img := r.Frame(projection.Summary{Counts: lifecycle.Counts{Present: 100}})

	// All objects are present, so the upper raster area is green.
	got := img.RGBAAt(60, MarginHeight+60)
	if got.G < 200 || got.R > 60 || got.B > 60 {
		t.Fatalf("raster pixel = %+v, want green", got)
	}

	// The bottom-right corner covers unused grid cells.
	got = img.RGBAAt(199, MarginHeight+199)
	if got.R > 60 || got.G > 60 || got.B > 60 {
		t.Fatalf("corner pixel = %+v, want black", got)
	}
}
