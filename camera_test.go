package cartoview

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestTransformRoundTrip(t *testing.T) {
	offsets := []Point{Pt(0, 0), Pt(-1234.5, 987.25), Pt(1e6, -3e5), Pt(7, 7)}
	viewports := []image.Point{{1, 1}, {320, 240}, {1920, 1080}, {8192, 8192}}

	for zoom := MinZoom; zoom <= MaxZoom; zoom++ {
		for _, off := range offsets {
			tr := CameraTransform{Offset: off, Zoom: zoom}
			for _, vp := range viewports {
				for _, p := range []Point{Pt(0, 0), Pt(float64(vp.X), float64(vp.Y)), Pt(float64(vp.X)/3, 17)} {
					got := tr.ToScreen(tr.ToWorld(p))
					if diff := cmp.Diff(p, got, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
						t.Fatalf("zoom %d offset %v viewport %v: round trip mismatch (-want +got):\n%s", zoom, off, vp, diff)
					}
				}
			}
		}
	}
}

func TestVisibleChunks(t *testing.T) {
	tests := []struct {
		name   string
		tr     CameraTransform
		w, h   int
		expect ChunkRect
	}{
		{"origin", NewCameraTransform(0, 0, BaseZoom), 320, 240, ChunkRect{0, 0, 20, 15}},
		{"negative offset", NewCameraTransform(-1, -17, BaseZoom), 32, 32, ChunkRect{-1, -2, 1, 0}},
		{"zoomed out", NewCameraTransform(0, 0, BaseZoom-1), 320, 240, ChunkRect{0, 0, 40, 30}},
		{"zoomed in", NewCameraTransform(0, 0, BaseZoom+1), 320, 240, ChunkRect{0, 0, 10, 7}},
		{"single pixel", NewCameraTransform(5, 5, BaseZoom), 1, 1, ChunkRect{0, 0, 0, 0}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := test.tr.VisibleChunks(test.w, test.h)
			if diff := cmp.Diff(test.expect, got); diff != "" {
				t.Fatalf("visible chunks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChunkScreenPos(t *testing.T) {
	tr := NewCameraTransform(8, 0, BaseZoom-1)
	if got := tr.ChunkScreenPos(1, 0); got != image.Pt(4, 0) {
		t.Fatalf("expected 4,0 got %v", got)
	}
	if got := tr.ChunkScreenPos(-1, -1); got != image.Pt(-12, -8) {
		t.Fatalf("expected -12,-8 got %v", got)
	}

	tr = NewCameraTransform(0.5, 0, BaseZoom)
	if got := tr.ChunkScreenPos(0, 0); got != image.Pt(-1, 0) {
		t.Fatalf("fractional offsets should floor, got %v", got)
	}
}

func TestTileResolutionAndScale(t *testing.T) {
	tests := []struct {
		zoom  int
		res   int
		scale int
	}{
		{0, 1, 1},
		{1, 2, 1},
		{2, 4, 1},
		{3, 8, 1},
		{4, 16, 1},
		{5, 16, 2},
		{6, 16, 4},
		{12, 16, 256},
	}

	for _, test := range tests {
		if got := TileResolution(test.zoom); got != test.res {
			t.Errorf("TileResolution(%d) = %d, want %d", test.zoom, got, test.res)
		}
		if got := TileScale(test.zoom); got != test.scale {
			t.Errorf("TileScale(%d) = %d, want %d", test.zoom, got, test.scale)
		}

		// a tile always covers exactly one chunk on screen
		scale := CameraTransform{Zoom: test.zoom}.Scale()
		if got := float64(TileResolution(test.zoom) * TileScale(test.zoom)); got != ChunkSize*scale {
			t.Errorf("zoom %d: tile covers %v pixels, chunk is %v", test.zoom, got, ChunkSize*scale)
		}
	}
}

func TestZoomAtKeepsAnchor(t *testing.T) {
	tr := NewCameraTransform(-300, 120, BaseZoom)
	anchor := Pt(100, 75)
	before := tr.ToWorld(anchor)

	for _, delta := range []int{1, 3, -2, -10, 20} {
		zoomed := tr.ZoomAt(anchor, delta)
		after := zoomed.ToWorld(anchor)
		if diff := cmp.Diff(before, after, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Fatalf("delta %d: anchor moved (-want +got):\n%s", delta, diff)
		}
		if zoomed.Zoom < MinZoom || zoomed.Zoom > MaxZoom {
			t.Fatalf("delta %d: zoom %d out of range", delta, zoomed.Zoom)
		}
	}
}

func TestPanMovesOppositeToDrag(t *testing.T) {
	tr := NewCameraTransform(0, 0, BaseZoom+1).Pan(10, -4)
	if diff := cmp.Diff(Pt(-5, 2), tr.Offset); diff != "" {
		t.Fatalf("unexpected offset (-want +got):\n%s", diff)
	}
}

func TestClampZoom(t *testing.T) {
	if got := NewCameraTransform(0, 0, -3).Zoom; got != MinZoom {
		t.Fatalf("expected zoom to clamp to %d, got %d", MinZoom, got)
	}
	if got := NewCameraTransform(0, 0, 99).Zoom; got != MaxZoom {
		t.Fatalf("expected zoom to clamp to %d, got %d", MaxZoom, got)
	}
}

func TestChunkRect(t *testing.T) {
	r := ChunkRect{MinX: -1, MinZ: 0, MaxX: 1, MaxZ: 2}
	if r.Count() != 9 {
		t.Fatalf("expected 9 chunks, got %d", r.Count())
	}
	if !r.Contains(ChunkPos{-1, 2}) || r.Contains(ChunkPos{2, 0}) {
		t.Fatal("Contains is not inclusive of the bounds")
	}
	if (ChunkRect{MinX: 1, MaxX: 0}).Count() != 0 {
		t.Fatal("inverted rect should be empty")
	}
}
