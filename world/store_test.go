package world

import (
	"errors"
	"image"
	"image/color"
	"sync/atomic"
	"testing"

	"github.com/b1naryth1ef/cartoview"
)

func checkerTile() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cartoview.ChunkSize, cartoview.ChunkSize))
	for z := 0; z < cartoview.ChunkSize; z++ {
		for x := 0; x < cartoview.ChunkSize; x++ {
			img.SetRGBA(x, z, color.RGBA{R: uint8(x * 16), G: uint8(z * 16), A: 255})
		}
	}
	return img
}

func TestStoreAddAndLookup(t *testing.T) {
	s := NewStore(nil)
	a := s.Add(cartoview.ChunkPos{X: -3, Z: 7})
	if again := s.Add(cartoview.ChunkPos{X: -3, Z: 7}); again != a {
		t.Fatalf("adding a known chunk returned a new id %d != %d", again, a)
	}
	s.AddAll([]cartoview.ChunkPos{{X: 0, Z: 0}, {X: 1, Z: 0}, {X: -3, Z: 7}})
	if s.Len() != 3 {
		t.Fatalf("expected 3 chunks, got %d", s.Len())
	}

	id, ok := s.Chunk(1, 0)
	if !ok || s.Pos(id) != (cartoview.ChunkPos{X: 1, Z: 0}) {
		t.Fatalf("lookup of 1,0 failed: %d %v", id, ok)
	}
	if _, ok := s.Chunk(2, 0); ok {
		t.Fatal("expected 2,0 to be unknown")
	}
}

func TestStoreLoadTileBuildsEveryZoomLevel(t *testing.T) {
	var loads atomic.Int32
	s := NewStore(LoaderFunc(func(pos cartoview.ChunkPos) (*image.RGBA, error) {
		loads.Add(1)
		return checkerTile(), nil
	}))
	id := s.Add(cartoview.ChunkPos{X: 4, Z: 4})

	for zoom := cartoview.MinZoom; zoom <= cartoview.MaxZoom; zoom++ {
		if s.CachedTile(id, zoom) != nil {
			t.Fatalf("zoom %d: expected no tile before loading", zoom)
		}
	}

	if err := s.LoadTile(id); err != nil {
		t.Fatalf("LoadTile: %v", err)
	}
	if loads.Load() != 1 {
		t.Fatalf("expected a single load, got %d", loads.Load())
	}

	for zoom := cartoview.MinZoom; zoom <= cartoview.MaxZoom; zoom++ {
		tile := s.CachedTile(id, zoom)
		if tile == nil {
			t.Fatalf("zoom %d: missing tile", zoom)
		}
		res := cartoview.TileResolution(zoom)
		if tile.Rect.Dx() != res || tile.Rect.Dy() != res {
			t.Fatalf("zoom %d: expected %dx%d tile, got %v", zoom, res, res, tile.Rect.Size())
		}
	}

	if s.CachedTile(id, cartoview.BaseZoom+3) != s.CachedTile(id, cartoview.BaseZoom) {
		t.Fatal("zoom levels above base should share the base tile")
	}
	if got := s.CachedTile(id, 0).RGBAAt(0, 0); got.A != 255 {
		t.Fatalf("reduced tile lost its opacity: %v", got)
	}
}

func TestStoreLoadTileEmptyChunk(t *testing.T) {
	s := NewStore(LoaderFunc(func(pos cartoview.ChunkPos) (*image.RGBA, error) {
		return nil, nil
	}))
	id := s.Add(cartoview.ChunkPos{})
	if err := s.LoadTile(id); err != nil {
		t.Fatalf("LoadTile: %v", err)
	}
	tile := s.CachedTile(id, cartoview.BaseZoom)
	if tile == nil {
		t.Fatal("expected a transparent tile for an empty chunk")
	}
	for i := 3; i < len(tile.Pix); i += 4 {
		if tile.Pix[i] != 0 {
			t.Fatal("expected a fully transparent tile")
		}
	}
}

func TestStoreLoadTileErrors(t *testing.T) {
	s := NewStore(LoaderFunc(func(pos cartoview.ChunkPos) (*image.RGBA, error) {
		if pos.X == 0 {
			return nil, ErrNoChunk
		}
		return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
	}))

	missing := s.Add(cartoview.ChunkPos{X: 0, Z: 0})
	if err := s.LoadTile(missing); !errors.Is(err, ErrNoChunk) {
		t.Fatalf("expected ErrNoChunk, got %v", err)
	}

	wrongSize := s.Add(cartoview.ChunkPos{X: 1, Z: 0})
	if err := s.LoadTile(wrongSize); err == nil {
		t.Fatal("expected an error for a wrongly sized tile")
	}
	if s.CachedTile(wrongSize, cartoview.BaseZoom) != nil {
		t.Fatal("a failed load must not populate the cache")
	}
}

func TestStoreInvalidate(t *testing.T) {
	s := NewStore(nil)
	id := s.Add(cartoview.ChunkPos{X: 2, Z: -2})
	flags := s.Flags(id)
	flags.RenderRequested.Store(true)
	flags.LoadError.Store(true)

	if !s.Invalidate(2, -2) {
		t.Fatal("expected Invalidate to find the chunk")
	}
	if flags.RenderRequested.Load() || flags.LoadError.Load() || !flags.ShouldRerender.Load() {
		t.Fatal("unexpected flags after Invalidate")
	}
	if s.Invalidate(9, 9) {
		t.Fatal("expected Invalidate of an unknown chunk to fail")
	}
}
