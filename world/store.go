package world

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/b1naryth1ef/cartoview"
	"golang.org/x/image/draw"
)

var ErrNoChunk = errors.New("chunk does not exist")

// Loader produces the base tile for a chunk. A nil image with a nil error
// means the chunk exists but has nothing to draw.
type Loader interface {
	LoadChunk(pos cartoview.ChunkPos) (*image.RGBA, error)
}

type LoaderFunc func(pos cartoview.ChunkPos) (*image.RGBA, error)

func (f LoaderFunc) LoadChunk(pos cartoview.ChunkPos) (*image.RGBA, error) {
	return f(pos)
}

type record struct {
	pos   cartoview.ChunkPos
	flags cartoview.ChunkFlags

	// serialises loads of the same chunk
	loadMu sync.Mutex

	// tiles[z] is the tile for zoom level z; levels above BaseZoom reuse
	// the BaseZoom tile.
	tiles [cartoview.BaseZoom + 1]atomic.Pointer[image.RGBA]
}

// Store owns every known chunk record and its cached tiles. Records are never
// removed, so a ChunkID stays valid for the lifetime of the Store.
type Store struct {
	loader Loader

	mu      sync.RWMutex
	index   map[cartoview.ChunkPos]cartoview.ChunkID
	records []*record
}

var _ cartoview.World = (*Store)(nil)

func NewStore(loader Loader) *Store {
	return &Store{
		loader: loader,
		index:  make(map[cartoview.ChunkPos]cartoview.ChunkID),
	}
}

// Add registers a chunk and returns its handle. Adding a known chunk returns
// the existing handle.
func (s *Store) Add(pos cartoview.ChunkPos) cartoview.ChunkID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(pos)
}

// AddAll registers a batch of chunks under a single lock.
func (s *Store) AddAll(positions []cartoview.ChunkPos) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pos := range positions {
		s.addLocked(pos)
	}
}

func (s *Store) addLocked(pos cartoview.ChunkPos) cartoview.ChunkID {
	if id, ok := s.index[pos]; ok {
		return id
	}
	id := cartoview.ChunkID(len(s.records))
	s.records = append(s.records, &record{pos: pos})
	s.index[pos] = id
	return id
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) record(id cartoview.ChunkID) *record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[id]
}

func (s *Store) Chunk(x, z int) (cartoview.ChunkID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.index[cartoview.ChunkPos{X: x, Z: z}]
	return id, ok
}

func (s *Store) Pos(id cartoview.ChunkID) cartoview.ChunkPos {
	return s.record(id).pos
}

func (s *Store) Flags(id cartoview.ChunkID) *cartoview.ChunkFlags {
	return &s.record(id).flags
}

func (s *Store) CachedTile(id cartoview.ChunkID, zoom int) *image.RGBA {
	level := max(0, min(zoom, cartoview.BaseZoom))
	return s.record(id).tiles[level].Load()
}

// LoadTile loads the chunk through the Loader and caches its tile at every
// zoom level. Chunks with nothing to draw get a transparent tile so they are
// not loaded again.
func (s *Store) LoadTile(id cartoview.ChunkID) error {
	rec := s.record(id)
	rec.loadMu.Lock()
	defer rec.loadMu.Unlock()

	img, err := s.loader.LoadChunk(rec.pos)
	if err != nil {
		return fmt.Errorf("load chunk %d,%d: %w", rec.pos.X, rec.pos.Z, err)
	}
	if img == nil {
		img = image.NewRGBA(image.Rect(0, 0, cartoview.ChunkSize, cartoview.ChunkSize))
	}
	if img.Rect.Dx() != cartoview.ChunkSize || img.Rect.Dy() != cartoview.ChunkSize {
		return fmt.Errorf("load chunk %d,%d: tile is %v, want %dx%d", rec.pos.X, rec.pos.Z, img.Rect.Size(), cartoview.ChunkSize, cartoview.ChunkSize)
	}

	base := cartoview.BaseZoom
	rec.tiles[base].Store(img)
	for zoom := base - 1; zoom >= 0; zoom-- {
		rec.tiles[zoom].Store(reduceTile(img, cartoview.TileResolution(zoom)))
	}
	return nil
}

// reduceTile shrinks a base tile to res x res pixels.
func reduceTile(src *image.RGBA, res int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, res, res))
	draw.NearestNeighbor.Scale(dst, dst.Rect, src, src.Rect, draw.Src, nil)
	return dst
}

// Invalidate marks a chunk as changed so the next full redraw reloads it,
// even if it previously failed to load. The stale tile stays visible until
// the new one is ready.
func (s *Store) Invalidate(x, z int) bool {
	id, ok := s.Chunk(x, z)
	if !ok {
		return false
	}
	flags := s.Flags(id)
	flags.LoadError.Store(false)
	flags.RenderRequested.Store(false)
	flags.ShouldRerender.Store(true)
	return true
}
