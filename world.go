package cartoview

import (
	"image"
	"sync/atomic"
)

// ChunkID is a handle to a chunk record owned by a World. It stays valid for
// the lifetime of the World that issued it.
type ChunkID int32

// ChunkFlags holds the per-chunk render state shared between the scheduler,
// load workers and whatever invalidates tiles. Every access must go through
// the atomic operations.
type ChunkFlags struct {
	// RenderRequested is set while a load task is in flight or after it
	// completed. It is cleared when a task is abandoned or on invalidation.
	RenderRequested atomic.Bool

	// ShouldRerender forces a reload even if a cached tile exists.
	ShouldRerender atomic.Bool

	// LoadError suppresses further loads until the chunk is invalidated.
	LoadError atomic.Bool
}

// World is the chunk store the renderer draws from. Implementations own the
// chunk records and their tile caches; the renderer only keeps ChunkIDs.
type World interface {
	// Chunk looks up the chunk at the given chunk coordinates.
	Chunk(x, z int) (ChunkID, bool)

	Pos(id ChunkID) ChunkPos
	Flags(id ChunkID) *ChunkFlags

	// CachedTile returns the tile image for the zoom level, or nil if it has
	// not been produced yet. It must not block.
	CachedTile(id ChunkID, zoom int) *image.RGBA

	// LoadTile loads the chunk and renders its tile images. It may block on
	// I/O and decoding.
	LoadTile(id ChunkID) error
}
