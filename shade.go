package cartoview

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/Tnze/go-mc/level"
)

// DefaultHeightmapLimit bounds how many chunk heightmaps a shader remembers.
const DefaultHeightmapLimit = 1 << 16

// ChunkPixelShader darkens block columns that sit below their north and west
// neighbours, which gives the flat map a sense of relief. Only the most
// recently added heightmaps are kept; older ones are evicted first.
type ChunkPixelShader struct {
	sync.RWMutex

	limit      int
	heightmaps map[ChunkPos]*level.BitStorage
	order      []ChunkPos
}

func NewChunkPixelShader() *ChunkPixelShader {
	return newChunkPixelShader(DefaultHeightmapLimit)
}

func newChunkPixelShader(limit int) *ChunkPixelShader {
	return &ChunkPixelShader{
		limit:      max(1, limit),
		heightmaps: make(map[ChunkPos]*level.BitStorage),
	}
}

// add tracks a chunks heightmap for shading it and its neighbours
func (c *ChunkPixelShader) add(pos ChunkPos, hm *level.BitStorage) {
	c.Lock()
	defer c.Unlock()
	if _, ok := c.heightmaps[pos]; !ok {
		c.order = append(c.order, pos)
	}
	c.heightmaps[pos] = hm

	for len(c.order) > c.limit {
		delete(c.heightmaps, c.order[0])
		c.order = c.order[1:]
	}
}

// get returns the height map for a given chunk
func (c *ChunkPixelShader) get(pos ChunkPos) *level.BitStorage {
	c.RLock()
	defer c.RUnlock()
	return c.heightmaps[pos]
}

func (c *ChunkPixelShader) Len() int {
	c.RLock()
	defer c.RUnlock()
	return len(c.heightmaps)
}

// Apply records the chunk heightmap and draws the shading overlay onto img.
// Neighbours that have not been seen yet are treated as level with the edge.
func (c *ChunkPixelShader) Apply(img *image.RGBA, chunkX, chunkZ int, hm *level.BitStorage) {
	pos := ChunkPos{X: chunkX, Z: chunkZ}
	c.add(pos, hm)
	overlay := c.renderChunk(pos, hm)
	draw.Draw(img, img.Rect, overlay, image.Point{}, draw.Over)
}

// renderChunk generates a shaded overlay image for a single chunk
func (c *ChunkPixelShader) renderChunk(pos ChunkPos, hm *level.BitStorage) *image.RGBA {
	img := newTile()

	left := c.get(ChunkPos{X: pos.X - 1, Z: pos.Z})
	top := c.get(ChunkPos{X: pos.X, Z: pos.Z - 1})

	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			height := hm.Get((z * 16) + x)

			// on the west and north edges the neighbour height lives in another chunk
			leftHeight := height
			if x > 0 {
				leftHeight = hm.Get((z * 16) + (x - 1))
			} else if left != nil {
				leftHeight = left.Get((z * 16) + 15)
			}

			topHeight := height
			if z > 0 {
				topHeight = hm.Get(((z - 1) * 16) + x)
			} else if top != nil {
				topHeight = top.Get((15 * 16) + x)
			}

			var d int
			if topHeight > height {
				d = (topHeight - height) * 16
			}
			if leftHeight > height {
				d += (leftHeight - height) * 16
			}
			if d > 64 {
				d = 64
			}

			img.SetRGBA(x, z, color.RGBA{A: uint8(d)})
		}
	}

	return img
}
