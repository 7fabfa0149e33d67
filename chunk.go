package cartoview

import (
	"fmt"
	"image"

	"github.com/Tnze/go-mc/save"
)

// ChunkRenderer turns a decoded chunk into its base tile, a ChunkSize x
// ChunkSize image with one pixel per block column. A nil image with a nil
// error means the chunk has nothing worth drawing yet.
type ChunkRenderer interface {
	RenderChunk(*save.Chunk) (*image.RGBA, error)
}

// NewChunkRenderer builds the renderer a layer block asks for.
func NewChunkRenderer(layer *LayerConfigBlock) (ChunkRenderer, error) {
	switch layer.Render {
	case "surface":
		return NewSurfaceRenderer(layer.Options), nil
	case "biome":
		return NewBiomeRenderer()
	case "lighting":
		return NewLightingRenderer(), nil
	}
	return nil, fmt.Errorf("unsupported renderer %q", layer.Render)
}

func newTile() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, ChunkSize, ChunkSize))
}

// isRenderable reports whether the chunk has finished world generation.
func isRenderable(chunk *save.Chunk) bool {
	switch chunk.Status {
	case "minecraft:full", "minecraft:spawn", "minecraft:postprocessed", "minecraft:fullchunk", "full":
		return true
	}
	return false
}
