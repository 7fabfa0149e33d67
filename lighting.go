package cartoview

import (
	"image"
	"image/color"
	"math/bits"

	"github.com/Tnze/go-mc/level"
	"github.com/Tnze/go-mc/save"
)

// LightingRenderer draws a dark overlay that is lighter where the surface is
// lit by block light (torches, lava, glowstone).
type LightingRenderer struct {
}

func NewLightingRenderer() *LightingRenderer {
	return &LightingRenderer{}
}

func (c *LightingRenderer) RenderChunk(chunk *save.Chunk) (*image.RGBA, error) {
	if !isRenderable(chunk) || len(chunk.Sections) == 0 {
		return nil, nil
	}

	img := newTile()
	bitsForHeight := bits.Len(uint(len(chunk.Sections))*16 + 1)
	motionBlocking := level.NewBitStorage(bitsForHeight, 16*16, chunk.Heightmaps["MOTION_BLOCKING"])

	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			y := motionBlocking.Get((z * 16) + x)
			sectionIndex := y / 16
			if sectionIndex < 0 || sectionIndex >= len(chunk.Sections) {
				continue
			}
			section := chunk.Sections[sectionIndex]

			blockLight := byte(0)
			if len(section.BlockLight) > 0 {
				blockLightIndex := x + ((y & 0x0f) << 8) + (z << 4)
				blockLightRaw := section.BlockLight[blockLightIndex/2]

				if blockLightIndex&1 > 0 {
					blockLight = (blockLightRaw >> 4) & 0x0F
				} else {
					blockLight = (blockLightRaw & 0x0F)
				}
			}

			img.SetRGBA(x, z, color.RGBA{A: 192 - ((blockLight + 1) * 12)})
		}
	}

	return img, nil
}
