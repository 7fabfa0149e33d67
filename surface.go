package cartoview

import (
	"hash/fnv"
	"image"
	"image/color"
	"math/bits"

	"github.com/Tnze/go-mc/level"
	"github.com/Tnze/go-mc/save"
	"github.com/muesli/gamut"
)

var airBlocks = map[string]struct{}{
	"minecraft:air":         {},
	"minecraft:cave_air":    {},
	"minecraft:void_air":    {},
	"minecraft:dead_bush":   {},
	"minecraft:short_grass": {},
	"minecraft:grass":       {},
	"minecraft:lily_pad":    {},
	"minecraft:torch":       {},
	"minecraft:wall_torch":  {},
}

func isAirBlock(block string) bool {
	_, ok := airBlocks[block]
	return ok
}

// blockColors is a fixed top-down colour per block. Blocks missing here get a
// stable colour from the fallback palette.
var blockColors = map[string]color.RGBA{
	"minecraft:grass_block":     {R: 0x7c, G: 0xbd, B: 0x6b, A: 255},
	"minecraft:dirt":            {R: 0x86, G: 0x60, B: 0x43, A: 255},
	"minecraft:coarse_dirt":     {R: 0x77, G: 0x55, B: 0x3b, A: 255},
	"minecraft:podzol":          {R: 0x5b, G: 0x3d, B: 0x18, A: 255},
	"minecraft:mud":             {R: 0x3c, G: 0x39, B: 0x3d, A: 255},
	"minecraft:stone":           {R: 0x7d, G: 0x7d, B: 0x7d, A: 255},
	"minecraft:deepslate":       {R: 0x50, G: 0x50, B: 0x52, A: 255},
	"minecraft:andesite":        {R: 0x88, G: 0x88, B: 0x88, A: 255},
	"minecraft:granite":         {R: 0x95, G: 0x67, B: 0x55, A: 255},
	"minecraft:diorite":         {R: 0xbc, G: 0xbc, B: 0xbc, A: 255},
	"minecraft:gravel":          {R: 0x83, G: 0x7f, B: 0x7e, A: 255},
	"minecraft:sand":            {R: 0xdb, G: 0xcf, B: 0xa3, A: 255},
	"minecraft:red_sand":        {R: 0xbe, G: 0x66, B: 0x21, A: 255},
	"minecraft:sandstone":       {R: 0xd8, G: 0xcb, B: 0x9b, A: 255},
	"minecraft:terracotta":      {R: 0x98, G: 0x5e, B: 0x43, A: 255},
	"minecraft:clay":            {R: 0xa0, G: 0xa6, B: 0xb3, A: 255},
	"minecraft:snow":            {R: 0xf9, G: 0xfe, B: 0xfe, A: 255},
	"minecraft:snow_block":      {R: 0xf9, G: 0xfe, B: 0xfe, A: 255},
	"minecraft:powder_snow":     {R: 0xf8, G: 0xfd, B: 0xfd, A: 255},
	"minecraft:ice":             {R: 0x91, G: 0xb7, B: 0xfd, A: 255},
	"minecraft:packed_ice":      {R: 0x8d, G: 0xb4, B: 0xfa, A: 255},
	"minecraft:blue_ice":        {R: 0x74, G: 0xa8, B: 0xfd, A: 255},
	"minecraft:lava":            {R: 0xcf, G: 0x5b, B: 0x14, A: 255},
	"minecraft:oak_leaves":      {R: 0x48, G: 0x7d, B: 0x2c, A: 255},
	"minecraft:birch_leaves":    {R: 0x80, G: 0xa7, B: 0x55, A: 255},
	"minecraft:spruce_leaves":   {R: 0x61, G: 0x99, B: 0x61, A: 255},
	"minecraft:jungle_leaves":   {R: 0x3f, G: 0x8a, B: 0x1c, A: 255},
	"minecraft:acacia_leaves":   {R: 0x55, G: 0x83, B: 0x26, A: 255},
	"minecraft:cherry_leaves":   {R: 0xe5, G: 0xad, B: 0xc2, A: 255},
	"minecraft:mangrove_leaves": {R: 0x4e, G: 0x8a, B: 0x1f, A: 255},
	"minecraft:azalea_leaves":   {R: 0x5a, G: 0x73, B: 0x2c, A: 255},
	"minecraft:dark_oak_leaves": {R: 0x3b, G: 0x6b, B: 0x1e, A: 255},
	"minecraft:oak_log":         {R: 0x97, G: 0x79, B: 0x49, A: 255},
	"minecraft:spruce_log":      {R: 0x6c, G: 0x50, B: 0x30, A: 255},
	"minecraft:oak_planks":      {R: 0xa2, G: 0x83, B: 0x4f, A: 255},
	"minecraft:cobblestone":     {R: 0x7f, G: 0x7f, B: 0x7f, A: 255},
	"minecraft:netherrack":      {R: 0x61, G: 0x26, B: 0x26, A: 255},
	"minecraft:end_stone":       {R: 0xdb, G: 0xde, B: 0x9e, A: 255},
	"minecraft:bedrock":         {R: 0x55, G: 0x55, B: 0x55, A: 255},
}

// waterColor returns the surface colour of water in a biome.
func waterColor(biome save.BiomeState) color.RGBA {
	switch biome {
	case "minecraft:swamp", "minecraft:mangrove_swamp":
		return color.RGBA{R: 0x61, G: 0x7B, B: 0x64, A: 255}
	case "minecraft:lukewarm_ocean", "minecraft:deep_lukewarm_ocean":
		return color.RGBA{R: 0x45, G: 0xAD, B: 0xF2, A: 255}
	case "minecraft:warm_ocean":
		return color.RGBA{R: 0x43, G: 0xD5, B: 0xEE, A: 255}
	case "minecraft:cold_ocean", "minecraft:deep_cold_ocean":
		return color.RGBA{R: 0x3D, G: 0x57, B: 0xD6, A: 255}
	case "minecraft:frozen_river", "minecraft:frozen_ocean", "minecraft:deep_frozen_ocean":
		return color.RGBA{R: 0x39, G: 0x38, B: 0xC9, A: 255}
	default:
		return color.RGBA{R: 0x3f, G: 0x76, B: 0xe4, A: 255}
	}
}

const fallbackPaletteSize = 64

// SurfaceRenderer draws the colour of the highest visible block of each
// column, darkening water by depth and optionally shading by height.
type SurfaceRenderer struct {
	shader       *ChunkPixelShader
	fallback     []color.RGBA
	stripCeiling bool
}

func NewSurfaceRenderer(opts RenderOpts) *SurfaceRenderer {
	var shader *ChunkPixelShader
	if opts.GetBool("shading", true) {
		shader = NewChunkPixelShader()
	}
	return &SurfaceRenderer{
		shader:       shader,
		fallback:     fallbackPalette(),
		stripCeiling: opts.GetBool("strip_ceiling", false),
	}
}

func fallbackPalette() []color.RGBA {
	out := make([]color.RGBA, fallbackPaletteSize)
	colors, err := gamut.Generate(fallbackPaletteSize, gamut.PastelGenerator{})
	if err != nil {
		Logger().Warn("failed to generate fallback palette", "err", err)
	}
	for i := range out {
		if i < len(colors) {
			out[i] = color.RGBAModel.Convert(colors[i]).(color.RGBA)
		} else {
			out[i] = color.RGBA{R: 0xff, G: 0x00, B: 0xff, A: 255}
		}
		out[i].A = 255
	}
	return out
}

func (c *SurfaceRenderer) blockColor(state save.BlockState, biome save.BiomeState) color.RGBA {
	if state.Name == "minecraft:water" {
		return waterColor(biome)
	}
	if clr, ok := blockColors[state.Name]; ok {
		return clr
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(state.Name))
	return c.fallback[h.Sum32()%uint32(len(c.fallback))]
}

func (c *SurfaceRenderer) RenderChunk(chunk *save.Chunk) (*image.RGBA, error) {
	if !isRenderable(chunk) || len(chunk.Sections) == 0 {
		return nil, nil
	}

	bitsForHeight := bits.Len(uint(len(chunk.Sections))*16 + 1)
	motionBlocking := level.NewBitStorage(bitsForHeight, 16*16, chunk.Heightmaps["MOTION_BLOCKING"])
	oceanFloor := level.NewBitStorage(bitsForHeight, 16*16, chunk.Heightmaps["OCEAN_FLOOR"])

	img := newTile()
	cache := newSectionCache(chunk)

	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			heightmapIndex := ((z) * 16) + x
			yStart := motionBlocking.Get(heightmapIndex)
			underCeiling := false

			for y := yStart; y > 1; y-- {
				sc := cache.get(y / 16)
				if sc == nil {
					continue
				}

				blockState, ok := sc.blockState(x, y%16, z)
				if !ok {
					continue
				}

				// if we're stripping the ceiling we need to wait for the first airblock
				if c.stripCeiling && !underCeiling {
					if !isAirBlock(blockState.Name) || y == yStart {
						continue
					}
					underCeiling = true
				}

				if isAirBlock(blockState.Name) {
					continue
				}

				clr := c.blockColor(blockState, sc.biome(x, y%16, z))

				// for water we want to darken things based on the depth of the water
				if blockState.Name == "minecraft:water" {
					d := (y - oceanFloor.Get(heightmapIndex)) * 8
					clr = darken(clr, max(0, min(d, maxWaterDarkening)))
				}

				img.SetRGBA(x, z, clr)
				break
			}
		}
	}

	if c.shader != nil {
		c.shader.Apply(img, int(chunk.XPos), int(chunk.ZPos), motionBlocking)
	}

	return img, nil
}

const maxWaterDarkening = 128

// darken scales the colour channels of c by (255-amount)/255.
func darken(c color.RGBA, amount int) color.RGBA {
	keep := 255 - amount
	return color.RGBA{
		R: uint8(int(c.R) * keep / 255),
		G: uint8(int(c.G) * keep / 255),
		B: uint8(int(c.B) * keep / 255),
		A: c.A,
	}
}
