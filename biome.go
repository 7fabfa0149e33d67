package cartoview

import (
	"fmt"
	"image"
	"image/color"
	"math/bits"
	"sort"
	"sync"

	"github.com/Tnze/go-mc/level"
	"github.com/Tnze/go-mc/save"
	"github.com/muesli/gamut"
)

// vanillaBiomes are the overworld, nether and end biomes of the 1.20 data
// pack. Each gets a distinct pastel colour.
var vanillaBiomes = []string{
	"badlands", "bamboo_jungle", "basalt_deltas", "beach", "birch_forest",
	"cherry_grove", "cold_ocean", "crimson_forest", "dark_forest",
	"deep_cold_ocean", "deep_dark", "deep_frozen_ocean", "deep_lukewarm_ocean",
	"deep_ocean", "desert", "dripstone_caves", "end_barrens", "end_highlands",
	"end_midlands", "eroded_badlands", "flower_forest", "forest",
	"frozen_ocean", "frozen_peaks", "frozen_river", "grove", "ice_spikes",
	"jagged_peaks", "jungle", "lukewarm_ocean", "lush_caves",
	"mangrove_swamp", "meadow", "mushroom_fields", "nether_wastes", "ocean",
	"old_growth_birch_forest", "old_growth_pine_taiga",
	"old_growth_spruce_taiga", "plains", "river", "savanna",
	"savanna_plateau", "small_end_islands", "snowy_beach", "snowy_plains",
	"snowy_slopes", "snowy_taiga", "soul_sand_valley", "sparse_jungle",
	"stony_peaks", "stony_shore", "sunflower_plains", "swamp", "taiga",
	"the_end", "the_void", "warm_ocean", "warped_forest", "windswept_forest",
	"windswept_gravelly_hills", "windswept_hills", "windswept_savanna",
	"wooded_badlands",
}

// BiomeRenderer colours each column by the biome of its top block.
type BiomeRenderer struct {
	biomes map[save.BiomeState]color.RGBA

	mu       sync.Mutex
	unmapped map[save.BiomeState]struct{}
}

func NewBiomeRenderer() (*BiomeRenderer, error) {
	names := make([]string, len(vanillaBiomes))
	for i, name := range vanillaBiomes {
		names[i] = fmt.Sprintf("minecraft:%s", name)
	}
	sort.Strings(names)

	colors, err := gamut.Generate(len(names), gamut.PastelGenerator{})
	if err != nil {
		return nil, fmt.Errorf("generate biome palette: %w", err)
	}

	biomes := make(map[save.BiomeState]color.RGBA, len(names))
	for idx, name := range names {
		clr := color.RGBAModel.Convert(colors[idx]).(color.RGBA)
		clr.A = 255
		biomes[save.BiomeState(name)] = clr
	}

	return &BiomeRenderer{
		biomes:   biomes,
		unmapped: make(map[save.BiomeState]struct{}),
	}, nil
}

func (c *BiomeRenderer) RenderChunk(chunk *save.Chunk) (*image.RGBA, error) {
	if !isRenderable(chunk) || len(chunk.Sections) == 0 {
		return nil, nil
	}

	img := newTile()
	bitsForHeight := bits.Len(uint(len(chunk.Sections))*16 + 1)
	motionBlocking := level.NewBitStorage(bitsForHeight, 16*16, chunk.Heightmaps["MOTION_BLOCKING"])
	cache := newSectionCache(chunk)

	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			y := motionBlocking.Get((z * 16) + x)
			sc := cache.get(y / 16)
			if sc == nil {
				continue
			}

			biome := sc.biome(x, y%16, z)
			if clr, ok := c.biomes[biome]; ok {
				img.SetRGBA(x, z, clr)
			} else {
				c.reportUnmapped(biome)
			}
		}
	}

	return img, nil
}

func (c *BiomeRenderer) reportUnmapped(biome save.BiomeState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.unmapped[biome]; ok {
		return
	}
	c.unmapped[biome] = struct{}{}
	Logger().Warn("unmapped biome", "component", "biome", "biome", string(biome))
}
