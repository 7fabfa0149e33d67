package cartoview

import (
	"github.com/Tnze/go-mc/level"
	"github.com/Tnze/go-mc/save"
)

const (
	blocksPerSection = 16 * 16 * 16
	biomesPerSection = 4 * 4 * 4
)

type sectionCache struct {
	chunk *save.Chunk
	cache map[int]*sectionCacheItem
}

type sectionCacheItem struct {
	section save.Section
	storage *level.BitStorage
	biomes  *level.BitStorage
}

func newSectionCache(chunk *save.Chunk) *sectionCache {
	return &sectionCache{
		chunk: chunk,
		cache: make(map[int]*sectionCacheItem),
	}
}

func (c *sectionCache) get(index int) *sectionCacheItem {
	if index < 0 || index >= len(c.chunk.Sections) {
		return nil
	}

	sc, ok := c.cache[index]
	if !ok {
		section := c.chunk.Sections[index]

		v := calcBitsPerValue(blocksPerSection, len(section.BlockStates.Data))
		storage := level.NewBitStorage(v, blocksPerSection, section.BlockStates.Data)

		v = calcBitsPerValue(biomesPerSection, len(section.Biomes.Data))
		biomes := level.NewBitStorage(v, biomesPerSection, section.Biomes.Data)
		sc = &sectionCacheItem{
			section: section,
			storage: storage,
			biomes:  biomes,
		}

		c.cache[index] = sc
	}
	return sc
}

// blockState returns the block state at a position inside the section.
func (sc *sectionCacheItem) blockState(x, y, z int) (save.BlockState, bool) {
	if len(sc.section.BlockStates.Palette) == 0 {
		return save.BlockState{}, false
	}
	idx := sc.storage.Get((((y * 16) + z) * 16) + x)
	if idx < 0 || idx >= len(sc.section.BlockStates.Palette) {
		return save.BlockState{}, false
	}
	return sc.section.BlockStates.Palette[idx], true
}

// biome returns the biome at a block position inside the section. Biomes are
// stored at a 4x4x4 block resolution.
func (sc *sectionCacheItem) biome(x, y, z int) save.BiomeState {
	if len(sc.section.Biomes.Palette) == 0 {
		return ""
	}
	idx := sc.biomes.Get(biomeIndex(x, y, z))
	if idx < 0 || idx >= len(sc.section.Biomes.Palette) {
		return ""
	}
	return sc.section.Biomes.Palette[idx]
}

func biomeIndex(x, y, z int) int {
	return ((y>>2)*4+(z>>2))*4 + (x >> 2)
}

func calcBitsPerValue(length, longs int) (bits int) {
	if longs == 0 || length == 0 {
		return 0
	}
	valuePerLong := (length + longs - 1) / longs
	return 64 / valuePerLong
}
