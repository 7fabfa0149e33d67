package world

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/Tnze/go-mc/save"
	"github.com/Tnze/go-mc/save/region"
	"github.com/b1naryth1ef/cartoview"
	"golang.org/x/sync/errgroup"
)

const regionSize = 32

type RegionPos struct {
	X int
	Z int
}

func regionOf(pos cartoview.ChunkPos) (RegionPos, int, int) {
	return RegionPos{X: pos.X >> 5, Z: pos.Z >> 5}, pos.X & (regionSize - 1), pos.Z & (regionSize - 1)
}

func (p RegionPos) FileName() string {
	return fmt.Sprintf("r.%d.%d.mca", p.X, p.Z)
}

// ParseRegionFileName extracts the region coordinates from an "r.X.Z.mca"
// file name.
func ParseRegionFileName(name string) (RegionPos, bool) {
	var pos RegionPos
	var ext string
	n, err := fmt.Sscanf(name, "r.%d.%d.%s", &pos.X, &pos.Z, &ext)
	if err != nil || n != 3 || ext != "mca" {
		return RegionPos{}, false
	}
	return pos, true
}

type RegionInfo struct {
	Pos    RegionPos
	Chunks int
}

type openRegion struct {
	mu  sync.Mutex
	reg *region.Region
}

// RegionLoader reads chunks from the region files of a world dimension and
// renders them with a ChunkRenderer. Region files are opened on first use and
// kept open until Close.
type RegionLoader struct {
	dir      string
	renderer cartoview.ChunkRenderer

	mu      sync.Mutex
	regions map[RegionPos]*openRegion
}

func NewRegionLoader(dir string, renderer cartoview.ChunkRenderer) *RegionLoader {
	return &RegionLoader{
		dir:      dir,
		renderer: renderer,
		regions:  make(map[RegionPos]*openRegion),
	}
}

func (l *RegionLoader) open(pos RegionPos) (*openRegion, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if or, ok := l.regions[pos]; ok {
		return or, nil
	}

	reg, err := region.Open(filepath.Join(l.dir, pos.FileName()))
	if err != nil {
		return nil, fmt.Errorf("open region %s: %w", pos.FileName(), err)
	}

	or := &openRegion{reg: reg}
	l.regions[pos] = or
	return or, nil
}

func (l *RegionLoader) LoadChunk(pos cartoview.ChunkPos) (*image.RGBA, error) {
	rp, x, z := regionOf(pos)
	or, err := l.open(rp)
	if err != nil {
		return nil, err
	}

	or.mu.Lock()
	sector, err := or.reg.ReadSector(x, z)
	or.mu.Unlock()
	if errors.Is(err, region.ErrNoSector) {
		return nil, ErrNoChunk
	}
	if err != nil {
		return nil, err
	}
	if len(sector) == 0 {
		return nil, fmt.Errorf("sector is out of bounds")
	}

	var chunk save.Chunk
	if err := chunk.Load(sector); err != nil {
		return nil, fmt.Errorf("decode chunk: %w", err)
	}

	return l.renderer.RenderChunk(&chunk)
}

// Close closes every region file opened by LoadChunk.
func (l *RegionLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for pos, or := range l.regions {
		or.mu.Lock()
		if err := or.reg.Close(); err != nil {
			errs = append(errs, err)
		}
		or.mu.Unlock()
		delete(l.regions, pos)
	}
	return errors.Join(errs...)
}

// Index scans the headers of every region file in dir and registers each
// chunk that has data with store. Unreadable region files are logged and
// skipped. concurrency <= 0 uses GOMAXPROCS.
func Index(ctx context.Context, dir string, store *Store, concurrency int) ([]RegionInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	log := cartoview.Logger().With("component", "world")

	var mu sync.Mutex
	var infos []RegionInfo

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, e := range entries {
		pos, ok := ParseRegionFileName(e.Name())
		if !ok || e.IsDir() {
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			chunks, err := scanRegion(filepath.Join(dir, e.Name()), pos)
			if err != nil {
				log.Warn("failed to scan region file", "file", e.Name(), "err", err)
				return nil
			}

			store.AddAll(chunks)
			mu.Lock()
			infos = append(infos, RegionInfo{Pos: pos, Chunks: len(chunks)})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Pos.Z != infos[j].Pos.Z {
			return infos[i].Pos.Z < infos[j].Pos.Z
		}
		return infos[i].Pos.X < infos[j].Pos.X
	})

	log.Info("indexed world", "dir", dir, "regions", len(infos), "chunks", store.Len())
	return infos, nil
}

func scanRegion(path string, pos RegionPos) ([]cartoview.ChunkPos, error) {
	reg, err := region.Open(path)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer reg.Close()

	var chunks []cartoview.ChunkPos
	for z := 0; z < regionSize; z++ {
		for x := 0; x < regionSize; x++ {
			if !reg.ExistSector(x, z) {
				continue
			}
			chunks = append(chunks, cartoview.ChunkPos{
				X: pos.X*regionSize + x,
				Z: pos.Z*regionSize + z,
			})
		}
	}
	return chunks, nil
}
