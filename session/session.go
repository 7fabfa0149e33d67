package session

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Tnze/go-mc/save"
	"github.com/b1naryth1ef/cartoview"
	"github.com/b1naryth1ef/cartoview/world"
)

type Opts struct {
	// Map and Layer select what to view. Empty values pick the first map and
	// the first layer of that map.
	Map   string
	Layer string
}

// LevelInfo is what the viewer needs from a world's level.dat.
type LevelInfo struct {
	Name    string
	Version string
	SpawnX  int
	SpawnZ  int
}

// Session ties a configured map layer to a chunk store and a renderer.
type Session struct {
	Map      *cartoview.MapConfigBlock
	Layer    *cartoview.LayerConfigBlock
	Level    *LevelInfo
	Regions  []world.RegionInfo
	Store    *world.Store
	Renderer *cartoview.Renderer

	loader *world.RegionLoader
}

func Open(ctx context.Context, config *cartoview.Config, opts Opts) (*Session, error) {
	mapCfg, layerCfg, err := resolve(config, opts)
	if err != nil {
		return nil, err
	}

	chunkRenderer, err := cartoview.NewChunkRenderer(layerCfg)
	if err != nil {
		return nil, err
	}

	loader := world.NewRegionLoader(mapCfg.Path, chunkRenderer)
	store := world.NewStore(loader)

	regions, err := world.Index(ctx, mapCfg.Path, store, config.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("index map %s: %w", mapCfg.Name, err)
	}

	level, err := readLevel(filepath.Join(mapCfg.Path, "..", "level.dat"))
	if err != nil {
		cartoview.Logger().Warn("failed to read level.dat", "component", "session", "map", mapCfg.Name, "err", err)
	}

	renderer := cartoview.NewRenderer(store, config.RendererOpts())
	t := cartoview.NewCameraTransform(0, 0, config.InitialZoom())
	if level != nil {
		t.Offset = cartoview.Pt(float64(level.SpawnX), float64(level.SpawnZ))
	}
	renderer.SetCameraTransform(t)

	return &Session{
		Map:      mapCfg,
		Layer:    layerCfg,
		Level:    level,
		Regions:  regions,
		Store:    store,
		Renderer: renderer,
		loader:   loader,
	}, nil
}

func resolve(config *cartoview.Config, opts Opts) (*cartoview.MapConfigBlock, *cartoview.LayerConfigBlock, error) {
	if len(config.Maps) == 0 {
		return nil, nil, errors.New("no maps configured")
	}

	mapCfg := config.Maps[0]
	if opts.Map != "" {
		m, ok := config.Map(opts.Map)
		if !ok {
			return nil, nil, fmt.Errorf("unknown map %q", opts.Map)
		}
		mapCfg = m
	}

	layerName := opts.Layer
	if layerName == "" {
		if len(mapCfg.Layers) == 0 {
			return nil, nil, fmt.Errorf("map %q has no layers", mapCfg.Name)
		}
		layerName = mapCfg.Layers[0]
	}
	layerCfg, ok := config.Layer(layerName)
	if !ok {
		return nil, nil, fmt.Errorf("unknown layer %q", layerName)
	}

	return mapCfg, layerCfg, nil
}

func readLevel(path string) (*LevelInfo, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	r, err := gzip.NewReader(fd)
	if err != nil {
		return nil, err
	}

	level, err := save.ReadLevel(r)
	if err != nil {
		return nil, err
	}

	return &LevelInfo{
		Name:    level.Data.LevelName,
		Version: level.Data.Version.Name,
		SpawnX:  int(level.Data.SpawnX),
		SpawnZ:  int(level.Data.SpawnZ),
	}, nil
}

// CenterOn moves the camera so the given block is in the middle of the
// current viewport.
func (s *Session) CenterOn(x, z float64) {
	t := s.Renderer.CameraTransform()
	w, h := s.Renderer.ViewportSize()
	inv := 1 / t.Scale()
	t.Offset = cartoview.Pt(x-float64(w)/2*inv, z-float64(h)/2*inv)
	s.Renderer.SetCameraTransform(t)
}

// Close stops the renderer's workers and closes the region files. The
// renderer's Run loop must have returned.
func (s *Session) Close() error {
	s.Renderer.Close()
	return s.loader.Close()
}
