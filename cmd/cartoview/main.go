package main

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/b1naryth1ef/cartoview"
	"github.com/b1naryth1ef/cartoview/session"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:        "cartoview",
		Description: "interactive minecraft map viewer",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:  "config",
				Usage: "path to the configuration file",
				Value: "config.hcl",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
				Value: "info",
			},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			{
				Name:   "snapshot",
				Usage:  "render a view of a map and write it as a png",
				Action: commandSnapshot,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "map", Usage: "map to view (defaults to the first map)"},
					&cli.StringFlag{Name: "layer", Usage: "layer to view (defaults to the map's first layer)"},
					&cli.IntFlag{Name: "width", Value: 1280},
					&cli.IntFlag{Name: "height", Value: 720},
					&cli.Float64Flag{Name: "x", Usage: "block x at the center of the view (defaults to spawn)"},
					&cli.Float64Flag{Name: "z", Usage: "block z at the center of the view (defaults to spawn)"},
					&cli.IntFlag{Name: "zoom", Usage: "zoom level, 4 is one pixel per block", Value: -1},
					&cli.DurationFlag{Name: "timeout", Usage: "give up waiting for tiles after this long", Value: 30 * time.Second},
					&cli.PathFlag{Name: "out", Usage: "output png", Value: "snapshot.png"},
				},
			},
			{
				Name:   "regions",
				Usage:  "list the region files of a map",
				Action: commandRegions,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "map", Usage: "map to inspect (defaults to the first map)"},
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func setupLogging(ctx *cli.Context) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(ctx.String("log-level"))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	cartoview.SetLogger(logger)
	return nil
}

func commandSnapshot(ctx *cli.Context) error {
	config, err := cartoview.LoadConfig(ctx.Path("config"))
	if err != nil {
		return err
	}

	s, err := session.Open(ctx.Context, config, session.Opts{
		Map:   ctx.String("map"),
		Layer: ctx.String("layer"),
	})
	if err != nil {
		return err
	}

	r := s.Renderer
	if err := r.SetViewportSize(ctx.Int("width"), ctx.Int("height")); err != nil {
		return errors.Join(err, s.Close())
	}
	if zoom := ctx.Int("zoom"); zoom >= 0 {
		t := r.CameraTransform()
		t.Zoom = zoom
		r.SetCameraTransform(t)
	}

	centerX, centerZ := 0.0, 0.0
	if s.Level != nil {
		centerX, centerZ = float64(s.Level.SpawnX), float64(s.Level.SpawnZ)
	}
	if ctx.IsSet("x") {
		centerX = ctx.Float64("x")
	}
	if ctx.IsSet("z") {
		centerZ = ctx.Float64("z")
	}
	s.CenterOn(centerX, centerZ)

	runCtx, cancel := context.WithCancel(ctx.Context)
	done := make(chan error, 1)
	go func() {
		done <- r.Run(runCtx)
	}()

	start := time.Now()
	settled := waitSettled(r, ctx.Duration("timeout"))
	cancel()
	<-done

	stats := r.Stats()
	slog.Info("rendered snapshot",
		"settled", settled,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"frames", stats.Frames,
		"loaded", stats.Loaded,
		"failed", stats.Failed,
		"abandoned", stats.Abandoned,
	)

	img, t := r.Snapshot()
	if err := s.Close(); err != nil {
		slog.Warn("failed to close session", "err", err)
	}
	if img == nil {
		return errors.New("no frame was rendered")
	}

	f, err := os.Create(ctx.Path("out"))
	if err != nil {
		return err
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	slog.Info("wrote snapshot", "path", ctx.Path("out"), "x", t.Offset.X(), "z", t.Offset.Y(), "zoom", t.Zoom)
	return nil
}

// waitSettled polls until the renderer has presented at least one frame and
// has had no outstanding work for two consecutive polls, or until timeout.
func waitSettled(r *cartoview.Renderer, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	idle := 0
	for time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
		if r.Stats().Frames == 0 || r.Busy() {
			idle = 0
			continue
		}
		idle++
		if idle >= 2 {
			return true
		}
	}
	return false
}

func commandRegions(ctx *cli.Context) error {
	config, err := cartoview.LoadConfig(ctx.Path("config"))
	if err != nil {
		return err
	}

	s, err := session.Open(ctx.Context, config, session.Opts{Map: ctx.String("map")})
	if err != nil {
		return err
	}
	defer s.Close()

	if s.Level != nil {
		fmt.Printf("%s (%s) spawn %d,%d\n", s.Level.Name, s.Level.Version, s.Level.SpawnX, s.Level.SpawnZ)
	}
	total := 0
	for _, info := range s.Regions {
		fmt.Printf("%-16s %4d chunks\n", info.Pos.FileName(), info.Chunks)
		total += info.Chunks
	}
	fmt.Printf("%d regions, %d chunks\n", len(s.Regions), total)
	return nil
}
