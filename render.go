package cartoview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"
)

var ErrViewportTooLarge = errors.New("viewport exceeds maximum size")

// RendererOpts tunes the presentation loop and its worker pool. Zero values
// select the defaults.
type RendererOpts struct {
	TickInterval time.Duration
	Workers      int
	QueueSize    int
	MaxViewport  int
}

const (
	DefaultTickInterval = 16 * time.Millisecond
	DefaultQueueSize    = 4096
	DefaultMaxViewport  = 8192
)

// Renderer composites chunk tiles from a World into a double-buffered frame.
// Run drives it at a fixed cadence; tiles that are not cached yet are loaded
// on a worker pool and overlaid as they become ready.
type Renderer struct {
	world    World
	pool     *WorkerPool
	opts     RendererOpts
	finished *finishedQueue
	stats    RenderStats

	redraw    atomic.Bool
	viewport  atomic.Pointer[image.Point]
	transform atomic.Pointer[CameraTransform]

	// visible is the chunk range of the most recent full redraw. Load tasks
	// abandon chunks that fall outside it.
	visible atomic.Pointer[ChunkRect]

	// owned by the goroutine calling tick
	back          *image.RGBA
	backTransform CameraTransform

	front frontBuffer
}

func NewRenderer(world World, opts RendererOpts) *Renderer {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.MaxViewport <= 0 {
		opts.MaxViewport = DefaultMaxViewport
	}

	r := &Renderer{
		world:    world,
		pool:     NewWorkerPool(opts.Workers, opts.QueueSize),
		opts:     opts,
		finished: newFinishedQueue(),
	}
	r.viewport.Store(&image.Point{})
	t := NewCameraTransform(0, 0, BaseZoom)
	r.transform.Store(&t)
	r.redraw.Store(true)
	return r
}

// RequestFullRedraw makes the next tick recompute the whole visible range.
func (r *Renderer) RequestFullRedraw() {
	r.redraw.Store(true)
}

// SetViewportSize sets the size of the frame in pixels. A size with zero area
// pauses rendering until a usable size is set again.
func (r *Renderer) SetViewportSize(width, height int) error {
	if width > r.opts.MaxViewport || height > r.opts.MaxViewport {
		return fmt.Errorf("%w: %dx%d (max %d)", ErrViewportTooLarge, width, height, r.opts.MaxViewport)
	}
	size := image.Pt(max(width, 0), max(height, 0))
	if *r.viewport.Load() == size {
		return nil
	}
	r.viewport.Store(&size)
	r.RequestFullRedraw()
	return nil
}

func (r *Renderer) ViewportSize() (int, int) {
	size := r.viewport.Load()
	return size.X, size.Y
}

// SetCameraTransform replaces the camera. The zoom level is clamped.
func (r *Renderer) SetCameraTransform(t CameraTransform) {
	t = t.Clamp()
	r.transform.Store(&t)
	r.RequestFullRedraw()
}

// CameraTransform returns the most recently requested camera, which may not
// have been presented yet.
func (r *Renderer) CameraTransform() CameraTransform {
	return *r.transform.Load()
}

// AcquireFrame locks and returns the latest presented frame and the transform
// it was rendered with. The image is nil until the first frame has been
// presented. The caller must not retain the image after calling ReleaseFrame,
// and must not hold the frame across slow operations.
func (r *Renderer) AcquireFrame() (*image.RGBA, CameraTransform) {
	return r.front.acquire()
}

func (r *Renderer) ReleaseFrame() {
	r.front.release()
}

// Snapshot returns a copy of the latest presented frame and its transform.
func (r *Renderer) Snapshot() (*image.RGBA, CameraTransform) {
	img, t, _ := r.front.snapshot()
	return img, t
}

func (r *Renderer) Stats() StatsSnapshot {
	return r.stats.Snapshot()
}

// Busy reports whether load tasks are queued or running, or finished tiles are
// waiting to be composited.
func (r *Renderer) Busy() bool {
	return r.pool.Pending() > 0 || r.finished.Len() > 0 || r.redraw.Load()
}

// Run ticks the renderer until ctx is cancelled. Each tick starts no sooner
// than TickInterval after the previous one; a slow tick is followed
// immediately by the next.
func (r *Renderer) Run(ctx context.Context) error {
	log := Logger().With("component", "renderer")
	log.Info("renderer started", "interval", r.opts.TickInterval, "workers", r.pool.Workers())
	defer log.Info("renderer stopped")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		start := time.Now()
		if err := r.tick(); err != nil {
			r.stats.FailedTicks.Add(1)
			log.Error("tick failed", "err", err)
		}
		timer.Reset(max(0, r.opts.TickInterval-time.Since(start)))
	}
}

// Close stops the worker pool. Run must have returned.
func (r *Renderer) Close() {
	r.pool.Close()
}

func (r *Renderer) tick() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tick panicked: %v", rec)
		}
	}()

	full := r.redraw.Swap(false)
	size := *r.viewport.Load()
	if size.X <= 0 || size.Y <= 0 {
		if full {
			r.redraw.Store(true)
		}
		r.back = nil
		r.finished.Drain()
		return nil
	}
	if !full && r.finished.Len() == 0 {
		return nil
	}

	if r.back == nil || r.back.Rect.Size() != size {
		r.back = nil
		img, err := allocFrame(size)
		if err != nil {
			r.redraw.Store(true)
			return err
		}
		r.back = img
		full = true
	}

	if full {
		r.fullRedraw(*r.transform.Load(), size)
	}
	r.drainFinished()

	r.front.swap(r.back, r.backTransform)
	r.stats.Frames.Add(1)
	return nil
}

func allocFrame(size image.Point) (img *image.RGBA, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("allocate %dx%d frame: %v", size.X, size.Y, rec)
		}
	}()
	return image.NewRGBA(image.Rectangle{Max: size}), nil
}

func (r *Renderer) fullRedraw(t CameraTransform, size image.Point) {
	clearImage(r.back)
	r.backTransform = t
	r.stats.FullRedraws.Add(1)

	rect := t.VisibleChunks(size.X, size.Y)
	r.visible.Store(&rect)

	for z := rect.MinZ; z <= rect.MaxZ; z++ {
		for x := rect.MinX; x <= rect.MaxX; x++ {
			id, ok := r.world.Chunk(x, z)
			if !ok {
				continue
			}

			tile := r.world.CachedTile(id, t.Zoom)
			flags := r.world.Flags(id)
			if tile == nil || flags.ShouldRerender.Load() {
				flags.ShouldRerender.Store(false)
				if !flags.LoadError.Load() && flags.RenderRequested.CompareAndSwap(false, true) {
					r.dispatch(id)
				}
			}
			if tile == nil {
				continue
			}

			r.composite(x, z, tile, t)
		}
	}
}

func (r *Renderer) drainFinished() {
	for _, id := range r.finished.Drain() {
		tile := r.world.CachedTile(id, r.backTransform.Zoom)
		if tile == nil {
			continue
		}
		pos := r.world.Pos(id)
		r.composite(pos.X, pos.Z, tile, r.backTransform)
	}
}

func (r *Renderer) composite(chunkX, chunkZ int, tile *image.RGBA, t CameraTransform) {
	if blitTile(r.back, t.ChunkScreenPos(chunkX, chunkZ), tile, TileScale(t.Zoom)) {
		r.stats.Composited.Add(1)
	}
}

// dispatch queues a load for a chunk whose RenderRequested flag the caller
// has just set. If the pool is saturated the request is undone and another
// full redraw is scheduled to retry it. ShouldRerender is set again so a
// chunk with a stale cached tile is not skipped by that redraw.
func (r *Renderer) dispatch(id ChunkID) {
	if r.pool.TrySubmit(func() { r.load(id) }) {
		r.stats.Dispatched.Add(1)
		return
	}
	flags := r.world.Flags(id)
	flags.ShouldRerender.Store(true)
	flags.RenderRequested.Store(false)
	r.stats.Deferred.Add(1)
	r.redraw.Store(true)
}

func (r *Renderer) load(id ChunkID) {
	flags := r.world.Flags(id)
	pos := r.world.Pos(id)

	if rect := r.visible.Load(); rect == nil || !rect.Contains(pos) {
		flags.RenderRequested.Store(false)
		r.stats.Abandoned.Add(1)
		Logger().Debug("chunk left view before loading", "component", "renderer", "x", pos.X, "z", pos.Z)
		return
	}

	if err := r.loadTile(id); err != nil {
		flags.LoadError.Store(true)
		r.stats.Failed.Add(1)
		Logger().Warn("failed to load chunk", "component", "renderer", "x", pos.X, "z", pos.Z, "err", err)
		return
	}

	r.stats.Loaded.Add(1)
	r.finished.Push(id)
}

func (r *Renderer) loadTile(id ChunkID) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("load panicked: %v", rec)
		}
	}()
	return r.world.LoadTile(id)
}
