package cartoview

import (
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// ChunkSize is the edge length of a chunk in blocks.
	ChunkSize = 16

	// BaseZoom is the zoom level at which one block maps to one screen pixel.
	BaseZoom = 4

	MinZoom = 0
	MaxZoom = 12
)

// Point is a position in either world (block) or screen (pixel) space.
type Point = mgl64.Vec2

func Pt(x, y float64) Point {
	return Point{x, y}
}

// CameraTransform maps between screen pixels and world blocks. Offset is the
// world position shown at screen pixel (0, 0).
type CameraTransform struct {
	Offset Point
	Zoom   int
}

func NewCameraTransform(x, z float64, zoom int) CameraTransform {
	return CameraTransform{Offset: Pt(x, z), Zoom: zoom}.Clamp()
}

// Clamp returns t with its zoom level limited to [MinZoom, MaxZoom].
func (t CameraTransform) Clamp() CameraTransform {
	t.Zoom = max(MinZoom, min(MaxZoom, t.Zoom))
	return t
}

// Scale returns the number of screen pixels per block. It is always a power
// of two so both directions of the mapping are exact in float64.
func (t CameraTransform) Scale() float64 {
	return math.Ldexp(1, t.Zoom-BaseZoom)
}

func (t CameraTransform) ToWorld(p Point) Point {
	inv := 1 / t.Scale()
	return Pt(t.Offset.X()+p.X()*inv, t.Offset.Y()+p.Y()*inv)
}

func (t CameraTransform) ToScreen(p Point) Point {
	s := t.Scale()
	return Pt((p.X()-t.Offset.X())*s, (p.Y()-t.Offset.Y())*s)
}

// ChunkScreenPos returns the screen pixel of the top-left corner of the chunk.
func (t CameraTransform) ChunkScreenPos(chunkX, chunkZ int) image.Point {
	p := t.ToScreen(Pt(float64(chunkX*ChunkSize), float64(chunkZ*ChunkSize)))
	return image.Pt(int(math.Floor(p.X())), int(math.Floor(p.Y())))
}

// VisibleChunks returns the inclusive rectangle of chunks covered by a
// viewport of the given size.
func (t CameraTransform) VisibleChunks(width, height int) ChunkRect {
	corners := [4]Point{
		t.ToWorld(Pt(0, 0)),
		t.ToWorld(Pt(float64(width), 0)),
		t.ToWorld(Pt(0, float64(height))),
		t.ToWorld(Pt(float64(width), float64(height))),
	}

	minX, minZ := math.Inf(1), math.Inf(1)
	maxX, maxZ := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		minX, maxX = math.Min(minX, c.X()), math.Max(maxX, c.X())
		minZ, maxZ = math.Min(minZ, c.Y()), math.Max(maxZ, c.Y())
	}

	return ChunkRect{
		MinX: int(math.Floor(minX)) >> 4,
		MinZ: int(math.Floor(minZ)) >> 4,
		MaxX: int(math.Floor(maxX)) >> 4,
		MaxZ: int(math.Floor(maxZ)) >> 4,
	}
}

// Pan moves the camera by a screen-space delta. Dragging the map to the right
// (positive dx) reveals what lies to the left.
func (t CameraTransform) Pan(dx, dy float64) CameraTransform {
	inv := 1 / t.Scale()
	t.Offset = Pt(t.Offset.X()-dx*inv, t.Offset.Y()-dy*inv)
	return t
}

// ZoomAt changes the zoom level by delta, keeping the world position under the
// screen point anchor fixed.
func (t CameraTransform) ZoomAt(anchor Point, delta int) CameraTransform {
	world := t.ToWorld(anchor)
	t.Zoom += delta
	t = t.Clamp()
	inv := 1 / t.Scale()
	t.Offset = Pt(world.X()-anchor.X()*inv, world.Y()-anchor.Y()*inv)
	return t
}

// TileResolution returns the edge length in pixels of the cached tile for a
// chunk at the given zoom level.
func TileResolution(zoom int) int {
	if zoom >= BaseZoom {
		return ChunkSize
	}
	return max(1, ChunkSize>>(BaseZoom-zoom))
}

// TileScale returns the integer factor a cached tile is enlarged by when it is
// composited at the given zoom level.
func TileScale(zoom int) int {
	if zoom <= BaseZoom {
		return 1
	}
	return 1 << (zoom - BaseZoom)
}

// ChunkPos identifies a chunk on the world grid.
type ChunkPos struct {
	X int
	Z int
}

// ChunkRect is an inclusive rectangle of chunk coordinates.
type ChunkRect struct {
	MinX, MinZ int
	MaxX, MaxZ int
}

func (r ChunkRect) Contains(pos ChunkPos) bool {
	return pos.X >= r.MinX && pos.X <= r.MaxX && pos.Z >= r.MinZ && pos.Z <= r.MaxZ
}

func (r ChunkRect) Empty() bool {
	return r.MaxX < r.MinX || r.MaxZ < r.MinZ
}

func (r ChunkRect) Count() int {
	if r.Empty() {
		return 0
	}
	return (r.MaxX - r.MinX + 1) * (r.MaxZ - r.MinZ + 1)
}
