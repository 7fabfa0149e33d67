package cartoview

import (
	"image"

	"golang.org/x/image/draw"
)

// blitTile copies tile into dst with its top-left corner at pos, enlarged by
// an integer factor using nearest-neighbour sampling. Anything falling outside
// dst is clipped.
func blitTile(dst *image.RGBA, pos image.Point, tile *image.RGBA, scale int) bool {
	size := tile.Rect.Size().Mul(scale)
	dr := image.Rectangle{Min: pos, Max: pos.Add(size)}
	if !dr.Overlaps(dst.Rect) {
		return false
	}

	if scale == 1 {
		draw.Copy(dst, pos, tile, tile.Rect, draw.Src, nil)
	} else {
		draw.NearestNeighbor.Scale(dst, dr, tile, tile.Rect, draw.Src, nil)
	}
	return true
}

func clearImage(img *image.RGBA) {
	clear(img.Pix)
}
