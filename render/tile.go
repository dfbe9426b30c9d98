// Package render implements the render driver: tile dicing, adaptive
// sample distribution, checkpoint save/load, and the abort/wait lifecycle
// built on internal/workerpool.
package render

// TileSize is the fixed dimension of a full render tile.
const TileSize = 16

// VarianceTileSize is the fixed dimension of a variance-tracking tile; a
// render tile is an exact multiple of it so ownership is unambiguous.
const VarianceTileSize = 4

// Tile is one 16x16 (or smaller, at the image border) rectangular region of
// the framebuffer, dispatched as a single sub-task.
type Tile struct {
	X, Y, W, H int
}

// DiceTiles splits a w x h image into row-major TileSize x TileSize tiles,
// clipped at the image border.
func DiceTiles(w, h int) []Tile {
	var tiles []Tile
	for y := 0; y < h; y += TileSize {
		for x := 0; x < w; x += TileSize {
			tw := min(TileSize, w-x)
			th := min(TileSize, h-y)
			tiles = append(tiles, Tile{X: x, Y: y, W: tw, H: th})
		}
	}
	return tiles
}

// VarianceTile is one 4x4 region used to accumulate running mean/variance
// for adaptive sampling.
type VarianceTile struct {
	X, Y int
}

// DiceVarianceTiles splits a w x h image into row-major 4x4 variance tiles.
// Only each tile's origin is recorded; tiles at the image border are not
// clipped.
func DiceVarianceTiles(w, h int) []VarianceTile {
	var tiles []VarianceTile
	for y := 0; y < h; y += VarianceTileSize {
		for x := 0; x < w; x += VarianceTileSize {
			tiles = append(tiles, VarianceTile{X: x, Y: y})
		}
	}
	return tiles
}
