package aabbtree

import (
	"image"
	"image/color"
	"image/draw"
	"os"

	"golang.org/x/image/bmp"
)

// Image writes a BMP visualization of the tree to path, projecting every
// box onto the XY plane: inner node bounds in red, leaf bounds in green.
// Useful for eyeballing how the insertion heuristic groups boxes.
func (t *Tree[U]) Image(path string) error {
	if t.Empty() {
		return nil
	}

	bounds := t.Bounds()
	frame := image.NewRGBA(image.Rect(int(bounds.Min.X), int(bounds.Min.Y), int(bounds.Max.X)+1, int(bounds.Max.Y)+1))
	draw.Draw(frame, frame.Bounds(), &image.Uniform{color.Black}, image.Point{}, draw.Src)

	hLine := func(x1, y, x2 int, c color.RGBA) {
		for ; x1 <= x2; x1++ {
			frame.Set(x1, y, c)
		}
	}
	vLine := func(x, y1, y2 int, c color.RGBA) {
		for ; y1 <= y2; y1++ {
			frame.Set(x, y1, c)
		}
	}
	rect := func(b BoundingBox, c color.RGBA) {
		x1, y1, x2, y2 := int(b.Min.X), int(b.Min.Y), int(b.Max.X), int(b.Max.Y)
		hLine(x1, y1, x2, c)
		hLine(x1, y2, x2, c)
		vLine(x1, y1, y2, c)
		vLine(x2, y1, y2, c)
	}

	inner := color.RGBA{255, 0, 0, 255}
	leaf := color.RGBA{0, 255, 0, 255}
	for slot := range t.nodes {
		switch t.nodes[slot].kind {
		case innerNode:
			rect(t.nodes[slot].bounds, inner)
		case leafNode:
			rect(t.nodes[slot].bounds, leaf)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return bmp.Encode(f, frame)
}
