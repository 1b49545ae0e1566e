package aabbtree

import "math"

// BoundingBox is an axis-aligned box described by its minimal and maximal
// corners.
type BoundingBox struct {
	Min, Max Vec3
}

// NaNBox returns the box whose corners are all NaN. It is the bounds of an
// empty tree.
func NaNBox() BoundingBox {
	return BoundingBox{NaNVec(), NaNVec()}
}

func (b BoundingBox) Equals(b2 BoundingBox) bool {
	return b.Min.Equals(b2.Min) && b.Max.Equals(b2.Max)
}

// IsNaN reports whether any coordinate of either corner is NaN.
func (b BoundingBox) IsNaN() bool {
	return b.Min.IsNaN() || b.Max.IsNaN()
}

// Expand returns the smallest box enclosing both b and b2.
func (b BoundingBox) Expand(b2 BoundingBox) BoundingBox {
	newbox := b

	if b2.Min.X < newbox.Min.X {
		newbox.Min.X = b2.Min.X
	}
	if b2.Min.Y < newbox.Min.Y {
		newbox.Min.Y = b2.Min.Y
	}
	if b2.Min.Z < newbox.Min.Z {
		newbox.Min.Z = b2.Min.Z
	}
	if b2.Max.X > newbox.Max.X {
		newbox.Max.X = b2.Max.X
	}
	if b2.Max.Y > newbox.Max.Y {
		newbox.Max.Y = b2.Max.Y
	}
	if b2.Max.Z > newbox.Max.Z {
		newbox.Max.Z = b2.Max.Z
	}

	return newbox
}

func (b BoundingBox) Volume() float64 {
	return (b.Max.X - b.Min.X) * (b.Max.Y - b.Min.Y) * (b.Max.Z - b.Min.Z)
}

func (b BoundingBox) SurfaceArea() float64 {
	xSize := b.Max.X - b.Min.X
	ySize := b.Max.Y - b.Min.Y
	zSize := b.Max.Z - b.Min.Z
	return 2.0 * (xSize*ySize + xSize*zSize + ySize*zSize)
}

// Contains reports whether b2 lies entirely within b, faces included.
func (b BoundingBox) Contains(b2 BoundingBox) bool {
	return b.Min.X <= b2.Min.X && b2.Max.X <= b.Max.X &&
		b.Min.Y <= b2.Min.Y && b2.Max.Y <= b.Max.Y &&
		b.Min.Z <= b2.Min.Z && b2.Max.Z <= b.Max.Z
}

// ContainsPoint reports whether p lies within b, faces included.
func (b BoundingBox) ContainsPoint(p Vec3) bool {
	return b.Min.X <= p.X && p.X <= b.Max.X &&
		b.Min.Y <= p.Y && p.Y <= b.Max.Y &&
		b.Min.Z <= p.Z && p.Z <= b.Max.Z
}

func (b BoundingBox) Intersects(b2 BoundingBox) bool {
	return b.Max.X > b2.Min.X && b.Min.X < b2.Max.X &&
		b.Max.Y > b2.Min.Y && b.Min.Y < b2.Max.Y &&
		b.Max.Z > b2.Min.Z && b.Min.Z < b2.Max.Z
}

// Ray is a half line starting at Origin.
type Ray struct {
	Origin, Direction Vec3
}

// Intersects performs a slab test against b. Only hits in front of the
// origin count; a ray starting inside b hits it.
func (r Ray) Intersects(b BoundingBox) bool {
	dirfrac := Vec3{1.0 / r.Direction.X, 1.0 / r.Direction.Y, 1.0 / r.Direction.Z}

	t1 := (b.Min.X - r.Origin.X) * dirfrac.X
	t2 := (b.Max.X - r.Origin.X) * dirfrac.X
	t3 := (b.Min.Y - r.Origin.Y) * dirfrac.Y
	t4 := (b.Max.Y - r.Origin.Y) * dirfrac.Y
	t5 := (b.Min.Z - r.Origin.Z) * dirfrac.Z
	t6 := (b.Max.Z - r.Origin.Z) * dirfrac.Z

	tmin := math.Max(math.Max(math.Min(t1, t2), math.Min(t3, t4)), math.Min(t5, t6))
	tmax := math.Min(math.Min(math.Max(t1, t2), math.Max(t3, t4)), math.Max(t5, t6))

	// the whole box is behind the origin
	if tmax < 0 {
		return false
	}

	if tmin > tmax {
		return false
	}

	return true
}
