package quadtree

import "math"

// Rect is an axis-aligned rectangle given by its north, west, south and east
// bounds. The unit is up to the caller (degrees or pixels).
type Rect struct {
	north, west, south, east float64
}

func NewRect(north, west, south, east float64) Rect {
	return Rect{north: north, west: west, south: south, east: east}
}

func (r Rect) North() float64 { return r.north }

func (r Rect) West() float64 { return r.west }

func (r Rect) South() float64 { return r.south }

func (r Rect) East() float64 { return r.east }

func (r Rect) Height() float64 { return r.north - r.south }

func (r Rect) Width() float64 { return r.east - r.west }

// Valid reports whether north >= south and east >= west and no bound is NaN.
func (r Rect) Valid() bool {
	for _, v := range [...]float64{r.north, r.west, r.south, r.east} {
		if math.IsNaN(v) {
			return false
		}
	}
	return r.north >= r.south && r.east >= r.west
}

// PointWithinBounds reports whether the point lies inside the rectangle,
// edges included.
func (r Rect) PointWithinBounds(lat, lon float64) bool {
	return lat <= r.north && lat >= r.south && lon >= r.west && lon <= r.east
}

// BorderDistanceSqr returns the squared distance from the point to the
// closest point of the rectangle, 0 when the point is inside.
func (r Rect) BorderDistanceSqr(lat, lon float64) float64 {
	var dLat, dLon float64
	switch {
	case lat > r.north:
		dLat = lat - r.north
	case lat < r.south:
		dLat = r.south - lat
	}
	switch {
	case lon > r.east:
		dLon = lon - r.east
	case lon < r.west:
		dLon = r.west - lon
	}
	return dLat*dLat + dLon*dLon
}

// Within reports whether r lies entirely inside other.
func (r Rect) Within(other Rect) bool {
	return r.north <= other.north &&
		r.south >= other.south &&
		r.west >= other.west &&
		r.east <= other.east
}

// Intersects reports whether r and other share at least one point.
func (r Rect) Intersects(other Rect) bool {
	return r.south <= other.north &&
		r.north >= other.south &&
		r.west <= other.east &&
		r.east >= other.west
}

// Quadrants splits r at its midpoints in NW, NE, SE, SW order.
func (r Rect) Quadrants() [4]Rect {
	midLat := r.south + (r.north-r.south)/2
	midLon := r.west + (r.east-r.west)/2
	return [4]Rect{
		{north: r.north, west: r.west, south: midLat, east: midLon},
		{north: r.north, west: midLon, south: midLat, east: r.east},
		{north: midLat, west: midLon, south: r.south, east: r.east},
		{north: midLat, west: r.west, south: r.south, east: midLon},
	}
}
