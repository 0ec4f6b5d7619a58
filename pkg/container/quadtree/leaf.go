package quadtree

// Leaf is a stored point with its payload.
type Leaf[T comparable] struct {
	Lat     float64
	Lon     float64
	Payload T
}

func (l Leaf[T]) distanceSqr(lat, lon float64) float64 {
	dLat, dLon := l.Lat-lat, l.Lon-lon
	return dLat*dLat + dLon*dLon
}
