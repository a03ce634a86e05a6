package feed

import (
	"math"
	"sort"
)

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometers.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func distanceFrom(lat, lng, toLat, toLng *float64) *float64 {
	if lat == nil || lng == nil || toLat == nil || toLng == nil {
		return nil
	}
	d := Haversine(*lat, *lng, *toLat, *toLng)
	return &d
}

// sortByDistance orders nearest first and keeps items without a distance last.
func sortByDistance[T any](items []T, distance func(T) *float64) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := distance(items[i]), distance(items[j])
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
}
