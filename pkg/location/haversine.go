package location

import "math"

// EarthRadiusKm is the Earth radius in kilometers for Haversine.
const EarthRadiusKm = 6371.0

const kmPerDegreeLat = 111.32

func rad(d float64) float64 { return d * math.Pi / 180 }

// HaversineKm returns distance in km between two points (lat/lng in degrees).
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	φ1, φ2 := rad(lat1), rad(lat2)
	Δφ := rad(lat2 - lat1)
	Δλ := rad(lng2 - lng1)
	a := math.Sin(Δφ/2)*math.Sin(Δφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Box is a lat/lng rectangle used to prefilter rows with indexed range
// queries before the exact Haversine check.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns a box enclosing the circle of radiusKm around the point.
// Near the poles, or when the circle crosses the antimeridian, the longitude
// span is widened to the full range; the Haversine check does the rest.
func BoundingBox(lat, lng, radiusKm float64) Box {
	dLat := radiusKm / kmPerDegreeLat
	b := Box{
		MinLat: math.Max(lat-dLat, -90),
		MaxLat: math.Min(lat+dLat, 90),
		MinLng: -180,
		MaxLng: 180,
	}
	cos := math.Cos(rad(lat))
	if cos > 0.01 {
		dLng := radiusKm / (kmPerDegreeLat * cos)
		if lng-dLng >= -180 && lng+dLng <= 180 {
			b.MinLng = lng - dLng
			b.MaxLng = lng + dLng
		}
	}
	return b
}

// ValidCoordinates reports whether lat/lng are within WGS84 ranges.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
