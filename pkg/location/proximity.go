package location

import "math"

// Closeness buckets shown next to nearby pins.
const (
	ClosenessHere   = "here"
	ClosenessWalk   = "walking distance"
	ClosenessArea   = "in the area"
	ClosenessRadius = "within radius"
)

// Closeness is how far into a search radius a pin sits: 100 at the
// center, 0 at or past the edge.
type Closeness struct {
	Percent float64 `json:"percent"`
	Label   string  `json:"label"`
}

func ClosenessOf(distanceKm, radiusKm float64) Closeness {
	if radiusKm <= 0 || distanceKm >= radiusKm {
		return Closeness{}
	}
	p := math.Max(0, math.Min(100, (1-distanceKm/radiusKm)*100))
	p = math.Round(p*10) / 10
	return Closeness{Percent: p, Label: closenessLabel(p)}
}

func closenessLabel(p float64) string {
	switch {
	case p >= 75:
		return ClosenessHere
	case p >= 50:
		return ClosenessWalk
	case p >= 25:
		return ClosenessArea
	case p > 0:
		return ClosenessRadius
	}
	return ""
}
