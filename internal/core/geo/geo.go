// Package geo computes great-circle distances and proximity rankings for
// donor search results.
package geo

import (
	"math"
	"sort"

	"github.com/bdms/donor-directory/internal/core/domain"
)

// earthRadiusKm is the mean Earth radius used by the Haversine formula.
const earthRadiusKm = 6371

// DistanceKm returns the great-circle distance between two points in
// kilometres. Inputs are decimal degrees.
func DistanceKm(a, b domain.Coordinates) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Pow(math.Sin(dLng/2), 2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Match pairs a donor with its distance from the caller. DistanceKm is nil
// when the donor has no recorded location.
type Match struct {
	Donor      *domain.Donor
	DistanceKm *float64
}

// Rank orders donors by ascending distance from caller. Donors without a
// location sort after all donors with one, keeping their relative order.
// A nil caller is a passthrough: every donor is returned in input order
// with no distance computed.
func Rank(donors []*domain.Donor, caller *domain.Coordinates) []Match {
	matches := make([]Match, 0, len(donors))
	for _, d := range donors {
		m := Match{Donor: d}
		if caller != nil && d.Location != nil {
			dist := DistanceKm(*caller, *d.Location)
			m.DistanceKm = &dist
		}
		matches = append(matches, m)
	}

	if caller == nil {
		return matches
	}

	sort.SliceStable(matches, func(i, j int) bool {
		di, dj := matches[i].DistanceKm, matches[j].DistanceKm
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return *di < *dj
		}
	})
	return matches
}
