package media

import (
	"math"
	"sort"
)

const earthRadiusMeters = 6371008.8

// Distance returns the great-circle distance in meters between two points
// given in degrees.
func Distance(lon1, lat1, lon2, lat2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) + math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// NearestSorted keeps the qty records nearest to (lon, lat) when there are more
// than qty, then orders the result newest first. A non-positive qty keeps every
// record. The input slice is not modified.
func NearestSorted(records []*Record, lon, lat float64, qty int) []*Record {
	out := append([]*Record(nil), records...)
	if qty > 0 && len(out) > qty {
		dist := make(map[*Record]float64, len(out))
		for _, rec := range out {
			m := rec.Meta()
			dist[rec] = Distance(lon, lat, m.Longitude, m.Latitude)
		}
		sort.SliceStable(out, func(i, j int) bool { return dist[out[i]] < dist[out[j]] })
		out = out[:qty]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Meta().Taken.After(out[j].Meta().Taken)
	})
	return out
}
