package signal

import "math"

const earthRadiusKm = 6371.0

// Distance is the great-circle distance in kilometres between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	φ1, φ2 := radians(lat1), radians(lat2)
	dφ := radians(lat2 - lat1)
	dλ := radians(lon2 - lon1)

	a := math.Sin(dφ/2)*math.Sin(dφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(dλ/2)*math.Sin(dλ/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Bearing is the initial bearing in degrees [0, 360) from the first point to
// the second.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	φ1, φ2 := radians(lat1), radians(lat2)
	dλ := radians(lon2 - lon1)

	y := math.Sin(dλ) * math.Cos(φ2)
	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(dλ)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// CompassDirection rounds a bearing to N, E, S or W.
func CompassDirection(bearing float64) string {
	switch b := math.Mod(bearing+360, 360); {
	case b >= 45 && b < 135:
		return "E"
	case b >= 135 && b < 225:
		return "S"
	case b >= 225 && b < 315:
		return "W"
	default:
		return "N"
	}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
