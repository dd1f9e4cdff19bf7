// Package proj converts between WGS84 geographic coordinates and planar UTM
// coordinates. All distance and density math in the engine happens in meters
// on the projected plane; this package is the only place that knows about the
// ellipsoid.
package proj

import (
	"fmt"
	"math"
)

// WGS84 ellipsoid parameters.
const (
	semiMajor  = 6378137.0
	flattening = 1.0 / 298.257223563

	scaleFactor  = 0.9996
	falseEasting = 500000.0
	falseNorth   = 10000000.0

	// UTM is defined between 80°S and 84°N.
	minLat = -80.0
	maxLat = 84.0

	// Points may stray this many degrees of longitude from the zone's
	// central meridian before the series loses urban-scale accuracy.
	maxZoneDrift = 9.0
)

// ProjectionError reports a coordinate outside the valid domain of the
// projection.
type ProjectionError struct {
	Lon, Lat float64
	X, Y     float64
	Reason   string
}

func (e *ProjectionError) Error() string {
	if e.Reason == "" {
		return "proj: coordinate outside projection domain"
	}
	return "proj: " + e.Reason
}

// Projector projects between WGS84 (lon, lat) and planar UTM (x, y) meters
// for a single zone. The zero value is not usable; construct with New or
// ForLonLat.
type Projector struct {
	zone  int
	south bool
	lon0  float64 // central meridian, radians
}

// New returns a Projector for the given UTM zone (1..60). south selects the
// southern-hemisphere false northing.
func New(zone int, south bool) (*Projector, error) {
	if zone < 1 || zone > 60 {
		return nil, &ProjectionError{Reason: fmt.Sprintf("invalid UTM zone %d", zone)}
	}
	lon0 := float64(zone-1)*6 - 180 + 3
	return &Projector{zone: zone, south: south, lon0: lon0 * math.Pi / 180}, nil
}

// ForLonLat returns the Projector for the zone covering the given point.
func ForLonLat(lon, lat float64) (*Projector, error) {
	if lat < minLat || lat > maxLat {
		return nil, &ProjectionError{Lon: lon, Lat: lat, Reason: fmt.Sprintf("latitude %.4f outside UTM domain [%g, %g]", lat, minLat, maxLat)}
	}
	if lon < -180 || lon > 180 {
		return nil, &ProjectionError{Lon: lon, Lat: lat, Reason: fmt.Sprintf("longitude %.4f outside [-180, 180]", lon)}
	}
	zone := int(math.Floor((lon+180)/6)) + 1
	if zone > 60 {
		zone = 60
	}
	return New(zone, lat < 0)
}

// Zone returns the projector's UTM zone number.
func (p *Projector) Zone() int { return p.zone }

// South reports whether the projector uses the southern false northing.
func (p *Projector) South() bool { return p.south }

// ToPlanar projects geographic (lon, lat) degrees to planar (x, y) meters.
func (p *Projector) ToPlanar(lon, lat float64) (x, y float64, err error) {
	if lat < minLat || lat > maxLat {
		return 0, 0, &ProjectionError{Lon: lon, Lat: lat, Reason: fmt.Sprintf("latitude %.4f outside UTM domain [%g, %g]", lat, minLat, maxLat)}
	}
	if lon < -180 || lon > 180 {
		return 0, 0, &ProjectionError{Lon: lon, Lat: lat, Reason: fmt.Sprintf("longitude %.4f outside [-180, 180]", lon)}
	}

	lonRad := lon * math.Pi / 180
	latRad := lat * math.Pi / 180

	dLon := lonRad - p.lon0
	// Wrap across the antimeridian.
	for dLon > math.Pi {
		dLon -= 2 * math.Pi
	}
	for dLon < -math.Pi {
		dLon += 2 * math.Pi
	}
	if math.Abs(dLon) > maxZoneDrift*math.Pi/180 {
		return 0, 0, &ProjectionError{Lon: lon, Lat: lat, Reason: fmt.Sprintf("longitude %.4f too far from zone %d central meridian", lon, p.zone)}
	}

	e2 := flattening * (2 - flattening)
	ep2 := e2 / (1 - e2)

	sinLat := math.Sin(latRad)
	cosLat := math.Cos(latRad)
	tanLat := math.Tan(latRad)

	n := semiMajor / math.Sqrt(1-e2*sinLat*sinLat)
	t := tanLat * tanLat
	c := ep2 * cosLat * cosLat
	a := dLon * cosLat

	m := meridionalArc(latRad, e2)

	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	x = scaleFactor*n*(a+(1-t+c)*a3/6+(5-18*t+t*t+72*c-58*ep2)*a5/120) + falseEasting
	y = scaleFactor * (m + n*tanLat*(a2/2+(5-t+9*c+4*c*c)*a4/24+(61-58*t+t*t+600*c-330*ep2)*a6/720))
	if p.south {
		y += falseNorth
	}
	return x, y, nil
}

// ToGeographic converts planar (x, y) meters back into geographic (lon, lat)
// degrees. Inverse of ToPlanar to well under a centimeter inside the zone.
func (p *Projector) ToGeographic(x, y float64) (lon, lat float64, err error) {
	if x <= 0 || x >= 1000000 {
		return 0, 0, &ProjectionError{X: x, Y: y, Reason: fmt.Sprintf("easting %.1f outside zone extent", x)}
	}
	if y < 0 || y > falseNorth {
		return 0, 0, &ProjectionError{X: x, Y: y, Reason: fmt.Sprintf("northing %.1f outside zone extent", y)}
	}

	e2 := flattening * (2 - flattening)
	ep2 := e2 / (1 - e2)

	xs := x - falseEasting
	ys := y
	if p.south {
		ys -= falseNorth
	}

	m := ys / scaleFactor
	mu := m / (semiMajor * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))

	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
	phi1 := mu +
		(3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu) +
		(1097*e1*e1*e1*e1/512)*math.Sin(8*mu)

	sinPhi1 := math.Sin(phi1)
	cosPhi1 := math.Cos(phi1)
	tanPhi1 := math.Tan(phi1)

	c1 := ep2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	n1 := semiMajor / math.Sqrt(1-e2*sinPhi1*sinPhi1)
	r1 := semiMajor * (1 - e2) / math.Pow(1-e2*sinPhi1*sinPhi1, 1.5)
	d := xs / (n1 * scaleFactor)

	d2 := d * d
	d3 := d2 * d
	d4 := d3 * d
	d5 := d4 * d
	d6 := d5 * d

	latRad := phi1 - (n1*tanPhi1/r1)*(d2/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*d4/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d6/720)
	lonRad := p.lon0 + (d-
		(1+2*t1+c1)*d3/6+
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d5/120)/cosPhi1

	lat = latRad * 180 / math.Pi
	lon = lonRad * 180 / math.Pi
	if lat < minLat || lat > maxLat {
		return 0, 0, &ProjectionError{X: x, Y: y, Reason: fmt.Sprintf("northing %.1f maps outside UTM domain", y)}
	}
	return lon, lat, nil
}

// meridionalArc returns the distance along the meridian from the equator to
// latitude phi (radians).
func meridionalArc(phi, e2 float64) float64 {
	e4 := e2 * e2
	e6 := e4 * e2
	return semiMajor * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}
