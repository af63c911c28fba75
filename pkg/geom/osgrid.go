// Package geom converts coordinates between the British national grid
// (OSGB36, EPSG:27700) and WGS84 longitude/latitude, and answers basic
// proximity and midpoint queries over point sets.
//
// The grid conversion is the Ordnance Survey transverse Mercator
// projection on the Airy 1830 ellipsoid combined with the published
// 7-parameter Helmert shift between the OSGB36 and WGS84 datums. The
// Helmert step is the single-transformation approximation, accurate to a
// few metres across Great Britain; a forward/inverse round trip agrees to
// well under a centimetre. Coordinates far outside the grid's valid
// domain produce projection-defined garbage or NaN, not an error.
package geom

import (
	"math"

	"github.com/mikeqfu/datakit/pkg/errors"
)

type ellipsoid struct {
	a, b float64
}

func (e ellipsoid) e2() float64 {
	return (e.a*e.a - e.b*e.b) / (e.a * e.a)
}

var (
	airy1830 = ellipsoid{a: 6377563.396, b: 6356256.909}
	grs80    = ellipsoid{a: 6378137.000, b: 6356752.3141}
)

// National Grid projection constants.
const (
	gridScale      = 0.9996012717
	gridLat0       = 49.0 * math.Pi / 180
	gridLon0       = -2.0 * math.Pi / 180
	gridFalseEast  = 400000.0
	gridFalseNorth = -100000.0
)

// Helmert parameters for WGS84 -> OSGB36 (metres, unitless scale,
// radians). The inverse shift negates them.
const (
	helmertTx = -446.448
	helmertTy = 125.157
	helmertTz = -542.060
	helmertS  = 20.4894e-6
	helmertRx = -0.1502 / 3600 * math.Pi / 180
	helmertRy = -0.2470 / 3600 * math.Pi / 180
	helmertRz = -0.8421 / 3600 * math.Pi / 180
)

// WGS84ToOSGB36 converts a WGS84 longitude/latitude (degrees) to an
// OSGB36 national grid easting/northing (metres).
func WGS84ToOSGB36(lon, lat float64) (easting, northing float64) {
	phi := lat * math.Pi / 180
	lam := lon * math.Pi / 180

	x, y, z := geodeticToCartesian(grs80, phi, lam)
	x, y, z = helmert(x, y, z, 1)
	phi, lam = cartesianToGeodetic(airy1830, x, y, z)

	return project(airy1830, phi, lam)
}

// OSGB36ToWGS84 converts an OSGB36 national grid easting/northing
// (metres) to a WGS84 longitude/latitude (degrees).
func OSGB36ToWGS84(easting, northing float64) (lon, lat float64) {
	phi, lam := unproject(airy1830, easting, northing)

	x, y, z := geodeticToCartesian(airy1830, phi, lam)
	x, y, z = helmert(x, y, z, -1)
	phi, lam = cartesianToGeodetic(grs80, x, y, z)

	return lam * 180 / math.Pi, phi * 180 / math.Pi
}

// WGS84ToOSGB36Slice is the vectorized form of WGS84ToOSGB36. The input
// slices must have equal length.
func WGS84ToOSGB36Slice(lons, lats []float64) (eastings, northings []float64, err error) {
	if len(lons) != len(lats) {
		return nil, nil, errors.Newf(errors.ErrorTypeData,
			"coordinate slices differ in length: %d vs %d", len(lons), len(lats))
	}

	eastings = make([]float64, len(lons))
	northings = make([]float64, len(lons))
	for i := range lons {
		eastings[i], northings[i] = WGS84ToOSGB36(lons[i], lats[i])
	}
	return eastings, northings, nil
}

// OSGB36ToWGS84Slice is the vectorized form of OSGB36ToWGS84. The input
// slices must have equal length.
func OSGB36ToWGS84Slice(eastings, northings []float64) (lons, lats []float64, err error) {
	if len(eastings) != len(northings) {
		return nil, nil, errors.Newf(errors.ErrorTypeData,
			"coordinate slices differ in length: %d vs %d", len(eastings), len(northings))
	}

	lons = make([]float64, len(eastings))
	lats = make([]float64, len(eastings))
	for i := range eastings {
		lons[i], lats[i] = OSGB36ToWGS84(eastings[i], northings[i])
	}
	return lons, lats, nil
}

// helmert applies the datum shift; dir is +1 for WGS84 -> OSGB36 and -1
// for the approximate inverse.
func helmert(x, y, z, dir float64) (float64, float64, float64) {
	tx := dir * helmertTx
	ty := dir * helmertTy
	tz := dir * helmertTz
	s := dir * helmertS
	rx := dir * helmertRx
	ry := dir * helmertRy
	rz := dir * helmertRz

	x2 := tx + (1+s)*x - rz*y + ry*z
	y2 := ty + rz*x + (1+s)*y - rx*z
	z2 := tz - ry*x + rx*y + (1+s)*z
	return x2, y2, z2
}

func geodeticToCartesian(e ellipsoid, phi, lam float64) (x, y, z float64) {
	e2 := e.e2()
	sinPhi := math.Sin(phi)
	nu := e.a / math.Sqrt(1-e2*sinPhi*sinPhi)

	x = nu * math.Cos(phi) * math.Cos(lam)
	y = nu * math.Cos(phi) * math.Sin(lam)
	z = (1 - e2) * nu * sinPhi
	return x, y, z
}

func cartesianToGeodetic(e ellipsoid, x, y, z float64) (phi, lam float64) {
	e2 := e.e2()
	lam = math.Atan2(y, x)

	p := math.Hypot(x, y)
	phi = math.Atan2(z, p*(1-e2))
	for i := 0; i < 10; i++ {
		sinPhi := math.Sin(phi)
		nu := e.a / math.Sqrt(1-e2*sinPhi*sinPhi)
		next := math.Atan2(z+e2*nu*sinPhi, p)
		if math.Abs(next-phi) < 1e-12 {
			phi = next
			break
		}
		phi = next
	}
	return phi, lam
}

// meridionalArc computes the developed meridian arc M for the National
// Grid series expansion.
func meridionalArc(e ellipsoid, phi float64) float64 {
	n := (e.a - e.b) / (e.a + e.b)
	n2 := n * n
	n3 := n2 * n

	dPhi := phi - gridLat0
	sPhi := phi + gridLat0

	m := (1 + n + 1.25*n2 + 1.25*n3) * dPhi
	m -= (3*n + 3*n2 + 21.0/8.0*n3) * math.Sin(dPhi) * math.Cos(sPhi)
	m += (15.0/8.0*n2 + 15.0/8.0*n3) * math.Sin(2*dPhi) * math.Cos(2*sPhi)
	m -= 35.0 / 24.0 * n3 * math.Sin(3*dPhi) * math.Cos(3*sPhi)

	return e.b * gridScale * m
}

// project runs the forward transverse Mercator projection.
func project(e ellipsoid, phi, lam float64) (easting, northing float64) {
	e2 := e.e2()
	sinPhi := math.Sin(phi)
	cosPhi := math.Cos(phi)
	tanPhi := math.Tan(phi)

	nu := e.a * gridScale / math.Sqrt(1-e2*sinPhi*sinPhi)
	rho := e.a * gridScale * (1 - e2) / math.Pow(1-e2*sinPhi*sinPhi, 1.5)
	eta2 := nu/rho - 1

	m := meridionalArc(e, phi)

	i := m + gridFalseNorth
	ii := nu / 2 * sinPhi * cosPhi
	iii := nu / 24 * sinPhi * math.Pow(cosPhi, 3) * (5 - tanPhi*tanPhi + 9*eta2)
	iiia := nu / 720 * sinPhi * math.Pow(cosPhi, 5) * (61 - 58*tanPhi*tanPhi + math.Pow(tanPhi, 4))
	iv := nu * cosPhi
	v := nu / 6 * math.Pow(cosPhi, 3) * (nu/rho - tanPhi*tanPhi)
	vi := nu / 120 * math.Pow(cosPhi, 5) *
		(5 - 18*tanPhi*tanPhi + math.Pow(tanPhi, 4) + 14*eta2 - 58*tanPhi*tanPhi*eta2)

	dLam := lam - gridLon0

	northing = i + ii*dLam*dLam + iii*math.Pow(dLam, 4) + iiia*math.Pow(dLam, 6)
	easting = gridFalseEast + iv*dLam + v*math.Pow(dLam, 3) + vi*math.Pow(dLam, 5)
	return easting, northing
}

// unproject runs the inverse transverse Mercator projection.
func unproject(e ellipsoid, easting, northing float64) (phi, lam float64) {
	e2 := e.e2()

	phi = (northing-gridFalseNorth)/(e.a*gridScale) + gridLat0
	m := meridionalArc(e, phi)
	for math.Abs(northing-gridFalseNorth-m) >= 1e-5 {
		phi += (northing - gridFalseNorth - m) / (e.a * gridScale)
		m = meridionalArc(e, phi)
	}

	sinPhi := math.Sin(phi)
	tanPhi := math.Tan(phi)
	secPhi := 1 / math.Cos(phi)

	nu := e.a * gridScale / math.Sqrt(1-e2*sinPhi*sinPhi)
	rho := e.a * gridScale * (1 - e2) / math.Pow(1-e2*sinPhi*sinPhi, 1.5)
	eta2 := nu/rho - 1

	vii := tanPhi / (2 * rho * nu)
	viii := tanPhi / (24 * rho * math.Pow(nu, 3)) *
		(5 + 3*tanPhi*tanPhi + eta2 - 9*tanPhi*tanPhi*eta2)
	ix := tanPhi / (720 * rho * math.Pow(nu, 5)) *
		(61 + 90*tanPhi*tanPhi + 45*math.Pow(tanPhi, 4))
	x := secPhi / nu
	xi := secPhi / (6 * math.Pow(nu, 3)) * (nu/rho + 2*tanPhi*tanPhi)
	xii := secPhi / (120 * math.Pow(nu, 5)) * (5 + 28*tanPhi*tanPhi + 24*math.Pow(tanPhi, 4))
	xiia := secPhi / (5040 * math.Pow(nu, 7)) *
		(61 + 662*tanPhi*tanPhi + 1320*math.Pow(tanPhi, 4) + 720*math.Pow(tanPhi, 6))

	dE := easting - gridFalseEast

	phi = phi - vii*dE*dE + viii*math.Pow(dE, 4) - ix*math.Pow(dE, 6)
	lam = gridLon0 + x*dE - xi*math.Pow(dE, 3) + xii*math.Pow(dE, 5) - xiia*math.Pow(dE, 7)
	return phi, lam
}
