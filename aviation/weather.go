// aviation/weather.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	gomath "math"
	"time"

	"github.com/brunoga/deep"
)

// WeatherOverlay holds weather that has already been fetched for an
// airport. The database never fetches weather itself.
type WeatherOverlay struct {
	METAR   string
	TAFs    []string
	PIREPs  []string
	Fetched time.Time

	// Decoded from the METAR, when available.
	Wind        *Wind
	Temperature *float32 // Celsius
	Dewpoint    *float32 // Celsius
	Altimeter   *float32 // inches of mercury
}

type Wind struct {
	Direction int // degrees true; 0 with a non-zero speed means variable
	Speed     int // knots
	Gust      int // knots
}

// NoMETARWind is returned by MagneticWindDirection when there is no
// METAR wind to report.
const NoMETARWind = 777

// WithWeather returns a copy of the airport with the given weather
// attached; the receiver, which may be shared by concurrent readers of the
// database, is not modified.
func (ap *Airport) WithWeather(w WeatherOverlay) *Airport {
	c := deep.MustCopy(ap)
	c.Weather = &w
	return c
}

// MagneticWindDirection returns the METAR wind direction converted to
// magnetic using the airport's variation, normalized to [0,360). It is 0
// for variable winds and NoMETARWind if no wind has been reported.
func (ap *Airport) MagneticWindDirection() int {
	if ap.Weather == nil || ap.Weather.Wind == nil {
		return NoMETARWind
	}

	w := ap.Weather.Wind
	if w.Speed > 0 && w.Direction == 0 {
		return 0
	}

	dir := w.Direction - int(ap.MagneticVariation)
	if dir >= 360 {
		return dir - 360
	} else if dir < 0 {
		return dir + 360
	}
	return dir
}

// DensityAltitude returns the density altitude at the airport in feet,
// computed from the attached METAR temperature, dewpoint, and altimeter
// setting. ok is false if any of them is missing.
func (ap *Airport) DensityAltitude() (alt float32, ok bool) {
	w := ap.Weather
	if w == nil || w.Temperature == nil || w.Dewpoint == nil || w.Altimeter == nil {
		return 0, false
	}

	elevation := float64(ap.FieldElevation) * feetToMeters
	e := vaporPressure(float64(*w.Dewpoint))
	h := geopotentialAltitude(elevation)
	p := absolutePressure(float64(*w.Altimeter)*inHgToMillibars, h)
	d := airDensity(p, e, float64(*w.Temperature))
	da := geometricAltitude(isaAltitude(d))
	return float32(da / feetToMeters), true
}

const (
	feetToMeters    = 0.3048
	inHgToMillibars = 33.86389
	earthRadiusM    = 6369e3
)

// Saturation vapor pressure (mb) at temperature t (C), from the Herman
// Wobus polynomial.
func vaporPressure(t float64) float64 {
	const eso = 6.1078
	c := [...]float64{0.99999683, -0.90826951e-02, 0.78736169e-04, -0.61117958e-06, 0.43884187e-08,
		-0.29883885e-10, 0.21874425e-12, -0.17892321e-14, 0.11112018e-16, -0.30994571e-19}

	pol := c[len(c)-1]
	for i := len(c) - 2; i >= 0; i-- {
		pol = c[i] + t*pol
	}
	return eso / gomath.Pow(pol, 8)
}

// Geopotential altitude (m) for geometric altitude z (m).
func geopotentialAltitude(z float64) float64 {
	return earthRadiusM * z / (earthRadiusM + z)
}

// Geometric altitude (m) for geopotential altitude h (m).
func geometricAltitude(h float64) float64 {
	return earthRadiusM * h / (earthRadiusM - h)
}

// Station pressure (mb) from the altimeter setting (mb) and geopotential
// altitude (m).
func absolutePressure(altimeter, h float64) float64 {
	const k1, k2 = 0.190263, 8.417286e-5
	return gomath.Pow(gomath.Pow(altimeter, k1)-k2*h, 1/k1)
}

// Air density (kg/m^3) from absolute pressure (mb), vapor pressure (mb),
// and temperature (C).
func airDensity(p, e, tc float64) float64 {
	const Rv, Rd = 461.4964, 287.0531
	tk := tc + 273.15
	pv := e * 100
	pd := (p - e) * 100
	return pv/(Rv*tk) + pd/(Rd*tk)
}

// Geopotential altitude (m) in the ISA with density d (kg/m^3).
func isaAltitude(d float64) float64 {
	const (
		g  = 9.80665
		Po = 101325
		To = 288.15
		L  = 6.5
		R  = 8.314320
		M  = 28.9644
	)
	D := d * 1000
	p2 := (L * R) / (g*M - L*R) * gomath.Log((R*To*D)/(M*Po))
	H := -(To / L) * (gomath.Exp(p2) - 1)
	return H * 1000
}
