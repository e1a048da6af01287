package sim

import (
	"encoding/binary"
	"math"
)

// Weather is city-wide atmospheric state. It persists through the save
// registry under the "weather" extension key.
type Weather struct {
	Temperature   float64 // degrees C, after seasonal swing and UHI
	Raining       bool
	RainIntensity float64 // [0,1]
	ColdSnap      bool
}

func defaultWeather() Weather {
	return Weather{Temperature: 18}
}

// Encode implements save.Saveable. Defaults encode to nil so a fresh world
// writes no weather extension.
func (w *Weather) Encode() []byte {
	if *w == defaultWeather() {
		return nil
	}
	buf := make([]byte, 18)
	binary.LittleEndian.PutUint64(buf[0:], math.Float64bits(w.Temperature))
	if w.Raining {
		buf[8] = 1
	}
	binary.LittleEndian.PutUint64(buf[9:], math.Float64bits(w.RainIntensity))
	if w.ColdSnap {
		buf[17] = 1
	}
	return buf
}

// Decode implements save.Saveable.
func (w *Weather) Decode(data []byte) error {
	if len(data) < 18 {
		return errShortPayload("weather", len(data))
	}
	w.Temperature = math.Float64frombits(binary.LittleEndian.Uint64(data[0:]))
	w.Raining = data[8] != 0
	w.RainIntensity = math.Float64frombits(binary.LittleEndian.Uint64(data[9:]))
	w.ColdSnap = data[17] != 0
	return nil
}

// Reset implements save.Saveable.
func (w *Weather) Reset() {
	*w = defaultWeather()
}

// weatherSystem advances temperature and precipitation. Seasonal swing is
// sinusoidal over the year; rain starts and stops from the tick hash so the
// sequence is reproducible for a given seed.
func weatherSystem(w *World) {
	cfg := w.Cfg.Weather
	dayOfYear := float64(w.Clock.Day() % 360)
	seasonal := math.Sin((dayOfYear/360)*2*math.Pi-math.Pi/2) * cfg.SeasonalSwing

	h := TickHash(w.Cfg.World.Seed, w.Clock.Tick, 0x77656174)
	jitter := (hashUnit(h) - 0.5) * 4

	w.Weather.Temperature = cfg.BaseTemperature + seasonal + jitter
	w.Weather.ColdSnap = w.Weather.Temperature < w.Cfg.Environment.ColdSnapThreshold

	h = splitmix64(h)
	if w.Weather.Raining {
		// Rain persists with decaying intensity, then stops.
		w.Weather.RainIntensity *= 0.8
		if w.Weather.RainIntensity < 0.05 {
			w.Weather.Raining = false
			w.Weather.RainIntensity = 0
		}
	} else if hashUnit(h) < cfg.RainChance {
		w.Weather.Raining = true
		w.Weather.RainIntensity = 0.3 + hashUnit(splitmix64(h))*0.7
	}
}

func errShortPayload(what string, n int) error {
	return &payloadError{what: what, n: n}
}

type payloadError struct {
	what string
	n    int
}

func (e *payloadError) Error() string {
	return "sim: " + e.what + " payload too short"
}
