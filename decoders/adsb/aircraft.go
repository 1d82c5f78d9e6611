package adsb

import "time"

// Aircraft is the accumulated state for one ICAO24 address. Fields fill in
// as successive message types arrive; absent data stays zero.
type Aircraft struct {
	ICAO        uint32
	Callsign    string
	AltitudeFt  int
	HasAltitude bool
	Latitude    float64
	Longitude   float64
	HasPosition bool
	SpeedKt     float64
	HeadingDeg  float64
	HasVelocity bool
	LastSeen    time.Time
	Messages    int
}

// AircraftTable holds every aircraft heard by one decoder instance. It is
// owned exclusively by that instance and is not safe for shared use.
type AircraftTable struct {
	aircraft map[uint32]*Aircraft
}

// NewAircraftTable creates an empty table.
func NewAircraftTable() *AircraftTable {
	return &AircraftTable{aircraft: make(map[uint32]*Aircraft)}
}

// Upsert folds a decoded message into the aircraft keyed by ICAO24,
// creating it on first contact. Only fields present in the message are
// overwritten.
func (t *AircraftTable) Upsert(d Decoded) *Aircraft {
	ac, ok := t.aircraft[d.ICAO]
	if !ok {
		ac = &Aircraft{ICAO: d.ICAO}
		t.aircraft[d.ICAO] = ac
	}

	ac.Messages++
	ac.LastSeen = time.Now().UTC()
	if d.HasCallsign {
		ac.Callsign = d.Callsign
	}
	if d.HasAltitude {
		ac.AltitudeFt = d.AltitudeFt
		ac.HasAltitude = true
	}
	if d.HasPosition {
		ac.Latitude = d.Latitude
		ac.Longitude = d.Longitude
		ac.HasPosition = true
	}
	if d.HasVelocity {
		ac.SpeedKt = d.SpeedKt
		ac.HeadingDeg = d.HeadingDeg
		ac.HasVelocity = true
	}
	return ac
}

// Lookup returns the aircraft for an ICAO24 address, if heard.
func (t *AircraftTable) Lookup(icao uint32) (*Aircraft, bool) {
	ac, ok := t.aircraft[icao]
	return ac, ok
}

// Len returns the number of aircraft heard.
func (t *AircraftTable) Len() int { return len(t.aircraft) }
