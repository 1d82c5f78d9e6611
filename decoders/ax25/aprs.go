package ax25

import (
	"strconv"
	"strings"
	"time"
)

// PacketKind classifies an APRS information field by its first character.
type PacketKind string

const (
	KindPosition  PacketKind = "position"
	KindStatus    PacketKind = "status"
	KindMessage   PacketKind = "message"
	KindObject    PacketKind = "object"
	KindItem      PacketKind = "item"
	KindTelemetry PacketKind = "telemetry"
	KindWeather   PacketKind = "weather"
	KindMicE      PacketKind = "mic-e"
	KindUnknown   PacketKind = "unknown"
)

// Message field keys emitted by this decoder.
const (
	FieldSource      = "source"
	FieldDestination = "destination"
	FieldPath        = "path"
	FieldKind        = "kind"
	FieldLatitude    = "latitude"
	FieldLongitude   = "longitude"
	FieldSymbolTable = "symbol_table"
	FieldSymbolCode  = "symbol_code"
	FieldComment     = "comment"
	FieldAltitude    = "altitude_ft"
	FieldCourse      = "course"
	FieldSpeed       = "speed_kt"
	FieldStatus      = "status"
	FieldAddressee   = "addressee"
	FieldMessageText = "message_text"
)

// Report is the parsed content of one APRS information field. Position
// fields are populated only when HasPosition is set.
type Report struct {
	Kind        PacketKind
	HasPosition bool
	Latitude    float64
	Longitude   float64
	SymbolTable byte
	SymbolCode  byte
	Comment     string

	Status      string
	Addressee   string
	MessageText string

	// Course/speed and altitude extracted from the comment, when present.
	Course      int
	Speed       int
	HasCourse   bool
	AltitudeFt  int
	HasAltitude bool
}

// ParseInfo dispatches an APRS information field by its first character.
// It never fails: unparseable payloads come back as KindUnknown (or their
// recognized kind with no position). Mic-E payloads are recognized but left
// unparsed; their position is packed into the destination callsign and
// decoding it is tracked as open work.
func ParseInfo(info []byte) Report {
	if len(info) == 0 {
		return Report{Kind: KindUnknown}
	}

	payload := string(info)
	switch payload[0] {
	case '!', '=':
		return parsePosition(payload[1:])
	case '/', '@':
		// Marker is followed by a 7-byte timestamp, then the position.
		if len(payload) < 8 {
			return Report{Kind: KindPosition}
		}
		return parsePosition(payload[8:])
	case '>':
		return Report{Kind: KindStatus, Status: payload[1:]}
	case ':':
		return parseMessage(payload)
	case ';':
		return Report{Kind: KindObject, Comment: payload[1:]}
	case ')':
		return Report{Kind: KindItem, Comment: payload[1:]}
	case 'T':
		return Report{Kind: KindTelemetry, Comment: payload[1:]}
	case '_':
		return Report{Kind: KindWeather, Comment: payload[1:]}
	case '`', '\'':
		return Report{Kind: KindMicE, Comment: payload[1:]}
	default:
		return Report{Kind: KindUnknown, Comment: payload}
	}
}

// parsePosition decodes the fixed-width uncompressed form:
// DDMM.mmH (8 bytes), symbol table, DDDMM.mmH (9 bytes), symbol code,
// then free-text comment.
func parsePosition(s string) Report {
	r := Report{Kind: KindPosition}
	if len(s) < 19 {
		return r
	}

	lat, ok := parseLatitude(s[0:8])
	if !ok {
		return r
	}
	lon, ok := parseLongitude(s[9:18])
	if !ok {
		return r
	}

	r.HasPosition = true
	r.Latitude = lat
	r.Longitude = lon
	r.SymbolTable = s[8]
	r.SymbolCode = s[18]
	r.Comment = s[19:]
	parseCommentExtensions(&r)
	return r
}

// parseLatitude decodes DDMM.mmH: degrees plus minutes/60, sign flipped
// for the southern hemisphere.
func parseLatitude(s string) (float64, bool) {
	if len(s) != 8 || s[4] != '.' {
		return 0, false
	}
	deg, err1 := strconv.Atoi(s[0:2])
	min, err2 := strconv.ParseFloat(s[2:7], 64)
	if err1 != nil || err2 != nil {
		return 0, false
	}

	lat := float64(deg) + min/60
	switch s[7] {
	case 'N':
	case 'S':
		lat = -lat
	default:
		return 0, false
	}
	return lat, true
}

// parseLongitude decodes DDDMM.mmH.
func parseLongitude(s string) (float64, bool) {
	if len(s) != 9 || s[5] != '.' {
		return 0, false
	}
	deg, err1 := strconv.Atoi(s[0:3])
	min, err2 := strconv.ParseFloat(s[3:8], 64)
	if err1 != nil || err2 != nil {
		return 0, false
	}

	lon := float64(deg) + min/60
	switch s[8] {
	case 'E':
	case 'W':
		lon = -lon
	default:
		return 0, false
	}
	return lon, true
}

// parseMessage decodes :ADDRESSEE:text, addressee padded to nine bytes.
func parseMessage(payload string) Report {
	r := Report{Kind: KindMessage}
	if len(payload) < 11 || payload[10] != ':' {
		return r
	}
	r.Addressee = strings.TrimRight(payload[1:10], " ")
	r.MessageText = payload[11:]
	return r
}

// parseCommentExtensions pulls the data extensions APRS embeds in the
// comment: a leading CSE/SPD pair (7 bytes, degrees/knots) and an /A=nnnnnn
// altitude anywhere in the text.
func parseCommentExtensions(r *Report) {
	c := r.Comment
	if len(c) >= 7 && c[3] == '/' {
		course, err1 := strconv.Atoi(c[0:3])
		speed, err2 := strconv.Atoi(c[4:7])
		if err1 == nil && err2 == nil {
			r.Course = course
			r.Speed = speed
			r.HasCourse = true
			r.Comment = c[7:]
		}
	}
	if i := strings.Index(r.Comment, "/A="); i >= 0 && i+9 <= len(r.Comment) {
		if alt, err := strconv.Atoi(r.Comment[i+3 : i+9]); err == nil {
			r.AltitudeFt = alt
			r.HasAltitude = true
		}
	}
}

// Station is the accumulated state for one heard callsign. Fields update
// on each new packet from that callsign; stations are never deleted
// automatically.
type Station struct {
	Callsign    string
	Latitude    float64
	Longitude   float64
	HasPosition bool
	AltitudeFt  int
	Course      int
	SpeedKt     int
	Comment     string
	LastHeard   time.Time
	Packets     int
}

// StationTable holds every station heard by one decoder instance. It is
// owned exclusively by that instance and is not safe for shared use.
type StationTable struct {
	stations map[string]*Station
}

// NewStationTable creates an empty table.
func NewStationTable() *StationTable {
	return &StationTable{stations: make(map[string]*Station)}
}

// Upsert folds a report into the station keyed by callsign, creating it on
// first contact. Only fields present in the report are overwritten.
func (t *StationTable) Upsert(callsign string, r Report) *Station {
	st, ok := t.stations[callsign]
	if !ok {
		st = &Station{Callsign: callsign}
		t.stations[callsign] = st
	}

	st.Packets++
	st.LastHeard = time.Now().UTC()
	if r.HasPosition {
		st.Latitude = r.Latitude
		st.Longitude = r.Longitude
		st.HasPosition = true
	}
	if r.HasCourse {
		st.Course = r.Course
		st.SpeedKt = r.Speed
	}
	if r.HasAltitude {
		st.AltitudeFt = r.AltitudeFt
	}
	if r.Comment != "" {
		st.Comment = r.Comment
	}
	return st
}

// Lookup returns the station for a callsign, if heard.
func (t *StationTable) Lookup(callsign string) (*Station, bool) {
	st, ok := t.stations[callsign]
	return st, ok
}

// Len returns the number of stations heard.
func (t *StationTable) Len() int { return len(t.stations) }

// formatCoordinate renders a coordinate for the message field map.
func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
