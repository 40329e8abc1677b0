package models

// Leg represents one scheduled flight segment of an aircraft rotation
// (schedule input DTO). Times are minute offsets from a reference epoch
// and may exceed 1440 for overnight schedules.
type Leg struct {
	LegID       string `json:"leg_id"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	AircraftID  string `json:"aircraft_id"`
	STD         int    `json:"std"`
	STA         int    `json:"sta"`
	Blocktime   int    `json:"blocktime"`

	// Extra holds descriptive input columns (airline, flight number,
	// subfleet, distance, ...) that pass through to the output unused.
	Extra map[string]string `json:"extra,omitempty"`
}

// Operating reports whether the leg actually flies anywhere. Legs with
// Origin == Destination are placeholders and are excluded from delay
// propagation.
func (l Leg) Operating() bool {
	return l.Origin != l.Destination
}

// Clone returns a deep copy of the leg, including the passthrough columns.
func (l Leg) Clone() Leg {
	c := l
	if l.Extra != nil {
		c.Extra = make(map[string]string, len(l.Extra))
		for k, v := range l.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// Required schedule column names.
const (
	ColLegID       = "LegId"
	ColOrigin      = "Origin"
	ColDestination = "Destination"
	ColAircraftID  = "AircraftId"
	ColSTD         = "STD"
	ColSTA         = "STA"
	ColBlocktime   = "Blocktime"
)

// RequiredColumns lists the columns a schedule source must provide, in
// canonical order.
func RequiredColumns() []string {
	return []string{ColLegID, ColOrigin, ColDestination, ColAircraftID, ColSTD, ColSTA, ColBlocktime}
}
