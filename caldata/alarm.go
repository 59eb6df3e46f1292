package caldata

import "time"

// AlarmData describes the next alarm an item will fire. Summary and
// location are denormalized from the invite so alarm UIs can render without
// another store round-trip.
type AlarmData struct {
	// NextAlarm is the instant the alarm fires.
	NextAlarm time.Time `json:"nextAlarm"`
	// NextInstanceStart is the start of the occurrence the alarm belongs to.
	NextInstanceStart time.Time `json:"nextInstStart"`
	// InviteID and ComponentNum identify the invite that defined the alarm.
	InviteID     int `json:"invId"`
	ComponentNum int `json:"compNum"`

	Summary  string `json:"name,omitempty"`
	Location string `json:"loc,omitempty"`
}
