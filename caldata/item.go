package caldata

import "github.com/cyp0633/calsummary/internal/interval"

// Range is the half-open time range type used throughout the data model.
type Range = interval.Range

// ItemType distinguishes the two calendar item kinds.
type ItemType string

const (
	ItemAppointment ItemType = "appointment"
	ItemTask        ItemType = "task"
)

// CalendarItemData is one appointment or task inside a cached folder
// window: its identity and flags, the default (series/master) instance, the
// expanded occurrences within the covered range, and the next alarm. An
// item belongs to exactly one CalendarData and is never shared across
// folders.
type CalendarItemData struct {
	ID       int      `json:"id"`
	FolderID int      `json:"folderId"`
	Type     ItemType `json:"type"`
	Flags    string   `json:"flags,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	IsPublic bool     `json:"isPublic"`
	UID      string   `json:"uid"`
	// Recurring marks items with a recurrence rule; their Instances list
	// holds one entry per expanded occurrence.
	Recurring bool `json:"recur,omitempty"`
	// ModSeq is the item's last-modified sequence.
	ModSeq int `json:"modSeq"`

	Alarm *AlarmData `json:"alarm,omitempty"`
	// Default is the non-recurring/master view every differential
	// instance resolves against.
	Default *FullInstanceData `json:"default"`
	// Instances holds one entry per expanded occurrence. Ordinary
	// occurrences leave every master-only field unset; exceptions carry
	// their overridden fields in full.
	Instances []FullInstanceData `json:"instances"`
	// ActualRange is the sub-range of the folder window this item's
	// expansion actually covers.
	ActualRange Range `json:"actualRange"`
}

// ProjectRange returns the item restricted to instances whose occurrence or
// alarm time intersects r, or nil when nothing of the item remains in r.
// When r already contains the item's actual range the receiver itself is
// returned unchanged.
func (ci *CalendarItemData) ProjectRange(r Range) *CalendarItemData {
	if r.Contains(ci.ActualRange) {
		return ci
	}
	kept := make([]FullInstanceData, 0, len(ci.Instances))
	for _, inst := range ci.Instances {
		if inst.InRange(r, ci.Default) {
			kept = append(kept, inst)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	out := *ci
	out.Instances = kept
	out.ActualRange = ci.ActualRange.Clip(r)
	return &out
}
