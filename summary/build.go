package summary

import (
	"fmt"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/calsummary/caldata"
	"github.com/cyp0633/calsummary/store"
)

// fullInstance converts an invite at a concrete occurrence time into the
// cached instance form with every known field present.
func fullInstance(inv *store.Invite, start time.Time, dur time.Duration, rid time.Time) caldata.FullInstanceData {
	fi := caldata.FullInstanceData{
		InstanceData: caldata.InstanceData{
			RecurrenceID: rid,
			InviteID:     inv.InviteID,
			ComponentNum: inv.ComponentNum,
			Start:        mo.Some(start),
			Duration:     mo.Some(dur),
		},
		Summary:      mo.Some(inv.Summary),
		Location:     mo.Some(inv.Location),
		Description:  mo.Some(inv.Description),
		Fragment:     mo.Some(inv.Fragment),
		Organizer:    mo.Some(inv.Organizer),
		Status:       mo.Some(inv.Status),
		Class:        mo.Some(inv.Class),
		Priority:     mo.Some(inv.Priority),
		AllDay:       mo.Some(inv.AllDay),
		Transparency: mo.Some(inv.Transparency),
	}
	if len(inv.Attendees) > 0 {
		fi.Attendees = mo.Some(append([]string(nil), inv.Attendees...))
	}
	if inv.HasAlarm {
		fi.AlarmAt = mo.Some(start.Add(-inv.AlarmOffset))
	}
	return fi
}

// extendRange widens r to cover [start, end], treating the zero range as
// empty.
func extendRange(r *caldata.Range, start, end time.Time) {
	if r.IsZero() {
		*r = caldata.Range{Start: start, End: end}
		return
	}
	if start.Before(r.Start) {
		r.Start = start
	}
	if end.After(r.End) {
		r.End = end
	}
}

// buildItem expands one mailbox item over the window into its cached form:
// the default instance, one differential record per occurrence, the next
// alarm at or after now, and the tight sub-range the expansion covers. Items
// with nothing in the window yield nil.
func buildItem(item store.Item, window caldata.Range, now time.Time) (*caldata.CalendarItemData, error) {
	def := item.DefaultInvite()
	if def == nil {
		return nil, nil
	}
	occs, err := item.Occurrences(window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("expand item %d: %w", item.ID(), err)
	}
	if len(occs) == 0 {
		return nil, nil
	}

	defInstance := fullInstance(def, def.Start, def.Duration, def.Start)
	ci := &caldata.CalendarItemData{
		ID:        item.ID(),
		FolderID:  item.FolderID(),
		Type:      item.Kind(),
		Flags:     item.Flags(),
		Tags:      item.Tags(),
		IsPublic:  item.IsPublic(),
		UID:       item.UID(),
		Recurring: item.IsRecurring(),
		ModSeq:    item.ModSeq(),
		Default:   &defInstance,
	}

	var actual caldata.Range
	var alarm *caldata.AlarmData
	for _, occ := range occs {
		inv := def
		if occ.Override != nil {
			inv = occ.Override
		}
		rid := occ.RecurrenceID
		if rid.IsZero() {
			rid = occ.Start
		}
		fi := fullInstance(inv, occ.Start, occ.Duration, rid)
		fi.IsException = occ.Override != nil

		extendRange(&actual, occ.Start, occ.Start.Add(occ.Duration))
		if at, ok := fi.AlarmAt.Get(); ok {
			extendRange(&actual, at, at)
			if !at.Before(now) && (alarm == nil || at.Before(alarm.NextAlarm)) {
				alarm = &caldata.AlarmData{
					NextAlarm:         at,
					NextInstanceStart: occ.Start,
					InviteID:          inv.InviteID,
					ComponentNum:      inv.ComponentNum,
					Summary:           inv.Summary,
					Location:          inv.Location,
				}
			}
		}

		fi.ClearUnchanged(ci.Default)
		ci.Instances = append(ci.Instances, fi)
	}

	ci.Alarm = alarm
	ci.ActualRange = actual
	return ci, nil
}
