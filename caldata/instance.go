// Package caldata holds the value types cached by the calendar summary
// cache: a folder's pre-expanded window of appointments and tasks, the
// per-folder change tag, and the per-account calendar folder set.
//
// Instance records use a differential encoding: any field of an occurrence
// that equals the item's default instance is stored unset, and readers fall
// back to the default through the Effective*/Resolve accessors. The diff is
// computed once at build time via ClearUnchanged, never at read time, so
// the structures stay immutable and safe to share between goroutines.
package caldata

import (
	"time"

	"github.com/samber/mo"
)

// InstanceData is one concrete occurrence of a (possibly recurring)
// calendar item within the cached range. Optional fields left absent mean
// "same as the default instance".
type InstanceData struct {
	// RecurrenceID identifies the occurrence within its series: the
	// original series start time of this occurrence. For non-recurring
	// items it equals the item start.
	RecurrenceID time.Time `json:"ridZ"`
	// IsException marks an occurrence whose invite overrides the series
	// default.
	IsException bool `json:"ex,omitempty"`
	// InviteID and ComponentNum identify the invite this occurrence was
	// expanded from.
	InviteID     int `json:"invId"`
	ComponentNum int `json:"compNum"`

	Start    mo.Option[time.Time]     `json:"s"`
	Duration mo.Option[time.Duration] `json:"dur"`
	AlarmAt  mo.Option[time.Time]     `json:"alarm"`
}

// FullInstanceData extends InstanceData with the fields that only appear on
// a series default or on an exception occurrence. The same differential
// rule applies: absent means "same as the default instance". On the default
// instance itself every known field is present.
type FullInstanceData struct {
	InstanceData

	Summary      mo.Option[string]   `json:"name"`
	Location     mo.Option[string]   `json:"loc"`
	Description  mo.Option[string]   `json:"desc"`
	Fragment     mo.Option[string]   `json:"fr"`
	Organizer    mo.Option[string]   `json:"or"`
	Attendees    mo.Option[[]string] `json:"at"`
	Status       mo.Option[string]   `json:"status"`
	Class        mo.Option[string]   `json:"class"`
	Priority     mo.Option[int]      `json:"priority"`
	AllDay       mo.Option[bool]     `json:"allDay"`
	Transparency mo.Option[string]   `json:"transp"`
}

// coalesce returns v when present, def otherwise.
func coalesce[T any](v, def mo.Option[T]) mo.Option[T] {
	if v.IsPresent() {
		return v
	}
	return def
}

// clearIfEqual unsets v when it carries the same value as def.
func clearIfEqual[T comparable](v, def mo.Option[T]) mo.Option[T] {
	a, aok := v.Get()
	b, bok := def.Get()
	if aok && bok && a == b {
		return mo.None[T]()
	}
	return v
}

// clearTimeIfEqual is clearIfEqual for instants, comparing with time.Equal
// so identical instants in different locations still collapse.
func clearTimeIfEqual(v, def mo.Option[time.Time]) mo.Option[time.Time] {
	a, aok := v.Get()
	b, bok := def.Get()
	if aok && bok && a.Equal(b) {
		return mo.None[time.Time]()
	}
	return v
}

func clearSliceIfEqual(v, def mo.Option[[]string]) mo.Option[[]string] {
	a, aok := v.Get()
	b, bok := def.Get()
	if !aok || !bok || len(a) != len(b) {
		return v
	}
	for i := range a {
		if a[i] != b[i] {
			return v
		}
	}
	return mo.None[[]string]()
}

// EffectiveStart resolves the occurrence start against the default
// instance.
func (i *InstanceData) EffectiveStart(def *FullInstanceData) (time.Time, bool) {
	v := i.Start
	if def != nil {
		v = coalesce(v, def.Start)
	}
	return v.Get()
}

// EffectiveDuration resolves the occurrence duration against the default
// instance. Zero is returned when neither carries a duration.
func (i *InstanceData) EffectiveDuration(def *FullInstanceData) time.Duration {
	v := i.Duration
	if def != nil {
		v = coalesce(v, def.Duration)
	}
	return v.OrEmpty()
}

// InRange reports whether the occurrence or its alarm falls within r,
// consulting the default instance for unset start/duration.
func (i *InstanceData) InRange(r Range, def *FullInstanceData) bool {
	if start, ok := i.EffectiveStart(def); ok {
		if r.Occurrence(start, i.EffectiveDuration(def)) {
			return true
		}
	}
	if alarm, ok := i.AlarmAt.Get(); ok && r.ContainsTime(alarm) {
		return true
	}
	return false
}

// ClearUnchanged unsets every field of f that equals the corresponding
// field of def. This is the build-time diff pass; it must not be applied to
// the default instance itself.
func (f *FullInstanceData) ClearUnchanged(def *FullInstanceData) {
	if def == nil {
		return
	}
	f.Start = clearTimeIfEqual(f.Start, def.Start)
	f.Duration = clearIfEqual(f.Duration, def.Duration)
	f.AlarmAt = clearTimeIfEqual(f.AlarmAt, def.AlarmAt)
	f.Summary = clearIfEqual(f.Summary, def.Summary)
	f.Location = clearIfEqual(f.Location, def.Location)
	f.Description = clearIfEqual(f.Description, def.Description)
	f.Fragment = clearIfEqual(f.Fragment, def.Fragment)
	f.Organizer = clearIfEqual(f.Organizer, def.Organizer)
	f.Attendees = clearSliceIfEqual(f.Attendees, def.Attendees)
	f.Status = clearIfEqual(f.Status, def.Status)
	f.Class = clearIfEqual(f.Class, def.Class)
	f.Priority = clearIfEqual(f.Priority, def.Priority)
	f.AllDay = clearIfEqual(f.AllDay, def.AllDay)
	f.Transparency = clearIfEqual(f.Transparency, def.Transparency)
}

// Resolve returns a copy of f with every unset field filled in from def.
// Resolving the diff produced by ClearUnchanged against the same default
// reproduces the pre-diff record exactly.
func (f *FullInstanceData) Resolve(def *FullInstanceData) FullInstanceData {
	out := *f
	if def == nil {
		return out
	}
	out.Start = coalesce(f.Start, def.Start)
	out.Duration = coalesce(f.Duration, def.Duration)
	out.AlarmAt = coalesce(f.AlarmAt, def.AlarmAt)
	out.Summary = coalesce(f.Summary, def.Summary)
	out.Location = coalesce(f.Location, def.Location)
	out.Description = coalesce(f.Description, def.Description)
	out.Fragment = coalesce(f.Fragment, def.Fragment)
	out.Organizer = coalesce(f.Organizer, def.Organizer)
	out.Attendees = coalesce(f.Attendees, def.Attendees)
	out.Status = coalesce(f.Status, def.Status)
	out.Class = coalesce(f.Class, def.Class)
	out.Priority = coalesce(f.Priority, def.Priority)
	out.AllDay = coalesce(f.AllDay, def.AllDay)
	out.Transparency = coalesce(f.Transparency, def.Transparency)
	return out
}
