package caldata

import (
	"encoding/json"
	"sort"
	"sync"
)

// CalendarData is one calendar folder's cached window: every appointment or
// task whose expanded instances fall within Range, pre-expanded at ModSeq.
// Individual items may later be marked stale by the invalidation listeners;
// a stale id means the cached record for that item can no longer be
// trusted, but the rest of the structure remains reusable for incremental
// recompute.
//
// The item list and index are fixed after construction; only the stale set
// mutates, under its own lock, so concurrent readers are safe.
type CalendarData struct {
	FolderID int `json:"folderId"`
	// ModSeq is the folder's last-modified sequence at build time, the
	// freshness token all tiers validate against.
	ModSeq int   `json:"modSeq"`
	Range  Range `json:"range"`
	// Items preserves the mailbox enumeration order.
	Items []*CalendarItemData `json:"items"`

	mu    sync.RWMutex
	stale map[int]struct{}
	byID  map[int]*CalendarItemData
}

// NewCalendarData builds an empty folder window.
func NewCalendarData(folderID, modSeq int, r Range) *CalendarData {
	return &CalendarData{
		FolderID: folderID,
		ModSeq:   modSeq,
		Range:    r,
		stale:    make(map[int]struct{}),
		byID:     make(map[int]*CalendarItemData),
	}
}

// AddItem appends an item, replacing any previous item with the same id.
func (cd *CalendarData) AddItem(item *CalendarItemData) {
	if prev, ok := cd.byID[item.ID]; ok {
		for i, it := range cd.Items {
			if it == prev {
				cd.Items[i] = item
				cd.byID[item.ID] = item
				return
			}
		}
	}
	cd.Items = append(cd.Items, item)
	cd.byID[item.ID] = item
}

// Item returns the item with the given id, if cached.
func (cd *CalendarData) Item(id int) (*CalendarItemData, bool) {
	item, ok := cd.byID[id]
	return item, ok
}

// NumItems returns the number of cached items.
func (cd *CalendarData) NumItems() int { return len(cd.Items) }

// MarkStale records that the item with the given id is out of date. The id
// need not be present: an item created since the window was built is stale
// too, and will be fetched on the next incremental recompute.
func (cd *CalendarData) MarkStale(id int) {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	if cd.stale == nil {
		cd.stale = make(map[int]struct{})
	}
	cd.stale[id] = struct{}{}
}

// StaleIDs returns the stale item ids in ascending order.
func (cd *CalendarData) StaleIDs() []int {
	cd.mu.RLock()
	defer cd.mu.RUnlock()
	ids := make([]int, 0, len(cd.stale))
	for id := range cd.stale {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// StaleCount returns the number of stale item ids.
func (cd *CalendarData) StaleCount() int {
	cd.mu.RLock()
	defer cd.mu.RUnlock()
	return len(cd.stale)
}

// IsStaleFor reports whether the window can no longer be served as-is for a
// folder currently at currentModSeq: either the folder moved on, or
// individual items were invalidated.
func (cd *CalendarData) IsStaleFor(currentModSeq int) bool {
	return cd.ModSeq != currentModSeq || cd.StaleCount() > 0
}

// ProjectRange returns the window restricted to r. When r already contains
// the cached range the receiver itself is returned, so re-projecting an
// already-contained range is free and idempotent. Otherwise a new
// CalendarData is built by projecting each item; items with nothing in r
// are dropped. The projection carries no stale ids: it is a read-time view,
// not a cache entry.
func (cd *CalendarData) ProjectRange(r Range) *CalendarData {
	if r.Contains(cd.Range) {
		return cd
	}
	out := NewCalendarData(cd.FolderID, cd.ModSeq, cd.Range.Clip(r))
	for _, item := range cd.Items {
		if projected := item.ProjectRange(r); projected != nil {
			out.AddItem(projected)
		}
	}
	return out
}

// calendarDataJSON is the serialized form; the id index is rebuilt on
// decode and the stale set travels as a sorted id list.
type calendarDataJSON struct {
	FolderID int                 `json:"folderId"`
	ModSeq   int                 `json:"modSeq"`
	Range    Range               `json:"range"`
	Items    []*CalendarItemData `json:"items"`
	StaleIDs []int               `json:"staleIds,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (cd *CalendarData) MarshalJSON() ([]byte, error) {
	return json.Marshal(calendarDataJSON{
		FolderID: cd.FolderID,
		ModSeq:   cd.ModSeq,
		Range:    cd.Range,
		Items:    cd.Items,
		StaleIDs: cd.StaleIDs(),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (cd *CalendarData) UnmarshalJSON(b []byte) error {
	var raw calendarDataJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	cd.FolderID = raw.FolderID
	cd.ModSeq = raw.ModSeq
	cd.Range = raw.Range
	cd.Items = raw.Items
	cd.byID = make(map[int]*CalendarItemData, len(raw.Items))
	for _, item := range raw.Items {
		cd.byID[item.ID] = item
	}
	cd.stale = make(map[int]struct{}, len(raw.StaleIDs))
	for _, id := range raw.StaleIDs {
		cd.stale[id] = struct{}{}
	}
	return nil
}
