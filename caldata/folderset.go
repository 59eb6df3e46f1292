package caldata

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// CalendarFolderSet is the per-account set of calendar folder ids plus a
// monotonically increasing version string. The value is immutable: every
// mutation returns a new set with the sequence incremented, so concurrent
// readers never observe a half-updated membership or a torn version.
//
// The version has the form "prefix:sequence". The prefix is fixed at
// creation, which makes versions comparable within one cache lifetime and
// incomparable across rebuilds, exactly what folder-list polling clients
// need to decide "something changed, re-list".
type CalendarFolderSet struct {
	Account string `json:"account"`
	// FolderIDs is kept sorted.
	FolderIDs     []int  `json:"folderIds"`
	VersionPrefix string `json:"verPrefix"`
	VersionSeq    int    `json:"verSeq"`
}

// NewCalendarFolderSet builds a set with a fresh random version prefix and
// sequence 1.
func NewCalendarFolderSet(account string, folderIDs []int) CalendarFolderSet {
	ids := make([]int, 0, len(folderIDs))
	seen := make(map[int]struct{}, len(folderIDs))
	for _, id := range folderIDs {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return CalendarFolderSet{
		Account:       account,
		FolderIDs:     ids,
		VersionPrefix: uuid.NewString(),
		VersionSeq:    1,
	}
}

// Contains reports whether the folder id is in the set.
func (s CalendarFolderSet) Contains(id int) bool {
	i := sort.SearchInts(s.FolderIDs, id)
	return i < len(s.FolderIDs) && s.FolderIDs[i] == id
}

// Version returns the "prefix:sequence" version string.
func (s CalendarFolderSet) Version() string {
	return fmt.Sprintf("%s:%d", s.VersionPrefix, s.VersionSeq)
}

// WithFolder returns a copy containing id, with the version advanced. The
// receiver is returned unchanged when id is already present.
func (s CalendarFolderSet) WithFolder(id int) CalendarFolderSet {
	if s.Contains(id) {
		return s
	}
	out := s.copyIDs()
	out.FolderIDs = append(out.FolderIDs, id)
	sort.Ints(out.FolderIDs)
	out.VersionSeq++
	return out
}

// WithoutFolder returns a copy lacking id, with the version advanced. The
// receiver is returned unchanged when id is absent.
func (s CalendarFolderSet) WithoutFolder(id int) CalendarFolderSet {
	if !s.Contains(id) {
		return s
	}
	out := s.copyIDs()
	i := sort.SearchInts(out.FolderIDs, id)
	out.FolderIDs = append(out.FolderIDs[:i], out.FolderIDs[i+1:]...)
	out.VersionSeq++
	return out
}

// WithNextVersion returns a copy with the same membership and the version
// advanced, used when folder contents changed without membership changing.
func (s CalendarFolderSet) WithNextVersion() CalendarFolderSet {
	out := s.copyIDs()
	out.VersionSeq++
	return out
}

func (s CalendarFolderSet) copyIDs() CalendarFolderSet {
	out := s
	out.FolderIDs = make([]int, len(s.FolderIDs))
	copy(out.FolderIDs, s.FolderIDs)
	return out
}
