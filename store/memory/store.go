// Package memory provides an in-memory store.Mailbox implementation for
// tests and examples. Items are backed by iCalendar components; recurrence
// rules are expanded with rrule-go.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cyp0633/calsummary/caldata"
	"github.com/cyp0633/calsummary/store"
	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

// Store implements store.Mailbox using in-memory maps.
type Store struct {
	mu        sync.RWMutex
	accounts  map[string]*mailbox
	listeners []store.ChangeListener
}

type mailbox struct {
	folders map[int]*store.FolderInfo
	items   map[int]*Item
	modSeq  int
	nextID  int
}

// New creates an empty in-memory mailbox store.
func New() *Store {
	return &Store{accounts: make(map[string]*mailbox)}
}

// AddListener registers a change listener. Listeners are invoked
// synchronously after each mutation, matching how mailbox commits publish
// their notification batches.
func (s *Store) AddListener(l store.ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Store) notify(n *store.Notification) {
	s.mu.RLock()
	listeners := make([]store.ChangeListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()
	for _, l := range listeners {
		l.Notify(context.Background(), n)
	}
}

// CreateAccount provisions an account with an Inbox and a Trash folder.
func (s *Store) CreateAccount(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[accountID]; exists {
		return
	}
	mbox := &mailbox{
		folders: make(map[int]*store.FolderInfo),
		items:   make(map[int]*Item),
		modSeq:  1,
		nextID:  256,
	}
	mbox.folders[store.FolderInbox] = &store.FolderInfo{
		ID: store.FolderInbox, ParentID: 1, ModSeq: 1, IMAPModSeq: 1,
		View: "message", Path: "/Inbox",
	}
	mbox.folders[store.FolderTrash] = &store.FolderInfo{
		ID: store.FolderTrash, ParentID: 1, ModSeq: 1, IMAPModSeq: 1,
		View: "message", Path: "/Trash",
	}
	s.accounts[accountID] = mbox
}

// AddFolder creates a folder and emits the corresponding notification.
func (s *Store) AddFolder(accountID string, f *store.FolderInfo) error {
	s.mu.Lock()
	mbox, ok := s.accounts[accountID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("add folder: %w", store.ErrNotFound)
	}
	mbox.modSeq++
	f.ModSeq = mbox.modSeq
	f.IMAPModSeq = mbox.modSeq
	mbox.folders[f.ID] = f
	entry := store.ChangedEntry{
		Account: accountID, ID: f.ID, Kind: store.EntryFolder,
		FolderID: f.ParentID, View: f.View,
	}
	s.mu.Unlock()

	s.notify(&store.Notification{Created: []store.ChangedEntry{entry}})
	return nil
}

// PutComponent stores a VEVENT or VTODO component as a calendar item and
// returns its id. An existing item with the same UID in the folder is
// replaced.
func (s *Store) PutComponent(accountID string, folderID int, comp *ical.Component) (int, error) {
	item, err := itemFromComponent(comp)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	mbox, ok := s.accounts[accountID]
	if !ok {
		s.mu.Unlock()
		return 0, fmt.Errorf("put item: %w", store.ErrNotFound)
	}
	folder, ok := mbox.folders[folderID]
	if !ok {
		s.mu.Unlock()
		return 0, fmt.Errorf("put item: %w", store.ErrNotFound)
	}

	var existing *Item
	for _, it := range mbox.items {
		if it.folderID == folderID && it.uid == item.uid {
			existing = it
			break
		}
	}
	mbox.modSeq++
	if existing != nil {
		item.id = existing.id
	} else {
		mbox.nextID++
		item.id = mbox.nextID
	}
	item.folderID = folderID
	item.modSeq = mbox.modSeq
	folder.ModSeq = mbox.modSeq
	folder.IMAPModSeq = mbox.modSeq
	mbox.items[item.id] = item

	kind := store.EntryAppointment
	if item.kind == caldata.ItemTask {
		kind = store.EntryTask
	}
	entry := store.ChangedEntry{
		Account: accountID, ID: item.id, Kind: kind, FolderID: folderID,
	}
	s.mu.Unlock()

	n := &store.Notification{}
	if existing != nil {
		entry.Changes = store.ChangeContent
		n.Modified = []store.ChangedEntry{entry}
	} else {
		n.Created = []store.ChangedEntry{entry}
	}
	s.notify(n)
	return item.id, nil
}

// MoveItem moves an item to another folder, emitting a modification with
// the folder-membership flag set.
func (s *Store) MoveItem(accountID string, itemID, targetFolderID int) error {
	s.mu.Lock()
	mbox, ok := s.accounts[accountID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("move item: %w", store.ErrNotFound)
	}
	item, ok := mbox.items[itemID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("move item: %w", store.ErrNotFound)
	}
	target, ok := mbox.folders[targetFolderID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("move item: %w", store.ErrNotFound)
	}
	source := mbox.folders[item.folderID]
	mbox.modSeq++
	item.folderID = targetFolderID
	item.modSeq = mbox.modSeq
	target.ModSeq = mbox.modSeq
	target.IMAPModSeq = mbox.modSeq
	if source != nil {
		source.ModSeq = mbox.modSeq
		source.IMAPModSeq = mbox.modSeq
	}
	kind := store.EntryAppointment
	if item.kind == caldata.ItemTask {
		kind = store.EntryTask
	}
	entry := store.ChangedEntry{
		Account: accountID, ID: itemID, Kind: kind, FolderID: targetFolderID,
		Changes: store.ChangeContent | store.ChangeFolder,
	}
	s.mu.Unlock()

	s.notify(&store.Notification{Modified: []store.ChangedEntry{entry}})
	return nil
}

// DeleteItem removes an item and emits a deletion.
func (s *Store) DeleteItem(accountID string, itemID int) error {
	s.mu.Lock()
	mbox, ok := s.accounts[accountID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete item: %w", store.ErrNotFound)
	}
	item, ok := mbox.items[itemID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete item: %w", store.ErrNotFound)
	}
	mbox.modSeq++
	if folder := mbox.folders[item.folderID]; folder != nil {
		folder.ModSeq = mbox.modSeq
		folder.IMAPModSeq = mbox.modSeq
	}
	delete(mbox.items, itemID)
	kind := store.EntryAppointment
	if item.kind == caldata.ItemTask {
		kind = store.EntryTask
	}
	entry := store.ChangedEntry{
		Account: accountID, ID: itemID, Kind: kind, FolderID: item.folderID,
	}
	s.mu.Unlock()

	s.notify(&store.Notification{Deleted: []store.ChangedEntry{entry}})
	return nil
}

// MoveFolderToTrash reparents a folder under Trash, emitting the
// created-at-new-parent modification the cache interprets as a removal.
func (s *Store) MoveFolderToTrash(accountID string, folderID int) error {
	s.mu.Lock()
	mbox, ok := s.accounts[accountID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("trash folder: %w", store.ErrNotFound)
	}
	folder, ok := mbox.folders[folderID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("trash folder: %w", store.ErrNotFound)
	}
	mbox.modSeq++
	folder.ParentID = store.FolderTrash
	folder.ModSeq = mbox.modSeq
	entry := store.ChangedEntry{
		Account: accountID, ID: folderID, Kind: store.EntryFolder,
		FolderID: store.FolderTrash, View: folder.View,
		Changes: store.ChangeFolder,
	}
	s.mu.Unlock()

	s.notify(&store.Notification{Modified: []store.ChangedEntry{entry}})
	return nil
}

// Mailbox interface

// IsLocal implements store.Mailbox; every provisioned account is local.
func (s *Store) IsLocal(accountID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[accountID]
	return ok
}

// FolderInfo implements store.Mailbox.
func (s *Store) FolderInfo(_ context.Context, accountID string, folderID int) (*store.FolderInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mbox, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("folder info: %w", store.ErrNotFound)
	}
	folder, ok := mbox.folders[folderID]
	if !ok {
		return nil, fmt.Errorf("folder info: %w", store.ErrNotFound)
	}
	out := *folder
	return &out, nil
}

// CalendarFolders implements store.Mailbox.
func (s *Store) CalendarFolders(_ context.Context, accountID string) ([]*store.FolderInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mbox, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("calendar folders: %w", store.ErrNotFound)
	}
	var out []*store.FolderInfo
	for _, folder := range mbox.folders {
		if folder.IsCalendarView() && folder.ParentID != store.FolderTrash {
			f := *folder
			out = append(out, &f)
		}
	}
	return out, nil
}

// CalendarItemsInRange implements store.Mailbox.
func (s *Store) CalendarItemsInRange(_ context.Context, accountID string, folderID int, kind caldata.ItemType, start, end time.Time) ([]store.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mbox, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("items in range: %w", store.ErrNotFound)
	}
	var out []store.Item
	for _, item := range mbox.items {
		if item.folderID != folderID || item.kind != kind {
			continue
		}
		occs, err := item.Occurrences(start, end)
		if err != nil {
			return nil, err
		}
		if len(occs) > 0 {
			out = append(out, item)
		}
	}
	return out, nil
}

// CalendarItemByID implements store.Mailbox.
func (s *Store) CalendarItemByID(_ context.Context, accountID string, itemID int) (store.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mbox, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("item by id: %w", store.ErrNotFound)
	}
	item, ok := mbox.items[itemID]
	if !ok {
		return nil, fmt.Errorf("item by id: %w", store.ErrNotFound)
	}
	return item, nil
}

// Permissions is a permissive store.Permissions for tests: every local
// account may read everything and see private items.
type Permissions struct{}

// Effective implements store.Permissions.
func (Permissions) Effective(_ context.Context, _ string, _ int) (store.Perms, error) {
	return store.Perms{Read: true, ViewPrivate: true}, nil
}

// itemFromComponent builds an Item from a VEVENT or VTODO component.
func itemFromComponent(comp *ical.Component) (*Item, error) {
	var kind caldata.ItemType
	switch comp.Name {
	case ical.CompEvent:
		kind = caldata.ItemAppointment
	case ical.CompToDo:
		kind = caldata.ItemTask
	default:
		return nil, fmt.Errorf("unsupported component %q", comp.Name)
	}

	uid := propValue(comp, ical.PropUID)
	if uid == "" {
		return nil, fmt.Errorf("component without UID")
	}

	start, err := comp.Props.DateTime(ical.PropDateTimeStart, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("parse DTSTART: %w", err)
	}
	if start.IsZero() && comp.Name == ical.CompToDo {
		// Tasks may carry only a DUE instant.
		if due, err := comp.Props.DateTime(ical.PropDue, time.UTC); err == nil {
			start = due
		}
	}
	duration := time.Duration(0)
	if end, err := comp.Props.DateTime(ical.PropDateTimeEnd, time.UTC); err == nil && !end.IsZero() {
		duration = end.Sub(start)
	} else if durProp := comp.Props.Get(ical.PropDuration); durProp != nil {
		if d, err := durProp.Duration(); err == nil {
			duration = d
		}
	}

	invite := &store.Invite{
		InviteID:     1,
		Summary:      propValue(comp, ical.PropSummary),
		Location:     propValue(comp, ical.PropLocation),
		Description:  propValue(comp, ical.PropDescription),
		Organizer:    propValue(comp, ical.PropOrganizer),
		Status:       propValue(comp, ical.PropStatus),
		Class:        propValue(comp, ical.PropClass),
		Transparency: propValue(comp, ical.PropTransparency),
		Start:        start,
		Duration:     duration,
	}
	if frag := invite.Description; len(frag) > 100 {
		invite.Fragment = frag[:100]
	} else {
		invite.Fragment = frag
	}
	if prio := propValue(comp, ical.PropPriority); prio != "" {
		if p, err := strconv.Atoi(prio); err == nil {
			invite.Priority = p
		}
	}
	for _, att := range comp.Props.Values(ical.PropAttendee) {
		invite.Attendees = append(invite.Attendees, att.Value)
	}
	for _, child := range comp.Children {
		if child.Name != ical.CompAlarm {
			continue
		}
		if trigger := child.Props.Get(ical.PropTrigger); trigger != nil {
			if offset, err := trigger.Duration(); err == nil {
				invite.HasAlarm = true
				invite.AlarmOffset = -offset
			}
		}
	}

	item := &Item{
		kind:     kind,
		uid:      uid,
		isPublic: invite.Class != "PRIVATE" && invite.Class != "CONFIDENTIAL",
		invite:   invite,
	}
	if rruleProp := comp.Props.Get(ical.PropRecurrenceRule); rruleProp != nil && rruleProp.Value != "" {
		item.rruleStr = rruleProp.Value
	}
	return item, nil
}

func propValue(comp *ical.Component, name string) string {
	if prop := comp.Props.Get(name); prop != nil {
		return prop.Value
	}
	return ""
}

// Item implements store.Item over a parsed component.
type Item struct {
	id       int
	folderID int
	kind     caldata.ItemType
	uid      string
	isPublic bool
	modSeq   int
	invite   *store.Invite
	rruleStr string
}

var _ store.Item = (*Item)(nil)

func (i *Item) ID() int { return i.id }
func (i *Item) FolderID() int { return i.folderID }
func (i *Item) Kind() caldata.ItemType { return i.kind }
func (i *Item) Flags() string { return "" }
func (i *Item) Tags() []string { return nil }
func (i *Item) IsPublic() bool { return i.isPublic }
func (i *Item) UID() string { return i.uid }
func (i *Item) IsRecurring() bool { return i.rruleStr != "" }
func (i *Item) ModSeq() int { return i.modSeq }
func (i *Item) DefaultInvite() *store.Invite { return i.invite }

// Occurrences expands the item over [start, end). Non-recurring items
// yield at most their single occurrence.
func (i *Item) Occurrences(start, end time.Time) ([]store.Occurrence, error) {
	if i.rruleStr == "" {
		occ := store.Occurrence{Start: i.invite.Start, Duration: i.invite.Duration}
		inRange := occ.Start.Before(end) && occ.Start.Add(occ.Duration).After(start)
		if occ.Duration == 0 {
			// Instantaneous occurrence: include when the instant is in range.
			inRange = !occ.Start.Before(start) && occ.Start.Before(end)
		}
		if inRange {
			return []store.Occurrence{occ}, nil
		}
		return nil, nil
	}

	// rrule-go needs DTSTART alongside the rule; Between is inclusive of
	// start and exclusive of end.
	dtstart := i.invite.Start.UTC().Format("20060102T150405Z")
	ruleSet, err := rrule.StrToRRuleSet(fmt.Sprintf("DTSTART:%s\nRRULE:%s", dtstart, i.rruleStr))
	if err != nil {
		return nil, fmt.Errorf("parse RRULE %q: %w", i.rruleStr, err)
	}
	// Widen the window by the duration so occurrences straddling the
	// range start are included.
	starts := ruleSet.Between(start.Add(-i.invite.Duration), end, true)
	out := make([]store.Occurrence, 0, len(starts))
	for _, occStart := range starts {
		occEnd := occStart.Add(i.invite.Duration)
		if occStart.Before(end) && (occEnd.After(start) || (i.invite.Duration == 0 && !occStart.Before(start))) {
			out = append(out, store.Occurrence{Start: occStart, Duration: i.invite.Duration})
		}
	}
	return out, nil
}
