// Package store declares the external collaborators the calendar summary
// cache reads from: the mailbox item store that owns folders, appointments
// and tasks, and the permission evaluator. Both are implemented elsewhere;
// the cache consumes them as interfaces. Please use the error types
// provided.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cyp0633/calsummary/caldata"
)

// Well-known folder ids every mailbox carries.
const (
	// FolderInbox receives calendar scheduling messages, so the folder
	// set always includes it.
	FolderInbox = 2
	// FolderTrash is where deleted folders are moved before purging.
	FolderTrash = 3
)

var (
	// ErrNotFound is returned when a requested account, folder or item
	// doesn't exist.
	ErrNotFound = errors.New("resource not found")
	// ErrPermissionDenied is returned when the caller may not read the
	// folder.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrStorageUnavailable is returned when the mailbox backend cannot
	// be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// FolderInfo is the folder metadata the cache needs: the two sequence
// numbers the ctag derives from, the default view, and mountpoint
// indirection.
type FolderInfo struct {
	ID       int
	ParentID int
	// ModSeq is the folder's last-modified sequence, the freshness token
	// every cached window validates against. It advances whenever the
	// folder itself or any item it contains changes.
	ModSeq int
	// IMAPModSeq is the IMAP-style mod-sequence; together with ModSeq it
	// determines the folder's ctag.
	IMAPModSeq int
	// View is the folder's default item view (appointment or task for
	// calendar folders).
	View caldata.ItemType
	Path string
	// RemoteAccount and RemoteFolder are set when the folder is a
	// mountpoint into another account's folder.
	RemoteAccount string
	RemoteFolder  int
}

// IsMountpoint reports whether the folder links to another account's folder.
func (f *FolderInfo) IsMountpoint() bool { return f.RemoteAccount != "" }

// IsCalendarView reports whether the folder holds calendar items.
func (f *FolderInfo) IsCalendarView() bool {
	return f.View == caldata.ItemAppointment || f.View == caldata.ItemTask
}

// Invite carries the organizer/attendee model of one invite component,
// consumed as opaque accessors when building cached instance records.
type Invite struct {
	InviteID     int
	ComponentNum int

	Summary      string
	Location     string
	Description  string
	Fragment     string
	Organizer    string
	Attendees    []string
	Status       string
	Class        string
	Priority     int
	AllDay       bool
	Transparency string

	Start    time.Time
	Duration time.Duration
	// AlarmOffset is how long before the occurrence start the alarm
	// fires; meaningful only when HasAlarm is set.
	AlarmOffset time.Duration
	HasAlarm    bool
}

// Occurrence is one expanded occurrence of an item. Override is non-nil for
// exception occurrences whose invite diverges from the series default.
type Occurrence struct {
	Start    time.Time
	Duration time.Duration
	// RecurrenceID is the original series time of the occurrence; zero
	// means it equals Start.
	RecurrenceID time.Time
	Override     *Invite
}

// Item is one appointment or task as presented by the mailbox, with its
// recurrence already expandable over a range.
type Item interface {
	ID() int
	FolderID() int
	Kind() caldata.ItemType
	Flags() string
	Tags() []string
	IsPublic() bool
	UID() string
	IsRecurring() bool
	// ModSeq is the item's last-modified sequence.
	ModSeq() int
	// DefaultInvite returns the series/master invite.
	DefaultInvite() *Invite
	// Occurrences expands the item over [start, end).
	Occurrences(start, end time.Time) ([]Occurrence, error)
}

// Mailbox is the authoritative item store the cache recomputes from.
type Mailbox interface {
	// IsLocal reports whether the account's mailbox is hosted on this
	// node. Summaries of remote mailboxes can only be served from the
	// distributed tier.
	IsLocal(accountID string) bool
	// FolderInfo retrieves a folder's metadata.
	FolderInfo(ctx context.Context, accountID string, folderID int) (*FolderInfo, error)
	// CalendarFolders lists all folders of the account whose view is a
	// calendar view.
	CalendarFolders(ctx context.Context, accountID string) ([]*FolderInfo, error)
	// CalendarItemsInRange enumerates the folder's items of the given
	// kind with at least one occurrence in [start, end).
	CalendarItemsInRange(ctx context.Context, accountID string, folderID int, kind caldata.ItemType, start, end time.Time) ([]Item, error)
	// CalendarItemByID fetches a single item; ErrNotFound when it no
	// longer exists.
	CalendarItemByID(ctx context.Context, accountID string, itemID int) (Item, error)
}

// Perms is the effective permission pair the cache checks per read.
type Perms struct {
	Read        bool
	ViewPrivate bool
}

// Permissions evaluates effective permissions for an (account, folder)
// pair. ACL semantics live entirely behind this interface.
type Permissions interface {
	Effective(ctx context.Context, accountID string, folderID int) (Perms, error)
}
