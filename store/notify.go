package store

import (
	"context"

	"github.com/cyp0633/calsummary/caldata"
)

// EntryKind classifies what a change-notification entry refers to.
type EntryKind int

const (
	EntryFolder EntryKind = iota
	EntryAppointment
	EntryTask
	EntryMessage
)

// String provides a human-readable representation for logging.
func (k EntryKind) String() string {
	switch k {
	case EntryFolder:
		return "folder"
	case EntryAppointment:
		return "appointment"
	case EntryTask:
		return "task"
	case EntryMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Change is the "what changed" bitmask attached to modification entries.
type Change uint32

const (
	// ChangeContent covers any change to the entry's own data.
	ChangeContent Change = 1 << iota
	// ChangeFolder marks a folder-membership change: the entry moved to
	// a different parent folder.
	ChangeFolder
	// ChangeName marks a rename.
	ChangeName
	// ChangeView marks a folder whose default view changed, which can
	// turn an ordinary folder into a calendar folder or back.
	ChangeView
)

// Has reports whether all bits of flag are set.
func (c Change) Has(flag Change) bool { return c&flag == flag }

// ChangedEntry is one entry of a notification batch, tagged with the
// account it belongs to.
type ChangedEntry struct {
	Account string
	ID      int
	Kind    EntryKind
	// FolderID is the containing folder for items, the parent folder for
	// folders. For deletions it may be zero when the prior location is
	// no longer known.
	FolderID int
	// View is the folder's default view; set for folder entries only.
	View caldata.ItemType
	// Changes is the modification bitmask; zero for creations and
	// deletions.
	Changes Change
	// HasCalendarPart marks messages that carry calendar scheduling
	// metadata (invites, replies).
	HasCalendarPart bool
}

// Notification is one mailbox change batch, grouped by operation. A batch
// may span accounts; every entry carries its own account id.
type Notification struct {
	Created  []ChangedEntry
	Modified []ChangedEntry
	Deleted  []ChangedEntry
}

// Accounts returns the distinct account ids touched by the batch.
func (n *Notification) Accounts() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, group := range [][]ChangedEntry{n.Created, n.Modified, n.Deleted} {
		for _, e := range group {
			if _, ok := seen[e.Account]; !ok {
				seen[e.Account] = struct{}{}
				out = append(out, e.Account)
			}
		}
	}
	return out
}

// ChangeListener receives mailbox change batches. Implementations must not
// block the mailbox commit that triggered the notification; failures are
// theirs to log and absorb.
type ChangeListener interface {
	Notify(ctx context.Context, n *Notification)
}
