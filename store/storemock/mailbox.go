// Package storemock provides testify-based doubles for the store
// collaborator interfaces.
package storemock

import (
	"context"
	"time"

	"github.com/cyp0633/calsummary/caldata"
	"github.com/cyp0633/calsummary/store"
	"github.com/stretchr/testify/mock"
)

// Mailbox implements the store.Mailbox interface for testing
type Mailbox struct {
	mock.Mock
}

// IsLocal implements the Mailbox interface
func (m *Mailbox) IsLocal(accountID string) bool {
	args := m.Called(accountID)
	return args.Bool(0)
}

// FolderInfo implements the Mailbox interface
func (m *Mailbox) FolderInfo(ctx context.Context, accountID string, folderID int) (*store.FolderInfo, error) {
	args := m.Called(ctx, accountID, folderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.FolderInfo), args.Error(1)
}

// CalendarFolders implements the Mailbox interface
func (m *Mailbox) CalendarFolders(ctx context.Context, accountID string) ([]*store.FolderInfo, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.FolderInfo), args.Error(1)
}

// CalendarItemsInRange implements the Mailbox interface
func (m *Mailbox) CalendarItemsInRange(ctx context.Context, accountID string, folderID int, kind caldata.ItemType, start, end time.Time) ([]store.Item, error) {
	args := m.Called(ctx, accountID, folderID, kind, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Item), args.Error(1)
}

// CalendarItemByID implements the Mailbox interface
func (m *Mailbox) CalendarItemByID(ctx context.Context, accountID string, itemID int) (store.Item, error) {
	args := m.Called(ctx, accountID, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(store.Item), args.Error(1)
}

// Permissions implements the store.Permissions interface for testing
type Permissions struct {
	mock.Mock
}

// Effective implements the Permissions interface
func (m *Permissions) Effective(ctx context.Context, accountID string, folderID int) (store.Perms, error) {
	args := m.Called(ctx, accountID, folderID)
	return args.Get(0).(store.Perms), args.Error(1)
}

// Item is a plain-struct store.Item for tests that need item fixtures
// without mock plumbing.
type Item struct {
	ItemID    int
	Folder    int
	ItemKind  caldata.ItemType
	ItemFlags string
	ItemTags  []string
	Public    bool
	ItemUID   string
	Recur     bool
	Seq       int
	Invite    *store.Invite
	Occs      []store.Occurrence
}

var _ store.Item = (*Item)(nil)

func (i *Item) ID() int { return i.ItemID }
func (i *Item) FolderID() int { return i.Folder }
func (i *Item) Kind() caldata.ItemType { return i.ItemKind }
func (i *Item) Flags() string { return i.ItemFlags }
func (i *Item) Tags() []string { return i.ItemTags }
func (i *Item) IsPublic() bool { return i.Public }
func (i *Item) UID() string { return i.ItemUID }
func (i *Item) IsRecurring() bool { return i.Recur }
func (i *Item) ModSeq() int { return i.Seq }
func (i *Item) DefaultInvite() *store.Invite { return i.Invite }

// Occurrences filters the fixture occurrences down to [start, end).
func (i *Item) Occurrences(start, end time.Time) ([]store.Occurrence, error) {
	var out []store.Occurrence
	for _, occ := range i.Occs {
		occEnd := occ.Start.Add(occ.Duration)
		if occ.Start.Before(end) && occEnd.After(start) {
			out = append(out, occ)
		} else if occ.Duration == 0 && !occ.Start.Before(start) && occ.Start.Before(end) {
			out = append(out, occ)
		}
	}
	return out, nil
}
