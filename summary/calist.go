package summary

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cyp0633/calsummary/backend"
	"github.com/cyp0633/calsummary/caldata"
	"github.com/cyp0633/calsummary/store"
)

// FolderSetCache maintains the per-account calendar folder set and its
// version counter. Sets are immutable values; every mutation stores a fresh
// copy with the version advanced, so readers never observe a half-updated
// membership. A process-local mutex serializes the read-modify-write
// updates.
type FolderSetCache struct {
	store   backend.Store[caldata.AccountKey, caldata.CalendarFolderSet]
	mailbox store.Mailbox
	logger  *slog.Logger

	mu sync.Mutex
}

// NewFolderSetCache wires the folder-set cache over its backend.
func NewFolderSetCache(backing backend.Store[caldata.AccountKey, caldata.CalendarFolderSet], mailbox store.Mailbox, logger *slog.Logger) *FolderSetCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &FolderSetCache{store: backing, mailbox: mailbox, logger: logger}
}

// Get returns the account's folder set, seeding it from the mailbox on a
// miss. The set always includes the Inbox, where scheduling messages land.
func (fc *FolderSetCache) Get(ctx context.Context, account string) (caldata.CalendarFolderSet, error) {
	key := caldata.AccountKey{Account: account}
	if set, ok := fc.store.Get(ctx, key); ok {
		return set, nil
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if set, ok := fc.store.Get(ctx, key); ok {
		return set, nil
	}
	folders, err := fc.mailbox.CalendarFolders(ctx, account)
	if err != nil {
		return caldata.CalendarFolderSet{}, fmt.Errorf("list calendar folders: %w", err)
	}
	ids := make([]int, 0, len(folders)+1)
	ids = append(ids, store.FolderInbox)
	for _, folder := range folders {
		ids = append(ids, folder.ID)
	}
	set := caldata.NewCalendarFolderSet(account, ids)
	fc.store.Put(ctx, key, set)
	return set, nil
}

// AddFolder records a new calendar folder and advances the version. Nothing
// happens when the account's set is not cached yet; the next Get seeds it
// from the mailbox, which already includes the folder.
func (fc *FolderSetCache) AddFolder(ctx context.Context, account string, folderID int) {
	fc.update(ctx, account, func(set caldata.CalendarFolderSet) caldata.CalendarFolderSet {
		return set.WithFolder(folderID)
	})
}

// RemoveFolder drops a folder from the set and advances the version.
func (fc *FolderSetCache) RemoveFolder(ctx context.Context, account string, folderID int) {
	fc.update(ctx, account, func(set caldata.CalendarFolderSet) caldata.CalendarFolderSet {
		return set.WithoutFolder(folderID)
	})
}

// IncrementSequence advances the version without changing membership, used
// when folder contents changed in a way polling clients must notice.
func (fc *FolderSetCache) IncrementSequence(ctx context.Context, account string) {
	fc.update(ctx, account, func(set caldata.CalendarFolderSet) caldata.CalendarFolderSet {
		return set.WithNextVersion()
	})
}

// PurgeAccount drops the account's folder set.
func (fc *FolderSetCache) PurgeAccount(ctx context.Context, account string) {
	fc.store.RemoveAccount(ctx, account)
}

func (fc *FolderSetCache) update(ctx context.Context, account string, mutate func(caldata.CalendarFolderSet) caldata.CalendarFolderSet) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	key := caldata.AccountKey{Account: account}
	set, ok := fc.store.Get(ctx, key)
	if !ok {
		return
	}
	next := mutate(set)
	if next.VersionSeq == set.VersionSeq {
		return
	}
	fc.store.Put(ctx, key, next)
}
