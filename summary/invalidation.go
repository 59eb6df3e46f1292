package summary

import (
	"context"
	"log/slog"

	"github.com/cyp0633/calsummary/caldata"
	"github.com/cyp0633/calsummary/store"
)

// Invalidator translates mailbox change batches into targeted cache
// invalidations: folder-set membership updates, ctag evictions, and
// per-item stale markers in the summary cache. It runs on the mailbox's
// notification path, so it never returns an error and never blocks on a
// failed eviction; a missed invalidation only delays freshness until the
// next modSeq validation.
type Invalidator struct {
	summaries  *SummaryCache
	ctags      *CtagLookup
	folderSets *FolderSetCache
	responses  *ResponseCache
	logger     *slog.Logger
}

var _ store.ChangeListener = (*Invalidator)(nil)

// NewInvalidator wires the listener over the cache kinds it maintains.
func NewInvalidator(summaries *SummaryCache, ctags *CtagLookup, folderSets *FolderSetCache, responses *ResponseCache, logger *slog.Logger) *Invalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invalidator{
		summaries:  summaries,
		ctags:      ctags,
		folderSets: folderSets,
		responses:  responses,
		logger:     logger,
	}
}

// Notify implements store.ChangeListener.
func (inv *Invalidator) Notify(ctx context.Context, n *store.Notification) {
	for _, e := range n.Created {
		inv.created(ctx, e)
	}
	for _, e := range n.Modified {
		inv.modified(ctx, e)
	}
	for _, e := range n.Deleted {
		inv.deleted(ctx, e)
	}
}

func calendarView(view caldata.ItemType) bool {
	return view == caldata.ItemAppointment || view == caldata.ItemTask
}

func (inv *Invalidator) created(ctx context.Context, e store.ChangedEntry) {
	switch e.Kind {
	case store.EntryFolder:
		if calendarView(e.View) && e.FolderID != store.FolderTrash {
			inv.folderSets.AddFolder(ctx, e.Account, e.ID)
		}
	case store.EntryAppointment, store.EntryTask:
		inv.itemChanged(ctx, e)
	case store.EntryMessage:
		inv.messageChanged(ctx, e)
	}
}

func (inv *Invalidator) modified(ctx context.Context, e store.ChangedEntry) {
	switch e.Kind {
	case store.EntryFolder:
		inv.folderModified(ctx, e)
	case store.EntryAppointment, store.EntryTask:
		inv.itemChanged(ctx, e)
	case store.EntryMessage:
		inv.messageChanged(ctx, e)
	}
}

func (inv *Invalidator) deleted(ctx context.Context, e store.ChangedEntry) {
	switch e.Kind {
	case store.EntryFolder:
		inv.folderGone(ctx, e.Account, e.ID)
	case store.EntryAppointment, store.EntryTask:
		inv.summaries.InvalidateItem(ctx, e.Account, e.FolderID, e.ID)
		if e.FolderID > 0 {
			inv.folderTouched(ctx, e.Account, e.FolderID)
		} else {
			// The prior location is gone from the notification; evicting
			// the account's ctags is cheaper than serving a stale tag.
			inv.ctags.PurgeAccount(ctx, e.Account)
		}
	case store.EntryMessage:
		if e.HasCalendarPart {
			inv.folderTouched(ctx, e.Account, store.FolderInbox)
		}
	}
}

// folderModified classifies a modified folder entry. A move into the trash
// counts as deletion; a view change can turn an ordinary folder into a
// calendar folder or back.
func (inv *Invalidator) folderModified(ctx context.Context, e store.ChangedEntry) {
	if e.Changes.Has(store.ChangeFolder) && e.FolderID == store.FolderTrash {
		inv.folderGone(ctx, e.Account, e.ID)
		return
	}
	if e.Changes.Has(store.ChangeView) {
		if calendarView(e.View) {
			inv.folderSets.AddFolder(ctx, e.Account, e.ID)
		} else {
			inv.folderGone(ctx, e.Account, e.ID)
			return
		}
	}
	if e.Changes.Has(store.ChangeFolder) || e.Changes.Has(store.ChangeName) {
		// Membership is intact but cached paths and parents are not.
		inv.folderSets.IncrementSequence(ctx, e.Account)
	}
	inv.folderTouched(ctx, e.Account, e.ID)
}

// itemChanged covers created and modified calendar items: the item is
// marked stale in its folder's summary entry, and the folder's derived
// entries are evicted. A folder-membership change also pokes whichever
// cached folder still lists the item under its old location.
func (inv *Invalidator) itemChanged(ctx context.Context, e store.ChangedEntry) {
	inv.summaries.InvalidateItem(ctx, e.Account, e.FolderID, e.ID)
	if e.FolderID > 0 {
		inv.folderTouched(ctx, e.Account, e.FolderID)
	}
	if e.Changes.Has(store.ChangeFolder) {
		inv.summaries.InvalidateItem(ctx, e.Account, 0, e.ID)
		inv.ctags.PurgeAccount(ctx, e.Account)
	}
}

// messageChanged reacts to messages carrying calendar scheduling metadata.
// Only the Inbox matters to calendaring: an invite landing in or leaving it
// changes what scheduling clients should see.
func (inv *Invalidator) messageChanged(ctx context.Context, e store.ChangedEntry) {
	if !e.HasCalendarPart {
		return
	}
	if e.FolderID == store.FolderInbox || e.Changes.Has(store.ChangeFolder) {
		inv.folderTouched(ctx, e.Account, store.FolderInbox)
	}
}

// folderGone removes the folder from every cache kind, including the
// membership set.
func (inv *Invalidator) folderGone(ctx context.Context, account string, folderID int) {
	inv.folderSets.RemoveFolder(ctx, account, folderID)
	inv.summaries.InvalidateFolder(ctx, account, folderID)
	inv.folderTouched(ctx, account, folderID)
}

// folderTouched evicts the folder's cheap derived entries: its ctag and any
// pre-rendered responses.
func (inv *Invalidator) folderTouched(ctx context.Context, account string, folderID int) {
	inv.ctags.Remove(ctx, account, folderID)
	inv.responses.InvalidateFolder(ctx, account, folderID)
}
