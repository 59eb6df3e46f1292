package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cyp0633/calsummary/backend"
	"github.com/cyp0633/calsummary/caldata"
	"github.com/cyp0633/calsummary/store"
)

// ErrInvalidRange is returned when a requested range is inverted or exceeds
// the configured maximum span.
var ErrInvalidRange = errors.New("invalid time range")

// SummaryCache serves pre-expanded calendar folder windows through the
// tiered lookup: in-process LRU, then distributed cache, then file
// persistence, then authoritative recompute from the mailbox. All tiers are
// re-derivable from the mailbox, so a lost or failed tier only costs a
// recompute, never correctness.
type SummaryCache struct {
	cfg     Config
	mailbox store.Mailbox
	perms   store.Permissions

	mem    *backend.Memory[caldata.FolderKey, *caldata.CalendarData]
	remote backend.Store[caldata.FolderKey, *caldata.CalendarData]
	files  *backend.File[caldata.FolderKey, *caldata.CalendarData]

	metrics *Metrics
	group   singleflight.Group
	logger  *slog.Logger
	now     func() time.Time
}

// NewSummaryCache wires the orchestrator over its tiers. remote and files
// may be nil when the deployment does not run those tiers; metrics may be
// nil; a nil logger selects slog.Default().
func NewSummaryCache(cfg Config, mailbox store.Mailbox, perms store.Permissions,
	mem *backend.Memory[caldata.FolderKey, *caldata.CalendarData],
	remote backend.Store[caldata.FolderKey, *caldata.CalendarData],
	files *backend.File[caldata.FolderKey, *caldata.CalendarData],
	metrics *Metrics, logger *slog.Logger) *SummaryCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &SummaryCache{
		cfg:     cfg,
		mailbox: mailbox,
		perms:   perms,
		mem:     mem,
		remote:  remote,
		files:   files,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// GetSummary returns the folder's expanded calendar window covering
// [start, end), plus whether the caller may see private item fields.
//
// kind selects appointments or tasks and should match the folder's default
// view, since entries are cached per folder; an empty kind falls back to the
// folder's view. With subRangeOnly the result is projected to exactly the
// requested range; otherwise the whole cached window is returned when it
// covers the request.
//
// A nil CalendarData with a nil error means no result: an unknown folder, or
// a remote mailbox absent from the distributed tier.
func (sc *SummaryCache) GetSummary(ctx context.Context, account string, folderID int, kind caldata.ItemType, start, end time.Time, subRangeOnly bool) (*caldata.CalendarData, bool, error) {
	req := caldata.Range{Start: start, End: end}
	if !req.Valid() || req.Duration() > sc.cfg.maxRangeSpan() {
		return nil, false, fmt.Errorf("%w: %s", ErrInvalidRange, req)
	}

	perms, err := sc.perms.Effective(ctx, account, folderID)
	if err != nil {
		return nil, false, fmt.Errorf("evaluate permissions: %w", err)
	}
	if !perms.Read {
		return nil, false, store.ErrPermissionDenied
	}
	allowPrivate := perms.ViewPrivate

	if !sc.cfg.Enabled {
		data, err := sc.directScan(ctx, account, folderID, kind, req)
		if err != nil || data == nil {
			return nil, false, err
		}
		sc.metrics.recordLookup(TierMiss)
		return data, allowPrivate, nil
	}

	key := caldata.FolderKey{Account: account, FolderID: folderID}

	// The distributed tier is probed first: for a mailbox hosted on another
	// node it is the only tier that can answer at all.
	if sc.remote != nil {
		if d, ok := sc.remote.Get(ctx, key); ok && d.StaleCount() == 0 && d.Range.Contains(req) {
			sc.metrics.recordLookup(TierDistributed)
			return sc.view(d, req, subRangeOnly), allowPrivate, nil
		}
	}
	if !sc.mailbox.IsLocal(account) {
		sc.metrics.recordLookup(TierMiss)
		return nil, false, nil
	}

	folder, err := sc.mailbox.FolderInfo(ctx, account, folderID)
	if errors.Is(err, store.ErrNotFound) {
		sc.metrics.recordLookup(TierMiss)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("folder lookup: %w", err)
	}
	if kind == "" {
		kind = folder.View
	}

	cur, tier := sc.probeLocal(ctx, key, folder.ModSeq)

	// A stale entry whose range still covers the request is kept aside: its
	// non-stale items can seed an incremental recompute.
	var reusable *caldata.CalendarData
	if cur != nil && cur.IsStaleFor(folder.ModSeq) {
		if cur.Range.Contains(req) {
			reusable = cur
		}
		cur = nil
		tier = TierMiss
	}

	if cur == nil {
		v, err, _ := sc.group.Do(key.StorageKey(), func() (any, error) {
			return sc.refresh(ctx, account, folder, kind, reusable)
		})
		if err != nil {
			return nil, false, err
		}
		cur = v.(*caldata.CalendarData)
	}

	if !cur.Range.Contains(req) {
		// The cached anchor window does not reach the requested range; the
		// window stays cached for future requests, but this read is served
		// by a scan scoped exactly to the request.
		data, err := sc.scan(ctx, account, folderID, kind, req, folder.ModSeq)
		if err != nil {
			return nil, false, err
		}
		sc.metrics.recordLookup(tier)
		return data, allowPrivate, nil
	}

	sc.metrics.recordLookup(tier)
	return sc.view(cur, req, subRangeOnly), allowPrivate, nil
}

func (sc *SummaryCache) view(d *caldata.CalendarData, req caldata.Range, subRangeOnly bool) *caldata.CalendarData {
	if subRangeOnly {
		return d.ProjectRange(req)
	}
	return d
}

// probeLocal checks the LRU and then the file tier. A memory entry newer
// than the live folder cannot be trusted and is dropped. A file hit is only
// accepted at exactly the current modSeq, and seeds the LRU.
func (sc *SummaryCache) probeLocal(ctx context.Context, key caldata.FolderKey, curModSeq int) (*caldata.CalendarData, Tier) {
	if d, ok := sc.mem.Get(ctx, key); ok {
		if d.ModSeq > curModSeq {
			sc.logger.Warn("cached summary newer than live folder, discarding",
				"account", key.Account, "folder", key.FolderID,
				"cached", d.ModSeq, "current", curModSeq)
			sc.mem.Remove(ctx, key)
		} else {
			return d, TierMemory
		}
	}
	if sc.files != nil {
		if d, ok := sc.files.GetAt(ctx, key, curModSeq); ok {
			sc.mem.Put(ctx, key, d)
			return d, TierFile
		}
	}
	return nil, TierMiss
}

// refresh rebuilds the folder's cached window and writes it through to all
// tiers. When reusable carries a small stale set the rebuild is incremental:
// non-stale items are reused and only the stale ids hit the mailbox.
func (sc *SummaryCache) refresh(ctx context.Context, account string, folder *store.FolderInfo, kind caldata.ItemType, reusable *caldata.CalendarData) (*caldata.CalendarData, error) {
	var data *caldata.CalendarData
	var err error
	if reusable != nil && reusable.StaleCount() > 0 && reusable.StaleCount() <= sc.cfg.MaxStaleForIncremental {
		data, err = sc.incremental(ctx, account, folder, kind, reusable)
	} else {
		data, err = sc.scan(ctx, account, folder.ID, kind, sc.anchorWindow(), folder.ModSeq)
	}
	if err != nil {
		return nil, err
	}
	key := caldata.FolderKey{Account: account, FolderID: folder.ID}
	sc.mem.Put(ctx, key, data)
	if sc.files != nil {
		sc.files.Put(ctx, key, data)
	}
	if sc.remote != nil {
		sc.remote.Put(ctx, key, data)
	}
	return data, nil
}

// incremental rebuilds over the reusable entry's range: every non-stale item
// is carried over unchanged, each stale id is re-fetched and re-expanded.
// A stale id that no longer resolves, or resolves into another folder, was
// deleted or moved and simply drops out.
func (sc *SummaryCache) incremental(ctx context.Context, account string, folder *store.FolderInfo, kind caldata.ItemType, reusable *caldata.CalendarData) (*caldata.CalendarData, error) {
	data := caldata.NewCalendarData(folder.ID, folder.ModSeq, reusable.Range)
	staleIDs := reusable.StaleIDs()
	stale := make(map[int]struct{}, len(staleIDs))
	for _, id := range staleIDs {
		stale[id] = struct{}{}
	}
	for _, item := range reusable.Items {
		if _, isStale := stale[item.ID]; !isStale {
			data.AddItem(item)
		}
	}
	now := sc.now()
	for _, id := range staleIDs {
		item, err := sc.mailbox.CalendarItemByID(ctx, account, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("refetch item %d: %w", id, err)
		}
		if item.FolderID() != folder.ID || (kind != "" && item.Kind() != kind) {
			continue
		}
		ci, err := buildItem(item, data.Range, now)
		if err != nil {
			return nil, err
		}
		if ci != nil {
			data.AddItem(ci)
		}
	}
	return data, nil
}

// scan is the authoritative full rebuild: enumerate the folder's items over
// the window and expand each one.
func (sc *SummaryCache) scan(ctx context.Context, account string, folderID int, kind caldata.ItemType, window caldata.Range, modSeq int) (*caldata.CalendarData, error) {
	items, err := sc.mailbox.CalendarItemsInRange(ctx, account, folderID, kind, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("folder scan: %w", err)
	}
	data := caldata.NewCalendarData(folderID, modSeq, window)
	now := sc.now()
	for _, item := range items {
		ci, err := buildItem(item, window, now)
		if err != nil {
			return nil, err
		}
		if ci != nil {
			data.AddItem(ci)
		}
	}
	return data, nil
}

// directScan serves a read without touching any cache tier, used when
// caching is disabled. A nil result means the folder does not exist.
func (sc *SummaryCache) directScan(ctx context.Context, account string, folderID int, kind caldata.ItemType, req caldata.Range) (*caldata.CalendarData, error) {
	folder, err := sc.mailbox.FolderInfo(ctx, account, folderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("folder lookup: %w", err)
	}
	if kind == "" {
		kind = folder.View
	}
	return sc.scan(ctx, account, folderID, kind, req, folder.ModSeq)
}

// anchorWindow is the month-aligned default window the cache eagerly
// maintains around the current time.
func (sc *SummaryCache) anchorWindow() caldata.Range {
	now := sc.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return caldata.Range{
		Start: monthStart.AddDate(0, -sc.cfg.AnchorMonthsBefore, 0),
		End:   monthStart.AddDate(0, sc.cfg.AnchorMonthsAfter+1, 0),
	}
}

// InvalidateFolder evicts the folder's entry from every tier.
func (sc *SummaryCache) InvalidateFolder(ctx context.Context, account string, folderID int) {
	key := caldata.FolderKey{Account: account, FolderID: folderID}
	sc.mem.Remove(ctx, key)
	if sc.files != nil {
		sc.files.Remove(ctx, key)
	}
	if sc.remote != nil {
		sc.remote.Remove(ctx, key)
	}
}

// InvalidateItem marks a single item stale instead of evicting the whole
// folder, so the next read can refresh incrementally. folderID zero means
// the containing folder is unknown; the account's cached folders are
// searched for the item. Crossing the eviction threshold evicts the folder
// entry everywhere.
func (sc *SummaryCache) InvalidateItem(ctx context.Context, account string, folderID, itemID int) {
	if folderID > 0 {
		sc.markStale(ctx, caldata.FolderKey{Account: account, FolderID: folderID}, itemID)
		return
	}
	for _, key := range sc.mem.AccountKeys(account) {
		if d, ok := sc.mem.Get(ctx, key); ok {
			if _, has := d.Item(itemID); has {
				sc.markStale(ctx, key, itemID)
			}
		}
	}
}

// markStale records the stale id in the in-process entry and drops the
// distributed copy, which cannot be patched remotely. The file tier needs no
// action: its blobs are validated against the folder's live modSeq on read.
func (sc *SummaryCache) markStale(ctx context.Context, key caldata.FolderKey, itemID int) {
	if sc.remote != nil {
		sc.remote.Remove(ctx, key)
	}
	d, ok := sc.mem.Get(ctx, key)
	if !ok {
		return
	}
	d.MarkStale(itemID)
	if d.StaleCount() > sc.cfg.StaleEvictThreshold {
		sc.logger.Debug("stale set over threshold, evicting folder entry",
			"account", key.Account, "folder", key.FolderID, "stale", d.StaleCount())
		sc.InvalidateFolder(ctx, key.Account, key.FolderID)
	}
}

// PurgeAccount drops every cached summary of the account from all tiers.
func (sc *SummaryCache) PurgeAccount(ctx context.Context, account string) {
	sc.mem.RemoveAccount(ctx, account)
	if sc.files != nil {
		sc.files.RemoveAccount(ctx, account)
	}
	if sc.remote != nil {
		sc.remote.RemoveAccount(ctx, account)
	}
}

// CachedFolders returns the account's folder ids currently held in the
// in-process tier.
func (sc *SummaryCache) CachedFolders(account string) []int {
	keys := sc.mem.AccountKeys(account)
	ids := make([]int, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, key.FolderID)
	}
	return ids
}

// Stats reports the in-process tier's counters.
func (sc *SummaryCache) Stats() backend.MemoryStats {
	return sc.mem.Stats()
}
