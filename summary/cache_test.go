package summary

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/calsummary/backend"
	"github.com/cyp0633/calsummary/caldata"
	"github.com/cyp0633/calsummary/store"
	"github.com/cyp0633/calsummary/store/storemock"
)

var fixedNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

// The month-aligned anchor window around fixedNow under DefaultConfig.
var (
	anchorStart = time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	anchorEnd   = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type cacheFixture struct {
	mailbox *storemock.Mailbox
	perms   *storemock.Permissions
	mem     *backend.Memory[caldata.FolderKey, *caldata.CalendarData]
	cache   *SummaryCache
}

func newCacheFixture(cfg Config) *cacheFixture {
	f := &cacheFixture{
		mailbox: new(storemock.Mailbox),
		perms:   new(storemock.Permissions),
		mem:     backend.NewMemory[caldata.FolderKey, *caldata.CalendarData](cfg.LRUCapacity),
	}
	f.cache = NewSummaryCache(cfg, f.mailbox, f.perms, f.mem, nil, nil, nil, discardLogger())
	f.cache.now = func() time.Time { return fixedNow }
	return f
}

func (f *cacheFixture) allowAll() {
	f.perms.On("Effective", mock.Anything, mock.Anything, mock.Anything).
		Return(store.Perms{Read: true, ViewPrivate: true}, nil)
}

func (f *cacheFixture) localFolder(account string, folderID, modSeq int) {
	f.mailbox.On("IsLocal", account).Return(true)
	f.mailbox.On("FolderInfo", mock.Anything, account, folderID).
		Return(&store.FolderInfo{
			ID: folderID, ParentID: 1, ModSeq: modSeq, IMAPModSeq: modSeq,
			View: caldata.ItemAppointment, Path: "/Calendar",
		}, nil)
}

// appt builds a one-hour appointment fixture in folder 10.
func appt(id int, start time.Time, summary string) *storemock.Item {
	return &storemock.Item{
		ItemID: id, Folder: 10, ItemKind: caldata.ItemAppointment,
		Public: true, ItemUID: fmt.Sprintf("uid-%d", id), Seq: 1,
		Invite: &store.Invite{
			InviteID: id*10 + 1, ComponentNum: 0,
			Summary: summary, Start: start, Duration: time.Hour,
		},
		Occs: []store.Occurrence{{Start: start, Duration: time.Hour}},
	}
}

func itemIDs(d *caldata.CalendarData) []int {
	ids := make([]int, 0, d.NumItems())
	for _, item := range d.Items {
		ids = append(ids, item.ID)
	}
	sort.Ints(ids)
	return ids
}

func TestGetSummaryInvalidRange(t *testing.T) {
	f := newCacheFixture(DefaultConfig)

	_, _, err := f.cache.GetSummary(context.Background(), "acct", 10, caldata.ItemAppointment,
		fixedNow, fixedNow.Add(-time.Hour), false)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, _, err = f.cache.GetSummary(context.Background(), "acct", 10, caldata.ItemAppointment,
		fixedNow, fixedNow.AddDate(0, 0, DefaultConfig.MaxRangeDays+1), false)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestGetSummaryPermissionDenied(t *testing.T) {
	f := newCacheFixture(DefaultConfig)
	f.perms.On("Effective", mock.Anything, "acct", 10).
		Return(store.Perms{Read: false}, nil)

	_, _, err := f.cache.GetSummary(context.Background(), "acct", 10, caldata.ItemAppointment,
		fixedNow, fixedNow.AddDate(0, 0, 7), false)
	assert.ErrorIs(t, err, store.ErrPermissionDenied)
	f.perms.AssertExpectations(t)
}

func TestGetSummaryUnknownFolder(t *testing.T) {
	f := newCacheFixture(DefaultConfig)
	f.allowAll()
	f.mailbox.On("IsLocal", "acct").Return(true)
	f.mailbox.On("FolderInfo", mock.Anything, "acct", 99).
		Return(nil, store.ErrNotFound)

	data, _, err := f.cache.GetSummary(context.Background(), "acct", 99, caldata.ItemAppointment,
		fixedNow, fixedNow.AddDate(0, 0, 7), false)
	require.NoError(t, err)
	assert.Nil(t, data, "unknown folder is an explicit no-result")
}

func TestGetSummaryScanThenMemoryHit(t *testing.T) {
	f := newCacheFixture(DefaultConfig)
	f.allowAll()
	f.localFolder("acct", 10, 5)
	jan10 := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	jan20 := time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)
	f.mailbox.On("CalendarItemsInRange", mock.Anything, "acct", 10, caldata.ItemAppointment,
		anchorStart, anchorEnd).
		Return([]store.Item{appt(41, jan10, "standup"), appt(42, jan20, "review")}, nil).Once()

	ctx := context.Background()
	reqStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reqEnd := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	first, allowPrivate, err := f.cache.GetSummary(ctx, "acct", 10, caldata.ItemAppointment, reqStart, reqEnd, false)
	require.NoError(t, err)
	assert.True(t, allowPrivate)
	assert.Equal(t, []int{41, 42}, itemIDs(first))
	assert.Equal(t, 5, first.ModSeq)
	assert.True(t, first.Range.Equal(caldata.Range{Start: anchorStart, End: anchorEnd}))

	// Second read must come straight from the LRU: the single Once scan
	// expectation enforces no further mailbox enumeration.
	second, _, err := f.cache.GetSummary(ctx, "acct", 10, caldata.ItemAppointment, reqStart, reqEnd, false)
	require.NoError(t, err)
	assert.Same(t, first, second)

	// Sub-range projection keeps only the intersecting item.
	sub, _, err := f.cache.GetSummary(ctx, "acct", 10, caldata.ItemAppointment,
		reqStart, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true)
	require.NoError(t, err)
	assert.Equal(t, []int{41}, itemIDs(sub))
	assert.True(t, sub.Range.Equal(caldata.Range{Start: reqStart, End: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)}))

	f.mailbox.AssertExpectations(t)
}

func TestGetSummaryStaleItemIncrementalRefetch(t *testing.T) {
	f := newCacheFixture(DefaultConfig)
	f.allowAll()
	f.localFolder("acct", 10, 5)
	jan10 := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	jan20 := time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)
	f.mailbox.On("CalendarItemsInRange", mock.Anything, "acct", 10, caldata.ItemAppointment,
		anchorStart, anchorEnd).
		Return([]store.Item{appt(41, jan10, "standup"), appt(42, jan20, "review")}, nil).Once()

	ctx := context.Background()
	reqStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reqEnd := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	_, _, err := f.cache.GetSummary(ctx, "acct", 10, caldata.ItemAppointment, reqStart, reqEnd, false)
	require.NoError(t, err)

	// Item 42 changes; only it may be re-fetched.
	f.cache.InvalidateItem(ctx, "acct", 10, 42)
	moved := appt(42, jan20.Add(2*time.Hour), "review moved")
	f.mailbox.On("CalendarItemByID", mock.Anything, "acct", 42).Return(moved, nil).Once()

	data, _, err := f.cache.GetSummary(ctx, "acct", 10, caldata.ItemAppointment, reqStart, reqEnd, false)
	require.NoError(t, err)
	assert.Equal(t, []int{41, 42}, itemIDs(data))
	assert.Zero(t, data.StaleCount())
	got, ok := data.Item(42)
	require.True(t, ok)
	assert.Equal(t, "review moved", got.Default.Summary.OrEmpty())

	f.mailbox.AssertExpectations(t)
}

func TestGetSummaryStaleItemDeletedDropsOut(t *testing.T) {
	f := newCacheFixture(DefaultConfig)
	f.allowAll()
	f.localFolder("acct", 10, 5)
	jan10 := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	jan20 := time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)
	f.mailbox.On("CalendarItemsInRange", mock.Anything, "acct", 10, caldata.ItemAppointment,
		anchorStart, anchorEnd).
		Return([]store.Item{appt(41, jan10, "standup"), appt(42, jan20, "review")}, nil).Once()

	ctx := context.Background()
	reqStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reqEnd := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	_, _, err := f.cache.GetSummary(ctx, "acct", 10, caldata.ItemAppointment, reqStart, reqEnd, false)
	require.NoError(t, err)

	f.cache.InvalidateItem(ctx, "acct", 10, 42)
	f.mailbox.On("CalendarItemByID", mock.Anything, "acct", 42).
		Return(nil, store.ErrNotFound).Once()

	data, _, err := f.cache.GetSummary(ctx, "acct", 10, caldata.ItemAppointment, reqStart, reqEnd, false)
	require.NoError(t, err)
	assert.Equal(t, []int{41}, itemIDs(data))

	f.mailbox.AssertExpectations(t)
}

func TestGetSummaryThresholdEvictsWholeFolder(t *testing.T) {
	cfg := DefaultConfig
	cfg.StaleEvictThreshold = 2
	f := newCacheFixture(cfg)
	f.allowAll()
	f.localFolder("acct", 10, 5)
	jan10 := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	f.mailbox.On("CalendarItemsInRange", mock.Anything, "acct", 10, caldata.ItemAppointment,
		anchorStart, anchorEnd).
		Return([]store.Item{appt(41, jan10, "standup")}, nil).Twice()

	ctx := context.Background()
	reqStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reqEnd := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	_, _, err := f.cache.GetSummary(ctx, "acct", 10, caldata.ItemAppointment, reqStart, reqEnd, false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.mem.Len())

	// Crossing the threshold gives up on per-item tracking.
	f.cache.InvalidateItem(ctx, "acct", 10, 101)
	f.cache.InvalidateItem(ctx, "acct", 10, 102)
	f.cache.InvalidateItem(ctx, "acct", 10, 103)
	assert.Equal(t, 0, f.mem.Len())

	// The next read is a full scan, not an incremental refetch.
	_, _, err = f.cache.GetSummary(ctx, "acct", 10, caldata.ItemAppointment, reqStart, reqEnd, false)
	require.NoError(t, err)
	f.mailbox.AssertExpectations(t)
}

func TestGetSummaryNeverServesFromTheFuture(t *testing.T) {
	f := newCacheFixture(DefaultConfig)
	f.allowAll()
	f.localFolder("acct", 10, 5)
	f.mailbox.On("CalendarItemsInRange", mock.Anything, "acct", 10, caldata.ItemAppointment,
		anchorStart, anchorEnd).
		Return([]store.Item{}, nil).Once()

	// An entry claiming a modSeq ahead of the live folder must be dropped.
	future := caldata.NewCalendarData(10, 99, caldata.Range{Start: anchorStart, End: anchorEnd})
	f.mem.Put(context.Background(), caldata.FolderKey{Account: "acct", FolderID: 10}, future)

	data, _, err := f.cache.GetSummary(context.Background(), "acct", 10, caldata.ItemAppointment,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	assert.Equal(t, 5, data.ModSeq)
	f.mailbox.AssertExpectations(t)
}

func TestGetSummaryOutdatedModSeqTriggersFullScan(t *testing.T) {
	f := newCacheFixture(DefaultConfig)
	f.allowAll()
	f.localFolder("acct", 10, 5)
	f.mailbox.On("CalendarItemsInRange", mock.Anything, "acct", 10, caldata.ItemAppointment,
		anchorStart, anchorEnd).
		Return([]store.Item{}, nil).Once()

	// Behind the live folder with no stale ids tracked: nothing says what
	// changed, so the entry cannot seed an incremental rebuild.
	outdated := caldata.NewCalendarData(10, 4, caldata.Range{Start: anchorStart, End: anchorEnd})
	f.mem.Put(context.Background(), caldata.FolderKey{Account: "acct", FolderID: 10}, outdated)

	data, _, err := f.cache.GetSummary(context.Background(), "acct", 10, caldata.ItemAppointment,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	assert.Equal(t, 5, data.ModSeq)
	f.mailbox.AssertExpectations(t)
}

func TestGetSummaryRemoteMailboxMiss(t *testing.T) {
	f := newCacheFixture(DefaultConfig)
	f.allowAll()
	f.mailbox.On("IsLocal", "other").Return(false)

	data, _, err := f.cache.GetSummary(context.Background(), "other", 10, caldata.ItemAppointment,
		fixedNow, fixedNow.AddDate(0, 0, 7), false)
	require.NoError(t, err)
	assert.Nil(t, data)
	f.mailbox.AssertExpectations(t)
}

func TestGetSummaryDistributedShortCircuit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	remote := backend.NewRedis[caldata.FolderKey, *caldata.CalendarData](
		client, "test:data", backend.JSONCodec[*caldata.CalendarData](), 0, 0, discardLogger())

	mailbox := new(storemock.Mailbox)
	perms := new(storemock.Permissions)
	perms.On("Effective", mock.Anything, mock.Anything, mock.Anything).
		Return(store.Perms{Read: true}, nil)
	mem := backend.NewMemory[caldata.FolderKey, *caldata.CalendarData](10)
	metrics := NewMetrics(nil)
	cache := NewSummaryCache(DefaultConfig, mailbox, perms, mem, remote, nil, metrics, discardLogger())
	cache.now = func() time.Time { return fixedNow }

	ctx := context.Background()
	window := caldata.Range{Start: anchorStart, End: anchorEnd}
	seeded := caldata.NewCalendarData(10, 7, window)
	remote.Put(ctx, caldata.FolderKey{Account: "other", FolderID: 10}, seeded)

	// The mailbox mock has no expectations: a remote hit must not consult
	// it at all, not even for IsLocal.
	data, _, err := cache.GetSummary(ctx, "other", 10, caldata.ItemAppointment,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, 7, data.ModSeq)
	assert.True(t, data.Range.Equal(window))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.LookupCounter(TierDistributed)))
	mailbox.AssertExpectations(t)
}

func TestGetSummaryFileTierSeedsLRU(t *testing.T) {
	dir := t.TempDir()
	newFiles := func() *backend.File[caldata.FolderKey, *caldata.CalendarData] {
		files, err := backend.NewFile[caldata.FolderKey, *caldata.CalendarData](
			dir, 16, backend.JSONCodec[*caldata.CalendarData](),
			func(d *caldata.CalendarData) int { return d.ModSeq }, discardLogger())
		require.NoError(t, err)
		return files
	}

	jan10 := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	build := func() *cacheFixture {
		f := newCacheFixture(DefaultConfig)
		f.cache.files = newFiles()
		f.allowAll()
		f.localFolder("acct", 10, 5)
		return f
	}

	ctx := context.Background()
	reqStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reqEnd := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	first := build()
	first.mailbox.On("CalendarItemsInRange", mock.Anything, "acct", 10, caldata.ItemAppointment,
		anchorStart, anchorEnd).
		Return([]store.Item{appt(41, jan10, "standup")}, nil).Once()
	_, _, err := first.cache.GetSummary(ctx, "acct", 10, caldata.ItemAppointment, reqStart, reqEnd, false)
	require.NoError(t, err)

	// A fresh process with a cold LRU reads the persisted window instead of
	// scanning; no CalendarItemsInRange expectation is registered.
	second := build()
	data, _, err := second.cache.GetSummary(ctx, "acct", 10, caldata.ItemAppointment, reqStart, reqEnd, false)
	require.NoError(t, err)
	assert.Equal(t, []int{41}, itemIDs(data))
	assert.Equal(t, 1, second.mem.Len(), "file hit seeds the LRU")
	second.mailbox.AssertExpectations(t)
}

func TestGetSummaryRequestOutsideAnchorWindow(t *testing.T) {
	f := newCacheFixture(DefaultConfig)
	f.allowAll()
	f.localFolder("acct", 10, 5)

	reqStart := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	reqEnd := time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)
	aug5 := time.Date(2024, 8, 5, 9, 0, 0, 0, time.UTC)
	f.mailbox.On("CalendarItemsInRange", mock.Anything, "acct", 10, caldata.ItemAppointment,
		anchorStart, anchorEnd).
		Return([]store.Item{}, nil).Once()
	f.mailbox.On("CalendarItemsInRange", mock.Anything, "acct", 10, caldata.ItemAppointment,
		reqStart, reqEnd).
		Return([]store.Item{appt(77, aug5, "offsite")}, nil).Once()

	data, _, err := f.cache.GetSummary(context.Background(), "acct", 10, caldata.ItemAppointment,
		reqStart, reqEnd, false)
	require.NoError(t, err)
	assert.Equal(t, []int{77}, itemIDs(data))
	assert.True(t, data.Range.Equal(caldata.Range{Start: reqStart, End: reqEnd}))

	// The anchor window stays cached for future in-window requests.
	cached, ok := f.mem.Get(context.Background(), caldata.FolderKey{Account: "acct", FolderID: 10})
	require.True(t, ok)
	assert.True(t, cached.Range.Equal(caldata.Range{Start: anchorStart, End: anchorEnd}))
	f.mailbox.AssertExpectations(t)
}

func TestGetSummaryDisabledBypassesAllTiers(t *testing.T) {
	cfg := DefaultConfig
	cfg.Enabled = false
	f := newCacheFixture(cfg)
	f.allowAll()
	f.mailbox.On("FolderInfo", mock.Anything, "acct", 10).
		Return(&store.FolderInfo{ID: 10, ModSeq: 5, View: caldata.ItemAppointment}, nil)
	reqStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reqEnd := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	f.mailbox.On("CalendarItemsInRange", mock.Anything, "acct", 10, caldata.ItemAppointment,
		reqStart, reqEnd).
		Return([]store.Item{}, nil).Twice()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		data, _, err := f.cache.GetSummary(ctx, "acct", 10, caldata.ItemAppointment, reqStart, reqEnd, false)
		require.NoError(t, err)
		assert.True(t, data.Range.Equal(caldata.Range{Start: reqStart, End: reqEnd}))
	}
	assert.Equal(t, 0, f.mem.Len())
	f.mailbox.AssertExpectations(t)
}

func TestIncrementalMatchesFullScan(t *testing.T) {
	jan := func(d int) time.Time { return time.Date(2024, 1, d, 9, 0, 0, 0, time.UTC) }
	items := []store.Item{
		appt(1, jan(2), "a"), appt(2, jan(5), "b"), appt(3, jan(9), "c"),
		appt(4, jan(12), "d"), appt(5, jan(19), "e"),
	}
	ctx := context.Background()
	reqStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reqEnd := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	// Incremental path: initial scan, then items 2 and 4 marked stale.
	inc := newCacheFixture(DefaultConfig)
	inc.allowAll()
	inc.localFolder("acct", 10, 5)
	inc.mailbox.On("CalendarItemsInRange", mock.Anything, "acct", 10, caldata.ItemAppointment,
		anchorStart, anchorEnd).Return(items, nil).Once()
	_, _, err := inc.cache.GetSummary(ctx, "acct", 10, caldata.ItemAppointment, reqStart, reqEnd, false)
	require.NoError(t, err)
	inc.cache.InvalidateItem(ctx, "acct", 10, 2)
	inc.cache.InvalidateItem(ctx, "acct", 10, 4)
	inc.mailbox.On("CalendarItemByID", mock.Anything, "acct", 2).Return(items[1], nil).Once()
	inc.mailbox.On("CalendarItemByID", mock.Anything, "acct", 4).Return(items[3], nil).Once()
	incremental, _, err := inc.cache.GetSummary(ctx, "acct", 10, caldata.ItemAppointment, reqStart, reqEnd, false)
	require.NoError(t, err)

	// Full-scan path over the same state.
	full := newCacheFixture(DefaultConfig)
	full.allowAll()
	full.localFolder("acct", 10, 5)
	full.mailbox.On("CalendarItemsInRange", mock.Anything, "acct", 10, caldata.ItemAppointment,
		anchorStart, anchorEnd).Return(items, nil).Once()
	scanned, _, err := full.cache.GetSummary(ctx, "acct", 10, caldata.ItemAppointment, reqStart, reqEnd, false)
	require.NoError(t, err)

	assert.Equal(t, itemIDs(scanned), itemIDs(incremental))
	inc.mailbox.AssertExpectations(t)
}

func TestGetSummaryTierCounters(t *testing.T) {
	f := newCacheFixture(DefaultConfig)
	f.cache.metrics = NewMetrics(nil)
	f.allowAll()
	f.localFolder("acct", 10, 5)
	f.mailbox.On("CalendarItemsInRange", mock.Anything, "acct", 10, caldata.ItemAppointment,
		anchorStart, anchorEnd).Return([]store.Item{}, nil).Once()

	ctx := context.Background()
	reqStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reqEnd := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	_, _, err := f.cache.GetSummary(ctx, "acct", 10, caldata.ItemAppointment, reqStart, reqEnd, false)
	require.NoError(t, err)
	_, _, err = f.cache.GetSummary(ctx, "acct", 10, caldata.ItemAppointment, reqStart, reqEnd, false)
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(f.cache.metrics.LookupCounter(TierMiss)))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.cache.metrics.LookupCounter(TierMemory)))
}
