// Package summary implements the calendar summary caching layer: for an
// account and calendar folder it materializes a time-bounded, pre-expanded
// view of appointments and tasks so repeated protocol reads avoid
// re-expanding recurrence rules on every request. Lookups fall through an
// in-process LRU, an optional distributed redis tier and optional file
// persistence before recomputing from the authoritative mailbox; mailbox
// change notifications flow back in as per-item stale markers and targeted
// evictions.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/cyp0633/calsummary/backend"
	"github.com/cyp0633/calsummary/caldata"
	"github.com/cyp0633/calsummary/store"
)

// Options carries the optional collaborators of a Manager.
type Options struct {
	// Logger receives the cache's diagnostics; nil selects slog.Default().
	Logger *slog.Logger
	// Registerer receives the lookup counters; nil skips registration.
	Registerer prometheus.Registerer
	// Redis overrides the client the Manager would otherwise build from
	// Config.Redis.Addr. A supplied client is never closed by the Manager.
	Redis redis.UniversalClient
}

// Manager owns every cache kind and exposes the read and invalidation API
// the protocol layer consumes. It is constructed once at application wiring
// time and registered as the mailbox's change listener.
type Manager struct {
	cfg     Config
	logger  *slog.Logger
	metrics *Metrics

	summaries  *SummaryCache
	ctags      *CtagLookup
	folderSets *FolderSetCache
	responses  *ResponseCache
	listener   *Invalidator

	redisClient redis.UniversalClient
	ownsRedis   bool
}

var _ store.ChangeListener = (*Manager)(nil)

// NewManager wires all cache kinds from the configuration.
func NewManager(cfg Config, mailbox store.Mailbox, perms store.Permissions, opts Options) (*Manager, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := NewMetrics(opts.Registerer)

	var client redis.UniversalClient
	ownsRedis := false
	if cfg.Redis.Enabled {
		client = opts.Redis
		if client == nil {
			client = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
			ownsRedis = true
		}
	}

	mem := backend.NewMemory[caldata.FolderKey, *caldata.CalendarData](cfg.LRUCapacity)
	var remote backend.Store[caldata.FolderKey, *caldata.CalendarData]
	if client != nil {
		remote = backend.NewRedis[caldata.FolderKey, *caldata.CalendarData](
			client, "calsummary:data", backend.JSONCodec[*caldata.CalendarData](),
			cfg.Redis.TTL, cfg.Redis.Timeout, logger)
	}
	var files *backend.File[caldata.FolderKey, *caldata.CalendarData]
	if cfg.File.Enabled {
		var err error
		files, err = backend.NewFile[caldata.FolderKey, *caldata.CalendarData](
			cfg.File.Dir, cfg.File.Shards, backend.JSONCodec[*caldata.CalendarData](),
			func(d *caldata.CalendarData) int { return d.ModSeq }, logger)
		if err != nil {
			return nil, fmt.Errorf("file tier: %w", err)
		}
	}

	summaries := NewSummaryCache(cfg, mailbox, perms, mem, remote, files, metrics, logger)
	ctags := NewCtagLookup(
		kindStore[caldata.FolderKey, caldata.CtagInfo](cfg.CtagBackend, client, "calsummary:ctag", cfg.Redis.TTL, cfg.Redis.Timeout, logger),
		mailbox, logger)
	folderSets := NewFolderSetCache(
		kindStore[caldata.AccountKey, caldata.CalendarFolderSet](cfg.FolderSetBackend, client, "calsummary:calist", cfg.Redis.TTL, cfg.Redis.Timeout, logger),
		mailbox, logger)
	responses := NewResponseCache(cfg.RenderCapacity)

	m := &Manager{
		cfg:         cfg,
		logger:      logger,
		metrics:     metrics,
		summaries:   summaries,
		ctags:       ctags,
		folderSets:  folderSets,
		responses:   responses,
		listener:    NewInvalidator(summaries, ctags, folderSets, responses, logger),
		redisClient: client,
		ownsRedis:   ownsRedis,
	}
	return m, nil
}

// kindStore selects the backend family for one cache kind: "redis" when the
// distributed tier is available, the in-process map otherwise.
func kindStore[K backend.Key, V any](kind string, client redis.UniversalClient, prefix string, ttl, timeout time.Duration, logger *slog.Logger) backend.Store[K, V] {
	if kind == "redis" && client != nil {
		return backend.NewRedis[K, V](client, prefix, backend.JSONCodec[V](), ttl, timeout, logger)
	}
	return backend.NewMemory[K, V](0)
}

// GetSummary returns the folder's expanded calendar window; see
// SummaryCache.GetSummary.
func (m *Manager) GetSummary(ctx context.Context, account string, folderID int, kind caldata.ItemType, start, end time.Time, subRangeOnly bool) (*caldata.CalendarData, bool, error) {
	return m.summaries.GetSummary(ctx, account, folderID, kind, start, end, subRangeOnly)
}

// GetCtag returns one folder's change tag.
func (m *Manager) GetCtag(ctx context.Context, account string, folderID int) (caldata.CtagInfo, error) {
	return m.ctags.Get(ctx, account, folderID)
}

// GetCtags returns change tags for the listed folders in one batch.
func (m *Manager) GetCtags(ctx context.Context, account string, folderIDs []int) (map[int]caldata.CtagInfo, error) {
	return m.ctags.GetAll(ctx, account, folderIDs)
}

// GetFolderSet returns the account's calendar folder set and version.
func (m *Manager) GetFolderSet(ctx context.Context, account string) (caldata.CalendarFolderSet, error) {
	return m.folderSets.Get(ctx, account)
}

// GetRendered returns a pre-rendered response for the folder and client
// identity, or a miss.
func (m *Manager) GetRendered(ctx context.Context, account string, folderID int, client string) ([]byte, bool) {
	return m.responses.Get(ctx, account, folderID, client)
}

// PutRendered stores a pre-rendered response.
func (m *Manager) PutRendered(ctx context.Context, account string, folderID int, client string, rendered []byte) {
	m.responses.Put(ctx, account, folderID, client, rendered)
}

// InvalidateFolder evicts the folder's summary, ctag and rendered entries.
func (m *Manager) InvalidateFolder(ctx context.Context, account string, folderID int) {
	m.summaries.InvalidateFolder(ctx, account, folderID)
	m.ctags.Remove(ctx, account, folderID)
	m.responses.InvalidateFolder(ctx, account, folderID)
}

// InvalidateItem marks one item stale in its folder's summary entry and
// evicts the folder's derived entries.
func (m *Manager) InvalidateItem(ctx context.Context, account string, folderID, itemID int) {
	m.summaries.InvalidateItem(ctx, account, folderID, itemID)
	if folderID > 0 {
		m.ctags.Remove(ctx, account, folderID)
		m.responses.InvalidateFolder(ctx, account, folderID)
	}
}

// PurgeAccount drops every cached entry of the account from every kind,
// used on account deletion or mailbox move.
func (m *Manager) PurgeAccount(ctx context.Context, account string) {
	m.summaries.PurgeAccount(ctx, account)
	m.ctags.PurgeAccount(ctx, account)
	m.folderSets.PurgeAccount(ctx, account)
	m.responses.PurgeAccount(ctx, account)
}

// Notify implements store.ChangeListener by forwarding the batch to the
// invalidation listener.
func (m *Manager) Notify(ctx context.Context, n *store.Notification) {
	m.listener.Notify(ctx, n)
}

// Metrics returns the manager's counters.
func (m *Manager) Metrics() *Metrics { return m.metrics }

// Stats reports the in-process summary tier's counters.
func (m *Manager) Stats() backend.MemoryStats { return m.summaries.Stats() }

// Close releases resources the Manager owns. A redis client supplied
// through Options stays open.
func (m *Manager) Close() error {
	if m.ownsRedis && m.redisClient != nil {
		return m.redisClient.Close()
	}
	return nil
}
