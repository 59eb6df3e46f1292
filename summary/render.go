package summary

import (
	"context"

	"github.com/cyp0633/calsummary/backend"
	"github.com/cyp0633/calsummary/caldata"
)

// ResponseCache holds pre-rendered protocol responses, keyed by account,
// folder and an opaque client identity. It is a purely node-local
// convenience tier: entries are invalidated wholesale whenever the folder
// changes, so it sits on the in-process backend, whose key index makes
// per-folder eviction possible without a scan.
type ResponseCache struct {
	store *backend.Memory[caldata.RenderKey, []byte]
}

// NewResponseCache creates a render cache bounded to capacity entries.
func NewResponseCache(capacity int) *ResponseCache {
	return &ResponseCache{store: backend.NewMemory[caldata.RenderKey, []byte](capacity)}
}

// Get returns the rendered bytes for the key, or a miss.
func (rc *ResponseCache) Get(ctx context.Context, account string, folderID int, client string) ([]byte, bool) {
	return rc.store.Get(ctx, caldata.RenderKey{Account: account, FolderID: folderID, Client: client})
}

// Put stores rendered bytes under the key.
func (rc *ResponseCache) Put(ctx context.Context, account string, folderID int, client string, rendered []byte) {
	rc.store.Put(ctx, caldata.RenderKey{Account: account, FolderID: folderID, Client: client}, rendered)
}

// InvalidateFolder drops every rendering of the folder, across all client
// identities.
func (rc *ResponseCache) InvalidateFolder(ctx context.Context, account string, folderID int) {
	var doomed []caldata.RenderKey
	for _, key := range rc.store.AccountKeys(account) {
		if key.FolderID == folderID {
			doomed = append(doomed, key)
		}
	}
	rc.store.RemoveAll(ctx, doomed)
}

// PurgeAccount drops every rendering of the account.
func (rc *ResponseCache) PurgeAccount(ctx context.Context, account string) {
	rc.store.RemoveAccount(ctx, account)
}
