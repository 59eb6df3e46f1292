package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cyp0633/calsummary/backend"
	"github.com/cyp0633/calsummary/caldata"
	"github.com/cyp0633/calsummary/store"
)

// CtagLookup serves per-folder change tags. Entries are cheap to rebuild
// from the folder's sequence pair, so invalidation is plain eviction and a
// miss costs one folder lookup (two for mountpoints).
type CtagLookup struct {
	store   backend.Store[caldata.FolderKey, caldata.CtagInfo]
	mailbox store.Mailbox
	logger  *slog.Logger
}

// NewCtagLookup wires the ctag cache over its backend.
func NewCtagLookup(backing backend.Store[caldata.FolderKey, caldata.CtagInfo], mailbox store.Mailbox, logger *slog.Logger) *CtagLookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &CtagLookup{store: backing, mailbox: mailbox, logger: logger}
}

// Get returns the folder's ctag entry, building and caching it on a miss.
func (cl *CtagLookup) Get(ctx context.Context, account string, folderID int) (caldata.CtagInfo, error) {
	key := caldata.FolderKey{Account: account, FolderID: folderID}
	if info, ok := cl.store.Get(ctx, key); ok {
		return info, nil
	}
	info, err := cl.build(ctx, account, folderID)
	if err != nil {
		return caldata.CtagInfo{}, err
	}
	cl.store.Put(ctx, key, info)
	return info, nil
}

// GetAll returns ctag entries for the listed folders in one batched backend
// round trip, building only the missing ones. Folders that no longer exist
// are left out of the result.
func (cl *CtagLookup) GetAll(ctx context.Context, account string, folderIDs []int) (map[int]caldata.CtagInfo, error) {
	keys := make([]caldata.FolderKey, len(folderIDs))
	for i, id := range folderIDs {
		keys[i] = caldata.FolderKey{Account: account, FolderID: id}
	}
	cached := cl.store.GetAll(ctx, keys)
	out := make(map[int]caldata.CtagInfo, len(folderIDs))
	for _, key := range keys {
		if info, ok := cached[key]; ok {
			out[key.FolderID] = info
			continue
		}
		info, err := cl.build(ctx, account, key.FolderID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		cl.store.Put(ctx, key, info)
		out[key.FolderID] = info
	}
	return out, nil
}

// Remove evicts the folder's entry.
func (cl *CtagLookup) Remove(ctx context.Context, account string, folderID int) {
	cl.store.Remove(ctx, caldata.FolderKey{Account: account, FolderID: folderID})
}

// PurgeAccount drops every ctag entry of the account.
func (cl *CtagLookup) PurgeAccount(ctx context.Context, account string) {
	cl.store.RemoveAccount(ctx, account)
}

// build derives the entry from the folder's current sequence pair. For a
// mountpoint the tag reflects the remote owner's folder state; when the
// remote folder cannot be resolved the local pair is used, which still
// changes whenever the mountpoint itself does.
func (cl *CtagLookup) build(ctx context.Context, account string, folderID int) (caldata.CtagInfo, error) {
	folder, err := cl.mailbox.FolderInfo(ctx, account, folderID)
	if err != nil {
		return caldata.CtagInfo{}, fmt.Errorf("ctag folder lookup: %w", err)
	}
	info := caldata.CtagInfo{
		FolderID: folder.ID,
		ParentID: folder.ParentID,
		Path:     folder.Path,
		Ctag:     caldata.MakeCtag(folder.ModSeq, folder.IMAPModSeq),
	}
	if folder.IsMountpoint() {
		info.RemoteAccount = folder.RemoteAccount
		info.RemoteFolder = folder.RemoteFolder
		remote, err := cl.mailbox.FolderInfo(ctx, folder.RemoteAccount, folder.RemoteFolder)
		if err != nil {
			cl.logger.Warn("mountpoint target unresolvable, using local ctag",
				"account", account, "folder", folderID, "error", err)
		} else {
			info.Ctag = caldata.MakeCtag(remote.ModSeq, remote.IMAPModSeq)
		}
	}
	return info, nil
}
