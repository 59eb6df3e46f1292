package summary

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/calsummary/backend"
	"github.com/cyp0633/calsummary/caldata"
	"github.com/cyp0633/calsummary/store"
	"github.com/cyp0633/calsummary/store/storemock"
)

func newCtagFixture() (*CtagLookup, *storemock.Mailbox, *backend.Memory[caldata.FolderKey, caldata.CtagInfo]) {
	mailbox := new(storemock.Mailbox)
	backing := backend.NewMemory[caldata.FolderKey, caldata.CtagInfo](0)
	return NewCtagLookup(backing, mailbox, discardLogger()), mailbox, backing
}

func TestCtagBuildAndCache(t *testing.T) {
	cl, mailbox, _ := newCtagFixture()
	mailbox.On("FolderInfo", mock.Anything, "acct", 10).
		Return(&store.FolderInfo{ID: 10, ParentID: 1, ModSeq: 5, IMAPModSeq: 7, Path: "/Calendar"}, nil).Once()

	ctx := context.Background()
	info, err := cl.Get(ctx, "acct", 10)
	require.NoError(t, err)
	assert.Equal(t, "5-7", info.Ctag)
	assert.Equal(t, "/Calendar", info.Path)
	assert.Equal(t, 1, info.ParentID)

	// Cached: the Once expectation would fail on a second folder lookup.
	again, err := cl.Get(ctx, "acct", 10)
	require.NoError(t, err)
	assert.Equal(t, info, again)
	mailbox.AssertExpectations(t)
}

func TestCtagMountpointUsesRemotePair(t *testing.T) {
	cl, mailbox, _ := newCtagFixture()
	mailbox.On("FolderInfo", mock.Anything, "acct", 20).
		Return(&store.FolderInfo{
			ID: 20, ParentID: 1, ModSeq: 3, IMAPModSeq: 3, Path: "/Shared",
			RemoteAccount: "owner", RemoteFolder: 11,
		}, nil).Once()
	mailbox.On("FolderInfo", mock.Anything, "owner", 11).
		Return(&store.FolderInfo{ID: 11, ModSeq: 40, IMAPModSeq: 41}, nil).Once()

	info, err := cl.Get(context.Background(), "acct", 20)
	require.NoError(t, err)
	assert.True(t, info.IsMountpoint())
	assert.Equal(t, "owner", info.RemoteAccount)
	assert.Equal(t, 11, info.RemoteFolder)
	assert.Equal(t, "40-41", info.Ctag, "tag reflects the remote owner's state")
	mailbox.AssertExpectations(t)
}

func TestCtagMountpointFallsBackToLocalPair(t *testing.T) {
	cl, mailbox, _ := newCtagFixture()
	mailbox.On("FolderInfo", mock.Anything, "acct", 20).
		Return(&store.FolderInfo{
			ID: 20, ModSeq: 3, IMAPModSeq: 4, RemoteAccount: "gone", RemoteFolder: 11,
		}, nil).Once()
	mailbox.On("FolderInfo", mock.Anything, "gone", 11).
		Return(nil, store.ErrNotFound).Once()

	info, err := cl.Get(context.Background(), "acct", 20)
	require.NoError(t, err)
	assert.Equal(t, "3-4", info.Ctag)
	mailbox.AssertExpectations(t)
}

func TestCtagBatchBuildsOnlyMisses(t *testing.T) {
	cl, mailbox, backing := newCtagFixture()
	ctx := context.Background()
	backing.Put(ctx, caldata.FolderKey{Account: "acct", FolderID: 10},
		caldata.CtagInfo{FolderID: 10, Ctag: "1-1"})
	mailbox.On("FolderInfo", mock.Anything, "acct", 11).
		Return(&store.FolderInfo{ID: 11, ModSeq: 2, IMAPModSeq: 2}, nil).Once()
	mailbox.On("FolderInfo", mock.Anything, "acct", 12).
		Return(nil, store.ErrNotFound).Once()

	tags, err := cl.GetAll(ctx, "acct", []int{10, 11, 12})
	require.NoError(t, err)
	assert.Len(t, tags, 2)
	assert.Equal(t, "1-1", tags[10].Ctag)
	assert.Equal(t, "2-2", tags[11].Ctag)
	_, hasGone := tags[12]
	assert.False(t, hasGone, "vanished folders drop out of the batch")
	mailbox.AssertExpectations(t)
}

func TestCtagRemoveForcesRebuild(t *testing.T) {
	cl, mailbox, _ := newCtagFixture()
	mailbox.On("FolderInfo", mock.Anything, "acct", 10).
		Return(&store.FolderInfo{ID: 10, ModSeq: 5, IMAPModSeq: 7}, nil).Once()
	ctx := context.Background()
	_, err := cl.Get(ctx, "acct", 10)
	require.NoError(t, err)

	cl.Remove(ctx, "acct", 10)
	mailbox.On("FolderInfo", mock.Anything, "acct", 10).
		Return(&store.FolderInfo{ID: 10, ModSeq: 6, IMAPModSeq: 8}, nil).Once()
	info, err := cl.Get(ctx, "acct", 10)
	require.NoError(t, err)
	assert.Equal(t, "6-8", info.Ctag)
	mailbox.AssertExpectations(t)
}
