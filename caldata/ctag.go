package caldata

import "fmt"

// CtagInfo is the per-folder change tag entry CalDAV-style clients poll.
// The ctag string is derived deterministically from the folder's
// (modSeq, imapModSeq) pair, so two folders in the same state always
// produce the same tag.
type CtagInfo struct {
	FolderID int    `json:"folderId"`
	ParentID int    `json:"parentId"`
	Ctag     string `json:"ctag"`
	Path     string `json:"path"`
	// RemoteAccount and RemoteFolder are set when the folder is a
	// mountpoint into another account; the ctag then reflects the remote
	// owner's folder state.
	RemoteAccount string `json:"remoteAccount,omitempty"`
	RemoteFolder  int    `json:"remoteFolder,omitempty"`
}

// IsMountpoint reports whether the entry points at another account's folder.
func (c CtagInfo) IsMountpoint() bool { return c.RemoteAccount != "" }

// MakeCtag derives the change tag from the two folder sequence numbers.
func MakeCtag(modSeq, imapModSeq int) string {
	return fmt.Sprintf("%d-%d", modSeq, imapModSeq)
}
