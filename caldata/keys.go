package caldata

import "fmt"

// Key is implemented by all composite cache key types. Keys are small
// comparable value structs so they can be used directly as map keys; the
// storage key form is used by backends that address entries by string
// (redis keys, file names).
type Key interface {
	// AccountID returns the account the entry belongs to, for
	// per-account eviction.
	AccountID() string
	// StorageKey returns a stable string form of the key, unique within
	// one cache kind.
	StorageKey() string
}

// AccountKey addresses per-account entries such as the calendar folder set.
type AccountKey struct {
	Account string
}

// AccountID implements Key.
func (k AccountKey) AccountID() string { return k.Account }

// StorageKey implements Key.
func (k AccountKey) StorageKey() string { return k.Account }

// FolderKey addresses per-folder entries: ctags and calendar summaries.
type FolderKey struct {
	Account  string
	FolderID int
}

// AccountID implements Key.
func (k FolderKey) AccountID() string { return k.Account }

// StorageKey implements Key.
func (k FolderKey) StorageKey() string {
	return fmt.Sprintf("%s:%d", k.Account, k.FolderID)
}

// RenderKey addresses pre-rendered protocol responses. The Client dimension
// distinguishes renderings of the same folder for different client
// identities (protocol version, requested verbosity, and so on); the cache
// treats it as opaque.
type RenderKey struct {
	Account  string
	FolderID int
	Client   string
}

// AccountID implements Key.
func (k RenderKey) AccountID() string { return k.Account }

// StorageKey implements Key.
func (k RenderKey) StorageKey() string {
	return fmt.Sprintf("%s:%d:%s", k.Account, k.FolderID, k.Client)
}
