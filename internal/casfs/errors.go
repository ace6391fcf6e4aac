// Package casfs holds error kinds and filesystem-layout helpers shared
// across the loose store, pack store, and container — the on-disk shape
// spec.md §6.1 describes, plus the error taxonomy spec.md §7 names.
package casfs

import "errors"

// Error kinds, per spec.md §7. These are sentinel errors checked with
// errors.Is, not a type hierarchy — matching the pattern
// internal/sync/resource_limits.go and internal/sync/store.go use in the
// teacher repo.
var (
	ErrNotInitialized   = errors.New("cas: container not initialized")
	ErrAlreadyInitialized = errors.New("cas: container already initialized")
	ErrNotFound         = errors.New("cas: digest not found")
	ErrInvalidDigest    = errors.New("cas: invalid digest")
	ErrConflict         = errors.New("cas: pack writer lock held by another process")
)

// Layout names the fixed subdirectories/files under a container root,
// per spec.md §6.1.
const (
	DirLoose      = "loose"
	DirPacks      = "packs"
	DirSandbox    = "sandbox"
	DirDuplicates = "duplicates"
	IndexFile     = "packs.idx"
	LockFile      = "packs.lock"
)
