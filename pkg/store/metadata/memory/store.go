// Package memory is an in-process implementation of metadata.Store,
// used by the unit test suite and by single-node deployments that
// don't need metadata durability across restarts.
package memory

import (
	"sync"

	"github.com/sujala/deuce/pkg/metadata"
)

type vaultKey struct {
	project metadata.ProjectID
	vault   string
}

type fileKey struct {
	project metadata.ProjectID
	vault   string
	file    string
}

type blockKey struct {
	project metadata.ProjectID
	vault   string
	block   string
}

type fileData struct {
	finalized bool
	size      int64
}

type blockData struct {
	storageID string
	size      int64
	reftime   int64
	invalid   bool
}

type fileBlockRow struct {
	fileKey fileKey
	blockID string
	offset  int64
}

// Store is an in-memory implementation of metadata.Store. All state
// lives behind a single mutex; it is not intended to scale past a
// single process, only to behave identically to the durable backend.
type Store struct {
	mu sync.Mutex

	vaults map[vaultKey]struct{}
	files  map[fileKey]*fileData
	blocks map[blockKey]*blockData

	// fileBlocks holds each file's rows kept sorted by offset on every
	// AssignBlock, so ListFileBlocks doesn't need to sort on every call.
	fileBlocks map[fileKey][]fileBlockRow

	// storageIndex is the inverse of blocks: storage-id -> block-id,
	// scoped by project/vault.
	storageIndex map[vaultKey]map[string]string

	clock func() int64
}

// New returns an empty Store. clock, if non-nil, overrides the
// wall-clock reftime source (used by tests that need deterministic
// timestamps); nil uses the real clock.
func New(clock func() int64) *Store {
	if clock == nil {
		clock = defaultClock
	}
	return &Store{
		vaults:       make(map[vaultKey]struct{}),
		files:        make(map[fileKey]*fileData),
		blocks:       make(map[blockKey]*blockData),
		fileBlocks:   make(map[fileKey][]fileBlockRow),
		storageIndex: make(map[vaultKey]map[string]string),
		clock:        clock,
	}
}

var _ metadata.Store = (*Store)(nil)
