// Package metadata declares the contract the metadata subsystem must
// satisfy: the relational model of vaults, files, fileblocks and
// blocks (§3 of the specification), the operations layered over it
// (§4.1), and the value types those operations exchange.
//
// Two implementations exist: pkg/store/metadata/postgres (backed by
// PostgreSQL) and pkg/store/metadata/memory (in-process, for tests and
// single-node deployments). Both satisfy Store.
package metadata

// ProjectID identifies a tenant. It is supplied by the auth context on
// every request and threaded explicitly through every call — never
// stored in a package-level variable.
type ProjectID string

// BlockRef is one (block_id, offset) pair from a file's ordered block
// map, as returned by ListFileBlocks.
type BlockRef struct {
	BlockID string `json:"id"`
	Offset  int64  `json:"offset"`
}

// FileData is the mutable state of a File row.
type FileData struct {
	Finalized bool
	Size      int64
}

// BlockData is the subset of a Block row exposed to callers that only
// need the block's size (e.g. to validate a read range).
type BlockData struct {
	Size int64
}

// CountStat pairs a total count with the subset that are flagged bad.
type CountStat struct {
	Count int
	Bad   int
}

// VaultStats is the aggregate returned by VaultStats: distinct file and
// block counts, plus how many of each are unhealthy.
type VaultStats struct {
	Files  CountStat
	Blocks CountStat
}
