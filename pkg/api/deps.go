package api

import (
	"github.com/sujala/deuce/pkg/metadata"
	"github.com/sujala/deuce/pkg/store/block"
)

// Deps bundles the collaborators the HTTP surface needs: the metadata
// store backing pkg/domain, the opaque block storage driver, the
// pagination limits every list route enforces, and the max accepted
// block body size.
type Deps struct {
	Metadata     metadata.Store
	Blocks       block.Store
	Pagination   PaginationConfig
	MaxBlockSize int64
}
