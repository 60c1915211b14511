package metadata

import "github.com/sujala/deuce/pkg/deuceerr"

// FileBlockSize is one row of the join between fileblocks and blocks
// (excluding invalid blocks) that the finalize walk consumes, ordered
// by offset ascending.
type FileBlockSize struct {
	BlockID string
	Offset  int64
	Size    int64
}

// EvaluateFinalization runs the central finalize invariant check
// (§4.1): walk the ordered (offset, size) sequence maintaining
// expected=0; every row must either extend the contiguous cover
// exactly (offset == expected) or be rejected as an overlap
// (offset < expected) or a gap (offset > expected).
//
// If fileSize is non-nil and non-zero, the computed cover must equal
// it exactly; a shorter cover is a trailing gap, a longer one a
// trailing overlap against the declared size.
//
// Returns the size to record on success: fileSize when supplied and
// non-zero, otherwise the computed contiguous-cover length (see DESIGN.md for
// why this differs from the original driver's "store 0" behavior when
// size is omitted).
func EvaluateFinalization(rows []FileBlockSize, fileSize *int64) (int64, error) {
	var expected int64

	for _, row := range rows {
		switch {
		case row.Offset == expected:
			expected += row.Size
		case row.Offset < expected:
			return 0, deuceerr.NewOverlapError(row.BlockID, row.Offset, expected)
		default:
			return 0, deuceerr.NewGapError(expected, row.Offset)
		}
	}

	if fileSize != nil && *fileSize != 0 {
		switch {
		case expected < *fileSize:
			return 0, deuceerr.NewGapError(expected, *fileSize)
		case expected > *fileSize:
			return 0, deuceerr.NewOverlapError("", *fileSize, expected)
		default:
			return *fileSize, nil
		}
	}

	return expected, nil
}
