package engine

import "github.com/roach88/weft/internal/ir"

// NextKey returns one more than the largest integer value of field across
// records, or 1 when there is none. Non-integer keys are ignored.
func NextKey(records []ir.Record, field string) ir.IRInt {
	var top ir.IRInt
	for _, rec := range records {
		if n, ok := rec[field].(ir.IRInt); ok && n > top {
			top = n
		}
	}
	return top + 1
}
