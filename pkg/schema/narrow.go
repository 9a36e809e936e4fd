package schema

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"
)

// intRange is one candidate of the narrowing table, smallest first.
type intRange struct {
	min, max int64
	typ      arrow.DataType
}

var (
	unsignedRanges = []intRange{
		{0, math.MaxUint8, arrow.PrimitiveTypes.Uint8},
		{0, math.MaxUint16, arrow.PrimitiveTypes.Uint16},
		{0, math.MaxUint32, arrow.PrimitiveTypes.Uint32},
		{0, math.MaxInt64, arrow.PrimitiveTypes.Uint64},
	}
	signedRanges = []intRange{
		{math.MinInt8, math.MaxInt8, arrow.PrimitiveTypes.Int8},
		{math.MinInt16, math.MaxInt16, arrow.PrimitiveTypes.Int16},
		{math.MinInt32, math.MaxInt32, arrow.PrimitiveTypes.Int32},
		{math.MinInt64, math.MaxInt64, arrow.PrimitiveTypes.Int64},
	}
)

// NarrowInt returns the smallest fixed-width Arrow integer type that holds
// every value in [lo, hi] without loss. Unsigned types are chosen when lo is
// not negative. An inverted range narrows to int64.
func NarrowInt(lo, hi int64) arrow.DataType {
	if lo > hi {
		return arrow.PrimitiveTypes.Int64
	}
	ranges := signedRanges
	if lo >= 0 {
		ranges = unsignedRanges
	}
	for _, r := range ranges {
		if lo >= r.min && hi <= r.max {
			return r.typ
		}
	}
	return arrow.PrimitiveTypes.Int64
}

// BitWidth returns the storage width of an integer type, or 0 for other types.
func BitWidth(dt arrow.DataType) int {
	if fw, ok := dt.(arrow.FixedWidthDataType); ok && isInteger(dt.ID()) {
		return fw.BitWidth()
	}
	return 0
}

func isInteger(id arrow.Type) bool {
	switch id {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return true
	}
	return false
}
