package utils

import (
	"fmt"

	"github.com/gomlx/gopjrt/dtypes"
)

// DTypeToHLO returns the HLO text name of the given dtype (e.g. "f32", "u32", "pred").
func DTypeToHLO(dtype dtypes.DType) string {
	switch dtype {
	case dtypes.F64:
		return "f64"
	case dtypes.F32:
		return "f32"
	case dtypes.F16:
		return "f16"
	case dtypes.BFloat16:
		return "bf16"
	case dtypes.S64:
		return "s64"
	case dtypes.S32:
		return "s32"
	case dtypes.S16:
		return "s16"
	case dtypes.S8:
		return "s8"
	case dtypes.U64:
		return "u64"
	case dtypes.U32:
		return "u32"
	case dtypes.U16:
		return "u16"
	case dtypes.U8:
		return "u8"
	case dtypes.Bool:
		return "pred"
	default:
		return fmt.Sprintf("invalid_dtype_%d", int(dtype))
	}
}
