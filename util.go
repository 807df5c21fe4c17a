package mxpack

import "golang.org/x/exp/constraints"

// Roundup rounds n up to the nearest multiple of align. align must be a
// power of two; the bit mask gives wrong results for any other value.
func Roundup[T constraints.Integer](n, align T) T { return (n + (align - 1)) &^ (align - 1) }

// maxInt32 is the largest length a 32-bit MessagePack length field may
// encode without being rejected by spec §3's negative-length check.
const maxInt32 = 1<<31 - 1
