// SPDX-License-Identifier: MIT

/*
Package bitint provides the power-of-two helpers used to size transforms
and ring buffers.

Every ring in the engine is indexed with a bitmask instead of a modulo, so
capacities are always rounded up with NextPowerOfTwo and checked with
IsPowerOfTwo before any buffer is allocated.

	capacity := bitint.NextPowerOfTwo(fftSize + latency) // 1000 -> 1024
	mask := bitint.Mask(capacity)                         // 1024 -> 1023

NextPowerOfTwo subtracts one before taking the bit length so exact powers of
two map to themselves: 8-1 = 0b0111, bits.Len = 3, 1<<3 = 8.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size.
// Non-positive sizes return 1.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Mask returns the index mask for a power-of-two capacity. The result is
// meaningless for other values; callers validate with IsPowerOfTwo first.
func Mask(capacity int) uint32 {
	return uint32(capacity - 1)
}

// Log2 returns the base-2 logarithm of a power of two, or -1 when n is not
// a power of two.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}
