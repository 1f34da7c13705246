// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package cache

import "github.com/cespare/xxhash/v2"

// hashKey computes the 64-bit non-cryptographic hash spec §4.H requires for
// cache keys ("section.key" or a bare section name).
func hashKey(key string) uint64 {
	return xxhash.Sum64String(key)
}

// bucketCountFor picks a hash table size comfortably larger than the entry
// count to keep chains short.
func bucketCountFor(entries int) uint32 {
	n := entries*2 + 1
	if n < 8 {
		n = 8
	}
	return uint32(n)
}
