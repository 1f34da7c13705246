// Copyright (c) 2024 Michael D Henderson. All rights reserved.

// Package cache implements the binary cache codec of spec §4.H: a compact,
// little-endian file format with a fixed header, an open-chained hash table
// for O(1) key lookup, and compressed data/string tables. Build produces the
// bytes from a dom.Document; Open memory-maps a cache file for zero-copy
// reads, validating every access stays within the mapped region.
package cache
