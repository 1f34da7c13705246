// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package cache

// Magic identifies a cache file; Version is the only layout this package
// understands (spec §4.H).
const (
	Magic         = "YINI"
	Version       = uint32(1)
	headerSize    = 48
	hashEntrySize = 24 // key_hash(8) + key_offset(4) + value_type(1) + pad(3) + value_offset(4) + next_entry_index(4)
)

// emptyBucket marks an unused hash bucket; real entry indices are 1-based so
// index 0 can double as "no entry here".
const emptyBucket = uint32(0)

// ValueType tags how an entry's bytes are laid out (spec §4.H "fixed-width
// value types").
type ValueType uint8

const (
	TypeNil ValueType = iota
	TypeInt
	TypeBool
	TypeFloat
	TypeString
	TypeColor
	TypeCoord
	TypeArrayInt
	TypeArrayFloat
	TypeArrayBool
	TypeArrayString
	TypeBlob
)

// fileHeader is the on-disk layout of FileHeader, little-endian, field order
// matching spec §4.H exactly.
type fileHeader struct {
	Magic                [4]byte
	Version               uint32
	HashOffset            uint32
	HashBucketCount       uint32
	EntriesOffset         uint32
	EntriesCount          uint32
	DataOffset            uint32
	DataCompressedLen     uint32
	DataRawLen            uint32
	StringsOffset         uint32
	StringsCompressedLen  uint32
	StringsRawLen         uint32
}

// hashTableEntry is the on-disk layout of HashTableEntry (spec §4.H), 24
// bytes, little-endian.
type hashTableEntry struct {
	KeyHash           uint64
	KeyOffsetInString uint32
	ValueType         uint8
	_                 [3]byte
	ValueOffset       uint32
	NextEntryIndex    uint32
}
