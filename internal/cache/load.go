// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package cache

import (
	"fmt"
	"os"

	"github.com/klauspost/compress/s2"
	"golang.org/x/sys/unix"

	"github.com/playbymail/yini/cerrs"
	"github.com/playbymail/yini/internal/value"
)

// File is a memory-mapped, read-only cache opened by Open. Every Lookup
// verifies the region it reads falls within the mapped file before touching
// it (spec §4.H "every read verifies that the target region is within the
// mapped file").
type File struct {
	raw     []byte
	header  fileHeader
	buckets []uint32
	entries []hashTableEntry
	data    []byte
	strings []byte
	mapped  bool // raw came from unix.Mmap in Open
}

// Open memory-maps path and validates its header before returning.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cache: open: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("cache: stat: %w", err)
	}
	if info.Size() < headerSize {
		return nil, fmt.Errorf("%w: file shorter than header", cerrs.ErrCorruptCache)
	}

	raw, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("cache: mmap: %w", err)
	}
	file, err := newFile(raw)
	if err != nil {
		return nil, err
	}
	file.mapped = true
	return file, nil
}

// OpenBytes parses an already-loaded cache image (used by tests and callers
// that already have the bytes in memory, e.g. a structured-codec export).
func OpenBytes(raw []byte) (*File, error) {
	return newFile(raw)
}

func newFile(raw []byte) (*File, error) {
	if len(raw) < headerSize {
		return nil, fmt.Errorf("%w: file shorter than header", cerrs.ErrCorruptCache)
	}
	hdr := readFileHeader(raw)
	if string(hdr.Magic[:]) != Magic {
		return nil, fmt.Errorf("%w: bad magic", cerrs.ErrCorruptCache)
	}
	if hdr.Version != Version {
		return nil, fmt.Errorf("%w: version %d", cerrs.ErrUnsupportedCacheVersion, hdr.Version)
	}

	bucketsBytes, err := boundedSlice(raw, hdr.HashOffset, hdr.HashBucketCount*4)
	if err != nil {
		return nil, err
	}
	entriesBytes, err := boundedSlice(raw, hdr.EntriesOffset, hdr.EntriesCount*hashEntrySize)
	if err != nil {
		return nil, err
	}
	dataCompressed, err := boundedSlice(raw, hdr.DataOffset, hdr.DataCompressedLen)
	if err != nil {
		return nil, err
	}
	stringsCompressed, err := boundedSlice(raw, hdr.StringsOffset, hdr.StringsCompressedLen)
	if err != nil {
		return nil, err
	}

	dataTable, err := decompressTable(dataCompressed, hdr.DataRawLen)
	if err != nil {
		return nil, err
	}
	stringsTable, err := decompressTable(stringsCompressed, hdr.StringsRawLen)
	if err != nil {
		return nil, err
	}

	buckets := make([]uint32, hdr.HashBucketCount)
	for i := range buckets {
		buckets[i] = readU32le(bucketsBytes[i*4:])
	}
	entries := make([]hashTableEntry, hdr.EntriesCount)
	for i := range entries {
		entries[i] = readHashTableEntry(entriesBytes[i*hashEntrySize:])
	}

	return &File{
		raw:     raw,
		header:  hdr,
		buckets: buckets,
		entries: entries,
		data:    dataTable,
		strings: stringsTable,
	}, nil
}

// Close unmaps the underlying file, if this File was produced by Open.
func (f *File) Close() error {
	if !f.mapped {
		return nil
	}
	return unix.Munmap(f.raw)
}

// Lookup resolves "section" or "section.key" to its cached Value.
func (f *File) Lookup(section, key string) (value.Value, bool, error) {
	fullKey := section
	if key != "" {
		fullKey = section + "." + key
	}
	h := hashKey(fullKey)
	if len(f.buckets) == 0 {
		return value.Value{}, false, nil
	}
	idx := f.buckets[h%uint64(len(f.buckets))]
	for idx != emptyBucket {
		if int(idx) >= len(f.entries) {
			return value.Value{}, false, fmt.Errorf("%w: entry index %d out of range", cerrs.ErrCorruptCache, idx)
		}
		e := f.entries[idx]
		if e.KeyHash == h {
			candidate, err := readString(f.strings, e.KeyOffsetInString)
			if err == nil && candidate == fullKey {
				v, err := decodeValue(ValueType(e.ValueType), e.ValueOffset, f.data, f.strings)
				return v, true, err
			}
		}
		idx = e.NextEntryIndex
	}
	return value.Value{}, false, nil
}

func boundedSlice(raw []byte, offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(raw)) {
		return nil, fmt.Errorf("%w: region [%d,%d) exceeds file size %d", cerrs.ErrCorruptCache, offset, end, len(raw))
	}
	return raw[offset:end], nil
}

func decompressTable(compressed []byte, rawLen uint32) ([]byte, error) {
	if uint32(len(compressed)) == rawLen {
		return compressed, nil
	}
	dst := make([]byte, rawLen)
	decoded, err := s2.Decode(dst, compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cerrs.ErrCorruptCache, err)
	}
	return decoded, nil
}

func readU32le(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
