// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package cache

import (
	"bytes"
	"encoding/binary"

	"github.com/klauspost/compress/s2"
	"github.com/playbymail/yini/internal/dom"
)

type builtEntry struct {
	key         string
	valueType   ValueType
	valueOffset uint32
}

// Build serializes doc into the binary cache format (spec §4.H). Every
// section contributes a section-only key (value type Nil, marking the
// section exists) plus one "section.key" entry per resolved value.
func Build(doc *dom.Document) ([]byte, error) {
	st := newStringTable()
	var dt bytes.Buffer
	var entries []builtEntry

	for _, sec := range doc.Sections() {
		entries = append(entries, builtEntry{key: sec.Name, valueType: TypeNil, valueOffset: 0})
		for _, key := range sec.Keys() {
			v, _ := sec.Get(key)
			t, off, err := encodeValue(v, st, &dt)
			if err != nil {
				return nil, err
			}
			entries = append(entries, builtEntry{key: sec.Name + "." + key, valueType: t, valueOffset: off})
		}
	}

	bucketCount := bucketCountFor(len(entries))
	buckets := make([]uint32, bucketCount)
	tableEntries := make([]hashTableEntry, len(entries)+1) // index 0 unused

	for i, e := range entries {
		idx := uint32(i + 1)
		h := hashKey(e.key)
		bucket := uint32(h % uint64(bucketCount))
		tableEntries[idx] = hashTableEntry{
			KeyHash:           h,
			KeyOffsetInString: st.intern(e.key),
			ValueType:         uint8(e.valueType),
			ValueOffset:       e.valueOffset,
			NextEntryIndex:    buckets[bucket],
		}
		buckets[bucket] = idx
	}

	dataRaw := dt.Bytes()
	stringsRaw := st.buf.Bytes()
	dataCompressed := compress(dataRaw)
	stringsCompressed := compress(stringsRaw)

	var out bytes.Buffer
	out.Write(make([]byte, headerSize)) // placeholder, patched below

	hashOffset := uint32(out.Len())
	for _, b := range buckets {
		writeU32(&out, b)
	}

	entriesOffset := uint32(out.Len())
	for _, e := range tableEntries {
		writeHashTableEntry(&out, e)
	}

	dataOffset := uint32(out.Len())
	out.Write(dataCompressed)

	stringsOffset := uint32(out.Len())
	out.Write(stringsCompressed)

	hdr := fileHeader{
		Version:              Version,
		HashOffset:           hashOffset,
		HashBucketCount:      bucketCount,
		EntriesOffset:        entriesOffset,
		EntriesCount:         uint32(len(tableEntries)),
		DataOffset:           dataOffset,
		DataCompressedLen:    uint32(len(dataCompressed)),
		DataRawLen:           uint32(len(dataRaw)),
		StringsOffset:        stringsOffset,
		StringsCompressedLen: uint32(len(stringsCompressed)),
		StringsRawLen:        uint32(len(stringsRaw)),
	}
	copy(hdr.Magic[:], Magic)

	raw := out.Bytes()
	writeFileHeader(raw[:headerSize], hdr)
	return raw, nil
}

// compress returns the s2-compressed form of data, unless compression would
// not shrink it — in which case it returns data unchanged and the caller
// records compressed_len == raw_len as the "not compressed" sentinel (spec
// §4.H).
func compress(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	compressed := s2.Encode(make([]byte, s2.MaxEncodedLen(len(data))), data)
	if len(compressed) >= len(data) {
		return data
	}
	return compressed
}

func writeU32(b *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.Write(buf[:])
}

func writeHashTableEntry(b *bytes.Buffer, e hashTableEntry) {
	var buf [hashEntrySize]byte
	binary.LittleEndian.PutUint64(buf[0:8], e.KeyHash)
	binary.LittleEndian.PutUint32(buf[8:12], e.KeyOffsetInString)
	buf[12] = e.ValueType
	binary.LittleEndian.PutUint32(buf[16:20], e.ValueOffset)
	binary.LittleEndian.PutUint32(buf[20:24], e.NextEntryIndex)
	b.Write(buf[:])
}

func readHashTableEntry(b []byte) hashTableEntry {
	return hashTableEntry{
		KeyHash:           binary.LittleEndian.Uint64(b[0:8]),
		KeyOffsetInString: binary.LittleEndian.Uint32(b[8:12]),
		ValueType:         b[12],
		ValueOffset:       binary.LittleEndian.Uint32(b[16:20]),
		NextEntryIndex:    binary.LittleEndian.Uint32(b[20:24]),
	}
}

func writeFileHeader(b []byte, h fileHeader) {
	copy(b[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.HashOffset)
	binary.LittleEndian.PutUint32(b[12:16], h.HashBucketCount)
	binary.LittleEndian.PutUint32(b[16:20], h.EntriesOffset)
	binary.LittleEndian.PutUint32(b[20:24], h.EntriesCount)
	binary.LittleEndian.PutUint32(b[24:28], h.DataOffset)
	binary.LittleEndian.PutUint32(b[28:32], h.DataCompressedLen)
	binary.LittleEndian.PutUint32(b[32:36], h.DataRawLen)
	binary.LittleEndian.PutUint32(b[36:40], h.StringsOffset)
	binary.LittleEndian.PutUint32(b[40:44], h.StringsCompressedLen)
	binary.LittleEndian.PutUint32(b[44:48], h.StringsRawLen)
}

func readFileHeader(b []byte) fileHeader {
	var h fileHeader
	copy(h.Magic[:], b[0:4])
	h.Version = binary.LittleEndian.Uint32(b[4:8])
	h.HashOffset = binary.LittleEndian.Uint32(b[8:12])
	h.HashBucketCount = binary.LittleEndian.Uint32(b[12:16])
	h.EntriesOffset = binary.LittleEndian.Uint32(b[16:20])
	h.EntriesCount = binary.LittleEndian.Uint32(b[20:24])
	h.DataOffset = binary.LittleEndian.Uint32(b[24:28])
	h.DataCompressedLen = binary.LittleEndian.Uint32(b[28:32])
	h.DataRawLen = binary.LittleEndian.Uint32(b[32:36])
	h.StringsOffset = binary.LittleEndian.Uint32(b[36:40])
	h.StringsCompressedLen = binary.LittleEndian.Uint32(b[40:44])
	h.StringsRawLen = binary.LittleEndian.Uint32(b[44:48])
	return h
}
