// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/playbymail/yini/cerrs"
	"github.com/playbymail/yini/internal/dom"
	"github.com/playbymail/yini/internal/structured"
	"github.com/playbymail/yini/internal/value"
)

// YMETAContent is a bitmask selecting what SaveYMETA writes — the companion
// format preserves the full DOM, the dynamic history, or both (spec §4.H).
type YMETAContent uint32

const (
	ContentFull        YMETAContent = 1 << 0
	ContentDynamicOnly YMETAContent = 1 << 1
)

const ymetaMagic = uint32(0x59494e49) // "YINI"
const ymetaVersion = uint32(1)

// SaveYMETA serializes doc (and optionally its dynamic history) as a YMETA
// blob. Unlike the hash-indexed cache format, YMETA is a flat, sequential
// dump meant for whole-document restore rather than O(1) key lookup.
func SaveYMETA(doc *dom.Document, content YMETAContent) ([]byte, error) {
	var b bytes.Buffer
	writeU32Raw(&b, ymetaMagic)
	writeU32Raw(&b, ymetaVersion)
	writeU32Raw(&b, uint32(content))

	if content&ContentFull != 0 {
		writeU32Raw(&b, uint32(len(doc.Includes)))
		for _, inc := range doc.Includes {
			writeBlobString(&b, inc)
		}

		writeU32Raw(&b, uint32(len(doc.Defines)))
		for name, v := range doc.Defines {
			writeBlobString(&b, name)
			if err := writeValueBlob(&b, v); err != nil {
				return nil, err
			}
		}

		secs := doc.Sections()
		writeU32Raw(&b, uint32(len(secs)))
		for _, sec := range secs {
			writeBlobString(&b, sec.Name)
			writeU32Raw(&b, uint32(len(sec.InheritedNames)))
			for _, p := range sec.InheritedNames {
				writeBlobString(&b, p)
			}
			keys := sec.Keys()
			writeU32Raw(&b, uint32(len(keys)))
			for _, k := range keys {
				v, _ := sec.Get(k)
				writeBlobString(&b, k)
				if err := writeValueBlob(&b, v); err != nil {
					return nil, err
				}
			}
			writeU32Raw(&b, uint32(len(sec.Registrations)))
			for _, v := range sec.Registrations {
				if err := writeValueBlob(&b, v); err != nil {
					return nil, err
				}
			}
		}
	}

	if content&ContentDynamicOnly != 0 {
		writeU32Raw(&b, uint32(len(doc.DynamicHistory)))
		for key, history := range doc.DynamicHistory {
			writeBlobString(&b, key)
			writeU32Raw(&b, uint32(len(history)))
			for _, v := range history {
				if err := writeValueBlob(&b, v); err != nil {
					return nil, err
				}
			}
		}
	}

	return b.Bytes(), nil
}

// LoadYMETA reconstructs a dom.Document (and its dynamic history, if
// present) from a YMETA blob.
func LoadYMETA(data []byte) (*dom.Document, error) {
	r := &byteReader{data: data}
	magic, err := r.u32()
	if err != nil {
		return nil, err
	}
	if magic != ymetaMagic {
		return nil, fmt.Errorf("%w: bad YMETA magic", cerrs.ErrCorruptCache)
	}
	version, err := r.u32()
	if err != nil {
		return nil, err
	}
	if version != ymetaVersion {
		return nil, fmt.Errorf("%w: YMETA version %d", cerrs.ErrUnsupportedCacheVersion, version)
	}
	flagsRaw, err := r.u32()
	if err != nil {
		return nil, err
	}
	content := YMETAContent(flagsRaw)

	out := dom.NewDocument()

	if content&ContentFull != 0 {
		includeCount, err := r.u32()
		if err != nil {
			return nil, err
		}
		for i := uint32(0); i < includeCount; i++ {
			s, err := r.str()
			if err != nil {
				return nil, err
			}
			out.Includes = append(out.Includes, s)
		}

		defineCount, err := r.u32()
		if err != nil {
			return nil, err
		}
		for i := uint32(0); i < defineCount; i++ {
			name, err := r.str()
			if err != nil {
				return nil, err
			}
			v, err := r.value()
			if err != nil {
				return nil, err
			}
			out.Defines[name] = v
		}

		sectionCount, err := r.u32()
		if err != nil {
			return nil, err
		}
		for i := uint32(0); i < sectionCount; i++ {
			name, err := r.str()
			if err != nil {
				return nil, err
			}
			parentCount, err := r.u32()
			if err != nil {
				return nil, err
			}
			parents := make([]string, parentCount)
			for j := range parents {
				parents[j], err = r.str()
				if err != nil {
					return nil, err
				}
			}
			sec := out.AddSection(name, parents)

			entryCount, err := r.u32()
			if err != nil {
				return nil, err
			}
			for j := uint32(0); j < entryCount; j++ {
				key, err := r.str()
				if err != nil {
					return nil, err
				}
				v, err := r.value()
				if err != nil {
					return nil, err
				}
				sec.AddEntry(key, v)
			}

			regCount, err := r.u32()
			if err != nil {
				return nil, err
			}
			for j := uint32(0); j < regCount; j++ {
				v, err := r.value()
				if err != nil {
					return nil, err
				}
				sec.Registrations = append(sec.Registrations, v)
			}
		}
	}

	if content&ContentDynamicOnly != 0 {
		dynamicCount, err := r.u32()
		if err != nil {
			return nil, err
		}
		for i := uint32(0); i < dynamicCount; i++ {
			key, err := r.str()
			if err != nil {
				return nil, err
			}
			historyCount, err := r.u32()
			if err != nil {
				return nil, err
			}
			history := make([]value.Value, historyCount)
			for j := range history {
				history[j], err = r.value()
				if err != nil {
					return nil, err
				}
			}
			out.DynamicHistory[key] = history
		}
	}

	return out, nil
}

func writeU32Raw(b *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.Write(buf[:])
}

func writeBlobString(b *bytes.Buffer, s string) {
	writeU32Raw(b, uint32(len(s)))
	b.WriteString(s)
}

func writeValueBlob(b *bytes.Buffer, v value.Value) error {
	data, err := yaml.Marshal(structured.ToTree(v))
	if err != nil {
		return fmt.Errorf("cache: YMETA value: %w", err)
	}
	writeU32Raw(b, uint32(len(data)))
	b.Write(data)
	return nil
}

// byteReader sequentially consumes a YMETA blob, failing closed on any
// read past the end of the buffer.
type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) u32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("%w: truncated YMETA stream", cerrs.ErrCorruptCache)
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *byteReader) str() (string, error) {
	length, err := r.u32()
	if err != nil {
		return "", err
	}
	if r.pos+int(length) > len(r.data) {
		return "", fmt.Errorf("%w: truncated YMETA string", cerrs.ErrCorruptCache)
	}
	s := string(r.data[r.pos : r.pos+int(length)])
	r.pos += int(length)
	return s, nil
}

func (r *byteReader) value() (value.Value, error) {
	length, err := r.u32()
	if err != nil {
		return value.Value{}, err
	}
	if r.pos+int(length) > len(r.data) {
		return value.Value{}, fmt.Errorf("%w: truncated YMETA value", cerrs.ErrCorruptCache)
	}
	raw := r.data[r.pos : r.pos+int(length)]
	r.pos += int(length)
	var tree any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return value.Value{}, fmt.Errorf("cache: YMETA value: %w", err)
	}
	return structured.FromTree(tree)
}
