// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/goccy/go-yaml"
	"github.com/playbymail/yini/cerrs"
	"github.com/playbymail/yini/internal/structured"
	"github.com/playbymail/yini/internal/value"
)

// stringTable accumulates length-prefixed, deduplicated strings and hands
// back the byte offset of each one.
type stringTable struct {
	buf     bytes.Buffer
	offsets map[string]uint32
}

func newStringTable() *stringTable {
	return &stringTable{offsets: map[string]uint32{}}
}

func (st *stringTable) intern(s string) uint32 {
	if off, ok := st.offsets[s]; ok {
		return off
	}
	off := uint32(st.buf.Len())
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	st.buf.Write(lenBuf[:])
	st.buf.WriteString(s)
	st.offsets[s] = off
	return off
}

func readString(data []byte, offset uint32) (string, error) {
	if uint64(offset)+4 > uint64(len(data)) {
		return "", fmt.Errorf("cache: string offset %d out of range", offset)
	}
	length := binary.LittleEndian.Uint32(data[offset : offset+4])
	end := uint64(offset) + 4 + uint64(length)
	if end > uint64(len(data)) {
		return "", fmt.Errorf("cache: string at offset %d exceeds table bounds", offset)
	}
	return string(data[offset+4 : end]), nil
}

// encodeValue appends v's representation to the appropriate table and
// returns the value type tag plus the offset/inline value the HashTableEntry
// should record.
func encodeValue(v value.Value, st *stringTable, dt *bytes.Buffer) (ValueType, uint32, error) {
	switch v.Kind {
	case value.Nil:
		return TypeNil, 0, nil
	case value.Bool:
		if v.Bool {
			return TypeBool, 1, nil
		}
		return TypeBool, 0, nil
	case value.Int:
		off := uint32(dt.Len())
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(v.Int))
		dt.Write(b[:])
		return TypeInt, off, nil
	case value.Float:
		off := uint32(dt.Len())
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v.Float))
		dt.Write(b[:])
		return TypeFloat, off, nil
	case value.Str, value.PathKind:
		return TypeString, st.intern(v.Str), nil
	case value.ColorKind:
		off := uint32(dt.Len())
		hasAlpha := byte(0)
		var alpha byte
		if v.Color.A != nil {
			hasAlpha = 1
			alpha = *v.Color.A
		}
		dt.Write([]byte{v.Color.R, v.Color.G, v.Color.B, hasAlpha, alpha})
		return TypeColor, off, nil
	case value.CoordKind:
		off := uint32(dt.Len())
		var buf [25]byte
		binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(v.Coord.X))
		binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(v.Coord.Y))
		z := 0.0
		is3d := byte(0)
		if v.Coord.Z != nil {
			z = *v.Coord.Z
			is3d = 1
		}
		binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(z))
		buf[24] = is3d
		dt.Write(buf[:])
		return TypeCoord, off, nil
	case value.Array:
		if t, off, ok := encodeHomogeneousArray(v.Items, st, dt); ok {
			return t, off, nil
		}
		return encodeBlob(v, dt)
	default:
		return encodeBlob(v, dt)
	}
}

// encodeHomogeneousArray handles the common case of an array whose elements
// are all the same scalar kind, where a compact fixed-layout array fits
// spec §4.H. Mixed or nested arrays fall back to a blob.
func encodeHomogeneousArray(items []value.Value, st *stringTable, dt *bytes.Buffer) (ValueType, uint32, bool) {
	if len(items) == 0 {
		off := uint32(dt.Len())
		var count [4]byte
		dt.Write(count[:])
		return TypeArrayInt, off, true
	}
	kind := items[0].Kind
	for _, it := range items {
		if it.Kind != kind {
			return 0, 0, false
		}
	}
	off := uint32(dt.Len())
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(items)))
	dt.Write(count[:])
	switch kind {
	case value.Int:
		for _, it := range items {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], uint64(it.Int))
			dt.Write(b[:])
		}
		return TypeArrayInt, off, true
	case value.Float:
		for _, it := range items {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], math.Float64bits(it.Float))
			dt.Write(b[:])
		}
		return TypeArrayFloat, off, true
	case value.Bool:
		for _, it := range items {
			if it.Bool {
				dt.WriteByte(1)
			} else {
				dt.WriteByte(0)
			}
		}
		return TypeArrayBool, off, true
	case value.Str:
		for _, it := range items {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], st.intern(it.Str))
			dt.Write(b[:])
		}
		return TypeArrayString, off, true
	default:
		return 0, 0, false
	}
}

// encodeBlob is the spec §4.H fallback for value kinds without a fixed
// layout: the structured-codec tree, marshaled and length-prefixed.
func encodeBlob(v value.Value, dt *bytes.Buffer) (ValueType, uint32, error) {
	tree := structured.ToTree(v)
	data, err := yaml.Marshal(tree)
	if err != nil {
		return 0, 0, fmt.Errorf("cache: encoding blob: %w", err)
	}
	off := uint32(dt.Len())
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	dt.Write(lenBuf[:])
	dt.Write(data)
	return TypeBlob, off, nil
}

func decodeValue(t ValueType, inline uint32, data, strings []byte) (value.Value, error) {
	switch t {
	case TypeNil:
		return value.NilValue(), nil
	case TypeBool:
		return value.BoolValue(inline != 0), nil
	case TypeInt:
		b, err := slice(data, inline, 8)
		if err != nil {
			return value.Value{}, err
		}
		return value.IntValue(int64(binary.LittleEndian.Uint64(b))), nil
	case TypeFloat:
		b, err := slice(data, inline, 8)
		if err != nil {
			return value.Value{}, err
		}
		return value.FloatValue(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	case TypeString:
		s, err := readString(strings, inline)
		if err != nil {
			return value.Value{}, err
		}
		return value.StringValue(s), nil
	case TypeColor:
		b, err := slice(data, inline, 5)
		if err != nil {
			return value.Value{}, err
		}
		c := value.Color{R: b[0], G: b[1], B: b[2]}
		if b[3] != 0 {
			a := b[4]
			c.A = &a
		}
		return value.ColorValue(c), nil
	case TypeCoord:
		b, err := slice(data, inline, 25)
		if err != nil {
			return value.Value{}, err
		}
		x := math.Float64frombits(binary.LittleEndian.Uint64(b[0:8]))
		y := math.Float64frombits(binary.LittleEndian.Uint64(b[8:16]))
		c := value.Coord{X: x, Y: y}
		if b[24] != 0 {
			z := math.Float64frombits(binary.LittleEndian.Uint64(b[16:24]))
			c.Z = &z
		}
		return value.CoordValue(c), nil
	case TypeArrayInt:
		return decodeArray(data, inline, 8, func(b []byte) value.Value {
			return value.IntValue(int64(binary.LittleEndian.Uint64(b)))
		})
	case TypeArrayFloat:
		return decodeArray(data, inline, 8, func(b []byte) value.Value {
			return value.FloatValue(math.Float64frombits(binary.LittleEndian.Uint64(b)))
		})
	case TypeArrayBool:
		return decodeArray(data, inline, 1, func(b []byte) value.Value {
			return value.BoolValue(b[0] != 0)
		})
	case TypeArrayString:
		var outErr error
		v, err := decodeArray(data, inline, 4, func(b []byte) value.Value {
			s, e := readString(strings, binary.LittleEndian.Uint32(b))
			if e != nil {
				outErr = e
				return value.Value{}
			}
			return value.StringValue(s)
		})
		if outErr != nil {
			return value.Value{}, outErr
		}
		return v, err
	case TypeBlob:
		length, err := readU32(data, inline)
		if err != nil {
			return value.Value{}, err
		}
		b, err := slice(data, inline+4, length)
		if err != nil {
			return value.Value{}, err
		}
		var tree any
		if err := yaml.Unmarshal(b, &tree); err != nil {
			return value.Value{}, fmt.Errorf("cache: decoding blob: %w", err)
		}
		return structured.FromTree(tree)
	default:
		return value.Value{}, fmt.Errorf("cache: unknown value type %d", t)
	}
}

func decodeArray(data []byte, offset uint32, elemSize int, decode func([]byte) value.Value) (value.Value, error) {
	count, err := readU32(data, offset)
	if err != nil {
		return value.Value{}, err
	}
	items := make([]value.Value, count)
	base := offset + 4
	for i := uint32(0); i < count; i++ {
		b, err := slice(data, base+i*uint32(elemSize), uint32(elemSize))
		if err != nil {
			return value.Value{}, err
		}
		items[i] = decode(b)
	}
	return value.ArrayValue(items), nil
}

func readU32(data []byte, offset uint32) (uint32, error) {
	b, err := slice(data, offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func slice(data []byte, offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("%w: offset %d length %d exceeds table of size %d", cerrs.ErrCorruptCache, offset, length, len(data))
	}
	return data[offset:end], nil
}
