// Package codec implements the BTOON value model and the wire codec: a
// MessagePack-compatible binary grammar extended with date/time types,
// big integers, packed float vectors and a columnar layout for arrays of
// uniform maps.
package codec

import (
	"bytes"
	"math"
	"sort"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNil
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindBinary
	KindArray
	KindMap
	KindTimestamp
	KindDate
	KindDateTime
	KindBigInt
	KindVectorFloat
	KindVectorDouble
	KindExtension
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindTimestamp:
		return "timestamp"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindBigInt:
		return "bigint"
	case KindVectorFloat:
		return "vector_float"
	case KindVectorDouble:
		return "vector_double"
	case KindExtension:
		return "extension"
	default:
		return "invalid"
	}
}

// MapEntry is a single key/value pair of a Map value. Entries of a decoded
// or constructed Map are always held in ascending byte-lexicographic key
// order.
type MapEntry struct {
	Key   string
	Value Value
}

// Value is one of the sixteen BTOON variants. The zero Value is invalid;
// use Nil() for an explicit nil.
//
// Values are immutable to the codec: encoding never mutates its input and
// decoded Values own their storage. A Value may be read concurrently.
type Value struct {
	kind Kind
	num  uint64 // bool, int, uint, float bits, epoch payloads
	str  string
	raw  []byte // binary, bigint, extension payload
	arr  []Value
	ent  []MapEntry
	f32  []float32
	f64  []float64
	ext  int8
}

// Nil returns the nil Value.
func Nil() Value {
	return Value{kind: KindNil}
}

// Bool returns a boolean Value.
func Bool(v bool) Value {
	var n uint64
	if v {
		n = 1
	}

	return Value{kind: KindBool, num: n}
}

// Int returns a signed integer Value.
func Int(v int64) Value {
	return Value{kind: KindInt, num: uint64(v)}
}

// Uint returns an unsigned integer Value.
func Uint(v uint64) Value {
	return Value{kind: KindUint, num: v}
}

// Float returns a 64-bit float Value.
func Float(v float64) Value {
	return Value{kind: KindFloat, num: math.Float64bits(v)}
}

// String returns a string Value.
func String(v string) Value {
	return Value{kind: KindString, str: v}
}

// Binary returns an opaque byte sequence Value. The bytes are not copied;
// the caller must not mutate them afterwards.
func Binary(v []byte) Value {
	return Value{kind: KindBinary, raw: v}
}

// Array returns an ordered sequence Value over elems. The slice is not
// copied.
func Array(elems ...Value) Value {
	return Value{kind: KindArray, arr: elems}
}

// ArrayOf returns an Array Value over an existing slice without copying.
func ArrayOf(elems []Value) Value {
	return Value{kind: KindArray, arr: elems}
}

// Map returns a Map Value over pairs. Entries are sorted into ascending
// byte-lexicographic key order.
func Map(pairs map[string]Value) Value {
	entries := make([]MapEntry, 0, len(pairs))
	for k, v := range pairs {
		entries = append(entries, MapEntry{Key: k, Value: v})
	}
	sortEntries(entries)

	return Value{kind: KindMap, ent: entries}
}

// MapOf returns a Map Value over entries, sorting them by key. Later
// entries win on duplicate keys.
func MapOf(entries ...MapEntry) Value {
	sorted := make([]MapEntry, len(entries))
	copy(sorted, entries)
	sortEntries(sorted)
	sorted = dedupeEntries(sorted)

	return Value{kind: KindMap, ent: sorted}
}

// mapFromSorted wraps already-sorted, duplicate-free entries. Decoder use.
func mapFromSorted(entries []MapEntry) Value {
	return Value{kind: KindMap, ent: entries}
}

// Timestamp returns a Timestamp Value of whole seconds since the Unix epoch.
func Timestamp(seconds int64) Value {
	return Value{kind: KindTimestamp, num: uint64(seconds)}
}

// Date returns a Date Value of milliseconds since the Unix epoch.
func Date(milliseconds int64) Value {
	return Value{kind: KindDate, num: uint64(milliseconds)}
}

// DateTime returns a DateTime Value of nanoseconds since the Unix epoch.
func DateTime(nanoseconds int64) Value {
	return Value{kind: KindDateTime, num: uint64(nanoseconds)}
}

// BigInt returns a BigInt Value over big-endian two's-complement bytes.
// The slice must be non-empty and is not copied.
func BigInt(data []byte) Value {
	return Value{kind: KindBigInt, raw: data}
}

// VectorFloat returns a packed float32 sequence Value. The slice is not
// copied.
func VectorFloat(data []float32) Value {
	return Value{kind: KindVectorFloat, f32: data}
}

// VectorDouble returns a packed float64 sequence Value. The slice is not
// copied.
func VectorDouble(data []float64) Value {
	return Value{kind: KindVectorDouble, f64: data}
}

// Extension returns an application extension Value. Negative type codes are
// reserved by BTOON; callers should use 0..127.
func Extension(extType int8, data []byte) Value {
	return Value{kind: KindExtension, ext: extType, raw: data}
}

func sortEntries(entries []MapEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
}

// dedupeEntries collapses runs of equal keys in sorted entries, keeping the
// last occurrence.
func dedupeEntries(entries []MapEntry) []MapEntry {
	out := entries[:0]
	for i := range entries {
		if len(out) > 0 && out[len(out)-1].Key == entries[i].Key {
			out[len(out)-1] = entries[i]
			continue
		}
		out = append(out, entries[i])
	}

	return out
}

// Kind returns the variant tag of v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNil reports whether v is the nil Value.
func (v Value) IsNil() bool {
	return v.kind == KindNil
}

// Bool returns the boolean payload. Meaningful only for KindBool.
func (v Value) Bool() bool {
	return v.num != 0
}

// Int returns the signed integer payload. Meaningful only for KindInt.
func (v Value) Int() int64 {
	return int64(v.num)
}

// Uint returns the unsigned integer payload. Meaningful only for KindUint.
func (v Value) Uint() uint64 {
	return v.num
}

// Float returns the float payload. Meaningful only for KindFloat.
func (v Value) Float() float64 {
	return math.Float64frombits(v.num)
}

// Str returns the string payload. Meaningful only for KindString.
func (v Value) Str() string {
	return v.str
}

// Bytes returns the byte payload of a Binary, BigInt or Extension value.
// The caller must not mutate the returned slice.
func (v Value) Bytes() []byte {
	return v.raw
}

// Items returns the elements of an Array value.
func (v Value) Items() []Value {
	return v.arr
}

// Entries returns the entries of a Map value in ascending key order.
func (v Value) Entries() []MapEntry {
	return v.ent
}

// Get looks up key in a Map value by binary search.
func (v Value) Get(key string) (Value, bool) {
	i := sort.Search(len(v.ent), func(i int) bool {
		return v.ent[i].Key >= key
	})
	if i < len(v.ent) && v.ent[i].Key == key {
		return v.ent[i].Value, true
	}

	return Value{}, false
}

// Len returns the element count of an Array, Map, VectorFloat or
// VectorDouble value, the byte length of a String, Binary, BigInt or
// Extension payload, and 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindMap:
		return len(v.ent)
	case KindVectorFloat:
		return len(v.f32)
	case KindVectorDouble:
		return len(v.f64)
	case KindString:
		return len(v.str)
	case KindBinary, KindBigInt, KindExtension:
		return len(v.raw)
	default:
		return 0
	}
}

// Epoch returns the raw epoch payload of a Timestamp (seconds), Date
// (milliseconds) or DateTime (nanoseconds) value.
func (v Value) Epoch() int64 {
	return int64(v.num)
}

// Time converts a Timestamp, Date or DateTime value to a time.Time in UTC.
func (v Value) Time() time.Time {
	switch v.kind {
	case KindTimestamp:
		return time.Unix(int64(v.num), 0).UTC()
	case KindDate:
		return time.UnixMilli(int64(v.num)).UTC()
	case KindDateTime:
		return time.Unix(0, int64(v.num)).UTC()
	default:
		return time.Time{}
	}
}

// ExtType returns the signed extension type code of an Extension value.
func (v Value) ExtType() int8 {
	return v.ext
}

// Float32s returns the packed payload of a VectorFloat value.
func (v Value) Float32s() []float32 {
	return v.f32
}

// Float64s returns the packed payload of a VectorDouble value.
func (v Value) Float64s() []float64 {
	return v.f64
}

// Equal reports deep equality of two Values.
//
// Equality is by variant and payload, with one deliberate exception: a
// non-negative Int equals a Uint of the same magnitude. Signed-tag wire
// forms always decode as Int and re-encoding narrows them to the unsigned
// encoding, so equality across a re-encode must be on numeric meaning, not
// the tag. Floats compare by IEEE-754 bit pattern, so NaN equals NaN with
// the same payload bits.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return crossNumericEqual(v, other)
	}

	switch v.kind {
	case KindNil:
		return true
	case KindBool, KindInt, KindUint, KindFloat, KindTimestamp, KindDate, KindDateTime:
		return v.num == other.num
	case KindString:
		return v.str == other.str
	case KindBinary, KindBigInt:
		return bytes.Equal(v.raw, other.raw)
	case KindExtension:
		return v.ext == other.ext && bytes.Equal(v.raw, other.raw)
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}

		return true
	case KindMap:
		if len(v.ent) != len(other.ent) {
			return false
		}
		for i := range v.ent {
			if v.ent[i].Key != other.ent[i].Key || !v.ent[i].Value.Equal(other.ent[i].Value) {
				return false
			}
		}

		return true
	case KindVectorFloat:
		if len(v.f32) != len(other.f32) {
			return false
		}
		for i := range v.f32 {
			if math.Float32bits(v.f32[i]) != math.Float32bits(other.f32[i]) {
				return false
			}
		}

		return true
	case KindVectorDouble:
		if len(v.f64) != len(other.f64) {
			return false
		}
		for i := range v.f64 {
			if math.Float64bits(v.f64[i]) != math.Float64bits(other.f64[i]) {
				return false
			}
		}

		return true
	default:
		return false
	}
}

// crossNumericEqual handles the Int/Uint overlap for non-negative values.
func crossNumericEqual(a, b Value) bool {
	if a.kind == KindUint && b.kind == KindInt {
		a, b = b, a
	}
	if a.kind != KindInt || b.kind != KindUint {
		return false
	}
	i := int64(a.num)

	return i >= 0 && uint64(i) == b.num
}

