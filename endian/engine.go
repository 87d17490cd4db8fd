// Package endian provides byte order utilities for the BTOON wire format.
//
// It combines the standard library's binary.ByteOrder and
// binary.AppendByteOrder interfaces into a single EndianEngine interface so
// encoders can both read fixed-width integers and append them without a
// scratch buffer.
//
// BTOON is big-endian on the wire; GetBigEndianEngine is the engine every
// codec component uses. The little-endian engine exists for callers
// embedding BTOON payloads in little-endian container formats.
package endian

import (
	"encoding/binary"
	"unsafe"
)

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary.
// It is satisfied by binary.BigEndian and binary.LittleEndian.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetBigEndianEngine returns the big-endian engine, the byte order of the
// BTOON wire format.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// CheckEndianness determines the host's native byte order.
func CheckEndianness() binary.ByteOrder {
	// 0x0100 is 256. On a little-endian host the LSB (0x00) is stored
	// first; on a big-endian host the MSB (0x01) is.
	var i uint16 = 0x0100
	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// IsNativeBigEndian reports whether the host stores integers big-endian,
// i.e. whether wire reads can skip byte swapping.
func IsNativeBigEndian() bool {
	return CheckEndianness() == binary.BigEndian
}

// IsNativeLittleEndian reports whether the host stores integers little-endian.
func IsNativeLittleEndian() bool {
	return CheckEndianness() == binary.LittleEndian
}
