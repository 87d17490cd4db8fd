package codec

import (
	"fmt"
	"math"

	"github.com/BTOON-project/btoon-core/buffer"
	"github.com/BTOON-project/btoon-core/format"
	"github.com/BTOON-project/btoon-core/frame"
)

// Encode serializes value into the BTOON wire format according to opts.
//
// Map entries are emitted in ascending byte-lexicographic key order, making
// the output canonical: encoding the same Value with the same options
// always produces the same bytes. With compression enabled the wire bytes
// are wrapped in a frame when they reach the minimum compression size.
//
// The returned slice is owned by the caller.
func Encode(value Value, opts ...EncodeOption) ([]byte, error) {
	cfg, err := NewEncodeConfig(opts...)
	if err != nil {
		return nil, err
	}

	return EncodeWithConfig(value, cfg)
}

// EncodeWithConfig is Encode with a pre-resolved configuration. Useful when
// encoding many values under the same settings.
func EncodeWithConfig(value Value, cfg *EncodeConfig) ([]byte, error) {
	w := buffer.NewWriter()
	defer w.Close()

	enc := encoder{w: w, autoTabular: cfg.AutoTabular}
	if err := enc.encodeValue(value); err != nil {
		return nil, err
	}

	if !cfg.Compress || w.Len() < cfg.MinCompressionSize {
		return w.Detach(), nil
	}

	algorithm, level := cfg.Algorithm, cfg.Level
	if cfg.AdaptiveCompression {
		// Adaptive selection always runs the chosen codec at its default level.
		algorithm, level = selectAlgorithm(w.Len()), 0
	}

	return frame.Wrap(w.Bytes(), algorithm, level)
}

// selectAlgorithm is the adaptive compression rule: zlib below the
// threshold, zstd at or above it. Deterministic in the input length.
func selectAlgorithm(size int) format.CompressionType {
	if size < AdaptiveZstdThreshold {
		return format.CompressionZlib
	}

	return format.CompressionZstd
}

// encoder is a per-call scratch pad around a pooled writer. It holds no
// state between top-level Encode calls.
type encoder struct {
	w           *buffer.Writer
	autoTabular bool
}

func (e *encoder) encodeValue(v Value) error {
	switch v.Kind() {
	case KindNil:
		e.w.AppendUint8(format.TagNil)
	case KindBool:
		if v.Bool() {
			e.w.AppendUint8(format.TagTrue)
		} else {
			e.w.AppendUint8(format.TagFalse)
		}
	case KindInt:
		e.encodeInt(v.Int())
	case KindUint:
		e.encodeUint(v.Uint())
	case KindFloat:
		e.w.AppendUint8(format.TagFloat64)
		e.w.AppendFloat64(v.Float())
	case KindString:
		e.encodeString(v.Str())
	case KindBinary:
		e.encodeBinary(v.Bytes())
	case KindArray:
		return e.encodeArray(v)
	case KindMap:
		return e.encodeMap(v.Entries())
	case KindTimestamp:
		e.encodeEpochExt(format.ExtTimestamp, v.Epoch())
	case KindDate:
		e.encodeEpochExt(format.ExtDate, v.Epoch())
	case KindDateTime:
		e.encodeEpochExt(format.ExtDateTime, v.Epoch())
	case KindBigInt:
		if len(v.Bytes()) == 0 {
			return fmt.Errorf("bigint payload must be at least one byte")
		}
		e.encodeExt(format.ExtBigInt, v.Bytes())
	case KindVectorFloat:
		e.encodeVectorFloat(v.Float32s())
	case KindVectorDouble:
		e.encodeVectorDouble(v.Float64s())
	case KindExtension:
		e.encodeExt(v.ExtType(), v.Bytes())
	default:
		return fmt.Errorf("cannot encode invalid value")
	}

	return nil
}

// encodeInt emits the smallest signed encoding for negative values and
// narrows non-negative values to the unsigned encodings.
func (e *encoder) encodeInt(v int64) {
	if v >= 0 {
		e.encodeUint(uint64(v))
		return
	}

	switch {
	case v >= format.MinNegFixint:
		e.w.AppendInt8(int8(v))
	case v >= math.MinInt8:
		e.w.AppendUint8(format.TagInt8)
		e.w.AppendInt8(int8(v))
	case v >= math.MinInt16:
		e.w.AppendUint8(format.TagInt16)
		e.w.AppendInt16(int16(v))
	case v >= math.MinInt32:
		e.w.AppendUint8(format.TagInt32)
		e.w.AppendInt32(int32(v))
	default:
		e.w.AppendUint8(format.TagInt64)
		e.w.AppendInt64(v)
	}
}

func (e *encoder) encodeUint(v uint64) {
	switch {
	case v <= uint64(format.TagPosFixintMax):
		e.w.AppendUint8(uint8(v))
	case v <= math.MaxUint8:
		e.w.AppendUint8(format.TagUint8)
		e.w.AppendUint8(uint8(v))
	case v <= math.MaxUint16:
		e.w.AppendUint8(format.TagUint16)
		e.w.AppendUint16(uint16(v))
	case v <= math.MaxUint32:
		e.w.AppendUint8(format.TagUint32)
		e.w.AppendUint32(uint32(v))
	default:
		e.w.AppendUint8(format.TagUint64)
		e.w.AppendUint64(v)
	}
}

func (e *encoder) encodeString(s string) {
	n := len(s)
	switch {
	case n <= format.MaxFixstrLen:
		e.w.AppendUint8(format.TagFixstrBase | uint8(n))
	case n <= math.MaxUint8:
		e.w.AppendUint8(format.TagStr8)
		e.w.AppendUint8(uint8(n))
	case n <= math.MaxUint16:
		e.w.AppendUint8(format.TagStr16)
		e.w.AppendUint16(uint16(n))
	default:
		e.w.AppendUint8(format.TagStr32)
		e.w.AppendUint32(uint32(n))
	}
	e.w.AppendString(s)
}

func (e *encoder) encodeBinary(b []byte) {
	n := len(b)
	switch {
	case n <= math.MaxUint8:
		e.w.AppendUint8(format.TagBin8)
		e.w.AppendUint8(uint8(n))
	case n <= math.MaxUint16:
		e.w.AppendUint8(format.TagBin16)
		e.w.AppendUint16(uint16(n))
	default:
		e.w.AppendUint8(format.TagBin32)
		e.w.AppendUint32(uint32(n))
	}
	e.w.AppendBytes(b)
}

func (e *encoder) encodeArray(v Value) error {
	if e.autoTabular && IsTabular(v) {
		return e.encodeTabular(v.Items())
	}

	elems := v.Items()
	n := len(elems)
	switch {
	case n <= format.MaxFixarrayLen:
		e.w.AppendUint8(format.TagFixarrayBase | uint8(n))
	case n <= math.MaxUint16:
		e.w.AppendUint8(format.TagArray16)
		e.w.AppendUint16(uint16(n))
	default:
		e.w.AppendUint8(format.TagArray32)
		e.w.AppendUint32(uint32(n))
	}
	for i := range elems {
		if err := e.encodeValue(elems[i]); err != nil {
			return err
		}
	}

	return nil
}

func (e *encoder) encodeMap(entries []MapEntry) error {
	n := len(entries)
	switch {
	case n <= format.MaxFixmapLen:
		e.w.AppendUint8(format.TagFixmapBase | uint8(n))
	case n <= math.MaxUint16:
		e.w.AppendUint8(format.TagMap16)
		e.w.AppendUint16(uint16(n))
	default:
		e.w.AppendUint8(format.TagMap32)
		e.w.AppendUint32(uint32(n))
	}
	for i := range entries {
		e.encodeString(entries[i].Key)
		if err := e.encodeValue(entries[i].Value); err != nil {
			return err
		}
	}

	return nil
}

// encodeExtHeader writes the extension tag and length prefix for a payload
// of n bytes, followed by the signed type code. The length counts the
// payload only, not the type byte.
func (e *encoder) encodeExtHeader(extType int8, n int) {
	switch n {
	case 1:
		e.w.AppendUint8(format.TagFixext1)
	case 2:
		e.w.AppendUint8(format.TagFixext2)
	case 4:
		e.w.AppendUint8(format.TagFixext4)
	case 8:
		e.w.AppendUint8(format.TagFixext8)
	case 16:
		e.w.AppendUint8(format.TagFixext16)
	default:
		switch {
		case n <= math.MaxUint8:
			e.w.AppendUint8(format.TagExt8)
			e.w.AppendUint8(uint8(n))
		case n <= math.MaxUint16:
			e.w.AppendUint8(format.TagExt16)
			e.w.AppendUint16(uint16(n))
		default:
			e.w.AppendUint8(format.TagExt32)
			e.w.AppendUint32(uint32(n))
		}
	}
	e.w.AppendInt8(extType)
}

func (e *encoder) encodeExt(extType int8, payload []byte) {
	e.encodeExtHeader(extType, len(payload))
	e.w.AppendBytes(payload)
}

func (e *encoder) encodeEpochExt(extType int8, epoch int64) {
	e.encodeExtHeader(extType, 8)
	e.w.AppendInt64(epoch)
}

func (e *encoder) encodeVectorFloat(data []float32) {
	e.encodeExtHeader(format.ExtVectorFloat, len(data)*4)
	e.w.Grow(len(data) * 4)
	for _, f := range data {
		e.w.AppendFloat32(f)
	}
}

func (e *encoder) encodeVectorDouble(data []float64) {
	e.encodeExtHeader(format.ExtVectorDouble, len(data)*8)
	e.w.Grow(len(data) * 8)
	for _, f := range data {
		e.w.AppendFloat64(f)
	}
}
