package codec

import (
	"github.com/BTOON-project/btoon-core/buffer"
	"github.com/BTOON-project/btoon-core/errs"
	"github.com/BTOON-project/btoon-core/format"
	"github.com/BTOON-project/btoon-core/frame"
)

// Decode recovers a Value from BTOON wire bytes.
//
// The decoder is safe on untrusted input: every read is bounds-checked,
// length claims are verified against remaining bytes before allocation, and
// recursion is capped by the depth limit. It fails fatally on the first
// structural violation with an error from the errs kind set carrying the
// byte offset of the failure.
//
// With auto-decompress on (the default), input starting with the frame
// magic and a version byte of 1 is unwrapped before decoding.
//
// The returned Value owns its storage; it never aliases data.
func Decode(data []byte, opts ...DecodeOption) (Value, error) {
	cfg, err := NewDecodeConfig(opts...)
	if err != nil {
		return Value{}, err
	}

	return DecodeWithConfig(data, cfg)
}

// DecodeWithConfig is Decode with a pre-resolved configuration.
func DecodeWithConfig(data []byte, cfg *DecodeConfig) (Value, error) {
	if cfg.AutoDecompress && frame.Detect(data) {
		payload, err := frame.Unwrap(data, cfg.MaxRatio)
		if err != nil {
			return Value{}, err
		}
		data = payload
	}

	dec := decoder{r: buffer.NewReader(data), cfg: cfg}
	v, err := dec.decodeValue(0)
	if err != nil {
		return Value{}, err
	}

	if cfg.Strict && dec.r.Remaining() > 0 {
		return Value{}, errs.Newf(errs.KindTrailingBytes, dec.r.Offset(),
			"%d bytes remain after outermost value", dec.r.Remaining())
	}

	return v, nil
}

// decoder shares a single cursor across the recursive descent. It holds no
// state between top-level calls.
type decoder struct {
	r   *buffer.Reader
	cfg *DecodeConfig
}

func (d *decoder) decodeValue(depth int) (Value, error) {
	tagOffset := d.r.Offset()
	tag, err := d.r.ReadUint8()
	if err != nil {
		return Value{}, err
	}

	switch {
	case tag <= format.TagPosFixintMax:
		return Uint(uint64(tag)), nil
	case tag >= format.TagNegFixintMin:
		return Int(int64(int8(tag))), nil
	case tag >= format.TagFixmapBase && tag < format.TagFixarrayBase:
		return d.decodeMap(int(tag&0x0f), depth)
	case tag >= format.TagFixarrayBase && tag < format.TagFixstrBase:
		return d.decodeArray(int(tag&0x0f), depth)
	case tag >= format.TagFixstrBase && tag < format.TagNil:
		return d.decodeString(int(tag & 0x1f))
	}

	switch tag {
	case format.TagNil:
		return Nil(), nil
	case format.TagFalse:
		return Bool(false), nil
	case format.TagTrue:
		return Bool(true), nil
	case format.TagBin8, format.TagBin16, format.TagBin32:
		return d.decodeBinary(tag)
	case format.TagExt8, format.TagExt16, format.TagExt32,
		format.TagFixext1, format.TagFixext2, format.TagFixext4, format.TagFixext8, format.TagFixext16:
		return d.decodeExtension(tag, depth)
	case format.TagFloat32:
		f, err := d.r.ReadFloat32()
		if err != nil {
			return Value{}, err
		}

		return Float(float64(f)), nil
	case format.TagFloat64:
		f, err := d.r.ReadFloat64()
		if err != nil {
			return Value{}, err
		}

		return Float(f), nil
	case format.TagUint8, format.TagUint16, format.TagUint32, format.TagUint64:
		return d.decodeUint(tag)
	case format.TagInt8, format.TagInt16, format.TagInt32, format.TagInt64:
		return d.decodeInt(tag)
	case format.TagStr8, format.TagStr16, format.TagStr32:
		n, err := d.readLength(tag - format.TagStr8)
		if err != nil {
			return Value{}, err
		}

		return d.decodeString(n)
	case format.TagArray16, format.TagArray32:
		n, err := d.readLength(tag - format.TagArray16 + 1)
		if err != nil {
			return Value{}, err
		}

		return d.decodeArray(n, depth)
	case format.TagMap16, format.TagMap32:
		n, err := d.readLength(tag - format.TagMap16 + 1)
		if err != nil {
			return Value{}, err
		}

		return d.decodeMap(n, depth)
	default:
		return Value{}, errs.Newf(errs.KindUnknownTag, tagOffset, "tag byte 0x%02x", tag)
	}
}

// readLength reads a uint8 (width 0), uint16 (width 1) or uint32 (width 2)
// length prefix.
func (d *decoder) readLength(width uint8) (int, error) {
	switch width {
	case 0:
		n, err := d.r.ReadUint8()
		return int(n), err
	case 1:
		n, err := d.r.ReadUint16()
		return int(n), err
	default:
		n, err := d.r.ReadUint32()
		return int(n), err
	}
}

func (d *decoder) decodeUint(tag uint8) (Value, error) {
	switch tag {
	case format.TagUint8:
		v, err := d.r.ReadUint8()
		return Uint(uint64(v)), err
	case format.TagUint16:
		v, err := d.r.ReadUint16()
		return Uint(uint64(v)), err
	case format.TagUint32:
		v, err := d.r.ReadUint32()
		return Uint(uint64(v)), err
	default:
		v, err := d.r.ReadUint64()
		return Uint(v), err
	}
}

// decodeInt decodes the signed tag forms. A non-negative payload carried by
// a signed tag still decodes as Int; re-encoding narrows it.
func (d *decoder) decodeInt(tag uint8) (Value, error) {
	switch tag {
	case format.TagInt8:
		v, err := d.r.ReadInt8()
		return Int(int64(v)), err
	case format.TagInt16:
		v, err := d.r.ReadInt16()
		return Int(int64(v)), err
	case format.TagInt32:
		v, err := d.r.ReadInt32()
		return Int(int64(v)), err
	default:
		v, err := d.r.ReadInt64()
		return Int(v), err
	}
}

func (d *decoder) decodeString(n int) (Value, error) {
	s, err := d.r.ReadUTF8(n, d.cfg.Strict)
	if err != nil {
		return Value{}, err
	}

	return String(s), nil
}

func (d *decoder) decodeBinary(tag uint8) (Value, error) {
	n, err := d.readLength(tag - format.TagBin8)
	if err != nil {
		return Value{}, err
	}
	raw, err := d.r.ReadBytes(n)
	if err != nil {
		return Value{}, err
	}
	owned := make([]byte, n)
	copy(owned, raw)

	return Binary(owned), nil
}

func (d *decoder) decodeArray(count, depth int) (Value, error) {
	if depth+1 > d.cfg.MaxDepth {
		return Value{}, errs.New(errs.KindDepthExceeded, d.r.Offset(), "array nesting too deep")
	}

	// Capacity is capped by remaining input: each element costs at least
	// one byte, so a hostile count cannot force a huge allocation.
	elems := make([]Value, 0, minInt(count, d.r.Remaining()))
	for i := 0; i < count; i++ {
		v, err := d.decodeValue(depth + 1)
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, v)
	}

	return ArrayOf(elems), nil
}

func (d *decoder) decodeMap(count, depth int) (Value, error) {
	if depth+1 > d.cfg.MaxDepth {
		return Value{}, errs.New(errs.KindDepthExceeded, d.r.Offset(), "map nesting too deep")
	}

	entries := make([]MapEntry, 0, minInt(count, d.r.Remaining()/2))
	for i := 0; i < count; i++ {
		keyOffset := d.r.Offset()
		key, err := d.decodeMapKey()
		if err != nil {
			return Value{}, err
		}
		if d.cfg.Strict && len(entries) > 0 {
			prev := entries[len(entries)-1].Key
			if key == prev {
				return Value{}, errs.Newf(errs.KindDuplicateKey, keyOffset, "key %q repeats", key)
			}
			if key < prev {
				return Value{}, errs.Newf(errs.KindKeyOrder, keyOffset, "key %q arrives after %q", key, prev)
			}
		}

		v, err := d.decodeValue(depth + 1)
		if err != nil {
			return Value{}, err
		}
		entries = append(entries, MapEntry{Key: key, Value: v})
	}

	if !d.cfg.Strict {
		// Out-of-order input is normalized; on duplicates the last
		// arrival wins.
		sortEntries(entries)
		entries = dedupeEntries(entries)
	}

	return mapFromSorted(entries), nil
}

// decodeMapKey reads a string in any of its wire forms. Map keys are
// strings only.
func (d *decoder) decodeMapKey() (string, error) {
	tagOffset := d.r.Offset()
	tag, err := d.r.ReadUint8()
	if err != nil {
		return "", err
	}

	var n int
	switch {
	case tag >= format.TagFixstrBase && tag < format.TagNil:
		n = int(tag & 0x1f)
	case tag == format.TagStr8 || tag == format.TagStr16 || tag == format.TagStr32:
		n, err = d.readLength(tag - format.TagStr8)
		if err != nil {
			return "", err
		}
	default:
		return "", errs.Newf(errs.KindUnknownTag, tagOffset, "map key must be a string, got tag 0x%02x", tag)
	}

	return d.r.ReadUTF8(n, d.cfg.Strict)
}

func (d *decoder) decodeExtension(tag uint8, depth int) (Value, error) {
	var n int
	var err error
	switch tag {
	case format.TagFixext1:
		n = 1
	case format.TagFixext2:
		n = 2
	case format.TagFixext4:
		n = 4
	case format.TagFixext8:
		n = 8
	case format.TagFixext16:
		n = 16
	default:
		n, err = d.readLength(tag - format.TagExt8)
		if err != nil {
			return Value{}, err
		}
	}

	extType, err := d.r.ReadInt8()
	if err != nil {
		return Value{}, err
	}

	payloadOffset := d.r.Offset()
	payload, err := d.r.ReadBytes(n)
	if err != nil {
		return Value{}, err
	}

	switch extType {
	case format.ExtTimestamp:
		return d.decodeTimestamp(payload, payloadOffset)
	case format.ExtDate:
		v, err := epochPayload(payload, payloadOffset, "date")
		return Date(v), err
	case format.ExtDateTime:
		v, err := epochPayload(payload, payloadOffset, "datetime")
		return DateTime(v), err
	case format.ExtBigInt:
		if len(payload) == 0 {
			return Value{}, errs.New(errs.KindInvalidExtension, payloadOffset, "bigint payload is empty")
		}
		owned := make([]byte, len(payload))
		copy(owned, payload)

		return BigInt(owned), nil
	case format.ExtVectorFloat:
		return decodeVectorFloat(payload, payloadOffset)
	case format.ExtVectorDouble:
		return decodeVectorDouble(payload, payloadOffset)
	case format.ExtTabular:
		return d.decodeTabular(payload, payloadOffset, depth)
	default:
		owned := make([]byte, len(payload))
		copy(owned, payload)

		return Extension(extType, owned), nil
	}
}

func (d *decoder) decodeTimestamp(payload []byte, offset int) (Value, error) {
	switch len(payload) {
	case 4:
		r := buffer.NewReader(payload)
		sec, _ := r.ReadInt32()

		return Timestamp(int64(sec)), nil
	case 8:
		r := buffer.NewReader(payload)
		sec, _ := r.ReadInt64()

		return Timestamp(sec), nil
	default:
		return Value{}, errs.Newf(errs.KindInvalidExtension, offset, "timestamp payload is %d bytes, want 4 or 8", len(payload))
	}
}

func epochPayload(payload []byte, offset int, what string) (int64, error) {
	if len(payload) != 8 {
		return 0, errs.Newf(errs.KindInvalidExtension, offset, "%s payload is %d bytes, want 8", what, len(payload))
	}
	r := buffer.NewReader(payload)
	v, _ := r.ReadInt64()

	return v, nil
}

func decodeVectorFloat(payload []byte, offset int) (Value, error) {
	if len(payload)%4 != 0 {
		return Value{}, errs.Newf(errs.KindInvalidExtension, offset, "vector_float payload length %d is not a multiple of 4", len(payload))
	}
	r := buffer.NewReader(payload)
	data := make([]float32, len(payload)/4)
	for i := range data {
		data[i], _ = r.ReadFloat32()
	}

	return VectorFloat(data), nil
}

func decodeVectorDouble(payload []byte, offset int) (Value, error) {
	if len(payload)%8 != 0 {
		return Value{}, errs.Newf(errs.KindInvalidExtension, offset, "vector_double payload length %d is not a multiple of 8", len(payload))
	}
	r := buffer.NewReader(payload)
	data := make([]float64, len(payload)/8)
	for i := range data {
		data[i], _ = r.ReadFloat64()
	}

	return VectorDouble(data), nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}
