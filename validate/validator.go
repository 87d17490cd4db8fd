package validate

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"

	"github.com/BTOON-project/btoon-core/buffer"
	"github.com/BTOON-project/btoon-core/compress"
	"github.com/BTOON-project/btoon-core/errs"
	"github.com/BTOON-project/btoon-core/format"
	"github.com/BTOON-project/btoon-core/frame"
	"github.com/BTOON-project/btoon-core/internal/options"
)

// Default validator limits.
const (
	DefaultMaxDepth        = 128
	DefaultMaxStringLength = 10 * 1024 * 1024
	DefaultMaxBinaryLength = 10 * 1024 * 1024
	DefaultMaxArraySize    = 1 << 20
	DefaultMaxMapSize      = 1 << 20
	DefaultMaxTotalSize    = 100 * 1024 * 1024
	DefaultMaxRatio        = 1024
)

// Validator checks BTOON payloads against the wire grammar and a set of
// configurable limits without materializing values. A Validator is
// immutable after construction and safe for concurrent use.
type Validator struct {
	maxDepth        int
	maxStringLength int
	maxBinaryLength int
	maxArraySize    int
	maxMapSize      int
	maxTotalSize    int
	maxRatio        int
	requireUTF8     bool
	allowDupKeys    bool
	fastMode        bool
}

// Option configures a Validator.
type Option = options.Option[*Validator]

// New creates a Validator with the default limits and opts applied.
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		maxDepth:        DefaultMaxDepth,
		maxStringLength: DefaultMaxStringLength,
		maxBinaryLength: DefaultMaxBinaryLength,
		maxArraySize:    DefaultMaxArraySize,
		maxMapSize:      DefaultMaxMapSize,
		maxTotalSize:    DefaultMaxTotalSize,
		maxRatio:        DefaultMaxRatio,
		requireUTF8:     true,
	}
	if err := options.Apply(v, opts...); err != nil {
		return nil, err
	}

	return v, nil
}

// WithMaxDepth sets the nesting depth limit.
func WithMaxDepth(depth int) Option {
	return options.New(func(v *Validator) error {
		if depth <= 0 {
			return fmt.Errorf("max depth must be positive, got %d", depth)
		}
		v.maxDepth = depth

		return nil
	})
}

// WithMaxStringLength caps individual string payloads.
func WithMaxStringLength(n int) Option {
	return options.NoError(func(v *Validator) { v.maxStringLength = n })
}

// WithMaxBinaryLength caps individual binary and extension payloads.
func WithMaxBinaryLength(n int) Option {
	return options.NoError(func(v *Validator) { v.maxBinaryLength = n })
}

// WithMaxArraySize caps the element count of a single array.
func WithMaxArraySize(n int) Option {
	return options.NoError(func(v *Validator) { v.maxArraySize = n })
}

// WithMaxMapSize caps the entry count of a single map.
func WithMaxMapSize(n int) Option {
	return options.NoError(func(v *Validator) { v.maxMapSize = n })
}

// WithMaxTotalSize caps the aggregate payload bytes the validator will
// account before giving up on the buffer.
func WithMaxTotalSize(n int) Option {
	return options.NoError(func(v *Validator) { v.maxTotalSize = n })
}

// WithRequireUTF8 toggles UTF-8 validation of string payloads.
func WithRequireUTF8(required bool) Option {
	return options.NoError(func(v *Validator) { v.requireUTF8 = required })
}

// WithAllowDuplicateKeys demotes duplicate map keys from error to warning.
func WithAllowDuplicateKeys(allowed bool) Option {
	return options.NoError(func(v *Validator) { v.allowDupKeys = allowed })
}

// WithFastMode skips stats collection.
func WithFastMode(enabled bool) Option {
	return options.NoError(func(v *Validator) { v.fastMode = enabled })
}

// errResync aborts the enclosing container walk; the top-level loop
// resynchronizes at the current cursor and keeps scanning.
var errResync = errors.New("resync")

// errHalt stops the walk entirely (total size budget exhausted).
var errHalt = errors.New("halt")

// Validate walks data and reports every grammar violation and limit breach
// it can find. Framed input is checked at the envelope level first, then
// decompressed and walked.
//
// Validate never fails: adversarial input yields a Report with errors, not
// a panic or an unbounded allocation.
func (v *Validator) Validate(data []byte) *Report {
	rep := &Report{Valid: true}

	w := &walker{v: v, rep: rep, budget: v.maxTotalSize}
	if !v.fastMode {
		w.counts = make(map[string]uint64)
	}

	payload := data
	if frame.Detect(data) {
		payload = v.validateFrame(data, rep)
	}
	if payload != nil {
		w.walkBuffer(payload)
	}

	if !v.fastMode {
		rep.Stats = &Stats{
			MaxDepth:   w.depthMax,
			CountByTag: w.counts,
			TotalBytes: len(data),
			Digest:     xxhash.Sum64(data),
		}
	}

	return rep
}

// QuickCheck is a cheap validity probe: a fast-mode walk with the
// receiver's limits, reporting only the verdict.
func (v *Validator) QuickCheck(data []byte) bool {
	fast := *v
	fast.fastMode = true

	return fast.Validate(data).Valid
}

// validateFrame checks the envelope header and returns the decompressed
// payload for grammar walking, or nil when the frame itself is unusable.
func (v *Validator) validateFrame(data []byte, rep *Report) []byte {
	var header frame.Header
	if err := header.Parse(data); err != nil {
		rep.addError(errs.KindOf(err), errs.OffsetOf(err), "%s", err.Error())
		return nil
	}
	if data[6] != 0 || data[7] != 0 {
		rep.addWarning(errs.KindLengthMismatch, 6, "frame reserved bytes are not zero")
	}

	if !header.Algorithm.Valid() {
		rep.addError(errs.KindUnsupportedAlgorithm, 5, "frame algorithm %d", uint8(header.Algorithm))
		return nil
	}
	payload := data[format.FrameHeaderSize:]
	if len(payload) != int(header.CompressedSize) {
		rep.addError(errs.KindLengthMismatch, 8,
			"frame declares %d compressed bytes, %d follow the header", header.CompressedSize, len(payload))
		return nil
	}
	if header.CompressedSize == 0 && header.UncompressedSize > 0 ||
		header.CompressedSize > 0 && uint64(header.UncompressedSize) > uint64(header.CompressedSize)*uint64(v.maxRatio) {
		rep.addError(errs.KindDecompressionBomb, 12,
			"frame declares %d bytes from %d compressed", header.UncompressedSize, header.CompressedSize)
		return nil
	}
	if int(header.UncompressedSize) > v.maxTotalSize {
		rep.addError(errs.KindLengthMismatch, 12,
			"frame declares %d uncompressed bytes, limit is %d", header.UncompressedSize, v.maxTotalSize)
		return nil
	}

	codec, err := compress.GetCodec(header.Algorithm)
	if err != nil {
		rep.addError(errs.KindUnsupportedAlgorithm, 5, "frame algorithm %d", uint8(header.Algorithm))
		return nil
	}
	out, err := codec.Decompress(payload)
	if err != nil {
		rep.addError(errs.KindLengthMismatch, format.FrameHeaderSize, "frame payload does not decompress: %s", err)
		return nil
	}
	if len(out) != int(header.UncompressedSize) {
		rep.addError(errs.KindLengthMismatch, 12,
			"frame declares %d uncompressed bytes, decompressor produced %d", header.UncompressedSize, len(out))
		return nil
	}

	return out
}

// walker carries the mutable state of one validation pass.
type walker struct {
	r        *buffer.Reader
	v        *Validator
	rep      *Report
	counts   map[string]uint64
	depthMax int
	budget   int
}

// walkBuffer scans data as a sequence of top-level values. A structural
// error aborts the value it occurred in; scanning resumes at the cursor so
// later problems are still reported.
func (w *walker) walkBuffer(data []byte) {
	w.r = buffer.NewReader(data)

	warned := false
	for w.r.Remaining() > 0 {
		before := len(w.rep.Errors)
		err := w.walkValue(0)
		if errors.Is(err, errHalt) {
			return
		}
		// Bytes after a cleanly walked value are tolerated trailing data;
		// warn once and keep scanning so later problems still surface.
		if err == nil && len(w.rep.Errors) == before && w.r.Remaining() > 0 && !warned {
			w.rep.addWarning(errs.KindTrailingBytes, w.r.Offset(),
				"%d bytes remain after outermost value", w.r.Remaining())
			warned = true
		}
	}
}

func (w *walker) count(name string) {
	if w.counts != nil {
		w.counts[name]++
	}
}

// spend charges n bytes of auxiliary state against the total size budget.
func (w *walker) spend(n int) error {
	w.budget -= n
	if w.budget < 0 {
		w.rep.addError(errs.KindLengthMismatch, w.r.Offset(), "aggregate size exceeds max_total_size")
		return errHalt
	}

	return nil
}

func (w *walker) observeDepth(depth int) {
	if depth > w.depthMax {
		w.depthMax = depth
	}
}

func (w *walker) walkValue(depth int) error {
	tagOffset := w.r.Offset()
	tag, err := w.r.ReadUint8()
	if err != nil {
		w.rep.addError(errs.KindOutOfBounds, tagOffset, "value tag missing")
		return errResync
	}
	if err := w.spend(1); err != nil {
		return err
	}
	w.observeDepth(depth)

	switch {
	case tag <= format.TagPosFixintMax:
		w.count("uint")
		return nil
	case tag >= format.TagNegFixintMin:
		w.count("int")
		return nil
	case tag >= format.TagFixmapBase && tag < format.TagFixarrayBase:
		return w.walkMap(int(tag&0x0f), depth)
	case tag >= format.TagFixarrayBase && tag < format.TagFixstrBase:
		return w.walkArray(int(tag&0x0f), depth)
	case tag >= format.TagFixstrBase && tag < format.TagNil:
		return w.walkString(int(tag & 0x1f))
	}

	switch tag {
	case format.TagNil:
		w.count("nil")
		return nil
	case format.TagFalse, format.TagTrue:
		w.count("bool")
		return nil
	case format.TagUint8, format.TagUint16, format.TagUint32, format.TagUint64:
		w.count("uint")
		return w.skipFixed(1 << (tag - format.TagUint8))
	case format.TagInt8, format.TagInt16, format.TagInt32, format.TagInt64:
		w.count("int")
		return w.skipFixed(1 << (tag - format.TagInt8))
	case format.TagFloat32:
		w.count("float")
		return w.skipFixed(4)
	case format.TagFloat64:
		w.count("float")
		return w.skipFixed(8)
	case format.TagStr8, format.TagStr16, format.TagStr32:
		n, err := w.readLength(tag - format.TagStr8)
		if err != nil {
			return err
		}

		return w.walkString(n)
	case format.TagBin8, format.TagBin16, format.TagBin32:
		n, err := w.readLength(tag - format.TagBin8)
		if err != nil {
			return err
		}

		return w.walkBinary(n)
	case format.TagArray16, format.TagArray32:
		n, err := w.readLength(tag - format.TagArray16 + 1)
		if err != nil {
			return err
		}

		return w.walkArray(n, depth)
	case format.TagMap16, format.TagMap32:
		n, err := w.readLength(tag - format.TagMap16 + 1)
		if err != nil {
			return err
		}

		return w.walkMap(n, depth)
	case format.TagFixext1, format.TagFixext2, format.TagFixext4, format.TagFixext8, format.TagFixext16:
		return w.walkExtension(1<<(tag-format.TagFixext1), depth)
	case format.TagExt8, format.TagExt16, format.TagExt32:
		n, err := w.readLength(tag - format.TagExt8)
		if err != nil {
			return err
		}

		return w.walkExtension(n, depth)
	default:
		w.rep.addError(errs.KindUnknownTag, tagOffset, "tag byte 0x%02x", tag)
		return errResync
	}
}

func (w *walker) readLength(width uint8) (int, error) {
	offset := w.r.Offset()
	var n int
	var err error
	switch width {
	case 0:
		var v uint8
		v, err = w.r.ReadUint8()
		n = int(v)
	case 1:
		var v uint16
		v, err = w.r.ReadUint16()
		n = int(v)
	default:
		var v uint32
		v, err = w.r.ReadUint32()
		n = int(v)
	}
	if err != nil {
		w.rep.addError(errs.KindOutOfBounds, offset, "length prefix truncated")
		return 0, errResync
	}

	return n, nil
}

func (w *walker) skipFixed(n int) error {
	if err := w.r.Skip(n); err != nil {
		w.rep.addError(errs.KindOutOfBounds, w.r.Offset(), "fixed payload truncated, need %d bytes", n)
		return errResync
	}

	return w.spend(n)
}

func (w *walker) walkString(n int) error {
	w.count("string")
	payloadOffset := w.r.Offset()
	raw, err := w.r.ReadBytes(n)
	if err != nil {
		w.rep.addError(errs.KindOutOfBounds, payloadOffset,
			"string declares %d bytes, %d remain", n, w.r.Remaining())
		return errResync
	}
	if n > w.v.maxStringLength {
		w.rep.addError(errs.KindLengthMismatch, payloadOffset,
			"string length %d exceeds max_string_length %d", n, w.v.maxStringLength)
	}
	if w.v.requireUTF8 && !utf8.Valid(raw) {
		w.rep.addError(errs.KindInvalidUTF8, payloadOffset, "string payload is not valid UTF-8")
	}

	return w.spend(n)
}

func (w *walker) walkBinary(n int) error {
	w.count("binary")
	payloadOffset := w.r.Offset()
	if err := w.r.Skip(n); err != nil {
		w.rep.addError(errs.KindOutOfBounds, payloadOffset,
			"binary declares %d bytes, %d remain", n, w.r.Remaining())
		return errResync
	}
	if n > w.v.maxBinaryLength {
		w.rep.addError(errs.KindLengthMismatch, payloadOffset,
			"binary length %d exceeds max_binary_length %d", n, w.v.maxBinaryLength)
	}

	return w.spend(n)
}

func (w *walker) walkArray(count, depth int) error {
	w.count("array")
	if depth+1 > w.v.maxDepth {
		w.rep.addError(errs.KindDepthExceeded, w.r.Offset(), "array nesting exceeds max_depth %d", w.v.maxDepth)
		return errResync
	}
	if count > w.v.maxArraySize {
		w.rep.addError(errs.KindLengthMismatch, w.r.Offset(),
			"array size %d exceeds max_array_size %d", count, w.v.maxArraySize)
	}
	for i := 0; i < count; i++ {
		if err := w.walkValue(depth + 1); err != nil {
			return err
		}
	}

	return nil
}

func (w *walker) walkMap(count, depth int) error {
	w.count("map")
	if depth+1 > w.v.maxDepth {
		w.rep.addError(errs.KindDepthExceeded, w.r.Offset(), "map nesting exceeds max_depth %d", w.v.maxDepth)
		return errResync
	}
	if count > w.v.maxMapSize {
		w.rep.addError(errs.KindLengthMismatch, w.r.Offset(),
			"map size %d exceeds max_map_size %d", count, w.v.maxMapSize)
	}

	var prevKey string
	for i := 0; i < count; i++ {
		keyOffset := w.r.Offset()
		key, err := w.walkMapKey()
		if err != nil {
			return err
		}
		if i > 0 {
			if key == prevKey {
				if w.v.allowDupKeys {
					w.rep.addWarning(errs.KindDuplicateKey, keyOffset, "duplicate key %q, last wins", key)
				} else {
					w.rep.addError(errs.KindDuplicateKey, keyOffset, "duplicate key %q", key)
				}
			} else if key < prevKey {
				w.rep.addWarning(errs.KindKeyOrder, keyOffset, "key %q arrives after %q", key, prevKey)
			}
		}
		prevKey = key

		if err := w.walkValue(depth + 1); err != nil {
			return err
		}
	}

	return nil
}

func (w *walker) walkMapKey() (string, error) {
	tagOffset := w.r.Offset()
	tag, err := w.r.ReadUint8()
	if err != nil {
		w.rep.addError(errs.KindOutOfBounds, tagOffset, "map key tag missing")
		return "", errResync
	}
	if err := w.spend(1); err != nil {
		return "", err
	}

	var n int
	switch {
	case tag >= format.TagFixstrBase && tag < format.TagNil:
		n = int(tag & 0x1f)
	case tag == format.TagStr8 || tag == format.TagStr16 || tag == format.TagStr32:
		n, err = w.readLength(tag - format.TagStr8)
		if err != nil {
			return "", err
		}
	default:
		w.rep.addError(errs.KindUnknownTag, tagOffset, "map key must be a string, got tag 0x%02x", tag)
		return "", errResync
	}

	payloadOffset := w.r.Offset()
	raw, err := w.r.ReadBytes(n)
	if err != nil {
		w.rep.addError(errs.KindOutOfBounds, payloadOffset,
			"map key declares %d bytes, %d remain", n, w.r.Remaining())
		return "", errResync
	}
	if w.v.requireUTF8 && !utf8.Valid(raw) {
		w.rep.addError(errs.KindInvalidUTF8, payloadOffset, "map key is not valid UTF-8")
	}
	if err := w.spend(n); err != nil {
		return "", err
	}

	return string(raw), nil
}

func (w *walker) walkExtension(n, depth int) error {
	typeOffset := w.r.Offset()
	extType, err := w.r.ReadInt8()
	if err != nil {
		w.rep.addError(errs.KindOutOfBounds, typeOffset, "extension type byte missing")
		return errResync
	}

	payloadOffset := w.r.Offset()
	payload, err := w.r.ReadBytes(n)
	if err != nil {
		w.rep.addError(errs.KindOutOfBounds, payloadOffset,
			"extension declares %d bytes, %d remain", n, w.r.Remaining())
		return errResync
	}
	if n > w.v.maxBinaryLength {
		w.rep.addError(errs.KindLengthMismatch, payloadOffset,
			"extension length %d exceeds max_binary_length %d", n, w.v.maxBinaryLength)
	}
	if err := w.spend(n); err != nil {
		return err
	}

	switch extType {
	case format.ExtTimestamp:
		w.count("timestamp")
		if n != 4 && n != 8 {
			w.rep.addError(errs.KindInvalidExtension, payloadOffset, "timestamp payload is %d bytes, want 4 or 8", n)
		}
	case format.ExtDate:
		w.count("date")
		if n != 8 {
			w.rep.addError(errs.KindInvalidExtension, payloadOffset, "date payload is %d bytes, want 8", n)
		}
	case format.ExtDateTime:
		w.count("datetime")
		if n != 8 {
			w.rep.addError(errs.KindInvalidExtension, payloadOffset, "datetime payload is %d bytes, want 8", n)
		}
	case format.ExtBigInt:
		w.count("bigint")
		if n == 0 {
			w.rep.addError(errs.KindInvalidExtension, payloadOffset, "bigint payload is empty")
		}
	case format.ExtVectorFloat:
		w.count("vector_float")
		if n%4 != 0 {
			w.rep.addError(errs.KindInvalidExtension, payloadOffset,
				"vector_float payload length %d is not a multiple of 4", n)
		}
	case format.ExtVectorDouble:
		w.count("vector_double")
		if n%8 != 0 {
			w.rep.addError(errs.KindInvalidExtension, payloadOffset,
				"vector_double payload length %d is not a multiple of 8", n)
		}
	case format.ExtTabular:
		w.count("tabular")
		return w.walkTabular(payload, payloadOffset, depth)
	default:
		w.count("extension")
		if format.ReservedExt(extType) {
			w.rep.addWarning(errs.KindInvalidExtension, typeOffset,
				"reserved extension code %d preserved as opaque", extType)
		}
	}

	return nil
}

// walkTabular checks the columnar extension payload: header, schema
// section and per-column lengths, walking every cell through the grammar.
// Offsets are reported relative to the outer buffer.
func (w *walker) walkTabular(payload []byte, base, depth int) error {
	if depth+1 > w.v.maxDepth {
		w.rep.addError(errs.KindDepthExceeded, base, "tabular nesting exceeds max_depth %d", w.v.maxDepth)
		return errResync
	}

	inner := &walker{
		r:        buffer.NewReader(payload),
		v:        w.v,
		rep:      &Report{Valid: true},
		counts:   w.counts,
		depthMax: w.depthMax,
		budget:   w.budget,
	}
	err := inner.walkTabularPayload(depth)
	w.depthMax = inner.depthMax
	w.budget = inner.budget
	for _, issue := range inner.rep.Errors {
		w.rep.addError(issue.Kind, issue.Offset+base, "%s", issue.Message)
	}
	for _, issue := range inner.rep.Warnings {
		w.rep.addWarning(issue.Kind, issue.Offset+base, "%s", issue.Message)
	}
	if err != nil && !errors.Is(err, errHalt) {
		// Resync past the extension payload; the outer cursor already
		// consumed it whole.
		return nil
	}

	return err
}

func (w *walker) walkTabularPayload(depth int) error {
	version, err := w.r.ReadUint32()
	if err != nil {
		w.rep.addError(errs.KindOutOfBounds, 0, "tabular header truncated")
		return errResync
	}
	if version != format.TabularVersion {
		w.rep.addError(errs.KindUnsupportedVersion, 0, "tabular version %d, want %d", version, format.TabularVersion)
		return errResync
	}
	numColumns, err := w.r.ReadUint32()
	if err != nil {
		w.rep.addError(errs.KindOutOfBounds, 4, "tabular header truncated")
		return errResync
	}
	numRows, err := w.r.ReadUint32()
	if err != nil {
		w.rep.addError(errs.KindOutOfBounds, 8, "tabular header truncated")
		return errResync
	}

	var prevName string
	for i := uint32(0); i < numColumns; i++ {
		lenOffset := w.r.Offset()
		nameLen, err := w.r.ReadUint32()
		if err != nil {
			w.rep.addError(errs.KindOutOfBounds, lenOffset, "tabular schema truncated")
			return errResync
		}
		nameOffset := w.r.Offset()
		raw, err := w.r.ReadBytes(int(nameLen))
		if err != nil {
			w.rep.addError(errs.KindOutOfBounds, nameOffset,
				"column name declares %d bytes, %d remain", nameLen, w.r.Remaining())
			return errResync
		}
		if w.v.requireUTF8 && !utf8.Valid(raw) {
			w.rep.addError(errs.KindInvalidUTF8, nameOffset, "column name is not valid UTF-8")
		}
		if err := w.spend(int(nameLen)); err != nil {
			return err
		}
		name := string(raw)
		if i > 0 {
			if name == prevName {
				w.rep.addError(errs.KindDuplicateKey, nameOffset, "duplicate column %q", name)
			} else if name < prevName {
				w.rep.addWarning(errs.KindKeyOrder, nameOffset, "column %q arrives after %q", name, prevName)
			}
		}
		prevName = name
		if _, err := w.r.ReadUint8(); err != nil {
			w.rep.addError(errs.KindOutOfBounds, w.r.Offset(), "column type hint missing")
			return errResync
		}
	}

	for i := uint32(0); i < numColumns; i++ {
		lenOffset := w.r.Offset()
		colLen, err := w.r.ReadUint32()
		if err != nil {
			w.rep.addError(errs.KindOutOfBounds, lenOffset, "tabular data section truncated")
			return errResync
		}
		colStart := w.r.Offset()
		for j := uint32(0); j < numRows; j++ {
			if err := w.walkValue(depth + 2); err != nil {
				return err
			}
		}
		if consumed := w.r.Offset() - colStart; consumed != int(colLen) {
			w.rep.addError(errs.KindLengthMismatch, colStart,
				"column payload is %d bytes, declared %d", consumed, colLen)
			return errResync
		}
	}

	if w.r.Remaining() != 0 {
		w.rep.addError(errs.KindLengthMismatch, w.r.Offset(),
			"%d bytes remain after tabular data section", w.r.Remaining())
	}

	return nil
}
