package compress

// ZstdCodec implements Zstandard compression, the envelope's algorithm 2
// and the choice for cold payloads where ratio beats speed.
//
// Two implementations exist: the default pure-Go one backed by
// klauspost/compress, and a cgo one backed by valyala/gozstd selected with
// the "nobuild" build tag for deployments that link libzstd.
type ZstdCodec struct {
	level int
}

var _ Codec = ZstdCodec{}

// NewZstdCodec creates a zstd codec. Level 0 selects the balanced default;
// 1-2 map to fastest, 3-6 to default, 7-9 to better, 10 and above to best.
func NewZstdCodec(level int) ZstdCodec {
	if level < 0 {
		level = 0
	}

	return ZstdCodec{level: level}
}
