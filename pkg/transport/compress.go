package transport

import (
	"io"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/grpc/encoding"
)

// ZstdCompressor is the name of the zstd gRPC compressor registered by this
// package. Clients opt in with grpc.UseCompressor(ZstdCompressor).
const ZstdCompressor = "zstd"

func init() {
	encoding.RegisterCompressor(zstdCompressor{})
}

type zstdCompressor struct{}

func (zstdCompressor) Name() string { return ZstdCompressor }

func (zstdCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
}

func (zstdCompressor) Decompress(r io.Reader) (io.Reader, error) {
	d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return zstdReader{d}, nil
}

// zstdReader releases the decoder once the message is fully read.
type zstdReader struct {
	*zstd.Decoder
}

func (z zstdReader) Read(p []byte) (int, error) {
	n, err := z.Decoder.Read(p)
	if err == io.EOF {
		z.Decoder.Close()
	}
	return n, err
}
