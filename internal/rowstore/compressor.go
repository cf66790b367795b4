package rowstore

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
)

// Compressor compresses sealed pages of row data
type Compressor interface {
	Name() string
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// NewCompressor produces a Compressor by name: "lz4" (the default), "zstd" or "none"
func NewCompressor(name string) (Compressor, error) {
	switch strings.ToLower(name) {
	case "", "lz4":
		return newLZ4Compressor(), nil
	case "zstd":
		return newZstdCompressor()
	case "none":
		return noCompressor{}, nil
	default:
		return nil, fmt.Errorf("Unknown page compression %q", name)
	}
}

// lz4Compressor reuses a single writer and reader. It is not safe for concurrent use.
type lz4Compressor struct {
	compressor   *lz4.Writer
	decompressor *lz4.Reader
	buf          *bytes.Buffer
}

func newLZ4Compressor() *lz4Compressor {
	return &lz4Compressor{
		compressor:   lz4.NewWriter(new(bytes.Buffer)),
		decompressor: lz4.NewReader(new(bytes.Buffer)),
		buf:          new(bytes.Buffer),
	}
}

func (c *lz4Compressor) Name() string {
	return "lz4"
}

func (c *lz4Compressor) Compress(data []byte) ([]byte, error) {
	out := new(bytes.Buffer)
	c.compressor.Reset(out)
	if _, err := c.compressor.Write(data); err != nil {
		return nil, err
	}
	if err := c.compressor.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (c *lz4Compressor) Decompress(data []byte) ([]byte, error) {
	c.decompressor.Reset(bytes.NewReader(data))
	c.buf.Reset()
	if _, err := c.buf.ReadFrom(c.decompressor); err != nil {
		return nil, fmt.Errorf("Unable to decompress page data: %w", err)
	}
	out := make([]byte, c.buf.Len())
	copy(out, c.buf.Bytes())
	return out, nil
}

// zstdCompressor uses the stateless EncodeAll and DecodeAll APIs
type zstdCompressor struct {
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
}

func newZstdCompressor() (*zstdCompressor, error) {
	compressor, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("Unable to initialize compressor: %w", err)
	}
	decompressor, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("Unable to initialize decompressor: %w", err)
	}
	return &zstdCompressor{compressor: compressor, decompressor: decompressor}, nil
}

func (c *zstdCompressor) Name() string {
	return "zstd"
}

func (c *zstdCompressor) Compress(data []byte) ([]byte, error) {
	return c.compressor.EncodeAll(data, nil), nil
}

func (c *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	out, err := c.decompressor.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("Unable to decompress page data: %w", err)
	}
	return out, nil
}

type noCompressor struct{}

func (noCompressor) Name() string {
	return "none"
}

func (noCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (noCompressor) Decompress(data []byte) ([]byte, error) {
	return data, nil
}
