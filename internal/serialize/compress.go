package serialize

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression 输出压缩方式
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZSTD
	CompressionLZ4
)

// CompressionFor 按文件后缀选择压缩方式（.zst / .lz4）
func CompressionFor(path string) Compression {
	switch {
	case strings.HasSuffix(path, ".zst"):
		return CompressionZSTD
	case strings.HasSuffix(path, ".lz4"):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

type stackedWriter struct {
	io.Writer
	closers []io.Closer
}

// Close 先关闭压缩层再关闭文件，保证尾部数据落盘
func (s *stackedWriter) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewWriter 在 w 之上套用压缩层；CompressionNone 时原样返回（Close 为空操作）
func NewWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionZSTD:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		return enc, nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return &stackedWriter{Writer: w}, nil
	}
}

// Create 创建输出文件，并按后缀套用压缩层
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	cw, err := NewWriter(f, CompressionFor(path))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &stackedWriter{Writer: cw, closers: []io.Closer{cw, f}}, nil
}

type stackedReader struct {
	io.Reader
	closers []func()
}

func (s *stackedReader) Close() error {
	for _, c := range s.closers {
		c()
	}
	return nil
}

// NewReader 在 r 之上套用解压层
func NewReader(r io.Reader, c Compression) (io.Reader, func(), error) {
	switch c {
	case CompressionZSTD:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	case CompressionLZ4:
		return lz4.NewReader(r), func() {}, nil
	default:
		return r, func() {}, nil
	}
}

// Open 打开输入文件，并按后缀套用解压层
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, done, err := NewReader(f, CompressionFor(path))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &stackedReader{Reader: r, closers: []func(){done, func() { _ = f.Close() }}}, nil
}
