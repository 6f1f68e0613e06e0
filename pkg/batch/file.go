package batch

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/dsnet/compress/bzip2"
)

// OpenInput opens path for reading, decompressing it when it ends in .bz2.
func OpenInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".bz2") {
		return f, nil
	}
	bz, err := bzip2.NewReader(f, nil)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &stackedCloser{Reader: bz, closers: []io.Closer{bz, f}}, nil
}

// CreateOutput creates path for writing, compressing it when it ends in .bz2.
func CreateOutput(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".bz2") {
		return f, nil
	}
	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		f.Close()
		return nil, err
	}
	return &stackedCloser{Writer: bz, closers: []io.Closer{bz, f}}, nil
}

type stackedCloser struct {
	io.Reader
	io.Writer
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RunFile runs the batch from inPath to outPath.
func (r *Runner) RunFile(ctx context.Context, inPath, outPath string) (Stats, error) {
	in, err := OpenInput(inPath)
	if err != nil {
		return Stats{}, err
	}
	defer in.Close()

	out, err := CreateOutput(outPath)
	if err != nil {
		return Stats{}, err
	}

	stats, err := r.Run(ctx, in, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return stats, err
}
