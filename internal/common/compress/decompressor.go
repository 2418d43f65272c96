package compress

import (
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
)

// ShardReader streams the decompressed contents of a gzip file.
// Corruption in the compressed stream is reported by Read, usually at the point it is encountered
// and at the latest when the trailing checksum is verified.
type ShardReader struct {
	file   *os.File
	stream io.ReadCloser
}

// OpenShard opens a gzip compressed file.  If parallel is true the stream is decompressed by
// pgzip, which reads ahead on multiple goroutines and pays off for large shards.
func OpenShard(path string, parallel bool) (*ShardReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var stream io.ReadCloser
	if parallel {
		stream, err = pgzip.NewReader(file)
	} else {
		stream, err = gzip.NewReader(file)
	}
	if err != nil {
		_ = file.Close()
		return nil, errors.WithMessagef(err, "%s is not a valid gzip file", path)
	}
	return &ShardReader{file: file, stream: stream}, nil
}

func (r *ShardReader) Read(p []byte) (int, error) {
	return r.stream.Read(p)
}

// Close closes both the decompressor and the underlying file
func (r *ShardReader) Close() error {
	streamErr := r.stream.Close()
	fileErr := r.file.Close()
	if streamErr != nil {
		return errors.WithStack(streamErr)
	}
	return errors.WithStack(fileErr)
}
