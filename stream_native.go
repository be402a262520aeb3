package extsort

import (
	"fmt"
	"os"

	extsorterrors "github.com/tamirms/extsort/errors"
)

// nativeChunkReader owns one caller-sized buffer and refills it with
// explicit ReadAt calls instead of delegating to bufio, for callers that
// want control over exactly when and how much is read from disk (the
// pipeline's memory manager hands out fixed buffer sizes; this backend
// allocates one buffer of the size it is given, rounded down to whole
// records, and reads straight into it rather than going through bufio).
type nativeChunkReader struct {
	path  string
	id    ChunkId
	codec RecordCodec

	file *os.File
	buf  []byte
	pos  int // read offset within buf
	n    int // valid bytes in buf

	fileOff int64
	size    int64
	count   int64

	value uint64
	eof   bool

	checksumFolder
}

func newNativeChunkReader(path string, id ChunkId, codec RecordCodec) *nativeChunkReader {
	return &nativeChunkReader{path: path, id: id, codec: codec}
}

func (r *nativeChunkReader) Open(bufferSize int) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("extsort: open chunk %s: %w", r.id, err)
	}
	r.file = f

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("extsort: stat chunk %s: %w", r.id, err)
	}
	r.size = info.Size()
	if r.size == 0 {
		f.Close()
		return fmt.Errorf("%w: %s", extsorterrors.ErrEmptyChunkFile, r.id)
	}
	if r.size%int64(r.codec.Size()) != 0 {
		f.Close()
		return fmt.Errorf("%w: %s", extsorterrors.ErrChunkMisaligned, r.id)
	}
	r.count = r.codec.Count(r.size)

	fadviseSequential(int(f.Fd()), 0, r.size)

	recSize := int64(r.codec.Size())
	if int64(bufferSize) < recSize {
		bufferSize = int(recSize)
	}
	bufferSize = int(r.codec.RoundDown(int64(bufferSize)))
	if bufferSize == 0 {
		bufferSize = int(recSize)
	}
	r.buf = make([]byte, bufferSize)
	return nil
}

func (r *nativeChunkReader) fill() error {
	if r.fileOff >= r.size {
		r.eof = true
		return nil
	}
	want := len(r.buf)
	remaining := r.size - r.fileOff
	if int64(want) > remaining {
		want = int(remaining)
	}
	n, err := r.file.ReadAt(r.buf[:want], r.fileOff)
	if n > 0 {
		r.fileOff += int64(n)
		r.n = n
		r.pos = 0
	}
	if err != nil && n == 0 {
		return fmt.Errorf("extsort: read chunk %s: %w", r.id, err)
	}
	return nil
}

func (r *nativeChunkReader) Next() (bool, error) {
	recSize := r.codec.Size()
	if r.pos+recSize > r.n {
		if err := r.fill(); err != nil {
			return false, err
		}
		if r.eof {
			return false, nil
		}
	}
	r.value = r.codec.Decode(r.buf[r.pos : r.pos+recSize])
	r.pos += recSize
	r.fold(r.value)
	return true, nil
}

func (r *nativeChunkReader) Value() uint64      { return r.value }
func (r *nativeChunkReader) EOF() bool          { return r.eof }
func (r *nativeChunkReader) Size() int64        { return r.size }
func (r *nativeChunkReader) Count() int64       { return r.count }
func (r *nativeChunkReader) ID() ChunkId        { return r.id }
func (r *nativeChunkReader) Checksum() uint64   { return r.sum() }

func (r *nativeChunkReader) CopyTo(out ChunkWriter) error {
	for {
		ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := out.Put(r.Value()); err != nil {
			return err
		}
	}
}

func (r *nativeChunkReader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// nativeChunkWriter accumulates encoded records into a caller-sized buffer
// and flushes it with an explicit Write call when full.
type nativeChunkWriter struct {
	path  string
	id    ChunkId
	codec RecordCodec

	file *os.File
	buf  []byte
	pos  int

	checksumFolder
}

func newNativeChunkWriter(path string, id ChunkId, codec RecordCodec) *nativeChunkWriter {
	return &nativeChunkWriter{path: path, id: id, codec: codec}
}

func (w *nativeChunkWriter) Open(bufferSize int, expectedTotalBytes int64) error {
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("extsort: create chunk %s: %w", w.id, err)
	}
	w.file = f

	if expectedTotalBytes > 0 {
		_ = fallocateFile(f, expectedTotalBytes)
		if _, err := f.Seek(0, 0); err != nil {
			f.Close()
			return fmt.Errorf("extsort: seek chunk %s: %w", w.id, err)
		}
	}

	recSize := w.codec.Size()
	if bufferSize < recSize {
		bufferSize = recSize
	}
	bufferSize = int(w.codec.RoundDown(int64(bufferSize)))
	if bufferSize == 0 {
		bufferSize = recSize
	}
	w.buf = make([]byte, bufferSize)
	return nil
}

func (w *nativeChunkWriter) flush() error {
	if w.pos == 0 {
		return nil
	}
	if _, err := w.file.Write(w.buf[:w.pos]); err != nil {
		return fmt.Errorf("extsort: write chunk %s: %w", w.id, err)
	}
	w.pos = 0
	return nil
}

func (w *nativeChunkWriter) Put(value uint64) error {
	recSize := w.codec.Size()
	if w.pos+recSize > len(w.buf) {
		if err := w.flush(); err != nil {
			return err
		}
	}
	w.codec.Encode(value, w.buf[w.pos:w.pos+recSize])
	w.pos += recSize
	w.fold(value)
	return nil
}

func (w *nativeChunkWriter) ID() ChunkId        { return w.id }
func (w *nativeChunkWriter) Checksum() uint64   { return w.sum() }

func (w *nativeChunkWriter) Close() error {
	if w.file == nil {
		return nil
	}
	flushErr := w.flush()
	var truncErr error
	if flushErr == nil {
		if off, err := w.file.Seek(0, 1); err == nil {
			truncErr = w.file.Truncate(off)
		}
	}
	closeErr := w.file.Close()
	w.file = nil
	if flushErr != nil {
		return flushErr
	}
	if truncErr != nil {
		return truncErr
	}
	return closeErr
}
