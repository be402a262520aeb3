package extsort

import (
	"bufio"
	"fmt"
	"io"
	"os"

	extsorterrors "github.com/tamirms/extsort/errors"
)

// bufferedChunkReader wraps os.File in a bufio.Reader, the "no surprises"
// backend: a bufio.Reader over the source file rather than mapping it.
type bufferedChunkReader struct {
	path  string
	id    ChunkId
	codec RecordCodec

	file *os.File
	r    *bufio.Reader
	buf  []byte

	size  int64
	count int64

	value uint64
	eof   bool

	checksumFolder
}

func newBufferedChunkReader(path string, id ChunkId, codec RecordCodec) *bufferedChunkReader {
	return &bufferedChunkReader{path: path, id: id, codec: codec}
}

func (r *bufferedChunkReader) Open(bufferSize int) error {
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

	if bufferSize < r.codec.Size() {
		bufferSize = r.codec.Size()
	}
	r.r = bufio.NewReaderSize(f, bufferSize)
	r.buf = make([]byte, r.codec.Size())
	return nil
}

func (r *bufferedChunkReader) Next() (bool, error) {
	if _, err := io.ReadFull(r.r, r.buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			r.eof = true
			return false, nil
		}
		return false, fmt.Errorf("extsort: read chunk %s: %w", r.id, err)
	}
	r.value = r.codec.Decode(r.buf)
	r.fold(r.value)
	return true, nil
}

func (r *bufferedChunkReader) Value() uint64    { return r.value }
func (r *bufferedChunkReader) EOF() bool        { return r.eof }
func (r *bufferedChunkReader) Size() int64      { return r.size }
func (r *bufferedChunkReader) Count() int64     { return r.count }
func (r *bufferedChunkReader) ID() ChunkId      { return r.id }
func (r *bufferedChunkReader) Checksum() uint64 { return r.sum() }

func (r *bufferedChunkReader) CopyTo(out ChunkWriter) error {
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

func (r *bufferedChunkReader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// bufferedChunkWriter wraps os.File in a bufio.Writer.
type bufferedChunkWriter struct {
	path  string
	id    ChunkId
	codec RecordCodec

	file *os.File
	w    *bufio.Writer
	buf  []byte

	checksumFolder
}

func newBufferedChunkWriter(path string, id ChunkId, codec RecordCodec) *bufferedChunkWriter {
	return &bufferedChunkWriter{path: path, id: id, codec: codec}
}

func (w *bufferedChunkWriter) Open(bufferSize int, expectedTotalBytes int64) error {
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("extsort: create chunk %s: %w", w.id, err)
	}
	w.file = f

	if expectedTotalBytes > 0 {
		if err := fallocateFile(f, expectedTotalBytes); err != nil {
			// Best-effort: proceed without preallocation.
			_ = err
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return fmt.Errorf("extsort: seek chunk %s: %w", w.id, err)
		}
	}

	if bufferSize < w.codec.Size() {
		bufferSize = w.codec.Size()
	}
	w.w = bufio.NewWriterSize(f, bufferSize)
	w.buf = make([]byte, w.codec.Size())
	return nil
}

func (w *bufferedChunkWriter) Put(value uint64) error {
	w.codec.Encode(value, w.buf)
	if _, err := w.w.Write(w.buf); err != nil {
		return fmt.Errorf("extsort: write chunk %s: %w", w.id, err)
	}
	w.fold(value)
	return nil
}

func (w *bufferedChunkWriter) ID() ChunkId      { return w.id }
func (w *bufferedChunkWriter) Checksum() uint64 { return w.sum() }

func (w *bufferedChunkWriter) Close() error {
	if w.file == nil {
		return nil
	}
	flushErr := w.w.Flush()
	var truncErr error
	if flushErr == nil {
		if off, err := w.file.Seek(0, io.SeekCurrent); err == nil {
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
