package extsort

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"

	extsorterrors "github.com/tamirms/extsort/errors"
)

// mappedChunkReader memory-maps the whole chunk file read-only. It is the
// default backend: on a warm page cache it avoids a syscall per buffer
// refill, the same warm-cache trade a mapped-segment random-access reader
// makes over streaming through bufio.
type mappedChunkReader struct {
	path  string
	id    ChunkId
	codec RecordCodec

	file *os.File
	data mmap.MMap

	size  int64
	count int64
	pos   int64

	value uint64
	eof   bool

	checksumFolder
}

func newMappedChunkReader(path string, id ChunkId, codec RecordCodec) *mappedChunkReader {
	return &mappedChunkReader{path: path, id: id, codec: codec}
}

func (r *mappedChunkReader) Open(bufferSize int) error {
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

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return fmt.Errorf("extsort: mmap chunk %s: %w", r.id, err)
	}
	r.data = data
	fadviseSequential(int(f.Fd()), 0, r.size)
	return nil
}

func (r *mappedChunkReader) Next() (bool, error) {
	recSize := int64(r.codec.Size())
	if r.pos+recSize > r.size {
		r.eof = true
		return false, nil
	}
	r.value = r.codec.Decode(r.data[r.pos : r.pos+recSize])
	r.pos += recSize
	r.fold(r.value)
	return true, nil
}

func (r *mappedChunkReader) Value() uint64    { return r.value }
func (r *mappedChunkReader) EOF() bool        { return r.eof }
func (r *mappedChunkReader) Size() int64      { return r.size }
func (r *mappedChunkReader) Count() int64     { return r.count }
func (r *mappedChunkReader) ID() ChunkId      { return r.id }
func (r *mappedChunkReader) Checksum() uint64 { return r.sum() }

func (r *mappedChunkReader) CopyTo(out ChunkWriter) error {
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

func (r *mappedChunkReader) Close() error {
	var err error
	if r.data != nil {
		err = r.data.Unmap()
		r.data = nil
	}
	if r.file != nil {
		if cerr := r.file.Close(); err == nil {
			err = cerr
		}
		r.file = nil
	}
	return err
}

// mappedChunkWriter preallocates the file to its expected final size and
// maps it read-write, falling back to append-only native writes when the
// expected size is unknown (0). Sort and merge tasks both pass their exact
// output size; Close still truncates the file to the bytes actually
// written, so a writer that receives fewer Puts than expected leaves no
// trailing zero bytes.
type mappedChunkWriter struct {
	path  string
	id    ChunkId
	codec RecordCodec

	file *os.File
	data mmap.MMap
	pos  int64

	fallback *nativeChunkWriter

	checksumFolder
}

func newMappedChunkWriter(path string, id ChunkId, codec RecordCodec) *mappedChunkWriter {
	return &mappedChunkWriter{path: path, id: id, codec: codec}
}

func (w *mappedChunkWriter) Open(bufferSize int, expectedTotalBytes int64) error {
	if expectedTotalBytes <= 0 {
		w.fallback = newNativeChunkWriter(w.path, w.id, w.codec)
		return w.fallback.Open(bufferSize, 0)
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("extsort: create chunk %s: %w", w.id, err)
	}
	w.file = f

	if err := fallocateFile(f, expectedTotalBytes); err != nil {
		f.Close()
		return fmt.Errorf("extsort: preallocate chunk %s: %w", w.id, err)
	}

	data, err := mmap.MapRegion(f, int(expectedTotalBytes), mmap.RDWR, 0, 0)
	if err != nil {
		f.Close()
		return fmt.Errorf("extsort: mmap chunk %s: %w", w.id, err)
	}
	w.data = data
	prefaultRegion(w.data)
	return nil
}

func (w *mappedChunkWriter) Put(value uint64) error {
	if w.fallback != nil {
		return w.fallback.Put(value)
	}
	recSize := int64(w.codec.Size())
	if w.pos+recSize > int64(len(w.data)) {
		return fmt.Errorf("extsort: chunk %s overflowed its preallocated size", w.id)
	}
	w.codec.Encode(value, w.data[w.pos:w.pos+recSize])
	w.pos += recSize
	w.fold(value)
	return nil
}

func (w *mappedChunkWriter) ID() ChunkId { return w.id }

func (w *mappedChunkWriter) Checksum() uint64 {
	if w.fallback != nil {
		return w.fallback.Checksum()
	}
	return w.sum()
}

func (w *mappedChunkWriter) Close() error {
	if w.fallback != nil {
		return w.fallback.Close()
	}
	if w.data == nil {
		return nil
	}
	flushErr := w.data.Flush()
	unmapErr := w.data.Unmap()
	w.data = nil

	var truncErr error
	if w.file != nil {
		truncErr = w.file.Truncate(w.pos)
	}
	var closeErr error
	if w.file != nil {
		closeErr = w.file.Close()
		w.file = nil
	}

	if flushErr != nil {
		return flushErr
	}
	if unmapErr != nil {
		return unmapErr
	}
	if truncErr != nil {
		return truncErr
	}
	return closeErr
}
