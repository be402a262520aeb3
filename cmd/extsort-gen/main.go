// Command extsort-gen generates fixed-width unsigned integer record files
// for exercising extsort, and verifies sorted output against an
// independent in-memory sort.
//
// Usage:
//
//	extsort-gen -gen -out records.bin -count 1000000 -record-size 4
//	extsort-gen -verify -in records.bin -sorted sorted.bin -record-size 4
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"hash/crc64"
	mrand "math/rand/v2"
	"os"
	"slices"

	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"
)

var crc64Table = crc64.MakeTable(crc64.ISO)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "extsort-gen:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("extsort-gen", flag.ContinueOnError)
	genMode := fs.Bool("gen", false, "generate a random record file")
	verifyMode := fs.Bool("verify", false, "verify a sorted output against its source")
	count := fs.Int64("count", 1_000_000, "number of records to generate")
	recordSize := fs.Int("record-size", 4, "record width in bytes (1, 2, 4, or 8)")
	shuffle := fs.Bool("shuffle", true, "shuffle generated records instead of leaving them random-order")
	in := fs.String("in", "", "source record file (verify mode)")
	sorted := fs.String("sorted", "", "sorted output file to verify (verify mode)")
	out := fs.String("out", "", "destination record file (gen mode)")
	seed := fs.Uint64("seed", 1, "PRNG seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case *genMode:
		return generate(*out, *count, *recordSize, *shuffle, *seed)
	case *verifyMode:
		return verify(*in, *sorted, *recordSize)
	default:
		return fmt.Errorf("specify -gen or -verify")
	}
}

func generate(path string, count int64, recordSize int, shuffle bool, seed uint64) error {
	if path == "" {
		return fmt.Errorf("-out is required")
	}
	values := make([]uint64, count)
	rng := mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	mask := recordMask(recordSize)
	for i := range values {
		values[i] = rng.Uint64() & mask
	}

	if shuffle {
		// Permute with a murmur3-derived key rather than rng.Shuffle so
		// that regenerating with the same seed but shuffle=false produces
		// the identifiable unshuffled sequence for debugging.
		keys := make([]uint32, len(values))
		seedBytes := make([]byte, 8)
		binary.LittleEndian.PutUint64(seedBytes, seed)
		for i := range keys {
			idxBytes := make([]byte, 8)
			binary.LittleEndian.PutUint64(idxBytes, uint64(i))
			keys[i] = murmur3.Sum32WithSeed(append(seedBytes, idxBytes...), uint32(seed))
		}
		order := make([]int, len(values))
		for i := range order {
			order[i] = i
		}
		slices.SortFunc(order, func(a, b int) int {
			if keys[a] < keys[b] {
				return -1
			}
			if keys[a] > keys[b] {
				return 1
			}
			return 0
		})
		shuffled := make([]uint64, len(values))
		for i, idx := range order {
			shuffled[i] = values[idx]
		}
		values = shuffled
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 1<<20)
	buf := make([]byte, recordSize)
	for _, v := range values {
		encodeRecord(buf, v, recordSize)
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return w.Flush()
}

func verify(inPath, sortedPath string, recordSize int) error {
	if inPath == "" || sortedPath == "" {
		return fmt.Errorf("-in and -sorted are required")
	}

	src, err := readRecords(inPath, recordSize)
	if err != nil {
		return err
	}
	got, err := readRecords(sortedPath, recordSize)
	if err != nil {
		return err
	}
	if len(src) != len(got) {
		return fmt.Errorf("record count mismatch: source %d, sorted %d", len(src), len(got))
	}

	want := append([]uint64(nil), src...)
	slices.Sort(want)

	if !slices.IsSorted(got) {
		return fmt.Errorf("output is not sorted")
	}

	wantCRC := crcOf(want, recordSize)
	gotCRC := crcOf(got, recordSize)
	if wantCRC != gotCRC {
		return fmt.Errorf("CRC64 mismatch: want %x, got %x", wantCRC, gotCRC)
	}

	// xxh3 is a faster secondary check over the same bytes, catching a CRC
	// collision between differently-ordered multisets (vanishingly
	// unlikely, but free to compute here).
	wantXXH := xxh3.Hash(encodeAll(want, recordSize))
	gotXXH := xxh3.Hash(encodeAll(got, recordSize))
	if wantXXH != gotXXH {
		return fmt.Errorf("xxh3 mismatch: want %x, got %x", wantXXH, gotXXH)
	}

	fmt.Printf("verified: %d records, CRC64=%x\n", len(got), gotCRC)
	return nil
}

func readRecords(path string, recordSize int) ([]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size()%int64(recordSize) != 0 {
		return nil, fmt.Errorf("%s: length not a multiple of record size", path)
	}

	n := info.Size() / int64(recordSize)
	values := make([]uint64, n)
	r := bufio.NewReaderSize(f, 1<<20)
	buf := make([]byte, recordSize)
	for i := range values {
		if _, err := readFull(r, buf); err != nil {
			return nil, err
		}
		values[i] = decodeRecord(buf, recordSize)
	}
	return values, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func crcOf(values []uint64, recordSize int) uint64 {
	return crc64.Checksum(encodeAll(values, recordSize), crc64Table)
}

func encodeAll(values []uint64, recordSize int) []byte {
	buf := make([]byte, len(values)*recordSize)
	for i, v := range values {
		encodeRecord(buf[i*recordSize:(i+1)*recordSize], v, recordSize)
	}
	return buf
}

func encodeRecord(buf []byte, value uint64, size int) {
	switch size {
	case 1:
		buf[0] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(value))
	default:
		binary.LittleEndian.PutUint64(buf, value)
	}
}

func decodeRecord(buf []byte, size int) uint64 {
	switch size {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf))
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf))
	default:
		return binary.LittleEndian.Uint64(buf)
	}
}

func recordMask(size int) uint64 {
	if size >= 8 {
		return ^uint64(0)
	}
	return (uint64(1) << (uint(size) * 8)) - 1
}
