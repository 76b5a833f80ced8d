package fasta

import (
	"context"
	"io"
	"sync"

	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

// DecoyBase is reported for every position by a Decoy reference.
const DecoyBase = "-"

// Reference supplies the reference base at a locus.
type Reference interface {
	// Base returns the base at the 0-based position pos of seqName.
	Base(seqName string, pos uint64) (string, error)
}

// Decoy is a Reference used when no FASTA file is available. It reports
// DecoyBase everywhere.
type Decoy struct{}

// Base implements Reference.
func (Decoy) Base(string, uint64) (string, error) { return DecoyBase, nil }

// Indexed is a Fasta that seeks to the requested bases through a .fai index
// instead of reading whole sequences. Queries may arrive in any order; each
// one is positioned by absolute offset.
type Indexed struct {
	index     *Index
	reader    io.ReadSeeker
	mu        sync.Mutex
	bufOff    int64
	buf       []byte // caches file contents starting at bufOff.
	resultBuf []byte // temp for concatenating multi-line sequences.
}

// NewIndexed creates a new Fasta that can perform efficient random lookups
// using the provided index, without reading the data into memory.
func NewIndexed(fasta io.ReadSeeker, index io.Reader) (*Indexed, error) {
	idx, err := ReadIndex(index)
	if err != nil {
		return nil, err
	}
	return NewIndexedWith(fasta, idx), nil
}

// NewIndexedWith is NewIndexed with an already loaded index.
func NewIndexedWith(fasta io.ReadSeeker, idx *Index) *Indexed {
	return &Indexed{index: idx, reader: fasta}
}

// Index returns the .fai index backing f.
func (f *Indexed) Index() *Index { return f.index }

// Len implements Fasta.Len().
func (f *Indexed) Len(seqName string) (uint64, error) {
	ent, err := f.index.Lookup(seqName)
	if err != nil {
		return 0, err
	}
	return ent.Length, nil
}

// SeqNames implements Fasta.SeqNames().
func (f *Indexed) SeqNames() []string {
	return f.index.Names()
}

// Base implements Reference.
func (f *Indexed) Base(seqName string, pos uint64) (string, error) {
	return f.Get(seqName, pos, pos+1)
}

// Get implements Fasta.Get().
func (f *Indexed) Get(seqName string, start, end uint64) (string, error) {
	ent, err := f.index.Lookup(seqName)
	if err != nil {
		return "", err
	}
	if end <= start {
		return "", errors.Errorf("start must be less than end")
	}
	if end > ent.Length {
		return "", errors.Errorf("end is past end of sequence %s: %d", seqName, ent.Length)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Read from the first requested base through the last one, including any
	// line terminators in between.
	offset := ent.ByteOffset(start)
	limit := ent.ByteOffset(end-1) + 1
	buffer, err := f.read(int64(offset), int(limit-offset))
	if err != nil {
		return "", err
	}

	f.resizeBuf(&f.resultBuf, int(end-start))
	linePos := start % ent.LineBases
	resultPos := 0
	for i := range buffer {
		if linePos < ent.LineBases {
			f.resultBuf[resultPos] = buffer[i]
			resultPos++
		}
		linePos++
		if linePos == ent.LineBytes {
			linePos = 0
		}
	}
	if resultPos != int(end-start) {
		return "", errors.Errorf("read %d bases from %s:%d-%d, expected %d (bad index?)",
			resultPos, seqName, start, end, end-start)
	}
	return string(f.resultBuf), nil
}

// Read range [off, off+n) from the underlying fasta file.
func (f *Indexed) read(off int64, n int) ([]byte, error) {
	limit := off + int64(n)
	if off < f.bufOff || limit > f.bufOff+int64(len(f.buf)) {
		if newOffset, err := f.reader.Seek(off, io.SeekStart); err != nil || newOffset != off {
			return nil, errors.Errorf("failed to seek to offset %d: %d, %v", off, newOffset, err)
		}
		bufSize := 8192
		if bufSize < n {
			bufSize = n
		}
		f.resizeBuf(&f.buf, bufSize)
		bytesRead, err := io.ReadFull(f.reader, f.buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return nil, err
		}
		f.bufOff = off
		f.buf = f.buf[:bytesRead]
		if bytesRead < n {
			return nil, errors.Errorf("encountered unexpected end of file (bad index? file doesn't end in newline?)")
		}
	}
	return f.buf[off-f.bufOff : limit-f.bufOff], nil
}

func (f *Indexed) resizeBuf(buf *[]byte, n int) {
	if cap(*buf) < n {
		*buf = make([]byte, n)
	} else {
		*buf = (*buf)[0:n]
	}
}

// Opened is a Reference backed by an open file. Close must be called once the
// reference is no longer needed.
type Opened struct {
	*Indexed
	in file.File
}

// Close releases the underlying FASTA file.
func (o *Opened) Close(ctx context.Context) error {
	return o.in.Close(ctx)
}

// Open opens the FASTA file at fapath for random access. If faipath is empty,
// fapath + ".fai" is used.
func Open(ctx context.Context, fapath, faipath string) (*Opened, error) {
	if faipath == "" {
		faipath = fapath + ".fai"
	}
	idx, err := LoadIndex(ctx, faipath)
	if err != nil {
		return nil, err
	}
	in, err := file.Open(ctx, fapath)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", fapath)
	}
	return &Opened{Indexed: NewIndexedWith(in.Reader(ctx), idx), in: in}, nil
}
