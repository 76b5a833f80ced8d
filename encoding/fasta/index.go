package fasta

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sort"
	"strconv"
	"strings"

	gerrors "github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// IndexEntry is one line of a .fai file.
type IndexEntry struct {
	Name string
	// Length is the number of bases in the sequence.
	Length uint64
	// Offset is the byte offset of the sequence's first base.
	Offset uint64
	// LineBases is the number of bases on each full line.
	LineBases uint64
	// LineBytes is the number of bytes on each full line, including the line
	// terminator.
	LineBytes uint64
}

// ByteOffset returns the absolute file offset of the 0-based position pos.
//
// REQUIRES: pos < e.Length.
func (e IndexEntry) ByteOffset(pos uint64) uint64 {
	return e.Offset + (pos/e.LineBases)*e.LineBytes + pos%e.LineBases
}

// Index maps sequence names to their .fai entries. It is read-only once
// constructed and safe for concurrent use.
type Index struct {
	entries map[string]IndexEntry
	names   []string // sorted by file offset
}

// ReadIndex parses a .fai file. The format is
// "<name>\t<length>\t<offset>\t<bases per line>\t<bytes per line>". The last
// column may be omitted, in which case each line is assumed to be terminated
// by a single '\n'.
func ReadIndex(in io.Reader) (*Index, error) {
	idx := &Index{entries: make(map[string]IndexEntry)}
	scanner := bufio.NewScanner(in)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		ent, err := parseIndexLine(line)
		if err != nil {
			return nil, errors.Wrapf(ErrIndexLoad, "line %d: %v", lineno, err)
		}
		if _, ok := idx.entries[ent.Name]; ok {
			return nil, errors.Wrapf(ErrIndexLoad, "line %d: duplicate sequence %s", lineno, ent.Name)
		}
		idx.entries[ent.Name] = ent
		idx.names = append(idx.names, ent.Name)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(ErrIndexLoad, "%v", err)
	}
	sort.SliceStable(idx.names, func(i, j int) bool {
		return idx.entries[idx.names[i]].Offset < idx.entries[idx.names[j]].Offset
	})
	return idx, nil
}

func parseIndexLine(line string) (ent IndexEntry, err error) {
	cols := strings.Split(line, "\t")
	if len(cols) < 4 {
		return ent, errors.Errorf("expected at least 4 columns, got %d: %q", len(cols), line)
	}
	ent.Name = cols[0]
	fields := []*uint64{&ent.Length, &ent.Offset, &ent.LineBases}
	for i, dst := range fields {
		if *dst, err = strconv.ParseUint(cols[i+1], 10, 64); err != nil {
			return ent, errors.Errorf("column %d: %v", i+2, err)
		}
	}
	if len(cols) >= 5 {
		if ent.LineBytes, err = strconv.ParseUint(cols[4], 10, 64); err != nil {
			return ent, errors.Errorf("column 5: %v", err)
		}
	} else {
		ent.LineBytes = ent.LineBases + 1
	}
	if ent.LineBases == 0 {
		return ent, errors.Errorf("sequence %s has zero bases per line", ent.Name)
	}
	if ent.LineBytes < ent.LineBases {
		return ent, errors.Errorf("sequence %s has %d bytes per line but %d bases per line",
			ent.Name, ent.LineBytes, ent.LineBases)
	}
	return ent, nil
}

// LoadIndex reads the .fai file at path.
func LoadIndex(ctx context.Context, path string) (idx *Index, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(ErrIndexLoad, "open %s: %v", path, err)
	}
	defer file.CloseAndReport(ctx, in, &err)
	if idx, err = ReadIndex(in.Reader(ctx)); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return idx, nil
}

// Lookup returns the entry for the given sequence. It fails with
// ErrUnknownChromosome if the index has no such sequence.
func (idx *Index) Lookup(name string) (IndexEntry, error) {
	ent, ok := idx.entries[name]
	if !ok {
		return ent, errors.Wrapf(ErrUnknownChromosome, "sequence %s", name)
	}
	return ent, nil
}

// Names returns the sequence names in file order.
func (idx *Index) Names() []string {
	return idx.names
}

// Lengths returns the sequence lengths keyed by name.
func (idx *Index) Lengths() map[string]uint64 {
	m := make(map[string]uint64, len(idx.entries))
	for name, ent := range idx.entries {
		m[name] = ent.Length
	}
	return m
}

// GenerateIndex generates an index (*.fai) from FASTA.  The index can be later
// passed to NewIndexed() to random-access the FASTA file quickly.
//
// The index format is defined by "samtool faidx"
// (http://www.htslib.org/doc/faidx.html).
func GenerateIndex(out io.Writer, in io.Reader) (err error) {
	var (
		tsvOut      = tsv.NewWriter(out)
		r           = bufio.NewReader(in)
		seqName     string
		seqStartOff int64
		totalBases  int
		lineBases   int
		lineWidth   int
		cumByte     int64
		eof         bool
	)

	setErr := func(e error) {
		if e != nil && err == nil {
			err = e
		}
	}
	flush := func() {
		tsvOut.WriteString(seqName)
		tsvOut.WriteInt64(int64(totalBases))
		tsvOut.WriteInt64(seqStartOff)
		tsvOut.WriteInt64(int64(lineBases))
		tsvOut.WriteInt64(int64(lineWidth))
		setErr(tsvOut.EndLine())
	}
	for !eof && err == nil {
		fullLine, e := r.ReadBytes('\n')
		if e == io.EOF { // Process fullLine, then exit the loop
			eof = true
		} else if e != nil {
			setErr(e)
		}
		cumByte += int64(len(fullLine))
		line := bytes.TrimRight(fullLine, "\r\n")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if lineWidth != 0 {
				if seqName == "" {
					setErr(gerrors.E(gerrors.Invalid, "malformed FASTA file"))
				}
				flush()
			}
			seqName = strings.Split(string(line[1:]), " ")[0]
			seqStartOff = cumByte
			lineWidth = 0
			lineBases = 0
			totalBases = 0
			continue
		}
		if lineWidth == 0 {
			lineWidth = len(fullLine)
			lineBases = len(line)
		}
		totalBases += len(line)
	}
	if cumByte == 0 {
		return gerrors.E(gerrors.Invalid, "empty FASTA file")
	}
	flush()
	setErr(tsvOut.Flush())
	return
}
