// Package bamtest builds small indexed BAM files for tests.
package bamtest

import (
	"io"
	"os"
	"strings"

	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// NewHeader returns a header with one reference of the given length per name.
func NewHeader(length int, names ...string) (*sam.Header, []*sam.Reference) {
	refs := make([]*sam.Reference, len(names))
	for i, name := range names {
		ref, err := sam.NewReference(name, "", "", length, nil, nil)
		if err != nil {
			panic(err)
		}
		refs[i] = ref
	}
	header, err := sam.NewHeader(nil, refs)
	if err != nil {
		panic(err)
	}
	return header, refs
}

// NewRecord creates a mapped record. The cigar is written in SAM syntax, for
// example "3S10M2I5M".
func NewRecord(name string, ref *sam.Reference, pos int, cigar, seq string) *sam.Record {
	ops, err := sam.ParseCigar([]byte(cigar))
	if err != nil {
		panic(err)
	}
	qual := []byte(strings.Repeat("\x1e", len(seq)))
	return &sam.Record{
		Name:    name,
		Ref:     ref,
		Pos:     pos,
		MapQ:    60,
		Cigar:   ops,
		MateRef: nil,
		MatePos: -1,
		Seq:     sam.NewSeq([]byte(seq)),
		Qual:    qual,
	}
}

// WriteIndexed writes recs, which must be coordinate sorted, to a BAM file at
// path and a BAI index at path + ".bai".
func WriteIndexed(path string, header *sam.Header, recs []*sam.Record) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	w, err := bam.NewWriter(out, header, 1)
	if err != nil {
		return err
	}
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			return errors.Wrapf(err, "write %s", r.Name)
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close() // nolint: errcheck
	br, err := bam.NewReader(in, 1)
	if err != nil {
		return err
	}
	var idx bam.Index
	for {
		r, err := br.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := idx.Add(r, br.LastChunk()); err != nil {
			return errors.Wrapf(err, "index %s", r.Name)
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	bai, err := os.Create(path + ".bai")
	if err != nil {
		return err
	}
	if err := bam.WriteIndex(bai, &idx); err != nil {
		return err
	}
	return bai.Close()
}
