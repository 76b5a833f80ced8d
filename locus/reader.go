package locus

import (
	"bufio"
	"context"
	"io"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// Reader reads loci from tab-separated text.  Blank lines and lines starting
// with '#' are skipped.
type Reader struct {
	r    *tsv.Reader
	name string
	opts Opts
}

// NewReader creates a Reader.  name is used in error messages.
func NewReader(in io.Reader, name string, opts Opts) *Reader {
	r := tsv.NewReader(bufio.NewReaderSize(in, 64<<10))
	r.Comment = '#'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	return &Reader{r: r, name: name, opts: opts}
}

// Read returns the next locus, or io.EOF at the end of the input.
func (r *Reader) Read() (Locus, error) {
	fields, err := r.r.Reader.Read()
	if err == io.EOF {
		return Locus{}, io.EOF
	}
	if err != nil {
		return Locus{}, errors.Wrapf(ErrParse, "%s: %v", r.name, err)
	}
	l, err := ParseFields(fields, r.opts)
	if err != nil {
		line, _ := r.r.FieldPos(0)
		return Locus{}, errors.Wrapf(err, "%s:%d", r.name, line)
	}
	return l, nil
}

// Load reads every locus in path.  Compressed files are decompressed based
// on their extension.
func Load(ctx context.Context, path string, opts Opts) (loci []Locus, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(ErrParse, "open %s: %v", path, err)
	}
	defer file.CloseAndReport(ctx, in, &err)
	var inr io.Reader = in.Reader(ctx)
	if u, _ := compress.NewReaderPath(inr, in.Name()); u != nil {
		defer func() {
			if e := u.Close(); e != nil && err == nil {
				err = e
			}
		}()
		inr = u
	}
	r := NewReader(inr, path, opts)
	for {
		l, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		loci = append(loci, l)
	}
	return loci, nil
}
