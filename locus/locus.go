// Package locus reads the genomic positions to report on.
//
// Loci are written in tab-separated text, one per line: chromosome and
// position, followed in allele mode by the reference and alternate alleles.
// Positions are 1-based unless Opts.ZeroBased is set; a Locus always stores
// the 0-based position along with the text it was parsed from.
package locus

import (
	"strconv"
	"strings"

	"github.com/grailbio/basecounts/pileup"
	"github.com/pkg/errors"
)

// ErrParse is returned for loci input that cannot be read, and for a loci
// line or region string that cannot be interpreted.
var ErrParse = errors.New("malformed locus")

// Locus is one position to report on.
type Locus struct {
	Chrom string
	// Pos is the 0-based position.
	Pos pileup.PosType
	// InputPos is the position as written in the input.  It is echoed on
	// output.
	InputPos string
	// Ref and Alt are set in allele mode.  Either may be pileup.Placeholder.
	Ref, Alt string
	// Annotation is the content of the selected annotation column, if any.
	Annotation string
}

// Opts controls how loci are parsed.
type Opts struct {
	// RefAlt requires the reference and alternate alleles in columns 3 and 4.
	RefAlt bool
	// ZeroBased interprets positions as 0-based.
	ZeroBased bool
	// AnnotationCol is the 0-based index of a column copied to
	// Locus.Annotation.  0 means none.
	AnnotationCol int
}

func (o Opts) minFields() int {
	if o.RefAlt {
		return 4
	}
	return 2
}

func parsePos(s string, zeroBased bool) (pileup.PosType, error) {
	pos, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(ErrParse, "position %q is not an integer", s)
	}
	if zeroBased {
		if pos < 0 {
			return 0, errors.Wrapf(ErrParse, "position %d out of range", pos)
		}
		return pileup.PosType(pos), nil
	}
	if pos < 1 {
		return 0, errors.Wrapf(ErrParse, "1-based position %d out of range", pos)
	}
	return pileup.PosType(pos - 1), nil
}

// ParseFields builds a Locus from the columns of one loci line.
func ParseFields(fields []string, opts Opts) (Locus, error) {
	if len(fields) < opts.minFields() {
		return Locus{}, errors.Wrapf(ErrParse, "expected at least %d columns, got %d", opts.minFields(), len(fields))
	}
	if opts.AnnotationCol > 0 && opts.AnnotationCol >= len(fields) {
		return Locus{}, errors.Wrapf(ErrParse, "annotation column %d missing (%d columns)", opts.AnnotationCol, len(fields))
	}
	l := Locus{Chrom: fields[0], InputPos: fields[1]}
	if l.Chrom == "" {
		return Locus{}, errors.Wrap(ErrParse, "empty chromosome")
	}
	var err error
	if l.Pos, err = parsePos(fields[1], opts.ZeroBased); err != nil {
		return Locus{}, err
	}
	if opts.RefAlt {
		l.Ref = strings.ToUpper(fields[2])
		l.Alt = strings.ToUpper(fields[3])
		if l.Ref == "" || l.Alt == "" {
			return Locus{}, errors.Wrap(ErrParse, "empty allele")
		}
	}
	if opts.AnnotationCol > 0 {
		l.Annotation = fields[opts.AnnotationCol]
	}
	return l, nil
}

// ParseRegion parses a region string of one of the forms
//
//	[contig ID]:[pos]
//	[contig ID]:[first pos]-[last pos]
//
// and returns one Locus per position, in order.  Positions are 1-based and
// the range is closed unless zeroBased is set, in which case the range is
// half-open.
func ParseRegion(region string, zeroBased bool) ([]Locus, error) {
	colonPos := strings.LastIndexByte(region, ':')
	if colonPos <= 0 {
		return nil, errors.Wrapf(ErrParse, "region %q: expected contig:pos", region)
	}
	chrom := region[:colonPos]
	rangeStr := region[colonPos+1:]
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		pos, err := parsePos(rangeStr, zeroBased)
		if err != nil {
			return nil, errors.Wrapf(err, "region %q", region)
		}
		return []Locus{{Chrom: chrom, Pos: pos, InputPos: rangeStr}}, nil
	}
	start, err := parsePos(rangeStr[:dashPos], zeroBased)
	if err != nil {
		return nil, errors.Wrapf(err, "region %q", region)
	}
	last, err := strconv.Atoi(rangeStr[dashPos+1:])
	if err != nil {
		return nil, errors.Wrapf(ErrParse, "region %q: invalid range end", region)
	}
	// Both forms map to the 0-based half-open limit last.
	limit := pileup.PosType(last)
	if limit <= start {
		return nil, errors.Wrapf(ErrParse, "region %q: empty range", region)
	}
	loci := make([]Locus, 0, limit-start)
	for pos := start; pos < limit; pos++ {
		in := pos
		if !zeroBased {
			in++
		}
		loci = append(loci, Locus{Chrom: chrom, Pos: pos, InputPos: strconv.Itoa(in)})
	}
	return loci, nil
}
