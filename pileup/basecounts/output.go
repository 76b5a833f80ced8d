// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package basecounts

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/basecounts/locus"
	"github.com/grailbio/basecounts/pileup"
	"github.com/grailbio/hts/bgzf"
	"github.com/klauspost/compress/gzip"
)

// NA is written instead of a fraction when no read covers a locus.
const NA = "NA"

// writeHeader writes the column names: chr, pos, the annotation column and
// one column per sample.
func writeHeader(w *tsv.Writer, refAlt bool, samples []string) error {
	w.WriteString("chr")
	w.WriteString("pos")
	if refAlt {
		w.WriteString("genotype")
	} else {
		w.WriteString("refbase")
	}
	for _, s := range samples {
		w.WriteString(s)
	}
	return w.EndLine()
}

// annotationCell renders the third column: the reference base, or ref/alt in
// allele mode, followed by /annotation when an annotation column is used.
func annotationCell(l locus.Locus, refBase string, refAlt bool) string {
	var sb strings.Builder
	if refAlt {
		sb.WriteString(l.Ref)
		sb.WriteByte('/')
		sb.WriteString(l.Alt)
	} else {
		sb.WriteString(refBase)
	}
	if l.Annotation != "" {
		sb.WriteByte('/')
		sb.WriteString(l.Annotation)
	}
	return sb.String()
}

// countsCell renders all six slots, as raw counts or fractions of depth.
func countsCell(c pileup.Counts, vaf bool) string {
	if !vaf {
		return c.String()
	}
	depth := c.Depth()
	if depth == 0 {
		return NA
	}
	parts := make([]string, pileup.NSlot)
	for i, v := range c {
		parts[i] = pileup.FormatFraction(pileup.Fraction(v, depth))
	}
	return strings.Join(parts, "|")
}

// alleleCell renders the ref|alt evidence for the variant at l.
func alleleCell(c pileup.Counts, l locus.Locus, vaf bool) (string, error) {
	vt := pileup.ClassifyVariant(l.Ref, l.Alt)
	refCount, altCount, err := pileup.SelectEvidence(c, vt, l.Ref, l.Alt)
	if err != nil {
		return "", err
	}
	if !vaf {
		return strconv.FormatUint(uint64(refCount), 10) + "|" + strconv.FormatUint(uint64(altCount), 10), nil
	}
	depth := c.Depth()
	if depth == 0 {
		return NA, nil
	}
	return pileup.FormatFraction(pileup.Fraction(refCount, depth)) + "|" +
		pileup.FormatFraction(pileup.Fraction(altCount, depth)), nil
}

// output is the destination of the report: stdout, or a file whose name
// selects the compression.  ".bgz" produces BGZF, which tabix and htslib
// readers accept; ".gz" produces plain gzip.
type output struct {
	f  file.File
	zw io.WriteCloser
	w  *tsv.Writer
}

func createOutput(ctx context.Context, path string, parallelism int) (*output, error) {
	if path == "" || path == "-" {
		return &output{w: tsv.NewWriter(os.Stdout)}, nil
	}
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	o := &output{f: f}
	var dst io.Writer = f.Writer(ctx)
	switch {
	case strings.HasSuffix(path, ".bgz"):
		o.zw = bgzf.NewWriter(dst, parallelism)
		dst = o.zw
	case strings.HasSuffix(path, ".gz"):
		o.zw = gzip.NewWriter(dst)
		dst = o.zw
	}
	o.w = tsv.NewWriter(dst)
	return o, nil
}

// close flushes buffered rows.  Rows written before an error are kept.
func (o *output) close(ctx context.Context) error {
	err := o.w.Flush()
	if o.zw != nil {
		if e := o.zw.Close(); e != nil && err == nil {
			err = e
		}
	}
	if o.f != nil {
		if e := o.f.Close(ctx); e != nil && err == nil {
			err = e
		}
	}
	return err
}
