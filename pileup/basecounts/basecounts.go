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

// Package basecounts reports, for a list of loci, how many reads in each of
// a set of BAM files support each base, insertion and deletion.
package basecounts

import (
	"context"
	"os"

	"github.com/cheggaaa/pb/v3"
	"github.com/grailbio/base/log"
	"github.com/grailbio/basecounts/encoding/bamprovider"
	"github.com/grailbio/basecounts/encoding/fasta"
	"github.com/grailbio/basecounts/locus"
	"github.com/grailbio/basecounts/pileup"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// Opts configures a run.
type Opts struct {
	// BAMPaths lists the samples, in output column order.  Each BAM must
	// have an index at path + ".bai".
	BAMPaths []string
	// FastaPath is the reference.  If empty, the refbase column is "-".
	FastaPath string
	// FaiPath is the FASTA index.  Defaults to FastaPath + ".fai".
	FaiPath string
	// LociPath is a tab-separated file of loci.
	LociPath string
	// Regions are additional loci in chr:pos or chr:first-last form.  They
	// are reported after those in LociPath.
	Regions []string
	// VAF reports fractions of depth instead of counts.
	VAF bool
	// RefAlt reads ref and alt alleles from the loci file and reports
	// ref|alt evidence instead of all six counts.
	RefAlt bool
	// AnnotationCol is the 0-based index of a loci column appended to the
	// third output column.  0 disables it.
	AnnotationCol int
	ZeroBased     bool
	Mapq          int
	FlagExclude   int
	DedupMates    bool
	// Parallelism is the number of samples tallied concurrently.
	Parallelism int
	// OutPath is the output file.  Empty or "-" means stdout.  A ".gz" or
	// ".bgz" suffix compresses the output.
	OutPath string
	// Progress shows a progress bar on stderr.
	Progress bool
}

// DefaultOpts are the default options.
var DefaultOpts = Opts{
	Mapq:        0,
	FlagExclude: int(sam.Duplicate),
	Parallelism: 1,
}

func (o Opts) validate() error {
	if len(o.BAMPaths) == 0 {
		return errors.New("basecounts: at least one BAM file is required")
	}
	if o.LociPath == "" && len(o.Regions) == 0 {
		return errors.New("basecounts: a loci file or region is required")
	}
	if o.RefAlt && len(o.Regions) > 0 {
		return errors.New("basecounts: regions carry no alleles and cannot be used with ref/alt loci")
	}
	if o.AnnotationCol < 0 {
		return errors.Errorf("basecounts: negative annotation column %d", o.AnnotationCol)
	}
	return nil
}

func (o Opts) locusOpts() locus.Opts {
	return locus.Opts{RefAlt: o.RefAlt, ZeroBased: o.ZeroBased, AnnotationCol: o.AnnotationCol}
}

func (o Opts) tallyOpts() pileup.TallyOpts {
	return pileup.TallyOpts{
		Filter: pileup.ReadFilter{
			MinMapQ:     o.Mapq,
			FlagExclude: sam.Flags(o.FlagExclude),
		},
		DedupMates: o.DedupMates,
	}
}

// loadLoci reads the loci file followed by the regions.
func loadLoci(ctx context.Context, opts Opts) ([]locus.Locus, error) {
	var loci []locus.Locus
	if opts.LociPath != "" {
		var err error
		if loci, err = locus.Load(ctx, opts.LociPath, opts.locusOpts()); err != nil {
			return nil, err
		}
	}
	for _, region := range opts.Regions {
		l, err := locus.ParseRegion(region, opts.ZeroBased)
		if err != nil {
			return nil, err
		}
		loci = append(loci, l...)
	}
	return loci, nil
}

// openReference returns the reference for opts, and a function to release
// it.  Allele mode does not need one.
func openReference(ctx context.Context, opts Opts) (fasta.Reference, func() error, error) {
	nop := func() error { return nil }
	if opts.RefAlt {
		return nil, nop, nil
	}
	if opts.FastaPath == "" {
		log.Printf("basecounts: no FASTA given, reporting %q as the reference base", fasta.DecoyBase)
		return fasta.Decoy{}, nop, nil
	}
	ref, err := fasta.Open(ctx, opts.FastaPath, opts.FaiPath)
	if err != nil {
		return nil, nil, err
	}
	return ref, func() error { return ref.Close(ctx) }, nil
}

// Run writes the report described by opts.  It stops at the first error;
// rows written before it are kept.
func Run(ctx context.Context, opts Opts) (err error) {
	if err = opts.validate(); err != nil {
		return err
	}
	loci, err := loadLoci(ctx, opts)
	if err != nil {
		return err
	}
	ref, closeRef, err := openReference(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if e := closeRef(); e != nil && err == nil {
			err = e
		}
	}()

	providers := make([]bamprovider.Provider, len(opts.BAMPaths))
	samples := make([]string, len(opts.BAMPaths))
	for i, path := range opts.BAMPaths {
		providers[i] = bamprovider.NewProvider(path)
		samples[i] = bamprovider.SampleName(path)
	}
	defer func() {
		for _, p := range providers {
			if e := p.Close(); e != nil && err == nil {
				err = e
			}
		}
	}()
	// Fail before writing anything if a BAM or its index is unusable.
	for _, p := range providers {
		if _, err = p.GetHeader(); err != nil {
			return err
		}
	}

	out, err := createOutput(ctx, opts.OutPath, opts.Parallelism)
	if err != nil {
		return err
	}
	defer func() {
		if e := out.close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	if err = writeHeader(out.w, opts.RefAlt, samples); err != nil {
		return err
	}

	var bar *pb.ProgressBar
	if opts.Progress {
		bar = pb.Full.New(len(loci)).SetWriter(os.Stderr).Start()
		defer bar.Finish()
	}
	log.Printf("basecounts: %d loci, %d samples", len(loci), len(samples))
	tallyOpts := opts.tallyOpts()
	for _, l := range loci {
		if err = writeRow(out, ref, providers, l, opts, tallyOpts); err != nil {
			return err
		}
		if bar != nil {
			bar.Increment()
		}
	}
	log.Printf("basecounts: done")
	return nil
}

func writeRow(out *output, ref fasta.Reference, providers []bamprovider.Provider, l locus.Locus, opts Opts, tallyOpts pileup.TallyOpts) error {
	var refBase string
	if ref != nil {
		var err error
		if refBase, err = ref.Base(l.Chrom, uint64(l.Pos)); err != nil {
			return errors.Wrapf(err, "%s:%s", l.Chrom, l.InputPos)
		}
	}
	counts, err := pileup.CountLocus(providers, l.Chrom, l.Pos, tallyOpts, opts.Parallelism)
	if err != nil {
		return errors.Wrapf(err, "%s:%s", l.Chrom, l.InputPos)
	}
	cells := make([]string, len(counts))
	for i, c := range counts {
		if opts.RefAlt {
			if cells[i], err = alleleCell(c, l, opts.VAF); err != nil {
				return errors.Wrapf(err, "%s:%s", l.Chrom, l.InputPos)
			}
			continue
		}
		cells[i] = countsCell(c, opts.VAF)
	}
	out.w.WriteString(l.Chrom)
	out.w.WriteString(l.InputPos)
	out.w.WriteString(annotationCell(l, refBase, opts.RefAlt))
	for _, cell := range cells {
		out.w.WriteString(cell)
	}
	return out.w.EndLine()
}
