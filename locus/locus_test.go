package locus_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/basecounts/locus"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

func readAll(t *testing.T, text string, opts locus.Opts) ([]locus.Locus, error) {
	r := locus.NewReader(strings.NewReader(text), "test.tsv", opts)
	var loci []locus.Locus
	for {
		l, err := r.Read()
		if err == io.EOF {
			return loci, nil
		}
		if err != nil {
			return nil, err
		}
		loci = append(loci, l)
	}
}

func TestReadPositions(t *testing.T) {
	loci, err := readAll(t, "# comment\nchr1\t100\n\nchr2\t1\textra\r\n", locus.Opts{})
	assert.NoError(t, err)
	assert.EQ(t, loci, []locus.Locus{
		{Chrom: "chr1", Pos: 99, InputPos: "100"},
		{Chrom: "chr2", Pos: 0, InputPos: "1"},
	})

	loci, err = readAll(t, "chr1\t0\nchr1\t100\n", locus.Opts{ZeroBased: true})
	assert.NoError(t, err)
	assert.EQ(t, loci, []locus.Locus{
		{Chrom: "chr1", Pos: 0, InputPos: "0"},
		{Chrom: "chr1", Pos: 100, InputPos: "100"},
	})
}

func TestReadAlleles(t *testing.T) {
	text := "chr1\t100\tA\tt\tgeneX\nchr1\t200\t-\tAC\tgeneY\n"
	loci, err := readAll(t, text, locus.Opts{RefAlt: true, AnnotationCol: 4})
	assert.NoError(t, err)
	assert.EQ(t, loci, []locus.Locus{
		{Chrom: "chr1", Pos: 99, InputPos: "100", Ref: "A", Alt: "T", Annotation: "geneX"},
		{Chrom: "chr1", Pos: 199, InputPos: "200", Ref: "-", Alt: "AC", Annotation: "geneY"},
	})
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		text   string
		opts   locus.Opts
		errStr string
	}{
		{"chr1\n", locus.Opts{}, "test.tsv:1"},
		{"chr1\t100\n", locus.Opts{RefAlt: true}, "at least 4 columns"},
		{"chr1\t1\nchr1\tx\n", locus.Opts{}, "test.tsv:2"},
		{"chr1\t0\n", locus.Opts{}, "out of range"},
		{"chr1\t-1\n", locus.Opts{ZeroBased: true}, "out of range"},
		{"\t5\n", locus.Opts{}, "empty chromosome"},
		{"chr1\t5\n", locus.Opts{AnnotationCol: 2}, "annotation column 2"},
		{"chr1\t5\t\tT\n", locus.Opts{RefAlt: true}, "empty allele"},
	}
	for _, test := range tests {
		_, err := readAll(t, test.text, test.opts)
		assert.True(t, errors.Cause(err) == locus.ErrParse, "%q: %v", test.text, err)
		assert.HasSubstr(t, err.Error(), test.errStr)
	}
}

func TestParseRegion(t *testing.T) {
	loci, err := locus.ParseRegion("chr1:100", false)
	assert.NoError(t, err)
	assert.EQ(t, loci, []locus.Locus{{Chrom: "chr1", Pos: 99, InputPos: "100"}})

	loci, err = locus.ParseRegion("HLA-A*01:01:100-102", false)
	assert.NoError(t, err)
	assert.EQ(t, loci, []locus.Locus{
		{Chrom: "HLA-A*01:01", Pos: 99, InputPos: "100"},
		{Chrom: "HLA-A*01:01", Pos: 100, InputPos: "101"},
		{Chrom: "HLA-A*01:01", Pos: 101, InputPos: "102"},
	})

	loci, err = locus.ParseRegion("chr2:10-12", true)
	assert.NoError(t, err)
	assert.EQ(t, loci, []locus.Locus{
		{Chrom: "chr2", Pos: 10, InputPos: "10"},
		{Chrom: "chr2", Pos: 11, InputPos: "11"},
	})

	for _, region := range []string{"chr1", ":5", "chr1:0", "chr1:x", "chr1:5-4", "chr1:5-y"} {
		_, err := locus.ParseRegion(region, false)
		expect.True(t, errors.Cause(err) == locus.ErrParse, "%s: %v", region, err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpDir)
	ctx := context.Background()

	plain := filepath.Join(tmpDir, "loci.tsv")
	assert.NoError(t, os.WriteFile(plain, []byte("chr1\t100\nchr2\t5\n"), 0644))
	gz := filepath.Join(tmpDir, "loci.tsv.gz")
	f, err := os.Create(gz)
	assert.NoError(t, err)
	w := gzip.NewWriter(f)
	_, err = w.Write([]byte("chr1\t100\nchr2\t5\n"))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, f.Close())

	want := []locus.Locus{
		{Chrom: "chr1", Pos: 99, InputPos: "100"},
		{Chrom: "chr2", Pos: 4, InputPos: "5"},
	}
	for _, path := range []string{plain, gz} {
		loci, err := locus.Load(ctx, path, locus.Opts{})
		assert.NoError(t, err)
		assert.EQ(t, loci, want, path)
	}

	_, err = locus.Load(ctx, filepath.Join(tmpDir, "missing.tsv"), locus.Opts{})
	assert.True(t, errors.Cause(err) == locus.ErrParse, "err: %v", err)
}
