package pileup_test

import (
	"testing"

	"github.com/grailbio/basecounts/internal/bamtest"
	"github.com/grailbio/basecounts/pileup"
	"github.com/grailbio/testutil/assert"
)

func TestClassify(t *testing.T) {
	_, refs := bamtest.NewHeader(100000, "chr1")
	match := func(b string) pileup.ClassifiedBase {
		return pileup.ClassifiedBase{Kind: pileup.Match, Seq: b, Len: 1}
	}
	unknown := pileup.ClassifiedBase{}
	tests := []struct {
		cigar, seq string
		pos        int
		want       pileup.ClassifiedBase
	}{
		{"10M", "ACGTACGTAC", 100, match("A")},
		{"10M", "ACGTACGTAC", 103, match("T")},
		{"10M", "ACGTACGTAC", 109, match("C")},
		{"10M", "ACGTACGTAC", 110, unknown},
		{"10M", "ACGTACGTAC", 99, unknown},
		// Soft clips occupy the query but not the reference.
		{"2S5M", "GGACGTA", 100, match("A")},
		{"2S5M", "GGACGTA", 104, match("A")},
		{"2H3M", "TGA", 100, match("T")},
		{"3=1X2=", "ACGTAC", 103, match("T")},
		// The insertion is reported at the first reference position after it.
		{"3M2I3M", "ACGTTGCA", 102, match("G")},
		{"3M2I3M", "ACGTTGCA", 103, pileup.ClassifiedBase{Kind: pileup.Insertion, Seq: "TT", Len: 2}},
		{"3M2I3M", "ACGTTGCA", 104, match("C")},
		{"3M2I3M", "ACGTTGCA", 105, match("A")},
		{"3M2D3M", "ACGTCA", 102, match("G")},
		{"3M2D3M", "ACGTCA", 103, pileup.ClassifiedBase{Kind: pileup.Deletion, Len: 2}},
		{"3M2D3M", "ACGTCA", 104, pileup.ClassifiedBase{Kind: pileup.Deletion, Len: 2}},
		{"3M2D3M", "ACGTCA", 105, match("T")},
		{"3M2D3M", "ACGTCA", 107, match("A")},
		{"3M2D3M", "ACGTCA", 108, unknown},
		{"2M100N2M", "ACGT", 101, match("C")},
		{"2M100N2M", "ACGT", 150, unknown},
		{"2M100N2M", "ACGT", 202, match("G")},
		{"2M100N2M", "ACGT", 203, match("T")},
		// SEQ shorter than the CIGAR.
		{"5M", "AC", 103, unknown},
		{"2M4I", "ACGG", 102, pileup.ClassifiedBase{Kind: pileup.Insertion, Seq: "GG", Len: 4}},
		{"2M4I", "AC", 102, unknown},
	}
	for _, test := range tests {
		r := bamtest.NewRecord("r", refs[0], 100, test.cigar, test.seq)
		assert.EQ(t, pileup.Classify(r, test.pos), test.want, "cigar %s pos %d", test.cigar, test.pos)
	}
}

func TestQueryPos(t *testing.T) {
	_, refs := bamtest.NewHeader(100000, "chr1")
	tests := []struct {
		cigar  string
		pos    int
		want   int
		wantOK bool
	}{
		{"2S3M2D3M", 99, 0, false},
		{"2S3M2D3M", 100, 2, true},
		{"2S3M2D3M", 102, 4, true},
		// Inside the deletion: the offset of the next read base.
		{"2S3M2D3M", 103, 5, true},
		{"2S3M2D3M", 104, 5, true},
		{"2S3M2D3M", 105, 5, true},
		{"2S3M2D3M", 107, 7, true},
		{"2S3M2D3M", 108, 0, false},
		{"1M2I1M", 101, 3, true},
		{"2M10N2M", 105, 0, false},
		{"2M10N2M", 112, 2, true},
	}
	for _, test := range tests {
		r := bamtest.NewRecord("r", refs[0], 100, test.cigar, "NNACGTCA")
		got, ok := pileup.QueryPos(r, test.pos)
		assert.EQ(t, ok, test.wantOK, "cigar %s pos %d", test.cigar, test.pos)
		assert.EQ(t, got, test.want, "cigar %s pos %d", test.cigar, test.pos)
	}
}

func TestCounts(t *testing.T) {
	var c pileup.Counts
	assert.True(t, c.Add(pileup.ClassifiedBase{Kind: pileup.Match, Seq: "A", Len: 1}))
	assert.True(t, c.Add(pileup.ClassifiedBase{Kind: pileup.Match, Seq: "C", Len: 1}))
	assert.True(t, c.Add(pileup.ClassifiedBase{Kind: pileup.Match, Seq: "N", Len: 1}))
	assert.True(t, c.Add(pileup.ClassifiedBase{Kind: pileup.Match, Seq: "G", Len: 1}))
	assert.True(t, c.Add(pileup.ClassifiedBase{Kind: pileup.Insertion, Seq: "TT", Len: 2}))
	assert.True(t, c.Add(pileup.ClassifiedBase{Kind: pileup.Deletion, Len: 3}))
	assert.False(t, c.Add(pileup.ClassifiedBase{}))
	assert.EQ(t, c, pileup.Counts{1, 0, 1, 2, 1, 1})
	assert.EQ(t, c.Depth(), uint32(6))
	assert.EQ(t, c.String(), "1|0|1|2|1|1")
}
