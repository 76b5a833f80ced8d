package pileup_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/grailbio/basecounts/pileup"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/pkg/errors"
)

func TestClassifyVariant(t *testing.T) {
	tests := []struct {
		ref, alt string
		want     pileup.VariantType
	}{
		{"A", "T", pileup.SNP},
		{"AC", "GT", pileup.SNP},
		{"A", "-", pileup.DeletionVariant},
		{"-", "A", pileup.InsertionVariant},
		{"AT", "A", pileup.DeletionVariant},
		{"A", "AT", pileup.InsertionVariant},
		{"ACGT", "-", pileup.DeletionVariant},
		{"-", "-", pileup.InsertionVariant},
	}
	for _, test := range tests {
		expect.EQ(t, pileup.ClassifyVariant(test.ref, test.alt), test.want, "%s/%s", test.ref, test.alt)
	}
}

func TestSelectEvidence(t *testing.T) {
	scenarioA := pileup.Counts{7, 2, 0, 0, 1, 0}
	tests := []struct {
		counts           pileup.Counts
		ref, alt         string
		wantRef, wantAlt uint32
	}{
		{scenarioA, "A", "T", 7, 2},
		{scenarioA, "T", "A", 2, 7},
		{scenarioA, "C", "G", 0, 0},
		{scenarioA, "-", "TT", 7, 1},
		{pileup.Counts{7, 2, 0, 0, 1, 3}, "A", "-", 7, 3},
		{pileup.Counts{1, 4, 4, 9, 0, 2}, "AT", "A", 9, 2},
		{pileup.Counts{3, 3, 0, 3, 1, 0}, "-", "G", 3, 1},
	}
	for _, test := range tests {
		vt := pileup.ClassifyVariant(test.ref, test.alt)
		refCount, altCount, err := pileup.SelectEvidence(test.counts, vt, test.ref, test.alt)
		assert.NoError(t, err)
		expect.EQ(t, refCount, test.wantRef, "%s/%s", test.ref, test.alt)
		expect.EQ(t, altCount, test.wantAlt, "%s/%s", test.ref, test.alt)
	}

	_, _, err := pileup.SelectEvidence(scenarioA, pileup.VariantType(42), "A", "T")
	assert.True(t, errors.Cause(err) == pileup.ErrInternalConsistency, "err: %v", err)
}

func TestFraction(t *testing.T) {
	c := pileup.Counts{7, 2, 0, 0, 1, 0}
	refCount, altCount, err := pileup.SelectEvidence(c, pileup.SNP, "A", "T")
	assert.NoError(t, err)
	expect.EQ(t, pileup.FormatFraction(pileup.Fraction(refCount, c.Depth())), "0.7")
	expect.EQ(t, pileup.FormatFraction(pileup.Fraction(altCount, c.Depth())), "0.2")
	expect.EQ(t, pileup.FormatFraction(pileup.Fraction(1, 3)), "0.333")
	expect.EQ(t, pileup.FormatFraction(pileup.Fraction(2, 3)), "0.667")
	expect.EQ(t, pileup.FormatFraction(pileup.Fraction(3, 3)), "1")
	expect.EQ(t, pileup.FormatFraction(pileup.Fraction(0, 3)), "0")
}

func TestFractionsSumToOne(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	for i := 0; i < 1000; i++ {
		var c pileup.Counts
		for j := range c {
			c[j] = uint32(r.Intn(50))
		}
		if c.Depth() == 0 {
			continue
		}
		sum := 0.0
		for _, v := range c {
			sum += pileup.Fraction(v, c.Depth())
		}
		// Each slot is off by at most half a unit in the last place.
		expect.True(t, math.Abs(sum-1) <= float64(pileup.NSlot)*0.0005+1e-9, "counts %v sum %v", c, sum)
	}
}
