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
package pileup

import (
	"math"

	"github.com/pkg/errors"
)

// Placeholder stands for "no sequence" in an allele, e.g. the alt allele of
// a pure deletion.
const Placeholder = "-"

// ErrInternalConsistency reports a state the program should never reach.
// It is distinct from errors caused by bad input.
var ErrInternalConsistency = errors.New("internal consistency error")

// VariantType is the kind of variant described by a ref/alt allele pair.
type VariantType uint8

const (
	// SNP is a single-base (or equal-length) substitution.
	SNP VariantType = iota
	// InsertionVariant adds bases relative to the reference.
	InsertionVariant
	// DeletionVariant removes reference bases.
	DeletionVariant
)

func (t VariantType) String() string {
	switch t {
	case SNP:
		return "SNP"
	case InsertionVariant:
		return "insertion"
	case DeletionVariant:
		return "deletion"
	}
	return "invalid"
}

// ClassifyVariant returns the type of the variant ref>alt.  It compares
// allele lengths; for equal lengths a Placeholder ref means an insertion and
// a Placeholder alt a deletion.
func ClassifyVariant(ref, alt string) VariantType {
	switch {
	case len(ref) > len(alt):
		return DeletionVariant
	case len(alt) > len(ref):
		return InsertionVariant
	case ref == Placeholder:
		return InsertionVariant
	case alt == Placeholder:
		return DeletionVariant
	}
	return SNP
}

func firstBase(allele string) byte {
	if allele == "" {
		return 0
	}
	return allele[0]
}

// maxBaseSlot returns the largest of the single-base slots.  Ties go to the
// earliest slot in A, T, G, other order.
func (c Counts) maxBaseSlot() uint32 {
	m := c[SlotA]
	for _, v := range c[1:NBaseSlot] {
		if v > m {
			m = v
		}
	}
	return m
}

// SelectEvidence returns the reference- and alternate-supporting counts for
// the variant ref>alt of type vt.
//
// For a SNP these are the slots of the first ref and alt bases.  For an
// indel, reference support is approximated by the largest single-base slot
// and alternate support is the insertion or deletion slot.
func SelectEvidence(c Counts, vt VariantType, ref, alt string) (refCount, altCount uint32, err error) {
	switch vt {
	case SNP:
		return c[BaseSlot(firstBase(ref))], c[BaseSlot(firstBase(alt))], nil
	case InsertionVariant:
		return c.maxBaseSlot(), c[SlotIns], nil
	case DeletionVariant:
		return c.maxBaseSlot(), c[SlotDel], nil
	}
	return 0, 0, errors.Wrapf(ErrInternalConsistency, "variant type %d", vt)
}

func roundMilli(v float64) float64 {
	return math.Round(v*1000) / 1000
}
