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
	"github.com/grailbio/hts/sam"
)

// Kind is the kind of evidence a read shows at a reference position.
type Kind uint8

const (
	// Unknown means the read carries no usable evidence at the position:
	// it does not cover it, covers it with a reference skip, or its record
	// is inconsistent with its CIGAR.
	Unknown Kind = iota
	// Match means an aligned (M, = or X) base covers the position.
	Match
	// Insertion means inserted bases are anchored at the position.
	Insertion
	// Deletion means the position falls inside a deletion.
	Deletion
)

func (k Kind) String() string {
	switch k {
	case Match:
		return "match"
	case Insertion:
		return "insertion"
	case Deletion:
		return "deletion"
	}
	return "unknown"
}

// ClassifiedBase is the evidence one read provides at one position.
type ClassifiedBase struct {
	Kind Kind
	// Seq is the observed base for Match, and the inserted bases for
	// Insertion.  Empty otherwise.
	Seq string
	// Len is the CIGAR operation length for Insertion and Deletion, 1 for
	// Match.
	Len int
}

func isAlignedMatch(t sam.CigarOpType) bool {
	return t == sam.CigarMatch || t == sam.CigarEqual || t == sam.CigarMismatch
}

// QueryPos maps the 0-based reference position pos to an offset in r.Seq.
// Soft-clipped bases occupy query offsets but never map to the reference.
// For a position inside a deletion, the offset of the first read base after
// the deletion is returned.  It returns false when r does not cover pos with
// an aligned base or a deletion.
func QueryPos(r *sam.Record, pos PosType) (int, bool) {
	refPos := PosType(r.Pos)
	if pos < refPos {
		return 0, false
	}
	qpos := 0
	for _, co := range r.Cigar {
		cLen := PosType(co.Len())
		switch t := co.Type(); {
		case isAlignedMatch(t):
			if pos < refPos+cLen {
				return qpos + int(pos-refPos), true
			}
			refPos += cLen
			qpos += int(cLen)
		case t == sam.CigarDeletion:
			if pos < refPos+cLen {
				return qpos, true
			}
			refPos += cLen
		case t == sam.CigarSkipped:
			refPos += cLen
		case t == sam.CigarInsertion, t == sam.CigarSoftClipped:
			qpos += int(cLen)
		}
		if pos < refPos {
			// pos falls in a reference skip.
			return 0, false
		}
	}
	return 0, false
}

// Classify reports what r shows at the 0-based reference position pos.
//
// An insertion whose anchor is pos, i.e. that directly precedes pos in
// reference coordinates, takes precedence over the aligned base at pos.
func Classify(r *sam.Record, pos PosType) ClassifiedBase {
	refPos := PosType(r.Pos)
	if pos < refPos {
		return ClassifiedBase{}
	}
	seq := r.Seq.Expand()
	qpos := 0
	for _, co := range r.Cigar {
		cLen := PosType(co.Len())
		switch t := co.Type(); {
		case isAlignedMatch(t):
			if pos < refPos+cLen {
				q, ok := QueryPos(r, pos)
				if !ok || q >= len(seq) {
					return ClassifiedBase{}
				}
				return ClassifiedBase{Kind: Match, Seq: string(seq[q : q+1]), Len: 1}
			}
			refPos += cLen
			qpos += int(cLen)
		case t == sam.CigarInsertion:
			if refPos == pos {
				// Records whose SEQ is shorter than the CIGAR implies
				// report the bases that are present.
				end := qpos + int(cLen)
				if end > len(seq) {
					end = len(seq)
				}
				if qpos >= end {
					return ClassifiedBase{}
				}
				return ClassifiedBase{Kind: Insertion, Seq: string(seq[qpos:end]), Len: int(cLen)}
			}
			qpos += int(cLen)
		case t == sam.CigarDeletion:
			if pos < refPos+cLen {
				return ClassifiedBase{Kind: Deletion, Len: int(cLen)}
			}
			refPos += cLen
		case t == sam.CigarSkipped:
			if pos < refPos+cLen {
				return ClassifiedBase{}
			}
			refPos += cLen
		case t == sam.CigarSoftClipped:
			qpos += int(cLen)
		case t == sam.CigarHardClipped, t == sam.CigarPadded:
			// do nothing
		}
	}
	return ClassifiedBase{}
}
