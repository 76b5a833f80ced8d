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
	"strconv"
	"strings"

	"github.com/grailbio/hts/sam"
)

// Common pileup components.

// PosType is the integer type used to represent 0-based genomic positions.
type PosType = int

// Slots of a Counts vector.  The order is also the output order.
const (
	// SlotA counts reads showing an A.
	SlotA = iota
	// SlotT counts reads showing a T.
	SlotT
	// SlotG counts reads showing a G.
	SlotG
	// SlotOther counts reads showing any other single base, including C and
	// IUPAC ambiguity codes.
	SlotOther
	// SlotIns counts reads with an insertion at the position.
	SlotIns
	// SlotDel counts reads with a deletion at the position.
	SlotDel
	// NSlot is the number of slots.
	NSlot
)

// NBaseSlot is the number of leading slots that hold single-base evidence.
const NBaseSlot = SlotOther + 1

// Counts is the evidence observed at one locus in one sample.  Every
// classified read adds exactly one to one slot.
type Counts [NSlot]uint32

// BaseSlot returns the slot that counts the given single base.
func BaseSlot(base byte) int {
	switch base {
	case 'A':
		return SlotA
	case 'T':
		return SlotT
	case 'G':
		return SlotG
	}
	return SlotOther
}

// Add records one classified read.  It returns false, leaving c unchanged,
// for Unknown classifications.
func (c *Counts) Add(cb ClassifiedBase) bool {
	switch cb.Kind {
	case Match:
		c[BaseSlot(cb.Seq[0])]++
	case Insertion:
		c[SlotIns]++
	case Deletion:
		c[SlotDel]++
	default:
		return false
	}
	return true
}

// Depth is the total number of classified reads, i.e. the sum of all slots.
// Indel evidence is included.
func (c Counts) Depth() uint32 {
	var d uint32
	for _, v := range c {
		d += v
	}
	return d
}

// Fraction returns v / depth rounded to three decimal places.
//
// REQUIRES: depth > 0.
func Fraction(v, depth uint32) float64 {
	return roundMilli(float64(v) / float64(depth))
}

// FormatFraction renders a fraction the way it appears in output: the
// shortest decimal that round-trips, so 0.2 is "0.2" and 1 is "1".
func FormatFraction(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// String renders the counts as "A|T|G|other|ins|del".
func (c Counts) String() string {
	parts := make([]string, NSlot)
	for i, v := range c {
		parts[i] = strconv.FormatUint(uint64(v), 10)
	}
	return strings.Join(parts, "|")
}

// ReadFilter selects the reads that contribute evidence.
type ReadFilter struct {
	// MinMapQ is the minimum mapping quality.
	MinMapQ int
	// FlagExclude drops reads with any of these FLAG bits set.
	FlagExclude sam.Flags
}

// DefaultReadFilter keeps all mapped reads except duplicates.
var DefaultReadFilter = ReadFilter{
	MinMapQ:     0,
	FlagExclude: sam.Duplicate,
}

// Pass reports whether r survives the filter.  Unmapped reads never pass.
func (f ReadFilter) Pass(r *sam.Record) bool {
	if r.Flags&sam.Unmapped != 0 {
		return false
	}
	if int(r.MapQ) < f.MinMapQ {
		return false
	}
	return r.Flags&f.FlagExclude == 0
}
