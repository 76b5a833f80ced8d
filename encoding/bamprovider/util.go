package bamprovider

import (
	"path/filepath"
	"strings"

	"github.com/grailbio/hts/sam"
)

// RefByName finds a sam.Reference with the given name. It returns nil if a
// reference is not found.
func RefByName(h *sam.Header, refName string) *sam.Reference {
	for _, ref := range h.Refs() {
		if ref.Name() == refName {
			return ref
		}
	}
	return nil
}

// overlaps reports whether r is aligned to ref and covers part of [start, limit).
func overlaps(r *sam.Record, ref *sam.Reference, start, limit int) bool {
	if r.Ref == nil || r.Ref.ID() != ref.ID() {
		return false
	}
	return r.Pos < limit && r.End() > start
}

// SampleName derives a sample name from a BAM path: the base name with its
// last extension removed. "/data/tumor.sorted.bam" becomes "tumor.sorted".
func SampleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// finished is an Iterator with no records left. err, possibly nil, is what
// Err and Close report.
type finished struct{ err error }

func doneIterator(err error) Iterator { return finished{err} }

func (finished) Scan() bool          { return false }
func (finished) Record() *sam.Record { return nil }
func (it finished) Err() error       { return it.err }
func (it finished) Close() error     { return it.err }
