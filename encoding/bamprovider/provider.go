package bamprovider

import (
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// ErrAlignmentSource is returned when a BAM file or its index is missing,
// unreadable or malformed.
var ErrAlignmentSource = errors.New("cannot read alignment source")

// Provider answers region queries against one alignment file. Thread
// compatible: a Provider serves one iterator at a time.
type Provider interface {
	// GetHeader returns the header for the provided BAM data.  The callee
	// must not modify the returned header object.
	//
	// REQUIRES: Close has not been called.
	GetHeader() (*sam.Header, error)

	// NewRegionIterator returns an iterator over the records aligned to refName
	// that overlap the 0-based half-open range [start, limit). If the header
	// has no such reference, the iterator yields nothing.
	//
	// REQUIRES: Close has not been called, and the previous iterator has been
	// closed.
	NewRegionIterator(refName string, start, limit int) Iterator

	// Close must be called exactly once. It returns any error encountered
	// by the provider, or any iterator created by the provider.
	//
	// REQUIRES: All the iterators created by NewRegionIterator have been
	// closed.
	Close() error
}

// Iterator iterates over sam.Records in a particular genomic range, in
// coordinate order. Thread compatible.
type Iterator interface {
	// Scan returns where there are any records remaining in the iterator,
	// and if so, advances the iterator to the next record. If the iterator
	// reaches the end of its range, Scan() returns false.  If an error
	// occurs, Scan() returns false and the error can be retrieved by
	// calling Error().
	//
	// REQUIRES: Close has not been called.
	Scan() bool

	// Record returns the current record in the iterator. This must be
	// called only after a call to Scan() returns true.
	//
	// REQUIRES: Close has not been called.
	Record() *sam.Record

	// Err returns the error encoutered during iteration, or nil if no error
	// occurred.  An io.EOF error will be translated to nil.
	Err() error

	// Close must be called exactly once. It returns the value of Err().
	Close() error
}

// ProviderOpts defines options for NewProvider.
type ProviderOpts struct {
	// Index specifies the name of the BAM index file. If Index=="", it
	// defaults to path + ".bai".
	Index string
}

func mergeOpts(optList []ProviderOpts) ProviderOpts {
	opts := ProviderOpts{}
	for _, o := range optList {
		if o.Index != "" {
			opts.Index = o.Index
		}
	}
	return opts
}

// NewProvider creates a Provider for the BAM file at "path". Files are opened
// lazily, on the first call to GetHeader or NewRegionIterator.
func NewProvider(path string, optList ...ProviderOpts) Provider {
	opts := mergeOpts(optList)
	return &BAMProvider{Path: path, Index: opts.Index}
}
