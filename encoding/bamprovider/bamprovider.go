package bamprovider

import (
	"context"
	"sync"

	errorreporter "github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/bgzf/index"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// BAMProvider implements Provider for BAM files. Paths are opened through
// github.com/grailbio/base/file, so any registered scheme may be used.
type BAMProvider struct {
	// Path of the *.bam file. Must be nonempty.
	Path string
	// Index is the pathname of *.bam.bai file. If "", Path + ".bai"
	Index string
	err   errorreporter.Once

	mu       sync.Mutex
	opened   bool
	in       file.File
	reader   *bam.Reader
	index    *bam.Index
	active   bool
	warnRefs map[string]bool // references already reported as missing
}

type bamIterator struct {
	provider *BAMProvider
	it       *bam.Iterator
	ref      *sam.Reference
	// Half-open coordinate range to read.
	start, limit int

	rec  *sam.Record
	err  error
	done bool
}

func (b *BAMProvider) indexPath() string {
	index := b.Index
	if index == "" {
		index = b.Path + ".bai"
	}
	return index
}

// open opens the BAM file and reads its index, once. REQUIRES: b.mu is held.
func (b *BAMProvider) open() error {
	if b.opened {
		return b.err.Err()
	}
	b.opened = true
	ctx := context.Background()
	var err error
	if b.in, err = file.Open(ctx, b.Path); err != nil {
		b.err.Set(errors.Wrapf(ErrAlignmentSource, "open %s: %v", b.Path, err))
		return b.err.Err()
	}
	indexIn, err := file.Open(ctx, b.indexPath())
	if err != nil {
		b.err.Set(errors.Wrapf(ErrAlignmentSource, "open index %s: %v", b.indexPath(), err))
		return b.err.Err()
	}
	defer indexIn.Close(ctx) // nolint: errcheck
	if b.index, err = bam.ReadIndex(indexIn.Reader(ctx)); err != nil {
		b.err.Set(errors.Wrapf(ErrAlignmentSource, "read index %s: %v", b.indexPath(), err))
		return b.err.Err()
	}
	if b.reader, err = bam.NewReader(b.in.Reader(ctx), 1); err != nil {
		b.err.Set(errors.Wrapf(ErrAlignmentSource, "read %s: %v", b.Path, err))
		return b.err.Err()
	}
	log.Debug.Printf("bamprovider: opened %s (index %s)", b.Path, b.indexPath())
	return nil
}

// GetHeader implements the Provider interface.
func (b *BAMProvider) GetHeader() (*sam.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.open(); err != nil {
		return nil, err
	}
	return b.reader.Header(), nil
}

// Close implements the Provider interface.
func (b *BAMProvider) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active {
		log.Panicf("bamprovider: iterator still active for %s", b.Path)
	}
	if b.reader != nil {
		if err := b.reader.Close(); err != nil {
			b.err.Set(errors.Wrapf(ErrAlignmentSource, "close %s: %v", b.Path, err))
		}
		b.reader = nil
	}
	if b.in != nil {
		if err := b.in.Close(context.Background()); err != nil {
			b.err.Set(errors.Wrapf(ErrAlignmentSource, "close %s: %v", b.Path, err))
		}
		b.in = nil
	}
	return b.err.Err()
}

// NewRegionIterator implements the Provider interface.
func (b *BAMProvider) NewRegionIterator(refName string, start, limit int) Iterator {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active {
		log.Panicf("bamprovider: %s: previous iterator was not closed", b.Path)
	}
	if err := b.open(); err != nil {
		return doneIterator(err)
	}
	if start >= limit {
		return doneIterator(errors.Errorf("bamprovider: empty range %s:%d-%d", refName, start, limit))
	}
	ref := RefByName(b.reader.Header(), refName)
	if ref == nil {
		if b.warnRefs == nil {
			b.warnRefs = map[string]bool{}
		}
		if !b.warnRefs[refName] {
			b.warnRefs[refName] = true
			log.Error.Printf("bamprovider: %s: reference %s not in header, reporting no reads", b.Path, refName)
		}
		return doneIterator(nil)
	}
	chunks, err := b.index.Chunks(ref, start, limit)
	if err == index.ErrInvalid {
		// No reads on this reference.
		chunks, err = nil, nil
	}
	if err != nil {
		return doneIterator(errors.Wrapf(ErrAlignmentSource, "%s: query %s:%d-%d: %v", b.Path, refName, start, limit, err))
	}
	it, err := bam.NewIterator(b.reader, chunks)
	if err != nil {
		return doneIterator(errors.Wrapf(ErrAlignmentSource, "%s: seek %s:%d-%d: %v", b.Path, refName, start, limit, err))
	}
	b.active = true
	return &bamIterator{provider: b, it: it, ref: ref, start: start, limit: limit}
}

// Scan implements the Iterator interface. Records that the index places in
// range but that do not overlap [start, limit) are skipped.
func (i *bamIterator) Scan() bool {
	if i.done || i.err != nil {
		return false
	}
	for i.it.Next() {
		r := i.it.Record()
		if r.Ref != nil && r.Ref.ID() == i.ref.ID() && r.Pos >= i.limit {
			// Coordinate-sorted input: nothing later can overlap.
			break
		}
		if overlaps(r, i.ref, i.start, i.limit) {
			i.rec = r
			return true
		}
	}
	i.done = true
	if err := i.it.Error(); err != nil {
		i.err = errors.Wrapf(ErrAlignmentSource, "%s: %v", i.provider.Path, err)
	}
	return false
}

// Record implements the Iterator interface.
func (i *bamIterator) Record() *sam.Record {
	return i.rec
}

// Err implements the Iterator interface.
func (i *bamIterator) Err() error {
	return i.err
}

// Close implements the Iterator interface.
func (i *bamIterator) Close() error {
	if err := i.it.Close(); err != nil && i.err == nil {
		i.err = errors.Wrapf(ErrAlignmentSource, "%s: %v", i.provider.Path, err)
	}
	b := i.provider
	b.mu.Lock()
	b.active = false
	b.err.Set(i.err)
	b.mu.Unlock()
	return i.err
}
