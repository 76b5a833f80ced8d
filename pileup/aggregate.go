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
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/basecounts/encoding/bamprovider"
)

// TallyOpts controls how reads at a locus are counted.
type TallyOpts struct {
	Filter ReadFilter
	// DedupMates makes each read name contribute at most once per locus.
	// When both mates of a pair cover the locus, the classification of the
	// one seen last is kept.
	DedupMates bool
}

// DefaultTallyOpts counts every mapped non-duplicate read.
var DefaultTallyOpts = TallyOpts{Filter: DefaultReadFilter}

// Tally classifies every record yielded by iter at pos and returns the
// resulting counts.  iter is closed before Tally returns.
func Tally(iter bamprovider.Iterator, pos PosType, opts TallyOpts) (c Counts, err error) {
	defer func() {
		if e := iter.Close(); e != nil && err == nil {
			err = e
		}
	}()
	var byName map[string]ClassifiedBase
	if opts.DedupMates {
		byName = map[string]ClassifiedBase{}
	}
	for iter.Scan() {
		r := iter.Record()
		if !opts.Filter.Pass(r) {
			continue
		}
		cb := Classify(r, pos)
		if cb.Kind == Unknown {
			continue
		}
		if byName != nil {
			byName[r.Name] = cb
			continue
		}
		c.Add(cb)
	}
	for _, cb := range byName {
		c.Add(cb)
	}
	return c, iter.Err()
}

// CountLocus tallies the 0-based position pos of refName in every sample.
// Result i belongs to providers[i].  Up to parallelism providers are queried
// concurrently; each provider is used by one goroutine at a time.
func CountLocus(providers []bamprovider.Provider, refName string, pos PosType, opts TallyOpts, parallelism int) ([]Counts, error) {
	if parallelism < 1 {
		parallelism = 1
	}
	counts := make([]Counts, len(providers))
	err := traverse.Limit(parallelism).Each(len(providers), func(i int) error {
		var err error
		counts[i], err = Tally(providers[i].NewRegionIterator(refName, pos, pos+1), pos, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
