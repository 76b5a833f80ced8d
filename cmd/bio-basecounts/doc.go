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

/*
Given one or more indexed BAMs and a list of loci, bio-basecounts reports how
many reads in each BAM support A, T, G, any other base, an insertion and a
deletion at every locus.  Output is one tab-separated row per locus, with one
column per BAM holding "a|t|g|other|ins|del".

With --refalt, each locus also names a ref and an alt allele, and the sample
columns hold "ref|alt" evidence instead.  --vaf divides by depth in either
mode.

Loci positions are 1-based unless --zero-based is given.  Flags may also be
set through BASECOUNTS_* environment variables or a YAML --config file.

Sample usage:
bio-basecounts \
    --fasta ref.fa \
    --loci hotspots.tsv \
    --out counts.tsv.gz \
    tumor.bam normal.bam

bio-basecounts faidx ref.fa
*/
package main
