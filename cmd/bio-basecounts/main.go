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
package main

import (
	"context"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/basecounts/pileup/basecounts"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "BASECOUNTS"

// newRootCmd builds the command line.  run is called with the options
// assembled from flags, environment and config file.
func newRootCmd(run func(basecounts.Opts) error) *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "bio-basecounts [flags] [bampath...]",
		Short: "Count bases, insertions and deletions at loci in one or more BAMs",
		Long: `bio-basecounts reports, for every locus in a loci file, how many reads in each
BAM support A, T, G, any other base, an insertion or a deletion.  With
--refalt the loci file also gives ref and alt alleles, and the output is the
ref|alt evidence pair instead.  --vaf reports fractions of depth.`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := optsFromViper(v, args)
			if err != nil {
				return err
			}
			return run(opts)
		},
	}
	d := basecounts.DefaultOpts
	flags := cmd.Flags()
	flags.StringSliceP("bam", "b", nil, "BAM file; may be repeated.  BAM paths may also be given as arguments.  The index must be at path.bai")
	flags.String("fasta", "", "Indexed FASTA file.  If omitted, the refbase column is '-'")
	flags.String("fai", "", "FASTA index; defaults to the FASTA path + .fai")
	flags.StringP("loci", "l", "", "Tab-separated loci: chr, pos; or chr, pos, ref, alt with --refalt")
	flags.StringSlice("region", nil, "Extra locus as chr:pos or chr:first-last; may be repeated")
	flags.BoolP("vaf", "f", d.VAF, "Report fractions of depth instead of counts")
	flags.BoolP("refalt", "r", d.RefAlt, "Loci carry ref and alt alleles; report ref|alt evidence")
	flags.Int("annotation-col", d.AnnotationCol, "0-based index of a loci column to append to the third output column; 0 = none")
	flags.Bool("zero-based", d.ZeroBased, "Loci positions are 0-based instead of 1-based")
	flags.Int("mapq", d.Mapq, "Reads with MAPQ below this level are skipped")
	flags.Int("flag-exclude", d.FlagExclude, "Reads with a FLAG bit intersecting this value are skipped")
	flags.Bool("dedup-mates", d.DedupMates, "Count each read name at most once per locus")
	flags.Int("parallelism", d.Parallelism, "Number of BAMs read concurrently")
	flags.StringP("out", "o", "", "Output path; stdout if empty.  .gz and .bgz outputs are compressed")
	flags.BoolP("progress", "v", d.Progress, "Show a progress bar on stderr")
	cmd.PersistentFlags().String("config", "", "YAML config file with flag values")
	if err := v.BindPFlags(flags); err != nil {
		log.Panicf("bind flags: %v", err)
	}
	if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
		log.Panicf("bind flags: %v", err)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd.AddCommand(newFaidxCmd())
	return cmd
}

// loadConfig reads the --config file, if any.  Flags and environment
// variables take precedence over it.
func loadConfig(v *viper.Viper) error {
	path := v.GetString("config")
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	log.Debug.Printf("bio-basecounts: using config %s", path)
	return nil
}

func optsFromViper(v *viper.Viper, args []string) (basecounts.Opts, error) {
	opts := basecounts.Opts{
		BAMPaths:      append(v.GetStringSlice("bam"), args...),
		FastaPath:     v.GetString("fasta"),
		FaiPath:       v.GetString("fai"),
		LociPath:      v.GetString("loci"),
		Regions:       v.GetStringSlice("region"),
		VAF:           v.GetBool("vaf"),
		RefAlt:        v.GetBool("refalt"),
		AnnotationCol: v.GetInt("annotation-col"),
		ZeroBased:     v.GetBool("zero-based"),
		Mapq:          v.GetInt("mapq"),
		FlagExclude:   v.GetInt("flag-exclude"),
		DedupMates:    v.GetBool("dedup-mates"),
		Parallelism:   v.GetInt("parallelism"),
		OutPath:       v.GetString("out"),
		Progress:      v.GetBool("progress"),
	}
	if len(opts.BAMPaths) == 0 {
		return opts, errors.New("at least one BAM file is required (--bam or arguments)")
	}
	if opts.LociPath == "" && len(opts.Regions) == 0 {
		return opts, errors.New("--loci or --region is required")
	}
	return opts, nil
}

func main() {
	run := func(opts basecounts.Opts) error {
		return basecounts.Run(context.Background(), opts)
	}
	if err := newRootCmd(run).Execute(); err != nil {
		log.Fatalf("%v", err)
	}
	log.Debug.Printf("exiting")
}
