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

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/basecounts/encoding/fasta"
	"github.com/spf13/cobra"
)

func newFaidxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "faidx fapath [faipath]",
		Short: "Write a samtools-compatible .fai index for a FASTA file",
		Long: `faidx indexes an uncompressed FASTA file.  The index is written to faipath,
or to fapath + ".fai" if faipath is omitted.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := args[0] + ".fai"
			if len(args) == 2 {
				out = args[1]
			}
			return writeIndex(context.Background(), args[0], out)
		},
	}
}

func writeIndex(ctx context.Context, fapath, faipath string) (err error) {
	in, err := file.Open(ctx, fapath)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, in, &err)
	out, err := file.Create(ctx, faipath)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	if err = fasta.GenerateIndex(out.Writer(ctx), in.Reader(ctx)); err != nil {
		return err
	}
	log.Printf("faidx: wrote %s", faipath)
	return nil
}
