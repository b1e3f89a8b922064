// Copyright 2011 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command icplan computes (and optionally drives) an incremental compilation plan for
// a set of module source inputs, given an output file map and a prior build record.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/icplan/icplan"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "icplan",
		Short: "incremental compilation planner",
	}
	root.AddCommand(newPlanCommand())
	return root
}

func newPlanCommand() *cobra.Command {
	var (
		buildRecordPath  string
		outputMapPath    string
		dotOutputPath    string
		showJobLifecycle bool
		showIncremental  bool
		emitDot          bool
		verify           bool
		alwaysRebuild    bool
		planOnly         bool
	)

	cmd := &cobra.Command{
		Use:   "plan <inputs...>",
		Short: "compute the first-wave mandatory job list for the given inputs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := afero.NewOsFs()
			outputs, err := loadOutputFileMap(fs, outputMapPath)
			if err != nil {
				return err
			}

			cfg := icplan.Config{
				ShowJobLifecycle:        showJobLifecycle,
				ShowIncremental:         showIncremental,
				EmitDotAfterIntegration: emitDot,
				VerifyAfterIntegration:  verify,
				AlwaysRebuildDependents: alwaysRebuild,
				BuildRecordPath:         buildRecordPath,
				DotOutputPath:           dotOutputPath,
			}
			remarks := icplan.NewHCLogRemarks(showJobLifecycle, showIncremental)
			session := icplan.NewSession(fs, cfg, outputs, remarks)

			result, err := session.Plan(time.Now().Unix(), args, nil)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), icplan.FormatMandatory(result.Plan))
			if result.Fallback != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "incremental mode disabled:", result.Fallback)
			}
			if planOnly {
				return nil
			}

			compiler := icplan.NewInMemoryCompiler()
			outcome, err := session.Drive(context.Background(), compiler, result)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "compiled %d, skipped %d, failed %d\n",
				len(outcome.Compiled), len(outcome.Skipped), len(outcome.Failed))
			if len(outcome.Failed) > 0 {
				return fmt.Errorf("icplan: %d job(s) failed", len(outcome.Failed))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&buildRecordPath, "build-record", "", "path to the prior build record")
	cmd.Flags().StringVar(&outputMapPath, "output-map", "", "path to the output file map (JSON)")
	cmd.Flags().StringVar(&dotOutputPath, "dot", "", "path to write a Graphviz snapshot after each integration")
	cmd.Flags().BoolVar(&showJobLifecycle, "show-job-lifecycle", false, "emit per-job lifecycle remarks")
	cmd.Flags().BoolVar(&showIncremental, "show-incremental", false, "emit queuing/skipping/scheduling remarks")
	cmd.Flags().BoolVar(&emitDot, "emit-dot-after-integration", false, "write a DOT snapshot after every integration")
	cmd.Flags().BoolVar(&verify, "verify-after-integration", false, "verify graph invariants after every integration")
	cmd.Flags().BoolVar(&alwaysRebuild, "always-rebuild-dependents", false, "force speculative cascading for every changed input")
	cmd.Flags().BoolVar(&planOnly, "plan-only", false, "print the mandatory job list and exit without compiling")

	return cmd
}

// loadOutputFileMap reads a JSON-encoded {input: {"summary": path, "object": path}}
// document through icplan.DecodeOutputFileMap. An empty path yields a nil map, which
// disables incremental mode (spec.md §6).
func loadOutputFileMap(fs afero.Fs, path string) (icplan.OutputFileMap, error) {
	if path == "" {
		return nil, nil
	}
	return icplan.DecodeOutputFileMap(fs, path)
}
