// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cryptchain.
//
// go-cryptchain is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// newCryptCommand returns the encrypt command, or the decrypt command when
// encrypt is false. Both stream a whole input through a configured pipeline.
func newCryptCommand(a *app, encrypt bool) *cobra.Command {
	var (
		pipelineName string
		inFile       string
		outFile      string
	)

	use, short := "decrypt", "Decrypt input by running a pipeline's stages in reverse"
	if encrypt {
		use, short = "encrypt", "Encrypt input by running a pipeline's stages in order"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Example: fmt.Sprintf(`  cryptchain %[1]s --config cryptchain.yaml --pipeline secure-text --in message.txt
  echo -n hello | cryptchain %[1]s -p secure-text > out.bin`, use),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pcfg, err := a.cfg.Pipeline(pipelineName)
			if err != nil {
				return err
			}
			p, err := a.builder.Build(cmd.Context(), pipelineName, pcfg)
			if err != nil {
				return err
			}
			defer func() {
				a.logger.MaybeError("failed to close pipeline", p.Close())
			}()

			in, err := readInput(cmd.InOrStdin(), inFile)
			if err != nil {
				return err
			}

			start := time.Now()
			run := p.Decrypt
			if encrypt {
				run = p.Encrypt
			}
			out, err := run(in)
			if err != nil {
				return err
			}
			a.logger.Info(use+" complete",
				"pipeline", pipelineName,
				"stages", len(p.Stages),
				"input_bytes", len(in),
				"output_bytes", len(out),
				"duration", time.Since(start))

			return writeOutput(cmd.OutOrStdout(), outFile, out)
		},
	}

	cmd.Flags().StringVarP(&pipelineName, "pipeline", "p", "", "name of the configured pipeline")
	cmd.Flags().StringVar(&inFile, "in", "-", "input file, - for stdin")
	cmd.Flags().StringVar(&outFile, "out", "-", "output file, - for stdout")
	_ = cmd.MarkFlagRequired("pipeline")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	// #nosec G304 - Input path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return data, nil
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		if _, err := stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
