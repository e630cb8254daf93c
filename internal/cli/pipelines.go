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
	"github.com/jeremyhahn/go-cryptchain/internal/config"
	"github.com/spf13/cobra"
)

func newPipelinesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipelines",
		Short: "List configured pipelines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var list []pipelineInfo
			for _, name := range a.cfg.PipelineNames() {
				pcfg := a.cfg.Pipelines[name]
				info := pipelineInfo{Name: name, Description: pcfg.Description}
				for _, stage := range pcfg.Stages {
					info.Stages = append(info.Stages, stage.Type)
				}
				list = append(list, info)
			}
			return a.printer(cmd.OutOrStdout()).PrintPipelines(list)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stages",
		Short: "List supported stage types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printer(cmd.OutOrStdout()).PrintList("Stage Types", "stages", config.StageTypes())
		},
	})
	return cmd
}
