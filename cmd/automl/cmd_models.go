package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/automl/models"
	"github.com/YuminosukeSato/automl/pkg/log"
)

func newModelsCmd(ro *rootOptions) *cobra.Command {
	var gridSize string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the registered model families and their search grids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := models.DefaultRegistry(log.GetLoggerWithName("registry"))
			out := cmd.OutOrStdout()
			for _, name := range reg.ListModels() {
				cfg, err := reg.GetModelConfig(name)
				if err != nil {
					return err
				}
				space := cfg.ParamGrid(gridSize)
				fmt.Fprintf(out, "%s\t%d candidates (%s grid): %v\n", name, space.Size(), gridSize, space.Names())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&gridSize, "param-amount", models.GridSmall, "grid size label: small, big, custom")
	return cmd
}
