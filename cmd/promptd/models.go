package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"promptd/internal/registry"
)

func newModelsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List GGUF models in the configured models directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := registry.LoadDir(opts.cfg.ModelsDir)
			if err != nil {
				return err
			}
			if len(models) == 0 {
				fmt.Printf("no models found in %s\n", opts.cfg.ModelsDir)
				return nil
			}
			for _, m := range models {
				fmt.Printf("%s\t%s\n", m.ID, m.Path)
			}
			return nil
		},
	}
}
