package main

import (
	"github.com/spf13/cobra"

	engineconfig "github.com/wms-platform/pick-ticket-service/internal/config"
)

func newConfigCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective engine configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := engineconfig.Load(configPath)
			if err != nil {
				return err
			}
			out, err := engineconfig.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Engine configuration YAML")
	return cmd
}
