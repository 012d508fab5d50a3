package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hardsub/internal/config"
	"hardsub/internal/fingerprint"
)

func newFingerprintCommand(_ *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "fingerprint <video>...",
		Short:       "Print the content fingerprint used as the cache key",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{skipConfigLoad: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, arg := range args {
				path, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				fp, err := fingerprint.File(cmd.Context(), path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s  %s\n", fp, path)
			}
			return nil
		},
	}
}
