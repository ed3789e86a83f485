package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	staticassets "piltlab/internal/adapter/assets/static"
	"piltlab/internal/app/assets"
	"piltlab/internal/domain/trial"
)

var errInvalidTrials = errors.New("trials file contains invalid trials")

func newValidateCmd() *cobra.Command {
	var trialsPath, assetsRoot string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check every trial of a trials file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			specs, _, err := loadTrials(trialsPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var store assets.UseCase
			if assetsRoot != "" {
				store.Store = staticassets.Provider{Root: assetsRoot}
			}
			bad := 0
			for i, spec := range specs {
				if err := trial.Validate(spec); err != nil {
					bad++
					fmt.Fprintf(out, "trial %d: %v\n", i, err)
					continue
				}
				if store.Store == nil {
					continue
				}
				missing, err := store.Missing(cmd.Context(), spec)
				if err != nil {
					return err
				}
				if len(missing) > 0 {
					bad++
					fmt.Fprintf(out, "trial %d: missing assets %s\n", i, strings.Join(missing, ", "))
				}
			}
			if bad > 0 {
				return fmt.Errorf("%w: %d of %d", errInvalidTrials, bad, len(specs))
			}
			fmt.Fprintf(out, "%d trials ok\n", len(specs))
			return nil
		},
	}
	cmd.Flags().StringVar(&trialsPath, "trials", "", "path to the JSON trials file")
	cmd.Flags().StringVar(&assetsRoot, "assets", "", "directory the trial assets are served from; checks every referenced file exists")
	_ = cmd.MarkFlagRequired("trials")
	return cmd
}
