package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"

	gormrepo "piltlab/internal/adapter/repo/gorm"
	"piltlab/internal/adapter/repo/memory"
	"piltlab/internal/app/ports"
	"piltlab/internal/app/simulate"
	"piltlab/internal/app/summary"
	"piltlab/migrations"
)

type runOpts struct {
	trialsPath  string
	mode        string
	seed        uint64
	participant string
	block       string
	dsn         string
}

func newRunCmd(global *GlobalOpts) *cobra.Command {
	opts := runOpts{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate a block of trials",
		Long: `Simulate every trial of a trials file for one participant.

Prints one JSON record per line followed by the block summary. With --dsn the
records are also stored in Postgres in a single transaction.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd, global)

			mode, err := parseMode(opts.mode)
			if err != nil {
				return err
			}
			specs, overrides, err := loadTrials(opts.trialsPath)
			if err != nil {
				return err
			}

			runner := simulate.BlockRunner{Sim: simulate.New(opts.seed)}
			if dsn := strings.TrimSpace(opts.dsn); dsn != "" {
				db, _, err := gormrepo.OpenMigrated(ctx, dsn, gormrepo.Options{LogLevel: logger.Silent}, migrations.FS)
				if err != nil {
					return err
				}
				defer func() {
					if err := gormrepo.Close(db); err != nil {
						ctxlog.From(ctx).Warn("close postgres", "error", err)
					}
				}()
				runner.Repo = gormrepo.NewTrialResultRepo(db)
				runner.TxManager = gormrepo.NewTxManager(db)
			} else {
				store := memory.NewStore()
				runner.Repo = memory.NewTrialResultRepo(store)
				runner.TxManager = memory.NewTxManager(store)
			}

			records, err := runner.Run(ctx, simulate.BlockRequest{
				ParticipantID: opts.participant,
				Block:         opts.block,
				Mode:          mode,
				Specs:         specs,
				Overrides:     overrides,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, rec := range records {
				if err := enc.Encode(rec); err != nil {
					return err
				}
			}
			return enc.Encode(summary.Summarize(opts.participant, opts.block, records))
		},
	}
	cmd.Flags().StringVar(&opts.trialsPath, "trials", "", "path to the JSON trials file")
	cmd.Flags().StringVar(&opts.mode, "mode", "data", "simulation mode: data or visual")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "random seed")
	cmd.Flags().StringVar(&opts.participant, "participant", "sim", "participant id")
	cmd.Flags().StringVar(&opts.block, "block", "", "block label")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "Postgres DSN to store records in")
	_ = cmd.MarkFlagRequired("trials")
	return cmd
}

func parseMode(raw string) (ports.TrialMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "data", string(ports.ModeSimulateData):
		return ports.ModeSimulateData, nil
	case "visual", string(ports.ModeSimulateVisual):
		return ports.ModeSimulateVisual, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want data or visual)", raw)
	}
}
