package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"logoforge/internal/adapter/repo"
	"logoforge/internal/domain"
	"logoforge/internal/infra"
)

// NewEnqueueCommand queues a package job for the worker.
func NewEnqueueCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		meta      domain.SourceMetadata
		sourceKey string
	)
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue a package job for the worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := infra.LoadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}
			logger := rootOpts.logger(cmd.ErrOrStderr())
			pool, err := infra.NewDBPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			jobs := repo.NewJobRepository(infra.NewSQLRunner(pool, logger))
			id, err := jobs.Enqueue(cmd.Context(), meta, sourceKey)
			if err != nil {
				return fmt.Errorf("enqueue: %w", err)
			}
			if rootOpts.Format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"id": id})
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&meta.BrandName, "brand", "b", "", "brand name (required)")
	cmd.Flags().StringVar(&meta.Industry, "industry", "", "industry tag")
	cmd.Flags().StringVar(&meta.Style, "style", "", "style tag")
	cmd.Flags().StringVar(&meta.Locale, "locale", "en", "README locale (en|id)")
	cmd.Flags().Int64Var(&meta.Seed, "seed", 0, "seed for the synthetic logo")
	cmd.Flags().StringVar(&sourceKey, "source-key", "", "storage key of an uploaded source image")
	_ = cmd.MarkFlagRequired("brand")
	return cmd
}
