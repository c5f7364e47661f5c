package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"logoforge/internal/bootstrap"
	"logoforge/internal/domain"
	"logoforge/internal/infra"
	"logoforge/internal/storage"
	"logoforge/internal/synth"
)

type generateOptions struct {
	Input     string
	Brand     string
	Industry  string
	Style     string
	Locale    string
	Seed      int64
	Out       string
	Timeout   time.Duration
	SynthSize int
}

// NewGenerateCommand runs the whole pipeline against a local FileStore.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a complete asset package",
		Long: `Generate a complete asset package from a transparent PNG.

Without --input a synthetic placeholder logo is derived from the brand and
seed. Artifacts and the zip are written below --out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runGenerate(ctx, rootOpts, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "source PNG with transparency")
	cmd.Flags().StringVarP(&opts.Brand, "brand", "b", "", "brand name (required)")
	cmd.Flags().StringVar(&opts.Industry, "industry", "", "industry tag")
	cmd.Flags().StringVar(&opts.Style, "style", "", "style tag")
	cmd.Flags().StringVar(&opts.Locale, "locale", "en", "README locale (en|id)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "seed for the synthetic logo")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "./logo-package", "output directory")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "overall deadline (default from PACKAGE_TIMEOUT_SECONDS)")
	cmd.Flags().IntVar(&opts.SynthSize, "synth-size", synth.DefaultSize, "edge length of the synthetic logo")
	_ = cmd.MarkFlagRequired("brand")
	return cmd
}

func runGenerate(ctx context.Context, rootOpts *RootOptions, opts *generateOptions, out, errOut io.Writer) error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	logger := rootOpts.logger(errOut)

	meta := domain.SourceMetadata{
		BrandName: opts.Brand,
		Industry:  opts.Industry,
		Style:     opts.Style,
		Seed:      opts.Seed,
		Locale:    opts.Locale,
	}
	var raw []byte
	if opts.Input != "" {
		if raw, err = os.ReadFile(opts.Input); err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	} else if raw, err = synth.RenderPNG(meta, opts.SynthSize); err != nil {
		return err
	}

	outDir, err := filepath.Abs(opts.Out)
	if err != nil {
		return err
	}
	store, err := storage.NewFileStore(outDir, "file://"+filepath.ToSlash(outDir))
	if err != nil {
		return err
	}
	orch, err := bootstrap.NewOrchestrator(cfg.Pipeline, store, nil, logger)
	if err != nil {
		return err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = cfg.Pipeline.PackageTimeout
	}
	pkg, err := orch.GenerateCompletePackage(ctx, raw, meta, timeout)
	if err != nil {
		return err
	}
	return printPackage(out, rootOpts.Format, pkg)
}

func printPackage(out io.Writer, format string, pkg *domain.AssetPackage) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(pkg)
	}
	fmt.Fprintf(out, "package %s: %d/%d artifacts\n", pkg.ID, pkg.Succeeded(), len(pkg.Manifest))
	for _, entry := range pkg.Manifest {
		detail := entry.URL
		if entry.Status != domain.StatusOK {
			detail = entry.Error
		}
		fmt.Fprintf(out, "  %-7s %-22s %s\n", entry.Status, entry.Artifact, detail)
	}
	if pkg.ZipURL != "" {
		fmt.Fprintf(out, "zip: %s\n", pkg.ZipURL)
	} else {
		fmt.Fprintf(out, "zip: not available (%s)\n", pkg.ZipError)
	}
	return nil
}
