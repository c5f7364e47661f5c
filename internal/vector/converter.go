// Package vector traces the raster source into SVG with an external tool and
// derives PDF and EPS from that SVG.
package vector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"logoforge/internal/domain"
	"logoforge/internal/imaging"
)

// DefaultTimeout bounds a single tool invocation.
const DefaultTimeout = 30 * time.Second

// Command is an external tool invocation template. Arguments may contain the
// placeholders {input}, {output} and {format}.
type Command struct {
	Name string   `yaml:"name"`
	Args []string `yaml:"args"`
}

// ParseCommand splits a whitespace separated command line.
func ParseCommand(line string) Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}
	}
	return Command{Name: fields[0], Args: fields[1:]}
}

func (c Command) expand(input, output, format string) []string {
	r := strings.NewReplacer("{input}", input, "{output}", output, "{format}", format)
	args := make([]string, len(c.Args))
	for i, arg := range c.Args {
		args[i] = r.Replace(arg)
	}
	return args
}

// Config controls the tool chain.
type Config struct {
	Trace   Command
	Convert Command
	Timeout time.Duration
	WorkDir string
}

// DefaultConfig traces with vtracer and converts with rsvg-convert.
func DefaultConfig() Config {
	return Config{
		Trace: Command{Name: "vtracer", Args: []string{
			"--input", "{input}", "--output", "{output}",
			"--mode", "polygon", "--filter_speckle", "8", "--color_precision", "6",
		}},
		Convert: Command{Name: "rsvg-convert", Args: []string{
			"--format", "{format}", "--output", "{output}", "{input}",
		}},
		Timeout: DefaultTimeout,
	}
}

// Emitter receives vector artifacts as they finish.
type Emitter func(ctx context.Context, r domain.Rendered)

// Converter drives the raster to SVG to {PDF, EPS} chain.
type Converter struct {
	cfg    Config
	runner Runner
	logger zerolog.Logger
}

// NewConverter constructs a Converter. A nil runner uses ExecRunner.
func NewConverter(cfg Config, runner Runner, logger zerolog.Logger) *Converter {
	defaults := DefaultConfig()
	if cfg.Trace.Name == "" {
		cfg.Trace = defaults.Trace
	}
	if cfg.Convert.Name == "" {
		cfg.Convert = defaults.Convert
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Converter{cfg: cfg, runner: runner, logger: logger}
}

// Targets lists the vector identities in package order.
func (c *Converter) Targets() []domain.ArtifactID {
	out := make([]domain.ArtifactID, 0, len(domain.VectorFormats))
	for _, f := range domain.VectorFormats {
		out = append(out, domain.VectorArtifact(f))
	}
	return out
}

// Convert runs the chain and emits exactly one result per vector format.
// PDF and EPS are only attempted after SVG succeeded; otherwise they are
// reported as skipped with a *domain.DependencyError.
func (c *Converter) Convert(ctx context.Context, src *domain.SourceAsset, emit Emitter) {
	svgID := domain.VectorArtifact(domain.VectorSVG)
	svg, err := c.traceSource(ctx, src)
	if err != nil {
		c.logger.Warn().Err(err).Str("artifact", svgID.String()).Msg("vector: trace failed, skipping derived formats")
		emit(ctx, domain.Rendered{ID: svgID, Status: domain.StatusFailed, Err: err})
		for _, f := range []domain.VectorFormat{domain.VectorPDF, domain.VectorEPS} {
			id := domain.VectorArtifact(f)
			emit(ctx, domain.Rendered{
				ID:     id,
				Status: domain.StatusSkipped,
				Err:    &domain.DependencyError{Artifact: id, Requires: svgID},
			})
		}
		return
	}
	emit(ctx, domain.Rendered{ID: svgID, Data: svg, Status: domain.StatusOK})

	var group errgroup.Group
	for _, f := range []domain.VectorFormat{domain.VectorPDF, domain.VectorEPS} {
		group.Go(func() error {
			id := domain.VectorArtifact(f)
			data, err := c.derive(ctx, svg, f)
			if err != nil {
				c.logger.Warn().Err(err).Str("artifact", id.String()).Msg("vector: conversion failed")
				emit(ctx, domain.Rendered{ID: id, Status: domain.StatusFailed, Err: err})
				return nil
			}
			emit(ctx, domain.Rendered{ID: id, Data: data, Status: domain.StatusOK})
			return nil
		})
	}
	_ = group.Wait()
}

func (c *Converter) traceSource(ctx context.Context, src *domain.SourceAsset) ([]byte, error) {
	if src == nil || src.Image == nil {
		return nil, errors.New("vector: no source image")
	}
	raster, err := imaging.EncodePNG(src.Image)
	if err != nil {
		return nil, fmt.Errorf("vector: prepare raster: %w", err)
	}
	return c.invoke(ctx, "trace", c.cfg.Trace, raster, "source.png", "logo.svg", string(domain.VectorSVG))
}

func (c *Converter) derive(ctx context.Context, svg []byte, format domain.VectorFormat) ([]byte, error) {
	return c.invoke(ctx, string(format), c.cfg.Convert, svg, "logo.svg", "logo."+string(format), string(format))
}

// invoke runs one tool call in its own workspace. The workspace is removed on
// every return path.
func (c *Converter) invoke(ctx context.Context, step string, cmd Command, input []byte, inputName, outputName, format string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextFailure(err, "vector "+step, 0)
	}
	ws, err := NewWorkspace(c.cfg.WorkDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			c.logger.Warn().Err(err).Str("workspace", ws.Root()).Msg("vector: workspace cleanup failed")
		}
	}()

	dir, in, err := ws.Step(step, inputName, input)
	if err != nil {
		return nil, err
	}
	out := filepath.Join(dir, outputName)

	stepCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	runErr := c.runner.Run(stepCtx, dir, cmd.Name, cmd.expand(in, out, format)...)
	if ctxErr := stepCtx.Err(); ctxErr != nil {
		if ctx.Err() != nil {
			return nil, contextFailure(ctx.Err(), "vector "+step, 0)
		}
		return nil, &domain.TimeoutError{Op: "vector " + step, After: c.cfg.Timeout}
	}
	if runErr != nil {
		return nil, fmt.Errorf("vector %s: %w", step, runErr)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("vector %s: read output: %w", step, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("vector %s: tool produced empty output", step)
	}
	c.logger.Debug().Str("step", step).Dur("elapsed", time.Since(start)).Int("bytes", len(data)).Msg("vector: step complete")
	return data, nil
}

func contextFailure(err error, op string, after time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.TimeoutError{Op: op, After: after}
	}
	return err
}
