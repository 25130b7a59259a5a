package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/conceptpipe/batch"
	"github.com/c360studio/conceptpipe/config"
	"github.com/c360studio/conceptpipe/expand"
	"github.com/c360studio/conceptpipe/extract"
	"github.com/c360studio/conceptpipe/fault"
	"github.com/c360studio/conceptpipe/locator"
	"github.com/c360studio/conceptpipe/output"
)

// buildOrchestrator assembles the full pipeline from a validated config.
// The onProgress callback may be nil.
func buildOrchestrator(cfg *config.Config, logger *slog.Logger, onProgress func(batch.Progress)) (*batch.Orchestrator, error) {
	scanOpts := locator.DefaultScanOptions()
	scanOpts.Recursive = cfg.Sources.Recursive
	scanOpts.FollowSymlinks = cfg.Sources.FollowSymlinks
	if len(cfg.Sources.Extensions) > 0 {
		scanOpts.Extensions = cfg.Sources.Extensions
	}
	if len(cfg.Sources.IgnorePatterns) > 0 {
		scanOpts.IgnorePatterns = cfg.Sources.IgnorePatterns
	}

	var mapping extract.FieldMapping
	if len(cfg.Mapping) > 0 {
		mapping = extract.FieldMapping(cfg.Mapping)
	}

	naming, err := output.ParseNamingStrategy(cfg.Output.Naming)
	if err != nil {
		return nil, err
	}
	org, err := output.ParseOrgStrategy(cfg.Output.Organization)
	if err != nil {
		return nil, err
	}

	mode, err := fault.ParseMode(cfg.Errors.Mode)
	if err != nil {
		return nil, err
	}

	clientOpts := []expand.ClientOption{expand.WithLogger(logger)}
	if key := cfg.Model.APIKey(); key != "" {
		clientOpts = append(clientOpts, expand.WithAPIKey(key))
	}
	if cfg.Model.RateLimit > 0 {
		clientOpts = append(clientOpts, expand.WithRateLimit(cfg.Model.RateLimit))
	}
	client := expand.NewClient(cfg.Model.Endpoint, cfg.Model.Name, clientOpts...)

	// Fold the configured sampling parameters into every request.
	temperature := cfg.Model.Temperature
	expander := expand.ExpanderFunc(func(ctx context.Context, req expand.Request) (*expand.Result, error) {
		req.Temperature = &temperature
		req.MaxTokens = cfg.Model.MaxTokens
		return client.Expand(ctx, req)
	})

	if cfg.Output.Dir == "" {
		return nil, fmt.Errorf("output.dir is required")
	}

	return batch.New(batch.Options{
		Locator:   locator.New(scanOpts, locator.WithLogger(logger)),
		Extractor: extract.New(mapping, extract.WithLogger(logger)),
		Resolver: output.NewResolver(output.Config{
			BaseDir:      cfg.Output.Dir,
			Naming:       naming,
			Organization: org,
			Overwrite:    cfg.Output.Overwrite,
		}),
		Writer:          output.NewWriter(output.WithWriterLogger(logger)),
		Expander:        expander,
		Policy:          fault.Policy{Mode: mode, Threshold: cfg.Errors.Threshold},
		Workers:         cfg.Processing.Workers,
		Timeout:         cfg.Processing.Timeout.Std(),
		Retries:         cfg.Processing.Retries,
		EmitErrorReport: cfg.Errors.Report,
		ReportDir:       cfg.Output.Dir,
		Logger:          logger,
		OnProgress:      onProgress,
	})
}
