package purge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/kong/portpurge/internal/log"
	"github.com/kong/portpurge/internal/port"
)

var (
	ErrMissingIntegrationID = errors.New("an integration id is required")
	ErrInvalidBatchSize     = errors.New("batch size must be greater than zero")
)

// CatalogAPI is the part of the Port API a purge run talks to.
type CatalogAPI interface {
	SearchEntities(ctx context.Context, token string, datasource string) ([]port.Entity, error)
	BulkDeleteEntities(ctx context.Context, token string, blueprint string, identifiers []string) (port.BulkDeleteResult, error)
	DeleteIntegration(ctx context.Context, token string, integrationID string) error
}

// TokenSource produces the bearer token used for the rest of the run.
type TokenSource func(ctx context.Context) (string, error)

// Options controls a single run. It is passed explicitly; nothing is read
// from process-wide state.
type Options struct {
	// IntegrationID is matched against the entities' $datasource and, when
	// DeleteIntegration is set, names the integration to remove.
	IntegrationID     string
	BatchSize         int
	DryRun            bool
	DeleteIntegration bool
	// RunID correlates logs and requests. A random UUID is used when empty.
	RunID string
}

func (o Options) Validate() error {
	if strings.TrimSpace(o.IntegrationID) == "" {
		return ErrMissingIntegrationID
	}
	if o.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	return nil
}

// Purger runs authenticate → search → group → delete → delete integration.
type Purger struct {
	API      CatalogAPI
	Token    TokenSource
	Options  Options
	Logger   *slog.Logger
	Progress ProgressFunc
}

// Run executes the workflow once. The first failing call stops the run; work
// already done is not undone. The returned report is non-nil whenever the
// options were valid.
func (p *Purger) Run(ctx context.Context) (*Report, error) {
	opts := p.Options
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("run_id", opts.RunID, "integration_id", opts.IntegrationID)
	emit := p.Progress
	if emit == nil {
		emit = func(Event) {}
	}

	ctx = log.WithHTTPLogContext(ctx, log.HTTPLogContext{
		RunID:         opts.RunID,
		IntegrationID: opts.IntegrationID,
	})

	report := &Report{
		RunID:         opts.RunID,
		IntegrationID: opts.IntegrationID,
		DryRun:        opts.DryRun,
		BatchSize:     opts.BatchSize,
		Blueprints:    []BlueprintReport{},
	}

	emit(Event{Kind: EventAuthenticating})
	token, err := p.Token(log.WithHTTPLogContext(ctx, log.HTTPLogContext{WorkflowPhase: "authenticate"}))
	if err != nil {
		return report, err
	}
	logger.Debug("access token acquired")
	emit(Event{Kind: EventAuthenticated})

	emit(Event{Kind: EventSearching, IntegrationID: opts.IntegrationID})
	entities, err := p.API.SearchEntities(
		log.WithHTTPLogContext(ctx, log.HTTPLogContext{WorkflowPhase: "search"}), token, opts.IntegrationID)
	if err != nil {
		return report, err
	}
	report.EntitiesFound = len(entities)
	logger.Info("entities found", "count", len(entities))
	emit(Event{Kind: EventFound, Count: len(entities)})

	grouping := GroupByBlueprint(entities)
	if skipped := len(entities) - grouping.Total(); skipped > 0 {
		logger.Warn("skipping entities without identifier or blueprint", "count", skipped)
	}

	for _, group := range grouping {
		if err := p.purgeGroup(ctx, logger, emit, token, opts, group, report); err != nil {
			return report, err
		}
	}

	if opts.DeleteIntegration {
		if err := p.deleteIntegration(ctx, logger, emit, token, opts, report); err != nil {
			return report, err
		}
	}

	report.CompletedAllSteps = true
	return report, nil
}

func (p *Purger) purgeGroup(
	ctx context.Context,
	logger *slog.Logger,
	emit ProgressFunc,
	token string,
	opts Options,
	group Group,
	report *Report,
) error {
	batches := Chunk(group.Identifiers, opts.BatchSize)
	report.Blueprints = append(report.Blueprints, BlueprintReport{
		Blueprint:   group.Blueprint,
		Identifiers: group.Identifiers,
		Batches:     make([]BatchReport, 0, len(batches)),
	})
	bpReport := &report.Blueprints[len(report.Blueprints)-1]
	logger = logger.With("blueprint", group.Blueprint)

	emit(Event{Kind: EventBlueprint, Blueprint: group.Blueprint, Identifiers: group.Identifiers})

	for i, batch := range batches {
		event := Event{
			Blueprint:   group.Blueprint,
			Identifiers: batch,
			Batch:       i + 1,
			Batches:     len(batches),
		}

		if opts.DryRun {
			bpReport.Batches = append(bpReport.Batches, BatchReport{Identifiers: batch})
			event.Kind = EventBatchSkipped
			emit(event)
			continue
		}

		batchCtx := log.WithHTTPLogContext(ctx, log.HTTPLogContext{
			WorkflowPhase: "delete",
			Blueprint:     group.Blueprint,
			Batch:         i + 1,
			Batches:       len(batches),
		})
		result, err := p.API.BulkDeleteEntities(batchCtx, token, group.Blueprint, batch)
		if err != nil {
			return fmt.Errorf("failed to delete batch %d/%d of blueprint %q: %w", i+1, len(batches), group.Blueprint, err)
		}

		bpReport.Batches = append(bpReport.Batches, BatchReport{Identifiers: batch, Deleted: true, Result: result})
		bpReport.Deleted += len(batch)
		report.EntitiesDeleted += len(batch)
		logger.Info("batch deleted", "batch", i+1, "batches", len(batches), "count", len(batch))

		event.Kind = EventBatchDeleted
		event.Result = result
		emit(event)
	}
	return nil
}

func (p *Purger) deleteIntegration(
	ctx context.Context,
	logger *slog.Logger,
	emit ProgressFunc,
	token string,
	opts Options,
	report *Report,
) error {
	report.Integration = &IntegrationState{ID: opts.IntegrationID}
	if opts.DryRun {
		emit(Event{Kind: EventIntegrationSkipped, IntegrationID: opts.IntegrationID})
		return nil
	}

	err := p.API.DeleteIntegration(
		log.WithHTTPLogContext(ctx, log.HTTPLogContext{WorkflowPhase: "delete-integration"}),
		token, opts.IntegrationID)
	if err != nil {
		return fmt.Errorf("failed to delete integration %q: %w", opts.IntegrationID, err)
	}

	report.Integration.Deleted = true
	logger.Info("integration deleted")
	emit(Event{Kind: EventIntegrationDeleted, IntegrationID: opts.IntegrationID})
	return nil
}
