// Package tracker contains the orchestrator that drives one tracking run:
// fetch postings from every enabled source, keep source health current, send
// due alerts, deduplicate against the seen store and notify about what is
// genuinely new.
package tracker

import (
	"context"
	"log/slog"

	"github.com/go-johnnyhe/jobs/internal/domain"
	"github.com/go-johnnyhe/jobs/internal/health"
	"github.com/go-johnnyhe/jobs/internal/sources"
	"github.com/go-johnnyhe/jobs/internal/telemetry"
)

// Store is the seen-posting persistence the runner needs.
type Store interface {
	IsNew(ctx context.Context, posting domain.JobPosting) (bool, error)
	MarkSeen(ctx context.Context, posting domain.JobPosting, notified bool) error
	MarkNotified(ctx context.Context, posting domain.JobPosting) error
}

// Notifier delivers posting batches and source-health alerts. Every method
// reports delivery success; the runner confirms alerts only on true.
type Notifier interface {
	Notify(ctx context.Context, jobs []domain.JobPosting, dryRun bool) bool
	NotifySourceFailure(ctx context.Context, source string, failures int, errMsg string, dryRun bool) bool
	NotifySourceRecovery(ctx context.Context, source string, recoveredAfter int, dryRun bool) bool
}

// EventPublisher emits new-posting events to interested consumers. Optional.
type EventPublisher interface {
	PublishPosting(ctx context.Context, posting domain.JobPosting) error
}

// Options control one run.
type Options struct {
	// Notify enables outbound webhook deliveries (postings and alerts).
	Notify bool
	// DryRun formats payloads without transmitting and suppresses all
	// store-side confirmations that depend on delivery.
	DryRun bool
}

// Result summarizes one run.
type Result struct {
	Fetched  int
	New      int
	Notified int
}

// Runner glues the pipeline together.
type Runner struct {
	adapters   []sources.Adapter
	store      Store
	health     *health.Tracker
	notifier   Notifier
	publisher  EventPublisher
	thresholds []int
	logger     *slog.Logger
}

// NewRunner creates a runner over the given adapters. publisher may be nil.
func NewRunner(adapters []sources.Adapter, store Store, healthTracker *health.Tracker, notifier Notifier, publisher EventPublisher, thresholds []int, logger *slog.Logger) *Runner {
	return &Runner{
		adapters:   adapters,
		store:      store,
		health:     healthTracker,
		notifier:   notifier,
		publisher:  publisher,
		thresholds: thresholds,
		logger:     logger,
	}
}

// Run executes one full tracking cycle. A failing source contributes zero
// postings and a recorded failure; it never aborts the cycle.
func (r *Runner) Run(ctx context.Context, opts Options) (Result, error) {
	var result Result
	var all []domain.JobPosting

	for _, adapter := range r.adapters {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		name := adapter.Name()
		r.logger.Info("Fetching source", slog.String("source", name))

		jobs, healthy, errMsg := adapter.FetchWithStatus(ctx)
		telemetry.PostingsFetched.WithLabelValues(name).Add(float64(len(jobs)))

		r.logger.Info("Source fetch finished",
			slog.String("source", name),
			slog.Int("matching", len(jobs)),
			slog.Bool("healthy", healthy),
		)

		all = append(all, jobs...)
		r.recordSourceStatus(ctx, name, healthy, errMsg, opts)
	}
	result.Fetched = len(all)

	newJobs, err := r.collectNew(ctx, all)
	if err != nil {
		return result, err
	}
	result.New = len(newJobs)

	r.logger.Info("Deduplication finished",
		slog.Int("total", len(all)),
		slog.Int("new", len(newJobs)),
	)

	if opts.Notify && len(newJobs) > 0 {
		if r.notifier.Notify(ctx, newJobs, opts.DryRun) {
			if !opts.DryRun {
				for _, job := range newJobs {
					if err := r.store.MarkNotified(ctx, job); err != nil {
						r.logger.Error("Failed to mark posting notified",
							slog.String("unique_id", job.UniqueID()),
							slog.Any("error", err),
						)
						continue
					}
					result.Notified++
					telemetry.PostingsNotified.Inc()
				}
			}
		} else {
			telemetry.NotifyFailures.Inc()
			r.logger.Warn("Posting notification failed, postings stay pending",
				slog.Int("count", len(newJobs)),
			)
		}
	}

	telemetry.RunsTotal.Inc()
	return result, nil
}

// recordSourceStatus updates the health state machine for one source and
// sends whatever alert became due. Alerts are confirmed only after delivery
// succeeded and only outside dry runs, so an undelivered alert is offered
// again next cycle.
func (r *Runner) recordSourceStatus(ctx context.Context, source string, healthy bool, errMsg string, opts Options) {
	if healthy {
		recoveredAfter, err := r.health.RecordSuccess(ctx, source, r.thresholds)
		if err != nil {
			r.logger.Error("Failed to record source success",
				slog.String("source", source),
				slog.Any("error", err),
			)
			return
		}
		if recoveredAfter > 0 && opts.Notify {
			if r.notifier.NotifySourceRecovery(ctx, source, recoveredAfter, opts.DryRun) && !opts.DryRun {
				if err := r.health.ConfirmRecoveryAlert(ctx, source); err != nil {
					r.logger.Error("Failed to confirm recovery alert",
						slog.String("source", source),
						slog.Any("error", err),
					)
					return
				}
				telemetry.AlertsSent.WithLabelValues("recovery").Inc()
			}
		}
		return
	}

	telemetry.SourceFetchErrors.WithLabelValues(source).Inc()

	failures, alertThreshold, err := r.health.RecordFailure(ctx, source, errMsg, r.thresholds)
	if err != nil {
		r.logger.Error("Failed to record source failure",
			slog.String("source", source),
			slog.Any("error", err),
		)
		return
	}

	r.logger.Warn("Source failure recorded",
		slog.String("source", source),
		slog.Int("consecutive", failures),
		slog.String("error", errMsg),
	)

	if alertThreshold > 0 && opts.Notify {
		if r.notifier.NotifySourceFailure(ctx, source, failures, errMsg, opts.DryRun) && !opts.DryRun {
			if err := r.health.ConfirmFailureAlert(ctx, source, alertThreshold); err != nil {
				r.logger.Error("Failed to confirm failure alert",
					slog.String("source", source),
					slog.Any("error", err),
				)
				return
			}
			telemetry.AlertsSent.WithLabelValues("failure").Inc()
		}
	}
}

// collectNew filters the fetched postings down to first-seen ones and
// persists them immediately with notified=false, so a later crash can only
// cause a duplicate notification, never a lost posting.
func (r *Runner) collectNew(ctx context.Context, all []domain.JobPosting) ([]domain.JobPosting, error) {
	var newJobs []domain.JobPosting

	for _, job := range all {
		if err := ctx.Err(); err != nil {
			return newJobs, err
		}

		isNew, err := r.store.IsNew(ctx, job)
		if err != nil {
			r.logger.Error("Dedup check failed",
				slog.String("unique_id", job.UniqueID()),
				slog.Any("error", err),
			)
			continue
		}
		if !isNew {
			continue
		}

		if err := r.store.MarkSeen(ctx, job, false); err != nil {
			r.logger.Error("Failed to persist posting",
				slog.String("unique_id", job.UniqueID()),
				slog.Any("error", err),
			)
			continue
		}

		newJobs = append(newJobs, job)
		telemetry.PostingsNew.Inc()

		r.logger.Info("New posting",
			slog.String("company", job.Company),
			slog.String("title", job.Title),
		)

		if r.publisher != nil {
			if err := r.publisher.PublishPosting(ctx, job); err != nil {
				r.logger.Warn("Failed to publish posting event",
					slog.String("unique_id", job.UniqueID()),
					slog.Any("error", err),
				)
			}
		}
	}

	return newJobs, nil
}
