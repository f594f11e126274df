// Package reports implements the batch recalculation runs that produce the
// persisted per-entity market reports. A run walks the hierarchy strictly
// bottom-up: buildings first, then areas, then the city, because the
// by-building aggregates of a level read the rows the level below wrote in
// the same run.
package reports

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"marketpulse/server/config"
	"marketpulse/server/internal/bedrooms"
	"marketpulse/server/internal/database"
	"marketpulse/server/internal/models"
)

// CityEntityID is the entity id of the single city-wide report row.
const CityEntityID = 0

// Run states, in execution order.
const (
	StatePending            = "pending"
	StateComputingBuildings = "computing_buildings"
	StateComputingAreas     = "computing_areas"
	StateComputingCity      = "computing_city"
	StateDone               = "done"
)

// Item statuses.
const (
	StatusCreated = "created"
	StatusUpdated = "updated"
	StatusSkipped = "skipped"
)

// Skip reasons surfaced to the operator.
const (
	ReasonUnresolvableClass = "unresolvable bedroom class"
	ReasonUnitCount         = "unit count unknown/zero"
	ReasonNoRecords         = "no records in last-year window"
)

// Filter narrows a run to one entity and/or a set of bedroom classes. The
// class filter arrives as raw labels; a label that does not normalize is
// reported as a skipped item rather than aborting the run.
type Filter struct {
	EntityType *models.EntityType
	EntityID   *int64
	Classes    []string
}

// ItemResult is the outcome of one (entity, class) pair.
type ItemResult struct {
	EntityType models.EntityType `json:"entity_type"`
	EntityID   int64             `json:"entity_id"`
	Class      bedrooms.Class    `json:"bedroom_class,omitempty"`
	RawClass   string            `json:"raw_class,omitempty"`
	Status     string            `json:"status"`
	Reason     string            `json:"reason,omitempty"`
}

// RunSummary reports a whole recalculation run.
type RunSummary struct {
	RunID      string       `json:"run_id"`
	State      string       `json:"state"`
	Total      int          `json:"total"`
	Processed  int          `json:"processed"`
	Created    int          `json:"created"`
	Updated    int          `json:"updated"`
	Skipped    int          `json:"skipped"`
	Items      []ItemResult `json:"items"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Builder runs recalculations. Runs on the same Builder are serialized;
// each (entity, class) pair writes a disjoint row, so workers within a
// stage interleave freely.
type Builder struct {
	db     *database.Database
	cfg    *config.Config
	logger *logrus.Logger
	now    func() time.Time
	runMu  sync.Mutex
}

// NewBuilder creates a report builder. A nil clock defaults to time.Now.
func NewBuilder(db *database.Database, cfg *config.Config, logger *logrus.Logger, clock func() time.Time) *Builder {
	if logger == nil {
		logger = logrus.New()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Builder{db: db, cfg: cfg, logger: logger, now: clock}
}

type job struct {
	entityType models.EntityType
	entityID   int64
	class      bedrooms.Class
}

// Run executes one recalculation pass. Per-item failures become skips or
// retried writes; only a storage failure that survives the retries aborts
// the run.
func (b *Builder) Run(ctx context.Context, filter Filter) (*RunSummary, error) {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	summary := &RunSummary{
		RunID:     uuid.NewString(),
		State:     StatePending,
		StartedAt: b.now().UTC(),
	}

	classes, badLabels := resolveClassFilter(filter.Classes)
	for _, label := range badLabels {
		summary.Items = append(summary.Items, ItemResult{
			RawClass: label,
			Status:   StatusSkipped,
			Reason:   ReasonUnresolvableClass,
		})
		summary.Skipped++
	}
	if len(classes) == 0 {
		summary.State = StateDone
		summary.FinishedAt = b.now().UTC()
		return summary, nil
	}

	stages, err := b.planStages(ctx, filter, classes)
	if err != nil {
		return nil, err
	}
	for _, stage := range stages {
		summary.Total += len(stage.jobs)
	}
	summary.Total += summary.Skipped

	log := b.logger.WithField("run_id", summary.RunID)
	log.WithField("total", summary.Total).Info("Starting recalculation run")

	for _, stage := range stages {
		summary.State = stage.state
		log.WithField("state", stage.state).Info("Entering rollup stage")

		results, err := b.runStage(ctx, summary.RunID, stage.jobs)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			summary.Items = append(summary.Items, r)
			summary.Processed++
			switch r.Status {
			case StatusCreated:
				summary.Created++
			case StatusUpdated:
				summary.Updated++
			case StatusSkipped:
				summary.Skipped++
			}
		}
		log.Infof("Progress: %d/%d", summary.Processed, summary.Total)
	}

	summary.State = StateDone
	summary.FinishedAt = b.now().UTC()
	log.WithFields(logrus.Fields{
		"created": summary.Created,
		"updated": summary.Updated,
		"skipped": summary.Skipped,
	}).Info("Recalculation run finished")
	return summary, nil
}

func resolveClassFilter(labels []string) ([]bedrooms.Class, []string) {
	if len(labels) == 0 {
		return bedrooms.AllClasses, nil
	}
	seen := make(map[bedrooms.Class]bool)
	var classes []bedrooms.Class
	var bad []string
	for _, label := range labels {
		c, err := bedrooms.Normalize(label)
		if err != nil {
			bad = append(bad, label)
			continue
		}
		if !seen[c] {
			seen[c] = true
			classes = append(classes, c)
		}
	}
	return classes, bad
}

type stage struct {
	state string
	jobs  []job
}

// planStages expands the filter into the ordered stage list. A run scoped
// to a single entity produces one stage; a full run produces all three.
func (b *Builder) planStages(ctx context.Context, filter Filter, classes []bedrooms.Class) ([]stage, error) {
	if filter.EntityType != nil {
		switch *filter.EntityType {
		case models.EntityBuilding:
			ids, err := b.buildingIDs(ctx, filter.EntityID)
			if err != nil {
				return nil, err
			}
			return []stage{{StateComputingBuildings, pairJobs(models.EntityBuilding, ids, classes)}}, nil
		case models.EntityArea:
			ids, err := b.areaIDs(ctx, filter.EntityID)
			if err != nil {
				return nil, err
			}
			return []stage{{StateComputingAreas, pairJobs(models.EntityArea, ids, classes)}}, nil
		case models.EntityCity:
			return []stage{{StateComputingCity, pairJobs(models.EntityCity, []int64{CityEntityID}, classes)}}, nil
		default:
			return nil, fmt.Errorf("unknown entity type: %s", *filter.EntityType)
		}
	}

	buildingIDs, err := b.buildingIDs(ctx, nil)
	if err != nil {
		return nil, err
	}
	areaIDs, err := b.areaIDs(ctx, nil)
	if err != nil {
		return nil, err
	}
	return []stage{
		{StateComputingBuildings, pairJobs(models.EntityBuilding, buildingIDs, classes)},
		{StateComputingAreas, pairJobs(models.EntityArea, areaIDs, classes)},
		{StateComputingCity, pairJobs(models.EntityCity, []int64{CityEntityID}, classes)},
	}, nil
}

func (b *Builder) buildingIDs(ctx context.Context, only *int64) ([]int64, error) {
	if only != nil {
		return []int64{*only}, nil
	}
	buildings, err := b.db.GetBuildings(ctx, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(buildings))
	for i, bld := range buildings {
		ids[i] = bld.ID
	}
	return ids, nil
}

func (b *Builder) areaIDs(ctx context.Context, only *int64) ([]int64, error) {
	if only != nil {
		return []int64{*only}, nil
	}
	areas, err := b.db.GetAreas(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(areas))
	for i, a := range areas {
		ids[i] = a.ID
	}
	return ids, nil
}

func pairJobs(entityType models.EntityType, ids []int64, classes []bedrooms.Class) []job {
	jobs := make([]job, 0, len(ids)*len(classes))
	for _, id := range ids {
		for _, c := range classes {
			jobs = append(jobs, job{entityType: entityType, entityID: id, class: c})
		}
	}
	return jobs
}

// runStage fans the stage's jobs across the worker pool and waits for the
// whole stage before the next one starts.
func (b *Builder) runStage(ctx context.Context, runID string, jobs []job) ([]ItemResult, error) {
	workers := b.cfg.Recalculation.ProcessorCount
	if workers < 1 {
		workers = 1
	}

	jobCh := make(chan job, len(jobs))
	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)

	resultCh := make(chan ItemResult, len(jobs))
	errCh := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				if ctx.Err() != nil {
					return
				}
				result, err := b.processItem(ctx, runID, j)
				if err != nil {
					errCh <- err
					return
				}
				resultCh <- result
			}
		}()
	}
	wg.Wait()
	close(resultCh)
	close(errCh)

	if err := <-errCh; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]ItemResult, 0, len(jobs))
	for r := range resultCh {
		results = append(results, r)
	}
	return results, nil
}

// processItem computes one report row and writes it with retries. The
// upsert is idempotent, so a restart after a partial run is safe.
func (b *Builder) processItem(ctx context.Context, runID string, j job) (ItemResult, error) {
	result := ItemResult{EntityType: j.entityType, EntityID: j.entityID, Class: j.class}

	report, skipReason, err := b.computeReport(ctx, runID, j)
	if err != nil {
		return result, err
	}
	if skipReason != "" {
		b.logger.WithFields(logrus.Fields{
			"entity_type": j.entityType,
			"entity_id":   j.entityID,
			"class":       j.class,
			"reason":      skipReason,
		}).Debug("Skipping report item")
		result.Status = StatusSkipped
		result.Reason = skipReason
		return result, nil
	}

	existed, err := b.db.ReportExists(ctx, j.entityType, j.entityID, j.class)
	if err != nil {
		return result, err
	}

	if err := b.upsertWithRetry(ctx, report); err != nil {
		return result, err
	}

	if existed {
		result.Status = StatusUpdated
	} else {
		result.Status = StatusCreated
	}
	return result, nil
}

// upsertWithRetry retries a failed report write before surfacing a hard
// failure to the operator.
func (b *Builder) upsertWithRetry(ctx context.Context, report *models.EntityReport) error {
	maxRetries := b.cfg.Recalculation.MaxRetries
	retryDelay := time.Duration(b.cfg.Recalculation.RetryDelay) * time.Second

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			b.logger.Infof("Retrying report write, attempt %d of %d", attempt, maxRetries)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		if err = b.db.UpsertReport(ctx, report); err == nil {
			return nil
		}
		b.logger.Errorf("Report write failed: %v", err)
	}

	return fmt.Errorf("failed to write report after %d attempts: %w", maxRetries, err)
}
