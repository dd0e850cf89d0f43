package scheduler

import (
	"context"
	"fmt"
	"time"

	"coursecal/internal/catalog"
	"coursecal/internal/config"
	"coursecal/internal/ics"
	appLog "coursecal/internal/log"
	"coursecal/internal/metrics"
	"coursecal/internal/model"
	"coursecal/internal/store"
)

// Pipeline rebuilds the record store from the catalog file and ICS feeds.
type Pipeline struct {
	cfg     *config.Config
	fetcher *ics.Fetcher
	store   *store.Store
	metrics *metrics.Manager

	now func() time.Time
}

// NewPipeline wires a refresh pipeline. m may be nil.
func NewPipeline(cfg *config.Config, fetcher *ics.Fetcher, st *store.Store, m *metrics.Manager) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		fetcher: fetcher,
		store:   st,
		metrics: m,
		now:     time.Now,
	}
}

// Refresh loads every source and replaces the store contents. A broken
// catalog file aborts the run and keeps the previous snapshot; individual
// feed failures are logged and only remove that feed's records.
func (p *Pipeline) Refresh(ctx context.Context) error {
	started := p.now()
	version, feedErrs, err := p.refresh(ctx)
	if p.metrics != nil {
		p.metrics.ObserveRefresh(p.now().Sub(started), version, feedErrs, err)
	}
	if err != nil {
		appLog.Error("refresh failed; keeping previous records", err)
		return err
	}
	appLog.Info("refresh completed", "version", version, "feed_errors", feedErrs, "took", p.now().Sub(started))
	return nil
}

func (p *Pipeline) refresh(ctx context.Context) (uint64, int, error) {
	loc := p.cfg.Location()

	var (
		classes []model.ClassSession
		exams   []model.ExamWindow
	)
	if p.cfg.RecordsFile != "" {
		c, x, err := catalog.Load(p.cfg.RecordsFile, loc)
		if err != nil {
			return 0, 0, fmt.Errorf("refresh: %w", err)
		}
		classes, exams = c, x
	}

	feedErrs := 0
	if len(p.cfg.Feeds) > 0 {
		fc, fx, n := p.loadFeeds(ctx, loc)
		classes = append(classes, fc...)
		exams = append(exams, fx...)
		feedErrs = n
	}

	if err := ctx.Err(); err != nil {
		return 0, feedErrs, err
	}
	return p.store.Replace(classes, exams), feedErrs, nil
}

func (p *Pipeline) loadFeeds(ctx context.Context, loc *time.Location) ([]model.ClassSession, []model.ExamWindow, int) {
	sources := make([]ics.Source, 0, len(p.cfg.Feeds))
	for _, f := range p.cfg.Feeds {
		kind := model.CategoryClass
		if f.Kind == config.FeedExam {
			kind = model.CategoryExam
		}
		course := f.Course
		if course == "" {
			course = f.Name
		}
		sources = append(sources, ics.Source{ID: f.ID, URL: f.URL, Kind: kind, Course: course})
	}

	results, errs := p.fetcher.FetchAll(ctx, sources)
	failures := len(errs)

	var parsed []ics.ParsedEvent
	for _, res := range results {
		events, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			failures++
			continue
		}
		parsed = append(parsed, events...)
	}

	now := p.now().In(loc)
	horizon := time.Duration(p.cfg.HorizonDays) * 24 * time.Hour
	expanded, err := ics.Expand(parsed, ics.ExpandConfig{
		Location:   loc,
		RangeStart: now.Add(-horizon),
		RangeEnd:   now.Add(horizon),
	})
	if err != nil {
		appLog.Error("refresh: expand failed", err)
		return nil, nil, failures + 1
	}

	classes, exams := ics.Records(expanded.Instances)
	return classes, exams, failures
}
