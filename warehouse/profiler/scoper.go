// Package profiler scopes profiling queries of warehouse tables to their most
// recent partitions.
package profiler

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"

	"github.com/rudderlabs/rudder-go-kit/config"
	"github.com/rudderlabs/rudder-go-kit/logger"
	"github.com/rudderlabs/rudder-go-kit/stats"
	obskit "github.com/rudderlabs/rudder-observability-kit/go/labels"

	"github.com/rudderlabs/profiler-partitions/warehouse/logfield"
	"github.com/rudderlabs/profiler-partitions/warehouse/partition"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Outcome string

const (
	// OutcomeScoped tables are profiled within Result.Window.
	OutcomeScoped Outcome = "scoped"
	// OutcomeUnpartitioned tables are profiled in full.
	OutcomeUnpartitioned Outcome = "unpartitioned"
	// OutcomeUnsupported tables are partitioned in a way no window exists for
	// and are profiled in full.
	OutcomeUnsupported Outcome = "unsupported"
	// OutcomeSkipped tables are not profiled. Result.Err holds the reason.
	OutcomeSkipped Outcome = "skipped"
)

type Table struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

func (t Table) FullyQualifiedName() string {
	return partition.FullyQualifiedName(t.Schema, t.Name)
}

type Result struct {
	Table      Table                  `json:"table"`
	Outcome    Outcome                `json:"outcome"`
	Descriptor *partition.Descriptor  `json:"descriptor,omitempty"`
	Window     *partition.QueryWindow `json:"window,omitempty"`
	FromConfig bool                   `json:"fromConfig,omitempty"`
	Err        error                  `json:"-"`
}

type Scoper struct {
	logger       logger.Logger
	statsFactory stats.Stats
	dialect      partition.Dialect
	detector     *partition.Detector
	resolver     *partition.Resolver
	tableConfigs TableConfigs

	config struct {
		lookbackDays   int
		rangeIntervals int
		concurrency    int
	}
	stats struct {
		detectTime stats.Measurement
	}
}

func New(
	conf *config.Config,
	log logger.Logger,
	statsFactory stats.Stats,
	fetcher partition.MetadataFetcher,
	dialect partition.Dialect,
	tableConfigs TableConfigs,
) (*Scoper, error) {
	resolver, err := partition.NewResolver(dialect)
	if err != nil {
		return nil, fmt.Errorf("creating resolver: %w", err)
	}

	s := &Scoper{
		logger:       log.Child("profiler").Withn(logger.NewStringField(logfield.Warehouse, string(dialect))),
		statsFactory: statsFactory,
		dialect:      dialect,
		resolver:     resolver,
		tableConfigs: tableConfigs,
	}
	s.detector = partition.NewDetector(fetcher, s.logger)

	s.config.lookbackDays = conf.GetInt("Profiler.partition.lookbackDays", 1)
	s.config.rangeIntervals = conf.GetInt("Profiler.partition.rangeIntervals", 1)
	s.config.concurrency = conf.GetInt("Profiler.partition.concurrency", 4)

	if s.config.lookbackDays < 1 {
		return nil, fmt.Errorf("%w: lookbackDays must be at least 1, got %d", partition.ErrInvalidLookback, s.config.lookbackDays)
	}
	if s.config.rangeIntervals < 0 {
		return nil, fmt.Errorf("%w: rangeIntervals must not be negative, got %d", partition.ErrInvalidLookback, s.config.rangeIntervals)
	}
	if s.config.concurrency < 1 {
		s.config.concurrency = 1
	}

	s.stats.detectTime = statsFactory.NewTaggedStat("profiler_partition_detect_time", stats.TimerType, stats.Tags{
		"dialect": string(dialect),
	})
	return s, nil
}

// Scope scopes every table, at most Profiler.partition.concurrency at a time.
// Results are in the order of tables. Per table failures are reported on the
// results; only a cancelled context fails the whole call.
func (s *Scoper) Scope(ctx context.Context, tables []Table) ([]Result, error) {
	results := make([]Result, len(tables))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.concurrency)

	for i, table := range tables {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = s.ScopeTable(gCtx, table)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoping tables: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scoping tables: %w", err)
	}
	return results, nil
}

// ScopeTable resolves the query window of a single table. A partition config
// for the table takes precedence over detection.
func (s *Scoper) ScopeTable(ctx context.Context, table Table) Result {
	fqn := table.FullyQualifiedName()
	log := s.logger.Withn(logger.NewStringField(logfield.FullyQualifiedName, fqn))

	tableConfig, hasConfig := s.tableConfigs.Get(fqn)
	if hasConfig && tableConfig.PartitionConfig != nil {
		window := *tableConfig.PartitionConfig

		log.Infon("Using configured partition window",
			logger.NewStringField(logfield.Source, "config"),
			logger.NewStringField(logfield.PartitionField, window.PartitionField),
			logger.NewIntField(logfield.PartitionQueryDuration, int64(window.PartitionQueryDuration)),
		)
		return s.record(Result{Table: table, Outcome: OutcomeScoped, Window: &window, FromConfig: true})
	}

	detectStart := time.Now()
	descriptor, found, err := s.detector.Detect(ctx, table.Schema, table.Name)
	s.stats.detectTime.Since(detectStart)

	if err != nil {
		var fetchErr *partition.MetadataFetchError
		switch {
		case errors.As(err, &fetchErr):
			log.Warnn("Skipping table, could not fetch its metadata", obskit.Error(err))
		default:
			log.Errorn("Skipping table, invalid partitioning",
				logger.NewStringField(logfield.Descriptor, marshalDescriptor(descriptor)),
				obskit.Error(err),
			)
		}
		return s.record(Result{Table: table, Outcome: OutcomeSkipped, Descriptor: descriptor, Err: err})
	}
	if !found {
		log.Infon("Table is not partitioned, profiling it in full")
		return s.record(Result{Table: table, Outcome: OutcomeUnpartitioned})
	}

	lookback := partition.Lookback{
		Days:           s.config.lookbackDays,
		RangeIntervals: s.config.rangeIntervals,
	}
	if hasConfig && tableConfig.LookbackDays > 0 {
		lookback.Days = tableConfig.LookbackDays
	}

	window, err := s.resolver.Resolve(*descriptor, lookback)
	switch {
	case errors.Is(err, partition.ErrUnsupportedPartition):
		log.Warnn("Partitioning has no query window, profiling table in full",
			logger.NewStringField(logfield.IntervalType, string(descriptor.IntervalType)),
			obskit.Error(err),
		)
		return s.record(Result{Table: table, Outcome: OutcomeUnsupported, Descriptor: descriptor, Err: err})
	case err != nil:
		log.Errorn("Skipping table, could not resolve its query window",
			logger.NewStringField(logfield.Descriptor, marshalDescriptor(descriptor)),
			obskit.Error(err),
		)
		return s.record(Result{Table: table, Outcome: OutcomeSkipped, Descriptor: descriptor, Err: err})
	}

	log.Infon("Scoped table to its recent partitions",
		logger.NewStringField(logfield.Source, "detected"),
		logger.NewStringField(logfield.IntervalType, string(descriptor.IntervalType)),
		logger.NewStringField(logfield.PartitionField, window.PartitionField),
		logger.NewIntField(logfield.PartitionQueryDuration, int64(window.PartitionQueryDuration)),
	)
	return s.record(Result{Table: table, Outcome: OutcomeScoped, Descriptor: descriptor, Window: &window})
}

func (s *Scoper) record(result Result) Result {
	intervalType := "none"
	if result.Descriptor != nil {
		intervalType = string(result.Descriptor.IntervalType)
	}

	s.statsFactory.NewTaggedStat("profiler_partition_scope_results", stats.CountType, stats.Tags{
		"dialect":      string(s.dialect),
		"outcome":      string(result.Outcome),
		"intervalType": intervalType,
	}).Increment()
	return result
}

func marshalDescriptor(d *partition.Descriptor) string {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf("%+v", d)
	}
	return string(b)
}
