package profiler_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/rudderlabs/rudder-go-kit/config"
	"github.com/rudderlabs/rudder-go-kit/logger"
	"github.com/rudderlabs/rudder-go-kit/stats"
	"github.com/rudderlabs/rudder-go-kit/stats/memstats"

	mockpartition "github.com/rudderlabs/profiler-partitions/mocks/warehouse/partition"
	"github.com/rudderlabs/profiler-partitions/warehouse/partition"
	"github.com/rudderlabs/profiler-partitions/warehouse/profiler"
)

func TestScoper_ScopeTable(t *testing.T) {
	table := profiler.Table{Schema: "analytics", Name: "events"}

	testCases := []struct {
		name             string
		conf             map[string]any
		tableConfigs     profiler.TableConfigs
		metadata         *partition.TableMetadata
		fetchErr         error
		skipFetch        bool
		wantOutcome      profiler.Outcome
		wantWindow       *partition.QueryWindow
		wantFromConfig   bool
		wantDescriptor   *partition.Descriptor
		wantIntervalType string
		wantErr          error
	}{
		{
			name: "time unit partition",
			conf: map[string]any{"Profiler.partition.lookbackDays": 30},
			metadata: &partition.TableMetadata{
				TimePartitioning: &partition.TimePartitioning{Field: lo.ToPtr("e"), Granularity: partition.DayGranularity},
			},
			wantOutcome:      profiler.OutcomeScoped,
			wantWindow:       &partition.QueryWindow{PartitionField: "e", PartitionQueryDuration: 30},
			wantIntervalType: "TIME_UNIT",
		},
		{
			name: "ingestion time partition by day",
			metadata: &partition.TableMetadata{
				TimePartitioning: &partition.TimePartitioning{Granularity: partition.DayGranularity},
			},
			wantOutcome:      profiler.OutcomeScoped,
			wantWindow:       &partition.QueryWindow{PartitionField: "_PARTITIONDATE", PartitionQueryDuration: 1},
			wantIntervalType: "INGESTION_TIME",
		},
		{
			name: "ingestion time partition by hour",
			metadata: &partition.TableMetadata{
				TimePartitioning: &partition.TimePartitioning{Granularity: partition.HourGranularity},
			},
			wantOutcome:      profiler.OutcomeScoped,
			wantWindow:       &partition.QueryWindow{PartitionField: "_PARTITIONTIME", PartitionQueryDuration: 1},
			wantIntervalType: "INGESTION_TIME",
		},
		{
			name: "integer range partition",
			conf: map[string]any{"Profiler.partition.rangeIntervals": 2},
			metadata: &partition.TableMetadata{
				RangePartitioning: &partition.RangePartitioning{Field: "bucket", Start: 0, End: 100, Interval: 10},
			},
			wantOutcome: profiler.OutcomeScoped,
			wantWindow: &partition.QueryWindow{
				PartitionField:        "bucket",
				PartitionIntervalStep: 10,
				PartitionValues:       []int64{80, 100},
			},
			wantIntervalType: "INTEGER_RANGE",
		},
		{
			name: "table lookback overrides the configured one",
			tableConfigs: profiler.TableConfigs{
				"analytics.events": {FullyQualifiedName: "analytics.events", LookbackDays: 7},
			},
			metadata: &partition.TableMetadata{
				TimePartitioning: &partition.TimePartitioning{Field: lo.ToPtr("e"), Granularity: partition.DayGranularity},
			},
			wantOutcome:      profiler.OutcomeScoped,
			wantWindow:       &partition.QueryWindow{PartitionField: "e", PartitionQueryDuration: 7},
			wantIntervalType: "TIME_UNIT",
		},
		{
			name: "partition config takes precedence over detection",
			tableConfigs: profiler.TableConfigs{
				"analytics.events": {
					FullyQualifiedName: "analytics.events",
					PartitionConfig:    &partition.QueryWindow{PartitionField: "loaded_at", PartitionQueryDuration: 2},
				},
			},
			skipFetch:        true,
			wantOutcome:      profiler.OutcomeScoped,
			wantWindow:       &partition.QueryWindow{PartitionField: "loaded_at", PartitionQueryDuration: 2},
			wantFromConfig:   true,
			wantIntervalType: "none",
		},
		{
			name:             "not partitioned",
			metadata:         &partition.TableMetadata{},
			wantOutcome:      profiler.OutcomeUnpartitioned,
			wantIntervalType: "none",
		},
		{
			name: "clustered table",
			metadata: &partition.TableMetadata{
				Clustering: &partition.Clustering{Columns: []string{"c1", "c2"}},
			},
			wantOutcome:      profiler.OutcomeUnsupported,
			wantIntervalType: "COLUMN_VALUE",
			wantErr:          partition.ErrUnsupportedPartition,
		},
		{
			name:             "metadata fetch failure",
			fetchErr:         errors.New("permission denied"),
			wantOutcome:      profiler.OutcomeSkipped,
			wantIntervalType: "none",
		},
		{
			name:             "table not found",
			fetchErr:         fmt.Errorf("fetching metadata: %w", partition.ErrTableNotFound),
			wantOutcome:      profiler.OutcomeSkipped,
			wantIntervalType: "none",
			wantErr:          partition.ErrTableNotFound,
		},
		{
			name: "empty partition field",
			metadata: &partition.TableMetadata{
				TimePartitioning: &partition.TimePartitioning{Field: lo.ToPtr(""), Granularity: partition.DayGranularity},
			},
			wantOutcome: profiler.OutcomeSkipped,
			wantDescriptor: &partition.Descriptor{
				Columns:      []string{""},
				IntervalType: partition.IntervalTypeTimeUnit,
				Interval:     partition.Interval{Granularity: partition.DayGranularity},
			},
			wantIntervalType: "TIME_UNIT",
			wantErr:          partition.ErrInvalidPartitionDescriptor,
		},
		{
			name: "unknown ingestion time granularity",
			metadata: &partition.TableMetadata{
				TimePartitioning: &partition.TimePartitioning{Granularity: "WEEK"},
			},
			wantOutcome: profiler.OutcomeSkipped,
			wantDescriptor: &partition.Descriptor{
				Columns:      []string{},
				IntervalType: partition.IntervalTypeIngestionTime,
				Interval:     partition.Interval{Granularity: "WEEK"},
			},
			wantIntervalType: "INGESTION_TIME",
			wantErr:          partition.ErrInvalidPartitionDescriptor,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			fetcher := mockpartition.NewMockMetadataFetcher(ctrl)
			if !tc.skipFetch {
				fetcher.EXPECT().FetchTableMetadata(gomock.Any(), "analytics.events").Return(tc.metadata, tc.fetchErr).Times(1)
			}

			c := config.New()
			for k, v := range tc.conf {
				c.Set(k, v)
			}

			statsStore, err := memstats.New()
			require.NoError(t, err)

			s, err := profiler.New(c, logger.NOP, statsStore, fetcher, partition.DialectBigQuery, tc.tableConfigs)
			require.NoError(t, err)

			result := s.ScopeTable(context.Background(), table)
			require.Equal(t, table, result.Table)
			require.Equal(t, tc.wantOutcome, result.Outcome)
			require.Equal(t, tc.wantWindow, result.Window)
			require.Equal(t, tc.wantFromConfig, result.FromConfig)
			if tc.wantDescriptor != nil || tc.wantOutcome == profiler.OutcomeSkipped {
				require.Equal(t, tc.wantDescriptor, result.Descriptor)
			}

			switch {
			case tc.wantErr != nil:
				require.ErrorIs(t, result.Err, tc.wantErr)
			case tc.fetchErr != nil:
				var fetchErr *partition.MetadataFetchError
				require.ErrorAs(t, result.Err, &fetchErr)
				require.Equal(t, "analytics.events", fetchErr.Table)
			default:
				require.NoError(t, result.Err)
			}

			require.EqualValues(t, 1, statsStore.Get("profiler_partition_scope_results", stats.Tags{
				"dialect":      "bigquery",
				"outcome":      string(tc.wantOutcome),
				"intervalType": tc.wantIntervalType,
			}).LastValue())

			detectTime := statsStore.Get("profiler_partition_detect_time", stats.Tags{"dialect": "bigquery"})
			if tc.skipFetch {
				require.Empty(t, detectTime.Durations())
			} else {
				require.Len(t, detectTime.Durations(), 1)
			}
		})
	}
}

func TestScoper_Scope(t *testing.T) {
	t.Run("results keep the order of tables", func(t *testing.T) {
		metadata := map[string]*partition.TableMetadata{
			"analytics.events": {
				TimePartitioning: &partition.TimePartitioning{Field: lo.ToPtr("event_date"), Granularity: partition.DayGranularity},
			},
			"analytics.users":  {},
			"analytics.orders": {Clustering: &partition.Clustering{Columns: []string{"order_id"}}},
		}
		fetcher := partition.FetchFunc(func(_ context.Context, fqn string) (*partition.TableMetadata, error) {
			m, ok := metadata[fqn]
			if !ok {
				return nil, partition.ErrTableNotFound
			}
			return m, nil
		})

		c := config.New()
		c.Set("Profiler.partition.concurrency", 2)

		s, err := profiler.New(c, logger.NOP, stats.NOP, fetcher, partition.DialectBigQuery, nil)
		require.NoError(t, err)

		tables := []profiler.Table{
			{Schema: "analytics", Name: "events"},
			{Schema: "analytics", Name: "users"},
			{Schema: "analytics", Name: "orders"},
			{Schema: "analytics", Name: "missing"},
		}
		results, err := s.Scope(context.Background(), tables)
		require.NoError(t, err)
		require.Len(t, results, len(tables))

		require.Equal(t,
			[]profiler.Outcome{profiler.OutcomeScoped, profiler.OutcomeUnpartitioned, profiler.OutcomeUnsupported, profiler.OutcomeSkipped},
			lo.Map(results, func(r profiler.Result, _ int) profiler.Outcome { return r.Outcome }),
		)
		for i, table := range tables {
			require.Equal(t, table, results[i].Table)
		}
		require.Equal(t, "event_date", results[0].Window.PartitionField)
		require.ErrorIs(t, results[3].Err, partition.ErrTableNotFound)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		fetcher := partition.FetchFunc(func(ctx context.Context, _ string) (*partition.TableMetadata, error) {
			return nil, ctx.Err()
		})

		s, err := profiler.New(config.New(), logger.NOP, stats.NOP, fetcher, partition.DialectBigQuery, nil)
		require.NoError(t, err)

		_, err = s.Scope(ctx, []profiler.Table{{Schema: "analytics", Name: "events"}})
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("no tables", func(t *testing.T) {
		s, err := profiler.New(config.New(), logger.NOP, stats.NOP, partition.FetchFunc(nil), partition.DialectSnowflake, nil)
		require.NoError(t, err)

		results, err := s.Scope(context.Background(), nil)
		require.NoError(t, err)
		require.Empty(t, results)
	})
}

func TestNew(t *testing.T) {
	t.Run("invalid lookback", func(t *testing.T) {
		c := config.New()
		c.Set("Profiler.partition.lookbackDays", 0)

		_, err := profiler.New(c, logger.NOP, stats.NOP, partition.FetchFunc(nil), partition.DialectBigQuery, nil)
		require.ErrorIs(t, err, partition.ErrInvalidLookback)
	})
	t.Run("negative range intervals", func(t *testing.T) {
		c := config.New()
		c.Set("Profiler.partition.rangeIntervals", -1)

		_, err := profiler.New(c, logger.NOP, stats.NOP, partition.FetchFunc(nil), partition.DialectBigQuery, nil)
		require.ErrorIs(t, err, partition.ErrInvalidLookback)
	})
	t.Run("unknown dialect", func(t *testing.T) {
		_, err := profiler.New(config.New(), logger.NOP, stats.NOP, partition.FetchFunc(nil), "redshift", nil)
		require.Error(t, err)
	})
}
