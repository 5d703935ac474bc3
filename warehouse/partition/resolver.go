package partition

import (
	"fmt"
	"strings"
)

// Dialect identifies the SQL dialect whose pseudo-columns back ingestion-time partitions.
type Dialect string

const (
	DialectBigQuery  Dialect = "bigquery"
	DialectSnowflake Dialect = "snowflake"
)

type grain int

const (
	dateGrain grain = iota
	timestampGrain
)

var granularityGrains = map[Granularity]grain{
	HourGranularity:  timestampGrain,
	DayGranularity:   dateGrain,
	MonthGranularity: dateGrain,
	YearGranularity:  dateGrain,
}

// pseudoColumns lists, per dialect, the column exposing the load time of a row
// at each grain. The two grains have different types and are not interchangeable.
var pseudoColumns = map[Dialect]map[grain]string{
	DialectBigQuery: {
		dateGrain:      "_PARTITIONDATE",
		timestampGrain: "_PARTITIONTIME",
	},
	DialectSnowflake: {},
}

// Lookback is the profiling configuration a window is resolved against.
type Lookback struct {
	// Days is the trailing number of days time based partitions are scoped to.
	Days int
	// RangeIntervals is the number of most recent intervals integer range
	// partitions are scoped to. Zero exposes only the field and step.
	RangeIntervals int
}

type Resolver struct {
	dialect       Dialect
	pseudoColumns map[grain]string
}

func NewResolver(dialect Dialect) (*Resolver, error) {
	columns, ok := pseudoColumns[dialect]
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q", dialect)
	}
	return &Resolver{
		dialect:       dialect,
		pseudoColumns: columns,
	}, nil
}

// Resolve computes the query window for a partitioned table.
//
// Time based partitions resolve to a field and a duration in days, whatever
// the partition granularity is. The lower bound itself is computed by the
// query builder relative to the time the query runs. Integer range partitions
// resolve to a field, the interval step and, when the declared range is known,
// the [lower, upper) bounds covering the most recent lookback.RangeIntervals
// intervals.
func (r *Resolver) Resolve(d Descriptor, lookback Lookback) (QueryWindow, error) {
	if err := d.Validate(); err != nil {
		return QueryWindow{}, err
	}

	switch d.IntervalType {
	case IntervalTypeTimeUnit:
		if lookback.Days <= 0 {
			return QueryWindow{}, fmt.Errorf("%w: got %d", ErrInvalidLookback, lookback.Days)
		}
		return QueryWindow{
			PartitionField:         d.Columns[0],
			PartitionQueryDuration: lookback.Days,
		}, nil
	case IntervalTypeIngestionTime:
		if lookback.Days <= 0 {
			return QueryWindow{}, fmt.Errorf("%w: got %d", ErrInvalidLookback, lookback.Days)
		}
		field, err := r.pseudoColumn(d.Interval.Granularity)
		if err != nil {
			return QueryWindow{}, err
		}
		return QueryWindow{
			PartitionField:         field,
			PartitionQueryDuration: lookback.Days,
		}, nil
	case IntervalTypeIntegerRange:
		return QueryWindow{
			PartitionField:        d.Columns[0],
			PartitionIntervalStep: d.Interval.Step,
			PartitionValues:       rangeBounds(d, lookback.RangeIntervals),
		}, nil
	default:
		return QueryWindow{}, fmt.Errorf("%w: %s", ErrUnsupportedPartition, d.IntervalType)
	}
}

func (r *Resolver) pseudoColumn(granularity Granularity) (string, error) {
	g, ok := granularityGrains[Granularity(strings.ToUpper(string(granularity)))]
	if !ok {
		return "", fmt.Errorf("%w: unknown granularity %q", ErrInvalidPartitionDescriptor, granularity)
	}
	column, ok := r.pseudoColumns[g]
	if !ok {
		return "", fmt.Errorf("%w: %s has no ingestion-time pseudo-column for %s partitions", ErrUnsupportedPartition, r.dialect, granularity)
	}
	return column, nil
}

// rangeBounds returns the [lower, end) bounds of the most recent intervals
// partitions. Partitions are aligned to start + k*step, so lower is always a
// partition boundary. The arithmetic is done on the unsigned span to stay
// correct for ranges and interval counts near the int64 limits.
func rangeBounds(d Descriptor, intervals int) []int64 {
	if d.Range == nil || intervals <= 0 {
		return nil
	}

	span := uint64(d.Range.End) - uint64(d.Range.Start)
	step := uint64(d.Interval.Step)

	partitions := span / step
	if span%step != 0 {
		partitions++
	}

	lower := d.Range.Start
	if uint64(intervals) < partitions {
		lower = int64(uint64(d.Range.Start) + (partitions-uint64(intervals))*step)
	}
	return []int64{lower, d.Range.End}
}
