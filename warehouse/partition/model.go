package partition

import (
	"fmt"
	"strconv"
	"strings"
)

type IntervalType string

const (
	IntervalTypeTimeUnit      IntervalType = "TIME_UNIT"
	IntervalTypeIngestionTime IntervalType = "INGESTION_TIME"
	IntervalTypeIntegerRange  IntervalType = "INTEGER_RANGE"
	IntervalTypeColumnValue   IntervalType = "COLUMN_VALUE"
)

// Granularity is the time-unit label a warehouse reports for time based partitioning.
type Granularity string

const (
	HourGranularity  Granularity = "HOUR"
	DayGranularity   Granularity = "DAY"
	MonthGranularity Granularity = "MONTH"
	YearGranularity  Granularity = "YEAR"
)

// Interval holds the partition interval. Time based partitions carry a
// Granularity, integer range partitions carry a Step.
type Interval struct {
	Granularity Granularity `json:"granularity,omitempty"`
	Step        int64       `json:"step,omitempty"`
}

func (i Interval) String() string {
	if i.Granularity != "" {
		return string(i.Granularity)
	}
	if i.Step != 0 {
		return strconv.FormatInt(i.Step, 10)
	}
	return ""
}

// Range is the declared [Start, End) span of an integer range partitioned table.
type Range struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Descriptor is the vendor-neutral description of how a table is partitioned.
type Descriptor struct {
	Columns      []string     `json:"columns"`
	IntervalType IntervalType `json:"intervalType"`
	Interval     Interval     `json:"interval"`
	Range        *Range       `json:"range,omitempty"`
}

// Validate reports ErrInvalidPartitionDescriptor when the interval shape does
// not match the interval type.
func (d Descriptor) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidPartitionDescriptor, fmt.Sprintf(format, args...))
	}

	switch d.IntervalType {
	case IntervalTypeTimeUnit:
		if len(d.Columns) != 1 || strings.TrimSpace(d.Columns[0]) == "" {
			return invalid("time unit partition needs exactly one column, got %q", d.Columns)
		}
		if d.Interval.Granularity == "" || d.Interval.Step != 0 {
			return invalid("time unit partition needs a granularity, got %+v", d.Interval)
		}
	case IntervalTypeIngestionTime:
		if d.Interval.Granularity == "" || d.Interval.Step != 0 {
			return invalid("ingestion time partition needs a granularity, got %+v", d.Interval)
		}
	case IntervalTypeIntegerRange:
		if len(d.Columns) != 1 || strings.TrimSpace(d.Columns[0]) == "" {
			return invalid("integer range partition needs exactly one column, got %q", d.Columns)
		}
		if d.Interval.Step <= 0 || d.Interval.Granularity != "" {
			return invalid("integer range partition needs a positive step, got %+v", d.Interval)
		}
		if d.Range != nil && d.Range.End <= d.Range.Start {
			return invalid("integer range end %d is not after start %d", d.Range.End, d.Range.Start)
		}
	case IntervalTypeColumnValue:
		if len(d.Columns) == 0 {
			return invalid("column value partition needs at least one column")
		}
		if d.Interval != (Interval{}) {
			return invalid("column value partition has no interval, got %+v", d.Interval)
		}
	default:
		return invalid("unknown interval type %q", d.IntervalType)
	}
	return nil
}

// QueryWindow bounds a profiling query to a recent slice of a partitioned table.
type QueryWindow struct {
	PartitionField         string  `json:"partitionField" yaml:"partitionField"`
	PartitionQueryDuration int     `json:"partitionQueryDuration,omitempty" yaml:"partitionQueryDuration"`
	PartitionIntervalStep  int64   `json:"partitionIntervalStep,omitempty" yaml:"partitionIntervalStep"`
	PartitionValues        []int64 `json:"partitionValues,omitempty" yaml:"partitionValues"`
}
