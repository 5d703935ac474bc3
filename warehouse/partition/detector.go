package partition

import (
	"context"
	"strings"

	"github.com/rudderlabs/rudder-go-kit/logger"

	"github.com/rudderlabs/profiler-partitions/warehouse/logfield"
)

type Detector struct {
	fetcher MetadataFetcher
	logger  logger.Logger
}

func NewDetector(fetcher MetadataFetcher, log logger.Logger) *Detector {
	return &Detector{
		fetcher: fetcher,
		logger:  log.Child("detector"),
	}
}

// Detect fetches the table metadata and normalizes its partitioning.
// Tables without partitioning return (nil, false, nil). Failures to fetch the
// metadata are returned as *MetadataFetchError. An invalid partitioning is
// returned as ErrInvalidPartitionDescriptor along with the descriptor built
// from it, when there is one.
func (d *Detector) Detect(ctx context.Context, schemaName, tableName string) (*Descriptor, bool, error) {
	fqn := FullyQualifiedName(schemaName, tableName)

	metadata, err := d.fetcher.FetchTableMetadata(ctx, fqn)
	if err != nil {
		return nil, false, &MetadataFetchError{Table: fqn, Err: err}
	}

	p, err := metadata.Partitioning()
	if err != nil {
		descriptor, _ := Describe(p)
		return descriptor, false, err
	}

	descriptor, found := Describe(p)
	if !found {
		d.logger.Debugn("Table is not partitioned", logger.NewStringField(logfield.FullyQualifiedName, fqn))
		return nil, false, nil
	}
	if err := descriptor.Validate(); err != nil {
		return descriptor, false, err
	}

	d.logger.Debugn("Detected table partitioning",
		logger.NewStringField(logfield.FullyQualifiedName, fqn),
		logger.NewStringField(logfield.IntervalType, string(descriptor.IntervalType)),
		logger.NewStringField(logfield.Interval, descriptor.Interval.String()),
		logger.NewStringField(logfield.PartitionColumns, strings.Join(descriptor.Columns, ",")),
	)
	return descriptor, true, nil
}

// Describe maps a native partitioning mode to its Descriptor.
func Describe(p Partitioning) (*Descriptor, bool) {
	switch p := p.(type) {
	case TimeUnitPartitioning:
		return &Descriptor{
			Columns:      []string{p.Column},
			IntervalType: IntervalTypeTimeUnit,
			Interval:     Interval{Granularity: p.Granularity},
		}, true
	case IngestionTimePartitioning:
		return &Descriptor{
			Columns:      []string{},
			IntervalType: IntervalTypeIngestionTime,
			Interval:     Interval{Granularity: p.Granularity},
		}, true
	case IntegerRangePartitioning:
		return &Descriptor{
			Columns:      []string{p.Column},
			IntervalType: IntervalTypeIntegerRange,
			Interval:     Interval{Step: p.Interval},
			Range:        &Range{Start: p.Start, End: p.End},
		}, true
	case ClusteredPartitioning:
		return &Descriptor{
			Columns:      append([]string(nil), p.Columns...),
			IntervalType: IntervalTypeColumnValue,
		}, true
	default:
		return nil, false
	}
}

func FullyQualifiedName(schemaName, tableName string) string {
	if schemaName == "" {
		return tableName
	}
	return schemaName + "." + tableName
}
