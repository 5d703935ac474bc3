//go:generate mockgen -destination=../../mocks/warehouse/partition/mock_partition.go -package=mock_partition github.com/rudderlabs/profiler-partitions/warehouse/partition MetadataFetcher

package partition

import (
	"context"
	"fmt"
	"strings"
)

// MetadataFetcher returns the native metadata of a table identified by its
// fully qualified name.
type MetadataFetcher interface {
	FetchTableMetadata(ctx context.Context, fqn string) (*TableMetadata, error)
}

// FetchFunc adapts a plain function to a MetadataFetcher.
type FetchFunc func(ctx context.Context, fqn string) (*TableMetadata, error)

func (f FetchFunc) FetchTableMetadata(ctx context.Context, fqn string) (*TableMetadata, error) {
	return f(ctx, fqn)
}

// TableMetadata is the partitioning information a warehouse exposes for a table.
// Every mode is optional.
type TableMetadata struct {
	TimePartitioning  *TimePartitioning
	RangePartitioning *RangePartitioning
	Clustering        *Clustering
}

type TimePartitioning struct {
	// Field is nil for ingestion-time partitioning.
	Field       *string
	Granularity Granularity
}

type RangePartitioning struct {
	Field    string
	Start    int64
	End      int64
	Interval int64
}

type Clustering struct {
	Columns []string
}

// Partitioning is the native partitioning mode of a table. It is one of
// NoPartitioning, TimeUnitPartitioning, IngestionTimePartitioning,
// IntegerRangePartitioning or ClusteredPartitioning.
type Partitioning interface {
	partitioning()
}

type NoPartitioning struct{}

type TimeUnitPartitioning struct {
	Column      string
	Granularity Granularity
}

type IngestionTimePartitioning struct {
	Granularity Granularity
}

type IntegerRangePartitioning struct {
	Column   string
	Start    int64
	End      int64
	Interval int64
}

type ClusteredPartitioning struct {
	Columns []string
}

func (NoPartitioning) partitioning()            {}
func (TimeUnitPartitioning) partitioning()      {}
func (IngestionTimePartitioning) partitioning() {}
func (IntegerRangePartitioning) partitioning()  {}
func (ClusteredPartitioning) partitioning()     {}

// Partitioning picks the active partitioning mode. A table is expected to
// expose at most one mode, the first match wins:
// time partitioning with a column, time partitioning without one, integer
// range, clustering. An invalid mode is returned along with its error.
func (m *TableMetadata) Partitioning() (Partitioning, error) {
	if m == nil {
		return NoPartitioning{}, nil
	}

	switch {
	case m.TimePartitioning != nil && m.TimePartitioning.Field != nil:
		p := TimeUnitPartitioning{
			Column:      *m.TimePartitioning.Field,
			Granularity: m.TimePartitioning.Granularity,
		}
		if strings.TrimSpace(p.Column) == "" {
			return p, fmt.Errorf("%w: time partitioning names an empty column", ErrInvalidPartitionDescriptor)
		}
		return p, nil
	case m.TimePartitioning != nil:
		return IngestionTimePartitioning{
			Granularity: m.TimePartitioning.Granularity,
		}, nil
	case m.RangePartitioning != nil:
		return IntegerRangePartitioning{
			Column:   m.RangePartitioning.Field,
			Start:    m.RangePartitioning.Start,
			End:      m.RangePartitioning.End,
			Interval: m.RangePartitioning.Interval,
		}, nil
	case m.Clustering != nil && len(m.Clustering.Columns) > 0:
		return ClusteredPartitioning{
			Columns: m.Clustering.Columns,
		}, nil
	default:
		return NoPartitioning{}, nil
	}
}
