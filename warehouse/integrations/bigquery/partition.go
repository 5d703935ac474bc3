package bigquery

import (
	"cloud.google.com/go/bigquery"

	"github.com/rudderlabs/profiler-partitions/warehouse/partition"
)

// tableMetadata keeps only the partitioning related parts of the BigQuery
// table metadata. BigQuery reports an empty field for ingestion-time
// partitioning and an empty type for daily partitioning.
func tableMetadata(metadata *bigquery.TableMetadata) *partition.TableMetadata {
	if metadata == nil {
		return &partition.TableMetadata{}
	}

	var tm partition.TableMetadata
	if tp := metadata.TimePartitioning; tp != nil {
		tm.TimePartitioning = &partition.TimePartitioning{
			Granularity: granularity(tp.Type),
		}
		if tp.Field != "" {
			field := tp.Field
			tm.TimePartitioning.Field = &field
		}
	}
	if rp := metadata.RangePartitioning; rp != nil {
		tm.RangePartitioning = &partition.RangePartitioning{
			Field: rp.Field,
		}
		if rp.Range != nil {
			tm.RangePartitioning.Start = rp.Range.Start
			tm.RangePartitioning.End = rp.Range.End
			tm.RangePartitioning.Interval = rp.Range.Interval
		}
	}
	if c := metadata.Clustering; c != nil && len(c.Fields) > 0 {
		tm.Clustering = &partition.Clustering{
			Columns: c.Fields,
		}
	}
	return &tm
}

func granularity(partitionType bigquery.TimePartitioningType) partition.Granularity {
	if partitionType == "" {
		return partition.Granularity(bigquery.DayPartitioningType)
	}
	return partition.Granularity(partitionType)
}
