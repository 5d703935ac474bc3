package logfield

const (
	Schema                 = "schema"
	TableName              = "tableName"
	FullyQualifiedName     = "fullyQualifiedName"
	ProjectID              = "projectID"
	Warehouse              = "warehouse"
	IntervalType           = "intervalType"
	Interval               = "interval"
	PartitionColumns       = "partitionColumns"
	PartitionField         = "partitionField"
	PartitionQueryDuration = "partitionQueryDuration"
	PartitionValues        = "partitionValues"
	Descriptor             = "descriptor"
	Outcome                = "outcome"
	Attempt                = "attempt"
	RetryAfter             = "retryAfter"
	Source                 = "source"
	ClusteringKey          = "clusteringKey"
)
