package partition

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPartitionDescriptor = errors.New("invalid partition descriptor")
	ErrUnsupportedPartition       = errors.New("unsupported partition type")
	ErrInvalidLookback            = errors.New("lookback days must be positive")
	ErrTableNotFound              = errors.New("table not found")
)

// MetadataFetchError is returned by Detect when the table metadata could not be
// fetched from the warehouse. It is never used for tables without partitioning.
type MetadataFetchError struct {
	Table string
	Err   error
}

func (e *MetadataFetchError) Error() string {
	return fmt.Sprintf("fetching metadata for table %s: %v", e.Table, e.Err)
}

func (e *MetadataFetchError) Unwrap() error {
	return e.Err
}
