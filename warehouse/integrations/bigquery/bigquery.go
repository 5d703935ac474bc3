package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/cenkalti/backoff/v4"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/rudderlabs/rudder-go-kit/config"
	"github.com/rudderlabs/rudder-go-kit/googleutil"
	"github.com/rudderlabs/rudder-go-kit/logger"
	obskit "github.com/rudderlabs/rudder-observability-kit/go/labels"

	"github.com/rudderlabs/profiler-partitions/warehouse/logfield"
	"github.com/rudderlabs/profiler-partitions/warehouse/partition"
)

var errInvalidTableName = errors.New("invalid table name")

var retryableStatusCodes = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

type tableMetadataFunc func(ctx context.Context, projectID, datasetID, tableID string) (*bigquery.TableMetadata, error)

// BigQuery fetches table partitioning metadata from BigQuery.
type BigQuery struct {
	projectID     string
	logger        logger.Logger
	tableMetadata tableMetadataFunc

	config struct {
		maxRetries           int
		initialRetryInterval time.Duration
		maxRetryInterval     time.Duration
	}
}

func New(conf *config.Config, log logger.Logger, db *bigquery.Client, projectID string) *BigQuery {
	bq := &BigQuery{
		projectID: projectID,
		logger:    log.Child("integrations").Child("bigquery"),
	}
	bq.tableMetadata = func(ctx context.Context, projectID, datasetID, tableID string) (*bigquery.TableMetadata, error) {
		return db.DatasetInProject(projectID, datasetID).Table(tableID).Metadata(ctx)
	}

	bq.config.maxRetries = conf.GetInt("Profiler.bigquery.maxRetries", 3)
	bq.config.initialRetryInterval = conf.GetDuration("Profiler.bigquery.initialRetryInterval", 500, time.Millisecond)
	bq.config.maxRetryInterval = conf.GetDuration("Profiler.bigquery.maxRetryInterval", 10, time.Second)
	return bq
}

// FetchTableMetadata accepts dataset.table or project.dataset.table names.
// Rate limits and server errors are retried with an exponential backoff.
func (bq *BigQuery) FetchTableMetadata(ctx context.Context, fqn string) (*partition.TableMetadata, error) {
	projectID, datasetID, tableID, err := bq.splitTableName(fqn)
	if err != nil {
		return nil, err
	}

	var (
		metadata *bigquery.TableMetadata
		attempt  int
	)
	operation := func() error {
		attempt++

		var err error
		metadata, err = bq.tableMetadata(ctx, projectID, datasetID, tableID)
		if err != nil {
			return classifyError(err)
		}
		return nil
	}
	notify := func(err error, retryAfter time.Duration) {
		bq.logger.Warnn("Retrying table metadata fetch",
			logger.NewStringField(logfield.FullyQualifiedName, fqn),
			logger.NewIntField(logfield.Attempt, int64(attempt)),
			logger.NewDurationField(logfield.RetryAfter, retryAfter),
			obskit.Error(err),
		)
	}
	if err := backoff.RetryNotify(operation, bq.retryPolicy(ctx), notify); err != nil {
		return nil, fmt.Errorf("table metadata %s.%s.%s: %w", projectID, datasetID, tableID, err)
	}
	return tableMetadata(metadata), nil
}

func (bq *BigQuery) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = bq.config.initialRetryInterval
	b.MaxInterval = bq.config.maxRetryInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(bq.config.maxRetries, 0))), ctx)
}

func (bq *BigQuery) splitTableName(fqn string) (projectID, datasetID, tableID string, err error) {
	parts := strings.Split(strings.Trim(fqn, "`"), ".")
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return "", "", "", fmt.Errorf("%w: %q", errInvalidTableName, fqn)
		}
	}

	switch len(parts) {
	case 2:
		if bq.projectID == "" {
			return "", "", "", fmt.Errorf("%w: %q needs a project", errInvalidTableName, fqn)
		}
		return bq.projectID, parts[0], parts[1], nil
	case 3:
		return parts[0], parts[1], parts[2], nil
	default:
		return "", "", "", fmt.Errorf("%w: %q", errInvalidTableName, fqn)
	}
}

// classifyError marks every error that retrying cannot fix as permanent.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return backoff.Permanent(err)
	}

	var e *googleapi.Error
	if !errors.As(err, &e) {
		return err
	}
	if e.Code == http.StatusNotFound {
		return backoff.Permanent(fmt.Errorf("%w: %v", partition.ErrTableNotFound, err))
	}
	if _, ok := retryableStatusCodes[e.Code]; ok {
		return err
	}
	return backoff.Permanent(err)
}

type BQCredentials struct {
	ProjectID   string
	Credentials string
}

// Connect builds a BigQuery client for the project. Credentials are skipped
// when they are expected to come from the environment.
func Connect(ctx context.Context, cred *BQCredentials) (*bigquery.Client, error) {
	var opts []option.ClientOption
	if !googleutil.ShouldSkipCredentialsInit(cred.Credentials) {
		credBytes := []byte(cred.Credentials)
		if err := googleutil.CompatibleGoogleCredentialsJSON(credBytes); err != nil {
			return nil, fmt.Errorf("validating credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(credBytes))
	}

	client, err := bigquery.NewClient(ctx, cred.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating client for project %s: %w", cred.ProjectID, err)
	}
	return client, nil
}
