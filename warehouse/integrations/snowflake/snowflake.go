package snowflake

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	snowflake "github.com/snowflakedb/gosnowflake"

	"github.com/rudderlabs/rudder-go-kit/config"
	"github.com/rudderlabs/rudder-go-kit/logger"

	"github.com/rudderlabs/profiler-partitions/warehouse/logfield"
	"github.com/rudderlabs/profiler-partitions/warehouse/partition"
)

var errInvalidTableName = errors.New("invalid table name")

type Credentials struct {
	Account   string
	Warehouse string
	Database  string
	User      string
	Password  string
	Role      string
	Timeout   time.Duration
}

func Connect(cred Credentials) (*sql.DB, error) {
	urlConfig := snowflake.Config{
		Account:     cred.Account,
		User:        cred.User,
		Password:    cred.Password,
		Database:    cred.Database,
		Warehouse:   cred.Warehouse,
		Role:        cred.Role,
		Application: "Rudderstack_Profiler",
	}
	if cred.Timeout > 0 {
		urlConfig.LoginTimeout = cred.Timeout
	}

	dsn, err := snowflake.DSN(&urlConfig)
	if err != nil {
		return nil, fmt.Errorf("constructing dsn: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}
	return db, nil
}

// Snowflake reads clustering keys from the information schema and reports
// them as column value partitioning.
type Snowflake struct {
	db     *sql.DB
	logger logger.Logger

	config struct {
		queryTimeout time.Duration
	}
}

func New(conf *config.Config, log logger.Logger, db *sql.DB) *Snowflake {
	sf := &Snowflake{
		db:     db,
		logger: log.Child("integrations").Child("snowflake"),
	}
	sf.config.queryTimeout = conf.GetDuration("Profiler.snowflake.queryTimeout", 30, time.Second)
	return sf
}

// FetchTableMetadata accepts schema.table or database.schema.table names.
func (sf *Snowflake) FetchTableMetadata(ctx context.Context, fqn string) (*partition.TableMetadata, error) {
	query, args, err := clusteringKeyQuery(fqn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, sf.config.queryTimeout)
	defer cancel()

	var clusteringKey sql.NullString
	err = sf.db.QueryRowContext(ctx, query, args...).Scan(&clusteringKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", partition.ErrTableNotFound, fqn)
	}
	if err != nil {
		return nil, fmt.Errorf("querying clustering key for %s: %w", fqn, err)
	}
	if !clusteringKey.Valid || strings.TrimSpace(clusteringKey.String) == "" {
		return &partition.TableMetadata{}, nil
	}

	columns := ParseClusteringKey(clusteringKey.String)
	sf.logger.Debugn("Parsed clustering key",
		logger.NewStringField(logfield.FullyQualifiedName, fqn),
		logger.NewStringField(logfield.ClusteringKey, clusteringKey.String),
		logger.NewStringField(logfield.PartitionColumns, strings.Join(columns, ",")),
	)
	return &partition.TableMetadata{
		Clustering: &partition.Clustering{Columns: columns},
	}, nil
}

// clusteringKeyQuery resolves schema.table or database.schema.table names.
// Unquoted parts are matched upper cased, as Snowflake stores them.
func clusteringKeyQuery(fqn string) (string, []any, error) {
	parts, err := splitIdentifier(fqn)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %q: %v", errInvalidTableName, fqn, err)
	}

	var from, schemaName, tableName string
	switch len(parts) {
	case 2:
		from, schemaName, tableName = "information_schema.tables", parts[0], parts[1]
	case 3:
		from, schemaName, tableName = quoteIdentifier(parts[0])+".information_schema.tables", parts[1], parts[2]
	default:
		return "", nil, fmt.Errorf("%w: %q", errInvalidTableName, fqn)
	}

	return sq.Select("clustering_key").
		From(from).
		Where(sq.Eq{"table_schema": schemaName}).
		Where(sq.Eq{"table_name": tableName}).
		ToSql()
}
