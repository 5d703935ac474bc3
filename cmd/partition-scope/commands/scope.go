package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/rudderlabs/rudder-go-kit/config"
	"github.com/rudderlabs/rudder-go-kit/logger"
	"github.com/rudderlabs/rudder-go-kit/stats"

	"github.com/rudderlabs/profiler-partitions/warehouse/integrations/bigquery"
	"github.com/rudderlabs/profiler-partitions/warehouse/integrations/snowflake"
	"github.com/rudderlabs/profiler-partitions/warehouse/partition"
	"github.com/rudderlabs/profiler-partitions/warehouse/profiler"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var DefaultList []*cli.Command

func init() {
	DefaultList = append(DefaultList, Scope())
}

func Scope() *cli.Command {
	return &cli.Command{
		Name:      "scope",
		Usage:     "resolve the partition query window of tables",
		ArgsUsage: "<schema.table>...",
		Action:    scope,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "warehouse",
				Usage:    "bigquery or snowflake",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "table-config",
				Usage: "path to a YAML file with per table overrides",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print results as JSON",
			},
			&cli.StringFlag{
				Name:  "project",
				Usage: "BigQuery project ID",
			},
			&cli.StringFlag{
				Name:  "credentials",
				Usage: "path to the BigQuery service account JSON",
			},
			&cli.StringFlag{Name: "account", Usage: "Snowflake account"},
			&cli.StringFlag{Name: "user", Usage: "Snowflake user"},
			&cli.StringFlag{Name: "password", Usage: "Snowflake password", EnvVars: []string{"SNOWFLAKE_PASSWORD"}},
			&cli.StringFlag{Name: "database", Usage: "Snowflake database"},
			&cli.StringFlag{Name: "sf-warehouse", Usage: "Snowflake warehouse"},
			&cli.StringFlag{Name: "role", Usage: "Snowflake role"},
		},
	}
}

func scope(c *cli.Context) error {
	tables, err := parseTables(c.Args().Slice())
	if err != nil {
		return err
	}

	conf := config.New()
	log := logger.NewFactory(conf).NewLogger().Child("partition-scope")

	var tableConfigs profiler.TableConfigs
	if path := c.String("table-config"); path != "" {
		if tableConfigs, err = profiler.LoadTableConfigs(path); err != nil {
			return err
		}
	}

	dialect := partition.Dialect(strings.ToLower(c.String("warehouse")))
	fetcher, closeFn, err := newFetcher(c.Context, c, conf, log, dialect)
	if err != nil {
		return err
	}
	defer closeFn()

	s, err := profiler.New(conf, log, stats.NOP, fetcher, dialect, tableConfigs)
	if err != nil {
		return err
	}

	results, err := s.Scope(c.Context, tables)
	if err != nil {
		return err
	}
	return render(os.Stdout, results, c.Bool("json"))
}

func newFetcher(
	ctx context.Context,
	c *cli.Context,
	conf *config.Config,
	log logger.Logger,
	dialect partition.Dialect,
) (partition.MetadataFetcher, func(), error) {
	switch dialect {
	case partition.DialectBigQuery:
		projectID := c.String("project")
		if projectID == "" {
			return nil, nil, errors.New("--project is required for bigquery")
		}

		var credentials string
		if path := c.String("credentials"); path != "" {
			content, err := os.ReadFile(path)
			if err != nil {
				return nil, nil, fmt.Errorf("reading credentials: %w", err)
			}
			credentials = string(content)
		}

		client, err := bigquery.Connect(ctx, &bigquery.BQCredentials{
			ProjectID:   projectID,
			Credentials: credentials,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to bigquery: %w", err)
		}
		return bigquery.New(conf, log, client, projectID), func() { _ = client.Close() }, nil
	case partition.DialectSnowflake:
		db, err := snowflake.Connect(snowflake.Credentials{
			Account:   c.String("account"),
			User:      c.String("user"),
			Password:  c.String("password"),
			Database:  c.String("database"),
			Warehouse: c.String("sf-warehouse"),
			Role:      c.String("role"),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to snowflake: %w", err)
		}
		return snowflake.New(conf, log, db), func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported warehouse: %q", dialect)
	}
}

// parseTables splits each argument on its last dot, so BigQuery names may
// carry the project: project.dataset.table.
func parseTables(args []string) ([]profiler.Table, error) {
	if len(args) == 0 {
		return nil, errors.New("need to specify at least one table")
	}

	tables := make([]profiler.Table, 0, len(args))
	for _, arg := range lo.Uniq(args) {
		i := strings.LastIndex(arg, ".")
		if i <= 0 || i == len(arg)-1 {
			return nil, fmt.Errorf("invalid table name %q, expected schema.table", arg)
		}
		tables = append(tables, profiler.Table{Schema: arg[:i], Name: arg[i+1:]})
	}
	return tables, nil
}

type resultView struct {
	profiler.Result
	Error string `json:"error,omitempty"`
}

func render(w io.Writer, results []profiler.Result, asJSON bool) error {
	if asJSON {
		views := lo.Map(results, func(r profiler.Result, _ int) resultView {
			v := resultView{Result: r}
			if r.Err != nil {
				v.Error = r.Err.Error()
			}
			return v
		})
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(views)
	}

	header := []string{"Table", "Outcome", "Interval Type", "Partition Field", "Duration", "Step", "Values", "Error"}

	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	var headerColors []tablewriter.Colors
	for range header {
		headerColors = append(headerColors, tablewriter.Colors{tablewriter.Bold, tablewriter.BgCyanColor})
	}
	table.SetHeaderColor(headerColors...)

	for _, r := range results {
		row := make([]string, len(header))
		row[0] = r.Table.FullyQualifiedName()
		row[1] = string(r.Outcome)
		if r.Descriptor != nil {
			row[2] = string(r.Descriptor.IntervalType)
		}
		if r.FromConfig {
			row[2] = "config"
		}
		if r.Window != nil {
			row[3] = r.Window.PartitionField
			if r.Window.PartitionQueryDuration > 0 {
				row[4] = strconv.Itoa(r.Window.PartitionQueryDuration)
			}
			if r.Window.PartitionIntervalStep > 0 {
				row[5] = strconv.FormatInt(r.Window.PartitionIntervalStep, 10)
			}
			if len(r.Window.PartitionValues) > 0 {
				row[6] = strings.Join(lo.Map(r.Window.PartitionValues, func(v int64, _ int) string {
					return strconv.FormatInt(v, 10)
				}), ",")
			}
		}
		if r.Err != nil {
			row[7] = r.Err.Error()
		}
		table.Append(row)
	}
	table.Render()
	return nil
}
