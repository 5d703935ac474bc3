package profiler

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rudderlabs/profiler-partitions/warehouse/partition"
)

// TableConfig overrides the partition scoping of a single table.
type TableConfig struct {
	FullyQualifiedName string `yaml:"fullyQualifiedName"`
	// PartitionConfig, when set, is used as is instead of detecting the partitioning.
	PartitionConfig *partition.QueryWindow `yaml:"partitionConfig"`
	// LookbackDays overrides the configured lookback for detected time based partitions.
	LookbackDays int `yaml:"lookbackDays"`
}

// TableConfigs are keyed by fully qualified table name.
type TableConfigs map[string]TableConfig

type tableConfigFile struct {
	Tables []TableConfig `yaml:"tables"`
}

func (c TableConfigs) Get(fqn string) (TableConfig, bool) {
	tc, ok := c[fqn]
	return tc, ok
}

func LoadTableConfigs(path string) (TableConfigs, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening table configs: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseTableConfigs(f)
}

func ParseTableConfigs(r io.Reader) (TableConfigs, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var file tableConfigFile
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding table configs: %w", err)
	}

	configs := make(TableConfigs, len(file.Tables))
	for i, tc := range file.Tables {
		if tc.FullyQualifiedName == "" {
			return nil, fmt.Errorf("table config %d: missing fullyQualifiedName", i)
		}
		if _, ok := configs[tc.FullyQualifiedName]; ok {
			return nil, fmt.Errorf("table config %s: duplicate entry", tc.FullyQualifiedName)
		}
		if err := validateTableConfig(tc); err != nil {
			return nil, fmt.Errorf("table config %s: %w", tc.FullyQualifiedName, err)
		}
		configs[tc.FullyQualifiedName] = tc
	}
	return configs, nil
}

func validateTableConfig(tc TableConfig) error {
	if tc.LookbackDays < 0 {
		return fmt.Errorf("lookbackDays must not be negative, got %d", tc.LookbackDays)
	}

	pc := tc.PartitionConfig
	if pc == nil {
		return nil
	}
	if pc.PartitionField == "" {
		return errors.New("partitionConfig: missing partitionField")
	}
	if pc.PartitionQueryDuration < 0 {
		return fmt.Errorf("partitionConfig: partitionQueryDuration must not be negative, got %d", pc.PartitionQueryDuration)
	}
	if pc.PartitionQueryDuration == 0 && len(pc.PartitionValues) == 0 {
		return errors.New("partitionConfig: either partitionQueryDuration or partitionValues is required")
	}
	if n := len(pc.PartitionValues); n != 0 && (n != 2 || pc.PartitionValues[0] >= pc.PartitionValues[1]) {
		return fmt.Errorf("partitionConfig: partitionValues must be a [lower, upper) pair, got %v", pc.PartitionValues)
	}
	return nil
}
