// ABOUTME: Built-in attribute configuration
// ABOUTME: YAML-loaded per-type attribute sets with defaults

package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config declares the built-in attributes available per entity type. The
// reserved "schema" attribute is appended automatically when absent.
type Config struct {
	Types map[EntityType][]Attribute `yaml:"types"`
}

// DefaultConfig returns the stock portal attribute set.
func DefaultConfig() *Config {
	return &Config{
		Types: map[EntityType][]Attribute{
			TypeProject: {
				{ID: "name", FullName: "Name", DataType: DataString},
				{ID: "description", FullName: "Description", DataType: DataString},
				{ID: "principalInvestigator", FullName: "Principal Investigator", DataType: DataString,
					NestedTarget: []string{"fullname"}},
				{ID: "institution", FullName: "Institution", DataType: DataCategorical,
					NestedTarget: []string{"name"}},
				{ID: "startDate", FullName: "Start Date", DataType: DataDatetime},
				{ID: "endDate", FullName: "End Date", DataType: DataDatetime},
			},
			TypeExperiment: {
				{ID: "title", FullName: "Title", DataType: DataString},
				{ID: "description", FullName: "Description", DataType: DataString},
				{ID: "createdDate", FullName: "Created Date", DataType: DataDatetime},
				{ID: "updateTime", FullName: "Last Updated", DataType: DataDatetime},
				{ID: "createdBy", FullName: "Created By", DataType: DataString,
					NestedTarget: []string{"username"}},
			},
			TypeDataset: {
				{ID: "description", FullName: "Description", DataType: DataString},
				{ID: "createdTime", FullName: "Created Time", DataType: DataDatetime},
				{ID: "modifiedTime", FullName: "Modified Time", DataType: DataDatetime},
				{ID: "instrument", FullName: "Instrument", DataType: DataCategorical,
					NestedTarget: []string{"name"}},
			},
			TypeDatafile: {
				{ID: "filename", FullName: "Filename", DataType: DataString},
				{ID: "fileExtension", FullName: "File Extension", DataType: DataCategorical},
				{ID: "size", FullName: "Size", DataType: DataNumeric},
				{ID: "createdTime", FullName: "Created Time", DataType: DataDatetime},
				{ID: "modificationTime", FullName: "Modification Time", DataType: DataDatetime},
			},
		},
	}
}

// LoadConfig reads and validates an attribute configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks type keys, attribute ids and data kinds.
func (c *Config) Validate() error {
	if len(c.Types) == 0 {
		return fmt.Errorf("config declares no entity types")
	}

	for t, attrs := range c.Types {
		if _, err := ParseEntityType(string(t)); err != nil {
			return err
		}

		seen := make(map[string]bool, len(attrs))
		for _, a := range attrs {
			if a.ID == "" {
				return fmt.Errorf("type %s: attribute with empty id", t)
			}
			if seen[a.ID] {
				return fmt.Errorf("type %s: duplicate attribute %q", t, a.ID)
			}
			seen[a.ID] = true

			if !a.DataType.Valid() {
				return fmt.Errorf("type %s: attribute %q has invalid data type %q", t, a.ID, a.DataType)
			}
		}
	}

	return nil
}

// withReservedAttributes returns the configured attributes for t plus the
// reserved schema attribute when the config does not declare it.
func (c *Config) withReservedAttributes(t EntityType) []Attribute {
	attrs := c.Types[t]
	for _, a := range attrs {
		if a.ID == AttrSchema {
			return attrs
		}
	}
	out := make([]Attribute, len(attrs), len(attrs)+1)
	copy(out, attrs)
	return append(out, Attribute{ID: AttrSchema, FullName: "Schema", DataType: DataCategorical})
}
