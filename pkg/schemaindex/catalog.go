// Package schemaindex owns the read-only semantic index over table
// descriptions: a YAML catalog of TableDescriptors and a chromem-backed
// vector store built offline and searched at query time.
package schemaindex

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/datasage-io/datasage-engine/pkg/models"
)

// Catalog holds the TableDescriptors loaded from the schema catalog file.
// It is built once at startup and read concurrently without locking.
type Catalog struct {
	descriptors []models.TableDescriptor
	byID        map[string]models.TableDescriptor
}

type catalogFile struct {
	Tables []models.TableDescriptor `yaml:"tables"`
}

// LoadCatalog reads and validates the schema catalog YAML.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses catalog YAML content.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Tables) == 0 {
		return nil, fmt.Errorf("catalog contains no tables")
	}

	byID := make(map[string]models.TableDescriptor, len(file.Tables))
	for _, d := range file.Tables {
		if d.Database == "" || d.Table == "" {
			return nil, fmt.Errorf("catalog entry missing database or table name")
		}
		id := d.ID()
		if _, dup := byID[id]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %s", id)
		}
		byID[id] = d
	}

	return &Catalog{descriptors: file.Tables, byID: byID}, nil
}

// Descriptors returns all descriptors in stable catalog order.
func (c *Catalog) Descriptors() []models.TableDescriptor {
	return c.descriptors
}

// ByID looks up a descriptor by its "database.table" identifier.
func (c *Catalog) ByID(id string) (models.TableDescriptor, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// KnownTables returns the set of bare table names across all databases,
// lowercased, for the validator's table-existence layer.
func (c *Catalog) KnownTables() map[string]bool {
	known := make(map[string]bool, len(c.descriptors))
	for _, d := range c.descriptors {
		known[strings.ToLower(d.Table)] = true
	}
	return known
}

// Len returns the number of descriptors.
func (c *Catalog) Len() int {
	return len(c.descriptors)
}

// DescriptorDocument renders a descriptor as the text that gets embedded.
// Format is stable: changing it invalidates the persisted index.
func DescriptorDocument(d models.TableDescriptor) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Table %s in database %s.\n", d.Table, d.Database)
	if d.Description != "" {
		sb.WriteString(d.Description)
		sb.WriteString("\n")
	}

	if len(d.Columns) > 0 {
		sb.WriteString("Columns:\n")
		for _, col := range d.Columns {
			fmt.Fprintf(&sb, "- %s (%s): %s\n", col.Name, col.Type, col.Description)
		}
	}

	if len(d.Relationships) > 0 {
		sb.WriteString("Relationships:\n")
		for _, rel := range d.Relationships {
			fmt.Fprintf(&sb, "- %s\n", rel)
		}
	}

	if len(d.ExampleQueries) > 0 {
		sb.WriteString("Example questions:\n")
		for _, q := range d.ExampleQueries {
			fmt.Fprintf(&sb, "- %s\n", q)
		}
	}

	return sb.String()
}
