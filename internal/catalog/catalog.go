// Package catalog holds reference descriptions for ICD-10, CPT and HCPCS codes.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/medcoding/api/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed codes.yaml
var defaultCodes []byte

// ErrCodeNotFound is returned when a code is not in the catalog.
var ErrCodeNotFound = errors.New("code not found")

// Entry is one catalog code.
type Entry struct {
	Code        string          `yaml:"code" json:"code"`
	Description string          `yaml:"description" json:"description"`
	CodeType    models.CodeType `yaml:"type" json:"code_type"`
}

type catalogFile struct {
	Codes []Entry `yaml:"codes"`
}

// Catalog is an immutable, indexed set of entries.
type Catalog struct {
	entries []Entry
	byCode  map[string]Entry
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(defaultCodes)
}

// Parse builds a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{byCode: make(map[string]Entry, len(file.Codes))}
	for i, e := range file.Codes {
		e.Code = normalize(e.Code)
		if e.Code == "" {
			return nil, fmt.Errorf("catalog entry %d has no code", i)
		}
		if !e.CodeType.Valid() {
			return nil, fmt.Errorf("catalog entry %s has unknown type %q", e.Code, e.CodeType)
		}
		if _, dup := c.byCode[e.Code]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %s", e.Code)
		}
		c.byCode[e.Code] = e
		c.entries = append(c.entries, e)
	}

	sort.Slice(c.entries, func(i, j int) bool {
		if c.entries[i].CodeType != c.entries[j].CodeType {
			return c.entries[i].CodeType < c.entries[j].CodeType
		}
		return c.entries[i].Code < c.entries[j].Code
	})
	return c, nil
}

// Lookup finds a code, ignoring case and surrounding whitespace.
func (c *Catalog) Lookup(code string) (Entry, error) {
	e, ok := c.byCode[normalize(code)]
	if !ok {
		return Entry{}, ErrCodeNotFound
	}
	return e, nil
}

// List returns entries of the given type, or all entries when codeType is empty.
func (c *Catalog) List(codeType models.CodeType) []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if codeType == "" || e.CodeType == codeType {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
