// Package catalog provides the static table of medicines recommended for common skin conditions.
// The table is declared in an embedded YAML document, parsed once at startup and never mutated
// afterwards, so it can be shared by every request without locking.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/giygas/dermacare-api/catalog/entities"
	"github.com/giygas/dermacare-api/interfaces"
	"gopkg.in/yaml.v3"
)

// Compile-time check to ensure Catalog implements the MedicineCatalog interface
var _ interfaces.MedicineCatalog = (*Catalog)(nil)

//go:embed medicines.yaml
var medicinesYAML []byte

// DefaultKey is the condition used when no catalog key appears in the analysed text
const DefaultKey = "dermatitis"

// document mirrors the layout of medicines.yaml
type document struct {
	Default    string               `yaml:"default"`
	Conditions []entities.Condition `yaml:"conditions"`
}

// Catalog is an ordered, read-only mapping from condition key to medicine records
type Catalog struct {
	conditions []entities.Condition
	index      map[string]int
	defaultKey string
}

// Default returns the process-wide catalog decoded from the embedded medicines.yaml
var Default = sync.OnceValues(func() (*Catalog, error) {
	return Parse(medicinesYAML)
})

// Parse builds a catalog from a YAML document. Keys are normalised to lower case and
// keep their declaration order, which decides ties in Recommend.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode medicine catalog: %w", err)
	}

	if len(doc.Conditions) == 0 {
		return nil, errors.New("medicine catalog has no conditions")
	}

	defaultKey := strings.ToLower(strings.TrimSpace(doc.Default))
	if defaultKey == "" {
		defaultKey = DefaultKey
	}

	c := &Catalog{
		conditions: make([]entities.Condition, 0, len(doc.Conditions)),
		index:      make(map[string]int, len(doc.Conditions)),
		defaultKey: defaultKey,
	}

	for _, cond := range doc.Conditions {
		key := strings.ToLower(strings.TrimSpace(cond.Key))
		if _, exists := c.index[key]; exists {
			return nil, fmt.Errorf("duplicate condition key %q in medicine catalog", key)
		}
		medicines := cond.Medicines
		if medicines == nil {
			medicines = []entities.MedicineRecord{}
		}
		c.index[key] = len(c.conditions)
		c.conditions = append(c.conditions, entities.Condition{Key: key, Medicines: medicines})
	}

	return c, nil
}

// Recommend scans the text for the first catalog key, in declaration order, that appears as a
// substring and returns its medicines. When nothing matches the default condition is used.
// Text mentioning several conditions only ever yields the first declared one.
func (c *Catalog) Recommend(text string) []entities.MedicineRecord {
	lowered := strings.ToLower(text)

	for _, cond := range c.conditions {
		if strings.Contains(lowered, cond.Key) {
			return slices.Clone(cond.Medicines)
		}
	}

	return c.LookupByExactKey(c.defaultKey)
}

// LookupByExactKey returns the medicines for a condition key (case-insensitive exact match).
// Unknown keys yield an empty, non-nil slice.
func (c *Catalog) LookupByExactKey(condition string) []entities.MedicineRecord {
	i, ok := c.index[strings.ToLower(condition)]
	if !ok {
		return []entities.MedicineRecord{}
	}

	return slices.Clone(c.conditions[i].Medicines)
}

// Keys returns the condition keys in declaration order
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.conditions))
	for i, cond := range c.conditions {
		keys[i] = cond.Key
	}
	return keys
}

// DefaultCondition returns the key used when Recommend finds no match
func (c *Catalog) DefaultCondition() string {
	return c.defaultKey
}

// Conditions returns a deep copy of every catalog entry, used for validation
func (c *Catalog) Conditions() []entities.Condition {
	out := make([]entities.Condition, len(c.conditions))
	for i, cond := range c.conditions {
		out[i] = entities.Condition{Key: cond.Key, Medicines: slices.Clone(cond.Medicines)}
	}
	return out
}

// Len returns the number of conditions in the catalog
func (c *Catalog) Len() int {
	return len(c.conditions)
}
