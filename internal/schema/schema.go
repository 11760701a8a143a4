// Package schema builds bleve index mappings from declared field
// configurations and registers the two custom analyzers every index needs.
package schema

import (
	"fmt"

	"github.com/blevesearch/bleve/v2/mapping"

	_ "github.com/blevesearch/bleve/v2/analysis/lang/no" // registers the "stemmer_no_snowball" token filter
)

// FieldType enumerates the field kinds a schema may declare.
type FieldType string

const (
	FieldText   FieldType = "text"
	FieldString FieldType = "string"
	FieldI64    FieldType = "i64"
	FieldF64    FieldType = "f64"
	FieldDate   FieldType = "date"
	FieldJSON   FieldType = "json"
)

// Analyzer names recognized for text fields.
const (
	AnalyzerDefault   = "default"
	AnalyzerNorwegian = "norwegian"
	AnalyzerRaw       = "raw"
)

// IDField is the implicit primary-key field every index carries.
const IDField = "id"

// FieldConfig declares one field of an index's schema.
type FieldConfig struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Stored   bool      `json:"stored"`
	Indexed  bool      `json:"indexed"`
	Analyzer string    `json:"analyzer,omitempty"`
	Fast     bool      `json:"fast"`
}

// Schema is an ordered list of declared fields plus the implicit id field.
type Schema struct {
	Fields []FieldConfig
}

// FieldByName looks up a declared field by name, including the implicit id field.
func (s Schema) FieldByName(name string) (FieldConfig, bool) {
	if name == IDField {
		return FieldConfig{Name: IDField, Type: FieldString, Stored: true, Indexed: true}, true
	}
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldConfig{}, false
}

// TextFields returns the names of every declared text field, in declaration order.
func (s Schema) TextFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Type == FieldText {
			out = append(out, f.Name)
		}
	}
	return out
}

// registerAnalyzers adds the "norwegian" and "raw" custom analyzers to m.
// Must be called on every mapping used to create or open an index, so both
// freshly created and rehydrated indexes agree on the analyzer set.
func registerAnalyzers(m *mapping.IndexMappingImpl) error {
	if err := m.AddCustomAnalyzer(AnalyzerNorwegian, map[string]any{
		"type":          "custom",
		"tokenizer":     "unicode",
		"token_filters": []string{"to_lower", "stemmer_no_snowball"},
	}); err != nil {
		return fmt.Errorf("register norwegian analyzer: %w", err)
	}
	if err := m.AddCustomAnalyzer(AnalyzerRaw, map[string]any{
		"type":      "custom",
		"tokenizer": "single",
	}); err != nil {
		return fmt.Errorf("register raw analyzer: %w", err)
	}
	return nil
}

// Build constructs a bleve index mapping from fields in declaration order,
// registering both custom analyzers first so field mappings can reference them.
func Build(fields []FieldConfig) (*mapping.IndexMappingImpl, error) {
	im := mapping.NewIndexMapping()
	im.DefaultMapping = mapping.NewDocumentStaticMapping()
	im.TypeField = "_type"

	if err := registerAnalyzers(im); err != nil {
		return nil, err
	}

	doc := im.DefaultMapping
	doc.AddFieldMappingsAt(IDField, idFieldMapping())

	for _, f := range fields {
		fm, err := fieldMapping(f)
		if err != nil {
			return nil, err
		}
		doc.AddFieldMappingsAt(f.Name, fm)
	}

	return im, nil
}

func idFieldMapping() *mapping.FieldMapping {
	fm := mapping.NewTextFieldMapping()
	fm.Analyzer = AnalyzerRaw
	fm.Store = true
	fm.Index = true
	fm.IncludeInAll = false
	return fm
}

func fieldMapping(f FieldConfig) (*mapping.FieldMapping, error) {
	switch f.Type {
	case FieldText:
		fm := mapping.NewTextFieldMapping()
		switch f.Analyzer {
		case "", AnalyzerDefault:
			// leave the mapping's analyzer unset; bleve falls back to "standard"
		case AnalyzerNorwegian, AnalyzerRaw:
			fm.Analyzer = f.Analyzer
		default:
			return nil, fmt.Errorf("unsupported analyzer %q for field %q", f.Analyzer, f.Name)
		}
		fm.Store = f.Stored
		fm.Index = f.Indexed
		fm.DocValues = f.Fast
		return fm, nil

	case FieldString:
		fm := mapping.NewTextFieldMapping()
		fm.Analyzer = AnalyzerRaw
		fm.Store = f.Stored
		fm.Index = f.Indexed
		fm.DocValues = f.Fast
		return fm, nil

	case FieldI64, FieldF64:
		fm := mapping.NewNumericFieldMapping()
		fm.Store = f.Stored
		fm.Index = f.Indexed
		fm.DocValues = f.Fast
		return fm, nil

	case FieldDate:
		fm := mapping.NewDateTimeFieldMapping()
		fm.Store = f.Stored
		fm.Index = f.Indexed
		fm.DocValues = f.Fast
		return fm, nil

	case FieldJSON:
		// json fields are stored as their marshaled text, indexed as a single
		// raw token; fast applies to that raw value column.
		fm := mapping.NewTextFieldMapping()
		fm.Analyzer = AnalyzerRaw
		fm.Store = f.Stored
		fm.Index = f.Indexed
		fm.DocValues = f.Fast
		return fm, nil

	default:
		return nil, fmt.Errorf("unsupported field type %q for field %q", f.Type, f.Name)
	}
}
