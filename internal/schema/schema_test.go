package schema

import "testing"

func TestFieldByNameFindsDeclaredField(t *testing.T) {
	s := Schema{Fields: []FieldConfig{
		{Name: "title", Type: FieldText},
		{Name: "views", Type: FieldI64, Fast: true},
	}}

	fc, ok := s.FieldByName("views")
	if !ok {
		t.Fatal("expected views to be found")
	}
	if fc.Type != FieldI64 || !fc.Fast {
		t.Errorf("FieldByName(views) = %+v, want type i64, fast", fc)
	}
}

func TestFieldByNameFindsImplicitIDField(t *testing.T) {
	s := Schema{}
	fc, ok := s.FieldByName(IDField)
	if !ok {
		t.Fatal("expected implicit id field to be found")
	}
	if fc.Type != FieldString || !fc.Stored || !fc.Indexed {
		t.Errorf("FieldByName(id) = %+v, want stored+indexed string", fc)
	}
}

func TestFieldByNameUnknownFieldNotFound(t *testing.T) {
	s := Schema{Fields: []FieldConfig{{Name: "title", Type: FieldText}}}
	if _, ok := s.FieldByName("nope"); ok {
		t.Error("expected unknown field to be not found")
	}
}

func TestTextFieldsFiltersByType(t *testing.T) {
	s := Schema{Fields: []FieldConfig{
		{Name: "title", Type: FieldText},
		{Name: "views", Type: FieldI64},
		{Name: "body", Type: FieldText},
	}}
	got := s.TextFields()
	want := []string{"title", "body"}
	if len(got) != len(want) {
		t.Fatalf("TextFields() = %v, want %v", got, want)
	}
	for i, name := range want {
		if got[i] != name {
			t.Errorf("TextFields()[%d] = %q, want %q", i, got[i], name)
		}
	}
}

func TestTextFieldsEmptyWhenNoTextFields(t *testing.T) {
	s := Schema{Fields: []FieldConfig{{Name: "views", Type: FieldI64}}}
	if got := s.TextFields(); got != nil {
		t.Errorf("TextFields() = %v, want nil", got)
	}
}

func TestBuildRegistersIDFieldAndDeclaredFields(t *testing.T) {
	im, err := Build([]FieldConfig{
		{Name: "title", Type: FieldText, Stored: true, Indexed: true},
		{Name: "views", Type: FieldI64, Stored: true, Indexed: true, Fast: true},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	doc := im.DefaultMapping
	if _, ok := doc.Properties[IDField]; !ok {
		t.Error("expected id field mapping to be registered")
	}
	if _, ok := doc.Properties["title"]; !ok {
		t.Error("expected title field mapping to be registered")
	}
	if _, ok := doc.Properties["views"]; !ok {
		t.Error("expected views field mapping to be registered")
	}
}

func TestBuildRejectsUnknownAnalyzer(t *testing.T) {
	_, err := Build([]FieldConfig{
		{Name: "title", Type: FieldText, Analyzer: "klingon"},
	})
	if err == nil {
		t.Fatal("expected error for unsupported analyzer")
	}
}

func TestBuildRejectsUnknownFieldType(t *testing.T) {
	_, err := Build([]FieldConfig{
		{Name: "mystery", Type: FieldType("vector")},
	})
	if err == nil {
		t.Fatal("expected error for unsupported field type")
	}
}

func TestFieldMappingStringUsesRawAnalyzer(t *testing.T) {
	fm, err := fieldMapping(FieldConfig{Name: "slug", Type: FieldString, Stored: true, Indexed: true})
	if err != nil {
		t.Fatalf("fieldMapping: %v", err)
	}
	if fm.Analyzer != AnalyzerRaw {
		t.Errorf("Analyzer = %q, want %q", fm.Analyzer, AnalyzerRaw)
	}
}

func TestFieldMappingNorwegianAnalyzer(t *testing.T) {
	fm, err := fieldMapping(FieldConfig{Name: "title", Type: FieldText, Analyzer: AnalyzerNorwegian})
	if err != nil {
		t.Fatalf("fieldMapping: %v", err)
	}
	if fm.Analyzer != AnalyzerNorwegian {
		t.Errorf("Analyzer = %q, want %q", fm.Analyzer, AnalyzerNorwegian)
	}
}

func TestFieldMappingDefaultAnalyzerLeftUnset(t *testing.T) {
	fm, err := fieldMapping(FieldConfig{Name: "title", Type: FieldText})
	if err != nil {
		t.Fatalf("fieldMapping: %v", err)
	}
	if fm.Analyzer != "" {
		t.Errorf("Analyzer = %q, want empty (bleve default)", fm.Analyzer)
	}
}

func TestFieldMappingNumericSetsDocValuesWhenFast(t *testing.T) {
	fm, err := fieldMapping(FieldConfig{Name: "views", Type: FieldI64, Fast: true})
	if err != nil {
		t.Fatalf("fieldMapping: %v", err)
	}
	if !fm.DocValues {
		t.Error("expected DocValues to be set for a fast numeric field")
	}
}
