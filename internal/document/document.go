// Package document coerces dynamic JSON values into the typed representation
// a schema's fields expect before they reach the segment store.
package document

import (
	"fmt"
	"strconv"
	"time"

	"github.com/antflydb/tinyfinder/internal/jsonutil"
	"github.com/antflydb/tinyfinder/internal/schema"
)

// Document is a document id plus its coerced, schema-conformant field values,
// ready to hand to bleve's Index call.
type Document struct {
	ID     string
	Fields map[string]any
}

// Coerce converts a raw id + dynamic field map into a Document, applying the
// type coercions declared in the field schema. Fields absent from the
// schema are silently dropped; fields present in the schema but absent from
// raw are simply omitted from the result.
func Coerce(sch schema.Schema, id string, raw map[string]any) (Document, error) {
	out := make(map[string]any, len(raw))
	for _, fc := range sch.Fields {
		v, ok := raw[fc.Name]
		if !ok {
			continue
		}
		coerced, err := coerceValue(fc, v)
		if err != nil {
			return Document{}, fmt.Errorf("field %q: %w", fc.Name, err)
		}
		out[fc.Name] = coerced
	}
	return Document{ID: id, Fields: out}, nil
}

func coerceValue(fc schema.FieldConfig, v any) (any, error) {
	switch fc.Type {
	case schema.FieldText, schema.FieldString:
		switch t := v.(type) {
		case string:
			return t, nil
		default:
			return fmt.Sprintf("%v", t), nil
		}

	case schema.FieldI64:
		return coerceInt(v)

	case schema.FieldF64:
		return coerceFloat(v)

	case schema.FieldDate:
		return coerceDate(v)

	case schema.FieldJSON:
		b, err := jsonutil.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal json field: %w", err)
		}
		return string(b), nil

	default:
		return nil, fmt.Errorf("unsupported field type %q", fc.Type)
	}
}

func coerceInt(v any) (int64, error) {
	switch t := v.(type) {
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case float64:
		return int64(t), nil
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot coerce %T to i64", v)
	}
}

func coerceFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot coerce %T to f64", v)
	}
}

func coerceDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts, nil
		}
		if secs, err := strconv.ParseInt(t, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC(), nil
		}
		return time.Time{}, fmt.Errorf("not an RFC3339 or unix-seconds date: %q", t)
	case float64:
		return time.Unix(int64(t), 0).UTC(), nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("cannot coerce %T to date", v)
	}
}
