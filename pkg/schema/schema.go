// Package schema implements the SchemaValidator component (spec §4.1): it
// turns loosely-typed caller input into a typed Record, filling generated
// and default fields, validating every declared field, and reporting every
// issue found rather than aborting on the first one.
package schema

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/cuemby/corestore/pkg/corestore"
	"github.com/google/uuid"
	"github.com/imdario/mergo"
)

// FieldType is the primitive type a field's value is checked against.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeDate    FieldType = "date"
	TypeAny     FieldType = "any"
)

// GeneratedKind selects one of the built-in id generator sources.
type GeneratedKind string

const (
	GeneratedUUID          GeneratedKind = "uuid"
	GeneratedCUID          GeneratedKind = "cuid"
	GeneratedAutoincrement GeneratedKind = "autoincrement"
	GeneratedTimestamp     GeneratedKind = "timestamp"
)

// Field describes one schema field's validation and generation rules.
type Field struct {
	Type      FieldType
	Required  bool
	Enum      []any
	Min       *float64
	Max       *float64
	MinLength *int
	MaxLength *int
	Pattern   *regexp.Regexp
	Format    string // "email" | "url" | "uuid" | ""
	Default   any    // value, or func() any
	Generated GeneratedKind
}

// Schema maps field name to its rules. Fields not present here are
// preserved on records verbatim but never validated or indexed.
type Schema map[string]Field

// Generators supplies the non-pure autoincrement source (spec §4.1:
// "the generator for autoincrement... reads a per-bucket counter kept in
// the BucketServer").
type Generators struct {
	NextAutoincrement func() (int64, error)
}

// Validator is the SchemaValidator for one bucket.
type Validator struct {
	bucketName string
	schema     Schema
	gens       Generators
}

// New builds a Validator bound to one bucket's schema and generator
// callbacks.
func New(bucketName string, s Schema, gens Generators) *Validator {
	return &Validator{bucketName: bucketName, schema: s, gens: gens}
}

// PrepareForInsert implements spec §4.1 step (1)-(5) for inserts.
func (v *Validator) PrepareForInsert(input map[string]any, ttl *int64) (corestore.Record, error) {
	sanitized := corestore.StripMetadata(input)

	if err := v.applyGenerated(sanitized); err != nil {
		return nil, err
	}
	v.applyDefaults(sanitized)

	issues := v.validateFields(sanitized)
	if len(issues) > 0 {
		return nil, &corestore.ValidationError{Bucket: v.bucketName, Issues: issues}
	}

	now := corestore.NowMillis()
	rec := corestore.Record{}
	for k, val := range sanitized {
		rec[k] = val
	}
	rec[corestore.FieldVersion] = int64(1)
	rec[corestore.FieldCreatedAt] = now
	rec[corestore.FieldUpdatedAt] = now

	if ttl != nil {
		if _, supplied := input[corestore.FieldExpiresAt]; supplied {
			rec[corestore.FieldExpiresAt] = input[corestore.FieldExpiresAt]
		} else {
			rec[corestore.FieldExpiresAt] = now + *ttl
		}
	}
	return rec, nil
}

// PrepareForUpdate implements spec §4.1 step (1)-(4) for updates.
func (v *Validator) PrepareForUpdate(existing corestore.Record, changes map[string]any, keyField string) (corestore.Record, error) {
	sanitized := corestore.StripMetadata(changes)
	delete(sanitized, keyField)
	for name, f := range v.schema {
		if f.Generated != "" {
			delete(sanitized, name)
		}
	}

	merged := existing.Clone()
	if err := mergo.Merge(&merged, corestore.Record(sanitized), mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("schema: merge update for bucket %q: %w", v.bucketName, err)
	}

	issues := v.validateFields(merged)
	if len(issues) > 0 {
		return nil, &corestore.ValidationError{Bucket: v.bucketName, Issues: issues}
	}

	merged[corestore.FieldVersion] = existing.Version() + 1
	merged[corestore.FieldUpdatedAt] = corestore.NowMillis()
	merged[corestore.FieldCreatedAt] = existing[corestore.FieldCreatedAt]
	return merged, nil
}

func (v *Validator) applyGenerated(m map[string]any) error {
	for name, f := range v.schema {
		if f.Generated == "" {
			continue
		}
		if _, present := m[name]; present {
			continue
		}
		val, err := v.generate(f.Generated)
		if err != nil {
			return fmt.Errorf("schema: generate field %q: %w", name, err)
		}
		m[name] = val
	}
	return nil
}

func (v *Validator) generate(kind GeneratedKind) (any, error) {
	switch kind {
	case GeneratedUUID:
		return uuid.NewString(), nil
	case GeneratedCUID:
		return newCUID(), nil
	case GeneratedTimestamp:
		return corestore.NowMillis(), nil
	case GeneratedAutoincrement:
		if v.gens.NextAutoincrement == nil {
			return nil, fmt.Errorf("no autoincrement source configured")
		}
		return v.gens.NextAutoincrement()
	default:
		return nil, fmt.Errorf("unknown generator kind %q", kind)
	}
}

func (v *Validator) applyDefaults(m map[string]any) {
	for name, f := range v.schema {
		if f.Default == nil {
			continue
		}
		if _, present := m[name]; present {
			continue
		}
		if fn, ok := f.Default.(func() any); ok {
			m[name] = fn()
		} else {
			m[name] = f.Default
		}
	}
}

func (v *Validator) validateFields(m map[string]any) []corestore.Issue {
	var issues []corestore.Issue
	for name, f := range v.schema {
		val, present := m[name]
		if !present || val == nil {
			if f.Required {
				issues = append(issues, corestore.Issue{Field: name, Code: "required", Message: "field is required"})
			}
			continue
		}
		issues = append(issues, checkField(name, val, f)...)
	}
	return issues
}

func checkField(name string, val any, f Field) []corestore.Issue {
	var issues []corestore.Issue
	if !typeMatches(val, f.Type) {
		issues = append(issues, corestore.Issue{Field: name, Code: "type", Message: fmt.Sprintf("expected %s", f.Type)})
		return issues // further checks would be meaningless on a mistyped value
	}
	if len(f.Enum) > 0 && !inEnum(val, f.Enum) {
		issues = append(issues, corestore.Issue{Field: name, Code: "enum", Message: "value not in allowed set"})
	}
	if n, ok := asFloat(val); ok {
		if f.Min != nil && n < *f.Min {
			issues = append(issues, corestore.Issue{Field: name, Code: "min", Message: fmt.Sprintf("must be >= %v", *f.Min)})
		}
		if f.Max != nil && n > *f.Max {
			issues = append(issues, corestore.Issue{Field: name, Code: "max", Message: fmt.Sprintf("must be <= %v", *f.Max)})
		}
	}
	if s, ok := val.(string); ok {
		if f.MinLength != nil && len(s) < *f.MinLength {
			issues = append(issues, corestore.Issue{Field: name, Code: "minLength", Message: fmt.Sprintf("must be at least %d characters", *f.MinLength)})
		}
		if f.MaxLength != nil && len(s) > *f.MaxLength {
			issues = append(issues, corestore.Issue{Field: name, Code: "maxLength", Message: fmt.Sprintf("must be at most %d characters", *f.MaxLength)})
		}
		if f.Pattern != nil && !f.Pattern.MatchString(s) {
			issues = append(issues, corestore.Issue{Field: name, Code: "pattern", Message: "does not match required pattern"})
		}
		if f.Format != "" && !formatValid(s, f.Format) {
			issues = append(issues, corestore.Issue{Field: name, Code: "format", Message: fmt.Sprintf("does not satisfy format %q", f.Format)})
		}
	}
	return issues
}

func typeMatches(val any, t FieldType) bool {
	switch t {
	case TypeAny, "":
		return true
	case TypeString:
		_, ok := val.(string)
		return ok
	case TypeNumber:
		_, ok := asFloat(val)
		return ok
	case TypeBoolean:
		_, ok := val.(bool)
		return ok
	case TypeDate:
		switch val.(type) {
		case int64, int, float64:
			return true
		default:
			return false
		}
	default:
		return true
	}
}

func asFloat(val any) (float64, bool) {
	switch n := val.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

func inEnum(val any, enum []any) bool {
	for _, e := range enum {
		if reflect.DeepEqual(e, val) {
			return true
		}
	}
	return false
}

var formatPatterns = map[string]*regexp.Regexp{
	"email": regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`),
	"url":   regexp.MustCompile(`^https?://[^\s]+$`),
	"uuid":  regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`),
}

func formatValid(s, format string) bool {
	re, ok := formatPatterns[format]
	if !ok {
		return true // unknown format names are not enforced
	}
	return re.MatchString(s)
}
