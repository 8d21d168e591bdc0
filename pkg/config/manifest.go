package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/cuemby/corestore/pkg/corestore"
	"github.com/cuemby/corestore/pkg/schema"
	"gopkg.in/yaml.v3"
)

// Manifest is a YAML document declaring every bucket a store should define
// at startup, grounded on cuemby-warren's apply.go WarrenResource shape
// (apiVersion/kind/metadata/spec) but specialized to one kind: Bucket.
type Manifest struct {
	APIVersion string       `yaml:"apiVersion"`
	Buckets    []BucketSpec `yaml:"buckets"`
}

// BucketSpec is one bucket's YAML-level definition, translated into a
// corestore.BucketDef (with a concrete pkg/schema.Schema) by ToBucketDef.
type BucketSpec struct {
	Name       string               `yaml:"name"`
	Key        string               `yaml:"key"`
	Fields     map[string]FieldSpec `yaml:"fields"`
	Indexes    []string             `yaml:"indexes"`
	Unique     []string             `yaml:"unique"`
	Ets        string               `yaml:"ets"` // "ordered" | "insertion"
	TTL        string               `yaml:"ttl"` // e.g. "30s", "5m"
	MaxSize    int                  `yaml:"maxSize"`
	Persistent *bool                `yaml:"persistent"`
}

// FieldSpec is one schema field as written in YAML.
type FieldSpec struct {
	Type      string   `yaml:"type"`
	Required  bool     `yaml:"required"`
	Enum      []any    `yaml:"enum"`
	Min       *float64 `yaml:"min"`
	Max       *float64 `yaml:"max"`
	MinLength *int     `yaml:"minLength"`
	MaxLength *int     `yaml:"maxLength"`
	Pattern   string   `yaml:"pattern"`
	Format    string   `yaml:"format"`
	Generated string   `yaml:"generated"` // "uuid" | "cuid" | "autoincrement" | "timestamp"
}

// LoadManifest reads and parses a bucket manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read manifest %q: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("config: parse manifest %q: %w", path, err)
	}
	return &m, nil
}

// ToBucketDef converts a BucketSpec into the corestore.BucketDef shape
// Store.DefineBucket expects, with Schema populated as a concrete
// pkg/schema.Schema.
func (b BucketSpec) ToBucketDef() (corestore.BucketDef, error) {
	sch := schema.Schema{}
	for name, f := range b.Fields {
		field := schema.Field{
			Type:      schema.FieldType(f.Type),
			Required:  f.Required,
			Enum:      f.Enum,
			Min:       f.Min,
			Max:       f.Max,
			MinLength: f.MinLength,
			MaxLength: f.MaxLength,
			Format:    f.Format,
			Generated: schema.GeneratedKind(f.Generated),
		}
		if f.Pattern != "" {
			re, err := regexp.Compile(f.Pattern)
			if err != nil {
				return corestore.BucketDef{}, fmt.Errorf("config: bucket %q field %q: invalid pattern: %w", b.Name, name, err)
			}
			field.Pattern = re
		}
		sch[name] = field
	}

	def := corestore.BucketDef{
		Key:        b.Key,
		Schema:     sch,
		Indexes:    b.Indexes,
		Unique:     b.Unique,
		EtsType:    corestore.EtsType(b.Ets),
		MaxSize:    b.MaxSize,
		Persistent: b.Persistent,
	}
	if b.TTL != "" {
		def.TTL = b.TTL
	}
	return def, nil
}
