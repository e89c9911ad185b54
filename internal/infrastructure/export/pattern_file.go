package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

// PatternFileVersion is the only version ParsePatternFile accepts.
const PatternFileVersion = 1

// PatternFile is the YAML document used to import and export patterns.
//
//	version: 1
//	patterns:
//	  - name: Widget SN
//	    type: prefix_suffix
//	    product_id: 12
//	    config: {prefix: "SN-", padding: 4, start: 1, end: 9999}
type PatternFile struct {
	Version  int            `yaml:"version"`
	Patterns []PatternEntry `yaml:"patterns"`
}

// PatternEntry is one pattern. Active defaults to true when omitted.
type PatternEntry struct {
	Name      string             `yaml:"name"`
	Type      serial.PatternType `yaml:"type"`
	ProductID *int64             `yaml:"product_id,omitempty"`
	Active    *bool              `yaml:"active,omitempty"`
	Config    yaml.Node          `yaml:"config"`
}

// ParsePatternFile decodes data into validated patterns. Configs go through
// the same JSON Schema checks as the REST API. Names must be unique per scope
// within the file.
func ParsePatternFile(data []byte) ([]*serial.SerialPattern, error) {
	var file PatternFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialValidation, "invalid pattern file")
	}
	if file.Version == 0 {
		file.Version = PatternFileVersion
	}
	if file.Version != PatternFileVersion {
		return nil, errors.Validation("unsupported pattern file version").
			WithDetail(fmt.Sprintf("version=%d", file.Version))
	}

	seen := make(map[string]int, len(file.Patterns))
	patterns := make([]*serial.SerialPattern, 0, len(file.Patterns))
	for i, e := range file.Patterns {
		p, err := e.toPattern()
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeUnknown, "patterns[%d] %q", i, e.Name)
		}
		key := scopeKey(p)
		if j, dup := seen[key]; dup {
			return nil, errors.Newf(errors.ErrCodePatternDuplicate, "patterns[%d] %q repeats patterns[%d]", i, e.Name, j)
		}
		seen[key] = i
		patterns = append(patterns, p)
	}
	return patterns, nil
}

func (e PatternEntry) toPattern() (*serial.SerialPattern, error) {
	if e.Config.Kind == 0 {
		return nil, errors.New(errors.ErrCodePatternConfigInvalid, "config is required")
	}
	var m map[string]interface{}
	if err := e.Config.Decode(&m); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePatternConfigInvalid, "config must be a mapping")
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode config")
	}
	cfg, err := serial.DecodeConfig(e.Type, raw)
	if err != nil {
		return nil, err
	}
	p, err := serial.NewSerialPattern(e.Name, cfg, e.ProductID)
	if err != nil {
		return nil, err
	}
	if e.Active != nil && !*e.Active {
		p.Deactivate()
	}
	return p, nil
}

// EncodePatternFile renders patterns as a version 1 pattern file.
func EncodePatternFile(patterns []*serial.SerialPattern) ([]byte, error) {
	file := PatternFile{Version: PatternFileVersion, Patterns: make([]PatternEntry, 0, len(patterns))}
	for _, p := range patterns {
		v := p.Config.Variant()
		if v == nil {
			return nil, errors.Newf(errors.ErrCodePatternConfigInvalid, "pattern %q has no config", p.Name)
		}
		active := p.IsActive
		e := PatternEntry{Name: p.Name, Type: p.Type, ProductID: p.ProductID, Active: &active}
		if err := e.Config.Encode(v); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode pattern config")
		}
		file.Patterns = append(file.Patterns, e)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&file); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode pattern file")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode pattern file")
	}
	return buf.Bytes(), nil
}

func scopeKey(p *serial.SerialPattern) string {
	scope := "global"
	if p.ProductID != nil {
		scope = fmt.Sprint(*p.ProductID)
	}
	return scope + "/" + strings.ToLower(p.Name)
}

//Personal.AI order the ending
