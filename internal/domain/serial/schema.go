package serial

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

// configSchemas holds one JSON Schema per pattern type. Unknown keys are
// rejected so a config written for one type cannot be stored under another.
var configSchemas = map[PatternType]string{
	PatternTypePrefixSuffix: `{
  "type": "object",
  "additionalProperties": false,
  "required": ["start", "end"],
  "properties": {
    "prefix":  {"type": "string", "maxLength": 64},
    "suffix":  {"type": "string", "maxLength": 64},
    "padding": {"type": "integer", "minimum": 0, "maximum": 32},
    "start":   {"type": "integer", "minimum": 0},
    "end":     {"type": "integer", "minimum": 0}
  }
}`,
	PatternTypeRegex: `{
  "type": "object",
  "additionalProperties": false,
  "required": ["regex"],
  "properties": {
    "regex": {"type": "string", "minLength": 1, "maxLength": 512}
  }
}`,
	PatternTypeSequential: `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "prefix":     {"type": "string", "maxLength": 64},
    "min_length": {"type": "integer", "minimum": 0},
    "max_length": {"type": "integer", "minimum": 0}
  }
}`,
	PatternTypeAlphanumeric: `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "min_length":      {"type": "integer", "minimum": 0},
    "max_length":      {"type": "integer", "minimum": 0},
    "require_letter":  {"type": "boolean"},
    "require_digit":   {"type": "boolean"},
    "uppercase_only":  {"type": "boolean"},
    "allowed_symbols": {"type": "string", "maxLength": 32}
  }
}`,
}

var (
	compileOnce sync.Once
	compiled    map[PatternType]*jsonschema.Schema
	compileErr  error
)

func compileSchemas() (map[PatternType]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[PatternType]*jsonschema.Schema, len(configSchemas))
		for t, src := range configSchemas {
			name := string(t) + ".json"
			compiler := jsonschema.NewCompiler()
			if err := compiler.AddResource(name, bytes.NewReader([]byte(src))); err != nil {
				compileErr = fmt.Errorf("add schema %s: %w", name, err)
				return
			}
			s, err := compiler.Compile(name)
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			compiled[t] = s
		}
	})
	return compiled, compileErr
}

// ValidateConfigJSON validates a raw pattern_config document against the
// schema registered for t.
func ValidateConfigJSON(t PatternType, data []byte) error {
	if !t.IsValid() {
		return errors.Newf(errors.ErrCodePatternConfigInvalid, "unknown pattern_type %q", t)
	}
	schemas, err := compileSchemas()
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "pattern config schemas unavailable")
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return errors.Wrap(err, errors.ErrCodePatternConfigInvalid, "pattern_config is not valid JSON")
	}
	if err := schemas[t].Validate(v); err != nil {
		return errors.Wrap(err, errors.ErrCodePatternConfigInvalid, "pattern_config does not match schema").
			WithDetail(err.Error())
	}
	return nil
}

// DecodeConfig validates data against the schema for t and decodes it into
// the matching PatternConfig variant. Semantic checks (bounds, regex
// compilation) run afterwards.
func DecodeConfig(t PatternType, data []byte) (PatternConfig, error) {
	if err := ValidateConfigJSON(t, data); err != nil {
		return PatternConfig{}, err
	}
	cfg, err := decodeVariant(t, data)
	if err != nil {
		return PatternConfig{}, err
	}
	if err := cfg.Validate(t); err != nil {
		return PatternConfig{}, err
	}
	return cfg, nil
}

// DecodeStoredConfig loads a persisted pattern_config without rejecting it.
// When the config is unusable the returned error says why, and the config
// holds whatever could be decoded (possibly no variant at all). The matcher
// skips such patterns instead of failing the whole request.
func DecodeStoredConfig(t PatternType, data []byte) (PatternConfig, error) {
	cfg, err := DecodeConfig(t, data)
	if err == nil {
		return cfg, nil
	}
	partial, decodeErr := decodeVariant(t, data)
	if decodeErr != nil {
		return PatternConfig{}, err
	}
	return partial, err
}

func decodeVariant(t PatternType, data []byte) (PatternConfig, error) {
	var (
		cfg PatternConfig
		err error
	)
	switch t {
	case PatternTypePrefixSuffix:
		cfg.PrefixSuffix = &PrefixSuffixConfig{}
		err = json.Unmarshal(data, cfg.PrefixSuffix)
	case PatternTypeRegex:
		cfg.Regex = &RegexConfig{}
		err = json.Unmarshal(data, cfg.Regex)
	case PatternTypeSequential:
		cfg.Sequential = &SequentialConfig{}
		err = json.Unmarshal(data, cfg.Sequential)
	case PatternTypeAlphanumeric:
		cfg.Alphanumeric = &AlphanumericConfig{}
		err = json.Unmarshal(data, cfg.Alphanumeric)
	default:
		return PatternConfig{}, errors.Newf(errors.ErrCodePatternConfigInvalid, "unknown pattern_type %q", t)
	}
	if err != nil {
		return PatternConfig{}, errors.Wrap(err, errors.ErrCodePatternConfigInvalid, "decode pattern_config")
	}
	return cfg, nil
}

// EncodeConfig renders the populated variant as a JSON object.
func EncodeConfig(cfg PatternConfig) ([]byte, error) {
	v := cfg.Variant()
	if v == nil {
		return nil, errors.New(errors.ErrCodePatternConfigInvalid, "pattern config has no variant")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode pattern_config")
	}
	return b, nil
}

//Personal.AI order the ending
