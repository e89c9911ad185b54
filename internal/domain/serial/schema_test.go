package serial

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

func TestValidateConfigJSON(t *testing.T) {
	tests := []struct {
		name    string
		pt      PatternType
		doc     string
		wantErr bool
	}{
		{"prefix_suffix ok", PatternTypePrefixSuffix, `{"prefix":"SN-","padding":4,"start":1,"end":10}`, false},
		{"prefix_suffix missing end", PatternTypePrefixSuffix, `{"prefix":"SN-","start":1}`, true},
		{"prefix_suffix negative start", PatternTypePrefixSuffix, `{"start":-1,"end":10}`, true},
		{"prefix_suffix foreign key", PatternTypePrefixSuffix, `{"start":1,"end":2,"regex":"x"}`, true},
		{"regex ok", PatternTypeRegex, `{"regex":"SN-[0-9]{4}"}`, false},
		{"regex empty", PatternTypeRegex, `{"regex":""}`, true},
		{"regex wrong type", PatternTypeRegex, `{"regex":42}`, true},
		{"sequential ok", PatternTypeSequential, `{"prefix":"B","min_length":4}`, false},
		{"sequential empty object", PatternTypeSequential, `{}`, false},
		{"alphanumeric ok", PatternTypeAlphanumeric, `{"require_digit":true,"allowed_symbols":"-"}`, false},
		{"alphanumeric bad flag", PatternTypeAlphanumeric, `{"require_digit":"yes"}`, true},
		{"not an object", PatternTypeRegex, `"SN"`, true},
		{"not json", PatternTypeRegex, `{`, true},
		{"unknown type", PatternType("x"), `{}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfigJSON(tt.pt, []byte(tt.doc))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodePatternConfigInvalid))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecodeConfig_PopulatesVariant(t *testing.T) {
	cfg, err := DecodeConfig(PatternTypePrefixSuffix, []byte(`{"prefix":"SN-","suffix":"-A","padding":4,"start":1,"end":99}`))
	require.NoError(t, err)
	require.NotNil(t, cfg.PrefixSuffix)
	assert.Equal(t, PrefixSuffixConfig{Prefix: "SN-", Suffix: "-A", Padding: 4, Start: 1, End: 99}, *cfg.PrefixSuffix)
	assert.Nil(t, cfg.Regex)
}

func TestDecodeConfig_RunsSemanticChecks(t *testing.T) {
	_, err := DecodeConfig(PatternTypePrefixSuffix, []byte(`{"start":9,"end":1}`))
	assert.True(t, errors.IsCode(err, errors.ErrCodePatternConfigInvalid))

	_, err = DecodeConfig(PatternTypeRegex, []byte(`{"regex":"("}`))
	assert.True(t, errors.IsCode(err, errors.ErrCodePatternConfigInvalid))
}

func TestDecodeStoredConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg, err := DecodeStoredConfig(PatternTypeRegex, []byte(`{"regex":"SN-[0-9]+"}`))
		require.NoError(t, err)
		assert.Equal(t, "SN-[0-9]+", cfg.Regex.Regex)
	})

	t.Run("bad regex keeps the variant", func(t *testing.T) {
		cfg, err := DecodeStoredConfig(PatternTypeRegex, []byte(`{"regex":"SN-[0-9"}`))
		assert.True(t, errors.IsCode(err, errors.ErrCodePatternConfigInvalid))
		require.NotNil(t, cfg.Regex)
		assert.Equal(t, "SN-[0-9", cfg.Regex.Regex)
	})

	t.Run("wrong shape yields empty config", func(t *testing.T) {
		cfg, err := DecodeStoredConfig(PatternTypePrefixSuffix, []byte(`{"start":"one"}`))
		assert.True(t, errors.IsCode(err, errors.ErrCodePatternConfigInvalid))
		assert.Nil(t, cfg.Variant())
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := DecodeStoredConfig(PatternType("fuzzy"), []byte(`{}`))
		assert.True(t, errors.IsCode(err, errors.ErrCodePatternConfigInvalid))
	})
}

func TestSerialPattern_JSONRoundTrip(t *testing.T) {
	p, err := NewSerialPattern("Widget", Regex(`SN-[0-9]{4}`), int64Ptr(12))
	require.NoError(t, err)
	p.ID = 41

	b, err := json.Marshal(p)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(b, &wire))
	assert.Equal(t, "regex", wire["pattern_type"])
	assert.Equal(t, map[string]any{"regex": `SN-[0-9]{4}`}, wire["pattern_config"])

	var back SerialPattern
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, p.ID, back.ID)
	assert.Equal(t, p.Name, back.Name)
	assert.Equal(t, *p.ProductID, *back.ProductID)
	assert.Equal(t, `SN-[0-9]{4}`, back.Config.Regex.Regex)
	assert.True(t, back.CreatedAt.Equal(p.CreatedAt))
}

func TestSerialPattern_UnmarshalRejectsMissingConfig(t *testing.T) {
	var p SerialPattern
	err := json.Unmarshal([]byte(`{"name":"x","pattern_type":"regex"}`), &p)
	assert.True(t, errors.IsCode(err, errors.ErrCodePatternConfigInvalid))
}

func TestApplyOptions(t *testing.T) {
	o := ApplyOptions()
	assert.Equal(t, 20, o.Limit)
	assert.Equal(t, SortByCreatedAt, o.SortField)

	o = ApplyOptions(WithPagination(-5, 10000), WithSortBy("drop table", true), WithNameFilter("SN"))
	assert.Equal(t, 0, o.Offset)
	assert.Equal(t, 500, o.Limit)
	assert.Equal(t, SortByCreatedAt, o.SortField)
	assert.True(t, o.SortAscending)
	assert.Equal(t, "SN", o.NameKeyword)
}

//Personal.AI order the ending
