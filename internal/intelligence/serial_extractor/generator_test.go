package serial_extractor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

func TestGenerator_Generate(t *testing.T) {
	sn := serial.PrefixSuffixConfig{Prefix: "SN-", Padding: 4}
	tests := []struct {
		name             string
		cfg              serial.PrefixSuffixConfig
		start, end, step int64
		want             []string
	}{
		{"step lands on end", sn, 1, 10, 3, []string{"SN-0001", "SN-0004", "SN-0007", "SN-0010"}},
		{"overshoot excluded", sn, 1, 9, 3, []string{"SN-0001", "SN-0004", "SN-0007"}},
		{"zero step means one", sn, 1, 3, 0, []string{"SN-0001", "SN-0002", "SN-0003"}},
		{"step wider than range", sn, 0, 10, 100, []string{"SN-0000"}},
		{"no padding", serial.PrefixSuffixConfig{Prefix: "X"}, 8, 11, 1, []string{"X8", "X9", "X10", "X11"}},
		{"padding never truncates", serial.PrefixSuffixConfig{Padding: 2}, 123, 123, 1, []string{"123"}},
		{"suffix", serial.PrefixSuffixConfig{Prefix: "L", Suffix: "-EU", Padding: 3}, 5, 6, 1, []string{"L005-EU", "L006-EU"}},
		{"int64 boundary", serial.PrefixSuffixConfig{}, math.MaxInt64, math.MaxInt64, 1, []string{"9223372036854775807"}},
	}
	g := NewGenerator(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Generate(tt.cfg, tt.start, tt.end, tt.step)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerator_Errors(t *testing.T) {
	tests := []struct {
		name             string
		start, end, step int64
		code             errors.ErrorCode
	}{
		{"negative step", 1, 10, -1, errors.ErrCodeSerialValidation},
		{"start after end", 10, 1, 1, errors.ErrCodeSerialValidation},
		{"negative start", -5, 1, 1, errors.ErrCodeSerialValidation},
		{"over capacity", 1, 1000000, 1, errors.ErrCodeCapacityExceeded},
		{"full int64 span", 0, math.MaxInt64, 1, errors.ErrCodeCapacityExceeded},
	}
	g := NewGenerator(DefaultMaxRangeSize)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Generate(serial.PrefixSuffixConfig{Prefix: "SN-"}, tt.start, tt.end, tt.step)
			assert.Nil(t, got)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestGenerator_CountMatchesGenerate(t *testing.T) {
	g := NewGenerator(1000)
	for _, c := range [][3]int64{{1, 10, 3}, {1, 9, 3}, {0, 999, 1}, {5, 5, 7}, {0, 100, 0}} {
		n, err := g.Count(c[0], c[1], c[2])
		require.NoError(t, err)
		got, err := g.Generate(serial.PrefixSuffixConfig{}, c[0], c[1], c[2])
		require.NoError(t, err)
		assert.Equal(t, int(n), len(got), c)
	}
}

func TestGenerator_CapacityUsesStep(t *testing.T) {
	g := NewGenerator(100)
	n, err := g.Count(0, 9999, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)

	_, err = g.Count(0, 10000, 100)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCapacityExceeded))
}

func TestGenerator_CountFullInt64Span(t *testing.T) {
	g := NewGenerator(DefaultMaxRangeSize)
	n, err := g.Count(0, math.MaxInt64, 1)
	assert.Zero(t, n)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCapacityExceeded), "got %v", err)

	n, err = g.Count(0, math.MaxInt64, math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := g.Generate(serial.PrefixSuffixConfig{}, 0, math.MaxInt64, math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "9223372036854775807"}, got)
}

//Personal.AI order the ending
