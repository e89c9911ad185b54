package serial_extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Serial-Intelligence/internal/domain/serial"
)

func TestMatch_PrefixSuffix(t *testing.T) {
	withSuffix := newPattern(t, 2, "suffixed", serial.PrefixSuffix(serial.PrefixSuffixConfig{
		Prefix: "SN-", Suffix: "-A", Start: 1, End: 100,
	}), 0)
	set := NewPatternSet([]*serial.SerialPattern{snPattern(t)}, nil, nil)
	suffixed := NewPatternSet([]*serial.SerialPattern{withSuffix}, nil, nil)

	tests := []struct {
		set   *PatternSet
		token string
		want  bool
	}{
		{set, "SN-0042", true},
		{set, "SN-42", true},
		{set, "SN-9999", true},
		{set, "SN-10000", false},
		{set, "SN-0000", false},
		{set, "SN-", false},
		{set, "SN-12a", false},
		{set, "XSN-1", false},
		{set, "sn-0042", false},
		{suffixed, "SN-5-A", true},
		{suffixed, "SN-5-B", false},
		{suffixed, "SN--A", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.set.Match(tt.token) != nil, tt.token)
	}
}

func TestMatch_RegexIsFullMatch(t *testing.T) {
	p := newPattern(t, 1, "regex", serial.Regex(`SN-[0-9]{4}`), 0)
	set := NewPatternSet([]*serial.SerialPattern{p}, nil, nil)

	assert.Same(t, p, set.Match("SN-1234"))
	assert.Nil(t, set.Match("SN-12345"))
	assert.Nil(t, set.Match("XSN-1234"))
}

func TestMatch_Sequential(t *testing.T) {
	p := newPattern(t, 1, "batch", serial.Sequential(serial.SequentialConfig{
		Prefix: "B", MinLength: 4, MaxLength: 6,
	}), 0)
	set := NewPatternSet([]*serial.SerialPattern{p}, nil, nil)

	assert.NotNil(t, set.Match("B1234"))
	assert.NotNil(t, set.Match("B123456"))
	assert.Nil(t, set.Match("B123"))
	assert.Nil(t, set.Match("B1234567"))
	assert.Nil(t, set.Match("1234"))
	assert.Nil(t, set.Match("B12X4"))
}

func TestMatch_Alphanumeric(t *testing.T) {
	p := newPattern(t, 1, "alnum", serial.Alphanumeric(serial.AlphanumericConfig{
		MinLength: 6, RequireLetter: true, RequireDigit: true, UppercaseOnly: true, AllowedSymbols: "-",
	}), 0)
	set := NewPatternSet([]*serial.SerialPattern{p}, nil, nil)

	assert.NotNil(t, set.Match("AB-1234"))
	assert.Nil(t, set.Match("ab-1234"))
	assert.Nil(t, set.Match("ABCDEF"))
	assert.Nil(t, set.Match("123456"))
	assert.Nil(t, set.Match("AB_1234"))
	assert.Nil(t, set.Match("A1"))
}

func TestMatch_SpecificityBeatsOrder(t *testing.T) {
	regex := newPattern(t, 1, "regex", serial.Regex(`SN-.*`), 0)
	seq := newPattern(t, 2, "seq", serial.Sequential(serial.SequentialConfig{Prefix: "SN-"}), 10)
	set := NewPatternSet([]*serial.SerialPattern{regex, seq}, nil, nil)

	require.Equal(t, []*serial.SerialPattern{seq, regex}, set.Patterns())
	assert.Same(t, regex, set.Match("SN-1234"))
}

func TestMatch_OrderBreaksTies(t *testing.T) {
	older := newPattern(t, 1, "b-older", serial.Regex(`SN-[0-9]+`), 0)
	newer := newPattern(t, 2, "a-newer", serial.Regex(`SN-.+`), 5)
	patterns := []*serial.SerialPattern{older, newer}

	assert.Same(t, newer, NewPatternSet(patterns, nil, nil).Match("SN-1"))
	assert.Same(t, older, NewPatternSet(patterns, nil, OrderCreatedAsc).Match("SN-1"))
	assert.Same(t, newer, NewPatternSet(patterns, nil, OrderNameAsc).Match("SN-1"))
	assert.Same(t, older, NewPatternSet(patterns, nil, OrderIDAsc).Match("SN-1"))
}

func TestMatch_CreatedTieFallsBackToID(t *testing.T) {
	a := newPattern(t, 1, "a", serial.Regex(`X`), 0)
	b := newPattern(t, 2, "b", serial.Regex(`X`), 0)
	assert.Same(t, b, NewPatternSet([]*serial.SerialPattern{a, b}, nil, OrderCreatedDesc).Match("X"))
	assert.Same(t, a, NewPatternSet([]*serial.SerialPattern{a, b}, nil, OrderCreatedAsc).Match("X"))
}

func TestNewPatternSet_FiltersInactiveAndScope(t *testing.T) {
	global := newPattern(t, 1, "global", serial.Regex(`G-[0-9]+`), 0)
	inactive := newPattern(t, 2, "inactive", serial.Regex(`I-[0-9]+`), 0)
	inactive.Deactivate()
	scoped := newPattern(t, 3, "scoped", serial.Regex(`P-[0-9]+`), 0)
	scoped.ProductID = ptr(int64(5))
	all := []*serial.SerialPattern{global, inactive, scoped, nil}

	set := NewPatternSet(all, nil, nil)
	assert.Equal(t, 1, set.Len())
	assert.Nil(t, set.Match("I-1"))
	assert.Nil(t, set.Match("P-1"))

	set = NewPatternSet(all, ptr(int64(5)), nil)
	assert.Equal(t, 2, set.Len())
	assert.NotNil(t, set.Match("G-1"))
	assert.NotNil(t, set.Match("P-1"))

	assert.Equal(t, 1, NewPatternSet(all, ptr(int64(6)), nil).Len())
}

func TestNewPatternSet_SkipsInvalidConfig(t *testing.T) {
	good := newPattern(t, 1, "good", serial.Regex(`SN-[0-9]+`), 0)
	broken := &serial.SerialPattern{ID: 2, Name: "Broken", Type: serial.PatternTypeRegex,
		Config: serial.Regex(`SN-[0-9`), IsActive: true}
	empty := &serial.SerialPattern{ID: 3, Type: serial.PatternTypePrefixSuffix, IsActive: true}

	set := NewPatternSet([]*serial.SerialPattern{good, broken, empty}, nil, nil)
	assert.Equal(t, 1, set.Len())

	skipped := set.Skipped()
	require.Len(t, skipped, 2)
	names := []string{skipped[0].Expression, skipped[1].Expression}
	assert.ElementsMatch(t, []string{"Broken", "#3"}, names)
	for _, f := range skipped {
		assert.Equal(t, FailurePatternConfig, f.Kind)
		assert.True(t, f.IsPatternFailure())
	}
	assert.NotNil(t, set.Match("SN-1"))
}

func TestMatch_NilAndEmpty(t *testing.T) {
	var set *PatternSet
	assert.Nil(t, set.Match("SN-1"))
	assert.Nil(t, NewPatternSet(nil, nil, nil).Match(""))
}

func TestParsePatternOrder(t *testing.T) {
	for _, name := range []string{"", OrderNameCreatedDesc, OrderNameCreatedAsc, OrderNameNameAsc, " ID_ASC "} {
		order, err := ParsePatternOrder(name)
		assert.NoError(t, err, name)
		assert.NotNil(t, order, name)
	}
	_, err := ParsePatternOrder("random")
	assert.Error(t, err)
}

//Personal.AI order the ending
