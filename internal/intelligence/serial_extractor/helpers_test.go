package serial_extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/Serial-Intelligence/internal/domain/serial"
)

var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// newPattern builds a valid active pattern created age minutes after baseTime.
func newPattern(t *testing.T, id int64, name string, cfg serial.PatternConfig, age int) *serial.SerialPattern {
	t.Helper()
	p, err := serial.NewSerialPattern(name, cfg, nil)
	require.NoError(t, err)
	p.ID = id
	p.CreatedAt = baseTime.Add(time.Duration(age) * time.Minute)
	p.UpdatedAt = p.CreatedAt
	return p
}

func snPattern(t *testing.T) *serial.SerialPattern {
	return newPattern(t, 1, "SN four digit", serial.PrefixSuffix(serial.PrefixSuffixConfig{
		Prefix: "SN-", Padding: 4, Start: 1, End: 9999,
	}), 0)
}

func ptr[T any](v T) *T { return &v }

//Personal.AI order the ending
