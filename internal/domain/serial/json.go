package serial

import (
	"encoding/json"
	"time"

	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

// patternJSON is the wire form: pattern_config stays raw until pattern_type
// is known.
type patternJSON struct {
	ID            int64           `json:"id,omitempty"`
	Name          string          `json:"name"`
	PatternType   PatternType     `json:"pattern_type"`
	PatternConfig json.RawMessage `json:"pattern_config"`
	ProductID     *int64          `json:"product_id,omitempty"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (p SerialPattern) MarshalJSON() ([]byte, error) {
	raw, err := EncodeConfig(p.Config)
	if err != nil {
		return nil, err
	}
	return json.Marshal(patternJSON{
		ID:            p.ID,
		Name:          p.Name,
		PatternType:   p.Type,
		PatternConfig: raw,
		ProductID:     p.ProductID,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler. The config object is checked
// against the schema for pattern_type before it is decoded.
func (p *SerialPattern) UnmarshalJSON(data []byte) error {
	var aux patternJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "decode serial pattern")
	}
	if len(aux.PatternConfig) == 0 {
		return errors.New(errors.ErrCodePatternConfigInvalid, "pattern_config is required")
	}
	cfg, err := DecodeConfig(aux.PatternType, aux.PatternConfig)
	if err != nil {
		return err
	}
	*p = SerialPattern{
		ID:        aux.ID,
		Name:      aux.Name,
		Type:      aux.PatternType,
		Config:    cfg,
		ProductID: aux.ProductID,
		IsActive:  aux.IsActive,
		CreatedAt: aux.CreatedAt,
		UpdatedAt: aux.UpdatedAt,
	}
	return nil
}

//Personal.AI order the ending
