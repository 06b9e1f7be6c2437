package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// VariantConfig describes one derived encoding of an original image.
//
// All fields are optional. Dimension fields select the resize rule (see the
// worker's transformer); Format selects the encoder; Quality applies to lossy
// encoders only.
type VariantConfig struct {
	Format    string `json:"format,omitempty" validate:"omitempty,oneof=avif webp png jpg jpeg original"`
	Quality   int    `json:"quality,omitempty" validate:"omitempty,min=1,max=100"`
	Width     int    `json:"width,omitempty" validate:"omitempty,min=1"`
	Height    int    `json:"height,omitempty" validate:"omitempty,min=1"`
	MaxWidth  int    `json:"max_width,omitempty" validate:"omitempty,min=1"`
	MaxHeight int    `json:"max_height,omitempty" validate:"omitempty,min=1"`
	Fit       string `json:"fit,omitempty" validate:"omitempty,oneof=cover contain inside fill stretch exact center-crop"`
}

// ProjectSettings is the structured settings document stored on a project.
type ProjectSettings struct {
	Variants map[string]VariantConfig `json:"variants,omitempty"`
}

// Value implements driver.Valuer, persisting the settings as JSON.
func (s ProjectSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *ProjectSettings) Scan(value any) error {
	if value == nil {
		*s = ProjectSettings{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			*s = ProjectSettings{}
			return nil
		}
		return json.Unmarshal(v, s)
	case string:
		if v == "" {
			*s = ProjectSettings{}
			return nil
		}
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into ProjectSettings", value)
	}
}

// VariantsMap maps variant names to stored object keys. Historical rows may
// hold absolute URLs instead of bare keys; readers must resolve both forms.
type VariantsMap map[string]string

// Value implements driver.Valuer.
func (m VariantsMap) Value() (driver.Value, error) {
	if m == nil {
		m = VariantsMap{}
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *VariantsMap) Scan(value any) error {
	if value == nil {
		*m = VariantsMap{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			*m = VariantsMap{}
			return nil
		}
		return json.Unmarshal(v, m)
	case string:
		if v == "" {
			*m = VariantsMap{}
			return nil
		}
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into VariantsMap", value)
	}
}
