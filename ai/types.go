package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingCredential is returned when no provider API key is configured
var ErrMissingCredential = errors.New("GEMINI_API_KEY is not configured")

// Role is the author of a conversation turn as the provider sees it
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one entry of a session history
type Turn struct {
	Role  Role     `json:"role"`
	Parts []string `json:"parts"`
}

// UserTurn returns a user turn with a single text part
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Parts: []string{text}}
}

// ModelTurn returns a model turn with a single text part
func ModelTurn(text string) Turn {
	return Turn{Role: RoleModel, Parts: []string{text}}
}

// SensorValue is one named entry of SensorData
type SensorValue struct {
	Name  string
	Value any
}

// SensorData maps sensor types to values and keeps the order in which the
// entries were given. It decodes from and encodes to a JSON object.
type SensorData []SensorValue

// Add appends an entry
func (d *SensorData) Add(name string, value any) {
	*d = append(*d, SensorValue{Name: name, Value: value})
}

// UnmarshalJSON decodes a JSON object keeping its key order. Numbers stay
// json.Number so integers and floats format differently.
func (d *SensorData) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*d = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("sensor_data must be an object")
	}

	out := SensorData{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("sensor_data: unexpected key %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("sensor_data[%s]: %w", key, err)
		}
		out = append(out, SensorValue{Name: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = out
	return nil
}

// MarshalJSON encodes the entries as a JSON object in order
func (d SensorData) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(entry.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// PlantAnalysis is the disease detection result attached to a message
type PlantAnalysis struct {
	Label             string  `json:"label"`
	ConfidencePercent float64 `json:"confidence_percent"`
}

// IsZero reports whether nothing was set
func (a PlantAnalysis) IsZero() bool {
	return a.Label == "" && a.ConfidencePercent == 0
}
