package dialect

import (
	"fmt"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Model describes a receiver series: which dialect it speaks and how its
// serial port is configured out of the box.
type Model struct {
	Name         string            `yaml:"name"`
	Title        string            `yaml:"title"`
	Description  string            `yaml:"description"`
	Manufacturer string            `yaml:"manufacturer"`
	Protocol     string            `yaml:"protocol"`
	Zones        []int             `yaml:"zones"`
	MaxVolume    int               `yaml:"max_volume"`
	Serial       SerialSettings    `yaml:"serial"`
	Sources      map[string]string `yaml:"sources"`
}

// SerialSettings are the RS-232 line settings a model ships with.
type SerialSettings struct {
	BaudRate int `yaml:"baud_rate"`
	DataBits int `yaml:"data_bits"`
	// Parity is one of "none", "odd", "even", "mark" or "space".
	Parity string `yaml:"parity"`
	// StopBits is 1, 1.5 or 2.
	StopBits float64       `yaml:"stop_bits"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ParseModel decodes a model definition.
func ParseModel(data []byte) (Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Model{}, fmt.Errorf("decode model: %w", err)
	}
	if m.Name == "" || m.Protocol == "" {
		return Model{}, fmt.Errorf("decode model: name and protocol are required")
	}
	if m.Serial.BaudRate == 0 {
		m.Serial.BaudRate = 9600
	}
	if m.Serial.DataBits == 0 {
		m.Serial.DataBits = 8
	}
	if m.Serial.Parity == "" {
		m.Serial.Parity = "none"
	}
	if m.Serial.StopBits == 0 {
		m.Serial.StopBits = 1
	}
	return m, nil
}

// Dialect loads the model's protocol from the catalog, applying the model's
// volume limit.
func (m Model) Dialect() (*Dialect, error) {
	d, err := Load(m.Protocol)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", m.Name, err)
	}
	return d.WithMaxVolume(m.MaxVolume), nil
}

// HasZone reports whether zone exists on this model. Models that list no
// zones accept any.
func (m Model) HasZone(zone int) bool {
	return len(m.Zones) == 0 || slices.Contains(m.Zones, zone)
}

// SourceLabel returns the display name of a source code, or the code itself
// when the model does not name it.
func (m Model) SourceLabel(code string) string {
	if label, ok := m.Sources[code]; ok {
		return label
	}
	return code
}
