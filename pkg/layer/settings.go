// This file is part of stakemap (https://github.com/spezifisch/stakemap).
// Copyright (C) 2021-2026 spezifisch <spezifisch-7e6@below.fr> (https://github.com/spezifisch).
//
// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the
// Free Software Foundation, version 3 of the License.
//
// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS
// FOR A PARTICULAR PURPOSE. See the GNU Affero General Public License for more
// details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package layer

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrInvalidSettings is returned for incomplete or out of range settings objects
var ErrInvalidSettings = errors.New("invalid settings")

// ControlType is how a settings key is edited
type ControlType string

const (
	ControlBoolean ControlType = "boolean"
	ControlRange   ControlType = "range"
)

// Control describes one recognized settings key for the control panel
type Control struct {
	Key         string      `json:"key"`
	DisplayName string      `json:"displayName"`
	Type        ControlType `json:"type"`
	Min         float64     `json:"min,omitempty"`
	Max         float64     `json:"max,omitempty"`
	Step        float64     `json:"step,omitempty"`
	Value       interface{} `json:"value"`
}

// Controls lists every recognized settings key with its default value
var Controls = []Control{
	{Key: "showDensityOfPoints", DisplayName: "Show Density of Points", Type: ControlBoolean, Value: true},
	{Key: "showStakedTokens", DisplayName: "Show Staked Tokens", Type: ControlBoolean, Value: false},
	{Key: "radius", DisplayName: "Hexagon Radius", Type: ControlRange, Min: 100, Max: 3000, Step: 100, Value: 1000.0},
	{Key: "coverage", DisplayName: "Coverage", Type: ControlRange, Min: 0, Max: 1, Step: 0.1, Value: 1.0},
	{Key: "upperPercentile", DisplayName: "Upper Percentile", Type: ControlRange, Min: 80, Max: 100, Step: 0.1, Value: 100.0},
	{Key: "elevationScale", DisplayName: "Elevation Scale", Type: ControlRange, Min: 0, Max: 50, Step: 1, Value: 4.0},
}

// Settings is the full set of layer settings. Every recognized key is a field,
// so a Settings value is always complete.
type Settings struct {
	ShowDensityOfPoints bool    `json:"showDensityOfPoints"`
	ShowStakedTokens    bool    `json:"showStakedTokens"`
	Radius              float64 `json:"radius"`
	Coverage            float64 `json:"coverage"`
	UpperPercentile     float64 `json:"upperPercentile"`
	ElevationScale      float64 `json:"elevationScale"`
}

// DefaultSettings returns the control defaults
func DefaultSettings() Settings {
	s, err := SettingsFromMap(defaultsMap())
	if err != nil {
		panic(err)
	}
	return s
}

func defaultsMap() map[string]interface{} {
	m := make(map[string]interface{}, len(Controls))
	for _, c := range Controls {
		m[c.Key] = c.Value
	}
	return m
}

// Map returns the settings keyed like Controls
func (s Settings) Map() map[string]interface{} {
	return map[string]interface{}{
		"showDensityOfPoints": s.ShowDensityOfPoints,
		"showStakedTokens":    s.ShowStakedTokens,
		"radius":              s.Radius,
		"coverage":            s.Coverage,
		"upperPercentile":     s.UpperPercentile,
		"elevationScale":      s.ElevationScale,
	}
}

// Validate checks every value against its control range
func (s Settings) Validate() error {
	_, err := SettingsFromMap(s.Map())
	return err
}

// SettingsFromMap builds settings from a complete key/value object as emitted by the control panel.
// Missing keys, unknown keys, wrong types and out of range values are rejected.
func SettingsFromMap(m map[string]interface{}) (s Settings, err error) {
	known := make(map[string]bool, len(Controls))
	for _, c := range Controls {
		known[c.Key] = true
	}
	var unknown []string
	for k := range m {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return s, errors.Wrapf(ErrInvalidSettings, "unknown keys %v", unknown)
	}

	bools := map[string]*bool{
		"showDensityOfPoints": &s.ShowDensityOfPoints,
		"showStakedTokens":    &s.ShowStakedTokens,
	}
	numbers := map[string]*float64{
		"radius":          &s.Radius,
		"coverage":        &s.Coverage,
		"upperPercentile": &s.UpperPercentile,
		"elevationScale":  &s.ElevationScale,
	}

	for _, c := range Controls {
		v, ok := m[c.Key]
		if !ok {
			return s, errors.Wrapf(ErrInvalidSettings, "missing key %s", c.Key)
		}
		switch c.Type {
		case ControlBoolean:
			b, ok := v.(bool)
			if !ok {
				return s, errors.Wrapf(ErrInvalidSettings, "%s must be a boolean", c.Key)
			}
			*bools[c.Key] = b
		case ControlRange:
			f, ok := toFloat(v)
			if !ok {
				return s, errors.Wrapf(ErrInvalidSettings, "%s must be a number", c.Key)
			}
			if f < c.Min || f > c.Max {
				return s, errors.Wrapf(ErrInvalidSettings, "%s=%v outside [%v, %v]", c.Key, f, c.Min, c.Max)
			}
			*numbers[c.Key] = f
		}
	}
	return s, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
