// Package config loads species tuning overlays: JSON files whose
// fields selectively override the built-in species parameter
// defaults. The schema uses pointer fields so a partial file is safe
// — anything omitted keeps its default.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cardiodata/heartline/internal/ecg"
)

// TuningConfig is the JSON overlay for a session's processing
// parameters. Field names mirror ecg.Parameters.
type TuningConfig struct {
	Species *string `json:"species,omitempty"` // "mouse", "rat", or "human"

	// Conditioning
	TargetRate   *float64 `json:"target_rate,omitempty"`
	Invert       *bool    `json:"invert,omitempty"`
	DriftEnabled *bool    `json:"drift_enabled,omitempty"`
	DriftKernel  *float64 `json:"drift_kernel,omitempty"`
	BandPassOn   *bool    `json:"band_pass_on,omitempty"`
	BandLow      *float64 `json:"band_low,omitempty"`
	BandHigh     *float64 `json:"band_high,omitempty"`
	NotchOn      *bool    `json:"notch_on,omitempty"`
	NotchFreq    *float64 `json:"notch_freq,omitempty"`
	NotchWidth   *float64 `json:"notch_width,omitempty"`

	// Artifact detection
	ArtifactOn        *bool    `json:"artifact_on,omitempty"`
	ArtifactPower     *float64 `json:"artifact_power,omitempty"`
	ArtifactSmoothing *float64 `json:"artifact_smoothing,omitempty"`

	// Detection
	DetectionPower     *float64 `json:"detection_power,omitempty"`
	DetectionSmoothing *float64 `json:"detection_smoothing,omitempty"`
	DetectionThreshold *float64 `json:"detection_threshold,omitempty"`
	WindowLow          *float64 `json:"window_low,omitempty"`
	WindowHigh         *float64 `json:"window_high,omitempty"`
	PeakSearchRadius   *float64 `json:"peak_search_radius,omitempty"`

	// Refinement and rate
	SuspiciousFreqLow  *float64 `json:"suspicious_freq_low,omitempty"`
	SuspiciousFreqHigh *float64 `json:"suspicious_freq_high,omitempty"`
	OutlierTolerance   *float64 `json:"outlier_tolerance,omitempty"`
	StabilityTolerance *float64 `json:"stability_tolerance,omitempty"`
	Passes             *int     `json:"passes,omitempty"`
	Discontinuity      *float64 `json:"discontinuity,omitempty"`
	RateWindow         *float64 `json:"rate_window,omitempty"`
}

// maxConfigSize bounds the overlay file size for safety.
const maxConfigSize = 1 * 1024 * 1024

// LoadTuningConfig loads a tuning overlay from a JSON file. The file
// must have a .json extension and stay under maxConfigSize. Omitted
// fields retain their species defaults when the overlay is applied.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &TuningConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return cfg, nil
}

// GetSpecies resolves the species selector, defaulting to mouse.
func (c *TuningConfig) GetSpecies() (ecg.Species, error) {
	if c.Species == nil {
		return ecg.SpeciesMouse, nil
	}
	switch *c.Species {
	case "mouse":
		return ecg.SpeciesMouse, nil
	case "rat":
		return ecg.SpeciesRat, nil
	case "human":
		return ecg.SpeciesHuman, nil
	}
	return 0, fmt.Errorf("unknown species %q", *c.Species)
}

// Apply overlays the configured fields onto the species defaults and
// validates the combined set against the recording's sampling rate.
// This is the parameter boundary: an invalid filter band is rejected
// here and the caller keeps its prior parameters.
func (c *TuningConfig) Apply(rawRate float64) (ecg.Parameters, error) {
	species, err := c.GetSpecies()
	if err != nil {
		return ecg.Parameters{}, err
	}
	p := ecg.DefaultParameters(species)

	setF := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setB := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}

	setF(&p.TargetRate, c.TargetRate)
	setB(&p.Invert, c.Invert)
	setB(&p.DriftEnabled, c.DriftEnabled)
	setF(&p.DriftKernel, c.DriftKernel)
	setB(&p.BandPassOn, c.BandPassOn)
	setF(&p.BandLow, c.BandLow)
	setF(&p.BandHigh, c.BandHigh)
	setB(&p.NotchOn, c.NotchOn)
	setF(&p.NotchFreq, c.NotchFreq)
	setF(&p.NotchWidth, c.NotchWidth)
	setB(&p.ArtifactOn, c.ArtifactOn)
	setF(&p.ArtifactPower, c.ArtifactPower)
	setF(&p.ArtifactSmoothing, c.ArtifactSmoothing)
	setF(&p.DetectionPower, c.DetectionPower)
	setF(&p.DetectionSmoothing, c.DetectionSmoothing)
	setF(&p.DetectionThreshold, c.DetectionThreshold)
	setF(&p.WindowLow, c.WindowLow)
	setF(&p.WindowHigh, c.WindowHigh)
	setF(&p.PeakSearchRadius, c.PeakSearchRadius)
	setF(&p.SuspiciousFreqLow, c.SuspiciousFreqLow)
	setF(&p.SuspiciousFreqHigh, c.SuspiciousFreqHigh)
	setF(&p.OutlierTolerance, c.OutlierTolerance)
	setF(&p.StabilityTolerance, c.StabilityTolerance)
	if c.Passes != nil {
		p.Passes = *c.Passes
	}
	setF(&p.Discontinuity, c.Discontinuity)
	setF(&p.RateWindow, c.RateWindow)

	if err := p.Validate(rawRate); err != nil {
		return ecg.Parameters{}, err
	}
	return p, nil
}
