// Package config loads the engine tuning parameters from JSON. Fields are
// pointer-typed so partial configs are safe: anything omitted falls back to
// the defaults exposed through the Get* accessors.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration consumed at startup. The JSON schema uses
// snake_case keys matching the on-watch app settings.
type Config struct {
	// Reflex thresholds (m/s², net of gravity).
	JumpThreshold      *float64 `json:"jump_threshold,omitempty"`
	AttackThreshold    *float64 `json:"attack_threshold,omitempty"`
	StabilityThreshold *float64 `json:"stability_threshold,omitempty"`

	// Arbitration params.
	CooldownSeconds     *float64 `json:"cooldown_seconds,omitempty"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	EnabledLabels       []string `json:"enabled_labels,omitempty"`

	// Windowing and cadence.
	PredictionInterval *string `json:"prediction_interval,omitempty"` // duration string like "500ms"
	WindowDuration     *string `json:"window_duration,omitempty"`     // duration string like "2.5s"
	MinSamples         *int    `json:"min_samples,omitempty"`

	// Orientation.
	GravityOffset *float64 `json:"gravity_offset,omitempty"`

	// Classifier.
	MLEnabled  *bool   `json:"ml_enabled,omitempty"`
	MLRequired *bool   `json:"ml_required,omitempty"`
	ModelPath  *string `json:"model_path,omitempty"`

	// Transports.
	UDPAddress   *string `json:"udp_address,omitempty"`
	MQTTBroker   *string `json:"mqtt_broker,omitempty"`
	MQTTTopic    *string `json:"mqtt_topic,omitempty"`
	MQTTClientID *string `json:"mqtt_client_id,omitempty"`

	// Persistence.
	DBPath           *string `json:"db_path,omitempty"`
	RecordingEnabled *bool   `json:"recording_enabled,omitempty"`

	// Diagnostics.
	LogInterval *string `json:"log_interval,omitempty"`
}

// Default returns a Config with all fields unset; every accessor then yields
// its built-in default.
func Default() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file and validates it. Validation failures
// are startup-fatal by contract: the caller must not start ingestion with a
// config that did not validate.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configured values are usable.
func (c *Config) Validate() error {
	for name, v := range map[string]*float64{
		"jump_threshold":      c.JumpThreshold,
		"attack_threshold":    c.AttackThreshold,
		"stability_threshold": c.StabilityThreshold,
	} {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", name, *v)
		}
	}

	if c.CooldownSeconds != nil && *c.CooldownSeconds < 0 {
		return fmt.Errorf("cooldown_seconds must be non-negative, got %f", *c.CooldownSeconds)
	}
	if c.ConfidenceThreshold != nil && (*c.ConfidenceThreshold < 0 || *c.ConfidenceThreshold > 1) {
		return fmt.Errorf("confidence_threshold must be between 0 and 1, got %f", *c.ConfidenceThreshold)
	}
	if c.MinSamples != nil && *c.MinSamples < 2 {
		return fmt.Errorf("min_samples must be at least 2, got %d", *c.MinSamples)
	}
	if c.GravityOffset != nil && *c.GravityOffset < 0 {
		return fmt.Errorf("gravity_offset must be non-negative, got %f", *c.GravityOffset)
	}

	for name, v := range map[string]*string{
		"prediction_interval": c.PredictionInterval,
		"window_duration":     c.WindowDuration,
		"log_interval":        c.LogInterval,
	} {
		if v != nil && *v != "" {
			if _, err := time.ParseDuration(*v); err != nil {
				return fmt.Errorf("invalid %s %q: %w", name, *v, err)
			}
		}
	}
	return nil
}

// GetJumpThreshold returns the jump threshold or the default.
func (c *Config) GetJumpThreshold() float64 {
	if c.JumpThreshold == nil {
		return 15.0
	}
	return *c.JumpThreshold
}

// GetAttackThreshold returns the attack threshold or the default.
func (c *Config) GetAttackThreshold() float64 {
	if c.AttackThreshold == nil {
		return 12.0
	}
	return *c.AttackThreshold
}

// GetStabilityThreshold returns the stability threshold or the default.
func (c *Config) GetStabilityThreshold() float64 {
	if c.StabilityThreshold == nil {
		return 5.0
	}
	return *c.StabilityThreshold
}

// GetCooldown returns the per-action cooldown duration or the default.
func (c *Config) GetCooldown() time.Duration {
	if c.CooldownSeconds == nil {
		return 300 * time.Millisecond
	}
	return time.Duration(*c.CooldownSeconds * float64(time.Second))
}

// GetConfidenceThreshold returns the ML confidence threshold or the default.
func (c *Config) GetConfidenceThreshold() float64 {
	if c.ConfidenceThreshold == nil {
		return 0.70
	}
	return *c.ConfidenceThreshold
}

// GetEnabledLabels returns the enabled gesture labels; nil means all labels
// the model knows.
func (c *Config) GetEnabledLabels() []string {
	return c.EnabledLabels
}

// GetPredictionInterval parses and returns the ML cadence or the default.
func (c *Config) GetPredictionInterval() time.Duration {
	return c.duration(c.PredictionInterval, 500*time.Millisecond)
}

// GetWindowDuration parses and returns the buffer window or the default.
func (c *Config) GetWindowDuration() time.Duration {
	return c.duration(c.WindowDuration, 2500*time.Millisecond)
}

// GetLogInterval parses and returns the stats logging interval or the default.
func (c *Config) GetLogInterval() time.Duration {
	return c.duration(c.LogInterval, time.Minute)
}

func (c *Config) duration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

// GetMinSamples returns the feature-window minimum sample count or the default.
func (c *Config) GetMinSamples() int {
	if c.MinSamples == nil {
		return 20
	}
	return *c.MinSamples
}

// GetGravityOffset returns the world-Z gravity offset or the default. Zero is
// correct for linear-acceleration feeds; raw accelerometer feeds set ~9.81.
func (c *Config) GetGravityOffset() float64 {
	if c.GravityOffset == nil {
		return 0.0
	}
	return *c.GravityOffset
}

// GetMLEnabled reports whether the classifier path should be loaded.
func (c *Config) GetMLEnabled() bool {
	if c.MLEnabled == nil {
		return true
	}
	return *c.MLEnabled
}

// GetMLRequired reports whether a model load failure is fatal rather than a
// fallback to reflex-only mode.
func (c *Config) GetMLRequired() bool {
	if c.MLRequired == nil {
		return false
	}
	return *c.MLRequired
}

// GetModelPath returns the classifier artifact location or the default.
func (c *Config) GetModelPath() string {
	if c.ModelPath == nil {
		return "models/gesture_svm.json"
	}
	return *c.ModelPath
}

// GetUDPAddress returns the sensor listener address or the default. Port
// 12345 matches the watch transport.
func (c *Config) GetUDPAddress() string {
	if c.UDPAddress == nil {
		return ":12345"
	}
	return *c.UDPAddress
}

// GetMQTTBroker returns the broker URL; empty disables the MQTT source.
func (c *Config) GetMQTTBroker() string {
	if c.MQTTBroker == nil {
		return ""
	}
	return *c.MQTTBroker
}

// GetMQTTTopic returns the sample topic or the default.
func (c *Config) GetMQTTTopic() string {
	if c.MQTTTopic == nil {
		return "motioncue/samples"
	}
	return *c.MQTTTopic
}

// GetMQTTClientID returns the MQTT client ID or the default.
func (c *Config) GetMQTTClientID() string {
	if c.MQTTClientID == nil {
		return "motioncue-engine"
	}
	return *c.MQTTClientID
}

// GetDBPath returns the sqlite path; empty disables persistence.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetRecordingEnabled reports whether label events create recordings.
func (c *Config) GetRecordingEnabled() bool {
	if c.RecordingEnabled == nil {
		return false
	}
	return *c.RecordingEnabled
}
