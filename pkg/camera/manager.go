package camera

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidConfig is returned for settings outside the supported ranges.
var ErrInvalidConfig = errors.New("camera: invalid config")

// Manager holds the current camera configuration and handles updates.
type Manager struct {
	config Config
	mu     sync.RWMutex

	// Callback when config changes (for rebinding the feed)
	OnConfigChange func(cfg Config) error
}

// NewManager creates a new camera manager with the given config.
func NewManager(cfg Config) *Manager {
	return &Manager{config: cfg}
}

// GetConfig returns the current camera configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Facing returns the active facing mode.
func (m *Manager) Facing() FacingMode {
	return m.GetConfig().Facing
}

// SetConfig validates and applies a configuration.
func (m *Manager) SetConfig(cfg Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, errs)
	}

	m.mu.Lock()
	m.config = cfg
	callback := m.OnConfigChange
	m.mu.Unlock()

	if callback != nil {
		if err := callback(cfg); err != nil {
			return fmt.Errorf("camera: apply config: %w", err)
		}
	}
	return nil
}

// SwitchFacing toggles between the user- and environment-facing camera and
// returns the new mode.
func (m *Manager) SwitchFacing() (FacingMode, error) {
	cfg := m.GetConfig()
	cfg.Facing = cfg.Facing.Toggle()
	if err := m.SetConfig(cfg); err != nil {
		return "", err
	}
	return cfg.Facing, nil
}

// UpdateConfig updates specific fields of the configuration.
// Accepts a map of field names to values, optionally with a "preset" base.
func (m *Manager) UpdateConfig(params map[string]interface{}) error {
	cfg := m.GetConfig()

	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("%w: unknown preset %s", ErrInvalidConfig, presetName)
		}
		cfg = *preset
	}

	for key, value := range params {
		switch key {
		case "device_id":
			if v, ok := toInt(value); ok {
				cfg.DeviceID = v
			}
		case "width":
			if v, ok := toInt(value); ok {
				cfg.Width = v
			}
		case "height":
			if v, ok := toInt(value); ok {
				cfg.Height = v
			}
		case "framerate":
			if v, ok := toInt(value); ok {
				cfg.Framerate = v
			}
		case "facing":
			if v, ok := value.(string); ok {
				mode, err := ParseFacingMode(v)
				if err != nil {
					return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
				}
				cfg.Facing = mode
			}
		}
	}

	return m.SetConfig(cfg)
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}
