package config

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1396, cfg.Canvas.Width)
	assert.Equal(t, 1006, cfg.Canvas.Height)
	assert.Equal(t, ":3000", cfg.Server.Addr())
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Canvas, cfg.Canvas)
}

func TestLoadFormats(t *testing.T) {
	files := map[string]string{
		"booth.toml": "[canvas]\nwidth = 800\nheight = 600\n[frames]\nurl = \"http://cdn.local/frames/\"\n",
		"booth.yaml": "canvas:\n  width: 800\n  height: 600\nframes:\n  url: http://cdn.local/frames/\n",
		"booth.json": `{"canvas":{"width":800,"height":600},"frames":{"url":"http://cdn.local/frames/"}}`,
	}
	for name, body := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, 800, cfg.Canvas.Width)
			assert.Equal(t, 600, cfg.Canvas.Height)
			assert.Equal(t, "http://cdn.local/frames/", cfg.Frames.URL)
			// untouched sections keep their defaults
			assert.Equal(t, 0.9, cfg.Export.Quality)
		})
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "booth.ini")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PHOTOBOOTH_PORT", "8080")
	t.Setenv("PHOTOBOOTH_CAMERA_DEVICE", "2")
	t.Setenv("PHOTOBOOTH_GATEWAY_URL", "http://gw.local:3001")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 2, cfg.Camera.DeviceID)
	assert.Equal(t, "http://gw.local:3001", cfg.Messaging.GatewayURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = "http"
	cfg.Canvas.Width = 0
	cfg.Export.Quality = 1.5
	cfg.Camera.Facing = "sideways"

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, len(verrs))
	for i, v := range verrs {
		fields[i] = v.Field
	}
	assert.ElementsMatch(t, []string{"server.port", "canvas", "export.quality", "camera.facing"}, fields)
	assert.Contains(t, err.Error(), "; ")
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Frames.Dir = "/srv/frames"
	cfg.Messaging.GatewayURL = "http://gw.local"

	path := filepath.Join(t.TempDir(), "out", "booth.toml")
	require.NoError(t, Save(cfg, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#ff8000")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, G: 128, A: 255}, c)

	for _, bad := range []string{"", "#fff", "#gggggg", "#1234567"} {
		_, err := ParseHexColor(bad)
		assert.Error(t, err, bad)
	}
}
