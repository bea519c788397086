package schema_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doorYAML = `
initial: closed
states:
  closed:
    transitions:
      open: opened
      lock: locked
  opened:
    transitions:
      close: closed
  locked:
    transitions:
      unlock: closed
  broken:
`

func TestParse_YAMLKeepsOrder(t *testing.T) {
	cfg, err := schema.Parse([]byte(doorYAML), schema.FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "closed", cfg.Initial)
	assert.Equal(t, []string{"closed", "opened", "locked", "broken"}, cfg.States.Names())

	closed, ok := cfg.States.Get("closed")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"open": "opened", "lock": "locked"}, closed.Transitions)

	broken, ok := cfg.States.Get("broken")
	require.True(t, ok)
	assert.Empty(t, broken.Transitions)
}

func TestParse_JSON(t *testing.T) {
	raw := `{"initial": "b", "states": {"b": {"transitions": {"go": "a"}}, "a": {"transitions": {}}}}`
	cfg, err := schema.Parse([]byte(raw), schema.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, cfg.States.Names())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format schema.Format
	}{
		{"yaml syntax", "initial: [", schema.FormatYAML},
		{"yaml scalar root", "just a string", schema.FormatYAML},
		{"yaml states list", "initial: a\nstates: [a, b]", schema.FormatYAML},
		{"yaml bad transitions", "initial: a\nstates:\n  a:\n    transitions: [x]", schema.FormatYAML},
		{"json syntax", "{", schema.FormatJSON},
		{"unknown format", "{}", schema.Format("toml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.Parse([]byte(tt.data), tt.format)
			assert.Error(t, err)
		})
	}

	for _, blank := range []string{"", "   \n", "# only a comment\n"} {
		_, err := schema.Parse([]byte(blank), schema.FormatYAML)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig, "input %q", blank)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "door.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(doorYAML), 0644))
	cfg, err := schema.Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "closed", cfg.Initial)

	jsonPath := filepath.Join(dir, "door.JSON")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"initial":"x","states":{"x":{}}}`), 0644))
	cfg, err = schema.Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, cfg.States.Names())

	_, err = schema.Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, schema.FormatJSON, schema.FormatFromPath("a/b.json"))
	assert.Equal(t, schema.FormatYAML, schema.FormatFromPath("a/b.yaml"))
	assert.Equal(t, schema.FormatYAML, schema.FormatFromPath("machine"))
}

func TestDecode(t *testing.T) {
	raw := map[string]any{
		"initial": "idle",
		"states": map[string]any{
			"running": map[string]any{"transitions": map[string]any{"stop": "idle"}},
			"idle":    map[string]any{"transitions": map[string]any{"start": "running"}},
		},
	}
	cfg, err := schema.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "idle", cfg.Initial)
	assert.Equal(t, []string{"idle", "running"}, cfg.States.Names())

	_, err = schema.Decode(map[string]any{"initial": "idle", "extra": true})
	assert.Error(t, err)
}
