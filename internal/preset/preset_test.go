package preset_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/azdice/internal/dice"
	"github.com/cory-johannsen/azdice/internal/preset"
)

const sample = `
presets:
  - name: stats
    expression: 4d6dl1
    description: ability score
  - name: Attack
    expression: 1d20 + 5
  - name: fireball
    expression: 8d6
`

func TestLoadFromBytes(t *testing.T) {
	lib, err := preset.LoadFromBytes([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, 3, lib.Len())
	assert.Equal(t, []string{"Attack", "fireball", "stats"}, lib.Names())

	p, ok := lib.Get("STATS")
	require.True(t, ok)
	assert.Equal(t, "4d6dl1", p.Expression)
	assert.Equal(t, "ability score", p.Description)

	bag, ok := lib.Bag("attack")
	require.True(t, ok)
	assert.Equal(t, dice.Range{Min: 6, Max: 25}, bag.Range())

	_, ok = lib.Get("missing")
	assert.False(t, ok)
}

func TestLoadFromBytes_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":       "presets: [",
		"empty name":     "presets:\n  - expression: 1d6\n",
		"empty expr":     "presets:\n  - name: x\n",
		"duplicate":      "presets:\n  - {name: a, expression: 1d6}\n  - {name: A, expression: 1d8}\n",
		"bad expression": "presets:\n  - {name: a, expression: 4d6dl4}\n",
	}
	for name, doc := range cases {
		_, err := preset.LoadFromBytes([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestLoadFromBytes_ParseErrorWrapped(t *testing.T) {
	_, err := preset.LoadFromBytes([]byte("presets:\n  - {name: a, expression: 4d6dl4}\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, dice.ExcessiveDrop)
	assert.Contains(t, err.Error(), `preset "a"`)
}

func TestLoad_FileAndDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("presets:\n  - {name: one, expression: 1d4}\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("presets:\n  - {name: two, expression: 2d4}\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.toml"), []byte(`
[[presets]]
name = "three"
expression = "3d4 + 1"
description = "from toml"
`), 0644))

	lib, err := preset.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "three", "two"}, lib.Names())
	p, ok := lib.Get("three")
	require.True(t, ok)
	assert.Equal(t, "from toml", p.Description)
	bag, _ := lib.Bag("three")
	assert.Equal(t, dice.Range{Min: 4, Max: 13}, bag.Range())

	lib, err = preset.Load(filepath.Join(dir, "a.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, lib.Names())

	_, err = preset.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[presets]\nname = "), 0644))
	_, err := preset.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.toml")
}

func TestLibrary_Resolve(t *testing.T) {
	lib, err := preset.LoadFromBytes([]byte(sample))
	require.NoError(t, err)

	bag, err := lib.Resolve("fireball")
	require.NoError(t, err)
	assert.Equal(t, "8d6", bag.String())

	bag, err = lib.Resolve("2d10")
	require.NoError(t, err)
	assert.Equal(t, "2d10", bag.String())

	_, err = lib.Resolve("nonsense")
	assert.Error(t, err)

	var none *preset.Library
	bag, err = none.Resolve("1d6")
	require.NoError(t, err)
	assert.Equal(t, "1d6", bag.String())
}
