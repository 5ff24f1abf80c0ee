// Package preset loads named dice expressions from YAML or TOML, so
// frequently used rolls such as "stats" or "attack" can be referred to by name.
package preset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/azdice/internal/dice"
)

// Preset is a named dice expression.
//
// Precondition: Name and Expression must be non-empty.
type Preset struct {
	Name        string `yaml:"name" toml:"name"`
	Expression  string `yaml:"expression" toml:"expression"`
	Description string `yaml:"description" toml:"description"`
}

// presetFile is the top-level document: a "presets" list in YAML, or
// [[presets]] tables in TOML.
type presetFile struct {
	Presets []*Preset `yaml:"presets" toml:"presets"`
}

// Library is an immutable set of validated presets keyed by lowercase name.
//
// Invariant: every stored expression parses.
type Library struct {
	byName map[string]*Preset
	bags   map[string]*dice.Bag
}

// LoadFromBytes parses and validates a preset document.
//
// Postcondition: returns error on malformed YAML, empty or duplicate names,
// or any expression that fails to parse.
func LoadFromBytes(data []byte) (*Library, error) {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("preset: parsing: %w", err)
	}
	return build(f.Presets)
}

func isPresetFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".toml":
		return true
	}
	return false
}

func decodeFile(file string) ([]*Preset, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("preset: reading %s: %w", file, err)
	}
	var f presetFile
	if strings.EqualFold(filepath.Ext(file), ".toml") {
		if _, err := toml.Decode(string(data), &f); err != nil {
			return nil, fmt.Errorf("preset: parsing %s: %w", file, err)
		}
		return f.Presets, nil
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("preset: parsing %s: %w", file, err)
	}
	return f.Presets, nil
}

// Load reads one preset file, or every *.yaml, *.yml and *.toml file in a
// directory in lexicographic order. Files ending in .toml are decoded as
// TOML, everything else as YAML.
//
// Precondition: path must be a readable file or directory.
func Load(path string) (*Library, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("preset: %w", err)
	}
	files := []string{path}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("preset: reading %q: %w", path, err)
		}
		files = files[:0]
		for _, e := range entries {
			if !e.IsDir() && isPresetFile(e.Name()) {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
		sort.Strings(files)
	}

	var all []*Preset
	for _, file := range files {
		presets, err := decodeFile(file)
		if err != nil {
			return nil, err
		}
		all = append(all, presets...)
	}
	return build(all)
}

func build(presets []*Preset) (*Library, error) {
	lib := &Library{
		byName: make(map[string]*Preset, len(presets)),
		bags:   make(map[string]*dice.Bag, len(presets)),
	}
	var errs []error
	for _, p := range presets {
		if p == nil || p.Name == "" {
			errs = append(errs, errors.New("preset: entry has empty name"))
			continue
		}
		key := strings.ToLower(p.Name)
		if _, dup := lib.byName[key]; dup {
			errs = append(errs, fmt.Errorf("preset: duplicate name %q", p.Name))
			continue
		}
		if p.Expression == "" {
			errs = append(errs, fmt.Errorf("preset %q: expression must not be empty", p.Name))
			continue
		}
		bag, err := dice.Parse(p.Expression)
		if err != nil {
			errs = append(errs, fmt.Errorf("preset %q: %w", p.Name, err))
			continue
		}
		lib.byName[key] = p
		lib.bags[key] = bag
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return lib, nil
}

// Get returns the preset with the given name, case-insensitively.
func (l *Library) Get(name string) (Preset, bool) {
	p, ok := l.byName[strings.ToLower(name)]
	if !ok {
		return Preset{}, false
	}
	return *p, true
}

// Bag returns the parsed bag for a preset.
func (l *Library) Bag(name string) (*dice.Bag, bool) {
	b, ok := l.bags[strings.ToLower(name)]
	return b, ok
}

// Names returns every preset name in sorted order.
func (l *Library) Names() []string {
	out := make([]string, 0, len(l.byName))
	for _, p := range l.byName {
		out = append(out, p.Name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of presets.
func (l *Library) Len() int { return len(l.byName) }

// Resolve returns the bag named by ref, or parses ref as an expression when
// no preset has that name. A nil Library only parses.
func (l *Library) Resolve(ref string) (*dice.Bag, error) {
	if l != nil {
		if b, ok := l.Bag(ref); ok {
			return b, nil
		}
	}
	return dice.Parse(ref)
}
