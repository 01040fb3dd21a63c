package particle

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source resolves effect ids to parsed assets.
type Source interface {
	Load(id string) (*EffectAsset, error)
}

// ParseEffect parses an effect asset from YAML, applies defaults and validates it.
//
// Example usage:
//
//	asset, err := ParseEffect(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Loaded %s with %d modules\n", asset.Name, len(asset.Modules))
func ParseEffect(data []byte) (*EffectAsset, error) {
	var asset EffectAsset
	if err := yaml.Unmarshal(data, &asset); err != nil {
		return nil, fmt.Errorf("failed to parse effect: %w", err)
	}
	asset.ApplyDefaults()
	if err := asset.Validate(); err != nil {
		return nil, fmt.Errorf("invalid effect %q: %w", asset.Name, err)
	}
	return &asset, nil
}

// LoadEffect reads and parses an effect file from fsys. The asset name
// defaults to the file's base name.
func LoadEffect(fsys fs.FS, name string) (*EffectAsset, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read effect file %s: %w", name, err)
	}
	asset, err := ParseEffect(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if asset.Name == "" {
		asset.Name = strings.TrimSuffix(path.Base(name), path.Ext(name))
	}
	return asset, nil
}

// FSSource loads effects named <Dir>/<id>.yaml from a file system, such as
// the embedded data.Effects or os.DirFS.
type FSSource struct {
	FS  fs.FS
	Dir string
}

// NewFSSource creates a source rooted at dir inside fsys.
func NewFSSource(fsys fs.FS, dir string) *FSSource {
	return &FSSource{FS: fsys, Dir: dir}
}

// Load implements Source.
func (s *FSSource) Load(id string) (*EffectAsset, error) {
	return LoadEffect(s.FS, path.Join(s.Dir, id+".yaml"))
}

// List returns the ids of every effect in the source, sorted.
func (s *FSSource) List() ([]string, error) {
	pattern := path.Join(s.Dir, "*.yaml")
	if s.Dir == "" {
		pattern = "*.yaml"
	}
	matches, err := fs.Glob(s.FS, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list effects in %s: %w", s.Dir, err)
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, strings.TrimSuffix(path.Base(m), ".yaml"))
	}
	sort.Strings(ids)
	return ids, nil
}
