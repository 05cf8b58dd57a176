package project

import (
	"encoding/json"
	"fmt"
	"path"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/chazu/boxel/pkg/bundler"
)

// ManifestFiles are the manifest names tried in order.
var ManifestFiles = []string{"boxel.yaml", "boxel.yml", "package.json"}

// Manifest is the project description. Inscriptions maps bare specifiers to
// inscription ids or URLs and feeds the generated import map.
type Manifest struct {
	Name         string            `json:"name" yaml:"name"`
	Version      string            `json:"version" yaml:"version"`
	Entry        string            `json:"entry,omitempty" yaml:"entry,omitempty"`
	Inscriptions map[string]string `json:"inscriptions,omitempty" yaml:"inscriptions,omitempty"`
	Libraries    map[string]string `json:"libraries,omitempty" yaml:"libraries,omitempty"`
}

// ManifestError reports a manifest that could not be used.
type ManifestError struct {
	File string
	Err  error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest %s: %v", e.File, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// ParseManifest decodes a manifest by file name: YAML for .yaml/.yml, JSON
// otherwise. A non-empty version must be valid semver.
func ParseManifest(name string, data []byte) (Manifest, error) {
	var m Manifest
	var err error
	switch path.Ext(name) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return Manifest{}, &ManifestError{File: name, Err: err}
	}
	if m.Version != "" {
		if _, err := semver.NewVersion(m.Version); err != nil {
			return Manifest{}, &ManifestError{File: name, Err: fmt.Errorf("version %q: %w", m.Version, err)}
		}
	}
	return m, nil
}

// FindManifest returns the first manifest present in files. ok is false
// when the project has none, which is not an error.
func FindManifest(files bundler.FileMap) (m Manifest, ok bool, err error) {
	for _, name := range ManifestFiles {
		src, found := files[name]
		if !found {
			continue
		}
		m, err = ParseManifest(name, []byte(src))
		return m, err == nil, err
	}
	return Manifest{}, false, nil
}

// InscriptionMap returns the manifest inscriptions in bundler form.
func (m Manifest) InscriptionMap() bundler.InscriptionMap {
	out := bundler.InscriptionMap{}
	for k, v := range m.Inscriptions {
		out[k] = v
	}
	return out
}

// SemVer returns the parsed version, or nil when the manifest has none.
func (m Manifest) SemVer() *semver.Version {
	v, err := semver.NewVersion(m.Version)
	if err != nil {
		return nil
	}
	return v
}
