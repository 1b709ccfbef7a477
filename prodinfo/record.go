package prodinfo

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Record is the build-configuration record written into the install
// directory once a product is built. Its presence marks the product as
// installed.
type Record struct {
	Product string      `yaml:"product"`
	Version string      `yaml:"version"`
	Build   BuildMethod `yaml:"build"`

	// Revision describes the checked out VCS revision, if known.
	Revision string `yaml:"revision,omitempty"`

	// Depends maps each transitive dependency to its configured version.
	Depends map[string]string `yaml:"depends,omitempty"`

	BuiltAt time.Time `yaml:"built_at"`
}

// RecordPath returns the path of the product's build-configuration record.
func RecordPath(p *Product) string {
	return filepath.Join(p.InstallDir, "build-config-"+p.Name+".yaml")
}

// NewRecord makes the record of a product that was just built.
func (a *Application) NewRecord(p *Product, revision string) *Record {
	r := &Record{
		Product:  p.Name,
		Version:  p.Version,
		Build:    p.Build,
		Revision: revision,
		BuiltAt:  time.Now().UTC().Truncate(time.Second),
	}
	for _, dep := range p.DependAll {
		if d, ok := a.byName[dep]; ok {
			if r.Depends == nil {
				r.Depends = make(map[string]string)
			}
			r.Depends[dep] = d.Version
		}
	}
	return r
}

// WriteRecord writes the record into the product's install directory.
func WriteRecord(p *Product, r *Record) error {
	bs, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal build record: %w", err)
	}
	if err := os.MkdirAll(p.InstallDir, 0755); err != nil {
		return fmt.Errorf("make install dir: %w", err)
	}
	if err := os.WriteFile(RecordPath(p), bs, 0644); err != nil {
		return fmt.Errorf("write build record: %w", err)
	}
	return nil
}

// ReadRecord reads the product's build-configuration record.
func ReadRecord(p *Product) (*Record, error) {
	bs, err := os.ReadFile(RecordPath(p))
	if err != nil {
		return nil, err
	}
	r := new(Record)
	dec := yaml.NewDecoder(bytes.NewReader(bs))
	dec.KnownFields(true)
	if err := dec.Decode(r); err != nil {
		return nil, fmt.Errorf("decode build record of %q: %w", p.Name, err)
	}
	return r, nil
}

// RemoveRecord deletes the product's build-configuration record. A missing
// record is not an error.
func RemoveRecord(p *Product) error {
	if err := os.Remove(RecordPath(p)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SameVersion reports whether two versions are the same. Versions that parse
// as semantic versions are compared as such, so "1.2" and "1.2.0" match.
func SameVersion(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return va.Equal(vb)
}
