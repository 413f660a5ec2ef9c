package catalogue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a catalogue.
type File struct {
	Applications []Application `yaml:"applications" json:"applications"`
}

// Load reads a catalogue file, JSON when its extension is .json and YAML otherwise.
func Load(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue: %w", err)
	}

	var f File
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	c := New()
	for i, app := range f.Applications {
		if app.Key == "" {
			return nil, fmt.Errorf("%s: application %d has no key", filepath.Base(path), i+1)
		}
		if app.RestartCommand == "" {
			app.RestartCommand = Undefined
		}
		if app.CheckoutCommand == "" {
			app.CheckoutCommand = Undefined
		}
		c.add(app)
	}
	return c, nil
}
