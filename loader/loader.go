package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kenilGamer/restodrive-dbsetup/schema"
)

// ErrConfigNotFound is returned when the config file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

// ReadRaw reads a config file and decodes it into an untyped document.
// Files ending in .yaml or .yml are read as YAML, anything else as JSON.
func ReadRaw(filename string) (any, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, filename)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Decode(data, filepath.Ext(filename))
}

// Decode parses data as YAML when ext is .yaml/.yml and as JSON otherwise.
func Decode(data []byte, ext string) (any, error) {
	var raw any
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("unmarshalling YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
	}
	return raw, nil
}

// LoadConfig reads, decodes and validates a config file.
func LoadConfig(filename string) (*schema.Config, error) {
	raw, err := ReadRaw(filename)
	if err != nil {
		return nil, err
	}
	return schema.Parse(raw)
}
