// Package snapshot loads tree snapshots from JSON, YAML & TOML documents,
// normalising decoded values to the shapes produced by encoding/json
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for file extensions with no decoder
var ErrUnknownFormat = errors.New("unknown snapshot format")

// Format names a document encoding
type Format string

const (
	// FormatJSON is encoding/json
	FormatJSON = Format("json")
	// FormatYAML is YAML 1.2 as read by gopkg.in/yaml.v3
	FormatYAML = Format("yaml")
	// FormatTOML is TOML 1.0
	FormatTOML = Format("toml")
)

// FormatFromPath picks a format by file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Load reads & decodes the snapshot file at path
func Load(path string) (interface{}, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := Decode(bytes.NewReader(data), f)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %q: %w", path, err)
	}
	return v, nil
}

// Decode reads a single document from r
func Decode(r io.Reader, f Format) (interface{}, error) {
	var v interface{}
	switch f {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&v); err != nil {
			return nil, fmt.Errorf("decoding json: %w", err)
		}
		return v, nil
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&v); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
	case FormatTOML:
		doc := map[string]interface{}{}
		if err := toml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding toml: %w", err)
		}
		v = doc
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	return Normalize(v), nil
}

// Normalize converts a decoded tree to the types encoding/json produces:
// objects become map[string]interface{}, numbers float64, timestamps RFC 3339
// strings
func Normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		for key, val := range x {
			x[key] = Normalize(val)
		}
		return x
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(x))
		for key, val := range x {
			m[fmt.Sprint(key)] = Normalize(val)
		}
		return m
	case []interface{}:
		for i, val := range x {
			x[i] = Normalize(val)
		}
		return x
	case []map[string]interface{}:
		s := make([]interface{}, len(x))
		for i, val := range x {
			s[i] = Normalize(val)
		}
		return s
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case nil, string, bool, float64:
		return x
	case fmt.Stringer:
		// toml local dates & times
		return x.String()
	default:
		return x
	}
}
