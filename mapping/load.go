package mapping

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Format of a configuration document.
type Format int

const (
	JSON Format = iota
	YAML
)

// FormatOf returns the Format implied by the extension of |path|.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// Parse and Init a TableConfig from |b|.
func Parse(b []byte, format Format) (*TableConfig, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, ErrEmptyConfig
	}
	var cfg = new(TableConfig)
	var err error

	if format == YAML {
		err = yaml.UnmarshalStrict(b, cfg)
	} else {
		err = json.Unmarshal(b, cfg)
	}
	if err != nil {
		return nil, errors.WithMessage(err, "decoding configuration")
	}
	if err = cfg.Init(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load and Init a TableConfig from the file at |path|. Returned errors
// identify the file.
func Load(path string) (*TableConfig, error) {
	var b, err = os.ReadFile(path)
	if err != nil {
		return nil, errors.WithMessage(err, "reading configuration")
	}
	cfg, err := Parse(b, FormatOf(path))
	if err != nil {
		return nil, errors.WithMessagef(err, "configuration %s", path)
	}
	cfg.Source = path
	return cfg, nil
}

// Encode the TableConfig to |w| in the given Format.
func Encode(w io.Writer, cfg *TableConfig, format Format) error {
	var b []byte
	var err error

	if format == YAML {
		b, err = yaml.Marshal(cfg)
	} else if b, err = json.MarshalIndent(cfg, "", "  "); err == nil {
		b = append(b, '\n')
	}
	if err != nil {
		return errors.WithMessage(err, "encoding configuration")
	}
	_, err = w.Write(b)
	return err
}
