package survey

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatForPath picks the decoder from a file extension.
func FormatForPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".json":
		return FormatJSON, true
	default:
		return "", false
	}
}

// ValidationError lists every structural problem found in one document.
type ValidationError struct {
	Version  string
	Problems []string
}

func (e *ValidationError) Error() string {
	label := e.Version
	if label == "" {
		label = "<unversioned>"
	}
	return fmt.Sprintf("survey %s: %d problem(s): %s", label, len(e.Problems), strings.Join(e.Problems, "; "))
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

func ParseFile(path string) (*Definition, error) {
	format, ok := FormatForPath(path)
	if !ok {
		return nil, fmt.Errorf("survey: unsupported file extension %q", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("survey: read %s: %w", path, err)
	}
	def, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("survey: %s: %w", filepath.Base(path), err)
	}
	return def, nil
}

// Parse decodes and validates a definition. The returned Definition is indexed
// and safe for concurrent reads.
func Parse(data []byte, format Format) (*Definition, error) {
	var def Definition
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML, "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if err := def.build(); err != nil {
		return nil, err
	}
	return &def, nil
}

// build validates the tree and fills the lookup indexes.
func (d *Definition) build() error {
	d.Version = strings.TrimSpace(d.Version)
	verr := &ValidationError{Version: d.Version}

	if err := structValidator().Struct(d); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			verr.Problems = append(verr.Problems, fmt.Sprintf("%s failed %q", trimNamespace(fe.Namespace()), fe.Tag()))
		}
	}

	d.categoryIndex = make(map[string]int, len(d.Categories))
	for i, c := range d.Categories {
		if _, dup := d.categoryIndex[c.ID]; dup {
			verr.Problems = append(verr.Problems, fmt.Sprintf("duplicate category id %q", c.ID))
			continue
		}
		d.categoryIndex[c.ID] = i
	}

	d.questionIndex = make(map[string]int, len(d.Questions))
	for i := range d.Questions {
		q := &d.Questions[i]
		if _, dup := d.questionIndex[q.ID]; dup {
			verr.Problems = append(verr.Problems, fmt.Sprintf("duplicate question id %q", q.ID))
			continue
		}
		d.questionIndex[q.ID] = i
		if _, ok := d.categoryIndex[q.CategoryID]; !ok && q.CategoryID != "" {
			verr.Problems = append(verr.Problems, fmt.Sprintf("question %q references unknown category %q", q.ID, q.CategoryID))
		}
		q.optionIndex = make(map[string]int, len(q.Options))
		for j, o := range q.Options {
			if _, dup := q.optionIndex[o.ID]; dup {
				verr.Problems = append(verr.Problems, fmt.Sprintf("question %q has duplicate option id %q", q.ID, o.ID))
				continue
			}
			q.optionIndex[o.ID] = j
		}
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// Canonical is the JSON form stored for a published definition.
func (d *Definition) Canonical() ([]byte, error) {
	return json.Marshal(d)
}

// Checksum is the hex sha256 of the canonical JSON form.
func (d *Definition) Checksum() (string, error) {
	raw, err := d.Canonical()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
