package document

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/relnet/pkg/errors"
)

// ConfigKey is the reserved top-level key holding process-wide defaults.
const ConfigKey = "config"

// Format identifies the encoding of a relationship document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Document is a parsed relationship document.
type Document struct {
	// Config is the merged config mapping (never nil after Parse).
	Config map[string]any
	// Sections in declaration order, excluding config.
	Sections []Section
}

// Section is a named top-level group of blocks.
type Section struct {
	Name  string
	Value any
}

// Names returns section names in declaration order.
func (d *Document) Names() []string {
	names := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		names[i] = s.Name
	}
	return names
}

// Extensions lists the accepted document file extensions, without dots.
var Extensions = []string{"yaml", "yml", "toml"}

// FormatFromPath infers the document format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported document extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatTOML:
		return FormatTOML, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported document format %q", s)
	}
}

// Load reads and parses the document at path.
func Load(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data, format)
}

// Parse decodes data in the given format.
func Parse(data []byte, format Format) (*Document, error) {
	var (
		doc *Document
		err error
	)
	switch format {
	case FormatYAML:
		doc, err = parseYAML(data)
	case FormatTOML:
		doc, err = parseTOML(data)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported document format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func parseYAML(data []byte) (*Document, error) {
	doc := &Document{Config: map[string]any{}}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode yaml")
	}
	top := &root
	if top.Kind == yaml.DocumentNode {
		if len(top.Content) == 0 {
			return doc, nil
		}
		top = top.Content[0]
	}
	if top.Kind != yaml.MappingNode {
		return nil, errors.New(errors.ErrCodeInvalidInput, "top level of document must be a mapping")
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, val := top.Content[i].Value, top.Content[i+1]
		if seen[key] {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate top-level key %q (line %d)", key, top.Content[i].Line)
		}
		seen[key] = true

		var v any
		if err := val.Decode(&v); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode section %q", key)
		}
		if err := doc.add(key, Normalize(v)); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func parseTOML(data []byte) (*Document, error) {
	doc := &Document{Config: map[string]any{}}

	var raw map[string]any
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode toml")
	}

	// md.Keys lists every key in document order. A table declared only
	// through a dotted header ([config.node]) never appears with length 1,
	// so the top-level name is taken from the first key under it.
	seen := make(map[string]bool)
	for _, key := range md.Keys() {
		if len(key) == 0 || seen[key[0]] {
			continue
		}
		name := key[0]
		seen[name] = true
		if err := doc.add(name, Normalize(raw[name])); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (d *Document) add(key string, v any) error {
	if key != ConfigKey {
		d.Sections = append(d.Sections, Section{Name: key, Value: v})
		return nil
	}
	cfg, err := mergeConfig(v)
	if err != nil {
		return err
	}
	d.Config = cfg
	return nil
}

// mergeConfig accepts config as a mapping or a list of mappings merged left to right.
func mergeConfig(v any) (map[string]any, error) {
	switch c := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return c, nil
	case []any:
		merged := make(map[string]any)
		for i, item := range c {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, errors.Config(ConfigKey, "config list element %d must be a mapping, got %T", i, item)
			}
			for k, val := range m {
				merged[k] = val
			}
		}
		return merged, nil
	default:
		return nil, errors.Config(ConfigKey, "config must be a mapping or a list of mappings, got %T", v)
	}
}

// Normalize converts decoder-specific container types into map[string]any and
// []any, recursively. Non-string mapping keys are formatted with fmt.
func Normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = Normalize(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	default:
		return v
	}
}
