package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrProcessor is wrapped by every processing failure.
var ErrProcessor = errors.New("config: processor")

// FileNotFoundError is returned when a config file does not exist.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("config: file %s not found", e.Path)
}

func (e *FileNotFoundError) Unwrap() error { return fs.ErrNotExist }

// Processor turns raw resource data into a config tree.
type Processor interface {
	Process(data any) (map[string]any, error)
}

// JSONProcessor decodes JSON given as string or []byte.
type JSONProcessor struct{}

func (JSONProcessor) Process(data any) (map[string]any, error) {
	raw, err := bytesOf(data)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decoding json: %v", ErrProcessor, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// YAMLProcessor decodes YAML given as string or []byte. An empty document
// yields an empty tree.
type YAMLProcessor struct{}

func (YAMLProcessor) Process(data any) (map[string]any, error) {
	raw, err := bytesOf(data)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decoding yaml: %v", ErrProcessor, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// CallableProcessor calls a func() map[string]any or
// func() (map[string]any, error).
type CallableProcessor struct{}

func (CallableProcessor) Process(data any) (map[string]any, error) {
	switch fn := data.(type) {
	case func() map[string]any:
		return orEmpty(fn()), nil
	case func() (map[string]any, error):
		out, err := fn()
		if err != nil {
			return nil, fmt.Errorf("%w: callable: %v", ErrProcessor, err)
		}
		return orEmpty(out), nil
	default:
		return nil, fmt.Errorf("%w: callable processor expects a func returning a map, %T given", ErrProcessor, data)
	}
}

// ProcessorFor picks a processor from a file extension.
func ProcessorFor(path string) (Processor, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSONProcessor{}, nil
	case ".yml", ".yaml":
		return YAMLProcessor{}, nil
	default:
		return nil, fmt.Errorf("%w: no processor for %q", ErrProcessor, path)
	}
}

// ReadFile reads and processes a config file.
func ReadFile(path string) (map[string]any, error) {
	p, err := ProcessorFor(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &FileNotFoundError{Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return p.Process(raw)
}

// LoadFile reads a config file into a new Repository.
func LoadFile(path string) (*Repository, error) {
	items, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewRepository(items), nil
}

// Environment flattens an environment-sectioned tree: the "all" section,
// with the section named env merged over it. A tree without an "all" or env
// section is returned unchanged.
//
//	all:
//	  db: {host: localhost}
//	prod:
//	  db: {host: db.internal}
func Environment(items map[string]any, env string) map[string]any {
	all, hasAll := items["all"].(map[string]any)
	section, hasEnv := items[env].(map[string]any)
	if !hasAll && !hasEnv {
		return items
	}
	out := make(map[string]any)
	if hasAll {
		mergeInto(out, all)
	}
	if hasEnv {
		mergeInto(out, section)
	}
	return out
}

func bytesOf(data any) ([]byte, error) {
	switch t := data.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		return nil, fmt.Errorf("%w: expected string or []byte, %T given", ErrProcessor, data)
	}
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
