package config

import "errors"

// Stream is a source of config items.
type Stream interface {
	Get() (map[string]any, error)
}

// RepositoryStream exposes an existing repository as a stream.
type RepositoryStream struct {
	Repository *Repository
}

func (s RepositoryStream) Get() (map[string]any, error) {
	return s.Repository.All(), nil
}

// DataStream runs Data through Processor.
type DataStream struct {
	Data      any
	Processor Processor
}

func (s DataStream) Get() (map[string]any, error) {
	return s.Processor.Process(s.Data)
}

// FileStream reads a config file. Optional streams yield nothing when the
// file is missing.
type FileStream struct {
	Path     string
	Optional bool
}

func (s FileStream) Get() (map[string]any, error) {
	items, err := ReadFile(s.Path)
	var missing *FileNotFoundError
	if errors.As(err, &missing) && s.Optional {
		return map[string]any{}, nil
	}
	return items, err
}

// Merge reads every stream in order into one repository; later streams win.
func Merge(streams ...Stream) (*Repository, error) {
	repo := NewRepository(nil)
	for _, s := range streams {
		items, err := s.Get()
		if err != nil {
			return nil, err
		}
		repo.MergeRecursiveDistinct(items)
	}
	return repo, nil
}
