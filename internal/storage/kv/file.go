package kv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// File is a durable Store holding all keys in one YAML document.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile returns a File store at path. The file is created on first write.
func NewFile(path string) *File {
	return &File{path: path}
}

func (file *File) Get(key string) (string, bool, error) {
	file.mu.Lock()
	defer file.mu.Unlock()

	values, err := file.readLocked()
	if err != nil {
		return "", false, err
	}
	value, ok := values[key]
	return value, ok, nil
}

func (file *File) Set(key, value string) error {
	file.mu.Lock()
	defer file.mu.Unlock()

	values, err := file.readLocked()
	if err != nil {
		return err
	}
	values[key] = value
	return file.writeLocked(values)
}

func (file *File) readLocked() (map[string]string, error) {
	values := make(map[string]string)
	rawData, err := os.ReadFile(file.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, file.path, err)
	}
	if err := yaml.Unmarshal(rawData, &values); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrUnavailable, file.path, err)
	}
	if values == nil {
		values = make(map[string]string)
	}
	return values, nil
}

func (file *File) writeLocked(values map[string]string) (err error) {
	serialized, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrUnavailable, err)
	}
	dir := filepath.Dir(file.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create dir: %v", ErrUnavailable, err)
	}

	tmp, err := os.CreateTemp(dir, "prefs-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(serialized); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write temp: %v", ErrUnavailable, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp: %v", ErrUnavailable, err)
	}
	if err = os.Rename(tmpName, file.path); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrUnavailable, err)
	}
	return nil
}
