// Package file mirrors map rows into a directory, one file per entry.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ValentinKolb/dSM/lib/replicator"
	"github.com/ValentinKolb/dSM/lib/replicator/fieldmap"
)

// fileExt is the extension of every mirrored row file
const fileExt = ".value"

// fileReplicator mirrors rows of type V into a directory. Each file holds
// one row as COLUMN=value lines, the key column first.
type fileReplicator[K comparable, V any] struct {
	directory string
	mapper    *fieldmap.Mapper[V]
}

// NewFileReplicator creates a replicator mirroring rows into the given
// directory. The directory must already exist. The key field of V must have
// type K so that bulk loads can rebuild the row keys.
func NewFileReplicator[K comparable, V any](directory string) (replicator.IExternalReplicator[K, V], error) {
	info, err := os.Stat(directory)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("not a valid directory: %s", directory)
	}

	mapper, err := fieldmap.New[V]()
	if err != nil {
		return nil, err
	}

	// fail fast if the key field cannot produce keys of type K
	var zero V
	if _, ok := mapper.KeyOf(zero).(K); !ok {
		return nil, fmt.Errorf("key field of %T is not of key type %T", zero, *new(K))
	}

	return &fileReplicator[K, V]{
		directory: directory,
		mapper:    mapper,
	}, nil
}

// toFile derives the row file path for a key
func (r *fileReplicator[K, V]) toFile(key K) (string, error) {
	name := fmt.Sprint(key)
	if name == "" || strings.ContainsRune(name, os.PathSeparator) {
		return "", fmt.Errorf("key %q cannot be used as a file name", name)
	}
	return filepath.Join(r.directory, name+fileExt), nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see replicator/interface.go)
// --------------------------------------------------------------------------

func (r *fileReplicator[K, V]) PutExternal(key K, value V) error {
	path, err := r.toFile(key)
	if err != nil {
		return err
	}

	var sb strings.Builder
	for _, f := range r.mapper.Fields(value, false) {
		sb.WriteString(f.Column)
		sb.WriteString("=")
		sb.WriteString(f.Value)
		sb.WriteString("\n")
	}

	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

func (r *fileReplicator[K, V]) RemoveExternal(key K) error {
	path, err := r.toFile(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (r *fileReplicator[K, V]) GetExternal(key K) (V, bool, error) {
	var zero V

	path, err := r.toFile(key)
	if err != nil {
		return zero, false, err
	}

	v, err := r.load(path)
	if err != nil {
		if os.IsNotExist(err) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return v, true, nil
}

func (r *fileReplicator[K, V]) GetAllExternal() (map[K]V, error) {
	entries, err := os.ReadDir(r.directory)
	if err != nil {
		return nil, fmt.Errorf("not a valid directory: %s", r.directory)
	}

	result := make(map[K]V)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}

		v, err := r.load(filepath.Join(r.directory, entry.Name()))
		if err != nil {
			replicator.Logger.Errorf("failed to load %s, skipping: %v", entry.Name(), err)
			continue
		}

		// the constructor verified the assertion cannot fail
		result[r.mapper.KeyOf(v).(K)] = v
	}

	return result, nil
}

func (r *fileReplicator[K, V]) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// load parses one row file back into a value
func (r *fileReplicator[K, V]) load(path string) (V, error) {
	var v V

	data, err := os.ReadFile(path)
	if err != nil {
		return v, err
	}

	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}

		column, raw, found := strings.Cut(line, "=")
		if !found {
			replicator.Logger.Debugf("skipping line %q from file %s, missing '='", line, path)
			continue
		}

		if err := r.mapper.SetColumn(&v, column, raw); err != nil {
			replicator.Logger.Debugf("skipping column from file %s: %v", path, err)
		}
	}

	return v, nil
}
