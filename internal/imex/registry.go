package imex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/foesim/simcore/internal/core/ecs"
	"go.uber.org/zap"
)

// Exporter writes a world in one format.
type Exporter interface {
	Extension() string
	Export(w io.Writer, world *ecs.World) error
}

// Importer reads a world in one format.
type Importer interface {
	Extension() string
	Import(r io.Reader, world *ecs.World, tr *ecs.GroupTranslator) error
}

type entry[T any] struct {
	name string
	v    T
}

// Registry holds the exporters and importers a simulation knows about.
type Registry struct {
	log *zap.Logger

	mu        sync.RWMutex
	exporters []entry[Exporter]
	importers []entry[Importer]
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{log: log}
}

func (r *Registry) RegisterExporter(name string, e Exporter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.ContainsFunc(r.exporters, func(x entry[Exporter]) bool { return x.name == name }) {
		return fmt.Errorf("exporter %s: %w", name, ErrRegistered)
	}
	r.exporters = append(r.exporters, entry[Exporter]{name, e})
	return nil
}

func (r *Registry) DeregisterExporter(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.exporters)
	r.exporters = slices.DeleteFunc(r.exporters, func(x entry[Exporter]) bool { return x.name == name })
	return len(r.exporters) != n
}

func (r *Registry) RegisterImporter(name string, i Importer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.ContainsFunc(r.importers, func(x entry[Importer]) bool { return x.name == name }) {
		return fmt.Errorf("importer %s: %w", name, ErrRegistered)
	}
	r.importers = append(r.importers, entry[Importer]{name, i})
	return nil
}

func (r *Registry) DeregisterImporter(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.importers)
	r.importers = slices.DeleteFunc(r.importers, func(x entry[Importer]) bool { return x.name == name })
	return len(r.importers) != n
}

// Exporters lists exporter names in registration order.
func (r *Registry) Exporters() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.exporters))
	for i, e := range r.exporters {
		names[i] = e.name
	}
	return names
}

func (r *Registry) Exporter(name string) (Exporter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.exporters {
		if e.name == name {
			return e.v, true
		}
	}
	return nil, false
}

// Importer finds an importer by file extension.
func (r *Registry) Importer(ext string) (Importer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.importers {
		if strings.EqualFold(e.v.Extension(), ext) {
			return e.v, true
		}
	}
	return nil, false
}

// ExportAll writes world with every exporter to dir/base.<ext>. Each file is written
// to a temporary name and renamed into place. All exporters run; the first failure
// is returned.
func (r *Registry) ExportAll(dir, base string, world *ecs.World) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	r.mu.RLock()
	exporters := slices.Clone(r.exporters)
	r.mu.RUnlock()

	var firstErr error
	for _, e := range exporters {
		path := filepath.Join(dir, base+e.v.Extension())
		if err := writeFile(path, func(w io.Writer) error { return e.v.Export(w, world) }); err != nil {
			r.log.Error("export failed", zap.String("exporter", e.name), zap.String("path", path), zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("export %s: %w", e.name, err)
			}
			continue
		}
		r.log.Debug("exported", zap.String("exporter", e.name), zap.String("path", path))
	}
	return firstErr
}

// ImportFile loads path with the importer registered for its extension.
func (r *Registry) ImportFile(path string, world *ecs.World, tr *ecs.GroupTranslator) error {
	imp, ok := r.Importer(filepath.Ext(path))
	if !ok {
		return fmt.Errorf("import %s: %w", path, ErrNoImporter)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	defer f.Close()
	if err := imp.Import(f, world, tr); err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := fn(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
