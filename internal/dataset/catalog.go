// Package dataset keeps a process-wide catalog of registered training datasets
// and the class metadata derived from them.
package dataset

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ErrAlreadyRegistered is returned when a dataset name is registered twice.
var ErrAlreadyRegistered = errors.New("dataset already registered")

// ErrNotRegistered is returned when looking up an unknown dataset name.
var ErrNotRegistered = errors.New("dataset not registered")

type entry struct {
	annotationsPath string
	imagesDir       string
	loaded          *Dataset
}

// Catalog maps dataset names to COCO annotation files. Datasets are parsed on first Get.
type Catalog struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]*entry)}
}

var defaultCatalog = NewCatalog()

// Default returns the process-wide catalog.
func Default() *Catalog {
	return defaultCatalog
}

// Register adds a COCO-format dataset under name.
func (c *Catalog) Register(name, annotationsPath, imagesDir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[name]; exists {
		return errors.Wrapf(ErrAlreadyRegistered, "register %q", name)
	}
	c.entries[name] = &entry{annotationsPath: annotationsPath, imagesDir: imagesDir}
	return nil
}

// IsRegistered reports whether name is present in the catalog.
func (c *Catalog) IsRegistered(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.entries[name]
	return exists
}

// List returns the registered names in sorted order.
func (c *Catalog) List() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get parses (once) and returns the dataset registered under name.
func (c *Catalog) Get(name string) (*Dataset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[name]
	if !exists {
		return nil, errors.Wrapf(ErrNotRegistered, "get %q", name)
	}
	if e.loaded != nil {
		return e.loaded, nil
	}

	ds, err := LoadCOCO(name, e.annotationsPath, e.imagesDir)
	if err != nil {
		return nil, err
	}
	e.loaded = ds
	return ds, nil
}

// Remove drops name from the catalog. Removing an unknown name is a no-op.
func (c *Catalog) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
}
