package fetcher

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parcel-cli/internal/table"
)

// Loader loads a tabular file. Implementations must be safe for concurrent use.
type Loader interface {
	Load(ctx context.Context, path string) (*table.Table, error)
}

// FileLoader reads .xlsx and .csv files from disk. The table is named
// after the file without its extension.
type FileLoader struct {
	XLSX XLSXOptions
	CSV  CSVOptions
}

// Load implements Loader.
func (l FileLoader) Load(ctx context.Context, path string) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "fetcher: load cancelled")
	}

	ext := strings.ToLower(filepath.Ext(path))
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var (
		t   *table.Table
		err error
	)
	switch ext {
	case ".xlsx":
		t, err = ReadXLSXTable(path, name, l.XLSX)
	case ".csv":
		t, err = ReadCSVTable(ctx, path, name, l.CSV)
	default:
		return nil, eris.Errorf("fetcher: unsupported file type %q (%s)", ext, path)
	}
	if err != nil {
		return nil, err
	}

	zap.L().Debug("table loaded",
		zap.String("component", "loader"),
		zap.String("path", path),
		zap.Int("rows", t.Len()),
		zap.Int("columns", len(t.Columns())),
	)
	return t, nil
}

// CachingLoader memoizes another Loader by path. Callers receive a clone,
// so cached tables are never shared. The cache lives as long as the
// CachingLoader value.
type CachingLoader struct {
	next Loader

	mu     sync.Mutex
	tables map[string]*table.Table
}

// NewCachingLoader wraps next.
func NewCachingLoader(next Loader) *CachingLoader {
	return &CachingLoader{next: next, tables: make(map[string]*table.Table)}
}

// Load implements Loader.
func (c *CachingLoader) Load(ctx context.Context, path string) (*table.Table, error) {
	key := filepath.Clean(path)

	c.mu.Lock()
	t, ok := c.tables[key]
	c.mu.Unlock()
	if ok {
		return t.Clone(), nil
	}

	t, err := c.next.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if prev, ok := c.tables[key]; ok {
		t = prev
	} else {
		c.tables[key] = t
	}
	c.mu.Unlock()
	return t.Clone(), nil
}

// Len returns the number of cached tables.
func (c *CachingLoader) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tables)
}
