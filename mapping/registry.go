package mapping

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Registry loads TableConfigs from a directory of configuration files,
// caching parsed configurations until their file is modified.
type Registry struct {
	dir   string
	cache *lru.Cache
}

type cachedConfig struct {
	cfg     *TableConfig
	modTime time.Time
}

// NewRegistry returns a Registry of |dir| which caches up to |size| parsed
// configurations. |size| must be > 0.
func NewRegistry(dir string, size int) (*Registry, error) {
	var cache, err = lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Registry{dir: dir, cache: cache}, nil
}

// Paths returns the configuration files of the Registry directory, sorted.
func (r *Registry) Paths() ([]string, error) {
	var out []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		var m, err = filepath.Glob(filepath.Join(r.dir, pattern))
		if err != nil {
			return nil, errors.WithMessagef(err, "listing %s", r.dir)
		}
		out = append(out, m...)
	}
	sort.Strings(out)
	return out, nil
}

// Load the TableConfig at |path|, which may be absolute or relative to the
// Registry directory.
func (r *Registry) Load(path string) (*TableConfig, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.dir, path)
	}
	var info, err = os.Stat(path)
	if err != nil {
		return nil, errors.WithMessage(err, "reading configuration")
	}

	if v, ok := r.cache.Get(path); ok {
		if c := v.(cachedConfig); c.modTime.Equal(info.ModTime()) {
			return c.cfg, nil
		}
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	r.cache.Add(path, cachedConfig{cfg: cfg, modTime: info.ModTime()})
	return cfg, nil
}

// LoadAll loads every configuration of the Registry directory. A file which
// fails to load is logged and reported in the returned map, and does not
// prevent the loading of other files.
func (r *Registry) LoadAll() ([]*TableConfig, map[string]error, error) {
	var paths, err = r.Paths()
	if err != nil {
		return nil, nil, err
	}
	var out []*TableConfig
	var failed = make(map[string]error)

	for _, p := range paths {
		if cfg, err := r.Load(p); err != nil {
			log.WithFields(log.Fields{"path": p, "err": err}).Warn("failed to load configuration")
			failed[p] = err
		} else {
			out = append(out, cfg)
		}
	}
	return out, failed, nil
}
