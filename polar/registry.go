package polar

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	log "github.com/sirupsen/logrus"
)

// Registry loads polar tables by id from `<dir>/<id>.json` and keeps the
// recently used ones. Tables are immutable, so sessions share them.
type Registry struct {
	dir   string
	cache *expirable.LRU[string, *Table]
}

func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:   dir,
		cache: expirable.NewLRU[string, *Table](16, nil, 12*time.Hour),
	}
}

func (r *Registry) Get(id string) (*Table, error) {
	if p, ok := r.cache.Get(id); ok {
		return p, nil
	}

	if id == "" || filepath.Base(id) != id {
		return nil, fmt.Errorf("invalid polar id '%s'", id)
	}

	file := filepath.Join(r.dir, id+".json")
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("opening polar '%s': %w", id, err)
	}
	defer f.Close()

	p, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("polar '%s': %w", id, err)
	}
	if p.Id == "" {
		p.Id = id
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("polar '%s': %w", id, err)
	}

	log.Infof("Load polar %s (%d tws x %d twa)", id, len(p.Tws), len(p.Twa))
	r.cache.Add(id, p)

	return p, nil
}

// Put registers an in-memory table.
func (r *Registry) Put(p *Table) {
	r.cache.Add(p.Id, p)
}
