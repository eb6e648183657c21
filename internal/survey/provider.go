package survey

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/yungbote/commonground-backend/internal/domain/alignment"
	"github.com/yungbote/commonground-backend/internal/platform/dbctx"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
)

// Provider resolves published definitions by version.
// Get returns ErrNotFound (possibly wrapped) for unknown versions.
type Provider interface {
	Get(ctx context.Context, version string) (*Definition, error)
	List(ctx context.Context) ([]Summary, error)
}

// Catalog is an in-process Provider populated at boot.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]*Definition
	sums map[string]string
}

func NewCatalog(defs ...*Definition) (*Catalog, error) {
	c := &Catalog{defs: map[string]*Definition{}, sums: map[string]string{}}
	for _, d := range defs {
		if err := c.Add(d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add registers a definition. Re-adding identical content is a no-op;
// different content under an existing version is rejected.
func (c *Catalog) Add(def *Definition) error {
	if def == nil {
		return errors.New("survey: nil definition")
	}
	sum, err := def.Checksum()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.sums[def.Version]; ok {
		if prev == sum {
			return nil
		}
		return fmt.Errorf("survey: version %q already loaded with different content", def.Version)
	}
	c.defs[def.Version] = def
	c.sums[def.Version] = sum
	return nil
}

func (c *Catalog) Get(_ context.Context, version string) (*Definition, error) {
	version = strings.TrimSpace(version)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if def, ok := c.defs[version]; ok {
		return def, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, version)
}

func (c *Catalog) List(_ context.Context) ([]Summary, error) {
	c.mu.RLock()
	out := make([]Summary, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d.Summary())
	}
	c.mu.RUnlock()
	sortSummaries(out)
	return out, nil
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.defs)
}

// LoadDir parses every .yaml/.yml/.json file in dir. Any invalid document
// fails the whole load.
func LoadDir(dir string, log *logger.Logger) (*Catalog, error) {
	cat, _ := NewCatalog()
	if strings.TrimSpace(dir) == "" {
		return cat, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("survey: read dir %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := FormatForPath(e.Name()); ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		def, err := ParseFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if err := cat.Add(def); err != nil {
			return nil, err
		}
		log.Info("survey loaded", "version", def.Version, "file", name, "questions", len(def.Questions))
	}
	return cat, nil
}

// DocumentSource reads published survey documents.
type DocumentSource interface {
	GetByVersion(dbc dbctx.Context, version string) (*alignment.SurveyDocument, error)
	List(dbc dbctx.Context) ([]*alignment.SurveyDocument, error)
}

// StoreProvider serves definitions published into the database. Published
// versions are immutable, so parsed definitions are cached for the process
// lifetime.
type StoreProvider struct {
	src DocumentSource
	log *logger.Logger

	mu    sync.RWMutex
	cache map[string]*Definition
}

func NewStoreProvider(src DocumentSource, log *logger.Logger) *StoreProvider {
	return &StoreProvider{
		src:   src,
		log:   log.With("provider", "SurveyStoreProvider"),
		cache: map[string]*Definition{},
	}
}

func (p *StoreProvider) Get(ctx context.Context, version string) (*Definition, error) {
	version = strings.TrimSpace(version)
	p.mu.RLock()
	def, ok := p.cache[version]
	p.mu.RUnlock()
	if ok {
		return def, nil
	}

	doc, err := p.src.GetByVersion(dbctx.Context{Ctx: ctx}, version)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, version)
	}
	def, err = Parse(doc.Document, FormatJSON)
	if err != nil {
		p.log.Error("stored survey document is invalid", "version", version, "error", err)
		return nil, fmt.Errorf("survey: stored document %q: %w", version, err)
	}

	p.mu.Lock()
	p.cache[version] = def
	p.mu.Unlock()
	return def, nil
}

func (p *StoreProvider) List(ctx context.Context) ([]Summary, error) {
	docs, err := p.src.List(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(docs))
	for _, d := range docs {
		out = append(out, Summary{Version: d.Version, Title: d.Title})
	}
	sortSummaries(out)
	return out, nil
}

// Chain consults providers in order; the first non-ErrNotFound answer wins.
type Chain []Provider

func (c Chain) Get(ctx context.Context, version string) (*Definition, error) {
	for _, p := range c {
		def, err := p.Get(ctx, version)
		if err == nil {
			return def, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, strings.TrimSpace(version))
}

// List merges catalogues; earlier providers win on duplicate versions.
func (c Chain) List(ctx context.Context) ([]Summary, error) {
	seen := map[string]bool{}
	out := []Summary{}
	for _, p := range c {
		items, err := p.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, s := range items {
			if seen[s.Version] {
				continue
			}
			seen[s.Version] = true
			out = append(out, s)
		}
	}
	sortSummaries(out)
	return out, nil
}
