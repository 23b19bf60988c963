package replicate

import (
	"context"
	"sort"
	"sync"

	"github.com/tideflow-io/tideflow/pkg/config"
	"github.com/tideflow-io/tideflow/pkg/errors"
	"github.com/tideflow-io/tideflow/pkg/remote"
)

// StreamSpec declares one replicable stream: where its collection lives,
// which response field holds the records, and whether the stream tolerates
// the concurrent strategy.
type StreamSpec struct {
	Name      string
	Endpoint  string
	ResultKey string
	Async     bool
}

// Fetcher is one stream's view of the remote collection. Implementations
// must return errors carrying the classification the retry policy
// switches on.
type Fetcher interface {
	FetchPage(ctx context.Context, req remote.PageRequest) ([]remote.Record, error)
	FetchCount(ctx context.Context, req remote.PageRequest) (int64, error)
}

// Catalog is a registry of stream specs keyed by name
type Catalog struct {
	mu      sync.RWMutex
	streams map[string]StreamSpec
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{streams: make(map[string]StreamSpec)}
}

// Register adds a stream spec; duplicate names are rejected
func (c *Catalog) Register(spec StreamSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if spec.Name == "" {
		return errors.New(errors.ErrorTypeValidation, "stream name is required")
	}
	if _, exists := c.streams[spec.Name]; exists {
		return errors.Newf(errors.ErrorTypeValidation, "stream %q already registered", spec.Name)
	}
	if spec.Endpoint == "" {
		spec.Endpoint = spec.Name
	}
	if spec.ResultKey == "" {
		spec.ResultKey = spec.Name
	}
	c.streams[spec.Name] = spec
	return nil
}

// Get returns the spec for a stream name
func (c *Catalog) Get(name string) (StreamSpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	spec, ok := c.streams[name]
	return spec, ok
}

// List returns all specs sorted by name
func (c *Catalog) List() []StreamSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()

	specs := make([]StreamSpec, 0, len(c.streams))
	for _, spec := range c.streams {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// DefaultCatalog returns the built-in stream catalog. The four listed
// streams are the ones known to behave correctly under concurrent page
// fetching; abandoned checkouts live under the checkouts collection.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, spec := range []StreamSpec{
		{Name: "orders", Async: true},
		{Name: "products", Async: true},
		{Name: "customers", Async: true},
		{Name: "abandoned_checkouts", Endpoint: "checkouts", ResultKey: "checkouts", Async: true},
		{Name: "custom_collections"},
		{Name: "collects"},
	} {
		if err := c.Register(spec); err != nil {
			panic(err)
		}
	}
	return c
}

// CatalogFromConfig builds a catalog from configured streams, falling back
// to the built-in catalog when none are configured
func CatalogFromConfig(streams []config.StreamConfig) (*Catalog, error) {
	if len(streams) == 0 {
		return DefaultCatalog(), nil
	}
	c := NewCatalog()
	for _, s := range streams {
		spec := StreamSpec{
			Name:      s.Name,
			Endpoint:  s.Endpoint,
			ResultKey: s.ResultKey,
			Async:     s.Async,
		}
		if err := c.Register(spec); err != nil {
			return nil, err
		}
	}
	return c, nil
}
