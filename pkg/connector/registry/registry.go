package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/errors"
	"github.com/ajitpratap0/concord/pkg/logger"
)

// Registry manages connector registration and instantiation
type Registry struct {
	sources map[string]SourceFactory
	sinks   map[string]SinkFactory
	mu      sync.RWMutex
}

// SourceFactory creates a source from the run configuration.
type SourceFactory func(cfg *config.Config) (core.Source, error)

// SinkFactory creates a sink from the run configuration.
type SinkFactory func(cfg *config.Config) (core.Sink, error)

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new connector registry
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]SourceFactory),
		sinks:   make(map[string]SinkFactory),
	}
}

func (r *Registry) logger() *zap.Logger {
	return logger.Get().With(zap.String("component", "connector_registry"))
}

// RegisterSource registers a source connector factory
func (r *Registry) RegisterSource(name string, factory SourceFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("source connector %s already registered", name))
	}

	r.sources[name] = factory
	r.logger().Debug("source connector registered", zap.String("name", name))
	return nil
}

// RegisterSink registers a sink factory
func (r *Registry) RegisterSink(name string, factory SinkFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sinks[name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("sink %s already registered", name))
	}

	r.sinks[name] = factory
	r.logger().Debug("sink registered", zap.String("name", name))
	return nil
}

// CreateSource creates a source connector instance
func (r *Registry) CreateSource(name string, cfg *config.Config) (core.Source, error) {
	r.mu.RLock()
	factory, exists := r.sources[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("source connector %s not found", name)).
			WithDetail("available", r.ListSources())
	}

	source, err := factory(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create source connector %s", name))
	}

	return source, nil
}

// CreateSink creates a sink instance
func (r *Registry) CreateSink(name string, cfg *config.Config) (core.Sink, error) {
	r.mu.RLock()
	factory, exists := r.sinks[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("sink %s not found", name)).
			WithDetail("available", r.ListSinks())
	}

	sink, err := factory(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create sink %s", name))
	}

	return sink, nil
}

// ListSources returns the registered source names in sorted order
func (r *Registry) ListSources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]string, 0, len(r.sources))
	for name := range r.sources {
		sources = append(sources, name)
	}
	sort.Strings(sources)
	return sources
}

// ListSinks returns the registered sink names in sorted order
func (r *Registry) ListSinks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]string, 0, len(r.sinks))
	for name := range r.sinks {
		sinks = append(sinks, name)
	}
	sort.Strings(sinks)
	return sinks
}

// HasSource checks if a source connector is registered
func (r *Registry) HasSource(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.sources[name]
	return exists
}

// HasSink checks if a sink is registered
func (r *Registry) HasSink(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.sinks[name]
	return exists
}

// Global registry functions

// RegisterSource registers a source connector in the global registry
func RegisterSource(name string, factory SourceFactory) error {
	return globalRegistry.RegisterSource(name, factory)
}

// RegisterSink registers a sink in the global registry
func RegisterSink(name string, factory SinkFactory) error {
	return globalRegistry.RegisterSink(name, factory)
}

// CreateSource creates a source connector from the global registry
func CreateSource(name string, cfg *config.Config) (core.Source, error) {
	return globalRegistry.CreateSource(name, cfg)
}

// CreateSink creates a sink from the global registry
func CreateSink(name string, cfg *config.Config) (core.Sink, error) {
	return globalRegistry.CreateSink(name, cfg)
}

// ListSources returns registered sources from the global registry
func ListSources() []string {
	return globalRegistry.ListSources()
}

// ListSinks returns registered sinks from the global registry
func ListSinks() []string {
	return globalRegistry.ListSinks()
}

// GetRegistry returns the global registry instance.
func GetRegistry() *Registry {
	return globalRegistry
}

// ConnectorInfo provides information about a connector
type ConnectorInfo struct {
	Name        string             `json:"name" yaml:"name"`
	Type        core.ConnectorType `json:"type" yaml:"type"`
	Description string             `json:"description" yaml:"description"`
	// Settings documents the keys read from source.settings
	Settings map[string]string `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// ConnectorCatalog manages connector metadata
type ConnectorCatalog struct {
	connectors map[string]*ConnectorInfo
	mu         sync.RWMutex
}

// NewConnectorCatalog creates a new connector catalog
func NewConnectorCatalog() *ConnectorCatalog {
	return &ConnectorCatalog{
		connectors: make(map[string]*ConnectorInfo),
	}
}

func catalogKey(t core.ConnectorType, name string) string {
	return string(t) + "/" + name
}

// Register adds a connector to the catalog
func (c *ConnectorCatalog) Register(info *ConnectorInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := catalogKey(info.Type, info.Name)
	if _, exists := c.connectors[key]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("connector %s already in catalog", key))
	}

	c.connectors[key] = info
	return nil
}

// Get retrieves connector information
func (c *ConnectorCatalog) Get(t core.ConnectorType, name string) (*ConnectorInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, exists := c.connectors[catalogKey(t, name)]
	if !exists {
		return nil, errors.New(errors.ErrorTypeNotFound, fmt.Sprintf("connector %s not found in catalog", name))
	}

	return info, nil
}

// List returns all connectors in the catalog ordered by type and name
func (c *ConnectorCatalog) List() []*ConnectorInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	infos := make([]*ConnectorInfo, 0, len(c.connectors))
	for _, info := range c.connectors {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Type != infos[j].Type {
			return infos[i].Type > infos[j].Type
		}
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Global catalog instance
var globalCatalog = NewConnectorCatalog()

// RegisterConnectorInfo registers connector information in the global catalog
func RegisterConnectorInfo(info *ConnectorInfo) error {
	return globalCatalog.Register(info)
}

// GetConnectorInfo retrieves connector information from the global catalog
func GetConnectorInfo(t core.ConnectorType, name string) (*ConnectorInfo, error) {
	return globalCatalog.Get(t, name)
}

// ListConnectorInfo lists all connectors in the global catalog
func ListConnectorInfo() []*ConnectorInfo {
	return globalCatalog.List()
}
