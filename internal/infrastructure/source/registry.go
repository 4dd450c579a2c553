package source

import (
	"context"
	"fmt"

	"PubmedLoader/internal/config"
	"PubmedLoader/internal/ports"
)

// Factory builds a FileSource from corpus settings.
type Factory func(ctx context.Context, cfg config.CorpusConfig) (ports.FileSource, error)

// Registry keeps a mapping from corpus driver names to their factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// DefaultRegistry knows the local, http and s3 drivers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(config.CorpusLocal, func(_ context.Context, cfg config.CorpusConfig) (ports.FileSource, error) {
		src, err := NewLocalSource(cfg.Root)
		if err != nil {
			return nil, err
		}
		return src, nil
	})
	r.Register(config.CorpusHTTP, func(_ context.Context, cfg config.CorpusConfig) (ports.FileSource, error) {
		src, err := NewHTTPSource(cfg.URL, nil)
		if err != nil {
			return nil, err
		}
		return src, nil
	})
	r.Register(config.CorpusS3, func(ctx context.Context, cfg config.CorpusConfig) (ports.FileSource, error) {
		client, err := NewS3Client(ctx, cfg.Region, cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		return NewS3Source(client, cfg.Bucket, cfg.Prefix), nil
	})
	return r
}

// Register adds or replaces a driver.
func (r *Registry) Register(name string, factory Factory) {
	if r.factories == nil {
		r.factories = map[string]Factory{}
	}
	r.factories[name] = factory
}

// Resolve returns a factory by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Factory, error) {
	if factory, ok := r.factories[name]; ok {
		return factory, nil
	}
	return nil, fmt.Errorf("corpus driver %s is not registered", name)
}

// Open resolves cfg.Driver and builds the source.
func (r *Registry) Open(ctx context.Context, cfg config.CorpusConfig) (ports.FileSource, error) {
	factory, err := r.Resolve(cfg.Driver)
	if err != nil {
		return nil, err
	}
	src, err := factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s corpus: %w", cfg.Driver, err)
	}
	return src, nil
}
