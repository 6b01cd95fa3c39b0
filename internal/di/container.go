package di

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"sitecontent/internal/content"
	"sitecontent/internal/content/config"
	"sitecontent/internal/shared/logger"
)

// Container owns the application modules and their shutdown order.
type Container struct {
	mu sync.RWMutex
	// Module instances
	ContentModule *content.ContentModule
	// Configuration
	Config *config.Config
	// Logger
	Logger logger.Logger
	closed bool
}

// NewContainer creates a container for cfg. A nil logger is built from the
// logging configuration.
func NewContainer(cfg *config.Config, log logger.Logger) *Container {
	if log == nil {
		log = logger.New(cfg.Log)
	}
	return &Container{Config: cfg, Logger: log}
}

// InitializeContent builds the content module.
func (c *Container) InitializeContent(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ContentModule != nil {
		return nil
	}
	m, err := content.NewContentModule(ctx, c.Config, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create content module: %w", err)
	}
	c.ContentModule = m
	return nil
}

// GetContentModule returns the content module instance
func (c *Container) GetContentModule() *content.ContentModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ContentModule
}

// HealthCheck performs health check on all registered modules
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ContentModule == nil {
		return fmt.Errorf("content module not initialized")
	}
	if err := c.ContentModule.HealthCheck(ctx); err != nil {
		return fmt.Errorf("content health check failed: %w", err)
	}
	return nil
}

// Cleanup stops modules in reverse order of initialization.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.ContentModule != nil {
		if err := c.ContentModule.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop content module: %w", err))
		}
		c.ContentModule = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// Close gracefully shuts down all services in the container with timeout
func (c *Container) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Cleanup(ctx); err != nil {
		c.Logger.Warn("container cleanup failed", zap.Error(err))
		return err
	}
	c.Logger.Info("container resources closed")
	return nil
}
