// Package config replaces the global ServicesConf*/process-wide logger
// pattern of the original tool with a Context constructed once at
// process start and passed by reference to every entry point.
package config

import (
	"go.uber.org/zap"

	"github.com/pspoerri/rastertiles/internal/pyramid"
)

// Context is the per-process state every entry point reads: the logger,
// the loaded pyramid set (serving path only; nil for the offline merge
// tool), and process-wide defaults. It is built once at startup and
// never mutated afterward.
type Context struct {
	Logger      *zap.Logger
	Pyramids    map[string]*pyramid.Pyramid // layer name -> pyramid
	Concurrency int
}

// NewContext builds a Context around an already-constructed logger.
// pyramids may be nil for tools that never resolve tiles.
func NewContext(logger *zap.Logger, pyramids map[string]*pyramid.Pyramid, concurrency int) *Context {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Context{Logger: logger, Pyramids: pyramids, Concurrency: concurrency}
}

// Close releases every pyramid's open container handles.
func (c *Context) Close() error {
	var first error
	for _, p := range c.Pyramids {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
