// context.go defines the Context interface for extension access to tagd internals.
//
// Extensions receive Context during Init(), not at construction, because
// they register before the service is available.

package extension

import (
	"github.com/jpl-au/tagd/internal/config"
	"github.com/jpl-au/tagd/internal/service"
)

// Context provides extensions controlled access to tagd internals.
type Context interface {
	// Service returns the tag service.
	Service() service.Service

	// Config returns user configuration.
	Config() *config.Config
}

type extContext struct {
	svc service.Service
	cfg *config.Config
}

// NewContext creates a new extension context.
func NewContext(svc service.Service, cfg *config.Config) Context {
	return &extContext{svc: svc, cfg: cfg}
}

func (c *extContext) Service() service.Service { return c.svc }

func (c *extContext) Config() *config.Config { return c.cfg }
