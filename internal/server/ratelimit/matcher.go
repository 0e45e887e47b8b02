package ratelimit

import "strings"

// matchEndpoint resolves the budget for a request path and method. Exact
// path matches win; patterns ending in "/" match by prefix, covering the
// per-project subroutes like /projects/{id}/sync. Returns nil when no
// budget is configured for the route.
func (c *Config) matchEndpoint(path string, method string) *EndpointConfig {
	// Health probes are never limited.
	if path == "/health" && method == "GET" {
		return &EndpointConfig{}
	}

	for i := range c.EndpointConfigs {
		cfg := &c.EndpointConfigs[i]
		if cfg.Method == method && cfg.Path == path {
			return cfg
		}
	}

	for i := range c.EndpointConfigs {
		cfg := &c.EndpointConfigs[i]
		if cfg.Method == method && strings.HasSuffix(cfg.Path, "/") && strings.HasPrefix(path, cfg.Path) {
			return cfg
		}
	}

	return nil
}
