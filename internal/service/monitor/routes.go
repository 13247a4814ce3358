package monitor

import (
	"slices"
	"strings"
)

// DefaultRoutes is the reference route catalog.
var DefaultRoutes = []string{
	"Lima - Arequipa",
	"Lima - Cusco",
	"Lima - Trujillo",
	"Lima - Piura",
	"Lima - Huancayo",
	"Arequipa - Cusco",
	"Cusco - Puno",
}

const routeSeparator = " - "

// RouteCatalog is an immutable set of route names. Matching is exact after trimming.
type RouteCatalog struct {
	routes []string
	set    map[string]struct{}
}

func NewRouteCatalog(routes []string) *RouteCatalog {
	c := &RouteCatalog{set: make(map[string]struct{}, len(routes))}
	for _, r := range routes {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, dup := c.set[r]; dup {
			continue
		}
		c.set[r] = struct{}{}
		c.routes = append(c.routes, r)
	}
	return c
}

func (c *RouteCatalog) Contains(route string) bool {
	_, ok := c.set[strings.TrimSpace(route)]
	return ok
}

func (c *RouteCatalog) List() []string {
	return slices.Clone(c.routes)
}

// SplitRoute splits "Lima - Cusco" into origin and destination city.
// A route without separator is returned as destination only.
func SplitRoute(route string) (origin, destination string) {
	before, after, found := strings.Cut(route, routeSeparator)
	if !found {
		return "", strings.TrimSpace(route)
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}
