// Package widget is the catalog of embeddable chat widgets shown on the
// dashboard. Each widget is an iframe served by the provider.
package widget

import (
	"errors"
	"net/url"
	"strings"

	"trainhub/internal/config"
)

type Widget struct {
	Slug      string `json:"slug"`
	Label     string `json:"label"`
	IframeSrc string `json:"iframeSrc"`
}

// Catalog keeps widgets in configuration order.
type Catalog struct {
	items []Widget
	index map[string]int
}

func NewCatalog(items []config.Widget) (*Catalog, error) {
	c := &Catalog{index: map[string]int{}}
	for _, it := range items {
		w := Widget{
			Slug:      strings.TrimSpace(it.Slug),
			Label:     strings.TrimSpace(it.Label),
			IframeSrc: strings.TrimSpace(it.IframeSrc),
		}
		if w.Slug == "" {
			return nil, errors.New("widget slug is required")
		}
		if _, dup := c.index[w.Slug]; dup {
			return nil, errors.New("duplicate widget slug: " + w.Slug)
		}
		u, err := url.Parse(w.IframeSrc)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return nil, errors.New("widget " + w.Slug + ": iframe_src must be an absolute http(s) url")
		}
		if w.Label == "" {
			w.Label = w.Slug
		}
		c.index[w.Slug] = len(c.items)
		c.items = append(c.items, w)
	}
	return c, nil
}

func (c *Catalog) List() []Widget {
	out := make([]Widget, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Lookup(slug string) (Widget, bool) {
	i, ok := c.index[slug]
	if !ok {
		return Widget{}, false
	}
	return c.items[i], true
}
