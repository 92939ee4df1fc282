// Package catalog holds the immutable mapping from topic category to its three
// ordered tiers of sources (API, RSS, web).
package catalog

import (
	_ "embed"
	"fmt"
	"net/url"
	"strings"

	appconfig "github.com/RobinCoderZhao/feedbot/pkg/config"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Kind tags the payload shape of a source.
type Kind string

const (
	KindAggregator Kind = "api-aggregator"
	KindSocial     Kind = "social-feed"
	KindAcademic   Kind = "academic-feed"
	KindRSS        Kind = "rss"
	KindWeb        Kind = "web"
)

// Descriptor is one source entry within a tier.
type Descriptor struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
	Kind Kind   `yaml:"kind" json:"kind"`
}

// Category maps a topic name to its ordered source tiers.
type Category struct {
	Name        string       `yaml:"name" json:"name"`
	DisplayName string       `yaml:"display_name" json:"display_name"`
	API         []Descriptor `yaml:"api" json:"api"`
	RSS         []Descriptor `yaml:"rss" json:"rss"`
	Web         []Descriptor `yaml:"web" json:"web"`
}

// Catalog is a read-only lookup table. It has no mutation methods and hands
// out copies, so it can be shared freely between goroutines.
type Catalog struct {
	byName map[string]Category
	order  []string
}

type document struct {
	Categories []Category `yaml:"categories"`
}

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded catalog is invalid: %v", err))
	}
	return c
}

// LoadFile reads a catalog from a YAML file. ${VAR} references are expanded,
// which lets API URLs carry keys from the environment.
func LoadFile(path string) (*Catalog, error) {
	var doc document
	if err := appconfig.Load(path, &doc); err != nil {
		return nil, err
	}
	return build(doc)
}

// Parse builds a catalog from YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := appconfig.Decode(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return build(doc)
}

// New builds a catalog from categories, validating and normalizing them.
func New(categories ...Category) (*Catalog, error) {
	return build(document{Categories: categories})
}

func build(doc document) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]Category, len(doc.Categories))}
	for _, cat := range doc.Categories {
		cat.Name = strings.TrimSpace(cat.Name)
		if cat.Name == "" {
			return nil, fmt.Errorf("category without name")
		}
		if _, dup := c.byName[cat.Name]; dup {
			return nil, fmt.Errorf("duplicate category %q", cat.Name)
		}
		if cat.DisplayName == "" {
			cat.DisplayName = cat.Name
		}

		var err error
		if cat.API, err = normalize(cat.Name, cat.API, ""); err != nil {
			return nil, err
		}
		if cat.RSS, err = normalize(cat.Name, cat.RSS, KindRSS); err != nil {
			return nil, err
		}
		if cat.Web, err = normalize(cat.Name, cat.Web, KindWeb); err != nil {
			return nil, err
		}

		c.byName[cat.Name] = cat
		c.order = append(c.order, cat.Name)
	}
	return c, nil
}

// normalize fills in names and kinds. API descriptors without an explicit kind
// are classified by URL shape.
func normalize(category string, descs []Descriptor, kind Kind) ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(descs))
	for _, d := range descs {
		d.URL = strings.TrimSpace(d.URL)
		if d.URL == "" {
			return nil, fmt.Errorf("category %q: source without url", category)
		}
		u, err := url.Parse(d.URL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("category %q: invalid source url %q", category, d.URL)
		}
		if d.Name == "" {
			d.Name = u.Host
		}
		switch {
		case kind != "":
			d.Kind = kind
		case d.Kind == "":
			d.Kind = ClassifyAPI(d.URL)
			if d.Kind == "" {
				return nil, fmt.Errorf("category %q: cannot classify api source %q", category, d.URL)
			}
		}
		out = append(out, d)
	}
	return out, nil
}

// ClassifyAPI maps an API URL to its payload kind, or "" when the shape is
// not recognized.
func ClassifyAPI(rawURL string) Kind {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "hn.algolia.com" || strings.HasSuffix(host, ".algolia.com"):
		return KindAggregator
	case host == "reddit.com" || strings.HasSuffix(host, ".reddit.com"):
		return KindSocial
	case host == "arxiv.org" || strings.HasSuffix(host, ".arxiv.org"):
		return KindAcademic
	}
	return ""
}

// Lookup returns the category with the given name. An exact match is
// preferred; otherwise names are compared case-insensitively.
func (c *Catalog) Lookup(name string) (Category, bool) {
	name = strings.TrimSpace(name)
	cat, ok := c.byName[name]
	if !ok {
		for _, n := range c.order {
			if strings.EqualFold(n, name) {
				cat, ok = c.byName[n], true
				break
			}
		}
	}
	if !ok {
		return Category{}, false
	}
	cat.API = append([]Descriptor(nil), cat.API...)
	cat.RSS = append([]Descriptor(nil), cat.RSS...)
	cat.Web = append([]Descriptor(nil), cat.Web...)
	return cat, true
}

// Names returns category names in catalog order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// Len returns the number of categories.
func (c *Catalog) Len() int {
	return len(c.order)
}
