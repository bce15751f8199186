package catalog

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a listing id is not in the catalog.
var ErrNotFound = errors.New("listing not found")

//go:embed seed.yaml
var seedYAML []byte

// Catalog is a read-only, ordered set of listings.
type Catalog struct {
	listings []Listing
	byID     map[int64]int
}

// New builds a catalog from the given listings. Ids must be unique.
func New(listings []Listing) (*Catalog, error) {
	c := &Catalog{
		listings: make([]Listing, len(listings)),
		byID:     make(map[int64]int, len(listings)),
	}
	copy(c.listings, listings)
	for i, l := range c.listings {
		if _, dup := c.byID[l.ID]; dup {
			return nil, fmt.Errorf("duplicate listing id %d", l.ID)
		}
		c.byID[l.ID] = i
	}
	return c, nil
}

// Seed returns the catalog embedded at build time.
func Seed() (*Catalog, error) {
	var doc struct {
		Listings []Listing `yaml:"listings"`
	}
	if err := yaml.Unmarshal(seedYAML, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog seed: %w", err)
	}
	return New(doc.Listings)
}

// MustSeed is like Seed but panics if the embedded seed is malformed.
func MustSeed() *Catalog {
	c, err := Seed()
	if err != nil {
		panic(err)
	}
	return c
}

// All returns a copy of every listing in catalog order.
func (c *Catalog) All() []Listing {
	out := make([]Listing, len(c.listings))
	copy(out, c.listings)
	return out
}

// Len returns the number of listings.
func (c *Catalog) Len() int {
	return len(c.listings)
}

// First returns the first listing, used as the default entity.
func (c *Catalog) First() (Listing, bool) {
	if len(c.listings) == 0 {
		return Listing{}, false
	}
	return c.listings[0], true
}

// Resolve looks up a listing by id.
func (c *Catalog) Resolve(id int64) (Listing, error) {
	i, ok := c.byID[id]
	if !ok {
		return Listing{}, fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}
	return c.listings[i], nil
}

// Filter applies f to the whole catalog.
func (c *Catalog) Filter(f Filter) []Listing {
	return Apply(c.listings, f)
}
