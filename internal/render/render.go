// Package render selects what a location shows. It is where an unknown or
// missing listing id is replaced with the first catalog entry.
package render

import (
	"errors"
	"log"

	"headroom-havens-backend/internal/catalog"
	"headroom-havens-backend/internal/navigation"
)

// Contact details shown on the contact page.
const (
	ContactEmail = "info@headroomhavens.com"
	ContactPhone = "+44 1234 567 890"
)

// Card is a listing decorated with its derived certification values.
type Card struct {
	catalog.Listing
	SafetyRatingCm  int    `json:"safetyRatingCm"`
	SafetyRatingImp string `json:"safetyRatingImperial"`
	BedLengthImp    string `json:"usableBedLengthImperial"`
	PriceLabel      string `json:"priceLabel"`
	LowHeadroom     bool   `json:"lowHeadroom"`
}

// Contact is the contact page's static data.
type Contact struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Page is the render model for one location.
type Page struct {
	Location navigation.Location `json:"location"`
	URL      string              `json:"url"`
	Listing  *Card               `json:"listing,omitempty"`
	Listings []Card              `json:"listings,omitempty"`
	// Fallback is set when the requested listing did not resolve and the
	// first catalog entry is shown instead.
	Fallback bool     `json:"fallback,omitempty"`
	Contact  *Contact `json:"contact,omitempty"`
}

// NewCard decorates a listing.
func NewCard(l catalog.Listing) Card {
	rating := catalog.SafetyRating(l)
	return Card{
		Listing:         l,
		SafetyRatingCm:  rating,
		SafetyRatingImp: catalog.CmToFeetInches(float64(rating)),
		BedLengthImp:    catalog.CmToFeetInches(float64(l.UsableBedLengthCm)),
		PriceLabel:      catalog.PriceLabel(l.PriceTier),
		LowHeadroom:     rating < catalog.LowHeadroomCutoffCm,
	}
}

// Cards decorates every listing, keeping order.
func Cards(listings []catalog.Listing) []Card {
	out := make([]Card, 0, len(listings))
	for _, l := range listings {
		out = append(out, NewCard(l))
	}
	return out
}

// Select builds the page for loc. filter applies to the listings view only.
func Select(loc navigation.Location, c *catalog.Catalog, filter catalog.Filter) Page {
	page := Page{Location: loc, URL: loc.URL()}

	switch {
	case loc.View.RequiresEntity():
		l, fallback, ok := resolveOrFirst(c, loc.EntityID)
		if ok {
			card := NewCard(l)
			page.Listing = &card
			page.Fallback = fallback
		}
	case loc.View == navigation.ViewListings:
		page.Listings = Cards(c.Filter(filter))
	case loc.View == navigation.ViewContact:
		page.Contact = &Contact{Email: ContactEmail, Phone: ContactPhone}
	}
	return page
}

func resolveOrFirst(c *catalog.Catalog, id int64) (catalog.Listing, bool, bool) {
	l, err := c.Resolve(id)
	if err == nil {
		return l, false, true
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		log.Printf("Error resolving listing %d: %v", id, err)
	}
	first, ok := c.First()
	return first, true, ok
}
