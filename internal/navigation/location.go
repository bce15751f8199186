package navigation

import (
	"strconv"
	"strings"
)

// View names a top-level page of the site.
type View string

const (
	ViewHome     View = "home"
	ViewListings View = "listings"
	ViewStandard View = "standard"
	ViewDetail   View = "detail"
	ViewReviews  View = "reviews"
	ViewContact  View = "contact"
	ViewPrivacy  View = "privacy"
)

var knownViews = map[View]struct{}{
	ViewHome: {}, ViewListings: {}, ViewStandard: {}, ViewDetail: {},
	ViewReviews: {}, ViewContact: {}, ViewPrivacy: {},
}

// ParseView maps a path segment to a view. Unknown segments are home.
func ParseView(s string) View {
	v := View(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownViews[v]; ok {
		return v
	}
	return ViewHome
}

// RequiresEntity reports whether the view is scoped to a single listing.
func (v View) RequiresEntity() bool {
	return v == ViewDetail || v == ViewReviews
}

// AlwaysOpen reports whether the view is reachable without accepted consent.
func (v View) AlwaysOpen() bool {
	switch v {
	case ViewHome, ViewStandard, ViewContact, ViewPrivacy:
		return true
	}
	return false
}

// Location is what is currently rendered. EntityID is zero when absent and is
// always zero for views that do not require an entity.
type Location struct {
	View     View  `json:"view"`
	EntityID int64 `json:"entityId,omitempty"`
}

// NewLocation builds the canonical location for a view and optional id.
func NewLocation(view View, entityID int64) Location {
	view = ParseView(string(view))
	if !view.RequiresEntity() || entityID < 0 {
		entityID = 0
	}
	return Location{View: view, EntityID: entityID}
}

// Home is the fallback location.
func Home() Location {
	return Location{View: ViewHome}
}

// URL renders the location as "/{view}" or "/{view}/{id}".
func (l Location) URL() string {
	if l.View.RequiresEntity() && l.EntityID > 0 {
		return "/" + string(l.View) + "/" + strconv.FormatInt(l.EntityID, 10)
	}
	return "/" + string(l.View)
}

// ParseURL reads a location from a path. The first segment is the view and
// the second, for entity views, a positive integer id. Query strings and
// fragments are ignored.
func ParseURL(path string) Location {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	view := ParseView(segments[0])

	var id int64
	if view.RequiresEntity() && len(segments) > 1 {
		if n, err := strconv.ParseInt(segments[1], 10, 64); err == nil && n > 0 {
			id = n
		}
	}
	return Location{View: view, EntityID: id}
}
