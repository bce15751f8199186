package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"headroom-havens-backend/internal/catalog"
	"headroom-havens-backend/internal/engagement"
	"headroom-havens-backend/internal/lead"
	"headroom-havens-backend/internal/model"
	"headroom-havens-backend/internal/navigation"
	"headroom-havens-backend/internal/store"
)

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (d *recordingDispatcher) Dispatch(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, id)
}

type collector struct {
	server *httptest.Server
	calls  int32
	status int32
	mu     sync.Mutex
	last   url.Values
}

func newCollector(t *testing.T) *collector {
	c := &collector{status: http.StatusOK}
	c.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&c.calls, 1)
		_ = r.ParseForm()
		c.mu.Lock()
		c.last = r.PostForm
		c.mu.Unlock()
		w.WriteHeader(int(atomic.LoadInt32(&c.status)))
	}))
	t.Cleanup(c.server.Close)
	return c
}

func newTestManager(t *testing.T, st store.Store, alerts Dispatcher, col *collector) *Manager {
	m := NewManager(Deps{
		Catalog:    catalog.MustSeed(),
		Store:      st,
		Submitter:  lead.NewGateway(col.server.URL+"/", col.server.Client()),
		Alerts:     alerts,
		Engagement: engagement.Options{Delay: time.Hour},
		BookingURL: "https://partner.example/book?ref=havens",
	}, time.Minute)
	t.Cleanup(m.CloseAll)
	return m
}

func newSQLiteStore(t *testing.T) store.Store {
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Lead{}, &model.KVEntry{}, &model.PushSubscription{}))
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	return store.NewGormStore(db)
}

func TestSessionConsentGatesNavigation(t *testing.T) {
	m := newTestManager(t, nil, nil, newCollector(t))
	s, err := m.Create("/", "")
	require.NoError(t, err)

	err = s.Navigate(navigation.ViewListings, 0)
	assert.True(t, errors.Is(err, navigation.ErrConsentRequired))

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, navigation.Home(), snap.Page.Location)
	assert.Equal(t, navigation.ConsentNotice, snap.Notice)

	require.NoError(t, s.Reject())
	assert.True(t, errors.Is(s.Navigate(navigation.ViewListings, 0), navigation.ErrConsentRequired), "rejected consent keeps the gate closed")

	require.NoError(t, s.Accept())
	require.NoError(t, s.Navigate(navigation.ViewListings, 0))

	snap, err = s.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap.Notice)
	assert.Len(t, snap.Page.Listings, 5)
	assert.Equal(t, engagement.PhaseEligible, snap.Engagement.Phase)
	assert.True(t, snap.Engagement.ShowCallToAction)
}

func TestSessionBackAndForward(t *testing.T) {
	m := newTestManager(t, nil, nil, newCollector(t))
	s, err := m.Create("/contact", "")
	require.NoError(t, err)
	require.NoError(t, s.Accept())

	require.NoError(t, s.Navigate(navigation.ViewDetail, 2))
	require.NoError(t, s.Navigate(navigation.ViewReviews, 2))

	require.True(t, s.Back())
	snap, _ := s.Snapshot()
	assert.Equal(t, "/detail/2", snap.Page.URL)

	require.True(t, s.Back())
	snap, _ = s.Snapshot()
	assert.Equal(t, "/contact", snap.Page.URL)
	assert.False(t, s.Back())

	require.True(t, s.Forward())
	snap, _ = s.Snapshot()
	assert.Equal(t, int64(2), snap.Page.Listing.ID)
}

func TestSessionSubmitBooking(t *testing.T) {
	col := newCollector(t)
	st := newSQLiteStore(t)
	alerts := &recordingDispatcher{}
	m := newTestManager(t, st, alerts, col)

	s, err := m.Create("/", "")
	require.NoError(t, err)
	require.NoError(t, s.Accept())
	require.NoError(t, s.Navigate(navigation.ViewDetail, 3))

	out, err := s.Submit(context.Background(), FormBooking, lead.Fields{"name": "Ada", "email": "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://partner.example/book?listing=3&ref=havens", out.RedirectURL)
	assert.NotEmpty(t, out.LeadID)

	col.mu.Lock()
	assert.Equal(t, "booking", col.last.Get("form-name"))
	assert.Equal(t, "3", col.last.Get("listingId"))
	assert.Equal(t, "The Glass Lodge", col.last.Get("listingName"))
	col.mu.Unlock()

	rec, err := st.FindLead(context.Background(), out.LeadID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, rec.SessionID)
	require.NotNil(t, rec.ListingID)
	assert.Equal(t, int64(3), *rec.ListingID)
	assert.Equal(t, []string{out.LeadID}, alerts.ids)
}

func TestSessionReviewFallsBackToFirstListing(t *testing.T) {
	col := newCollector(t)
	m := newTestManager(t, nil, nil, col)
	s, err := m.Create("/", "")
	require.NoError(t, err)

	out, err := s.Submit(context.Background(), FormReview, lead.Fields{"listingId": "999", "rating": 5})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Confirmation)

	col.mu.Lock()
	defer col.mu.Unlock()
	assert.Equal(t, "1", col.last.Get("listingId"))
}

func TestSessionSubmitInterestCaptures(t *testing.T) {
	col := newCollector(t)
	st := newSQLiteStore(t)
	m := newTestManager(t, st, nil, col)

	s, err := m.Create("/", "")
	require.NoError(t, err)
	require.NoError(t, s.Accept())
	opened, err := s.OpenInterest()
	require.NoError(t, err)
	require.True(t, opened)

	_, err = s.Submit(context.Background(), FormInterest, lead.Fields{"email": "tall@example.com"})
	require.NoError(t, err)

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, engagement.PhaseCaptured, snap.Engagement.Phase)
	assert.False(t, snap.Engagement.ShowCallToAction)
	assert.False(t, snap.Engagement.Presenting)

	again, err := m.Create("/listings", s.VisitorID)
	require.NoError(t, err)
	snap, err = again.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, engagement.PhaseCaptured, snap.Engagement.Phase, "capture survives a reload")
	assert.Equal(t, navigation.ViewListings, snap.Page.Location.View, "accepted consent survives a reload")
}

func TestSessionSubmitFailureLeavesStateUntouched(t *testing.T) {
	col := newCollector(t)
	atomic.StoreInt32(&col.status, http.StatusBadGateway)
	m := newTestManager(t, nil, nil, col)

	s, err := m.Create("/", "")
	require.NoError(t, err)
	require.NoError(t, s.Accept())

	_, err = s.Submit(context.Background(), FormInterest, lead.Fields{"email": "x@example.com"})
	assert.True(t, errors.Is(err, lead.ErrRejected))

	snap, _ := s.Snapshot()
	assert.False(t, snap.Engagement.Captured)
	assert.Empty(t, snap.Submitting)

	atomic.StoreInt32(&col.status, http.StatusOK)
	_, err = s.Submit(context.Background(), FormInterest, lead.Fields{"email": "x@example.com"})
	assert.NoError(t, err, "the visitor can retry by hand")
	assert.Equal(t, int32(2), atomic.LoadInt32(&col.calls))
}

func TestSessionUnknownForm(t *testing.T) {
	m := newTestManager(t, nil, nil, newCollector(t))
	s, err := m.Create("/", "")
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), FormKind("newsletter"), nil)
	assert.True(t, errors.Is(err, ErrUnknownForm))
}

func TestManager(t *testing.T) {
	m := newTestManager(t, nil, nil, newCollector(t))

	s, err := m.Create("", "")
	require.NoError(t, err)
	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.Len())

	m.Close(s.ID)
	_, err = m.Get(s.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = m.Create("/", "not-a-uuid")
	assert.Error(t, err)
}

func TestSessionInterestRequiresOffer(t *testing.T) {
	col := newCollector(t)
	m := newTestManager(t, nil, nil, col)
	s, err := m.Create("/", "")
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), FormInterest, lead.Fields{"email": "tall@example.com"})
	assert.True(t, errors.Is(err, ErrNotOffered), "no submission before a consent decision")
	snap, _ := s.Snapshot()
	assert.False(t, snap.Engagement.Captured)
	assert.Equal(t, int32(0), atomic.LoadInt32(&col.calls))

	require.NoError(t, s.Accept())
	opened, err := s.OpenInterest()
	require.NoError(t, err)
	require.True(t, opened)
	_, err = s.Submit(context.Background(), FormInterest, lead.Fields{"email": "tall@example.com"})
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), FormInterest, lead.Fields{"email": "tall@example.com"})
	assert.True(t, errors.Is(err, ErrNotOffered), "capture is permanent")
	assert.Equal(t, int32(1), atomic.LoadInt32(&col.calls))
}

func TestSessionBackIgnoresLaterRejection(t *testing.T) {
	m := newTestManager(t, nil, nil, newCollector(t))
	s, err := m.Create("/", "")
	require.NoError(t, err)
	require.NoError(t, s.Accept())
	require.NoError(t, s.Navigate(navigation.ViewListings, 0))
	require.NoError(t, s.Navigate(navigation.ViewContact, 0))
	require.NoError(t, s.Reject())

	require.True(t, s.Back())
	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, navigation.ViewListings, snap.Page.Location.View, "history restores the entry as it was pushed")
	assert.True(t, errors.Is(s.Navigate(navigation.ViewDetail, 1), navigation.ErrConsentRequired))
}

func TestSessionConcurrentNavigationKeepsHistoryInStep(t *testing.T) {
	m := newTestManager(t, nil, nil, newCollector(t))
	s, err := m.Create("/", "")
	require.NoError(t, err)
	require.NoError(t, s.Accept())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				switch (i + j) % 3 {
				case 0:
					_ = s.Navigate(navigation.ViewDetail, int64(j%5+1))
				case 1:
					s.Back()
				default:
					s.Forward()
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, s.history.URL(), s.nav.Current().URL())
}
