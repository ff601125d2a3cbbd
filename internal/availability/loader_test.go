package availability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticketbooth/internal/api"
	"github.com/iliyamo/ticketbooth/internal/fakeapi"
	"github.com/iliyamo/ticketbooth/internal/model"
)

func newLoader(t *testing.T) (*fakeapi.Server, *Loader) {
	t.Helper()
	fake := fakeapi.New(fakeapi.Options{})
	require.NoError(t, fake.Seed())
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := api.NewClient(srv.URL)
	require.NoError(t, err)
	return fake, NewLoader(c, zerolog.Nop())
}

func TestFetchJoinsBothRequests(t *testing.T) {
	fake, l := newLoader(t)
	occ, avail, err := l.Fetch(context.Background(), fakeapi.SeedGADateID)
	require.NoError(t, err)
	assert.Equal(t, fakeapi.SeedGADateID, occ.ID)
	assert.Equal(t, model.GeneralAdmissionMode, avail.SeatingMode())
	assert.Equal(t, 1, fake.Calls(http.MethodGet, "/api/event-dates/1"))
	assert.Equal(t, 1, fake.Calls(http.MethodGet, "/api/event-dates/1/availability"))
}

func TestFetchNotFound(t *testing.T) {
	_, l := newLoader(t)
	_, _, err := l.Fetch(context.Background(), 77)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestFetchTransientOnServerError(t *testing.T) {
	fake, l := newLoader(t)
	fake.Fail(http.MethodGet, "/api/event-dates/2/availability", http.StatusInternalServerError, nil)

	_, _, err := l.Fetch(context.Background(), fakeapi.SeedSeatedDateID)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, Transient, fe.Kind)

	// No retry: the next fetch is a fresh attempt that succeeds.
	assert.Equal(t, 1, fake.Calls(http.MethodGet, "/api/event-dates/2/availability"))
	_, _, err = l.Fetch(context.Background(), fakeapi.SeedSeatedDateID)
	assert.NoError(t, err)
}

// barrierSource blocks each call until both calls have started.  A call
// that gives up waiting is counted as sequential.
type barrierSource struct {
	started    sync.WaitGroup
	overlapped atomic.Int32
}

func newBarrierSource() *barrierSource {
	s := &barrierSource{}
	s.started.Add(2)
	return s
}

func (s *barrierSource) enter() {
	s.started.Done()
	ready := make(chan struct{})
	go func() {
		s.started.Wait()
		close(ready)
	}()
	select {
	case <-ready:
		s.overlapped.Add(1)
	case <-time.After(time.Second):
	}
}

func (s *barrierSource) FetchOccurrence(ctx context.Context, id int64) (model.EventOccurrence, error) {
	s.enter()
	return model.EventOccurrence{ID: id, SeatingMode: model.GeneralAdmissionMode}, nil
}

func (s *barrierSource) FetchAvailability(ctx context.Context, id int64) (model.Availability, error) {
	s.enter()
	return &model.GeneralAdmission{}, nil
}

func TestFetchIssuesRequestsConcurrently(t *testing.T) {
	src := newBarrierSource()
	_, _, err := NewLoader(src, zerolog.Nop()).Fetch(context.Background(), 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.overlapped.Load())
}
