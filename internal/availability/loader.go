// Package availability loads an event occurrence together with its
// inventory snapshot.
package availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/ticketbooth/internal/api"
	"github.com/iliyamo/ticketbooth/internal/model"
)

// Kind classifies a fetch failure.
type Kind int

const (
	// Transient covers network failures, server errors and undecodable
	// payloads.  The caller may retry.
	Transient Kind = iota
	// NotFound means the occurrence does not exist.
	NotFound
)

func (k Kind) String() string {
	if k == NotFound {
		return "not found"
	}
	return "transient"
}

// FetchError reports why Fetch failed.
type FetchError struct {
	Kind Kind
	ID   int64
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch event date %d: %s: %v", e.ID, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFound FetchError.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == NotFound
}

// Source is the subset of the API client the loader needs.
type Source interface {
	FetchOccurrence(ctx context.Context, id int64) (model.EventOccurrence, error)
	FetchAvailability(ctx context.Context, id int64) (model.Availability, error)
}

// Loader fetches occurrence and availability concurrently and joins them.
// It never retries.
type Loader struct {
	src Source
	log zerolog.Logger
}

// NewLoader returns a loader reading from src.
func NewLoader(src Source, log zerolog.Logger) *Loader {
	return &Loader{src: src, log: log}
}

// Fetch returns the occurrence and a fresh snapshot, or a *FetchError.
// Both requests are issued at once; the first failure cancels the other.
func (l *Loader) Fetch(ctx context.Context, id int64) (model.EventOccurrence, model.Availability, error) {
	var (
		occ   model.EventOccurrence
		avail model.Availability
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		occ, err = l.src.FetchOccurrence(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		avail, err = l.src.FetchAvailability(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		kind := Transient
		if api.IsNotFound(err) {
			kind = NotFound
		}
		l.log.Debug().Err(err).Int64("event_date_id", id).Stringer("kind", kind).Msg("availability fetch failed")
		return model.EventOccurrence{}, nil, &FetchError{Kind: kind, ID: id, Err: err}
	}
	return occ, avail, nil
}
