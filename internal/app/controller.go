// Package app owns the posts snapshot and applies user actions to the store.
package app

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/idilsaglam/postboard/internal/logging"
	"github.com/idilsaglam/postboard/internal/model"
)

// NewKey is the in-flight slot shared by all creates, which have no id yet.
const NewKey = "\x00new"

// ErrBusy is returned when a mutation for the same record is already running.
var ErrBusy = errors.New("another change to this post is still in progress")

// Store is the remote collection the controller works against.
type Store interface {
	List(ctx context.Context) ([]model.Post, error)
	Create(ctx context.Context, f model.Fields) (string, error)
	Update(ctx context.Context, id string, f model.Fields) error
	Delete(ctx context.Context, id string) error
}

// A RefreshError means the mutation was accepted by the store but the list
// that followed failed, so the snapshot is stale.
type RefreshError struct {
	Op  string
	Err error
}

func (e *RefreshError) Error() string {
	return e.Op + " succeeded but refresh failed: " + e.Err.Error()
}

func (e *RefreshError) Unwrap() error { return e.Err }

// Controller applies create/update/delete to the store and refreshes the
// snapshot after every success. Failures leave the snapshot untouched and are
// returned for the caller to report.
type Controller struct {
	store Store
	state *State
	log   logrus.FieldLogger
}

// NewController returns a Controller over store. A nil logger discards logs.
func NewController(store Store, state *State, log logrus.FieldLogger) *Controller {
	if state == nil {
		state = NewState()
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Controller{store: store, state: state, log: log.WithField("component", "controller")}
}

// State returns the state the controller owns.
func (c *Controller) State() *State {
	return c.state
}

// Refresh re-reads the whole collection and replaces the snapshot.
func (c *Controller) Refresh(ctx context.Context) error {
	start := time.Now()
	posts, err := c.store.List(ctx)
	if err != nil {
		c.log.WithError(err).WithField("op", "list").Error("refresh failed")
		return errors.Wrap(err, "list posts")
	}
	c.state.replace(posts)
	c.log.WithFields(logrus.Fields{
		"op":       "list",
		"count":    len(posts),
		"duration": time.Since(start),
	}).Info("refreshed")
	logging.Dump(c.log, posts)
	return nil
}

// Create sends a new post and returns the key the store assigned.
func (c *Controller) Create(ctx context.Context, f model.Fields) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	var id string
	err := c.mutate(ctx, "create", NewKey, func() error {
		var err error
		id, err = c.store.Create(ctx, f)
		return err
	})
	return id, err
}

// Update replaces title, body and image of the post stored under id.
func (c *Controller) Update(ctx context.Context, id string, f model.Fields) error {
	if id == "" {
		return errors.New("update: missing post id")
	}
	if err := f.Validate(); err != nil {
		return err
	}
	return c.mutate(ctx, "update", id, func() error {
		return c.store.Update(ctx, id, f)
	})
}

// Delete removes the post stored under id.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("delete: missing post id")
	}
	return c.mutate(ctx, "delete", id, func() error {
		return c.store.Delete(ctx, id)
	})
}

func (c *Controller) mutate(ctx context.Context, op, key string, call func() error) error {
	log := c.log.WithField("op", op)
	if key != NewKey {
		log = log.WithField("id", key)
	}

	if !c.state.acquire(key) {
		log.Warn("refused, mutation already in flight")
		return ErrBusy
	}
	defer c.state.release(key)

	if err := call(); err != nil {
		log.WithError(err).Error("mutation failed")
		return errors.Wrap(err, op)
	}
	log.Info("mutation accepted")

	if err := c.Refresh(ctx); err != nil {
		return &RefreshError{Op: op, Err: err}
	}
	return nil
}
