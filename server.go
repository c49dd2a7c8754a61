package rendezvous

import (
	"errors"
	"fmt"

	"github.com/opd-ai/rendezvous/apierr"
	"github.com/opd-ai/rendezvous/config"
	"github.com/opd-ai/rendezvous/crypto"
	"github.com/opd-ai/rendezvous/push"
	"github.com/opd-ai/rendezvous/registry"
	"github.com/opd-ai/rendezvous/storage"
	"github.com/sirupsen/logrus"
)

// Server is the rendezvous composition root: the registry, the storage
// tree, and the push adapter, wired together behind the one-method-per-
// operation surface spec.md §4.5 names.
type Server struct {
	registry    *registry.Registry
	storage     *storage.Store
	notifier    push.Notifier
	time        crypto.TimeProvider
	development bool
}

// New constructs a Server from a loaded configuration and a push
// adapter, restoring prior state from the storage tree's snapshot file
// if one exists (spec.md §4.2 readSnapshot).
func New(cfg *config.Config, notifier push.Notifier) (*Server, error) {
	store, err := storage.New(cfg.DataFolder)
	if err != nil {
		return nil, fmt.Errorf("rendezvous: init storage: %w", err)
	}

	reg, err := registry.New(notifier)
	if err != nil {
		return nil, fmt.Errorf("rendezvous: init registry: %w", err)
	}

	if data, ok, err := store.ReadSnapshot(); err != nil {
		return nil, fmt.Errorf("rendezvous: read snapshot: %w", err)
	} else if ok {
		if err := reg.LoadSnapshot(data); err != nil {
			return nil, fmt.Errorf("rendezvous: load snapshot: %w", err)
		}
	}

	return &Server{
		registry:    reg,
		storage:     store,
		notifier:    notifier,
		time:        crypto.GetDefaultTimeProvider(),
		development: cfg.Development,
	}, nil
}

// snapshot persists the registry's durable state if it has mutated since
// the last snapshot, logging (but never failing the request on) a write
// error (spec.md §5: "a failure to snapshot is logged but does not fail
// the request").
func (s *Server) snapshot(op string) {
	if !s.registry.Dirty() {
		return
	}
	data, err := s.registry.Serialize()
	if err != nil {
		logrus.WithFields(logrus.Fields{"function": op}).WithError(err).Error("snapshot: serialize registry failed")
		return
	}
	if err := s.storage.WriteSnapshot(data); err != nil {
		logrus.WithFields(logrus.Fields{"function": op}).WithError(err).Error("snapshot: write failed")
		return
	}
	s.registry.ClearDirty()
}

// internalErr wraps a non-apierr failure (storage I/O, encoding) as
// KindInternal, matching spec.md §7's propagation policy.
func internalErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *apierr.Error
	if errors.As(err, &e) {
		return err
	}
	return apierr.Wrap(apierr.KindInternal, op, err)
}
