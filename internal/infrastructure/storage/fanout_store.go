package storage

import (
	"context"
	"errors"

	"StoryScanner/internal/domain"
	"StoryScanner/internal/ports"
)

// FanoutStore saves to every backend and reads from the first that has data.
type FanoutStore struct {
	stores []ports.PayloadStore
}

var _ ports.PayloadStore = (*FanoutStore)(nil)

// NewFanoutStore skips nil stores. Read order follows argument order.
func NewFanoutStore(stores ...ports.PayloadStore) *FanoutStore {
	kept := make([]ports.PayloadStore, 0, len(stores))
	for _, s := range stores {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &FanoutStore{stores: kept}
}

// Save writes to all stores; one failing store does not stop the others.
func (f *FanoutStore) Save(ctx context.Context, payload domain.Payload) error {
	var errs []error
	for _, s := range f.stores {
		if err := s.Save(ctx, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Latest returns the first payload found, trying stores in order.
func (f *FanoutStore) Latest(ctx context.Context) (domain.Payload, error) {
	var errs []error
	for _, s := range f.stores {
		payload, err := s.Latest(ctx)
		if err == nil {
			return payload, nil
		}
		if !errors.Is(err, domain.ErrNoPayload) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return domain.Payload{}, errors.Join(errs...)
	}
	return domain.Payload{}, domain.ErrNoPayload
}
