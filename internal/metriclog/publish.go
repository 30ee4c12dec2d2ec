package metriclog

import (
	"context"
	"errors"
)

// Publisher receives every appended record.
type Publisher interface {
	Publish(ctx context.Context, rec Record) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, rec Record) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}

// Multi fans a record out to every publisher and joins their errors.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, rec Record) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
