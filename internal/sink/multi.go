package sink

import (
	"context"
	"errors"
)

// Emitter matches the orchestrator's sink contract.
type Emitter interface {
	Emit(ctx context.Context, record interface{}) error
}

// MultiSink fans every record out to all targets; all targets are attempted
// even when one fails.
type MultiSink struct {
	targets []Emitter
}

func NewMultiSink(targets ...Emitter) *MultiSink {
	return &MultiSink{targets: targets}
}

func (s *MultiSink) Emit(ctx context.Context, record interface{}) error {
	var errs []error
	for _, target := range s.targets {
		if err := target.Emit(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
