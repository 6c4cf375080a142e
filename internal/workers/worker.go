package workers

import (
	"context"
	"time"
)

// Worker is a periodic background job. The scheduler calls Run repeatedly
// based on Interval.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
	Interval() time.Duration
	Enabled() bool
}
