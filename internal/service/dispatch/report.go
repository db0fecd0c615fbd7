package dispatch

import (
	"fmt"
	"time"

	"petwatch/internal/model"

	"go.uber.org/multierr"
)

// Outcome is the result of one platform send.
type Outcome struct {
	Platform    string
	Err         error
	Duration    time.Duration
	AttemptedAt time.Time
}

func (o Outcome) Success() bool { return o.Err == nil }

// Report holds one outcome per platform, in platform order.
type Report struct {
	EventID  string
	Outcomes []Outcome
}

// Succeeded counts successful deliveries.
func (r Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Success() {
			n++
		}
	}
	return n
}

// Err combines every platform failure, or returns nil when all succeeded.
func (r Report) Err() error {
	var err error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", o.Platform, o.Err))
		}
	}
	return err
}

func (r Report) Deliveries() []model.Delivery {
	deliveries := make([]model.Delivery, len(r.Outcomes))
	for i, o := range r.Outcomes {
		deliveries[i] = model.Delivery{
			NotificationID: r.EventID,
			Platform:       o.Platform,
			Success:        o.Success(),
			Duration:       o.Duration,
			AttemptedAt:    o.AttemptedAt,
		}
		if o.Err != nil {
			deliveries[i].Error = o.Err.Error()
		}
	}
	return deliveries
}
