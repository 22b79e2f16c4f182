package countstore

import (
	"context"
	"log/slog"
	"time"
)

const (
	PeriodTotal = "total"
	PeriodDay   = "day"
	PeriodHour  = "hour"
)

// Well-known counter names shared by the engine and the behavioral layer.
const (
	// messages posted, keyed by author
	CounterMessages = "messages"
	// reports received, keyed by target user
	CounterReportsReceived = "reports-received"
	// reports made, keyed by reporter
	CounterReportsMade = "reports-made"
	// automated actions, keyed by action kind ("perm_ban", "hide", ...)
	CounterAutomatedActions = "automated-actions"
	// distinct authors posting into a similarity cluster, bucketed by cluster ID
	CounterClusterAuthors = "cluster-authors"
)

type CountStore interface {
	GetCount(ctx context.Context, name, val, period string) (int, error)
	Increment(ctx context.Context, name, val string) error
	GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error)
	IncrementDistinct(ctx context.Context, name, bucket, val string) error
}

// A counting window. Bounded windows suffix the key with a UTC timestamp, so a fresh bucket starts each time the window rolls over.
type window struct {
	period string
	layout string
	// zero means the bucket is kept forever
	ttl time.Duration
}

// Every increment touches all of these.
var windows = []window{
	{period: PeriodHour, layout: "2006-01-02T15", ttl: 2 * time.Hour},
	{period: PeriodDay, layout: time.DateOnly, ttl: 48 * time.Hour},
	{period: PeriodTotal},
}

func windowFor(period string) window {
	for _, w := range windows {
		if w.period == period {
			return w
		}
	}
	slog.Warn("unhandled counter period", "period", period)
	return windows[len(windows)-1]
}

func (w window) key(name, val string, now time.Time) string {
	if w.layout == "" {
		return name + "/" + val
	}
	return name + "/" + val + "/" + now.UTC().Format(w.layout)
}

func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}
