package events

import (
	"context"
	"time"
)

// SnapshotRefreshed is published after a snapshot scope was reloaded from the
// source. Origin identifies the publishing instance.
type SnapshotRefreshed struct {
	Scope  string    `json:"scope"`
	Count  int       `json:"count"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

type Publisher interface {
	PublishSnapshotRefreshed(ctx context.Context, evt SnapshotRefreshed)
	SubscribeSnapshotRefreshed() <-chan SnapshotRefreshed
}

type inMemory struct{ ch chan SnapshotRefreshed }

func NewInMemory(buffer int) Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &inMemory{ch: make(chan SnapshotRefreshed, buffer)}
}

func (m *inMemory) PublishSnapshotRefreshed(_ context.Context, evt SnapshotRefreshed) {
	select {
	case m.ch <- evt:
	default:
	}
}

func (m *inMemory) SubscribeSnapshotRefreshed() <-chan SnapshotRefreshed { return m.ch }
