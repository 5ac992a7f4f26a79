// Package feed carries store change events over NATS. The mongostore gateway
// publishes one event per durable write; Subscribe delivers them to
// in-process consumers with client-side row filtering. This is the push
// half of the push+poll duality; the pollers in module/chat are the backstop
// when the transport silently drops.
package feed

import (
	"encoding/json"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/RWACH777/yasa-tasker-sub000/data/store"
	"github.com/RWACH777/yasa-tasker-sub000/logger"
)

const subjectPrefix = "yt.store."

type Bus struct {
	nc *nats.Conn

	mu   sync.Mutex
	subs []*nats.Subscription
}

// Dial connects to NATS. Reconnection is left to the client's own retry
// behavior; the poll loop covers the gap.
func Dial(url string) (*Bus, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("feed disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("feed reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}
	return &Bus{nc: nc}, nil
}

func subject(coll string) string { return subjectPrefix + coll }

func (b *Bus) Publish(ev store.ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.nc.Publish(subject(ev.Coll), data)
}

// Subscribe delivers validated events for one collection, filtered by f.
// Malformed payloads are dropped at the boundary with a log line.
func (b *Bus) Subscribe(coll string, f store.Filter, h store.Handler) (store.Subscription, error) {
	sub, err := b.nc.Subscribe(subject(coll), func(m *nats.Msg) {
		var ev store.ChangeEvent
		if err := json.Unmarshal(m.Data, &ev); err != nil {
			logger.Warnf("feed: dropping malformed event on %s: %v", m.Subject, err)
			return
		}
		if err := ev.Validate(); err != nil {
			logger.Warnf("feed: dropping invalid event on %s: %v", m.Subject, err)
			return
		}
		if f.Match(ev.Row) {
			h(ev)
		}
	})
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return &subscription{sub: sub}, nil
}

func (b *Bus) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()
	for _, s := range subs {
		_ = s.Unsubscribe()
	}
	b.nc.Close()
}

type subscription struct {
	sub  *nats.Subscription
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { _ = s.sub.Unsubscribe() })
}
