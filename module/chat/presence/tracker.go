package presence

import (
	"context"
	"sync"
	"time"

	"github.com/RWACH777/yasa-tasker-sub000/data/store"
	"github.com/RWACH777/yasa-tasker-sub000/logger"
	chatmodel "github.com/RWACH777/yasa-tasker-sub000/module/chat/model"
	"github.com/RWACH777/yasa-tasker-sub000/tools/safe"
)

type State int

const (
	Unknown State = iota
	Online
	Offline
)

func (s State) String() string {
	switch s {
	case Online:
		return "online"
	case Offline:
		return "offline"
	}
	return "unknown"
}

const defaultPresencePoll = 3 * time.Second

type TrackerOption func(*Tracker)

func WithPollInterval(d time.Duration) TrackerOption {
	return func(t *Tracker) { t.pollEvery = d }
}

func WithOnChange(fn func(Status)) TrackerOption {
	return func(t *Tracker) { t.onChange = fn }
}

// Tracker follows one peer's presence. Push events flip the state with low
// latency; the poll re-queries on a fixed interval because the push channel
// can die silently, which bounds the staleness window. There is no
// timeout-based demotion: a peer that vanished without an offline write
// stays online until any later read says otherwise.
type Tracker struct {
	gw     store.Gateway
	userID string

	mu    sync.Mutex
	state State
	last  *time.Time

	sub        store.Subscription
	cancelPoll context.CancelFunc
	pollEvery  time.Duration
	onChange   func(Status)
}

func NewTracker(gw store.Gateway, userID string, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		gw:        gw,
		userID:    userID,
		state:     Unknown,
		pollEvery: defaultPresencePoll,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Start resolves the initial state (missing record defaults to offline),
// subscribes to the peer's presence row and starts the reconciling poll.
// Stop must be called on teardown.
func (t *Tracker) Start(ctx context.Context) error {
	st, err := Lookup(ctx, t.gw, t.userID)
	if err != nil {
		// degrade to offline, the poll keeps retrying
		logger.Warnf("presence: initial lookup for %s failed: %v", t.userID, err)
		st = Status{}
	}
	t.adopt(st)

	sub, err := t.gw.Subscribe(store.CollPresence, store.Where(store.Eq("user_id", t.userID)), t.IngestPush)
	if err != nil {
		return err
	}
	pollCtx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.sub = sub
	t.cancelPoll = cancel
	t.mu.Unlock()
	safe.Go(func() { t.pollLoop(pollCtx) })
	return nil
}

// Stop tears down the subscription and the poll timer. Idempotent.
func (t *Tracker) Stop() {
	t.mu.Lock()
	sub := t.sub
	cancel := t.cancelPoll
	t.sub = nil
	t.cancelPoll = nil
	t.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
}

func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{Online: t.state == Online, LastSeen: t.last}
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IngestPush adopts the pushed presence flag. Delete events mean the record
// was removed, which reads as offline.
func (t *Tracker) IngestPush(ev store.ChangeEvent) {
	if err := ev.Validate(); err != nil {
		logger.Warnf("presence: dropping event: %v", err)
		return
	}
	if ev.Kind == store.ChangeDelete {
		t.adopt(Status{})
		return
	}
	rec, err := chatmodel.PresenceFromRow(ev.Row)
	if err != nil {
		logger.Warnf("presence: dropping undecodable row: %v", err)
		return
	}
	t.adopt(Status{Online: rec.IsOnline, LastSeen: rec.LastSeenTime()})
}

func (t *Tracker) pollLoop(ctx context.Context) {
	tick := time.NewTicker(t.pollEvery)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			st, err := Lookup(ctx, t.gw, t.userID)
			if err != nil {
				// next tick retries
				continue
			}
			t.adopt(st)
		}
	}
}

func (t *Tracker) adopt(st Status) {
	next := Offline
	if st.Online {
		next = Online
	}
	t.mu.Lock()
	changed := t.state != next
	t.state = next
	t.last = st.LastSeen
	t.mu.Unlock()
	if changed && t.onChange != nil {
		t.onChange(st)
	}
}
