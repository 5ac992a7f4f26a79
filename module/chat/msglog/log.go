// Package msglog owns the ordered, de-duplicated message sequence for one
// open conversation. Three channels feed it: the user's own optimistic
// sends, the store change feed, and a fixed-interval poll. Every mutation is
// idempotent with respect to a message's durable id, so arrival order across
// channels affects latency only, never the converged state.
package msglog

import (
	"context"
	"sync"
	"time"

	"github.com/RWACH777/yasa-tasker-sub000/data/store"
	"github.com/RWACH777/yasa-tasker-sub000/logger"
	chatmodel "github.com/RWACH777/yasa-tasker-sub000/module/chat/model"
	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
	"github.com/RWACH777/yasa-tasker-sub000/tools/ids"
	"github.com/RWACH777/yasa-tasker-sub000/tools/safe"
)

const defaultPollInterval = time.Second

// Draft is the user-composed part of an outgoing message.
type Draft struct {
	Text      string
	FileURL   string
	VoiceURL  string
	ReplyToID string
}

type Option func(*Log)

func WithPollInterval(d time.Duration) Option {
	return func(l *Log) { l.pollEvery = d }
}

// WithOnChange registers a callback fired with a snapshot after every
// visible mutation of the sequence. Fired while not holding the lock.
func WithOnChange(fn func([]chatmodel.Message)) Option {
	return func(l *Log) { l.onChange = fn }
}

type Log struct {
	gw   store.Gateway
	self string
	peer string

	mu   sync.Mutex
	msgs []chatmodel.Message

	sub        store.Subscription
	cancelPoll context.CancelFunc
	pollEvery  time.Duration
	onChange   func([]chatmodel.Message)
}

func New(gw store.Gateway, self, peer string, opts ...Option) *Log {
	l := &Log{
		gw:        gw,
		self:      self,
		peer:      peer,
		pollEvery: defaultPollInterval,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// PairFilter matches both directions of the (self, peer) conversation.
func PairFilter(self, peer string) store.Filter {
	return store.Or(
		store.And(store.Eq("sender_id", self), store.Eq("receiver_id", peer)),
		store.And(store.Eq("sender_id", peer), store.Eq("receiver_id", self)),
	)
}

// LoadInitial fetches the full conversation, oldest first, and replaces the
// in-memory sequence with it.
func (l *Log) LoadInitial(ctx context.Context) ([]chatmodel.Message, error) {
	rows, err := l.gw.Find(ctx, store.CollMessages, PairFilter(l.self, l.peer), store.Asc("created_at"))
	if err != nil {
		return nil, errs.ErrStoreUnavailable.WrapMsg("load conversation", "self", l.self, "peer", l.peer)
	}
	msgs, err := chatmodel.MessagesFromRows(rows)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.msgs = msgs
	l.mu.Unlock()
	l.notify()
	return l.Messages(), nil
}

// Open loads the conversation, subscribes to the change feed and starts the
// poll backstop. Close must be called when the conversation is left; it
// tears both down.
func (l *Log) Open(ctx context.Context) error {
	if _, err := l.LoadInitial(ctx); err != nil {
		return err
	}
	sub, err := l.gw.Subscribe(store.CollMessages, PairFilter(l.self, l.peer), l.IngestPush)
	if err != nil {
		return errs.WrapMsg(err, "subscribe conversation", "peer", l.peer)
	}
	l.mu.Lock()
	l.sub = sub
	l.mu.Unlock()

	pollCtx, cancel := context.WithCancel(context.Background())
	l.mu.Lock()
	l.cancelPoll = cancel
	l.mu.Unlock()
	safe.Go(func() { l.pollLoop(pollCtx) })
	return nil
}

// Close stops the subscription and the poller. Idempotent.
func (l *Log) Close() {
	l.mu.Lock()
	sub := l.sub
	cancel := l.cancelPoll
	l.sub = nil
	l.cancelPoll = nil
	l.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
}

// Messages returns a snapshot of the current sequence.
func (l *Log) Messages() []chatmodel.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]chatmodel.Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}

// Send appends an optimistic temporary message immediately, then issues the
// durable write. On success the temporary entry is replaced in place by the
// stored row; on failure it is removed and the error surfaces to the caller
// as recoverable.
func (l *Log) Send(ctx context.Context, d Draft) (chatmodel.Message, error) {
	tmp := chatmodel.Message{
		ID:         ids.GenerateTemp(),
		SenderID:   l.self,
		ReceiverID: l.peer,
		Text:       d.Text,
		FileURL:    d.FileURL,
		VoiceURL:   d.VoiceURL,
		ReplyToID:  d.ReplyToID,
		CreatedAt:  time.Now().UTC().Format(chatmodel.TimeLayout),
	}
	l.mu.Lock()
	l.msgs = append(l.msgs, tmp)
	l.mu.Unlock()
	l.notify()

	row, err := l.gw.Insert(ctx, store.CollMessages, tmp.Row())
	if err != nil {
		l.removeByID(tmp.ID)
		return chatmodel.Message{}, errs.ErrStoreUnavailable.WrapMsg("send failed", "peer", l.peer)
	}
	durable, err := chatmodel.MessageFromRow(row)
	if err != nil {
		l.removeByID(tmp.ID)
		return chatmodel.Message{}, err
	}
	l.replaceByID(tmp.ID, durable)
	return durable, nil
}

// SendText is the plain-text convenience over Send.
func (l *Log) SendText(ctx context.Context, text, replyTo string) (chatmodel.Message, error) {
	return l.Send(ctx, Draft{Text: text, ReplyToID: replyTo})
}

// IngestPush applies one change event to the sequence.
//
// Insert is idempotent by durable id; an insert matching a pending
// temporary message (same sender, receiver and body) replaces it in place,
// which keeps the list position stable and avoids a duplicate entry. Update
// replaces by id, delete removes by id; both are no-ops when the id is
// absent.
func (l *Log) IngestPush(ev store.ChangeEvent) {
	if err := ev.Validate(); err != nil {
		logger.Warnf("msglog: dropping event: %v", err)
		return
	}
	msg, err := chatmodel.MessageFromRow(ev.Row)
	if err != nil {
		logger.Warnf("msglog: dropping undecodable row: %v", err)
		return
	}
	changed := false
	l.mu.Lock()
	switch ev.Kind {
	case store.ChangeInsert:
		if l.indexByID(msg.ID) >= 0 {
			break
		}
		if i := l.indexOfTempMatch(msg); i >= 0 {
			l.msgs[i] = msg
		} else {
			l.msgs = append(l.msgs, msg)
		}
		changed = true
	case store.ChangeUpdate:
		if i := l.indexByID(msg.ID); i >= 0 {
			l.msgs[i] = msg
			changed = true
		}
	case store.ChangeDelete:
		if i := l.indexByID(msg.ID); i >= 0 {
			l.msgs = append(l.msgs[:i], l.msgs[i+1:]...)
			changed = true
		}
	}
	l.mu.Unlock()
	if changed {
		l.notify()
	}
}

// IngestPoll merges a freshly polled snapshot. The snapshot only wins when
// it is strictly longer than the current sequence: the poll is a backstop
// against a silently dead push channel, not a source of truth, and the
// length guard keeps a slow poll from rolling back push-driven state.
// Same-length divergences are therefore invisible to the poll and rely on
// push; a documented limitation.
func (l *Log) IngestPoll(snapshot []chatmodel.Message) {
	l.mu.Lock()
	if len(snapshot) <= len(l.msgs) {
		l.mu.Unlock()
		return
	}
	l.msgs = make([]chatmodel.Message, len(snapshot))
	copy(l.msgs, snapshot)
	l.mu.Unlock()
	l.notify()
}

// DeleteMessage removes the message locally and issues the durable delete.
// The durable delete is scoped to the user's own sent messages; a peer's
// message disappears from this view only. The local removal stands even when
// the durable delete fails: the view trusts the user's delete intent, and the
// error only surfaces for display.
func (l *Log) DeleteMessage(ctx context.Context, id string) error {
	l.removeByID(id)
	filter := store.Where(store.Eq("id", id), store.Eq("sender_id", l.self))
	if _, err := l.gw.Delete(ctx, store.CollMessages, filter); err != nil {
		return errs.ErrStoreUnavailable.WrapMsg("delete message", "id", id)
	}
	return nil
}

func (l *Log) pollLoop(ctx context.Context) {
	t := time.NewTicker(l.pollEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			rows, err := l.gw.Find(ctx, store.CollMessages, PairFilter(l.self, l.peer), store.Asc("created_at"))
			if err != nil {
				// next tick retries
				logger.Debug("msglog: poll tick failed")
				continue
			}
			msgs, err := chatmodel.MessagesFromRows(rows)
			if err != nil {
				continue
			}
			l.IngestPoll(msgs)
		}
	}
}

// indexByID requires l.mu held.
func (l *Log) indexByID(id string) int {
	for i := range l.msgs {
		if l.msgs[i].ID == id {
			return i
		}
	}
	return -1
}

// indexOfTempMatch finds a pending temporary message that the given durable
// message supersedes. Matched by sender, receiver and body equality.
// Requires l.mu held.
func (l *Log) indexOfTempMatch(msg chatmodel.Message) int {
	for i := range l.msgs {
		m := &l.msgs[i]
		if ids.IsTemp(m.ID) && m.SenderID == msg.SenderID && m.ReceiverID == msg.ReceiverID && m.Text == msg.Text {
			return i
		}
	}
	return -1
}

func (l *Log) removeByID(id string) {
	changed := false
	l.mu.Lock()
	if i := l.indexByID(id); i >= 0 {
		l.msgs = append(l.msgs[:i], l.msgs[i+1:]...)
		changed = true
	}
	l.mu.Unlock()
	if changed {
		l.notify()
	}
}

func (l *Log) replaceByID(id string, msg chatmodel.Message) {
	changed := false
	l.mu.Lock()
	if i := l.indexByID(id); i >= 0 {
		l.msgs[i] = msg
		changed = true
	}
	l.mu.Unlock()
	if changed {
		l.notify()
	}
}

func (l *Log) notify() {
	if l.onChange == nil {
		return
	}
	l.onChange(l.Messages())
}
