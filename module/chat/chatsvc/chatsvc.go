// Package chatsvc ties the chat engine together: opening a conversation
// announces presence, marks the backlog read, starts the message log and
// the peer tracker; closing tears every subscription and timer down again,
// including when opening fails halfway.
package chatsvc

import (
	"context"
	"sync"
	"time"

	"github.com/RWACH777/yasa-tasker-sub000/data/store"
	"github.com/RWACH777/yasa-tasker-sub000/logger"
	"github.com/RWACH777/yasa-tasker-sub000/module/chat/directory"
	chatmodel "github.com/RWACH777/yasa-tasker-sub000/module/chat/model"
	"github.com/RWACH777/yasa-tasker-sub000/module/chat/msglog"
	"github.com/RWACH777/yasa-tasker-sub000/module/chat/presence"
	"github.com/RWACH777/yasa-tasker-sub000/module/chat/readstate"
	"github.com/RWACH777/yasa-tasker-sub000/module/user"
	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
)

type Config struct {
	MessagePoll  time.Duration
	PresencePoll time.Duration
	Cache        presence.Cache // optional redis fast path
}

type Service struct {
	gw    store.Gateway
	users *user.Service
	rs    *readstate.Reconciler
	cfg   Config

	mu     sync.Mutex
	dirs   map[string]*directory.Directory
	open   map[string]map[string]int // self -> peer -> open session count
	msgSub store.Subscription
}

func New(gw store.Gateway, users *user.Service, cfg Config) *Service {
	return &Service{
		gw:    gw,
		users: users,
		rs:    readstate.New(gw),
		cfg:   cfg,
		dirs:  make(map[string]*directory.Directory),
		open:  make(map[string]map[string]int),
	}
}

func (s *Service) ReadState() *readstate.Reconciler { return s.rs }

func (s *Service) Gateway() store.Gateway { return s.gw }

// Watch subscribes to message inserts so a message arriving for a user whose
// conversation with the sender is not open bumps that user's directory view
// in place. Call Stop on shutdown.
func (s *Service) Watch() error {
	sub, err := s.gw.Subscribe(store.CollMessages, store.Filter{}, s.onMessageEvent)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.msgSub = sub
	s.mu.Unlock()
	return nil
}

// Stop tears down the directory watcher. Idempotent.
func (s *Service) Stop() {
	s.mu.Lock()
	sub := s.msgSub
	s.msgSub = nil
	s.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

func (s *Service) onMessageEvent(ev store.ChangeEvent) {
	if ev.Kind != store.ChangeInsert {
		return
	}
	m, err := chatmodel.MessageFromRow(ev.Row)
	if err != nil {
		return
	}
	s.mu.Lock()
	dir := s.dirs[m.ReceiverID]
	senderOpen := s.open[m.ReceiverID][m.SenderID] > 0
	s.mu.Unlock()
	// an open conversation marks its own backlog read
	if dir == nil || senderOpen {
		return
	}
	dir.BumpUnread(m.SenderID)
}

// Presence answers a one-shot status query, preferring the cache fast path.
// A user with no presence record is offline with a nil last-seen.
func (s *Service) Presence(ctx context.Context, userID string) (presence.Status, error) {
	if reader, ok := s.cfg.Cache.(presence.CacheReader); ok {
		if online, err := reader.IsOnline(ctx, userID); err == nil && online {
			st, err := presence.Lookup(ctx, s.gw, userID)
			if err == nil {
				st.Online = true
				return st, nil
			}
			return presence.Status{Online: true}, nil
		}
	}
	return presence.Lookup(ctx, s.gw, userID)
}

// Directory returns the user's conversation directory. One long-lived
// instance per user, so the watcher's in-place unread bumps survive across
// requests.
func (s *Service) Directory(self string) *directory.Directory {
	s.mu.Lock()
	if d, ok := s.dirs[self]; ok {
		s.mu.Unlock()
		return d
	}
	s.mu.Unlock()

	d := directory.New(s.gw, s.users, self, s.directoryOpts()...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.dirs[self]; ok {
		return existing
	}
	s.dirs[self] = d
	return d
}

// directoryOpts wires the presence cache in front of the durable lookup for
// the online flag, when a cache is configured.
func (s *Service) directoryOpts() []directory.Option {
	reader, ok := s.cfg.Cache.(presence.CacheReader)
	if !ok {
		return nil
	}
	gw := s.gw
	return []directory.Option{directory.WithOnlineFunc(func(ctx context.Context, userID string) bool {
		if online, err := reader.IsOnline(ctx, userID); err == nil && online {
			return true
		}
		st, err := presence.Lookup(ctx, gw, userID)
		if err != nil {
			return false
		}
		return st.Online
	})}
}

// SendMessage is the stateless send path used by the HTTP API: the same
// optimistic code path as an open session, against a throwaway log.
func (s *Service) SendMessage(ctx context.Context, self, peer string, d msglog.Draft) (chatmodel.Message, error) {
	l := msglog.New(s.gw, self, peer)
	return l.Send(ctx, d)
}

// DeleteMessage durably removes one message. Only the sender may do this;
// anyone else gets ErrPermissionDenied.
func (s *Service) DeleteMessage(ctx context.Context, self, id string) error {
	row, err := s.gw.FindOne(ctx, store.CollMessages, store.Where(store.Eq("id", id)))
	if err != nil {
		return err
	}
	m, err := chatmodel.MessageFromRow(row)
	if err != nil {
		return err
	}
	if m.SenderID != self {
		return errs.ErrPermissionDenied.WrapMsg("not message sender", "id", id)
	}
	if _, err := s.gw.Delete(ctx, store.CollMessages, store.Where(store.Eq("id", id))); err != nil {
		return errs.ErrStoreUnavailable.WrapMsg("delete message", "id", id)
	}
	return nil
}

// Session is one open conversation view.
type Session struct {
	Self string
	Peer string

	Log     *msglog.Log
	Tracker *presence.Tracker

	svc       *Service
	announcer *presence.Announcer
	closeOnce sync.Once
}

type SessionCallbacks struct {
	OnMessages func([]chatmodel.Message)
	OnPresence func(presence.Status)
}

// OpenConversation runs the conversation-enter protocol: best-effort own
// presence online, bulk mark-read of the peer's backlog, message log open
// (load + subscribe + poll), peer tracker start.
func (s *Service) OpenConversation(ctx context.Context, self, peer string, cb SessionCallbacks) (*Session, error) {
	sess := &Session{
		Self:      self,
		Peer:      peer,
		svc:       s,
		announcer: presence.NewAnnouncer(s.gw, s.cfg.Cache, self),
	}
	sess.announcer.Online(ctx)

	if _, err := s.rs.MarkConversationRead(ctx, self, peer); err != nil {
		// unread state catches up on the next open
		logger.Warnf("chatsvc: mark read on open failed: %v", err)
	}

	logOpts := []msglog.Option{}
	if s.cfg.MessagePoll > 0 {
		logOpts = append(logOpts, msglog.WithPollInterval(s.cfg.MessagePoll))
	}
	if cb.OnMessages != nil {
		logOpts = append(logOpts, msglog.WithOnChange(cb.OnMessages))
	}
	sess.Log = msglog.New(s.gw, self, peer, logOpts...)
	if err := sess.Log.Open(ctx); err != nil {
		sess.announcer.Offline(ctx)
		return nil, err
	}

	trOpts := []presence.TrackerOption{}
	if s.cfg.PresencePoll > 0 {
		trOpts = append(trOpts, presence.WithPollInterval(s.cfg.PresencePoll))
	}
	if cb.OnPresence != nil {
		trOpts = append(trOpts, presence.WithOnChange(cb.OnPresence))
	}
	sess.Tracker = presence.NewTracker(s.gw, peer, trOpts...)
	if err := sess.Tracker.Start(ctx); err != nil {
		sess.Log.Close()
		sess.announcer.Offline(ctx)
		return nil, err
	}

	s.markOpen(self, peer)
	return sess, nil
}

// Close runs the conversation-leave protocol. Safe to call more than once.
func (sess *Session) Close(ctx context.Context) {
	sess.closeOnce.Do(func() {
		if sess.Log != nil {
			sess.Log.Close()
		}
		if sess.Tracker != nil {
			sess.Tracker.Stop()
		}
		sess.announcer.Offline(ctx)
		sess.svc.markClosed(sess.Self, sess.Peer)
	})
}

func (s *Service) markOpen(self, peer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open[self] == nil {
		s.open[self] = make(map[string]int)
	}
	s.open[self][peer]++
}

func (s *Service) markClosed(self, peer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	peers := s.open[self]
	if peers == nil {
		return
	}
	if peers[peer] <= 1 {
		delete(peers, peer)
		if len(peers) == 0 {
			delete(s.open, self)
		}
		return
	}
	peers[peer]--
}
