// Package ws exposes an open conversation over a websocket. One socket is
// one conversation view: the upgrade runs the conversation-enter protocol
// (presence online, mark read, log open, peer tracker), frames stream both
// ways, and the disconnect runs the leave protocol. Teardown on every exit
// path is what keeps subscriptions and poll timers from leaking across
// conversations.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/RWACH777/yasa-tasker-sub000/logger"
	midsec "github.com/RWACH777/yasa-tasker-sub000/middleware/security"
	"github.com/RWACH777/yasa-tasker-sub000/module/chat/chatsvc"
	chatmodel "github.com/RWACH777/yasa-tasker-sub000/module/chat/model"
	"github.com/RWACH777/yasa-tasker-sub000/module/chat/msglog"
	"github.com/RWACH777/yasa-tasker-sub000/module/chat/presence"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type inboundFrame struct {
	Type      string `json:"type"` // send | delete
	Text      string `json:"text,omitempty"`
	FileURL   string `json:"file_url,omitempty"`
	VoiceURL  string `json:"voice_url,omitempty"`
	ReplyToID string `json:"reply_to_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

type outboundFrame struct {
	Type     string              `json:"type"` // messages | presence | error
	Messages []chatmodel.Message `json:"messages,omitempty"`
	Presence *presence.Status    `json:"presence,omitempty"`
	Error    string              `json:"error,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan outboundFrame
	sess *chatsvc.Session

	mu     sync.Mutex
	closed bool
}

// Serve upgrades an authenticated request into a conversation session.
// Requires the auth middleware; the peer comes from the query string.
func Serve(svc *chatsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		self := midsec.UserID(c)
		peer := c.Query("peer")
		if peer == "" || peer == self {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid peer"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		cl := &client{conn: conn, send: make(chan outboundFrame, 64)}

		sess, err := svc.OpenConversation(c.Request.Context(), self, peer, chatsvc.SessionCallbacks{
			OnMessages: func(msgs []chatmodel.Message) {
				cl.trySend(outboundFrame{Type: "messages", Messages: msgs})
			},
			OnPresence: func(st presence.Status) {
				cl.trySend(outboundFrame{Type: "presence", Presence: &st})
			},
		})
		if err != nil {
			logger.Warnf("ws: open conversation %s<->%s failed: %v", self, peer, err)
			_ = conn.Close()
			return
		}
		cl.sess = sess

		go cl.writePump()
		cl.readPump()
	}
}

// trySend drops the frame when the client cannot keep up; the next change
// snapshot supersedes it anyway. A late callback racing the teardown is
// dropped the same way.
func (c *client) trySend(f outboundFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- f:
	default:
	}
}

func (c *client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *client) readPump() {
	defer func() {
		c.sess.Close(context.Background())
		c.shutdown()
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var in inboundFrame
		if err := json.Unmarshal(data, &in); err != nil {
			continue
		}
		switch in.Type {
		case "send":
			draft := msglog.Draft{
				Text:      in.Text,
				FileURL:   in.FileURL,
				VoiceURL:  in.VoiceURL,
				ReplyToID: in.ReplyToID,
			}
			if _, err := c.sess.Log.Send(context.Background(), draft); err != nil {
				c.trySend(outboundFrame{Type: "error", Error: "send failed"})
			}
		case "delete":
			if in.MessageID == "" {
				continue
			}
			if err := c.sess.Log.DeleteMessage(context.Background(), in.MessageID); err != nil {
				c.trySend(outboundFrame{Type: "error", Error: "delete failed"})
			}
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case f, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(f); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
