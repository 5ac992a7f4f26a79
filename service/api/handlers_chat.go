package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	midsec "github.com/RWACH777/yasa-tasker-sub000/middleware/security"
	"github.com/RWACH777/yasa-tasker-sub000/module/chat/msglog"
	"github.com/RWACH777/yasa-tasker-sub000/service/media"
	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
	"github.com/RWACH777/yasa-tasker-sub000/tools/security"
)

type tokenReq struct {
	UserID string `json:"user_id" binding:"required"`
}

// issueToken is the dev/demo login: identity provisioning proper lives
// outside this service.
func (h *Handlers) issueToken(c *gin.Context) {
	var req tokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrInvalidArgs.WrapMsg("user_id required"))
		return
	}
	token, exp, err := security.Generate(h.JWT, req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": exp})
}

func (h *Handlers) listConversations(c *gin.Context) {
	self := midsec.UserID(c)
	items, err := h.Chat.Directory(self).List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": items})
}

func (h *Handlers) deleteConversation(c *gin.Context) {
	self := midsec.UserID(c)
	if err := h.Chat.Directory(self).Delete(c.Request.Context(), c.Param("peer")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) listMessages(c *gin.Context) {
	self := midsec.UserID(c)
	l := msglog.New(h.Chat.Gateway(), self, c.Param("peer"))
	msgs, err := l.LoadInitial(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type sendReq struct {
	Text      string `json:"text"`
	FileURL   string `json:"file_url"`
	VoiceURL  string `json:"voice_url"`
	ReplyToID string `json:"reply_to_id"`
}

func (h *Handlers) sendMessage(c *gin.Context) {
	self := midsec.UserID(c)
	peer := c.Param("peer")
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrInvalidArgs.WrapMsg("bad body"))
		return
	}
	if req.Text == "" && req.FileURL == "" && req.VoiceURL == "" {
		fail(c, errs.ErrInvalidArgs.WrapMsg("empty message"))
		return
	}
	msg, err := h.Chat.SendMessage(c.Request.Context(), self, peer, msglog.Draft{
		Text:      req.Text,
		FileURL:   req.FileURL,
		VoiceURL:  req.VoiceURL,
		ReplyToID: req.ReplyToID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *Handlers) markRead(c *gin.Context) {
	self := midsec.UserID(c)
	n, err := h.Chat.ReadState().MarkConversationRead(c.Request.Context(), self, c.Param("peer"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (h *Handlers) deleteMessage(c *gin.Context) {
	self := midsec.UserID(c)
	if err := h.Chat.DeleteMessage(c.Request.Context(), self, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) getPresence(c *gin.Context) {
	st, err := h.Chat.Presence(c.Request.Context(), c.Param("user"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handlers) unreadTotals(c *gin.Context) {
	self := midsec.UserID(c)
	totals, err := h.Chat.ReadState().UnreadTotals(c.Request.Context(), self)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": totals})
}

func (h *Handlers) upload(c *gin.Context) {
	self := midsec.UserID(c)
	receiver := c.Query("receiver")
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, errs.ErrInvalidArgs.WrapMsg("missing file"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, errs.ErrMediaUpload.WrapMsg("open upload"))
		return
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		fail(c, errs.ErrMediaUpload.WrapMsg("read upload"))
		return
	}
	path := media.AttachmentPath(self, receiver, time.Now(), fh.Filename)
	url, err := h.Uploader.Upload(c.Request.Context(), data, path)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
