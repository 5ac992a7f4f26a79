// Package api is the HTTP surface: chat endpoints backed by the sync
// engine, marketplace CRUD, uploads and the websocket upgrade.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	midsec "github.com/RWACH777/yasa-tasker-sub000/middleware/security"
	"github.com/RWACH777/yasa-tasker-sub000/module/chat/chatsvc"
	"github.com/RWACH777/yasa-tasker-sub000/module/market"
	"github.com/RWACH777/yasa-tasker-sub000/module/notify"
	"github.com/RWACH777/yasa-tasker-sub000/module/user"
	"github.com/RWACH777/yasa-tasker-sub000/service/media"
	"github.com/RWACH777/yasa-tasker-sub000/service/ws"
	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
	"github.com/RWACH777/yasa-tasker-sub000/tools/security"
)

type Handlers struct {
	Chat     *chatsvc.Service
	Market   *market.Service
	Users    *user.Service
	Notify   *notify.Service
	Uploader media.Uploader
	JWT      security.Options
}

func NewRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/api/token", h.issueToken)

	authed := r.Group("/", midsec.Middleware(h.JWT))
	{
		authed.GET("/ws", ws.Serve(h.Chat))

		authed.GET("/api/conversations", h.listConversations)
		authed.DELETE("/api/conversations/:peer", h.deleteConversation)
		authed.GET("/api/conversations/:peer/messages", h.listMessages)
		authed.POST("/api/conversations/:peer/messages", h.sendMessage)
		authed.POST("/api/conversations/:peer/read", h.markRead)
		authed.DELETE("/api/messages/:id", h.deleteMessage)
		authed.GET("/api/presence/:user", h.getPresence)
		authed.GET("/api/unread", h.unreadTotals)

		authed.GET("/api/profile/:user", h.getProfile)
		authed.PUT("/api/profile", h.putProfile)

		authed.GET("/api/tasks", h.listTasks)
		authed.POST("/api/tasks", h.postTask)
		authed.POST("/api/tasks/:id/close", h.closeTask)
		authed.POST("/api/tasks/:id/applications", h.applyToTask)
		authed.POST("/api/applications/:id/decision", h.decideApplication)
		authed.POST("/api/ratings", h.postRating)
		authed.GET("/api/users/:id/ratings", h.listRatings)

		authed.GET("/api/notifications", h.listNotifications)
		authed.POST("/api/notifications/seen", h.markNotificationsSeen)

		authed.POST("/api/uploads", h.upload)
	}
	return r
}

// fail maps the error taxonomy onto HTTP statuses.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, errs.ErrInvalidArgs), errors.Is(err, errs.ErrInvalidEvent):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, errs.ErrMediaUpload):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"code": errs.Code(err), "error": err.Error()})
}
