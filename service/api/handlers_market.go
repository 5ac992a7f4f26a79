package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	midsec "github.com/RWACH777/yasa-tasker-sub000/middleware/security"
	usermodel "github.com/RWACH777/yasa-tasker-sub000/module/user/model"
	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
)

func (h *Handlers) getProfile(c *gin.Context) {
	p, err := h.Users.Get(c.Request.Context(), c.Param("user"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handlers) putProfile(c *gin.Context) {
	self := midsec.UserID(c)
	var p usermodel.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, errs.ErrInvalidArgs.WrapMsg("bad body"))
		return
	}
	p.UserID = self
	if err := h.Users.Upsert(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type postTaskReq struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Budget      float64 `json:"budget"`
}

func (h *Handlers) postTask(c *gin.Context) {
	self := midsec.UserID(c)
	var req postTaskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrInvalidArgs.WrapMsg("title required"))
		return
	}
	t, err := h.Market.PostTask(c.Request.Context(), self, req.Title, req.Description, req.Budget)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handlers) listTasks(c *gin.Context) {
	tasks, err := h.Market.ListOpenTasks(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *Handlers) closeTask(c *gin.Context) {
	self := midsec.UserID(c)
	if err := h.Market.CloseTask(c.Request.Context(), self, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type applyReq struct {
	Note string `json:"note"`
}

func (h *Handlers) applyToTask(c *gin.Context) {
	self := midsec.UserID(c)
	var req applyReq
	_ = c.ShouldBindJSON(&req)
	a, err := h.Market.Apply(c.Request.Context(), self, c.Param("id"), req.Note)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

type decisionReq struct {
	Accept bool `json:"accept"`
}

func (h *Handlers) decideApplication(c *gin.Context) {
	self := midsec.UserID(c)
	var req decisionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrInvalidArgs.WrapMsg("bad body"))
		return
	}
	if err := h.Market.Decide(c.Request.Context(), self, c.Param("id"), req.Accept); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type ratingReq struct {
	TaskID  string `json:"task_id" binding:"required"`
	RateeID string `json:"ratee_id" binding:"required"`
	Stars   int    `json:"stars" binding:"required"`
	Comment string `json:"comment"`
}

func (h *Handlers) postRating(c *gin.Context) {
	self := midsec.UserID(c)
	var req ratingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrInvalidArgs.WrapMsg("bad body"))
		return
	}
	r, err := h.Market.Rate(c.Request.Context(), self, req.TaskID, req.RateeID, req.Stars, req.Comment)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *Handlers) listRatings(c *gin.Context) {
	ratings, err := h.Market.RatingsFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": ratings})
}

func (h *Handlers) listNotifications(c *gin.Context) {
	self := midsec.UserID(c)
	items, err := h.Notify.List(c.Request.Context(), self)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

func (h *Handlers) markNotificationsSeen(c *gin.Context) {
	self := midsec.UserID(c)
	if err := h.Notify.MarkSeen(c.Request.Context(), self); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
