package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/knowtix/billing-service/internal/middleware"
	"github.com/knowtix/billing-service/internal/service"
	"github.com/knowtix/billing-service/pkg/logger"
	"github.com/knowtix/billing-service/pkg/req"
)

// PlanHandler lists the public price list.
type PlanHandler struct {
	svc service.PlanService
	log *logger.Logger
}

func NewPlanHandler(svc service.PlanService, log *logger.Logger) *PlanHandler {
	return &PlanHandler{svc: svc, log: log}
}

func (h *PlanHandler) List(c *gin.Context) {
	plans, err := h.svc.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// ChatHandler stores chat turns.
type ChatHandler struct {
	svc service.ChatService
	log *logger.Logger
}

func NewChatHandler(svc service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, log: log}
}

func (h *ChatHandler) Send(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)

	body, err := req.HandleBody[service.ChatRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	reply, err := h.svc.Send(c.Request.Context(), id, *body)
	if err != nil {
		respondError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// ContactHandler accepts the public contact form.
type ContactHandler struct {
	svc service.ContactService
	log *logger.Logger
}

func NewContactHandler(svc service.ContactService, log *logger.Logger) *ContactHandler {
	return &ContactHandler{svc: svc, log: log}
}

func (h *ContactHandler) Submit(c *gin.Context) {
	body, err := req.HandleBody[service.ContactRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	msg, err := h.svc.Submit(c.Request.Context(), *body)
	if err != nil {
		respondError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Message sent successfully",
		"data":    msg,
	})
}
