package handler

import (
	"context"
	"net/http"

	eventapp "github.com/erp/invoicing/internal/application/event"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type entryOp func(context.Context, shared.AuthContext, uuid.UUID) (*eventapp.OutboxEntryDTO, error)

// OutboxHandler serves the dead letter administration of the event outbox
type OutboxHandler struct {
	outbox OutboxService
}

func NewOutboxHandler(outbox OutboxService) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// ListDead godoc
// @ID           getOutboxDeadLetterEntries
// @Summary      List dead letter entries
// @Description  Events of the caller's tenant whose delivery failed after every retry
// @Tags         outbox
// @Produce      json
// @Param        page      query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]eventapp.OutboxEntryDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/outbox/dead [get]
func (h *OutboxHandler) ListDead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var filter eventapp.OutboxFilter
	if !bindQuery(c, &filter) {
		return
	}
	page, err := h.outbox.ListDead(c.Request.Context(), actor, filter)
	if err != nil {
		fail(c, err)
		return
	}
	respondPage(c, page.Entries, page.Total, page.Page, page.PageSize)
}

// GetEntry godoc
// @ID           getOutboxEntry
// @Summary      Get an outbox entry
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Entry ID" format(uuid)
// @Success      200 {object} APIResponse[eventapp.OutboxEntryDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/outbox/entries/{id} [get]
func (h *OutboxHandler) GetEntry(c *gin.Context) {
	h.withEntry(c, h.outbox.Entry)
}

// Requeue godoc
// @ID           retryOutboxDeadEntry
// @Summary      Redeliver a dead letter entry
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Entry ID" format(uuid)
// @Success      200 {object} APIResponse[eventapp.OutboxEntryDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/outbox/entries/{id}/retry [post]
func (h *OutboxHandler) Requeue(c *gin.Context) {
	h.withEntry(c, h.outbox.Requeue)
}

// RequeueAll godoc
// @ID           retryAllOutboxDeadEntries
// @Summary      Redeliver every dead letter entry
// @Tags         outbox
// @Produce      json
// @Success      200 {object} APIResponse[CountData]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/outbox/dead/retry [post]
func (h *OutboxHandler) RequeueAll(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	n, err := h.outbox.RequeueAll(c.Request.Context(), actor)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, CountData{Count: n})
}

// Stats godoc
// @ID           getOutboxStats
// @Summary      Count outbox entries by status
// @Tags         outbox
// @Produce      json
// @Success      200 {object} APIResponse[eventapp.OutboxStatsDTO]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /system/outbox/stats [get]
func (h *OutboxHandler) Stats(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	stats, err := h.outbox.Stats(c.Request.Context(), actor)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

func (h *OutboxHandler) withEntry(c *gin.Context, op entryOp) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	entry, err := op(c.Request.Context(), actor, id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, entry)
}
