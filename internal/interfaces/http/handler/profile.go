package handler

import (
	"net/http"

	partnerapp "github.com/erp/invoicing/internal/application/partner"
	"github.com/gin-gonic/gin"
)

// ProfileHandler handles staff profile endpoints
type ProfileHandler struct {
	profiles ProfileService
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(profiles ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Me godoc
// @ID           getMyProfile
// @Summary      Get the caller's profile
// @Tags         profiles
// @Produce      json
// @Success      200 {object} APIResponse[partnerapp.ProfileResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /profiles/me [get]
func (h *ProfileHandler) Me(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	profile, err := h.profiles.Me(c.Request.Context(), actor)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, profile)
}

// Create godoc
// @ID           createProfile
// @Summary      Create a staff profile
// @Description  Admins add staff to their own tenant
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Param        request body partnerapp.CreateProfileRequest true "Profile"
// @Success      201 {object} APIResponse[partnerapp.ProfileResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /profiles [post]
func (h *ProfileHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req partnerapp.CreateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.profiles.Create(c.Request.Context(), actor.TenantID, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, profile)
}

// List godoc
// @ID           listProfiles
// @Summary      List staff profiles
// @Tags         profiles
// @Produce      json
// @Param        search    query string false "Name or email"
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Success      200 {object} APIResponse[[]partnerapp.ProfileResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /profiles [get]
func (h *ProfileHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var filter partnerapp.ProfileListFilter
	if !bindQuery(c, &filter) {
		return
	}

	profiles, err := h.profiles.List(c.Request.Context(), actor, filter)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, profiles)
}

// Get godoc
// @ID           getProfile
// @Summary      Get a staff profile
// @Tags         profiles
// @Produce      json
// @Param        id path string true "Profile ID" format(uuid)
// @Success      200 {object} APIResponse[partnerapp.ProfileResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /profiles/{id} [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	profile, err := h.profiles.Get(c.Request.Context(), actor, id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, profile)
}
