package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"learnQuestAPI/middleware"
	"learnQuestAPI/services"
)

type BadgeHandler struct {
	badges *services.BadgeService
	users  *services.UserService
}

func NewBadgeHandler(badgeService *services.BadgeService, userService *services.UserService) *BadgeHandler {
	return &BadgeHandler{
		badges: badgeService,
		users:  userService,
	}
}

func (h *BadgeHandler) GetUnlockedBadges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	userID, err := h.users.GetUserIDFromClerkID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	badges, err := h.badges.GetUnlockedBadges(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, badges)
}

func (h *BadgeHandler) GetAvailableBadges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	userID, err := h.users.GetUserIDFromClerkID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	catalog, err := h.badges.GetAvailableBadges(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, catalog)
}

// AwardBadge is the admin override for granting a badge outside the normal
// criteria evaluation.
func (h *BadgeHandler) AwardBadge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req struct {
		UserID  uuid.UUID `json:"user_id"`
		BadgeID uuid.UUID `json:"badge_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == uuid.Nil || req.BadgeID == uuid.Nil {
		respondWithError(w, http.StatusBadRequest, "user_id and badge_id are required")
		return
	}

	earned, err := h.badges.AwardToUser(ctx, req.UserID, req.BadgeID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if earned == nil {
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "Badge already awarded"})
		return
	}

	respondWithJSON(w, http.StatusCreated, earned)
}
