package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"learnQuestAPI/internal/types/event"
	"learnQuestAPI/internal/types/points"
	"learnQuestAPI/internal/types/streak"
	"learnQuestAPI/middleware"
	"learnQuestAPI/services"
)

type GamificationHandler struct {
	engine       *services.EngineService
	points       *services.PointsService
	streaks      *services.StreakService
	achievements *services.AchievementService
	users        *services.UserService
}

func NewGamificationHandler(
	engine *services.EngineService,
	pointsService *services.PointsService,
	streakService *services.StreakService,
	achievementService *services.AchievementService,
	userService *services.UserService,
) *GamificationHandler {
	return &GamificationHandler{
		engine:       engine,
		points:       pointsService,
		streaks:      streakService,
		achievements: achievementService,
		users:        userService,
	}
}

// ProcessEvent ingests one learner action and returns everything it changed.
func (h *GamificationHandler) ProcessEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var evt event.DomainEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	outcome, err := h.engine.ProcessEvent(ctx, clerkID, &evt)
	if err != nil {
		switch {
		case errors.Is(err, streak.ErrActivityBackdated):
			respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, services.ErrUserNotFound):
			respondWithError(w, http.StatusNotFound, "User not found")
		default:
			log.Printf("ProcessEvent Handler: %v", err)
			respondWithError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusOK, outcome)
}

func (h *GamificationHandler) GetPoints(w http.ResponseWriter, r *http.Request) {
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

	account, err := h.points.GetAccount(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, account)
}

func (h *GamificationHandler) GetPointsHistory(w http.ResponseWriter, r *http.Request) {
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

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	var kind *points.ActivityKind
	if k := r.URL.Query().Get("kind"); k != "" {
		ak := points.ActivityKind(k)
		if _, ok := points.SubtotalColumn[ak]; !ok {
			respondWithError(w, http.StatusBadRequest, "Unknown activity kind: "+k)
			return
		}
		kind = &ak
	}

	history, err := h.points.GetHistory(ctx, userID, kind, page)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, history)
}

func (h *GamificationHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
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

	st, err := h.streaks.Get(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, st)
}

func (h *GamificationHandler) GetAchievements(w http.ResponseWriter, r *http.Request) {
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

	achievements, err := h.achievements.GetAchievements(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, achievements)
}
