package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tightbudget/gamification-service/internal/archive"
	"github.com/tightbudget/gamification-service/internal/celebration"
	"github.com/tightbudget/gamification-service/internal/gamification"
	"github.com/tightbudget/gamification-service/internal/leaderboard"
	"github.com/tightbudget/gamification-service/internal/progress"
	sharedauth "github.com/tightbudget/gamification-service/shared/auth"
	sharederrors "github.com/tightbudget/gamification-service/shared/errors"
	"github.com/tightbudget/gamification-service/shared/envconfig"
	"github.com/tightbudget/gamification-service/shared/logging"
)

const (
	defaultPageSize  = 20
	maxPageSize      = 100
	serviceTimeout   = 8 * time.Second
	maxPayloadBytes  = 64 << 10
	defaultSnapLimit = 100
)

// Services are the collaborators the HTTP API needs. Snapshots and Stream may be nil, which
// disables their routes' functionality.
type Services struct {
	Gamification *gamification.Service
	Leaderboards leaderboard.Service
	Snapshots    *archive.Service
	Stream       celebration.Subscriber
	Logger       *slog.Logger
}

type handler struct {
	service   *gamification.Service
	boards    leaderboard.Service
	snapshots *archive.Service
	stream    celebration.Subscriber
	logger    *slog.Logger
}

type recordActionRequest struct {
	Action string `json:"action" validate:"required"`
	Count  int    `json:"count" validate:"gte=0,lte=100"`
	RefID  string `json:"ref_id" validate:"max=128"`
}

type displayNameRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=40"`
}

type snapshotRequest struct {
	Mode  string `json:"mode" validate:"omitempty,oneof=competition positional"`
	Limit int    `json:"limit" validate:"gte=0,lte=500"`
}

// RegisterRoutes mounts the gamification API on r.
func RegisterRoutes(r chi.Router, svcs Services) {
	h := &handler{
		service:   svcs.Gamification,
		boards:    svcs.Leaderboards,
		snapshots: svcs.Snapshots,
		stream:    svcs.Stream,
		logger:    svcs.Logger,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}

	r.Route("/v1/gamification", func(r chi.Router) {
		r.Get("/me", h.getProgress)
		r.Patch("/me", h.setDisplayName)
		r.Post("/actions", h.recordAction)
		r.Get("/points/history", h.pointHistory)
	})
	r.Get("/v1/levels", h.listLevels)
	r.Get("/v1/achievements/me", h.listAchievements)
	r.Route("/v1/challenges", func(r chi.Router) {
		r.Get("/me", h.listChallenges)
		r.Post("/{id}/claim", h.claimChallenge)
	})
	r.Route("/v1/milestones", func(r chi.Router) {
		r.Get("/me", h.listMilestones)
		r.Post("/{id}/claim", h.claimMilestone)
	})
	r.Get("/v1/leaderboards/{metric}", h.getLeaderboard)
	r.Post("/v1/leaderboards/{metric}/snapshots", h.createSnapshot)
	r.Get("/v1/celebrations/stream", h.streamCelebrations)
}

func (h *handler) getProgress(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, sharederrors.CodeUnauthorized, "missing user ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	summary, err := h.service.GetProgress(ctx, userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handler) setDisplayName(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, sharederrors.CodeUnauthorized, "missing user ID")
		return
	}

	var req displayNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, sharederrors.CodeBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	summary, err := h.service.SetDisplayName(ctx, userID, req.DisplayName)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handler) recordAction(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, sharederrors.CodeUnauthorized, "missing user ID")
		return
	}

	var req recordActionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, sharederrors.CodeBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	result, err := h.service.RecordAction(ctx, userID, gamification.ActionInput{
		Action: req.Action,
		Count:  req.Count,
		RefID:  strings.TrimSpace(req.RefID),
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) pointHistory(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, sharederrors.CodeUnauthorized, "missing user ID")
		return
	}

	pageSize := clampInt(parsePositiveInt(queryFirst(r, "page_size", "pageSize"), defaultPageSize), 1, maxPageSize)
	pageToken := queryFirst(r, "page_token", "pageToken")

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	page, err := h.service.PointHistory(ctx, userID, pageSize, pageToken)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handler) listLevels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"levels":      progress.Levels(),
		"point_rules": progress.PointRules(),
	})
}

func (h *handler) listAchievements(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, sharederrors.CodeUnauthorized, "missing user ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	list, err := h.service.ListAchievements(ctx, userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) listChallenges(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, sharederrors.CodeUnauthorized, "missing user ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	items, err := h.service.ListChallenges(ctx, userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *handler) claimChallenge(w http.ResponseWriter, r *http.Request) {
	h.claim(w, r, h.service.ClaimChallenge)
}

func (h *handler) listMilestones(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, sharederrors.CodeUnauthorized, "missing user ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	items, err := h.service.ListMilestones(ctx, userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *handler) claimMilestone(w http.ResponseWriter, r *http.Request) {
	h.claim(w, r, h.service.ClaimMilestone)
}

func (h *handler) claim(w http.ResponseWriter, r *http.Request, claimFn func(context.Context, string, string) (gamification.ClaimResult, error)) {
	userID := requestUserID(r)
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, sharederrors.CodeUnauthorized, "missing user ID")
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, sharederrors.CodeBadRequest, "ID required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	result, err := claimFn(ctx, userID, id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, sharederrors.CodeUnauthorized, "missing user ID")
		return
	}

	metric, err := leaderboard.ParseMetric(chi.URLParam(r, "metric"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	mode, err := leaderboard.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, sharederrors.CodeBadRequest, err.Error())
		return
	}
	limit := parsePositiveInt(r.URL.Query().Get("limit"), 0)

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	board, err := h.boards.Board(ctx, leaderboard.Query{
		Metric: metric,
		Mode:   mode,
		Limit:  limit,
		UserID: userID,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *handler) createSnapshot(w http.ResponseWriter, r *http.Request) {
	if requestUserID(r) == "" {
		writeError(w, r, http.StatusUnauthorized, sharederrors.CodeUnauthorized, "missing user ID")
		return
	}
	if h.snapshots == nil {
		h.respondServiceError(w, r, archive.ErrNotConfigured)
		return
	}

	metric, err := leaderboard.ParseMetric(chi.URLParam(r, "metric"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	var req snapshotRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, sharederrors.CodeBadRequest, err.Error())
			return
		}
	}
	mode, err := leaderboard.ParseMode(req.Mode)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, sharederrors.CodeBadRequest, err.Error())
		return
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultSnapLimit
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	result, err := h.snapshots.Snapshot(ctx, metric, mode, limit)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *handler) streamCelebrations(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, sharederrors.CodeUnauthorized, "missing user ID")
		return
	}
	if h.stream == nil {
		writeError(w, r, http.StatusServiceUnavailable, sharederrors.CodeUnavailable, "celebration stream is not configured")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		// Accept has already written the handshake failure.
		h.logRequestError(r, userID, "websocket accept failed", err)
		return
	}

	// The stream outlives the router's request timeout; it ends when the client disconnects.
	ctx := context.WithoutCancel(r.Context())
	if err := celebration.Serve(ctx, conn, h.stream, userID); err != nil {
		h.logRequestError(r, userID, "celebration stream ended", err)
	}
}

func (h *handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, gamification.ErrMissingUserID):
		writeError(w, r, http.StatusUnauthorized, sharederrors.CodeUnauthorized, "missing user ID")
	case errors.Is(err, gamification.ErrUnknownAction),
		errors.Is(err, gamification.ErrInvalidCount),
		errors.Is(err, gamification.ErrInvalidDisplayName),
		errors.Is(err, gamification.ErrInvalidPageToken),
		errors.Is(err, gamification.ErrUnknownMetric):
		writeError(w, r, http.StatusBadRequest, sharederrors.CodeBadRequest, err.Error())
	case errors.Is(err, gamification.ErrChallengeNotFound):
		writeError(w, r, http.StatusNotFound, sharederrors.CodeNotFound, "challenge not found")
	case errors.Is(err, gamification.ErrMilestoneNotFound):
		writeError(w, r, http.StatusNotFound, sharederrors.CodeNotFound, "milestone not found")
	case errors.Is(err, gamification.ErrChallengeNotCompleted):
		writeError(w, r, http.StatusConflict, sharederrors.CodeConflict, "challenge is not completed yet")
	case errors.Is(err, gamification.ErrMilestoneNotReached):
		writeError(w, r, http.StatusConflict, sharederrors.CodeConflict, "milestone is not reached yet")
	case errors.Is(err, archive.ErrNotConfigured):
		writeError(w, r, http.StatusServiceUnavailable, sharederrors.CodeUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		h.logRequestError(r, requestUserID(r), "request timed out", err)
		writeError(w, r, http.StatusServiceUnavailable, sharederrors.CodeUnavailable, "request timed out")
	default:
		h.logRequestError(r, requestUserID(r), "request failed", err)
		writeError(w, r, http.StatusInternalServerError, sharederrors.CodeInternal, "internal server error")
	}
}

func (h *handler) logRequestError(r *http.Request, userID, msg string, err error) {
	logging.WithRequestID(r.Context(), h.logger).Error(msg,
		slog.String("userId", userID),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
}

// requestUserID prefers the authenticated subject and falls back to the internal X-User-ID header.
func requestUserID(r *http.Request) string {
	if user, ok := sharedauth.UserFromContext(r.Context()); ok && user.UserID != "" {
		return user.UserID
	}
	return headerUserID(r)
}

func headerUserID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON payload")
	}
	if err := envconfig.Validate(dst); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

func parsePositiveInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func queryFirst(r *http.Request, keys ...string) string {
	q := r.URL.Query()
	for _, key := range keys {
		if v := q.Get(key); v != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, sharederrors.ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}
