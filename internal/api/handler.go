package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ecomtrust/kestrel/internal/auth"
	"github.com/ecomtrust/kestrel/internal/cache"
	"github.com/ecomtrust/kestrel/internal/domain"
	"github.com/ecomtrust/kestrel/internal/repository"
	"github.com/ecomtrust/kestrel/internal/rules"
	"github.com/ecomtrust/kestrel/internal/scoring"
	"github.com/ecomtrust/kestrel/internal/worker"
)

// Store is the persistence surface the handlers need.
type Store interface {
	SaveReview(ctx context.Context, ev *domain.ReviewEvent, d *domain.Decision) (int64, error)
	GetReview(ctx context.Context, id int64) (*domain.ReviewEvent, *domain.Decision, error)
	SaveTransaction(ctx context.Context, ev *domain.TransactionEvent, d *domain.Decision) (int64, error)
	GetTransaction(ctx context.Context, id int64) (*domain.TransactionEvent, *domain.Decision, error)
	SaveRuleConfig(ctx context.Context, cfg *domain.RuleConfig) error
	ListRuleConfigs(ctx context.Context) ([]*domain.RuleConfig, error)
	Ping(ctx context.Context) error
}

const defaultDecisionCacheTTL = 5 * time.Minute

// Handler holds dependencies for API handlers.
type Handler struct {
	store    Store
	cache    domain.Cache
	cacheTTL time.Duration
	bus      domain.EventBus
	scorer   *scoring.Service
	custom   *rules.CustomEngine
	tokens   *auth.Manager
	validate *validator.Validate
	version  string
}

// NewHandler creates a new API handler. The custom rule engine may be nil.
func NewHandler(store Store, c domain.Cache, cacheTTL time.Duration, bus domain.EventBus, scorer *scoring.Service, custom *rules.CustomEngine, tokens *auth.Manager, version string) *Handler {
	if cacheTTL <= 0 {
		cacheTTL = defaultDecisionCacheTTL
	}
	return &Handler{
		store:    store,
		cache:    c,
		cacheTTL: cacheTTL,
		bus:      bus,
		scorer:   scorer,
		custom:   custom,
		tokens:   tokens,
		validate: validator.New(),
		version:  version,
	}
}

// TokenRequest is the request body for POST /auth/token.
type TokenRequest struct {
	AdminSecret string `json:"adminSecret" validate:"required"`
}

// IssueToken handles POST /auth/token.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "adminSecret is required",
		})
		return
	}

	token, expiresAt, err := h.tokens.IssueToken(req.AdminSecret)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "invalid credentials",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"expiresAt": expiresAt.Format(time.RFC3339),
	})
}

// ReviewRequest is the request body for POST /predict/review.
type ReviewRequest struct {
	UserID            int64      `json:"userId" validate:"required,gt=0"`
	ProductID         string     `json:"productId"`
	ReviewText        string     `json:"reviewText" validate:"required"`
	Rating            float64    `json:"rating" validate:"required,gte=1,lte=5"`
	IPAddress         string     `json:"ipAddress" validate:"omitempty,ip"`
	DeviceFingerprint string     `json:"deviceFingerprint"`
	CreatedAt         *time.Time `json:"createdAt"`
}

// TransactionRequest is the request body for POST /predict/transaction.
type TransactionRequest struct {
	UserID            int64      `json:"userId" validate:"required,gt=0"`
	Amount            float64    `json:"amount" validate:"required,gt=0"`
	Currency          string     `json:"currency" validate:"required,len=3"`
	Channel           string     `json:"channel"`
	IPAddress         string     `json:"ipAddress" validate:"omitempty,ip"`
	DeviceFingerprint string     `json:"deviceFingerprint"`
	CountryMismatch   bool       `json:"countryMismatch"`
	CreatedAt         *time.Time `json:"createdAt"`
}

// PredictResponse is the response for the predict endpoints.
type PredictResponse struct {
	ID     int64            `json:"id"`
	Result *domain.Decision `json:"result"`
}

// RecordResponse is the response for the record retrieval endpoints. Cache
// hits and store reads both produce this envelope.
type RecordResponse struct {
	ID     int64            `json:"id"`
	Event  any              `json:"event"`
	Result *domain.Decision `json:"result"`
}

// PredictReview handles POST /predict/review: score, persist, publish.
func (h *Handler) PredictReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	ev := &domain.ReviewEvent{
		UserID:            req.UserID,
		ProductID:         req.ProductID,
		ReviewText:        req.ReviewText,
		Rating:            req.Rating,
		IPAddress:         req.IPAddress,
		DeviceFingerprint: req.DeviceFingerprint,
		CreatedAt:         eventTime(req.CreatedAt),
	}

	d, _, err := h.scorer.ScoreReview(ctx, ev)
	if err != nil {
		writeScoringError(w, err)
		return
	}

	id, err := h.store.SaveReview(ctx, ev, d)
	if err != nil {
		slog.Error("failed to save review", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to persist review",
		})
		return
	}

	h.publishScored(ctx, domain.TopicReviewScored, id, domain.ClassReview, d)
	writeJSON(w, http.StatusOK, PredictResponse{ID: id, Result: d})
}

// PredictTransaction handles POST /predict/transaction.
func (h *Handler) PredictTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	ev := &domain.TransactionEvent{
		UserID:            req.UserID,
		Amount:            req.Amount,
		Currency:          req.Currency,
		Channel:           req.Channel,
		IPAddress:         req.IPAddress,
		DeviceFingerprint: req.DeviceFingerprint,
		CountryMismatch:   req.CountryMismatch,
		CreatedAt:         eventTime(req.CreatedAt),
	}

	d, _, err := h.scorer.ScoreTransaction(ctx, ev)
	if err != nil {
		writeScoringError(w, err)
		return
	}

	id, err := h.store.SaveTransaction(ctx, ev, d)
	if err != nil {
		slog.Error("failed to save transaction", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to persist transaction",
		})
		return
	}

	h.publishScored(ctx, domain.TopicTransactionScored, id, domain.ClassTransaction, d)
	writeJSON(w, http.StatusOK, PredictResponse{ID: id, Result: d})
}

// GetReview retrieves a persisted review with its decision record.
func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if rec := h.cachedRecord(ctx, domain.ClassReview, id); rec != nil {
		writeJSON(w, http.StatusOK, RecordResponse{ID: id, Event: rec.Event, Result: rec.Decision})
		return
	}

	ev, d, err := h.store.GetReview(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "review not found",
		})
		return
	}
	if err != nil {
		slog.Error("failed to get review", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load review",
		})
		return
	}

	h.cacheRecord(ctx, domain.ClassReview, id, ev, d)
	writeJSON(w, http.StatusOK, RecordResponse{ID: id, Event: ev, Result: d})
}

// GetTransaction retrieves a persisted transaction with its decision record.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if rec := h.cachedRecord(ctx, domain.ClassTransaction, id); rec != nil {
		writeJSON(w, http.StatusOK, RecordResponse{ID: id, Event: rec.Event, Result: rec.Decision})
		return
	}

	ev, d, err := h.store.GetTransaction(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "transaction not found",
		})
		return
	}
	if err != nil {
		slog.Error("failed to get transaction", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load transaction",
		})
		return
	}

	h.cacheRecord(ctx, domain.ClassTransaction, id, ev, d)
	writeJSON(w, http.StatusOK, RecordResponse{ID: id, Event: ev, Result: d})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ListRules returns the custom rules currently loaded in the engine.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	if h.custom == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "custom rule engine not available",
		})
		return
	}

	loaded := h.custom.LoadedRules()
	writeJSON(w, http.StatusOK, map[string]any{
		"rules": loaded,
		"count": len(loaded),
	})
}

// CreateRuleRequest is the request body for creating a custom rule.
type CreateRuleRequest struct {
	ID          string  `json:"id" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Class       string  `json:"class" validate:"required,oneof=review transaction"`
	Expression  string  `json:"expression" validate:"required"`
	Boost       float64 `json:"boost" validate:"gte=0"`
	Reason      string  `json:"reason" validate:"required"`
	Enabled     bool    `json:"enabled"`
}

// CreateRule validates, persists and hot-loads a custom rule.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.custom == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "custom rule engine not available",
		})
		return
	}

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	cfg := &domain.RuleConfig{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Class:       domain.EntityClass(req.Class),
		Expression:  req.Expression,
		Boost:       req.Boost,
		Reason:      req.Reason,
		Enabled:     req.Enabled,
	}

	// Compile before persisting so bad expressions never reach the store.
	if err := h.custom.ValidateRule(cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid rule expression: " + err.Error(),
		})
		return
	}

	if err := h.store.SaveRuleConfig(ctx, cfg); err != nil {
		slog.Error("failed to save rule config", "id", cfg.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save rule",
		})
		return
	}

	if cfg.Enabled {
		if err := h.custom.LoadRule(cfg); err != nil {
			slog.Error("failed to load rule into engine", "id", cfg.ID, "error", err)
		}
	}

	slog.Info("rule created", "id", cfg.ID, "name", cfg.Name)
	writeJSON(w, http.StatusCreated, map[string]any{
		"rule": cfg,
	})
}

// ReloadRules reloads all enabled custom rules from the store.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.custom == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "custom rule engine not available",
		})
		return
	}

	configs, err := h.store.ListRuleConfigs(ctx)
	if err != nil {
		slog.Error("failed to list rules from store", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules",
		})
		return
	}

	if err := h.custom.ReloadRules(configs); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("rules reloaded", "count", len(configs))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "rules reloaded successfully",
		"count":   len(configs),
	})
}

func (h *Handler) publishScored(ctx context.Context, topic string, id int64, class domain.EntityClass, d *domain.Decision) {
	if h.bus == nil {
		return
	}
	payload, err := json.Marshal(worker.ScoredEvent{ID: id, Class: string(class), Decision: d})
	if err != nil {
		slog.Error("failed to marshal scored event", "error", err)
		return
	}
	if err := h.bus.Publish(ctx, topic, payload); err != nil {
		slog.Error("failed to publish scored event", "topic", topic, "error", err)
	}
}

func (h *Handler) cachedRecord(ctx context.Context, class domain.EntityClass, id int64) *cache.DecisionRecord {
	if h.cache == nil {
		return nil
	}
	rec, err := cache.GetRecord(ctx, h.cache, class, id)
	if err != nil {
		slog.Warn("decision cache read failed", "error", err)
		return nil
	}
	if rec == nil || rec.Decision == nil {
		return nil
	}
	return rec
}

func (h *Handler) cacheRecord(ctx context.Context, class domain.EntityClass, id int64, ev any, d *domain.Decision) {
	if h.cache == nil || d == nil {
		return
	}
	if err := cache.SetRecord(ctx, h.cache, class, id, ev, d, h.cacheTTL); err != nil {
		slog.Warn("decision cache write failed", "error", err)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

func eventTime(t *time.Time) time.Time {
	if t != nil && !t.IsZero() {
		return t.UTC()
	}
	return time.Now().UTC()
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid field: " + verrs[0].Field(),
		})
		return
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": "invalid request",
	})
}

func writeScoringError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrHistoryUnavailable):
		slog.Error("history store unavailable", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "historical store unavailable",
		})
	case errors.Is(err, domain.ErrMissingRequiredField):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	default:
		slog.Error("scoring failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "scoring failed",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
