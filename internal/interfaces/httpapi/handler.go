package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/cricket-scoreboard/internal/domain/match"
	"github.com/riskibarqy/cricket-scoreboard/internal/platform/logging"
	"github.com/riskibarqy/cricket-scoreboard/internal/usecase"
)

// MatchReader is the read side the API serves from.
type MatchReader interface {
	GetMatch(ctx context.Context, matchID string) (match.Match, error)
	RefreshMatch(ctx context.Context, matchID string) (match.Match, error)
	GetStoredMatches(ctx context.Context, matchIDs []string) (usecase.StoredMatches, error)
	CurrentMatch(ctx context.Context) (match.Match, error)
}

type CacheClearer interface {
	ClearCache()
}

type PollerStatusReader interface {
	Status() usecase.PollerStatus
}

// HealthReporter contributes a named section to /healthz.
type HealthReporter func() any

type Handler struct {
	matches   MatchReader
	cache     CacheClearer
	poller    PollerStatusReader
	health    map[string]HealthReporter
	logger    *logging.Logger
	validator *validator.Validate
}

type HandlerOptions struct {
	Cache  CacheClearer
	Poller PollerStatusReader
	Health map[string]HealthReporter
}

func NewHandler(matches MatchReader, opts HandlerOptions, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		matches:   matches,
		cache:     opts.Cache,
		poller:    opts.Poller,
		health:    opts.Health,
		logger:    logger,
		validator: validator.New(),
	}
}

type matchIDRequest struct {
	MatchID string `validate:"required,max=64,alphanum"`
}

type matchListRequest struct {
	MatchIDs []string `validate:"required,min=1,max=50,dive,required,max=64,alphanum"`
}

type storedMatchesDTO struct {
	Items   []match.Match `json:"items"`
	Missing []string      `json:"missing"`
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	body := map[string]any{"status": "ok"}
	for name, report := range h.health {
		if report != nil {
			body[name] = report()
		}
	}
	writeSuccess(ctx, w, http.StatusOK, body)
}

func (h *Handler) GetCurrentMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetCurrentMatch")
	defer span.End()

	item, err := h.matches.CurrentMatch(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "get current match failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, item)
}

func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatch")
	defer span.End()

	matchID, err := h.pathMatchID(ctx, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.matches.GetMatch(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "get match failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, item)
}

func (h *Handler) RefreshMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RefreshMatch")
	defer span.End()

	matchID, err := h.pathMatchID(ctx, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.matches.RefreshMatch(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "refresh match failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, item)
}

func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMatches")
	defer span.End()

	req := matchListRequest{MatchIDs: splitIDs(r.URL.Query().Get("ids"))}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	stored, err := h.matches.GetStoredMatches(ctx, req.MatchIDs)
	if err != nil {
		h.logger.WarnContext(ctx, "list stored matches failed", "ids", len(req.MatchIDs), "error", err)
		writeError(ctx, w, err)
		return
	}

	out := storedMatchesDTO{Items: stored.Items, Missing: stored.Missing}
	if out.Items == nil {
		out.Items = []match.Match{}
	}
	if out.Missing == nil {
		out.Missing = []string{}
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) ClearMatchCache(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClearMatchCache")
	defer span.End()

	if h.cache != nil {
		h.cache.ClearCache()
	}
	h.logger.InfoContext(ctx, "match cache cleared")
	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"cleared": true})
}

func (h *Handler) GetPollerStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPollerStatus")
	defer span.End()

	if h.poller == nil {
		writeError(ctx, w, fmt.Errorf("%w: live poller is disabled", usecase.ErrNotFound))
		return
	}
	writeSuccess(ctx, w, http.StatusOK, h.poller.Status())
}

func (h *Handler) pathMatchID(ctx context.Context, r *http.Request) (string, error) {
	req := matchIDRequest{MatchID: match.NormalizeID(r.PathValue("matchID"))}
	if err := h.validator.StructCtx(ctx, req); err != nil {
		return "", &usecase.InvalidInputError{Field: "matchId", Message: "must be a non-empty alphanumeric id"}
	}
	return req.MatchID, nil
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func splitIDs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.TrimSpace(part))
	}
	return out
}
