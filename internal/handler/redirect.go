package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trimlink/trimlink/internal/handler/dto"
	"github.com/trimlink/trimlink/internal/metrics"
	"github.com/trimlink/trimlink/internal/service"
	"github.com/trimlink/trimlink/internal/stats"
)

// RedirectHandler handles redirect requests.
type RedirectHandler struct {
	svc      *service.LinkService
	recorder *stats.Recorder
	metrics  metrics.Recorder
	logger   *slog.Logger

	// defaultDomain substitutes for the Host header when it is empty,
	// so short URLs resolve in local setups without a reverse proxy.
	defaultDomain string
}

// NewRedirectHandler creates a new RedirectHandler.
func NewRedirectHandler(svc *service.LinkService, recorder *stats.Recorder, metricsRec metrics.Recorder, logger *slog.Logger, defaultDomain string) *RedirectHandler {
	if metricsRec == nil {
		metricsRec = metrics.NewNoop()
	}
	return &RedirectHandler{
		svc:           svc,
		recorder:      recorder,
		metrics:       metricsRec,
		logger:        logger,
		defaultDomain: defaultDomain,
	}
}

// Redirect handles GET /{shortCode} for URL redirection.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")
	if shortCode == "" {
		h.metrics.IncResolveOutcome("not_found")
		writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")
		return
	}

	shortURL := h.shortURL(r, shortCode)

	start := time.Now()
	resolution, err := h.svc.Resolve(r.Context(), shortURL)
	duration := time.Since(start)

	if err != nil {
		h.handleResolveError(w, shortURL, err, duration)
		return
	}

	if resolution.PasswordRequired {
		h.metrics.IncResolveOutcome("password")
		h.logger.Info("redirect_password_required",
			"short_url", shortURL,
			"duration_ms", float64(duration.Microseconds())/1000,
		)
		// Send the visitor to the password-entry page, not the target.
		http.Redirect(w, r, "/protected/"+shortCode, http.StatusFound)
		return
	}

	h.recordClick(r, resolution.Link.ID)

	h.metrics.IncResolveOutcome("redirect")
	h.logger.Info("redirect_success",
		"short_url", shortURL,
		"duration_ms", float64(duration.Microseconds())/1000,
	)

	// Set security headers
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Cache-Control", "private, max-age=0")

	http.Redirect(w, r, resolution.OriginalURL, http.StatusFound)
}

// ResolveProtected handles POST /{shortCode}/protected with a
// submitted password. Returns the redirect target as JSON so the
// password page can navigate client-side.
func (h *RedirectHandler) ResolveProtected(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")
	shortURL := h.shortURL(r, shortCode)

	var req dto.ProtectedResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	start := time.Now()
	resolution, err := h.svc.ResolveProtected(r.Context(), shortURL, req.Password)
	duration := time.Since(start)

	if err != nil {
		h.handleResolveError(w, shortURL, err, duration)
		return
	}

	h.recordClick(r, resolution.Link.ID)

	h.metrics.IncResolveOutcome("redirect")
	h.logger.Info("protected_resolve_success",
		"short_url", shortURL,
		"duration_ms", float64(duration.Microseconds())/1000,
	)

	writeJSON(w, http.StatusOK, dto.ProtectedResolveResponse{
		RedirectURL: resolution.OriginalURL,
	})
}

// recordClick submits click telemetry without blocking the response.
func (h *RedirectHandler) recordClick(r *http.Request, linkID string) {
	if h.recorder == nil {
		return
	}
	h.recorder.Record(stats.Click{
		LinkID:      linkID,
		Referrer:    r.Header.Get("Referer"),
		IP:          clientIP(r),
		UserAgent:   r.Header.Get("User-Agent"),
		CountryHint: countryHint(r),
		ClickedAt:   time.Now().UTC(),
	})
}

// handleResolveError maps resolution terminal states to HTTP responses.
func (h *RedirectHandler) handleResolveError(w http.ResponseWriter, shortURL string, err error, duration time.Duration) {
	durationMS := float64(duration.Microseconds()) / 1000

	switch {
	case errors.Is(err, service.ErrLinkNotFound):
		h.metrics.IncResolveOutcome("not_found")
		h.logger.Info("resolve_not_found", "short_url", shortURL, "duration_ms", durationMS)
		writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")

	case errors.Is(err, service.ErrLinkExpired):
		h.metrics.IncResolveOutcome("expired")
		h.logger.Info("resolve_expired", "short_url", shortURL, "duration_ms", durationMS)
		writeError(w, http.StatusGone, "LINK_EXPIRED", "Link has expired")

	case errors.Is(err, service.ErrLinkDisabled):
		h.metrics.IncResolveOutcome("disabled")
		h.logger.Info("resolve_disabled", "short_url", shortURL, "duration_ms", durationMS)
		writeError(w, http.StatusBadRequest, "LINK_DISABLED", "Link is disabled")

	case errors.Is(err, service.ErrInvalidPassword):
		h.metrics.IncResolveOutcome("forbidden")
		h.logger.Info("resolve_invalid_password", "short_url", shortURL, "duration_ms", durationMS)
		writeError(w, http.StatusForbidden, "INVALID_PASSWORD", "Invalid password")

	default:
		h.metrics.IncResolveOutcome("error")
		h.logger.Error("resolve_error", "short_url", shortURL, "error", err, "duration_ms", durationMS)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// shortURL derives the canonical lookup key from the request host and
// the alias path segment.
func (h *RedirectHandler) shortURL(r *http.Request, shortCode string) string {
	host := r.Host
	if host == "" {
		host = h.defaultDomain
	}
	return host + "/" + shortCode
}

// clientIP extracts the client IP address from the request.
func clientIP(r *http.Request) string {
	// Check Cloudflare header first
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	// Check X-Forwarded-For
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		// Take the first IP in the chain
		for i := 0; i < len(ip); i++ {
			if ip[i] == ',' {
				return ip[:i]
			}
		}
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// countryHint reads the CDN-provided country header when present.
func countryHint(r *http.Request) string {
	if cc := r.Header.Get("CF-IPCountry"); len(cc) == 2 {
		return cc
	}
	return ""
}
