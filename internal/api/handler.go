package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/eugenenazirov/buildenv/internal/buildcfg"
	"github.com/eugenenazirov/buildenv/internal/pkgconfig"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// NameLister reports which configurations have been resolved so far.
type NameLister interface {
	Names() []string
}

// Handler wires the resolver and its cache into HTTP handlers. Every request
// is resolved with the option set the process was started with.
type Handler struct {
	resolver buildcfg.Resolver
	cache    NameLister
	options  buildcfg.OptionSet

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(resolver buildcfg.Resolver, cache NameLister, opts buildcfg.OptionSet, hopts ...HandlerOption) *Handler {
	h := &Handler{
		resolver: resolver,
		cache:    cache,
		options:  opts.Clone(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range hopts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleTargets(w http.ResponseWriter, r *http.Request) {
	_ = r
	targets := buildcfg.Targets()
	resp := targetsResponse{
		Targets: make([]targetEntry, 0, len(targets)),
		Flavors: []buildcfg.Flavor{buildcfg.Debug, buildcfg.Release},
	}
	for _, t := range targets {
		resp.Targets = append(resp.Targets, targetEntry{
			Name:    t,
			Family:  t.Family(),
			Options: buildcfg.Schema(t.Family()),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	_ = r
	writeJSON(w, http.StatusOK, configsResponse{Names: h.cache.Names()})
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	target := buildcfg.Target(r.PathValue("target"))
	flavor := buildcfg.Flavor(r.PathValue("flavor"))

	start := time.Now()
	cfg, err := h.resolver.Resolve(r.Context(), target, flavor, h.options)
	elapsed := time.Since(start)

	if err != nil {
		var unknown *buildcfg.UnknownOptionError
		switch {
		case errors.Is(err, buildcfg.ErrUnsupportedTarget):
			writeError(w, http.StatusNotFound, "Unsupported target", err.Error(), "GET /api/targets lists the supported targets")
		case errors.Is(err, buildcfg.ErrUnsupportedFlavor):
			writeError(w, http.StatusNotFound, "Unsupported flavor", err.Error(), "use debug or release")
		case errors.As(err, &unknown):
			writeError(w, http.StatusUnprocessableEntity, "Unknown options", err.Error(), unknown.Help)
		case errors.Is(err, buildcfg.ErrInvalidOptionValue):
			writeError(w, http.StatusUnprocessableEntity, "Invalid option value", err.Error())
		case errors.Is(err, pkgconfig.ErrLookupFailed):
			writeError(w, http.StatusBadGateway, "Package lookup failed", err.Error())
		default:
			writeInternalError(w, err)
		}
		return
	}

	resp := configResponse{
		Config:           cfg,
		DefineFlags:      cfg.DefineFlags(),
		ResolutionTimeMs: elapsed.Milliseconds(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type targetEntry struct {
	Name    buildcfg.Target       `json:"name"`
	Family  buildcfg.Family       `json:"family"`
	Options []buildcfg.OptionSpec `json:"options"`
}

type targetsResponse struct {
	Targets []targetEntry     `json:"targets"`
	Flavors []buildcfg.Flavor `json:"flavors"`
}

type configsResponse struct {
	Names []string `json:"names"`
}

type configResponse struct {
	Config           buildcfg.BuildConfig `json:"config"`
	DefineFlags      []string             `json:"defineFlags"`
	ResolutionTimeMs int64                `json:"resolutionTimeMs"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
