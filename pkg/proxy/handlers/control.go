package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"

	"ccproxy-hq/ccproxy/pkg/config"
	"ccproxy-hq/ccproxy/pkg/discovery"
	"ccproxy-hq/ccproxy/pkg/proxy"
	"ccproxy-hq/ccproxy/pkg/proxy/types"
)

// maxControlBody bounds control plane request bodies.
const maxControlBody = 1 << 20

// errInvalidJSON marks a control body that is not a JSON object.
var errInvalidJSON = errors.New("invalid json")

// ControlHandler serves the /api control plane used by the web UI.
type ControlHandler struct {
	src       ControlSource
	discovery Discoverer
	prober    Prober
	logger    *slog.Logger
}

// NewControlHandler creates the control plane handlers.
func NewControlHandler(src ControlSource, d Discoverer, p Prober, logger *slog.Logger) *ControlHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ControlHandler{
		src:       src,
		discovery: d,
		prober:    p,
		logger:    logger.With("component", "handlers.control"),
	}
}

// StateResponse is the GET /api/state payload.
type StateResponse struct {
	SelectedProvider string            `json:"selected_provider"`
	Providers        []config.Provider `json:"providers"`
	SelectedOverride config.Override   `json:"selected_override"`
	HeaderOverrides  []string          `json:"header_overrides"`
	RequestOverrides []string          `json:"request_overrides"`
	GlobalEnvModels  map[string]any    `json:"global_env_models"`
	ErrorCounts      map[string]int    `json:"error_counts"`
}

// ProvidersResponse is returned by reload and reset.
type ProvidersResponse struct {
	SelectedProvider string            `json:"selected_provider"`
	Providers        []config.Provider `json:"providers"`
}

// RefreshResponse is the POST /api/refresh-models payload.
type RefreshResponse struct {
	SelectedProvider string                    `json:"selected_provider"`
	Providers        []config.Provider         `json:"providers"`
	RefreshResults   []discovery.RefreshResult `json:"refresh_results"`
}

// State handles GET /api/state.
func (h *ControlHandler) State(w http.ResponseWriter, r *http.Request) {
	selected := h.selectedName()
	h.writeJSON(w, r, http.StatusOK, StateResponse{
		SelectedProvider: selected,
		Providers:        h.providers(),
		SelectedOverride: h.src.OverrideFor(selected),
		HeaderOverrides:  nonNil(h.src.HeaderOverrideNames()),
		RequestOverrides: nonNil(h.src.RequestOverrideNames()),
		GlobalEnvModels:  nonNilMap(h.src.EnvModels()),
		ErrorCounts:      nonNilMap(h.src.ErrorCounts()),
	})
}

// Select handles POST /api/select {"provider": name}.
func (h *ControlHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if !h.src.Select(req.Provider) {
		h.writeError(w, r, http.StatusBadRequest, types.NewError(types.CodeUnknownProvider))
		return
	}
	h.logger.InfoContext(r.Context(), "provider selected", "provider", req.Provider)
	h.writeJSON(w, r, http.StatusOK, map[string]string{"selected_provider": h.selectedName()})
}

// RefreshModels handles POST /api/refresh-models {"provider": name?}.
func (h *ControlHandler) RefreshModels(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	results := h.discovery.RefreshAll(r.Context(), req.Provider)
	if results == nil {
		results = []discovery.RefreshResult{}
	}
	h.writeJSON(w, r, http.StatusOK, RefreshResponse{
		SelectedProvider: h.selectedName(),
		Providers:        h.providers(),
		RefreshResults:   results,
	})
}

// Reload handles POST /api/reload. A failed reload keeps the current
// state and reports 500 reload_failed.
func (h *ControlHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.src.Reload(); err != nil {
		h.logger.ErrorContext(r.Context(), "configuration reload failed", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, types.NewErrorDetail(types.CodeReloadFailed, err.Error()))
		return
	}
	resp := ProvidersResponse{SelectedProvider: h.selectedName(), Providers: h.providers()}
	h.logger.InfoContext(r.Context(), "configuration reloaded", "providers", len(resp.Providers))
	h.writeJSON(w, r, http.StatusOK, resp)
}

// Reset handles POST /api/reset.
func (h *ControlHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.src.Reset()
	resp := ProvidersResponse{SelectedProvider: "", Providers: h.providers()}
	h.logger.InfoContext(r.Context(), "configuration reset", "providers", len(resp.Providers))
	h.writeJSON(w, r, http.StatusOK, resp)
}

// ProviderAuth handles POST /api/provider-auth {"provider": name, "override": {...}}.
func (h *ControlHandler) ProviderAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string          `json:"provider"`
		Override json.RawMessage `json:"override"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	var override config.Override
	if len(req.Override) > 0 {
		if !gjson.ParseBytes(req.Override).IsObject() {
			h.writeError(w, r, http.StatusBadRequest, types.NewError(types.CodeInvalidPayload))
			return
		}
		if err := json.Unmarshal(req.Override, &override); err != nil {
			h.writeError(w, r, http.StatusBadRequest, types.NewErrorDetail(types.CodeInvalidPayload, err.Error()))
			return
		}
	}
	if req.Provider == "" {
		h.writeError(w, r, http.StatusBadRequest, types.NewError(types.CodeInvalidPayload))
		return
	}

	h.src.SetOverride(req.Provider, override)
	h.writeJSON(w, r, http.StatusOK, map[string]bool{"ok": true})
}

// TestProvider handles POST /api/test-provider {"provider", "model"?, "prompt"?}.
// It probes the named provider directly and records test_result.
func (h *ControlHandler) TestProvider(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
		Model    string `json:"model"`
		Prompt   string `json:"prompt"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	provider, ok := h.src.Provider(req.Provider)
	if !ok {
		h.writeError(w, r, http.StatusBadRequest, types.NewError(types.CodeProviderNotFound))
		return
	}
	if req.Model == "" {
		req.Model = config.DefaultTestModel
	}
	if req.Prompt == "" {
		req.Prompt = config.DefaultTestPrompt
	}

	result := h.prober.Probe(r.Context(), provider, req.Model, req.Prompt)
	h.src.SetTestResult(provider.Name, result.Success)
	h.logger.InfoContext(r.Context(), "provider tested",
		"provider", provider.Name,
		"model", req.Model,
		"success", result.Success,
		"status", result.Status,
	)
	h.writeJSON(w, r, http.StatusOK, result)
}

// RefreshAndTest handles POST /api/refresh-and-test {"prompt"?}. The work
// runs in the background and the response returns at once.
func (h *ControlHandler) RefreshAndTest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	h.discovery.RefreshAndTest(r.Context(), req.Prompt)
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status":  "started",
		"message": "Refresh and test started in background",
	})
}

// decode reads a JSON object body into v. An empty body leaves v zero.
// Failures are answered with 400 and false is returned.
func (h *ControlHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := decodeObject(r, v)
	switch {
	case err == nil:
		return true
	case errors.Is(err, proxy.ErrBodyTooLarge):
		h.writeError(w, r, http.StatusRequestEntityTooLarge, types.NewError(types.CodeRequestTooLarge))
	default:
		h.writeError(w, r, http.StatusBadRequest, types.NewError(types.CodeInvalidJSON))
	}
	return false
}

func decodeObject(r *http.Request, v any) error {
	body, err := proxy.ReadBody(r, maxControlBody)
	if err != nil {
		return err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return errInvalidJSON
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errInvalidJSON
	}
	return nil
}

func (h *ControlHandler) selectedName() string {
	if p, ok := h.src.Selected(); ok {
		return p.Name
	}
	return ""
}

func (h *ControlHandler) providers() []config.Provider {
	return nonNil(h.src.Providers())
}

func (h *ControlHandler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := proxy.WriteJSONResponse(w, status, v); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write response", "error", err)
	}
}

func (h *ControlHandler) writeError(w http.ResponseWriter, r *http.Request, status int, body types.ErrorBody) {
	h.writeJSON(w, r, status, body)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nonNilMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return map[K]V{}
	}
	return m
}
