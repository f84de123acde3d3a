package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eugenenazirov/specd/internal/android"
	"github.com/eugenenazirov/specd/internal/export"
	"github.com/eugenenazirov/specd/internal/metrics"
	"github.com/eugenenazirov/specd/internal/specfile"
	"github.com/eugenenazirov/specd/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// maxSpecBytes bounds request bodies carrying spec text.
const maxSpecBytes = 1 << 20

// Handler wires storage and the spec loader into HTTP handlers.
type Handler struct {
	storage storage.Storage
	metrics *metrics.Metrics

	// persistPath, when set, receives every spec accepted through PUT.
	persistPath string

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

// WithPersistPath makes PUT /api/spec write the accepted spec to path.
func WithPersistPath(path string) HandlerOption {
	return func(h *Handler) {
		h.persistPath = path
	}
}

// WithMetrics records parse attempts on m.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		storage: store,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
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
	if snap, err := h.storage.Get(); err == nil {
		resp.Revision = snap.Revision
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSpec(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	_ = r
	writeJSON(w, http.StatusOK, newSpecResponse(snap, ""))
}

func (h *Handler) handlePutSpec(w http.ResponseWriter, r *http.Request) {
	spec, ok := h.parseBody(w, r, metrics.SourceAPI)
	if !ok {
		return
	}

	if h.persistPath != "" {
		if err := specfile.WriteFile(h.persistPath, spec.Settings()); err != nil {
			if errors.Is(err, specfile.ErrUnencodable) {
				writeError(w, http.StatusUnprocessableEntity, "Invalid spec", err.Error())
				return
			}
			writeInternalError(w, err)
			return
		}
	}

	if err := h.storage.Set(spec, metrics.SourceAPI); err != nil {
		writeInternalError(w, err)
		return
	}
	h.metrics.SetSettingsLoaded(spec.Len())

	snap, err := h.storage.Get()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSpecResponse(snap, "Spec updated successfully"))
}

func (h *Handler) handleParse(w http.ResponseWriter, r *http.Request) {
	spec, ok := h.parseBody(w, r, metrics.SourceParse)
	if !ok {
		return
	}

	seen := make(map[string]int, spec.Len())
	for _, entry := range spec.Entries() {
		seen[entry.Key]++
	}
	duplicates := []string{}
	for _, key := range spec.Keys() {
		if seen[key] > 1 {
			duplicates = append(duplicates, key)
		}
	}

	writeJSON(w, http.StatusOK, parseResponse{
		Settings:   toSettingDTOs(spec.Settings()),
		Duplicates: duplicates,
	})
}

func (h *Handler) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}

	key := r.PathValue("key")
	setting, found := snap.Spec.Lookup(key)
	if !found {
		writeError(w, http.StatusNotFound, "Unknown key", fmt.Sprintf("no setting named %q", key))
		return
	}

	resp := settingResponse{
		Key:   setting.Key,
		Value: setting.Value,
		Line:  setting.Line,
	}
	switch as := r.URL.Query().Get("as"); as {
	case "", "raw":
	case "list":
		resp.List = specfile.SplitList(setting.Value)
	default:
		writeError(w, http.StatusBadRequest, "Invalid request", fmt.Sprintf("unsupported interpretation %q", as))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetAndroid(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	_ = r

	pkg, err := android.Decode(snap.Spec)
	if err != nil {
		if errors.Is(err, android.ErrInvalidValue) {
			writeError(w, http.StatusUnprocessableEntity, "Invalid packaging value", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	var buf bytes.Buffer
	if err := export.Render(&buf, format, snap.Spec); err != nil {
		switch {
		case errors.Is(err, export.ErrUnknownFormat):
			writeError(w, http.StatusBadRequest, "Invalid request", err.Error(), fmt.Sprintf("Use one of %v", export.Formats()))
		case errors.Is(err, specfile.ErrUnencodable):
			writeError(w, http.StatusUnprocessableEntity, "Cannot export", err.Error())
		default:
			writeInternalError(w, err)
		}
		return
	}

	w.Header().Set("Content-Type", export.ContentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// snapshot writes a 404 and reports false when nothing is loaded yet.
func (h *Handler) snapshot(w http.ResponseWriter) (storage.Snapshot, bool) {
	snap, err := h.storage.Get()
	if err != nil {
		if errors.Is(err, storage.ErrNoSpec) {
			writeError(w, http.StatusNotFound, "No spec loaded", err.Error())
			return storage.Snapshot{}, false
		}
		writeInternalError(w, err)
		return storage.Snapshot{}, false
	}
	return snap, true
}

// parseBody reads spec text from the request body. On failure the response
// has already been written.
func (h *Handler) parseBody(w http.ResponseWriter, r *http.Request, source string) (*specfile.Spec, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSpecBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Invalid request", fmt.Sprintf("spec exceeds %d bytes", maxSpecBytes))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to read request body")
		return nil, false
	}

	start := time.Now()
	spec, err := specfile.Parse(bytes.NewReader(data), "request")
	h.metrics.ObserveLoad(source, time.Since(start), err)
	if err != nil {
		var syntaxErr *specfile.SyntaxError
		if errors.As(err, &syntaxErr) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Error:   "Syntax error",
				Details: syntaxErr.Error(),
				Line:    syntaxErr.Line,
				Key:     syntaxErr.Key,
			})
			return nil, false
		}
		writeInternalError(w, err)
		return nil, false
	}
	return spec, true
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type settingDTO struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Line  int    `json:"line"`
}

func toSettingDTOs(settings []specfile.Setting) []settingDTO {
	out := make([]settingDTO, len(settings))
	for i, s := range settings {
		out[i] = settingDTO{Key: s.Key, Value: s.Value, Line: s.Line}
	}
	return out
}

type specResponse struct {
	Source    string       `json:"source"`
	Revision  uint64       `json:"revision"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Settings  []settingDTO `json:"settings"`
	Message   string       `json:"message,omitempty"`
}

func newSpecResponse(snap storage.Snapshot, message string) specResponse {
	return specResponse{
		Source:    snap.Source,
		Revision:  snap.Revision,
		UpdatedAt: snap.UpdatedAt,
		Settings:  toSettingDTOs(snap.Spec.Settings()),
		Message:   message,
	}
}

type parseResponse struct {
	Settings   []settingDTO `json:"settings"`
	Duplicates []string     `json:"duplicates"`
}

type settingResponse struct {
	Key   string   `json:"key"`
	Value string   `json:"value"`
	Line  int      `json:"line"`
	List  []string `json:"list,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Revision  uint64    `json:"revision"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Line       int    `json:"line,omitempty"`
	Key        string `json:"key,omitempty"`
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
