package intake

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"refund-intake/intake/application"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Intake é a superfície da Facade usada pelas rotas.
type Intake interface {
	RateChecker
	TrackEvent(ctx context.Context, name string, data map[string]any)
	QueueSubmission(ctx context.Context, data map[string]any) (string, bool)
	CacheFormState(ctx context.Context, session string, state map[string]any) bool
	LoadFormState(ctx context.Context, session string) (map[string]any, bool)
	IsReady() bool
}

var _ Intake = (*application.Facade)(nil)

type RouterOptions struct {
	Intake Intake
	Log    *zap.Logger

	// RateLimit e Burst protegem apenas POST /submissions.
	RateLimit Options
	Burst     BurstOptions

	// Metrics, se não nil, é servido em GET /metrics.
	Metrics      http.Handler
	MaxBodyBytes int64
}

type handler struct {
	intake  Intake
	log     *zap.Logger
	maxBody int64
}

func NewRouter(opts RouterOptions) *mux.Router {
	h := &handler{intake: opts.Intake, log: opts.Log, maxBody: opts.MaxBodyBytes}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.maxBody <= 0 {
		h.maxBody = 1 << 20
	}
	if opts.RateLimit.Checker == nil {
		opts.RateLimit.Checker = opts.Intake
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics).Methods(http.MethodGet)
	}

	r.HandleFunc("/events", h.trackEvent).Methods(http.MethodPost)
	r.HandleFunc("/drafts/{session}", h.saveDraft).Methods(http.MethodPut)
	r.HandleFunc("/drafts/{session}", h.loadDraft).Methods(http.MethodGet)

	submit := http.Handler(http.HandlerFunc(h.submit))
	submit = Middleware(opts.RateLimit)(submit)
	submit = BurstMiddleware(opts.Burst)(submit)
	r.Handle("/submissions", submit).Methods(http.MethodPost)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	// sempre 200: sem store o intake degrada, mas continua aceitando envios.
	writeJSON(w, http.StatusOK, map[string]any{"ready": h.intake.IsReady()})
}

type submissionResponse struct {
	QueueID string `json:"queueId,omitempty"`
	Queued  bool   `json:"queued"`
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	var form map[string]any
	if err := h.decode(w, r, &form); err != nil || form == nil {
		h.intake.TrackEvent(r.Context(), "form_invalid", nil)
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}

	id, queued := h.intake.QueueSubmission(r.Context(), form)
	h.intake.TrackEvent(r.Context(), "form_submitted", map[string]any{"queued": queued})
	if !queued {
		h.log.Warn("submission accepted without queue")
	}
	writeJSON(w, http.StatusAccepted, submissionResponse{QueueID: id, Queued: queued})
}

type eventRequest struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

var errMissingEvent = errors.New("event name is required")

func (h *handler) trackEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	err := h.decode(w, r, &req)
	if err == nil && req.Event == "" {
		err = errMissingEvent
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.intake.TrackEvent(r.Context(), req.Event, req.Data)
	w.WriteHeader(http.StatusAccepted)
}

func (h *handler) saveDraft(w http.ResponseWriter, r *http.Request) {
	session := mux.Vars(r)["session"]

	var state map[string]any
	if err := h.decode(w, r, &state); err != nil || state == nil {
		http.Error(w, "invalid draft payload", http.StatusBadRequest)
		return
	}

	cached := h.intake.CacheFormState(r.Context(), session, state)
	writeJSON(w, http.StatusAccepted, map[string]any{"cached": cached})
}

func (h *handler) loadDraft(w http.ResponseWriter, r *http.Request) {
	session := mux.Vars(r)["session"]

	state, ok := h.intake.LoadFormState(r.Context(), session)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
