package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cory-johannsen/azdice/internal/dice"
)

// MaxTimes caps the rolls a single /v1/roll request may make.
const MaxTimes = 1000

const healthTimeout = 2 * time.Second

var errNoRecorder = errors.New("roll history is not configured")

type handler struct {
	deps Deps
}

// Healthz answers 200 while the optional Ping dependency answers, 503 otherwise.
func (h *handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.deps.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.deps.Ping(ctx); err != nil {
			h.deps.Logger.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Parse answers the canonical form of expr without rolling it.
func (h *handler) Parse(w http.ResponseWriter, r *http.Request) {
	bag, ok := h.bag(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"expression": bag.String()})
}

func (h *handler) Range(w http.ResponseWriter, r *http.Request) {
	bag, ok := h.bag(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toRangeResponse(bag))
}

// Roll evaluates expr "times" times (default 1) and optionally records the
// rolls when "record=true".
func (h *handler) Roll(w http.ResponseWriter, r *http.Request) {
	times, err := intParam(r, "times", 1, 1, MaxTimes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	record := r.URL.Query().Get("record") == "true"
	if record && h.deps.Recorder == nil {
		writeError(w, http.StatusNotImplemented, errNoRecorder)
		return
	}
	bag, ok := h.bag(w, r)
	if !ok {
		return
	}

	resp := rollsResponse{Expression: bag.String(), Rolls: make([]rollResponse, 0, times)}
	summaries := make([]dice.Summary, 0, times)
	for i := 0; i < times; i++ {
		res := h.deps.Roller.Roll(bag)
		resp.Rolls = append(resp.Rolls, toRollResponse(res))
		summaries = append(summaries, res.Summary())
	}

	if record {
		n, err := h.deps.Recorder.RecordMany(r.Context(), bag.String(), h.deps.SourceName, summaries)
		if err != nil {
			h.deps.Logger.Error("recording rolls", zap.String("expression", bag.String()), zap.Error(err))
			writeError(w, http.StatusInternalServerError, errors.New("recording rolls failed"))
			return
		}
		resp.Recorded = n
	}
	writeJSON(w, http.StatusOK, resp)
}

// Distribution samples expr "rolls" times, bounded by the configured maximum.
func (h *handler) Distribution(w http.ResponseWriter, r *http.Request) {
	rolls, err := intParam(r, "rolls", min(10_000, h.deps.Config.MaxRolls), 1, h.deps.Config.MaxRolls)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	bag, ok := h.bag(w, r)
	if !ok {
		return
	}

	hist, err := h.deps.Roller.Distribution(r.Context(), bag, rolls, 0, h.deps.WorkerSource)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	rng := bag.Range()
	writeJSON(w, http.StatusOK, distributionResponse{
		Expression: bag.String(),
		Rolls:      rolls,
		Min:        rng.Min,
		Max:        rng.Max,
		Mean:       hist.Mean(),
		Bins:       hist,
	})
}

func (h *handler) Presets(w http.ResponseWriter, _ *http.Request) {
	out := []presetResponse{}
	if h.deps.Presets == nil {
		writeJSON(w, http.StatusOK, out)
		return
	}
	for _, name := range h.deps.Presets.Names() {
		if p, ok := h.preset(name); ok {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) Preset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, ok := h.preset(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no preset named %q", name))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) preset(name string) (presetResponse, bool) {
	if h.deps.Presets == nil {
		return presetResponse{}, false
	}
	p, ok := h.deps.Presets.Get(name)
	if !ok {
		return presetResponse{}, false
	}
	bag, _ := h.deps.Presets.Bag(name)
	rng := bag.Range()
	return presetResponse{
		Name:        p.Name,
		Expression:  bag.String(),
		Description: p.Description,
		Min:         rng.Min,
		Max:         rng.Max,
	}, true
}

// bag resolves the "expr" query parameter, writing a 400 on failure or when
// the bag exceeds the configured dice and bin caps.
func (h *handler) bag(w http.ResponseWriter, r *http.Request) (*dice.Bag, bool) {
	expr := r.URL.Query().Get("expr")
	if expr == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing expr parameter"))
		return nil, false
	}
	bag, err := h.deps.Presets.Resolve(expr)
	if err == nil {
		err = h.limits().Check(bag)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return bag, true
}

func (h *handler) limits() dice.Limits {
	return dice.Limits{MaxDice: h.deps.Config.MaxDice, MaxWidth: h.deps.Config.MaxBins}
}

func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%s must be an integer in [%d, %d], got %q", name, lo, hi, raw)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var pe *dice.ParseError
	if errors.As(err, &pe) {
		resp.Code = pe.Code.Error()
	}
	writeJSON(w, status, resp)
}
