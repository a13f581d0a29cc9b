// Package router parses and serves the gateway's HTTP API.
package router

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

	"github.com/go-chi/chi/v5"

	"github.com/arjunmehra/digipin-gateway/internal/batch"
	"github.com/arjunmehra/digipin-gateway/internal/convert"
	"github.com/arjunmehra/digipin-gateway/internal/hotness"
	"github.com/arjunmehra/digipin-gateway/internal/model"
	"github.com/arjunmehra/digipin-gateway/internal/observability"
	"github.com/arjunmehra/digipin-gateway/pkg/digipin"
)

// BatchManager is the slice of the batch manager the HTTP layer needs.
type BatchManager interface {
	Submit(ctx context.Context, items []batch.Item) (model.BatchAccepted, error)
	Lookup(ctx context.Context, id string) (batch.Job, bool, error)
}

// Ranker serves the region statistics endpoint.
type Ranker interface {
	TopN(n int) []hotness.Entry
	Size() int
}

type Handlers struct {
	Log       *slog.Logger
	Conv      *convert.Converter
	Batch     BatchManager // nil disables the batch routes
	Hot       hotness.Interface
	Ranker    Ranker
	PrefixLen int
	MaxBody   int64
}

func (h *Handlers) Mount(r chi.Router) {
	if h.MaxBody <= 0 {
		h.MaxBody = 4 << 20
	}
	r.Get("/v1/encode", h.instrument("/v1/encode", h.handleEncode))
	r.Get("/v1/decode", h.instrument("/v1/decode", h.handleDecode))
	r.Get("/v1/bounds", h.instrument("/v1/bounds", h.handleBounds))
	r.Get("/v1/cell", h.instrument("/v1/cell", h.handleCell))
	r.Get("/v1/convert", h.instrument("/v1/convert", h.handleConvert))
	r.Get("/v1/distance", h.instrument("/v1/distance", h.handleDistance))
	r.Get("/v1/stats/regions", h.instrument("/v1/stats/regions", h.handleRegionStats))
	if h.Batch != nil {
		r.Post("/v1/batch/encode", h.instrument("/v1/batch/encode", h.handleBatchSubmit))
		r.Get("/v1/batch/jobs/{id}", h.instrument("/v1/batch/jobs/{id}", h.handleBatchLookup))
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (h *Handlers) instrument(route string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		fn(sw, r)
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}

func (h *Handlers) handleEncode(w http.ResponseWriter, r *http.Request) {
	lat, err := queryFloat(r, "lat")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	lon, err := queryFloat(r, "lon")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pin, err := digipin.Encode(lat, lon)
	observability.ObserveCodecOp("encode", err)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	center, _ := digipin.Decode(pin) // a pin we just produced always decodes

	h.trackRegion(pin)
	writeJSON(w, http.StatusOK, model.PinResponse{Pin: pin, Center: center})
}

func (h *Handlers) handleDecode(w http.ResponseWriter, r *http.Request) {
	pin, err := queryPin(r, "pin")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	norm, err := digipin.Normalize(pin)
	observability.ObserveCodecOp("decode", err)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	center, _ := digipin.Decode(norm) // canonical form always decodes

	h.trackRegion(norm)
	writeJSON(w, http.StatusOK, model.PinResponse{Pin: norm, Center: center})
}

func (h *Handlers) handleBounds(w http.ResponseWriter, r *http.Request) {
	pin, err := queryPin(r, "pin")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	norm, err := digipin.Normalize(pin)
	if err != nil {
		observability.ObserveCodecOp("bounds", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b, err := digipin.DecodeBounds(norm)
	observability.ObserveCodecOp("bounds", err)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.trackRegion(norm)
	writeJSON(w, http.StatusOK, model.BoundsResponse{Pin: norm, Bounds: b})
}

func (h *Handlers) handleCell(w http.ResponseWriter, r *http.Request) {
	pin, err := queryPin(r, "pin")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	raw, err := h.Conv.CellFeature(pin)
	observability.ObserveCodecOp("cell", err)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if norm, err := digipin.Normalize(pin); err == nil {
		h.trackRegion(norm)
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (h *Handlers) handleConvert(w http.ResponseWriter, r *http.Request) {
	pin, err := queryPin(r, "pin")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := -1
	if raw := strings.TrimSpace(r.URL.Query().Get("h3_res")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid h3_res: not an integer", http.StatusBadRequest)
			return
		}
		res = v
	}

	out, err := h.Conv.Convert(pin, res)
	observability.ObserveCodecOp("convert", err)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.trackRegion(out.Pin)
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) handleDistance(w http.ResponseWriter, r *http.Request) {
	from, err := queryPin(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := queryPin(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := h.Conv.Distance(from, to)
	observability.ObserveCodecOp("distance", err)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.trackRegion(out.From)
	h.trackRegion(out.To)
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) handleRegionStats(w http.ResponseWriter, r *http.Request) {
	n := 10
	if raw := strings.TrimSpace(r.URL.Query().Get("n")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			http.Error(w, "invalid n: must be a positive integer", http.StatusBadRequest)
			return
		}
		n = v
	}
	if n > 100 {
		n = 100
	}

	entries := h.Ranker.TopN(n)
	out := model.RegionStats{
		Regions: make([]model.RegionScore, 0, len(entries)),
		Tracked: h.Ranker.Size(),
	}
	for _, e := range entries {
		out.Regions = append(out.Regions, model.RegionScore{Region: e.Region, Score: e.Score})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) handleBatchSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBody)

	var items []batch.Item
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	acc, err := h.Batch.Submit(r.Context(), items)
	if err != nil {
		var tooLarge *batch.TooLargeError
		switch {
		case errors.Is(err, batch.ErrEmpty):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.As(err, &tooLarge):
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		case errors.Is(err, batch.ErrBusy):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			h.Log.Error("batch submit", "err", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusAccepted, acc)
}

func (h *Handlers) handleBatchLookup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, ok, err := h.Batch.Lookup(r.Context(), id)
	if err != nil {
		h.Log.Error("batch lookup", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handlers) trackRegion(pin string) {
	if h.Hot == nil {
		return
	}
	h.Hot.Inc(hotness.RegionOf(pin, h.PrefixLen))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func queryFloat(r *http.Request, name string) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, fmt.Errorf("missing required parameter: %s", name)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: not a number", name)
	}
	return f, nil
}

func queryPin(r *http.Request, name string) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return "", fmt.Errorf("missing required parameter: %s", name)
	}
	return raw, nil
}
