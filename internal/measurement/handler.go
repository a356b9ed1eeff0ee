// Package measurement administers measurement units and conversion edges.
// Every write rebuilds the conversion table and swaps it into the converter.
package measurement

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"Shade/internal/metrics"
	"Shade/internal/repo"
	"Shade/internal/respond"
	"Shade/internal/units"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Handler struct {
	Repo repo.Conversions
	Conv *units.Converter
	Log  *zap.Logger
}

type unitRequest struct {
	Unit string `json:"unit"`
}

func (h *Handler) Register(r *mux.Router, guard func(http.Handler) http.Handler) {
	r.HandleFunc("/measurements/units", h.Units).Methods("GET")
	r.HandleFunc("/measurements/conversions", h.Conversions).Methods("GET")
	r.HandleFunc("/measurements/convert", h.Convert).Methods("GET")

	r.Handle("/measurements/units", guard(http.HandlerFunc(h.CreateUnit))).Methods("POST")
	r.Handle("/measurements/units/{unit}", guard(http.HandlerFunc(h.DeleteUnit))).Methods("DELETE")
	r.Handle("/measurements/conversions", guard(http.HandlerFunc(h.CreateConversion))).Methods("POST")
	r.Handle("/measurements/conversions/{id}", guard(http.HandlerFunc(h.DeleteConversion))).Methods("DELETE")
}

// Reload rebuilds the table from the repository and makes it current.
func (h *Handler) Reload(ctx context.Context, source string) (*units.Table, error) {
	t, err := repo.LoadTable(ctx, h.Repo)
	if err != nil {
		return nil, err
	}
	h.Conv.Swap(t)
	metrics.RecordTableSwap(source, t.Len())
	h.Log.Info("conversion table swapped", zap.String("source", source), zap.Int("edges", t.Len()))
	return t, nil
}

func (h *Handler) Units(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.Conv.Table().Units())
}

func (h *Handler) Conversions(w http.ResponseWriter, r *http.Request) {
	edges, err := h.Repo.Conversions(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if edges == nil {
		edges = []units.Edge{}
	}
	respond.JSON(w, http.StatusOK, edges)
}

// Convert answers GET /measurements/convert?value=1&from=in&to=mm.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	value, err := strconv.ParseFloat(q.Get("value"), 64)
	if err != nil || q.Get("from") == "" || q.Get("to") == "" {
		respond.Error(w, http.StatusBadRequest, "value, from and to are required")
		return
	}
	res, ok := h.Conv.Convert(units.New(value, q.Get("from")), q.Get("to"))
	if !ok {
		respond.Error(w, http.StatusUnprocessableEntity, "no conversion from "+q.Get("from")+" to "+q.Get("to"))
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

func (h *Handler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	var req unitRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	req.Unit = strings.TrimSpace(req.Unit)
	if req.Unit == "" {
		respond.Error(w, http.StatusBadRequest, "unit required")
		return
	}
	if err := h.Repo.CreateUnit(r.Context(), req.Unit); err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.Reload(r.Context(), "admin"); err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, req)
}

func (h *Handler) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.DeleteUnit(r.Context(), mux.Vars(r)["unit"]); err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.Reload(r.Context(), "admin"); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateConversion(w http.ResponseWriter, r *http.Request) {
	var e units.Edge
	if err := respond.Decode(r, &e); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	e.From, e.To = strings.TrimSpace(e.From), strings.TrimSpace(e.To)
	if e.From == "" || e.To == "" || e.From == e.To {
		respond.Error(w, http.StatusBadRequest, "from and to must be two different units")
		return
	}
	if !(e.Factor > 0) {
		respond.Error(w, http.StatusBadRequest, "factor must be positive")
		return
	}
	e.ID = ""

	created, err := h.Repo.CreateConversion(r.Context(), e)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.Reload(r.Context(), "admin"); err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, created)
}

func (h *Handler) DeleteConversion(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.DeleteConversion(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.Reload(r.Context(), "admin"); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repo.ErrConflict):
		respond.Error(w, http.StatusConflict, err.Error())
	default:
		h.Log.Error("measurement request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError)
	}
}
