package batch

import (
	"net/http"

	"Shade/internal/calc/quote"
	"Shade/internal/respond"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Handler struct {
	Service *quote.Service
	Log     *zap.Logger
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/calculator/batch/deflection/{unit}", h.Deflection).Methods("POST")
}

func (h *Handler) Deflection(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := respond.Decode(r, &input); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	res, err := Run(r.Context(), h.Service, input.Items, mux.Vars(r)["unit"])
	if err != nil {
		h.Log.Warn("batch rejected", zap.Error(err))
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	respond.JSON(w, http.StatusOK, res)
}
