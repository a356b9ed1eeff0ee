// Package report renders system limits as a printable PDF sheet.
package report

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"Shade/internal/calc/quote"
	"Shade/internal/repo"
	"Shade/internal/respond"
	"Shade/internal/units"

	"github.com/gorilla/mux"
	"github.com/phpdave11/gofpdf"
	"go.uber.org/zap"
)

type Input struct {
	Project string `json:"project"`
	Author  string `json:"author"`
	Title   string `json:"title"`
	Notes   string `json:"notes"`
	quote.SystemLimitRequest
}

type Handler struct {
	Service *quote.Service
	Log     *zap.Logger
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/calculator/report/system-limit/{unit}", h.Generate).Methods("POST")
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := respond.Decode(r, &input); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	res, err := h.Service.SystemLimits(r.Context(), input.SystemLimitRequest, mux.Vars(r)["unit"])
	switch {
	case errors.Is(err, repo.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "Fabric, tube, bottom rail or system not found")
		return
	case errors.Is(err, quote.ErrNoFeasible):
		respond.Error(w, http.StatusUnprocessableEntity, quote.ErrNoFeasible.Error())
		return
	case errors.Is(err, quote.ErrBadRequest):
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.Log.Error("report limits", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"system-limits.pdf\"")
	if err := Render(w, input, res, time.Now()); err != nil {
		h.Log.Error("report generation", zap.Error(err))
	}
}

func cell(m units.Measurement, ok bool) string {
	if !ok || m.Failed() {
		return "-"
	}
	return fmt.Sprintf("%.2f %s", m.Value, m.Unit)
}

// Render writes the PDF sheet for res.
func Render(w io.Writer, input Input, res quote.SystemLimitResponse, now time.Time) error {
	if input.Title == "" {
		input.Title = "Roller Shade System Limits"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(input.Title))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	for _, line := range []string{
		fmt.Sprintf("Project: %s", input.Project),
		fmt.Sprintf("Author: %s", input.Author),
		fmt.Sprintf("Date: %s", now.Format("2006-01-02")),
		fmt.Sprintf("System: %s", res.SystemName),
		fmt.Sprintf("Fabric: %s (%s, %s)", res.Fabric.Name, res.Fabric.Thickness, res.Fabric.Weight),
		fmt.Sprintf("Bottom rail: %s (%s)", res.BottomRail.Name, res.BottomRail.Weight),
	} {
		pdf.Cell(0, 6, tr(line))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	widths := []float64{50, 35, 35, 35, 25}
	pdf.SetFont("Helvetica", "B", 11)
	for i, head := range []string{"Tube", "Max width", "Max drop", "Deflection", "Feasible"} {
		pdf.CellFormat(widths[i], 7, head, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, l := range res.Limits {
		feasible := "no"
		if l.OK {
			feasible = "yes"
		}
		row := []string{tr(l.TubeName), cell(l.MaxWidth, l.OK), cell(l.MaxDrop, l.OK), cell(l.Deflection, l.OK), feasible}
		for i, v := range row {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 6, v, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if input.Notes != "" {
		pdf.Ln(6)
		pdf.MultiCell(0, 6, tr(input.Notes), "", "L", false)
	}
	return pdf.Output(w)
}
