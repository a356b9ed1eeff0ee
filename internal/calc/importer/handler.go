// Package importer reads deflection batches from XLSX workbooks and exports
// system limits as XLSX.
package importer

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"Shade/internal/calc/batch"
	"Shade/internal/calc/quote"
	"Shade/internal/repo"
	"Shade/internal/respond"
	"Shade/internal/units"

	"github.com/gorilla/mux"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// maxUpload caps the multipart body.
const maxUpload = 10 << 20

type Handler struct {
	Service *quote.Service
	Log     *zap.Logger
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/calculator/import/deflection/{unit}", h.Deflection).Methods("POST")
	r.HandleFunc("/calculator/export/system-limit/{unit}", h.SystemLimits).Methods("POST")
}

// Deflection runs a batch from the first sheet of the uploaded "file". The
// first row is a header; columns are fabric, tube, bottom rail, width,
// width unit, drop, drop unit. Unparseable rows are reported, not skipped.
func (h *Handler) Deflection(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	file, _, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "File required")
		return
	}
	defer file.Close()

	rows, err := ReadRows(file)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		reqs  []quote.DeflectionRequest
		lines []int
		bad   []batch.Item
	)
	for i, row := range rows {
		line := i + 2
		req, err := ParseRow(row)
		if err != nil {
			bad = append(bad, batch.Item{Row: line, Error: err.Error()})
			continue
		}
		reqs = append(reqs, req)
		lines = append(lines, line)
	}

	res := batch.Result{}
	if len(reqs) > 0 {
		res, err = batch.Run(r.Context(), h.Service, reqs, mux.Vars(r)["unit"])
		if err != nil {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		for i := range res.Results {
			res.Results[i].Row = lines[i]
		}
	}
	res.Count += len(bad)
	res.Failed += len(bad)
	res.Results = append(res.Results, bad...)

	h.Log.Info("deflection sheet imported", zap.Int("rows", res.Count), zap.Int("failed", res.Failed))
	respond.JSON(w, http.StatusOK, res)
}

// ReadRows returns the data rows of the first sheet, header excluded.
func ReadRows(rd io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(rd)
	if err != nil {
		return nil, errors.New("invalid file")
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil || len(rows) < 2 {
		return nil, errors.New("empty sheet")
	}
	return rows[1:], nil
}

func ParseRow(row []string) (quote.DeflectionRequest, error) {
	if len(row) < 7 {
		return quote.DeflectionRequest{}, fmt.Errorf("expected 7 columns, got %d", len(row))
	}
	width, err := toFloat(row[3])
	if err != nil {
		return quote.DeflectionRequest{}, fmt.Errorf("width: %w", err)
	}
	drop, err := toFloat(row[5])
	if err != nil {
		return quote.DeflectionRequest{}, fmt.Errorf("drop: %w", err)
	}
	return quote.DeflectionRequest{
		FabricName:     strings.TrimSpace(row[0]),
		TubeName:       strings.TrimSpace(row[1]),
		BottomRailName: strings.TrimSpace(row[2]),
		Width:          units.New(width, strings.TrimSpace(row[4])),
		Drop:           units.New(drop, strings.TrimSpace(row[6])),
	}, nil
}

func toFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

var exportHeader = []any{"Tube", "Max width", "Max drop", "Deflection", "Unit", "Feasible"}

// SystemLimits answers a system-limit request with an XLSX sheet.
func (h *Handler) SystemLimits(w http.ResponseWriter, r *http.Request) {
	var req quote.SystemLimitRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	unit := mux.Vars(r)["unit"]
	res, err := h.Service.SystemLimits(r.Context(), req, unit)
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
		h.Log.Error("system limit export", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError)
		return
	}

	f, err := Workbook(res, unit)
	if err != nil {
		h.Log.Error("build workbook", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=\"system-limits.xlsx\"")
	if err := f.Write(w); err != nil {
		h.Log.Error("write workbook", zap.Error(err))
	}
}

// Workbook lays out one row per tube. Infeasible tubes keep empty cells.
func Workbook(res quote.SystemLimitResponse, unit string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := fillLimits(f, res, unit); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func fillLimits(f *excelize.File, res quote.SystemLimitResponse, unit string) error {
	const sheet = "Limits"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	title := fmt.Sprintf("%s / %s / %s", res.SystemName, res.Fabric.Name, res.BottomRail.Name)
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A2", &exportHeader); err != nil {
		return err
	}
	for i, l := range res.Limits {
		row := []any{l.TubeName, "", "", "", unit, l.OK}
		if l.OK {
			row[1], row[2], row[3] = l.MaxWidth.Value, l.MaxDrop.Value, l.Deflection.Value
		}
		cell, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
