package importer

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"Shade/internal/calc/batch"
	"Shade/internal/calc/quote"
	"Shade/internal/repo/repotest"
	"Shade/internal/units"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func newRouter(t *testing.T) *mux.Router {
	t.Helper()
	s := quote.NewService(repotest.Reference(t), units.NewConverter(units.DefaultTable()))
	r := mux.NewRouter()
	(&Handler{Service: s, Log: zap.NewNop()}).Register(r)
	return r
}

func sheet(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	name := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(name, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func upload(t *testing.T, r http.Handler, path string, content *bytes.Buffer) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "shades.xlsx")
	require.NoError(t, err)
	_, err = part.Write(content.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestImportDeflection(t *testing.T) {
	r := newRouter(t)
	content := sheet(t, [][]any{
		{"fabric", "tube", "rail", "width", "width unit", "drop", "drop unit"},
		{"Screen", "T32", "Flat", 1955, "mm", 3, "m"},
		{"Screen", "T32", "Flat", "wide", "mm", 3, "m"},
		{"Screen", "T99", "Flat", 1000, "mm", 1, "m"},
	})

	rec := upload(t, r, "/calculator/import/deflection/mm", content)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env struct {
		Data batch.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, 3, env.Data.Count)
	assert.Equal(t, 2, env.Data.Failed)

	byRow := map[int]batch.Item{}
	for _, it := range env.Data.Results {
		byRow[it.Row] = it
	}
	require.NotNil(t, byRow[2].Deflection)
	assert.Equal(t, units.New(2.98, units.MM), *byRow[2].Deflection)
	assert.Contains(t, byRow[3].Error, "width")
	assert.Contains(t, byRow[4].Error, "not found")
}

func TestImportRejectsBadUploads(t *testing.T) {
	r := newRouter(t)

	rec := upload(t, r, "/calculator/import/deflection/mm", bytes.NewBufferString("not a workbook"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload(t, r, "/calculator/import/deflection/mm", sheet(t, [][]any{{"header only"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/calculator/import/deflection/mm", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseRow(t *testing.T) {
	req, err := ParseRow([]string{" Screen ", "T32", "", "1200.5", "mm", "2", "m"})
	require.NoError(t, err)
	assert.Equal(t, "Screen", req.FabricName)
	assert.Empty(t, req.BottomRailName)
	assert.Equal(t, units.New(1200.5, units.MM), req.Width)

	_, err = ParseRow([]string{"Screen", "T32"})
	assert.Error(t, err)
	_, err = ParseRow([]string{"Screen", "T32", "", "1", "mm", "x", "m"})
	assert.ErrorContains(t, err, "drop")
}

func TestExportSystemLimits(t *testing.T) {
	r := newRouter(t)
	body := `{"system_name":"Cassette 65","fabric_name":"Screen","bottom_rail_name":"Flat"}`

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/calculator/export/system-limit/mm", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Limits")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Cassette 65 / Screen / Flat", rows[0][0])
	assert.Equal(t, []string{"T32", "1955", "3000", "2.98", "mm", "TRUE"}, rows[2])
}

func TestExportNotFound(t *testing.T) {
	r := newRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/calculator/export/system-limit/mm",
		strings.NewReader(`{"system_name":"Nope","fabric_name":"Screen"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
