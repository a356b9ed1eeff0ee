package recommend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"Shade/internal/calc/quote"
	"Shade/internal/calc/shade"
	"Shade/internal/repo"
	"Shade/internal/repo/repotest"
	"Shade/internal/units"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) *Service {
	t.Helper()
	m := repotest.Reference(t)
	repotest.AddTube(t, m, "T40", 40, 38)
	repotest.AddTube(t, m, repotest.BigTube, 70, 68)
	conv := units.NewConverter(units.DefaultTable())
	return &Service{Catalog: m, Calc: shade.New(conv)}
}

func proposal(width float64) Proposal {
	return Proposal{
		SystemName:     repotest.System,
		FabricName:     repotest.Fabric,
		BottomRailName: repotest.Rail,
		Width:          units.New(width, units.MM),
		Drop:           units.New(2, units.M),
	}
}

func names(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.TubeName
	}
	return out
}

func TestTubes_SlimmestFittingFirst(t *testing.T) {
	res, err := newService(t).Tubes(context.Background(), proposal(1500), units.MM)
	require.NoError(t, err)
	assert.Equal(t, "T32", res.Recommended)
	assert.Equal(t, []string{"T32", "T40", "T70"}, names(res.Candidates))

	first := res.Candidates[0]
	assert.True(t, first.Fits)
	assert.Equal(t, units.New(47.93, units.MM), first.RollUp)
	assert.Equal(t, units.New(0.85, units.MM), first.Deflection)

	last := res.Candidates[2]
	assert.False(t, last.Fits)
	assert.Equal(t, "roll does not fit the system", last.Reason)
}

func TestTubes_DeflectionRulesOutSlimTube(t *testing.T) {
	res, err := newService(t).Tubes(context.Background(), proposal(2200), units.MM)
	require.NoError(t, err)
	assert.Equal(t, "T40", res.Recommended)
	assert.Equal(t, []string{"T40", "T32", "T70"}, names(res.Candidates))
	assert.Equal(t, "deflection over limit", res.Candidates[1].Reason)
}

func TestTubes_NothingFits(t *testing.T) {
	res, err := newService(t).Tubes(context.Background(), proposal(6000), units.MM)
	require.NoError(t, err)
	assert.Empty(t, res.Recommended)
	for _, c := range res.Candidates {
		assert.False(t, c.Fits)
	}
}

func TestTubes_Errors(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	p := proposal(1000)
	p.SystemName = "missing"
	_, err := s.Tubes(ctx, p, units.MM)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	p = proposal(1000)
	p.Width = units.New(-5, units.MM)
	_, err = s.Tubes(ctx, p, units.MM)
	assert.ErrorIs(t, err, quote.ErrBadRequest)
}

func TestHandler(t *testing.T) {
	r := mux.NewRouter()
	(&Handler{Service: newService(t), Log: zap.NewNop()}).Register(r)

	body := `{"system_name":"Cassette 65","fabric_name":"Screen","bottom_rail_name":"Flat","width":{"value":1500,"unit":"mm"},"drop":{"value":2,"unit":"m"}}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/calculator/recommend/mm", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"recommended":"T32"`)
}
