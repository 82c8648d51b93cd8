package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akualab/chorale/model"
	"github.com/akualab/chorale/model/chord"
	"github.com/akualab/chorale/model/hmm"
	"github.com/akualab/chorale/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	cmaj = model.Chroma(chord.MustParse("C_M").PitchMask())
	fmaj = model.Chroma(chord.MustParse("F_M").PitchMask())
	g7   = model.Chroma(chord.MustParse("G_M7").PitchMask())
)

func newServer(t *testing.T, opts Options) (*Server, *store.Badger) {
	t.Helper()
	st, err := store.Open(store.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	labels, err := chord.ParseAll([]string{"C_M", "F_M", "G_M7", "C_M", "F_M", "G_M7", "C_M"})
	require.NoError(t, err)
	events := []model.Chroma{cmaj, fmaj, g7, cmaj, fmaj, g7, cmaj}
	p, err := model.NewPiece("p1", labels, events)
	require.NoError(t, err)
	c := new(model.Corpus)
	require.NoError(t, c.Add(p))

	m := hmm.NewModel(hmm.Name("bach"))
	require.NoError(t, m.Train(context.Background(), c))
	_, err = st.Put(context.Background(), m)
	require.NoError(t, err)
	return New(st, opts), st
}

func post(t *testing.T, s *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestDecode(t *testing.T) {
	s, _ := newServer(t, Options{DefaultModel: "bach"})

	rec := post(t, s, "/decode", DecodeRequest{
		ID:    "req-1",
		Masks: []uint16{uint16(cmaj), uint16(fmaj), uint16(g7), uint16(cmaj)},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res DecodeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "req-1", res.ID)
	assert.Equal(t, "bach", res.Model)
	assert.Equal(t, []string{"C_M", "F_M", "G_M7", "C_M"}, res.Names)
	assert.Equal(t, []int{3, 63, 86, 3}, res.Labels)
	require.Len(t, res.Segments, 4)
	assert.Equal(t, 2, res.Segments[2].Start)
	assert.Equal(t, "G_M7", res.Segments[2].Name)
	assert.Less(t, res.LogProb, 0.0)
}

func TestDecodeNamedModel(t *testing.T) {
	s, _ := newServer(t, Options{})

	rec := post(t, s, "/models/bach/decode", DecodeRequest{
		Events: [][]int{cmaj.Bits(), fmaj.Bits()},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res DecodeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, []string{"C_M", "F_M"}, res.Names)

	rec = post(t, s, "/models/handel/decode", DecodeRequest{Masks: []uint16{1}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = post(t, s, "/decode", DecodeRequest{Masks: []uint16{1}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecodeBadRequests(t *testing.T) {
	s, _ := newServer(t, Options{DefaultModel: "bach"})

	for name, body := range map[string]interface{}{
		"empty":     DecodeRequest{},
		"both":      DecodeRequest{Events: [][]int{cmaj.Bits()}, Masks: []uint16{1}},
		"mask":      DecodeRequest{Masks: []uint16{1 << 12}},
		"shape":     DecodeRequest{Events: [][]int{{1, 0, 1}}},
		"indicator": DecodeRequest{Events: [][]int{{2, -1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}}},
		"garbage":   "not a request",
	} {
		rec := post(t, s, "/decode", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
		var res ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&res), name)
		assert.NotEmpty(t, res.Error, name)
	}
}

func TestDecoderReload(t *testing.T) {
	s, st := newServer(t, Options{DefaultModel: "bach"})
	ctx := context.Background()

	d1, err := s.decoder(ctx, "bach")
	require.NoError(t, err)
	d2, err := s.decoder(ctx, "bach")
	require.NoError(t, err)
	assert.Same(t, d1, d2)

	m, err := st.Get(ctx, "bach")
	require.NoError(t, err)
	_, err = st.Put(ctx, m)
	require.NoError(t, err)
	d3, err := s.decoder(ctx, "bach")
	require.NoError(t, err)
	assert.NotSame(t, d1, d3)
}

func TestModelsAndLabels(t *testing.T) {
	s, _ := newServer(t, Options{})

	rec := get(s, "/models")
	require.Equal(t, http.StatusOK, rec.Code)
	var infos []store.Info
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "bach", infos[0].Name)
	assert.Equal(t, 7, infos[0].NumEvents)

	rec = get(s, "/labels")
	require.Equal(t, http.StatusOK, rec.Code)
	var labels []LabelInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&labels))
	require.Len(t, labels, chord.NumLabels)
	assert.Equal(t, LabelInfo{ID: 6, Name: "C_m7", Root: 0, Quality: "minor", Extension: "seventh", PitchClasses: []int{0, 3, 7, 10}}, labels[6])

	rec = get(s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = get(s, "/decode")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	s, _ := newServer(t, Options{CORSOrigins: []string{"http://example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, "http://example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://other.com")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
