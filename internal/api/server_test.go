package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelsmith/tailor-cli/internal/catalog"
	"github.com/modelsmith/tailor-cli/internal/retrieval"
	"github.com/modelsmith/tailor-cli/internal/retrieval/index"
)

// stubProvider maps exact texts to fixed vectors.
type stubProvider struct {
	vectors map[string][]float32
	err     error
}

func (s *stubProvider) ModelID() string { return "stub:test" }

func (s *stubProvider) Dim() int {
	for _, v := range s.vectors {
		return len(v)
	}
	return 0
}

func (s *stubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (s *stubProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := s.vectors[t]
		if !ok {
			return nil, fmt.Errorf("stub has no vector for %q", t)
		}
		out[i] = append([]float32(nil), v...)
	}
	return out, nil
}

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{Records: []catalog.Record{
		{ID: "alpha", Name: "alpha", Description: "summarizes articles", Family: "t5", Tags: []string{"summarization"}},
		{ID: "beta", Name: "beta", Description: "answers questions", Family: "t5"},
		{ID: "gamma", Name: "gamma", Description: "translates documents", Family: "marian"},
	}}
}

func testProvider() *stubProvider {
	v := map[string][]float32{}
	v[index.CanonicalText("alpha", "summarizes articles")] = []float32{1, 0, 0}
	v[index.CanonicalText("beta", "answers questions")] = []float32{0, 0.1, 0.9}
	v[index.CanonicalText("gamma", "translates documents")] = []float32{0, 0, 1}
	v["translate my contracts"] = []float32{0, 0, 1}
	v["forecast the weather"] = []float32{0, 1, 0}
	return &stubProvider{vectors: v}
}

func newTestServer(t *testing.T, cat *catalog.Catalog, prov *stubProvider) *httptest.Server {
	t.Helper()
	retriever, err := retrieval.New(cat, prov, retrieval.Options{
		IndexDir: filepath.Join(t.TempDir(), "index"),
	})
	if err != nil {
		t.Fatalf("retrieval.New: %v", err)
	}
	srv := httptest.NewServer(NewServer(cat, retriever, "test").Handler())
	t.Cleanup(srv.Close)
	return srv
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func postRetrieve(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/v1/retrieve", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /v1/retrieve: %v", err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, testCatalog(), testProvider())

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestListModels(t *testing.T) {
	srv := newTestServer(t, testCatalog(), testProvider())

	resp, err := http.Get(srv.URL + "/v1/models")
	if err != nil {
		t.Fatalf("GET /v1/models: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Models []modelEntry `json:"models"`
		Count  int          `json:"count"`
	}
	decodeBody(t, resp, &body)
	if body.Count != 3 || len(body.Models) != 3 {
		t.Fatalf("count = %d, models = %d, want 3", body.Count, len(body.Models))
	}
	if body.Models[0].ID != "alpha" || body.Models[0].Family != "t5" {
		t.Errorf("first model = %+v", body.Models[0])
	}
}

func TestListModels_Filter(t *testing.T) {
	srv := newTestServer(t, testCatalog(), testProvider())

	resp, err := http.Get(srv.URL + "/v1/models?q=translates")
	if err != nil {
		t.Fatalf("GET /v1/models?q=: %v", err)
	}
	var body struct {
		Models []modelEntry `json:"models"`
		Count  int          `json:"count"`
	}
	decodeBody(t, resp, &body)
	if body.Count != 1 || body.Models[0].ID != "gamma" {
		t.Errorf("filtered models = %+v", body.Models)
	}
}

func TestRetrieve_Match(t *testing.T) {
	srv := newTestServer(t, testCatalog(), testProvider())

	resp := postRetrieve(t, srv, `{"description": "translate my contracts"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body retrieveResponse
	decodeBody(t, resp, &body)
	if !body.Matched {
		t.Fatal("expected a match")
	}
	if body.Model != "gamma" {
		t.Errorf("model = %q, want gamma", body.Model)
	}
	if body.Score < 0.99 {
		t.Errorf("score = %v, want ~1", body.Score)
	}
	// Search depth defaults to 5 and clamps to the 3 available models.
	if len(body.Candidates) != 3 {
		t.Errorf("candidates = %d, want 3", len(body.Candidates))
	}
}

func TestRetrieve_KTrimsCandidates(t *testing.T) {
	srv := newTestServer(t, testCatalog(), testProvider())

	resp := postRetrieve(t, srv, `{"description": "translate my contracts", "k": 1}`)
	var body retrieveResponse
	decodeBody(t, resp, &body)
	if len(body.Candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(body.Candidates))
	}
	if body.Candidates[0].Name != "gamma" {
		t.Errorf("top candidate = %q, want gamma", body.Candidates[0].Name)
	}
}

func TestRetrieve_NoMatch(t *testing.T) {
	srv := newTestServer(t, testCatalog(), testProvider())

	// The query is near-orthogonal to every catalog entry, so the best
	// score stays under the similarity floor. That is a 200, not an error.
	resp := postRetrieve(t, srv, `{"description": "forecast the weather"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body retrieveResponse
	decodeBody(t, resp, &body)
	if body.Matched {
		t.Error("expected no match")
	}
	if body.Model != "" {
		t.Errorf("model = %q, want empty on no-match", body.Model)
	}
	if len(body.Candidates) == 0 {
		t.Error("no-match response should still rank candidates")
	}
}

func TestRetrieve_EmptyDescription(t *testing.T) {
	srv := newTestServer(t, testCatalog(), testProvider())

	resp := postRetrieve(t, srv, `{"description": "   "}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRetrieve_BadJSON(t *testing.T) {
	srv := newTestServer(t, testCatalog(), testProvider())

	resp := postRetrieve(t, srv, `{"description": `)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRetrieve_NegativeK(t *testing.T) {
	srv := newTestServer(t, testCatalog(), testProvider())

	resp := postRetrieve(t, srv, `{"description": "translate my contracts", "k": -2}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRetrieve_EncoderFailure(t *testing.T) {
	prov := testProvider()
	prov.err = errors.New("provider down")
	srv := newTestServer(t, testCatalog(), prov)

	resp := postRetrieve(t, srv, `{"description": "translate my contracts"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestRetrieve_EmptyCatalog(t *testing.T) {
	prov := testProvider()
	srv := newTestServer(t, &catalog.Catalog{}, prov)

	resp := postRetrieve(t, srv, `{"description": "translate my contracts"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, testCatalog(), testProvider())

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
