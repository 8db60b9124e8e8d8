package trainer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRunnerClient_Run(t *testing.T) {
	var got TrainSpec
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/finetune" {
			t.Errorf("path = %s, want /v1/finetune", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(Artifacts{
			ModelName: "t5-small-finetuned",
			ModelPath: "/runs/abc/result",
			FinalLoss: 1.25,
			Metrics:   map[string]float64{"exact_match": 0.8},
		})
	}))
	defer srv.Close()

	spec := TrainSpec{
		BaseModel:  "t5-small",
		HasEncoder: true,
		Config:     DefaultConfig(true),
		Train: &Batch{
			InputIDs:      [][]int{{1, 2, 3}},
			AttentionMask: [][]int{{1, 1, 1}},
			Labels:        [][]int{{4, 5, ignoreIndex}},
		},
	}
	artifacts, err := NewRunnerClient(srv.URL + "/").Run(context.Background(), spec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got.BaseModel != "t5-small" || !got.HasEncoder {
		t.Errorf("runner received %+v", got)
	}
	if got.Train == nil || got.Train.Len() != 1 {
		t.Errorf("runner received train batch %+v, want 1 row", got.Train)
	}
	if got.Config.BatchSize != 100 {
		t.Errorf("runner received batch size %d, want 100", got.Config.BatchSize)
	}
	if artifacts.ModelName != "t5-small-finetuned" {
		t.Errorf("model name = %q", artifacts.ModelName)
	}
	if artifacts.FinalLoss != 1.25 {
		t.Errorf("final loss = %v", artifacts.FinalLoss)
	}
	if artifacts.Metrics["exact_match"] != 0.8 {
		t.Errorf("metrics = %v", artifacts.Metrics)
	}
}

func TestRunnerClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cuda out of memory", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewRunnerClient(srv.URL).Run(context.Background(), TrainSpec{BaseModel: "m"})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "cuda out of memory") {
		t.Errorf("error %q does not carry the runner's message", err)
	}
}

func TestRunnerClient_EmptyBaseURL(t *testing.T) {
	if _, err := NewRunnerClient("").Run(context.Background(), TrainSpec{}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
}

func TestRunnerClient_ContextCancelled(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	_, err := NewRunnerClient(srv.URL).Run(ctx, TrainSpec{BaseModel: "m"})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
}
