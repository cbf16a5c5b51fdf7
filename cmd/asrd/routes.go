package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mandarin-voice/qwen3asr/internal/engine"
	"github.com/mandarin-voice/qwen3asr/internal/session"
)

type deps struct {
	engine  *engine.ASREngine
	session *session.Controller
	ws      http.Handler
}

// registerRoutes wires every HTTP endpoint to the shared mux.
func registerRoutes(mux *http.ServeMux, d deps) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /api/models/load", d.handleLoad)
	mux.HandleFunc("POST /api/models/unload", d.handleUnload)
	mux.HandleFunc("GET /api/models/status", d.handleStatus)
	mux.HandleFunc("POST /api/transcribe", d.handleTranscribe)
	mux.Handle("/ws/transcribe", d.ws)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type loadRequest struct {
	ModelDir  string `json:"model_dir"`
	ModelSize string `json:"model_size"`
}

func (d deps) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.ModelDir == "" {
		http.Error(w, "model_dir is required", http.StatusBadRequest)
		return
	}
	slog.Info("loading model", "dir", req.ModelDir, "size", req.ModelSize)
	if err := d.engine.Load(req.ModelDir, req.ModelSize); err != nil {
		slog.Error("load failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("model loaded", "dir", req.ModelDir)
	writeJSON(w, map[string]string{"status": "ok", "model_id": d.engine.ID()})
}

func (d deps) handleUnload(w http.ResponseWriter, r *http.Request) {
	d.engine.Unload()
	slog.Info("model unloaded")
	writeJSON(w, map[string]string{"status": "ok"})
}

func (d deps) handleStatus(w http.ResponseWriter, r *http.Request) {
	modelID := d.engine.ID()
	writeJSON(w, map[string]interface{}{
		"loaded":   modelID != "",
		"model_id": modelID,
	})
}

// transcribeRequest carries raw PCM samples at 16kHz. Any other sample
// rate must be resampled by the caller (spec §4.1's documented fallback,
// which this daemon does not perform on the caller's behalf).
type transcribeRequest struct {
	Samples     []float32 `json:"samples"`
	Language    string    `json:"language,omitempty"`
	Prompt      string    `json:"prompt,omitempty"`
	AppName     string    `json:"app_name,omitempty"`
	WindowTitle string    `json:"window_title,omitempty"`
}

type transcribeResponse struct {
	Text             string   `json:"text"`
	DetectedLanguage string   `json:"detected_language,omitempty"`
	AvgLogProb       float64  `json:"avg_log_prob"`
	NeedsLLM         bool     `json:"needs_llm"`
	Command          string   `json:"command,omitempty"`
	AppliedSteps     []string `json:"applied_steps,omitempty"`
	RepetitionSevere bool     `json:"repetition_severe,omitempty"`
	Retried          bool     `json:"retried,omitempty"`
}

func (d deps) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	res, err := d.session.Handle(r.Context(), session.Request{
		Samples:     req.Samples,
		Language:    req.Language,
		Prompt:      req.Prompt,
		AppName:     req.AppName,
		WindowTitle: req.WindowTitle,
	})
	if err != nil {
		slog.Error("transcribe failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, transcribeResponse{
		Text:             res.Text,
		DetectedLanguage: res.DetectedLanguage,
		AvgLogProb:       res.AvgLogProb,
		NeedsLLM:         res.NeedsLLM,
		Command:          res.Command,
		AppliedSteps:     res.AppliedSteps,
		RepetitionSevere: res.RepetitionSevere,
		Retried:          res.Retried,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
