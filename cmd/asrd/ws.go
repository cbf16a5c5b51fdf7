package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mandarin-voice/qwen3asr/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsHandler streams raw little-endian float32 PCM over binary frames and
// transcribes on an explicit "process" action frame, matching the
// call-oriented request/response shape of a single session.Request per
// connection segment.
type wsHandler struct {
	session *session.Controller
}

func newWSHandler(s *session.Controller) *wsHandler {
	return &wsHandler{session: s}
}

// wsMeta is the optional first text frame a client may send to set
// per-connection defaults before any audio arrives.
type wsMeta struct {
	Language    string `json:"language"`
	Prompt      string `json:"prompt"`
	AppName     string `json:"app_name"`
	WindowTitle string `json:"window_title"`
}

type wsAction struct {
	Action string `json:"action"`
}

func (h *wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	h.runSession(r.Context(), conn)
}

func (h *wsHandler) runSession(ctx context.Context, conn *websocket.Conn) {
	var meta wsMeta
	var samples []float32

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			slog.Info("ws connection closed", "error", err)
			return
		}

		if msgType == websocket.TextMessage {
			var act wsAction
			if json.Unmarshal(data, &act) == nil && act.Action == "process" {
				h.processAndRespond(ctx, conn, meta, samples)
				samples = nil
				continue
			}
			// Any other text frame is treated as (re)setting the session
			// metadata for subsequent audio.
			_ = json.Unmarshal(data, &meta)
			continue
		}

		if msgType == websocket.BinaryMessage {
			samples = append(samples, decodeFloat32LE(data)...)
		}
	}
}

func (h *wsHandler) processAndRespond(ctx context.Context, conn *websocket.Conn, meta wsMeta, samples []float32) {
	res, err := h.session.Handle(ctx, session.Request{
		Samples:     samples,
		Language:    meta.Language,
		Prompt:      meta.Prompt,
		AppName:     meta.AppName,
		WindowTitle: meta.WindowTitle,
	})
	if err != nil {
		slog.Error("ws transcribe failed", "error", err)
		writeWSJSON(conn, map[string]string{"type": "error", "error": err.Error()})
		return
	}
	writeWSJSON(conn, map[string]interface{}{
		"type":              "result",
		"text":              res.Text,
		"detected_language": res.DetectedLanguage,
		"avg_log_prob":      res.AvgLogProb,
		"needs_llm":         res.NeedsLLM,
		"command":           res.Command,
		"retried":           res.Retried,
	})
}

func writeWSJSON(conn *websocket.Conn, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		slog.Error("ws write failed", "error", err)
	}
}

func decodeFloat32LE(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		out[i] = math.Float32frombits(bits)
	}
	return out
}
