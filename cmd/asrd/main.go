// Command asrd is the daemon exposing the Qwen3-ASR engine (C1-C7) and the
// Chinese post-processing pipeline (C8-C17) over HTTP and a streaming
// WebSocket endpoint.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	corrctx "github.com/mandarin-voice/qwen3asr/internal/correct/context"
	"github.com/mandarin-voice/qwen3asr/internal/correct/homophone"
	"github.com/mandarin-voice/qwen3asr/internal/correct/nasal"
	"github.com/mandarin-voice/qwen3asr/internal/correct/protect"
	"github.com/mandarin-voice/qwen3asr/internal/correct/rules"
	"github.com/mandarin-voice/qwen3asr/internal/correct/syllable"
	"github.com/mandarin-voice/qwen3asr/internal/engine"
	"github.com/mandarin-voice/qwen3asr/internal/env"
	"github.com/mandarin-voice/qwen3asr/internal/pinyin"
	"github.com/mandarin-voice/qwen3asr/internal/postproc"
	"github.com/mandarin-voice/qwen3asr/internal/router"
	"github.com/mandarin-voice/qwen3asr/internal/s2t"
	"github.com/mandarin-voice/qwen3asr/internal/session"
	"github.com/mandarin-voice/qwen3asr/internal/trace"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	port := env.Str("ASRD_PORT", "8090")
	modelDir := env.Str("ASRD_MODEL_DIR", "")
	modelSize := env.Str("ASRD_MODEL_SIZE", "0.6b")
	pinyinDir := env.Str("ASRD_PINYIN_DIR", "")
	protectWords := env.Str("ASRD_PROTECT_WORDS", "")
	postgresURL := env.Str("POSTGRES_URL", "")
	contextCapacity := env.Int("ASRD_CONTEXT_CAPACITY", corrctx.DefaultCapacity)
	contextTTL := env.Duration("ASRD_CONTEXT_TTL", corrctx.DefaultTTL)

	asrEngine := engine.New(nil)
	if modelDir != "" {
		slog.Info("preloading model", "dir", modelDir, "size", modelSize)
		if err := asrEngine.Load(modelDir, modelSize); err != nil {
			slog.Error("preload failed, starting unloaded", "error", err)
		}
	}

	sessCtrl := buildSessionController(asrEngine, pinyinDir, protectWords, postgresURL, contextCapacity, contextTTL)
	defer func() {
		if sessCtrl.Tracer != nil {
			sessCtrl.Tracer.Close()
		}
	}()

	mux := http.NewServeMux()
	registerRoutes(mux, deps{
		engine:  asrEngine,
		session: sessCtrl,
		ws:      newWSHandler(sessCtrl),
	})

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: mux}

	go awaitShutdown(srv, asrEngine)

	slog.Info("asrd starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("asrd stopped")
}

// buildSessionController wires the post-processing pipeline and the
// per-call orchestration controller around a (possibly still-unloaded)
// engine.
func buildSessionController(asrEngine *engine.ASREngine, pinyinDir, protectWords, postgresURL string, contextCapacity int, contextTTL time.Duration) *session.Controller {
	db, err := loadPinyinDB(pinyinDir)
	if err != nil {
		slog.Error("pinyin DB load failed, data-driven correction disabled", "error", err)
	}

	protection := protect.New(splitNonEmpty(protectWords, ","))

	var ruleCorrector *rules.Corrector
	var homophoneEngine *homophone.Engine
	var nasalEngine *nasal.Engine
	var syllableEngine *syllable.Engine
	if db != nil {
		ruleCorrector = rules.New(rules.DefaultRules, db, protection)
		homophoneEngine = homophone.New(db, protection)
		nasalEngine = nasal.New(db, protection)
		syllableEngine = syllable.New(db, protection)
	}

	converter, err := s2t.New()
	if err != nil {
		slog.Error("s2t converter load failed, simplified->traditional disabled", "error", err)
		converter = nil
	}

	var traceStore *trace.Store
	if postgresURL != "" {
		traceStore, err = trace.Open(postgresURL)
		if err != nil {
			slog.Error("trace store open failed", "error", err)
			traceStore = nil
		} else {
			slog.Info("tracing enabled")
		}
	}

	post := &postproc.Controller{
		S2T:       converter,
		Rules:     ruleCorrector,
		Homophone: homophoneEngine,
		Nasal:     nasalEngine,
		Syllable:  syllableEngine,
		Tunables:  router.DefaultTunables(),
	}

	return &session.Controller{
		Engine:   asrEngine,
		Post:     post,
		Retry:    router.RetryController{},
		Memory:   corrctx.New(contextCapacity, contextTTL),
		Tracer:   newTracer(traceStore),
		Tunables: router.DefaultTunables(),
		Flags:    postproc.DefaultStageFlags(),
	}
}

func loadPinyinDB(dir string) (*pinyin.DB, error) {
	if dir != "" {
		return pinyin.LoadFromDir(dir)
	}
	return pinyin.LoadEmbedded()
}

func newTracer(store *trace.Store) *trace.Tracer {
	if store == nil {
		return nil
	}
	return trace.NewTracer(store, "asrd")
}

func splitNonEmpty(s string, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// awaitShutdown blocks until SIGINT/SIGTERM, then unloads the model and
// shuts the HTTP server down gracefully.
func awaitShutdown(srv *http.Server, asrEngine *engine.ASREngine) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	asrEngine.Unload()
	srv.Shutdown(ctx)
}
