package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TranscriptionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "asr_transcriptions_active",
		Help: "Currently in-flight transcribe calls",
	})

	TranscriptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asr_transcriptions_total",
		Help: "Total transcribe calls completed",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "asr_stage_duration_seconds",
		Help:    "Per-stage latency across the engine and post-processing pipeline",
		Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1.0, 2.0, 5.0},
	}, []string{"stage"})

	TranscribeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "asr_transcribe_duration_seconds",
		Help:    "End-to-end latency from transcribe() call to returned result",
		Buckets: []float64{0.1, 0.2, 0.5, 0.8, 1.0, 1.5, 2.0, 3.0, 5.0},
	})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asr_errors_total",
		Help: "Error counts by stage and error kind",
	}, []string{"stage", "error_type"})

	AudioChunksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asr_audio_chunks_processed_total",
		Help: "Long-audio chunks processed via silence-search splitting",
	})

	WarmupAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asr_warmup_attempts_total",
		Help: "Engine warmup attempts, including retries",
	})

	AvgLogProb = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "asr_avg_log_prob",
		Help:    "Average per-token log-probability of accepted transcriptions",
		Buckets: []float64{-2.0, -1.5, -1.0, -0.7, -0.5, -0.3, -0.1, 0.0},
	})

	RepetitionSevereTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asr_repetition_severe_total",
		Help: "Transcriptions discarded as severe repetition",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asr_retry_total",
		Help: "Auto-retry re-transcriptions by trigger reason",
	}, []string{"reason"})

	NeedsLLMTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asr_needs_llm_total",
		Help: "Routing decisions by outcome",
	}, []string{"decision"})
)
