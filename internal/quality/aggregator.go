// Package quality maintains running quality and cost statistics per session:
// exponential moving averages of confidence and latency, throughput counters,
// per-model usage, and token/cost estimates. Written only by the orchestrator
// after each chunk attempt; read-only for everyone else.
package quality

import (
	"math"
	"sync"
	"time"

	"meeting-transcription-engine/internal/models"
)

// emaAlpha is the smoothing factor for confidence and latency averages.
// The first observation seeds the average directly.
const emaAlpha = 0.2

// DefaultRateUSDPerMinute is the audio-minute cost assumed for models with no
// configured rate.
const DefaultRateUSDPerMinute = 0.006

// tokensPerWord estimates tokens from words; transcripts average roughly four
// tokens per three words.
const tokensPerWord = 4.0 / 3.0

// modelStats carries the internal per-model accumulation state.
type modelStats struct {
	attempts   int64
	successes  int64
	emaLatency float64
	emaConf    float64
}

// stats is the mutable per-session record behind the aggregator lock.
type stats struct {
	chunksProcessed int64
	chunksFailed    int64
	audioSeconds    float64
	bytesProcessed  int64
	emaConfidence   float64
	emaLatency      float64
	confSeeded      bool
	latSeeded       bool
	wordCount       int64
	costUSD         float64
	failuresByKind  map[string]int64
	models          map[string]*modelStats
	updatedAt       time.Time
}

// Aggregator tracks quality metrics for all live sessions.
type Aggregator struct {
	mu          sync.RWMutex
	sessions    map[string]*stats
	rates       map[string]float64
	defaultRate float64
}

// NewAggregator creates an empty aggregator with the default cost rate.
func NewAggregator() *Aggregator {
	return &Aggregator{
		sessions:    make(map[string]*stats),
		rates:       make(map[string]float64),
		defaultRate: DefaultRateUSDPerMinute,
	}
}

// SetRate overrides the per-audio-minute cost for one model.
func (a *Aggregator) SetRate(model string, usdPerMinute float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rates[model] = usdPerMinute
}

// Track starts collecting for a session. Tracking an already tracked session
// is a no-op.
func (a *Aggregator) Track(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.sessions[sessionID]; ok {
		return
	}
	a.sessions[sessionID] = &stats{
		failuresByKind: make(map[string]int64),
		models:         make(map[string]*modelStats),
		updatedAt:      time.Now(),
	}
}

// Drop discards a session's statistics.
func (a *Aggregator) Drop(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, sessionID)
}

// RecordSuccess folds one successful chunk attempt into the session's
// statistics.
func (a *Aggregator) RecordSuccess(sessionID, model string, latency time.Duration, confidence float64, words int, audioSeconds float64, bytes int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[sessionID]
	if !ok {
		return
	}

	s.chunksProcessed++
	s.audioSeconds += audioSeconds
	s.bytesProcessed += int64(bytes)
	s.wordCount += int64(words)
	s.costUSD += audioSeconds / 60 * a.rate(model)
	s.updatedAt = time.Now()

	sec := latency.Seconds()
	if !s.latSeeded {
		s.emaLatency = sec
		s.latSeeded = true
	} else {
		s.emaLatency = emaAlpha*sec + (1-emaAlpha)*s.emaLatency
	}
	if !s.confSeeded {
		s.emaConfidence = confidence
		s.confSeeded = true
	} else {
		s.emaConfidence = emaAlpha*confidence + (1-emaAlpha)*s.emaConfidence
	}

	m := s.model(model)
	m.attempts++
	m.successes++
	if m.successes == 1 {
		m.emaConf = confidence
	} else {
		m.emaConf = emaAlpha*confidence + (1-emaAlpha)*m.emaConf
	}
	if m.attempts == 1 {
		m.emaLatency = sec
	} else {
		m.emaLatency = emaAlpha*sec + (1-emaAlpha)*m.emaLatency
	}
}

// RecordFailure folds one failed chunk attempt into the session's statistics.
// Failures update latency and error counters but never confidence.
func (a *Aggregator) RecordFailure(sessionID, model string, latency time.Duration, kind models.FailureKind) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[sessionID]
	if !ok {
		return
	}

	s.chunksFailed++
	s.failuresByKind[kind.String()]++
	s.updatedAt = time.Now()

	sec := latency.Seconds()
	if !s.latSeeded {
		s.emaLatency = sec
		s.latSeeded = true
	} else {
		s.emaLatency = emaAlpha*sec + (1-emaAlpha)*s.emaLatency
	}

	m := s.model(model)
	m.attempts++
	if m.attempts == 1 {
		m.emaLatency = sec
	} else {
		m.emaLatency = emaAlpha*sec + (1-emaAlpha)*m.emaLatency
	}
}

// Snapshot returns a read-only copy of the session's metrics. ok is false for
// untracked sessions.
func (a *Aggregator) Snapshot(sessionID string) (models.SessionQualityMetrics, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.sessions[sessionID]
	if !ok {
		return models.SessionQualityMetrics{}, false
	}

	out := models.SessionQualityMetrics{
		SessionID:         sessionID,
		ChunksProcessed:   s.chunksProcessed,
		ChunksFailed:      s.chunksFailed,
		AudioSeconds:      s.audioSeconds,
		BytesProcessed:    s.bytesProcessed,
		EMAConfidence:     s.emaConfidence,
		EMALatencySeconds: s.emaLatency,
		WordCount:         s.wordCount,
		EstimatedTokens:   EstimateTokens(s.wordCount),
		EstimatedCostUSD:  s.costUSD,
		UpdatedAt:         s.updatedAt,
	}
	if len(s.failuresByKind) > 0 {
		out.FailuresByKind = make(map[string]int64, len(s.failuresByKind))
		for k, v := range s.failuresByKind {
			out.FailuresByKind[k] = v
		}
	}
	if len(s.models) > 0 {
		out.Models = make(map[string]models.ModelUsage, len(s.models))
		for name, m := range s.models {
			out.Models[name] = models.ModelUsage{
				Attempts:          m.attempts,
				Successes:         m.successes,
				EMALatencySeconds: m.emaLatency,
				EMAConfidence:     m.emaConf,
			}
		}
	}
	return out, true
}

// EstimateTokens converts a word count to an estimated token count.
func EstimateTokens(words int64) int64 {
	if words <= 0 {
		return 0
	}
	return int64(math.Ceil(float64(words) * tokensPerWord))
}

// rate must be called with the lock held.
func (a *Aggregator) rate(model string) float64 {
	if r, ok := a.rates[model]; ok {
		return r
	}
	return a.defaultRate
}

func (s *stats) model(name string) *modelStats {
	m, ok := s.models[name]
	if !ok {
		m = &modelStats{}
		s.models[name] = m
	}
	return m
}
