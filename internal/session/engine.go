package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"meeting-transcription-engine/internal/audio"
	"meeting-transcription-engine/internal/diarize"
	"meeting-transcription-engine/internal/events"
	"meeting-transcription-engine/internal/models"
	"meeting-transcription-engine/internal/observability/logging"
	"meeting-transcription-engine/internal/observability/metrics"
	"meeting-transcription-engine/internal/quality"
	"meeting-transcription-engine/internal/transcribe"
)

// Stream consumption tuning.
const (
	streamReadSize = 4096
	pausePoll      = 100 * time.Millisecond
	handoffTimeout = 5 * time.Second
)

// DefaultEvictionGrace is how long a terminal session stays queryable
// before it is evicted from the registry.
const DefaultEvictionGrace = 30 * time.Second

// Transcriber is the slice of the model client the engine depends on.
type Transcriber interface {
	EnsureLoaded(ctx context.Context, model string) error
	Transcribe(ctx context.Context, req transcribe.Request) (transcribe.Result, error)
}

// EventSink fans session events out to subscribers.
type EventSink interface {
	CreateChannel(sessionID string)
	Publish(sessionID string, event models.Event) error
	CloseChannel(sessionID string)
}

// Scheduler hands completed transcripts to downstream consumers.
type Scheduler interface {
	PublishTranscriptCompleted(ctx context.Context, sessionID string, transcript models.FullTranscript) error
	SchedulePostProcessing(ctx context.Context, job events.PostProcessingJob) error
}

// dropSink is the EventSink used when none is wired.
type dropSink struct{}

func (dropSink) CreateChannel(string)               {}
func (dropSink) Publish(string, models.Event) error { return nil }
func (dropSink) CloseChannel(string)                {}

// Deps wires the engine's collaborators.
type Deps struct {
	Transcriber  Transcriber
	Events       EventSink
	Scheduler    Scheduler
	Preprocessor *audio.Preprocessor
	Diarizer     *diarize.Engine
	Quality      *quality.Aggregator

	// Defaults fills unset fields of per-session configs.
	Defaults Config
	// EvictionGrace overrides DefaultEvictionGrace when positive.
	EvictionGrace time.Duration
}

// Engine owns every live session and runs the per-chunk pipeline:
// preprocess, speaker resolution, transcription, segment distribution.
// Chunks within a session are strictly serialized; sessions are
// independent of each other.
type Engine struct {
	registry    *Registry
	transcriber Transcriber
	sink        EventSink
	scheduler   Scheduler
	pre         *audio.Preprocessor
	diarizer    *diarize.Engine
	quality     *quality.Aggregator
	defaults    Config
	grace       time.Duration
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// NewEngine builds an engine from its dependencies.
func NewEngine(d Deps) *Engine {
	if d.Events == nil {
		d.Events = dropSink{}
	}
	if d.Preprocessor == nil {
		d.Preprocessor = audio.NewPreprocessor(audio.DefaultOptions())
	}
	if d.Diarizer == nil {
		d.Diarizer = diarize.New(diarize.Config{})
	}
	if d.Quality == nil {
		d.Quality = quality.NewAggregator()
	}
	if d.EvictionGrace <= 0 {
		d.EvictionGrace = DefaultEvictionGrace
	}
	return &Engine{
		registry:    NewRegistry(),
		transcriber: d.Transcriber,
		sink:        d.Events,
		scheduler:   d.Scheduler,
		pre:         d.Preprocessor,
		diarizer:    d.Diarizer,
		quality:     d.Quality,
		defaults:    d.Defaults,
		grace:       d.EvictionGrace,
		metrics:     metrics.DefaultMetrics,
		log:         logging.WithComponent("session"),
	}
}

// Live returns the number of sessions currently in the registry,
// terminal-but-not-yet-evicted included.
func (e *Engine) Live() int {
	return e.registry.Len()
}

// StartSession allocates a session, synchronously loads its model, and
// begins consuming the stream when one is provided. The session is
// registered before the load; when the load fails it is returned in the
// Error state alongside the error and stays queryable until eviction.
func (e *Engine) StartSession(ctx context.Context, stream io.Reader, cfg Config) (*Session, error) {
	if err := cfg.applyDefaults(e.defaults); err != nil {
		return nil, err
	}

	s := newSession(cfg)
	e.registry.Add(s)
	e.quality.Track(s.id)
	e.sink.CreateChannel(s.id)
	e.metrics.RecordSessionStart()

	log := logging.WithSession(s.id)
	log.Info().
		Str("model", cfg.Model).
		Str("language", cfg.Language).
		Bool("diarization", cfg.Diarization).
		Msg("session starting")

	// No chunk is accepted before the model is ready.
	if err := e.transcriber.EnsureLoaded(ctx, cfg.Model); err != nil {
		log.Error().Err(err).Str("model", cfg.Model).Msg("model load failed")
		s.setError(err)
		e.publishError(s, "", transcribe.Classify(err), err)
		e.closeOut(s, StatusError)
		return s, fmt.Errorf("start session %s: %w", s.id, err)
	}

	if err := s.transition(StatusActive); err != nil {
		// Cancelled while the model was loading.
		return s, err
	}
	e.publishStatus(s, "session started")

	if stream != nil {
		go e.consume(s, stream)
	}
	return s, nil
}

// GetTranscriptionSession returns a point-in-time snapshot of the session.
func (e *Engine) GetTranscriptionSession(sessionID string) (Snapshot, error) {
	s, ok := e.registry.Get(sessionID)
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	return s.Snapshot(), nil
}

// QualityMetrics returns the session's quality and cost counters.
func (e *Engine) QualityMetrics(sessionID string) (models.SessionQualityMetrics, error) {
	m, ok := e.quality.Snapshot(sessionID)
	if !ok {
		return models.SessionQualityMetrics{}, ErrSessionNotFound
	}
	return m, nil
}

// ProcessAudioChunk runs one chunk of raw audio through the pipeline and
// returns the transcribed segment. Chunks of one session are processed
// strictly in submission order; the call blocks while an earlier chunk
// is in flight.
func (e *Engine) ProcessAudioChunk(ctx context.Context, sessionID string, data []byte) (models.TranscriptSegment, error) {
	s, ok := e.registry.Get(sessionID)
	if !ok {
		return models.TranscriptSegment{}, ErrSessionNotFound
	}
	return e.process(ctx, s, data)
}

// Pause suspends chunk processing. An in-flight chunk finishes normally;
// chunks submitted after it are rejected until Resume.
func (e *Engine) Pause(sessionID string) error {
	s, ok := e.registry.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	if err := s.transition(StatusPaused); err != nil {
		return err
	}
	e.publishStatus(s, "session paused")
	return nil
}

// Resume reactivates a paused session.
func (e *Engine) Resume(sessionID string) error {
	s, ok := e.registry.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	if err := s.transition(StatusActive); err != nil {
		return err
	}
	e.publishStatus(s, "session resumed")
	return nil
}

// Cancel terminates the session immediately and discards buffered audio.
// It does not wait for an in-flight chunk; that chunk's result is
// discarded at append time. No transcript is produced.
func (e *Engine) Cancel(sessionID string) error {
	s, ok := e.registry.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	if err := s.transition(StatusCancelled); err != nil {
		return err
	}
	s.window.reset()
	log := logging.WithSession(s.id)
	log.Info().Msg("session cancelled")
	e.publishStatus(s, "session cancelled")
	e.closeOut(s, StatusCancelled)
	return nil
}

// CancelAll cancels every live session. Used on shutdown.
func (e *Engine) CancelAll() {
	for _, id := range e.registry.IDs() {
		err := e.Cancel(id)
		if err != nil && !errors.Is(err, ErrSessionClosed) && !errors.Is(err, ErrSessionNotFound) {
			e.log.Warn().Err(err).Str("sessionId", id).Msg("cancel on shutdown failed")
		}
	}
}

// FinalizeTranscript flushes buffered audio, completes the session, and
// returns the full transcript. It blocks until an in-flight chunk
// finishes. Finalizing a paused session discards audio still buffered in
// the window, since a paused session accepts no further processing.
func (e *Engine) FinalizeTranscript(ctx context.Context, sessionID string) (models.FullTranscript, error) {
	s, ok := e.registry.Get(sessionID)
	if !ok {
		return models.FullTranscript{}, ErrSessionNotFound
	}

	s.procMu.Lock()
	defer s.procMu.Unlock()

	switch st := s.Status(); {
	case st == StatusActive || st == StatusPaused:
	case st.IsTerminal():
		return models.FullTranscript{}, ErrSessionClosed
	default:
		return models.FullTranscript{}, ErrSessionNotActive
	}

	if s.Status() == StatusActive {
		// Trailing audio shorter than one chunk still gets transcribed.
		// Its failure is absorbed: finalization must not fail because the
		// last sliver of audio did not transcribe.
		if rem := s.window.flush(); len(rem) > 0 {
			if err := e.processTrailing(ctx, s, rem); err != nil {
				log := logging.WithSession(s.id)
				log.Warn().Err(err).
					Int("bytes", len(rem)).
					Msg("trailing audio dropped from transcript")
			}
		}
	} else {
		s.window.reset()
	}

	if err := s.transition(StatusCompleted); err != nil {
		return models.FullTranscript{}, err
	}

	t := e.buildTranscript(s)
	log := logging.WithSession(s.id)
	log.Info().
		Int("segments", len(t.Segments)).
		Int("speakers", len(t.Speakers)).
		Int64("durationMs", t.DurationMs).
		Float64("avgConfidence", t.AverageConfidence).
		Msg("session finalized")

	e.publish(s.id, models.Event{Type: models.EventComplete, SessionID: s.id, Timestamp: time.Now(), Transcript: &t})
	e.closeOut(s, StatusCompleted)
	e.handOff(s.id, t)
	return t, nil
}

// process runs one chunk through the pipeline under the session's
// serialization lock, applying the model fallback policy on failure.
// At most one model switch and one retry happen per chunk.
func (e *Engine) process(ctx context.Context, s *Session, data []byte) (models.TranscriptSegment, error) {
	s.procMu.Lock()
	defer s.procMu.Unlock()

	// Pause and terminal states apply between chunks, never mid-chunk.
	switch st := s.Status(); {
	case st == StatusActive:
	case st.IsTerminal():
		return models.TranscriptSegment{}, ErrSessionClosed
	default:
		return models.TranscriptSegment{}, ErrSessionNotActive
	}

	chunk := newChunk(s, data)
	e.metrics.RecordAudioReceived(len(data))

	model := s.ActiveModel()
	start := time.Now()
	seg, err := e.attempt(ctx, s, &chunk, model)
	if err == nil {
		e.finishChunk(s, seg, time.Since(start), time.Since(start), len(data))
		return seg, nil
	}
	if errors.Is(err, ErrSessionClosed) {
		return models.TranscriptSegment{}, err
	}

	kind := transcribe.Classify(err)
	e.quality.RecordFailure(s.id, model, time.Since(start), kind)

	from, to, switched := s.recordFailure(err, kind.Retryable())
	if !switched {
		e.failChunk(s, chunk.ID, kind, err)
		return models.TranscriptSegment{}, err
	}

	e.metrics.RecordModelSwitch(from, to)
	log := logging.WithChunk(s.id, chunk.ID, chunk.Seq)
	log.Warn().Err(err).
		Str("from", from).
		Str("to", to).
		Msg("model switched, retrying chunk")
	e.publishStatus(s, fmt.Sprintf("model switched to %s after %s", to, kind))

	retryStart := time.Now()
	seg, retryErr := e.attempt(ctx, s, &chunk, to)
	if retryErr == nil {
		e.finishChunk(s, seg, time.Since(retryStart), time.Since(start), len(data))
		return seg, nil
	}
	if errors.Is(retryErr, ErrSessionClosed) {
		return models.TranscriptSegment{}, retryErr
	}

	retryKind := transcribe.Classify(retryErr)
	e.quality.RecordFailure(s.id, to, time.Since(retryStart), retryKind)
	// One switch per chunk: the retry failure counts against the budget
	// but cannot cascade into another switch within this call.
	s.recordFailure(retryErr, false)
	e.failChunk(s, chunk.ID, retryKind, retryErr)
	return models.TranscriptSegment{}, retryErr
}

// processTrailing transcribes the flushed window remainder without the
// fallback machinery. The caller absorbs its failure.
func (e *Engine) processTrailing(ctx context.Context, s *Session, data []byte) error {
	chunk := newChunk(s, data)
	e.metrics.RecordAudioReceived(len(data))

	start := time.Now()
	seg, err := e.attempt(ctx, s, &chunk, s.ActiveModel())
	if err != nil {
		kind := transcribe.Classify(err)
		e.quality.RecordFailure(s.id, s.ActiveModel(), time.Since(start), kind)
		e.metrics.RecordChunkFailed(kind.String())
		return err
	}
	e.finishChunk(s, seg, time.Since(start), time.Since(start), len(data))
	return nil
}

// attempt runs the pipeline once against a fixed model. Preprocessing
// failures degrade to passthrough and diarization failures to the unknown
// speaker; only a transcription failure fails the attempt.
func (e *Engine) attempt(ctx context.Context, s *Session, chunk *models.AudioChunk, model string) (models.TranscriptSegment, error) {
	log := logging.WithChunk(s.id, chunk.ID, chunk.Seq)
	cfg := s.config()
	target := audio.Format{SampleRate: cfg.SampleRate, Channels: cfg.Channels, BitsPerSample: cfg.BitsPerSample}

	processed := chunk.Data
	format := target
	if res, err := e.pre.Process(chunk.Data, target); err != nil {
		log.Warn().Err(err).Msg("preprocess failed, chunk passes through raw")
	} else {
		processed = res.Bytes
		format = res.Format
	}

	var durMs int64
	if bps := format.BytesPerSecond(); bps > 0 {
		durMs = int64(len(processed)) * 1000 / int64(bps)
	}

	speakerID, embedding := e.resolveSpeaker(s, processed, log)

	res, err := e.transcriber.Transcribe(ctx, transcribe.Request{
		Model:      model,
		Audio:      processed,
		SampleRate: format.SampleRate,
		Language:   cfg.Language,
	})
	if err != nil {
		return models.TranscriptSegment{}, err
	}

	seg := models.TranscriptSegment{
		ID:           uuid.New().String(),
		SessionID:    s.id,
		ChunkID:      chunk.ID,
		Seq:          chunk.Seq,
		SpeakerID:    speakerID,
		Text:         res.Text,
		Confidence:   res.Confidence,
		Model:        res.Model,
		ProcessingMs: res.ProcessingTime.Milliseconds(),
		CreatedAt:    time.Now(),
	}
	if err := s.appendSegment(&seg, durMs); err != nil {
		log.Info().Msg("session closed while chunk was in flight, segment discarded")
		return models.TranscriptSegment{}, err
	}
	chunk.Processed = true
	chunk.SegmentID = seg.ID

	e.publish(s.id, models.Event{Type: models.EventSegment, SessionID: s.id, Timestamp: time.Now(), Segment: &seg})

	if speakerID != models.SpeakerUnknown {
		if sp, ok := s.attributeSpeaker(speakerID, seg, embedding); ok {
			e.publish(s.id, models.Event{Type: models.EventSpeakerUpdate, SessionID: s.id, Timestamp: time.Now(), Speaker: &sp})
		}
	}

	log.Debug().
		Str("speaker", speakerID).
		Str("model", seg.Model).
		Float64("confidence", seg.Confidence).
		Int64("startMs", seg.StartMs).
		Int64("endMs", seg.EndMs).
		Msg("segment appended")
	return seg, nil
}

// resolveSpeaker attributes the chunk to a speaker. The first voiced
// chunk seeds the roster with a full diarization pass and announces each
// detected speaker; later chunks are identified against the session's
// voice profiles. Silent chunks and failures resolve to the unknown
// speaker, and an unseeded roster retries seeding on the next chunk.
func (e *Engine) resolveSpeaker(s *Session, pcm []byte, log zerolog.Logger) (string, []float64) {
	if !s.config().Diarization {
		return models.SpeakerUnknown, nil
	}
	samples := audio.DecodePCM16(pcm)

	if !s.diarizationSeeded() {
		res, err := e.diarizer.Diarize(samples)
		if err != nil || len(res.Speakers) == 0 {
			if err != nil && !errors.Is(err, diarize.ErrNoVoice) {
				log.Warn().Err(err).Msg("diarization failed, speaker unknown")
			}
			return models.SpeakerUnknown, nil
		}
		roster := s.seedSpeakers(res.Speakers)
		for i := range roster {
			e.metrics.RecordSpeakerDetected()
			e.publish(s.id, models.Event{Type: models.EventSpeakerUpdate, SessionID: s.id, Timestamp: time.Now(), Speaker: &roster[i]})
		}
		log.Info().
			Int("speakers", len(roster)).
			Float64("confidence", res.Confidence).
			Msg("speaker roster seeded")
		return dominantSpeaker(res), nil
	}

	embedding, _, ok := e.diarizer.EmbedChunk(samples)
	if !ok {
		return models.SpeakerUnknown, nil
	}
	id, sim, ok := diarize.IdentifySpeaker(embedding, s.profiles())
	if !ok {
		log.Debug().Float64("bestSimilarity", sim).Msg("no voice profile match")
		return models.SpeakerUnknown, nil
	}
	return id, embedding
}

// dominantSpeaker returns the pass speaker with the most voiced time,
// ties broken by roster order.
func dominantSpeaker(res diarize.Result) string {
	totals := make(map[string]int64, len(res.Speakers))
	for _, seg := range res.Segments {
		totals[seg.SpeakerID] += seg.EndMs - seg.StartMs
	}
	best, bestMs := models.SpeakerUnknown, int64(-1)
	for _, sp := range res.Speakers {
		if ms := totals[sp.ID]; ms > bestMs {
			best, bestMs = sp.ID, ms
		}
	}
	return best
}

// consume reads the session's audio stream, cuts windowed chunks, and
// feeds them through the pipeline in order. Pause holds the next chunk
// until resume. Stream end flushes the remainder but does not finalize
// the session; the owner does that explicitly.
func (e *Engine) consume(s *Session, stream io.Reader) {
	log := logging.WithSession(s.id)
	buf := make([]byte, streamReadSize)

	for {
		n, err := stream.Read(buf)
		if n > 0 {
			s.window.add(buf[:n])
			if !e.drainWindow(s, log) {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Warn().Err(err).Msg("audio stream read failed")
			}
			break
		}
	}

	if rem := s.window.flush(); len(rem) > 0 {
		e.submit(s, rem, log)
	}
	log.Debug().Msg("audio stream drained")
}

// drainWindow processes every full chunk currently buffered. Returns
// false when the session stopped accepting audio.
func (e *Engine) drainWindow(s *Session, log zerolog.Logger) bool {
	for {
		chunk, ok := s.window.next()
		if !ok {
			return true
		}
		if !e.submit(s, chunk, log) {
			return false
		}
	}
}

// submit pushes one chunk through the pipeline, waiting out pauses.
// Returns false when the session stopped accepting audio.
func (e *Engine) submit(s *Session, data []byte, log zerolog.Logger) bool {
	for {
		_, err := e.process(context.Background(), s, data)
		switch {
		case err == nil:
			return true
		case errors.Is(err, ErrSessionNotActive):
			// Paused. Hold this chunk and try again.
			time.Sleep(pausePoll)
		case errors.Is(err, ErrSessionClosed):
			return false
		default:
			// Failed past recovery; the error event is already out and
			// the stream moves on.
			log.Warn().Err(err).Msg("chunk dropped after failed processing")
			return true
		}
	}
}

// finishChunk records a successful chunk everywhere it counts.
func (e *Engine) finishChunk(s *Session, seg models.TranscriptSegment, attempt, total time.Duration, bytes int) {
	audioSeconds := float64(seg.EndMs-seg.StartMs) / 1000
	e.quality.RecordSuccess(s.id, seg.Model, attempt, seg.Confidence, seg.Words(), audioSeconds, bytes)
	e.metrics.RecordChunkProcessed(total.Seconds())
	e.metrics.RecordSegmentCreated(seg.Confidence < s.config().ConfidenceThreshold)
}

// failChunk records a chunk that failed past recovery and tells subscribers.
func (e *Engine) failChunk(s *Session, chunkID string, kind models.FailureKind, err error) {
	e.metrics.RecordChunkFailed(kind.String())
	e.publishError(s, chunkID, kind, err)
}

// buildTranscript assembles the final transcript from the session and
// the quality aggregator. Duration is audio-timeline time, not wall time.
func (e *Engine) buildTranscript(s *Session) models.FullTranscript {
	snap := s.Snapshot()

	var words int
	confidences := make([]float64, 0, len(snap.Segments))
	for _, seg := range snap.Segments {
		words += seg.Words()
		confidences = append(confidences, seg.Confidence)
	}
	var avg float64
	if len(confidences) > 0 {
		avg = stat.Mean(confidences, nil)
	}

	t := models.FullTranscript{
		SessionID:         snap.ID,
		Language:          snap.Config.Language,
		StartedAt:         snap.StartTime,
		CompletedAt:       snap.EndTime,
		DurationMs:        snap.AudioMs,
		Segments:          snap.Segments,
		Speakers:          snap.Speakers,
		WordCount:         words,
		AverageConfidence: avg,
		ModelsUsed:        snap.ModelsUsed,
		ModelSwitches:     snap.ModelSwitches,
		EstimatedTokens:   quality.EstimateTokens(int64(words)),
	}
	if q, ok := e.quality.Snapshot(s.id); ok {
		t.EstimatedTokens = q.EstimatedTokens
		t.EstimatedCostUSD = q.EstimatedCostUSD
	}
	return t
}

// handOff publishes the completed transcript downstream without blocking
// finalization.
func (e *Engine) handOff(sessionID string, t models.FullTranscript) {
	if e.scheduler == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), handoffTimeout)
		defer cancel()
		if err := e.scheduler.PublishTranscriptCompleted(ctx, sessionID, t); err != nil {
			e.log.Error().Err(err).Str("sessionId", sessionID).Msg("transcript completed publish failed")
		}
		job := events.PostProcessingJob{
			SessionID:    sessionID,
			TranscriptID: uuid.New().String(),
			SegmentCount: len(t.Segments),
			DurationMs:   t.DurationMs,
		}
		if err := e.scheduler.SchedulePostProcessing(ctx, job); err != nil {
			e.log.Error().Err(err).Str("sessionId", sessionID).Msg("post-processing schedule failed")
		}
	}()
}

// closeOut finishes a session's external surfaces after it reached a
// terminal state: end metrics, channel close, delayed eviction.
func (e *Engine) closeOut(s *Session, terminal Status) {
	e.metrics.RecordSessionEnd(terminal.String(), time.Since(s.startTime).Seconds())
	e.sink.CloseChannel(s.id)
	e.evictLater(s.id)
}

// evictLater removes the session from the registry after the grace
// period, so late reads still see the terminal snapshot.
func (e *Engine) evictLater(id string) {
	time.AfterFunc(e.grace, func() {
		e.registry.Remove(id)
		e.quality.Drop(id)
	})
}

// newChunk stamps a fresh chunk in the session's arrival order.
func newChunk(s *Session, data []byte) models.AudioChunk {
	cfg := s.config()
	return models.AudioChunk{
		ID:            uuid.New().String(),
		SessionID:     s.ID(),
		Seq:           s.nextSeq(),
		Data:          data,
		SampleRate:    cfg.SampleRate,
		Channels:      cfg.Channels,
		BitsPerSample: cfg.BitsPerSample,
		ReceivedAt:    time.Now(),
	}
}

// publish fans one event out; delivery problems are logged, never returned.
func (e *Engine) publish(sessionID string, ev models.Event) {
	if err := e.sink.Publish(sessionID, ev); err != nil {
		e.log.Warn().Err(err).Str("sessionId", sessionID).Str("type", string(ev.Type)).Msg("event publish failed")
	}
}

// publishStatus announces the session's current status to subscribers.
func (e *Engine) publishStatus(s *Session, reason string) {
	st, model := s.statusLine()
	e.publish(s.id, models.Event{
		Type:      models.EventStatus,
		SessionID: s.id,
		Timestamp: time.Now(),
		Status:    &models.StatusChange{Status: st.String(), ActiveModel: model, Reason: reason},
	})
}

// publishError surfaces a pipeline failure to subscribers.
func (e *Engine) publishError(s *Session, chunkID string, kind models.FailureKind, err error) {
	e.publish(s.id, models.Event{
		Type:      models.EventError,
		SessionID: s.id,
		Timestamp: time.Now(),
		Error:     &models.FailureReport{Kind: kind.String(), Message: err.Error(), ChunkID: chunkID},
	})
}
