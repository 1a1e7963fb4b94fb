package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"meeting-transcription-engine/internal/models"
)

// errorBudget caps how many chunk failures a session may absorb before
// fallback switching stops and failures only propagate. The count never
// resets on success.
const errorBudget = 3

// Session is the full state of one transcription session. It is owned by
// the Engine: all mutation goes through engine operations.
type Session struct {
	// procMu serializes the chunk pipeline: chunk n+1 does not start
	// until chunk n finishes. This is the session's backpressure point.
	procMu sync.Mutex

	mu        sync.RWMutex
	id        string
	cfg       Config
	status    Status
	startTime time.Time
	endTime   time.Time

	segments []models.TranscriptSegment
	speakers map[string]*models.Speaker
	seeded   bool // speaker roster seeded by a full diarization pass

	errorCount    int
	lastError     string
	activeModel   string
	fallbacks     []string // remaining ranked fallbacks
	modelSwitches int
	modelsUsed    []string // first-use order

	seq           int64
	audioCursorMs int64

	window *window
}

func newSession(cfg Config) *Session {
	return &Session{
		id:          uuid.New().String(),
		cfg:         cfg,
		status:      StatusInitializing,
		startTime:   time.Now(),
		speakers:    make(map[string]*models.Speaker),
		activeModel: cfg.Model,
		fallbacks:   append([]string(nil), cfg.FallbackModels...),
		window:      newWindow(cfg.ChunkSize, cfg.OverlapSize),
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Status returns the current lifecycle status.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// ActiveModel returns the model currently serving this session's chunks.
func (s *Session) ActiveModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeModel
}

// config returns the immutable session config.
func (s *Session) config() Config {
	return s.cfg
}

// transition moves the session to the next status if the state machine
// allows it, stamping endTime on terminal states.
func (s *Session) transition(to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.canTransition(to) {
		if s.status.IsTerminal() {
			return ErrSessionClosed
		}
		return ErrSessionNotActive
	}
	s.status = to
	if to.IsTerminal() {
		s.endTime = time.Now()
	}
	return nil
}

// statusLine returns status and active model together for event payloads.
func (s *Session) statusLine() (Status, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.activeModel
}

// nextSeq hands out the next chunk sequence number, starting at 1.
func (s *Session) nextSeq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// recordFailure notes a chunk failure and, when the error budget still
// has room, the failure is retryable, and a ranked fallback remains,
// atomically switches the active model. Returns the models involved when
// a switch happened. The error count is never decremented.
func (s *Session) recordFailure(err error, retryable bool) (from, to string, switched bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorCount++
	s.lastError = err.Error()
	if !retryable || s.errorCount >= errorBudget || len(s.fallbacks) == 0 {
		return "", "", false
	}
	from = s.activeModel
	to = s.fallbacks[0]
	s.fallbacks = s.fallbacks[1:]
	s.activeModel = to
	s.modelSwitches++
	return from, to, true
}

// setError moves the session to the Error state unconditionally short of
// a terminal state, recording the cause.
func (s *Session) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.IsTerminal() {
		return
	}
	s.status = StatusError
	s.endTime = time.Now()
	s.lastError = err.Error()
}

// appendSegment stamps the segment's position on the session audio
// timeline and appends it in arrival order. The result of an in-flight
// chunk is discarded when the session reached a terminal state while the
// chunk was processing.
func (s *Session) appendSegment(seg *models.TranscriptSegment, durMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.IsTerminal() {
		return ErrSessionClosed
	}
	seg.StartMs = s.audioCursorMs
	seg.EndMs = s.audioCursorMs + durMs
	s.audioCursorMs = seg.EndMs
	s.segments = append(s.segments, *seg)

	for _, m := range s.modelsUsed {
		if m == seg.Model {
			return nil
		}
	}
	s.modelsUsed = append(s.modelsUsed, seg.Model)
	return nil
}

// diarizationSeeded reports whether the speaker roster has been seeded.
func (s *Session) diarizationSeeded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seeded
}

// seedSpeakers installs the roster from the first successful diarization
// pass and returns clones for event publication.
func (s *Session) seedSpeakers(speakers []models.Speaker) []models.Speaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	clones := make([]models.Speaker, 0, len(speakers))
	for i := range speakers {
		sp := speakers[i].Clone()
		s.speakers[sp.ID] = &sp
		clones = append(clones, sp.Clone())
	}
	s.seeded = true
	return clones
}

// profiles returns a copy of the speaker profiles for identification.
func (s *Session) profiles() map[string]models.VoiceProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.VoiceProfile, len(s.speakers))
	for id, sp := range s.speakers {
		out[id] = sp.Profile.Clone()
	}
	return out
}

// attributeSpeaker records the segment against a known speaker and folds
// the chunk embedding into its voice profile. Returns a clone for event
// publication; ok is false for unknown speaker ids.
func (s *Session) attributeSpeaker(id string, seg models.TranscriptSegment, embedding []float64) (models.Speaker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.speakers[id]
	if !ok {
		return models.Speaker{}, false
	}
	sp.Attribute(seg)
	if len(embedding) > 0 {
		sp.Profile.Blend(embedding)
	}
	return sp.Clone(), true
}

// Snapshot is a read-only copy of session state. Between chunks it is
// stable: two snapshots with no processing in between are deeply equal.
type Snapshot struct {
	ID             string                     `json:"id"`
	Status         string                     `json:"status"`
	Config         Config                     `json:"config"`
	StartTime      time.Time                  `json:"startTime"`
	EndTime        time.Time                  `json:"endTime"`
	Segments       []models.TranscriptSegment `json:"segments"`
	Speakers       []models.Speaker           `json:"speakers"`
	ErrorCount     int                        `json:"errorCount"`
	LastError      string                     `json:"lastError,omitempty"`
	ActiveModel    string                     `json:"activeModel"`
	FallbackModels []string                   `json:"fallbackModels,omitempty"`
	ModelSwitches  int                        `json:"modelSwitches"`
	ModelsUsed     []string                   `json:"modelsUsed,omitempty"`
	AudioMs        int64                      `json:"audioMs"`
}

// Snapshot copies the session state for read-only consumers. Speakers are
// sorted by label so repeated snapshots are identical.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	segments := make([]models.TranscriptSegment, len(s.segments))
	copy(segments, s.segments)

	speakers := make([]models.Speaker, 0, len(s.speakers))
	for _, sp := range s.speakers {
		speakers = append(speakers, sp.Clone())
	}
	sort.Slice(speakers, func(i, j int) bool {
		if speakers[i].Label != speakers[j].Label {
			return speakers[i].Label < speakers[j].Label
		}
		return speakers[i].ID < speakers[j].ID
	})

	return Snapshot{
		ID:             s.id,
		Status:         s.status.String(),
		Config:         s.cfg.clone(),
		StartTime:      s.startTime,
		EndTime:        s.endTime,
		Segments:       segments,
		Speakers:       speakers,
		ErrorCount:     s.errorCount,
		LastError:      s.lastError,
		ActiveModel:    s.activeModel,
		FallbackModels: append([]string(nil), s.fallbacks...),
		ModelSwitches:  s.modelSwitches,
		ModelsUsed:     append([]string(nil), s.modelsUsed...),
		AudioMs:        s.audioCursorMs,
	}
}
