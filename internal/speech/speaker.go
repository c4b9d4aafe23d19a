package speech

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.Notifier = (*Speaker)(nil)
	_ domain.Silencer = (*Speaker)(nil)
)

// SpeakerOption configures the Speaker.
type SpeakerOption func(*Speaker)

// WithChunkSize sets the longest text sent in one synthesis request.
// Longer text is split at sentence ends and synthesized in parallel so
// playback does not stall between sentences. Zero disables splitting.
func WithChunkSize(n int) SpeakerOption {
	return func(s *Speaker) { s.chunkSize = n }
}

// WithCache sets the audio cache.
func WithCache(c *Cache) SpeakerOption {
	return func(s *Speaker) { s.cache = c }
}

// Speaker reads messages aloud one at a time. Urgent messages jump the
// queue but never cut off a sentence already playing; Silence does.
type Speaker struct {
	tts       Synthesizer
	player    Player
	log       *logger.Logger
	cache     *Cache
	chunkSize int

	wake chan struct{}

	mu       sync.Mutex
	queue    []request
	speaking bool
	epoch    uint64 // bumped by Silence; stale playback checks it
}

// NewSpeaker creates a stopped speaker. Call Start to begin playback.
func NewSpeaker(tts Synthesizer, player Player, log *logger.Logger, opts ...SpeakerOption) *Speaker {
	s := &Speaker{
		tts:       tts,
		player:    player,
		log:       log,
		chunkSize: 200,
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = NewCache(tts.Voice(), "", false, log)
	}
	return s
}

// Notify queues a message at normal priority. Never blocks on audio.
func (s *Speaker) Notify(_ context.Context, message string) error {
	s.say(message, PriorityNormal)
	return nil
}

// NotifyUrgent queues a message ahead of normal ones.
func (s *Speaker) NotifyUrgent(_ context.Context, message string) error {
	s.say(message, PriorityUrgent)
	return nil
}

// Silence drops everything queued and stops the current sentence.
func (s *Speaker) Silence() {
	s.mu.Lock()
	s.queue = s.queue[:0]
	s.epoch++
	s.mu.Unlock()
	s.player.Stop()
	s.log.Debug("speaker silenced")
}

// Speaking reports whether audio is queued or playing. Microphones use
// it to avoid transcribing the speaker.
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking || len(s.queue) > 0
}

// Start runs the playback loop until ctx is done. Non-blocking.
func (s *Speaker) Start(ctx context.Context) {
	go s.loop(ctx)
	s.log.Info("speaker started (voice %s)", s.tts.Voice())
}

func (s *Speaker) say(text string, p Priority) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.mu.Lock()
	s.queue = append(s.queue, request{text: text, priority: p, queuedAt: time.Now()})
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Speaker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.player.Stop()
			s.log.Info("speaker stopped")
			return
		case <-s.wake:
		}
		for {
			req, epoch, ok := s.next()
			if !ok {
				break
			}
			s.speak(ctx, req, epoch)
			s.mu.Lock()
			s.speaking = false
			s.mu.Unlock()
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// next pops the oldest request of the highest priority.
func (s *Speaker) next() (request, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return request{}, 0, false
	}
	best := 0
	for i, r := range s.queue {
		if r.priority > s.queue[best].priority {
			best = i
		}
	}
	req := s.queue[best]
	s.queue = append(s.queue[:best], s.queue[best+1:]...)
	s.speaking = true
	return req, s.epoch, true
}

func (s *Speaker) silenced(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch != epoch
}

func (s *Speaker) speak(ctx context.Context, req request, epoch uint64) {
	s.log.Debug("speaking after %s: %s", time.Since(req.queuedAt).Round(time.Millisecond), truncate(req.text, 60))

	chunks := splitChunks(req.text, s.chunkSize)
	audio := make([][]byte, len(chunks))
	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			a, err := s.synthesize(ctx, text)
			if err != nil {
				s.log.Warn("synthesis failed: %v", err)
				return
			}
			audio[i] = a
		}(i, chunk)
	}
	wg.Wait()

	for _, a := range audio {
		if a == nil {
			continue
		}
		if ctx.Err() != nil || s.silenced(epoch) {
			return
		}
		if err := s.player.Play(a); err != nil {
			s.log.Warn("playback failed: %v", err)
		}
	}
}

func (s *Speaker) synthesize(ctx context.Context, text string) ([]byte, error) {
	if a, ok := s.cache.Get(text); ok {
		return a, nil
	}
	a, err := s.tts.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.Put(text, a)
	return a, nil
}

// splitChunks groups sentences into chunks of about size characters.
func splitChunks(text string, size int) []string {
	if size <= 0 || len(text) <= size {
		return []string{text}
	}

	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if c := strings.TrimSpace(cur.String()); c != "" {
			out = append(out, c)
		}
		cur.Reset()
	}
	for _, sentence := range splitSentences(text) {
		if cur.Len() > 0 && cur.Len()+len(sentence) > size {
			flush()
		}
		cur.WriteString(sentence)
	}
	flush()
	return out
}

// splitSentences splits after . ! or ? keeping the punctuation and the
// following whitespace with the sentence.
func splitSentences(text string) []string {
	var (
		out []string
		cur strings.Builder
	)
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		cur.WriteRune(runes[i])
		if r := runes[i]; r != '.' && r != '!' && r != '?' {
			continue
		}
		for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			i++
			cur.WriteRune(runes[i])
		}
		out = append(out, cur.String())
		cur.Reset()
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
