package speech

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hammamikhairi/cookmode/internal/logger"
)

// Synthesizer turns text into WAV audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Voice() string
}

// Compile-time interface check.
var _ Synthesizer = (*Azure)(nil)

// AzureOption configures the Azure client.
type AzureOption func(*Azure)

// WithVoice sets the neural voice.
func WithVoice(voice string) AzureOption {
	return func(a *Azure) {
		if voice != "" {
			a.voice = voice
		}
	}
}

// WithEndpoint overrides the synthesis URL, which is otherwise derived
// from the region.
func WithEndpoint(url string) AzureOption {
	return func(a *Azure) { a.endpoint = url }
}

// WithHTTPTimeout bounds each synthesis request.
func WithHTTPTimeout(d time.Duration) AzureOption {
	return func(a *Azure) { a.client.Timeout = d }
}

// Azure synthesizes speech with Azure Cognitive Services.
type Azure struct {
	key      string
	voice    string
	format   string
	endpoint string
	client   *http.Client
	log      *logger.Logger
}

// NewAzure creates a client for the given subscription key and region.
func NewAzure(key, region string, log *logger.Logger, opts ...AzureOption) *Azure {
	a := &Azure{
		key:      key,
		voice:    DefaultVoice,
		format:   DefaultAudioFormat,
		endpoint: fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", region),
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Voice returns the configured voice name.
func (a *Azure) Voice() string { return a.voice }

// Synthesize returns WAV audio for text.
func (a *Azure) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := a.ssml(text)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating tts request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", a.format)
	req.Header.Set("User-Agent", "cookmode")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("azure tts status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading tts audio: %w", err)
	}
	a.log.Debug("azure tts: %d chars -> %d bytes (%s)", len(text), len(audio), a.voice)
	return audio, nil
}

// ssml wraps text in a speak document. Recipe text routinely carries
// "&" and "<", so it is escaped.
func (a *Azure) ssml(text string) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<speak version='1.0' xml:lang='en-US'><voice xml:lang='en-US' name='%s'>`, a.voice)
	if err := xml.EscapeText(&buf, []byte(text)); err != nil {
		return nil, fmt.Errorf("escaping tts text: %w", err)
	}
	buf.WriteString(`</voice></speak>`)
	return buf.Bytes(), nil
}
