package synth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/maauso/zenpal-audio/internal/alignment"
	"github.com/maauso/zenpal-audio/internal/audio"
)

// Defaults for the ElevenLabs client.
const (
	DefaultElevenLabsBaseURL = "https://api.elevenlabs.io/v1"
	DefaultModelID           = "eleven_multilingual_v2"
	DefaultOutputFormat      = "mp3_44100_128"
)

// VoiceSettings tunes the delivery of the voice.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	SpeakerBoost    bool    `json:"use_speaker_boost"`
}

// DefaultVoiceSettings returns settings suited to calm, even narration.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       0.7,
		SimilarityBoost: 0.75,
		Style:           0,
		SpeakerBoost:    true,
	}
}

// ElevenLabs implements Provider using the ElevenLabs text-to-speech API.
type ElevenLabs struct {
	apiKey        string
	voiceID       string
	modelID       string
	outputFormat  string
	voiceSettings VoiceSettings
	baseURL       string
	httpClient    *http.Client
	maxRetries    int
	baseBackoff   time.Duration
	logger        *slog.Logger
}

var _ Provider = (*ElevenLabs)(nil)

// ClientOption is a function that configures an ElevenLabs client.
type ClientOption func(*ElevenLabs)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(e *ElevenLabs) {
		e.apiKey = key
	}
}

// WithModelID sets the synthesis model.
func WithModelID(id string) ClientOption {
	return func(e *ElevenLabs) {
		if id != "" {
			e.modelID = id
		}
	}
}

// WithOutputFormat sets the output_format query parameter, e.g. "mp3_44100_128"
// or "pcm_24000". Raw PCM responses are wrapped in a WAV container.
func WithOutputFormat(format string) ClientOption {
	return func(e *ElevenLabs) {
		if format != "" {
			e.outputFormat = format
		}
	}
}

// WithVoiceSettings overrides the default voice settings.
func WithVoiceSettings(s VoiceSettings) ClientOption {
	return func(e *ElevenLabs) {
		e.voiceSettings = s
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(e *ElevenLabs) {
		e.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(u string) ClientOption {
	return func(e *ElevenLabs) {
		e.baseURL = strings.TrimRight(u, "/")
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(e *ElevenLabs) {
		e.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) ClientOption {
	return func(e *ElevenLabs) {
		e.baseBackoff = d
	}
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(l *slog.Logger) ClientOption {
	return func(e *ElevenLabs) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewElevenLabs creates a new ElevenLabs client for voiceID.
// The API key can be set via the WithAPIKey option. If not provided,
// it is read from the environment variable ELEVENLABS_API_KEY.
func NewElevenLabs(voiceID string, opts ...ClientOption) (*ElevenLabs, error) {
	if voiceID == "" {
		return nil, ErrVoiceIDRequired
	}

	e := &ElevenLabs{
		voiceID:       voiceID,
		modelID:       DefaultModelID,
		outputFormat:  DefaultOutputFormat,
		voiceSettings: DefaultVoiceSettings(),
		baseURL:       DefaultElevenLabsBaseURL,
		httpClient:    &http.Client{Timeout: 120 * time.Second},
		maxRetries:    3,
		baseBackoff:   1 * time.Second,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.apiKey == "" {
		e.apiKey = os.Getenv("ELEVENLABS_API_KEY")
	}
	if e.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	return e, nil
}

// speechRequest is the request body of the text-to-speech endpoints.
type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// timestampsResponse is the body returned by the with-timestamps endpoint.
type timestampsResponse struct {
	AudioBase64         string                        `json:"audio_base64"`
	Alignment           *alignment.CharacterAlignment `json:"alignment"`
	NormalizedAlignment *alignment.CharacterAlignment `json:"normalized_alignment"`
}

// errorResponse is the error body returned by the API.
type errorResponse struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

// Synthesize converts text to speech. When req.WithAlignment is set the
// with-timestamps endpoint is used; a response without usable timestamps
// still succeeds as PlainSpeech.
func (e *ElevenLabs) Synthesize(ctx context.Context, req Request) (Speech, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	body, err := json.Marshal(speechRequest{
		Text:          req.Text,
		ModelID:       e.modelID,
		VoiceSettings: e.voiceSettings,
	})
	if err != nil {
		return nil, fmt.Errorf("synth: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s", e.baseURL, url.PathEscape(e.voiceID))
	if req.WithAlignment {
		endpoint += "/with-timestamps"
	}
	endpoint += "?output_format=" + url.QueryEscape(e.outputFormat)

	respBody, err := e.doRequestWithRetry(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}

	if !req.WithAlignment {
		data, format := e.container(respBody)
		if len(data) == 0 {
			return nil, ErrEmptyAudio
		}
		return PlainSpeech{Audio: data, Format: format}, nil
	}

	var ts timestampsResponse
	if err := json.Unmarshal(respBody, &ts); err != nil {
		return nil, fmt.Errorf("synth: unmarshal response: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(ts.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("synth: decode audio_base64: %w", err)
	}
	data, format := e.container(raw)
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}

	chars := ts.Alignment
	if chars == nil || chars.IsEmpty() {
		chars = ts.NormalizedAlignment
	}
	if chars == nil || chars.IsEmpty() {
		e.logger.Warn("synthesis returned no alignment", slog.String("voice_id", e.voiceID))
		return PlainSpeech{Audio: data, Format: format}, nil
	}
	if err := chars.Validate(); err != nil {
		e.logger.Warn("synthesis returned malformed alignment", slog.String("error", err.Error()))
	}

	return AlignedSpeech{Audio: data, Format: format, Alignment: *chars}, nil
}

// Health checks API connectivity and API key validity.
func (e *ElevenLabs) Health(ctx context.Context) error {
	_, err := e.doRequest(ctx, http.MethodGet, e.baseURL+"/user", nil)
	return err
}

// Close releases idle connections.
func (e *ElevenLabs) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

// container returns the audio ready for decoding. Raw PCM output formats
// ("pcm_<rate>") carry no header and are wrapped as mono 16-bit WAV.
func (e *ElevenLabs) container(data []byte) ([]byte, audio.Format) {
	rate, ok := pcmRate(e.outputFormat)
	if !ok || len(data) == 0 {
		return data, audio.DetectFormat(data)
	}

	n := len(data) / 2
	w := audio.NewSilence(rate, 1, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(data[2*i:]))
		if v < 0 {
			w.Samples[0][i] = float32(v) / 32768
		} else {
			w.Samples[0][i] = float32(v) / 32767
		}
	}
	return audio.EncodeWAV(w), audio.FormatWAV
}

func pcmRate(outputFormat string) (int, bool) {
	rest, ok := strings.CutPrefix(outputFormat, "pcm_")
	if !ok {
		return 0, false
	}
	rate, err := strconv.Atoi(rest)
	if err != nil || rate <= 0 {
		return 0, false
	}
	return rate, true
}

// doRequestWithRetry performs an HTTP request with exponential backoff retry.
func (e *ElevenLabs) doRequestWithRetry(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var lastErr error
	backoff := e.baseBackoff

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("synth: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		respBody, err := e.doRequest(ctx, method, endpoint, body)
		if err == nil {
			return respBody, nil
		}
		if !isRetryable(err) {
			return nil, err
		}

		e.logger.Warn("retrying synthesis request",
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)
		lastErr = err
	}

	return nil, fmt.Errorf("synth: max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP request and returns the response body.
func (e *ElevenLabs) doRequest(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("synth: create request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("synth: request failed: %w", err)
		}
		return nil, &retryableError{err: fmt.Errorf("synth: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("synth: read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseAPIError(resp.StatusCode, respBody)
		if apiErr.IsRetryable() {
			return nil, &retryableError{err: apiErr}
		}
		return nil, apiErr
	}

	return respBody, nil
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}

	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Detail.Message != "" {
		apiErr.Message = er.Detail.Message
		apiErr.Code = er.Detail.Status
	}
	return apiErr
}
