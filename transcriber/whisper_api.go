package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"hark/encoder"
)

// whisperAPI speaks the OpenAI-compatible /audio/transcriptions endpoint.
type whisperAPI struct {
	name           string
	Endpoint       string
	apiKey         string
	model          string
	responseFormat string
	client         *TracedClient
	parse          func(body []byte) (*Transcript, error)
}

func (w *whisperAPI) Name() string    { return w.name }
func (w *whisperAPI) Available() bool { return w.apiKey != "" }

// Warm pre-opens the connection to the provider.
func (w *whisperAPI) Warm() { w.client.Warm(w.Endpoint) }

func (w *whisperAPI) Transcribe(ctx context.Context, r Request) (*Transcript, error) {
	audio, enc, err := encoder.Encode(r.Audio)
	if err != nil {
		return nil, fmt.Errorf("%s: encode: %w", w.name, err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio."+enc.Ext())
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, err
	}
	model := w.model
	if r.Model != "" {
		model = r.Model
	}
	fields := [][2]string{{"model", model}, {"response_format", w.responseFormat}}
	if r.Language != "" {
		fields = append(fields, [2]string{"language", r.Language})
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("%s: form field %s: %w", w.name, f[0], err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.Endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", w.name, err)
	}
	logNetwork(w.name, resp.Metrics)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s API error %d: %s", w.name, resp.StatusCode, string(resp.Body))
	}

	t, err := w.parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s response parse error: %w", w.name, err)
	}
	if t.Language == "" {
		t.Language = r.Language
	}
	t.Metrics = resp.Metrics
	t.RateLimit = firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests") + "/" +
		firstNonEmpty(resp.Header, "x-ratelimit-limit-requests")
	return t, nil
}
