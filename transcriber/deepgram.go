package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"hark/encoder"
)

const deepgramURL = "https://api.deepgram.com/v1/listen"

type Deepgram struct {
	Endpoint string
	apiKey   string
	model    string
	client   *TracedClient
}

func NewDeepgram(apiKey string) *Deepgram {
	return &Deepgram{
		Endpoint: deepgramURL,
		apiKey:   apiKey,
		model:    "nova-3",
		client:   NewTracedClient(),
	}
}

func (d *Deepgram) Name() string    { return "deepgram" }
func (d *Deepgram) Available() bool { return d.apiKey != "" }
func (d *Deepgram) Warm()           { d.client.Warm(d.Endpoint) }

type deepgramResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (d *Deepgram) Transcribe(ctx context.Context, r Request) (*Transcript, error) {
	audio, enc, err := encoder.Encode(r.Audio)
	if err != nil {
		return nil, fmt.Errorf("deepgram: encode: %w", err)
	}

	q := url.Values{}
	q.Set("model", d.model)
	if r.Model != "" {
		q.Set("model", r.Model)
	}
	if r.Language != "" {
		q.Set("language", r.Language)
	} else {
		q.Set("detect_language", "true")
	}
	q.Set("smart_format", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint+"?"+q.Encode(), bytes.NewReader(audio))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", enc.ContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram: %w", err)
	}
	logNetwork("deepgram", resp.Metrics)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("deepgram API error %d: %s", resp.StatusCode, string(resp.Body))
	}

	var dg deepgramResponse
	if err := json.Unmarshal(resp.Body, &dg); err != nil {
		return nil, fmt.Errorf("deepgram response parse error: %w", err)
	}

	t := &Transcript{
		Language: r.Language,
		Duration: time.Duration(dg.Metadata.Duration * float64(time.Second)),
		Metrics:  resp.Metrics,
		RateLimit: firstNonEmpty(resp.Header,
			"x-dg-ratelimit-remaining", "x-ratelimit-remaining", "ratelimit-remaining") + "/" +
			firstNonEmpty(resp.Header, "x-dg-ratelimit-limit", "x-ratelimit-limit", "ratelimit-limit"),
	}
	if len(dg.Results.Channels) > 0 {
		ch := dg.Results.Channels[0]
		if ch.DetectedLanguage != "" {
			t.Language = ch.DetectedLanguage
		}
		if len(ch.Alternatives) > 0 {
			alt := ch.Alternatives[0]
			t.Text = alt.Transcript
			c := alt.Confidence
			t.Confidence = &c
		}
	}
	return t, nil
}
