package transcriber

import (
	"encoding/json"
	"math"
	"time"
)

const groqURL = "https://api.groq.com/openai/v1/audio/transcriptions"

type Groq struct {
	whisperAPI
}

func NewGroq(apiKey string) *Groq {
	return &Groq{whisperAPI{
		name:           "groq",
		Endpoint:       groqURL,
		apiKey:         apiKey,
		model:          "whisper-large-v3-turbo",
		responseFormat: "verbose_json",
		client:         NewTracedClient(),
		parse:          parseGroq,
	}}
}

type groqResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		AvgLogProb float64 `json:"avg_logprob"`
	} `json:"segments"`
}

func parseGroq(body []byte) (*Transcript, error) {
	var g groqResponse
	if err := json.Unmarshal(body, &g); err != nil {
		return nil, err
	}
	t := &Transcript{
		Text:     g.Text,
		Language: g.Language,
		Duration: time.Duration(g.Duration * float64(time.Second)),
	}
	// Mean segment log probability, mapped back to 0..1.
	if len(g.Segments) > 0 {
		var sum float64
		for _, s := range g.Segments {
			sum += s.AvgLogProb
		}
		c := math.Exp(sum / float64(len(g.Segments)))
		if c > 1 {
			c = 1
		}
		t.Confidence = &c
	}
	return t, nil
}
