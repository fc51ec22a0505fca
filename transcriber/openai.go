package transcriber

import "encoding/json"

const openAIURL = "https://api.openai.com/v1/audio/transcriptions"

type OpenAI struct {
	whisperAPI
}

func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{whisperAPI{
		name:           "openai",
		Endpoint:       openAIURL,
		apiKey:         apiKey,
		model:          "gpt-4o-transcribe",
		responseFormat: "json",
		client:         NewTracedClient(),
		parse: func(body []byte) (*Transcript, error) {
			var o struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(body, &o); err != nil {
				return nil, err
			}
			return &Transcript{Text: o.Text}, nil
		},
	}}
}
