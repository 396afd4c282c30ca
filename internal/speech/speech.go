// Package speech turns recorded speech into text with Cloud Speech-to-Text
// and text back into speech with Cloud Text-to-Speech.
package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/juju/loggo"
	"google.golang.org/api/option"
	speechapi "google.golang.org/api/speech/v1"
	ttsapi "google.golang.org/api/texttospeech/v1"
)

var logger = loggo.GetLogger("picad.speech")

// both directions use uncompressed 16 bit PCM
const encodingLinear16 = "LINEAR16"

type Client struct {
	stt *speechapi.Service
	tts *ttsapi.Service

	language string
	gender   string
}

// New authenticates both services with the service account key in keyFile.
// language is a BCP-47 code like en-US, gender one of MALE, FEMALE or NEUTRAL.
func New(ctx context.Context, keyFile, language, gender string, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{
		option.WithCredentialsFile(keyFile),
		option.WithScopes(speechapi.CloudPlatformScope),
	}, opts...)

	return newClient(ctx, language, gender, opts...)
}

func newClient(ctx context.Context, language, gender string, opts ...option.ClientOption) (*Client, error) {
	stt, err := speechapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech service: %w", err)
	}
	tts, err := ttsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech service: %w", err)
	}

	return &Client{
		stt:      stt,
		tts:      tts,
		language: language,
		gender:   gender,
	}, nil
}

// Transcribe recognizes the speech in a WAV recording. Each recognized
// segment's best alternative ends up on its own line.
func (c *Client) Transcribe(ctx context.Context, wav []byte) (string, error) {
	req := &speechapi.RecognizeRequest{
		Config: &speechapi.RecognitionConfig{
			Encoding:     encodingLinear16,
			LanguageCode: c.language,
		},
		Audio: &speechapi.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(wav),
		},
	}

	resp, err := c.stt.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}

	lines := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		a := r.Alternatives[0]
		logger.Tracef("heard %q confidence %.3f", a.Transcript, a.Confidence)
		lines = append(lines, a.Transcript)
	}

	return strings.Join(lines, "\n"), nil
}

// Synthesize returns text spoken as a WAV file.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("synthesize: nothing to say")
	}

	req := &ttsapi.SynthesizeSpeechRequest{
		Input: &ttsapi.SynthesisInput{Text: text},
		Voice: &ttsapi.VoiceSelectionParams{
			LanguageCode: c.language,
			SsmlGender:   c.gender,
		},
		AudioConfig: &ttsapi.AudioConfig{AudioEncoding: encodingLinear16},
	}

	resp, err := c.tts.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	wav, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("synthesize: decode audio: %w", err)
	}

	return wav, nil
}
