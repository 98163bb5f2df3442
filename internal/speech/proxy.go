/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxAudioBytes = 16 << 20

// Proxy posts to an HTTP endpoint that fronts a TTS service. The endpoint
// may answer with {"audioUrl"}, with base64 {"audioContent","mimeType"}, or
// with the audio body itself.
type Proxy struct {
	endpoint string
	client   *http.Client
}

// NewProxy creates a proxy provider. A nil client uses http.DefaultClient.
func NewProxy(endpoint string, client *http.Client) *Proxy {
	if client == nil {
		client = http.DefaultClient
	}
	return &Proxy{endpoint: endpoint, client: client}
}

func (p *Proxy) Name() string { return "proxy" }

type proxyRequest struct {
	Text          string  `json:"text"`
	LanguageCode  string  `json:"languageCode"`
	VoiceName     string  `json:"voiceName"`
	SSMLGender    string  `json:"ssmlGender"`
	AudioEncoding string  `json:"audioEncoding"`
	SpeakingRate  float64 `json:"speakingRate"`
	Pitch         float64 `json:"pitch"`
}

type proxyResponse struct {
	AudioURL      string `json:"audioUrl"`
	AudioContent  string `json:"audioContent"`
	AudioEncoding string `json:"audioEncoding"`
	MimeType      string `json:"mimeType"`
}

func (p *Proxy) Synthesize(ctx context.Context, text string, opts Options) (Clip, error) {
	opts = withDefaults(opts, GoogleDefaults)

	body, err := json.Marshal(proxyRequest{
		Text:          text,
		LanguageCode:  opts.LanguageCode,
		VoiceName:     opts.VoiceName,
		SSMLGender:    opts.Gender,
		AudioEncoding: opts.AudioEncoding,
		SpeakingRate:  opts.SpeakingRate,
		Pitch:         opts.Pitch,
	})
	if err != nil {
		return Clip{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return Clip{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Clip{}, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Clip{}, fmt.Errorf("tts request failed (%d). %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var payload proxyResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxAudioBytes)).Decode(&payload); err != nil {
			return Clip{}, fmt.Errorf("decode response: %w", err)
		}
		if payload.AudioURL != "" {
			return Clip{URL: payload.AudioURL}, nil
		}
		if payload.AudioContent == "" {
			return Clip{}, ErrNoAudio
		}
		data, err := base64.StdEncoding.DecodeString(payload.AudioContent)
		if err != nil {
			return Clip{}, fmt.Errorf("decode audio: %w", err)
		}
		mimeType := payload.MimeType
		if mimeType == "" {
			encoding := payload.AudioEncoding
			if encoding == "" {
				encoding = opts.AudioEncoding
			}
			mimeType = mimeForEncoding(encoding)
		}
		return Clip{Data: data, MimeType: mimeType}, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return Clip{}, fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return Clip{}, ErrNoAudio
	}
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return Clip{Data: data, MimeType: mimeType}, nil
}
