/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package speech

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
)

// PollyDefaults matches the neural voice used for the host.
var PollyDefaults = Options{
	VoiceName:     "Joanna",
	Engine:        "neural",
	AudioEncoding: "mp3",
}

type pollyAPI interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// Polly uses Amazon Polly.
type Polly struct {
	client pollyAPI
}

// NewPolly loads default AWS credentials for region.
func NewPolly(ctx context.Context, region string) (*Polly, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Polly{client: polly.NewFromConfig(awsCfg)}, nil
}

func (p *Polly) Name() string { return "polly" }

func (p *Polly) Synthesize(ctx context.Context, text string, opts Options) (Clip, error) {
	opts = withDefaults(opts, PollyDefaults)

	input := &polly.SynthesizeSpeechInput{
		OutputFormat: types.OutputFormat(opts.AudioEncoding),
		Text:         aws.String(text),
		VoiceId:      types.VoiceId(opts.VoiceName),
	}
	if opts.Engine != "" {
		input.Engine = types.Engine(opts.Engine)
	}

	out, err := p.client.SynthesizeSpeech(ctx, input)
	if err != nil {
		return Clip{}, fmt.Errorf("polly synthesize: %w", err)
	}
	if out.AudioStream == nil {
		return Clip{}, ErrNoAudio
	}
	defer out.AudioStream.Close()

	data, err := io.ReadAll(io.LimitReader(out.AudioStream, maxAudioBytes))
	if err != nil {
		return Clip{}, fmt.Errorf("read polly audio: %w", err)
	}
	if len(data) == 0 {
		return Clip{}, ErrNoAudio
	}

	mimeType := "audio/wav"
	if opts.AudioEncoding == "mp3" {
		mimeType = "audio/mpeg"
	}
	return Clip{Data: data, MimeType: mimeType}, nil
}
