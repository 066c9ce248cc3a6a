// SPDX-License-Identifier: MIT

package collab

import (
	"context"
	"fmt"
	"time"
)

// SynthesizeRequest is the wire request of POST /synthesize. VoiceMap maps
// speaker index ("1", "2", ...) to a presenter voice profile.
type SynthesizeRequest struct {
	EpisodeID string            `json:"episode_id"`
	Script    string            `json:"script"`
	VoiceMap  map[string]string `json:"voice_map"`
}

// SynthesizeResponse is the wire response of POST /synthesize.
type SynthesizeResponse struct {
	AudioURL        string  `json:"audio_url"`
	DurationSeconds float64 `json:"duration_seconds"`
	ByteSize        int64   `json:"byte_size"`
	Format          string  `json:"format"`
}

// Synthesizer turns an edited script into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesizeRequest) (*SynthesizeResponse, error)
}

// HTTPSynthesizer talks to the TTS service over HTTP JSON.
type HTTPSynthesizer struct {
	client      client
	hardTimeout time.Duration
}

// NewSynthesizer returns a TTS client. Audio is slow; the hard deadline is
// measured in minutes.
func NewSynthesizer(baseURL string, hardTimeout time.Duration) *HTTPSynthesizer {
	return &HTTPSynthesizer{client: newClient(baseURL), hardTimeout: hardTimeout}
}

// Synthesize submits the edited script with the voice assignment.
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, req SynthesizeRequest) (*SynthesizeResponse, error) {
	var resp SynthesizeResponse
	if err := s.client.postJSON(ctx, "/synthesize", s.hardTimeout, req, &resp); err != nil {
		return nil, err
	}
	if resp.AudioURL == "" {
		return nil, fmt.Errorf("%w: synthesizer returned no audio URL", ErrContract)
	}
	return &resp, nil
}
