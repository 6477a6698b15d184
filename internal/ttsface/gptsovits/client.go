// Package gptsovits implements ttsface.Engine against a local GPT-SoVITS
// HTTP server: the wire protocol spec §6 names as "TTS runtime (wire
// protocol)" — a synthesis endpoint taking text plus reference-clip
// parameters and replying with raw WAV bytes, and two weight-loading
// endpoints.
package gptsovits

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arksynth/arksynth/internal/ttsface"
)

// synthesisPayload is the JSON body the GPT-SoVITS runtime's /tts
// endpoint expects.
type synthesisPayload struct {
	Text             string   `json:"text"`
	TextLang         string   `json:"text_lang"`
	RefAudioPath     string   `json:"ref_audio_path"`
	AuxRefAudioPaths []string `json:"aux_ref_audio_paths,omitempty"`
	PromptText       string   `json:"prompt_text"`
	PromptLang       string   `json:"prompt_lang"`
	TopK             int      `json:"top_k"`
	TopP             float64  `json:"top_p"`
	Temperature      float64  `json:"temperature"`
	TextSplitMethod  string   `json:"text_split_method"`
	SpeedFactor      float64  `json:"speed_factor"`
}

// Default sampling parameters, chosen to match the runtime's own
// defaults rather than ArkSynth inventing new ones.
const (
	defaultTopK            = 5
	defaultTopP            = 1.0
	defaultTemperature     = 1.0
	defaultTextSplitMethod = "cut5"
)

// Client is a ttsface.Engine backed by a GPT-SoVITS HTTP server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	name       string
}

// New builds a Client against baseURL (e.g. "http://127.0.0.1:9880").
func New(name, baseURL string) *Client {
	return &Client{
		name:    name,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *Client) Name() string { return c.name }

// IsAvailable probes liveness by attempting a request; a connection
// refused (the server process isn't up) means unavailable, any other
// response means it's up even if that particular call errors.
func (c *Client) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// EnsureReady is a no-op: the GPT-SoVITS runtime has no separate warm-up
// call beyond loading weights, which LoadSoVITSWeights/LoadGPTWeights
// handle explicitly.
func (c *Client) EnsureReady(ctx context.Context) error {
	return nil
}

// Synthesize posts a synthesis request and returns the raw WAV response.
func (c *Client) Synthesize(ctx context.Context, req ttsface.SynthesisRequest) (ttsface.SynthesisResult, error) {
	payload := synthesisPayload{
		Text:             req.Text,
		TextLang:         req.Language,
		RefAudioPath:     req.RefAudioPath,
		AuxRefAudioPaths: req.AuxRefAudioPaths,
		PromptText:       req.PromptText,
		PromptLang:       req.PromptLang,
		TopK:             defaultTopK,
		TopP:             defaultTopP,
		Temperature:      defaultTemperature,
		TextSplitMethod:  defaultTextSplitMethod,
		SpeedFactor:      req.Speed,
	}
	if payload.SpeedFactor == 0 {
		payload.SpeedFactor = 1.0
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return ttsface.SynthesisResult{}, fmt.Errorf("marshal synthesis request: %w", err)
	}

	var audio []byte
	err = ttsface.WithRetry(ctx, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tts", bytes.NewReader(body))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return readErr
		}

		if resp.StatusCode != http.StatusOK {
			retryAfter := time.Duration(0)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return &ttsface.RetryableError{StatusCode: resp.StatusCode, Body: string(respBody), RetryAfter: retryAfter}
			}
			return fmt.Errorf("tts synthesis failed (status %d): %s", resp.StatusCode, string(respBody))
		}

		audio = respBody
		return nil
	})
	if err != nil {
		return ttsface.SynthesisResult{}, err
	}

	return ttsface.SynthesisResult{Audio: audio, Engine: c.name}, nil
}

// GetAvailableVoices is not meaningful for this runtime: voice identity
// is carried entirely by the reference clip path in each request, not by
// a server-side voice registry.
func (c *Client) GetAvailableVoices(ctx context.Context) ([]string, error) {
	return nil, nil
}

// IsVoiceAvailable reports only whether the runtime is reachable, the same
// as IsAvailable: voiceID is ignored, and the client keeps no record of
// which SoVITS/GPT weights have been loaded via LoadWeights.
func (c *Client) IsVoiceAvailable(ctx context.Context, voiceID string) (bool, error) {
	return c.IsAvailable(ctx), nil
}

// LoadWeights tells the runtime to load the SoVITS and GPT weight files
// at the given absolute paths, the two weight-loading endpoints the wire
// protocol names alongside /tts.
func (c *Client) LoadWeights(ctx context.Context, sovitsPath, gptPath string) error {
	if err := c.loadWeight(ctx, "/set_sovits_weights", "sovits_weights_path", sovitsPath); err != nil {
		return fmt.Errorf("load sovits weights: %w", err)
	}
	if err := c.loadWeight(ctx, "/set_gpt_weights", "gpt_weights_path", gptPath); err != nil {
		return fmt.Errorf("load gpt weights: %w", err)
	}
	return nil
}

func (c *Client) loadWeight(ctx context.Context, endpoint, param, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s%s?%s=%s", c.baseURL, endpoint, param, path), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
