// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
)

// InputOption is one selectable input option of an assistant.
type InputOption struct {
	Value string `json:"value" yaml:"value"`
	Text  string `json:"text" yaml:"text"`
	SK    string `json:"SK,omitempty" yaml:"sk,omitempty"`
}

// OptionsProvider fetches the input options of an assistant.
type OptionsProvider interface {
	// Options returns the top-level input options for an assistant.
	Options(ctx context.Context, assistantID string) ([]InputOption, error)
}

// OptionsClient fetches input options over HTTP, degrading to a local
// catalogue when the service is unreachable.
//
// # Description
//
// Topic detection needs a catalogue of valid labels on every request, so a
// dead options service must not take topic filters down with it. When the
// fetch fails the client serves the catalogue instead and logs a warning.
//
// # Thread Safety
//
// OptionsClient is safe for concurrent use.
type OptionsClient struct {
	baseURL   string
	catalogue *Catalogue
}

var _ OptionsProvider = (*OptionsClient)(nil)

// NewOptionsClient creates an input options client.
//
// # Inputs
//
//   - baseURL: Options service base URL; empty uses the assistant service
//     default resolution.
//   - catalogue: Local fallback catalogue; nil disables the fallback.
func NewOptionsClient(baseURL string, catalogue *Catalogue) *OptionsClient {
	if baseURL == "" {
		baseURL = NewConfigClient("").baseURL
	}
	return &OptionsClient{baseURL: baseURL, catalogue: catalogue}
}

// Options returns the input options for an assistant.
func (c *OptionsClient) Options(ctx context.Context, assistantID string) ([]InputOption, error) {
	ctx, span := tracer.Start(ctx, "OptionsClient.Options")
	defer span.End()

	options, err := c.fetch(ctx, assistantID)
	if err != nil {
		if c.catalogue == nil {
			return nil, err
		}
		slog.Warn("Input options fetch failed, serving local catalogue",
			"assistantId", assistantID, "error", err)
		return c.catalogue.Options(), nil
	}
	return options, nil
}

func (c *OptionsClient) fetch(ctx context.Context, assistantID string) ([]InputOption, error) {
	requestURL := fmt.Sprintf("%s/assistant-input-options?assistantId=%s",
		c.baseURL, url.QueryEscape(assistantID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build input options request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("input options request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("input options request returned status %d", resp.StatusCode)
	}

	var options []InputOption
	if err := json.NewDecoder(resp.Body).Decode(&options); err != nil {
		return nil, fmt.Errorf("failed to decode input options: %w", err)
	}
	return options, nil
}

// RandomOption picks a uniformly random option, or nil for an empty list.
func RandomOption(options []InputOption) *InputOption {
	if len(options) == 0 {
		return nil
	}
	return &options[rand.Intn(len(options))]
}

// Labels extracts the display texts of a set of options, for building topic
// catalogues.
func Labels(options []InputOption) []string {
	labels := make([]string, 0, len(options))
	for _, option := range options {
		labels = append(labels, option.Text)
	}
	return labels
}
