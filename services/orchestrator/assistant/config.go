// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package assistant looks up per-assistant configuration and the input
// option catalogues users pick topics from. Configuration comes from the
// platform's assistant service; option catalogues degrade to a local YAML
// file so topic detection keeps working when the service is unreachable.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("upai.orchestrator.assistant")

var httpClient = &http.Client{Timeout: 15 * time.Second}

// Synthesis parameter defaults applied when the stored config omits them.
const (
	defaultTemperature = 0.2
	defaultTopP        = 0.95
	defaultMaxTokens   = 800
)

// Config is the synthesis configuration of one assistant.
type Config struct {
	Prompt           string  `json:"prompt"`
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
	MaxTokens        int     `json:"maxTokens"`
	FrequencyPenalty float64 `json:"frequencyPenalty"`
	PresencePenalty  float64 `json:"presencePenalty"`
}

// NotFoundError reports an assistant with no stored configuration.
// Proceeding without a config would synthesize with meaningless parameters,
// so this is surfaced instead of defaulted.
type NotFoundError struct {
	AssistantID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("assistant configuration not found: %s", e.AssistantID)
}

// ConfigProvider fetches assistant configurations.
type ConfigProvider interface {
	// GetConfig returns the configuration for an assistant, or a
	// NotFoundError when the assistant is unknown.
	GetConfig(ctx context.Context, assistantID string) (*Config, error)
}

// ConfigClient fetches assistant configurations over HTTP.
//
// # Thread Safety
//
// ConfigClient is safe for concurrent use.
type ConfigClient struct {
	baseURL string
}

var _ ConfigProvider = (*ConfigClient)(nil)

// NewConfigClient creates an assistant config client.
//
// # Inputs
//
//   - baseURL: Assistant service base URL; empty uses ASSISTANT_SERVICE_URL
//     (default http://localhost:8090).
func NewConfigClient(baseURL string) *ConfigClient {
	if baseURL == "" {
		baseURL = os.Getenv("ASSISTANT_SERVICE_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8090"
	}
	return &ConfigClient{baseURL: baseURL}
}

// GetConfig fetches one assistant's configuration.
//
// # Description
//
// Missing numeric parameters are filled with the platform defaults
// (temperature 0.2, topP 0.95, maxTokens 800, penalties 0). A missing
// assistant is a NotFoundError, not a defaulted config.
func (c *ConfigClient) GetConfig(ctx context.Context, assistantID string) (*Config, error) {
	ctx, span := tracer.Start(ctx, "ConfigClient.GetConfig")
	defer span.End()

	url := fmt.Sprintf("%s/assistants/%s", c.baseURL, assistantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build assistant config request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		slog.Error("Assistant config request failed", "assistantId", assistantID, "error", err)
		return nil, fmt.Errorf("assistant config request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{AssistantID: assistantID}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("assistant config request returned status %d", resp.StatusCode)
	}

	var config Config
	if err := json.NewDecoder(resp.Body).Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to decode assistant config: %w", err)
	}

	applyConfigDefaults(&config)
	return &config, nil
}

func applyConfigDefaults(config *Config) {
	if config.Temperature == 0 {
		config.Temperature = defaultTemperature
	}
	if config.TopP == 0 {
		config.TopP = defaultTopP
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaultMaxTokens
	}
}
