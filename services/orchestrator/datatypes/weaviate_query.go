// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"fmt"

	"github.com/weaviate/weaviate/entities/models"
)

// =============================================================================
// Generic GraphQL Response Parser
// =============================================================================

// ParseGraphQLResponse parses a Weaviate GraphQL response into the target type.
//
// # Description
//
// This generic function encapsulates the marshal/unmarshal pattern required to
// convert Weaviate's dynamic response (map[string]models.JSONObject) into a
// strongly-typed Go struct. The target type T must have json tags matching
// the expected response shape.
//
// # Type Parameters
//
//   - T: The target struct type with json tags matching the response shape.
//
// # Inputs
//
//   - resp: The GraphQL response from Weaviate client's Do() method.
//
// # Outputs
//
//   - *T: Pointer to the parsed struct.
//   - error: Non-nil if response is nil or parsing fails.
//
// # Example
//
//	resp, err := client.GraphQL().Get().WithClassName("ChatMessage").Do(ctx)
//	if err != nil { ... }
//
//	parsed, err := ParseGraphQLResponse[ChatMessageQueryResponse](resp)
//	if err != nil { ... }
//
//	for _, m := range parsed.Get.ChatMessage {
//	    fmt.Println(m.Content)
//	}
//
// # Limitations
//
//   - Requires the target type to exactly match the expected response structure.
//   - Type mismatches will result in zero values, not errors.
//
// # Assumptions
//
//   - The response Data field is JSON-marshalable.
//   - The target type T has correct json tags.
func ParseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}

	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}

	var result T
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into target type: %w", err)
	}

	return &result, nil
}

// =============================================================================
// Common Weaviate Response Types
// =============================================================================

// ChatMessageQueryResponse represents the response from querying the ChatMessage class.
//
// # Fields
//
//   - Get.ChatMessage: Array of conversation messages.
type ChatMessageQueryResponse struct {
	Get struct {
		ChatMessage []ChatMessageResult `json:"ChatMessage"`
	} `json:"Get"`
}

// ChatMessageResult represents a single conversation message from a query.
type ChatMessageResult struct {
	ConversationID string `json:"conversation_id"`
	AssistantID    string `json:"assistant_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
	Topic          string `json:"topic"`
	Timestamp      int64  `json:"timestamp"`
	Additional     struct {
		ID        string   `json:"id"`
		Certainty *float32 `json:"certainty"`
	} `json:"_additional"`
}

// AssistantDocumentQueryResponse represents the response from querying the
// AssistantDocument class.
//
// # Fields
//
//   - Get.AssistantDocument: Array of reference document chunks.
type AssistantDocumentQueryResponse struct {
	Get struct {
		AssistantDocument []AssistantDocumentResult `json:"AssistantDocument"`
	} `json:"Get"`
}

// AssistantDocumentResult represents a single reference document chunk.
type AssistantDocumentResult struct {
	AssistantID string `json:"assistant_id"`
	Content     string `json:"content"`
	Source      string `json:"source"`
	Topic       string `json:"topic"`
	Timestamp   int64  `json:"timestamp"`
	Additional  struct {
		ID        string   `json:"id"`
		Certainty *float32 `json:"certainty"`
	} `json:"_additional"`
}

// AgentProfileQueryResponse represents the response from querying the AgentProfile class.
//
// # Fields
//
//   - Get.AgentProfile: Array of agent profiles with similarity scores.
type AgentProfileQueryResponse struct {
	Get struct {
		AgentProfile []AgentProfileResult `json:"AgentProfile"`
	} `json:"Get"`
}

// AgentProfileResult represents a single agent profile from a similarity query.
type AgentProfileResult struct {
	AgentID     string   `json:"agent_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Keywords    []string `json:"keywords"`
	Stage       string   `json:"stage"`
	Additional  struct {
		ID        string   `json:"id"`
		Certainty *float32 `json:"certainty"`
	} `json:"_additional"`
}

// =============================================================================
// Property Structs for Object Creation
// =============================================================================

// ChatMessageProperties represents the properties for creating a ChatMessage object.
type ChatMessageProperties struct {
	ConversationID string `json:"conversation_id"`
	AssistantID    string `json:"assistant_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
	Topic          string `json:"topic"`
	Timestamp      int64  `json:"timestamp"`
}

// ToMap converts ChatMessageProperties to map[string]interface{} for Weaviate.
//
// # Description
//
// Converts the typed ChatMessageProperties struct to the map format required
// by Weaviate's WithProperties() method.
//
// # Outputs
//
//   - map[string]interface{}: Property map ready for Weaviate client.
//
// # Example
//
//	props := ChatMessageProperties{ConversationID: "conv_123", Role: "user", Content: "..."}
//	client.Data().Creator().WithProperties(props.ToMap()).Do(ctx)
func (p *ChatMessageProperties) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"conversation_id": p.ConversationID,
		"assistant_id":    p.AssistantID,
		"role":            p.Role,
		"content":         p.Content,
		"topic":           p.Topic,
		"timestamp":       p.Timestamp,
	}
}

// AgentProfileProperties represents the properties for creating an AgentProfile object.
type AgentProfileProperties struct {
	AgentID     string   `json:"agent_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Keywords    []string `json:"keywords"`
	Stage       string   `json:"stage"`
}

// ToMap converts AgentProfileProperties to map[string]interface{} for Weaviate.
func (p *AgentProfileProperties) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"agent_id":    p.AgentID,
		"name":        p.Name,
		"description": p.Description,
		"category":    p.Category,
		"keywords":    p.Keywords,
		"stage":       p.Stage,
	}
}
