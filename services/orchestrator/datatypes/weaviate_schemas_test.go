// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"
)

func propertyNames(class *models.Class) []string {
	names := make([]string, 0, len(class.Properties))
	for _, property := range class.Properties {
		names = append(names, property.Name)
	}
	return names
}

func findProperty(t *testing.T, class *models.Class, name string) *models.Property {
	t.Helper()
	for _, property := range class.Properties {
		if property.Name == name {
			return property
		}
	}
	t.Fatalf("property %q not found on class %s", name, class.Class)
	return nil
}

// =============================================================================
// GetChatMessageSchema Tests
// =============================================================================

func TestGetChatMessageSchema_ReturnsValidClass(t *testing.T) {
	schema := GetChatMessageSchema()

	require.NotNil(t, schema)
	assert.Equal(t, "ChatMessage", schema.Class)
	assert.Equal(t, "none", schema.Vectorizer)
}

func TestGetChatMessageSchema_HasRequiredProperties(t *testing.T) {
	schema := GetChatMessageSchema()

	names := propertyNames(schema)
	for _, expected := range []string{"conversation_id", "assistant_id", "role", "content", "topic", "timestamp"} {
		assert.Contains(t, names, expected)
	}
}

func TestGetChatMessageSchema_ConversationIDIsFilterable(t *testing.T) {
	schema := GetChatMessageSchema()

	property := findProperty(t, schema, "conversation_id")
	require.NotNil(t, property.IndexFilterable)
	assert.True(t, *property.IndexFilterable)
	assert.Equal(t, "field", property.Tokenization)
}

// =============================================================================
// GetAssistantDocumentSchema Tests
// =============================================================================

func TestGetAssistantDocumentSchema_ReturnsValidClass(t *testing.T) {
	schema := GetAssistantDocumentSchema()

	require.NotNil(t, schema)
	assert.Equal(t, "AssistantDocument", schema.Class)
	assert.Equal(t, "none", schema.Vectorizer)
}

func TestGetAssistantDocumentSchema_TopicIsFilterable(t *testing.T) {
	schema := GetAssistantDocumentSchema()

	property := findProperty(t, schema, "topic")
	require.NotNil(t, property.IndexFilterable)
	assert.True(t, *property.IndexFilterable)
}

// =============================================================================
// GetAgentProfileSchema Tests
// =============================================================================

func TestGetAgentProfileSchema_ReturnsValidClass(t *testing.T) {
	schema := GetAgentProfileSchema()

	require.NotNil(t, schema)
	assert.Equal(t, "AgentProfile", schema.Class)
	assert.Equal(t, "none", schema.Vectorizer)
}

func TestGetAgentProfileSchema_HasRequiredProperties(t *testing.T) {
	schema := GetAgentProfileSchema()

	names := propertyNames(schema)
	for _, expected := range []string{"agent_id", "name", "description", "category", "keywords", "stage"} {
		assert.Contains(t, names, expected)
	}
}

func TestGetAgentProfileSchema_KeywordsIsTextArray(t *testing.T) {
	schema := GetAgentProfileSchema()

	property := findProperty(t, schema, "keywords")
	assert.Equal(t, []string{"text[]"}, property.DataType)
}
