// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"context"
	"log"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

func GetChatMessageSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       "ChatMessage",
		Description: "A single conversation message with its embedding.",
		Vectorizer:  "none",
		InvertedIndexConfig: &models.InvertedIndexConfig{
			IndexNullState:  true,
			IndexTimestamps: true,
		},
		Properties: []*models.Property{
			{
				Name:            "conversation_id",
				DataType:        []string{"text"},
				Description:     "Identifier of the conversation this message belongs to.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "assistant_id",
				DataType:        []string{"text"},
				Description:     "Identifier of the assistant serving the conversation.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "role",
				DataType:        []string{"text"},
				Description:     "Author role: 'user' or 'assistant'.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "The message text, or a serialized widget payload.",
				Tokenization: "word",
			},
			{
				Name:            "topic",
				DataType:        []string{"text"},
				Description:     "Detected topic label at the time of storage, if any.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "timestamp",
				DataType:        []string{"number"},
				Description:     "Unix milliseconds when the message was created.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

func GetAssistantDocumentSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       "AssistantDocument",
		Description: "A reference document chunk belonging to an assistant.",
		Vectorizer:  "none",
		InvertedIndexConfig: &models.InvertedIndexConfig{
			IndexNullState:  true,
			IndexTimestamps: true,
		},
		Properties: []*models.Property{
			{
				Name:            "assistant_id",
				DataType:        []string{"text"},
				Description:     "Identifier of the owning assistant.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "The chunk text.",
				Tokenization: "word",
			},
			{
				Name:            "source",
				DataType:        []string{"text"},
				Description:     "The original file or source of the chunk.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "topic",
				DataType:        []string{"text"},
				Description:     "Topic label the chunk is tagged with, if any.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "timestamp",
				DataType:        []string{"number"},
				Description:     "Unix milliseconds when the chunk was ingested.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

func GetAgentProfileSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       "AgentProfile",
		Description: "An agent profile indexed for embedding-similarity recommendation.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:            "agent_id",
				DataType:        []string{"text"},
				Description:     "Stable identifier of the agent.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:         "name",
				DataType:     []string{"text"},
				Description:  "Display name of the agent.",
				Tokenization: "word",
			},
			{
				Name:         "description",
				DataType:     []string{"text"},
				Description:  "What the agent does, used for embedding.",
				Tokenization: "word",
			},
			{
				Name:            "category",
				DataType:        []string{"text"},
				Description:     "Coarse category label.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:        "keywords",
				DataType:    []string{"text[]"},
				Description: "Free-form keywords describing the agent.",
			},
			{
				Name:            "stage",
				DataType:        []string{"text"},
				Description:     "Deployment stage the profile belongs to (e.g. 'myenv', 'prod').",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
		},
	}
}

func EnsureWeaviateSchema(client *weaviate.Client) {
	schemaGetters := []func() *models.Class{
		GetChatMessageSchema,
		GetAssistantDocumentSchema,
		GetAgentProfileSchema,
	}

	for _, getSchema := range schemaGetters {
		class := getSchema()
		slog.Info("Checking schema", "class", class.Class)

		// Check if the class already exists.
		_, err := client.Schema().ClassGetter().WithClassName(class.Class).Do(context.Background())
		if err != nil {
			// If it doesn't exist, the client returns an error. We can now create it.
			slog.Info("Schema not found, creating it...", "class", class.Class)
			err := client.Schema().ClassCreator().WithClass(class).Do(context.Background())
			if err != nil {
				// If we fail to create it, it's a fatal error.
				log.Fatalf("Failed to create schema for class %s: %v", class.Class, err)
			}
			slog.Info("Successfully created schema", "class", class.Class)
		} else {
			slog.Info("Schema already exists", "class", class.Class)
		}
	}
}
