// Copyright (C) 2025 WAGMI Tech (dev@upwagmitec.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/assistant"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/retrieval"
	"github.com/wagmi-upschool/up-ai-sub000/services/orchestrator/topic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type retrieverFunc func(ctx context.Context, query string) ([]retrieval.ScoredNode, error)

func (f retrieverFunc) Retrieve(ctx context.Context, query string) ([]retrieval.ScoredNode, error) {
	return f(ctx, query)
}

type optionsFunc func(ctx context.Context, assistantID string) ([]assistant.InputOption, error)

func (f optionsFunc) Options(ctx context.Context, assistantID string) ([]assistant.InputOption, error) {
	return f(ctx, assistantID)
}

func staticOptions(labels ...string) optionsFunc {
	options := make([]assistant.InputOption, 0, len(labels))
	for _, label := range labels {
		options = append(options, assistant.InputOption{Text: label})
	}
	return func(context.Context, string) ([]assistant.InputOption, error) {
		return options, nil
	}
}

func docNode(text, topicLabel string) retrieval.ScoredNode {
	return retrieval.ScoredNode{
		Text:  text,
		Score: 0.9,
		Metadata: retrieval.NodeMetadata{
			AssistantID: "asst_1",
			Topic:       topicLabel,
			Source:      "assistant_documents",
		},
	}
}

func historyNode(role, text string, ts int64) retrieval.ScoredNode {
	return retrieval.ScoredNode{
		Text:  text,
		Score: 0.8,
		Metadata: retrieval.NodeMetadata{
			ConversationID: "conv_1",
			Role:           role,
			Timestamp:      ts,
			Source:         "chat_history",
		},
	}
}

func retrieveBody(t *testing.T, query string) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"query":          query,
		"conversationId": "conv_1",
		"assistantId":    "asst_1",
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func postRetrieve(router *gin.Engine, body *bytes.Buffer) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/retrieve", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// Tests
// =============================================================================

func TestHandleRetrieveFiltersByQueryTopic(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var documentTopics []string
	factory := RetrieverFactory{
		History: func(conversationID string) retrieval.Retriever {
			assert.Equal(t, "conv_1", conversationID)
			return retrieverFunc(func(context.Context, string) ([]retrieval.ScoredNode, error) {
				return []retrieval.ScoredNode{historyNode("user", "merhaba", 1)}, nil
			})
		},
		Document: func(assistantID, topicLabel string) retrieval.Retriever {
			documentTopics = append(documentTopics, topicLabel)
			return retrieverFunc(func(context.Context, string) ([]retrieval.ScoredNode, error) {
				return []retrieval.ScoredNode{docNode("liderlik notu", topicLabel)}, nil
			})
		},
	}
	detector := topic.NewDetector(topic.KeywordClassifier{}, nil)

	router := gin.New()
	router.POST("/retrieve", HandleRetrieve(factory, detector, staticOptions("Liderlik", "Problem çözme")))

	w := postRetrieve(router, retrieveBody(t, "Liderlik hakkında konuşalım"))
	require.Equal(t, http.StatusOK, w.Code)

	var response RetrieveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Liderlik", response.Topic)
	assert.Equal(t, 2, response.TotalFound)
	require.Len(t, response.Results, 2)
	assert.Equal(t, "liderlik notu", response.Results[0].Text)
	assert.Equal(t, "merhaba", response.Results[1].Text)

	// Both the filtered and the unfiltered document retriever are built;
	// only the filtered one should have been queried.
	assert.Equal(t, []string{"Liderlik", ""}, documentTopics)
}

func TestHandleRetrieveRecoversTopicFromHistory(t *testing.T) {
	gin.SetMode(gin.TestMode)

	factory := RetrieverFactory{
		History: func(string) retrieval.Retriever {
			return retrieverFunc(func(context.Context, string) ([]retrieval.ScoredNode, error) {
				return []retrieval.ScoredNode{
					historyNode("user", "Problem çözme üzerine çalışalım", 2),
					historyNode("assistant", "tabii", 3),
				}, nil
			})
		},
		Document: func(_, topicLabel string) retrieval.Retriever {
			return retrieverFunc(func(context.Context, string) ([]retrieval.ScoredNode, error) {
				return []retrieval.ScoredNode{docNode("doc", topicLabel)}, nil
			})
		},
	}
	detector := topic.NewDetector(topic.KeywordClassifier{}, nil)

	router := gin.New()
	router.POST("/retrieve", HandleRetrieve(factory, detector, staticOptions("Liderlik", "Problem çözme")))

	w := postRetrieve(router, retrieveBody(t, "devam edelim"))
	require.Equal(t, http.StatusOK, w.Code)

	var response RetrieveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Problem çözme", response.Topic)
}

func TestHandleRetrieveNoTopicMeansNoFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var documentTopics []string
	factory := RetrieverFactory{
		History: func(string) retrieval.Retriever {
			return retrieverFunc(func(context.Context, string) ([]retrieval.ScoredNode, error) {
				return []retrieval.ScoredNode{}, nil
			})
		},
		Document: func(_, topicLabel string) retrieval.Retriever {
			documentTopics = append(documentTopics, topicLabel)
			return retrieverFunc(func(context.Context, string) ([]retrieval.ScoredNode, error) {
				return []retrieval.ScoredNode{docNode("doc", "")}, nil
			})
		},
	}
	detector := topic.NewDetector(topic.KeywordClassifier{}, nil)

	router := gin.New()
	router.POST("/retrieve", HandleRetrieve(factory, detector, staticOptions("Liderlik")))

	w := postRetrieve(router, retrieveBody(t, "alakasız bir soru"))
	require.Equal(t, http.StatusOK, w.Code)

	var response RetrieveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "", response.Topic)
	assert.Equal(t, []string{""}, documentTopics)
}

func TestHandleRetrieveToleratesHistoryFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	factory := RetrieverFactory{
		History: func(string) retrieval.Retriever {
			return retrieverFunc(func(context.Context, string) ([]retrieval.ScoredNode, error) {
				return nil, fmt.Errorf("weaviate down")
			})
		},
		Document: func(_, topicLabel string) retrieval.Retriever {
			return retrieverFunc(func(context.Context, string) ([]retrieval.ScoredNode, error) {
				return []retrieval.ScoredNode{docNode("doc", topicLabel)}, nil
			})
		},
	}
	detector := topic.NewDetector(topic.KeywordClassifier{}, nil)

	router := gin.New()
	router.POST("/retrieve", HandleRetrieve(factory, detector, staticOptions("Liderlik")))

	w := postRetrieve(router, retrieveBody(t, "Liderlik nedir"))
	require.Equal(t, http.StatusOK, w.Code)

	var response RetrieveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Liderlik", response.Topic)
	assert.Equal(t, 1, response.TotalFound)
}

func TestHandleRetrieveToleratesCatalogueFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	factory := RetrieverFactory{
		History: func(string) retrieval.Retriever {
			return retrieverFunc(func(context.Context, string) ([]retrieval.ScoredNode, error) {
				return []retrieval.ScoredNode{}, nil
			})
		},
		Document: func(_, topicLabel string) retrieval.Retriever {
			return retrieverFunc(func(context.Context, string) ([]retrieval.ScoredNode, error) {
				return []retrieval.ScoredNode{docNode("doc", topicLabel)}, nil
			})
		},
	}
	detector := topic.NewDetector(topic.KeywordClassifier{}, nil)
	broken := optionsFunc(func(context.Context, string) ([]assistant.InputOption, error) {
		return nil, fmt.Errorf("options service down")
	})

	router := gin.New()
	router.POST("/retrieve", HandleRetrieve(factory, detector, broken))

	w := postRetrieve(router, retrieveBody(t, "Liderlik nedir"))
	require.Equal(t, http.StatusOK, w.Code)

	var response RetrieveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "", response.Topic)
}

func TestHandleRetrieveRejectsInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/retrieve", HandleRetrieve(RetrieverFactory{}, topic.NewDetector(topic.KeywordClassifier{}, nil), nil))

	w := postRetrieve(router, bytes.NewBufferString(`{"query": ""}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRetrieveRejectsBlankConversationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/retrieve", HandleRetrieve(RetrieverFactory{}, topic.NewDetector(topic.KeywordClassifier{}, nil), nil))

	body := bytes.NewBufferString(`{"query": "soru", "conversationId": "   ", "assistantId": "asst_1"}`)
	w := postRetrieve(router, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
