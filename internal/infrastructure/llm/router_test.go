package llm_test

import (
	"context"
	"testing"

	"github.com/booksage/booksage-recommend/internal/domain/repository"
	"github.com/booksage/booksage-recommend/internal/infrastructure/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient implements the repository.LLMClient interface for testing.
type mockClient struct {
	name string
}

func (m *mockClient) Generate(ctx context.Context, prompt string) (string, error) {
	return "Mock response from: " + m.name, nil
}

func (m *mockClient) Name() string {
	return m.name
}

func TestLLMRouter(t *testing.T) {
	localMock := &mockClient{name: "local_ollama"}
	geminiMock := &mockClient{name: "gemini_api"}

	tests := []struct {
		name         string
		router       *llm.Router
		taskType     repository.TaskType
		expectedName string
	}{
		{
			name:         "Ranking should route to Gemini",
			router:       llm.NewRouter(localMock, geminiMock),
			taskType:     llm.TaskRecommendationRanking,
			expectedName: "gemini_api",
		},
		{
			name:         "Unknown tasks should default to Local",
			router:       llm.NewRouter(localMock, geminiMock),
			taskType:     repository.TaskType("unknown_task_123"),
			expectedName: "local_ollama",
		},
		{
			name:         "Local-only mode routes ranking to Local",
			router:       llm.NewRouter(localMock, nil),
			taskType:     llm.TaskRecommendationRanking,
			expectedName: "local_ollama",
		},
		{
			name:         "Missing local backend falls back to Gemini",
			router:       llm.NewRouter(nil, geminiMock),
			taskType:     repository.TaskType("unknown_task_123"),
			expectedName: "gemini_api",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := tt.router.RouteLLMTask(tt.taskType)
			require.NotNil(t, client)
			assert.Equal(t, tt.expectedName, client.Name())
		})
	}
}

func TestLLMRouter_NoBackends(t *testing.T) {
	assert.Nil(t, llm.NewRouter(nil, nil).RouteLLMTask(llm.TaskRecommendationRanking))
}
