package llm

import (
	"github.com/booksage/booksage-recommend/internal/domain/repository"
	"github.com/booksage/booksage-recommend/internal/logging"
)

type TaskType = repository.TaskType

const (
	// TaskRecommendationRanking orders a candidate list and writes reasons.
	TaskRecommendationRanking TaskType = repository.TaskType("recommendation_ranking")
)

// Router determines the appropriate LLMClient for a task. A nil cloud
// client (local-only mode) routes everything to the local backend.
type Router struct {
	localClient  repository.LLMClient
	geminiClient repository.LLMClient
}

// NewRouter initializes the LLM router with the specified backend clients.
func NewRouter(local repository.LLMClient, gemini repository.LLMClient) *Router {
	return &Router{
		localClient:  local,
		geminiClient: gemini,
	}
}

// RouteLLMTask sends ranking to the cloud model when available and
// everything else to the local one.
func (r *Router) RouteLLMTask(task repository.TaskType) repository.LLMClient {
	selected := r.localClient
	if task == TaskRecommendationRanking && r.geminiClient != nil {
		selected = r.geminiClient
	}
	if selected == nil {
		selected = r.geminiClient
	}

	if selected != nil {
		log := logging.WithComponent("router")
		log.Debug().Str("task", string(task)).Str("backend", selected.Name()).Msg("[Router] routing task")
	}
	return selected
}
