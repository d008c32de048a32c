package scheduler

import (
	"encoding/json"

	"engage_backend/internal/ingestion/transport"

	"github.com/hibiken/asynq"
)

const TaskIngestBatch = "ingestion.batch"

const TaskAnalyzeInteraction = "analysis.interaction"

const TaskStatsReconcile = "stats.reconcile"

// IngestBatchPayload carries one normalized batch through the queue.
type IngestBatchPayload struct {
	Batch transport.IngestBatchRequest `json:"batch"`
}

// AnalyzeInteractionPayload names one committed interaction to classify.
type AnalyzeInteractionPayload struct {
	TenantID      string `json:"tenantId"`
	InteractionID string `json:"interactionId"`
}

func NewIngestBatchTask(payload IngestBatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIngestBatch, data), nil
}

func ParseIngestBatchPayload(task *asynq.Task) (IngestBatchPayload, error) {
	var payload IngestBatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return IngestBatchPayload{}, err
	}
	return payload, nil
}

func NewAnalyzeInteractionTask(payload AnalyzeInteractionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyzeInteraction, data), nil
}

func ParseAnalyzeInteractionPayload(task *asynq.Task) (AnalyzeInteractionPayload, error) {
	var payload AnalyzeInteractionPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AnalyzeInteractionPayload{}, err
	}
	return payload, nil
}

func NewStatsReconcileTask() *asynq.Task {
	return asynq.NewTask(TaskStatsReconcile, nil)
}
