package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskDispatchCycle = "dispatch.cycle"

// DispatchCyclePayload carries the attempt number so a scheduled retry
// resumes the backoff curve after a process restart.
type DispatchCyclePayload struct {
	InterventionID string `json:"interventionId"`
	Attempt        int    `json:"attempt"`
}

func NewDispatchCycleTask(payload DispatchCyclePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDispatchCycle, data), nil
}

func ParseDispatchCyclePayload(task *asynq.Task) (DispatchCyclePayload, error) {
	var payload DispatchCyclePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DispatchCyclePayload{}, err
	}
	return payload, nil
}
