package task

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/lucagalbu/task-manager/domain"
	"github.com/lucagalbu/task-manager/usecase"
)

// Operation names exposed through the dispatcher.
const (
	OperationQueryTask  = "queryTask"
	OperationAddTask    = "addTask"
	OperationRemoveTask = "rmTask"
	OperationUpdateTask = "updateTask"
)

type queryTaskVariables struct {
	ID *int64 `json:"id"`
}

type removeTaskVariables struct {
	ID *int64 `json:"id"`
}

type updateTaskVariables struct {
	ID *int64 `json:"id"`
	domain.TaskUpdate
}

// Register wires the task operations into the dispatcher.
func (uc *UseCase) Register(d *usecase.Dispatcher) {
	d.RegisterQuery(OperationQueryTask, func(ctx context.Context, variables json.RawMessage) (interface{}, error) {
		var vars queryTaskVariables
		if err := decodeVariables(variables, &vars); err != nil {
			return nil, err
		}
		return uc.QueryTasks(ctx, vars.ID)
	})

	d.RegisterMutation(OperationAddTask, func(ctx context.Context, variables json.RawMessage) (interface{}, error) {
		var input domain.TaskInput
		if err := decodeVariables(variables, &input); err != nil {
			return nil, err
		}
		return uc.AddTask(ctx, input)
	})

	d.RegisterMutation(OperationRemoveTask, func(ctx context.Context, variables json.RawMessage) (interface{}, error) {
		var vars removeTaskVariables
		if err := decodeVariables(variables, &vars); err != nil {
			return nil, err
		}
		if vars.ID == nil {
			return nil, ErrIDRequired
		}
		return uc.RemoveTask(ctx, *vars.ID)
	})

	d.RegisterMutation(OperationUpdateTask, func(ctx context.Context, variables json.RawMessage) (interface{}, error) {
		var vars updateTaskVariables
		if err := decodeVariables(variables, &vars); err != nil {
			return nil, err
		}
		if vars.ID == nil {
			return nil, ErrIDRequired
		}
		return uc.UpdateTask(ctx, *vars.ID, vars.TaskUpdate)
	})
}

// ErrIDRequired is returned when an operation needs a task id and none was supplied.
var ErrIDRequired = domain.NewError(domain.ErrCodeInvalid, "id is required")

// DecodePayload unmarshals a JSON document, keeping domain validation errors and
// classifying anything else as an invalid payload.
func DecodePayload(data []byte, out interface{}) error {
	return decodeVariables(data, out)
}

func decodeVariables(data json.RawMessage, out interface{}) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, out); err != nil {
		var dErr *domain.Error
		if errors.As(err, &dErr) {
			return err
		}
		return domain.WrapError(domain.ErrCodeInvalid, domain.ErrInvalidPayload.Message, err)
	}
	return nil
}
