// Package tasks implements the task CRUD tools on top of the GraphQL backend.
package tasks

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/hamzaessahbaoui/taskpilot/pkg/backend"
	"github.com/hamzaessahbaoui/taskpilot/toolkit"
)

const taskFields = `
    id
    name
    description
    estimated_time_mins
    priority
    tags
    scheduled_date_utc
    createdAt
    updatedAt`

const (
	createTaskMutation = `
mutation CreateTask($input: CreateTaskInput!) {
  createTask(input: $input) {` + taskFields + `
  }
}`

	listTasksQuery = `
query ListTasks {
  listTasks {
    items {` + taskFields + `
    }
  }
}`

	deleteTaskMutation = `
mutation DeleteTask($input: DeleteTaskInput!) {
  deleteTask(input: $input) {` + taskFields + `
  }
}`

	updateTaskMutation = `
mutation UpdateTask($input: UpdateTaskInput!) {
  updateTask(input: $input) {` + taskFields + `
  }
}`
)

type Service struct {
	backend backend.Runner
}

func NewService(r backend.Runner) *Service {
	return &Service{backend: r}
}

// --- Core Logic Functions ---

// CreateTask creates a task. Omitted optional fields are not sent.
func (s *Service) CreateTask(ctx context.Context, args CreateTaskArgs) (Task, error) {
	log.Debug().Str("name", args.Name).Msg("creating task")
	var out struct {
		CreateTask *Task `json:"createTask"`
	}
	if err := s.backend.Run(ctx, createTaskMutation, map[string]interface{}{"input": args}, &out); err != nil {
		return Task{}, errors.Wrap(err, "create task")
	}
	if out.CreateTask == nil {
		return Task{}, errors.New("create task: backend returned no task")
	}
	return *out.CreateTask, nil
}

func (s *Service) ListTasks(ctx context.Context, _ ListTasksArgs) (TaskList, error) {
	var out struct {
		ListTasks struct {
			Items []Task `json:"items"`
		} `json:"listTasks"`
	}
	if err := s.backend.Run(ctx, listTasksQuery, nil, &out); err != nil {
		return TaskList{}, errors.Wrap(err, "list tasks")
	}
	items := out.ListTasks.Items
	if items == nil {
		items = []Task{}
	}
	return TaskList{Tasks: items}, nil
}

func (s *Service) DeleteTask(ctx context.Context, args TaskIDArgs) (Task, error) {
	log.Debug().Str("id", args.ID).Msg("deleting task")
	var out struct {
		DeleteTask *Task `json:"deleteTask"`
	}
	if err := s.backend.Run(ctx, deleteTaskMutation, map[string]interface{}{"input": args}, &out); err != nil {
		return Task{}, errors.Wrapf(err, "delete task %s", args.ID)
	}
	if out.DeleteTask == nil {
		return Task{}, toolkit.NewError("not_found", "no task with id "+args.ID)
	}
	return *out.DeleteTask, nil
}

func (s *Service) UpdateTask(ctx context.Context, args UpdateTaskArgs) (Task, error) {
	log.Debug().Str("id", args.ID).Msg("updating task")
	var out struct {
		UpdateTask *Task `json:"updateTask"`
	}
	if err := s.backend.Run(ctx, updateTaskMutation, map[string]interface{}{"input": args}, &out); err != nil {
		return Task{}, errors.Wrapf(err, "update task %s", args.ID)
	}
	if out.UpdateTask == nil {
		return Task{}, toolkit.NewError("not_found", "no task with id "+args.ID)
	}
	return *out.UpdateTask, nil
}

// Tools returns the task tools in the order they are advertised.
func (s *Service) Tools() []toolkit.Tool {
	return []toolkit.Tool{
		toolkit.NewTool("create_task", "Creates a new Task and sends it to the GraphQL API.", s.CreateTask),
		toolkit.NewTool("list_tasks", "Lists all Tasks from the GraphQL API.", s.ListTasks),
		toolkit.NewTool("delete_task", "Deletes a Task from the GraphQL API.", s.DeleteTask),
		toolkit.NewTool("update_task", "Updates an existing Task in the GraphQL API.", s.UpdateTask),
	}
}
