// Package todos implements the todo tool.
package todos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hamzaessahbaoui/taskpilot/pkg/backend"
	"github.com/hamzaessahbaoui/taskpilot/toolkit"
)

const createTodoMutation = `
mutation CreateTodo($input: CreateTodoInput!) {
    createTodo(input: $input) {
        id
        content
        createdAt
        updatedAt
    }
}`

type Service struct {
	backend backend.Runner
}

func NewService(r backend.Runner) *Service {
	return &Service{backend: r}
}

func (s *Service) CreateTodo(ctx context.Context, args CreateTodoArgs) (Todo, error) {
	var out struct {
		CreateTodo *Todo `json:"createTodo"`
	}
	if err := s.backend.Run(ctx, createTodoMutation, map[string]interface{}{"input": args}, &out); err != nil {
		return Todo{}, errors.Wrap(err, "create todo")
	}
	if out.CreateTodo == nil {
		return Todo{}, errors.New("create todo: backend returned no todo")
	}
	return *out.CreateTodo, nil
}

func (s *Service) Tools() []toolkit.Tool {
	return []toolkit.Tool{
		toolkit.NewTool("create_todo", "Creates a new Todo item and sends it to the GraphQL API.", s.CreateTodo),
	}
}
