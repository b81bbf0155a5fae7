package todos

import "time"

// CreateTodoArgs represents arguments for the create_todo tool
type CreateTodoArgs struct {
	Content string `json:"content" jsonschema:"required,minLength=1,maxLength=1000,description=Text of the todo item."`
}

// Todo represents the response for the create_todo tool
type Todo struct {
	ID        string    `json:"id" jsonschema:"required"`
	Content   string    `json:"content" jsonschema:"required"`
	CreatedAt time.Time `json:"createdAt" jsonschema:"required"`
	UpdatedAt time.Time `json:"updatedAt" jsonschema:"required"`
}
