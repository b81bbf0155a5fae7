package tasks

import "time"

// Task is a task record as returned by the backend.
type Task struct {
	ID                string    `json:"id" jsonschema:"required"`
	Name              string    `json:"name" jsonschema:"required"`
	Description       *string   `json:"description,omitempty"`
	EstimatedTimeMins *int      `json:"estimated_time_mins,omitempty"`
	Priority          *int      `json:"priority,omitempty"`
	Tags              []string  `json:"tags,omitempty"`
	ScheduledDateUTC  *int64    `json:"scheduled_date_utc,omitempty"`
	CreatedAt         time.Time `json:"createdAt" jsonschema:"required"`
	UpdatedAt         time.Time `json:"updatedAt" jsonschema:"required"`
}

// CreateTaskArgs represents arguments for the create_task tool
type CreateTaskArgs struct {
	Name              string   `json:"name" jsonschema:"required,minLength=1,description=Short name of the task."`
	Description       *string  `json:"description,omitempty" jsonschema:"description=Longer free-form description."`
	EstimatedTimeMins *int     `json:"estimated_time_mins,omitempty" jsonschema:"minimum=0,description=Estimated effort in minutes."`
	Priority          *int     `json:"priority,omitempty" jsonschema:"description=Priority of the task where lower is more urgent."`
	Tags              []string `json:"tags,omitempty" jsonschema:"description=Free-form labels."`
	ScheduledDateUTC  *int64   `json:"scheduled_date_utc,omitempty" jsonschema:"description=Scheduled date as milliseconds since the Unix epoch (UTC)."`
}

// UpdateTaskArgs represents arguments for the update_task tool. Omitted fields
// are left unchanged.
type UpdateTaskArgs struct {
	ID                string   `json:"id" jsonschema:"required,minLength=1,description=Identifier of the task to update."`
	Name              *string  `json:"name,omitempty" jsonschema:"minLength=1"`
	Description       *string  `json:"description,omitempty"`
	EstimatedTimeMins *int     `json:"estimated_time_mins,omitempty" jsonschema:"minimum=0"`
	Priority          *int     `json:"priority,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	ScheduledDateUTC  *int64   `json:"scheduled_date_utc,omitempty"`
}

// TaskIDArgs represents arguments for the delete_task tool
type TaskIDArgs struct {
	ID string `json:"id" jsonschema:"required,minLength=1,description=Identifier of the task."`
}

// ListTasksArgs takes no arguments.
type ListTasksArgs struct{}

// TaskList represents the response for the list_tasks tool
type TaskList struct {
	Tasks []Task `json:"tasks" jsonschema:"required"`
}
