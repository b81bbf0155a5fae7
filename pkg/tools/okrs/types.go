package okrs

import "time"

// OKR is an objective with its key results as returned by the backend.
type OKR struct {
	ID          string    `json:"id" jsonschema:"required"`
	Title       string    `json:"title" jsonschema:"required"`
	Description string    `json:"description" jsonschema:"required"`
	CreatedAt   time.Time `json:"createdAt" jsonschema:"required"`
	UpdatedAt   time.Time `json:"updatedAt" jsonschema:"required"`
}

// CreateOKRArgs represents arguments for the create_okr tool
type CreateOKRArgs struct {
	Title       string `json:"title" jsonschema:"required,minLength=1,maxLength=200,description=Objective title."`
	Description string `json:"description" jsonschema:"required,minLength=1,maxLength=1000,description=Objective description and key results."`
}

// ListOKRsArgs takes no arguments.
type ListOKRsArgs struct{}

// OKRList represents the response for the list_okrs tool
type OKRList struct {
	OKRs []OKR `json:"okrs" jsonschema:"required"`
}
