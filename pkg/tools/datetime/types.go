package datetime

import "time"

// NoArgs takes no arguments.
type NoArgs struct{}

// CurrentDateTime represents the response for the get_current_datetime tool
type CurrentDateTime struct {
	CurrentDatetime time.Time `json:"current_datetime" jsonschema:"required"`
	Timezone        string    `json:"timezone,omitempty"`
}

// PlaintextArgs represents arguments for the plaintext conversion tools
type PlaintextArgs struct {
	InputDT string `json:"input_dt" jsonschema:"required,minLength=1,description=A date or time in plain text such as 2024-07-04 10:00 or next friday at 5pm."`
}

// DatetimeMillis represents the response for plaintext_datetime_to_millis
type DatetimeMillis struct {
	DatetimeMillis string `json:"datetime_millis" jsonschema:"required"`
}

// DatetimeSeconds represents the response for plaintext_datetime_to_seconds
type DatetimeSeconds struct {
	DatetimeSeconds string `json:"datetime_seconds" jsonschema:"required"`
}
