package logger

// Data models the successful response payload.
type Data struct {
	Response string `json:"response" doc:"The timestamped message" example:"[2024-01-15T10:30:00.000Z] Hello, logger!"`
}

// CreateOutput wraps Data for huma.
type CreateOutput struct {
	Body Data
}
