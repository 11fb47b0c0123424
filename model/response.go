package model

type ResponseStatus string

const (
	ResponseStatusPending     ResponseStatus = "pending"
	ResponseStatusTranscribed ResponseStatus = "transcribed"
	ResponseStatusScored      ResponseStatus = "scored"
	ResponseStatusFailed      ResponseStatus = "failed"
)

// Response is one recorded answer for one question. A user has at most one
// response per question; re-recording replaces the previous one.
type Response struct {
	ID              *string         `json:"id,omitempty" db:"id"`
	UserID          *string         `json:"user_id,omitempty" db:"user_id"`
	QuestionID      *string         `json:"question_id,omitempty" db:"question_id"`
	AudioURL        *string         `json:"audio_url,omitempty" db:"audio_url"`
	Transcript      *string         `json:"transcript,omitempty" db:"transcript"`
	Status          *ResponseStatus `json:"status,omitempty" db:"status"`
	DurationSeconds *float64        `json:"duration_seconds,omitempty" db:"duration_seconds"`
	CreatedAt       *string         `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt       *string         `json:"updated_at,omitempty" db:"updated_at"`
	Question        *Question       `json:"question,omitempty"`
	Feedback        *Feedback       `json:"feedback,omitempty"`
}
