package model

// Feedback holds the per-criterion band scores (0.0-9.0 in 0.5 steps)
// produced by the scoring model for one response.
type Feedback struct {
	ID            *string  `json:"id,omitempty" db:"id"`
	ResponseID    *string  `json:"response_id,omitempty" db:"response_id"`
	Fluency       *float64 `json:"fluency,omitempty" db:"fluency"`
	Lexical       *float64 `json:"lexical,omitempty" db:"lexical"`
	Grammar       *float64 `json:"grammar,omitempty" db:"grammar"`
	Pronunciation *float64 `json:"pronunciation,omitempty" db:"pronunciation"`
	Overall       *float64 `json:"overall,omitempty" db:"overall"`
	Summary       *string  `json:"summary,omitempty" db:"summary"`
	ModelName     *string  `json:"model_name,omitempty" db:"model_name"`
	CreatedAt     *string  `json:"created_at,omitempty" db:"created_at"`
}
