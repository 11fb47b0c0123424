package model

// TestResult is the persisted aggregate for one user's completed test.
// PartBands maps part number ("1".."3") to that part's mean overall band.
type TestResult struct {
	ID          *string            `json:"id,omitempty" db:"id"`
	UserID      *string            `json:"user_id,omitempty" db:"user_id"`
	TestID      *string            `json:"test_id,omitempty" db:"test_id"`
	OverallBand *float64           `json:"overall_band,omitempty" db:"overall_band"`
	PartBands   map[string]float64 `json:"part_bands,omitempty" db:"part_bands"`
	Summary     *string            `json:"summary,omitempty" db:"summary"`
	CreatedAt   *string            `json:"created_at,omitempty" db:"created_at"`
}
