package model

// TestPart is one of the three sections of a speaking test:
// part 1 introduction, part 2 extended monologue, part 3 discussion.
type TestPart struct {
	ID                 *string     `json:"id,omitempty" db:"id"`
	TestID             *string     `json:"test_id,omitempty" db:"test_id"`
	PartNumber         *int32      `json:"part_number,omitempty" db:"part_number"`
	Title              *string     `json:"title,omitempty" db:"title"`
	Instructions       *string     `json:"instructions,omitempty" db:"instructions"`
	PreparationSeconds *int32      `json:"preparation_seconds,omitempty" db:"preparation_seconds"`
	SpeakingSeconds    *int32      `json:"speaking_seconds,omitempty" db:"speaking_seconds"`
	Questions          []*Question `json:"questions,omitempty"`
}
