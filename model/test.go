package model

type Test struct {
	ID            *string     `json:"id,omitempty" db:"id"`
	Title         *string     `json:"title,omitempty" db:"title"`
	Description   *string     `json:"description,omitempty" db:"description"`
	Difficulty    *string     `json:"difficulty,omitempty" db:"difficulty"`
	IsPublished   *bool       `json:"is_published,omitempty" db:"is_published"`
	CreatedAt     *string     `json:"created_at,omitempty" db:"created_at"`
	PartCount     *int32      `json:"part_count,omitempty" db:"part_count"`
	QuestionCount *int32      `json:"question_count,omitempty" db:"question_count"`
	Parts         []*TestPart `json:"parts,omitempty"`
}
