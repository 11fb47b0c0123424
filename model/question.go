package model

type Question struct {
	ID           *string `json:"id,omitempty" db:"id"`
	PartID       *string `json:"part_id,omitempty" db:"part_id"`
	SortOrder    *int32  `json:"sort_order,omitempty" db:"sort_order"`
	QuestionText *string `json:"question_text,omitempty" db:"question_text"`
	Topic        *string `json:"topic,omitempty" db:"topic"`
}
