package model

type PartProgress struct {
	PartNumber *int32 `json:"part_number,omitempty" db:"part_number"`
	Answered   *int32 `json:"answered,omitempty" db:"answered"`
	Total      *int32 `json:"total,omitempty" db:"total"`
}
