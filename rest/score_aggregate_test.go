package rest

import (
	"strings"
	"testing"

	"speaking9/api/model"
)

func fb(overall float64) *model.Feedback {
	id := "fb"
	return &model.Feedback{ID: &id, Overall: &overall}
}

func TestAggregateBands(t *testing.T) {
	responses := []*scoredResponse{
		{ID: "r1", PartNumber: 1},
		{ID: "r2", PartNumber: 1},
		{ID: "r3", PartNumber: 2},
		{ID: "r4", PartNumber: 3},
		{ID: "r5", PartNumber: 3},
	}
	feedback := map[string]*model.Feedback{
		"r1": fb(6.0),
		"r2": fb(7.0),
		"r3": fb(7.5),
		"r4": fb(5.5),
		// r5 unscored, must not drag part 3 down
	}

	partBands, overall := aggregateBands(responses, feedback)

	if got := partBands["1"]; got != 6.5 {
		t.Errorf("expected part 1 band 6.5, got %v", got)
	}
	if got := partBands["2"]; got != 7.5 {
		t.Errorf("expected part 2 band 7.5, got %v", got)
	}
	if got := partBands["3"]; got != 5.5 {
		t.Errorf("expected part 3 band 5.5, got %v", got)
	}
	// mean of 6.0, 7.0, 7.5, 5.5 = 6.5
	if overall != 6.5 {
		t.Errorf("expected overall 6.5, got %v", overall)
	}
}

func TestAggregateBandsRoundsTiesUp(t *testing.T) {
	responses := []*scoredResponse{
		{ID: "r1", PartNumber: 1},
		{ID: "r2", PartNumber: 1},
	}
	feedback := map[string]*model.Feedback{
		"r1": fb(6.0),
		"r2": fb(6.5),
	}

	partBands, overall := aggregateBands(responses, feedback)

	// mean 6.25 rounds up to 6.5
	if got := partBands["1"]; got != 6.5 {
		t.Errorf("expected part 1 band 6.5, got %v", got)
	}
	if overall != 6.5 {
		t.Errorf("expected overall 6.5, got %v", overall)
	}
}

func TestAggregateBandsNoFeedback(t *testing.T) {
	responses := []*scoredResponse{{ID: "r1", PartNumber: 1}}

	partBands, overall := aggregateBands(responses, map[string]*model.Feedback{})

	if len(partBands) != 0 {
		t.Errorf("expected no part bands, got %v", partBands)
	}
	if overall != 0 {
		t.Errorf("expected zero overall, got %v", overall)
	}
}

func TestAggregateSummary(t *testing.T) {
	summary := aggregateSummary(6.5, map[string]float64{"2": 7.0, "1": 6.0}, 5, 1)

	if !strings.Contains(summary, "overall band 6.5") {
		t.Errorf("summary missing overall band: %q", summary)
	}
	if !strings.Contains(summary, "5 scored answers") {
		t.Errorf("summary missing scored count: %q", summary)
	}
	// parts are listed in order
	p1 := strings.Index(summary, "Part 1: 6.0.")
	p2 := strings.Index(summary, "Part 2: 7.0.")
	if p1 < 0 || p2 < 0 || p1 > p2 {
		t.Errorf("summary part listing wrong: %q", summary)
	}
	if !strings.Contains(summary, "1 answers could not be scored") {
		t.Errorf("summary missing failure note: %q", summary)
	}
}

func TestAggregateSummaryNoFailures(t *testing.T) {
	summary := aggregateSummary(7.0, map[string]float64{"1": 7.0}, 2, 0)

	if strings.Contains(summary, "could not be scored") {
		t.Errorf("summary should not mention failures: %q", summary)
	}
}
