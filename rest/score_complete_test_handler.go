package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"speaking9/api/auth"
	"speaking9/api/loader"
	"speaking9/api/model"
	"speaking9/api/scoring"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/rs/zerolog/log"
)

type ScoreCompleteTestReqBody struct {
	TestID string `json:"test_id"`
}

// ScoreCompleteTest scores every transcribed-but-unscored response of a
// whole test, then computes and persists the aggregate result: one band
// per part and the overall band.
func (rh *RESTHandler) ScoreCompleteTest(w http.ResponseWriter, r *http.Request) {
	authedUser := auth.AuthedUserContext(r.Context())
	if authedUser == nil {
		renderError(w, r, 401, "NOT_AUTHED", "You must be signed in to request scoring")
		return
	}

	var reqBody ScoreCompleteTestReqBody
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		renderError(w, r, 400, "", "Error parsing JSON")
		return
	}
	if reqBody.TestID == "" {
		renderError(w, r, 400, "", "Missing test_id")
		return
	}

	var responses []*scoredResponse
	err := pgxscan.Select(
		r.Context(),
		rh.DB,
		&responses,
		`SELECT r.id, r.question_id, r.transcript,
	q.question_text, coalesce(q.topic, '') as topic, tp.part_number
FROM public.responses r
JOIN public.questions q ON r.question_id = q.id
JOIN public.test_parts tp ON q.part_id = tp.id
WHERE tp.test_id = $1 AND r.user_id = $2
	AND r.transcript IS NOT NULL AND btrim(r.transcript) <> ''
ORDER BY tp.part_number, q.sort_order`,
		reqBody.TestID,
		authedUser.ID,
	)
	if err != nil {
		log.Error().Err(err).Msg("Database err while loading responses in ScoreCompleteTest")
		renderError(w, r, 500, "", "Database error while loading responses")
		return
	}
	if len(responses) == 0 {
		renderError(w, r, 400, "SCORING_FAILED", "No transcribed responses for this test yet")
		return
	}

	responseIDs := make([]string, len(responses))
	for i, resp := range responses {
		responseIDs[i] = resp.ID
	}
	existing, err := loader.GetFeedbackByResponseIDs(r.Context(), responseIDs)
	if err != nil {
		log.Error().Err(err).Msg("Database err while loading feedback in ScoreCompleteTest")
		renderError(w, r, 500, "", "Database error while loading feedback")
		return
	}

	// Score whatever is missing; already-scored responses are kept as is so
	// retrying a partially failed batch only pays for the remainder.
	feedbackByResponse := make(map[string]*model.Feedback, len(responses))
	for i, fb := range existing {
		if fb != nil && fb.ID != nil {
			feedbackByResponse[responseIDs[i]] = fb
		}
	}

	var failed int
	for _, resp := range responses {
		if _, ok := feedbackByResponse[resp.ID]; ok {
			continue
		}
		fb, err := rh.scoreResponse(r, *resp)
		if err != nil {
			failed++
			continue
		}
		feedbackByResponse[resp.ID] = fb
	}

	if len(feedbackByResponse) == 0 {
		renderError(w, r, 502, "SCORING_FAILED", "Failed to score any response of this test")
		return
	}

	partBands, overall := aggregateBands(responses, feedbackByResponse)
	summary := aggregateSummary(overall, partBands, len(feedbackByResponse), failed)

	partBandsJSON, err := json.Marshal(partBands)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal part bands in ScoreCompleteTest")
		renderError(w, r, 500, "", "Failed to assemble the test result")
		return
	}

	var result model.TestResult
	err = pgxscan.Get(
		r.Context(),
		rh.DB,
		&result,
		`INSERT INTO public.test_results (user_id, test_id, overall_band, part_bands, summary)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, test_id) DO UPDATE
SET overall_band = $3, part_bands = $4, summary = $5, created_at = now()
RETURNING id, user_id, test_id, overall_band, part_bands, summary,
	to_char(created_at, 'YYYY-MM-DD"T"HH24:MI:SS.MSTZH:TZM') as created_at`,
		authedUser.ID,
		reqBody.TestID,
		overall,
		partBandsJSON,
		summary,
	)
	if err != nil {
		log.Error().Err(err).Msg("Database err while saving test result in ScoreCompleteTest")
		renderError(w, r, 500, "", "Database error while saving the test result")
		return
	}

	rh.Metrics.TestsCompleted.Inc()

	renderData(w, r, map[string]interface{}{
		"result":          result,
		"feedback":        feedbackByResponse,
		"failed_to_score": failed,
	})
}

// aggregateBands computes the per-part mean overall band and the test
// overall band (mean of response overalls, rounded to the nearest 0.5).
func aggregateBands(responses []*scoredResponse, feedbackByResponse map[string]*model.Feedback) (map[string]float64, float64) {
	partSums := make(map[int]float64)
	partCounts := make(map[int]int)
	var all []float64

	for _, resp := range responses {
		fb, ok := feedbackByResponse[resp.ID]
		if !ok || fb.Overall == nil {
			continue
		}
		partSums[resp.PartNumber] += *fb.Overall
		partCounts[resp.PartNumber]++
		all = append(all, *fb.Overall)
	}

	partBands := make(map[string]float64, len(partSums))
	for part, sum := range partSums {
		partBands[strconv.Itoa(part)] = scoring.RoundToBand(sum / float64(partCounts[part]))
	}

	return partBands, scoring.OverallBand(all...)
}

func aggregateSummary(overall float64, partBands map[string]float64, scored int, failed int) string {
	parts := make([]string, 0, len(partBands))
	for part := range partBands {
		parts = append(parts, part)
	}
	sort.Strings(parts)

	var b strings.Builder
	fmt.Fprintf(&b, "Estimated overall band %.1f across %d scored answers.", overall, scored)
	for _, part := range parts {
		fmt.Fprintf(&b, " Part %s: %.1f.", part, partBands[part])
	}
	if failed > 0 {
		fmt.Fprintf(&b, " %d answers could not be scored.", failed)
	}
	return b.String()
}
