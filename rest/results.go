package rest

import (
	"net/http"

	"speaking9/api/auth"
	"speaking9/api/loader"
	"speaking9/api/model"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// GetTestResults assembles the full result view for one test: every
// response with its question and feedback, plus the persisted aggregate
// if the test was scored as a whole.
func (rh *RESTHandler) GetTestResults(w http.ResponseWriter, r *http.Request) {
	authedUser := auth.AuthedUserContext(r.Context())
	if authedUser == nil {
		renderError(w, r, 401, "NOT_AUTHED", "You are not signed in")
		return
	}

	testID := chi.URLParam(r, "testID")

	var responses []*model.Response
	err := pgxscan.Select(
		r.Context(),
		rh.DB,
		&responses,
		`SELECT r.id, r.user_id, r.question_id, r.audio_url, r.transcript,
	r.status, r.duration_seconds,
	to_char(r.created_at, 'YYYY-MM-DD"T"HH24:MI:SS.MSTZH:TZM') as created_at,
	to_char(r.updated_at, 'YYYY-MM-DD"T"HH24:MI:SS.MSTZH:TZM') as updated_at
FROM public.responses r
JOIN public.questions q ON r.question_id = q.id
JOIN public.test_parts tp ON q.part_id = tp.id
WHERE tp.test_id = $1 AND r.user_id = $2
ORDER BY tp.part_number, q.sort_order`,
		testID,
		authedUser.ID,
	)
	if err != nil {
		log.Error().Err(err).Msg("Database err while loading responses in GetTestResults")
		renderError(w, r, 500, "", "Database error while loading results")
		return
	}
	if len(responses) == 0 {
		renderError(w, r, 404, "NOT_FOUND", "No responses for this test yet")
		return
	}

	// Dataloaders batch these into one query each despite the per-response loop.
	for _, resp := range responses {
		if resp.ID == nil || resp.QuestionID == nil {
			continue
		}
		question, err := loader.GetQuestion(r.Context(), *resp.QuestionID)
		if err == nil {
			resp.Question = question
		}
		feedback, err := loader.GetFeedbackByResponseID(r.Context(), *resp.ID)
		if err == nil && feedback != nil && feedback.ID != nil {
			resp.Feedback = feedback
		}
	}

	result, err := rh.loadTestResult(r, testID, *authedUser.ID)
	if err != nil {
		renderError(w, r, 500, "", "Database error while loading the test result")
		return
	}

	renderData(w, r, map[string]interface{}{
		"responses": responses,
		"result":    result,
	})
}

// loadTestResult returns the persisted aggregate or nil when the test has
// not been scored as a whole yet.
func (rh *RESTHandler) loadTestResult(r *http.Request, testID string, userID string) (*model.TestResult, error) {
	var result model.TestResult
	err := pgxscan.Get(
		r.Context(),
		rh.DB,
		&result,
		`SELECT id, user_id, test_id, overall_band, part_bands, summary,
	to_char(created_at, 'YYYY-MM-DD"T"HH24:MI:SS.MSTZH:TZM') as created_at
FROM public.test_results
WHERE test_id = $1 AND user_id = $2`,
		testID,
		userID,
	)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		log.Error().Err(err).Msg("Database err while loading test result")
		return nil, err
	}
	return &result, nil
}
