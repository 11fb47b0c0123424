package rest

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"speaking9/api/auth"
	"speaking9/api/model"
	"speaking9/api/scoring"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/rs/zerolog/log"
)

type ScoreReqBody struct {
	ResponseID string `json:"response_id"`
	QuestionID string `json:"question_id"`
	Transcript string `json:"transcript"`
}

// scoredResponse is one response joined with its question context for scoring.
type scoredResponse struct {
	ID           string  `db:"id"`
	QuestionID   string  `db:"question_id"`
	Transcript   *string `db:"transcript"`
	QuestionText string  `db:"question_text"`
	Topic        string  `db:"topic"`
	PartNumber   int     `db:"part_number"`
}

// Score evaluates one transcript and persists the feedback row. Callers
// either reference an existing response or send a question_id plus the
// transcript directly (the client keeps transcripts locally during a test).
func (rh *RESTHandler) Score(w http.ResponseWriter, r *http.Request) {
	authedUser := auth.AuthedUserContext(r.Context())
	if authedUser == nil {
		renderError(w, r, 401, "NOT_AUTHED", "You must be signed in to request scoring")
		return
	}

	var reqBody ScoreReqBody
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		renderError(w, r, 400, "", "Error parsing JSON")
		return
	}

	var target scoredResponse
	switch {
	case reqBody.ResponseID != "":
		err := pgxscan.Get(
			r.Context(),
			rh.DB,
			&target,
			`SELECT r.id, r.question_id, r.transcript,
	q.question_text, coalesce(q.topic, '') as topic, tp.part_number
FROM public.responses r
JOIN public.questions q ON r.question_id = q.id
JOIN public.test_parts tp ON q.part_id = tp.id
WHERE r.id = $1 AND r.user_id = $2`,
			reqBody.ResponseID,
			authedUser.ID,
		)
		if err != nil {
			if pgxscan.NotFound(err) {
				renderError(w, r, 404, "NOT_FOUND", "Response not found")
				return
			}
			log.Error().Err(err).Msg("Database err while loading response in Score")
			renderError(w, r, 500, "", "Database error while loading response")
			return
		}
	case reqBody.QuestionID != "":
		var question questionContext
		err := pgxscan.Get(r.Context(), rh.DB, &question, questionContextSQL, reqBody.QuestionID)
		if err != nil {
			if pgxscan.NotFound(err) {
				renderError(w, r, 404, "NOT_FOUND", "Question not found")
				return
			}
			log.Error().Err(err).Msg("Database err while loading question in Score")
			renderError(w, r, 500, "", "Database error while loading question")
			return
		}

		if strings.TrimSpace(reqBody.Transcript) == "" {
			renderError(w, r, 400, "SCORING_FAILED", "Transcript is empty, nothing to score")
			return
		}

		var responseID string
		err = pgxscan.Get(
			r.Context(),
			rh.DB,
			&responseID,
			upsertResponseSQL,
			authedUser.ID, question.ID, nil, reqBody.Transcript, model.ResponseStatusTranscribed, 0,
		)
		if err != nil {
			log.Error().Err(err).Msg("Database err while saving transcript in Score")
			renderError(w, r, 500, "", "Database error while saving transcript")
			return
		}

		target = scoredResponse{
			ID:           responseID,
			QuestionID:   question.ID,
			Transcript:   &reqBody.Transcript,
			QuestionText: question.QuestionText,
			Topic:        question.Topic,
			PartNumber:   question.PartNumber,
		}
	default:
		renderError(w, r, 400, "", "Missing response_id or question_id")
		return
	}

	if target.Transcript == nil || strings.TrimSpace(*target.Transcript) == "" {
		renderError(w, r, 400, "SCORING_FAILED", "Transcript is empty, nothing to score")
		return
	}

	feedback, err := rh.scoreResponse(r, target)
	if err != nil {
		renderError(w, r, 502, "SCORING_FAILED", "Failed to score the response")
		return
	}

	renderData(w, r, map[string]interface{}{
		"feedback": feedback,
	})
}

// scoreResponse runs one evaluation and upserts the feedback row,
// transitioning the response to scored. Idempotent per response.
func (rh *RESTHandler) scoreResponse(r *http.Request, target scoredResponse) (*model.Feedback, error) {
	rh.Metrics.ScoringRequests.Inc()
	startTime := time.Now()
	eval, err := rh.Scorer.Evaluate(r.Context(), scoring.EvaluationRequest{
		PartNumber:   target.PartNumber,
		QuestionText: target.QuestionText,
		Topic:        target.Topic,
		Transcript:   *target.Transcript,
	})
	rh.Metrics.ScoringDuration.Observe(time.Since(startTime).Seconds())
	if err != nil {
		rh.Metrics.ScoringFailures.Inc()
		log.Error().Err(err).Str("response_id", target.ID).Msg("Scoring call failed")

		_, dbErr := rh.DB.Exec(
			r.Context(),
			`UPDATE public.responses SET status = 'failed', updated_at = now() WHERE id = $1`,
			target.ID,
		)
		if dbErr != nil {
			log.Error().Err(dbErr).Msg("Database err while marking response failed after scoring error")
		}
		return nil, err
	}
	rh.Metrics.ScoringSuccesses.Inc()
	rh.Metrics.BandAwarded.Observe(eval.Overall)

	var feedback model.Feedback
	err = pgxscan.Get(
		r.Context(),
		rh.DB,
		&feedback,
		`WITH f AS (
	INSERT INTO public.feedback
		(response_id, fluency, lexical, grammar, pronunciation, overall, summary, model_name)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (response_id) DO UPDATE
	SET fluency = $2, lexical = $3, grammar = $4, pronunciation = $5,
		overall = $6, summary = $7, model_name = $8, created_at = now()
	RETURNING id, response_id, fluency, lexical, grammar, pronunciation,
		overall, summary, model_name,
		to_char(created_at, 'YYYY-MM-DD"T"HH24:MI:SS.MSTZH:TZM') as created_at
), r AS (
	UPDATE public.responses SET status = 'scored', updated_at = now()
	WHERE id = $1
) SELECT * FROM f`,
		target.ID,
		eval.Fluency, eval.Lexical, eval.Grammar, eval.Pronunciation,
		eval.Overall, eval.Summary, eval.Model,
	)
	if err != nil {
		log.Error().Err(err).Msg("Database err while saving feedback")
		return nil, err
	}

	return &feedback, nil
}
