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

// GetTests lists published tests with part and question counts.
func (rh *RESTHandler) GetTests(w http.ResponseWriter, r *http.Request) {
	var tests []*model.Test
	sql := `
		SELECT
			t.id, t.title, t.description, t.difficulty, t.is_published,
			to_char(t.created_at, 'YYYY-MM-DD"T"HH24:MI:SS.MSTZH:TZM') as created_at,
			(SELECT COUNT(*) FROM public.test_parts tp WHERE tp.test_id = t.id) AS part_count,
			(SELECT COUNT(*) FROM public.questions q
				JOIN public.test_parts tp ON q.part_id = tp.id
				WHERE tp.test_id = t.id) AS question_count
		FROM public.tests t
		WHERE t.is_published = true
		ORDER BY t.created_at DESC
	`
	err := pgxscan.Select(r.Context(), rh.DB, &tests, sql)
	if err != nil {
		log.Error().Err(err).Msg("Database err in GetTests")
		renderError(w, r, 500, "", "Database error while listing tests")
		return
	}

	renderData(w, r, map[string]interface{}{
		"tests": tests,
	})
}

// GetTest returns one published test with its parts and ordered questions.
func (rh *RESTHandler) GetTest(w http.ResponseWriter, r *http.Request) {
	testID := chi.URLParam(r, "testID")

	var test model.Test
	err := pgxscan.Get(
		r.Context(),
		rh.DB,
		&test,
		`SELECT t.id, t.title, t.description, t.difficulty, t.is_published,
	to_char(t.created_at, 'YYYY-MM-DD"T"HH24:MI:SS.MSTZH:TZM') as created_at
FROM public.tests t
WHERE t.id = $1 AND t.is_published = true`,
		testID,
	)
	if err != nil {
		if pgxscan.NotFound(err) {
			renderError(w, r, 404, "NOT_FOUND", "Test not found")
			return
		}
		log.Error().Err(err).Msg("Database err in GetTest")
		renderError(w, r, 500, "", "Database error while loading test")
		return
	}

	var parts []*model.TestPart
	err = pgxscan.Select(
		r.Context(),
		rh.DB,
		&parts,
		`SELECT tp.id, tp.test_id, tp.part_number, tp.title, tp.instructions,
	tp.preparation_seconds, tp.speaking_seconds
FROM public.test_parts tp
WHERE tp.test_id = $1
ORDER BY tp.part_number`,
		testID,
	)
	if err != nil {
		log.Error().Err(err).Msg("Database err while loading parts in GetTest")
		renderError(w, r, 500, "", "Database error while loading test parts")
		return
	}

	for _, part := range parts {
		if part.ID == nil {
			continue
		}
		questions, err := loader.GetQuestionsByPartID(r.Context(), *part.ID)
		if err != nil {
			log.Error().Err(err).Msg("Database err while loading questions in GetTest")
			renderError(w, r, 500, "", "Database error while loading test questions")
			return
		}
		part.Questions = questions
	}
	test.Parts = parts

	renderData(w, r, map[string]interface{}{
		"test": test,
	})
}

// GetTestProgress reports per-part answered/total counts for the authed user.
func (rh *RESTHandler) GetTestProgress(w http.ResponseWriter, r *http.Request) {
	authedUser := auth.AuthedUserContext(r.Context())
	if authedUser == nil {
		renderError(w, r, 401, "NOT_AUTHED", "You are not signed in")
		return
	}

	testID := chi.URLParam(r, "testID")

	var progress []*model.PartProgress
	err := pgxscan.Select(
		r.Context(),
		rh.DB,
		&progress,
		`SELECT tp.part_number,
	COUNT(q.id) AS total,
	COUNT(r.id) AS answered
FROM public.test_parts tp
JOIN public.questions q ON q.part_id = tp.id
LEFT JOIN public.responses r
	ON r.question_id = q.id
	AND r.user_id = $2
	AND r.status <> 'failed'
WHERE tp.test_id = $1
GROUP BY tp.part_number
ORDER BY tp.part_number`,
		testID,
		authedUser.ID,
	)
	if err != nil {
		log.Error().Err(err).Msg("Database err in GetTestProgress")
		renderError(w, r, 500, "", "Database error while loading progress")
		return
	}
	if len(progress) == 0 {
		renderError(w, r, 404, "NOT_FOUND", "Test not found")
		return
	}

	renderData(w, r, map[string]interface{}{
		"progress": progress,
	})
}
