package rest

import (
	"fmt"
	"net/http"
	"strings"

	"speaking9/api/auth"
	"speaking9/api/report"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// reportRow joins one scored response with its question and feedback for
// the PDF report.
type reportRow struct {
	PartNumber    int     `db:"part_number"`
	QuestionText  string  `db:"question_text"`
	Transcript    *string `db:"transcript"`
	Fluency       float64 `db:"fluency"`
	Lexical       float64 `db:"lexical"`
	Grammar       float64 `db:"grammar"`
	Pronunciation float64 `db:"pronunciation"`
	Overall       float64 `db:"overall"`
	Summary       *string `db:"summary"`
}

// GetTestReport renders the feedback report PDF for a completed test.
// 404 until the test has an aggregate result.
func (rh *RESTHandler) GetTestReport(w http.ResponseWriter, r *http.Request) {
	authedUser := auth.AuthedUserContext(r.Context())
	if authedUser == nil {
		renderError(w, r, 401, "NOT_AUTHED", "You are not signed in")
		return
	}

	testID := chi.URLParam(r, "testID")

	result, err := rh.loadTestResult(r, testID, *authedUser.ID)
	if err != nil {
		renderError(w, r, 500, "", "Database error while loading the test result")
		return
	}
	if result == nil {
		renderError(w, r, 404, "NOT_FOUND", "This test has not been scored yet")
		return
	}

	var testTitle string
	err = pgxscan.Get(r.Context(), rh.DB, &testTitle,
		`SELECT title FROM public.tests WHERE id = $1`, testID)
	if err != nil {
		log.Error().Err(err).Msg("Database err while loading test title in GetTestReport")
		renderError(w, r, 500, "", "Database error while loading the test")
		return
	}

	var rows []*reportRow
	err = pgxscan.Select(
		r.Context(),
		rh.DB,
		&rows,
		`SELECT tp.part_number, q.question_text, r.transcript,
	f.fluency, f.lexical, f.grammar, f.pronunciation, f.overall, f.summary
FROM public.responses r
JOIN public.feedback f ON f.response_id = r.id
JOIN public.questions q ON r.question_id = q.id
JOIN public.test_parts tp ON q.part_id = tp.id
WHERE tp.test_id = $1 AND r.user_id = $2
ORDER BY tp.part_number, q.sort_order`,
		testID,
		authedUser.ID,
	)
	if err != nil {
		log.Error().Err(err).Msg("Database err while loading report rows in GetTestReport")
		renderError(w, r, 500, "", "Database error while loading feedback")
		return
	}

	displayName := ""
	if authedUser.DisplayName != nil {
		displayName = *authedUser.DisplayName
	}

	data := report.ReportData{
		TestTitle:   testTitle,
		DisplayName: displayName,
		PartBands:   result.PartBands,
	}
	if result.OverallBand != nil {
		data.OverallBand = *result.OverallBand
	}
	if result.Summary != nil {
		data.Summary = *result.Summary
	}
	for _, row := range rows {
		item := report.ReportItem{
			PartNumber:    row.PartNumber,
			QuestionText:  row.QuestionText,
			Fluency:       row.Fluency,
			Lexical:       row.Lexical,
			Grammar:       row.Grammar,
			Pronunciation: row.Pronunciation,
			Overall:       row.Overall,
		}
		if row.Transcript != nil {
			item.Transcript = *row.Transcript
		}
		if row.Summary != nil {
			item.Feedback = *row.Summary
		}
		data.Items = append(data.Items, item)
	}

	pdfBytes, err := report.GeneratePDF(data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to render PDF in GetTestReport")
		renderError(w, r, 500, "", "Failed to render the report")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="speaking-report.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdfBytes)
}

// GetTestShareQR returns a PNG QR code linking to the results page.
// 404 until the test has an aggregate result.
func (rh *RESTHandler) GetTestShareQR(w http.ResponseWriter, r *http.Request) {
	authedUser := auth.AuthedUserContext(r.Context())
	if authedUser == nil {
		renderError(w, r, 401, "NOT_AUTHED", "You are not signed in")
		return
	}

	testID := chi.URLParam(r, "testID")

	result, err := rh.loadTestResult(r, testID, *authedUser.ID)
	if err != nil {
		renderError(w, r, 500, "", "Database error while loading the test result")
		return
	}
	if result == nil {
		renderError(w, r, 404, "NOT_FOUND", "This test has not been scored yet")
		return
	}

	shareURL := fmt.Sprintf("%s/tests/%s/results", strings.TrimRight(rh.PublicBaseURL, "/"), testID)
	png, err := report.GenerateShareQR(shareURL, 256)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode QR code in GetTestShareQR")
		renderError(w, r, 500, "", "Failed to render the share code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
