package loader

import (
	"context"
	"net/http"
	"time"

	"speaking9/api/model"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vikstrous/dataloadgen"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

type dataReader struct {
	db *pgxpool.Pool
}

// getQuestionsByIDs implements a batch function that can retrieve many
// questions by ID, for use in a dataloader
func (dr *dataReader) getQuestionsByIDs(ctx context.Context, ids []string) ([]*model.Question, []error) {
	var questions []*model.Question

	err := pgxscan.Select(
		ctx,
		dr.db,
		&questions,
		`SELECT q.id, q.part_id, q.sort_order, q.question_text, q.topic
FROM unnest($1::uuid[]) WITH ORDINALITY AS input(id, og_order)
LEFT JOIN public.questions q ON q.id = input.id
ORDER BY input.og_order`,
		ids,
	)
	if err != nil {
		return nil, []error{err}
	}

	return questions, nil
}

func (dr *dataReader) getFeedbackByResponseIDs(ctx context.Context, responseIDs []string) ([]*model.Feedback, []error) {
	var feedback []*model.Feedback

	err := pgxscan.Select(
		ctx,
		dr.db,
		&feedback,
		`SELECT f.id, f.response_id, f.fluency, f.lexical, f.grammar, f.pronunciation,
	f.overall, f.summary, f.model_name,
	to_char(f.created_at, 'YYYY-MM-DD"T"HH24:MI:SS.MSTZH:TZM') as created_at
FROM unnest($1::uuid[]) WITH ORDINALITY AS input(response_id, og_order)
LEFT JOIN public.feedback f ON f.response_id = input.response_id
ORDER BY input.og_order`,
		responseIDs,
	)
	if err != nil {
		return nil, []error{err}
	}

	return feedback, nil
}

func (dr *dataReader) getQuestionsByPartIDs(ctx context.Context, partIDs []string) ([][]*model.Question, []error) {
	var questions []*model.Question

	err := pgxscan.Select(
		ctx,
		dr.db,
		&questions,
		`SELECT q.id, q.part_id, q.sort_order, q.question_text, q.topic
FROM public.questions q
WHERE q.part_id = ANY($1::uuid[])
ORDER BY q.part_id, q.sort_order`,
		partIDs,
	)
	if err != nil {
		return nil, []error{err}
	}

	// Group questions by part_id
	grouped := make(map[string][]*model.Question)
	for _, q := range questions {
		if q.PartID != nil {
			grouped[*q.PartID] = append(grouped[*q.PartID], q)
		}
	}

	// Reassemble in the same order as partIDs
	orderedQuestions := make([][]*model.Question, len(partIDs))
	for i, id := range partIDs {
		orderedQuestions[i] = grouped[id]
	}

	return orderedQuestions, nil
}

// Loaders wrap your data loaders to inject via middleware
type Loaders struct {
	QuestionByIDLoader         *dataloadgen.Loader[string, *model.Question]
	QuestionsByPartIDLoader    *dataloadgen.Loader[string, []*model.Question]
	FeedbackByResponseIDLoader *dataloadgen.Loader[string, *model.Feedback]
}

// NewLoaders instantiates data loaders for the middleware
func NewLoaders(db *pgxpool.Pool) *Loaders {
	dr := &dataReader{db: db}
	return &Loaders{
		QuestionByIDLoader:         dataloadgen.NewLoader(dr.getQuestionsByIDs, dataloadgen.WithWait(time.Millisecond)),
		QuestionsByPartIDLoader:    dataloadgen.NewLoader(dr.getQuestionsByPartIDs, dataloadgen.WithWait(time.Millisecond)),
		FeedbackByResponseIDLoader: dataloadgen.NewLoader(dr.getFeedbackByResponseIDs, dataloadgen.WithWait(time.Millisecond)),
	}
}

// Middleware injects data loaders into the context
func Middleware(db *pgxpool.Pool, next http.Handler) http.Handler {
	// return a middleware that injects the loader to the request context
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loader := NewLoaders(db)
		r = r.WithContext(context.WithValue(r.Context(), loadersKey, loader))
		next.ServeHTTP(w, r)
	})
}

// For returns the dataloader for a given context
func For(ctx context.Context) *Loaders {
	return ctx.Value(loadersKey).(*Loaders)
}

// GetQuestion returns a single question by id efficiently
func GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	loaders := For(ctx)
	return loaders.QuestionByIDLoader.Load(ctx, id)
}

// GetQuestionsByPartID returns a single part's questions efficiently
func GetQuestionsByPartID(ctx context.Context, partID string) ([]*model.Question, error) {
	loaders := For(ctx)
	return loaders.QuestionsByPartIDLoader.Load(ctx, partID)
}

// GetFeedbackByResponseID returns one response's feedback efficiently
func GetFeedbackByResponseID(ctx context.Context, responseID string) (*model.Feedback, error) {
	loaders := For(ctx)
	return loaders.FeedbackByResponseIDLoader.Load(ctx, responseID)
}

// GetFeedbackByResponseIDs returns many responses' feedback efficiently
func GetFeedbackByResponseIDs(ctx context.Context, responseIDs []string) ([]*model.Feedback, error) {
	loaders := For(ctx)
	return loaders.FeedbackByResponseIDLoader.LoadAll(ctx, responseIDs)
}
