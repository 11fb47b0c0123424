package rest

import (
	"context"
	"net/http"

	"speaking9/api/metrics"
	"speaking9/api/scoring"
	"speaking9/api/transcription"

	"github.com/go-chi/render"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Transcriber turns an uploaded recording into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, req *transcription.Request) (*transcription.Response, error)
}

// Scorer produces band scores and feedback for one transcript.
type Scorer interface {
	Evaluate(ctx context.Context, req scoring.EvaluationRequest) (*scoring.Evaluation, error)
}

// ObjectStore persists answer recordings.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(url string) (string, bool)
}

// RESTHandler carries the dependencies for all /api routes.
type RESTHandler struct {
	DB             *pgxpool.Pool
	Transcriber    Transcriber
	Scorer         Scorer
	Store          ObjectStore
	Metrics        *metrics.Metrics
	MaxUploadBytes int64
	PublicBaseURL  string
}

// renderError writes the shared error envelope.
func renderError(w http.ResponseWriter, r *http.Request, statusCode int, code string, message string) {
	render.Status(r, statusCode)
	body := map[string]interface{}{
		"statusCode": statusCode,
		"message":    message,
	}
	if code != "" {
		body["code"] = code
	}
	render.JSON(w, r, map[string]interface{}{
		"error": body,
	})
}

// renderData writes the shared success envelope.
func renderData(w http.ResponseWriter, r *http.Request, data interface{}) {
	render.JSON(w, r, map[string]interface{}{
		"error": false,
		"data":  data,
	})
}
