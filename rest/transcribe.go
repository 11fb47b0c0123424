package rest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"speaking9/api/audio"
	"speaking9/api/auth"
	"speaking9/api/model"
	"speaking9/api/transcription"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// questionContext is the question metadata joined with its part, used by
// the transcribe and score handlers.
type questionContext struct {
	ID           string `db:"id"`
	QuestionText string `db:"question_text"`
	Topic        string `db:"topic"`
	PartNumber   int    `db:"part_number"`
	TestID       string `db:"test_id"`
}

const questionContextSQL = `SELECT q.id, q.question_text, coalesce(q.topic, '') as topic,
	tp.part_number, tp.test_id
FROM public.questions q
JOIN public.test_parts tp ON q.part_id = tp.id
WHERE q.id = $1`

// Transcribe accepts a multipart audio upload for one question, stores the
// recording, transcribes it, and upserts the user's response row. A second
// upload for the same question replaces the first.
func (rh *RESTHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	authedUser := auth.AuthedUserContext(r.Context())
	if authedUser == nil {
		renderError(w, r, 401, "NOT_AUTHED", "You must be signed in to submit recordings")
		return
	}

	rh.Metrics.UploadsReceived.Inc()

	// 1MB of slack for the multipart framing around the audio part
	r.Body = http.MaxBytesReader(w, r.Body, rh.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		rh.Metrics.UploadRejected.WithLabelValues("too_large").Inc()
		renderError(w, r, 413, "AUDIO_TOO_LARGE",
			fmt.Sprintf("Audio upload exceeds the %d MB limit", rh.MaxUploadBytes>>20))
		return
	}

	questionID := r.FormValue("question_id")
	if questionID == "" {
		renderError(w, r, 400, "", "Missing question_id field")
		return
	}

	var question questionContext
	err := pgxscan.Get(r.Context(), rh.DB, &question, questionContextSQL, questionID)
	if err != nil {
		if pgxscan.NotFound(err) {
			renderError(w, r, 404, "NOT_FOUND", "Question not found")
			return
		}
		log.Error().Err(err).Msg("Database err while loading question in Transcribe")
		renderError(w, r, 500, "", "Database error while loading question")
		return
	}

	// Remember the previous recording's URL so the replaced object can be
	// removed from the bucket once the new upload is saved.
	var prevAudioURL *string
	err = pgxscan.Get(
		r.Context(),
		rh.DB,
		&prevAudioURL,
		`SELECT audio_url FROM public.responses WHERE user_id = $1 AND question_id = $2`,
		authedUser.ID,
		question.ID,
	)
	if err != nil && !pgxscan.NotFound(err) {
		log.Error().Err(err).Msg("Database err while loading previous response in Transcribe")
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		renderError(w, r, 400, "", "Missing audio file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, rh.MaxUploadBytes+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded audio")
		renderError(w, r, 500, "", "Failed to read uploaded audio")
		return
	}
	if int64(len(data)) > rh.MaxUploadBytes {
		rh.Metrics.UploadRejected.WithLabelValues("too_large").Inc()
		renderError(w, r, 413, "AUDIO_TOO_LARGE",
			fmt.Sprintf("Audio upload exceeds the %d MB limit", rh.MaxUploadBytes>>20))
		return
	}

	format, err := audio.DetectFormat(data)
	if err != nil {
		rh.Metrics.UploadRejected.WithLabelValues("unsupported_format").Inc()
		renderError(w, r, 415, "UNSUPPORTED_AUDIO",
			"Audio container not recognized; webm, ogg, wav and mp4 are supported")
		return
	}
	rh.Metrics.UploadSize.Observe(float64(len(data)))

	// WAV carries its own duration; compressed containers report theirs
	// back from the transcription service instead.
	var duration float64
	if format == audio.FormatWAV {
		if d, err := audio.WAVDuration(data); err == nil {
			duration = d
		}
	}

	key := fmt.Sprintf("%s/%s/%s.%s", *authedUser.ID, question.ID, uuid.NewString(), format.Ext())
	audioURL, err := rh.Store.Upload(r.Context(), key, data, format.ContentType())
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Object store upload failed in Transcribe")
		renderError(w, r, 502, "", "Failed to store the recording")
		return
	}

	rh.Metrics.TranscriptionRequests.Inc()
	startTime := time.Now()
	transcriptionResp, err := rh.Transcriber.Transcribe(r.Context(), &transcription.Request{
		Audio:       data,
		Filename:    fmt.Sprintf("answer.%s", format.Ext()),
		ContentType: format.ContentType(),
		// Question text biases the model toward on-topic vocabulary
		Prompt: question.QuestionText,
	})
	rh.Metrics.TranscriptionDuration.Observe(time.Since(startTime).Seconds())
	if err != nil {
		rh.Metrics.TranscriptionFailures.Inc()
		log.Error().Err(err).Msg("Transcription failed in Transcribe")

		// Keep the stored audio and mark the response failed so the client
		// can retry without re-recording.
		_, dbErr := rh.DB.Exec(
			r.Context(),
			upsertResponseSQL,
			authedUser.ID, question.ID, audioURL, nil, model.ResponseStatusFailed, duration,
		)
		if dbErr != nil {
			log.Error().Err(dbErr).Msg("Database err while marking response failed in Transcribe")
		}
		rh.removeReplacedRecording(r.Context(), prevAudioURL, audioURL)

		renderError(w, r, 502, "TRANSCRIPTION_FAILED", "Failed to transcribe the recording")
		return
	}
	rh.Metrics.TranscriptionSuccesses.Inc()

	if duration == 0 {
		duration = transcriptionResp.Duration
	}
	rh.Metrics.AudioDuration.Observe(duration)

	var responseID string
	err = pgxscan.Get(
		r.Context(),
		rh.DB,
		&responseID,
		upsertResponseSQL,
		authedUser.ID, question.ID, audioURL, transcriptionResp.Text, model.ResponseStatusTranscribed, duration,
	)
	if err != nil {
		log.Error().Err(err).Msg("Database err while saving response in Transcribe")
		renderError(w, r, 500, "", "Database error while saving the response")
		return
	}
	rh.removeReplacedRecording(r.Context(), prevAudioURL, audioURL)

	renderData(w, r, map[string]interface{}{
		"response_id": responseID,
		"transcript":  transcriptionResp.Text,
		"audio_url":   audioURL,
		"duration":    duration,
	})
}

// removeReplacedRecording deletes the object a re-recording just replaced.
// Best effort; the new upload stands either way.
func (rh *RESTHandler) removeReplacedRecording(ctx context.Context, prevURL *string, newURL string) {
	if prevURL == nil || *prevURL == "" || *prevURL == newURL {
		return
	}
	key, ok := rh.Store.KeyFromURL(*prevURL)
	if !ok {
		return
	}
	if err := rh.Store.Delete(ctx, key); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to delete replaced recording")
	}
}

// Last submission wins per (user, question).
const upsertResponseSQL = `INSERT INTO public.responses
	(user_id, question_id, audio_url, transcript, status, duration_seconds)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id, question_id) DO UPDATE
SET audio_url = coalesce($3, responses.audio_url), transcript = $4, status = $5,
	duration_seconds = coalesce(nullif($6, 0), responses.duration_seconds),
	updated_at = now()
RETURNING id`
