// Package transcription provides the HTTP client for the hosted
// speech-to-text endpoint that turns answer recordings into transcripts.
package transcription
