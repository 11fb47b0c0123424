// Package audio validates uploaded answer recordings: container sniffing
// for the browser codec split (Chromium records webm, Safari mp4) and
// duration extraction for PCM WAV uploads.
package audio
