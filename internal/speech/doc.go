// Package speech implements the slow transcript acquisition path: download
// the audio track with yt-dlp, resample it with ffmpeg, and transcribe it
// with WhisperX via uvx. It is the last strategy in the acquisition chain;
// its failures end the run.
package speech
