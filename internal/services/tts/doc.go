// Package tts wraps the ElevenLabs text-to-speech API used to voice
// affirmation scripts. Replies are MP3; callers decode them with
// audio.Asset.AsWAV before mixdown.
package tts
