// Package tts synthesizes short spoken confirmations for the customer surface.
package tts

import "context"

// Synthesizer turns text into audio bytes. Implementations must honor ctx cancellation.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}
