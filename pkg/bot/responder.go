package bot

import (
	"context"
	"time"

	"sparkchat/pkg/logger"
)

// Fallback is substituted for the generated reply whenever generation fails.
const Fallback = "AI temporarily unavailable."

// Responder wraps a Generator with a timeout and the never-fails contract:
// any generation error is absorbed and replaced by Fallback so chat keeps
// flowing.
type Responder struct {
	gen     Generator
	timeout time.Duration
}

func NewResponder(gen Generator, timeout time.Duration) *Responder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Responder{gen: gen, timeout: timeout}
}

// Reply returns a reply for message. Never returns an error.
func (r *Responder) Reply(ctx context.Context, message, userName string) string {
	if r == nil || r.gen == nil {
		return Fallback
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	text, err := r.gen.GenerateReply(ctx, message, userName)
	if err != nil {
		logger.Warn("bot_generation_failed", "error", err)
		return Fallback
	}
	return text
}
