// Package bot produces automated replies for conversations that include the
// designated bot participant.
package bot

import "context"

// Generator is the text-generation boundary. Implementations may fail; the
// Responder absorbs those failures.
type Generator interface {
	GenerateReply(ctx context.Context, message, userName string) (string, error)
}
