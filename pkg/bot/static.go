package bot

import (
	"context"
	"fmt"
)

// Static is a canned-reply Generator for tests and offline runs.
type Static struct {
	Reply string
	Err   error
}

func (s *Static) GenerateReply(ctx context.Context, message, userName string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if s.Reply != "" {
		return s.Reply, nil
	}
	return fmt.Sprintf("You said %q.", message), nil
}
