package bot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResponderPassesThroughReply(t *testing.T) {
	r := NewResponder(&Static{Reply: "hi there"}, time.Second)
	require.Equal(t, "hi there", r.Reply(context.Background(), "hello", "Alice"))
}

func TestResponderFallbackOnError(t *testing.T) {
	r := NewResponder(&Static{Err: fmt.Errorf("upstream down")}, time.Second)
	require.Equal(t, Fallback, r.Reply(context.Background(), "hello", "Alice"))
}

type slowGen struct{}

func (slowGen) GenerateReply(ctx context.Context, message, userName string) (string, error) {
	select {
	case <-time.After(5 * time.Second):
		return "too late", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestResponderFallbackOnTimeout(t *testing.T) {
	r := NewResponder(slowGen{}, 20*time.Millisecond)
	require.Equal(t, Fallback, r.Reply(context.Background(), "hello", "Alice"))
}

func TestResponderNilGenerator(t *testing.T) {
	r := NewResponder(nil, time.Second)
	require.Equal(t, Fallback, r.Reply(context.Background(), "anything", ""))
}
