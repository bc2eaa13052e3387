package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closingClient struct {
	stubLLMClient
	closed bool
}

func (c *closingClient) Close() error {
	c.closed = true
	return nil
}

func TestNewFailoverLLMClientCollapsesMissingSide(t *testing.T) {
	primary := &stubLLMClient{}
	assert.Same(t, primary, NewFailoverLLMClient(primary, nil, nil))
	assert.Same(t, primary, NewFailoverLLMClient(nil, primary, nil))
}

func TestFailoverLLMClientUsesPrimaryWhenHealthy(t *testing.T) {
	primary := &stubLLMClient{response: LLMResponse{Text: "primary"}}
	secondary := &stubLLMClient{response: LLMResponse{Text: "secondary"}}

	resp, err := NewFailoverLLMClient(primary, secondary, nil).Complete(context.Background(), LLMRequest{JSONMode: true})
	require.NoError(t, err)
	assert.Equal(t, "primary", resp.Text)
	assert.Zero(t, secondary.calls)
}

func TestFailoverLLMClientFallsThroughToSecondary(t *testing.T) {
	primary := &stubLLMClient{err: errors.New("throttled")}
	secondary := &stubLLMClient{response: LLMResponse{Text: "secondary"}}

	resp, err := NewFailoverLLMClient(primary, secondary, nil).Complete(context.Background(), LLMRequest{JSONMode: true})
	require.NoError(t, err)
	assert.Equal(t, "secondary", resp.Text)
	assert.True(t, secondary.lastReq.JSONMode)
}

func TestFailoverLLMClientJoinsErrors(t *testing.T) {
	first := errors.New("throttled")
	second := errors.New("quota")
	client := NewFailoverLLMClient(&stubLLMClient{err: first}, &stubLLMClient{err: second}, nil)

	_, err := client.Complete(context.Background(), LLMRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
}

func TestFailoverLLMClientSkipsSecondaryAfterDeadline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	secondary := &stubLLMClient{}

	_, err := NewFailoverLLMClient(&stubLLMClient{err: context.Canceled}, secondary, nil).Complete(ctx, LLMRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, secondary.calls)
}

func TestFailoverLLMClientClosesBothSides(t *testing.T) {
	primary := &closingClient{}
	secondary := &closingClient{}
	client := NewFailoverLLMClient(primary, secondary, nil).(*FailoverLLMClient)

	require.NoError(t, client.Close())
	assert.True(t, primary.closed)
	assert.True(t, secondary.closed)
}
