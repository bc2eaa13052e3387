package conversation

import (
	"context"
	"errors"

	"github.com/wolfman30/booking-assistant/pkg/logging"
)

// FailoverLLMClient asks a secondary engine when the primary fails. When
// both fail the returned error wraps both causes.
type FailoverLLMClient struct {
	primary   LLMClient
	secondary LLMClient
	logger    *logging.Logger
}

// NewFailoverLLMClient returns primary unchanged when secondary is nil.
func NewFailoverLLMClient(primary, secondary LLMClient, logger *logging.Logger) LLMClient {
	if secondary == nil {
		return primary
	}
	if primary == nil {
		return secondary
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FailoverLLMClient{primary: primary, secondary: secondary, logger: logger}
}

func (c *FailoverLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil {
		// No budget left for a second attempt.
		return LLMResponse{}, err
	}

	c.logger.Warn("primary extraction engine failed, trying secondary", "error", err)
	resp, secondErr := c.secondary.Complete(ctx, req)
	if secondErr != nil {
		c.logger.Error("secondary extraction engine also failed",
			"primary_error", err,
			"secondary_error", secondErr,
		)
		return LLMResponse{}, errors.Join(err, secondErr)
	}
	return resp, nil
}

// Close releases whichever side holds resources.
func (c *FailoverLLMClient) Close() error {
	var errs []error
	for _, client := range []LLMClient{c.primary, c.secondary} {
		if closer, ok := client.(interface{ Close() error }); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}
