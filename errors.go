package watchllm

import (
	"fmt"

	"github.com/watchllm/watchllm-go/internal/transport"
)

// ProducerError reports malformed arguments to a logging method. It is
// surfaced synchronously to the caller; the event is never queued.
type ProducerError struct {
	Op     string
	Reason string
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("watchllm: %s: %s", e.Op, e.Reason)
}

// DeliveryError reports a batch send that exhausted its retries or hit a
// non-retryable status. See transport.DeliveryError for fields.
type DeliveryError = transport.DeliveryError
