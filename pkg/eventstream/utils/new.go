// Package eventstreamutils provides a factory for creating eventstream
// publishers based on configuration.
package eventstreamutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/eventstream/kafka"
	"github.com/papercomputeco/engram/pkg/eventstream/nop"
)

// NewPublisherOpts holds options for creating an eventstream publisher.
type NewPublisherOpts struct {
	// ProviderType selects the backend: "nop" or "kafka".
	// Empty defaults to "nop".
	ProviderType string

	// Brokers is the list of bootstrap broker addresses (kafka only).
	Brokers []string

	// Topic is the topic events are written to (kafka only).
	Topic string

	// Logger is the logger to use.
	Logger *zap.Logger
}

// NewPublisher creates an eventstream publisher for the given provider.
func NewPublisher(opts NewPublisherOpts) (eventstream.Publisher, error) {
	switch opts.ProviderType {
	case "", "nop":
		return nop.NewPublisher(), nil

	case "kafka":
		return kafka.NewPublisher(kafka.Config{
			Brokers: opts.Brokers,
			Topic:   opts.Topic,
		}, opts.Logger)

	default:
		return nil, fmt.Errorf("unsupported event stream provider: %s", opts.ProviderType)
	}
}
