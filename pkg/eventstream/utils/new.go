// Package eventstreamutils builds eventstream.Publisher implementations from
// provider names.
package eventstreamutils

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/ragchat/pkg/eventstream"
	"github.com/papercomputeco/ragchat/pkg/eventstream/kafka"
	"github.com/papercomputeco/ragchat/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	ProviderType string

	// Brokers is a comma separated list of host:port pairs.
	Brokers      string
	Topic        string
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.ProviderType {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		return kafka.NewPublisher(kafka.Config{
			Brokers:      SplitBrokers(o.Brokers),
			Topic:        o.Topic,
			WriteTimeout: o.WriteTimeout,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", o.ProviderType)
	}
}

// SplitBrokers splits a comma separated broker list, dropping blanks.
func SplitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
