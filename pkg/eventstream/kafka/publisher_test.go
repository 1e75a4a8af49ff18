package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/ragchat/pkg/eventstream"
	"github.com/papercomputeco/ragchat/pkg/eventstream/kafka"
	"github.com/papercomputeco/ragchat/pkg/logger"
)

type recordingWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		writer    *recordingWriter
		publisher *kafka.Publisher
		event     *eventstream.ChunksSavedEvent
	)

	BeforeEach(func() {
		writer = &recordingWriter{}
		publisher = kafka.NewPublisherWithWriter(writer, logger.Nop())
		now := time.Now()
		event = eventstream.NewChunksSavedEvent(
			eventstream.StoreMeta{Provider: "qdrant", Collection: "chunks"},
			[]eventstream.ChunkRef{{ID: "c1", DocumentID: "d1"}},
			now.Add(-time.Second), now,
		)
	})

	It("requires brokers", func() {
		_, err := kafka.NewPublisher(kafka.Config{}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("broker")))
	})

	It("builds a publisher without contacting brokers", func() {
		p, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"127.0.0.1:1"}}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Close()).To(Succeed())
	})

	It("rejects nil events", func() {
		Expect(publisher.PublishChunksSaved(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(writer.messages).To(BeEmpty())
	})

	It("writes one JSON message keyed by event id", func() {
		Expect(publisher.PublishChunksSaved(context.Background(), event)).To(Succeed())
		Expect(writer.messages).To(HaveLen(1))

		msg := writer.messages[0]
		Expect(string(msg.Key)).To(Equal(event.EventID))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte(eventstream.EventTypeChunksSaved)}))

		var decoded eventstream.ChunksSavedEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
		Expect(decoded.Chunks).To(Equal(event.Chunks))
	})

	It("wraps writer failures", func() {
		writer.err = errors.New("leader not available")
		err := publisher.PublishChunksSaved(context.Background(), event)
		Expect(err).To(MatchError(ContainSubstring("leader not available")))
	})

	It("closes the writer", func() {
		Expect(publisher.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})
})
