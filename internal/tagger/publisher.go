package tagger

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/arjunmehra/digipin-gateway/internal/observability"
)

// Publisher writes tagged events to the output topic. Publishing never
// blocks the consume path; when the queue is full events are dropped.
type Publisher struct {
	topic   string
	events  chan Tagged
	prod    sarama.AsyncProducer
	stopped chan struct{}
	log     zerolog.Logger
}

func NewPublisher(brokers []string, topic string, queueSize int, log zerolog.Logger) (*Publisher, error) {
	if queueSize <= 0 {
		queueSize = 1024
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("tagger: create async producer: %w", err)
	}

	p := &Publisher{
		topic:   topic,
		events:  make(chan Tagged, queueSize),
		prod:    prod,
		stopped: make(chan struct{}),
		log:     log,
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.log.Error().Err(err).Str("id", ev.ID).Msg("marshal tagged event")
				continue
			}
			msg := &sarama.ProducerMessage{
				Topic: p.topic,
				// Keyed by device id so per-device ordering survives.
				Key:   sarama.StringEncoder(ev.ID),
				Value: sarama.ByteEncoder(b),
			}
			p.prod.Input() <- msg
		}
	}()

	go func() {
		for err := range p.prod.Errors() {
			if err != nil {
				observability.IncTaggerError("producer")
				p.log.Error().Err(err).Msg("tagger producer error")
			}
		}
	}()

	return p, nil
}

func (p *Publisher) Publish(ev Tagged) {
	select {
	case p.events <- ev:
	default:
		// queue full → drop (do NOT block the consume path)
		observability.IncTaggerError("publish_drop")
	}
}

func (p *Publisher) Close() error {
	close(p.events)
	<-p.stopped

	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("tagger: close producer: %w", err)
	}

	return nil
}
