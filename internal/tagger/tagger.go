// Package tagger consumes raw location events from Kafka, stamps each
// one with its DIGIPIN, and republishes the enriched record.
package tagger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/arjunmehra/digipin-gateway/internal/config"
	"github.com/arjunmehra/digipin-gateway/internal/hotness"
	"github.com/arjunmehra/digipin-gateway/internal/observability"
	"github.com/arjunmehra/digipin-gateway/pkg/digipin"
)

// Event is a raw location report consumed from the input topic.
type Event struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	TS        time.Time `json:"ts"`
}

// Tagged is the enriched record published to the output topic.
type Tagged struct {
	Event
	Digipin string `json:"digipin"`
}

type Sink interface {
	Publish(ev Tagged)
}

type Runner struct {
	log       zerolog.Logger
	cfg       config.TaggerCfg
	sink      Sink
	dedupe    *seqDedupe
	hot       hotness.Interface
	prefixLen int
	assigned  atomic.Bool
	assignMu  sync.RWMutex
	assign    map[int32]struct{}
	wg        sync.WaitGroup
	cancel    context.CancelFunc
}

func New(cfg config.TaggerCfg, sink Sink, hot hotness.Interface, prefixLen int, log zerolog.Logger) *Runner {
	if prefixLen <= 0 {
		prefixLen = 3
	}
	return &Runner{
		log:       log,
		cfg:       cfg,
		sink:      sink,
		dedupe:    newSeqDedupe(cfg.DedupeSize),
		hot:       hot,
		prefixLen: prefixLen,
		assign:    map[int32]struct{}{},
	}
}

func (r *Runner) Start(ctx context.Context) error {
	if !r.cfg.Enabled {
		r.log.Info().Msg("tagger disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Group.Session.Timeout = 30 * time.Second
	cfg.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	cfg.Consumer.Group.Rebalance.Timeout = 30 * time.Second
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(r.cfg.Brokers, r.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("consumer group: %w", err)
	}

	h := &groupHandler{
		setup: func(sess sarama.ConsumerGroupSession) {
			r.setAssignment(sess.Claims())
		},
		cleanup: func(sarama.ConsumerGroupSession) {
			r.clearAssignment()
		},
		process: r.handleMessage,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if err := group.Close(); err != nil {
				r.log.Error().Err(err).Msg("kafka consumer group close")
			}
		}()

		for {
			if err := group.Consume(ctx, []string{r.cfg.InTopic}, h); err != nil {
				r.log.Error().Err(err).Msg("kafka consume error")
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for err := range group.Errors() {
			observability.IncTaggerError("consumer")
			r.log.Error().Err(err).Msg("kafka group error")
		}
	}()

	r.log.Info().
		Str("in_topic", r.cfg.InTopic).
		Str("out_topic", r.cfg.OutTopic).
		Str("group", r.cfg.GroupID).
		Strs("brokers", r.cfg.Brokers).
		Msg("tagger started")
	return nil
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.log.Info().Msg("tagger stopped")
}

func (r *Runner) Readiness() (ready bool, partitions []int32) {
	if !r.assigned.Load() {
		return false, nil
	}
	r.assignMu.RLock()
	defer r.assignMu.RUnlock()
	for p := range r.assign {
		partitions = append(partitions, p)
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })
	return true, partitions
}

func (r *Runner) setAssignment(claims map[string][]int32) {
	r.assignMu.Lock()
	r.assigned.Store(true)
	r.assign = map[int32]struct{}{}
	for _, parts := range claims {
		for _, p := range parts {
			r.assign[p] = struct{}{}
		}
	}
	r.assignMu.Unlock()
}

func (r *Runner) clearAssignment() {
	r.assignMu.Lock()
	r.assigned.Store(false)
	r.assign = map[int32]struct{}{}
	r.assignMu.Unlock()
}

// handleMessage never returns an error: a message that cannot be tagged
// is counted and skipped, so one bad record cannot wedge its partition.
func (r *Runner) handleMessage(_ context.Context, msg *sarama.ConsumerMessage) error {
	if !msg.Timestamp.IsZero() {
		observability.SetTaggerLagSeconds(time.Since(msg.Timestamp).Seconds())
	}

	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		observability.IncTaggerError("decode")
		r.log.Warn().Err(err).Int64("offset", msg.Offset).Msg("undecodable event dropped")
		return nil
	}
	if ev.ID == "" {
		observability.IncTaggerError("missing_id")
		return nil
	}

	if !r.dedupe.shouldApply(ev.ID, ev.Seq) {
		observability.IncTaggerEvent("skipped_stale")
		return nil
	}

	pin, err := digipin.Encode(ev.Latitude, ev.Longitude)
	if err != nil {
		// Fleets roam outside the grid; that is load, not failure.
		observability.IncTaggerEvent("skipped_range")
		return nil
	}

	tagged := Tagged{Event: ev, Digipin: pin}
	if tagged.TS.IsZero() {
		tagged.TS = msg.Timestamp
	}
	r.sink.Publish(tagged)

	if r.hot != nil {
		r.hot.Inc(hotness.RegionOf(pin, r.prefixLen))
	}
	observability.IncTaggerEvent("tagged")
	return nil
}

type groupHandler struct {
	setup   func(sarama.ConsumerGroupSession)
	cleanup func(sarama.ConsumerGroupSession)
	process func(context.Context, *sarama.ConsumerMessage) error
}

func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	if h.setup != nil {
		h.setup(sess)
	}
	return nil
}

func (h *groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	if h.cleanup != nil {
		h.cleanup(sess)
	}
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for msg := range claim.Messages() {
		if err := h.process(ctx, msg); err != nil {
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
