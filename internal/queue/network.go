package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/sciradar/pkg/common"
	"github.com/OFFIS-RIT/sciradar/pkg/leaselock"
	"github.com/OFFIS-RIT/sciradar/pkg/logger"
	"github.com/OFFIS-RIT/sciradar/pkg/network"
	"github.com/OFFIS-RIT/sciradar/pkg/window"

	"github.com/go-playground/validator"
)

// ErrInvalidMessage marks a message that can never be processed. Workers
// dead-letter it without retrying.
var ErrInvalidMessage = errors.New("invalid message")

// NetworkJobMsg asks a worker to generate and analyze one network type of a
// dataset.
type NetworkJobMsg struct {
	CorrelationID string `json:"correlation_id" validate:"required"`
	Dataset       string `json:"dataset" validate:"required,excludesall=/\\"`
	Network       string `json:"network" validate:"required,oneof=authorship co_occurrence co_citation"`
	StartYear     int    `json:"start_year" validate:"required,min=1"`
	StartMonth    int    `json:"start_month" validate:"required,min=1,max=12"`
	EndYear       int    `json:"end_year" validate:"required,min=1"`
	EndMonth      int    `json:"end_month" validate:"required,min=1,max=12"`
	UseCache      bool   `json:"use_cache"`
}

// Request converts the message into a generator request.
func (m NetworkJobMsg) Request() (network.Request, error) {
	nt, err := common.ParseNetworkType(m.Network)
	if err != nil {
		return network.Request{}, err
	}
	start := window.Month{Year: m.StartYear, Month: m.StartMonth}
	end := window.Month{Year: m.EndYear, Month: m.EndMonth}
	if !start.Before(end) {
		return network.Request{}, &window.InvalidRangeError{Start: start, End: end}
	}
	return network.Request{
		Dataset:  m.Dataset,
		Network:  nt,
		Start:    start,
		End:      end,
		UseCache: m.UseCache,
	}, nil
}

var validate = validator.New()

// ParseNetworkJob decodes and validates a queue body. Every failure wraps
// ErrInvalidMessage.
func ParseNetworkJob(body []byte) (NetworkJobMsg, network.Request, error) {
	var msg NetworkJobMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, network.Request{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if err := validate.Struct(msg); err != nil {
		return msg, network.Request{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	req, err := msg.Request()
	if err != nil {
		return msg, network.Request{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return msg, req, nil
}

// NetworkEvent is published to EventsExchange once a job finishes.
type NetworkEvent struct {
	CorrelationID string   `json:"correlation_id"`
	Dataset       string   `json:"dataset"`
	Network       string   `json:"network"`
	Windows       int      `json:"windows"`
	Analysed      int      `json:"analysed"`
	CacheHits     int      `json:"cache_hits"`
	Failed        []string `json:"failed"`
}

// Topic is the routing key of the event, e.g. "network.zika.authorship".
func (e NetworkEvent) Topic() string {
	return fmt.Sprintf("network.%s.%s", e.Dataset, e.Network)
}

func newNetworkEvent(msg NetworkJobMsg, out *network.Outcome) NetworkEvent {
	failed := out.Failed
	if failed == nil {
		failed = []string{}
	}
	return NetworkEvent{
		CorrelationID: msg.CorrelationID,
		Dataset:       msg.Dataset,
		Network:       msg.Network,
		Windows:       out.Windows,
		Analysed:      len(out.Result),
		CacheHits:     out.CacheHits,
		Failed:        failed,
	}
}

// GeneratorFactory returns the generator serving dataset.
type GeneratorFactory func(dataset string) (*network.Generator, error)

// EventPublisher receives finished-job events. It may be nil.
type EventPublisher func(topic string, data []byte) error

// JobLocker runs fn while holding the lock named key. It may be nil.
type JobLocker func(ctx context.Context, key string, fn func(ctx context.Context) error) error

// ProcessNetworkMessage runs one network job end to end. With a locker the
// generation runs under the lock of its dataset and network type.
func ProcessNetworkMessage(
	ctx context.Context,
	generators GeneratorFactory,
	lock JobLocker,
	publish EventPublisher,
	body []byte,
) error {
	msg, req, err := ParseNetworkJob(body)
	if err != nil {
		return err
	}

	logger.Info("[Queue] Processing network job", "correlation_id", msg.CorrelationID, "dataset", msg.Dataset, "network", msg.Network)

	gen, err := generators(msg.Dataset)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	var out *network.Outcome
	generate := func(ctx context.Context) error {
		var err error
		out, err = gen.Generate(ctx, req)
		return err
	}
	if lock != nil {
		err = lock(ctx, leaselock.JobKey(msg.Dataset, msg.Network), generate)
	} else {
		err = generate(ctx)
	}
	if err != nil {
		return err
	}

	if publish == nil {
		return nil
	}
	event := newNetworkEvent(msg, out)
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := publish(event.Topic(), data); err != nil {
		logger.Warn("[Queue] Failed to publish network event", "correlation_id", msg.CorrelationID, "err", err)
	}
	return nil
}
