package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerrad567/nsot-jobs/internal/infrastructure/mqtt"
	"github.com/nerrad567/nsot-jobs/internal/jobresult"
)

// JSONPublisher publishes a value as JSON to a topic.
// *mqtt.Client satisfies it.
type JSONPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// MQTTPublisher forwards results to nsot/jobs/{slug}/result and, when
// entries is set, each entry to nsot/jobs/{slug}/log.
type MQTTPublisher struct {
	client  JSONPublisher
	entries bool
}

// NewMQTTPublisher creates a publisher on client.
func NewMQTTPublisher(client JSONPublisher, entries bool) *MQTTPublisher {
	return &MQTTPublisher{client: client, entries: entries}
}

// PublishResult publishes the entries in order, then the result.
func (p *MQTTPublisher) PublishResult(_ context.Context, result *jobresult.Result) error {
	topics := mqtt.Topics{}
	var errs []error

	if p.entries {
		for _, e := range result.Entries {
			if err := p.client.PublishJSON(topics.JobLog(result.JobName), e, false); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := p.client.PublishJSON(topics.JobResult(result.JobName), result, false); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Subscriber subscribes to an MQTT topic filter. *mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// RunRequest is the payload of a run request.
type RunRequest struct {
	Data map[string]any `json:"data"`
}

// ListenMQTT runs jobs requested on nsot/jobs/{slug}/run.
//
// The handler validates the topic and payload on the subscriber's delivery
// goroutine and then starts the run in its own goroutine, so the MQTT
// client keeps processing acknowledgements while the job and its result
// publishes are in flight. Triggered runs are detached from ctx
// cancellation so a shutdown lets them finish; call Wait before closing
// the stores they write to.
//
// Parameters:
//   - ctx: Parent context for triggered runs (values only)
//   - sub: Connected MQTT client
//   - qos: Subscription QoS
//
// Returns:
//   - error: If the subscription fails
func (r *Runner) ListenMQTT(ctx context.Context, sub Subscriber, qos byte) error {
	topic := mqtt.Topics{}.AllJobRuns()
	if err := sub.Subscribe(topic, qos, r.handleRunMessage(ctx)); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	r.currentLogger().Info("listening for job run requests", "topic", topic)
	return nil
}

// handleRunMessage returns the run-request handler. Unknown jobs and
// malformed payloads are returned to the subscriber, which logs them;
// failures of the run itself are logged here.
func (r *Runner) handleRunMessage(ctx context.Context) mqtt.MessageHandler {
	runCtx := context.WithoutCancel(ctx)

	return func(topic string, payload []byte) error {
		slug, kind, ok := mqtt.ParseJobTopic(topic)
		if !ok || kind != "run" {
			return nil
		}

		if _, err := r.Job(slug); err != nil {
			return err
		}

		var req RunRequest
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
			}
		}

		r.inflight.Add(1)
		go func() {
			defer r.inflight.Done()
			if _, err := r.Run(runCtx, slug, req.Data); err != nil {
				r.currentLogger().Warn("triggered job run failed", "job", slug, "topic", topic, "error", err)
			}
		}()
		return nil
	}
}
