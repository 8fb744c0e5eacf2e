package leonardo

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Clock abstracts wall-clock time and sleeping so the poll loop can be
// driven by a fake clock in tests without real delays.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx's error in
	// the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// systemClock is the real-time Clock used outside of tests.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Poller waits for submitted jobs to reach a terminal status.
//
// One Wait call owns no mutable state beyond its stack, so independent
// callers may poll different handles concurrently with a shared Poller.
type Poller struct {
	client *Client
	clock  Clock
}

// NewPoller creates a poller for the given client using the system clock.
func NewPoller(client *Client) *Poller {
	return &Poller{client: client, clock: systemClock{}}
}

// Wait polls the handle's status every interval until the job completes,
// fails, or the wall-clock timeout elapses. It never returns a pending or
// empty result: a COMPLETE payload whose artifact list is still empty counts
// as pending, and the outcome is either a JobResult with at least one
// artifact or a typed error (job failed, timeout, terminal shape mismatch).
//
// Transient trouble during a single tick (a transport hiccup, or a payload
// the adapter cannot parse) is logged and retried; only the timeout ends
// the loop for such ticks. The timeout is checked once per iteration, so
// total elapsed time may overshoot it by at most one interval. Cancelling
// ctx stops polling locally but does not cancel the remote job.
func (p *Poller) Wait(ctx context.Context, handle JobHandle, interval, timeout time.Duration) (*JobResult, error) {
	adapter := adapterFor(handle.Kind)
	start := p.clock.Now()

	for {
		if elapsed := p.clock.Now().Sub(start); elapsed >= timeout {
			return nil, timeoutError(handle.ID, elapsed, timeout)
		}

		body, err := p.client.jobStatusPayload(ctx, handle)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			log.Warn().Err(err).Str("jobId", handle.ID).Stringer("kind", handle.Kind).Msg("Job status poll error, retrying")
		default:
			status, serr := adapter.extractStatus(body)
			if serr != nil {
				log.Warn().Err(serr).Str("jobId", handle.ID).Stringer("kind", handle.Kind).Msg("Unparseable job status payload, retrying")
				break
			}
			switch status {
			case statusComplete:
				artifacts, aerr := adapter.extractArtifacts(body)
				if aerr != nil {
					return nil, aerr
				}
				if len(artifacts) == 0 {
					// The record can turn COMPLETE before its artifacts are
					// visible. An empty list is not a result yet; keep polling.
					log.Debug().Str("jobId", handle.ID).Stringer("kind", handle.Kind).Msg("Job complete but artifacts not yet visible")
					break
				}
				log.Info().Str("jobId", handle.ID).Stringer("kind", handle.Kind).Int("artifacts", len(artifacts)).Msg("Job complete")
				return &JobResult{Handle: handle, Artifacts: artifacts}, nil
			case statusFailed:
				return nil, jobFailedError(handle.ID)
			default:
				log.Debug().Str("jobId", handle.ID).Stringer("kind", handle.Kind).Dur("nextPoll", interval).Msg("Job still pending")
			}
		}

		if err := p.clock.Sleep(ctx, interval); err != nil {
			return nil, err
		}
	}
}
