// Package runtime handles event propagation and worker supervision.
// It orchestrates the system without containing business logic or domain rules.
package runtime

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"context"

	"moonchat/contract"
	"moonchat/domain/chat"
	"moonchat/domain/event"
	"moonchat/observability"
	"moonchat/runtime/workers"
)

type Orchestrator struct {
	mu                sync.Mutex
	log               *slog.Logger
	supervisor        contract.ISupervisor
	registry          contract.IRegistry
	permanentSinks    []contract.EventSink
	events            chan event.DomainEvent
	sinkTimeout       time.Duration
	telemetryInterval time.Duration
	stats             *observability.PipelineStats
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry contract.IRegistry, stats *observability.PipelineStats,
	bufferSize int, sinkTimeout, telemetryInterval time.Duration) *Orchestrator {
	return &Orchestrator{
		log:               log,
		supervisor:        supervisor,
		registry:          registry,
		events:            make(chan event.DomainEvent, bufferSize),
		sinkTimeout:       sinkTimeout,
		telemetryInterval: telemetryInterval,
		stats:             stats,
	}
}

// AddSinks registers permanent sinks that receive every stored message
// regardless of room membership. Must be called before Start.
func (o *Orchestrator) AddSinks(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// Publish hands a stored-message event to the fanout pipeline without
// blocking the caller. A full buffer drops the event for live delivery;
// the canonical log already holds the row, so viewers recover it on the
// next history load.
func (o *Orchestrator) Publish(evt event.DomainEvent) {
	select {
	case o.events <- evt:
	default:
		o.stats.IncrDropped()
		o.log.Warn(fmt.Sprintf("Event channel full for Room %d, dropping live delivery", evt.RoomID()))
	}
}

// JoinRoom connects a participant sink to the fanout.
func (o *Orchestrator) JoinRoom(participantID string, roomID chat.RoomID, sink contract.EventSink) {
	if o.registry.Subscribe(participantID, roomID, sink) {
		o.stats.IncrResubscribes()
		o.log.Info("Participant resubscribed", "participant_id", participantID)
	}
}

// LeaveRoom disconnects a participant, unless their sink has already
// been replaced by a newer connection.
func (o *Orchestrator) LeaveRoom(participantID string, roomID chat.RoomID, sink contract.EventSink) {
	o.registry.Unsubscribe(participantID, roomID, sink)
}

// Start registers the pipeline workers with the supervisor and runs it
// in the background until the context is cancelled.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	fanout := workers.NewEventFanout(o.log, o.permanentSinks, o.registry,
		o.events, o.sinkTimeout, o.stats)
	o.supervisor.Add(fanout)
	o.supervisor.Add(workers.NewTelemetryWorker(o.log, o.telemetryInterval, o.stats))
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	go o.supervisor.Run(ctx)
}

// Stop initiates a graceful shutdown of the orchestrator.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
