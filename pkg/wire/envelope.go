// Package wire defines the envelope exchanged between the capture agent and
// the recording server. The duplex channel and the HTTP fallback carry the
// same shape, so a payload queued for one transport can be replayed on the
// other unchanged.
package wire

import (
	"encoding/json"
	"time"

	"github.com/stenoweb/steno/pkg/event"
	stenoerrors "github.com/stenoweb/steno/pkg/errors"
)

// Envelope message types.
const (
	TypeEvent     = "EVENT"
	TypeCommand   = "COMMAND"
	TypeHeartbeat = "HEARTBEAT"
	TypeStatus    = "STATUS"
	TypeAck       = "ACK"
)

// Envelope is the wire frame for both transports.
type Envelope struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// CommandAction is a server-to-agent instruction.
type CommandAction string

const (
	CommandPause      CommandAction = "PAUSE"
	CommandResume     CommandAction = "RESUME"
	CommandStop       CommandAction = "STOP"
	CommandStatus     CommandAction = "STATUS"
	CommandScreenshot CommandAction = "CAPTURE_SCREENSHOT"
)

// Known reports whether a is a supported command action.
func (a CommandAction) Known() bool {
	switch a {
	case CommandPause, CommandResume, CommandStop, CommandStatus, CommandScreenshot:
		return true
	}
	return false
}

// Command is the payload of a TypeCommand envelope.
type Command struct {
	Action CommandAction `json:"action"`
}

// StatusReport is the payload of a TypeStatus envelope sent by the agent in
// reply to a STATUS command.
type StatusReport struct {
	ConnectionState string `json:"connectionState"`
	Recording       bool   `json:"recording"`
	QueueDepth      int    `json:"queueDepth"`
	EventsSent      int64  `json:"eventsSent"`
	EventsDropped   int64  `json:"eventsDropped"`
}

// SessionKeyHeader authenticates fallback submissions and lifecycle calls.
const SessionKeyHeader = "X-Steno-Session-Key"

// FallbackPath returns the HTTP fallback POST target for a session.
func FallbackPath(sessionID string) string {
	return "/api/recorder/events/" + sessionID
}

// NewEventEnvelope wraps a recorded event for transmission.
func NewEventEnvelope(sessionID string, e *event.Event) (Envelope, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, stenoerrors.Wrap(err, stenoerrors.ErrCodeEnvelopeDecode, "failed to encode event payload")
	}
	return Envelope{
		Type:      TypeEvent,
		SessionID: sessionID,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}, nil
}

// NewCommandEnvelope wraps a server command for transmission to the agent.
func NewCommandEnvelope(sessionID string, action CommandAction) Envelope {
	payload, _ := json.Marshal(Command{Action: action})
	return Envelope{
		Type:      TypeCommand,
		SessionID: sessionID,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
}

// NewHeartbeat builds the one-way liveness envelope sent while connected.
func NewHeartbeat(sessionID string) Envelope {
	return Envelope{
		Type:      TypeHeartbeat,
		SessionID: sessionID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewStatusEnvelope wraps an agent status report.
func NewStatusEnvelope(sessionID string, report StatusReport) Envelope {
	payload, _ := json.Marshal(report)
	return Envelope{
		Type:      TypeStatus,
		SessionID: sessionID,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
}

// DecodeEvent extracts the recorded event from a TypeEvent envelope.
func DecodeEvent(env Envelope) (*event.Event, error) {
	if env.Type != TypeEvent {
		return nil, stenoerrors.New(stenoerrors.ErrCodeEnvelopeDecode, "envelope is not an event").
			WithContext("type", env.Type)
	}
	var e event.Event
	if err := json.Unmarshal(env.Payload, &e); err != nil {
		if _, ok := err.(*stenoerrors.Error); ok {
			return nil, err
		}
		return nil, stenoerrors.Wrap(err, stenoerrors.ErrCodeEnvelopeDecode, "failed to decode event payload")
	}
	return &e, nil
}

// DecodeCommand extracts the command from a TypeCommand envelope.
func DecodeCommand(env Envelope) (Command, error) {
	if env.Type != TypeCommand {
		return Command{}, stenoerrors.New(stenoerrors.ErrCodeEnvelopeDecode, "envelope is not a command").
			WithContext("type", env.Type)
	}
	var cmd Command
	if err := json.Unmarshal(env.Payload, &cmd); err != nil {
		return Command{}, stenoerrors.Wrap(err, stenoerrors.ErrCodeEnvelopeDecode, "failed to decode command payload")
	}
	if !cmd.Action.Known() {
		return Command{}, stenoerrors.New(stenoerrors.ErrCodeCommandUnknown, "unknown command action").
			WithContext("action", string(cmd.Action))
	}
	return cmd, nil
}
