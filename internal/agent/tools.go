package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ydjemai93/test-drive/pkg/logger"
)

// Tool names exposed to the conversation engine.
const (
	ToolTransferCall             = "transfer_call"
	ToolEndCall                  = "end_call"
	ToolLookUpAvailability       = "look_up_availability"
	ToolConfirmAppointment       = "confirm_appointment"
	ToolDetectedAnsweringMachine = "detected_answering_machine"
)

// ToolHandler executes a named tool call from the conversation engine and
// returns the output to feed back to the model.
type ToolHandler func(ctx context.Context, name string, args json.RawMessage) (string, error)

// AppointmentBook answers the scheduling tools. The call-control actions
// never go through it.
type AppointmentBook interface {
	Availability(ctx context.Context, date string) ([]string, error)
	Confirm(ctx context.Context, date, timeOfDay string) (string, error)
}

// ToolDispatcher routes tool calls: call-control tools to the controller,
// scheduling tools to the appointment book. Control-action refusals are
// surfaced to the model as spoken replies, never as errors.
func ToolDispatcher(ctrl *Controller, book AppointmentBook) ToolHandler {
	return func(ctx context.Context, name string, args json.RawMessage) (string, error) {
		switch name {
		case ToolTransferCall:
			return controlAction(ctx, ctrl, ActionTransfer)
		case ToolEndCall:
			return controlAction(ctx, ctrl, ActionEnd)
		case ToolDetectedAnsweringMachine:
			return controlAction(ctx, ctrl, ActionVoicemailDetected)

		case ToolLookUpAvailability:
			var in struct {
				Date string `json:"date"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("bad arguments for %s: %w", name, err)
			}
			times, err := book.Availability(ctx, in.Date)
			if err != nil {
				return "", err
			}
			out, err := json.Marshal(map[string]any{"available_times": times})
			if err != nil {
				return "", err
			}
			return string(out), nil

		case ToolConfirmAppointment:
			var in struct {
				Date string `json:"date"`
				Time string `json:"time"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("bad arguments for %s: %w", name, err)
			}
			return book.Confirm(ctx, in.Date, in.Time)

		default:
			return "", fmt.Errorf("unknown tool %q", name)
		}
	}
}

func controlAction(ctx context.Context, ctrl *Controller, action Action) (string, error) {
	reply, err := ctrl.Handle(ctx, action)
	if err != nil {
		if IsRefusal(err) {
			logger.Log.Infof("Control action refused: %v", err)
			return reply, nil
		}
		return reply, err
	}
	return reply, nil
}
