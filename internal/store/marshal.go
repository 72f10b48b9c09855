package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SlowBubble/video-spreadsheet-sub000/internal/ir"
)

// timeLayout keeps nanoseconds so wall-clock stamps survive a round trip.
const timeLayout = time.RFC3339Nano

// marshalPlan converts a plan to canonical JSON TEXT for storage.
func marshalPlan(p ir.Plan) (string, error) {
	data, err := ir.MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("marshal plan: %w", err)
	}
	return string(data), nil
}

// marshalCommands converts a command list to canonical JSON TEXT.
func marshalCommands(commands []ir.Command) (string, error) {
	list := make([]any, len(commands))
	for i, c := range commands {
		list[i] = c
	}
	data, err := ir.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal commands: %w", err)
	}
	return string(data), nil
}

// marshalActions converts one frame's actions to canonical JSON TEXT.
func marshalActions(actions []ir.PlanAction) (string, error) {
	list := make([]any, len(actions))
	for i, a := range actions {
		list[i] = a
	}
	data, err := ir.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal actions: %w", err)
	}
	return string(data), nil
}

// unmarshalPlan parses canonical plan JSON. The "end" and "version" keys
// are derived data and ignored.
func unmarshalPlan(data string) (ir.Plan, error) {
	var p ir.Plan
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return ir.Plan{}, fmt.Errorf("unmarshal plan: %w", err)
	}
	return p, nil
}

func unmarshalCommands(data string) ([]ir.Command, error) {
	commands := []ir.Command{}
	if err := json.Unmarshal([]byte(data), &commands); err != nil {
		return nil, fmt.Errorf("unmarshal commands: %w", err)
	}
	return commands, nil
}

func unmarshalActions(data string) ([]ir.PlanAction, error) {
	actions := []ir.PlanAction{}
	if err := json.Unmarshal([]byte(data), &actions); err != nil {
		return nil, fmt.Errorf("unmarshal actions: %w", err)
	}
	return actions, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
