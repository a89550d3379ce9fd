package catalog

import (
	"context"
	"errors"
)

const (
	TurnOnSemanticValue  = "TURN_ON"
	TurnOffSemanticValue = "TURN_OFF"
)

var (
	turnOnLabels  = []string{"turn on", "switch on", "power on", "flip on"}
	turnOffLabels = []string{"turn off", "switch off", "power off", "shut off", "flip off"}
)

// switchAction forwards one fixed semantic value to the executor boundary.
type switchAction struct {
	value    string
	labels   []string
	executor Executor
}

// TurnOn builds the TURN_ON action. Default labels are used when none are given.
func TurnOn(executor Executor, labels ...string) Action {
	if len(labels) == 0 {
		labels = turnOnLabels
	}
	return switchAction{value: TurnOnSemanticValue, labels: append([]string(nil), labels...), executor: executor}
}

// TurnOff builds the TURN_OFF action. Default labels are used when none are given.
func TurnOff(executor Executor, labels ...string) Action {
	if len(labels) == 0 {
		labels = turnOffLabels
	}
	return switchAction{value: TurnOffSemanticValue, labels: append([]string(nil), labels...), executor: executor}
}

func (a switchAction) SemanticValue() string {
	return a.value
}

func (a switchAction) Labels() []string {
	return append([]string(nil), a.labels...)
}

func (a switchAction) Execute(ctx context.Context, id Identifier) error {
	if a.executor == nil {
		return errors.New("no executor bound to action " + a.value)
	}
	return a.executor.Execute(ctx, a.value, id.SemanticValue)
}
