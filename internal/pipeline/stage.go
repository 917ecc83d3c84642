package pipeline

import "fmt"

// Pipeline stage, named in failure reports and mapped to exit codes.
type Stage string

const (
	StageConfig    Stage = "config"
	StageToolchain Stage = "toolchain"
	StageCompile   Stage = "compile"
	StagePackage   Stage = "package"
)

// Pipeline state. The pipeline advances strictly forward; Failed is terminal
// and reachable from any state.
type State string

const (
	StateInit              State = "init"
	StateToolchainResolved State = "toolchain-resolved"
	StateCompiled          State = "compiled"
	StatePackaged          State = "packaged"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// The forward transitions the pipeline may take. Failed is allowed from
// every non-terminal state and is handled separately.
var transitions = map[State]State{
	StateInit:              StateToolchainResolved,
	StateToolchainResolved: StateCompiled,
	StateCompiled:          StatePackaged,
	StatePackaged:          StateDone,
}

// Advances from one state to its successor.
//
// An out-of-order advance indicates an orchestrator bug, not a build
// failure, and is reported as an error so tests can observe it.
func advance(from, to State) (State, error) {
	if transitions[from] != to {
		return from, fmt.Errorf("invalid pipeline transition: %s -> %s", from, to)
	}
	return to, nil
}

// Reports whether the state is terminal.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
