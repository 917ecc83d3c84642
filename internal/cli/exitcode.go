package cli

import "github.com/crateship/crateship/internal/pipeline"

// Exit codes by failing stage, for scripting around the CLI.
const (
	ExitOK        = 0
	ExitFailure   = 1 // Failure outside any pipeline stage.
	ExitConfig    = 2
	ExitToolchain = 3
	ExitCompile   = 4
	ExitPackage   = 5
)

// Maps an error from [Execute] to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	stage, ok := pipeline.FailedStage(err)
	if !ok {
		return ExitFailure
	}

	switch stage {
	case pipeline.StageConfig:
		return ExitConfig
	case pipeline.StageToolchain:
		return ExitToolchain
	case pipeline.StageCompile:
		return ExitCompile
	case pipeline.StagePackage:
		return ExitPackage
	default:
		return ExitFailure
	}
}
