package cli

import (
	"context"
	"fmt"

	"github.com/crateship/crateship/internal/target"
)

// Represents the 'crateship targets' command.
type TargetsCmd struct{}

// Executes the targets command.
func (c *TargetsCmd) Run(ctx context.Context) error {
	for _, triple := range target.Supported() {
		fmt.Println(triple)
	}
	return nil
}
