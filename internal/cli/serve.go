package cli

import (
	"github.com/MrSnakeDoc/tonton/internal/app"
)

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	a, err := app.New(cfg, app.NewLogger(cfg))
	if err != nil {
		return err
	}
	return a.Run()
}
