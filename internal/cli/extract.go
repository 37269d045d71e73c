package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/MrSnakeDoc/tonton/internal/domain"
)

type extractJSON struct {
	Kind   string `json:"kind"`
	Title  string `json:"title"`
	Number int    `json:"number"`
}

// Execute implements the go-flags Commander interface for ExtractCommand.
func (c *ExtractCommand) Execute(args []string) error {
	kind := strings.ToLower(strings.TrimSpace(c.Kind))

	var n int
	switch kind {
	case "episode":
		n = domain.ExtractEpisodeNumber(c.Title)
	case "chapter":
		n = domain.ExtractChapterNumber(c.Title)
	default:
		return fmt.Errorf("invalid --kind %q (want episode or chapter)", c.Kind)
	}

	if c.globals != nil && c.globals.JSON {
		return json.NewEncoder(os.Stdout).Encode(extractJSON{Kind: kind, Title: c.Title, Number: n})
	}
	fmt.Println(n)
	return nil
}
