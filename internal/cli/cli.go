// Package cli is the tonton command line: the server plus a few offline
// maintenance commands working directly on the configured storage.
package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Serve   *ServeCommand
	List    *ListCommand
	Dedup   *DedupCommand
	Extract *ExtractCommand
	Probe   *ProbeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "tonton"
	parser.LongDescription = "Bookmark store and stream resolver for the tonton anime and komik front-end."
	parser.SubcommandsOptional = true

	cmds := &commands{
		Serve:   &ServeCommand{globals: &globals, version: version},
		List:    &ListCommand{globals: &globals, version: version},
		Dedup:   &DedupCommand{globals: &globals, version: version},
		Extract: &ExtractCommand{globals: &globals, version: version},
		Probe:   &ProbeCommand{globals: &globals, version: version},
	}

	mustAdd(parser.AddCommand("serve", "Run the HTTP API (default)", "Run the HTTP API with its schedulers until interrupted.", cmds.Serve))
	mustAdd(parser.AddCommand("list", "List bookmarks", "List bookmarks from the configured storage, optionally filtered.", cmds.List))
	mustAdd(parser.AddCommand("dedup", "Deduplicate bookmarks", "Drop duplicate bookmarks, keeping the richest record of each title.", cmds.Dedup))
	mustAdd(parser.AddCommand("extract", "Extract an episode or chapter number", "Extract the episode or chapter number from a title.", cmds.Extract))
	mustAdd(parser.AddCommand("probe", "Probe stream mirrors", "Send a HEAD request to every mirror and report which ones answer.", cmds.Probe))

	return parser, &globals, cmds
}

func mustAdd(_ *goflags.Command, err error) {
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: invalid command definition: %v", err))
	}
}

// Run is the main entry point for the tonton CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the
// matched subcommand. No subcommand means serve.
func RunWithArgs(version string, args []string) error {
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("tonton %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, cmds := buildParser(version)

	var (
		rest []string
		err  error
	)
	if args != nil {
		rest, err = parser.ParseArgs(args)
	} else {
		rest, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	if parser.Active == nil {
		if len(rest) > 0 {
			return fmt.Errorf("unknown command %q", rest[0])
		}
		return cmds.Serve.Execute(nil)
	}
	return nil
}
