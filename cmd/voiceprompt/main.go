package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

// CLI defines the voiceprompt command structure.
type CLI struct {
	Globals

	// Default TUI command (runs when no subcommand given)
	TUI TUICmd `cmd:"" default:"withargs" help:"Launch terminal UI: pick a microphone, record a prompt, run the pipeline"`

	// Subcommands
	Record  RecordCmd  `cmd:"" help:"Record for a fixed duration and run the pipeline without a UI"`
	Devices DevicesCmd `cmd:"" help:"List available capture devices"`
	Config  ConfigCmd  `cmd:"" help:"Manage configuration"`
}

func main() {
	// Text logger until a command sets up its own
	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))

	cli := &CLI{} //nolint:exhaustruct // Kong fills in command fields
	ctx := kong.Parse(cli,
		kong.Name("voiceprompt"),
		kong.Description("Speak an image prompt, generate it, and hear how well it matched."),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
	os.Exit(0)
}
