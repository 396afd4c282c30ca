package main

import (
	"os"

	"code.sztanpet.net/zvpsz/picad-vision/internal/cad"
	"code.sztanpet.net/zvpsz/picad-vision/internal/config"
	"code.sztanpet.net/zvpsz/picad-vision/internal/logwriter"
	"github.com/juju/loggo"
	"github.com/spf13/cobra"
)

var logger = loggo.GetLogger("lcd")

type screen interface {
	Clear() error
	SetCursor(col, row int) error
	Write(text string) error
}

// openScreen returns the PiFaceCAD's LCD and the func releasing it.
var openScreen = func(cfg *config.Config) (screen, func() error, error) {
	board, err := cad.Open(cfg)
	if err != nil {
		return nil, nil, err
	}

	return board.LCD, board.Close, nil
}

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lcd [line1] [line2]",
		Short: "Display a two line message on the PiFaceCAD LCD",
		Long: `Display a two line message on the PiFaceCAD LCD.
Useful for printing some debugging messages if the Pi is not connected to a monitor.
Without arguments the display is cleared.
Every argument is literal text, lines may start with a dash.`,
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && (args[0] == "-h" || args[0] == "--help") {
				return cmd.Help()
			}

			cfg := config.Get()
			if err := logwriter.Setup(nil, "", cfg.LoggerSpec()); err != nil {
				return err
			}

			lcd, closeLCD, err := openScreen(cfg)
			if err != nil {
				logger.Criticalf("failed to open PiFaceCAD: %v", err)
				return err
			}
			defer closeLCD()

			return show(lcd, args)
		},
	}
}

// show clears the screen when there is nothing to say, otherwise writes
// the first two args to rows 0 and 1, leaving the rest of the screen alone.
func show(s screen, args []string) error {
	if len(args) == 0 {
		return s.Clear()
	}
	if len(args) > 2 {
		logger.Debugf("ignoring extra arguments: %q", args[2:])
	}

	for row, line := range args {
		if row > 1 {
			break
		}
		if err := s.SetCursor(0, row); err != nil {
			return err
		}
		if err := s.Write(line); err != nil {
			return err
		}
	}

	return nil
}
