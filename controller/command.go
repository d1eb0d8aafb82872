package controller

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/opd-ai/rovlink/message"
)

var (
	// ErrUnknownCommand indicates the first word of a line names no command.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUsage indicates a known command with malformed arguments.
	ErrUsage = errors.New("usage")
)

// Kind identifies a console command.
type Kind int

const (
	KindPing Kind = iota
	KindValue
	KindPeriodic
	KindVideo
	KindLights
	KindCamera
	KindDrive
	KindStop
	KindDebug
	KindAutoPing
	KindHelp
)

// Command is a parsed console line.
type Command struct {
	Kind    Kind
	Subtype message.Subtype
	Value   uint16
	On      bool
	X, Y    int16
	Text    string
}

type commandSpec struct {
	kind  Kind
	usage string
	parse func(cmd *Command, args []string) error
}

var commands = map[string]commandSpec{
	"ping":     {KindPing, "ping", noArgs},
	"value":    {KindValue, "value <subtype> <n>", parseValue},
	"periodic": {KindPeriodic, "periodic <subtype> <n>", parseValue},
	"video":    {KindVideo, "video on|off", parseSwitch},
	"lights":   {KindLights, "lights on|off", parseSwitch},
	"camera":   {KindCamera, "camera <x> <y>", parsePair},
	"drive":    {KindDrive, "drive <right> <left>", parsePair},
	"stop":     {KindStop, "stop", noArgs},
	"debug":    {KindDebug, "debug <text>", nil},
	"autoping": {KindAutoPing, "autoping on|off", parseSwitch},
	"help":     {KindHelp, "help", noArgs},
}

// Usage lists the accepted command forms, one per line.
func Usage() string {
	names := []string{"ping", "value", "periodic", "video", "lights", "camera", "drive", "stop", "debug", "autoping", "help"}
	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "  %s\n", commands[n].usage)
	}
	return b.String()
}

// ParseCommand parses one console line. Command words and subtype names are
// case-insensitive.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	word, rest, _ := strings.Cut(line, " ")
	spec, ok := commands[strings.ToLower(word)]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, word)
	}

	cmd := Command{Kind: spec.kind}
	if spec.kind == KindDebug {
		cmd.Text = strings.TrimSpace(rest)
		if cmd.Text == "" {
			return Command{}, fmt.Errorf("%w: %s", ErrUsage, spec.usage)
		}
		return cmd, nil
	}

	if err := spec.parse(&cmd, strings.Fields(rest)); err != nil {
		return Command{}, fmt.Errorf("%w: %s: %v", ErrUsage, spec.usage, err)
	}
	return cmd, nil
}

func noArgs(_ *Command, args []string) error {
	if len(args) != 0 {
		return errors.New("takes no arguments")
	}
	return nil
}

func parseValue(cmd *Command, args []string) error {
	if len(args) != 2 {
		return errors.New("want 2 arguments")
	}
	sub, err := parseSubtype(args[0])
	if err != nil {
		return err
	}
	v, err := strconv.ParseUint(args[1], 0, 16)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	cmd.Subtype = sub
	cmd.Value = uint16(v)
	return nil
}

// parseSubtype accepts a subtype name or its number.
func parseSubtype(s string) (message.Subtype, error) {
	if sub, ok := message.ParseSubtype(strings.ToUpper(s)); ok {
		return sub, nil
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown subtype %q", s)
	}
	return message.Subtype(n), nil
}

func parseSwitch(cmd *Command, args []string) error {
	if len(args) != 1 {
		return errors.New("want on or off")
	}
	switch strings.ToLower(args[0]) {
	case "on", "1", "true":
		cmd.On = true
	case "off", "0", "false":
		cmd.On = false
	default:
		return fmt.Errorf("want on or off, got %q", args[0])
	}
	return nil
}

func parsePair(cmd *Command, args []string) error {
	if len(args) != 2 {
		return errors.New("want 2 arguments")
	}
	x, err := strconv.ParseInt(args[0], 10, 16)
	if err != nil {
		return err
	}
	y, err := strconv.ParseInt(args[1], 10, 16)
	if err != nil {
		return err
	}
	cmd.X, cmd.Y = int16(x), int16(y)
	return nil
}
