package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

// DefaultConfigPath is read when -config is not given. A missing file is
// not an error.
const DefaultConfigPath = "hedgebot.toml"

// Command is one parsed CLI invocation. Zero values mean "use the
// configured default"; Set reports which flags were given explicitly.
type Command struct {
	Name        string
	Coin        string
	Size        string
	Count       int
	HoldTime    time.Duration
	Interval    time.Duration
	StopOnError bool
	AutoClose   time.Duration
	DryRun      bool
	Force       bool
	ConfigPath  string

	// encrypt-key only
	Label string
	Out   string

	set map[string]bool
}

// Set reports whether the long flag name was present on the command line.
func (c Command) Set(name string) bool {
	return c.set[name]
}

var shortFlags = map[string]string{
	"c": "coin",
	"s": "size",
	"n": "count",
	"i": "interval",
	"f": "force",
}

// ParseArgs parses os.Args[1:]. The first positional argument is the
// command and the second the coin; flags may appear anywhere ("loop BTC
// -n 10 -i 3"). No command selects help.
func ParseArgs(args []string) (Command, error) {
	cmd := Command{Name: "help", ConfigPath: DefaultConfigPath, set: make(map[string]bool)}

	var holdTime, interval, autoClose string
	fs := flag.NewFlagSet("hedgebot", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cmd.Coin, "coin", "", "")
	fs.StringVar(&cmd.Coin, "c", "", "")
	fs.StringVar(&cmd.Size, "size", "", "")
	fs.StringVar(&cmd.Size, "s", "", "")
	fs.IntVar(&cmd.Count, "count", 0, "")
	fs.IntVar(&cmd.Count, "n", 0, "")
	fs.StringVar(&holdTime, "hold-time", "", "")
	fs.StringVar(&interval, "interval", "", "")
	fs.StringVar(&interval, "i", "", "")
	fs.BoolVar(&cmd.StopOnError, "stop-on-error", false, "")
	fs.StringVar(&autoClose, "auto-close", "", "")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "")
	fs.BoolVar(&cmd.Force, "force", false, "")
	fs.BoolVar(&cmd.Force, "f", false, "")
	fs.StringVar(&cmd.ConfigPath, "config", DefaultConfigPath, "")
	fs.StringVar(&cmd.Label, "label", "", "")
	fs.StringVar(&cmd.Out, "out", "", "")

	var positional []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				cmd.Name = "help"
				return cmd, nil
			}
			return Command{}, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		rest = fs.Args()[1:]
	}

	fs.Visit(func(f *flag.Flag) {
		name := f.Name
		if long, ok := shortFlags[name]; ok {
			name = long
		}
		cmd.set[name] = true
	})

	if len(positional) > 0 {
		cmd.Name = strings.ToLower(positional[0])
		positional = positional[1:]
	}
	switch len(positional) {
	case 0:
	case 1:
		if cmd.set["coin"] {
			return Command{}, fmt.Errorf("%w: coin given twice (%q and %q)", domain.ErrConfiguration, cmd.Coin, positional[0])
		}
		cmd.Coin = positional[0]
		cmd.set["coin"] = true
	default:
		return Command{}, fmt.Errorf("%w: unexpected arguments %q", domain.ErrConfiguration, positional[1:])
	}
	cmd.Coin = strings.ToUpper(strings.TrimSpace(cmd.Coin))

	var err error
	if cmd.HoldTime, err = parseSeconds("hold-time", holdTime); err != nil {
		return Command{}, err
	}
	if cmd.Interval, err = parseSeconds("interval", interval); err != nil {
		return Command{}, err
	}
	if cmd.AutoClose, err = parseSeconds("auto-close", autoClose); err != nil {
		return Command{}, err
	}
	if cmd.set["count"] && cmd.Count <= 0 {
		return Command{}, fmt.Errorf("%w: count must be positive, got %d", domain.ErrConfiguration, cmd.Count)
	}
	return cmd, nil
}

// parseSeconds accepts a bare number of seconds ("30", "1.5") or a Go
// duration ("30s").
func parseSeconds(flagName, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return 0, fmt.Errorf("%w: --%s: invalid duration %q", domain.ErrConfiguration, flagName, v)
		}
		d = time.Duration(f * float64(time.Second))
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: --%s must not be negative", domain.ErrConfiguration, flagName)
	}
	return d, nil
}
