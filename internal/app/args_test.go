package app

import (
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"empty is help", nil, Command{Name: "help"}},
		{"positional coin", []string{"open", "btc"}, Command{Name: "open", Coin: "BTC"}},
		{"flags after coin", []string{"loop", "BTC", "-n", "10", "-i", "3"}, Command{Name: "loop", Coin: "BTC", Count: 10, Interval: 3 * time.Second}},
		{"flags before coin", []string{"loop", "--count", "2", "--hold-time", "30", "eth"}, Command{Name: "loop", Coin: "ETH", Count: 2, HoldTime: 30 * time.Second}},
		{"long coin and size", []string{"close", "--coin", "sol", "-s", "1.5", "-f"}, Command{Name: "close", Coin: "SOL", Size: "1.5", Force: true}},
		{"auto close duration", []string{"open", "--auto-close", "1m", "--dry-run"}, Command{Name: "open", AutoClose: time.Minute, DryRun: true}},
		{"global flag first", []string{"-config", "x.toml", "status"}, Command{Name: "status"}},
		{"fractional seconds", []string{"loop", "-i", "1.5"}, Command{Name: "loop", Interval: 1500 * time.Millisecond}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatal(err)
			}
			if got.Name != tt.want.Name || got.Coin != tt.want.Coin || got.Size != tt.want.Size ||
				got.Count != tt.want.Count || got.HoldTime != tt.want.HoldTime || got.Interval != tt.want.Interval ||
				got.AutoClose != tt.want.AutoClose || got.DryRun != tt.want.DryRun || got.Force != tt.want.Force {
				t.Fatalf("got %+v want %+v", got, tt.want)
			}
		})
	}
}

func TestParseArgsTracksExplicitFlags(t *testing.T) {
	cmd, err := ParseArgs([]string{"loop", "-n", "3", "--stop-on-error"})
	if err != nil {
		t.Fatal(err)
	}
	if !cmd.Set("count") || !cmd.Set("stop-on-error") {
		t.Fatalf("set = %v", cmd.set)
	}
	if cmd.Set("interval") || cmd.Set("hold-time") {
		t.Fatal("unset flags reported as set")
	}
	if cmd.ConfigPath != DefaultConfigPath {
		t.Fatalf("config path %q", cmd.ConfigPath)
	}
}

func TestParseArgsErrors(t *testing.T) {
	for _, args := range [][]string{
		{"open", "BTC", "ETH"},
		{"open", "BTC", "--coin", "ETH"},
		{"loop", "-n", "0"},
		{"loop", "--hold-time", "soon"},
		{"loop", "-i", "-5"},
		{"open", "--bogus"},
	} {
		if _, err := ParseArgs(args); !errors.Is(err, domain.ErrConfiguration) {
			t.Errorf("ParseArgs(%q) = %v, want configuration error", args, err)
		}
	}
}

func TestParseArgsHelpFlag(t *testing.T) {
	cmd, err := ParseArgs([]string{"open", "-h"})
	if err != nil || cmd.Name != "help" {
		t.Fatalf("got %+v, %v", cmd, err)
	}
}
