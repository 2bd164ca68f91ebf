package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/pflag"

	"github.com/philipparndt/gomeasure/pkg/geometry"
)

// flagKeys maps flag names to the config keys they override. Several
// commands declare the same flag, so binding happens for the command that
// actually runs.
var flagKeys = map[string]string{
	"log-level":    "log.level",
	"log-format":   "log.format",
	"listen":       "relay.listen",
	"url":          "client.url",
	"room":         "client.room",
	"model":        "view.model",
	"hover-radius": "view.hover_radius",
	"ground-plane": "view.ground_plane",
}

func bindFlags(flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		err = v.BindPFlag(key, f)
	})
	return err
}

// addClientFlags registers the relay connection flags shared by every client command
func addClientFlags(flags *pflag.FlagSet) {
	flags.String("url", "ws://localhost:8080/ws", "relay websocket URL")
	flags.String("room", "default", "room to join")
}

// roomURL adds the room query parameter to the configured relay URL
func roomURL(base, room string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid relay URL %q: %w", base, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("invalid relay URL %q: scheme must be ws or wss", base)
	}
	q := u.Query()
	q.Set("room", room)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// parsePoint converts an x,y,z flag value
func parsePoint(name string, xyz []float64) (geometry.Vector3, error) {
	if len(xyz) != 3 {
		return geometry.Vector3{}, fmt.Errorf("--%s needs three comma separated coordinates, got %d", name, len(xyz))
	}
	p := geometry.NewVector3(xyz[0], xyz[1], xyz[2])
	if !p.IsFinite() {
		return geometry.Vector3{}, fmt.Errorf("--%s must be finite", name)
	}
	return p, nil
}
