package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/philipparndt/gomeasure/internal/app"
	"github.com/philipparndt/gomeasure/internal/config"
	"github.com/philipparndt/gomeasure/internal/logger"
	"github.com/philipparndt/gomeasure/internal/loop"
	"github.com/philipparndt/gomeasure/internal/relay"
	"github.com/philipparndt/gomeasure/internal/transport"
	"github.com/philipparndt/gomeasure/version"
)

var offline bool

var viewCmd = &cobra.Command{
	Use:   "view [model.stl]",
	Short: "Open the 3D measurement view",
	Long: `Open a window showing the room's measurements over a ground grid and an
optional STL model.

  M       toggle create mode, then drag with the left mouse button
  X       toggle delete mode, or delete the measurement being moved
  Escape  cancel the current interaction, leave the mode, then quit

Drag an endpoint to move it. With --offline the view runs against an
in-process room and shares nothing.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)

	flags := viewCmd.Flags()
	addClientFlags(flags)
	flags.BoolVar(&offline, "offline", false, "use a private in-process room instead of a relay")
	flags.String("model", "", "STL model used as the measuring surface")
	flags.Float64("hover-radius", 10, "endpoint hover radius in pixels")
	flags.Bool("ground-plane", true, "allow measuring on the y=0 plane")
}

func runView(cmd *cobra.Command, args []string) error {
	alog := logger.For(log, logger.AreaApp)
	mailbox := loop.NewMailbox()
	defer mailbox.Close()

	var (
		t      transport.Transport
		status string
	)
	if offline {
		room := relay.NewRoom(cfg.Client.Room, nil, log)
		mem := transport.NewMemory(room, mailbox, log)
		defer mem.Close()
		t, status = mem, "offline"
	} else {
		target, err := roomURL(cfg.Client.URL, cfg.Client.Room)
		if err != nil {
			return err
		}
		ws, err := transport.Dial(cmd.Context(), target, mailbox, log, transport.WebSocketOptions{
			MaxMessageSize: cfg.Relay.MaxMessageSize,
			PongWait:       cfg.Relay.PongWait,
		})
		if err != nil {
			return err
		}
		defer ws.Close()
		t, status = ws, fmt.Sprintf("%s room %s", cfg.Client.URL, cfg.Client.Room)
	}

	model := cfg.View.Model
	if len(args) == 1 {
		model = args[0]
	}
	viewer, err := app.New(app.Options{
		Config:    cfg,
		Transport: t,
		Mailbox:   mailbox,
		Model:     model,
		Title:     "GoMeasure " + version.GetVersion(),
		Status:    status,
		Log:       log,
	})
	if err != nil {
		return err
	}

	if ws, ok := t.(*transport.WebSocket); ok {
		go func() {
			<-ws.Done()
			err := ws.Err()
			if err != nil {
				alog.Warn("relay connection lost", "err", err)
			}
			mailbox.Post(func() { viewer.ConnectionLost(err) })
		}()
	}

	fw, err := config.Watch(v, log, func(c config.Config) {
		mailbox.Post(func() { viewer.ApplyConfig(c) })
	})
	if err != nil {
		alog.Warn("config hot reload not available", "err", err)
	} else if fw != nil {
		defer fw.Close()
	}

	return viewer.Run()
}
