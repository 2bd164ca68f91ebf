package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/philipparndt/gomeasure/internal/loop"
	"github.com/philipparndt/gomeasure/internal/measurement"
	"github.com/philipparndt/gomeasure/internal/session"
	"github.com/philipparndt/gomeasure/internal/transport"
	"github.com/philipparndt/gomeasure/pkg/analysis"
	"github.com/philipparndt/gomeasure/pkg/geometry"
)

var (
	startXYZ []float64
	endXYZ   []float64
	timeout  time.Duration
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a measurement in a room",
	Long:  "Send a create request to the relay and wait for the broadcast that assigns its id.",
	Example: `  gomeasure create --start 0,0,0 --end 3,4,0
  gomeasure create --room lab --start 1,0,1 --end 1,2,1`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

var updateCmd = &cobra.Command{
	Use:     "update <id>",
	Short:   "Move the endpoints of a measurement",
	Example: "  gomeasure update 3 --start 0,0,0 --end 0,5,0",
	Args:    cobra.ExactArgs(1),
	RunE:    runUpdate,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a measurement",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the measurements of a room as they change",
	Long: `Join a room and print every confirmed change, starting with the current
state. A summary is printed on exit.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	for _, c := range []*cobra.Command{createCmd, updateCmd, deleteCmd, watchCmd} {
		rootCmd.AddCommand(c)
		addClientFlags(c.Flags())
	}
	for _, c := range []*cobra.Command{createCmd, updateCmd} {
		c.Flags().Float64SliceVar(&startXYZ, "start", nil, "start point as x,y,z")
		c.Flags().Float64SliceVar(&endXYZ, "end", nil, "end point as x,y,z")
		_ = c.MarkFlagRequired("start")
		_ = c.MarkFlagRequired("end")
	}
	for _, c := range []*cobra.Command{createCmd, updateCmd, deleteCmd} {
		c.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for the relay to confirm")
	}
}

// client is a headless session: the mailbox is drained by the command's
// goroutine while it waits.
type client struct {
	ws       *transport.WebSocket
	mailbox  *loop.Mailbox
	registry *measurement.Registry
	adapter  *session.Adapter
	events   []session.Event
}

func connect(ctx context.Context) (*client, error) {
	target, err := roomURL(cfg.Client.URL, cfg.Client.Room)
	if err != nil {
		return nil, err
	}
	mailbox := loop.NewMailbox()
	ws, err := transport.Dial(ctx, target, mailbox, log, transport.WebSocketOptions{
		MaxMessageSize: cfg.Relay.MaxMessageSize,
		PongWait:       cfg.Relay.PongWait,
	})
	if err != nil {
		return nil, err
	}

	c := &client{
		ws:       ws,
		mailbox:  mailbox,
		registry: measurement.NewRegistry(log),
	}
	c.adapter = session.New(ws, c.registry, log)
	c.adapter.Observe(session.ObserverFunc(func(ev session.Event) {
		c.events = append(c.events, ev)
	}))
	c.adapter.Start()
	return c, nil
}

func (c *client) Close() {
	c.adapter.Close()
	c.ws.Close()
	c.mailbox.Close()
}

// next drains the mailbox until at least one event is available
func (c *client) next(ctx context.Context) ([]session.Event, error) {
	for {
		c.mailbox.Drain()
		if len(c.events) > 0 {
			evs := c.events
			c.events = nil
			return evs, nil
		}
		select {
		case <-c.mailbox.Notify():
		case <-c.ws.Done():
			if err := c.ws.Err(); err != nil {
				return nil, fmt.Errorf("relay connection lost: %w", err)
			}
			return nil, errors.New("relay connection closed")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// await waits for the broadcast answering requestID
func (c *client) await(ctx context.Context, requestID string) (session.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		evs, err := c.next(ctx)
		if errors.Is(err, context.DeadlineExceeded) {
			return session.Event{}, fmt.Errorf("no confirmation from the relay within %s", timeout)
		}
		if err != nil {
			return session.Event{}, err
		}
		for _, ev := range evs {
			if ev.RequestID == requestID && ev.Local {
				return ev, nil
			}
		}
	}
}

func runCreate(cmd *cobra.Command, args []string) error {
	start, end, err := endpoints()
	if err != nil {
		return err
	}
	c, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	requestID, err := c.adapter.RequestCreate(start, end, start.Distance(end))
	if err != nil {
		return err
	}
	ev, err := c.await(cmd.Context(), requestID)
	if err != nil {
		return err
	}
	printEvent(cmd.OutOrStdout(), ev)
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	start, end, err := endpoints()
	if err != nil {
		return err
	}
	c, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	requestID, err := c.adapter.RequestUpdate(id, start, end, start.Distance(end))
	if err != nil {
		return err
	}
	ev, err := c.await(cmd.Context(), requestID)
	if err != nil {
		return fmt.Errorf("measurement %d: %w", id, err)
	}
	printEvent(cmd.OutOrStdout(), ev)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	c, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	requestID, err := c.adapter.RequestDelete(id)
	if err != nil {
		return err
	}
	ev, err := c.await(cmd.Context(), requestID)
	if err != nil {
		return fmt.Errorf("measurement %d: %w", id, err)
	}
	printEvent(cmd.OutOrStdout(), ev)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	c, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	out := cmd.OutOrStdout()
	for {
		evs, err := c.next(cmd.Context())
		for _, ev := range evs {
			printEvent(out, ev)
		}
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(out, summarize(c.registry))
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func endpoints() (start, end geometry.Vector3, err error) {
	if start, err = parsePoint("start", startXYZ); err != nil {
		return
	}
	end, err = parsePoint("end", endXYZ)
	return
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid measurement id %q", s)
	}
	return id, nil
}

func printEvent(w io.Writer, ev session.Event) {
	if ev.Kind == session.Removed {
		fmt.Fprintf(w, "%-8s #%d\n", ev.Kind, ev.ID)
		return
	}
	e := ev.Entity
	fmt.Fprintf(w, "%-8s #%d %s -> %s  %s\n", ev.Kind, ev.ID,
		analysis.FormatVector(e.Start), analysis.FormatVector(e.End),
		analysis.FormatMeasurement(e.Distance, ""))
}

func summarize(r *measurement.Registry) analysis.Summary {
	return analysis.Summarize(func(yield func(float64) bool) {
		for e := range r.Values() {
			if !yield(e.Distance) {
				return
			}
		}
	})
}
