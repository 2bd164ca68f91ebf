package relay

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/philipparndt/gomeasure/internal/logger"
	"github.com/philipparndt/gomeasure/internal/protocol"
)

type fakeMember struct {
	id         string
	frames     []protocol.Envelope
	deliveries int
	refuse     bool
}

func (f *fakeMember) ID() string { return f.id }

func (f *fakeMember) Deliver(frame []byte) bool {
	if f.refuse {
		return false
	}
	f.deliveries++
	for data := range protocol.Frames(frame) {
		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			panic(err)
		}
		f.frames = append(f.frames, env)
	}
	return true
}

func createFrame(t *testing.T, requestID string, start, end protocol.Point) []byte {
	t.Helper()
	frame, err := protocol.Encode(protocol.CreateMeasurement, requestID, protocol.Measurement{
		ID: -1, Start: start, End: end,
	})
	if err != nil {
		t.Fatal(err)
	}
	return frame
}

func decodeMeasurement(t *testing.T, env protocol.Envelope) protocol.Measurement {
	t.Helper()
	m, err := protocol.DecodeMeasurement(env.Payload)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestRoomCreateAssignsIDs(t *testing.T) {
	room := NewRoom("r", nil, logger.Discard())
	a := &fakeMember{id: "a"}
	room.Join(a)

	for i := 0; i < 3; i++ {
		if err := room.Handle(createFrame(t, "req", protocol.Point{}, protocol.Point{X: 3, Y: 4})); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
	}

	if len(a.frames) != 3 {
		t.Fatalf("received %d frames, want 3", len(a.frames))
	}
	for i, env := range a.frames {
		m := decodeMeasurement(t, env)
		if m.ID != i+1 {
			t.Errorf("frame %d id = %d, want %d", i, m.ID, i+1)
		}
		if m.Distance != 5 {
			t.Errorf("frame %d distance = %v, want 5", i, m.Distance)
		}
		if env.RequestID != "req" {
			t.Errorf("frame %d request id = %q, want echo", i, env.RequestID)
		}
	}
}

func TestRoomRecomputesDistance(t *testing.T) {
	room := NewRoom("r", nil, logger.Discard())
	a := &fakeMember{id: "a"}
	room.Join(a)

	frame, _ := protocol.Encode(protocol.CreateMeasurement, "", protocol.Measurement{
		ID: -1, End: protocol.Point{X: 1}, Distance: 99,
	})
	if err := room.Handle(frame); err != nil {
		t.Fatal(err)
	}
	if got := decodeMeasurement(t, a.frames[0]).Distance; got != 1 {
		t.Errorf("distance = %v, want 1", got)
	}
}

func TestRoomRejectsUnknownIDs(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	room := NewRoom("r", metrics, logger.Discard())
	a := &fakeMember{id: "a"}
	room.Join(a)

	update, _ := protocol.Encode(protocol.UpdateMeasurement, "", protocol.Measurement{ID: 42})
	if err := room.Handle(update); !errors.Is(err, ErrUnknownMeasurement) {
		t.Errorf("update error = %v, want ErrUnknownMeasurement", err)
	}
	del, _ := protocol.Encode(protocol.DeleteMeasurement, "", protocol.Delete{ID: 42})
	if err := room.Handle(del); !errors.Is(err, ErrUnknownMeasurement) {
		t.Errorf("delete error = %v, want ErrUnknownMeasurement", err)
	}
	if len(a.frames) != 0 {
		t.Errorf("rejected messages were broadcast: %d frames", len(a.frames))
	}

	rejected := testutil.ToFloat64(metrics.messages.WithLabelValues(string(protocol.UpdateMeasurement), "rejected"))
	if rejected != 1 {
		t.Errorf("rejected updates = %v, want 1", rejected)
	}
}

func TestRoomMalformedFrame(t *testing.T) {
	room := NewRoom("r", nil, logger.Discard())
	err := room.Handle([]byte(`{"type":"CreateMeasurement","version":2,"payload":{}}`))
	if !errors.Is(err, protocol.ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
}

func TestRoomUpdateAndDelete(t *testing.T) {
	room := NewRoom("r", nil, logger.Discard())
	a := &fakeMember{id: "a"}
	room.Join(a)
	_ = room.Handle(createFrame(t, "", protocol.Point{}, protocol.Point{X: 1}))

	update, _ := protocol.Encode(protocol.UpdateMeasurement, "u1", protocol.Measurement{
		ID: 1, End: protocol.Point{Y: 2},
	})
	if err := room.Handle(update); err != nil {
		t.Fatal(err)
	}
	if snap := room.Snapshot(); len(snap) != 1 || snap[0].Distance != 2 {
		t.Errorf("snapshot after update = %+v", snap)
	}

	del, _ := protocol.Encode(protocol.DeleteMeasurement, "", protocol.Delete{ID: 1})
	if err := room.Handle(del); err != nil {
		t.Fatal(err)
	}
	if len(room.Snapshot()) != 0 {
		t.Error("snapshot not empty after delete")
	}
	if len(a.frames) != 3 {
		t.Fatalf("received %d frames, want 3", len(a.frames))
	}
	if a.frames[1].Type != protocol.UpdateMeasurement || a.frames[1].RequestID != "u1" {
		t.Errorf("second frame = %+v", a.frames[1])
	}
	if a.frames[2].Type != protocol.DeleteMeasurement {
		t.Errorf("third frame type = %s", a.frames[2].Type)
	}
}

func TestRoomLateJoinerGetsSnapshot(t *testing.T) {
	room := NewRoom("r", nil, logger.Discard())
	a := &fakeMember{id: "a"}
	room.Join(a)
	_ = room.Handle(createFrame(t, "", protocol.Point{}, protocol.Point{X: 1}))
	_ = room.Handle(createFrame(t, "", protocol.Point{}, protocol.Point{X: 2}))

	b := &fakeMember{id: "b"}
	room.Join(b)

	if len(b.frames) != 2 {
		t.Fatalf("late joiner received %d frames, want 2", len(b.frames))
	}
	for i, env := range b.frames {
		if env.Type != protocol.CreateMeasurement {
			t.Errorf("frame %d type = %s", i, env.Type)
		}
		if env.RequestID != "" {
			t.Errorf("snapshot frame %d carries request id %q", i, env.RequestID)
		}
		if got := decodeMeasurement(t, env).ID; got != i+1 {
			t.Errorf("frame %d id = %d, want %d", i, got, i+1)
		}
	}
}

func TestRoomSnapshotIsBatched(t *testing.T) {
	room := NewRoom("r", nil, logger.Discard())
	room.snapshotLimit = 1024
	room.Join(&fakeMember{id: "keeper"})
	const n = 300
	for i := 0; i < n; i++ {
		if err := room.Handle(createFrame(t, "", protocol.Point{}, protocol.Point{X: float64(i + 1)})); err != nil {
			t.Fatal(err)
		}
	}

	late := &fakeMember{id: "late"}
	room.Join(late)

	if len(late.frames) != n {
		t.Fatalf("late joiner received %d envelopes, want %d", len(late.frames), n)
	}
	if late.deliveries <= 1 || late.deliveries >= n {
		t.Errorf("snapshot took %d deliveries, want batches", late.deliveries)
	}
	for i, env := range late.frames {
		if got := decodeMeasurement(t, env).ID; got != i+1 {
			t.Fatalf("envelope %d id = %d, want %d", i, got, i+1)
		}
	}
}

func TestRoomSnapshotStopsWhenRefused(t *testing.T) {
	room := NewRoom("r", nil, logger.Discard())
	room.snapshotLimit = 256
	room.Join(&fakeMember{id: "keeper"})
	for i := 0; i < 20; i++ {
		_ = room.Handle(createFrame(t, "", protocol.Point{}, protocol.Point{X: 1}))
	}

	late := &fakeMember{id: "late", refuse: true}
	room.Join(late)
	if late.deliveries != 0 {
		t.Errorf("deliveries = %d after refusal, want 0", late.deliveries)
	}
}

func TestRoomSameOrderForAllMembers(t *testing.T) {
	room := NewRoom("r", nil, logger.Discard())
	a := &fakeMember{id: "a"}
	b := &fakeMember{id: "b"}
	room.Join(a)
	room.Join(b)

	_ = room.Handle(createFrame(t, "1", protocol.Point{}, protocol.Point{X: 1}))
	_ = room.Handle(createFrame(t, "2", protocol.Point{}, protocol.Point{X: 2}))
	del, _ := protocol.Encode(protocol.DeleteMeasurement, "3", protocol.Delete{ID: 1})
	_ = room.Handle(del)

	if len(a.frames) != len(b.frames) {
		t.Fatalf("frame counts differ: %d vs %d", len(a.frames), len(b.frames))
	}
	for i := range a.frames {
		if a.frames[i].RequestID != b.frames[i].RequestID || a.frames[i].Type != b.frames[i].Type {
			t.Errorf("frame %d differs: %+v vs %+v", i, a.frames[i], b.frames[i])
		}
	}
}

func TestRoomLeave(t *testing.T) {
	room := NewRoom("r", nil, logger.Discard())
	a := &fakeMember{id: "a"}
	b := &fakeMember{id: "b", refuse: true}
	room.Join(a)
	room.Join(b)

	// A member refusing a broadcast does not stop delivery to others
	_ = room.Handle(createFrame(t, "", protocol.Point{}, protocol.Point{X: 1}))
	if len(a.frames) != 1 {
		t.Errorf("a received %d frames, want 1", len(a.frames))
	}

	if room.Leave("a") {
		t.Error("Leave(a) reported empty room with b still joined")
	}
	if !room.Leave("b") {
		t.Error("Leave(b) should report empty room")
	}
	if room.Len() != 0 {
		t.Errorf("Len() = %d, want 0", room.Len())
	}
}
