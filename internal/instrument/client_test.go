package instrument

import (
	"context"
	"reflect"
	"testing"
	"time"

	"pam-dwin-bridge/internal/config"
	"pam-dwin-bridge/internal/link"
	"pam-dwin-bridge/internal/scaling"
	"pam-dwin-bridge/internal/timing"
)

func newTestClient() (*Client, *link.MockLink, *timing.FakeClock) {
	ml := link.NewMockLink("instrument")
	clock := timing.NewFakeClock()
	settings := config.InstrumentSettings{
		CommandDelay: 60 * time.Millisecond,
		ModeSetDelay: 100 * time.Millisecond,
	}
	c := NewClient(ml, settings, clock, nil, nil)
	ml.OnOpen(c.HandleOpen)
	return c, ml, clock
}

func TestExtractNumber(t *testing.T) {
	tests := []struct {
		resp string
		want float64
		ok   bool
	}{
		{"> 12.5", 12.5, true},
		{">196\r\n", 196, true},
		{"WA 1500", 1500, true},
		{"value: -3.25 mV", -3.25, true},
		{"ERR", 0, false},
		{"", 0, false},
		{"> NaN", 0, false},
	}

	for _, tt := range tests {
		got, ok := ExtractNumber(tt.resp)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ExtractNumber(%q): expected (%v, %v), got (%v, %v)", tt.resp, tt.want, tt.ok, got, ok)
		}
	}
}

func TestExtractElectricalMode(t *testing.T) {
	tests := []struct {
		resp string
		want scaling.ElectricalMode
	}{
		{"> V", scaling.ModeVoltage},
		{"> C", scaling.ModeCurrent},
		{"VC", scaling.ModeVoltage},
		{"> ?", scaling.ModeUnknown},
		{"", scaling.ModeUnknown},
	}
	for _, tt := range tests {
		if got := ExtractElectricalMode(tt.resp); got != tt.want {
			t.Errorf("ExtractElectricalMode(%q): expected %v, got %v", tt.resp, tt.want, got)
		}
	}
}

func TestExtractOperatingMode(t *testing.T) {
	tests := []struct {
		resp string
		want OperatingMode
	}{
		{"> STD", OperatingStandard},
		{"> EXP", OperatingExpanded},
		{"> ---", OperatingUnknown},
	}
	for _, tt := range tests {
		if got := ExtractOperatingMode(tt.resp); got != tt.want {
			t.Errorf("ExtractOperatingMode(%q): expected %v, got %v", tt.resp, tt.want, got)
		}
	}
}

func TestSendDiscardsStaleInputAndWaits(t *testing.T) {
	c, ml, clock := newTestClient()
	ml.Queue([]byte("> stale"))
	ml.SetReply("WA", "> 1500\r\n")

	resp := c.Send(context.Background(), "WA")
	if resp != "> 1500\r\n" {
		t.Errorf("Expected fresh reply, got %q", resp)
	}
	if ml.Resets != 1 {
		t.Errorf("Expected one input reset, got %d", ml.Resets)
	}
	if frames := ml.Frames(); len(frames) != 1 || string(frames[0]) != "WA\r\n" {
		t.Errorf("Expected WA with line terminator, got %q", frames)
	}
	if sleeps := clock.Sleeps(); len(sleeps) != 1 || sleeps[0] != 60*time.Millisecond {
		t.Errorf("Expected a single 60ms settle, got %v", sleeps)
	}
}

func TestSendReturnsEmptyAndReopensOnFault(t *testing.T) {
	c, ml, _ := newTestClient()
	ml.SetReply("FUNCTION", "> 196")
	ml.FailWrites = 1

	if resp := c.Send(context.Background(), "FUNCTION"); resp != "" {
		t.Errorf("Expected empty response after fault, got %q", resp)
	}
	if ml.Reopens != 1 {
		t.Errorf("Expected one reopen, got %d", ml.Reopens)
	}

	fn, ok := c.ReadFunction(context.Background())
	if !ok || fn != scaling.FunctionDual {
		t.Errorf("Expected function 196 after recovery, got %v (%v)", fn, ok)
	}
}

func TestEnsureStandardModeCorrectsExpanded(t *testing.T) {
	c, ml, clock := newTestClient()
	queries := 0
	ml.Responder = func(written []byte) []byte {
		if string(written) == "MODE\r\n" {
			queries++
			if queries == 1 {
				return []byte("> EXP")
			}
			return []byte("> STD")
		}
		return nil
	}

	if ran := c.EnsureStandardMode(context.Background(), 3*time.Second); !ran {
		t.Fatal("Expected the first check to run")
	}

	want := []string{"MODE", "MODE STD", "MODE"}
	if got := ml.Commands(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected commands %v, got %v", want, got)
	}
	if !c.Verified() {
		t.Error("Expected mode to be verified")
	}

	sleeps := clock.Sleeps()
	if len(sleeps) != 4 || sleeps[2] != 100*time.Millisecond {
		t.Errorf("Expected a 100ms settle after MODE STD, got %v", sleeps)
	}
}

func TestEnsureStandardModeIsRateLimited(t *testing.T) {
	c, ml, clock := newTestClient()
	ml.SetReply("MODE", "> STD")
	ctx := context.Background()

	if !c.EnsureStandardMode(ctx, 3*time.Second) {
		t.Fatal("Expected first check to run")
	}
	clock.Advance(time.Second)
	if c.EnsureStandardMode(ctx, 3*time.Second) {
		t.Error("Expected check within the interval to be skipped")
	}
	clock.Advance(3 * time.Second)
	if !c.EnsureStandardMode(ctx, 3*time.Second) {
		t.Error("Expected check after the interval to run")
	}
	if n := len(ml.Commands()); n != 2 {
		t.Errorf("Expected 2 MODE queries, got %d", n)
	}
}

func TestVerificationResetsOnReopen(t *testing.T) {
	c, ml, _ := newTestClient()
	ml.SetReply("MODE", "> STD")
	ctx := context.Background()

	c.EnsureStandardMode(ctx, 3*time.Second)
	if !c.Verified() {
		t.Fatal("Expected verified after STD reply")
	}

	if err := ml.Reopen(ctx); err != nil {
		t.Fatalf("Unexpected reopen error: %v", err)
	}
	if c.Verified() {
		t.Error("Expected verification to reset after reopen")
	}
}

func TestSetChannelModesSendsBothChannels(t *testing.T) {
	c, ml, _ := newTestClient()
	c.SetChannelModes(context.Background(), scaling.ModeCurrent)

	want := []string{"AINA C", "AINB C"}
	if got := ml.Commands(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
