package display

import (
	"bytes"
	"context"
	"testing"
	"time"

	"pam-dwin-bridge/internal/config"
	"pam-dwin-bridge/internal/link"
	"pam-dwin-bridge/internal/scaling"
	"pam-dwin-bridge/internal/timing"
)

func testSettings() config.DisplaySettings {
	return config.DisplaySettings{
		PageSwitchDelay: 50 * time.Millisecond,
		SelectorTimeout: 2 * time.Second,
		SelectorWindow:  150 * time.Millisecond,
		SelectorPoll:    10 * time.Millisecond,
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		in   float64
		want int16
	}{
		{1.23, 12},
		{1.5, 15},
		{-2.5, -25},
		{24.0, 240},
		// halves round to even
		{0.25, 2},
		{0.75, 8},
		{1.25, 12},
		{-0.25, -2},
		{-0.75, -8},
		// clamped to int16
		{-3276.9, -32768},
		{3276.8, 32767},
		{1e9, 32767},
		{-1e9, -32768},
	}
	for _, tt := range tests {
		if got := Quantize(tt.in); got != tt.want {
			t.Errorf("Quantize(%v): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestEncodeValue(t *testing.T) {
	got := EncodeValue(RegPrimary, Quantize(1.5))
	want := []byte{0x5A, 0xA5, 0x05, 0x82, 0x55, 0x00, 0x00, 0x0F}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected % X, got % X", want, got)
	}

	got = EncodeValue(RegCurrentA, -1)
	want = []byte{0x5A, 0xA5, 0x05, 0x82, 0x57, 0x00, 0xFF, 0xFF}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected two's complement % X, got % X", want, got)
	}
}

func TestEncodeMode(t *testing.T) {
	if got := EncodeMode(scaling.ModeVoltage); !bytes.Equal(got, []byte{0x5A, 0xA5, 0x05, 0x82, 0x50, 0x00, 0x00, 0x00}) {
		t.Errorf("Unexpected voltage mode frame % X", got)
	}
	if got := EncodeMode(scaling.ModeCurrent); !bytes.Equal(got, []byte{0x5A, 0xA5, 0x05, 0x82, 0x50, 0x00, 0x00, 0x01}) {
		t.Errorf("Unexpected current mode frame % X", got)
	}
}

func TestEncodePageSwitchAndSelectorRead(t *testing.T) {
	got := EncodePageSwitch(28)
	want := []byte{0x5A, 0xA5, 0x07, 0x82, 0x00, 0x84, 0x5A, 0x01, 0x00, 0x1C}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected page frame % X, got % X", want, got)
	}

	got = EncodeSelectorRead()
	want = []byte{0x5A, 0xA5, 0x03, 0x83, 0x51, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected selector request % X, got % X", want, got)
	}
}

func TestChangeCache(t *testing.T) {
	c := NewChangeCache()

	if !c.ShouldSend(RegPrimary, 0) {
		t.Error("Expected first write of a register to be sent, even for zero")
	}
	if c.ShouldSend(RegPrimary, 0) {
		t.Error("Expected identical value to be suppressed")
	}
	if !c.ShouldSend(RegPrimary, 1) {
		t.Error("Expected changed value to be sent")
	}
	if !c.ShouldSend(RegSecondary, 1) {
		t.Error("Expected other register to be independent")
	}

	c.Reset()
	if c.Len() != 0 || !c.ShouldSend(RegPrimary, 1) {
		t.Error("Expected reset to force a resend")
	}
}

func TestSendValueSuppressesRepeats(t *testing.T) {
	ml := link.NewMockLink("display")
	d := New(ml, testSettings(), timing.NewFakeClock(), nil, nil)
	ctx := context.Background()

	d.SendValue(ctx, RegPrimary, 1.50)
	d.SendValue(ctx, RegPrimary, 1.52) // still 15
	d.SendValue(ctx, RegPrimary, 1.56)

	frames := ml.Frames()
	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(frames))
	}
	if frames[1][7] != 16 {
		t.Errorf("Expected second frame to carry 16, got %d", frames[1][7])
	}
}

func TestFailedWriteKeepsCacheAndReopensLink(t *testing.T) {
	ml := link.NewMockLink("display")
	d := New(ml, testSettings(), timing.NewFakeClock(), nil, nil)
	ctx := context.Background()

	ml.FailWrites = 1
	if !d.SendValue(ctx, RegAuxiliary, 24.0) {
		t.Error("Expected a transmission attempt")
	}
	if v, ok := d.Cache().Last(RegAuxiliary); !ok || v != 240 {
		t.Errorf("Expected cache to hold 240 after failed attempt, got %d (%v)", v, ok)
	}
	if len(ml.Frames()) != 0 {
		t.Errorf("Expected no frame on the wire")
	}

	d.SendValue(ctx, RegAuxiliary, 24.0)
	if ml.Reopens != 1 {
		t.Errorf("Expected display link reopen, got %d", ml.Reopens)
	}
	if len(ml.Frames()) != 1 {
		t.Errorf("Expected value to be resent after reopen, got %d frames", len(ml.Frames()))
	}
}

func TestSwitchPageFlushesAndDropsInput(t *testing.T) {
	ml := link.NewMockLink("display")
	clock := timing.NewFakeClock()
	d := New(ml, testSettings(), clock, nil, nil)

	ml.Queue([]byte{0x5A, 0xA5, 0x99})
	if err := d.SwitchPage(context.Background(), 28); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if ml.Flushes != 1 || ml.Resets != 1 {
		t.Errorf("Expected flush and reset, got %d/%d", ml.Flushes, ml.Resets)
	}
	if sleeps := clock.Sleeps(); len(sleeps) != 1 || sleeps[0] != 50*time.Millisecond {
		t.Errorf("Expected 50ms settle, got %v", sleeps)
	}
	if data, _ := ml.ReadAvailable(); len(data) != 0 {
		t.Errorf("Expected input to be discarded, got % X", data)
	}
}

func TestSelectorPollReturnsLastTwoBytes(t *testing.T) {
	ml := link.NewMockLink("display")
	ml.Responder = func(written []byte) []byte {
		if bytes.Equal(written, EncodeSelectorRead()) {
			return []byte{0x5A, 0xA5, 0x06, 0x83, 0x51, 0x00, 0x01, 0x00, 0x01}
		}
		return nil
	}

	p := NewSelectorPoller(New(ml, testSettings(), timing.NewFakeClock(), nil, nil))
	v, ok := p.Poll(context.Background())
	if !ok || v != 1 {
		t.Errorf("Expected selector 1, got %d (%v)", v, ok)
	}
}

func TestSelectorPollAccumulatesChunks(t *testing.T) {
	ml := link.NewMockLink("display")
	writes := 0
	ml.Responder = func(written []byte) []byte {
		writes++
		if writes == 1 {
			return []byte{0x5A, 0xA5, 0x06, 0x83}
		}
		return []byte{0x51, 0x00, 0x00, 0x00}
	}

	clock := timing.NewFakeClock()
	p := NewSelectorPoller(New(ml, testSettings(), clock, nil, nil))
	v, ok := p.Poll(context.Background())
	if !ok || v != 0 {
		t.Errorf("Expected selector 0, got %d (%v)", v, ok)
	}
	if writes != 2 {
		t.Errorf("Expected a second request after the first window, got %d", writes)
	}
}

func TestSelectorPollTimesOut(t *testing.T) {
	ml := link.NewMockLink("display")
	clock := timing.NewFakeClock()
	p := NewSelectorPoller(New(ml, testSettings(), clock, nil, nil))

	start := clock.Now()
	if _, ok := p.Poll(context.Background()); ok {
		t.Error("Expected no selection without a reply")
	}
	if elapsed := clock.Now().Sub(start); elapsed < 2*time.Second || elapsed > 2200*time.Millisecond {
		t.Errorf("Expected to give up after about 2s, got %v", elapsed)
	}

	requests := len(ml.Frames())
	if requests < 13 || requests > 14 {
		t.Errorf("Expected one request per 150ms window, got %d", requests)
	}
}

func TestSelectorFaultReopensLinkBeforeNextPoll(t *testing.T) {
	ml := link.NewMockLink("display")
	d := New(ml, testSettings(), timing.NewFakeClock(), nil, nil)
	p := NewSelectorPoller(d)
	ctx := context.Background()

	ml.FailWrites = 1
	if _, ok := p.Poll(ctx); ok {
		t.Fatal("Expected no selection after a failed request")
	}
	if !d.Faulted() {
		t.Fatal("Expected the display link marked faulted")
	}

	ml.Responder = func(written []byte) []byte {
		if bytes.Equal(written, EncodeSelectorRead()) {
			return []byte{0x5A, 0xA5, 0x06, 0x83, 0x51, 0x00, 0x01, 0x00, 0x02}
		}
		return nil
	}
	v, ok := p.Poll(ctx)
	if !ok || v != 2 {
		t.Errorf("Expected selector 2 after reopen, got %d (%v)", v, ok)
	}
	if ml.Reopens != 1 {
		t.Errorf("Expected one reopen, got %d", ml.Reopens)
	}
	if d.Faulted() {
		t.Error("Expected the fault cleared after reopen")
	}
}
