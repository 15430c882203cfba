package arbiter

import (
	"bytes"
	"context"
	"reflect"
	"testing"
	"time"

	"pam-dwin-bridge/internal/config"
	"pam-dwin-bridge/internal/display"
	"pam-dwin-bridge/internal/instrument"
	"pam-dwin-bridge/internal/link"
	"pam-dwin-bridge/internal/scaling"
	"pam-dwin-bridge/internal/timing"
)

type fixture struct {
	arbiter  *Arbiter
	instLink *link.MockLink
	dispLink *link.MockLink
	selector []byte // reply to selector reads, nil for silence
}

func newFixture() *fixture {
	f := &fixture{
		instLink: link.NewMockLink("instrument"),
		dispLink: link.NewMockLink("display"),
	}
	clock := timing.NewFakeClock()
	dispSettings := config.DisplaySettings{
		PageSwitchDelay: 50 * time.Millisecond,
		SelectorTimeout: 2 * time.Second,
		SelectorWindow:  150 * time.Millisecond,
		SelectorPoll:    10 * time.Millisecond,
	}

	f.dispLink.Responder = func(written []byte) []byte {
		if bytes.Equal(written, display.EncodeSelectorRead()) {
			return f.selector
		}
		return nil
	}

	client := instrument.NewClient(f.instLink, config.InstrumentSettings{CommandDelay: 60 * time.Millisecond}, clock, nil, nil)
	disp := display.New(f.dispLink, dispSettings, clock, nil, nil)
	poller := display.NewSelectorPoller(disp)
	f.arbiter = New(28, client, disp, poller, nil)
	return f
}

func (f *fixture) countPageFrames() int {
	n := 0
	for _, frame := range f.dispLink.Frames() {
		if bytes.Equal(frame, display.EncodePageSwitch(28)) {
			n++
		}
	}
	return n
}

func selectorReply(value byte) []byte {
	return []byte{0x5A, 0xA5, 0x06, 0x83, 0x51, 0x00, 0x01, 0x00, value}
}

func TestMismatchEntersAwaitingWithOnePageSwitch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if !f.arbiter.Observe(ctx, scaling.ModeVoltage, scaling.ModeCurrent) {
		t.Fatal("Expected mismatch to be reported")
	}
	if f.arbiter.State() != StateAwaitingSelection {
		t.Errorf("Expected awaiting-selection, got %s", f.arbiter.State())
	}
	if f.arbiter.Observe(ctx, scaling.ModeVoltage, scaling.ModeCurrent); f.countPageFrames() != 1 {
		t.Errorf("Expected exactly one page switch, got %d", f.countPageFrames())
	}
}

func TestSelectionZeroSetsVoltageAndResolves(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.arbiter.Observe(ctx, scaling.ModeVoltage, scaling.ModeCurrent)
	f.selector = selectorReply(0)
	f.arbiter.Resolve(ctx)

	want := []string{"AINA V", "AINB V"}
	if got := f.instLink.Commands(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if !f.arbiter.Applied() {
		t.Error("Expected selection to be marked applied")
	}

	// applied selections are not polled again
	f.arbiter.Resolve(ctx)
	if n := len(f.instLink.Commands()); n != 2 {
		t.Errorf("Expected no further commands, got %d", n)
	}

	if f.arbiter.Observe(ctx, scaling.ModeVoltage, scaling.ModeVoltage) {
		t.Error("Expected agreeing modes to release the cycle")
	}
	if f.arbiter.State() != StateNormal || f.arbiter.Applied() {
		t.Errorf("Expected normal state with applied reset, got %s/%v", f.arbiter.State(), f.arbiter.Applied())
	}
}

func TestSelectionOneSetsCurrent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.arbiter.Observe(ctx, scaling.ModeCurrent, scaling.ModeVoltage)
	f.selector = selectorReply(1)
	f.arbiter.Resolve(ctx)

	want := []string{"AINA C", "AINB C"}
	if got := f.instLink.Commands(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestNoSelectionRetriesNextCycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.arbiter.Observe(ctx, scaling.ModeVoltage, scaling.ModeCurrent)
	f.arbiter.Resolve(ctx)
	if f.arbiter.Applied() || len(f.instLink.Commands()) != 0 {
		t.Error("Expected nothing applied after a silent selector")
	}

	f.selector = selectorReply(7)
	f.arbiter.Resolve(ctx)
	if f.arbiter.Applied() {
		t.Error("Expected unknown selector values to be ignored")
	}

	f.selector = selectorReply(1)
	f.arbiter.Resolve(ctx)
	if !f.arbiter.Applied() {
		t.Error("Expected selection applied on a later cycle")
	}
}

func TestUndefinedModeLeavesAwaiting(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.arbiter.Observe(ctx, scaling.ModeVoltage, scaling.ModeCurrent)
	if f.arbiter.Observe(ctx, scaling.ModeVoltage, scaling.ModeUnknown) {
		t.Error("Expected an undefined mode not to count as a mismatch")
	}
	if f.arbiter.State() != StateNormal {
		t.Errorf("Expected normal, got %s", f.arbiter.State())
	}

	f.arbiter.Observe(ctx, scaling.ModeVoltage, scaling.ModeCurrent)
	if f.countPageFrames() != 2 {
		t.Errorf("Expected a new page switch on re-entry, got %d", f.countPageFrames())
	}
}

func TestFailedPageSwitchIsRetried(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.dispLink.FailWrites = 1
	if !f.arbiter.Observe(ctx, scaling.ModeVoltage, scaling.ModeCurrent) {
		t.Error("Expected the cycle to stay with the arbiter")
	}
	if f.arbiter.State() != StateNormal {
		t.Errorf("Expected normal until the page is shown, got %s", f.arbiter.State())
	}

	f.arbiter.Observe(ctx, scaling.ModeVoltage, scaling.ModeCurrent)
	if f.arbiter.State() != StateAwaitingSelection || f.countPageFrames() != 1 {
		t.Errorf("Expected page shown on retry, got %s with %d frames", f.arbiter.State(), f.countPageFrames())
	}
}
