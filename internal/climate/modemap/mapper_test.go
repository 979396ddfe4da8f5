package modemap

import (
	"errors"
	"testing"
)

func newTestMapper(t *testing.T, opts Options) *Mapper {
	t.Helper()
	m, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func TestDeriveTarget(t *testing.T) {
	m := newTestMapper(t, Options{})

	tests := []struct {
		name   string
		active bool
		mode   string
		want   TargetState
	}{
		{"inactive dominates", false, "cold", TargetOff},
		{"cool", true, "cold", TargetCool},
		{"heat", true, "hot", TargetHeat},
		{"auto", true, "auto", TargetAuto},
		{"wind falls back to auto", true, "wind", TargetAuto},
		{"dry falls back to auto", true, "wet", TargetAuto},
		{"empty mode", true, "", TargetAuto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.DeriveTarget(tt.active, tt.mode); got != tt.want {
				t.Errorf("DeriveTarget(%v, %q) = %v, want %v", tt.active, tt.mode, got, tt.want)
			}
		})
	}
}

func TestDeriveTargetUnmatchedOther(t *testing.T) {
	m := newTestMapper(t, Options{UnmatchedTarget: TargetOther})
	if got := m.DeriveTarget(true, "wind"); got != TargetOther {
		t.Errorf("DeriveTarget(true, wind) = %v, want other", got)
	}
}

func TestDeriveTargetMode(t *testing.T) {
	m := newTestMapper(t, Options{NoAuto: true, UnmatchedTarget: TargetOther})

	tests := []struct {
		mode string
		want TargetState
	}{
		{"cold", TargetCool},
		{"hot", TargetHeat},
		{"auto", TargetOther},
		{"wind", TargetOther},
	}

	for _, tt := range tests {
		if got := m.DeriveTargetMode(tt.mode); got != tt.want {
			t.Errorf("DeriveTargetMode(%q) = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestDeriveCurrentInactiveIsOff(t *testing.T) {
	m := newTestMapper(t, Options{Divisor: 10})
	modes := []string{"cold", "hot", "auto", "wind", "", "garbage"}
	temps := []any{nil, 0, 18, 26, 35.5, "x"}

	for _, mode := range modes {
		for _, cur := range temps {
			for _, thr := range []any{nil, 180, 240, "bad"} {
				if got := m.DeriveCurrent(false, mode, cur, thr); got != CurrentOff {
					t.Fatalf("DeriveCurrent(false, %q, %v, %v) = %v, want off", mode, cur, thr, got)
				}
			}
		}
	}
}

func TestDeriveCurrent(t *testing.T) {
	m := newTestMapper(t, Options{Divisor: 10})

	tests := []struct {
		name      string
		mode      string
		current   any
		threshold any
		want      CurrentState
	}{
		{"cool command", "cold", 18, 240, CurrentCooling},
		{"heat command", "hot", 30, 240, CurrentHeating},
		{"auto above band", "auto", 24.5, 240, CurrentCooling},
		{"auto below band", "auto", 23.6, 240, CurrentHeating},
		{"auto inside band", "auto", 24.2, 240, CurrentIdle},
		{"wind uses heuristic", "wind", 26, 220, CurrentCooling},
		{"missing current", "auto", nil, 240, CurrentIdle},
		{"missing threshold", "wind", 26, nil, CurrentIdle},
		{"non-numeric current", "auto", "n/a", 240, CurrentIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.DeriveCurrent(true, tt.mode, tt.current, tt.threshold); got != tt.want {
				t.Errorf("DeriveCurrent(true, %q, %v, %v) = %v, want %v", tt.mode, tt.current, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestDirectionHysteresis(t *testing.T) {
	tests := []struct {
		current float64
		want    CurrentState
	}{
		{24.5, CurrentCooling},
		{23.6, CurrentHeating},
		{24.2, CurrentIdle},
		{24.0, CurrentIdle},
		{23.8, CurrentIdle},
	}

	for _, tt := range tests {
		if got := Direction(tt.current, 24.0, 0.3); got != tt.want {
			t.Errorf("Direction(%v, 24.0, 0.3) = %v, want %v", tt.current, got, tt.want)
		}
	}
}

func TestCommand(t *testing.T) {
	m := newTestMapper(t, Options{NoAuto: true})

	tests := []struct {
		target TargetState
		want   string
		wantOK bool
	}{
		{TargetCool, "cold", true},
		{TargetHeat, "hot", true},
		{TargetAuto, "auto", false},
		{TargetOff, "", false},
		{TargetOther, "", false},
	}

	for _, tt := range tests {
		got, ok := m.Command(tt.target)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Command(%v) = (%q, %v), want (%q, %v)", tt.target, got, ok, tt.want, tt.wantOK)
		}
	}

	if !m.IsVent("wind") || m.IsVent("auto") {
		t.Error("IsVent() mismatch")
	}
}

func TestNewRejectsUnknownPolicy(t *testing.T) {
	if _, err := New(Options{UnmatchedTarget: TargetHeat}); !errors.Is(err, ErrInvalidPolicy) {
		t.Errorf("New() error = %v, want ErrInvalidPolicy", err)
	}
}

func TestParseTargetState(t *testing.T) {
	tests := []struct {
		input  any
		want   TargetState
		wantOK bool
	}{
		{"cool", TargetCool, true},
		{TargetAuto, TargetAuto, true},
		{2, TargetCool, true},
		{3.0, TargetAuto, true},
		{1.5, "", false},
		{9, "", false},
		{"sideways", "sideways", false},
		{nil, "", false},
	}

	for _, tt := range tests {
		got, ok := ParseTargetState(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseTargetState(%v) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseHeaterCoolerTargetState(t *testing.T) {
	tests := []struct {
		input  any
		want   TargetState
		wantOK bool
	}{
		{0, TargetAuto, true},
		{1.0, TargetHeat, true},
		{2, TargetCool, true},
		{3, "", false},
		{"heat", TargetHeat, true},
		{"other", TargetOther, true},
		{"off", TargetOff, false},
		{TargetOff, TargetOff, false},
	}

	for _, tt := range tests {
		got, ok := ParseHeaterCoolerTargetState(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseHeaterCoolerTargetState(%v) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}
