package handlers

import (
	"errors"
	"math"
	"testing"

	skerrors "github.com/gezibash/arc-skill/pkg/errors"
)

func TestFormatNumber(t *testing.T) {
	// Runtime operands, so the sum is not folded to an exact constant.
	a, b := 0.1, 0.2
	tests := []struct {
		in   float64
		want string
	}{
		{3, "3"},
		{-2, "-2"},
		{0.5, "0.5"},
		{a + b, "0.30000000000000004"},
		{1.0 / 3.0, "0.3333333333333333"},
		{math.Copysign(0, -1), "0"},
		{123456789012, "123456789012"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{1.5e-7, "1.5e-7"},
		{0.000001, "0.000001"},
		{-2.5e30, "-2.5e+30"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{math.NaN(), "NaN"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseOperand(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{"4", 4, false},
		{" 2.5 ", 2.5, false},
		{"-7", -7, false},
		{"1e3", 1000, false},
		{"", 0, true},
		{"   ", 0, true},
		{"four", 0, true},
		{"?", 0, true},
		{"inf", 0, true},
		{"NaN", 0, true},
		{"1e400", 0, true},
		{"0x1p4", 0, true},
		{"0x10", 0, true},
		{"1_000", 0, true},
		{"Infinity", 0, true},
		{"+3", 3, false},
		{".5", 0.5, false},
		{"2E2", 200, false},
	}
	for _, tt := range tests {
		got, err := ParseOperand("x", tt.raw)
		if tt.wantErr {
			if !errors.Is(err, skerrors.ErrInvalidOperand) {
				t.Errorf("ParseOperand(%q) err = %v, want ErrInvalidOperand", tt.raw, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseOperand(%q): %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOperand(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
