package handlers

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	skerrors "github.com/gezibash/arc-skill/pkg/errors"
)

// decimalChars are the characters allowed in an operand. Hex floats and
// digit separators are rejected.
const decimalChars = "0123456789+-.eE"

// ParseOperand parses a slot value as a finite decimal number. Surrounding
// space is ignored.
func ParseOperand(name, raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: slot %s is empty", skerrors.ErrInvalidOperand, name)
	}
	if strings.IndexFunc(s, notDecimal) >= 0 {
		return 0, fmt.Errorf("%w: slot %s = %q", skerrors.ErrInvalidOperand, name, raw)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: slot %s = %q", skerrors.ErrInvalidOperand, name, raw)
	}
	return f, nil
}

func notDecimal(r rune) bool { return !strings.ContainsRune(decimalChars, r) }

// FormatNumber renders f the way it is spoken: shortest round-trip
// decimal, exponent form outside [1e-6, 1e21), and Infinity for overflow.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
