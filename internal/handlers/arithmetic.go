package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/gezibash/arc-skill/internal/skill"
	"github.com/gezibash/arc-skill/pkg/response"
)

// operands are the trimmed slot text and the parsed values.
type operands struct {
	rawX, rawY string
	x, y       float64
}

type operation func(op operands) string

func sum(op operands) string {
	return fmt.Sprintf("The sum of %s and %s is %s.", op.rawX, op.rawY, FormatNumber(op.x+op.y))
}

func difference(op operands) string {
	return fmt.Sprintf("The difference of %s from %s is %s.", op.rawY, op.rawX, FormatNumber(op.x-op.y))
}

func product(op operands) string {
	return fmt.Sprintf("The product of %s and %s is %s.", op.rawX, op.rawY, FormatNumber(op.x*op.y))
}

func division(op operands) string {
	if op.y == 0 {
		return DivideByZeroSpeech
	}
	return fmt.Sprintf("The division of %s by %s is %s.", op.rawX, op.rawY, FormatNumber(op.x/op.y))
}

// arithmetic reads slots x and y, applies fn and ends the session.
func arithmetic(fn operation) skill.HandlerFunc {
	return func(_ context.Context, in *skill.Input) (*response.Envelope, error) {
		op := operands{
			rawX: strings.TrimSpace(in.Slot("x")),
			rawY: strings.TrimSpace(in.Slot("y")),
		}
		var err error
		if op.x, err = ParseOperand("x", op.rawX); err != nil {
			return nil, err
		}
		if op.y, err = ParseOperand("y", op.rawY); err != nil {
			return nil, err
		}
		return in.ResponseBuilder().
			Speak(fn(op)).
			WithShouldEndSession(true).
			GetResponse(), nil
	}
}
