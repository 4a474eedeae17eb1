package cli

import (
	"fmt"
	"io"
)

type detail struct {
	key   string
	value any
}

func writeDetails(w io.Writer, format string, details []detail) error {
	for _, d := range details {
		if _, err := fmt.Fprintf(w, format, d.key, d.value); err != nil {
			return err
		}
	}
	return nil
}

func detailsData(details []detail, into map[string]any) map[string]any {
	for _, d := range details {
		into[toJSONKey(d.key)] = d.value
	}
	return into
}

// Result is a single message with details kept in insertion order.
// Created via Output.Result().
type Result struct {
	out     *Output
	meta    Meta
	message string
	details []detail
}

// With adds a detail key-value pair.
func (r *Result) With(key string, value any) *Result {
	r.details = append(r.details, detail{key: key, value: value})
	return r
}

// Render outputs the result in the configured format.
func (r *Result) Render() error { return r.out.Render(r) }

// Meta returns the metadata.
func (r *Result) Meta() Meta { return r.meta }

// RenderText writes the message and aligned details.
func (r *Result) RenderText(w io.Writer) error {
	if _, err := fmt.Fprintln(w, r.message); err != nil {
		return err
	}
	width := 0
	for _, d := range r.details {
		width = max(width, len(d.key)+1)
	}
	for _, d := range r.details {
		if _, err := fmt.Fprintf(w, "  %-*s  %v\n", width, d.key+":", d.value); err != nil {
			return err
		}
	}
	return nil
}

// RenderData returns message and details as an object.
func (r *Result) RenderData() any {
	return detailsData(r.details, map[string]any{"message": r.message})
}

// RenderMarkdown writes the result in markdown.
func (r *Result) RenderMarkdown(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "**%s**\n\n", r.message); err != nil {
		return err
	}
	for _, d := range r.details {
		if _, err := fmt.Fprintf(w, "- **%s:** %s\n", d.key, formatMarkdownValue(d.value)); err != nil {
			return err
		}
	}
	return nil
}

// Error is a structured error result.
// Created via Output.Error().
type Error struct {
	out     *Output
	meta    Meta
	err     error
	code    string
	details []detail
}

// WithCode sets an error code.
func (e *Error) WithCode(code string) *Error {
	e.code = code
	return e
}

// With adds a detail key-value pair.
func (e *Error) With(key string, value any) *Error {
	e.details = append(e.details, detail{key: key, value: value})
	return e
}

// Render outputs the error in the configured format.
func (e *Error) Render() error { return e.out.Render(e) }

// Meta returns the metadata.
func (e *Error) Meta() Meta { return e.meta }

func (e *Error) label() string {
	if e.code != "" {
		return "Error [" + e.code + "]"
	}
	return "Error"
}

// RenderText writes the error and its details.
func (e *Error) RenderText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s: %v\n", e.label(), e.err); err != nil {
		return err
	}
	return writeDetails(w, "  %s: %v\n", e.details)
}

// RenderData returns the error as an object.
func (e *Error) RenderData() any {
	data := map[string]any{"error": e.err.Error()}
	if e.code != "" {
		data["code"] = e.code
	}
	return detailsData(e.details, data)
}

// RenderMarkdown writes the error as a blockquote.
func (e *Error) RenderMarkdown(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "> **%s:** %v\n", e.label(), e.err); err != nil {
		return err
	}
	if len(e.details) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return writeDetails(w, "- %s: %v\n", e.details)
}
