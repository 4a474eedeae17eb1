package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
)

// KV renders key-value pairs in insertion order.
// Created via Output.KV().
type KV struct {
	out   *Output
	meta  Meta
	pairs []detail
}

// Set adds a key-value pair. Value can be any type.
func (k *KV) Set(key string, value any) *KV {
	k.pairs = append(k.pairs, detail{key: key, value: value})
	return k
}

// Render outputs the key-value pairs in the configured format.
func (k *KV) Render() error { return k.out.Render(k) }

// Meta returns the metadata.
func (k *KV) Meta() Meta { return k.meta }

// RenderText writes aligned "key: value" lines.
func (k *KV) RenderText(w io.Writer) error {
	if len(k.pairs) == 0 {
		return nil
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.SeparateRows = false
	tw.Style().Options.SeparateHeader = false

	for _, p := range k.pairs {
		tw.AppendRow(table.Row{p.key + ":", fmt.Sprintf("%v", p.value)})
	}

	_, err := io.WriteString(w, tw.Render()+"\n")
	return err
}

// RenderData returns the pairs as an object.
func (k *KV) RenderData() any {
	return detailsData(k.pairs, make(map[string]any, len(k.pairs)))
}

// RenderMarkdown writes the pairs as bold-key paragraphs.
func (k *KV) RenderMarkdown(w io.Writer) error {
	for _, p := range k.pairs {
		if _, err := fmt.Fprintf(w, "**%s:** %s\n\n", p.key, formatMarkdownValue(p.value)); err != nil {
			return err
		}
	}
	return nil
}

// formatMarkdownValue code-quotes identifiers and escapes table pipes.
func formatMarkdownValue(v any) string {
	s := fmt.Sprintf("%v", v)
	if looksLikeID(s) {
		return "`" + s + "`"
	}
	return strings.ReplaceAll(s, "|", "\\|")
}

// looksLikeID reports whether s is a UUID or a platform id such as
// "amzn1.echo-api.request.<uuid>".
func looksLikeID(s string) bool {
	if _, err := uuid.Parse(s); err == nil {
		return true
	}
	i := strings.LastIndexByte(s, '.')
	if i < 0 || !strings.HasPrefix(s, "amzn1.") {
		return false
	}
	_, err := uuid.Parse(s[i+1:])
	return err == nil
}
