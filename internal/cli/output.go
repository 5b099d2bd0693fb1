package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mgutz/ansi"
)

func success(w io.Writer, msg string) { fmt.Fprintln(w, ansi.Color(msg, "green")) }
func warning(w io.Writer, msg string) { fmt.Fprintln(w, ansi.Color(msg, "yellow")) }
func failure(w io.Writer, msg string) { fmt.Fprintln(w, ansi.Color(msg, "red")) }

// printJSON writes v as indented JSON followed by a newline.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
