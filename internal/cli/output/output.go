package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))

func DefaultFormat() string {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return "table"
	}
	return "json"
}

// Print renders payload in the requested format. Payloads are the generic
// JSON form of a server response: {"trainings": [...]}, {"chats": [...]},
// a status object or a single record.
func Print(w io.Writer, payload map[string]any, format string, quiet bool) error {
	if quiet {
		format = "quiet"
	}
	format = strings.TrimSpace(strings.ToLower(format))
	if format == "" {
		format = DefaultFormat()
	}

	switch format {
	case "json":
		return printJSON(w, payload)
	case "table":
		return printTable(w, payload)
	case "plain":
		return printPlain(w, payload)
	case "quiet":
		return printQuiet(w, payload)
	default:
		return errors.New("invalid --format value")
	}
}

// ToPayload converts a typed response into the generic map Print expects.
func ToPayload(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// isTerminal reports whether w is a file attached to a terminal. Only then
// do table headers get styled.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func header(w io.Writer, cols string) {
	if isTerminal(w) {
		cols = headerStyle.Render(cols)
	}
	fmt.Fprintln(w, cols)
}

func printTable(w io.Writer, payload map[string]any) error {
	switch {
	case hasKey(payload, "trainings"):
		header(w, "ID\tTYPE\tSTATUS\tTEXT")
		for _, row := range toObjectSlice(payload["trainings"]) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				str(row["id"]), str(row["type"]), str(row["status"]), truncate(str(row["text"]), 60))
		}
	case hasKey(payload, "chats"):
		header(w, "SLUG\tLABEL\tIFRAME")
		for _, row := range toObjectSlice(payload["chats"]) {
			fmt.Fprintf(w, "%s\t%s\t%s\n", str(row["slug"]), str(row["label"]), str(row["iframeSrc"]))
		}
	case hasKey(payload, "status") && hasKey(payload, "version"):
		header(w, "STATUS\tVERSION\tAGENTS")
		fmt.Fprintf(w, "%s\t%s\t%s\n", str(payload["status"]), str(payload["version"]), joinList(payload["agents"]))
	default:
		return printJSON(w, payload)
	}
	return nil
}

func printPlain(w io.Writer, payload map[string]any) error {
	switch {
	case hasKey(payload, "trainings"):
		for _, row := range toObjectSlice(payload["trainings"]) {
			fmt.Fprintf(w, "%s %s %s\n", str(row["id"]), str(row["type"]), str(row["text"]))
		}
	case hasKey(payload, "chats"):
		for _, row := range toObjectSlice(payload["chats"]) {
			fmt.Fprintf(w, "%s %s\n", str(row["slug"]), str(row["iframeSrc"]))
		}
	case hasKey(payload, "status") && hasKey(payload, "version"):
		fmt.Fprintf(w, "%s %s agents=%s\n", str(payload["status"]), str(payload["version"]), joinList(payload["agents"]))
	case hasKey(payload, "id") && hasKey(payload, "type"):
		fmt.Fprintf(w, "%s %s %s\n", str(payload["id"]), str(payload["type"]), str(payload["text"]))
	default:
		return printJSON(w, payload)
	}
	return nil
}

func printQuiet(w io.Writer, payload map[string]any) error {
	switch {
	case hasKey(payload, "trainings"):
		for _, row := range toObjectSlice(payload["trainings"]) {
			fmt.Fprintln(w, str(row["id"]))
		}
	case hasKey(payload, "chats"):
		for _, row := range toObjectSlice(payload["chats"]) {
			fmt.Fprintln(w, str(row["slug"]))
		}
	case hasKey(payload, "status"):
		fmt.Fprintln(w, str(payload["status"]))
	default:
		if id, ok := payload["id"]; ok {
			fmt.Fprintln(w, str(id))
			return nil
		}
		return printJSON(w, payload)
	}
	return nil
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func toObjectSlice(v any) []map[string]any {
	in, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(in))
	for _, item := range in {
		if row, ok := item.(map[string]any); ok {
			out = append(out, row)
		}
	}
	return out
}

func joinList(v any) string {
	in, ok := v.([]any)
	if !ok || len(in) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(in))
	for _, item := range in {
		parts = append(parts, str(item))
	}
	return strings.Join(parts, ",")
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
