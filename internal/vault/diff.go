package vault

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/illarion/cipherbox/internal/envelope"
)

// Diff compares the stored value of name with candidate and returns a
// unified diff of their text renderings, or "" when they are equal.
func (v *Vault) Diff(ctx context.Context, password []byte, name string, candidate any) (string, error) {
	cand, err := envelope.ValueOf(candidate)
	if err != nil {
		return "", err
	}

	stored, err := v.Get(ctx, password, name)
	if err != nil {
		return "", err
	}

	if stored.Equal(cand) {
		return "", nil
	}
	return GenerateUnifiedDiff(name, stored, cand), nil
}

// GenerateUnifiedDiff renders a line diff from the vault value to the
// candidate. Type changes and binary strings are reported on one line.
func GenerateUnifiedDiff(name string, stored, candidate envelope.Value) string {
	if stored.Kind() != candidate.Kind() || stored.Shape() != candidate.Shape() {
		return fmt.Sprintf("Secret %s changed type: %s -> %s\n", name, describe(stored), describe(candidate))
	}

	a, b := envelope.Format(stored), envelope.Format(candidate)
	if a == b {
		return ""
	}
	if !utf8.ValidString(a) || !utf8.ValidString(b) || strings.ContainsRune(a+b, 0) {
		return fmt.Sprintf("Binary secret %s has changed\n", name)
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff keeps hunks aligned to whole lines
	ac, bc, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffMain(ac, bc, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var out strings.Builder
	fmt.Fprintf(&out, "--- vault/%s\n", name)
	fmt.Fprintf(&out, "+++ candidate/%s\n", name)
	fmt.Fprintf(&out, "@@ -1,%d +1,%d @@\n", countLines(a), countLines(b))
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix + line)
			if !strings.HasSuffix(line, "\n") {
				out.WriteString("\n")
			}
		}
	}
	return out.String()
}

func countLines(s string) int {
	n := strings.Count(s, "\n")
	if s != "" && !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

func describe(v envelope.Value) string {
	if v.Kind() == envelope.KindComposite {
		return v.Shape().String()
	}
	return v.Kind().String()
}
