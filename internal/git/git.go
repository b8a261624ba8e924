package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// GitStatus describes how a vault directory relates to its git repository
type GitStatus struct {
	IsRepo           bool
	VaultFile        string
	VaultTracked     bool
	TrackedExports   []string // Plaintext exports committed to git (bad)
	UnignoredExports []string // Plaintext exports not covered by .gitignore (warning)
	IgnoredExports   []string // Plaintext exports covered by .gitignore (good)
}

// runner executes git in a directory; swapped in tests
var runner = func(dir string, args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	return cmd.Output()
}

// IsGitRepo checks if dir is inside a git work tree
func IsGitRepo(dir string) bool {
	out, err := runner(dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

// IsTracked checks if a file is tracked by git
func IsTracked(dir, path string) bool {
	out, err := runner(dir, "ls-files", "--", path)
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(out))) > 0
}

// IsIgnored checks if a file is ignored by any .gitignore
func IsIgnored(dir, path string) bool {
	// check-ignore exits 0 only when the path is ignored
	_, err := runner(dir, "check-ignore", "-q", "--", path)
	return err == nil
}

// CheckGitIntegration reports whether the vault file is committed and
// whether exported plaintext files are kept out of git
func CheckGitIntegration(dir, vaultFile string, exported []string) (*GitStatus, error) {
	status := &GitStatus{VaultFile: vaultFile}
	if !IsGitRepo(dir) {
		return status, nil
	}
	status.IsRepo = true
	status.VaultTracked = IsTracked(dir, vaultFile)

	for _, file := range exported {
		switch {
		case IsTracked(dir, file):
			status.TrackedExports = append(status.TrackedExports, file)
		case IsIgnored(dir, file):
			status.IgnoredExports = append(status.IgnoredExports, file)
		default:
			status.UnignoredExports = append(status.UnignoredExports, file)
		}
	}

	return status, nil
}

// FormatGitStatus formats git status for display
func FormatGitStatus(status *GitStatus) string {
	if status == nil || !status.IsRepo {
		return ""
	}

	var b strings.Builder
	b.WriteString("\nGit Integration:\n")

	if status.VaultTracked {
		fmt.Fprintf(&b, "   ok: %s is tracked by git\n", status.VaultFile)
	} else {
		fmt.Fprintf(&b, "   error: %s not tracked (run: git add %s)\n", status.VaultFile, status.VaultFile)
	}

	for _, file := range status.TrackedExports {
		fmt.Fprintf(&b, "   error: exported secret %s is tracked (run: git rm --cached %s)\n", file, file)
	}
	for _, file := range status.UnignoredExports {
		fmt.Fprintf(&b, "   warning: exported secret %s not in .gitignore\n", file)
	}
	if n := len(status.IgnoredExports); n > 0 && len(status.TrackedExports) == 0 && len(status.UnignoredExports) == 0 {
		fmt.Fprintf(&b, "   ok: %d exported secret(s) in .gitignore\n", n)
	}

	return b.String()
}
