package git

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo answers git commands from fixed sets of tracked and ignored paths.
func fakeRepo(t *testing.T, isRepo bool, tracked, ignored []string) {
	t.Helper()
	has := func(set []string, p string) bool {
		for _, s := range set {
			if s == p {
				return true
			}
		}
		return false
	}

	orig := runner
	t.Cleanup(func() { runner = orig })
	runner = func(dir string, args ...string) ([]byte, error) {
		path := args[len(args)-1]
		switch args[0] {
		case "rev-parse":
			if !isRepo {
				return nil, errors.New("not a git repository")
			}
			return []byte("true\n"), nil
		case "ls-files":
			if has(tracked, path) {
				return []byte(path + "\n"), nil
			}
			return nil, nil
		case "check-ignore":
			if has(ignored, path) {
				return nil, nil
			}
			return nil, errors.New("exit status 1")
		}
		return nil, errors.New("unexpected git command")
	}
}

func TestCheckGitIntegration_NotRepo(t *testing.T) {
	fakeRepo(t, false, nil, nil)

	status, err := CheckGitIntegration(t.TempDir(), ".cipherbox", []string{"a.txt"})
	require.NoError(t, err)
	assert.False(t, status.IsRepo)
	assert.Empty(t, FormatGitStatus(status))
}

func TestCheckGitIntegration_Classifies(t *testing.T) {
	fakeRepo(t, true,
		[]string{".cipherbox", "leaked.txt"},
		[]string{"ignored.txt"},
	)

	status, err := CheckGitIntegration(t.TempDir(), ".cipherbox", []string{"leaked.txt", "ignored.txt", "loose.txt"})
	require.NoError(t, err)

	assert.True(t, status.IsRepo)
	assert.True(t, status.VaultTracked)
	assert.Equal(t, []string{"leaked.txt"}, status.TrackedExports)
	assert.Equal(t, []string{"ignored.txt"}, status.IgnoredExports)
	assert.Equal(t, []string{"loose.txt"}, status.UnignoredExports)

	out := FormatGitStatus(status)
	assert.Contains(t, out, "ok: .cipherbox is tracked")
	assert.Contains(t, out, "git rm --cached leaked.txt")
	assert.Contains(t, out, "loose.txt not in .gitignore")
}

func TestFormatGitStatus_AllGood(t *testing.T) {
	fakeRepo(t, true, nil, []string{"out.txt"})

	status, err := CheckGitIntegration(t.TempDir(), ".cipherbox", []string{"out.txt"})
	require.NoError(t, err)

	out := FormatGitStatus(status)
	assert.True(t, strings.Contains(out, "error: .cipherbox not tracked"))
	assert.Contains(t, out, "ok: 1 exported secret(s) in .gitignore")
}
