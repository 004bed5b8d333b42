package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	oldCommit := Commit
	t.Cleanup(func() { Commit = oldCommit })

	Commit = "0123456789abcdef"
	s := String()

	if !strings.HasPrefix(s, "autopost dev") {
		t.Errorf("String() = %q", s)
	}
	if !strings.Contains(s, "commit: 0123456") || strings.Contains(s, "0123456789") {
		t.Errorf("commit not shortened: %q", s)
	}
}
