package rpath

import (
	"path/filepath"
	"testing"
)

func TestConvert(t *testing.T) {
	for _, c := range []struct{ base, path, want string }{
		{"/opt/app", "data/in.jsonl", "/opt/app/data/in.jsonl"},
		{"/opt/app", "/tmp/in.jsonl", "/tmp/in.jsonl"},
		{"/opt/app", Std, Std},
		{"/opt/app", "", ""},
	} {
		if got := Convert(c.base, c.path); got != filepath.FromSlash(c.want) {
			t.Fatalf("Convert(%q, %q): expected %q, got %q", c.base, c.path, c.want, got)
		}
	}
	if got := NextTo("/etc/tracker/config.toml", "out.json"); got != filepath.FromSlash("/etc/tracker/out.json") {
		t.Fatalf("Unexpected NextTo result %q", got)
	}
}
