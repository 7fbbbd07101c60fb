package cli

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestSet() (*FlagSet, *string, *bool, *[]string) {
	var out string
	var verbose bool
	var libs []string
	fs := NewFlagSet("test")
	fs.String(&out, "output", "o", "", "Output file", "file")
	fs.Bool(&verbose, "verbose", "v", false, "Verbose")
	fs.List(&libs, "linker-arg", "L", nil, "Linker argument", "arg")
	return fs, &out, &verbose, &libs
}

func TestParse(t *testing.T) {
	tests := []struct {
		args    []string
		out     string
		verbose bool
		libs    []string
		rest    []string
	}{
		{[]string{"-o", "a.out", "x.tl"}, "a.out", false, nil, []string{"x.tl"}},
		{[]string{"-oa.out", "-v", "x.tl"}, "a.out", true, nil, []string{"x.tl"}},
		{[]string{"--output=b", "--verbose=false", "-"}, "b", false, nil, []string{"-"}},
		{[]string{"-output", "c", "-L", "-lm", "-Lfoo"}, "c", false, []string{"-lm", "foo"}, []string{}},
		{[]string{"-v", "--", "-o", "y"}, "", true, nil, []string{"-o", "y"}},
	}
	for _, tc := range tests {
		fs, out, verbose, libs := newTestSet()
		if err := fs.Parse(tc.args); err != nil {
			t.Errorf("Parse(%q): %v", tc.args, err)
			continue
		}
		got := []interface{}{*out, *verbose, *libs, fs.Args()}
		want := []interface{}{tc.out, tc.verbose, tc.libs, tc.rest}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Parse(%q) (-want +got):\n%s", tc.args, diff)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--nope"},
		{"-q"},
		{"-o"},
		{"-vx"},
		{"--verbose=maybe"},
	} {
		fs, _, _, _ := newTestSet()
		if err := fs.Parse(args); err == nil {
			t.Errorf("Parse(%q) succeeded", args)
		}
	}
}

func TestFlagGroup(t *testing.T) {
	on, off := new(bool), new(bool)
	fs := NewFlagSet("test")
	fs.AddFlagGroup("Warning Flags", "", "warning flag", "Available Warning Flags:", []FlagGroupEntry{
		{Name: "unused", Prefix: "W", Usage: "Unused variables", Enabled: on, Disabled: off},
	})
	if err := fs.Parse([]string{"-Wno-unused"}); err != nil {
		t.Fatal(err)
	}
	if *on || !*off {
		t.Errorf("enabled=%v disabled=%v", *on, *off)
	}
	if err := fs.Parse([]string{"-Wunused"}); err != nil || !*on {
		t.Errorf("-Wunused: err=%v enabled=%v", err, *on)
	}
}

func TestHelp(t *testing.T) {
	app := NewApp("gtac")
	app.Synopsis = "[options] <input.tl>"
	app.Description = "Translates programs into three-address code."
	var out string
	app.FlagSet.String(&out, "output", "o", "", "Place the output into <file>.", "file")
	app.FlagSet.AddFlagGroup("Feature Flags", "", "feature flag", "Available feature flags:", []FlagGroupEntry{
		{Name: "switch", Prefix: "F", Usage: "Allow switch statements.", Enabled: new(bool), Disabled: new(bool)},
	})

	var sb strings.Builder
	app.WriteHelp(&sb, 80)
	help := sb.String()
	for _, want := range []string{
		"Synopsis\n        gtac [options] <input.tl>",
		"-o <file>, --output <file>",
		"Feature Flags",
		"-F<feature flag>",
		"-Fno-<feature flag>",
		"switch",
	} {
		if !strings.Contains(help, want) {
			t.Errorf("help lacks %q:\n%s", want, help)
		}
	}

	sb.Reset()
	app.WriteUsage(&sb, 80)
	if usage := sb.String(); strings.Contains(usage, "Fno-switch") || !strings.Contains(usage, "Usage: gtac") {
		t.Errorf("usage:\n%s", usage)
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four five", 9)
	want := []string{"one two", "three", "four five"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("wrapText (-want +got):\n%s", diff)
	}
}
