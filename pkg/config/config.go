package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/xplshn/gtac/pkg/cli"
	"modernc.org/libqbe"
)

type Feature int

const (
	FeatCComments Feature = iota
	FeatBlockComments
	FeatSwitch
	FeatElideSelfCopy
	FeatVerify
	FeatTypeCheck
	FeatCount
)

type Warning int

const (
	WarnRedeclared Warning = iota
	WarnUnused
	WarnConstCond
	WarnUnreachableCode
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	GOOS       string
	GOARCH     string
	QbeTarget  string
	LinkerArgs []string
	Quiet      bool
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
	}

	features := map[Feature]Info{
		FeatCComments:     {"c-comments", true, "Recognize C-style '//' line comments."},
		FeatBlockComments: {"block-comments", true, "Recognize '/* ... */' block comments."},
		FeatSwitch:        {"switch", true, "Allow switch statements."},
		FeatElideSelfCopy: {"elide-self-copy", true, "Drop assignments of a variable to itself."},
		FeatVerify:        {"verify", true, "Check that every jump target is marked exactly once after generation."},
		FeatTypeCheck:     {"type-check", true, "Report every type error before generating code."},
	}

	warnings := map[Warning]Info{
		WarnRedeclared:      {"redeclared", true, "Warn when a variable is declared twice with the same type."},
		WarnUnused:          {"unused", true, "Warn about declared variables that are never referenced."},
		WarnConstCond:       {"const-cond", false, "Warn about if/while conditions that are a boolean literal."},
		WarnUnreachableCode: {"unreachable-code", true, "Warn about code that will never be executed."},
		WarnExtra:           {"extra", true, "Enable extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// SetTarget configures the QBE target used by the asm and exe emitters.
func (c *Config) SetTarget(goos, goarch, qbeTarget string) {
	c.GOOS, c.GOARCH = goos, goarch
	if qbeTarget == "" {
		c.QbeTarget = libqbe.DefaultTarget(goos, goarch)
		c.info("no target specified, defaulting to host target '%s'", c.QbeTarget)
	} else {
		c.QbeTarget = qbeTarget
		c.info("using specified target '%s'", c.QbeTarget)
	}

	switch c.QbeTarget {
	case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
	default:
		fmt.Fprintf(os.Stderr, "gtac: warning: unrecognized or unsupported QBE target '%s'.\n", c.QbeTarget)
	}
}

func (c *Config) info(format string, args ...interface{}) {
	if c.Quiet {
		return
	}
	fmt.Fprintf(os.Stderr, "gtac: info: "+format+"\n", args...)
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

func (c *Config) SetAllWarnings(enabled bool) {
	for i := Warning(0); i < WarnCount; i++ {
		c.SetWarning(i, enabled)
	}
}

// ApplyFlag applies a single -W<name>, -Wno-<name>, -F<name> or
// -Fno-<name> switch. It reports whether the name was recognized.
func (c *Config) ApplyFlag(flag string) bool {
	trimmed := strings.TrimPrefix(flag, "-")
	if len(trimmed) < 2 {
		return false
	}
	kind, name := trimmed[0], trimmed[1:]
	enable := !strings.HasPrefix(name, "no-")
	name = strings.TrimPrefix(name, "no-")

	switch kind {
	case 'W':
		if name == "all" {
			c.SetAllWarnings(enable)
			return true
		}
		if w, ok := c.WarningMap[name]; ok {
			c.SetWarning(w, enable)
			return true
		}
	case 'F':
		if f, ok := c.FeatureMap[name]; ok {
			c.SetFeature(f, enable)
			return true
		}
	}
	return false
}

// SetupFlagGroups registers the -W and -F flag groups on fs. The returned
// entries are indexed by Warning and Feature respectively.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) ([]cli.FlagGroupEntry, []cli.FlagGroupEntry) {
	warningFlags := make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		warningFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description,
			Enabled: new(bool), Disabled: new(bool),
		}
	}

	featureFlags := make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		featureFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description,
			Enabled: new(bool), Disabled: new(bool),
		}
	}

	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning flag", "Available Warning Flags:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature flag", "Available feature flags:", featureFlags)
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies the parsed group flags back into the tables.
func (c *Config) ApplyFlagGroups(warningFlags, featureFlags []cli.FlagGroupEntry) {
	for i, entry := range warningFlags {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetWarning(Warning(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range featureFlags {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetFeature(Feature(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}
