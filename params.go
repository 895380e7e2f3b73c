package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/launchdarkly/test-engine/framework/engine"
	"github.com/launchdarkly/test-engine/framework/opt"

	"gopkg.in/yaml.v3"
)

type commandParams struct {
	groups          groupList
	filters         engine.RegexFilters
	concurrent      bool
	workers         int
	serializeEvents bool
	debug           bool
	debugAll        bool
	jUnitFile       string
	configFile      string
	manifestFile    string
	statusPort      int
	recordFailures  string
	skipFile        string
}

// groupList is a flag value that accepts comma-separated group names and may be repeated.
type groupList []string

func (g groupList) String() string { return strings.Join(g, ",") }

func (g *groupList) Set(value string) error {
	for _, s := range strings.Split(value, ",") {
		if s = strings.TrimSpace(s); s != "" {
			*g = append(*g, s)
		}
	}
	return nil
}

// runConfig is the format of the file given with -config. Command-line flags override it.
type runConfig struct {
	Groups         []string          `yaml:"groups"`
	Run            []string          `yaml:"run"`
	Skip           []string          `yaml:"skip"`
	Concurrent     opt.Maybe[bool]   `yaml:"concurrent"`
	Workers        opt.Maybe[int]    `yaml:"workers"`
	JUnit          opt.Maybe[string] `yaml:"junit"`
	Manifest       opt.Maybe[string] `yaml:"manifest"`
	StatusPort     opt.Maybe[int]    `yaml:"statusPort"`
	RecordFailures opt.Maybe[string] `yaml:"recordFailures"`
	SkipFile       opt.Maybe[string] `yaml:"skipFile"`
}

func (c *commandParams) Read(args []string) bool {
	fs := flag.NewFlagSet("", flag.ExitOnError)
	fs.Var(&c.groups, "groups", "comma-separated group names; only tests in one of these groups run")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.BoolVar(&c.concurrent, "concurrent", false, "run tests across a pool of workers")
	fs.IntVar(&c.workers, "workers", 0, "number of workers for -concurrent (default GOMAXPROCS)")
	fs.BoolVar(&c.serializeEvents, "serialize-events", false, "deliver all events on a single goroutine")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all tests")
	fs.StringVar(&c.jUnitFile, "junit", "", "write JUnit XML output to the specified path")
	fs.StringVar(&c.configFile, "config", "", "read run settings from the specified YAML file")
	fs.StringVar(&c.manifestFile, "manifest", "", "apply group/order/skip markers from the specified YAML file")
	fs.IntVar(&c.statusPort, "status-port", 0, "serve run status and metrics on this port (0 disables)")
	fs.StringVar(&c.recordFailures, "record-failures", "", "record failed test IDs to the given file")
	fs.StringVar(&c.skipFile, "skip-file", "", "skip tests listed in the given file (as written by -record-failures)")

	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return false
	}
	if c.configFile != "" {
		if err := c.applyConfigFile(fs); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return false
		}
	}
	if c.workers < 0 {
		fmt.Fprintln(os.Stderr, "-workers must not be negative")
		fs.Usage()
		return false
	}
	return true
}

func (c *commandParams) applyConfigFile(fs *flag.FlagSet) error {
	data, err := os.ReadFile(c.configFile)
	if err != nil {
		return fmt.Errorf("cannot read config file: %w", err)
	}
	var config runConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("cannot parse config file %s: %w", c.configFile, err)
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if !explicit["groups"] {
		c.groups = append(c.groups, config.Groups...)
	}
	if !explicit["run"] {
		for _, s := range config.Run {
			if err := c.filters.MustMatch.Set(s); err != nil {
				return fmt.Errorf("invalid run pattern %q in config file: %w", s, err)
			}
		}
	}
	if !explicit["skip"] {
		for _, s := range config.Skip {
			if err := c.filters.MustNotMatch.Set(s); err != nil {
				return fmt.Errorf("invalid skip pattern %q in config file: %w", s, err)
			}
		}
	}
	setIfUnset(explicit, "concurrent", &c.concurrent, config.Concurrent)
	setIfUnset(explicit, "workers", &c.workers, config.Workers)
	setIfUnset(explicit, "junit", &c.jUnitFile, config.JUnit)
	setIfUnset(explicit, "manifest", &c.manifestFile, config.Manifest)
	setIfUnset(explicit, "status-port", &c.statusPort, config.StatusPort)
	setIfUnset(explicit, "record-failures", &c.recordFailures, config.RecordFailures)
	setIfUnset(explicit, "skip-file", &c.skipFile, config.SkipFile)
	return nil
}

func setIfUnset[V any](explicit map[string]bool, name string, target *V, value opt.Maybe[V]) {
	if !explicit[name] && value.IsDefined() {
		*target = value.Value()
	}
}
