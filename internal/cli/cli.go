package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/multirelease/internal/app"
	"github.com/vk/multirelease/internal/options"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("multirelease", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
multirelease - release every package of a monorepo in one coordinated run.

Usage:
  multirelease [options] [ROOT]

Arguments:
  ROOT
    Workspace root directory. Defaults to the current directory. Unit
    locations come from the workspace block of .multirelease.hcl or from
    repeated --location flags.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the run configuration file. Defaults to ROOT/.multirelease.hcl.")
	engineFlag := flagSet.String("engine", "noop", "Release engine to drive each unit's pipeline with.")

	var locations, ignore stringList
	flagSet.Var(&locations, "location", "Explicit unit directory relative to ROOT. Repeatable.")
	flagSet.Var(&ignore, "ignore", "Glob of unit locations to exclude from the run. Repeatable.")

	seqInitFlag := flagSet.Bool("sequential-init", false, "Serialize the verify phase across units.")
	seqPrepareFlag := flagSet.Bool("sequential-prepare", false, "Serialize the prepare phase across units. Rejects cyclic dependency graphs.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Run every pipeline without publishing.")
	tagFormatFlag := flagSet.String("tag-format", "", "Tag template, e.g. '${name}@${version}'. The unit name is forced in if missing.")
	depsBumpFlag := flagSet.String("deps-bump", "", "Dependency range rewrite policy. Options: 'override', 'satisfy' or 'inherit'.")
	depsReleaseFlag := flagSet.String("deps-release", "", "Release forced by a released dependency. Options: 'patch', 'minor', 'major' or 'inherit'.")
	depsOnFailFlag := flagSet.String("deps-on-fail", "", "Behavior on a failed dependency. Options: 'skip', 'proceed' or 'fail'.")

	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	root := "."
	if flagSet.NArg() > 0 {
		root = flagSet.Arg(0)
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	flags, err := flagOverrides(flagSet, *seqInitFlag, *seqPrepareFlag, *dryRunFlag,
		*tagFormatFlag, *depsBumpFlag, *depsReleaseFlag, *depsOnFailFlag)
	if err != nil {
		return nil, false, err
	}

	config, err := app.NewConfig(app.Config{
		Root:       root,
		ConfigPath: *configFlag,
		Engine:     *engineFlag,
		Locations:  locations,
		Ignore:     ignore,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
		Flags:      flags,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}

// flagOverrides builds the highest-precedence option layer. Only flags the
// user actually passed become part of the layer, so an untouched default
// never shadows a value from the configuration file.
func flagOverrides(flagSet *flag.FlagSet, seqInit, seqPrepare, dryRun bool,
	tagFormat, depsBump, depsRelease, depsOnFail string) (options.Overrides, error) {

	passed := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) { passed[f.Name] = true })

	var o options.Overrides
	if passed["sequential-init"] {
		o.SequentialInit = &seqInit
	}
	if passed["sequential-prepare"] {
		o.SequentialPrepare = &seqPrepare
	}
	if passed["dry-run"] {
		o.DryRun = &dryRun
	}
	if passed["tag-format"] {
		o.TagFormat = &tagFormat
	}
	if passed["deps-bump"] {
		p := options.BumpPolicy(depsBump)
		switch p {
		case options.BumpOverride, options.BumpSatisfy, options.BumpInherit:
		default:
			return o, &ExitError{Code: 2, Message: "invalid deps-bump: must be 'override', 'satisfy', or 'inherit'"}
		}
		o.DepsBump = &p
	}
	if passed["deps-release"] {
		p := options.ReleasePolicy(depsRelease)
		switch p {
		case options.ReleasePatch, options.ReleaseMinor, options.ReleaseMajor, options.ReleaseInherit:
		default:
			return o, &ExitError{Code: 2, Message: "invalid deps-release: must be 'patch', 'minor', 'major', or 'inherit'"}
		}
		o.DepsRelease = &p
	}
	if passed["deps-on-fail"] {
		p := options.FailPolicy(depsOnFail)
		switch p {
		case options.FailSkip, options.FailProceed, options.FailFail:
		default:
			return o, &ExitError{Code: 2, Message: "invalid deps-on-fail: must be 'skip', 'proceed', or 'fail'"}
		}
		o.DepsOnFail = &p
	}
	return o, nil
}
