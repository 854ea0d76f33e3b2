package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/boxesandglue/stylecheck"
	"github.com/boxesandglue/stylecheck/internal/logging"
)

// Version is injected at build time via -ldflags
var Version = "dev"

type options struct {
	instructor    bool
	document      string
	stylesheets   []string
	quiescence    time.Duration
	scriptTimeout time.Duration
	noScripts     bool
	color         string
	logLevel      string
}

// NewRootCommand creates the stylecheck command.
func NewRootCommand() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:   "stylecheck [exercise-dir]",
		Short: "Check the computed styles of a styling exercise",
		Long: `stylecheck loads index.html and its stylesheets from the exercise
directory, runs the page's inline scripts until it settles and checks the
computed color and font size of the graded elements.

Without an argument the working directory is taken as the grader's
location inside the exercise: the exercise is one level up, or two levels
up with --instructor.

The exit status is 0 when every check passes and 1 otherwise.`,
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChecks(cmd, args, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.instructor, "instructor", false, "grade two levels above the working directory instead of one")
	f.StringVar(&opts.document, "document", "index.html", "markup file, relative to the exercise directory")
	f.StringSliceVar(&opts.stylesheets, "stylesheet", []string{"setting.css", "style.css"}, "stylesheets in cascade order; missing files count as empty")
	f.DurationVar(&opts.quiescence, "quiescence", 5*time.Second, "virtual time pending timers may still run after the load event")
	f.DurationVar(&opts.scriptTimeout, "script-timeout", 2*time.Second, "wall-clock limit for a single script or callback")
	f.BoolVar(&opts.noScripts, "no-scripts", false, "check the markup as written, without running scripts")
	f.StringVar(&opts.color, "color", "auto", "colorize the report: auto, always or never")
	f.StringVar(&opts.logLevel, "log-level", logging.LevelNone, "diagnostics on stderr: none, normal or debug")
	return cmd
}

// exerciseDir anchors the exercise relative to the working directory, which
// stands for the grader's own directory (tests/ or tests/_instructor/).
func exerciseDir(args []string, instructor bool) string {
	switch {
	case len(args) > 0:
		return args[0]
	case instructor:
		return filepath.Join("..", "..")
	}
	return ".."
}

func runChecks(cmd *cobra.Command, args []string, opts options) error {
	logger, err := logging.New(opts.logLevel, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var colorize bool
	switch opts.color {
	case "always":
		colorize = true
	case "never":
	case "auto":
		if f, ok := cmd.OutOrStdout().(*os.File); ok {
			colorize = logging.EnableColorOutput(f)
		}
	default:
		return fmt.Errorf("invalid --color value %q", opts.color)
	}

	r := stylecheck.NewRunner(exerciseDir(args, opts.instructor))
	r.Document = opts.document
	r.Stylesheets = opts.stylesheets
	r.Scripts.Disabled = opts.noScripts
	r.Scripts.Quiescence = opts.quiescence
	r.Scripts.Budget = opts.scriptTimeout
	r.Logger = logger

	results, err := r.Run(cmd.Context())
	if err != nil {
		return err
	}
	ok, err := stylecheck.WriteReport(cmd.OutOrStdout(), results, colorize)
	if err != nil {
		return err
	}
	if !ok {
		return stylecheck.ErrChecksFailed
	}
	return nil
}
