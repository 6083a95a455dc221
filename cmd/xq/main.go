package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"xq/config"
	"xq/dom"
	"xq/selector"
	"xq/state"
)

var version = "dev"

// initializeAppContext prepares application context before command execution but
// after command line has been parsed
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		// nothing to do, just return
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		env.Cfg.Logging.ConsoleLogger.Level = "debug"
	}
	if env.Log, err = env.Cfg.Logging.Prepare(); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", version), zap.String("runtime", runtime.Version()))
	if len(configFile) == 0 {
		env.Log.Debug("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}
	env.RestoreStdLog()
	return nil
}

// Ignore urfave/cli default error handling - cli.Exit() looks
// non-transparent and unnecessary, subcommands return regular errors.
var errWasHandled bool

// this is called before appContext is destroyed, so we have a chance to
// properly log any error from subcommand
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	state.EnvFromContext(ctx).Log.Warn("Unknown command, nothing to do", zap.String("command", name))
}

func main() {

	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            config.AppName,
		Usage:           "query XML/HTML documents with CSS selectors or XPath",
		Version:         version + " (" + runtime.Version() + ")",
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "verbose console logging to help troubleshooting"},
		},
		Commands: []*cli.Command{
			{
				Name:         "find",
				Usage:        "Prints nodes matching an expression",
				OnUsageError: usageErrorHandler,
				Action:       runFind,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "expression `TYPE`: css or xpath (default from configuration)"},
					&cli.BoolFlag{Name: "html", Usage: "parse input as HTML instead of XML"},
					&cli.BoolFlag{Name: "text", Usage: "print text content of matches instead of markup"},
				},
				ArgsUsage: "EXPRESSION [FILE...]",
			},
			{
				Name:         "has",
				Usage:        "Succeeds if the expression matches anything, fails otherwise",
				OnUsageError: usageErrorHandler,
				Action:       runHas,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "expression `TYPE`: css or xpath (default from configuration)"},
					&cli.BoolFlag{Name: "html", Usage: "parse input as HTML instead of XML"},
				},
				ArgsUsage: "EXPRESSION [FILE]",
			},
			{
				Name:         "format",
				Usage:        "Re-indents documents and prints them",
				OnUsageError: usageErrorHandler,
				Action:       runFormat,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "html", Usage: "parse input as HTML instead of XML"},
				},
				ArgsUsage: "[FILE...]",
			},
			{
				Name:         "compile",
				Usage:        "Prints the XPath translation of a CSS selector",
				OnUsageError: usageErrorHandler,
				Action:       runCompile,
				ArgsUsage:    "SELECTOR",
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default built-in configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
			},
		},
	}

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deferred functions after that
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

// expressionType resolves the effective expression type: command line
// first, configuration default second.
func expressionType(cmd *cli.Command, env *state.LocalEnv) (selector.ExpressionType, error) {
	if s := cmd.String("type"); s != "" {
		return selector.ParseExpressionType(s)
	}
	return selector.ParseExpressionType(env.Cfg.Query.ExpressionType)
}

// loadDocument reads one source, "-" or empty meaning stdin.
func loadDocument(name string, asHTML bool, env *state.LocalEnv) (*dom.Document, error) {
	if name == "" || name == "-" {
		d := dom.NewDocument(env.Log)
		var err error
		if asHTML {
			err = d.ReadHTML(os.Stdin)
		} else {
			err = d.ReadXML(os.Stdin)
		}
		if err != nil {
			return nil, fmt.Errorf("unable to load document from stdin: %w", err)
		}
		return d, nil
	}
	if asHTML {
		return dom.OpenHTML(name, env.Log)
	}
	return dom.OpenXML(name, env.Log)
}

func runFind(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.NArg() == 0 {
		return fmt.Errorf("no expression to evaluate")
	}
	expression := cmd.Args().Get(0)
	files := cmd.Args().Slice()[1:]
	if len(files) == 0 {
		files = []string{"-"}
	}

	typ, err := expressionType(cmd, env)
	if err != nil {
		return err
	}
	asHTML := cmd.Bool("html") || env.Cfg.Query.HTML

	var errAll error
	for _, name := range files {
		doc, err := loadDocument(name, asHTML, env)
		if err != nil {
			errAll = multierr.Append(errAll, err)
			continue
		}
		found, err := doc.Find(expression, typ)
		if err != nil {
			errAll = multierr.Append(errAll, fmt.Errorf("query '%s': %w", name, err))
			continue
		}
		env.Log.Debug("Processed document", zap.String("source", name), zap.Int("matches", len(found)))
		for _, el := range found {
			if cmd.Bool("text") {
				fmt.Println(el.Text())
				continue
			}
			markup, err := el.HTML()
			if err != nil {
				errAll = multierr.Append(errAll, err)
				continue
			}
			fmt.Println(markup)
		}
	}
	return errAll
}

func runFormat(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	files := cmd.Args().Slice()
	if len(files) == 0 {
		files = []string{"-"}
	}
	asHTML := cmd.Bool("html") || env.Cfg.Query.HTML

	var errAll error
	for _, name := range files {
		doc, err := loadDocument(name, asHTML, env)
		if err != nil {
			errAll = multierr.Append(errAll, err)
			continue
		}
		out, err := doc.Format(env.Cfg.Query.Indent)
		if err != nil {
			errAll = multierr.Append(errAll, fmt.Errorf("format '%s': %w", name, err))
			continue
		}
		fmt.Println(out)
	}
	return errAll
}

func runHas(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.NArg() == 0 {
		return fmt.Errorf("no expression to evaluate")
	}
	if cmd.NArg() > 2 {
		env.Log.Warn("Malformed command line, too many sources", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}
	expression := cmd.Args().Get(0)

	typ, err := expressionType(cmd, env)
	if err != nil {
		return err
	}
	doc, err := loadDocument(cmd.Args().Get(1), cmd.Bool("html") || env.Cfg.Query.HTML, env)
	if err != nil {
		return err
	}
	ok, err := doc.Has(expression, typ)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no match for %q", expression)
	}
	return nil
}

func runCompile(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.NArg() == 0 {
		return fmt.Errorf("no selector to compile")
	}
	if cmd.NArg() > 1 {
		env.Log.Warn("Malformed command line, too many selectors", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	compiled, err := selector.NewCompiler(env.Log).Compile(cmd.Args().Get(0), selector.TypeCSS)
	if err != nil {
		return err
	}
	fmt.Println(compiled)
	return nil
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Dump(config.Default())
	} else {
		state = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Info("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	_, err = out.Write(data)
	if err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
