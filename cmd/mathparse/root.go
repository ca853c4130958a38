package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zephyrtronium/mathparse"
)

// errFailed is returned by commands when some expression failed after its
// error was already printed.
var errFailed = errors.New("some expressions failed")

// options are the flags shared by all commands.
type options struct {
	cfgFile  string
	verbose  bool
	number   string
	fallback string
	prec     uint
	given    []string
	verb     string
	tree     bool
	eval     bool
}

func newRootCmd() *cobra.Command {
	var (
		o      options
		inname string
		lines  bool
	)
	cmd := &cobra.Command{
		Use:   "mathparse [expr...]",
		Short: "Parse and evaluate math expressions",
		Long: `mathparse parses each argument as a program of math expressions and prints
the value of every visible statement. Statements end at a newline or at a
semicolon, which hides the statement's value.

With no arguments, the program is read from --in or from standard input.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}
			var srcs []string
			if inname != "" || len(args) == 0 {
				b, err := readInput(cmd, inname)
				if err != nil {
					return err
				}
				if lines {
					srcs = append(srcs, strings.Split(b, "\n")...)
				} else {
					srcs = append(srcs, b)
				}
			}
			srcs = append(srcs, args...)
			ok := true
			for _, src := range srcs {
				ok = s.run(src) && ok
			}
			if !ok {
				return errFailed
			}
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&o.cfgFile, "config", "", "config file, TOML or YAML by extension")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&o.number, "number", "bignumber", "representation of numbers: number, bignumber, fraction, or bigint")
	pf.StringVar(&o.fallback, "fallback", "number", "representation of non-integers when --number is bigint")
	pf.UintVarP(&o.prec, "prec", "p", 64, "precision of calculations in bits")
	pf.StringArrayVar(&o.given, "given", nil, "name=value variable definition (any number of times)")
	pf.StringVar(&o.verb, "fmt", "%g", "result formatting string")
	pf.BoolVar(&o.tree, "tree", false, "print parse trees")
	pf.BoolVar(&o.eval, "eval", true, "evaluate and print values")
	cmd.Flags().StringVar(&inname, "in", "", "input file (default stdin if no args given)")
	cmd.Flags().BoolVarP(&lines, "lines", "n", false, "parse separate input lines as separate programs")

	cmd.AddCommand(newWatchCmd(&o), newVersionCmd())
	return cmd
}

func readInput(cmd *cobra.Command, inname string) (string, error) {
	var r io.Reader
	switch inname {
	case "", "-":
		r = cmd.InOrStdin()
	default:
		f, err := os.Open(inname)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(b), nil
}

// session is the state shared by the expressions of one invocation.
type session struct {
	log   *slog.Logger
	ctx   *mathparse.Context
	parse mathparse.ParseOption
	verb  string
	tree  bool
	eval  bool
	out   io.Writer
	errs  io.Writer
}

// session loads the config file, applies flags over it, and evaluates the
// configured definitions and variables.
func (o *options) session(cmd *cobra.Command) (*session, error) {
	cfg := defaultConfig()
	if o.cfgFile != "" {
		var err error
		cfg, err = loadConfig(o.cfgFile)
		if err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("number") || o.cfgFile == "" {
		cfg.Number = o.number
	}
	if flags.Changed("fallback") || o.cfgFile == "" {
		cfg.Fallback = o.fallback
	}
	if flags.Changed("prec") || o.cfgFile == "" {
		cfg.Precision = o.prec
	}
	if o.verbose {
		cfg.LogLevel = "debug"
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("bad log level: %w", err)
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))

	nums, err := cfg.numbers()
	if err != nil {
		return nil, err
	}
	if nums.Prec == 0 {
		return nil, errors.New("precision must be positive")
	}
	log.Debug("configured", "file", o.cfgFile, "number", nums.Kind, "fallback", nums.Fallback, "precision", nums.Prec)

	s := &session{
		log:   log,
		ctx:   mathparse.NewContext(mathparse.Prec(nums.Prec)),
		parse: mathparse.ParsingPreset(mathparse.Numbers(nums)),
		verb:  o.verb + "\n",
		tree:  o.tree,
		eval:  o.eval,
		out:   cmd.OutOrStdout(),
		errs:  cmd.ErrOrStderr(),
	}
	for _, def := range cfg.Define {
		if err := s.define(def); err != nil {
			return nil, fmt.Errorf("config definition %q: %w", def, err)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(cfg.Variables)) {
		if err := s.set(name, cfg.Variables[name]); err != nil {
			return nil, fmt.Errorf("setting %s: %w", name, err)
		}
	}
	for _, g := range o.given {
		name, val, ok := strings.Cut(g, "=")
		if !ok {
			return nil, fmt.Errorf(`variable definitions must be "name=value", not %q`, g)
		}
		if err := s.set(strings.TrimSpace(name), strings.TrimSpace(val)); err != nil {
			return nil, fmt.Errorf("setting %s: %w", name, err)
		}
	}
	return s, nil
}

// set evaluates src and assigns its value to name.
func (s *session) set(name, src string) error {
	n, err := mathparse.Parse(src, s.parse)
	if err != nil {
		return err
	}
	r := s.ctx.Eval(n)
	if r == nil {
		if err := s.ctx.Err(); err != nil {
			return err
		}
		return errors.New("no value")
	}
	s.ctx.Set(name, r)
	s.log.Debug("set variable", "name", name, "value", r.String())
	return nil
}

// define evaluates a statement for its effect, like a function definition.
func (s *session) define(src string) error {
	n, err := mathparse.Parse(src, s.parse)
	if err != nil {
		return err
	}
	s.ctx.Eval(n)
	return s.ctx.Err()
}

// run parses and evaluates one program, printing its tree and the values of
// its visible statements. Errors are printed with the offending source. It
// reports whether the program succeeded.
func (s *session) run(src string) bool {
	n, err := mathparse.Parse(src, s.parse)
	if err != nil {
		s.log.Debug("parse failed", "src", src, "error", err)
		fmt.Fprintln(s.errs, renderError(src, err))
		return false
	}
	if c, ok := n.(*mathparse.ConstantNode); ok && c.Value == mathparse.Undefined {
		// Nothing but blanks and comments.
		return true
	}
	s.log.Debug("parsed", "src", src, "tree", n.String())
	if s.tree {
		fmt.Fprintln(s.out, n)
	}
	if !s.eval {
		return true
	}
	stmts := []mathparse.Statement{{Node: n, Visible: true}}
	if b, ok := n.(*mathparse.BlockNode); ok {
		stmts = b.Blocks
	}
	for _, st := range stmts {
		r := s.ctx.Eval(st.Node)
		if err := s.ctx.Err(); err != nil {
			fmt.Fprintln(s.errs, renderError(src, err))
			return false
		}
		if r != nil && st.Visible {
			fmt.Fprintf(s.out, s.verb, r)
		}
	}
	return true
}
