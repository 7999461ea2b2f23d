// Package main provides the entry point for the Ruby interpreter.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/alexisbouchez/rubyvm/code"
	"github.com/alexisbouchez/rubyvm/compiler"
	"github.com/alexisbouchez/rubyvm/config"
	"github.com/alexisbouchez/rubyvm/diag"
	"github.com/alexisbouchez/rubyvm/lexer"
	"github.com/alexisbouchez/rubyvm/object"
	"github.com/alexisbouchez/rubyvm/parser"
	"github.com/alexisbouchez/rubyvm/repl"
	"github.com/alexisbouchez/rubyvm/source"
	"github.com/alexisbouchez/rubyvm/token"
	"github.com/alexisbouchez/rubyvm/vm"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rubyvm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "settings file (default $RUBYVM_CONFIG or ./rubyvm.yml)")
	dump := fs.String("dump", "", "print tokens, ast, code or yaml instead of running")
	inline := fs.String("e", "", "run the given program text")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: rubyvm [flags] [file.rb]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Find(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 2
	}
	if *dump != "" {
		if !config.ValidDump(*dump) {
			fmt.Fprintf(stderr, "Error: unknown dump mode %q\n", *dump)
			return 2
		}
		cfg.Dump = *dump
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	if cfg.Path != "" {
		log.Debug("config loaded", "file", cfg.Path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var filename, src string
	switch {
	case *inline != "":
		filename, src = "-e", *inline
	case fs.NArg() > 0:
		filename = fs.Arg(0)
		if src, err = source.ReadFile(filename); err != nil {
			fmt.Fprintf(stderr, "Error: could not read file: %s\n", err)
			return 1
		}
	default:
		err := repl.Start(ctx, stdin, stdout, repl.Options{
			Prompt:       cfg.Prompt,
			HistoryFile:  cfg.HistoryFile,
			MaxCallDepth: cfg.MaxCallDepth,
			Logger:       log,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Error: %s\n", err)
			return 1
		}
		return 0
	}

	d := &driver{file: filename, src: src, cfg: cfg, log: log, stdout: stdout, stderr: stderr}
	return d.execute(ctx)
}

type driver struct {
	file   string
	src    string
	cfg    *config.Config
	log    *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func (d *driver) execute(ctx context.Context) int {
	if d.cfg.Dump == "tokens" {
		return d.dumpTokens()
	}

	start := time.Now()
	program, err := parser.New(lexer.New(d.src)).ParseProgram()
	if err != nil {
		return d.fail(err)
	}
	d.log.Debug("parsed", "file", d.file, "phase", "lex+parse", "duration", time.Since(start))
	if d.cfg.Dump == "ast" {
		spew.Fdump(d.stdout, program)
		return 0
	}

	start = time.Now()
	proto, err := compiler.Compile(program, d.file)
	if err != nil {
		return d.fail(err)
	}
	d.log.Debug("lowered", "file", d.file, "phase", "lower", "duration", time.Since(start))
	switch d.cfg.Dump {
	case "code":
		fmt.Fprint(d.stdout, code.Disassemble(proto))
		return 0
	case "yaml":
		out, err := code.DumpYAML(proto)
		if err != nil {
			return d.fail(err)
		}
		fmt.Fprint(d.stdout, out)
		return 0
	}

	start = time.Now()
	m := vm.New(object.NewRuntime(), vm.WithOutput(d.stdout), vm.WithMaxCallDepth(d.cfg.MaxCallDepth))
	_, err = m.Run(ctx, proto)
	d.log.Debug("ran", "file", d.file, "phase", "run", "duration", time.Since(start))
	if err != nil {
		return d.fail(err)
	}
	return 0
}

func (d *driver) dumpTokens() int {
	l := lexer.New(d.src)
	for {
		tok := l.NextToken()
		if tok.Type == token.ILLEGAL {
			if err := l.Err(); err != nil {
				return d.fail(err)
			}
			return d.fail(diag.Errorf(diag.SyntaxError, tok.Line, tok.Column, "invalid character %q", tok.Literal))
		}
		fmt.Fprintf(d.stdout, "%d:%d\t%s\t%q\n", tok.Line, tok.Column, tok.Type, tok.Literal)
		if tok.Type == token.EOF {
			return 0
		}
	}
}

// fail prints err the way the interpreter reports it and returns the exit
// status.
func (d *driver) fail(err error) int {
	var de *diag.Error
	var re *vm.RubyError
	switch {
	case errors.As(err, &de):
		if de.File == "" {
			de.File = d.file
		}
		fmt.Fprintln(d.stderr, de.Render(d.src))
	case errors.As(err, &re):
		if re.Exception == nil || len(re.Exception.Backtrace) == 0 {
			fmt.Fprintf(d.stderr, "%s: %s (%s)\n", d.file, re.Message, re.Class)
			break
		}
		bt := re.Exception.Backtrace
		fmt.Fprintf(d.stderr, "%s: %s (%s)\n", bt[0], re.Message, re.Class)
		for _, line := range bt[1:] {
			fmt.Fprintf(d.stderr, "\tfrom %s\n", line)
		}
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(d.stderr, "Interrupt")
		return 130
	default:
		fmt.Fprintf(d.stderr, "Error: %s\n", err)
	}
	return 1
}
