// Package repl implements a Read-Eval-Print Loop for Ruby.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/alexisbouchez/rubyvm/compiler"
	"github.com/alexisbouchez/rubyvm/diag"
	"github.com/alexisbouchez/rubyvm/lexer"
	"github.com/alexisbouchez/rubyvm/object"
	"github.com/alexisbouchez/rubyvm/parser"
	"github.com/alexisbouchez/rubyvm/symtab"
	"github.com/alexisbouchez/rubyvm/vm"
)

const (
	PROMPT       = "irb> "
	CONTINUATION = "...  "
)

// Options configures a REPL.
type Options struct {
	Prompt       string
	HistoryFile  string
	MaxCallDepth int
	Logger       *slog.Logger
}

// Session is a persistent top level. Locals, methods and classes defined by
// one input are visible to the next.
type Session struct {
	vm    *vm.VM
	scope *symtab.Scope
	log   *slog.Logger
}

// NewSession creates a session whose program output goes to out.
func NewSession(out io.Writer, opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	vmOpts := []vm.Option{vm.WithOutput(out)}
	if opts.MaxCallDepth > 0 {
		vmOpts = append(vmOpts, vm.WithMaxCallDepth(opts.MaxCallDepth))
	}
	return &Session{
		vm:    vm.New(object.NewRuntime(), vmOpts...),
		scope: symtab.NewScope(symtab.ProgramScope, nil),
		log:   log,
	}
}

// Eval compiles and runs one input. Incomplete input is reported with an
// error for which diag.IsIncomplete holds.
func (s *Session) Eval(ctx context.Context, input string) (object.Value, error) {
	start := time.Now()
	l := lexer.New(input, lexer.WithScope(symtab.NewWithScope(s.scope)))
	program, err := parser.New(l).ParseProgram()
	if err != nil {
		return nil, err
	}
	s.log.Debug("parsed", "file", "(irb)", "phase", "lex+parse", "duration", time.Since(start))

	start = time.Now()
	proto, err := compiler.Compile(program, "(irb)")
	if err != nil {
		return nil, err
	}
	s.log.Debug("lowered", "file", "(irb)", "phase", "lower", "duration", time.Since(start))

	start = time.Now()
	v, err := s.vm.Run(ctx, proto)
	s.log.Debug("ran", "file", "(irb)", "phase", "run", "duration", time.Since(start))
	return v, err
}

// Inspect renders a result for the "=> " line.
func (s *Session) Inspect(v object.Value) string {
	return s.vm.Inspect(v)
}

// Start runs the loop until end of input or exit. Line editing and history
// are used when in is a terminal.
func Start(ctx context.Context, in io.Reader, out io.Writer, opts Options) error {
	if opts.Prompt == "" {
		opts.Prompt = PROMPT
	}
	s := NewSession(out, opts)
	if f, ok := in.(*os.File); ok && f == os.Stdin && isTerminal(f) {
		return s.interactive(ctx, out, opts)
	}
	return s.piped(ctx, in, out, opts)
}

func (s *Session) interactive(ctx context.Context, out io.Writer, opts Options) error {
	state := liner.NewLiner()
	defer state.Close()
	state.SetCtrlCAborts(true)

	if opts.HistoryFile != "" {
		if f, err := os.Open(opts.HistoryFile); err == nil {
			state.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(opts.HistoryFile); err == nil {
				state.WriteHistory(f)
				f.Close()
			} else {
				s.log.Warn("history not saved", "file", opts.HistoryFile, "error", err)
			}
		}()
	}

	fmt.Fprintln(out, "Ruby interpreter (rubyvm)")
	fmt.Fprintln(out, "Type 'exit' to quit")
	fmt.Fprintln(out)

	var buffer strings.Builder
	for {
		prompt := opts.Prompt
		if buffer.Len() > 0 {
			prompt = CONTINUATION
		}
		line, err := state.Prompt(prompt)
		if err != nil {
			switch {
			case errors.Is(err, liner.ErrPromptAborted):
				buffer.Reset()
				continue
			case errors.Is(err, io.EOF):
				fmt.Fprintln(out)
				return nil
			default:
				return fmt.Errorf("read input: %w", err)
			}
		}
		if buffer.Len() == 0 && isExit(line) {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		buffer.WriteString(line)
		buffer.WriteByte('\n')

		src := buffer.String()
		if s.step(ctx, out, src) {
			continue
		}
		buffer.Reset()
		if trimmed := strings.TrimSpace(src); trimmed != "" {
			state.AppendHistory(trimmed)
		}
	}
}

func (s *Session) piped(ctx context.Context, in io.Reader, out io.Writer, opts Options) error {
	scanner := bufio.NewScanner(in)
	var buffer strings.Builder
	for {
		prompt := opts.Prompt
		if buffer.Len() > 0 {
			prompt = CONTINUATION
		}
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			if buffer.Len() > 0 {
				s.report(out, buffer.String(), nil)
			}
			return scanner.Err()
		}
		line := scanner.Text()
		if buffer.Len() == 0 && isExit(line) {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		buffer.WriteString(line)
		buffer.WriteByte('\n')
		if s.step(ctx, out, buffer.String()) {
			continue
		}
		buffer.Reset()
	}
}

// step evaluates src and prints its result. It reports whether src is
// incomplete and more lines are needed.
func (s *Session) step(ctx context.Context, out io.Writer, src string) (more bool) {
	if strings.TrimSpace(src) == "" {
		return false
	}
	v, err := s.Eval(ctx, src)
	if err != nil {
		if diag.IsIncomplete(err) {
			return true
		}
		s.report(out, src, err)
		return false
	}
	fmt.Fprintln(out, "=> "+s.Inspect(v))
	return false
}

// report prints an error for src. A nil err means src ended unfinished.
func (s *Session) report(out io.Writer, src string, err error) {
	if err == nil {
		_, err = s.Eval(context.Background(), src)
		if err == nil {
			return
		}
	}
	var de *diag.Error
	var re *vm.RubyError
	switch {
	case errors.As(err, &de):
		fmt.Fprintln(out, de.Render(src))
	case errors.As(err, &re):
		fmt.Fprintf(out, "%s: %s\n", re.Class, re.Message)
	default:
		fmt.Fprintln(out, "Error: "+err.Error())
	}
}

func isExit(line string) bool {
	switch strings.TrimSpace(line) {
	case "exit", "quit":
		return true
	}
	return false
}
