// Package console reads text commands line by line and prints each
// command's result.
//
//	c := console.New(os.Stdin, os.Stdout, o)
//	o.AddSource(c)
//
// Lines that fail to parse are reported on the output and skipped; they
// never reach the orchestrator.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/tailored-agentic-units/phf/orchestrator"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	yellow = color.New(color.FgYellow)
)

// Parser turns a line into a command. *orchestrator.Orchestrator
// implements it.
type Parser interface {
	ParseCommand(line string, src orchestrator.Source) (*orchestrator.Command, error)
}

type Console struct {
	name   string
	prompt string
	in     io.Reader
	parser Parser

	outMu sync.Mutex
	out   io.Writer

	start   sync.Once
	stop    sync.Once
	done    chan struct{}
	lines   chan string
	readErr error
}

type Option func(*Console)

func WithName(name string) Option {
	return func(c *Console) { c.name = name }
}

// WithPrompt sets the prompt printed before each line is read. An empty
// prompt disables it.
func WithPrompt(prompt string) Option {
	return func(c *Console) { c.prompt = prompt }
}

func New(in io.Reader, out io.Writer, parser Parser, opts ...Option) *Console {
	c := &Console{
		name:   "console",
		prompt: "> ",
		in:     in,
		out:    out,
		parser: parser,
		done:   make(chan struct{}),
		lines:  make(chan string),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Console) Name() string {
	return c.name
}

// Produce returns the next valid command. It returns io.EOF when the input
// is exhausted. Once a call's ctx is done the console is closed and later
// calls return io.EOF as well.
func (c *Console) Produce(ctx context.Context) (*orchestrator.Command, error) {
	c.start.Do(func() { go c.read() })

	for {
		c.printPrompt()

		var (
			raw string
			ok  bool
		)
		select {
		case <-ctx.Done():
			c.stop.Do(func() { close(c.done) })
			return nil, ctx.Err()
		case <-c.done:
			return nil, io.EOF
		case raw, ok = <-c.lines:
		}
		if !ok {
			return nil, c.readErr
		}

		text := strings.TrimSpace(raw)
		switch text {
		case "":
			continue
		case "help":
			c.printf(cyan, "%s\n", orchestrator.Usage)
			continue
		}

		cmd, err := c.parser.ParseCommand(text, c)
		if err != nil {
			c.printf(yellow, "%v\n", err)
			continue
		}
		return cmd, nil
	}
}

// Deliver prints result.
func (c *Console) Deliver(ctx context.Context, result orchestrator.Result) {
	if result.Err != nil {
		c.printf(red, "error: %v\n", result.Err)
		return
	}
	c.printf(green, "%s\n", orchestrator.Describe(result.Value))
}

// read forwards input lines until the reader fails or the console is
// closed. Reads cannot be interrupted, so a closed console's goroutine exits
// after its current read returns.
func (c *Console) read() {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		select {
		case c.lines <- scanner.Text():
		case <-c.done:
			return
		}
	}

	c.readErr = scanner.Err()
	if c.readErr == nil {
		c.readErr = io.EOF
	}
	close(c.lines)
}

func (c *Console) printPrompt() {
	if c.prompt == "" {
		return
	}
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprint(c.out, c.prompt)
}

func (c *Console) printf(col *color.Color, format string, a ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	col.Fprintf(c.out, format, a...)
}
