package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"parkgate/services/terminal/internal/apperr"
)

// command handles one console line. args excludes the command word.
type command struct {
	usage string
	run   func(ctx context.Context, args []string) error
}

// console is a line-oriented operator prompt.
type console struct {
	in       io.Reader
	out      io.Writer
	prompt   string
	commands map[string]command
}

func newConsole(in io.Reader, out io.Writer, prompt string) *console {
	c := &console{in: in, out: out, prompt: prompt, commands: map[string]command{}}
	c.handle("help", "help", func(context.Context, []string) error {
		c.help()
		return nil
	})
	c.handle("quit", "quit", func(context.Context, []string) error { return errQuit })
	return c
}

func (c *console) handle(name, usage string, run func(ctx context.Context, args []string) error) {
	c.commands[name] = command{usage: usage, run: run}
}

func (c *console) help() {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(c.out, "  %s\n", c.commands[name].usage)
	}
}

// run reads commands until quit, EOF or ctx ends. Command errors are printed and the prompt
// continues.
func (c *console) run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(c.out, c.prompt)
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := c.exec(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				c.printErr(err)
			}
		}
	}
}

func (c *console) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, ok := c.commands[strings.ToLower(fields[0])]
	if !ok {
		return apperr.Validation("console", fmt.Sprintf("unknown command %q, try help", fields[0]))
	}
	return cmd.run(ctx, fields[1:])
}

func (c *console) printErr(err error) {
	kind, _ := apperr.KindOf(err)
	if kind == "" {
		kind = "error"
	}
	fmt.Fprintf(c.out, "! [%s] %v\n", kind, err)
}

func needArgs(usage string, args []string, n int) error {
	if len(args) < n {
		return apperr.Validation("console", "usage: "+usage)
	}
	return nil
}
