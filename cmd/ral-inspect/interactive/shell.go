// Package interactive provides the command shell of ral-inspect.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/vkochnev/ral/pkg/inspect"
	"github.com/vkochnev/ral/pkg/svd"
)

var commands = []string{
	"help", "ls", "show", "find", "at", "decode", "encode", "tree", "overlaps", "quit",
}

// Shell executes inspection commands against one resolved device.
type Shell struct {
	inspector *inspect.Inspector
	formatter *inspect.Formatter
	out       io.Writer
}

// New creates a shell writing to out.
func New(inspector *inspect.Inspector, out io.Writer) *Shell {
	f := inspect.NewFormatter()
	f.ShowAddresses = true
	f.ShowMetadata = true
	return &Shell{
		inspector: inspector,
		formatter: f,
		out:       out,
	}
}

// Run reads commands with line editing and path completion until quit, EOF
// or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.inspector.Device().Name + "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    &completer{names: s.inspector.Names()},
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	s.out = rl.Stdout()
	fmt.Fprintf(s.out, "%s: %d nodes. Type 'help' for commands.\n", s.inspector.Device().Name, s.inspector.Names().Len())

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			return nil
		}
		if s.Exec(line) {
			return nil
		}
	}
}

// Exec runs one command line and reports whether the shell should exit.
func (s *Shell) Exec(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()
	case "ls", "l":
		s.cmdList(args)
	case "show", "s":
		s.cmdShow(args)
	case "find", "f":
		s.cmdFind(args)
	case "at":
		s.cmdAt(args)
	case "decode", "d":
		s.cmdDecode(args)
	case "encode", "e":
		s.cmdEncode(args)
	case "tree":
		fmt.Fprint(s.out, s.inspector.FormatDeviceTree(s.formatter))
	case "overlaps":
		s.cmdOverlaps()
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `Commands:
  ls [path]                         - List peripherals, or the children of path
  show <path|address>               - Show a peripheral, cluster, register or field
  find <text>                       - Find nodes whose name contains text
  at <address>                      - Show the register covering an address
  decode <register> <value>         - Split a register value into fields
  encode <register> [from=<value>] field=value...
                                    - Compute the word written after setting fields
  tree                              - Show the whole device
  overlaps                          - List registers sharing addresses
  help                              - Show this help
  quit                              - Exit

Paths:
  gpioa/moder/mode0 or gpioa.moder.mode0. Addresses: 0x48000000, #1010, 1024.`)
}

func (s *Shell) path(arg string) (*inspect.Path, bool) {
	p, err := inspect.ParsePath(arg)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid path: %v\n", err)
		return nil, false
	}
	return p, true
}

func (s *Shell) cmdList(args []string) {
	prefix := ""
	if len(args) > 0 {
		p, ok := s.path(args[0])
		if !ok {
			return
		}
		if !s.inspector.Names().Has(p.String()) {
			fmt.Fprintf(s.out, "Not found: %s\n", p)
			return
		}
		prefix = p.String() + "/"
	}
	children := s.inspector.Names().Complete(prefix)
	if len(children) == 0 {
		fmt.Fprintln(s.out, "(no children)")
		return
	}
	for _, c := range children {
		fmt.Fprintln(s.out, c)
	}
}

func (s *Shell) cmdShow(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: show <path|address>")
		return
	}
	p, ok := s.path(args[0])
	if !ok {
		return
	}
	info, err := s.inspector.Inspect(p)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprint(s.out, s.formatter.FormatNode(info))
}

func (s *Shell) cmdFind(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: find <text>")
		return
	}
	matches := s.inspector.Names().Find(args[0])
	if len(matches) == 0 {
		fmt.Fprintln(s.out, "No matches")
		return
	}
	for _, m := range matches {
		fmt.Fprintln(s.out, m)
	}
}

func (s *Shell) cmdAt(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: at <address>")
		return
	}
	addr, err := svd.ParseNumber(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid address: %v\n", err)
		return
	}
	e, ok := s.inspector.AtAddress(addr)
	if !ok {
		fmt.Fprintf(s.out, "No register at %#x\n", addr)
		return
	}
	fmt.Fprintln(s.out, s.formatter.FormatEntry(e))
}

func (s *Shell) cmdDecode(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(s.out, "Usage: decode <register> <value>")
		return
	}
	p, ok := s.path(args[0])
	if !ok {
		return
	}
	word, err := svd.ParseNumber(args[1])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid value: %v\n", err)
		return
	}
	values, err := s.inspector.Decode(p, word)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprint(s.out, s.formatter.FormatDecoded(values))
}

func (s *Shell) cmdEncode(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: encode <register> [from=<value>] field=value...")
		return
	}
	p, ok := s.path(args[0])
	if !ok {
		return
	}

	var start *uint64
	values := make(map[string]uint64)
	for _, arg := range args[1:] {
		name, raw, found := strings.Cut(arg, "=")
		if !found || name == "" {
			fmt.Fprintf(s.out, "Invalid assignment: %s (expected field=value)\n", arg)
			return
		}
		v, err := svd.ParseNumber(raw)
		if err != nil {
			fmt.Fprintf(s.out, "Invalid value for %s: %v\n", name, err)
			return
		}
		if name == "from" {
			start = &v
			continue
		}
		values[name] = v
	}

	info, err := s.inspector.Inspect(p)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	word, err := s.inspector.Encode(p, start, values)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	size := uint32(64)
	if info.Register != nil {
		size = info.Register.Size
	}
	fmt.Fprintf(s.out, "%s (%s)\n", inspect.FormatWord(word, size), inspect.FormatBinary(word, size))
}

func (s *Shell) cmdOverlaps() {
	overlaps := s.inspector.Overlaps()
	if len(overlaps) == 0 {
		fmt.Fprintln(s.out, "No overlapping registers")
		return
	}
	for _, o := range overlaps {
		fmt.Fprintln(s.out, o)
	}
}

// completer completes command names and node paths.
type completer struct {
	names *inspect.Names
}

// Do implements readline.AutoCompleter.
func (c *completer) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	start := strings.LastIndexByte(text, ' ') + 1
	word := text[start:]

	var candidates []string
	if start == 0 {
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, strings.ToLower(word)) {
				candidates = append(candidates, cmd+" ")
			}
		}
	} else {
		candidates = c.names.Complete(strings.ReplaceAll(word, ".", "/"))
	}

	out := make([][]rune, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, []rune(cand[len(word):]))
	}
	return out, len([]rune(word))
}
