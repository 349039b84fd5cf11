package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"noeval/interpreter-go/pkg/driver"
	"noeval/interpreter-go/pkg/interpreter"
	"noeval/interpreter-go/pkg/parser"
	"noeval/interpreter-go/pkg/runtime"
)

const (
	historyFileName = ".noeval_history"
	promptMain      = "noeval> "
	promptCont      = "   ...> "
	replBanner      = "noeval repl - Ctrl+C cancels input, Ctrl+D exits. Type :help for commands."
	replHelp        = `
Commands:
  :help            Show this help
  :quit            Exit the repl
  :load FILE       Evaluate a file in the current session
  :env             List bound symbols, innermost scope first
  :gc              Run a collection and report heap statistics
  :stack           Show the deepest evaluation stack since the last input
  :debug [CAT]     Toggle a debug category ("all", "off", or a name)
`
)

func runRepl(args []string) int {
	opts, rest, err := parseSessionFlags("repl", args)
	if err != nil {
		return 1
	}
	if len(rest) != 0 {
		printUsage()
		return 1
	}

	loader, err := newSession("", opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer loader.Close()

	fmt.Println(replBanner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFileName)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(symbolCompleter(loader))

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	in := loader.Interpreter()
	heap := in.GlobalEnvironment().Heap()

	for {
		code, ok := readCompleteInput(ln)
		if !ok {
			fmt.Println()
			break
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if quit := handleReplCommand(loader, trimmed); quit {
				break
			}
			ln.AppendHistory(trimmed)
			continue
		}

		in.ResetMaxStackDepth()
		result, err := loader.LoadSource(code, "repl")
		if err != nil {
			fmt.Println(err)
		} else {
			fmt.Println(runtime.Render(result))
		}
		heap.Collect()
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}

	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
	return 0
}

// readCompleteInput accumulates lines until the reader stops complaining
// about unterminated input. A false result means end of session.
func readCompleteInput(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C: drop the partial input, stay in the session.
			return "", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		code := b.String()
		if strings.HasPrefix(strings.TrimSpace(code), ":") {
			return code, true
		}
		if _, err := parser.ParseAll(code); err != nil && isIncompleteInput(err) {
			continue
		}
		return code, true
	}
}

func isIncompleteInput(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unterminated list") ||
		strings.Contains(msg, "unterminated string") ||
		strings.Contains(msg, "unterminated #skip")
}

func symbolCompleter(loader *driver.Loader) liner.Completer {
	return func(line string) []string {
		start := strings.LastIndexAny(line, " \t()") + 1
		prefix := line[start:]
		if prefix == "" {
			return nil
		}
		var out []string
		for _, sym := range loader.Interpreter().GlobalEnvironment().GetAllSymbols() {
			if strings.HasPrefix(sym, prefix) {
				out = append(out, line[:start]+sym)
			}
		}
		sort.Strings(out)
		return out
	}
}

func handleReplCommand(loader *driver.Loader, line string) (quit bool) {
	in := loader.Interpreter()
	fields := strings.Fields(line)
	switch fields[0] {
	case ":help":
		fmt.Print(replHelp)
	case ":quit", ":exit":
		return true
	case ":load":
		if len(fields) != 2 {
			fmt.Println("usage: :load FILE")
			return false
		}
		result, err := loader.LoadFile(fields[1])
		if err != nil {
			fmt.Println(err)
			return false
		}
		fmt.Println(runtime.Render(result))
	case ":env":
		for _, sym := range in.GlobalEnvironment().GetAllSymbols() {
			fmt.Println(sym)
		}
	case ":gc":
		heap := in.GlobalEnvironment().Heap()
		freed := heap.Collect()
		constructed, collected, live, rooted := heap.Stats()
		fmt.Printf("freed %d; constructed %d, collected %d, live %d, rooted %d\n",
			freed, constructed, collected, live, rooted)
	case ":stack":
		fmt.Printf("max evaluation depth: %d\n", in.MaxStackDepth())
	case ":debug":
		handleDebugCommand(loader, fields[1:])
	default:
		fmt.Println("unknown command; :help lists commands")
	}
	return false
}

func handleDebugCommand(loader *driver.Loader, args []string) {
	debug := loader.Interpreter().Debug()
	if len(args) == 0 {
		enabled := debug.Enabled()
		if len(enabled) == 0 {
			fmt.Println("debug: nothing enabled; categories:", strings.Join(interpreter.Categories(), ", "))
			return
		}
		fmt.Println("debug:", strings.Join(enabled, ", "))
		return
	}
	switch args[0] {
	case "all":
		debug.EnableAll()
	case "off":
		debug.DisableAll()
	default:
		if debug.IsEnabled(args[0]) {
			if err := debug.Disable(args[0]); err != nil {
				fmt.Println(err)
			}
		} else if err := debug.Enable(args[0]); err != nil {
			fmt.Println(err)
		}
	}
}
