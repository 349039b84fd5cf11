package main

import (
	"fmt"
	"os"
)

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: noeval [command] [arguments]

Commands:
  run FILE       Evaluate a source file (default when FILE is given bare)
  repl           Start an interactive session (default with no arguments)
  deps install   Resolve package.yml dependencies and write package.lock
  version        Print the tool version

Options for run and repl:
  -debug CATS    Enable debug categories (comma separated, or "all")
  -no-lib        Skip loading the standard library

Debug categories: eval, env_lookup, env_binding, builtin, gc, parse, library.

Environment:
  NOEVAL_PATH    Extra library search directories (list separator delimited)
  NOEVAL_HOME    Installation prefix; NOEVAL_HOME/lib joins the search path
`)
}
