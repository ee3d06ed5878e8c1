package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/kr/pretty"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"

	webppl "github.com/schettino/webppl"
)

const (
	appName     = "webppl"
	version     = "0.3.0"
	historyFile = ".webppl_history"
	promptMain  = "webppl> "
)

func red(s string) string {
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return "\x1b[31m" + s + "\x1b[0m"
	}
	return s
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "compile":
		os.Exit(cmdCompile(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "version":
		fmt.Println(version)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`webppl %s

Usage:
  %s run [-config <file>] [-seed <n>] <file.wppl>   Compile and run a program.
  %s compile [-config <file>] [-dump] <file.wppl>   Compile and print the final code.
  %s repl                                           Start the REPL.
  %s version                                        Print the version.

`, version, appName, appName, appName, appName)
}

// loadOpts resolves options: an explicit -config path wins, otherwise
// the nearest webppl.yaml up from the working directory, otherwise
// defaults.
func loadOpts(path string) (webppl.Options, error) {
	if path == "" {
		found, err := webppl.FindOptions(".")
		if err != nil || found == "" {
			return webppl.Options{}, err
		}
		path = found
	}
	return webppl.LoadOptions(path)
}

func readProgram(args []string) (string, string, int) {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s run|compile [flags] <file.wppl>\n", appName)
		return "", "", 2
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, args[0], err)
		return "", "", 1
	}
	return string(src), args[0], 0
}

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to webppl.yaml")
	seed := fs.Int64("seed", 0, "random seed (0 means time-based)")
	fs.Parse(args)

	src, _, code := readProgram(fs.Args())
	if code != 0 {
		return code
	}
	opts, err := loadOpts(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}

	unit, err := webppl.CompileString(src, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rt := webppl.NewRuntime()
	store := webppl.NewStore().WithHandler(webppl.DefaultHandler(rand.New(rand.NewSource(*seed))))
	v, err := rt.Run(unit, store)
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}
	fmt.Println(webppl.FormatValue(v))
	return 0
}

func cmdCompile(args []string) int {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	configPath := fs.String("config", "", "path to webppl.yaml")
	dump := fs.Bool("dump", false, "print the tree after every stage")
	dumpAST := fs.Bool("dump-ast", false, "print raw AST nodes instead of source text")
	fs.Parse(args)

	src, _, code := readProgram(fs.Args())
	if code != 0 {
		return code
	}
	opts, err := loadOpts(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}
	if *dumpAST {
		*dump = true
	}
	if *dump {
		opts.Trace = func(stage string, root webppl.Expr) {
			fmt.Printf("== %s ==\n", stage)
			if *dumpAST {
				pretty.Println(root)
			} else {
				fmt.Println(webppl.FormatExpr(root))
			}
		}
	}

	unit, err := webppl.CompileString(src, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}
	if !*dump {
		fmt.Println(webppl.FormatExpr(unit.Main))
	}
	return 0
}

func cmdRepl(args []string) int {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	configPath := fs.String("config", "", "path to webppl.yaml")
	fs.Parse(args)

	opts, err := loadOpts(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}

	fmt.Printf("webppl %s REPL\nCtrl+C cancels input, Ctrl+D exits. Type :quit to exit.\n", version)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	rt := webppl.NewRuntime()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		line, err := ln.Prompt(promptMain)
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return 0
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			return 1
		}

		code := strings.TrimSpace(line)
		if code == "" {
			continue
		}
		if strings.HasPrefix(code, ":") {
			switch strings.ToLower(code) {
			case ":quit":
				return 0
			default:
				fmt.Println("unknown command. Type :quit to exit.")
			}
			continue
		}
		if !strings.HasSuffix(code, ";") && !strings.HasSuffix(code, "}") {
			code += ";"
		}

		unit, err := webppl.CompileString(code, opts)
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			continue
		}
		store := webppl.NewStore().WithHandler(webppl.DefaultHandler(rng))
		v, err := rt.Run(unit, store)
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			continue
		}
		fmt.Println(webppl.FormatValue(v))
		ln.AppendHistory(line)
	}
}
