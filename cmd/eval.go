package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"zasm/pkg/asm"
	"zasm/pkg/expr"
	"zasm/pkg/source"
	"zasm/pkg/syntax"
)

const historyFile = ".zasm_history"

var evalExprs []string

// evalCmd represents the eval command
var evalCmd = &cobra.Command{
	Use:   "eval [sourceFile]",
	Short: "Evaluate expressions against the symbols of a program",
	Long: `Eval assembles sourceFile, if one is given, and evaluates expressions
with its global symbols in scope. Each -e flag evaluates one expression
and exits; without -e an interactive prompt is started.

At the prompt, :syms lists the symbol table and :q exits.`,

	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbols := asm.NewSymbolTable()
		if len(args) == 1 {
			elems, diags := syntax.ParseFile(args[0], source.FileLoader{})
			res := asm.Assemble(elems, asm.Options{})
			diags.Append(res.Diagnostics)
			for _, d := range diags {
				fmt.Fprintln(cmd.ErrOrStderr(), d)
			}
			symbols = res.Symbols
		}
		if len(evalExprs) > 0 {
			return evalAll(cmd.OutOrStdout(), symbols, evalExprs)
		}
		return repl(cmd.OutOrStdout(), symbols)
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().StringArrayVarP(&evalExprs, "expr", "e", nil, "expression to evaluate (repeatable)")
}

// symbolLookup resolves identifiers to the global symbols of a program.
func symbolLookup(symbols *asm.SymbolTable) expr.Lookup {
	return func(name string) (expr.Value, error) {
		v, ok := symbols.Get(name)
		if !ok {
			return expr.Value{}, fmt.Errorf("undefined symbol %q", name)
		}
		switch v.Kind {
		case asm.Number:
			return expr.Number(v.Num), nil
		case asm.Str:
			return expr.String(v.Str), nil
		}
		return expr.Value{}, fmt.Errorf("symbol %q is %s", name, v.Kind)
	}
}

func evalAll(w io.Writer, symbols *asm.SymbolTable, exprs []string) error {
	lookup := symbolLookup(symbols)
	var errs []error
	for _, src := range exprs {
		v, err := expr.EvalString(src, lookup)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src, err))
			continue
		}
		fmt.Fprintln(w, formatValue(v))
	}
	return errors.Join(errs...)
}

func formatValue(v expr.Value) string {
	if v.Kind == expr.KindString {
		return v.String()
	}
	return fmt.Sprintf("%d (0x%04X)", v.Num, v.Num&0xFFFF)
}

func repl(w io.Writer, symbols *asm.SymbolTable) error {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	lookup := symbolLookup(symbols)
	for {
		line, err := ln.Prompt("zasm> ")
		if err != nil {
			// io.EOF or liner.ErrPromptAborted
			fmt.Fprintln(w)
			break
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case ":q", ":quit":
			saveHistory(ln, histPath)
			return nil
		case ":syms":
			fmt.Fprint(w, symbols)
			continue
		}
		ln.AppendHistory(line)

		v, err := expr.EvalString(line, lookup)
		if err != nil {
			fmt.Fprintln(w, "error:", err)
			continue
		}
		fmt.Fprintln(w, formatValue(v))
	}
	saveHistory(ln, histPath)
	return nil
}

// saveHistory is best-effort.
func saveHistory(ln *liner.State, path string) {
	if f, err := os.Create(path); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
}
