package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"zasm/pkg/asm"
	"zasm/pkg/source"
	"zasm/pkg/syntax"
	"zasm/pkg/utils"
)

type asmOptions struct {
	output    string
	symbols   bool
	listing   bool
	dump      bool
	maxPasses int
}

var asmFlags asmOptions

// asmCmd represents the asm command
var asmCmd = &cobra.Command{
	Use:   "asm sourceFile",
	Short: "Assemble a source file into a flat binary image",
	Long: `Asm assembles exactly one source file, together with every file it
includes, into a binary image. The image starts at the address of the
first thing emitted and covers every byte up to the highest address
written; gaps are filled with zeros.

Diagnostics are printed to stderr. If there are any, no output file is
written and the command exits with status 1.`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsm(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], asmFlags)
	},
}

func init() {
	rootCmd.AddCommand(asmCmd)
	f := asmCmd.Flags()
	f.StringVarP(&asmFlags.output, "output", "o", "", "output binary file path (default: input with .bin extension)")
	f.BoolVar(&asmFlags.symbols, "symbols", false, "print the symbol table")
	f.BoolVar(&asmFlags.listing, "listing", false, "print the source line of every emitted address")
	f.BoolVar(&asmFlags.dump, "dump", false, "pretty-print the expanded element stream and macro table")
	f.IntVar(&asmFlags.maxPasses, "max-passes", asm.DefaultMaxExpansionPasses, "maximum nesting depth of macro calls")
}

func runAsm(stdout, stderr io.Writer, path string, opts asmOptions) error {
	elems, diags := syntax.ParseFile(path, source.FileLoader{})
	res := asm.Assemble(elems, asm.Options{MaxExpansionPasses: opts.maxPasses})
	diags.Append(res.Diagnostics)

	if opts.dump {
		dump(stdout, res)
	}
	if opts.symbols {
		fmt.Fprint(stdout, res.Symbols)
	}
	if opts.listing {
		printListing(stdout, res.Elements)
	}

	for _, d := range diags {
		fmt.Fprintln(stderr, d)
	}
	if len(diags) > 0 {
		return fmt.Errorf("assembly failed: %d errors", len(diags))
	}

	output := opts.output
	if output == "" {
		output = utils.ReplaceExt(path, ".bin")
	}
	if err := os.WriteFile(output, res.Bytes, 0o644); err != nil {
		return fmt.Errorf("failed to write binary file %q: %w", output, err)
	}
	fmt.Fprintf(stdout, "assembled %d bytes at 0x%04X -> %s\n", len(res.Bytes), res.Origin, output)
	return nil
}

func dump(w io.Writer, res *asm.Result) {
	printer := pp.New()
	printer.SetColoringEnabled(false)
	printer.Fprintln(w, res.Elements)
	printer.Fprintln(w, res.Macros)
}

func printListing(w io.Writer, elems []asm.Element) {
	lines := asm.SourceMap(elems)
	addrs := make([]int, 0, len(lines))
	for addr := range lines {
		addrs = append(addrs, addr)
	}
	sort.Ints(addrs)
	for _, addr := range addrs {
		fmt.Fprintf(w, "%04X  %s\n", addr&0xFFFF, lines[addr])
	}
}
