// Package cmd holds the zasm command line.
package cmd

import (
	"flag"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose bool
	trace   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "zasm",
	Short: "A macro assembler for the Z80",
	Long: `Zasm assembles Z80 source into a flat binary image.

Sources may define macros with private labels, open local label scopes
with .block/.endblock, and pull in other files with include. Symbols
may be used before they are defined; every problem found is reported,
not just the first one.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return configureLogging(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It is called once by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// glog registers its flags on the standard flag set.
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log a summary of every pass")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "log every symbol and element as it is resolved")
}

func configureLogging(cmd *cobra.Command) error {
	// Marks the go flag set parsed so glog does not complain; cobra already
	// filled in the values.
	if err := flag.CommandLine.Parse(nil); err != nil {
		return err
	}
	if !cmd.Flags().Changed("log_dir") {
		if err := flag.Set("logtostderr", "true"); err != nil {
			return err
		}
	}
	switch {
	case trace:
		return flag.Set("v", "2")
	case verbose:
		return flag.Set("v", "1")
	}
	return nil
}
