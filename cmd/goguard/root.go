package main

import (
	"fmt"
	"os"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func execute() int {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var output string

	root := &cobra.Command{
		Use:           "goguard",
		Short:         "Operate goGuard rate limits and audit trails",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return validateOutputFormat(output)
		},
	}
	root.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
	root.PersistentFlags().String("config", "", "TOML config file; GOGUARD_* env vars override it")

	root.AddCommand(newLoadtestCmd())
	root.AddCommand(newAuditCmd())
	return root
}

func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

// loadConfig reads --config through the library loader so the CLI sees the same
// layering as an embedding service.
func loadConfig(cmd *cobra.Command) (goGuard.Config, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	return goGuard.LoadConfig(path)
}

type redisFlags struct {
	addr string
}

func (f *redisFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.addr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
}

func (f *redisFlags) resolve() string {
	if f.addr != "" {
		return f.addr
	}
	return os.Getenv("REDIS_ADDR")
}
