package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/sinks/sqlaudit"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type auditStoreFlags struct {
	dialect string
	dsn     string
}

func (f *auditStoreFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.dialect, "dialect", string(sqlaudit.DialectSQLite), "database dialect (sqlite, postgres)")
	fs.StringVar(&f.dsn, "dsn", "goguard-audit.db", "database DSN")
}

func (f *auditStoreFlags) parse() (sqlaudit.Dialect, error) {
	switch d := sqlaudit.Dialect(strings.ToLower(f.dialect)); d {
	case sqlaudit.DialectSQLite, sqlaudit.DialectPostgres:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported dialect %q: use 'sqlite' or 'postgres'", f.dialect)
	}
}

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect persisted audit events",
	}
	cmd.AddCommand(newAuditListCmd())
	cmd.AddCommand(newAuditPurgeCmd())
	return cmd
}

func newAuditListCmd() *cobra.Command {
	var (
		store     auditStoreFlags
		principal string
		action    string
		since     time.Duration
		limit     uint64
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit events, newest first",
		Example: `  goguard audit list --dsn audit.db
  goguard audit list --principal user-1 --action mfa_enable --since 24h
  goguard audit list --dialect postgres --dsn postgres://localhost/app -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dialect, err := store.parse()
			if err != nil {
				return err
			}
			filter := sqlaudit.Filter{PrincipalID: principal, Limit: limit}
			if action != "" {
				kind, ok := goGuard.ParseActionKind(action)
				if !ok {
					return fmt.Errorf("unknown action %q", action)
				}
				filter.Action = kind
			}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}

			s, err := sqlaudit.Open(cmd.Context(), dialect, store.dsn)
			if err != nil {
				return err
			}
			defer s.Close()

			events, err := s.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), events)
			}
			return printEvents(cmd.OutOrStdout(), events)
		},
	}

	fs := cmd.Flags()
	store.register(fs)
	fs.StringVar(&principal, "principal", "", "only events for this principal ID")
	fs.StringVar(&action, "action", "", "only events of this action kind")
	fs.DurationVar(&since, "since", 0, "only events newer than this age")
	fs.Uint64Var(&limit, "limit", 100, "maximum number of events")
	return cmd
}

func newAuditPurgeCmd() *cobra.Command {
	var (
		store     auditStoreFlags
		olderThan time.Duration
	)

	cmd := &cobra.Command{
		Use:     "purge",
		Short:   "Delete audit events older than a given age",
		Example: `  goguard audit purge --dsn audit.db --older-than 720h`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be > 0")
			}
			dialect, err := store.parse()
			if err != nil {
				return err
			}
			s, err := sqlaudit.Open(cmd.Context(), dialect, store.dsn)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.Purge(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]int64{"purged": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d events\n", n)
			return nil
		},
	}

	store.register(cmd.Flags())
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "purge events older than this age")
	return cmd
}

func printEvents(w io.Writer, events []goGuard.AuditEvent) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tPRINCIPAL\tACTION\tRESOURCE\tSUCCESS\tERROR")
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
			ev.Timestamp.Format(time.RFC3339),
			ev.PrincipalID,
			ev.Action,
			ev.Resource,
			ev.Success,
			ev.Error,
		)
	}
	return tw.Flush()
}
