// Package cli is the command line front end: it imports glossary files
// and lists, adds and edits entries directly against the database.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/glossary/internal/config"
	"github.com/JonMunkholm/glossary/internal/core"
	"github.com/JonMunkholm/glossary/internal/logging"
	"github.com/JonMunkholm/glossary/internal/store"
	"github.com/JonMunkholm/glossary/internal/store/memory"
)

// Flags holds the global command line options.
type Flags struct {
	SQLitePath  string
	DatabaseURL string
	User        string
	LogLevel    string
	Output      string
	DryRun      bool

	// Getenv backs configuration lookups; os.Getenv when nil.
	Getenv config.Lookup
}

// NewFlags returns flags with defaults taken from the environment.
func NewFlags() *Flags {
	return &Flags{
		User:     os.Getenv("USER"),
		LogLevel: "warn",
		Output:   "table",
	}
}

// CreateRootCommand builds the glossary command tree.
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "glossary",
		Short: "Manage per-project translation glossaries",
		Long: `glossary imports terminology files into a project's dictionary and
lets you list, add and edit entries.

Examples:
  glossary import web de terms.csv --method overwrite
  glossary list web de --letter k
  glossary add web de "cat" "Katze"
  glossary edit web de 12 "cat" "Kater"`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), flags.LogLevel, "text"))
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.SQLitePath, "sqlite", "", "SQLite database file (overrides SQLITE_PATH)")
	pf.StringVar(&flags.DatabaseURL, "database-url", "", "PostgreSQL URL (overrides DATABASE_URL)")
	pf.StringVarP(&flags.User, "user", "u", flags.User, "user recorded in the change log")
	pf.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "log level: debug, info, warn or error")
	pf.StringVarP(&flags.Output, "output", "o", flags.Output, "output format: table, json or yaml")
	pf.BoolVar(&flags.DryRun, "dry-run", false, "use a throwaway in-memory store")

	rootCmd.AddCommand(
		importCommand(flags),
		listCommand(flags),
		addCommand(flags),
		editCommand(flags),
		changesCommand(flags),
		formatsCommand(flags),
	)
	return rootCmd
}

// loadConfig reads the environment with the flag overrides applied.
func (f *Flags) loadConfig() (*config.Config, error) {
	getenv := f.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	return config.LoadFrom(func(key string) string {
		switch key {
		case "DATABASE_URL", "DB_URL":
			if f.DryRun || f.SQLitePath != "" {
				return ""
			}
			if f.DatabaseURL != "" {
				return f.DatabaseURL
			}
		case "SQLITE_PATH":
			if f.DryRun {
				return ":memory:"
			}
			if f.DatabaseURL != "" {
				return ""
			}
			if f.SQLitePath != "" {
				return f.SQLitePath
			}
		}
		return getenv(key)
	})
}

// openService builds the service over the configured store. The returned
// func closes the store.
func (f *Flags) openService(ctx context.Context) (*core.Service, func(), error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	var (
		st      core.Store
		closeFn = func() {}
	)
	if f.DryRun {
		st = memory.New()
	} else {
		st, closeFn, err = store.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
	}

	svc := core.NewService(st, core.Config{
		MaxFileSize:          cfg.Upload.MaxFileSize,
		MaxConcurrentUploads: cfg.Upload.MaxConcurrent,
		MaxUploadWait:        cfg.Upload.MaxWaitTime,
		UploadTimeout:        cfg.Upload.Timeout,
		DefaultPolicy:        core.Policy(cfg.Glossary.DefaultPolicy),
	})
	return svc, closeFn, nil
}

func (f *Flags) actor() (core.Actor, error) {
	if f.User == "" {
		return core.Actor{}, fmt.Errorf("%w: pass --user", core.ErrNoActor)
	}
	return core.Actor{ID: f.User}, nil
}

func scopeArgs(args []string) core.Scope {
	return core.Scope{Project: args[0], Language: args[1]}
}

func importCommand(flags *Flags) *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "import <project> <language> <file>",
		Short: "Import a CSV, JSON, YAML or PO glossary file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := flags.actor()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[2])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[2], err)
			}

			svc, done, err := flags.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			result, err := svc.Upload(cmd.Context(), actor, scopeArgs(args), filepath.Base(args[2]), data, core.Policy(method))
			if err != nil {
				return err
			}
			return flags.print(cmd.OutOrStdout(), result, func(w io.Writer) {
				fmt.Fprintf(w, "imported %s as %s into %s: %d applied, %d skipped",
					result.FileName, result.Format, result.Scope, result.Applied, result.Skipped)
				if result.Retried {
					fmt.Fprint(w, " (read as source,target)")
				}
				fmt.Fprintln(w)
				s := result.Stats
				fmt.Fprintf(w, "unchanged %d, conflicts %d, discarded %d\n", s.Unchanged, s.Conflicts, s.Discarded)
			})
		},
	}
	cmd.Flags().StringVarP(&method, "method", "m", "", "conflict policy: add, overwrite or skip")
	return cmd
}

func listCommand(flags *Flags) *cobra.Command {
	var filter core.ListFilter
	cmd := &cobra.Command{
		Use:   "list <project> <language>",
		Short: "List dictionary entries",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := flags.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			entries, err := svc.List(cmd.Context(), scopeArgs(args), filter)
			if err != nil {
				return err
			}
			return flags.print(cmd.OutOrStdout(), entries, func(w io.Writer) {
				printEntries(w, entries...)
			})
		},
	}
	cmd.Flags().StringVarP(&filter.Search, "search", "s", "", "substring of source or target")
	cmd.Flags().StringVarP(&filter.Letter, "letter", "l", "", "first letter of the source")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum entries, 0 for all")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "entries to skip")
	return cmd
}

func addCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "add <project> <language> <source> <target>",
		Short: "Add an entry",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := flags.actor()
			if err != nil {
				return err
			}
			svc, done, err := flags.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			e, err := svc.Create(cmd.Context(), actor, scopeArgs(args), args[2], args[3])
			if err != nil {
				return err
			}
			return flags.print(cmd.OutOrStdout(), e, func(w io.Writer) {
				printEntries(w, e)
			})
		},
	}
}

func editCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <project> <language> <id> <source> <target>",
		Short: "Edit an entry and record the change",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := flags.actor()
			if err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entry id %q", args[2])
			}
			svc, done, err := flags.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			e, err := svc.Edit(cmd.Context(), actor, scopeArgs(args), id, args[3], args[4])
			if err != nil {
				return err
			}
			return flags.print(cmd.OutOrStdout(), e, func(w io.Writer) {
				printEntries(w, e)
			})
		},
	}
}

func changesCommand(flags *Flags) *cobra.Command {
	var (
		filter core.ChangeFilter
		action string
	)
	cmd := &cobra.Command{
		Use:   "changes [project language]",
		Short: "Show the change log, newest first",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts 0 or 2 args, received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				filter.Project, filter.Language = args[0], args[1]
			}
			filter.Action = core.ChangeAction(action)

			svc, done, err := flags.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			changes, err := svc.Changes(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return flags.print(cmd.OutOrStdout(), changes, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TIME\tACTION\tENTRY\tSCOPE\tUSER\tTARGET")
				for _, c := range changes {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s/%s\t%s\t%s\n",
						c.CreatedAt.Format("2006-01-02 15:04:05"), c.Action, c.EntryID,
						c.Project, c.Language, c.UserID, c.Target)
				}
				_ = tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "only this action: dictionary_new, dictionary_edit or dictionary_upload")
	cmd.Flags().Int64Var(&filter.EntryID, "entry", 0, "only changes of this entry")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "maximum changes")
	return cmd
}

func formatsCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the supported import formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := core.NewService(memory.New(), core.Config{}).Formats()
			return flags.print(cmd.OutOrStdout(), formats, func(w io.Writer) {
				for _, f := range formats {
					fmt.Fprintln(w, f)
				}
			})
		},
	}
}

func printEntries(w io.Writer, entries ...core.Entry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSOURCE\tTARGET")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", e.ID, e.Source, e.Target)
	}
	_ = tw.Flush()
}

// print writes v in the selected output format; table uses the callback.
func (f *Flags) print(w io.Writer, v any, table func(io.Writer)) error {
	switch f.Output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		table(w)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", f.Output)
	}
}
