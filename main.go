package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/manishrjain/keys"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	configDir string
	dbPath    string
	sheetName string
	debug     bool
)

// env is what every command needs once flags are parsed.
type env struct {
	ctx   context.Context
	conf  configs
	store *boltStore
}

func setup(cmd *cobra.Command) (*env, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "unable to create directory: %v", configDir)
	}
	conf, err := loadConfig(configDir)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		conf.DB = dbPath
	}
	if cmd.Flags().Changed("sheet") {
		conf.Sheet = sheetName
	}

	log := newLogger(debug)
	ctx := withLogger(cmd.Context(), log)
	store, err := openStore(conf.DB)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("conf", configDir).Str("db", conf.DB).Msg("Loaded configuration")
	return &env{ctx: ctx, conf: conf, store: store}, nil
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		loggerFrom(e.ctx).Warn().Err(err).Msg("Unable to close store")
	}
}

func (e *env) suggester() Suggester {
	log := loggerFrom(e.ctx)
	hist, err := e.store.History(e.ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Unable to load fill history")
	}
	chain := chainSuggester{newBayesSuggester(hist)}
	if e.conf.AI.Enabled {
		cs, err := newClaudeSuggester(e.conf.AI.APIKey, e.conf.AI.Model)
		if err != nil {
			log.Warn().Err(err).Msg("AI suggestions disabled")
		} else {
			chain = append(chain, cs)
		}
	}
	return chain
}

func newFillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fill <workbook>",
		Short: "Fill blank remark cells with the codes found in each summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			book, err := openWorkbook(args[0], e.conf.Sheet)
			if err != nil {
				return err
			}
			keyfile := filepath.Join(configDir, "shortcuts.yaml")
			short := keys.ParseConfig(keyfile)
			defer short.Persist(keyfile)

			term := newTerminal(os.Stdin, os.Stdout, short)
			term.raw, term.cooked, term.clear = ttyModes(loggerFrom(e.ctx), os.Stdout)
			defer term.cooked()
			term.raw()

			p := NewPipeline(book, e.store, e.store, term,
				WithLayout(e.conf.Header),
				WithSuggester(e.suggester()),
				WithHistory(e.store))
			out, err := p.AutoFill(e.ctx)
			term.cooked()
			fmt.Println()
			banner(os.Stdout, color.BgGreen, "UPDATED", "%d remark cells written to %s", out.Updated, args[0])
			if out.Aborted {
				banner(os.Stdout, color.BgYellow, "ABORTED", "rows after the abort were left untouched")
			}
			return err
		},
	}
}

func newSplitCmd() *cobra.Command {
	var dest string
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "split <workbook>",
		Short: "Split every attributed row across its codes into a per-code report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			book, err := openWorkbook(args[0], e.conf.Sheet)
			if err != nil {
				return err
			}
			if dest == "" {
				dest = defaultReportPath(args[0])
			}
			p := NewPipeline(book, e.store, e.store, nil, WithLayout(e.conf.Header))
			res, err := p.SplitAndRender(e.ctx, excelReport{sheet: e.conf.Report.Sheet, overwrite: overwrite}, dest)
			if err != nil {
				return err
			}
			banner(os.Stdout, color.BgGreen, "SPLIT", "%d entries, debit %d, credit %d", len(res.Entries), res.TotalDebit, res.TotalCredit)
			banner(os.Stdout, color.BgBlue, "REPORT", "%s", dest)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dest, "output", "o", "", "Report file (default: <workbook>_separate_ledger.xlsx next to the workbook)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the report sheet if the output file already has it")
	return cmd
}

func newCodesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codes",
		Short: "Manage known codes",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List known codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			known, err := e.store.KnownCodes(e.ctx)
			if err != nil {
				return err
			}
			for _, c := range sortedCodes(known) {
				fmt.Println(c)
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "add CODE...",
		Short: "Add codes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			return e.store.EnsureCodes(e.ctx, args)
		},
	}, &cobra.Command{
		Use:   "remove CODE...",
		Short: "Remove codes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			n, err := e.store.RemoveCodes(e.ctx, args)
			if err != nil {
				return err
			}
			fmt.Printf("%d codes removed.\n", n)
			return nil
		},
	})
	return cmd
}

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage replacement rules (one code standing for others)",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List replacement rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			rules, err := e.store.Rules(e.ctx)
			if err != nil {
				return err
			}
			sources := make([]string, 0, len(rules))
			for src := range rules {
				sources = append(sources, src)
			}
			sort.Strings(sources)
			for _, src := range sources {
				fmt.Printf("%s -> %s\n", src, strings.Join(rules[src], ", "))
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "set SOURCE TARGETS",
		Short: "Replace SOURCE with the comma separated TARGETS",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			targets := parseTargets(args[1])
			if err := e.store.SetRule(e.ctx, args[0], targets); err != nil {
				return err
			}
			return e.store.EnsureCodes(e.ctx, append([]string{args[0]}, targets...))
		},
	}, &cobra.Command{
		Use:   "delete SOURCE",
		Short: "Delete the rule for SOURCE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			found, err := e.store.DeleteRule(e.ctx, args[0])
			if err != nil {
				return err
			}
			if !found {
				return errors.Errorf("no rule for %q", args[0])
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "import FILE",
		Short: "Import rules from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			n, err := importRules(e.ctx, e.store, args[0])
			fmt.Printf("%d rules imported.\n", n)
			return err
		},
	}, &cobra.Command{
		Use:   "export FILE",
		Short: "Export rules to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			n, err := exportRules(e.ctx, e.store, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%d rules written to %s.\n", n, args[0])
			return nil
		},
	})
	return cmd
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "split-ledger",
		Short: "Attribute ledger rows to lawyer codes and split them per code",
		Long: `split-ledger fills the remark column of an accounting ledger with the
codes of the lawyers each row belongs to, then splits every row evenly
across its codes into a per-code ledger report.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&configDir, "conf", os.Getenv("HOME")+"/.split-ledger",
		"Config directory to store config.yaml, .env, shortcuts and the database.")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "Database file (default: <conf>/split-ledger.db)")
	root.PersistentFlags().StringVar(&sheetName, "sheet", "", "Ledger sheet name (default: first sheet)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Additional debug information if set.")
	root.AddCommand(newFillCmd(), newSplitCmd(), newCodesCmd(), newRulesCmd())
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		oerr(err.Error())
		os.Exit(1)
	}
}
