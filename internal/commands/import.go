package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ledgerline-dev/ledgerline/internal/bank"
	"github.com/ledgerline-dev/ledgerline/internal/config"
	"github.com/ledgerline-dev/ledgerline/internal/importer"
	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/store"
)

func newImportCommand() *cobra.Command {
	var keep bool

	cmd := &cobra.Command{
		Use:   "import [directory]",
		Short: "Import bank CSV files as unmatched transactions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runImport(cmd, absDir, keep)
		},
	}

	cmd.Flags().BoolVar(&keep, "keep", false, "leave CSV files in import/ after a successful run")

	return cmd
}

func runImport(cmd *cobra.Command, dir string, keep bool) error {
	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	if err != nil {
		return err
	}

	parser := importer.DefaultRegistry().Get(cfg.Bank.ImportFormat)
	if parser == nil {
		return fmt.Errorf("unknown import format %q", cfg.Bank.ImportFormat)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	st := store.New()
	company := model.Company{
		ID:       "local",
		Name:     cfg.Company.Name,
		Currency: cfg.Company.Currency,
		Tax:      cfg.ModelTax(),
	}
	st.PutCompany(company)

	feed := importer.NewFeed(dir, parser, cfg.Company.Currency, log)
	syncer := bank.NewSyncer(st, feed, log)

	n, err := syncer.Sync(cmd.Context(), company.ID)
	if err != nil {
		return fmt.Errorf("importing transactions: %w", err)
	}

	for _, bt := range st.UnmatchedTransactions(company.ID) {
		cmd.Printf("%s  %10s %s  %s\n", bt.Date.Format("2006-01-02"), bt.Amount.StringFixed(2), bt.Currency, bt.Description)
	}
	cmd.Printf("Imported %d transactions\n", n)

	if keep {
		return nil
	}
	files, err := importer.Scan(dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := importer.MarkProcessed(dir, f.Name); err != nil {
			return err
		}
	}
	return nil
}
