package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ledgerline-dev/ledgerline/internal/ledger"
)

// ledgerFile is the trail location inside a project directory.
const ledgerFile = "ledger/ledger.csv"

func newLedgerCommand() *cobra.Command {
	var kind, ref string

	cmd := &cobra.Command{
		Use:   "ledger [directory]",
		Short: "Show the balance-change trail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			book := ledger.Open(filepath.Join(dir, ledgerFile))

			if ref != "" {
				balance, err := book.Balance(ledger.EntryKind(kind), ref)
				if err != nil {
					return err
				}
				cmd.Printf("%s %s: %s\n", kind, ref, balance.String())
				return nil
			}

			entries, err := book.Entries()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return fmt.Errorf("no ledger entries at %s", filepath.Join(dir, ledgerFile))
			}
			for _, e := range entries {
				cmd.Printf("%s  %-7s %-36s %12s  %s\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), e.Kind, e.RefID, e.Delta.StringFixed(2), e.Memo)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "invoice", "entry kind for --ref balance (invoice, payment, client)")
	cmd.Flags().StringVar(&ref, "ref", "", "print the running balance for one reference id")

	return cmd
}
