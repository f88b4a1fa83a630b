package commands

import (
	"fmt"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ledgerline-dev/ledgerline/internal/config"
	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/tax/ziptax"
)

func newRateCommand() *cobra.Command {
	var street, city, state, postal string
	var apiKey string

	cmd := &cobra.Command{
		Use:   "rate [directory]",
		Short: "Look up the sales tax jurisdiction for an address",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			if apiKey == "" {
				cfg, err := config.Load(filepath.Join(dir, config.FileName))
				if err != nil {
					return fmt.Errorf("no --api-key given and %w", err)
				}
				apiKey = cfg.Tax.APIKey
			}
			if apiKey == "" {
				return fmt.Errorf("no tax provider API key configured")
			}

			addr := model.Address{
				Street:     street,
				City:       city,
				State:      state,
				PostalCode: postal,
			}

			jur, err := ziptax.New(apiKey).Lookup(cmd.Context(), addr)
			if err != nil {
				return fmt.Errorf("looking up jurisdiction: %w", err)
			}

			cmd.Printf("Region:           %s\n", jur.Region)
			cmd.Printf("City:             %s\n", jur.City)
			cmd.Printf("County:           %s\n", jur.County)
			cmd.Printf("Sales tax rate:   %s%%\n", jur.SalesTaxRate.Mul(decimal.NewFromInt(100)).String())
			cmd.Printf("Services taxable: %t\n", jur.ServicesTaxable)
			cmd.Printf("Freight taxable:  %t\n", jur.FreightTaxable)
			return nil
		},
	}

	cmd.Flags().StringVar(&street, "street", "", "street address")
	cmd.Flags().StringVar(&city, "city", "", "city")
	cmd.Flags().StringVar(&state, "state", "", "state code")
	cmd.Flags().StringVar(&postal, "zip", "", "postal code (required)")
	_ = cmd.MarkFlagRequired("zip")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "tax provider API key (defaults to the project config)")

	return cmd
}
