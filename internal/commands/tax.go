package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ledgerline-dev/ledgerline/internal/config"
	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/tax"
	"github.com/ledgerline-dev/ledgerline/internal/tax/ziptax"
)

var categoryNames = map[string]model.ProductTaxCategory{
	"physical": model.CategoryPhysical,
	"service":  model.CategoryService,
	"digital":  model.CategoryDigital,
	"shipping": model.CategoryShipping,
	"exempt":   model.CategoryExempt,
	"reduced":  model.CategoryReduced,
}

func newTaxCommand() *cobra.Command {
	var postal, category string
	var amount string
	var apiKey string

	cmd := &cobra.Command{
		Use:   "tax [directory]",
		Short: "Quote the sales tax on an amount for a postal code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg, err := config.Load(filepath.Join(dir, config.FileName))
			if err != nil {
				return err
			}
			if apiKey == "" {
				apiKey = cfg.Tax.APIKey
			}
			if apiKey == "" {
				return fmt.Errorf("no tax provider API key configured")
			}

			cat, ok := categoryNames[strings.ToLower(category)]
			if !ok {
				return fmt.Errorf("unknown product category %q", category)
			}

			cost, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", amount, err)
			}

			lookup, err := ziptax.New(apiKey).Lookup(cmd.Context(), model.Address{PostalCode: postal})
			if err != nil {
				return fmt.Errorf("looking up jurisdiction: %w", err)
			}

			rule, err := tax.ForRegion(cfg.Tax.SellerRegion)
			if err != nil {
				return err
			}

			item := model.LineItem{Cost: cost, Quantity: decimal.NewFromInt(1), Category: cat}
			taxes, err := rule.Resolve(model.Client{Region: cfg.Tax.SellerRegion},
				cfg.ModelTax().Region(cfg.Tax.SellerRegion), lookup, item)
			if err != nil {
				return err
			}
			item.Taxes = taxes

			cmd.Printf("Subtotal: %s\n", item.Subtotal().StringFixed(2))
			if taxes.IsZero() {
				cmd.Println("Tax:      none")
			} else {
				cmd.Printf("Tax:      %s (%s%%, %s)\n", item.TaxAmount().StringFixed(2), taxes.TotalRate().String(), taxes.Name1)
			}
			cmd.Printf("Total:    %s\n", item.Subtotal().Add(item.TaxAmount()).StringFixed(2))
			return nil
		},
	}

	cmd.Flags().StringVar(&postal, "zip", "", "postal code (required)")
	_ = cmd.MarkFlagRequired("zip")
	cmd.Flags().StringVar(&amount, "amount", "", "pre-tax amount (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&category, "category", "physical", "product category (physical, service, digital, shipping, exempt, reduced)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "tax provider API key (defaults to the project config)")

	return cmd
}
