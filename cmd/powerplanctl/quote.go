package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"powerplan/internal/pricing"
	"powerplan/internal/types"
)

type quoteOptions struct {
	planFile    string
	consumption string
	vat         string
	ecoTax      string
	asJSON      bool
}

func newQuoteCmd() *cobra.Command {
	opts := quoteOptions{}

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a consumption against a plan file",
		Long: `Validates a plan read from a JSON file and prints how the given consumption
is billed tier by tier, then the discounted and taxed total. No database is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuote(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.planFile, "plan-file", "", "path to a plan JSON document")
	cmd.Flags().StringVar(&opts.consumption, "consumption", "", "consumption in kWh")
	cmd.Flags().StringVar(&opts.vat, "vat", "0", "VAT percentage")
	cmd.Flags().StringVar(&opts.ecoTax, "eco-tax", "0", "eco tax percentage")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the breakdown as JSON")
	_ = cmd.MarkFlagRequired("plan-file")
	_ = cmd.MarkFlagRequired("consumption")
	return cmd
}

func runQuote(out io.Writer, opts quoteOptions) error {
	plan, err := readPlanFile(opts.planFile)
	if err != nil {
		return err
	}
	if err := pricing.Validate(plan); err != nil {
		return err
	}

	consumption, err := parseDecimalFlag("consumption", opts.consumption)
	if err != nil {
		return err
	}
	if consumption.IsNegative() {
		return fmt.Errorf("--consumption must not be negative")
	}
	vat, err := parseDecimalFlag("vat", opts.vat)
	if err != nil {
		return err
	}
	eco, err := parseDecimalFlag("eco-tax", opts.ecoTax)
	if err != nil {
		return err
	}

	b := pricing.Quote(plan, consumption, types.TaxGroup{VAT: vat, EcoTax: eco})

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}
	return printBreakdown(out, plan, b)
}

func readPlanFile(path string) (types.Plan, error) {
	var plan types.Plan
	raw, err := os.ReadFile(path)
	if err != nil {
		return plan, fmt.Errorf("reading plan file: %w", err)
	}
	if err := json.Unmarshal(raw, &plan); err != nil {
		return plan, fmt.Errorf("parsing plan file %s: %w", path, err)
	}
	return plan, nil
}

func parseDecimalFlag(name, raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: %q is not a number", name, raw)
	}
	return v, nil
}

func printBreakdown(out io.Writer, plan types.Plan, b pricing.Breakdown) error {
	fmt.Fprintf(out, "Plan: %s\n\n", plan.Name)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FROM\tUP TO\tPRICE\tKWH\tCOST")
	for _, l := range b.Lines {
		upTo := "open"
		if l.UpTo != nil {
			upTo = fmt.Sprintf("%d", *l.UpTo)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", l.From, upTo, l.Price, l.Consumption, l.Cost)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nBase cost:  %s\n", b.BaseCost)
	fmt.Fprintf(out, "Discounted: %s\n", b.Discounted)
	fmt.Fprintf(out, "Tax rate:   %s%%\n", b.TaxRate)
	fmt.Fprintf(out, "Total:      %s\n", b.Total)
	return nil
}
