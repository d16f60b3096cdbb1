package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/contractwizard/internal/derive"
	"github.com/matthewbaird/contractwizard/internal/i18n"
)

type previewOptions struct {
	start     string
	months    string
	annual    string
	frequency string
	policy    string
	locale    string
}

func newPreviewCmd() *cobra.Command {
	var opts previewOptions
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the end date, rent breakdown and payment schedule for a term",
		Example: `  contractwizard preview --start 2024-01-31 --months 1
  contractwizard preview --start 2024-01-01 --months 12 --annual 120000 --frequency quarterly`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPreview(cmd.OutOrStdout(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.start, "start", "", "contract start date (YYYY-MM-DD)")
	f.StringVar(&opts.months, "months", "12", "contract duration in months")
	f.StringVar(&opts.annual, "annual", "", "annual rent amount")
	f.StringVar(&opts.frequency, "frequency", "monthly", "payment frequency: monthly, quarterly, semi_annual or annual")
	f.StringVar(&opts.policy, "policy", "clamp", "month-end policy: clamp or overflow")
	f.StringVar(&opts.locale, "locale", "en", "output locale")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func runPreview(w io.Writer, opts previewOptions) error {
	policy, err := derive.ParseMonthPolicy(opts.policy)
	if err != nil {
		return err
	}
	end := derive.ComputeEndDate(opts.start, opts.months, policy)
	if !end.OK {
		return fmt.Errorf("cannot compute end date from start %q and duration %q", opts.start, opts.months)
	}
	f := i18n.NewFormatter(opts.locale)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Start\t%s\n", end.Start.Format("2006-01-02"))
	fmt.Fprintf(tw, "End\t%s\n", end.Value)
	fmt.Fprintf(tw, "Duration\t%s\n", f.DurationLabel(end.DurationMonths))
	if opts.annual == "" {
		return tw.Flush()
	}

	rent := derive.ComputeRent(opts.annual, opts.frequency)
	if !rent.OK {
		_ = tw.Flush()
		return fmt.Errorf("invalid annual amount %q", opts.annual)
	}
	rows := derive.Schedule(end.Start, end.End, rent.Frequency, rent.PeriodCents, policy)
	fmt.Fprintf(tw, "Annual rent\t%s\n", f.Currency(f.Amount(rent.AnnualCents)))
	fmt.Fprintf(tw, "Per period\t%s\n", f.Currency(f.Amount(rent.PeriodCents)))
	fmt.Fprintf(tw, "Payments\t%s\n", f.Count(len(rows)))
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "#\tDue\tAmount")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", r.Number, r.Due, f.Amount(r.AmountCents))
	}
	return tw.Flush()
}
