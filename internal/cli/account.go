package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Muffins-Corp/muffinscorp-go/muffins"
)

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List available models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			models, err := a.client.Models().List(cmd.Context())
			if err != nil {
				return describe(err)
			}
			return printModels(cmd.OutOrStdout(), models)
		},
	}
}

func newPlansCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List subscription plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plans, err := a.client.Subscriptions().List(cmd.Context())
			if err != nil {
				return describe(err)
			}
			return printPlans(cmd.OutOrStdout(), plans)
		},
	}
}

func newBalanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the current credit balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			balance, err := a.client.Credits().Balance(cmd.Context())
			if err != nil {
				return describe(err)
			}
			printBalance(cmd.OutOrStdout(), balance)
			return nil
		},
	}
}

const overviewLongDesc string = `Fetch models, subscription plans and the credit balance concurrently.

The first failure cancels the remaining requests.`

func newOverviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show models, plans and balance together",
		Long:  overviewLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				models  []muffins.Model
				plans   []muffins.Plan
				balance *muffins.Balance
			)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				var err error
				models, err = a.client.Models().List(ctx)
				return err
			})
			g.Go(func() error {
				var err error
				plans, err = a.client.Subscriptions().List(ctx)
				return err
			})
			g.Go(func() error {
				var err error
				balance, err = a.client.Credits().Balance(ctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return describe(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Models:")
			if err := printModels(out, models); err != nil {
				return err
			}
			fmt.Fprintln(out, "\nPlans:")
			if err := printPlans(out, plans); err != nil {
				return err
			}
			fmt.Fprintln(out)
			printBalance(out, balance)
			return nil
		},
	}
}

func printModels(w io.Writer, models []muffins.Model) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, m.Name, m.Description)
	}
	return tw.Flush()
}

func printPlans(w io.Writer, plans []muffins.Plan) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tCREDITS\tINTERVAL")
	for _, p := range plans {
		fmt.Fprintf(tw, "%s\t%s\t%.2f %s\t%.0f\t%s\n", p.ID, p.Name, p.Price, p.Currency, p.Credits, p.Interval)
	}
	return tw.Flush()
}

func printBalance(w io.Writer, b *muffins.Balance) {
	fmt.Fprintf(w, "Credits: %.2f\n", b.Credits)
}
