package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var errNoTranscriptStore = errors.New("transcript store not configured: set DATABASE_URL")

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently recorded chat transcripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.db == nil {
				return errNoTranscriptStore
			}

			transcripts, err := a.chat.History(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED\tMODEL\tTERMINATION\tEVENTS\tPROMPT")
			for _, t := range transcripts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					t.CreatedAt.Local().Format(time.DateTime),
					t.Model,
					t.Termination,
					t.Events,
					preview(t.Prompt, 60),
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of transcripts to show")
	return cmd
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
