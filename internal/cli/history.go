package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <ticket-id>",
		Short: "Show the audit trail of a ticket (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, _, err := opts.sessionClient()
			if err != nil {
				return err
			}
			entries, err := api.TicketHistory(cmd.Context(), args[0])
			if err != nil {
				return describe(err)
			}
			if len(entries) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "no changes recorded")
				return err
			}

			names := map[string]string{}
			if profiles, err := api.Profiles(cmd.Context()); err == nil {
				for _, p := range profiles {
					names[p.ID] = p.Email
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tACTOR\tCHANGES\tDROPPED")
			for _, e := range entries {
				actor := e.ActorID
				if name, ok := names[actor]; ok {
					actor = name
				}
				changes, _ := json.Marshal(e.Changes)
				dropped := strings.Join(e.Dropped, ",")
				if dropped == "" {
					dropped = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.CreatedAt.Local().Format(time.DateTime), actor, changes, dropped)
			}
			return w.Flush()
		},
	}
}
