package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/views/dashboard"
)

func openDashboard(ctx context.Context, opts *rootOptions) (*dashboard.Dashboard, error) {
	api, _, err := opts.sessionClient()
	if err != nil {
		return nil, err
	}
	d, err := dashboard.Open(ctx, api)
	if errors.Is(err, dashboard.ErrNotAuthenticated) {
		return nil, ErrNotSignedIn
	}
	if err != nil {
		return nil, describe(err)
	}
	return d, nil
}

func newTicketsCmd(opts *rootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "List the tickets visible to the signed-in staff member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := dashboard.ParseFilter(filter)
			if err != nil {
				return err
			}
			d, err := openDashboard(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if err := d.Mount(cmd.Context()); err != nil {
				return describe(err)
			}
			d.SetFilter(f)
			return renderDashboard(cmd.OutOrStdout(), d)
		},
	}
	cmd.Flags().StringVar(&filter, "filter", string(dashboard.FilterAll), "status filter: all, open, assigned, in_progress, closed")
	return cmd
}

func renderDashboard(out io.Writer, d *dashboard.Dashboard) error {
	if _, err := fmt.Fprintf(out, "%s\n%s\n\n", d.Title(), d.Summary()); err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tASSIGNEE\tTITLE\tFROM\tCREATED")
	for _, t := range d.Tickets() {
		writeTicketRow(w, d, t)
	}
	return w.Flush()
}

func writeTicketRow(w io.Writer, d *dashboard.Dashboard, t dto.TicketResponse) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		t.ID, t.Status, t.Priority, d.AssigneeLabel(t), t.Title, t.Email, t.CreatedAt.Local().Format(time.DateTime))
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	var (
		status, priority, assign string
		unassign                 bool
	)

	cmd := &cobra.Command{
		Use:   "update <ticket-id>",
		Short: "Change a ticket's status, priority or assignee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("status") && !flags.Changed("priority") && !flags.Changed("assign") && !flags.Changed("unassign") {
				return errors.New("nothing to update: pass --status, --priority, --assign or --unassign")
			}
			d, err := openDashboard(cmd.Context(), opts)
			if err != nil {
				return err
			}
			ctx, id := cmd.Context(), args[0]

			if flags.Changed("status") {
				if err := d.UpdateStatus(ctx, id, status); err != nil {
					return describe(err)
				}
			}
			if flags.Changed("priority") {
				if err := d.UpdatePriority(ctx, id, priority); err != nil {
					return describe(err)
				}
			}
			switch {
			case unassign:
				err = d.Assign(ctx, id, "")
			case flags.Changed("assign"):
				err = d.Assign(ctx, id, assign)
			}
			if err != nil {
				return describe(err)
			}

			for _, t := range d.Tickets() {
				if t.ID == id {
					w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
					writeTicketRow(w, d, t)
					return w.Flush()
				}
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", id)
			return err
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "open, assigned, in_progress or closed")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium, high or urgent (admin)")
	cmd.Flags().StringVar(&assign, "assign", "", "profile id to assign (admin)")
	cmd.Flags().BoolVar(&unassign, "unassign", false, "clear the assignee (admin)")
	cmd.MarkFlagsMutuallyExclusive("assign", "unassign")
	return cmd
}
