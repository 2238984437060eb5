package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/views/submission"
)

const imageBucket = "ticket-images"

func newSubmitCmd(opts *rootOptions) *cobra.Command {
	var (
		fields submission.Fields
		images []string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Open a new support ticket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form := submission.NewForm(opts.anonymousClient(), imageBucket, 0)
			form.SetFields(fields)

			files := make([]submission.File, 0, len(images))
			for _, path := range images {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				files = append(files, submission.File{Name: filepath.Base(path), Data: data})
			}
			for _, rejected := range form.AddFiles(files...) {
				opts.log().Warn("skipping attachment", zap.Error(rejected))
			}

			ticket, err := form.Submit(cmd.Context())
			if err != nil {
				return errors.New(form.Message())
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\nticket: %s\n", form.Message(), ticket.ID)
			return err
		},
	}

	cmd.Flags().StringVar(&fields.Name, "name", "", "your name")
	cmd.Flags().StringVar(&fields.Email, "email", "", "contact email")
	cmd.Flags().StringVar(&fields.Title, "title", "", "short summary")
	cmd.Flags().StringVar(&fields.Description, "description", "", "what happened")
	cmd.Flags().StringArrayVar(&images, "image", nil, "image to attach (repeatable, 5MB max each)")
	return cmd
}
