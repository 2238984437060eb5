package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func newStaffCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Operator tooling for staff accounts",
	}
	cmd.AddCommand(newStaffAddCmd(opts))
	return cmd
}

// newStaffAddCmd writes straight to Postgres using the server's environment.
func newStaffAddCmd(opts *rootOptions) *cobra.Command {
	var input service.StaffInput
	var role string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Provision a staff identity and profile in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Postgres.DSN == "" {
				return errors.New("POSTGRES_DSN is required to provision staff")
			}

			pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, opts.log())
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pg.Close()

			input.Role = domain.Role(role)
			profiles := service.NewProfileService(repository.NewProfileRepository(pg.PoolHandle()), cfg.Auth.BcryptCost)
			profile, err := profiles.CreateStaff(cmd.Context(), input)
			if err != nil {
				var domainErr *apperrors.DomainError
				if errors.As(err, &domainErr) && domainErr.HTTPStatus < 500 {
					return errors.New(domainErr.Message)
				}
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", profile.Role, profile.Email, profile.ID)
			return err
		},
	}
	cmd.Flags().StringVar(&input.Email, "email", "", "login email")
	cmd.Flags().StringVar(&input.Password, "password", "", "initial password (8+ characters)")
	cmd.Flags().StringVar(&input.FullName, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleAgent), "admin or agent")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
