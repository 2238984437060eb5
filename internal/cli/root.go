// Package cli implements the helpdesk command line client.
package cli

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/helpdesk/internal/client"
)

const defaultServer = "http://localhost:8080"

// ErrNotSignedIn is returned by commands that need a session.
var ErrNotSignedIn = errors.New("not signed in; run `helpdesk login` first")

type rootOptions struct {
	server string
	logger *zap.Logger
}

// NewRootCmd builds the helpdesk command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "helpdesk",
		Short:         "Submit and work helpdesk tickets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.logger = newCLILogger(cmd)
		},
	}
	root.PersistentFlags().StringVar(&opts.server, "server", "", "API base URL (default $HELPDESK_URL or "+defaultServer+")")

	root.AddCommand(
		newSubmitCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newTicketsCmd(opts),
		newUpdateCmd(opts),
		newHistoryCmd(opts),
		newStaffCmd(opts),
	)
	return root
}

// Execute runs the CLI with ctx attached to every command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// serverURL resolves the API address: flag, environment, the signed-in
// session, then the default.
func (o *rootOptions) serverURL(session *SessionFile) string {
	if o.server != "" {
		return o.server
	}
	if env := strings.TrimSpace(os.Getenv("HELPDESK_URL")); env != "" {
		return env
	}
	if session != nil && session.Server != "" {
		return session.Server
	}
	return defaultServer
}

func (o *rootOptions) log() *zap.Logger {
	if o.logger == nil {
		return zap.NewNop()
	}
	return o.logger
}

func (o *rootOptions) anonymousClient() *client.Client {
	return client.New(o.serverURL(nil))
}

func (o *rootOptions) sessionClient() (*client.Client, *SessionFile, error) {
	session, err := loadSession()
	if err != nil {
		return nil, nil, err
	}
	if session == nil || session.Token == "" {
		return nil, nil, ErrNotSignedIn
	}
	return client.New(o.serverURL(session), client.WithToken(session.Token)), session, nil
}

// newCLILogger writes warnings and errors to stderr so stdout stays readable.
func newCLILogger(cmd *cobra.Command) *zap.Logger {
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:  "message",
		LevelKey:    "level",
		EncodeLevel: zapcore.CapitalLevelEncoder,
	})
	core := zapcore.NewCore(encoder, zapcore.AddSync(cmd.ErrOrStderr()), zapcore.WarnLevel)
	return zap.New(core)
}
