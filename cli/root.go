package cli

import (
	"context"
	"errors"
	"fmt"

	"dripmate/controllers"
	"dripmate/services"

	"github.com/spf13/cobra"
)

var ErrNotLoggedIn = errors.New("not logged in")

type app struct {
	build   EnvBuilder
	env     *Env
	cfgFile string
	debug   bool
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.env != nil {
		return nil
	}
	env, err := a.build(a.cfgFile, a.debug)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	if env.Out == nil {
		env.Out = cmd.OutOrStdout()
	}
	if env.In == nil {
		env.In = cmd.InOrStdin()
	}
	a.env = env
	return nil
}

func (a *app) close() error {
	if a.env == nil {
		return nil
	}
	return a.env.Close()
}

// check turns a failed call into the command's error. Authorization failures
// get a login hint instead of the raw message.
func (a *app) check(err error, redirect string) error {
	if redirect == controllers.LoginPath || services.IsUnauthorized(err) {
		fmt.Fprintln(a.env.Out, "You are not logged in. Run `dripmate login` first.")
		return ErrNotLoggedIn
	}
	if err != nil {
		return errors.New(services.ErrorMessage(err))
	}
	return nil
}

func NewRootCommand(build EnvBuilder) *cobra.Command {
	a := &app{build: build}
	return a.command()
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:               "dripmate",
		Short:             "Outfit ideas from your wardrobe",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default ./dripmate.yaml or ~/.dripmate/dripmate.yaml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.signupCommand(),
		a.loginCommand(),
		a.logoutCommand(),
		a.profileCommand(),
		a.suggestCommand(),
		a.suggestImageCommand(),
		a.wardrobeCommand(),
		a.favoritesCommand(),
		a.fitsCommand(),
		a.themeCommand(),
		a.resetCommand(),
	)
	return root
}

// Execute runs the CLI and releases whatever the command opened, also when it
// failed.
func Execute(ctx context.Context, build EnvBuilder) error {
	a := &app{build: build}
	err := a.command().ExecuteContext(ctx)
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	return err
}
