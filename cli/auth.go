package cli

import (
	"fmt"

	"dripmate/controllers"
	"dripmate/models"

	"github.com/spf13/cobra"
)

func (a *app) signupCommand() *cobra.Command {
	var in models.SignupIn
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := controllers.NewAuthView(a.env.API, a.env.Session, a.env.Logger)
			if err := view.Signup(cmd.Context(), in); err != nil {
				return fmt.Errorf("signup failed: %s", view.State().Error)
			}
			a.printWelcome(view.State())
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "your name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password, at least 6 characters")
	cmd.Flags().StringVar(&in.Gender, "gender", "", "gender used for suggestions")
	cmd.Flags().StringVar(&in.AgeGroup, "age-group", "", "age group used for suggestions")
	cmd.Flags().StringVar(&in.SkinColour, "skin-colour", "", "skin tone used for suggestions")
	return cmd
}

func (a *app) loginCommand() *cobra.Command {
	var in models.LoginIn
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := controllers.NewAuthView(a.env.API, a.env.Session, a.env.Logger)
			if err := view.Login(cmd.Context(), in); err != nil {
				return fmt.Errorf("login failed: %s", view.State().Error)
			}
			a.printWelcome(view.State())
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password")
	return cmd
}

func (a *app) printWelcome(state controllers.AuthState) {
	if state.User != nil && state.User.Name != "" {
		fmt.Fprintf(a.env.Out, "Logged in as %s\n", state.User.Name)
		return
	}
	fmt.Fprintln(a.env.Out, "Logged in")
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := controllers.NewAuthView(a.env.API, a.env.Session, a.env.Logger)
			if err := view.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(a.env.Out, "Logged out")
			return nil
		},
	}
}

func (a *app) profileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := controllers.NewProfileView(a.env.API, a.env.Session, a.env.Logger)
			err := view.Load(cmd.Context())
			state := view.State()
			if err := a.check(err, state.Redirect); err != nil {
				return err
			}
			renderProfile(a.env.Out, *state.Profile)
			return nil
		},
	}
}
