package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/bobinette/papershelf/app"
	"github.com/bobinette/papershelf/clients"
	"github.com/bobinette/papershelf/errors"
)

var (
	registerRequest clients.RegisterRequest
	profileUpdate   clients.ProfileUpdate
)

func init() {
	RegisterCommand.Flags().StringVar(&registerRequest.Email, "email", "", "email address")
	RegisterCommand.Flags().StringVar(&registerRequest.Affiliation, "affiliation", "", "university or company")
	RegisterCommand.Flags().StringVar(&registerRequest.FieldOfStudy, "field", "", "field of study")

	ProfileCommand.Flags().StringVar(&profileUpdate.Affiliation, "affiliation", "", "new affiliation")
	ProfileCommand.Flags().StringVar(&profileUpdate.FieldOfStudy, "field", "", "new field of study")

	RootCmd.AddCommand(&LoginCommand)
	RootCmd.AddCommand(&RegisterCommand)
	RootCmd.AddCommand(&LogoutCommand)
	RootCmd.AddCommand(&WhoamiCommand)
	RootCmd.AddCommand(&ProfileCommand)
}

var LoginCommand = cobra.Command{
	Use:   "login <username> <password>",
	Short: "Log in and remember the session",
	Args:  cobra.ExactArgs(2),
	Run: withApp(func(ctx context.Context, cmd *cobra.Command, a *app.App, args []string) error {
		s, err := a.Login(ctx, args[0], args[1])
		if err != nil {
			return err
		}

		set, _ := a.Bookmarks.Current()
		cmd.Printf("Logged in as %s, %d bookmarks\n", s.DisplayName(), set.Len())
		return nil
	}),
}

var RegisterCommand = cobra.Command{
	Use:   "register <username> <password>",
	Short: "Create an account and log in",
	Args:  cobra.ExactArgs(2),
	Run: withApp(func(ctx context.Context, cmd *cobra.Command, a *app.App, args []string) error {
		r := registerRequest
		r.Username = args[0]
		r.Password = args[1]

		s, err := a.Register(ctx, r)
		if err != nil {
			return err
		}

		cmd.Printf("Welcome %s\n", s.DisplayName())
		return nil
	}),
}

var LogoutCommand = cobra.Command{
	Use:   "logout",
	Short: "Forget the session",
	Run: withApp(func(ctx context.Context, cmd *cobra.Command, a *app.App, args []string) error {
		if _, ok := a.Sessions.Restore(); !ok {
			cmd.Println("Not logged in")
			return nil
		}
		return a.Logout(ctx)
	}),
}

var WhoamiCommand = cobra.Command{
	Use:   "whoami",
	Short: "Print the current session",
	Run: withApp(func(ctx context.Context, cmd *cobra.Command, a *app.App, args []string) error {
		s, ok := a.Sessions.Restore()
		if !ok {
			cmd.Println("Not logged in")
			return nil
		}
		return printJSON(cmd, s)
	}),
}

var ProfileCommand = cobra.Command{
	Use:   "profile",
	Short: "Print the profile of the current user, updating it when flags are given",
	Run: withApp(func(ctx context.Context, cmd *cobra.Command, a *app.App, args []string) error {
		if _, ok := a.Sessions.Restore(); !ok {
			return errors.New("login required", errors.WithKind(errors.NotAuthenticated))
		}

		if profileUpdate == (clients.ProfileUpdate{}) {
			s, err := a.RefreshProfile(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, s)
		}

		s, err := a.UpdateProfile(ctx, profileUpdate)
		if err != nil {
			return err
		}
		return printJSON(cmd, s)
	}),
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}
