package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pesawallet/pesa/internal/cli"
	"github.com/pesawallet/pesa/internal/common"
	"github.com/pesawallet/pesa/internal/session"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage your PesaWallet session",
	}

	cmd.AddCommand(loginCmd())
	cmd.AddCommand(registerCmd())
	cmd.AddCommand(logoutCmd())
	cmd.AddCommand(whoamiCmd())
	cmd.AddCommand(profileCmd())

	return cmd
}

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store a session token",
		RunE:  runLogin,
	}

	cmd.Flags().String("username", "", "username (prompted if omitted)")

	return cmd
}

func runLogin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sessions, err := sessionStore()
	if err != nil {
		return err
	}
	backend, err := newBackend(sessions)
	if err != nil {
		return err
	}

	reader := cli.NewNonBlockingReader(os.Stdin)

	username, _ := cmd.Flags().GetString("username")
	if username == "" {
		fmt.Print(cli.PromptStyle.Render("Username: "))
		if username, err = reader.ReadLine(ctx); err != nil {
			return err
		}
	}

	fmt.Print(cli.PromptStyle.Render("Password: "))
	password, err := reader.ReadLine(ctx)
	if err != nil {
		return err
	}
	if username == "" || password == "" {
		return common.NewUserError("Username and password are both required.", common.ErrInvalidConfig)
	}

	user, token, err := backend.Login(ctx, username, password)
	if err != nil {
		return err
	}

	if err := sessions.Save(&session.Session{Token: token, User: user}); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	fmt.Println(cli.FormatSuccess("Signed in as " + user.Username))
	return nil
}

func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new PesaWallet account",
		RunE:  runRegister,
	}

	cmd.Flags().String("username", "", "username")
	cmd.Flags().String("email", "", "email address")
	cmd.Flags().String("phone", "", "M-Pesa phone number, e.g. 0712345678")

	return cmd
}

func runRegister(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sessions, err := sessionStore()
	if err != nil {
		return err
	}
	backend, err := newBackend(sessions)
	if err != nil {
		return err
	}

	reader := cli.NewNonBlockingReader(os.Stdin)
	prompt := func(flag, label string) (string, error) {
		value, _ := cmd.Flags().GetString(flag)
		if value != "" {
			return value, nil
		}
		fmt.Print(cli.PromptStyle.Render(label + ": "))
		return reader.ReadLine(ctx)
	}

	username, err := prompt("username", "Username")
	if err != nil {
		return err
	}
	email, err := prompt("email", "Email")
	if err != nil {
		return err
	}
	phone, err := prompt("phone", "Phone")
	if err != nil {
		return err
	}
	fmt.Print(cli.PromptStyle.Render("Password: "))
	password, err := reader.ReadLine(ctx)
	if err != nil {
		return err
	}

	if err := backend.Register(ctx, username, email, phone, password); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess("Account created. Run 'pesa auth login' to sign in."))
	return nil
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session",
		RunE: func(_ *cobra.Command, _ []string) error {
			sessions, err := sessionStore()
			if err != nil {
				return err
			}
			if err := sessions.Clear(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			fmt.Println(cli.FormatSuccess("Signed out."))
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(_ *cobra.Command, _ []string) error {
			sessions, err := sessionStore()
			if err != nil {
				return err
			}
			sess, err := sessions.Load()
			if err != nil {
				return common.NewUserError("Not signed in. Run 'pesa auth login'.", err)
			}

			fmt.Println(cli.BoldStyle.Render(sess.User.Username))
			fmt.Println(cli.SubtleStyle.Render(sess.User.Email))
			if sess.User.PhoneNumber != "" {
				fmt.Println(cli.SubtleStyle.Render(sess.User.PhoneNumber))
			}
			if !sess.User.JoinedAt.IsZero() {
				fmt.Println(cli.SubtleStyle.Render("Member since " + sess.User.JoinedAt.Format("Jan 2006")))
			}
			fmt.Println(cli.SubtleStyle.Render("Session saved " + sess.SavedAt.Format(time.RFC822)))
			return nil
		},
	}
}

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update profile fields",
		RunE:  runProfile,
	}

	cmd.Flags().String("email", "", "new email address")
	cmd.Flags().String("phone", "", "new phone number")

	return cmd
}

func runProfile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	fields := map[string]string{}
	if email, _ := cmd.Flags().GetString("email"); email != "" {
		fields["email"] = email
	}
	if phone, _ := cmd.Flags().GetString("phone"); phone != "" {
		fields["phone_number"] = phone
	}
	if len(fields) == 0 {
		return common.NewUserError("Nothing to update. Pass --email or --phone.", common.ErrInvalidConfig)
	}

	sessions, err := sessionStore()
	if err != nil {
		return err
	}
	backend, err := newBackend(sessions)
	if err != nil {
		return err
	}

	user, err := backend.UpdateProfile(ctx, fields)
	if err != nil {
		return err
	}

	// Keep the cached user in step with the backend
	if sess, loadErr := sessions.Load(); loadErr == nil {
		sess.User = user
		if saveErr := sessions.Save(sess); saveErr != nil {
			return fmt.Errorf("profile updated but session refresh failed: %w", saveErr)
		}
	}

	fmt.Println(cli.FormatSuccess("Profile updated."))
	return nil
}
