package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pesawallet/pesa/internal/cli"
)

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Staff-only service overview",
		Long: `Aggregate figures across all wallet users.

These commands require a staff account; the backend rejects them
for everyone else.`,
	}

	cmd.AddCommand(adminOverviewCmd())
	cmd.AddCommand(adminUsersCmd())

	return cmd
}

func adminOverviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show service-wide totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := sessionStore()
			if err != nil {
				return err
			}
			backend, err := newBackend(sessions)
			if err != nil {
				return err
			}

			stats, err := backend.Overview(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println(cli.TitleStyle.Render("Service overview"))
			fmt.Printf("%-20s %d\n", "Total users", stats.TotalUsers)
			fmt.Printf("%-20s %d\n", "Active users", stats.ActiveUsers)
			fmt.Printf("%-20s %d\n", "Transactions", stats.TotalTransactions)
			fmt.Printf("%-20s %s\n", "Total volume", stats.TotalVolume)
			return nil
		},
	}
}

func adminUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List registered users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := sessionStore()
			if err != nil {
				return err
			}
			backend, err := newBackend(sessions)
			if err != nil {
				return err
			}

			users, err := backend.Users(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-16s %-28s %-14s %s",
				"Username", "Email", "Phone", "Joined")))
			for _, user := range users {
				name := user.Username
				if user.IsStaff {
					name += " *"
				}
				fmt.Printf("%-16s %-28s %-14s %s\n",
					name, user.Email, user.PhoneNumber, user.JoinedAt.Format("2006-01-02"))
			}
			fmt.Println(cli.SubtleStyle.Render("* staff account"))
			return nil
		},
	}
}
