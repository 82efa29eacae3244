package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pesawallet/pesa/internal/cli"
)

func notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notices"},
		Short:   "View and manage alerts",
	}

	cmd.AddCommand(notificationsListCmd())
	cmd.AddCommand(notificationsReadCmd())
	cmd.AddCommand(notificationsDeleteCmd())

	return cmd
}

func notificationsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		RunE:  runNotificationsList,
	}

	cmd.Flags().Bool("unread", false, "only show unread notifications")

	return cmd
}

func runNotificationsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sessions, err := sessionStore()
	if err != nil {
		return err
	}
	backend, err := newBackend(sessions)
	if err != nil {
		return err
	}

	notifications, err := backend.Notifications(ctx)
	if err != nil {
		return err
	}

	unreadOnly, _ := cmd.Flags().GetBool("unread")
	shown := 0
	for _, n := range notifications {
		if unreadOnly && n.Read {
			continue
		}
		shown++

		marker := cli.SubtleStyle.Render("  ")
		title := n.Title
		if !n.Read {
			marker = cli.InfoStyle.Render(cli.BellIcon + " ")
			title = cli.BoldStyle.Render(title)
		}
		fmt.Printf("%s%s  %s\n", marker, title, cli.SubtleStyle.Render(n.CreatedAt.Format("Jan 02 15:04")))
		if n.Message != "" {
			fmt.Println("   " + n.Message)
		}
		fmt.Println(cli.SubtleStyle.Render("   id: " + n.ID))
	}

	if shown == 0 {
		fmt.Println(cli.SubtleStyle.Render("No notifications."))
	}
	return nil
}

func notificationsReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := sessionStore()
			if err != nil {
				return err
			}
			backend, err := newBackend(sessions)
			if err != nil {
				return err
			}

			if err := backend.MarkNotificationRead(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Marked as read."))
			return nil
		},
	}
}

func notificationsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := sessionStore()
			if err != nil {
				return err
			}
			backend, err := newBackend(sessions)
			if err != nil {
				return err
			}

			if err := backend.DeleteNotification(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Notification deleted."))
			return nil
		},
	}
}
