package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pesawallet/pesa/internal/cli"
	"github.com/pesawallet/pesa/internal/common"
	"github.com/pesawallet/pesa/internal/model"
)

func envelopesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "envelopes",
		Short: "Manage your digital envelopes",
	}

	cmd.AddCommand(envelopesListCmd())
	cmd.AddCommand(envelopesCreateCmd())
	cmd.AddCommand(envelopesDeleteCmd())

	return cmd
}

func envelopesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts and balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			sessions, err := sessionStore()
			if err != nil {
				return err
			}
			backend, err := newBackend(sessions)
			if err != nil {
				return err
			}

			accounts, err := backend.Accounts(ctx)
			if err != nil {
				return err
			}
			fmt.Println(cli.RenderAccounts(accounts))
			return nil
		},
	}
}

func envelopesCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new envelope",
		Args:  cobra.ExactArgs(1),
		RunE:  runEnvelopesCreate,
	}

	cmd.Flags().String("category", "", "spending category label")
	cmd.Flags().String("limit", "", "monthly budget limit (omit for unlimited)")
	cmd.Flags().String("overspend", "WARN", "overspend rule: ALLOW, WARN, or BLOCK")
	cmd.Flags().String("rollover", "ROLLOVER", "end-of-period rule: ROLLOVER or RETURN")

	return cmd
}

func runEnvelopesCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	env := model.AccountSnapshot{
		Name: args[0],
		Kind: model.KindDigital,
	}
	env.CategoryLabel, _ = cmd.Flags().GetString("category")

	if rawLimit, _ := cmd.Flags().GetString("limit"); rawLimit != "" {
		limit, err := parseAmount(rawLimit)
		if err != nil {
			return err
		}
		env.Limit = limit
	}

	overspend, _ := cmd.Flags().GetString("overspend")
	switch rule := model.OverspendRule(strings.ToUpper(overspend)); rule {
	case model.OverspendAllow, model.OverspendWarn, model.OverspendBlock:
		env.OverspendRule = rule
	default:
		return common.NewUserError("Overspend rule must be ALLOW, WARN, or BLOCK.", common.ErrInvalidConfig)
	}

	rollover, _ := cmd.Flags().GetString("rollover")
	switch rule := model.RolloverRule(strings.ToUpper(rollover)); rule {
	case model.RolloverKeep, model.RolloverReturn:
		env.RolloverRule = rule
	default:
		return common.NewUserError("Rollover rule must be ROLLOVER or RETURN.", common.ErrInvalidConfig)
	}

	sessions, err := sessionStore()
	if err != nil {
		return err
	}
	backend, err := newBackend(sessions)
	if err != nil {
		return err
	}

	created, err := backend.CreateEnvelope(ctx, env)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Envelope %q created.", created.Name)))
	return nil
}

func envelopesDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an envelope (its balance returns to primary)",
		Args:  cobra.ExactArgs(1),
		RunE:  runEnvelopesDelete,
	}

	cmd.Flags().Bool("yes", false, "skip the confirmation prompt")

	return cmd
}

func runEnvelopesDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sessions, err := sessionStore()
	if err != nil {
		return err
	}
	backend, err := newBackend(sessions)
	if err != nil {
		return err
	}

	env, err := resolveAccount(ctx, backend, args[0])
	if err != nil {
		return err
	}
	if env.Kind == model.KindPrimary {
		return common.NewUserError("The primary account cannot be deleted.", common.ErrInvalidConfig)
	}

	if skip, _ := cmd.Flags().GetBool("yes"); !skip {
		reader := cli.NewNonBlockingReader(os.Stdin)
		ok, confirmErr := reader.Confirm(ctx, os.Stdout,
			fmt.Sprintf("Delete %q and return %s to primary?", env.Name, cli.FormatAmount(env.Balance)),
			false)
		if confirmErr != nil {
			return confirmErr
		}
		if !ok {
			fmt.Println(cli.FormatInfo("Nothing deleted."))
			return nil
		}
	}

	if err := backend.DeleteEnvelope(ctx, env.ID); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Envelope %q deleted.", env.Name)))
	return nil
}
