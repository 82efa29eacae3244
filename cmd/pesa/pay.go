package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pesawallet/pesa/internal/api"
	"github.com/pesawallet/pesa/internal/cli"
	"github.com/pesawallet/pesa/internal/common"
	"github.com/pesawallet/pesa/internal/model"
	"github.com/pesawallet/pesa/internal/service"
)

func payCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pay <till-or-phone> <amount>",
		Short: "Pay a till, paybill, or phone number from an envelope",
		Args:  cobra.ExactArgs(2),
		RunE:  runPay,
	}

	cmd.Flags().String("from", "", "envelope to pay from (default: primary account)")
	cmd.Flags().String("account", "", "paybill account reference")
	cmd.Flags().String("desc", "", "payment description")
	cmd.Flags().Bool("yes", false, "skip the overspend confirmation prompt")

	return cmd
}

func runPay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}

	sessions, err := sessionStore()
	if err != nil {
		return err
	}
	backend, err := newBackend(sessions)
	if err != nil {
		return err
	}

	fromName, _ := cmd.Flags().GetString("from")
	from, err := resolveAccount(ctx, backend, fromName)
	if err != nil {
		return err
	}

	// Overspend rules are enforced server-side too; checking here saves a
	// round trip for payments that cannot succeed.
	if from.IsBudgeted() && amount.GreaterThan(from.Balance) {
		switch from.OverspendRule {
		case model.OverspendBlock:
			return common.NewUserError(
				fmt.Sprintf("Envelope %q blocks overspending. It holds %s.", from.Name, cli.FormatAmount(from.Balance)),
				common.ErrInvalidAmount)
		case model.OverspendWarn:
			skip, _ := cmd.Flags().GetBool("yes")
			if !skip {
				reader := cli.NewNonBlockingReader(os.Stdin)
				ok, confirmErr := reader.Confirm(ctx, os.Stdout,
					fmt.Sprintf("This exceeds the %s left in %q. Pay anyway?", cli.FormatAmount(from.Balance), from.Name),
					false)
				if confirmErr != nil {
					return confirmErr
				}
				if !ok {
					fmt.Println(cli.FormatInfo("Payment canceled."))
					return nil
				}
			}
		}
	}

	description, _ := cmd.Flags().GetString("desc")
	accountRef, _ := cmd.Flags().GetString("account")

	err = backend.Pay(ctx, service.PaymentRequest{
		FromAccountID: from.ID,
		ToNumber:      args[0],
		AccountNumber: accountRef,
		Description:   description,
		Amount:        amount,
	})
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Paid %s to %s from %q.", cli.FormatAmount(amount), args[0], from.Name)))
	return nil
}

func transferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer <from-envelope> <to-envelope> <amount>",
		Short: "Move money between envelopes",
		Args:  cobra.ExactArgs(3),
		RunE:  runTransfer,
	}
	return cmd
}

func runTransfer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	amount, err := parseAmount(args[2])
	if err != nil {
		return err
	}

	sessions, err := sessionStore()
	if err != nil {
		return err
	}
	backend, err := newBackend(sessions)
	if err != nil {
		return err
	}

	from, err := resolveAccount(ctx, backend, args[0])
	if err != nil {
		return err
	}
	to, err := resolveAccount(ctx, backend, args[1])
	if err != nil {
		return err
	}
	if from.ID == to.ID {
		return common.NewUserError("Source and destination are the same envelope.", common.ErrInvalidConfig)
	}

	if err := backend.Transfer(ctx, from.ID, to.ID, amount); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Moved %s from %q to %q.", cli.FormatAmount(amount), from.Name, to.Name)))
	return nil
}

func allocateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocate <envelope> <amount>",
		Short: "Fund an envelope from your primary account",
		Args:  cobra.ExactArgs(2),
		RunE:  runAllocate,
	}
	return cmd
}

func runAllocate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}

	sessions, err := sessionStore()
	if err != nil {
		return err
	}
	backend, err := newBackend(sessions)
	if err != nil {
		return err
	}

	envelope, err := resolveAccount(ctx, backend, args[0])
	if err != nil {
		return err
	}
	if envelope.Kind != model.KindDigital {
		return common.NewUserError("Allocations fund envelopes, not the primary account.", common.ErrInvalidConfig)
	}

	primary, err := backend.PrimaryAccount(ctx)
	if err != nil {
		return err
	}
	if amount.GreaterThan(primary.Balance) {
		return common.NewUserError(
			fmt.Sprintf("Your primary account holds %s.", cli.FormatAmount(primary.Balance)),
			common.ErrInvalidAmount)
	}

	if err := backend.Allocate(ctx, envelope.ID, amount); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Allocated %s to %q.", cli.FormatAmount(amount), envelope.Name)))
	return nil
}

// resolveAccount finds an account by name or ID. An empty name resolves
// to the primary account.
func resolveAccount(ctx context.Context, backend *api.Client, name string) (*model.AccountSnapshot, error) {
	if name == "" {
		return backend.PrimaryAccount(ctx)
	}

	accounts, err := backend.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].Name == name || accounts[i].ID == name {
			return &accounts[i], nil
		}
	}
	return nil, common.NewUserError(
		fmt.Sprintf("No envelope named %q. Run 'pesa envelopes list' to see yours.", name),
		common.ErrNotFound)
}
