package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pesawallet/pesa/internal/cli"
	"github.com/pesawallet/pesa/internal/common"
	"github.com/pesawallet/pesa/internal/model"
)

func incomesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "incomes",
		Short: "Manage scheduled income sources",
	}

	cmd.AddCommand(incomesListCmd())
	cmd.AddCommand(incomesAddCmd())
	cmd.AddCommand(incomesEditCmd())
	cmd.AddCommand(incomesDeleteCmd())

	return cmd
}

func incomesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List income schedules",
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

			incomes, err := backend.Incomes(ctx)
			if err != nil {
				return err
			}
			if len(incomes) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No income schedules yet. Add one with 'pesa incomes add'."))
				return nil
			}

			for _, inc := range incomes {
				line := fmt.Sprintf("%-20s %s %s",
					inc.SourceName,
					cli.AmountInStyle.Render(cli.FormatAmount(inc.Amount)),
					cli.SubtleStyle.Render(strings.ToLower(string(inc.Frequency))))
				if !inc.NextPayout.IsZero() {
					line += cli.SubtleStyle.Render("  next " + inc.NextPayout.Format("Jan 02"))
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func incomesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <source> <amount>",
		Short: "Add a recurring income",
		Args:  cobra.ExactArgs(2),
		RunE:  runIncomesAdd,
	}

	cmd.Flags().String("frequency", "MONTHLY", "payout frequency: WEEKLY, BIWEEKLY, or MONTHLY")
	cmd.Flags().String("into", "", "account credited on payout (default: primary)")

	return cmd
}

func runIncomesAdd(cmd *cobra.Command, args []string) error {
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

	intoName, _ := cmd.Flags().GetString("into")
	into, err := resolveAccount(ctx, backend, intoName)
	if err != nil {
		return err
	}

	frequency, _ := cmd.Flags().GetString("frequency")
	schedule := model.IncomeSchedule{
		SourceName: args[0],
		AccountID:  into.ID,
		Amount:     amount,
		Frequency:  model.IncomeFrequency(strings.ToUpper(frequency)),
	}
	if err := schedule.Validate(); err != nil {
		return common.NewUserError(err.Error(), common.ErrInvalidConfig)
	}

	created, err := backend.CreateIncome(ctx, schedule)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Income %q scheduled, first payout %s.",
		created.SourceName, created.NextPayout.Format("Jan 02"))))
	return nil
}

func incomesEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update an income schedule",
		Args:  cobra.ExactArgs(1),
		RunE:  runIncomesEdit,
	}

	cmd.Flags().String("amount", "", "new amount")
	cmd.Flags().String("frequency", "", "new frequency")
	cmd.Flags().String("source", "", "new source name")

	return cmd
}

func runIncomesEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sessions, err := sessionStore()
	if err != nil {
		return err
	}
	backend, err := newBackend(sessions)
	if err != nil {
		return err
	}

	incomes, err := backend.Incomes(ctx)
	if err != nil {
		return err
	}

	var schedule *model.IncomeSchedule
	for i := range incomes {
		if incomes[i].ID == args[0] || incomes[i].SourceName == args[0] {
			schedule = &incomes[i]
			break
		}
	}
	if schedule == nil {
		return common.NewUserError(fmt.Sprintf("No income schedule %q.", args[0]), common.ErrNotFound)
	}

	changed := false
	if raw, _ := cmd.Flags().GetString("amount"); raw != "" {
		amount, parseErr := parseAmount(raw)
		if parseErr != nil {
			return parseErr
		}
		schedule.Amount = amount
		changed = true
	}
	if raw, _ := cmd.Flags().GetString("frequency"); raw != "" {
		schedule.Frequency = model.IncomeFrequency(strings.ToUpper(raw))
		changed = true
	}
	if raw, _ := cmd.Flags().GetString("source"); raw != "" {
		schedule.SourceName = raw
		changed = true
	}
	if !changed {
		return common.NewUserError("Nothing to change. Pass --amount, --frequency, or --source.", common.ErrInvalidConfig)
	}
	if err := schedule.Validate(); err != nil {
		return common.NewUserError(err.Error(), common.ErrInvalidConfig)
	}

	updated, err := backend.UpdateIncome(ctx, *schedule)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Income %q updated.", updated.SourceName)))
	return nil
}

func incomesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove an income schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sessions, err := sessionStore()
			if err != nil {
				return err
			}
			backend, err := newBackend(sessions)
			if err != nil {
				return err
			}

			if err := backend.DeleteIncome(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Income schedule removed."))
			return nil
		},
	}
}
