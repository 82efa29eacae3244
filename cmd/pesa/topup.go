package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pesawallet/pesa/internal/certs"
	"github.com/pesawallet/pesa/internal/cli"
	"github.com/pesawallet/pesa/internal/common"
	"github.com/pesawallet/pesa/internal/config"
	"github.com/pesawallet/pesa/internal/model"
	"github.com/pesawallet/pesa/internal/payment"
	"github.com/pesawallet/pesa/internal/service"
	"github.com/pesawallet/pesa/internal/tui"
)

func topupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topup",
		Short: "Top up your wallet via card checkout",
	}

	cmd.AddCommand(topupStartCmd())
	cmd.AddCommand(topupVerifyCmd())
	cmd.AddCommand(topupPendingCmd())

	return cmd
}

func topupStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <amount>",
		Short: "Start a top-up and wait for the checkout to complete",
		Args:  cobra.ExactArgs(1),
		RunE:  runTopupStart,
	}

	cmd.Flags().Bool("no-browser", false, "print the checkout URL instead of opening a browser")
	cmd.Flags().Int("callback-port", 0, "local port for the payment callback (0 picks a free one)")
	cmd.Flags().Bool("secure", false, "serve the payment callback over HTTPS with a self-signed certificate")
	_ = viper.BindPFlag("topup.callback_port", cmd.Flags().Lookup("callback-port"))

	return cmd
}

func runTopupStart(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	amount, err := parseAmount(args[0])
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sessions, err := sessionStore()
	if err != nil {
		return err
	}
	backend, err := newBackend(sessions)
	if err != nil {
		return err
	}

	flow := payment.New(backend, store, service.RetryOptions{})

	// Surface older unresolved attempts before starting a new one
	if pending, pendErr := flow.Pending(ctx); pendErr == nil && len(pending) > 0 {
		fmt.Println(cli.RenderPendingTopUps(pending))
		fmt.Println()
	}

	checkout, err := flow.InitiateTopUp(ctx, amount)
	if err != nil {
		return err
	}

	listener := payment.NewListener(viper.GetInt("topup.callback_port"))
	if secure, _ := cmd.Flags().GetBool("secure"); secure {
		configDir, dirErr := config.Dir()
		if dirErr != nil {
			return dirErr
		}
		cert, certErr := certs.NewFileManager(filepath.Join(configDir, "certs")).GetOrCreateCertificate()
		if certErr != nil {
			return fmt.Errorf("failed to prepare callback certificate: %w", certErr)
		}
		listener.UseTLS(cert)
	}
	if _, startErr := listener.Start(); startErr != nil {
		return fmt.Errorf("failed to start callback listener: %w", startErr)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = listener.Close(closeCtx)
	}()

	if noBrowser, _ := cmd.Flags().GetBool("no-browser"); noBrowser {
		fmt.Println(cli.FormatInfo("Complete your payment at: " + checkout.CheckoutURL))
	} else {
		openBrowser(checkout.CheckoutURL)
	}

	result, err := tui.Await(ctx, tui.AwaitConfig{
		Verifier:    flow,
		Callbacks:   listener.References(),
		Reference:   checkout.Reference,
		CheckoutURL: checkout.CheckoutURL,
	})
	if err != nil {
		return err
	}

	switch {
	case result.Abandoned:
		fmt.Println(cli.FormatWarning("Top-up left pending. Resolve it later with 'pesa topup verify " + checkout.Reference + "'."))
	case result.Err != nil:
		return result.Err
	case result.Result.Outcome.Settled():
		fmt.Println(cli.FormatSuccess("Wallet topped up with " + cli.FormatAmount(result.Result.Amount)))
	default:
		return common.NewUserError("The payment was not successful. You have not been charged.", nil)
	}
	return nil
}

func topupVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <reference>",
		Short: "Verify a top-up reference against the backend",
		Args:  cobra.ExactArgs(1),
		RunE:  runTopupVerify,
	}

	cmd.Flags().Bool("wait", false, "poll until the payment settles or attempts run out")
	cmd.Flags().Int("attempts", 10, "polling attempts with --wait")
	cmd.Flags().Duration("interval", 6*time.Second, "delay between polling attempts")

	return cmd
}

func runTopupVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reference := args[0]

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sessions, err := sessionStore()
	if err != nil {
		return err
	}
	backend, err := newBackend(sessions)
	if err != nil {
		return err
	}

	flow := payment.New(backend, store, service.RetryOptions{})

	wait, _ := cmd.Flags().GetBool("wait")
	if !wait {
		result, verifyErr := flow.Verify(ctx, reference)
		if verifyErr != nil {
			return verifyErr
		}
		return printVerification(result)
	}

	attempts, _ := cmd.Flags().GetInt("attempts")
	interval, _ := cmd.Flags().GetDuration("interval")

	bar := progressbar.NewOptions(attempts,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Waiting for payment to settle...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "▕",
			BarEnd:        "▏",
		}),
	)

	var result model.VerificationResult
	for i := 0; i < attempts; i++ {
		result, err = flow.Verify(ctx, reference)
		_ = bar.Add(1)
		if err == nil && result.Outcome != model.OutcomeFailed {
			break
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return err
	}
	return printVerification(result)
}

func printVerification(result model.VerificationResult) error {
	switch result.Outcome {
	case model.OutcomeSuccess:
		fmt.Println(cli.FormatSuccess("Top-up verified: " + cli.FormatAmount(result.Amount)))
	case model.OutcomeAlreadyProcessed:
		fmt.Println(cli.FormatSuccess("This top-up was already verified. Your balance is up to date."))
	default:
		return common.NewUserError("The payment did not go through. You have not been charged.", nil)
	}
	return nil
}

func topupPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List unresolved top-up references",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			pending, err := store.ListPendingTopUps(ctx)
			if err != nil {
				return err
			}
			fmt.Println(cli.RenderPendingTopUps(pending))
			return nil
		},
	}
}
