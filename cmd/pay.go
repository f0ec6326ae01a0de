package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/habedi/paydash/auth"
	"github.com/habedi/paydash/pkg/clierr"
	"github.com/habedi/paydash/pkg/pool"
	"github.com/habedi/paydash/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func plansPayCmd(a *app) *cobra.Command {
	var numWorkers int

	cmd := &cobra.Command{
		Use:   "pay [installmentID]...",
		Short: "Pay one or more installments",
		Long:  "Pay installments by ID. Several installments are paid concurrently.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateWorkerCount(numWorkers); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			ids, err := uniqueIDs(args)
			if err != nil {
				return err
			}
			return a.payInstallments(cmd, ids, numWorkers)
		},
	}

	cmd.Flags().IntVarP(&numWorkers, "workers", "w", 4, "Number of installments paid concurrently [1-20]")
	return cmd
}

// uniqueIDs validates ids and drops repeats, keeping the first occurrence.
func uniqueIDs(ids []string) ([]string, error) {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if err := validation.ValidateUUID("installment ID", id); err != nil {
			return nil, clierr.New(clierr.Validation, err.Error(), err)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

func (a *app) payInstallments(cmd *cobra.Command, ids []string, numWorkers int) error {
	ctx := cmd.Context()

	bar := progressbar.NewOptions(len(ids),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("Paying installments..."),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var mu sync.Mutex
	statuses := make(map[string]string, len(ids))
	payFunc := func(ctx context.Context, id string) error {
		inst, err := a.client.PayInstallment(ctx, id, nil)
		if err != nil {
			return err
		}
		status := "Paid"
		if inst != nil && inst.Status != "" {
			status = inst.Status
		}
		mu.Lock()
		statuses[id] = status
		mu.Unlock()
		return nil
	}

	var failures []pool.Result[string]
	pool.RunEach(ctx, ids, numWorkers, payFunc, func(r pool.Result[string]) {
		if err := bar.Add(1); err != nil {
			log.Debug().Err(err).Msg("Failed to update progress bar")
		}
		if r.Err != nil {
			log.Error().Err(r.Err).Str("installment", r.Item).Msg("Payment failed")
			failures = append(failures, r)
		}
	})
	if err := bar.Finish(); err != nil {
		log.Debug().Err(err).Msg("Failed to finish progress bar")
	}

	if len(statuses) > 0 {
		a.dropPlanCache(ctx)
	}
	for _, id := range ids {
		if status, ok := statuses[id]; ok {
			cmd.Printf("%s: %s\n", id, status)
		}
	}

	if len(failures) == 0 {
		if skipped := len(ids) - len(statuses); skipped > 0 {
			return clierr.New(clierr.Internal, fmt.Sprintf("%d payments were not attempted", skipped), ctx.Err())
		}
		cmd.Printf("Paid %d installment(s).\n", len(ids))
		return nil
	}

	for _, f := range failures {
		if auth.SignedOut(f.Err) {
			return f.Err
		}
	}
	for _, f := range failures {
		cmd.PrintErrf("Failed to pay %s: %s\n", f.Item, clierr.FromError(f.Err).Message)
	}
	first := clierr.FromError(failures[0].Err)
	return clierr.New(first.Type, fmt.Sprintf("%d of %d payments failed", len(failures), len(ids)), failures[0].Err)
}
