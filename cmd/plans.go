package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/habedi/paydash/client"
	"github.com/habedi/paydash/db"
	"github.com/habedi/paydash/pkg/clierr"
	"github.com/habedi/paydash/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func plansCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Manage payment plans",
	}

	cmd.AddCommand(
		plansListCmd(a),
		plansShowCmd(a),
		plansCreateCmd(a),
		plansPayCmd(a),
	)

	return cmd
}

func plansListCmd(a *app) *cobra.Command {
	var cached bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your payment plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var plans []client.Plan
			var err error
			if cached {
				plans, err = a.cachedPlans(cmd)
			} else {
				plans, err = a.fetchPlans(cmd.Context())
			}
			if err != nil {
				return err
			}
			if len(plans) == 0 {
				cmd.Println("No payment plans found.")
				return nil
			}

			table := newTable(cmd, []string{"Plan ID", "User", "Total", "Paid", "Start Date", "Next Due", "Status"})
			for _, p := range plans {
				paid, next := progressOf(p)
				user := p.UserEmail
				if user == "" {
					user = p.User
				}
				table.Append([]string{
					p.ID,
					user,
					p.TotalAmount,
					fmt.Sprintf("%d/%d", paid, p.NumberOfInstallments),
					p.StartDate,
					next,
					p.Status,
				})
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&cached, "cached", "c", false, "List the locally cached plans without contacting the server")
	return cmd
}

func plansShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [planID]",
		Short: "Show the installments of a payment plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if err := validation.ValidateUUID("plan ID", id); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			plans, err := a.fetchPlans(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range plans {
				if p.ID == id {
					printPlan(cmd, p)
					return nil
				}
			}
			return clierr.New(clierr.HTTP, fmt.Sprintf("No payment plan found with ID %s", id), nil)
		},
	}
}

func plansCreateCmd(a *app) *cobra.Command {
	var req client.PlanRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a payment plan for a user (merchants only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.StartDate == "" {
				req.StartDate = time.Now().Format(validation.DateLayout)
			}
			plan, err := a.client.CreatePlan(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.dropPlanCache(cmd.Context())
			cmd.Println("Payment plan created.")
			printPlan(cmd, *plan)
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.User, "user", "u", "", "ID of the user (see 'paydash users list')")
	cmd.Flags().StringVarP(&req.TotalAmount, "amount", "a", "", "Total amount, e.g. 1200.00")
	cmd.Flags().IntVarP(&req.NumberOfInstallments, "installments", "n", 4, "Number of installments")
	cmd.Flags().StringVarP(&req.StartDate, "start", "s", "", "Start date as YYYY-MM-DD (default today)")
	return cmd
}

// fetchPlans lists plans from the server and refreshes the local cache.
func (a *app) fetchPlans(ctx context.Context) ([]client.Plan, error) {
	plans, err := a.client.ListPlans(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]db.PlanRecord, 0, len(plans))
	for _, p := range plans {
		data, err := json.Marshal(p)
		if err != nil {
			log.Warn().Err(err).Str("plan", p.ID).Msg("Failed to encode plan for the cache")
			continue
		}
		records = append(records, db.PlanRecord{ID: p.ID, Status: p.Status, Data: string(data)})
	}
	cache, err := a.planCache()
	if err == nil {
		err = cache.Replace(ctx, records)
	}
	if err != nil {
		log.Warn().Err(err).Msg("Failed to update plan cache")
	}
	return plans, nil
}

// cachedPlans reads plans from the local cache, warning when it is stale.
func (a *app) cachedPlans(cmd *cobra.Command) ([]client.Plan, error) {
	ctx := cmd.Context()
	cache, err := a.planCache()
	if err != nil {
		return nil, clierr.New(clierr.Internal, err.Error(), err)
	}
	stale, err := cache.Stale(ctx)
	if err != nil {
		return nil, clierr.New(clierr.Internal, fmt.Sprintf("Failed to read plan cache: %v", err), err)
	}
	if stale {
		cmd.PrintErrln("Warning: cached plans may be out of date. Run `paydash plans list` to refresh them.")
	}

	records, err := cache.List(ctx)
	if err != nil {
		return nil, clierr.New(clierr.Internal, fmt.Sprintf("Failed to read plan cache: %v", err), err)
	}
	plans := make([]client.Plan, 0, len(records))
	for _, r := range records {
		var p client.Plan
		if err := json.Unmarshal([]byte(r.Data), &p); err != nil {
			log.Warn().Err(err).Str("plan", r.ID).Msg("Skipping unreadable cached plan")
			continue
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// progressOf returns the number of paid installments and the due date of the
// earliest unpaid one, or "-" when every installment is paid.
func progressOf(p client.Plan) (int, string) {
	paid := 0
	next := ""
	for _, inst := range p.Installments {
		if inst.Status == "Paid" {
			paid++
			continue
		}
		if next == "" || inst.DueDate < next {
			next = inst.DueDate
		}
	}
	if next == "" {
		next = "-"
	}
	return paid, next
}

func printPlan(cmd *cobra.Command, p client.Plan) {
	cmd.Println("Plan ID:", p.ID)
	if p.MerchantEmail != "" {
		cmd.Println("Merchant:", p.MerchantEmail)
	}
	if p.UserEmail != "" {
		cmd.Println("User:", p.UserEmail)
	}
	cmd.Println("Total:", p.TotalAmount)
	cmd.Println("Start date:", p.StartDate)
	if p.Status != "" {
		cmd.Println("Status:", p.Status)
	}
	if len(p.Installments) == 0 {
		return
	}

	installments := append([]client.Installment(nil), p.Installments...)
	sort.SliceStable(installments, func(i, j int) bool {
		return installments[i].DueDate < installments[j].DueDate
	})
	table := newTable(cmd, []string{"#", "Installment ID", "Due Date", "Amount", "Status"})
	for i, inst := range installments {
		table.Append([]string{fmt.Sprintf("%d", i+1), inst.ID, inst.DueDate, inst.Amount, inst.Status})
	}
	table.Render()
}
