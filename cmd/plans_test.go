package cmd

import (
	"testing"

	"github.com/habedi/paydash/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlansList_FillsCache(t *testing.T) {
	isolate(t)
	api, baseURL := newFakeAPI(t)
	signIn(t, baseURL)

	res := runCLI(t, baseURL, "", "plans", "list")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, planID)
	assert.Contains(t, res.stdout, "1/2")
	assert.Contains(t, res.stdout, "2026-01-01")

	res = runCLI(t, baseURL, "", "plans", "list", "--cached")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, planID)
	assert.NotContains(t, res.stderr, "Warning")

	_, planLists := api.counts()
	assert.Equal(t, 1, planLists, "cached listing does not contact the server")
}

func TestPlansList_SignOutClearsCache(t *testing.T) {
	isolate(t)
	_, baseURL := newFakeAPI(t)
	signIn(t, baseURL)

	require.Equal(t, 0, runCLI(t, baseURL, "", "plans", "list").code)
	require.Equal(t, 0, runCLI(t, baseURL, "", "signout").code)

	res := runCLI(t, baseURL, "", "plans", "list", "--cached")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "No payment plans found.")
	assert.Contains(t, res.stderr, "Warning: cached plans may be out of date.")
}

func TestPlansShow(t *testing.T) {
	isolate(t)
	_, baseURL := newFakeAPI(t)
	signIn(t, baseURL)

	res := runCLI(t, baseURL, "", "plans", "show", planID)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Merchant: shop@example.com")
	assert.Contains(t, res.stdout, "User: user@example.com")
	assert.Contains(t, res.stdout, installmentA)
	assert.Contains(t, res.stdout, installmentB)

	res = runCLI(t, baseURL, "", "plans", "show", "not-a-uuid")
	assert.Equal(t, 2, res.code)
}

func TestPlansPay(t *testing.T) {
	isolate(t)
	_, baseURL := newFakeAPI(t)
	signIn(t, baseURL)

	res := runCLI(t, baseURL, "", "plans", "pay", installmentA, installmentA)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, installmentA+": Paid")
	assert.Contains(t, res.stdout, "Paid 1 installment(s).")
}

func TestPlansPay_PartialFailure(t *testing.T) {
	isolate(t)
	_, baseURL := newFakeAPI(t)
	signIn(t, baseURL)

	res := runCLI(t, baseURL, "", "plans", "pay", "--workers", "2", installmentA, installmentB)
	assert.Equal(t, 4, res.code)
	assert.Contains(t, res.stdout, installmentA+": Paid")
	assert.Contains(t, res.stderr, "Failed to pay "+installmentB+": Installment already paid")
	assert.Contains(t, res.stderr, "1 of 2 payments failed")
}

func TestPlansPay_Validation(t *testing.T) {
	isolate(t)
	_, baseURL := newFakeAPI(t)

	res := runCLI(t, baseURL, "", "plans", "pay", "bogus")
	assert.Equal(t, 2, res.code)

	res = runCLI(t, baseURL, "", "plans", "pay", "--workers", "0", installmentA)
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "worker count must be between 1 and 20")
}

func TestPlansPay_RefreshedCredentialIsReused(t *testing.T) {
	isolate(t)
	api, baseURL := newFakeAPI(t)
	signIn(t, baseURL)
	api.expireAccess()
	api.mu.Lock()
	delete(api.paid, installmentB)
	api.mu.Unlock()

	res := runCLI(t, baseURL, "", "plans", "pay", "--workers", "1", installmentA, installmentB)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Paid 2 installment(s).")
	refreshes, _ := api.counts()
	assert.Equal(t, 1, refreshes)
}

func TestPlansCreate_Validation(t *testing.T) {
	isolate(t)
	_, baseURL := newFakeAPI(t)

	res := runCLI(t, baseURL, "", "plans", "create", "--user", "user@example.com", "--amount", "12.345")
	assert.Equal(t, 2, res.code)
}

func TestProgressOf(t *testing.T) {
	plan := client.Plan{Installments: []client.Installment{
		{DueDate: "2026-03-01", Status: "Pending"},
		{DueDate: "2026-01-01", Status: "Paid"},
		{DueDate: "2026-02-01", Status: "Late"},
	}}
	paid, next := progressOf(plan)
	assert.Equal(t, 1, paid)
	assert.Equal(t, "2026-02-01", next)

	paid, next = progressOf(client.Plan{})
	assert.Zero(t, paid)
	assert.Equal(t, "-", next)
}

func TestPlansCreate_UserFlagTakesAnID(t *testing.T) {
	flag := plansCreateCmd(&app{}).Flags().Lookup("user")
	require.NotNil(t, flag)
	assert.Contains(t, flag.Usage, "ID of the user")
}
