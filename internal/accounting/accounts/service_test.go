package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/meridian-erp/meridian-erp/testing"
)

type memoryChart struct {
	byCode map[string]Account
	nextID int64
}

func newMemoryChart() *memoryChart {
	return &memoryChart{byCode: map[string]Account{}}
}

func (m *memoryChart) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryChart) GetByCode(ctx context.Context, code string) (Account, error) {
	acc, ok := m.byCode[code]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return acc, nil
}

func (m *memoryChart) List(ctx context.Context) ([]Account, error) {
	out := make([]Account, 0, len(m.byCode))
	for _, acc := range m.byCode {
		out = append(out, acc)
	}
	return out, nil
}

func (m *memoryChart) Insert(ctx context.Context, account Account) (Account, error) {
	m.nextID++
	account.ID = m.nextID
	m.byCode[account.Code] = account
	return account, nil
}

func TestResolveCreatesUnderRootGroup(t *testing.T) {
	chart := newMemoryChart()
	resolver := NewResolver(chart, nil, nil)

	acc, err := resolver.Resolve(context.Background(), RoleCash)
	require.NoError(t, err)
	require.Equal(t, "1231", acc.Code)
	require.Equal(t, AccountTypeAsset, acc.Type)
	require.True(t, acc.CashEquivalent)
	require.NotNil(t, acc.ParentID)

	// The root asset group was auto-created to hang the account from.
	root, err := chart.GetByCode(context.Background(), "1")
	require.NoError(t, err)
	require.True(t, root.IsGroup)
	require.Equal(t, root.ID, *acc.ParentID)
}

func TestResolveIsIdempotent(t *testing.T) {
	chart := newMemoryChart()
	resolver := NewResolver(chart, nil, nil)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, RoleSuppliers)
	require.NoError(t, err)
	second, err := resolver.Resolve(ctx, RoleSuppliers)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestResolveAllReportsEveryMissingRole(t *testing.T) {
	chart := newMemoryChart()
	resolver := NewResolver(chart, nil, nil)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, RoleCash)
	require.NoError(t, err)

	_, err = resolver.ResolveAll(ctx, RoleCash, RoleSalesRevenue, RoleCOGS)
	var cfg *ConfigurationError
	require.ErrorAs(t, err, &cfg)
	require.ElementsMatch(t, []Role{RoleSalesRevenue, RoleCOGS}, cfg.Roles)

	// ResolveAll never creates; only Resolve and EnsureAll do.
	_, getErr := chart.GetByCode(ctx, "411")
	require.ErrorIs(t, getErr, ErrAccountNotFound)
}

func TestEnsureAllThenRetry(t *testing.T) {
	chart := newMemoryChart()
	resolver := NewResolver(chart, nil, nil)
	ctx := context.Background()

	created, err := resolver.EnsureAll(ctx, []Role{RoleSalesRevenue, RoleCOGS})
	require.NoError(t, err)
	require.Len(t, created, 2)

	resolved, err := resolver.ResolveAll(ctx, RoleSalesRevenue, RoleCOGS)
	require.NoError(t, err)
	require.Equal(t, "411", resolved[RoleSalesRevenue].Code)
	require.Equal(t, "511", resolved[RoleCOGS].Code)
}

func TestEnsureSystemAccountsBootstrap(t *testing.T) {
	chart := newMemoryChart()
	resolver := NewResolver(chart, nil, nil)
	ctx := context.Background()

	created, err := resolver.EnsureSystemAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, created, len(AllRoles()))

	// Second run finds everything in place.
	again, err := resolver.EnsureSystemAccounts(ctx)
	require.NoError(t, err)
	require.Empty(t, again)

	resolved, err := resolver.ResolveAll(ctx, AllRoles()...)
	require.NoError(t, err)
	require.Len(t, resolved, len(AllRoles()))
}

func TestUnknownRoleIsConfigurationError(t *testing.T) {
	chart := newMemoryChart()
	resolver := NewResolver(chart, nil, nil)

	_, err := resolver.Resolve(context.Background(), Role("NOT_A_ROLE"))
	var cfg *ConfigurationError
	require.ErrorAs(t, err, &cfg)
}

func TestNatureFollowsType(t *testing.T) {
	require.Equal(t, NatureDebit, NatureOf(AccountTypeAsset))
	require.Equal(t, NatureDebit, NatureOf(AccountTypeExpense))
	require.Equal(t, NatureCredit, NatureOf(AccountTypeLiability))
	require.Equal(t, NatureCredit, NatureOf(AccountTypeEquity))
	require.Equal(t, NatureCredit, NatureOf(AccountTypeRevenue))
}
