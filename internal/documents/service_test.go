package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/accounting/accounts"
	"github.com/meridian-erp/meridian-erp/internal/accounting/journals"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	_ "github.com/meridian-erp/meridian-erp/testing"
)

type fakeResolver struct {
	missing map[accounts.Role]bool
	ids     map[accounts.Role]int64
	nextID  int64
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{missing: map[accounts.Role]bool{}, ids: map[accounts.Role]int64{}}
}

func (f *fakeResolver) ResolveAll(ctx context.Context, roles ...accounts.Role) (map[accounts.Role]accounts.Account, error) {
	var absent []accounts.Role
	out := map[accounts.Role]accounts.Account{}
	for _, role := range roles {
		if f.missing[role] {
			absent = append(absent, role)
			continue
		}
		if _, ok := f.ids[role]; !ok {
			f.nextID++
			f.ids[role] = f.nextID
		}
		spec, _ := role.Spec()
		out[role] = accounts.Account{ID: f.ids[role], Code: spec.Code, Name: spec.Name}
	}
	if len(absent) > 0 {
		return nil, &accounts.ConfigurationError{Roles: absent}
	}
	return out, nil
}

type fakeLedger struct {
	posted   []journals.PostingInput
	reversed []journals.ReverseInput
	failPost error
	nextID   int64
}

func (f *fakeLedger) Post(ctx context.Context, input journals.PostingInput) (journals.JournalEntry, error) {
	if f.failPost != nil {
		return journals.JournalEntry{}, f.failPost
	}
	if err := input.Validate(); err != nil {
		return journals.JournalEntry{}, err
	}
	f.nextID++
	f.posted = append(f.posted, input)
	return journals.JournalEntry{ID: f.nextID, Status: journals.EntryStatusPosted}, nil
}

func (f *fakeLedger) Reverse(ctx context.Context, input journals.ReverseInput) (journals.JournalEntry, error) {
	f.nextID++
	f.reversed = append(f.reversed, input)
	return journals.JournalEntry{ID: f.nextID, Status: journals.EntryStatusPosted}, nil
}

// fakeStock derives balances by replaying its movement list, mirroring the
// valuation engine's rules closely enough for pipeline tests.
type fakeStock struct {
	movements []inventory.Movement
	nextID    int64
}

func (f *fakeStock) state(productID, warehouseID int64) (float64, float64) {
	var qty, cost float64
	for _, m := range f.movements {
		if m.ProductID != productID || m.WarehouseID != warehouseID {
			continue
		}
		newQty := qty + m.Quantity
		if m.Quantity > 0 && newQty != 0 {
			cost = (qty*cost + m.Quantity*m.UnitCost) / newQty
		}
		qty = newQty
	}
	return qty, cost
}

func (f *fakeStock) seed(productID, warehouseID int64, qty, unitCost float64) {
	f.nextID++
	f.movements = append(f.movements, inventory.Movement{
		ID: f.nextID, ProductID: productID, WarehouseID: warehouseID,
		Type: inventory.MovementOpening, Quantity: qty, UnitCost: unitCost,
	})
}

func (f *fakeStock) ApplyInbound(ctx context.Context, in inventory.InboundInput) (inventory.MovementResult, error) {
	if in.Qty <= 0 {
		return inventory.MovementResult{}, inventory.ErrInvalidQuantity
	}
	f.nextID++
	f.movements = append(f.movements, inventory.Movement{
		ID: f.nextID, ProductID: in.ProductID, WarehouseID: in.WarehouseID,
		Type: in.Type, Quantity: in.Qty, UnitCost: in.UnitCost,
	})
	qty, cost := f.state(in.ProductID, in.WarehouseID)
	return inventory.MovementResult{
		MovementID: f.nextID, ProductID: in.ProductID, WarehouseID: in.WarehouseID,
		Type: in.Type, Quantity: in.Qty, UnitCost: in.UnitCost,
		BalanceQty: qty, BalanceCost: cost,
	}, nil
}

func (f *fakeStock) ApplyOutbound(ctx context.Context, in inventory.OutboundInput) (inventory.MovementResult, error) {
	if in.Qty <= 0 {
		return inventory.MovementResult{}, inventory.ErrInvalidQuantity
	}
	_, cost := f.state(in.ProductID, in.WarehouseID)
	f.nextID++
	f.movements = append(f.movements, inventory.Movement{
		ID: f.nextID, ProductID: in.ProductID, WarehouseID: in.WarehouseID,
		Type: in.Type, Quantity: -in.Qty, UnitCost: cost,
	})
	qty, _ := f.state(in.ProductID, in.WarehouseID)
	return inventory.MovementResult{
		MovementID: f.nextID, ProductID: in.ProductID, WarehouseID: in.WarehouseID,
		Type: in.Type, Quantity: -in.Qty, UnitCost: cost,
		BalanceQty: qty, BalanceCost: cost, Shortfall: qty < 0,
	}, nil
}

func (f *fakeStock) Revert(ctx context.Context, movementID int64) error {
	for i, m := range f.movements {
		if m.ID == movementID {
			f.movements = append(f.movements[:i], f.movements[i+1:]...)
			return nil
		}
	}
	return inventory.ErrMovementNotFound
}

func (f *fakeStock) Balances(ctx context.Context, productID int64) ([]inventory.Balance, error) {
	seen := map[int64]bool{}
	var out []inventory.Balance
	for _, m := range f.movements {
		if m.ProductID != productID || seen[m.WarehouseID] {
			continue
		}
		seen[m.WarehouseID] = true
		qty, cost := f.state(productID, m.WarehouseID)
		out = append(out, inventory.Balance{ProductID: productID, WarehouseID: m.WarehouseID, Qty: qty, AvgCost: cost})
	}
	return out, nil
}

type fakeDocRepo struct {
	docs         map[uuid.UUID]Document
	links        map[uuid.UUID][]int64
	failSetEntry error
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: map[uuid.UUID]Document{}, links: map[uuid.UUID][]int64{}}
}

func (f *fakeDocRepo) Insert(ctx context.Context, doc Document) error {
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.docs, id)
	delete(f.links, id)
	return nil
}

func (f *fakeDocRepo) SetEntryID(ctx context.Context, id uuid.UUID, entryID int64) error {
	if f.failSetEntry != nil {
		return f.failSetEntry
	}
	doc := f.docs[id]
	doc.EntryID = &entryID
	f.docs[id] = doc
	return nil
}

func (f *fakeDocRepo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	doc, ok := f.docs[id]
	if !ok {
		return ErrDocumentNotFound
	}
	doc.Status = status
	f.docs[id] = doc
	return nil
}

func (f *fakeDocRepo) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return Document{}, ErrDocumentNotFound
	}
	return doc, nil
}

func (f *fakeDocRepo) List(ctx context.Context, kind Kind) ([]Document, error) {
	var out []Document
	for _, doc := range f.docs {
		if kind == "" || doc.Kind == kind {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (f *fakeDocRepo) LinkMovements(ctx context.Context, id uuid.UUID, movementIDs []int64) error {
	f.links[id] = append(f.links[id], movementIDs...)
	return nil
}

func (f *fakeDocRepo) MovementIDs(ctx context.Context, id uuid.UUID) ([]int64, error) {
	return f.links[id], nil
}

type fakeIdem struct {
	keys map[string]bool
}

func newFakeIdem() *fakeIdem { return &fakeIdem{keys: map[string]bool{}} }

func (f *fakeIdem) CheckAndInsert(ctx context.Context, key, module string) error {
	if f.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	f.keys[key] = true
	return nil
}

func (f *fakeIdem) Delete(ctx context.Context, key string) error {
	delete(f.keys, key)
	return nil
}

type fixture struct {
	svc      *Service
	resolver *fakeResolver
	ledger   *fakeLedger
	stock    *fakeStock
	repo     *fakeDocRepo
	idem     *fakeIdem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		resolver: newFakeResolver(),
		ledger:   &fakeLedger{},
		stock:    &fakeStock{},
		repo:     newFakeDocRepo(),
		idem:     newFakeIdem(),
	}
	f.svc = NewService(ServiceParams{
		Resolver: f.resolver,
		Ledger:   f.ledger,
		Stock:    f.stock,
		Repo:     f.repo,
		Idem:     f.idem,
	})
	f.svc.WithNow(func() time.Time { return time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC) })
	return f
}

func docDate() time.Time {
	return time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
}

func lineAmounts(input journals.PostingInput, accountID int64) (debit, credit float64) {
	for _, l := range input.Lines {
		if l.AccountID == accountID {
			debit += l.Debit
			credit += l.Credit
		}
	}
	return debit, credit
}

func TestPayrollRunConsolidatedEntry(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.ApplyDocument(context.Background(), Intent{
		Kind:      KindPayrollRun,
		Date:      docDate(),
		Reference: "PAY-2025-04",
		ActorID:   9,
		PayrollRun: &PayrollRunIntent{
			Period: "2025-04",
			Employees: []PayrollEmployee{
				{EmployeeID: 1, Gross: 5000, AdvanceRecovered: 1000},
				{EmployeeID: 2, Gross: 6000},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, f.ledger.posted, 1)

	input := f.ledger.posted[0]
	require.Len(t, input.Lines, 3)
	salaries, _ := lineAmounts(input, f.resolver.ids[accounts.RoleSalariesExpense])
	require.InDelta(t, 11000.0, salaries, 0.01)
	_, advances := lineAmounts(input, f.resolver.ids[accounts.RoleEmployeeAdvances])
	require.InDelta(t, 1000.0, advances, 0.01)
	_, cash := lineAmounts(input, f.resolver.ids[accounts.RoleCash])
	require.InDelta(t, 10000.0, cash, 0.01)

	doc, err := f.repo.Get(context.Background(), out.DocumentID)
	require.NoError(t, err)
	require.Equal(t, StatusPosted, doc.Status)
	require.NotNil(t, doc.EntryID)
	require.InDelta(t, 10000.0, out.Total, 0.01)
}

func TestPayrollRunAbortsOnNegativeNet(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ApplyDocument(context.Background(), Intent{
		Kind:      KindPayrollRun,
		Date:      docDate(),
		Reference: "PAY-2025-05",
		PayrollRun: &PayrollRunIntent{
			Period: "2025-05",
			Employees: []PayrollEmployee{
				{EmployeeID: 1, Gross: 5000},
				{EmployeeID: 2, Gross: 500, AdvanceRecovered: 900},
			},
		},
	})
	require.Error(t, err)
	require.Empty(t, f.ledger.posted)
	require.Empty(t, f.repo.docs)
	require.Empty(t, f.idem.keys)
}

func TestStockAdjustmentShortage(t *testing.T) {
	f := newFixture(t)
	f.stock.seed(10, 1, 50, 20)

	_, err := f.svc.ApplyDocument(context.Background(), Intent{
		Kind:      KindStockAdjustment,
		Date:      docDate(),
		Reference: "CNT-1",
		StockAdjustment: &StockAdjustmentIntent{
			WarehouseID: 1,
			Lines:       []AdjustmentLine{{ProductID: 10, SystemQty: 50, ActualQty: 47}},
		},
	})
	require.NoError(t, err)
	require.Len(t, f.ledger.posted, 1)

	input := f.ledger.posted[0]
	adjDebit, _ := lineAmounts(input, f.resolver.ids[accounts.RoleInventoryAdjustments])
	require.InDelta(t, 60.0, adjDebit, 0.01)
	_, invCredit := lineAmounts(input, f.resolver.ids[accounts.RoleInventoryFinishedGoods])
	require.InDelta(t, 60.0, invCredit, 0.01)

	qty, cost := f.stock.state(10, 1)
	require.InDelta(t, 47.0, qty, 0.0001)
	require.InDelta(t, 20.0, cost, 0.0001)
}

func TestStockAdjustmentSurplusAndShortageOneEntry(t *testing.T) {
	f := newFixture(t)
	f.stock.seed(10, 1, 50, 20)
	f.stock.seed(11, 1, 8, 5)

	_, err := f.svc.ApplyDocument(context.Background(), Intent{
		Kind:      KindStockAdjustment,
		Date:      docDate(),
		Reference: "CNT-2",
		StockAdjustment: &StockAdjustmentIntent{
			WarehouseID: 1,
			Lines: []AdjustmentLine{
				{ProductID: 10, SystemQty: 50, ActualQty: 48},
				{ProductID: 11, SystemQty: 8, ActualQty: 10},
				{ProductID: 12, SystemQty: 3, ActualQty: 3},
			},
		},
	})
	require.NoError(t, err)
	// One consolidated entry for all counted lines; the zero delta adds no pair.
	require.Len(t, f.ledger.posted, 1)
	require.Len(t, f.ledger.posted[0].Lines, 4)
}

func TestSalesInvoiceCostOfGoodsSold(t *testing.T) {
	f := newFixture(t)
	// Two receipts blend to an average cost of 110.
	f.stock.seed(7, 1, 10, 100)
	f.stock.seed(7, 1, 10, 120)

	out, err := f.svc.ApplyDocument(context.Background(), Intent{
		Kind:      KindSalesInvoice,
		Date:      docDate(),
		Reference: "SI-1",
		SalesInvoice: &SalesInvoiceIntent{
			CustomerID:  3,
			WarehouseID: 1,
			Lines:       []InvoiceLine{{ProductID: 7, Qty: 5, UnitPrice: 200}},
		},
	})
	require.NoError(t, err)
	require.Empty(t, out.Warnings)

	input := f.ledger.posted[0]
	cogs, _ := lineAmounts(input, f.resolver.ids[accounts.RoleCOGS])
	require.InDelta(t, 550.0, cogs, 0.01)
	ar, _ := lineAmounts(input, f.resolver.ids[accounts.RoleCustomers])
	require.InDelta(t, 1000.0, ar, 0.01)
	_, revenue := lineAmounts(input, f.resolver.ids[accounts.RoleSalesRevenue])
	require.InDelta(t, 1000.0, revenue, 0.01)

	qty, cost := f.stock.state(7, 1)
	require.InDelta(t, 15.0, qty, 0.0001)
	require.InDelta(t, 110.0, cost, 0.0001)
}

func TestSalesInvoiceDiscountAndVAT(t *testing.T) {
	f := newFixture(t)
	f.stock.seed(7, 1, 10, 50)

	_, err := f.svc.ApplyDocument(context.Background(), Intent{
		Kind:      KindSalesInvoice,
		Date:      docDate(),
		Reference: "SI-2",
		SalesInvoice: &SalesInvoiceIntent{
			CustomerID:     3,
			WarehouseID:    1,
			Lines:          []InvoiceLine{{ProductID: 7, Qty: 2, UnitPrice: 100}},
			DiscountAmount: 20,
			VATRate:        0.1,
		},
	})
	require.NoError(t, err)

	input := f.ledger.posted[0]
	ar, _ := lineAmounts(input, f.resolver.ids[accounts.RoleCustomers])
	require.InDelta(t, 198.0, ar, 0.01) // (200-20) * 1.1
	_, vat := lineAmounts(input, f.resolver.ids[accounts.RoleVATOutput])
	require.InDelta(t, 18.0, vat, 0.01)
	discount, _ := lineAmounts(input, f.resolver.ids[accounts.RoleSalesDiscount])
	require.InDelta(t, 20.0, discount, 0.01)
}

func TestBankAdjustmentUsesSelectedAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ApplyDocument(context.Background(), Intent{
		Kind:      KindBankAdjustment,
		Date:      docDate(),
		Reference: "BNK-1",
		BankAdjustment: &BankAdjustmentIntent{
			Kind:      BankAdjustmentCharge,
			Amount:    35,
			AccountID: 42,
		},
	})
	require.NoError(t, err)
	require.Len(t, f.ledger.posted, 1)

	input := f.ledger.posted[0]
	_, bank := lineAmounts(input, 42)
	require.InDelta(t, 35.0, bank, 0.01)
	charges, _ := lineAmounts(input, f.resolver.ids[accounts.RoleBankCharges])
	require.InDelta(t, 35.0, charges, 0.01)
	_, cash := lineAmounts(input, f.resolver.ids[accounts.RoleCash])
	require.InDelta(t, 0.0, cash, 0.01)
}

func TestBankAdjustmentDefaultsToCash(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ApplyDocument(context.Background(), Intent{
		Kind:      KindBankAdjustment,
		Date:      docDate(),
		Reference: "BNK-2",
		BankAdjustment: &BankAdjustmentIntent{
			Kind:   BankAdjustmentInterest,
			Amount: 12,
		},
	})
	require.NoError(t, err)
	require.Len(t, f.ledger.posted, 1)

	input := f.ledger.posted[0]
	cash, _ := lineAmounts(input, f.resolver.ids[accounts.RoleCash])
	require.InDelta(t, 12.0, cash, 0.01)
	_, income := lineAmounts(input, f.resolver.ids[accounts.RoleBankInterestIncome])
	require.InDelta(t, 12.0, income, 0.01)
}

func TestStockTransferHasNoLedgerEffect(t *testing.T) {
	f := newFixture(t)
	f.stock.seed(5, 1, 20, 30)

	out, err := f.svc.ApplyDocument(context.Background(), Intent{
		Kind:      KindStockTransfer,
		Date:      docDate(),
		Reference: "TR-1",
		StockTransfer: &StockTransferIntent{
			SrcWarehouseID: 1,
			DstWarehouseID: 2,
			Lines:          []TransferLine{{ProductID: 5, Qty: 8}},
		},
	})
	require.NoError(t, err)
	require.Empty(t, f.ledger.posted)
	require.Zero(t, out.EntryID)
	require.Len(t, out.MovementIDs, 2)

	srcQty, _ := f.stock.state(5, 1)
	dstQty, dstCost := f.stock.state(5, 2)
	require.InDelta(t, 12.0, srcQty, 0.0001)
	require.InDelta(t, 8.0, dstQty, 0.0001)
	require.InDelta(t, 30.0, dstCost, 0.0001)

	doc, err := f.repo.Get(context.Background(), out.DocumentID)
	require.NoError(t, err)
	require.Nil(t, doc.EntryID)
}

func TestProductionCostComposition(t *testing.T) {
	f := newFixture(t)
	f.stock.seed(1, 1, 100, 4) // raw A
	f.stock.seed(2, 1, 50, 10) // raw B

	out, err := f.svc.ApplyDocument(context.Background(), Intent{
		Kind:      KindProduction,
		Date:      docDate(),
		Reference: "PRD-1",
		Production: &ProductionIntent{
			WarehouseID:  1,
			ProductID:    30,
			Qty:          10,
			Components:   []BOMComponent{{ProductID: 1, Qty: 20}, {ProductID: 2, Qty: 5}},
			OverheadCost: 70,
		},
	})
	require.NoError(t, err)

	// consumed = 20*4 + 5*10 = 130; unit = (130+70)/10 = 20
	qty, cost := f.stock.state(30, 1)
	require.InDelta(t, 10.0, qty, 0.0001)
	require.InDelta(t, 20.0, cost, 0.0001)
	require.InDelta(t, 200.0, out.Total, 0.01)

	input := f.ledger.posted[0]
	fg, _ := lineAmounts(input, f.resolver.ids[accounts.RoleInventoryFinishedGoods])
	require.InDelta(t, 200.0, fg, 0.01)
	_, raw := lineAmounts(input, f.resolver.ids[accounts.RoleInventoryRawMaterials])
	require.InDelta(t, 130.0, raw, 0.01)
}

func TestCompensationOnLedgerFailure(t *testing.T) {
	f := newFixture(t)
	f.stock.seed(7, 1, 10, 100)
	f.ledger.failPost = errors.New("ledger unavailable")

	_, err := f.svc.ApplyDocument(context.Background(), Intent{
		Kind:      KindSalesInvoice,
		Date:      docDate(),
		Reference: "SI-9",
		SalesInvoice: &SalesInvoiceIntent{
			CustomerID:  3,
			WarehouseID: 1,
			Lines:       []InvoiceLine{{ProductID: 7, Qty: 4, UnitPrice: 150}},
		},
	})
	require.Error(t, err)

	// Stock back to its pre-posting state, no document row, key released.
	qty, cost := f.stock.state(7, 1)
	require.InDelta(t, 10.0, qty, 0.0001)
	require.InDelta(t, 100.0, cost, 0.0001)
	require.Empty(t, f.repo.docs)
	require.Empty(t, f.idem.keys)

	// The same reference posts cleanly once the ledger recovers.
	f.ledger.failPost = nil
	_, err = f.svc.ApplyDocument(context.Background(), Intent{
		Kind:      KindSalesInvoice,
		Date:      docDate(),
		Reference: "SI-9",
		SalesInvoice: &SalesInvoiceIntent{
			CustomerID:  3,
			WarehouseID: 1,
			Lines:       []InvoiceLine{{ProductID: 7, Qty: 4, UnitPrice: 150}},
		},
	})
	require.NoError(t, err)
}

func TestCompensationReversesPostedEntry(t *testing.T) {
	f := newFixture(t)
	f.stock.seed(7, 1, 10, 100)
	f.repo.failSetEntry = errors.New("documents table unavailable")

	_, err := f.svc.ApplyDocument(context.Background(), Intent{
		Kind:      KindSalesInvoice,
		Date:      docDate(),
		Reference: "SI-12",
		SalesInvoice: &SalesInvoiceIntent{
			CustomerID:  3,
			WarehouseID: 1,
			Lines:       []InvoiceLine{{ProductID: 7, Qty: 4, UnitPrice: 150}},
		},
	})
	require.Error(t, err)

	// The journal entry went through before the failure, so compensation
	// must mirror it back out rather than leave it posted.
	require.Len(t, f.ledger.posted, 1)
	require.Len(t, f.ledger.reversed, 1)

	qty, cost := f.stock.state(7, 1)
	require.InDelta(t, 10.0, qty, 0.0001)
	require.InDelta(t, 100.0, cost, 0.0001)
	require.Empty(t, f.repo.docs)
	require.Empty(t, f.idem.keys)

	f.repo.failSetEntry = nil
	_, err = f.svc.ApplyDocument(context.Background(), Intent{
		Kind:      KindSalesInvoice,
		Date:      docDate(),
		Reference: "SI-12",
		SalesInvoice: &SalesInvoiceIntent{
			CustomerID:  3,
			WarehouseID: 1,
			Lines:       []InvoiceLine{{ProductID: 7, Qty: 4, UnitPrice: 150}},
		},
	})
	require.NoError(t, err)
	require.Len(t, f.ledger.posted, 2)
}

func TestDuplicateReferenceRejected(t *testing.T) {
	f := newFixture(t)
	f.stock.seed(7, 1, 10, 100)

	intent := Intent{
		Kind:      KindSalesInvoice,
		Date:      docDate(),
		Reference: "SI-DUP",
		SalesInvoice: &SalesInvoiceIntent{
			CustomerID:  3,
			WarehouseID: 1,
			Lines:       []InvoiceLine{{ProductID: 7, Qty: 1, UnitPrice: 10}},
		},
	}
	_, err := f.svc.ApplyDocument(context.Background(), intent)
	require.NoError(t, err)

	_, err = f.svc.ApplyDocument(context.Background(), intent)
	require.ErrorIs(t, err, ErrDuplicateReference)
	require.Len(t, f.ledger.posted, 1)
}

func TestMissingSystemAccountsAreRecoverable(t *testing.T) {
	f := newFixture(t)
	f.resolver.missing[accounts.RoleSalariesExpense] = true

	intent := Intent{
		Kind:      KindPayrollRun,
		Date:      docDate(),
		Reference: "PAY-X",
		PayrollRun: &PayrollRunIntent{
			Period:    "2025-06",
			Employees: []PayrollEmployee{{EmployeeID: 1, Gross: 1000}},
		},
	}
	_, err := f.svc.ApplyDocument(context.Background(), intent)
	var cfgErr *accounts.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Contains(t, cfgErr.Roles, accounts.RoleSalariesExpense)
	// Nothing was claimed; the retry after bootstrap succeeds.
	require.Empty(t, f.idem.keys)

	f.resolver.missing = map[accounts.Role]bool{}
	_, err = f.svc.ApplyDocument(context.Background(), intent)
	require.NoError(t, err)
}

func TestReverseDocument(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.ApplyDocument(context.Background(), Intent{
		Kind:      KindPurchaseInvoice,
		Date:      docDate(),
		Reference: "PI-1",
		PurchaseInvoice: &PurchaseInvoiceIntent{
			SupplierID:  2,
			WarehouseID: 1,
			Lines:       []InvoiceLine{{ProductID: 7, Qty: 10, UnitPrice: 25}},
		},
	})
	require.NoError(t, err)

	_, err = f.svc.Reverse(context.Background(), out.DocumentID, 9, "entered twice")
	require.NoError(t, err)
	require.Len(t, f.ledger.reversed, 1)

	qty, _ := f.stock.state(7, 1)
	require.InDelta(t, 0.0, qty, 0.0001)

	doc, err := f.repo.Get(context.Background(), out.DocumentID)
	require.NoError(t, err)
	require.Equal(t, StatusReversed, doc.Status)

	_, err = f.svc.Reverse(context.Background(), out.DocumentID, 9, "again")
	require.ErrorIs(t, err, ErrAlreadyReversed)
}

func TestOversellFlagsWarning(t *testing.T) {
	f := newFixture(t)
	f.stock.seed(7, 1, 2, 40)

	out, err := f.svc.ApplyDocument(context.Background(), Intent{
		Kind:      KindSalesInvoice,
		Date:      docDate(),
		Reference: "SI-OVER",
		SalesInvoice: &SalesInvoiceIntent{
			CustomerID:  3,
			WarehouseID: 1,
			Lines:       []InvoiceLine{{ProductID: 7, Qty: 5, UnitPrice: 90}},
		},
	})
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	require.Contains(t, out.Warnings[0], "insufficient stock")
}
