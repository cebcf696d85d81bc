package documents

import (
	"context"
	"fmt"

	"github.com/meridian-erp/meridian-erp/internal/accounting/accounts"
	acctshared "github.com/meridian-erp/meridian-erp/internal/accounting/shared"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
)

// plan declares which role accounts a kind needs and how to execute it.
// Every kind funnels through the same pipeline; only the plan differs.
type plan struct {
	roles []accounts.Role
	run   func(ctx context.Context, r *runner) error
}

func (s *Service) planFor(intent Intent) (plan, error) {
	switch intent.Kind {
	case KindSalesInvoice:
		return planSalesInvoice(intent.SalesInvoice), nil
	case KindPurchaseInvoice:
		return planPurchaseInvoice(intent.PurchaseInvoice), nil
	case KindSalesReturn:
		return planSalesReturn(intent.SalesReturn), nil
	case KindPurchaseReturn:
		return planPurchaseReturn(intent.PurchaseReturn), nil
	case KindStockTransfer:
		return planStockTransfer(intent.StockTransfer), nil
	case KindStockAdjustment:
		return planStockAdjustment(intent.StockAdjustment), nil
	case KindProduction:
		return planProduction(intent.Production), nil
	case KindPayrollRun:
		return planPayrollRun(intent.PayrollRun), nil
	case KindBankAdjustment:
		return planBankAdjustment(intent.BankAdjustment), nil
	default:
		return plan{}, &acctshared.ValidationError{Field: "kind", Msg: fmt.Sprintf("unknown kind %q", intent.Kind)}
	}
}

func validateIntent(intent Intent) error {
	if intent.Date.IsZero() {
		return &acctshared.ValidationError{Field: "date", Msg: "required"}
	}
	if intent.Reference == "" {
		return &acctshared.ValidationError{Field: "reference", Msg: "required"}
	}
	if intentPayload(intent) == nil {
		return ErrKindMismatch
	}
	return nil
}

// intentPayload returns the payload matching the declared kind, or nil on a
// mismatch.
func intentPayload(intent Intent) any {
	switch intent.Kind {
	case KindSalesInvoice:
		if intent.SalesInvoice != nil {
			return intent.SalesInvoice
		}
	case KindPurchaseInvoice:
		if intent.PurchaseInvoice != nil {
			return intent.PurchaseInvoice
		}
	case KindSalesReturn:
		if intent.SalesReturn != nil {
			return intent.SalesReturn
		}
	case KindPurchaseReturn:
		if intent.PurchaseReturn != nil {
			return intent.PurchaseReturn
		}
	case KindStockTransfer:
		if intent.StockTransfer != nil {
			return intent.StockTransfer
		}
	case KindStockAdjustment:
		if intent.StockAdjustment != nil {
			return intent.StockAdjustment
		}
	case KindProduction:
		if intent.Production != nil {
			return intent.Production
		}
	case KindPayrollRun:
		if intent.PayrollRun != nil {
			return intent.PayrollRun
		}
	case KindBankAdjustment:
		if intent.BankAdjustment != nil {
			return intent.BankAdjustment
		}
	}
	return nil
}

func planSalesInvoice(in *SalesInvoiceIntent) plan {
	receivable := accounts.RoleCustomers
	if in.CashSale {
		receivable = accounts.RoleCash
	}
	return plan{
		roles: []accounts.Role{receivable, accounts.RoleSalesRevenue, accounts.RoleSalesDiscount,
			accounts.RoleVATOutput, accounts.RoleCOGS, accounts.RoleInventoryFinishedGoods},
		run: func(ctx context.Context, r *runner) error {
			if len(in.Lines) == 0 {
				return ErrEmptyDocument
			}
			var gross, cost float64
			for _, line := range in.Lines {
				gross += line.Qty * line.UnitPrice
				res, err := r.outbound(ctx, inventory.OutboundInput{
					ProductID:   line.ProductID,
					WarehouseID: in.WarehouseID,
					Qty:         line.Qty,
					Type:        inventory.MovementSale,
				})
				if err != nil {
					return err
				}
				cost += line.Qty * res.UnitCost
			}
			net := gross - in.DiscountAmount
			vat := net * in.VATRate
			total := net + vat

			r.debit(receivable, total, "sales invoice")
			r.debit(accounts.RoleSalesDiscount, in.DiscountAmount, "sales discount")
			r.credit(accounts.RoleSalesRevenue, gross, "sales revenue")
			r.credit(accounts.RoleVATOutput, vat, "output vat")
			// Cost leg uses the valuation figure, not the invoice price.
			r.debit(accounts.RoleCOGS, cost, "cost of goods sold")
			r.credit(accounts.RoleInventoryFinishedGoods, cost, "inventory issue")
			r.total = total
			return nil
		},
	}
}

func planPurchaseInvoice(in *PurchaseInvoiceIntent) plan {
	payable := accounts.RoleSuppliers
	if in.CashPurchase {
		payable = accounts.RoleCash
	}
	inventoryRole := accounts.RoleInventoryRawMaterials
	if in.FinishedGoods {
		inventoryRole = accounts.RoleInventoryFinishedGoods
	}
	return plan{
		roles: []accounts.Role{payable, inventoryRole, accounts.RoleVATInput},
		run: func(ctx context.Context, r *runner) error {
			if len(in.Lines) == 0 {
				return ErrEmptyDocument
			}
			var subtotal float64
			for _, line := range in.Lines {
				subtotal += line.Qty * line.UnitPrice
				if _, err := r.inbound(ctx, inventory.InboundInput{
					ProductID:   line.ProductID,
					WarehouseID: in.WarehouseID,
					Qty:         line.Qty,
					UnitCost:    line.UnitPrice,
					Type:        inventory.MovementPurchase,
				}); err != nil {
					return err
				}
			}
			vat := subtotal * in.VATRate
			total := subtotal + vat

			r.debit(inventoryRole, subtotal, "goods receipt")
			r.debit(accounts.RoleVATInput, vat, "input vat")
			r.credit(payable, total, "purchase invoice")
			r.total = total
			return nil
		},
	}
}

func planSalesReturn(in *SalesReturnIntent) plan {
	return plan{
		roles: []accounts.Role{accounts.RoleCustomers, accounts.RoleSalesRevenue,
			accounts.RoleVATOutput, accounts.RoleCOGS, accounts.RoleInventoryFinishedGoods},
		run: func(ctx context.Context, r *runner) error {
			if len(in.Lines) == 0 {
				return ErrEmptyDocument
			}
			var gross, cost float64
			for _, line := range in.Lines {
				gross += line.Qty * line.UnitPrice
				cost += line.Qty * line.UnitCost
				if _, err := r.inbound(ctx, inventory.InboundInput{
					ProductID:   line.ProductID,
					WarehouseID: in.WarehouseID,
					Qty:         line.Qty,
					UnitCost:    line.UnitCost,
					Type:        inventory.MovementSaleReturn,
				}); err != nil {
					return err
				}
			}
			vat := gross * in.VATRate
			total := gross + vat

			r.debit(accounts.RoleSalesRevenue, gross, "sales return")
			r.debit(accounts.RoleVATOutput, vat, "output vat reversal")
			r.credit(accounts.RoleCustomers, total, "customer credit")
			r.debit(accounts.RoleInventoryFinishedGoods, cost, "restock")
			r.credit(accounts.RoleCOGS, cost, "cost reversal")
			r.total = total
			return nil
		},
	}
}

func planPurchaseReturn(in *PurchaseReturnIntent) plan {
	return plan{
		roles: []accounts.Role{accounts.RoleSuppliers, accounts.RoleInventoryRawMaterials,
			accounts.RoleVATInput, accounts.RoleInventoryAdjustments},
		run: func(ctx context.Context, r *runner) error {
			if len(in.Lines) == 0 {
				return ErrEmptyDocument
			}
			var priced, carried float64
			for _, line := range in.Lines {
				priced += line.Qty * line.UnitPrice
				res, err := r.outbound(ctx, inventory.OutboundInput{
					ProductID:   line.ProductID,
					WarehouseID: in.WarehouseID,
					Qty:         line.Qty,
					Type:        inventory.MovementPurchaseReturn,
				})
				if err != nil {
					return err
				}
				carried += line.Qty * res.UnitCost
			}
			vat := priced * in.VATRate

			r.debit(accounts.RoleSuppliers, priced+vat, "purchase return")
			r.credit(accounts.RoleInventoryRawMaterials, carried, "inventory issue")
			r.credit(accounts.RoleVATInput, vat, "input vat reversal")
			// Goods leave at carried cost; any gap to the refund price lands
			// in inventory adjustments.
			diff := priced - carried
			if diff > 0 {
				r.credit(accounts.RoleInventoryAdjustments, diff, "return price variance")
			} else {
				r.debit(accounts.RoleInventoryAdjustments, -diff, "return price variance")
			}
			r.total = priced + vat
			return nil
		},
	}
}

func planStockTransfer(in *StockTransferIntent) plan {
	return plan{
		// Value stays inside the same inventory account, so a transfer moves
		// stock without touching the ledger.
		run: func(ctx context.Context, r *runner) error {
			if len(in.Lines) == 0 {
				return ErrEmptyDocument
			}
			if in.SrcWarehouseID == in.DstWarehouseID {
				return &acctshared.ValidationError{Field: "warehouse", Msg: "source and destination are the same"}
			}
			var moved float64
			for _, line := range in.Lines {
				out, err := r.outbound(ctx, inventory.OutboundInput{
					ProductID:   line.ProductID,
					WarehouseID: in.SrcWarehouseID,
					Qty:         line.Qty,
					Type:        inventory.MovementTransferOut,
				})
				if err != nil {
					return err
				}
				if _, err := r.inbound(ctx, inventory.InboundInput{
					ProductID:   line.ProductID,
					WarehouseID: in.DstWarehouseID,
					Qty:         line.Qty,
					UnitCost:    out.UnitCost,
					Type:        inventory.MovementTransferIn,
				}); err != nil {
					return err
				}
				moved += line.Qty * out.UnitCost
			}
			r.total = moved
			return nil
		},
	}
}

func planStockAdjustment(in *StockAdjustmentIntent) plan {
	return plan{
		roles: []accounts.Role{accounts.RoleInventoryFinishedGoods, accounts.RoleInventoryAdjustments},
		run: func(ctx context.Context, r *runner) error {
			if len(in.Lines) == 0 {
				return ErrEmptyDocument
			}
			var total float64
			for _, line := range in.Lines {
				delta := line.ActualQty - line.SystemQty
				if delta == 0 {
					continue
				}
				if delta < 0 {
					res, err := r.outbound(ctx, inventory.OutboundInput{
						ProductID:   line.ProductID,
						WarehouseID: in.WarehouseID,
						Qty:         -delta,
						Type:        inventory.MovementAdjustment,
					})
					if err != nil {
						return err
					}
					amount := -delta * res.UnitCost
					r.debit(accounts.RoleInventoryAdjustments, amount, fmt.Sprintf("count shortage product %d", line.ProductID))
					r.credit(accounts.RoleInventoryFinishedGoods, amount, fmt.Sprintf("count shortage product %d", line.ProductID))
					total += amount
					continue
				}
				cost, err := r.currentCost(ctx, line.ProductID, in.WarehouseID)
				if err != nil {
					return err
				}
				if _, err := r.inbound(ctx, inventory.InboundInput{
					ProductID:   line.ProductID,
					WarehouseID: in.WarehouseID,
					Qty:         delta,
					UnitCost:    cost,
					Type:        inventory.MovementAdjustment,
				}); err != nil {
					return err
				}
				amount := delta * cost
				r.debit(accounts.RoleInventoryFinishedGoods, amount, fmt.Sprintf("count surplus product %d", line.ProductID))
				r.credit(accounts.RoleInventoryAdjustments, amount, fmt.Sprintf("count surplus product %d", line.ProductID))
				total += amount
			}
			r.total = total
			return nil
		},
	}
}

func planProduction(in *ProductionIntent) plan {
	return plan{
		roles: []accounts.Role{accounts.RoleInventoryFinishedGoods,
			accounts.RoleInventoryRawMaterials, accounts.RoleCOGS},
		run: func(ctx context.Context, r *runner) error {
			if in.Qty <= 0 {
				return &acctshared.ValidationError{Field: "qty", Msg: "produced quantity must be positive"}
			}
			if len(in.Components) == 0 {
				return ErrEmptyDocument
			}
			var consumed float64
			for _, comp := range in.Components {
				res, err := r.outbound(ctx, inventory.OutboundInput{
					ProductID:   comp.ProductID,
					WarehouseID: in.WarehouseID,
					Qty:         comp.Qty,
					Type:        inventory.MovementProductionOut,
				})
				if err != nil {
					return err
				}
				consumed += comp.Qty * res.UnitCost
			}
			unitCost := (consumed + in.OverheadCost) / in.Qty
			if _, err := r.inbound(ctx, inventory.InboundInput{
				ProductID:   in.ProductID,
				WarehouseID: in.WarehouseID,
				Qty:         in.Qty,
				UnitCost:    unitCost,
				Type:        inventory.MovementProductionIn,
			}); err != nil {
				return err
			}

			r.debit(accounts.RoleInventoryFinishedGoods, consumed+in.OverheadCost, "finished goods receipt")
			r.credit(accounts.RoleInventoryRawMaterials, consumed, "materials consumed")
			// Overhead is absorbed out of period cost.
			r.credit(accounts.RoleCOGS, in.OverheadCost, "overhead absorbed")
			r.total = consumed + in.OverheadCost
			return nil
		},
	}
}

func planPayrollRun(in *PayrollRunIntent) plan {
	return plan{
		roles: []accounts.Role{accounts.RoleSalariesExpense, accounts.RoleEmployeeBonuses,
			accounts.RoleEmployeeAdvances, accounts.RoleEmployeeDeductions, accounts.RoleCash},
		run: func(ctx context.Context, r *runner) error {
			if len(in.Employees) == 0 {
				return ErrEmptyDocument
			}
			var gross, bonuses, advances, deductions float64
			for _, emp := range in.Employees {
				if emp.Gross < 0 || emp.Bonuses < 0 || emp.AdvanceRecovered < 0 || emp.OtherDeductions < 0 {
					return &acctshared.ValidationError{Field: "employees", Msg: fmt.Sprintf("employee %d has a negative component", emp.EmployeeID)}
				}
				net := emp.Gross + emp.Bonuses - emp.AdvanceRecovered - emp.OtherDeductions
				if net < 0 {
					return &acctshared.ValidationError{Field: "employees", Msg: fmt.Sprintf("employee %d nets below zero", emp.EmployeeID)}
				}
				gross += emp.Gross
				bonuses += emp.Bonuses
				advances += emp.AdvanceRecovered
				deductions += emp.OtherDeductions
			}
			net := gross + bonuses - advances - deductions

			r.debit(accounts.RoleSalariesExpense, gross, "gross salaries")
			r.debit(accounts.RoleEmployeeBonuses, bonuses, "bonuses")
			r.credit(accounts.RoleEmployeeAdvances, advances, "advances recovered")
			r.credit(accounts.RoleEmployeeDeductions, deductions, "other deductions")
			r.credit(accounts.RoleCash, net, "net pay")
			r.total = net
			return nil
		},
	}
}

func planBankAdjustment(in *BankAdjustmentIntent) plan {
	return plan{
		roles: []accounts.Role{accounts.RoleCash, accounts.RoleBankCharges, accounts.RoleBankInterestIncome},
		run: func(ctx context.Context, r *runner) error {
			if in.Amount <= 0 {
				return &acctshared.ValidationError{Field: "amount", Msg: "must be positive"}
			}
			bankID := in.AccountID
			if bankID == 0 {
				bankID = r.account(accounts.RoleCash)
			}
			switch in.Kind {
			case BankAdjustmentCharge:
				r.debit(accounts.RoleBankCharges, in.Amount, "bank charges")
				r.creditAccount(bankID, in.Amount, "bank charges")
			case BankAdjustmentInterest:
				r.debitAccount(bankID, in.Amount, "bank interest")
				r.credit(accounts.RoleBankInterestIncome, in.Amount, "bank interest")
			default:
				return &acctshared.ValidationError{Field: "kind", Msg: "unknown bank adjustment kind"}
			}
			r.total = in.Amount
			return nil
		},
	}
}
