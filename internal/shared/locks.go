package shared

import "fmt"

// RecalcLockKey builds redis keys guarding per-product stock recalculation.
func RecalcLockKey(productID int64) string {
	return fmt.Sprintf("inventory:product:%d:recalc", productID)
}

// ReconcileLockKey builds redis keys for bank reconciliation critical sections.
func ReconcileLockKey(accountID int64) string {
	return fmt.Sprintf("reconcile:account:%d:lock", accountID)
}
