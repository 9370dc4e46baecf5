package wallet

import (
	"context"

	"github.com/Niche-Business/voucher-platform/internal/models"
	"github.com/shopspring/decimal"
)

// ReconciliationReport compares money taken out of organization wallets for
// issuance against where that money ended up: still outstanding on spendable
// vouchers, paid through to vendors, or stranded on expired vouchers.
//
// Expired value is not refunded to the issuer; the report surfaces it so the
// totals still balance.
type ReconciliationReport struct {
	TotalAllocated   decimal.Decimal `json:"total_allocated"`   // Sum of admin allocations.
	TotalIssued      decimal.Decimal `json:"total_issued"`      // Sum of issuance debits.
	TotalPaidOut     decimal.Decimal `json:"total_paid_out"`    // Sum of vendor credits.
	OutstandingValue decimal.Decimal `json:"outstanding_value"` // Remaining value on spendable vouchers.
	ExpiredValue     decimal.Decimal `json:"expired_value"`     // Value stranded on expired vouchers.
	Balanced         bool            `json:"balanced"`          // Whether issued == paid out + outstanding + expired.
}

// Reconcile builds the platform-wide reconciliation report.
func (l *Ledger) Reconcile(ctx context.Context) (*ReconciliationReport, error) {
	report := &ReconciliationReport{}

	sums := []struct {
		txType models.WalletTransactionType
		target *decimal.Decimal
	}{
		{models.TxAllocation, &report.TotalAllocated},
		{models.TxDebit, &report.TotalIssued},
		{models.TxCredit, &report.TotalPaidOut},
	}
	for _, s := range sums {
		total, errSum := l.sumTransactions(ctx, s.txType)
		if errSum != nil {
			return nil, errSum
		}
		*s.target = total
	}

	outstanding, errOutstanding := l.sumVoucherValue(ctx, models.SpendableStatuses...)
	if errOutstanding != nil {
		return nil, errOutstanding
	}
	report.OutstandingValue = outstanding

	expired, errExpired := l.sumVoucherValue(ctx, models.VoucherExpired)
	if errExpired != nil {
		return nil, errExpired
	}
	report.ExpiredValue = expired

	accounted := report.TotalPaidOut.Add(report.OutstandingValue).Add(report.ExpiredValue)
	report.Balanced = report.TotalIssued.Equal(accounted)
	return report, nil
}

func (l *Ledger) sumTransactions(ctx context.Context, txType models.WalletTransactionType) (decimal.Decimal, error) {
	var rows []models.WalletTransaction
	if errFind := l.db.WithContext(ctx).
		Select("amount").
		Where("type = ?", txType).
		Find(&rows).Error; errFind != nil {
		return decimal.Zero, errFind
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	return total.Round(2), nil
}

func (l *Ledger) sumVoucherValue(ctx context.Context, statuses ...models.VoucherStatus) (decimal.Decimal, error) {
	var rows []models.Voucher
	if errFind := l.db.WithContext(ctx).
		Select("value").
		Where("status IN ?", statuses).
		Find(&rows).Error; errFind != nil {
		return decimal.Zero, errFind
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Value)
	}
	return total.Round(2), nil
}
