package enums

import "fmt"

// TransactionKind tags every wallet ledger entry with its economic cause.
type TransactionKind string

const (
	TransactionKindSaleProfit       TransactionKind = "sale_profit"
	TransactionKindSaleRevenue      TransactionKind = "sale_revenue"
	TransactionKindReferralBonus    TransactionKind = "referral_bonus"
	TransactionKindReturnPenalty    TransactionKind = "return_penalty"
	TransactionKindWithdrawalPayout TransactionKind = "withdrawal_payout"
	TransactionKindPackPurchase     TransactionKind = "pack_purchase"
)

var validTransactionKinds = []TransactionKind{
	TransactionKindSaleProfit,
	TransactionKindSaleRevenue,
	TransactionKindReferralBonus,
	TransactionKindReturnPenalty,
	TransactionKindWithdrawalPayout,
	TransactionKindPackPurchase,
}

// String implements fmt.Stringer.
func (k TransactionKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known TransactionKind.
func (k TransactionKind) IsValid() bool {
	for _, candidate := range validTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// IsPenalty reports whether this kind is a punitive charge.
func (k TransactionKind) IsPenalty() bool {
	return k == TransactionKindReturnPenalty
}

// AllowsOverdraft reports whether debits of this kind may drive a balance
// negative. Return penalties are charged unconditionally; pack purchases are
// invoiced out of band, the ledger only records the charge.
func (k TransactionKind) AllowsOverdraft() bool {
	return k == TransactionKindReturnPenalty || k == TransactionKindPackPurchase
}

// ParseTransactionKind converts raw input into a TransactionKind.
func ParseTransactionKind(value string) (TransactionKind, error) {
	for _, candidate := range validTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction kind %q", value)
}
