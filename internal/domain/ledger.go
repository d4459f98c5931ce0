package domain

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntryType tags the operation behind a posting.
type LedgerEntryType string

const (
	EntryTypeTradeDebit            LedgerEntryType = "TRADE_DEBIT"
	EntryTypeTradeCredit           LedgerEntryType = "TRADE_CREDIT"
	EntryTypeContractDebit         LedgerEntryType = "CONTRACT_DEBIT"
	EntryTypeContractCredit        LedgerEntryType = "CONTRACT_CREDIT"
	EntryTypeOrderCashReserve      LedgerEntryType = "ORDER_CASH_RESERVE"
	EntryTypeOrderCashRelease      LedgerEntryType = "ORDER_CASH_RELEASE"
	EntryTypeProductionCost        LedgerEntryType = "PRODUCTION_COST"
	EntryTypeResearchCost          LedgerEntryType = "RESEARCH_COST"
	EntryTypeWorkforceSalary       LedgerEntryType = "WORKFORCE_SALARY_EXPENSE"
	EntryTypeWorkforceHiringCost   LedgerEntryType = "WORKFORCE_HIRING_COST"
	EntryTypeWorkforceSeverance    LedgerEntryType = "WORKFORCE_SEVERANCE"
	EntryTypeAdjustment            LedgerEntryType = "ADJUSTMENT"
)

// LedgerEntry is immutable and append-only. BalanceAfterCents must equal the
// company's cash balance immediately after the entry is applied, computed from
// the same value written to the company row in the same transaction. That
// equality is the reconciliation invariant operators check for drift.
type LedgerEntry struct {
	ID                     uuid.UUID
	CompanyID              uuid.UUID
	EntryType              LedgerEntryType
	DeltaCashCents         int64
	DeltaReservedCashCents int64
	BalanceAfterCents      int64
	Tick                   int64
	RefID                  *uuid.UUID // trade, contract, job, or delta id
	Memo                   string
	CreatedAt              time.Time
}
