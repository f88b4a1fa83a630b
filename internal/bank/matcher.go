package bank

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ledgerline-dev/ledgerline/internal/currency"
	"github.com/ledgerline-dev/ledgerline/internal/model"
	"github.com/ledgerline-dev/ledgerline/internal/number"
	"github.com/ledgerline-dev/ledgerline/internal/store"
)

// Ledger is the append-only balance-change trail. Every balance mutation the
// matcher makes is mirrored here rather than kept only in cached totals.
type Ledger interface {
	UpdateInvoiceBalance(companyID, invoiceID string, delta decimal.Decimal, memo string) error
	UpdatePaymentBalance(companyID, paymentID string, delta decimal.Decimal, memo string) error
	UpdateClientBalance(companyID, clientID string, balanceDelta, paidDelta decimal.Decimal, memo string) error
}

// ErrNotPayable marks an instruction whose invoices cannot accept payment.
var ErrNotPayable = errors.New("bank: invoice not payable")

var one = decimal.NewFromInt(1)

// Matcher processes match instructions for one company at a time, producing
// expenses or payments and keeping all affected balances consistent.
type Matcher struct {
	store      *store.Store
	ledger     Ledger
	rates      currency.Converter
	notifier   Notifier
	workflow   Workflow
	categories *CategoryResolver
	log        zerolog.Logger
}

// NewMatcher wires a Matcher to its collaborators.
func NewMatcher(st *store.Store, ledger Ledger, rates currency.Converter, notifier Notifier, workflow Workflow, categories *CategoryResolver, log zerolog.Logger) *Matcher {
	return &Matcher{
		store:      st,
		ledger:     ledger,
		rates:      rates,
		notifier:   notifier,
		workflow:   workflow,
		categories: categories,
		log:        log,
	}
}

// Process runs a batch of instructions. Instruction failures are reported in
// the result's Skipped set; the batch keeps going. The returned error covers
// batch-level problems only.
func (m *Matcher) Process(ctx context.Context, instructions []MatchInstruction) (*Result, error) {
	res := &Result{}

	for _, in := range instructions {
		var err error
		if in.IsPaymentMatch() {
			err = m.matchInvoicePayment(ctx, in, res)
		} else {
			err = m.matchExpense(ctx, in, res)
		}
		if err != nil {
			m.log.Error().Err(err).Str("transaction_id", in.TransactionID).
				Msg("match instruction failed")
			res.Skipped = append(res.Skipped, Skip{TransactionID: in.TransactionID, Reason: err.Error()})
		}
	}

	return res, nil
}

// matchExpense converts a transaction into an expense. Never touches
// invoice balances.
func (m *Matcher) matchExpense(ctx context.Context, in MatchInstruction, res *Result) error {
	bt, err := m.store.Transaction(in.TransactionID)
	if err != nil {
		return err
	}

	categoryID, err := m.categories.Resolve(ctx, bt, in.CategoryID)
	if err != nil {
		return err
	}

	expense := model.Expense{
		ID:                   uuid.NewString(),
		CompanyID:            bt.CompanyID,
		UserID:               bt.UserID,
		Number:               number.FormatExpense(m.store.NextNumber(bt.CompanyID, number.ExpensePrefix)),
		CategoryID:           categoryID,
		VendorID:             in.VendorID,
		Amount:               bt.Amount,
		Currency:             bt.Currency,
		Date:                 bt.Date,
		PaymentDate:          bt.Date,
		TransactionID:        bt.ID,
		TransactionReference: bt.Description,
	}
	m.store.SaveExpense(expense)

	bt.ExpenseID = expense.ID
	bt.VendorID = in.VendorID
	bt.Status = model.TransactionConverted
	if err := m.store.SaveTransaction(bt); err != nil {
		return err
	}

	res.TransactionIDs = append(res.TransactionIDs, bt.ID)
	res.Expenses = append(res.Expenses, expense)
	m.log.Info().Str("transaction_id", bt.ID).Str("expense_id", expense.ID).
		Str("amount", expense.Amount.String()).Msg("transaction matched to expense")
	return nil
}

// matchInvoicePayment distributes the transaction amount across the selected
// invoices as one aggregated payment. A not-payable invoice aborts the
// payment path without side effects, but the transaction is still reported
// as processed.
func (m *Matcher) matchInvoicePayment(ctx context.Context, in MatchInstruction, res *Result) error {
	bt, err := m.store.Transaction(in.TransactionID)
	if err != nil {
		return err
	}
	// Seen even when the payment path aborts below.
	res.TransactionIDs = append(res.TransactionIDs, bt.ID)

	if err := m.checkPayable(in.InvoiceIDs); err != nil {
		m.log.Info().Err(err).Str("transaction_id", bt.ID).Msg("payment match skipped")
		res.Skipped = append(res.Skipped, Skip{TransactionID: bt.ID, Reason: err.Error()})
		return nil
	}

	payment, err := m.createPayment(ctx, bt, in.InvoiceIDs)
	if err != nil {
		return err
	}

	res.Payments = append(res.Payments, payment)
	return nil
}

// checkPayable marks each invoice sent, then verifies it can accept payment.
func (m *Matcher) checkPayable(invoiceIDs []string) error {
	for _, id := range invoiceIDs {
		inv, err := m.store.Invoice(id)
		if err != nil {
			return err
		}

		inv.MarkSent()
		if err := m.store.SaveInvoice(inv); err != nil {
			return err
		}

		if !inv.IsPayable() {
			return fmt.Errorf("%w: invoice %s status %s balance %s", ErrNotPayable, id, inv.Status, inv.Balance)
		}
	}
	return nil
}

// createPayment runs the waterfall allocation under row locks, then builds
// the aggregated payment and fans the result out to the ledger, client
// aggregates, workflow hooks, and notifier.
func (m *Matcher) createPayment(ctx context.Context, bt model.BankTransaction, invoiceIDs []string) (model.Payment, error) {
	amount := bt.Amount

	var allocations []model.Paymentable
	var clientID string

	// Waterfall allocation: invoices are processed in caller order, each
	// taking from the remaining available balance. Order-sensitive on
	// purpose; reordering the ids changes the outcome.
	allocate := func() error {
		allocations = allocations[:0]
		return m.store.Update(ctx, func(tx *store.Tx) error {
			available := amount
			for _, id := range invoiceIDs {
				inv, err := tx.LockInvoice(ctx, id)
				if err != nil {
					return err
				}
				clientID = inv.ClientID

				var share decimal.Decimal
				switch {
				case len(invoiceIDs) == 1:
					share = available
				case inv.Balance.LessThan(available) && available.IsPositive():
					share = inv.Balance
					available = available.Sub(share)
				case inv.Balance.GreaterThanOrEqual(available) && available.IsPositive():
					share = available
					available = decimal.Zero
				default:
					// Waterfall exhausted; the invoice stays untouched but
					// remains part of the instruction's set.
					share = decimal.Zero
				}

				if share.IsPositive() {
					inv.ApplyPayment(share)
				}
				allocations = append(allocations, model.Paymentable{InvoiceID: id, Amount: share})
			}
			return nil
		})
	}

	err := allocate()
	if errors.Is(err, store.ErrLockTimeout) {
		m.log.Warn().Str("transaction_id", bt.ID).Msg("allocation lock conflict, retrying once")
		err = allocate()
	}
	if err != nil {
		return model.Payment{}, fmt.Errorf("allocating payment: %w", err)
	}

	date := bt.Date
	if date.IsZero() {
		date = time.Now()
	}

	payment := model.Payment{
		ID:                   uuid.NewString(),
		CompanyID:            bt.CompanyID,
		ClientID:             clientID,
		Number:               number.FormatPayment(m.store.NextNumber(bt.CompanyID, number.PaymentPrefix)),
		Amount:               amount,
		Applied:              amount,
		Status:               model.PaymentStatusCompleted,
		Currency:             bt.Currency,
		ExchangeRate:         one,
		IsManual:             false,
		Date:                 date,
		TransactionID:        bt.ID,
		TransactionReference: bt.Description,
		Invoices:             allocations,
	}
	m.store.SavePayment(payment)

	client, err := m.store.Client(clientID)
	if err != nil {
		return model.Payment{}, err
	}

	if client.SendPaymentReceipt {
		m.notifier.PaymentReceipt(client, payment)
	}

	// The payment row exists; the rate fetch is a best-effort secondary
	// write and must come before the ledger trail, which is denominated
	// post-conversion.
	payment = m.setExchangeRate(ctx, payment, client)

	if err := m.writeLedger(bt, payment, client); err != nil {
		return model.Payment{}, err
	}

	if err := m.runInvoiceWorkflow(payment); err != nil {
		return model.Payment{}, err
	}

	m.notifier.PaymentCreated(payment)

	bt.InvoiceIDs = strings.Join(invoiceIDs, ",")
	bt.PaymentID = payment.ID
	bt.Status = model.TransactionConverted
	if err := m.store.SaveTransaction(bt); err != nil {
		return model.Payment{}, err
	}

	m.log.Info().Str("transaction_id", bt.ID).Str("payment_id", payment.ID).
		Str("applied", payment.Applied.String()).Int("invoices", len(allocations)).
		Msg("transaction matched to payment")
	return payment, nil
}

// setExchangeRate resolves the payment's rate when the client currency
// differs from the company's base currency. A fetch failure keeps the 1:1
// default; the payment itself is already persisted.
func (m *Matcher) setExchangeRate(ctx context.Context, payment model.Payment, client model.Client) model.Payment {
	if !payment.ExchangeRate.Equal(one) {
		return payment
	}

	company, err := m.store.Company(payment.CompanyID)
	if err != nil || client.Currency == "" || client.Currency == company.Currency {
		return payment
	}

	rate, err := m.rates.ExchangeRate(ctx, client.Currency, company.Currency, payment.Date)
	if err != nil {
		m.log.Warn().Err(err).Str("payment_id", payment.ID).
			Str("from", client.Currency).Str("to", company.Currency).
			Msg("exchange rate fetch failed, keeping 1:1")
		return payment
	}

	payment.ExchangeRate = rate
	payment.ExchangeCurrency = company.Currency
	m.store.SavePayment(payment)
	return payment
}

func (m *Matcher) writeLedger(bt model.BankTransaction, payment model.Payment, client model.Client) error {
	for _, alloc := range payment.Invoices {
		if !alloc.Amount.IsPositive() {
			continue
		}
		memo := fmt.Sprintf("payment %s applied from transaction %s", payment.Number, bt.ID)
		if err := m.ledger.UpdateInvoiceBalance(payment.CompanyID, alloc.InvoiceID, alloc.Amount.Neg(), memo); err != nil {
			return fmt.Errorf("updating invoice ledger: %w", err)
		}
	}

	if err := m.ledger.UpdatePaymentBalance(payment.CompanyID, payment.ID, payment.Amount.Neg(), "payment "+payment.Number); err != nil {
		return fmt.Errorf("updating payment ledger: %w", err)
	}

	if err := m.store.UpdateClientBalance(client.ID, payment.Amount.Neg(), payment.Amount); err != nil {
		return err
	}
	if err := m.ledger.UpdateClientBalance(payment.CompanyID, client.ID, payment.Amount.Neg(), payment.Amount, "payment "+payment.Number); err != nil {
		return fmt.Errorf("updating client ledger: %w", err)
	}
	return nil
}

// runInvoiceWorkflow clears scheduling and advances lifecycle state on every
// invoice the payment touched.
func (m *Matcher) runInvoiceWorkflow(payment model.Payment) error {
	for _, alloc := range payment.Invoices {
		inv, err := m.store.Invoice(alloc.InvoiceID)
		if err != nil {
			return err
		}

		inv.NextSendDate = nil
		m.workflow.ApplyNumber(&inv)
		m.workflow.TouchPDF(&inv)
		m.workflow.Advance(&inv)

		if err := m.store.SaveInvoice(inv); err != nil {
			return err
		}

		if alloc.Amount.IsPositive() {
			m.notifier.InvoicePaid(inv, payment)
		}
	}
	return nil
}
