package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/AlekSi/pointer"

	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

// Status enumerates the loan lifecycle.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusFunded    Status = "funded"
	StatusPaidOff   Status = "paid_off"
)

// Model is the engine model of loan entities.
var Model = entity.ModelSpec{Name: "loan", Version: 1}

const (
	MaxTermMonths = 360
	MaxRate       = 100.0
)

var (
	ErrEmptyLoanID      = errors.New("loan id is required")
	ErrInvalidPrincipal = errors.New("principal must be greater than zero")
	ErrInvalidTerm      = errors.New("term must be between 1 and 360 months")
	ErrInvalidRate      = errors.New("annual rate must be between 0 and 100 percent")
	ErrInvalidRepayment = errors.New("repayment amount must be greater than zero")
	ErrOverpayment      = errors.New("repayment exceeds outstanding balance")
)

// Installment is one row of the amortization schedule.
type Installment struct {
	Number    int       `json:"number"`
	DueDate   time.Time `json:"dueDate"`
	Payment   float64   `json:"payment"`
	Principal float64   `json:"principal"`
	Interest  float64   `json:"interest"`
	Balance   float64   `json:"balance"`
}

// Loan is a fixed-rate annuity loan.
type Loan struct {
	LoanID            string        `json:"loanId"`
	BorrowerID        string        `json:"borrowerId,omitempty"`
	Principal         float64       `json:"principal"`
	AnnualRatePercent float64       `json:"annualRatePercent"`
	TermMonths        int           `json:"termMonths"`
	Status            Status        `json:"status,omitempty"`
	ApprovedAt        *time.Time    `json:"approvedAt,omitempty"`
	FundedAt          *time.Time    `json:"fundedAt,omitempty"`
	FirstDueDate      *time.Time    `json:"firstDueDate,omitempty"`
	MaturityDate      *time.Time    `json:"maturityDate,omitempty"`
	MonthlyPayment    float64       `json:"monthlyPayment"`
	Schedule          []Installment `json:"schedule,omitempty"`
	Outstanding       float64       `json:"outstanding"`
	RepaymentAmount   float64       `json:"repaymentAmount,omitempty"`
	LastRepaymentAt   *time.Time    `json:"lastRepaymentAt,omitempty"`
}

func (Loan) Model() entity.ModelSpec { return Model }

func (l Loan) Validate() error {
	if strings.TrimSpace(l.LoanID) == "" {
		return ErrEmptyLoanID
	}
	return nil
}

// CheckTerms validates the commercial terms.
func (l Loan) CheckTerms() error {
	switch {
	case l.Principal <= 0:
		return ErrInvalidPrincipal
	case l.TermMonths < 1 || l.TermMonths > MaxTermMonths:
		return ErrInvalidTerm
	case l.AnnualRatePercent < 0 || l.AnnualRatePercent > MaxRate:
		return ErrInvalidRate
	}
	return nil
}

// Approve accepts the terms.
func (l *Loan) Approve(now time.Time) {
	l.Status = StatusApproved
	l.ApprovedAt = pointer.To(now)
}

// Fund disburses the principal and builds the repayment schedule.
func (l *Loan) Fund(now time.Time) error {
	if err := l.CheckTerms(); err != nil {
		return err
	}
	schedule := Amortize(l.Principal, l.AnnualRatePercent, l.TermMonths, now)
	l.Schedule = schedule
	l.MonthlyPayment = schedule[0].Payment
	l.FirstDueDate = pointer.To(schedule[0].DueDate)
	l.MaturityDate = pointer.To(schedule[len(schedule)-1].DueDate)
	l.Outstanding = roundCents(l.Principal)
	l.Status = StatusFunded
	l.FundedAt = pointer.To(now)
	return nil
}

// CheckRepayment verifies the pending repayment.
func (l Loan) CheckRepayment() error {
	if l.RepaymentAmount <= 0 {
		return ErrInvalidRepayment
	}
	if roundCents(l.RepaymentAmount) > l.Outstanding {
		return fmt.Errorf("%w: %.2f > %.2f", ErrOverpayment, l.RepaymentAmount, l.Outstanding)
	}
	return nil
}

// RecordRepayment reduces the outstanding balance and closes the loan at zero.
func (l *Loan) RecordRepayment(now time.Time) error {
	if err := l.CheckRepayment(); err != nil {
		return err
	}
	l.Outstanding = roundCents(l.Outstanding - l.RepaymentAmount)
	l.RepaymentAmount = 0
	l.LastRepaymentAt = pointer.To(now)
	if l.Outstanding <= 0 {
		l.Outstanding = 0
		l.Status = StatusPaidOff
	}
	return nil
}

// Matured reports whether the loan reached maturity or was fully repaid.
func (l Loan) Matured(now time.Time) bool {
	if l.FundedAt != nil && l.Outstanding == 0 {
		return true
	}
	return l.MaturityDate != nil && !now.Before(*l.MaturityDate)
}

// MonthlyPayment returns the annuity installment rounded to cents.
func MonthlyPayment(principal, annualRatePercent float64, termMonths int) float64 {
	rate := annualRatePercent / 100 / 12
	if rate == 0 {
		return roundCents(principal / float64(termMonths))
	}
	return roundCents(principal * rate / (1 - math.Pow(1+rate, -float64(termMonths))))
}

// Amortize builds the monthly schedule. The final installment absorbs the rounding residue.
func Amortize(principal, annualRatePercent float64, termMonths int, fundedAt time.Time) []Installment {
	rate := annualRatePercent / 100 / 12
	payment := MonthlyPayment(principal, annualRatePercent, termMonths)
	balance := roundCents(principal)
	schedule := make([]Installment, 0, termMonths)
	for n := 1; n <= termMonths; n++ {
		interest := roundCents(balance * rate)
		principalPart := roundCents(payment - interest)
		if n == termMonths || principalPart > balance {
			principalPart = balance
		}
		balance = roundCents(balance - principalPart)
		schedule = append(schedule, Installment{
			Number:    n,
			DueDate:   DueDate(fundedAt, n),
			Payment:   roundCents(principalPart + interest),
			Principal: principalPart,
			Interest:  interest,
			Balance:   balance,
		})
	}
	return schedule
}

// DueDate is the funding day-of-month, months later, clamped to the end of shorter months.
func DueDate(fundedAt time.Time, months int) time.Time {
	year, month, day := fundedAt.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, fundedAt.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, fundedAt.Location())
}

func roundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
