// Package processors holds the loan processors and criteria.
package processors

import (
	"context"
	"fmt"

	"github.com/Apurer/go-entity-processors/internal/domains/loan/domain"
	"github.com/Apurer/go-entity-processors/internal/processing"
	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

const (
	ApproveName         = "loan_approve"
	FundName            = "loan_fund"
	RecordRepaymentName = "loan_record_repayment"
	MaturedName         = "loan_is_matured"
)

type loan = entity.WithMetadata[domain.Loan]

// Approve accepts a submitted loan with sane terms.
func Approve(deps processing.Deps) processing.Processor[domain.Loan] {
	return processing.ProcessorFunc[domain.Loan](ApproveName,
		func(_ context.Context, in loan) error {
			return in.Entity.CheckTerms()
		},
		func(_ context.Context, in *loan) error {
			in.Entity.Approve(deps.Now())
			return nil
		})
}

// Fund disburses an approved loan and builds its amortization schedule.
func Fund(deps processing.Deps) processing.Processor[domain.Loan] {
	return processing.ProcessorFunc[domain.Loan](FundName,
		func(_ context.Context, in loan) error {
			if err := processing.RequireState(in.Metadata, string(domain.StatusApproved)); err != nil {
				return err
			}
			return in.Entity.CheckTerms()
		},
		func(_ context.Context, in *loan) error {
			return in.Entity.Fund(deps.Now())
		})
}

// RecordRepayment applies the pending repayment to the outstanding balance.
func RecordRepayment(deps processing.Deps) processing.Processor[domain.Loan] {
	return processing.ProcessorFunc[domain.Loan](RecordRepaymentName,
		func(_ context.Context, in loan) error {
			if err := processing.RequireState(in.Metadata, string(domain.StatusFunded)); err != nil {
				return err
			}
			return in.Entity.CheckRepayment()
		},
		func(_ context.Context, in *loan) error {
			return in.Entity.RecordRepayment(deps.Now())
		})
}

// IsMatured gates closing the loan.
func IsMatured(deps processing.Deps) processing.Criterion[domain.Loan] {
	return processing.CriterionFunc[domain.Loan](MaturedName, func(_ context.Context, in loan) (processing.Outcome, error) {
		if in.Entity.Matured(deps.Now()) {
			return processing.Match(), nil
		}
		if in.Entity.MaturityDate == nil {
			return processing.NoMatch(processing.CategoryDataQuality, fmt.Sprintf("loan %s has no maturity date", in.Entity.LoanID)), nil
		}
		return processing.NoMatch(processing.CategoryBusinessRule,
			fmt.Sprintf("loan %s matures on %s", in.Entity.LoanID, in.Entity.MaturityDate.Format("2006-01-02"))), nil
	})
}

// Register adds the loan handlers to the registry.
func Register(reg *processing.Registry, deps processing.Deps) error {
	for _, p := range []processing.Processor[domain.Loan]{Approve(deps), Fund(deps), RecordRepayment(deps)} {
		if err := reg.RegisterProcessor(processing.AdaptProcessor(p)); err != nil {
			return err
		}
	}
	return reg.RegisterCriterion(processing.AdaptCriterion(IsMatured(deps)))
}
