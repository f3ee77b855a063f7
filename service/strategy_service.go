package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"loan-topup/domain"
	"loan-topup/repository"
)

// StrategyService memoizes GenerateStrategies keyed on the policy, the loan
// and the (amount, tenure, allocation) tuple.
type StrategyService struct {
	policy    Policy
	policyKey uint64
	cache     repository.CacheRepository
	ttl       time.Duration
	log       *logrus.Logger
}

func NewStrategyService(
	policy Policy,
	cache repository.CacheRepository,
	ttl time.Duration,
	log *logrus.Logger,
) *StrategyService {
	return &StrategyService{
		policy:    policy,
		policyKey: xxhash.Sum64String(fmt.Sprintf("%+v", policy)),
		cache:     cache,
		ttl:       ttl,
		log:       log,
	}
}

func (s *StrategyService) Policy() Policy { return s.policy }

// Generate returns the strategy set for the input; Version is left at zero
// for the caller to stamp.
func (s *StrategyService) Generate(
	ctx context.Context,
	loan domain.Loan,
	in domain.TopUpInput,
) (domain.StrategySet, error) {
	key := strategyCacheKey(s.policyKey, loan, in)

	if raw, ok := s.cache.Get(ctx, key); ok {
		var set domain.StrategySet
		err := json.Unmarshal([]byte(raw), &set)
		if err == nil {
			return set, nil
		}
		s.log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("discarding unreadable cached strategy set")
	}

	strategies, err := GenerateStrategies(s.policy, loan, in)
	if err != nil {
		return domain.StrategySet{}, err
	}
	set := domain.StrategySet{
		Input:      in,
		Strategies: strategies,
		Suggested:  SuggestStrategy(s.policy, loan, in.Amount),
	}

	// Caching is best effort.
	if raw, err := json.Marshal(set); err != nil {
		s.log.WithError(err).Warn("failed to encode strategy set")
	} else if err := s.cache.Set(ctx, key, string(raw), s.ttl); err != nil {
		s.log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("failed to cache strategy set")
	}

	return set, nil
}

// strategyCacheKey hashes everything that shapes the output. policyKey keeps
// differently configured instances sharing one Redis apart.
func strategyCacheKey(policyKey uint64, loan domain.Loan, in domain.TopUpInput) string {
	applied, cash := "-", "-"
	if in.Allocation != nil {
		applied = strconv.FormatFloat(in.Allocation.AppliedToLoan, 'f', 2, 64)
		cash = strconv.FormatFloat(in.Allocation.CashToClient, 'f', 2, 64)
	}
	tuple := fmt.Sprintf("%016x|%.2f|%d|%s|%s|%.2f|%.4f|%d|%.2f|%.2f|%d",
		policyKey, in.Amount, in.TenureMonths, applied, cash,
		loan.OutstandingBalance, loan.InterestRate, loan.RemainingMonths,
		loan.MonthlyPayment, loan.MonthlyIncome, loan.DaysPastDue,
	)
	return fmt.Sprintf("strategies:%s:%016x", loan.ID, xxhash.Sum64String(tuple))
}
