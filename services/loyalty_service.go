package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"stayhub-backend/config"
	"stayhub-backend/models"
	"stayhub-backend/repository"

	"go.uber.org/zap"
)

// LoyaltyAwarder is the seam the payment reconciler uses to award points on a
// confirmed booking, inside the reconciler's own transaction.
type LoyaltyAwarder interface {
	AwardPointsTx(ctx context.Context, st repository.Stores, customerID, bookingID uint, amountCents int64, description string) (int64, error)
}

// LoyaltyRedeemer is the seam the booking state machine uses to redeem points
// for a discount, inside the booking transaction.
type LoyaltyRedeemer interface {
	RedeemPointsTx(ctx context.Context, st repository.Stores, customerID uint, bookingID *uint, requestedPoints, bookingAmountCents, alreadyRedeemedPoints int64) (Redemption, error)
}

// Redemption is the actually-applied result: it may be less than requested
// and callers must use these values, not the request.
type Redemption struct {
	Points        int64 `json:"points"`
	DiscountCents int64 `json:"discount_cents"`
}

// LoyaltyService owns the points ledger and the cached account balance. All
// mutations append a ledger entry and update the balance in one transaction
// while holding the account row lock, so currentPoints always equals the
// running ledger sum.
type LoyaltyService struct {
	uow    repository.UnitOfWork
	policy config.LoyaltyPolicy
	log    *zap.Logger
}

func NewLoyaltyService(uow repository.UnitOfWork, policy config.LoyaltyPolicy, log *zap.Logger) *LoyaltyService {
	return &LoyaltyService{uow: uow, policy: policy, log: log}
}

// GetOrCreateAccount lazily creates a BRONZE account with zero balances.
func (s *LoyaltyService) GetOrCreateAccount(ctx context.Context, customerID uint) (*models.LoyaltyAccount, error) {
	var account *models.LoyaltyAccount
	err := s.uow.WithinTx(ctx, func(st repository.Stores) error {
		var txErr error
		account, txErr = s.getOrCreateAccountTx(ctx, st, customerID, false)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *LoyaltyService) getOrCreateAccountTx(ctx context.Context, st repository.Stores, customerID uint, forUpdate bool) (*models.LoyaltyAccount, error) {
	get := st.Loyalty().GetAccountByCustomerID
	if forUpdate {
		get = st.Loyalty().GetAccountByCustomerIDForUpdate
	}

	account, err := get(ctx, customerID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	account = &models.LoyaltyAccount{
		CustomerID: customerID,
		Tier:       models.TierBronze,
	}
	if createErr := st.Loyalty().CreateAccount(ctx, account); createErr != nil {
		// lost the creation race: another request made the account first
		if errors.Is(createErr, repository.ErrDuplicate) {
			return get(ctx, customerID)
		}
		return nil, createErr
	}
	return account, nil
}

// CalculatePointsToEarn applies
// floor(floor(amount * pointsPerDollar) * tierMultiplier) with amount in
// dollars.
func (s *LoyaltyService) CalculatePointsToEarn(amountCents int64, tier string) int64 {
	if amountCents <= 0 {
		return 0
	}
	base := math.Floor(float64(amountCents) * s.policy.PointsPerDollar / 100.0)
	return int64(math.Floor(base * s.policy.MultiplierFor(tier)))
}

// CalculateMaxRedeemablePoints caps redemption at the configured fraction of
// the booking amount, and below the available balance.
func (s *LoyaltyService) CalculateMaxRedeemablePoints(currentPoints, bookingAmountCents int64) (maxPoints, maxDiscountCents int64) {
	if bookingAmountCents <= 0 || currentPoints <= 0 {
		return 0, 0
	}
	byAmount := int64(math.Floor(float64(bookingAmountCents) / 100.0 * s.policy.MaxRedemptionPercent * float64(s.policy.PointsPerDollarValue)))
	maxPoints = currentPoints
	if byAmount < maxPoints {
		maxPoints = byAmount
	}
	maxDiscountCents = maxPoints * 100 / s.policy.PointsPerDollarValue
	return maxPoints, maxDiscountCents
}

// AwardPointsTx appends an EARN entry and updates the cached balances, then
// re-evaluates the tier. A tier upgrade is recorded as a zero-point BONUS
// entry so the ledger shows when and why the multiplier changed.
func (s *LoyaltyService) AwardPointsTx(ctx context.Context, st repository.Stores, customerID, bookingID uint, amountCents int64, description string) (int64, error) {
	if amountCents < 0 {
		return 0, validationf("award amount cannot be negative")
	}

	account, err := s.getOrCreateAccountTx(ctx, st, customerID, true)
	if err != nil {
		return 0, err
	}

	points := s.CalculatePointsToEarn(amountCents, account.Tier)
	if points > 0 {
		entry := &models.LoyaltyTransaction{
			AccountID:    account.ID,
			BookingID:    &bookingID,
			Type:         models.LoyaltyEntryEarn,
			Points:       points,
			BalanceAfter: account.CurrentPoints + points,
			Description:  description,
		}
		if err := st.Loyalty().AppendEntry(ctx, entry); err != nil {
			return 0, err
		}
	}

	account.CurrentPoints += points
	account.LifetimePoints += points
	account.LifetimeSpendingCents += amountCents

	if newTier := s.policy.TierFor(account.LifetimeSpendingCents); newTier != account.Tier {
		now := time.Now().UTC()
		oldTier := account.Tier
		account.Tier = newTier
		account.TierUpdatedAt = &now

		bonus := &models.LoyaltyTransaction{
			AccountID:    account.ID,
			BookingID:    &bookingID,
			Type:         models.LoyaltyEntryBonus,
			Points:       0,
			BalanceAfter: account.CurrentPoints,
			Description:  fmt.Sprintf("Tier upgraded from %s to %s", oldTier, newTier),
		}
		if err := st.Loyalty().AppendEntry(ctx, bonus); err != nil {
			return 0, err
		}
		s.log.Info("loyalty tier upgraded",
			zap.Uint("customer_id", customerID),
			zap.String("from", oldTier),
			zap.String("to", newTier))
	}

	if err := st.Loyalty().UpdateAccount(ctx, account); err != nil {
		return 0, err
	}
	return points, nil
}

// AwardPoints is the standalone award operation (one transaction).
func (s *LoyaltyService) AwardPoints(ctx context.Context, customerID, bookingID uint, amountCents int64, description string) (int64, error) {
	var points int64
	err := s.uow.WithinTx(ctx, func(st repository.Stores) error {
		var txErr error
		points, txErr = s.AwardPointsTx(ctx, st, customerID, bookingID, amountCents, description)
		return txErr
	})
	return points, err
}

// RedeemPointsTx validates the request, clamps it to the redeemable maximum
// for the booking amount (net of points already redeemed against the same
// booking) and appends a negative REDEEM entry. The returned actual amount
// may be less than requested.
func (s *LoyaltyService) RedeemPointsTx(ctx context.Context, st repository.Stores, customerID uint, bookingID *uint, requestedPoints, bookingAmountCents, alreadyRedeemedPoints int64) (Redemption, error) {
	if requestedPoints <= 0 {
		return Redemption{}, validationf("requested points must be positive")
	}

	account, err := s.getOrCreateAccountTx(ctx, st, customerID, true)
	if err != nil {
		return Redemption{}, err
	}

	if requestedPoints > account.CurrentPoints {
		return Redemption{}, validationf("insufficient points balance: have %d, requested %d",
			account.CurrentPoints, requestedPoints)
	}

	maxPoints, _ := s.CalculateMaxRedeemablePoints(account.CurrentPoints, bookingAmountCents)
	maxPoints -= alreadyRedeemedPoints
	if maxPoints <= 0 {
		return Redemption{}, validationf("booking amount cannot be discounted further")
	}

	actual := requestedPoints
	if actual > maxPoints {
		actual = maxPoints
	}
	discount := actual * 100 / s.policy.PointsPerDollarValue

	entry := &models.LoyaltyTransaction{
		AccountID:    account.ID,
		BookingID:    bookingID,
		Type:         models.LoyaltyEntryRedeem,
		Points:       -actual,
		BalanceAfter: account.CurrentPoints - actual,
		Description:  fmt.Sprintf("Redeemed %d points for a %d cent discount", actual, discount),
	}
	if err := st.Loyalty().AppendEntry(ctx, entry); err != nil {
		return Redemption{}, err
	}

	account.CurrentPoints -= actual
	if err := st.Loyalty().UpdateAccount(ctx, account); err != nil {
		return Redemption{}, err
	}

	return Redemption{Points: actual, DiscountCents: discount}, nil
}

// AdjustPoints is a manual, always-ledgered correction. A negative adjustment
// can never push the balance below zero.
func (s *LoyaltyService) AdjustPoints(ctx context.Context, customerID uint, points int64, reason string, adminID uint) (*models.LoyaltyTransaction, error) {
	if points == 0 {
		return nil, validationf("adjustment points cannot be zero")
	}
	if reason == "" {
		return nil, validationf("adjustment reason is required")
	}

	var entry *models.LoyaltyTransaction
	err := s.uow.WithinTx(ctx, func(st repository.Stores) error {
		account, err := s.getOrCreateAccountTx(ctx, st, customerID, true)
		if err != nil {
			return err
		}

		if points < 0 && -points > account.CurrentPoints {
			return validationf("adjustment of %d exceeds current balance %d", points, account.CurrentPoints)
		}

		entry = &models.LoyaltyTransaction{
			AccountID:    account.ID,
			Type:         models.LoyaltyEntryAdjustment,
			Points:       points,
			BalanceAfter: account.CurrentPoints + points,
			Description:  reason,
			AdminID:      &adminID,
		}
		if err := st.Loyalty().AppendEntry(ctx, entry); err != nil {
			return err
		}

		account.CurrentPoints += points
		if points > 0 {
			account.LifetimePoints += points
		}
		return st.Loyalty().UpdateAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetAccountWithHistory returns the account plus its most recent ledger
// entries.
func (s *LoyaltyService) GetAccountWithHistory(ctx context.Context, customerID uint, limit int) (*models.LoyaltyAccount, []models.LoyaltyTransaction, error) {
	account, err := s.GetOrCreateAccount(ctx, customerID)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.uow.Loyalty().ListEntries(ctx, account.ID, limit)
	if err != nil {
		return nil, nil, err
	}
	return account, entries, nil
}

// ReconcileBalance recomputes the ledger sum next to the cached balance.
// The two must always match.
func (s *LoyaltyService) ReconcileBalance(ctx context.Context, customerID uint) (ledgerSum, cached int64, err error) {
	account, err := s.uow.Loyalty().GetAccountByCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, 0, notFound("loyalty account")
		}
		return 0, 0, err
	}
	sum, err := s.uow.Loyalty().SumEntries(ctx, account.ID)
	if err != nil {
		return 0, 0, err
	}
	return sum, account.CurrentPoints, nil
}
