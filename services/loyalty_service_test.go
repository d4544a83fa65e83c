package services

import (
	"context"
	"testing"

	"stayhub-backend/config"
	"stayhub-backend/models"
	"stayhub-backend/repository"

	"github.com/stretchr/testify/require"
)

func newLoyaltyFixture() (*memUOW, *LoyaltyService) {
	uow := newMemUOW()
	svc := NewLoyaltyService(uow, config.DefaultLoyaltyPolicy(), testLogger())
	return uow, svc
}

func TestCalculatePointsToEarn_TierMultipliers(t *testing.T) {
	_, svc := newLoyaltyFixture()

	// $300 spend
	require.Equal(t, int64(300), svc.CalculatePointsToEarn(30000, models.TierBronze))
	require.Equal(t, int64(375), svc.CalculatePointsToEarn(30000, models.TierSilver))
	require.Equal(t, int64(450), svc.CalculatePointsToEarn(30000, models.TierGold))
	require.Equal(t, int64(600), svc.CalculatePointsToEarn(30000, models.TierPlatinum))

	require.Equal(t, int64(0), svc.CalculatePointsToEarn(0, models.TierBronze))
	require.Equal(t, int64(0), svc.CalculatePointsToEarn(-500, models.TierGold))

	// sub-dollar remainders floor away before the multiplier
	require.Equal(t, int64(3), svc.CalculatePointsToEarn(399, models.TierBronze))
	require.Equal(t, int64(4), svc.CalculatePointsToEarn(399, models.TierSilver)) // floor(3 * 1.25)
}

func TestCalculateMaxRedeemablePoints(t *testing.T) {
	_, svc := newLoyaltyFixture()

	// $100 booking, 50% redeemable, 100 points per dollar of discount
	maxPoints, maxDiscount := svc.CalculateMaxRedeemablePoints(10000, 10000)
	require.Equal(t, int64(5000), maxPoints)
	require.Equal(t, int64(5000), maxDiscount)

	// balance below the booking cap
	maxPoints, maxDiscount = svc.CalculateMaxRedeemablePoints(1200, 10000)
	require.Equal(t, int64(1200), maxPoints)
	require.Equal(t, int64(1200), maxDiscount)

	maxPoints, maxDiscount = svc.CalculateMaxRedeemablePoints(0, 10000)
	require.Zero(t, maxPoints)
	require.Zero(t, maxDiscount)
}

func TestGetOrCreateAccount_LazyBronze(t *testing.T) {
	uow, svc := newLoyaltyFixture()

	account, err := svc.GetOrCreateAccount(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, uint(7), account.CustomerID)
	require.Equal(t, models.TierBronze, account.Tier)
	require.Zero(t, account.CurrentPoints)

	again, err := svc.GetOrCreateAccount(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, account.ID, again.ID)

	_, ok := uow.accountFor(7)
	require.True(t, ok)
}

func TestAwardPoints_AppendsLedgerAndBalances(t *testing.T) {
	uow, svc := newLoyaltyFixture()

	points, err := svc.AwardPoints(context.Background(), 7, 1, 30000, "Points earned for stay BK-TEST0001")
	require.NoError(t, err)
	require.Equal(t, int64(300), points)

	account, ok := uow.accountFor(7)
	require.True(t, ok)
	require.Equal(t, int64(300), account.CurrentPoints)
	require.Equal(t, int64(300), account.LifetimePoints)
	require.Equal(t, int64(30000), account.LifetimeSpendingCents)
	require.Equal(t, models.TierBronze, account.Tier)

	entries := uow.entriesFor(account.ID)
	require.Len(t, entries, 1)
	require.Equal(t, models.LoyaltyEntryEarn, entries[0].Type)
	require.Equal(t, int64(300), entries[0].Points)
	require.Equal(t, int64(300), entries[0].BalanceAfter)
	require.NotNil(t, entries[0].BookingID)
}

func TestAwardPoints_TierUpgradeWritesBonusEntry(t *testing.T) {
	uow, svc := newLoyaltyFixture()

	// $480 keeps the account below the SILVER threshold ($500)
	_, err := svc.AwardPoints(context.Background(), 7, 1, 48000, "stay one")
	require.NoError(t, err)

	account, _ := uow.accountFor(7)
	require.Equal(t, models.TierBronze, account.Tier)

	// $40 more crosses it; the earn itself is still at the BRONZE rate
	points, err := svc.AwardPoints(context.Background(), 7, 2, 4000, "stay two")
	require.NoError(t, err)
	require.Equal(t, int64(40), points)

	account, _ = uow.accountFor(7)
	require.Equal(t, models.TierSilver, account.Tier)
	require.NotNil(t, account.TierUpdatedAt)
	require.Equal(t, int64(52000), account.LifetimeSpendingCents)

	entries := uow.entriesFor(account.ID)
	require.Len(t, entries, 3)
	bonus := entries[2]
	require.Equal(t, models.LoyaltyEntryBonus, bonus.Type)
	require.Zero(t, bonus.Points)
	require.Equal(t, "Tier upgraded from BRONZE to SILVER", bonus.Description)

	// next earn uses the SILVER multiplier
	require.Equal(t, int64(125), svc.CalculatePointsToEarn(10000, account.Tier))
}

func redeemViaTx(t *testing.T, uow *memUOW, svc *LoyaltyService, customerID uint, requested, amountCents, alreadyRedeemed int64) (Redemption, error) {
	t.Helper()
	var (
		redemption Redemption
		redeemErr  error
	)
	err := uow.WithinTx(context.Background(), func(st repository.Stores) error {
		redemption, redeemErr = svc.RedeemPointsTx(context.Background(), st, customerID, nil, requested, amountCents, alreadyRedeemed)
		return redeemErr
	})
	if redeemErr != nil {
		return Redemption{}, redeemErr
	}
	return redemption, err
}

func TestRedeemPoints_ClampsToBookingCap(t *testing.T) {
	uow, svc := newLoyaltyFixture()
	uow.seedAccount(models.LoyaltyAccount{CustomerID: 7, CurrentPoints: 10000, LifetimePoints: 10000, Tier: models.TierBronze})

	// $100 booking caps redemption at 5000 points regardless of the request
	redemption, err := redeemViaTx(t, uow, svc, 7, 6000, 10000, 0)
	require.NoError(t, err)
	require.Equal(t, int64(5000), redemption.Points)
	require.Equal(t, int64(5000), redemption.DiscountCents)

	account, _ := uow.accountFor(7)
	require.Equal(t, int64(5000), account.CurrentPoints)

	entries := uow.entriesFor(account.ID)
	require.Len(t, entries, 1)
	require.Equal(t, models.LoyaltyEntryRedeem, entries[0].Type)
	require.Equal(t, int64(-5000), entries[0].Points)
	require.Equal(t, int64(5000), entries[0].BalanceAfter)
}

func TestRedeemPoints_RejectsMoreThanBalance(t *testing.T) {
	uow, svc := newLoyaltyFixture()
	uow.seedAccount(models.LoyaltyAccount{CustomerID: 7, CurrentPoints: 100, Tier: models.TierBronze})

	_, err := redeemViaTx(t, uow, svc, 7, 200, 10000, 0)
	require.Error(t, err)
	require.IsType(t, &ValidationError{}, err)
}

func TestRedeemPoints_CapIsNetOfPriorRedemptions(t *testing.T) {
	uow, svc := newLoyaltyFixture()
	uow.seedAccount(models.LoyaltyAccount{CustomerID: 7, CurrentPoints: 10000, Tier: models.TierBronze})

	// the cap for the booking is already exhausted
	_, err := redeemViaTx(t, uow, svc, 7, 1000, 10000, 5000)
	require.Error(t, err)
	require.IsType(t, &ValidationError{}, err)
}

func TestRedeemPoints_RejectsNonPositiveRequest(t *testing.T) {
	uow, svc := newLoyaltyFixture()
	uow.seedAccount(models.LoyaltyAccount{CustomerID: 7, CurrentPoints: 100, Tier: models.TierBronze})

	_, err := redeemViaTx(t, uow, svc, 7, 0, 10000, 0)
	require.IsType(t, &ValidationError{}, err)

	_, err = redeemViaTx(t, uow, svc, 7, -10, 10000, 0)
	require.IsType(t, &ValidationError{}, err)
}

func TestAdjustPoints_PositiveAndNegative(t *testing.T) {
	uow, svc := newLoyaltyFixture()
	uow.seedAccount(models.LoyaltyAccount{CustomerID: 7, CurrentPoints: 100, LifetimePoints: 100, Tier: models.TierBronze})

	entry, err := svc.AdjustPoints(context.Background(), 7, 50, "goodwill for late check-in", 42)
	require.NoError(t, err)
	require.Equal(t, models.LoyaltyEntryAdjustment, entry.Type)
	require.Equal(t, int64(50), entry.Points)
	require.Equal(t, int64(150), entry.BalanceAfter)
	require.NotNil(t, entry.AdminID)
	require.Equal(t, uint(42), *entry.AdminID)

	_, err = svc.AdjustPoints(context.Background(), 7, -120, "correction", 42)
	require.NoError(t, err)

	account, _ := uow.accountFor(7)
	require.Equal(t, int64(30), account.CurrentPoints)
	// only positive adjustments count toward lifetime
	require.Equal(t, int64(150), account.LifetimePoints)
}

func TestAdjustPoints_CannotGoNegative(t *testing.T) {
	uow, svc := newLoyaltyFixture()
	uow.seedAccount(models.LoyaltyAccount{CustomerID: 7, CurrentPoints: 100, Tier: models.TierBronze})

	_, err := svc.AdjustPoints(context.Background(), 7, -101, "too much", 42)
	require.Error(t, err)
	require.IsType(t, &ValidationError{}, err)

	_, err = svc.AdjustPoints(context.Background(), 7, 0, "noop", 42)
	require.IsType(t, &ValidationError{}, err)

	_, err = svc.AdjustPoints(context.Background(), 7, 10, "", 42)
	require.IsType(t, &ValidationError{}, err)
}

func TestReconcileBalance_LedgerSumMatchesCachedBalance(t *testing.T) {
	uow, svc := newLoyaltyFixture()
	ctx := context.Background()

	_, err := svc.AwardPoints(ctx, 7, 1, 30000, "stay")
	require.NoError(t, err)
	_, err = redeemViaTx(t, uow, svc, 7, 100, 10000, 0)
	require.NoError(t, err)
	_, err = svc.AdjustPoints(ctx, 7, 25, "goodwill", 42)
	require.NoError(t, err)

	ledgerSum, cached, err := svc.ReconcileBalance(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, int64(225), ledgerSum)
	require.Equal(t, ledgerSum, cached)
}

func TestGetAccountWithHistory(t *testing.T) {
	_, svc := newLoyaltyFixture()
	ctx := context.Background()

	_, err := svc.AwardPoints(ctx, 7, 1, 10000, "first stay")
	require.NoError(t, err)
	_, err = svc.AwardPoints(ctx, 7, 2, 20000, "second stay")
	require.NoError(t, err)

	account, history, err := svc.GetAccountWithHistory(ctx, 7, 1)
	require.NoError(t, err)
	require.Equal(t, int64(300), account.CurrentPoints)
	require.Len(t, history, 1)
	require.Equal(t, "second stay", history[0].Description)
}
