package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"venue-pos/internal/domain"
)

type fakeStaff struct {
	venues map[string]domain.Venue
	staff  []domain.Staff
}

func (f *fakeStaff) VenueByCode(_ context.Context, code string) (domain.Venue, error) {
	for _, v := range f.venues {
		if v.Code == code {
			return v, nil
		}
	}
	return domain.Venue{}, domain.ErrNotFound
}

func (f *fakeStaff) Venue(_ context.Context, id string) (domain.Venue, error) {
	if v, ok := f.venues[id]; ok {
		return v, nil
	}
	return domain.Venue{}, domain.ErrNotFound
}

func (f *fakeStaff) ActiveStaff(_ context.Context, venueID string) ([]domain.Staff, error) {
	var out []domain.Staff
	for _, s := range f.staff {
		if s.VenueID == venueID {
			out = append(out, s)
		}
	}
	return out, nil
}

func hash(t *testing.T, pin string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newRepo(t *testing.T) *fakeStaff {
	return &fakeStaff{
		venues: map[string]domain.Venue{"v1": {ID: "v1", Code: "MODA"}},
		staff: []domain.Staff{
			{ID: "s1", VenueID: "v1", Name: "Ayşe", Role: domain.RoleKitchen, IsActive: true, PINHash: hash(t, "0427")},
			{ID: "s2", VenueID: "v1", Name: "Can", Role: domain.RoleManager, IsActive: true, PINHash: hash(t, "1111")},
		},
	}
}

func enter(t *testing.T, k *Kiosk, pin string) (*Result, error) {
	t.Helper()
	var res *Result
	var err error
	for _, d := range pin {
		res, err = k.EnterDigit(context.Background(), d)
	}
	return res, err
}

func TestKioskHappyPath(t *testing.T) {
	ks := NewKiosks(newRepo(t), NewTokens("secret", time.Hour), KiosksOptions{})
	ctx := context.Background()
	k, err := ks.Start(ctx, "en")
	require.NoError(t, err)
	assert.Equal(t, StateCodeEntry, k.State())

	require.NoError(t, k.SubmitCode(ctx, "MODA"))
	assert.Equal(t, StateStaffSelection, k.State())
	assert.Len(t, k.View().Staff, 2)

	require.NoError(t, k.SelectStaff(ctx, "s1"))
	assert.Equal(t, StatePINEntry, k.State())

	res, err := enter(t, k, "0427")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, StateAuthenticated, k.State())
	assert.Equal(t, "/kitchen", res.Landing)
	assert.Empty(t, res.Staff.PINHash)

	claims, err := ks.Tokens().Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.Subject)
	assert.Equal(t, "v1", claims.VenueID)
	assert.Equal(t, domain.RoleKitchen, claims.Role)
}

func TestWrongPINClearsDigitsAndAllowsRetry(t *testing.T) {
	ks := NewKiosks(newRepo(t), NewTokens("secret", time.Hour), KiosksOptions{})
	ctx := context.Background()
	k, _ := ks.Start(ctx, "tr")
	require.NoError(t, k.SubmitCode(ctx, "MODA"))
	require.NoError(t, k.SelectStaff(ctx, "s1"))

	for _, wrong := range []string{"0428", "4270", "1111", "0000", "9999"} {
		res, err := enter(t, k, wrong)
		require.ErrorIs(t, err, ErrInvalidPIN, wrong)
		assert.Nil(t, res)
		var le *LocalizedError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, "Hatalı PIN, lütfen tekrar deneyin", le.Message)
		assert.Equal(t, StatePINEntry, k.State())
		assert.Zero(t, k.Digits())
	}

	res, err := enter(t, k, "0427")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestPartialPINDoesNotVerify(t *testing.T) {
	ks := NewKiosks(newRepo(t), NewTokens("secret", time.Hour), KiosksOptions{})
	ctx := context.Background()
	k, _ := ks.Start(ctx, "en")
	require.NoError(t, k.SubmitCode(ctx, "MODA"))
	require.NoError(t, k.SelectStaff(ctx, "s1"))

	res, err := enter(t, k, "042")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 3, k.Digits())

	_, err = k.EnterDigit(ctx, 'x')
	assert.ErrorIs(t, err, ErrInvalidDigit)
}

func TestBackUnwindsOneStep(t *testing.T) {
	ks := NewKiosks(newRepo(t), NewTokens("secret", time.Hour), KiosksOptions{})
	ctx := context.Background()
	k, _ := ks.Start(ctx, "en")
	require.NoError(t, k.SubmitCode(ctx, "MODA"))
	require.NoError(t, k.SelectStaff(ctx, "s2"))
	_, _ = k.EnterDigit(ctx, '1')
	_, _ = k.EnterDigit(ctx, '1')

	require.NoError(t, k.Back(ctx))
	assert.Equal(t, StateStaffSelection, k.State())
	assert.Zero(t, k.Digits())
	assert.Nil(t, k.View().Selected)

	require.NoError(t, k.Back(ctx))
	assert.Equal(t, StateCodeEntry, k.State())
	assert.Nil(t, k.View().Venue)

	assert.ErrorIs(t, k.Back(ctx), ErrWrongState)
}

func TestUnknownCodeAndStaff(t *testing.T) {
	ks := NewKiosks(newRepo(t), NewTokens("secret", time.Hour), KiosksOptions{})
	ctx := context.Background()
	k, _ := ks.Start(ctx, "en")

	assert.ErrorIs(t, k.SubmitCode(ctx, "NOPE"), ErrUnknownVenueCode)
	assert.ErrorIs(t, k.SelectStaff(ctx, "s1"), ErrWrongState)

	require.NoError(t, k.SubmitCode(ctx, "MODA"))
	assert.ErrorIs(t, k.SelectStaff(ctx, "ghost"), ErrUnknownStaff)
}

func TestSingleVenueStartsAtStaffSelection(t *testing.T) {
	ks := NewKiosks(newRepo(t), NewTokens("secret", time.Hour), KiosksOptions{DefaultVenueID: "v1"})
	ctx := context.Background()
	k, err := ks.Start(ctx, "en")
	require.NoError(t, err)
	assert.Equal(t, StateStaffSelection, k.State())
	assert.ErrorIs(t, k.Back(ctx), ErrWrongState)

	got, err := ks.Get(k.ID())
	require.NoError(t, err)
	assert.Same(t, k, got)
	_, err = ks.Get("missing")
	assert.ErrorIs(t, err, ErrKioskNotFound)
}

func TestTokenRejectsOtherSecretAndExpiry(t *testing.T) {
	now := time.Now()
	a := NewTokens("a", time.Minute)
	a.now = func() time.Time { return now }
	raw, _, err := a.Issue(domain.Staff{ID: "s1", VenueID: "v1", Role: domain.RoleWaiter})
	require.NoError(t, err)

	_, err = NewTokens("b", time.Minute).Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	a.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = a.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
