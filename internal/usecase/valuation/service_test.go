package valuation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/orcatt/crayon-bs/internal/domain"
)

// MockPositionRepository is a mock implementation of PositionRepository for testing
type MockPositionRepository struct {
	mock.Mock
}

func (m *MockPositionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.FundPosition, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FundPosition), args.Error(1)
}

func (m *MockPositionRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.FundPosition, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FundPosition), args.Error(1)
}

func (m *MockPositionRepository) Create(ctx context.Context, p *domain.FundPosition) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPositionRepository) Update(ctx context.Context, p *domain.FundPosition) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPositionRepository) Rename(ctx context.Context, id uuid.UUID, fundName, code string) error {
	args := m.Called(ctx, id, fundName, code)
	return args.Error(0)
}

func (m *MockPositionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPositionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.FundPosition, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.FundPosition), args.Error(1)
}

// MockMarkRepository is a mock implementation of MarkRepository for testing
type MockMarkRepository struct {
	mock.Mock
}

func (m *MockMarkRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DailyMark, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DailyMark), args.Error(1)
}

func (m *MockMarkRepository) GetByFundAndDate(ctx context.Context, fundID uuid.UUID, date time.Time) (*domain.DailyMark, error) {
	args := m.Called(ctx, fundID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DailyMark), args.Error(1)
}

func (m *MockMarkRepository) GetLatestBefore(ctx context.Context, fundID uuid.UUID, date time.Time) (*domain.DailyMark, error) {
	args := m.Called(ctx, fundID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DailyMark), args.Error(1)
}

func (m *MockMarkRepository) Upsert(ctx context.Context, mark *domain.DailyMark) error {
	args := m.Called(ctx, mark)
	return args.Error(0)
}

func (m *MockMarkRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMarkRepository) ListByFund(ctx context.Context, fundID uuid.UUID) ([]*domain.DailyMark, error) {
	args := m.Called(ctx, fundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DailyMark), args.Error(1)
}

func (m *MockMarkRepository) ListByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]*domain.DailyMark, error) {
	args := m.Called(ctx, userID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DailyMark), args.Error(1)
}

func (m *MockMarkRepository) CountByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (int, error) {
	args := m.Called(ctx, userID, date)
	return args.Int(0), args.Error(1)
}

func (m *MockMarkRepository) DeleteByFund(ctx context.Context, fundID uuid.UUID) error {
	args := m.Called(ctx, fundID)
	return args.Error(0)
}

// MockSummaryRepository is a mock implementation of SummaryRepository for testing
type MockSummaryRepository struct {
	mock.Mock
}

func (m *MockSummaryRepository) AddToDate(ctx context.Context, userID uuid.UUID, date time.Time, delta decimal.Decimal) error {
	args := m.Called(ctx, userID, date, delta)
	return args.Error(0)
}

func (m *MockSummaryRepository) Delete(ctx context.Context, userID uuid.UUID, date time.Time) error {
	args := m.Called(ctx, userID, date)
	return args.Error(0)
}

func (m *MockSummaryRepository) ListByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*domain.DailySummary, error) {
	args := m.Called(ctx, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DailySummary), args.Error(1)
}

// stubRepositorySet hands the mocks to code expecting a RepositorySet.
// Valuation never touches the transaction repository.
type stubRepositorySet struct {
	positions *MockPositionRepository
	marks     *MockMarkRepository
	summaries *MockSummaryRepository
}

func (s *stubRepositorySet) Positions() domain.PositionRepository       { return s.positions }
func (s *stubRepositorySet) Transactions() domain.TransactionRepository { return nil }
func (s *stubRepositorySet) Marks() domain.MarkRepository               { return s.marks }
func (s *stubRepositorySet) Summaries() domain.SummaryRepository        { return s.summaries }

// stubUnitOfWork runs fn directly against the stub repository set.
type stubUnitOfWork struct {
	repos domain.RepositorySet
}

func (u *stubUnitOfWork) Execute(ctx context.Context, fn func(repos domain.RepositorySet) error) error {
	return fn(u.repos)
}

func newTestService() (*Service, *stubRepositorySet) {
	repos := &stubRepositorySet{
		positions: new(MockPositionRepository),
		marks:     new(MockMarkRepository),
		summaries: new(MockSummaryRepository),
	}
	return NewService(&stubUnitOfWork{repos: repos}), repos
}

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func heldPosition(userID uuid.UUID) *domain.FundPosition {
	// 100 shares bought at 1.00
	return &domain.FundPosition{
		ID:            uuid.New(),
		UserID:        userID,
		FundName:      "Global Index",
		Code:          "000001",
		HoldingShares: d("100"),
		HoldingAmount: d("100.00"),
		HoldingCost:   d("1.00"),
		TotalCost:     d("100.00"),
	}
}

func TestApplyMark(t *testing.T) {
	ctx := context.Background()
	service, repos := newTestService()
	userID := uuid.New()
	position := heldPosition(userID)
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	repos.positions.On("GetByIDForUpdate", ctx, position.ID).Return(position, nil)
	repos.marks.On("GetByFundAndDate", ctx, position.ID, date).Return(nil, domain.ErrNotFound)
	repos.marks.On("Upsert", ctx, mock.MatchedBy(func(mark *domain.DailyMark) bool {
		return mark.FundID == position.ID &&
			mark.Date.Equal(date) &&
			mark.CurrentNetValue.Equal(d("1.050")) &&
			mark.ProfitLoss.Equal(d("5.00"))
	})).Return(nil)
	repos.summaries.On("AddToDate", ctx, userID, date, mock.MatchedBy(func(delta decimal.Decimal) bool {
		return delta.Equal(d("5.00"))
	})).Return(nil)
	repos.positions.On("Update", ctx, mock.MatchedBy(func(p *domain.FundPosition) bool {
		return p.HoldingAmount.Equal(d("105.00")) &&
			p.HoldingProfit.Equal(d("5.00")) &&
			p.HoldingProfitRate.Equal(d("0.05")) &&
			p.CurrentNetValue.Equal(d("1.050"))
	})).Return(nil)

	// Execute
	updated, mark, err := service.ApplyMark(ctx, ApplyMarkInput{
		UserID:   userID,
		FundID:   position.ID,
		Date:     date,
		NetValue: d("1.050"),
	})

	// Assert
	assert.NoError(t, err)
	assert.True(t, updated.HoldingProfit.Equal(d("5.00")))
	assert.True(t, mark.ProfitLoss.Equal(d("5.00")))
	repos.positions.AssertExpectations(t)
	repos.marks.AssertExpectations(t)
	repos.summaries.AssertExpectations(t)
}

func TestApplyMark_RemarkAccumulatesIntoExistingRow(t *testing.T) {
	ctx := context.Background()
	service, repos := newTestService()
	userID := uuid.New()
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	// Already marked today at 1.05
	position := heldPosition(userID)
	position.HoldingAmount = d("105.00")
	position.HoldingProfit = d("5.00")
	position.TotalProfit = d("5.00")
	position.HoldingProfitRate = d("0.05")
	position.CurrentNetValue = d("1.05")

	existing := &domain.DailyMark{
		ID:              uuid.New(),
		FundID:          position.ID,
		UserID:          userID,
		Date:            date,
		CurrentNetValue: d("1.05"),
		ProfitLoss:      d("5.00"),
	}

	repos.positions.On("GetByIDForUpdate", ctx, position.ID).Return(position, nil)
	repos.marks.On("GetByFundAndDate", ctx, position.ID, date).Return(existing, nil)
	// The re-mark keeps the row's identity and carries the day's total
	repos.marks.On("Upsert", ctx, mock.MatchedBy(func(mark *domain.DailyMark) bool {
		return mark.ID == existing.ID &&
			mark.ProfitLoss.Equal(d("6.00")) &&
			mark.CurrentNetValue.Equal(d("1.06"))
	})).Return(nil)
	// The summary moves by the delta only
	repos.summaries.On("AddToDate", ctx, userID, date, mock.MatchedBy(func(delta decimal.Decimal) bool {
		return delta.Equal(d("1.00"))
	})).Return(nil)
	repos.positions.On("Update", ctx, mock.MatchedBy(func(p *domain.FundPosition) bool {
		return p.HoldingProfit.Equal(d("6.00")) && p.HoldingAmount.Equal(d("106.00"))
	})).Return(nil)

	// Execute
	_, mark, err := service.ApplyMark(ctx, ApplyMarkInput{
		UserID:   userID,
		FundID:   position.ID,
		Date:     date,
		NetValue: d("1.06"),
	})

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, existing.ID, mark.ID)
	assert.True(t, mark.ProfitLoss.Equal(d("6.00")))
	repos.marks.AssertExpectations(t)
	repos.summaries.AssertExpectations(t)
}

func TestApplyMark_NoShares(t *testing.T) {
	ctx := context.Background()
	service, repos := newTestService()
	userID := uuid.New()

	empty := heldPosition(userID)
	empty.HoldingShares = decimal.Zero

	repos.positions.On("GetByIDForUpdate", ctx, empty.ID).Return(empty, nil)

	_, _, err := service.ApplyMark(ctx, ApplyMarkInput{
		UserID:   userID,
		FundID:   empty.ID,
		Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		NetValue: d("1.05"),
	})

	assert.ErrorIs(t, err, domain.ErrNoPosition)
	repos.marks.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	repos.summaries.AssertNotCalled(t, "AddToDate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyMark_NonPositiveNetValue(t *testing.T) {
	ctx := context.Background()
	service, repos := newTestService()

	_, _, err := service.ApplyMark(ctx, ApplyMarkInput{
		UserID:   uuid.New(),
		FundID:   uuid.New(),
		Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		NetValue: decimal.Zero,
	})

	assert.True(t, domain.IsValidation(err))
	repos.positions.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything)
}

func TestReverseMark_RestoresPositionAndDropsSummary(t *testing.T) {
	ctx := context.Background()
	service, repos := newTestService()
	userID := uuid.New()
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	// Position after the only mark: 100 shares, profit 5 at nav 1.05
	position := heldPosition(userID)
	position.HoldingAmount = d("105.00")
	position.HoldingProfit = d("5.00")
	position.TotalProfit = d("5.00")
	position.HoldingProfitRate = d("0.05")
	position.CurrentNetValue = d("1.05")

	mark := &domain.DailyMark{
		ID:              uuid.New(),
		FundID:          position.ID,
		UserID:          userID,
		Date:            date,
		CurrentNetValue: d("1.05"),
		ProfitLoss:      d("5.00"),
	}

	repos.marks.On("GetByID", ctx, mark.ID).Return(mark, nil)
	repos.positions.On("GetByIDForUpdate", ctx, position.ID).Return(position, nil)
	repos.marks.On("GetLatestBefore", ctx, position.ID, date).Return(nil, domain.ErrNotFound)
	repos.marks.On("Delete", ctx, mark.ID).Return(nil)
	repos.marks.On("CountByUserAndDate", ctx, userID, date).Return(0, nil)
	repos.summaries.On("Delete", ctx, userID, date).Return(nil)
	repos.positions.On("Update", ctx, mock.MatchedBy(func(p *domain.FundPosition) bool {
		// No earlier mark: net value falls back to the cost basis
		return p.HoldingProfit.IsZero() &&
			p.HoldingAmount.Equal(d("100.00")) &&
			p.HoldingProfitRate.IsZero() &&
			p.CurrentNetValue.Equal(d("1.00"))
	})).Return(nil)

	// Execute
	restored, err := service.ReverseMark(ctx, userID, mark.ID)

	// Assert
	assert.NoError(t, err)
	assert.True(t, restored.HoldingProfit.IsZero())
	repos.marks.AssertExpectations(t)
	repos.summaries.AssertExpectations(t)
	repos.positions.AssertExpectations(t)
}

func TestReverseMark_PriorMarkSuppliesNetValue(t *testing.T) {
	ctx := context.Background()
	service, repos := newTestService()
	userID := uuid.New()
	date := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	position := heldPosition(userID)
	position.HoldingAmount = d("106.00")
	position.HoldingProfit = d("6.00")
	position.TotalProfit = d("6.00")
	position.CurrentNetValue = d("1.06")

	mark := &domain.DailyMark{
		ID:              uuid.New(),
		FundID:          position.ID,
		UserID:          userID,
		Date:            date,
		CurrentNetValue: d("1.06"),
		ProfitLoss:      d("1.00"),
	}
	prior := &domain.DailyMark{
		ID:              uuid.New(),
		FundID:          position.ID,
		UserID:          userID,
		Date:            time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		CurrentNetValue: d("1.05"),
		ProfitLoss:      d("5.00"),
	}

	repos.marks.On("GetByID", ctx, mark.ID).Return(mark, nil)
	repos.positions.On("GetByIDForUpdate", ctx, position.ID).Return(position, nil)
	repos.marks.On("GetLatestBefore", ctx, position.ID, date).Return(prior, nil)
	repos.marks.On("Delete", ctx, mark.ID).Return(nil)
	// Another fund is still marked for the date: decrement, keep the row.
	repos.marks.On("CountByUserAndDate", ctx, userID, date).Return(1, nil)
	repos.summaries.On("AddToDate", ctx, userID, date, mock.MatchedBy(func(delta decimal.Decimal) bool {
		return delta.Equal(d("-1.00"))
	})).Return(nil)
	repos.positions.On("Update", ctx, mock.MatchedBy(func(p *domain.FundPosition) bool {
		return p.HoldingProfit.Equal(d("5.00")) &&
			p.HoldingAmount.Equal(d("105.00")) &&
			p.CurrentNetValue.Equal(d("1.05"))
	})).Return(nil)

	// Execute
	restored, err := service.ReverseMark(ctx, userID, mark.ID)

	// Assert
	assert.NoError(t, err)
	assert.True(t, restored.CurrentNetValue.Equal(d("1.05")))
	repos.marks.AssertExpectations(t)
	repos.summaries.AssertExpectations(t)
}

func TestReverseMark_OtherUsersMark(t *testing.T) {
	ctx := context.Background()
	service, repos := newTestService()

	mark := &domain.DailyMark{
		ID:     uuid.New(),
		FundID: uuid.New(),
		UserID: uuid.New(),
		Date:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	repos.marks.On("GetByID", ctx, mark.ID).Return(mark, nil)

	// A foreign mark reads as absent, not forbidden
	_, err := service.ReverseMark(ctx, uuid.New(), mark.ID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	repos.marks.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestListSummaries(t *testing.T) {
	ctx := context.Background()
	service, repos := newTestService()
	userID := uuid.New()

	summaries := []*domain.DailySummary{
		{UserID: userID, Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), TotalProfitLoss: d("5.00")},
		{UserID: userID, Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), TotalProfitLoss: d("-2.00")},
	}
	repos.summaries.On("ListByUser", ctx, userID, time.Time{}, time.Time{}).Return(summaries, nil)

	result, err := service.ListSummaries(ctx, userID, time.Time{}, time.Time{})

	assert.NoError(t, err)
	assert.Equal(t, summaries, result)
}
