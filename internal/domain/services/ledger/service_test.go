package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rabot-service/rabot_service/internal/domain/entities"
	"github.com/rabot-service/rabot_service/pkg/logger"
)

type MockTxRepo struct {
	mock.Mock
}

func (m *MockTxRepo) CreateMany(ctx context.Context, txs []*entities.Tx) error {
	args := m.Called(ctx, txs)
	return args.Error(0)
}

func (m *MockTxRepo) FindByTxHash(ctx context.Context, txHash string) (*entities.Tx, error) {
	args := m.Called(ctx, txHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Tx), args.Error(1)
}

func (m *MockTxRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.TxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockTxRepo) ListByBindingID(ctx context.Context, bindingID uuid.UUID) ([]*entities.Tx, error) {
	args := m.Called(ctx, bindingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Tx), args.Error(1)
}

func (m *MockTxRepo) ListByBatchID(ctx context.Context, batchID uuid.UUID) ([]*entities.Tx, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Tx), args.Error(1)
}

func TestAppendBatch_RowsShareBatchAndHashInStepOrder(t *testing.T) {
	repo := new(MockTxRepo)
	svc := NewService(repo, logger.NewNop())

	bindingID := uuid.New()
	batchID := uuid.New()
	steps := []entities.BatchStep{
		{StepType: entities.StepSwap, FromRole: entities.TxOwnerBot, ToRole: entities.TxOwnerContract, Amount: decimal.NewFromInt(1)},
		{StepType: entities.StepApprove, FromRole: entities.TxOwnerBot, ToRole: entities.TxOwnerContract, Amount: decimal.NewFromInt(1)},
		{StepType: entities.StepLiquidityAdd, FromRole: entities.TxOwnerBot, ToRole: entities.TxOwnerContract, Amount: decimal.NewFromInt(1)},
	}

	var persisted []*entities.Tx
	repo.On("CreateMany", mock.Anything, mock.AnythingOfType("[]*entities.Tx")).
		Run(func(args mock.Arguments) {
			persisted = args.Get(1).([]*entities.Tx)
		}).
		Return(nil)

	txs, err := svc.AppendBatch(context.Background(), &AppendBatchRequest{
		BindingID: bindingID,
		BatchID:   batchID,
		TxHash:    "0xhash",
		Status:    entities.TxStatusCompleted,
		Steps:     steps,
	})

	require.NoError(t, err)
	require.Len(t, txs, 3)
	require.Len(t, persisted, 3)

	for i, tx := range persisted {
		assert.Equal(t, steps[i].StepType, tx.StepType)
		// Canonical step order is recorded explicitly, never inferred from timestamps
		assert.Equal(t, i, tx.StepIndex)
		assert.Equal(t, bindingID, tx.BindingID)
		assert.Equal(t, batchID, tx.BatchID)
		assert.Equal(t, "0xhash", tx.TxHash)
		assert.Equal(t, entities.TxStatusCompleted, tx.Status)
		assert.NotEqual(t, uuid.Nil, tx.ID)
	}
}

func TestAppendBatch_EmptyStepsIsAnError(t *testing.T) {
	repo := new(MockTxRepo)
	svc := NewService(repo, logger.NewNop())

	_, err := svc.AppendBatch(context.Background(), &AppendBatchRequest{
		BindingID: uuid.New(),
		BatchID:   uuid.New(),
		TxHash:    "0xhash",
		Status:    entities.TxStatusQueued,
	})

	require.Error(t, err)
	repo.AssertNotCalled(t, "CreateMany", mock.Anything, mock.Anything)
}

func TestFindByTxHash_UnseenHashIsNilNotError(t *testing.T) {
	repo := new(MockTxRepo)
	svc := NewService(repo, logger.NewNop())

	repo.On("FindByTxHash", mock.Anything, "0xunseen").Return(nil, nil)

	tx, err := svc.FindByTxHash(context.Background(), "0xunseen")

	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestComplete_DelegatesIdempotentTransition(t *testing.T) {
	repo := new(MockTxRepo)
	svc := NewService(repo, logger.NewNop())

	id := uuid.New()
	repo.On("UpdateStatus", mock.Anything, id, entities.TxStatusCompleted).Return(nil)

	require.NoError(t, svc.Complete(context.Background(), id))
	// Completing again is still a no-op success
	require.NoError(t, svc.Complete(context.Background(), id))
	repo.AssertNumberOfCalls(t, "UpdateStatus", 2)
}

func TestAppendBatch_PropagatesRepositoryFailure(t *testing.T) {
	repo := new(MockTxRepo)
	svc := NewService(repo, logger.NewNop())

	repo.On("CreateMany", mock.Anything, mock.Anything).Return(errors.New("constraint violation"))

	_, err := svc.AppendBatch(context.Background(), &AppendBatchRequest{
		BindingID: uuid.New(),
		BatchID:   uuid.New(),
		TxHash:    "0xhash",
		Status:    entities.TxStatusQueued,
		Steps:     []entities.BatchStep{{StepType: entities.StepTransfer}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "append batch")
}
