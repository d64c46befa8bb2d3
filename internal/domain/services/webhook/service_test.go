package webhook

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rabot-service/rabot_service/internal/domain/entities"
	domainerrors "github.com/rabot-service/rabot_service/internal/domain/errors"
	"github.com/rabot-service/rabot_service/internal/domain/services/ledger"
	"github.com/rabot-service/rabot_service/pkg/logger"
)

const (
	// Mixed-case inputs; the checksummed forms differ from both
	lowerUserWallet  = "0x8617e340b3d01fa5f11f306f4090fd50e238070d"
	lowerSmartWallet = "0xde709f2102306220921060314715629080e2fb77"

	checksumUserWallet  = "0x8617E340B3D01FA5F11F306F4090FD50E238070D"
	checksumSmartWallet = "0xde709f2102306220921060314715629080e2fb77"
)

type MockBindingRepo struct {
	mock.Mock
}

func (m *MockBindingRepo) IsUserWalletAddress(ctx context.Context, address string) (bool, error) {
	args := m.Called(ctx, address)
	return args.Bool(0), args.Error(1)
}

func (m *MockBindingRepo) IsSmartWalletAddress(ctx context.Context, address string) (bool, error) {
	args := m.Called(ctx, address)
	return args.Bool(0), args.Error(1)
}

func (m *MockBindingRepo) FindByWalletPair(ctx context.Context, userWalletAddress, smartWalletAddress string) (*entities.BotBinding, error) {
	args := m.Called(ctx, userWalletAddress, smartWalletAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.BotBinding), args.Error(1)
}

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) FindByTxHash(ctx context.Context, txHash string) (*entities.Tx, error) {
	args := m.Called(ctx, txHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Tx), args.Error(1)
}

func (m *MockLedgerService) Complete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLedgerService) AppendBatch(ctx context.Context, req *ledger.AppendBatchRequest) ([]*entities.Tx, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Tx), args.Error(1)
}

type MockDepositor struct {
	mock.Mock
}

func (m *MockDepositor) Deposit(ctx context.Context, bindingID, batchID uuid.UUID, amount decimal.Decimal, currency, network *string) error {
	args := m.Called(ctx, bindingID, batchID, amount, currency, network)
	return args.Error(0)
}

func newReconcilerWithMocks() (*Service, *MockBindingRepo, *MockLedgerService, *MockDepositor) {
	bindingRepo := new(MockBindingRepo)
	ledgerSvc := new(MockLedgerService)
	depositor := new(MockDepositor)
	svc := NewService(bindingRepo, ledgerSvc, depositor, nil, logger.NewNop())
	return svc, bindingRepo, ledgerSvc, depositor
}

func testNotification() *entities.TransferNotification {
	return &entities.TransferNotification{
		FromAddress: lowerUserWallet,
		ToAddress:   lowerSmartWallet,
		TxHash:      "0xabc123",
		Amount:      decimal.NewFromFloat(0.25),
		Asset:       "ETH",
		Network:     "base",
	}
}

func testBinding() *entities.BotBinding {
	return &entities.BotBinding{
		ID:                 uuid.New(),
		UserID:             uuid.New(),
		BotType:            entities.BotTypeAerodromeWethUsdc,
		UserWalletAddress:  checksumUserWallet,
		SmartWalletAddress: checksumSmartWallet,
	}
}

func TestHandleTransfer_NewTransferTriggersDepositOnce(t *testing.T) {
	svc, bindingRepo, ledgerSvc, depositor := newReconcilerWithMocks()
	ctx := context.Background()

	binding := testBinding()
	n := testNotification()

	bindingRepo.On("IsUserWalletAddress", mock.Anything, checksumUserWallet).Return(true, nil)
	bindingRepo.On("IsSmartWalletAddress", mock.Anything, checksumSmartWallet).Return(true, nil)
	bindingRepo.On("FindByWalletPair", mock.Anything, checksumUserWallet, checksumSmartWallet).Return(binding, nil)
	ledgerSvc.On("FindByTxHash", mock.Anything, n.TxHash).Return(nil, nil)

	var captured *ledger.AppendBatchRequest
	ledgerSvc.On("AppendBatch", mock.Anything, mock.AnythingOfType("*ledger.AppendBatchRequest")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*ledger.AppendBatchRequest)
		}).
		Return([]*entities.Tx{}, nil)
	depositor.On("Deposit", mock.Anything, binding.ID, mock.AnythingOfType("uuid.UUID"), n.Amount, mock.Anything, mock.Anything).Return(nil)

	err := svc.HandleTransfer(ctx, n)

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, binding.ID, captured.BindingID)
	assert.Equal(t, n.TxHash, captured.TxHash)
	assert.Equal(t, entities.TxStatusCompleted, captured.Status)
	require.Len(t, captured.Steps, 1)
	step := captured.Steps[0]
	assert.Equal(t, entities.StepTransfer, step.StepType)
	assert.Equal(t, entities.TxOwnerUser, step.FromRole)
	assert.Equal(t, entities.TxOwnerBot, step.ToRole)
	assert.Equal(t, checksumUserWallet, step.FromAddress)
	assert.Equal(t, checksumSmartWallet, step.ToAddress)

	depositor.AssertNumberOfCalls(t, "Deposit", 1)
	// The deposit batch reuses the transfer row's batch ID
	depositCall := depositor.Calls[0]
	assert.Equal(t, captured.BatchID, depositCall.Arguments.Get(2).(uuid.UUID))
}

func TestHandleTransfer_CompletedRowIsDiscardedSilently(t *testing.T) {
	svc, bindingRepo, ledgerSvc, depositor := newReconcilerWithMocks()
	ctx := context.Background()

	binding := testBinding()
	n := testNotification()

	bindingRepo.On("IsUserWalletAddress", mock.Anything, checksumUserWallet).Return(true, nil)
	bindingRepo.On("IsSmartWalletAddress", mock.Anything, checksumSmartWallet).Return(true, nil)
	bindingRepo.On("FindByWalletPair", mock.Anything, checksumUserWallet, checksumSmartWallet).Return(binding, nil)
	ledgerSvc.On("FindByTxHash", mock.Anything, n.TxHash).Return(&entities.Tx{
		ID:      uuid.New(),
		BatchID: uuid.New(),
		TxHash:  n.TxHash,
		Status:  entities.TxStatusCompleted,
	}, nil)

	err := svc.HandleTransfer(ctx, n)

	require.NoError(t, err)
	depositor.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	ledgerSvc.AssertNotCalled(t, "AppendBatch", mock.Anything, mock.Anything)
	ledgerSvc.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestHandleTransfer_QueuedRowIsCompletedAndBatchReused(t *testing.T) {
	svc, bindingRepo, ledgerSvc, depositor := newReconcilerWithMocks()
	ctx := context.Background()

	binding := testBinding()
	n := testNotification()
	existing := &entities.Tx{
		ID:      uuid.New(),
		BatchID: uuid.New(),
		TxHash:  n.TxHash,
		Status:  entities.TxStatusQueued,
	}

	bindingRepo.On("IsUserWalletAddress", mock.Anything, checksumUserWallet).Return(true, nil)
	bindingRepo.On("IsSmartWalletAddress", mock.Anything, checksumSmartWallet).Return(true, nil)
	bindingRepo.On("FindByWalletPair", mock.Anything, checksumUserWallet, checksumSmartWallet).Return(binding, nil)
	ledgerSvc.On("FindByTxHash", mock.Anything, n.TxHash).Return(existing, nil)
	ledgerSvc.On("Complete", mock.Anything, existing.ID).Return(nil)
	depositor.On("Deposit", mock.Anything, binding.ID, existing.BatchID, n.Amount, mock.Anything, mock.Anything).Return(nil)

	err := svc.HandleTransfer(ctx, n)

	require.NoError(t, err)
	ledgerSvc.AssertExpectations(t)
	depositor.AssertExpectations(t)
	// No new row; the existing batch is reused
	ledgerSvc.AssertNotCalled(t, "AppendBatch", mock.Anything, mock.Anything)
}

func TestHandleTransfer_UnboundPairIsDiscarded(t *testing.T) {
	svc, bindingRepo, ledgerSvc, depositor := newReconcilerWithMocks()
	ctx := context.Background()

	n := testNotification()

	bindingRepo.On("IsUserWalletAddress", mock.Anything, checksumUserWallet).Return(false, nil)
	bindingRepo.On("IsSmartWalletAddress", mock.Anything, checksumSmartWallet).Return(true, nil)

	err := svc.HandleTransfer(ctx, n)

	require.NoError(t, err)
	bindingRepo.AssertNotCalled(t, "FindByWalletPair", mock.Anything, mock.Anything, mock.Anything)
	ledgerSvc.AssertNotCalled(t, "FindByTxHash", mock.Anything, mock.Anything)
	depositor.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleTransfer_PairGoneBetweenCheckAndLookup(t *testing.T) {
	svc, bindingRepo, ledgerSvc, depositor := newReconcilerWithMocks()
	ctx := context.Background()

	n := testNotification()

	bindingRepo.On("IsUserWalletAddress", mock.Anything, checksumUserWallet).Return(true, nil)
	bindingRepo.On("IsSmartWalletAddress", mock.Anything, checksumSmartWallet).Return(true, nil)
	bindingRepo.On("FindByWalletPair", mock.Anything, checksumUserWallet, checksumSmartWallet).
		Return(nil, domainerrors.ErrBindingNotFound)

	err := svc.HandleTransfer(ctx, n)

	require.NoError(t, err)
	ledgerSvc.AssertNotCalled(t, "FindByTxHash", mock.Anything, mock.Anything)
	depositor.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleTransfer_ChecksumsAddressesBeforeLookup(t *testing.T) {
	svc, bindingRepo, ledgerSvc, depositor := newReconcilerWithMocks()
	ctx := context.Background()

	binding := testBinding()
	n := testNotification()
	// Uppercase hex from the provider must still resolve
	n.FromAddress = "0x8617E340B3D01FA5F11F306F4090FD50E238070D"
	n.ToAddress = "0xDE709F2102306220921060314715629080E2FB77"

	bindingRepo.On("IsUserWalletAddress", mock.Anything, checksumUserWallet).Return(true, nil)
	bindingRepo.On("IsSmartWalletAddress", mock.Anything, checksumSmartWallet).Return(true, nil)
	bindingRepo.On("FindByWalletPair", mock.Anything, checksumUserWallet, checksumSmartWallet).Return(binding, nil)
	ledgerSvc.On("FindByTxHash", mock.Anything, n.TxHash).Return(nil, nil)
	ledgerSvc.On("AppendBatch", mock.Anything, mock.AnythingOfType("*ledger.AppendBatchRequest")).Return([]*entities.Tx{}, nil)
	depositor.On("Deposit", mock.Anything, binding.ID, mock.AnythingOfType("uuid.UUID"), n.Amount, mock.Anything, mock.Anything).Return(nil)

	err := svc.HandleTransfer(ctx, n)

	require.NoError(t, err)
	bindingRepo.AssertExpectations(t)
}
