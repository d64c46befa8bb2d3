package ledger_sweeper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rabot-service/rabot_service/internal/domain/entities"
	"github.com/rabot-service/rabot_service/internal/infrastructure/chain"
	"github.com/rabot-service/rabot_service/internal/infrastructure/config"
	"github.com/rabot-service/rabot_service/pkg/logger"
)

type MockTxRepo struct {
	mock.Mock
}

func (m *MockTxRepo) ListUnsettledTransfers(ctx context.Context, cutoff time.Time) ([]*entities.Tx, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Tx), args.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Complete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLedger) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*entities.Tx, error) {
	args := m.Called(ctx, batchID)
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

// newTestProviders serves eth_getTransactionReceipt from a local endpoint: a
// successful receipt for hashes in confirmed, null for everything else
func newTestProviders(t *testing.T, confirmed map[string]bool) *chain.Providers {
	t.Helper()

	bloom := "0x" + strings.Repeat("0", 512)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "eth_getTransactionReceipt", req.Method)

		var hash string
		require.NoError(t, json.Unmarshal(req.Params[0], &hash))

		w.Header().Set("Content-Type", "application/json")
		if !confirmed[hash] {
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":null}`, req.ID)
			return
		}
		fmt.Fprintf(w,
			`{"jsonrpc":"2.0","id":%s,"result":{"status":"0x1","cumulativeGasUsed":"0x5208","gasUsed":"0x5208","logsBloom":%q,"logs":[],"transactionHash":%q,"blockHash":"0x%064x","blockNumber":"0x1","transactionIndex":"0x0"}}`,
			req.ID, bloom, hash, 1)
	}))
	t.Cleanup(server.Close)

	providers, err := chain.NewProviders(config.ChainsConfig{
		Base:    config.NetworkConfig{RPC: server.URL, ChainID: 8453},
		Polygon: config.NetworkConfig{RPC: server.URL, ChainID: 137},
	})
	require.NoError(t, err)
	t.Cleanup(providers.Close)

	return providers
}

const confirmedHash = "0xabababababababababababababababababababababababababababababababab"

func unsettledTransfer(status entities.TxStatus) *entities.Tx {
	network := string(entities.NetworkBase)
	currency := "ETH"
	return &entities.Tx{
		ID:        uuid.New(),
		BindingID: uuid.New(),
		BatchID:   uuid.New(),
		TxHash:    confirmedHash,
		StepType:  entities.StepTransfer,
		FromRole:  entities.TxOwnerUser,
		ToRole:    entities.TxOwnerBot,
		Status:    status,
		Amount:    decimal.NewFromFloat(0.25),
		Currency:  &currency,
		Network:   &network,
		CreatedAt: time.Now().Add(-time.Hour),
	}
}

func newWorkerWithMocks(t *testing.T, confirmed map[string]bool) (*Worker, *MockTxRepo, *MockLedger, *MockDepositor) {
	repo := new(MockTxRepo)
	ledger := new(MockLedger)
	depositor := new(MockDepositor)
	providers := newTestProviders(t, confirmed)
	w := NewWorker(repo, ledger, depositor, providers, DefaultConfig(), logger.NewNop())
	return w, repo, ledger, depositor
}

func TestSweep_RedrivesDepositForDanglingCompletedTransfer(t *testing.T) {
	w, repo, ledger, depositor := newWorkerWithMocks(t, map[string]bool{confirmedHash: true})

	// Recorded COMPLETED by the webhook, but the process died before the
	// deposit flow ran: the batch holds only the transfer row
	row := unsettledTransfer(entities.TxStatusCompleted)
	repo.On("ListUnsettledTransfers", mock.Anything, mock.AnythingOfType("time.Time")).Return([]*entities.Tx{row}, nil)
	ledger.On("ListByBatch", mock.Anything, row.BatchID).Return([]*entities.Tx{row}, nil)
	depositor.On("Deposit", mock.Anything, row.BindingID, row.BatchID, row.Amount, row.Currency, row.Network).Return(nil)

	w.RunOnce(context.Background())

	depositor.AssertExpectations(t)
	ledger.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestSweep_CompletesQueuedTransferThenDeposits(t *testing.T) {
	w, repo, ledger, depositor := newWorkerWithMocks(t, map[string]bool{confirmedHash: true})

	row := unsettledTransfer(entities.TxStatusQueued)
	repo.On("ListUnsettledTransfers", mock.Anything, mock.AnythingOfType("time.Time")).Return([]*entities.Tx{row}, nil)
	ledger.On("Complete", mock.Anything, row.ID).Return(nil)
	ledger.On("ListByBatch", mock.Anything, row.BatchID).Return([]*entities.Tx{row}, nil)
	depositor.On("Deposit", mock.Anything, row.BindingID, row.BatchID, row.Amount, row.Currency, row.Network).Return(nil)

	w.RunOnce(context.Background())

	ledger.AssertExpectations(t)
	depositor.AssertExpectations(t)
}

func TestSweep_SkipsDepositWhenBatchAlreadyHasSteps(t *testing.T) {
	w, repo, ledger, depositor := newWorkerWithMocks(t, map[string]bool{confirmedHash: true})

	row := unsettledTransfer(entities.TxStatusQueued)
	sibling := &entities.Tx{ID: uuid.New(), BatchID: row.BatchID, StepType: entities.StepSwap}
	repo.On("ListUnsettledTransfers", mock.Anything, mock.AnythingOfType("time.Time")).Return([]*entities.Tx{row}, nil)
	ledger.On("Complete", mock.Anything, row.ID).Return(nil)
	ledger.On("ListByBatch", mock.Anything, row.BatchID).Return([]*entities.Tx{row, sibling}, nil)

	w.RunOnce(context.Background())

	ledger.AssertExpectations(t)
	depositor.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSweep_LeavesUnconfirmedTransferAlone(t *testing.T) {
	w, repo, ledger, depositor := newWorkerWithMocks(t, map[string]bool{})

	row := unsettledTransfer(entities.TxStatusQueued)
	repo.On("ListUnsettledTransfers", mock.Anything, mock.AnythingOfType("time.Time")).Return([]*entities.Tx{row}, nil)

	w.RunOnce(context.Background())

	ledger.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	depositor.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSweep_SkipsTransferWithoutNetwork(t *testing.T) {
	w, repo, ledger, depositor := newWorkerWithMocks(t, map[string]bool{confirmedHash: true})

	row := unsettledTransfer(entities.TxStatusQueued)
	row.Network = nil
	repo.On("ListUnsettledTransfers", mock.Anything, mock.AnythingOfType("time.Time")).Return([]*entities.Tx{row}, nil)

	w.RunOnce(context.Background())

	ledger.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	depositor.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
