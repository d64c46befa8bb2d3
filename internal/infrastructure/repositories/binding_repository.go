package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/rabot-service/rabot_service/internal/domain/entities"
	domainerrors "github.com/rabot-service/rabot_service/internal/domain/errors"
)

// BindingRepository persists bot bindings
type BindingRepository struct {
	db *sqlx.DB
}

// NewBindingRepository creates a new binding repository
func NewBindingRepository(db *sqlx.DB) *BindingRepository {
	return &BindingRepository{db: db}
}

// Create creates a new bot binding
func (r *BindingRepository) Create(ctx context.Context, binding *entities.BotBinding) error {
	query := `
		INSERT INTO bot_bindings (
			id, user_id, bot_type, bot_wallet_id, bot_wallet_address,
			user_wallet_address, smart_wallet_address, balance, amount_deposited,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		binding.ID,
		binding.UserID,
		binding.BotType,
		binding.BotWalletID,
		binding.BotWalletAddress,
		binding.UserWalletAddress,
		binding.SmartWalletAddress,
		binding.Balance,
		binding.AmountDeposited,
		binding.CreatedAt,
		binding.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create bot binding: %w", err)
	}

	return nil
}

// GetByID retrieves a binding by ID
func (r *BindingRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.BotBinding, error) {
	query := `
		SELECT id, user_id, bot_type, bot_wallet_id, bot_wallet_address,
			   user_wallet_address, smart_wallet_address, balance, amount_deposited,
			   created_at, updated_at
		FROM bot_bindings
		WHERE id = $1
	`

	var binding entities.BotBinding
	err := r.db.GetContext(ctx, &binding, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.ErrBindingNotFound
		}
		return nil, fmt.Errorf("failed to get bot binding: %w", err)
	}

	return &binding, nil
}

// ListByUserID retrieves all bindings for a user
func (r *BindingRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.BotBinding, error) {
	query := `
		SELECT id, user_id, bot_type, bot_wallet_id, bot_wallet_address,
			   user_wallet_address, smart_wallet_address, balance, amount_deposited,
			   created_at, updated_at
		FROM bot_bindings
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	var bindings []*entities.BotBinding
	if err := r.db.SelectContext(ctx, &bindings, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list bot bindings: %w", err)
	}

	return bindings, nil
}

// FindByWalletPair resolves the binding for a (user wallet, smart wallet)
// address pair. Returns ErrBindingNotFound when no binding matches.
func (r *BindingRepository) FindByWalletPair(ctx context.Context, userWalletAddress, smartWalletAddress string) (*entities.BotBinding, error) {
	query := `
		SELECT id, user_id, bot_type, bot_wallet_id, bot_wallet_address,
			   user_wallet_address, smart_wallet_address, balance, amount_deposited,
			   created_at, updated_at
		FROM bot_bindings
		WHERE user_wallet_address = $1 AND smart_wallet_address = $2
	`

	var binding entities.BotBinding
	err := r.db.GetContext(ctx, &binding, query, userWalletAddress, smartWalletAddress)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.ErrBindingNotFound
		}
		return nil, fmt.Errorf("failed to find bot binding by wallet pair: %w", err)
	}

	return &binding, nil
}

// IsUserWalletAddress reports whether the address belongs to any binding's
// originating user wallet
func (r *BindingRepository) IsUserWalletAddress(ctx context.Context, address string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM bot_bindings WHERE user_wallet_address = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, address); err != nil {
		return false, fmt.Errorf("failed to check user wallet address: %w", err)
	}

	return exists, nil
}

// IsSmartWalletAddress reports whether the address is any binding's smart wallet
func (r *BindingRepository) IsSmartWalletAddress(ctx context.Context, address string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM bot_bindings WHERE smart_wallet_address = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, address); err != nil {
		return false, fmt.Errorf("failed to check smart wallet address: %w", err)
	}

	return exists, nil
}

// IncrementAmountDeposited adds amount to a binding's deposited counter and
// running balance. The increment happens in SQL so concurrent deposits for
// the same binding never lose an update.
func (r *BindingRepository) IncrementAmountDeposited(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	query := `
		UPDATE bot_bindings
		SET amount_deposited = amount_deposited + $2,
			balance = balance + $2,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("failed to increment deposited amount: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check increment result: %w", err)
	}
	if rows == 0 {
		return domainerrors.ErrBindingNotFound
	}

	return nil
}

// DecrementBalance subtracts a withdrawn amount from a binding's running balance
func (r *BindingRepository) DecrementBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	query := `
		UPDATE bot_bindings
		SET balance = balance - $2,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("failed to decrement balance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check decrement result: %w", err)
	}
	if rows == 0 {
		return domainerrors.ErrBindingNotFound
	}

	return nil
}
