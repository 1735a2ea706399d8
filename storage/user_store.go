package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ferreirogomes/fraciona/models"
)

// SaveUser insere um novo usuário.
func (d *DB) SaveUser(ctx context.Context, u models.User) error {
	query := `INSERT INTO users (id, name, email, wallet_address, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := d.ExecContext(ctx, query, u.ID, u.Name, u.Email, u.WalletAddress, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("falha ao salvar usuário: %w", err)
	}
	return nil
}

// GetUser obtém um usuário pelo ID.
func (d *DB) GetUser(ctx context.Context, id string) (models.User, bool, error) {
	var u models.User
	err := d.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("falha ao buscar usuário: %w", err)
	}
	return u, true, nil
}

// GetUserByWalletAddress obtém um usuário pelo endereço de carteira.
func (d *DB) GetUserByWalletAddress(ctx context.Context, wallet string) (models.User, bool, error) {
	var u models.User
	err := d.GetContext(ctx, &u, `SELECT * FROM users WHERE wallet_address = $1`, wallet)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("falha ao buscar usuário por carteira: %w", err)
	}
	return u, true, nil
}
