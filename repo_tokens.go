package accounts

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenFilter selects tokens; zero fields are ignored.
type TokenFilter struct {
	Token  string
	UserID uuid.UUID
	Type   TokenType
}

type Tokens interface {
	Create(ctx context.Context, token *Token) error
	CreateTx(ctx context.Context, tx bun.IDB, token *Token) error
	Find(ctx context.Context, filter TokenFilter) ([]*Token, error)
	FindTx(ctx context.Context, tx bun.IDB, filter TokenFilter) ([]*Token, error)
	Get(ctx context.Context, value string, tokenType TokenType) (*Token, error)
	GetTx(ctx context.Context, tx bun.IDB, value string, tokenType TokenType) (*Token, error)
	Delete(ctx context.Context, value string) error
	DeleteTx(ctx context.Context, tx bun.IDB, value string) error
	DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type tokens struct {
	db *bun.DB
}

var _ Tokens = (*tokens)(nil)

func NewTokensRepository(db *bun.DB) Tokens {
	return &tokens{db: db}
}

func (t *tokens) Create(ctx context.Context, token *Token) error {
	return t.CreateTx(ctx, t.db, token)
}

// CreateTx inserts the token. A value that already exists fails with
// a conflict error carrying TextCodeUniqueViolation.
func (t *tokens) CreateTx(ctx context.Context, tx bun.IDB, token *Token) error {
	if _, err := tx.NewInsert().Model(token).Exec(ctx); err != nil {
		return storeError(err, "failed to create token", map[string]any{
			"user_id": token.UserID.String(),
			"type":    token.Type,
		})
	}
	return nil
}

func (t *tokens) Find(ctx context.Context, filter TokenFilter) ([]*Token, error) {
	return t.FindTx(ctx, t.db, filter)
}

func (t *tokens) FindTx(ctx context.Context, tx bun.IDB, filter TokenFilter) ([]*Token, error) {
	records := make([]*Token, 0)
	q := tx.NewSelect().Model(&records)

	if filter.Token != "" {
		q = q.Where("?TableAlias.token = ?", filter.Token)
	}
	if filter.UserID != uuid.Nil {
		q = q.Where("?TableAlias.user_id = ?", filter.UserID)
	}
	if filter.Type != "" {
		q = q.Where("?TableAlias.type = ?", filter.Type)
	}

	if err := q.OrderExpr("?TableAlias.created_at ASC").Scan(ctx); err != nil {
		if IsRecordNotFound(err) {
			return records, nil
		}
		return nil, storeError(err, "failed to find tokens", nil)
	}
	return records, nil
}

func (t *tokens) Get(ctx context.Context, value string, tokenType TokenType) (*Token, error) {
	return t.GetTx(ctx, t.db, value, tokenType)
}

// GetTx returns the token only when both value and type match; a token
// of another type is reported as not found.
func (t *tokens) GetTx(ctx context.Context, tx bun.IDB, value string, tokenType TokenType) (*Token, error) {
	record := &Token{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", value).
		Where("?TableAlias.type = ?", tokenType).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, storeError(err, "failed to get token", map[string]any{
			"type": tokenType,
		})
	}
	return record, nil
}

func (t *tokens) Delete(ctx context.Context, value string) error {
	return t.DeleteTx(ctx, t.db, value)
}

func (t *tokens) DeleteTx(ctx context.Context, tx bun.IDB, value string) error {
	_, err := tx.NewDelete().
		Model((*Token)(nil)).
		Where("?TableAlias.token = ?", value).
		Exec(ctx)
	return storeError(err, "failed to delete token", nil)
}

func (t *tokens) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Token)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)
	return storeError(err, "failed to delete user tokens", map[string]any{
		"user_id": userID.String(),
	})
}
