package accounts

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserFilter selects users; zero fields are ignored.
type UserFilter struct {
	ID       uuid.UUID
	Username string
	Email    string
	Role     Role
	Verified *bool
}

// UserAttributes is the set of columns SetAttributes may change.
// Nil fields are left untouched.
type UserAttributes struct {
	Username     *string
	Email        *string
	Name         *string
	PasswordHash *string
	Role         *Role
	Verified     *bool
}

// IsEmpty reports whether no attribute is set
func (a UserAttributes) IsEmpty() bool {
	return a.Username == nil &&
		a.Email == nil &&
		a.Name == nil &&
		a.PasswordHash == nil &&
		a.Role == nil &&
		a.Verified == nil
}

type Users interface {
	Create(ctx context.Context, user *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Find(ctx context.Context, filter UserFilter) ([]*User, error)
	FindTx(ctx context.Context, tx bun.IDB, filter UserFilter) ([]*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error)
	SetAttributes(ctx context.Context, id uuid.UUID, attrs UserAttributes) (*User, error)
	SetAttributesTx(ctx context.Context, tx bun.IDB, id uuid.UUID, attrs UserAttributes) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	All(ctx context.Context) ([]*User, error)
}

type users struct {
	db  *bun.DB
	now Clock
}

var _ Users = (*users)(nil)

type UsersOption func(*users)

// WithUsersClock overrides the clock used for updated_at
func WithUsersClock(clock Clock) UsersOption {
	return func(u *users) {
		if clock != nil {
			u.now = clock
		}
	}
}

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := &users{
		db:  db,
		now: defClock,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

func (a *users) Create(ctx context.Context, user *User) (*User, error) {
	return a.CreateTx(ctx, a.db, user)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user, a.now())

	if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
		return nil, storeError(err, "failed to create user", map[string]any{
			"username": user.Username,
			"email":    user.Email,
		})
	}

	return user, nil
}

func (a *users) Find(ctx context.Context, filter UserFilter) ([]*User, error) {
	return a.FindTx(ctx, a.db, filter)
}

func (a *users) FindTx(ctx context.Context, tx bun.IDB, filter UserFilter) ([]*User, error) {
	records := make([]*User, 0)
	q := tx.NewSelect().Model(&records)

	if filter.ID != uuid.Nil {
		q = q.Where("?TableAlias.id = ?", filter.ID)
	}
	if filter.Username != "" {
		q = q.Where("?TableAlias.username = ?", filter.Username)
	}
	if filter.Email != "" {
		q = q.Where("?TableAlias.email = ?", normalizeEmail(filter.Email))
	}
	if filter.Role != "" {
		q = q.Where("?TableAlias.role = ?", filter.Role)
	}
	if filter.Verified != nil {
		q = q.Where("?TableAlias.verified = ?", *filter.Verified)
	}

	if err := q.OrderExpr("?TableAlias.created_at ASC").Scan(ctx); err != nil {
		if IsRecordNotFound(err) {
			return records, nil
		}
		return nil, storeError(err, "failed to find users", nil)
	}

	return records, nil
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	return a.getBy(ctx, tx, "id", id)
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.getBy(ctx, a.db, "email", normalizeEmail(email))
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier)
}

func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error) {
	for _, opt := range resolveUserIdentifier(identifier) {
		record, err := a.getBy(ctx, tx, opt.column, opt.value)
		if err != nil {
			if IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}
		return record, nil
	}

	return nil, ErrUserNotFound.Clone().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *users) getBy(ctx context.Context, tx bun.IDB, column string, value any) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, storeError(err, "failed to get user", map[string]any{
			column: value,
		})
	}
	return record, nil
}

func (a *users) SetAttributes(ctx context.Context, id uuid.UUID, attrs UserAttributes) (*User, error) {
	return a.SetAttributesTx(ctx, a.db, id, attrs)
}

func (a *users) SetAttributesTx(ctx context.Context, tx bun.IDB, id uuid.UUID, attrs UserAttributes) (*User, error) {
	if attrs.IsEmpty() {
		return a.GetByIDTx(ctx, tx, id)
	}

	q := tx.NewUpdate().
		Table("users").
		Set("updated_at = ?", a.now()).
		Where("id = ?", id)

	if attrs.Username != nil {
		q = q.Set("username = ?", strings.TrimSpace(*attrs.Username))
	}
	if attrs.Email != nil {
		q = q.Set("email = ?", normalizeEmail(*attrs.Email))
	}
	if attrs.Name != nil {
		q = q.Set("name = ?", strings.TrimSpace(*attrs.Name))
	}
	if attrs.PasswordHash != nil {
		q = q.Set("password_hash = ?", *attrs.PasswordHash)
	}
	if attrs.Role != nil {
		q = q.Set("role = ?", *attrs.Role)
	}
	if attrs.Verified != nil {
		q = q.Set("verified = ?", *attrs.Verified)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, storeError(err, "failed to update user", map[string]any{"id": id.String()})
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrUserNotFound.Clone().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return a.GetByIDTx(ctx, tx, id)
}

func (a *users) Delete(ctx context.Context, id uuid.UUID) error {
	return a.DeleteTx(ctx, a.db, id)
}

func (a *users) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return storeError(err, "failed to delete user", map[string]any{"id": id.String()})
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound.Clone().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

func (a *users) All(ctx context.Context) ([]*User, error) {
	return a.Find(ctx, UserFilter{})
}

func prepareUserDefaults(record *User, now time.Time) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleStandard
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.Email = normalizeEmail(record.Email)
	record.Username = strings.TrimSpace(record.Username)

	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  normalizeEmail(trimmed),
		})
	}

	options = append(options, identifierOption{
		column: "username",
		value:  trimmed,
	})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
