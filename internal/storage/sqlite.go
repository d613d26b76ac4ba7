package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	"cantina/internal/core"
)

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and runs
// all pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// The pragma goes in the DSN so every pooled connection enforces
	// foreign keys, not just the one a plain Exec would run on.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) GetPerson(ctx context.Context, id string) (*core.Person, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, guardian_name, guardian_phone, is_favorite,
		       current_balance_cents, prepaid_cents, created_at
		FROM persons WHERE id = ?`, id)
	p, err := scanPerson(row)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLiteStore) ListPersons(ctx context.Context) ([]core.Person, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, guardian_name, guardian_phone, is_favorite,
		       current_balance_cents, prepaid_cents, created_at
		FROM persons ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	var persons []core.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return persons, nil
}

func (s *SQLiteStore) PutPerson(ctx context.Context, p *core.Person) error {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO persons (id, name, guardian_name, guardian_phone, is_favorite,
		                     current_balance_cents, prepaid_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    name = excluded.name,
		    guardian_name = excluded.guardian_name,
		    guardian_phone = excluded.guardian_phone,
		    is_favorite = excluded.is_favorite,
		    current_balance_cents = excluded.current_balance_cents,
		    prepaid_cents = excluded.prepaid_cents`,
		p.ID, p.Name, p.GuardianName, p.GuardianPhone, boolToInt(p.IsFavorite),
		p.CurrentBalance.Cents, p.PrepaidAmount.Cents, createdAt.Unix())
	if err != nil {
		return fmt.Errorf("put person: %w", err)
	}
	return nil
}

// UpdatePersonInfo writes only the descriptive columns. Balances move
// exclusively through the transactional ledger paths.
func (s *SQLiteStore) UpdatePersonInfo(ctx context.Context, p *core.Person) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE persons
		SET name = ?, guardian_name = ?, guardian_phone = ?, is_favorite = ?
		WHERE id = ?`,
		p.Name, p.GuardianName, p.GuardianPhone, boolToInt(p.IsFavorite), p.ID)
	if err != nil {
		return fmt.Errorf("update person info: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeletePersonCascade(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM payments WHERE person_id = ?", id); err != nil {
		return fmt.Errorf("delete payments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM purchases WHERE person_id = ?", id); err != nil {
		return fmt.Errorf("delete purchases: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM persons WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cascade delete: %w", err)
	}

	slog.InfoContext(ctx, "Person deleted with full history", "person_id", id)
	return nil
}

// AddPurchase inserts the purchase row and debits the person's balance in
// one transaction. If either half fails the whole commit is rolled back.
func (s *SQLiteStore) AddPurchase(ctx context.Context, p *core.Purchase) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO purchases (id, person_id, date, amount_cents, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.PersonID, p.Date.String(), p.Amount.Cents, p.Description, time.Now().Unix())
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("insert purchase: %w", err)
	}

	if err := applyBalanceDelta(ctx, tx, p.PersonID, -p.Amount.Cents, 0); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit purchase: %w", err)
	}

	slog.InfoContext(ctx, "Purchase recorded",
		"purchase_id", p.ID,
		"person_id", p.PersonID,
		"date", p.Date.String(),
		"amount_cents", p.Amount.Cents)
	return nil
}

// AddPayment inserts the payment row and credits the person's balance in
// one transaction. Prepaid and manual-adjustment credits also feed the
// legacy prepaid display total.
func (s *SQLiteStore) AddPayment(ctx context.Context, p *core.Payment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (id, person_id, date, amount_cents, type, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.PersonID, p.Date.String(), p.Amount.Cents, string(p.Type), p.Comment, time.Now().Unix())
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("insert payment: %w", err)
	}

	var prepaidDelta int64
	if p.Type != core.PaymentDebt {
		prepaidDelta = p.Amount.Cents
	}
	if err := applyBalanceDelta(ctx, tx, p.PersonID, p.Amount.Cents, prepaidDelta); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit payment: %w", err)
	}

	slog.InfoContext(ctx, "Payment recorded",
		"payment_id", p.ID,
		"person_id", p.PersonID,
		"date", p.Date.String(),
		"type", string(p.Type),
		"amount_cents", p.Amount.Cents)
	return nil
}

// isForeignKeyViolation reports whether err is SQLite rejecting a row whose
// person_id references a missing person. The driver exposes no typed error
// for constraint failures, so match on the message like CreateUser does for
// UNIQUE violations.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// applyBalanceDelta increments the stored balance server-side inside tx.
// A missing person aborts the whole commit with ErrNotFound.
func applyBalanceDelta(ctx context.Context, tx *sql.Tx, personID string, balanceDelta, prepaidDelta int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE persons
		SET current_balance_cents = current_balance_cents + ?,
		    prepaid_cents = prepaid_cents + ?
		WHERE id = ?`, balanceDelta, prepaidDelta, personID)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetPurchase(ctx context.Context, id string) (*core.Purchase, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, person_id, date, amount_cents, description
		FROM purchases WHERE id = ?`, id)
	return scanPurchase(row)
}

func (s *SQLiteStore) GetPayment(ctx context.Context, id string) (*core.Payment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, person_id, date, amount_cents, type, comment
		FROM payments WHERE id = ?`, id)
	return scanPayment(row)
}

func (s *SQLiteStore) PurchasesByPerson(ctx context.Context, personID string) ([]core.Purchase, error) {
	return s.queryPurchases(ctx, `
		SELECT id, person_id, date, amount_cents, description
		FROM purchases WHERE person_id = ?
		ORDER BY date DESC, created_at DESC`, personID)
}

func (s *SQLiteStore) PaymentsByPerson(ctx context.Context, personID string) ([]core.Payment, error) {
	return s.queryPayments(ctx, `
		SELECT id, person_id, date, amount_cents, type, comment
		FROM payments WHERE person_id = ?
		ORDER BY date DESC, created_at DESC`, personID)
}

func (s *SQLiteStore) PurchasesByDateRange(ctx context.Context, r core.DateRange) ([]core.Purchase, error) {
	return s.queryPurchases(ctx, `
		SELECT id, person_id, date, amount_cents, description
		FROM purchases WHERE date >= ? AND date <= ?
		ORDER BY date, created_at`, r.Start.String(), r.End.String())
}

func (s *SQLiteStore) PaymentsByDateRange(ctx context.Context, r core.DateRange) ([]core.Payment, error) {
	return s.queryPayments(ctx, `
		SELECT id, person_id, date, amount_cents, type, comment
		FROM payments WHERE date >= ? AND date <= ?
		ORDER BY date, created_at`, r.Start.String(), r.End.String())
}

// SumTransactions reads both totals inside one read transaction so the
// recalculation sees a consistent snapshot of the person's history.
func (s *SQLiteStore) SumTransactions(ctx context.Context, personID string) (core.Money, core.Money, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback()

	var paymentCents, purchaseCents int64
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE person_id = ?", personID).
		Scan(&paymentCents)
	if err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("sum payments: %w", err)
	}
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM purchases WHERE person_id = ?", personID).
		Scan(&purchaseCents)
	if err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("sum purchases: %w", err)
	}

	return core.Money{Cents: paymentCents}, core.Money{Cents: purchaseCents}, nil
}

func (s *SQLiteStore) SetBalance(ctx context.Context, personID string, balance core.Money) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE persons SET current_balance_cents = ? WHERE id = ?", balance.Cents, personID)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) PendingMirror(ctx context.Context, limit int) ([]MirrorItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT 'purchase' AS kind, id, created_at FROM purchases WHERE sync_status = 'pending'
		UNION ALL
		SELECT 'payment' AS kind, id, created_at FROM payments WHERE sync_status = 'pending'
		ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending mirror items: %w", err)
	}
	defer rows.Close()

	var items []MirrorItem
	for rows.Next() {
		var item MirrorItem
		var createdAt int64
		if err := rows.Scan(&item.Kind, &item.ID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan mirror item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mirror items: %w", err)
	}
	return items, nil
}

func (s *SQLiteStore) MarkMirrored(ctx context.Context, item MirrorItem) error {
	return s.setSyncStatus(ctx, item, "synced")
}

func (s *SQLiteStore) MarkMirrorError(ctx context.Context, item MirrorItem) error {
	return s.setSyncStatus(ctx, item, "error")
}

func (s *SQLiteStore) setSyncStatus(ctx context.Context, item MirrorItem, status string) error {
	table, err := tableFor(item.Kind)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET sync_status = ? WHERE id = ?", table), status, item.ID)
	if err != nil {
		return fmt.Errorf("update sync status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func tableFor(kind TransactionKind) (string, error) {
	switch kind {
	case KindPurchase:
		return "purchases", nil
	case KindPayment:
		return "payments", nil
	default:
		return "", fmt.Errorf("unknown transaction kind %q", kind)
	}
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u *core.User) error {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, createdAt.Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateUser
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	var u core.User
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = time.Unix(createdAt, 0)
	return &u, nil
}

func (s *SQLiteStore) queryPurchases(ctx context.Context, query string, args ...any) ([]core.Purchase, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	var purchases []core.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}
	return purchases, nil
}

func (s *SQLiteStore) queryPayments(ctx context.Context, query string, args ...any) ([]core.Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []core.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*core.Person, error) {
	var p core.Person
	var favorite int
	var balanceCents, prepaidCents, createdAt int64
	err := row.Scan(&p.ID, &p.Name, &p.GuardianName, &p.GuardianPhone, &favorite,
		&balanceCents, &prepaidCents, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan person: %w", err)
	}
	p.IsFavorite = favorite != 0
	p.CurrentBalance = core.Money{Cents: balanceCents}
	p.PrepaidAmount = core.Money{Cents: prepaidCents}
	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}

func scanPurchase(row rowScanner) (*core.Purchase, error) {
	var p core.Purchase
	var date string
	var amountCents int64
	err := row.Scan(&p.ID, &p.PersonID, &date, &amountCents, &p.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan purchase: %w", err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("parse stored purchase date %q: %w", date, err)
	}
	p.Date = d
	p.Amount = core.Money{Cents: amountCents}
	return &p, nil
}

func scanPayment(row rowScanner) (*core.Payment, error) {
	var p core.Payment
	var date, typ string
	var amountCents int64
	err := row.Scan(&p.ID, &p.PersonID, &date, &amountCents, &typ, &p.Comment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("parse stored payment date %q: %w", date, err)
	}
	p.Date = d
	p.Amount = core.Money{Cents: amountCents}
	p.Type = core.PaymentType(typ)
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
