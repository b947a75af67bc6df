package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"paydue/internal/auth"
	"paydue/internal/core"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ExportState tracks whether a paid payment has reached the spreadsheet.
type ExportState string

const (
	ExportNone    ExportState = "none"
	ExportPending ExportState = "pending"
	ExportSynced  ExportState = "synced"
	ExportError   ExportState = "error"
)

// PendingExportPayment is the minimal row shape queued for the sync worker.
type PendingExportPayment struct {
	ID        string
	Version   int64
	UpdatedAt time.Time
}

// Repository persists payments and users over database/sql. The same
// code serves both dialects; postgres queries get their placeholders
// rewritten on the way out.
type Repository struct {
	db      *sql.DB
	dialect string
}

func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunSQLiteMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: "sqlite"}, nil
}

func NewPostgresRepository(dsn string) (*Repository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunPostgresMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: "postgres"}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// bind rewrites ? placeholders to $1..$n for postgres.
func (r *Repository) bind(query string) string {
	if r.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func storeErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w: already exists", op, core.ErrValidation)
	}
	return fmt.Errorf("%s: %w: %v", op, core.ErrStoreUnavailable, err)
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}

const paymentColumns = "id, owner_id, title, amount_cents, due_date, status, notes, created_at, updated_at"

func scanPayment(row interface{ Scan(...any) error }) (core.Payment, error) {
	var p core.Payment
	var status string
	err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Amount.Cents, &p.DueDate, &status, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return core.Payment{}, err
	}
	p.Status = core.Status(status)
	p.DueDate = p.DueDate.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

// ListPayments returns all payments of one owner, newest due first.
func (r *Repository) ListPayments(ctx context.Context, ownerID string) ([]core.Payment, error) {
	query := r.bind("SELECT " + paymentColumns + " FROM payments WHERE owner_id = ? ORDER BY due_date ASC, created_at ASC")
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, storeErr("list payments", err)
	}
	defer rows.Close()

	var payments []core.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, storeErr("scan payment", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list payments", err)
	}
	return payments, nil
}

func (r *Repository) GetPayment(ctx context.Context, ownerID, id string) (core.Payment, error) {
	query := r.bind("SELECT " + paymentColumns + " FROM payments WHERE id = ? AND owner_id = ?")
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		return core.Payment{}, storeErr("get payment", err)
	}
	return p, nil
}

func (r *Repository) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := r.bind(`INSERT INTO payments (id, owner_id, title, amount_cents, due_date, status, notes, export_state, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.OwnerID, p.Title, p.Amount.Cents, p.DueDate, string(p.Status), p.Notes, string(ExportNone), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return core.Payment{}, storeErr("create payment", err)
	}
	return p, nil
}

// UpdatePayment rewrites the editable fields. The owner filter rides in
// the WHERE clause so a wrong owner looks identical to a missing row.
func (r *Repository) UpdatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	p.UpdatedAt = time.Now().UTC()

	query := r.bind(`UPDATE payments
		SET title = ?, amount_cents = ?, due_date = ?, status = ?, notes = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND owner_id = ?`)
	result, err := r.db.ExecContext(ctx, query,
		p.Title, p.Amount.Cents, p.DueDate, string(p.Status), p.Notes, p.UpdatedAt, p.ID, p.OwnerID)
	if err != nil {
		return core.Payment{}, storeErr("update payment", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return core.Payment{}, fmt.Errorf("update payment: %w", core.ErrNotFound)
	}
	return r.GetPayment(ctx, p.OwnerID, p.ID)
}

func (r *Repository) DeletePayment(ctx context.Context, ownerID, id string) error {
	query := r.bind("DELETE FROM payments WHERE id = ? AND owner_id = ?")
	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return storeErr("delete payment", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("delete payment: %w", core.ErrNotFound)
	}
	return nil
}

// MarkPaid flips status to paid and queues the row for spreadsheet
// export. The returned version identifies this write in sync messages.
func (r *Repository) MarkPaid(ctx context.Context, ownerID, id string) (core.Payment, int64, error) {
	now := time.Now().UTC()
	query := r.bind(`UPDATE payments
		SET status = ?, export_state = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND owner_id = ?`)
	result, err := r.db.ExecContext(ctx, query,
		string(core.StatusPaid), string(ExportPending), now, id, ownerID)
	if err != nil {
		return core.Payment{}, 0, storeErr("mark paid", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return core.Payment{}, 0, fmt.Errorf("mark paid: %w", core.ErrNotFound)
	}

	var version int64
	versionQuery := r.bind("SELECT version FROM payments WHERE id = ? AND owner_id = ?")
	if err := r.db.QueryRowContext(ctx, versionQuery, id, ownerID).Scan(&version); err != nil {
		return core.Payment{}, 0, storeErr("mark paid version", err)
	}

	p, err := r.GetPayment(ctx, ownerID, id)
	if err != nil {
		return core.Payment{}, 0, err
	}
	return p, version, nil
}

// PaymentByID loads a payment without an owner filter. Only the sync
// worker uses it; everything request-facing goes through GetPayment.
func (r *Repository) PaymentByID(ctx context.Context, id string) (core.Payment, error) {
	query := r.bind("SELECT " + paymentColumns + " FROM payments WHERE id = ?")
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return core.Payment{}, storeErr("get payment by id", err)
	}
	return p, nil
}

// PendingExportPayments returns paid rows still waiting for the sheet.
func (r *Repository) PendingExportPayments(ctx context.Context, limit int) ([]PendingExportPayment, error) {
	query := r.bind(`SELECT id, version, updated_at FROM payments
		WHERE export_state = ? AND status = ?
		ORDER BY updated_at ASC LIMIT ?`)
	rows, err := r.db.QueryContext(ctx, query, string(ExportPending), string(core.StatusPaid), limit)
	if err != nil {
		return nil, storeErr("pending export payments", err)
	}
	defer rows.Close()

	var pending []PendingExportPayment
	for rows.Next() {
		var p PendingExportPayment
		if err := rows.Scan(&p.ID, &p.Version, &p.UpdatedAt); err != nil {
			return nil, storeErr("scan pending export payment", err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("pending export payments", err)
	}
	return pending, nil
}

func (r *Repository) MarkExported(ctx context.Context, id string) error {
	return r.setExportState(ctx, id, ExportSynced)
}

func (r *Repository) MarkExportError(ctx context.Context, id string) error {
	return r.setExportState(ctx, id, ExportError)
}

func (r *Repository) setExportState(ctx context.Context, id string, state ExportState) error {
	query := r.bind("UPDATE payments SET export_state = ? WHERE id = ?")
	result, err := r.db.ExecContext(ctx, query, string(state), id)
	if err != nil {
		return storeErr("set export state", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("set export state: %w", core.ErrNotFound)
	}
	return nil
}

// CreateUser implements auth.UserStore.
func (r *Repository) CreateUser(ctx context.Context, user auth.User) error {
	query := r.bind("INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)")
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Email, user.Name, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return storeErr("create user", err)
	}
	return nil
}

// UserByEmail implements auth.UserStore.
func (r *Repository) UserByEmail(ctx context.Context, email string) (auth.User, error) {
	query := r.bind("SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?")
	var user auth.User
	err := r.db.QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return auth.User{}, storeErr("user by email", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}
