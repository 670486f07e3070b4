package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const accountColumns = `id, first_name, last_name, username, email, phone_number,
	password_hash, role, gender, student_number, birth_place, birth_date,
	student_card_path, specialty, profile_image_path,
	approval_status, decided_by, decided_at, created_at`

func (s *PGStore) Create(ctx context.Context, a *Account) error {
	_, err := s.db.ExecContext(ctx, `
		insert into accounts(id, first_name, last_name, username, email, phone_number,
			password_hash, role, gender, student_number, birth_place, birth_date,
			student_card_path, specialty, profile_image_path, approval_status, created_at)
		values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		a.ID, a.FirstName, a.LastName, a.Username, a.Email, a.PhoneNumber,
		a.PasswordHash, string(a.Role), a.Gender, a.StudentNumber, a.BirthPlace, a.BirthDate,
		a.StudentCardPath, a.Specialty, a.ProfileImagePath, string(a.ApprovalStatus), a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateIdentity
		}
		return err
	}
	return nil
}

func (s *PGStore) Find(ctx context.Context, id string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where id=$1`, id)
	return scanAccount(row)
}

func (s *PGStore) FindByUsername(ctx context.Context, username string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where username=$1`, username)
	return scanAccount(row)
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where email=$1`, email)
	return scanAccount(row)
}

func (s *PGStore) ListStudents(ctx context.Context, status ApprovalStatus) ([]*Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+accountColumns+` from accounts
		where role='student' and approval_status=$1
		order by coalesce(decided_at, created_at) desc`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func (s *PGStore) ListByRoles(ctx context.Context, roles ...Role) ([]*Account, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(roles))
	args := make([]any, len(roles))
	for i, role := range roles {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = string(role)
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+accountColumns+` from accounts
		where role in (`+strings.Join(placeholders, ",")+`)
		order by created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func (s *PGStore) Decide(ctx context.Context, accountID, deciderID string, status ApprovalStatus, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		update accounts set approval_status=$1, decided_by=$2, decided_at=$3
		where id=$4 and role='student' and approval_status='pending'`,
		string(status), deciderID, at, accountID,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var (
		a         Account
		role      string
		status    string
		birthDate sql.NullTime
		decidedBy sql.NullString
		decidedAt sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.FirstName, &a.LastName, &a.Username, &a.Email, &a.PhoneNumber,
		&a.PasswordHash, &role, &a.Gender, &a.StudentNumber, &a.BirthPlace, &birthDate,
		&a.StudentCardPath, &a.Specialty, &a.ProfileImagePath,
		&status, &decidedBy, &decidedAt, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.Role = Role(role)
	a.ApprovalStatus = ApprovalStatus(status)
	if birthDate.Valid {
		t := birthDate.Time
		a.BirthDate = &t
	}
	if decidedBy.Valid {
		v := decidedBy.String
		a.DecidedBy = &v
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		a.DecidedAt = &t
	}
	return &a, nil
}

func collectAccounts(rows *sql.Rows) ([]*Account, error) {
	var res []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
