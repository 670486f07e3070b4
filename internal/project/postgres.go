package project

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL. Dependent rows carry
// `on delete cascade` foreign keys, so removing a project removes its
// phases, risks, members, files and messages in one statement.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// Projects ------------------------------------------------------------------

func (s *PGStore) CreateProject(ctx context.Context, p *Project) error {
	_, err := s.db.ExecContext(ctx, `
		insert into projects(id, name, type, mission_objective, success_criteria,
			manager_id, start_date, end_date, status, overall_progress, created_at)
		values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.Name, p.Type, p.MissionObjective, p.SuccessCriteria,
		p.ManagerID, p.StartDate, p.EndDate, p.Status, p.OverallProgress, p.CreatedAt,
	)
	return err
}

func (s *PGStore) FindProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, name, type, mission_objective, success_criteria, manager_id,
			start_date, end_date, status, overall_progress, created_at
		from projects where id=$1`, id)
	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.Type, &p.MissionObjective, &p.SuccessCriteria,
		&p.ManagerID, &p.StartDate, &p.EndDate, &p.Status, &p.OverallProgress, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *PGStore) ListProjectsFor(ctx context.Context, accountID string, elevated bool) ([]*Project, error) {
	query := `
		select id, name, type, mission_objective, success_criteria, manager_id,
			start_date, end_date, status, overall_progress, created_at
		from projects`
	var (
		rows *sql.Rows
		err  error
	)
	if elevated {
		rows, err = s.db.QueryContext(ctx, query+` order by created_at desc`)
	} else {
		rows, err = s.db.QueryContext(ctx, query+`
			where manager_id=$1
			   or id in (select project_id from team_members where account_id=$1)
			order by created_at desc`, accountID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &p.MissionObjective, &p.SuccessCriteria,
			&p.ManagerID, &p.StartDate, &p.EndDate, &p.Status, &p.OverallProgress, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &p)
	}
	return res, rows.Err()
}

func (s *PGStore) UpdateProjectProgress(ctx context.Context, id string, progress int) error {
	res, err := s.db.ExecContext(ctx,
		`update projects set overall_progress=$1 where id=$2`, progress, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *PGStore) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from projects where id=$1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Phases --------------------------------------------------------------------

func (s *PGStore) CreatePhase(ctx context.Context, ph *Phase) error {
	_, err := s.db.ExecContext(ctx, `
		insert into phases(id, project_id, name, status, responsible, validation, notes, completed_at)
		values($1,$2,$3,$4,$5,$6,$7,$8)`,
		ph.ID, ph.ProjectID, ph.Name, ph.Status, ph.Responsible, ph.Validation, ph.Notes, ph.CompletedAt,
	)
	return err
}

func (s *PGStore) FindPhase(ctx context.Context, id string) (*Phase, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, project_id, name, status, responsible, validation, notes, completed_at
		from phases where id=$1`, id)
	return scanPhase(row)
}

func (s *PGStore) ListPhases(ctx context.Context, projectID string) ([]*Phase, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, project_id, name, status, responsible, validation, notes, completed_at
		from phases where project_id=$1 order by id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Phase
	for rows.Next() {
		ph, err := scanPhase(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, ph)
	}
	return res, rows.Err()
}

func (s *PGStore) UpdatePhase(ctx context.Context, ph *Phase) error {
	res, err := s.db.ExecContext(ctx, `
		update phases set status=$1, validation=$2, notes=$3, completed_at=$4
		where id=$5`,
		ph.Status, ph.Validation, ph.Notes, ph.CompletedAt, ph.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Risks ---------------------------------------------------------------------

func (s *PGStore) CreateRisk(ctx context.Context, r *Risk) error {
	_, err := s.db.ExecContext(ctx, `
		insert into risks(id, project_id, description, probability, severity, mitigation, status)
		values($1,$2,$3,$4,$5,$6,$7)`,
		r.ID, r.ProjectID, r.Description, r.Probability, r.Severity, r.Mitigation, r.Status,
	)
	return err
}

func (s *PGStore) ListRisks(ctx context.Context, projectID string) ([]*Risk, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, project_id, description, probability, severity, mitigation, status
		from risks where project_id=$1 order by id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Risk
	for rows.Next() {
		var r Risk
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Description, &r.Probability,
			&r.Severity, &r.Mitigation, &r.Status); err != nil {
			return nil, err
		}
		res = append(res, &r)
	}
	return res, rows.Err()
}

// Team members --------------------------------------------------------------

func (s *PGStore) AddMember(ctx context.Context, m *TeamMember) error {
	_, err := s.db.ExecContext(ctx, `
		insert into team_members(id, project_id, account_id, role, responsibilities, progress, added_at)
		values($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.ProjectID, m.AccountID, m.Role, m.Responsibilities, m.Progress, m.AddedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateMember
		}
		return err
	}
	return nil
}

func (s *PGStore) FindMember(ctx context.Context, id string) (*TeamMember, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, project_id, account_id, role, responsibilities, progress, added_at
		from team_members where id=$1`, id)
	var m TeamMember
	err := row.Scan(&m.ID, &m.ProjectID, &m.AccountID, &m.Role, &m.Responsibilities, &m.Progress, &m.AddedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *PGStore) ListMembers(ctx context.Context, projectID string) ([]*TeamMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, project_id, account_id, role, responsibilities, progress, added_at
		from team_members where project_id=$1 order by added_at`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*TeamMember
	for rows.Next() {
		var m TeamMember
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.AccountID, &m.Role,
			&m.Responsibilities, &m.Progress, &m.AddedAt); err != nil {
			return nil, err
		}
		res = append(res, &m)
	}
	return res, rows.Err()
}

func (s *PGStore) RemoveMember(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from team_members where id=$1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *PGStore) UpdateMemberProgress(ctx context.Context, id string, progress int) error {
	res, err := s.db.ExecContext(ctx,
		`update team_members set progress=$1 where id=$2`, progress, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *PGStore) IsTeamMember(ctx context.Context, projectID, accountID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		select exists(select 1 from team_members where project_id=$1 and account_id=$2)`,
		projectID, accountID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Files ---------------------------------------------------------------------

func (s *PGStore) CreateFile(ctx context.Context, f *File) error {
	_, err := s.db.ExecContext(ctx, `
		insert into project_files(id, project_id, filename, original_filename,
			file_type, path, uploaded_by, uploaded_at, description)
		values($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		f.ID, f.ProjectID, f.Filename, f.OriginalFilename,
		f.FileType, f.Path, f.UploadedBy, f.UploadedAt, f.Description,
	)
	return err
}

func (s *PGStore) FindFile(ctx context.Context, id string) (*File, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, project_id, filename, original_filename, file_type, path,
			uploaded_by, uploaded_at, description
		from project_files where id=$1`, id)
	var f File
	err := row.Scan(&f.ID, &f.ProjectID, &f.Filename, &f.OriginalFilename,
		&f.FileType, &f.Path, &f.UploadedBy, &f.UploadedAt, &f.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (s *PGStore) ListFiles(ctx context.Context, projectID string) ([]*File, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, project_id, filename, original_filename, file_type, path,
			uploaded_by, uploaded_at, description
		from project_files where project_id=$1 order by uploaded_at desc`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Filename, &f.OriginalFilename,
			&f.FileType, &f.Path, &f.UploadedBy, &f.UploadedAt, &f.Description); err != nil {
			return nil, err
		}
		res = append(res, &f)
	}
	return res, rows.Err()
}

func (s *PGStore) DeleteFile(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from project_files where id=$1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Messages ------------------------------------------------------------------

func (s *PGStore) CreateMessage(ctx context.Context, m *Message) error {
	_, err := s.db.ExecContext(ctx, `
		insert into messages(id, project_id, account_id, content, created_at)
		values($1,$2,$3,$4,$5)`,
		m.ID, m.ProjectID, m.AccountID, m.Content, m.CreatedAt,
	)
	return err
}

func (s *PGStore) ListMessages(ctx context.Context, projectID string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, project_id, account_id, content, created_at
		from messages where project_id=$1 order by created_at asc`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.AccountID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &m)
	}
	return res, rows.Err()
}

// helpers -------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhase(row rowScanner) (*Phase, error) {
	var (
		ph          Phase
		completedAt sql.NullTime
	)
	err := row.Scan(&ph.ID, &ph.ProjectID, &ph.Name, &ph.Status,
		&ph.Responsible, &ph.Validation, &ph.Notes, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		ph.CompletedAt = &t
	}
	return &ph, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
