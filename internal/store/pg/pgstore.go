package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"sistemamedico.org/internal/auth"
	"sistemamedico.org/internal/clinic"
)

// foreignKeyViolation is the PostgreSQL SQLSTATE raised when an insert
// references a missing patient.
const foreignKeyViolation = "23503"

// Store implements clinic.Store and auth.CredentialStore on PostgreSQL.
type Store struct {
	db *sql.DB
}

var (
	_ clinic.Store         = (*Store)(nil)
	_ auth.CredentialStore = (*Store)(nil)
)

// Open connects to PostgreSQL via the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing database handle (used with sqlmock in tests).
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// ListPatients returns the registry ordered by name, same order the mobile
// client shows.
func (s *Store) ListPatients(ctx context.Context) ([]clinic.Patient, error) {
	rows, err := s.db.QueryContext(ctx, `
		select idPaciente, nombre, sexo, coalesce(rutaImagen,''), coalesce(nombreImagen,''), fechaIngreso
		from pacientes
		order by nombre
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []clinic.Patient
	for rows.Next() {
		var p clinic.Patient
		if err := rows.Scan(&p.ID, &p.Nombre, &p.Sexo, &p.RutaImagen, &p.NombreImagen, &p.FechaIngreso); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (s *Store) InsertStudy(ctx context.Context, st *clinic.Study) error {
	err := s.db.QueryRowContext(ctx, `
		insert into estudios(rutaEstudio, nombreEstudio, idPaciente, fechaEstudio)
		values ($1,$2,$3,$4)
		returning idEstudio
	`, st.Ruta, st.Nombre, st.PatientID, st.CreatedAt).Scan(&st.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return clinic.ErrPatientNotFound
		}
		return err
	}
	return nil
}

func (s *Store) ListStudies(ctx context.Context, patientID int64) ([]clinic.Study, error) {
	rows, err := s.db.QueryContext(ctx, `
		select idEstudio, idPaciente, nombreEstudio, rutaEstudio, fechaEstudio
		from estudios
		where idPaciente=$1
		order by fechaEstudio desc, idEstudio desc
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []clinic.Study
	for rows.Next() {
		var st clinic.Study
		if err := rows.Scan(&st.ID, &st.PatientID, &st.Nombre, &st.Ruta, &st.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	return res, rows.Err()
}

func (s *Store) GetStudy(ctx context.Context, id int64) (clinic.Study, error) {
	var st clinic.Study
	err := s.db.QueryRowContext(ctx, `
		select idEstudio, idPaciente, nombreEstudio, rutaEstudio, fechaEstudio
		from estudios
		where idEstudio=$1
	`, id).Scan(&st.ID, &st.PatientID, &st.Nombre, &st.Ruta, &st.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return clinic.Study{}, clinic.ErrStudyNotFound
	}
	if err != nil {
		return clinic.Study{}, err
	}
	return st, nil
}

// DeleteStudy reports (false, nil) when the row was already gone, which the
// lifecycle treats as losing a benign race.
func (s *Store) DeleteStudy(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `delete from estudios where idEstudio=$1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindByUsername loads the credential row joined with its role.
func (s *Store) FindByUsername(ctx context.Context, username string) (auth.Credential, error) {
	var c auth.Credential
	err := s.db.QueryRowContext(ctx, `
		select u.id, u.username, u.name, u.password, r.nombreRol, u.id_rol
		from users u
		join roles r on u.id_rol = r.idRol
		where u.username=$1
	`, username).Scan(&c.ID, &c.Username, &c.Name, &c.PasswordHash, &c.Role, &c.RoleID)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Credential{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Credential{}, err
	}
	return c, nil
}
