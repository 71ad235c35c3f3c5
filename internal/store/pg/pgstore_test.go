package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"sistemamedico.org/internal/auth"
	"sistemamedico.org/internal/clinic"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestListPatients(t *testing.T) {
	store, mock := newMockStore(t)

	ingreso := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"idPaciente", "nombre", "sexo", "rutaImagen", "nombreImagen", "fechaIngreso"}).
		AddRow(int64(1), "Carlos Ramírez", int16(1), "", "", ingreso).
		AddRow(int64(2), "María González", int16(0), "1/foto.png", "foto.png", ingreso)
	mock.ExpectQuery("select idPaciente, nombre, sexo").WillReturnRows(rows)

	patients, err := store.ListPatients(context.Background())
	if err != nil {
		t.Fatalf("list patients: %v", err)
	}
	if len(patients) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(patients))
	}
	if patients[0].Nombre != "Carlos Ramírez" || patients[1].RutaImagen != "1/foto.png" {
		t.Fatalf("unexpected rows: %+v", patients)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertStudyAssignsID(t *testing.T) {
	store, mock := newMockStore(t)

	at := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("insert into estudios").
		WithArgs("7/1700000000000_scan.dcm", "1700000000000_scan.dcm", int64(7), at).
		WillReturnRows(sqlmock.NewRows([]string{"idEstudio"}).AddRow(int64(11)))

	st := &clinic.Study{
		PatientID: 7,
		Nombre:    "1700000000000_scan.dcm",
		Ruta:      "7/1700000000000_scan.dcm",
		CreatedAt: at,
	}
	if err := store.InsertStudy(context.Background(), st); err != nil {
		t.Fatalf("insert study: %v", err)
	}
	if st.ID != 11 {
		t.Fatalf("expected assigned id 11, got %d", st.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertStudyUnknownPatient(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("insert into estudios").
		WillReturnError(&pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"})

	st := &clinic.Study{PatientID: 999, Nombre: "x", Ruta: "999/x", CreatedAt: time.Now()}
	err := store.InsertStudy(context.Background(), st)
	if !errors.Is(err, clinic.ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestListStudies(t *testing.T) {
	store, mock := newMockStore(t)

	newer := time.Date(2024, 5, 2, 11, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"idEstudio", "idPaciente", "nombreEstudio", "rutaEstudio", "fechaEstudio"}).
		AddRow(int64(12), int64(7), "b.dcm", "7/b.dcm", newer).
		AddRow(int64(11), int64(7), "a.dcm", "7/a.dcm", older)
	mock.ExpectQuery("select idEstudio, idPaciente").
		WithArgs(int64(7)).
		WillReturnRows(rows)

	studies, err := store.ListStudies(context.Background(), 7)
	if err != nil {
		t.Fatalf("list studies: %v", err)
	}
	if len(studies) != 2 || studies[0].ID != 12 {
		t.Fatalf("unexpected studies: %+v", studies)
	}
}

func TestListStudiesEmpty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select idEstudio, idPaciente").
		WithArgs(int64(999)).
		WillReturnRows(sqlmock.NewRows([]string{"idEstudio", "idPaciente", "nombreEstudio", "rutaEstudio", "fechaEstudio"}))

	studies, err := store.ListStudies(context.Background(), 999)
	if err != nil {
		t.Fatalf("an unknown patient must yield an empty list, got %v", err)
	}
	if len(studies) != 0 {
		t.Fatalf("expected no studies, got %d", len(studies))
	}
}

func TestGetStudyNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select idEstudio, idPaciente").
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetStudy(context.Background(), 404)
	if !errors.Is(err, clinic.ErrStudyNotFound) {
		t.Fatalf("expected ErrStudyNotFound, got %v", err)
	}
}

func TestDeleteStudy(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from estudios").
		WithArgs(int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := store.DeleteStudy(context.Background(), 11)
	if err != nil {
		t.Fatalf("delete study: %v", err)
	}
	if !deleted {
		t.Fatalf("expected deleted=true")
	}
}

func TestDeleteStudyAlreadyGone(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from estudios").
		WithArgs(int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := store.DeleteStudy(context.Background(), 11)
	if err != nil {
		t.Fatalf("delete of a missing row must not error: %v", err)
	}
	if deleted {
		t.Fatalf("expected deleted=false when the row was already gone")
	}
}

func TestFindByUsername(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "username", "name", "password", "nombreRol", "id_rol"}).
		AddRow(int64(1), "admin", "Admin User", "$2a$10$hash", "Administrador", int64(1))
	mock.ExpectQuery("select u.id, u.username").
		WithArgs("admin").
		WillReturnRows(rows)

	cred, err := store.FindByUsername(context.Background(), "admin")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if cred.Role != "Administrador" || cred.RoleID != 1 {
		t.Fatalf("unexpected credential: %+v", cred)
	}
}

func TestFindByUsernameUnknown(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select u.id, u.username").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := store.FindByUsername(context.Background(), "ghost")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
