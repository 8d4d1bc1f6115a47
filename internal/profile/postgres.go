package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	selectStudent = `SELECT id, person_id, course_number, gpa::float8
		FROM users_studentprofile WHERE person_id = $1`
	selectEducation = `SELECT profession, specialization, qualification
		FROM users_educationinfo WHERE student_id = $1`
	selectRecords = `SELECT subject_name, credits, COALESCE(grade, ''), score::float8
		FROM users_academicrecord WHERE student_id = $1
		ORDER BY score DESC NULLS LAST, id`
	selectPractices = `SELECT COALESCE(practice_type, ''), COALESCE(position, ''), COALESCE(organization, '')
		FROM users_practiceexperience WHERE student_id = $1
		ORDER BY start_date DESC NULLS LAST, id`
)

// PostgresStore reads profiles from the student records database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to profile database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping profile database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Close() {
	p.pool.Close()
}

func (p *PostgresStore) Load(ctx context.Context, personID string) (*Student, error) {
	var (
		id      int64
		student Student
	)

	err := p.pool.QueryRow(ctx, selectStudent, personID).Scan(&id, &student.PersonID, &student.Course, &student.GPA)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, personID)
	}
	if err != nil {
		return nil, fmt.Errorf("select student: %w", err)
	}

	var edu Education
	err = p.pool.QueryRow(ctx, selectEducation, id).Scan(&edu.Profession, &edu.Specialization, &edu.Qualification)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("select education: %w", err)
	default:
		student.EducationInfo = &edu
	}

	if student.Records, err = p.records(ctx, id); err != nil {
		return nil, err
	}

	if student.Practices, err = p.practices(ctx, id); err != nil {
		return nil, err
	}

	return &student, nil
}

func (p *PostgresStore) records(ctx context.Context, studentID int64) ([]AcademicRecord, error) {
	rows, err := p.pool.Query(ctx, selectRecords, studentID)
	if err != nil {
		return nil, fmt.Errorf("select academic records: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (AcademicRecord, error) {
		var r AcademicRecord
		err := row.Scan(&r.Subject, &r.Credits, &r.Grade, &r.Score)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan academic records: %w", err)
	}

	return records, nil
}

func (p *PostgresStore) practices(ctx context.Context, studentID int64) ([]Practice, error) {
	rows, err := p.pool.Query(ctx, selectPractices, studentID)
	if err != nil {
		return nil, fmt.Errorf("select practices: %w", err)
	}

	practices, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Practice, error) {
		var pr Practice
		err := row.Scan(&pr.Type, &pr.Position, &pr.Organization)
		return pr, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan practices: %w", err)
	}

	return practices, nil
}
