package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"triagecast/internal/triage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Postgres implements triage.DataStore on the triagedata schema. Every
// query uses bound parameters.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a connection pool and verifies it with a ping.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// AnchorYear finds the most recent year with a referral on or after the
// start date's (month, day) position in the calendar.
func (p *Postgres) AnchorYear(ctx context.Context, start time.Time) (int, error) {
	const q = `
		SELECT EXTRACT(YEAR FROM date_received)::int
		FROM triagedata.historicdata
		WHERE EXTRACT(MONTH FROM date_received) = $1
		  AND EXTRACT(DAY FROM date_received) >= $2
		ORDER BY date_received DESC
		LIMIT 1`

	var year int
	err := p.pool.QueryRow(ctx, q, int(start.Month()), start.Day()).Scan(&year)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("start date %s: %w", start.Format("2006-01-02"), triage.ErrNoHistoricAnchor)
	}
	if err != nil {
		return 0, fmt.Errorf("querying anchor year: %w", err)
	}

	log.Debug().Int("year", year).Str("start", start.Format("2006-01-02")).Msg("Resolved historic anchor year")
	return year, nil
}

// ReferralDates returns received dates for a severity within [from, to),
// chronologically ascending.
func (p *Postgres) ReferralDates(ctx context.Context, severity int, from, to time.Time) ([]time.Time, error) {
	const q = `
		SELECT date_received
		FROM triagedata.historicdata
		WHERE severity = $1
		  AND date_received >= $2
		  AND date_received < $3
		ORDER BY date_received`

	rows, err := p.pool.Query(ctx, q, severity, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying referrals: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scanning referral date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading referrals: %w", err)
	}
	return dates, nil
}

// ActiveModelPath returns the registry path of the single model flagged
// in_use for the clinic and severity. Zero or several matches are an
// error: the pipeline cannot choose between ambiguous models.
func (p *Postgres) ActiveModelPath(ctx context.Context, clinicID, severity int) (string, error) {
	const q = `
		SELECT file_path
		FROM triagedata.models
		WHERE clinic_id = $1
		  AND severity = $2
		  AND in_use = TRUE`

	rows, err := p.pool.Query(ctx, q, clinicID, severity)
	if err != nil {
		return "", fmt.Errorf("querying model registry: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return "", fmt.Errorf("scanning model path: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("reading model registry: %w", err)
	}

	if len(paths) != 1 {
		return "", fmt.Errorf("clinic %d severity %d has %d active models: %w",
			clinicID, severity, len(paths), triage.ErrMissingModel)
	}
	return paths[0], nil
}

// Classes returns the clinic's triage classes ordered by severity.
func (p *Postgres) Classes(ctx context.Context, clinicID int) ([]triage.Class, error) {
	const q = `
		SELECT name, severity, duration, proportion
		FROM triagedata.triageclasses
		WHERE clinic_id = $1
		ORDER BY severity`

	rows, err := p.pool.Query(ctx, q, clinicID)
	if err != nil {
		return nil, fmt.Errorf("querying triage classes: %w", err)
	}
	defer rows.Close()

	var classes []triage.Class
	for rows.Next() {
		var c triage.Class
		if err := rows.Scan(&c.Name, &c.Severity, &c.DurationWeeks, &c.Proportion); err != nil {
			return nil, fmt.Errorf("scanning triage class: %w", err)
		}
		classes = append(classes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading triage classes: %w", err)
	}
	return classes, nil
}
