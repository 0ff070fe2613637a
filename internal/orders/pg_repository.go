package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/consultation-dashboard/internal/consultation"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const consultationColumns = `id, nurse_id, patient_id, patient_name, scheduled_time, end_time, status, notes, created_at, updated_at`

const notificationColumns = `id, message_id, audience, title, message, type, is_read, created_at`

// Helpers

func scanNurse(row pgx.Row) (*Nurse, error) {
	var n Nurse
	var email *string

	err := row.Scan(
		&n.ID,
		&n.Name,
		&email,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNurseNotFound
		}
		return nil, err
	}

	n.Email = email
	return &n, nil
}

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation

	err := row.Scan(
		&c.ID,
		&c.NurseID,
		&c.PatientID,
		&c.PatientName,
		&c.ScheduledTime,
		&c.EndTime,
		&c.Status,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConsultationNotFound
		}
		return nil, err
	}

	return &c, nil
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification

	err := row.Scan(
		&n.ID,
		&n.MessageID,
		&n.Audience,
		&n.Title,
		&n.Message,
		&n.Type,
		&n.IsRead,
		&n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}

	return &n, nil
}

// Interface methods

func (r *PgRepository) GetNurseByID(ctx context.Context, id uuid.UUID) (*Nurse, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM nurses
		WHERE id = $1
	`, id)
	return scanNurse(row)
}

func (r *PgRepository) CreateNurse(ctx context.Context, n Nurse) (*Nurse, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO nurses (id, name, email, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, name, email, created_at, updated_at
	`, n.ID, n.Name, n.Email)
	return scanNurse(row)
}

func (r *PgRepository) GetConsultationByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE id = $1
	`, id)
	return scanConsultation(row)
}

func (r *PgRepository) ListConsultationsByNurse(ctx context.Context, nurseID uuid.UUID) ([]Consultation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE nurse_id = $1
		ORDER BY scheduled_time, created_at
	`, nurseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]Consultation, 0)
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateConsultation(ctx context.Context, c Consultation) (*Consultation, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = consultation.StatusPending
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO consultations (id, nurse_id, patient_id, patient_name, scheduled_time, end_time, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+consultationColumns,
		c.ID, c.NurseID, c.PatientID, c.PatientName, c.ScheduledTime, c.EndTime, c.Status, c.Notes)

	return scanConsultation(row)
}

func (r *PgRepository) UpdateConsultationStatus(ctx context.Context, id uuid.UUID, from, to consultation.Status) (*Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE consultations
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+consultationColumns,
		id, to, from)

	return scanConsultation(row)
}

func (r *PgRepository) InsertNotification(ctx context.Context, n Notification) (*Notification, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.MessageID == uuid.Nil {
		n.MessageID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, message_id, audience, title, message, type, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+notificationColumns,
		n.ID, n.MessageID, n.Audience, n.Title, n.Message, n.Type, n.IsRead, n.CreatedAt.UTC())

	return scanNotification(row)
}

func (r *PgRepository) ListNotifications(ctx context.Context, audience string, limit int) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE ($1 = '' OR audience = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, audience, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// MarkNotificationRead never clears the flag, so repeating it is harmless.
func (r *PgRepository) MarkNotificationRead(ctx context.Context, messageID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = true
		WHERE message_id = $1
	`, messageID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, consultation_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.ConsultationID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
