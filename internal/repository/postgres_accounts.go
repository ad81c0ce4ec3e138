package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/knowtix/billing-service/internal/db"
	"github.com/knowtix/billing-service/internal/models"
	"github.com/knowtix/billing-service/pkg/logger"
)

// UserRepository reads accounts created by the sign-in flow.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// MessageRepository stores chat turns.
type MessageRepository interface {
	// SaveExchange stores a user message and the assistant reply atomically.
	SaveExchange(ctx context.Context, prompt, reply *models.Message) error
}

// ContactRepository stores contact-form submissions.
type ContactRepository interface {
	Create(ctx context.Context, msg *models.ContactMessage) error
}

type postgresUserRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresUserRepository returns the Postgres-backed UserRepository.
func NewPostgresUserRepository(db *sqlx.DB, log *logger.Logger) UserRepository {
	return &postgresUserRepo{db: db, log: log}
}

func (r *postgresUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	query := `SELECT id, name, email, phone, created_at FROM users WHERE id = $1`

	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		err = wrap("get user", err)
		if err != ErrNotFound {
			r.log.Errorw("Failed to get user", "error", err, "userID", id)
		}
		return nil, err
	}
	return &user, nil
}

type postgresMessageRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresMessageRepository returns the Postgres-backed MessageRepository.
func NewPostgresMessageRepository(db *sqlx.DB, log *logger.Logger) MessageRepository {
	return &postgresMessageRepo{db: db, log: log}
}

func (r *postgresMessageRepo) SaveExchange(ctx context.Context, prompt, reply *models.Message) error {
	query := `
        INSERT INTO messages (id, user_id, role, content, created_at)
        VALUES (:id, :user_id, :role, :content, :created_at)`

	now := time.Now().UTC()
	prompt.ID, prompt.CreatedAt = uuid.NewString(), now
	reply.ID, reply.CreatedAt = uuid.NewString(), now.Add(time.Millisecond)

	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, m := range []*models.Message{prompt, reply} {
			if _, err := tx.NamedExecContext(ctx, query, m); err != nil {
				return wrap("insert message", err)
			}
		}
		return nil
	})
	if err != nil {
		r.log.Errorw("Failed to save chat exchange", "error", err, "userID", prompt.UserID)
		return err
	}
	return nil
}

type postgresContactRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresContactRepository returns the Postgres-backed ContactRepository.
func NewPostgresContactRepository(db *sqlx.DB, log *logger.Logger) ContactRepository {
	return &postgresContactRepo{db: db, log: log}
}

func (r *postgresContactRepo) Create(ctx context.Context, msg *models.ContactMessage) error {
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO contact_messages (id, full_name, email, phone, message, created_at)
        VALUES (:id, :full_name, :email, :phone, :message, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, msg); err != nil {
		err = wrap("create contact message", err)
		r.log.Errorw("Failed to store contact message", "error", err, "email", msg.Email)
		return err
	}
	return nil
}
