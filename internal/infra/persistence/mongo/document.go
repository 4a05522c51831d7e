package mongo

import (
	"time"

	"accounts/internal/domain/entity"

	"github.com/google/uuid"
)

const (
	fieldID        = "_id"
	fieldEmail     = "email"
	fieldCreatedAt = "created_at"
)

// accountDocument is the stored shape of an account. The UUID is kept as its string form.
type accountDocument struct {
	ID           string    `bson:"_id"`
	FirstName    string    `bson:"first_name"`
	LastName     string    `bson:"last_name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	PhoneNumber  string    `bson:"phone_number"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

// newAccountDocument prepares an account for insertion, assigning its ID and timestamps.
// BSON dates hold milliseconds, so times are truncated up front to match what is read back.
func newAccountDocument(account *entity.Account, now time.Time) (*accountDocument, error) {
	id := account.ID
	if id == uuid.Nil {
		var err error
		if id, err = uuid.NewV7(); err != nil {
			return nil, err
		}
	}

	now = now.UTC().Truncate(time.Millisecond)

	return &accountDocument{
		ID:           id.String(),
		FirstName:    account.FirstName,
		LastName:     account.LastName,
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		PhoneNumber:  account.PhoneNumber,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// toAccountDomain converts a stored document into a domain Account entity.
func toAccountDomain(doc *accountDocument) (*entity.Account, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, err
	}

	return &entity.Account{
		ID:           id,
		FirstName:    doc.FirstName,
		LastName:     doc.LastName,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		PhoneNumber:  doc.PhoneNumber,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}
