package mongo

import (
	"context"
	"time"

	"accounts/config"
	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongoLib "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// accountRepository implements repository.AccountRepository on a MongoDB collection.
type accountRepository struct {
	collection *mongoLib.Collection
	timeout    time.Duration
	now        func() time.Time
}

// NewAccountRepository is the constructor for accountRepository.
func NewAccountRepository(collection *mongoLib.Collection, cfg *config.Config) repository.AccountRepository {
	timeout := time.Duration(0)
	if cfg != nil && cfg.Mongo != nil {
		timeout = cfg.Mongo.OperationTimeout
	}

	return &accountRepository{
		collection: collection,
		timeout:    timeout,
		now:        time.Now,
	}
}

func (repo *accountRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if repo.timeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, repo.timeout)
}

// Create inserts a new account document. The unique email index turns a concurrent
// duplicate into ErrDuplicateEmail.
func (repo *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	doc, err := newAccountDocument(account, repo.now())
	if err != nil {
		return errors.Wrap(err, "failed to generate account id")
	}

	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	if _, err := repo.collection.InsertOne(ctx, doc); err != nil {
		if mongoLib.IsDuplicateKeyError(err) {
			return domainerrors.ErrDuplicateEmail.WrapMessage("email already exists")
		}

		return domainerrors.NewStoreError(err, "failed to create account")
	}

	account.ID = uuid.MustParse(doc.ID)
	account.CreatedAt = doc.CreatedAt
	account.UpdatedAt = doc.UpdatedAt

	return nil
}

// FindByEmail retrieves a single account by its email address.
func (repo *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return repo.findOne(ctx, bson.D{{Key: fieldEmail, Value: email}}, "failed to find account by email")
}

// FindByID retrieves a single account by its unique ID.
func (repo *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	return repo.findOne(ctx, bson.D{{Key: fieldID, Value: id.String()}}, "failed to find account by id")
}

func (repo *accountRepository) findOne(ctx context.Context, filter bson.D, details string) (*entity.Account, error) {
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	var doc accountDocument
	if err := repo.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongoLib.ErrNoDocuments) {
			return nil, repository.ErrAccountNotFound
		}

		return nil, domainerrors.NewStoreError(err, details)
	}

	account, err := toAccountDomain(&doc)
	if err != nil {
		return nil, domainerrors.NewStoreError(err, "stored account has an invalid id")
	}

	return account, nil
}

// List returns all accounts, oldest first.
func (repo *accountRepository) List(ctx context.Context) ([]*entity.Account, error) {
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	cursor, err := repo.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: fieldCreatedAt, Value: 1}}))
	if err != nil {
		return nil, domainerrors.NewStoreError(err, "failed to list accounts")
	}

	var docs []*accountDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, domainerrors.NewStoreError(err, "failed to decode accounts")
	}

	accounts := make([]*entity.Account, 0, len(docs))
	for _, doc := range docs {
		account, err := toAccountDomain(doc)
		if err != nil {
			return nil, domainerrors.NewStoreError(err, "stored account has an invalid id")
		}
		accounts = append(accounts, account)
	}

	return accounts, nil
}
