package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmcoop/internal/domain/apperror"
	"github.com/mamadbah2/farmcoop/internal/domain/models"
	"github.com/mamadbah2/farmcoop/internal/repository"
)

const (
	itemsCollection         = "items"
	salesCollection         = "sales"
	goalsCollection         = "goals"
	notificationsCollection = "notifications"

	// writeConflictCode is returned by the server when two transactions touch
	// the same document.
	writeConflictCode = 112
)

var _ repository.Store = (*MongoDBRepository)(nil)

// MongoDBRepository implements repository.Store on a MongoDB replica set.
type MongoDBRepository struct {
	client        *mongo.Client
	items         *mongo.Collection
	sales         *mongo.Collection
	goals         *mongo.Collection
	notifications *mongo.Collection
	logger        *zap.Logger
}

// NewMongoDBRepository connects to MongoDB and verifies the connection.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(dbName)
	return &MongoDBRepository{
		client:        client,
		items:         db.Collection(itemsCollection),
		sales:         db.Collection(salesCollection),
		goals:         db.Collection(goalsCollection),
		notifications: db.Collection(notificationsCollection),
		logger:        logger,
	}, nil
}

// EnsureIndexes creates the secondary indexes the services query on.
func (r *MongoDBRepository) EnsureIndexes(ctx context.Context) error {
	specs := map[*mongo.Collection][]mongo.IndexModel{
		r.sales: {
			{Keys: bson.D{{Key: "product_id", Value: 1}, {Key: "date", Value: -1}}},
		},
		r.goals: {
			{Keys: bson.D{{Key: "product_id", Value: 1}, {Key: "type", Value: 1}}},
		},
		r.items: {
			{Keys: bson.D{{Key: "farm_id", Value: 1}, {Key: "name", Value: 1}}},
		},
		r.notifications: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
	}
	for coll, indexes := range specs {
		if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// WithTransaction runs fn inside a multi-document transaction. The driver's
// retrying helper is not used: a failed commit is reported, not replayed.
func (r *MongoDBRepository) WithTransaction(ctx context.Context, fn repository.TxFunc) error {
	sess, err := r.client.StartSession()
	if err != nil {
		return apperror.NewStorage(fmt.Errorf("start session: %w", err))
	}
	defer sess.EndSession(context.Background())

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	err = mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sess.StartTransaction(txnOpts); err != nil {
			return fmt.Errorf("start transaction: %w", err)
		}
		if err := fn(sc, &mongoTx{repo: r}); err != nil {
			if abortErr := sess.AbortTransaction(context.Background()); abortErr != nil {
				r.logger.Warn("abort transaction failed", zap.Error(abortErr), zap.NamedError("original_error", err))
			}
			return err
		}
		if err := sess.CommitTransaction(sc); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
	return classify(err)
}

// CreateItem registers a new item.
func (r *MongoDBRepository) CreateItem(ctx context.Context, item models.Item) error {
	if _, err := r.items.InsertOne(ctx, itemToDocument(item)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.NewValidationCode(apperror.CodeDuplicateName, "item id already exists").WithDetail("id", item.ID)
		}
		return classify(fmt.Errorf("failed to insert item: %w", err))
	}
	return nil
}

// GetItem returns a committed item.
func (r *MongoDBRepository) GetItem(ctx context.Context, id string) (models.Item, error) {
	return findItem(ctx, r.items, id)
}

// ListItems returns every item ordered by name.
func (r *MongoDBRepository) ListItems(ctx context.Context) ([]models.Item, error) {
	cursor, err := r.items.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, classify(fmt.Errorf("failed to list items: %w", err))
	}
	var docs []itemDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classify(fmt.Errorf("failed to decode items: %w", err))
	}
	out := make([]models.Item, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

// DeleteItem removes an item.
func (r *MongoDBRepository) DeleteItem(ctx context.Context, id string) error {
	res, err := r.items.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return classify(fmt.Errorf("failed to delete item: %w", err))
	}
	if res.DeletedCount == 0 {
		return apperror.NewNotFound("item", id)
	}
	return nil
}

// GetSale returns a committed sale.
func (r *MongoDBRepository) GetSale(ctx context.Context, id string) (models.Sale, error) {
	return findSale(ctx, r.sales, id)
}

// ListSales returns every sale, most recent first.
func (r *MongoDBRepository) ListSales(ctx context.Context) ([]models.Sale, error) {
	cursor, err := r.sales.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, classify(fmt.Errorf("failed to list sales: %w", err))
	}
	var docs []saleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classify(fmt.Errorf("failed to decode sales: %w", err))
	}
	out := make([]models.Sale, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

// CreateGoal stores a new goal.
func (r *MongoDBRepository) CreateGoal(ctx context.Context, goal models.Goal) error {
	if _, err := r.goals.InsertOne(ctx, goalToDocument(goal)); err != nil {
		return classify(fmt.Errorf("failed to insert goal: %w", err))
	}
	return nil
}

// GetGoal returns a goal.
func (r *MongoDBRepository) GetGoal(ctx context.Context, id string) (models.Goal, error) {
	var doc goalDocument
	if err := r.goals.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Goal{}, apperror.NewNotFound("goal", id)
		}
		return models.Goal{}, classify(fmt.Errorf("failed to load goal: %w", err))
	}
	return doc.toModel(), nil
}

// ListGoals returns every goal ordered by deadline.
func (r *MongoDBRepository) ListGoals(ctx context.Context) ([]models.Goal, error) {
	cursor, err := r.goals.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "deadline", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, classify(fmt.Errorf("failed to list goals: %w", err))
	}
	var docs []goalDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classify(fmt.Errorf("failed to decode goals: %w", err))
	}
	out := make([]models.Goal, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

// ReplaceGoal overwrites an existing goal.
func (r *MongoDBRepository) ReplaceGoal(ctx context.Context, goal models.Goal) error {
	res, err := r.goals.ReplaceOne(ctx, bson.M{"_id": goal.ID}, goalToDocument(goal))
	if err != nil {
		return classify(fmt.Errorf("failed to replace goal: %w", err))
	}
	if res.MatchedCount == 0 {
		return apperror.NewNotFound("goal", goal.ID)
	}
	return nil
}

// UpdateGoal applies a progress patch.
func (r *MongoDBRepository) UpdateGoal(ctx context.Context, id string, patch models.GoalPatch) error {
	update := bson.M{"$set": bson.M{
		"current":    patch.Current,
		"status":     string(patch.Status),
		"updated_at": patch.UpdatedAt,
	}}
	res, err := r.goals.UpdateByID(ctx, id, update)
	if err != nil {
		return classify(fmt.Errorf("failed to update goal: %w", err))
	}
	if res.MatchedCount == 0 {
		return apperror.NewNotFound("goal", id)
	}
	return nil
}

// DeleteGoal removes a goal.
func (r *MongoDBRepository) DeleteGoal(ctx context.Context, id string) error {
	res, err := r.goals.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return classify(fmt.Errorf("failed to delete goal: %w", err))
	}
	if res.DeletedCount == 0 {
		return apperror.NewNotFound("goal", id)
	}
	return nil
}

// SaveNotification persists a notification.
func (r *MongoDBRepository) SaveNotification(ctx context.Context, n models.Notification) error {
	if _, err := r.notifications.InsertOne(ctx, notificationToDocument(n)); err != nil {
		return classify(fmt.Errorf("failed to insert notification: %w", err))
	}
	return nil
}

// ListNotifications returns up to limit notifications, newest first.
func (r *MongoDBRepository) ListNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.notifications.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to list notifications: %w", err))
	}
	var docs []notificationDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classify(fmt.Errorf("failed to decode notifications: %w", err))
	}
	out := make([]models.Notification, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

type mongoTx struct {
	repo *MongoDBRepository
}

func (t *mongoTx) GetItem(ctx context.Context, id string) (models.Item, error) {
	return findItem(ctx, t.repo.items, id)
}

func (t *mongoTx) UpdateItem(ctx context.Context, id string, patch repository.ItemPatch) error {
	update := bson.M{"$set": bson.M{
		"quantity":    patch.Quantity,
		"sales":       saleEntriesToDocuments(patch.Sales),
		"productions": productionsToDocuments(patch.Productions),
		"updated_at":  patch.UpdatedAt,
	}}
	res, err := t.repo.items.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("failed to update item %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NewNotFound("item", id)
	}
	return nil
}

func (t *mongoTx) GetSale(ctx context.Context, id string) (models.Sale, error) {
	return findSale(ctx, t.repo.sales, id)
}

func (t *mongoTx) CreateSale(ctx context.Context, sale models.Sale) error {
	if _, err := t.repo.sales.InsertOne(ctx, saleToDocument(sale)); err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}
	return nil
}

func (t *mongoTx) UpdateSale(ctx context.Context, sale models.Sale) error {
	res, err := t.repo.sales.ReplaceOne(ctx, bson.M{"_id": sale.ID}, saleToDocument(sale))
	if err != nil {
		return fmt.Errorf("failed to replace sale: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperror.NewNotFound("sale", sale.ID)
	}
	return nil
}

func (t *mongoTx) DeleteSale(ctx context.Context, id string) error {
	if _, err := t.repo.sales.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete sale: %w", err)
	}
	return nil
}

func findItem(ctx context.Context, coll *mongo.Collection, id string) (models.Item, error) {
	var doc itemDocument
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Item{}, apperror.NewNotFound("item", id)
		}
		return models.Item{}, classify(fmt.Errorf("failed to load item: %w", err))
	}
	return doc.toModel(), nil
}

func findSale(ctx context.Context, coll *mongo.Collection, id string) (models.Sale, error) {
	var doc saleDocument
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Sale{}, apperror.NewNotFound("sale", id)
		}
		return models.Sale{}, classify(fmt.Errorf("failed to load sale: %w", err))
	}
	return doc.toModel(), nil
}

// classify maps driver errors onto the error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) {
		return apperror.NewTimeout(err)
	}
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) {
		if serverErr.HasErrorLabel("TransientTransactionError") || serverErr.HasErrorCode(writeConflictCode) {
			return apperror.NewConflict(err)
		}
	}
	return apperror.NewStorage(err)
}
