package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"loan-topup/domain"
)

const (
	requestsCollection = "topup_requests"
	stepsCollection    = "approval_workflow_steps"
	countersCollection = "counters"
)

type MongoTopUpRepository struct {
	requests *mongo.Collection
	steps    *mongo.Collection
	counters *mongo.Collection
}

func NewMongoTopUpRepository(db *mongo.Database) *MongoTopUpRepository {
	return &MongoTopUpRepository{
		requests: db.Collection(requestsCollection),
		steps:    db.Collection(stepsCollection),
		counters: db.Collection(countersCollection),
	}
}

// EnsureIndexes creates the unique request-number index and the step lookup index.
func (r *MongoTopUpRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.requests.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "request_number", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("request_number index: %w", err)
	}

	_, err = r.steps.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "topup_request_id", Value: 1}, {Key: "step_order", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("topup_request_id index: %w", err)
	}
	return nil
}

func (r *MongoTopUpRepository) NextSequence(ctx context.Context, year int) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	filter := bson.M{"_id": fmt.Sprintf("topup_request:%d", year)}
	update := bson.M{"$inc": bson.M{"seq": 1}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	if err := r.counters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter); err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

func (r *MongoTopUpRepository) CreateRequest(ctx context.Context, req domain.TopUpRequest) error {
	_, err := r.requests.InsertOne(ctx, req)
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	return err
}

func (r *MongoTopUpRepository) GetRequest(ctx context.Context, id string) (domain.TopUpRequest, error) {
	var req domain.TopUpRequest
	err := r.requests.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.TopUpRequest{}, ErrNotFound
	}
	return req, err
}

func (r *MongoTopUpRepository) UpdateRequest(ctx context.Context, req domain.TopUpRequest) error {
	res, err := r.requests.ReplaceOne(ctx, bson.D{{Key: "_id", Value: req.ID}}, req)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoTopUpRepository) ListRequests(ctx context.Context) ([]domain.TopUpRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.requests.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}

	requests := []domain.TopUpRequest{}
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// CreateSteps inserts unordered so a retry after a partial write fills in
// only the missing steps.
func (r *MongoTopUpRepository) CreateSteps(ctx context.Context, steps []domain.ApprovalStep) error {
	docs := make([]interface{}, len(steps))
	for i, step := range steps {
		docs[i] = step
	}

	_, err := r.steps.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	return err
}

func (r *MongoTopUpRepository) ListSteps(ctx context.Context, requestID string) ([]domain.ApprovalStep, error) {
	opts := options.Find().SetSort(bson.D{{Key: "step_order", Value: 1}})
	cursor, err := r.steps.Find(ctx, bson.D{{Key: "topup_request_id", Value: requestID}}, opts)
	if err != nil {
		return nil, err
	}

	steps := []domain.ApprovalStep{}
	if err := cursor.All(ctx, &steps); err != nil {
		return nil, err
	}
	return steps, nil
}

func (r *MongoTopUpRepository) UpdateStep(ctx context.Context, step domain.ApprovalStep) error {
	res, err := r.steps.ReplaceOne(ctx, bson.D{{Key: "_id", Value: step.ID}}, step)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
