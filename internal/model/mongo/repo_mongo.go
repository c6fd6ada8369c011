// Package mongo stores each dealer as one document with its outfits embedded,
// so every repository operation is a single-document atomic write.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Louistrash/kaartmodellen/internal/entity"
	"github.com/Louistrash/kaartmodellen/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const dealerCollection = "dealers"

// MongoRepository implements Repository on a MongoDB collection.
type MongoRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}

// NewMongoRepository wraps the dealers collection of database.
func NewMongoRepository(client *mongo.Client, database string) *MongoRepository {
	return &MongoRepository{
		client: client,
		coll:   client.Database(database).Collection(dealerCollection),
	}
}

// EnsureIndexes creates the secondary indexes used by ListDealers.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "is_premium", Value: 1}}},
	})
	return err
}

func (r *MongoRepository) Close(ctx context.Context) error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Disconnect(ctx)
}

func (r *MongoRepository) CreateDealer(ctx context.Context, dealer *entity.DbDealer) error {
	if r == nil || r.coll == nil {
		return fmt.Errorf("repository not initialised")
	}
	if dealer == nil {
		return fmt.Errorf("dealer is nil")
	}
	entity.PrepareDealer(dealer, utils.GenerateUUID(), time.Now().UTC().Truncate(time.Millisecond))
	_, err := r.coll.InsertOne(ctx, dealer)
	return err
}

func (r *MongoRepository) GetDealer(ctx context.Context, id string) (*entity.DbDealer, error) {
	if r == nil || r.coll == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	var dealer entity.DbDealer
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&dealer); err != nil {
		return nil, mapNotFound(err, "dealer", id)
	}
	normalise(&dealer)
	return &dealer, nil
}

func (r *MongoRepository) ListDealers(ctx context.Context, params *entity.DealerQuery) ([]entity.DbDealer, *entity.Meta, error) {
	if r == nil || r.coll == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}

	filter := bson.M{}
	var base entity.BaseParams
	if params != nil {
		base = params.BaseParams
		if params.IsActive != nil {
			filter["is_active"] = *params.IsActive
		}
		if params.IsPremium != nil {
			filter["is_premium"] = *params.IsPremium
		}
		if keyword := strings.TrimSpace(params.Keyword); keyword != "" {
			pattern := bson.M{"$regex": regexp.QuoteMeta(keyword), "$options": "i"}
			filter["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"personality": pattern}}
		}
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	page, pageSize := base.Normalize()
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(base.Offset())).
		SetLimit(int64(pageSize))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, nil, err
	}
	defer cursor.Close(ctx)

	dealers := make([]entity.DbDealer, 0, pageSize)
	if err := cursor.All(ctx, &dealers); err != nil {
		return nil, nil, err
	}
	for i := range dealers {
		normalise(&dealers[i])
	}

	meta := &entity.Meta{Page: int64(page), PageSize: int64(pageSize), Total: total}
	return dealers, meta, nil
}

func (r *MongoRepository) CountDealers(ctx context.Context) (int64, error) {
	if r == nil || r.coll == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	return r.coll.CountDocuments(ctx, bson.M{})
}

func (r *MongoRepository) UpdateDealer(ctx context.Context, id string, updates entity.DealerUpdates) (*entity.DbDealer, error) {
	if r == nil || r.coll == nil {
		return nil, fmt.Errorf("repository not initialised")
	}

	set := bson.M{}
	for k, v := range updates.ToMap() {
		set[k] = v
	}
	set["updated_at"] = time.Now().UTC().Truncate(time.Millisecond)

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var dealer entity.DbDealer
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&dealer); err != nil {
		return nil, mapNotFound(err, "dealer", id)
	}
	normalise(&dealer)
	return &dealer, nil
}

func (r *MongoRepository) DeleteDealer(ctx context.Context, id string) (bool, error) {
	if r == nil || r.coll == nil {
		return false, fmt.Errorf("repository not initialised")
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// UpsertOutfit replaces the same-stage outfit in one pipeline update: the
// embedded array is filtered and the new record appended atomically. The
// pre-update document tells which outfit was replaced.
func (r *MongoRepository) UpsertOutfit(ctx context.Context, dealerID string, outfit *entity.DbOutfit) (*entity.DbOutfit, *entity.DbOutfit, error) {
	if r == nil || r.coll == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}
	if outfit == nil {
		return nil, nil, fmt.Errorf("outfit is nil")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	record, err := entity.PrepareOutfit(dealerID, *outfit, utils.GenerateUUID(), now)
	if err != nil {
		return nil, nil, err
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.Before).
		SetProjection(bson.M{"outfits": 1})
	var before entity.DbDealer
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": dealerID}, replaceStagePipeline(record, now), opts).Decode(&before)
	if err != nil {
		return nil, nil, mapNotFound(err, "dealer", dealerID)
	}

	var replaced *entity.DbOutfit
	if old, ok := before.OutfitForStage(record.Stage); ok {
		old.DealerID = dealerID
		replaced = old
	}
	return &record, replaced, nil
}

func replaceStagePipeline(record entity.DbOutfit, now time.Time) mongo.Pipeline {
	kept := bson.D{{Key: "$filter", Value: bson.D{
		{Key: "input", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$outfits", bson.A{}}}}},
		{Key: "as", Value: "o"},
		{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$o.stage", int(record.Stage)}}}},
	}}}
	// $literal keeps values such as URLs from being parsed as expressions
	added := bson.A{bson.D{{Key: "$literal", Value: record}}}

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "outfits", Value: bson.D{{Key: "$concatArrays", Value: bson.A{kept, added}}}},
			{Key: "updated_at", Value: now},
		}}},
	}
}

func (r *MongoRepository) ApproveOutfit(ctx context.Context, dealerID, outfitID string) (bool, error) {
	if r == nil || r.coll == nil {
		return false, fmt.Errorf("repository not initialised")
	}
	filter := bson.M{"_id": dealerID, "outfits.id": outfitID}
	update := bson.M{"$set": bson.M{
		"outfits.$.approved": true,
		"updated_at":         time.Now().UTC().Truncate(time.Millisecond),
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, fmt.Errorf("dealer %s outfit %s: %w", dealerID, outfitID, entity.ErrNotFound)
	}
	return true, nil
}

// normalise fills dealer_id, which embedded outfits do not store, and sorts by stage.
func normalise(d *entity.DbDealer) {
	if d.Outfits == nil {
		d.Outfits = []entity.DbOutfit{}
	}
	for i := range d.Outfits {
		d.Outfits[i].DealerID = d.ID
	}
	d.SortOutfits()
}

func mapNotFound(err error, what, id string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %s: %w", what, id, entity.ErrNotFound)
	}
	return err
}
