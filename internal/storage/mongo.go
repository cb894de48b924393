package storage

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo stores records in a "videos" collection keyed by message_id.
type Mongo struct {
	client *mongo.Client
	col    *mongo.Collection
}

type videoDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	MessageID int                `bson:"message_id"`
	FileName  string             `bson:"file_name"`
	Caption   string             `bson:"caption,omitempty"`
}

func NewMongo(ctx context.Context, uri string, database string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New("MONGODB_URI is empty")
	}
	if database == "" {
		database = "videofinder"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	col := client.Database(database).Collection("videos")
	_, err = col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{bson.E{Key: "message_id", Value: 1}}, Options: options.Index().SetUnique(true)})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &Mongo{client: client, col: col}, nil
}

func (m *Mongo) InsertIfAbsent(ctx context.Context, rec Record) (bool, error) {
	set := bson.M{"message_id": rec.MessageID, "file_name": rec.FileName}
	if rec.Caption != "" {
		set["caption"] = rec.Caption
	}
	res, err := m.col.UpdateOne(ctx,
		bson.M{"message_id": rec.MessageID},
		bson.M{"$setOnInsert": set},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		// lost an upsert race with another writer
		return false, nil
	}
	if err != nil {
		return false, unavailable("insert", err)
	}
	return res.UpsertedCount == 1, nil
}

func (m *Mongo) FindBySubstring(ctx context.Context, token string) ([]Record, error) {
	re := primitive.Regex{Pattern: regexp.QuoteMeta(token), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"file_name": re},
		bson.M{"caption": re},
	}}
	return m.find(ctx, "find", filter)
}

func (m *Mongo) FindAll(ctx context.Context) ([]Record, error) {
	return m.find(ctx, "scan", bson.M{})
}

func (m *Mongo) FindCaption(ctx context.Context, messageID int) (string, bool, error) {
	var doc videoDoc
	err := m.col.FindOne(ctx, bson.M{"message_id": messageID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("caption", err)
	}
	return doc.Caption, true, nil
}

func (m *Mongo) Count(ctx context.Context) (int, error) {
	n, err := m.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, unavailable("count", err)
	}
	return int(n), nil
}

func (m *Mongo) Close() error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Disconnect(context.Background())
}

// find returns documents in _id order, which follows insertion time.
func (m *Mongo) find(ctx context.Context, op string, filter bson.M) ([]Record, error) {
	opts := options.Find().SetSort(bson.D{bson.E{Key: "_id", Value: 1}})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer cur.Close(ctx)
	out := []Record{}
	for cur.Next(ctx) {
		var doc videoDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, unavailable(op, err)
		}
		out = append(out, Record{MessageID: doc.MessageID, FileName: doc.FileName, Caption: doc.Caption})
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return out, nil
}
