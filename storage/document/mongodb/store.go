// Package mongodb implements the document store contract over a MongoDB
// database. Collections are bound lazily; Mongo creates them on first write.
package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/resource"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ resource.Store = (*Store)(nil)

// document is the stored shape: payload fields live in a subdocument so
// they can never collide with the reserved keys.
type document struct {
	ID        string    `bson:"_id"`
	Fields    bson.M    `bson:"fields"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func Open(ctx context.Context, conf *core.Config) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Database.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, errors.Wrap(err, "pinging mongodb")
	}
	return &Store{client: client, db: client.Database(conf.Database.Name)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func toDocument(rec resource.Record) document {
	return document{
		ID:        rec.ID,
		Fields:    bson.M(rec.Fields),
		CreatedAt: rec.CreatedAt.UTC(),
		UpdatedAt: rec.UpdatedAt.UTC(),
	}
}

func toRecord(doc document) resource.Record {
	fields := resource.Fields(doc.Fields)
	if fields == nil {
		fields = resource.Fields{}
	}
	return resource.Record{
		ID:        doc.ID,
		Fields:    fields,
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt.UTC(),
	}
}

// wrapWriteErr maps store-side write rejections (duplicate keys, schema
// validators configured on the database) to ValidationError.
func wrapWriteErr(err error, msg string) error {
	var wErr mongo.WriteException
	if errors.As(err, &wErr) {
		return core.NewValidationError(errors.Wrap(err, msg))
	}
	var bwErr mongo.BulkWriteException
	if errors.As(err, &bwErr) {
		return core.NewValidationError(errors.Wrap(err, msg))
	}
	return errors.Wrap(err, msg)
}

func (s *Store) Insert(ctx context.Context, collection string, rec resource.Record) (resource.Record, error) {
	if _, err := s.db.Collection(collection).InsertOne(ctx, toDocument(rec)); err != nil {
		return resource.Record{}, wrapWriteErr(err, "inserting document")
	}
	return rec, nil
}

func (s *Store) InsertMany(ctx context.Context, collection string, recs []resource.Record) ([]resource.Record, error) {
	if len(recs) == 0 {
		return recs, nil
	}
	docs := make([]interface{}, len(recs))
	for i, rec := range recs {
		docs[i] = toDocument(rec)
	}
	opts := options.InsertMany().SetOrdered(true)
	if _, err := s.db.Collection(collection).InsertMany(ctx, docs, opts); err != nil {
		return nil, wrapWriteErr(err, "inserting documents")
	}
	return recs, nil
}

func (s *Store) Find(ctx context.Context, collection string, filter resource.Filter, fopts resource.FindOptions) ([]resource.Record, error) {
	query := bson.M{}
	for k, v := range filter {
		query["fields."+k] = v
	}

	opts := options.Find()
	if len(fopts.Sort) > 0 {
		sortDoc := bson.D{}
		for _, ord := range fopts.Sort {
			dir := -1
			if ord.Ascending {
				dir = 1
			}
			sortDoc = append(sortDoc, bson.E{Key: sortKey(ord.Field), Value: dir})
		}
		opts.SetSort(sortDoc)
	}
	if fopts.Limit > 0 {
		opts.SetLimit(int64(fopts.Limit))
	}

	cursor, err := s.db.Collection(collection).Find(ctx, query, opts)
	if err != nil {
		return nil, errors.Wrap(err, "finding documents")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var recs []resource.Record
	for cursor.Next(ctx) {
		var doc document
		if err = cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decoding document")
		}
		recs = append(recs, toRecord(doc))
	}
	if err = cursor.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating documents")
	}
	return recs, nil
}

func (s *Store) FindByID(ctx context.Context, collection, id string) (resource.Record, error) {
	var doc document
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return resource.Record{}, resource.ErrNotFound
		}
		return resource.Record{}, errors.Wrap(err, "finding document")
	}
	return toRecord(doc), nil
}

func (s *Store) Update(ctx context.Context, collection string, rec resource.Record) (resource.Record, error) {
	update := bson.M{"$set": bson.M{
		"fields":     bson.M(rec.Fields),
		"updated_at": rec.UpdatedAt.UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc document
	err := s.db.Collection(collection).
		FindOneAndUpdate(ctx, bson.M{"_id": rec.ID}, update, opts).
		Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return resource.Record{}, resource.ErrNotFound
		}
		return resource.Record{}, wrapWriteErr(err, "updating document")
	}
	return toRecord(doc), nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errors.Wrap(err, "deleting document")
	}
	return nil
}

func sortKey(field string) string {
	switch field {
	case "created_at", "updated_at":
		return field
	}
	return "fields." + field
}
