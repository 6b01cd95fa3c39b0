package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the slice of a MongoDB collection the store needs: keyed
// reads, upserting replaces, deletes and a change stream. Tests replace it
// with an in-memory fake that speaks real BSON.
type Collection interface {
	FindOne(ctx context.Context, filter interface{}) SingleResult
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) error
	DeleteOne(ctx context.Context, filter interface{}) (int64, error)
	Watch(ctx context.Context, pipeline interface{}, opts ...*options.ChangeStreamOptions) (ChangeStream, error)
}

type SingleResult interface {
	Decode(v interface{}) error
}

// ChangeStream is satisfied by *mongo.ChangeStream.
type ChangeStream interface {
	Next(ctx context.Context) bool
	Decode(val interface{}) error
	Close(ctx context.Context) error
	Err() error
}

// driverCollection binds Collection to the driver.
type driverCollection struct {
	col *mongo.Collection
}

func (d driverCollection) FindOne(ctx context.Context, filter interface{}) SingleResult {
	return d.col.FindOne(ctx, filter)
}

func (d driverCollection) ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) error {
	_, err := d.col.ReplaceOne(ctx, filter, replacement, opts...)
	return err
}

func (d driverCollection) DeleteOne(ctx context.Context, filter interface{}) (int64, error) {
	res, err := d.col.DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (d driverCollection) Watch(ctx context.Context, pipeline interface{}, opts ...*options.ChangeStreamOptions) (ChangeStream, error) {
	return d.col.Watch(ctx, pipeline, opts...)
}
