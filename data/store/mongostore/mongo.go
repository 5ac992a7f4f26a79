// Package mongostore implements store.Gateway on MongoDB. Durable writes
// publish change events onto the feed bus, which is how Subscribe gets its
// push channel.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/RWACH777/yasa-tasker-sub000/data/store"
	"github.com/RWACH777/yasa-tasker-sub000/logger"
	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
	"github.com/RWACH777/yasa-tasker-sub000/tools/ids"
)

// Config mirrors the MongoDB connection settings.
type Config struct {
	Uri         string
	Database    string
	Username    string
	Password    string
	AuthSource  string
	MaxPoolSize int
	MaxRetry    int
}

// FeedBus is the change-event transport. Satisfied by *feed.Bus.
type FeedBus interface {
	Publish(store.ChangeEvent) error
	Subscribe(coll string, f store.Filter, h store.Handler) (store.Subscription, error)
}

type Store struct {
	db  *mongo.Database
	bus FeedBus
}

func applyConfigToOptions(cfg *Config) (*options.ClientOptions, error) {
	if cfg.Uri == "" {
		return nil, errs.New("mongo uri is required")
	}
	opts := options.Client().ApplyURI(cfg.Uri)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxPoolSize))
	}
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{
			Username:   cfg.Username,
			Password:   cfg.Password,
			AuthSource: cfg.AuthSource,
		})
	}
	return opts, nil
}

// New connects with bounded retry and wraps the database as a Gateway.
func New(ctx context.Context, cfg *Config, bus FeedBus) (*Store, error) {
	opts, err := applyConfigToOptions(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = 3
	}
	var cli *mongo.Client
	for i := 0; i < cfg.MaxRetry; i++ {
		cli, err = connectMongo(ctx, opts)
		if err == nil {
			break
		}
		time.Sleep(time.Second / 2)
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "failed to connect to MongoDB", "uri", cfg.Uri)
	}
	if cfg.Database == "" {
		cfg.Database = "yasatasker"
	}
	return &Store{db: cli.Database(cfg.Database), bus: bus}, nil
}

func connectMongo(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return cli, nil
}

func (s *Store) Find(ctx context.Context, coll string, f store.Filter, srt ...store.Sort) ([]store.Row, error) {
	opt := options.Find()
	if len(srt) > 0 {
		dir := 1
		if srt[0].Desc {
			dir = -1
		}
		opt.SetSort(bson.D{{Key: srt[0].Field, Value: dir}})
	}
	cur, err := s.db.Collection(coll).Find(ctx, toBson(f), opt)
	if err != nil {
		return nil, errs.ErrStoreUnavailable.WrapMsg("find", "coll", coll, "err", err)
	}
	defer func() {
		if err := cur.Close(ctx); err != nil {
			logger.Warnf("mongostore: cursor close: %v", err)
		}
	}()
	var out []store.Row
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, errs.ErrStoreUnavailable.WrapMsg("decode", "coll", coll, "err", err)
		}
		out = append(out, rowFromDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, errs.ErrStoreUnavailable.WrapMsg("cursor", "coll", coll, "err", err)
	}
	return out, nil
}

func (s *Store) FindOne(ctx context.Context, coll string, f store.Filter) (store.Row, error) {
	var doc bson.M
	err := s.db.Collection(coll).FindOne(ctx, toBson(f)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound.WrapMsg("no row", "coll", coll)
	}
	if err != nil {
		return nil, errs.ErrStoreUnavailable.WrapMsg("find one", "coll", coll, "err", err)
	}
	return rowFromDoc(doc), nil
}

func (s *Store) Insert(ctx context.Context, coll string, row store.Row) (store.Row, error) {
	stored := make(store.Row, len(row))
	for k, v := range row {
		stored[k] = v
	}
	if id, _ := stored["id"].(string); id == "" || ids.IsTemp(id) {
		stored["id"] = ids.GenerateString()
	}
	if _, err := s.db.Collection(coll).InsertOne(ctx, bson.M(stored)); err != nil {
		return nil, errs.ErrStoreUnavailable.WrapMsg("insert", "coll", coll, "err", err)
	}
	s.publish(store.ChangeEvent{Kind: store.ChangeInsert, Coll: coll, Row: stored})
	return stored, nil
}

func (s *Store) Update(ctx context.Context, coll string, f store.Filter, fields store.Row) (int64, error) {
	// Capture the matched ids first so the post-update rows can be pushed
	// onto the feed.
	matched, err := s.Find(ctx, coll, f)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Collection(coll).UpdateMany(ctx, toBson(f), bson.M{"$set": bson.M(fields)})
	if err != nil {
		return 0, errs.ErrStoreUnavailable.WrapMsg("update", "coll", coll, "err", err)
	}
	for _, row := range matched {
		id, _ := row["id"].(string)
		if id == "" {
			continue
		}
		fresh, err := s.FindOne(ctx, coll, store.Where(store.Eq("id", id)))
		if err != nil {
			continue
		}
		s.publish(store.ChangeEvent{Kind: store.ChangeUpdate, Coll: coll, Row: fresh})
	}
	return res.ModifiedCount, nil
}

func (s *Store) Delete(ctx context.Context, coll string, f store.Filter) (int64, error) {
	matched, err := s.Find(ctx, coll, f)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Collection(coll).DeleteMany(ctx, toBson(f))
	if err != nil {
		return 0, errs.ErrStoreUnavailable.WrapMsg("delete", "coll", coll, "err", err)
	}
	for _, row := range matched {
		s.publish(store.ChangeEvent{Kind: store.ChangeDelete, Coll: coll, Row: row})
	}
	return res.DeletedCount, nil
}

func (s *Store) Subscribe(coll string, f store.Filter, h store.Handler) (store.Subscription, error) {
	return s.bus.Subscribe(coll, f, h)
}

func (s *Store) publish(ev store.ChangeEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ev); err != nil {
		logger.Warnf("mongostore: feed publish failed: %v", err)
	}
}

func rowFromDoc(doc bson.M) store.Row {
	row := make(store.Row, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		row[k] = v
	}
	return row
}

func toBson(f store.Filter) bson.M {
	if len(f.Groups) == 0 {
		return bson.M{}
	}
	if len(f.Groups) == 1 {
		return groupToBson(f.Groups[0])
	}
	or := make([]bson.M, 0, len(f.Groups))
	for _, g := range f.Groups {
		or = append(or, groupToBson(g))
	}
	return bson.M{"$or": or}
}

func groupToBson(conds []store.Cond) bson.M {
	m := bson.M{}
	for _, c := range conds {
		switch c.Op {
		case store.OpEq:
			m[c.Field] = c.Value
		case store.OpIn:
			vs, _ := c.Value.([]any)
			m[c.Field] = bson.M{"$in": vs}
		case store.OpMissing:
			m[c.Field] = bson.M{"$exists": false}
		}
	}
	return m
}
