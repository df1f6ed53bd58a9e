package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blog-api/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection = "users"
	postsCollection = "posts"
)

// newestFirst orders posts by creation time; _id breaks ties within a millisecond
var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	FullName     string             `bson:"fullName"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"passwordHash"`
	AvatarURL    string             `bson:"avatarUrl,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (d userDoc) toModel() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		FullName:     d.FullName,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		AvatarURL:    d.AvatarURL,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type postDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Title      string             `bson:"title"`
	Text       string             `bson:"text"`
	Tags       []string           `bson:"tags"`
	ViewsCount int64              `bson:"viewsCount"`
	ImageURL   string             `bson:"imageUrl,omitempty"`
	User       primitive.ObjectID `bson:"user"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`

	// Author is filled by $lookup and never written
	Author *userDoc `bson:"author,omitempty"`
}

func (d postDoc) toModel() models.Post {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	post := models.Post{
		ID:         d.ID.Hex(),
		Title:      d.Title,
		Text:       d.Text,
		Tags:       tags,
		ViewsCount: d.ViewsCount,
		ImageURL:   d.ImageURL,
		User:       models.PostAuthor{ID: d.User.Hex()},
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	if d.Author != nil {
		post.User.FullName = d.Author.FullName
		post.User.AvatarURL = d.Author.AvatarURL
	}
	return post
}

// MongoStore is the document database Store backend
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	posts  *mongo.Collection
}

// NewMongoStore connects to uri, verifies the connection and ensures indexes
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}

	db := client.Database(dbName)
	s := &MongoStore{
		client: client,
		users:  db.Collection(usersCollection),
		posts:  db.Collection(postsCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: newestFirst,
	})
	return err
}

// objectID parses a hex id; malformed ids can never match a document
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}

func bsonNow() time.Time {
	// BSON dates keep millisecond precision
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	ts := bsonNow()
	doc := userDoc{
		FullName:     u.FullName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		AvatarURL:    u.AvatarURL,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}

	res, err := s.users.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}

	u.ID = res.InsertedID.(primitive.ObjectID).Hex()
	u.CreatedAt = ts
	u.UpdatedAt = ts
	return nil
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *MongoStore) CreatePost(ctx context.Context, p *models.Post) error {
	author, err := objectID(p.User.ID)
	if err != nil {
		return fmt.Errorf("invalid author id %q", p.User.ID)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}

	ts := bsonNow()
	doc := postDoc{
		Title:     p.Title,
		Text:      p.Text,
		Tags:      p.Tags,
		ImageURL:  p.ImageURL,
		User:      author,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	res, err := s.posts.InsertOne(ctx, doc)
	if err != nil {
		return err
	}

	p.ID = res.InsertedID.(primitive.ObjectID).Hex()
	p.ViewsCount = 0
	p.CreatedAt = ts
	p.UpdatedAt = ts
	return nil
}

func (s *MongoStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: newestFirst}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: usersCollection},
			{Key: "localField", Value: "user"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "author"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$author"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}

	cur, err := s.posts.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	posts := make([]models.Post, 0, len(docs))
	for _, d := range docs {
		posts = append(posts, d.toModel())
	}
	return posts, nil
}

// populate attaches the author's display fields to doc
func (s *MongoStore) populate(ctx context.Context, doc *postDoc) error {
	var author userDoc
	err := s.users.FindOne(ctx, bson.M{"_id": doc.User},
		options.FindOne().SetProjection(bson.M{"fullName": 1, "avatarUrl": 1})).Decode(&author)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}
	doc.Author = &author
	return nil
}

func (s *MongoStore) FindPost(ctx context.Context, id string) (*models.Post, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc postDoc
	err = s.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, &doc); err != nil {
		return nil, err
	}
	post := doc.toModel()
	return &post, nil
}

func (s *MongoStore) ViewPost(ctx context.Context, id string) (*models.Post, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc postDoc
	err = s.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$inc": bson.M{"viewsCount": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, &doc); err != nil {
		return nil, err
	}
	post := doc.toModel()
	return &post, nil
}

func (s *MongoStore) UpdatePost(ctx context.Context, p *models.Post) error {
	oid, err := objectID(p.ID)
	if err != nil {
		return err
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}

	ts := bsonNow()
	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"title":     p.Title,
		"text":      p.Text,
		"tags":      p.Tags,
		"imageUrl":  p.ImageURL,
		"updatedAt": ts,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	p.UpdatedAt = ts
	return nil
}

func (s *MongoStore) DeletePost(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) RecentTags(ctx context.Context, limit int) ([][]string, error) {
	opts := options.Find().
		SetSort(newestFirst).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"tags": 1})

	cur, err := s.posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []struct {
		Tags []string `bson:"tags"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	tags := make([][]string, 0, len(docs))
	for _, d := range docs {
		tags = append(tags, d.Tags)
	}
	return tags, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
