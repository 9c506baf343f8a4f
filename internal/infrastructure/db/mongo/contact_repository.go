package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bdms/donor-directory/internal/core/domain"
)

const contactCollection = "contact_messages"

// ContactRepository implements ports.ContactRepository on MongoDB.
type ContactRepository struct {
	coll *mongo.Collection
}

func NewContactRepository(db *mongo.Database) *ContactRepository {
	return &ContactRepository{coll: db.Collection(contactCollection)}
}

type mongoContact struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Message   string             `bson:"message"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (r *ContactRepository) Insert(ctx context.Context, m *domain.ContactMessage) (*domain.ContactMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoContact{
		Name:      m.Name,
		Email:     m.Email,
		Message:   m.Message,
		CreatedAt: time.Now().UTC(),
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, storageError("insert message", err)
	}

	doc.ID = res.InsertedID.(primitive.ObjectID)
	return contactFromDoc(&doc), nil
}

func (r *ContactRepository) List(ctx context.Context) ([]*domain.ContactMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	sort := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, sort)
	if err != nil {
		return nil, storageError("find messages", err)
	}
	defer cursor.Close(ctx)

	var messages []*domain.ContactMessage
	for cursor.Next(ctx) {
		var doc mongoContact
		if err := cursor.Decode(&doc); err != nil {
			return nil, storageError("decode message", err)
		}
		messages = append(messages, contactFromDoc(&doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, storageError("iterate messages", err)
	}
	return messages, nil
}

func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrMessageNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return storageError("delete message", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func contactFromDoc(doc *mongoContact) *domain.ContactMessage {
	return &domain.ContactMessage{
		ID:        doc.ID.Hex(),
		Name:      doc.Name,
		Email:     doc.Email,
		Message:   doc.Message,
		CreatedAt: doc.CreatedAt,
	}
}
