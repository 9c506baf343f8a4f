package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bdms/donor-directory/internal/core/domain"
	"github.com/bdms/donor-directory/internal/core/ports"
)

const donorCollection = "donors"

// DonorRepository implements ports.DonorRepository on MongoDB. Uniqueness
// of handle and email is enforced by unique indexes, so the check and the
// insert are a single atomic step.
type DonorRepository struct {
	coll *mongo.Collection
}

func NewDonorRepository(db *mongo.Database) *DonorRepository {
	return &DonorRepository{coll: db.Collection(donorCollection)}
}

type mongoCoordinates struct {
	Lat float64 `bson:"lat"`
	Lng float64 `bson:"lng"`
}

type mongoDonor struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	FullName         string             `bson:"full_name"`
	Handle           string             `bson:"handle"`
	Email            string             `bson:"email"`
	CredentialHash   string             `bson:"credential_hash"`
	BloodGroup       string             `bson:"blood_group"`
	Phone            string             `bson:"phone"`
	City             string             `bson:"city"`
	District         string             `bson:"district"`
	LastDonationDate *time.Time         `bson:"last_donation_date,omitempty"`
	Location         *mongoCoordinates  `bson:"location,omitempty"`
	CreatedAt        time.Time          `bson:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at"`
}

// EnsureIndexes creates the unique indexes backing the uniqueness
// invariants, plus the search keys. Must run before the first write.
func (r *DonorRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "handle", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("handle"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email"),
		},
		{Keys: bson.D{{Key: "blood_group", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *DonorRepository) Create(ctx context.Context, d *domain.Donor) (*domain.Donor, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	doc := toDoc(d)
	doc.CreatedAt = now
	doc.UpdatedAt = now

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicateField(err)
		}
		return nil, storageError("insert donor", err)
	}

	doc.ID = res.InsertedID.(primitive.ObjectID)
	return fromDoc(doc), nil
}

func (r *DonorRepository) FindByID(ctx context.Context, id string) (*domain.Donor, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrDonorNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *DonorRepository) FindByHandle(ctx context.Context, handle string) (*domain.Donor, error) {
	return r.findOne(ctx, bson.M{"handle": handle})
}

func (r *DonorRepository) findOne(ctx context.Context, filter bson.M) (*domain.Donor, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoDonor
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrDonorNotFound
		}
		return nil, storageError("find donor", err)
	}
	return fromDoc(&doc), nil
}

func (r *DonorRepository) Search(ctx context.Context, filter ports.DonorFilter) ([]*domain.Donor, error) {
	query := bson.M{}
	if filter.BloodGroup != "" {
		query["blood_group"] = filter.BloodGroup
	}
	if filter.City != "" {
		query["city"] = substringRegex(filter.City)
	}
	if filter.District != "" {
		query["district"] = substringRegex(filter.District)
	}
	return r.findAll(ctx, query, nil)
}

func (r *DonorRepository) List(ctx context.Context) ([]*domain.Donor, error) {
	sort := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.findAll(ctx, bson.M{}, sort)
}

func (r *DonorRepository) findAll(ctx context.Context, query bson.M, opts *options.FindOptions) ([]*domain.Donor, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = r.coll.Find(ctx, query, opts)
	} else {
		cursor, err = r.coll.Find(ctx, query)
	}
	if err != nil {
		return nil, storageError("find donors", err)
	}
	defer cursor.Close(ctx)

	var donors []*domain.Donor
	for cursor.Next(ctx) {
		var doc mongoDonor
		if err := cursor.Decode(&doc); err != nil {
			return nil, storageError("decode donor", err)
		}
		donors = append(donors, fromDoc(&doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, storageError("iterate donors", err)
	}
	return donors, nil
}

// Update applies a partial $set. An email change that collides with
// another record trips the unique index inside the same write, so the
// prior state survives untouched.
func (r *DonorRepository) Update(ctx context.Context, id string, upd ports.DonorUpdate) (*domain.Donor, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrDonorNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC()}
	setIf(set, "full_name", upd.FullName)
	setIf(set, "email", upd.Email)
	setIf(set, "blood_group", upd.BloodGroup)
	setIf(set, "phone", upd.Phone)
	setIf(set, "city", upd.City)
	setIf(set, "district", upd.District)
	if upd.LastDonationDate != nil {
		set["last_donation_date"] = *upd.LastDonationDate
	}
	if upd.Location != nil {
		set["location"] = mongoCoordinates{Lat: upd.Location.Lat, Lng: upd.Location.Lng}
	}

	after := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc mongoDonor
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, after).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrDonorNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, storageError("update donor", err)
	}
	return fromDoc(&doc), nil
}

func (r *DonorRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrDonorNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return storageError("delete donor", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrDonorNotFound
	}
	return nil
}

func toDoc(d *domain.Donor) *mongoDonor {
	doc := &mongoDonor{
		FullName:         d.FullName,
		Handle:           d.Handle,
		Email:            d.Email,
		CredentialHash:   d.CredentialHash,
		BloodGroup:       string(d.BloodGroup),
		Phone:            d.Phone,
		City:             d.City,
		District:         d.District,
		LastDonationDate: d.LastDonationDate,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
	if d.Location != nil {
		doc.Location = &mongoCoordinates{Lat: d.Location.Lat, Lng: d.Location.Lng}
	}
	return doc
}

func fromDoc(doc *mongoDonor) *domain.Donor {
	d := &domain.Donor{
		ID:               doc.ID.Hex(),
		FullName:         doc.FullName,
		Handle:           doc.Handle,
		Email:            doc.Email,
		CredentialHash:   doc.CredentialHash,
		BloodGroup:       domain.BloodGroup(doc.BloodGroup),
		Phone:            doc.Phone,
		City:             doc.City,
		District:         doc.District,
		LastDonationDate: doc.LastDonationDate,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
	if doc.Location != nil {
		d.Location = &domain.Coordinates{Lat: doc.Location.Lat, Lng: doc.Location.Lng}
	}
	return d
}

func setIf(set bson.M, key string, value *string) {
	if value != nil {
		set[key] = *value
	}
}

// substringRegex builds a case-insensitive substring match, quoting any
// regex metacharacters in the user input.
func substringRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// duplicateField maps a duplicate-key error to the sentinel naming the
// conflicting unique index.
func duplicateField(err error) error {
	if strings.Contains(err.Error(), "email") {
		return domain.ErrDuplicateEmail
	}
	return domain.ErrDuplicateHandle
}

// storageError wraps driver faults so callers see a retryable
// storage-unavailable condition instead of raw driver errors.
func storageError(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrStorageUnavailable)
}
