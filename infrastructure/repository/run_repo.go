package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ulogscraper-go/domain/run"
)

// runDocument is the MongoDB document structure for run records.
type runDocument struct {
	ID          string            `bson:"_id"`
	Mode        string            `bson:"mode"`
	StartedAt   time.Time         `bson:"started_at"`
	FinishedAt  time.Time         `bson:"finished_at,omitempty"`
	LoggedIn    bool              `bson:"logged_in"`
	Vehicles    []vehicleDocument `bson:"vehicles,omitempty"`
	Files       []fileDocument    `bson:"files,omitempty"`
	Screenshots []string          `bson:"screenshots,omitempty"`
	Error       string            `bson:"error,omitempty"`
}

type vehicleDocument struct {
	Name      string `bson:"name"`
	StartDate string `bson:"start_date"`
	EndDate   string `bson:"end_date"`
	Completed bool   `bson:"completed"`
	StoppedAt string `bson:"stopped_at,omitempty"`
	Error     string `bson:"error,omitempty"`
}

type fileDocument struct {
	Filename  string `bson:"filename"`
	Path      string `bson:"path"`
	URL       string `bson:"url"`
	SizeBytes int64  `bson:"size_bytes"`
}

// MongoRunRepository implements run.Repository using MongoDB.
type MongoRunRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoRunRepository creates a new MongoDB-based run repository.
func NewMongoRunRepository(db *MongoDB, logger *slog.Logger) *MongoRunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoRunRepository{
		collection: db.Collection(RunsCollection),
		logger:     logger,
	}
}

// Save inserts or replaces a record by ID.
func (r *MongoRunRepository) Save(ctx context.Context, record *run.Record) error {
	doc := recordToDocument(record)

	filter := bson.M{"_id": doc.ID}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	r.logger.Info("Run saved", "id", record.ID, "mode", record.Mode, "vehicles", len(record.Vehicles), "files", len(record.Files))
	return nil
}

// FindByID retrieves a record by ID.
func (r *MongoRunRepository) FindByID(ctx context.Context, id string) (*run.Record, error) {
	var doc runDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, run.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to find run: %w", err)
	}
	return documentToRecord(&doc), nil
}

// FindRecent returns up to limit records, newest first.
func (r *MongoRunRepository) FindRecent(ctx context.Context, limit int) ([]*run.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find runs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []runDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode runs: %w", err)
	}

	records := make([]*run.Record, len(docs))
	for i := range docs {
		records[i] = documentToRecord(&docs[i])
	}
	return records, nil
}

// recordToDocument converts a domain Record to a MongoDB document.
func recordToDocument(rec *run.Record) *runDocument {
	doc := &runDocument{
		ID:          rec.ID,
		Mode:        string(rec.Mode),
		StartedAt:   rec.StartedAt,
		FinishedAt:  rec.FinishedAt,
		LoggedIn:    rec.LoggedIn,
		Screenshots: rec.Screenshots,
		Error:       rec.Error,
	}

	if len(rec.Vehicles) > 0 {
		doc.Vehicles = make([]vehicleDocument, len(rec.Vehicles))
		for i, v := range rec.Vehicles {
			doc.Vehicles[i] = vehicleDocument(v)
		}
	}
	if len(rec.Files) > 0 {
		doc.Files = make([]fileDocument, len(rec.Files))
		for i, f := range rec.Files {
			doc.Files[i] = fileDocument(f)
		}
	}

	return doc
}

// documentToRecord converts a MongoDB document to a domain Record.
func documentToRecord(doc *runDocument) *run.Record {
	rec := &run.Record{
		ID:          doc.ID,
		Mode:        run.Mode(doc.Mode),
		StartedAt:   doc.StartedAt,
		FinishedAt:  doc.FinishedAt,
		LoggedIn:    doc.LoggedIn,
		Screenshots: doc.Screenshots,
		Error:       doc.Error,
	}

	if len(doc.Vehicles) > 0 {
		rec.Vehicles = make([]run.VehicleOutcome, len(doc.Vehicles))
		for i, v := range doc.Vehicles {
			rec.Vehicles[i] = run.VehicleOutcome(v)
		}
	}
	if len(doc.Files) > 0 {
		rec.Files = make([]run.SavedFile, len(doc.Files))
		for i, f := range doc.Files {
			rec.Files[i] = run.SavedFile(f)
		}
	}

	return rec
}

var _ run.Repository = (*MongoRunRepository)(nil)
