package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"helpdesk-kb-platform/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const metaCollection = "vector_indexes"

// MongoBackend stores each index as its own collection plus a row in the
// vector_indexes metadata collection that pins the declared dimension.
// Search uses Atlas $vectorSearch when enabled, otherwise an in-process
// cosine ranking over the index's records.
type MongoBackend struct {
	db              *mongo.Database
	atlasSearch     bool
	searchIndexName string
}

// NewMongoBackend wraps an already-connected database handle. The handle is
// injected with explicit lifecycle: opened at process start, closed at
// shutdown by the caller.
func NewMongoBackend(db *mongo.Database, atlasSearch bool, searchIndexName string) *MongoBackend {
	if searchIndexName == "" {
		searchIndexName = "vector_index"
	}
	return &MongoBackend{db: db, atlasSearch: atlasSearch, searchIndexName: searchIndexName}
}

func dataCollection(name string) string {
	return "vec_" + name
}

func (mb *MongoBackend) ListIndexes(ctx context.Context) ([]string, error) {
	cursor, err := mb.db.Collection(metaCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}
	defer cursor.Close(ctx)

	var infos []IndexInfo
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("failed to decode index metadata: %w", err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (mb *MongoBackend) Describe(ctx context.Context, name string) (*IndexInfo, error) {
	var info IndexInfo
	err := mb.db.Collection(metaCollection).FindOne(ctx, bson.M{"_id": name}).Decode(&info)
	if err == mongo.ErrNoDocuments {
		return nil, models.NewPipelineError(models.ErrKindIndexNotFound, "index %q does not exist", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to describe index %q: %w", name, err)
	}
	return &info, nil
}

func (mb *MongoBackend) CreateIndex(ctx context.Context, name string, dimension int) error {
	_, err := mb.db.Collection(metaCollection).InsertOne(ctx, bson.M{
		"_id":        name,
		"dimension":  dimension,
		"created_at": time.Now(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return models.NewPipelineError(models.ErrKindIndexAlreadyExists, "index %q already exists", name)
	}
	if err != nil {
		return fmt.Errorf("failed to create index %q: %w", name, err)
	}

	// chunk_id uniqueness makes upserts idempotent per chunk.
	col := mb.db.Collection(dataCollection(name))
	_, err = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "chunk_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create chunk index for %q: %w", name, err)
	}
	return nil
}

func (mb *MongoBackend) DeleteIndex(ctx context.Context, name string) error {
	res, err := mb.db.Collection(metaCollection).DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return fmt.Errorf("failed to delete index %q: %w", name, err)
	}
	if res.DeletedCount == 0 {
		return models.NewPipelineError(models.ErrKindIndexNotFound, "index %q does not exist", name)
	}
	if err := mb.db.Collection(dataCollection(name)).Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop records of %q: %w", name, err)
	}
	return nil
}

func (mb *MongoBackend) Upsert(ctx context.Context, name string, records []models.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	if _, err := mb.Describe(ctx, name); err != nil {
		return err
	}

	batch := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		doc := bson.M{
			"chunk_id": rec.ChunkID,
			"order":    rec.Order,
			"text":     rec.Text,
			"source":   rec.Source,
			"category": rec.Category,
			"vector":   rec.Vector,
		}
		batch = append(batch, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"chunk_id": rec.ChunkID}).
			SetUpdate(bson.M{"$set": doc}).
			SetUpsert(true))
	}

	col := mb.db.Collection(dataCollection(name))
	if _, err := col.BulkWrite(ctx, batch, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to upsert %d records into %q: %w", len(records), name, err)
	}
	return nil
}

func (mb *MongoBackend) Query(ctx context.Context, name string, vector []float32, topK int, filter *Filter) ([]models.SearchMatch, error) {
	if _, err := mb.Describe(ctx, name); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 10
	}
	if mb.atlasSearch {
		return mb.queryAtlas(ctx, name, vector, topK, filter)
	}
	return mb.queryBruteForce(ctx, name, vector, topK, filter)
}

func (mb *MongoBackend) queryAtlas(ctx context.Context, name string, vector []float32, topK int, filter *Filter) ([]models.SearchMatch, error) {
	search := bson.M{
		"index":         mb.searchIndexName,
		"path":          "vector",
		"queryVector":   vector,
		"numCandidates": topK * 10,
		"limit":         topK,
	}
	if doc := filterDoc(filter); len(doc) > 0 {
		search["filter"] = doc
	}

	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: search}},
		{{Key: "$project", Value: bson.M{
			"chunk_id": 1,
			"order":    1,
			"text":     1,
			"source":   1,
			"category": 1,
			"score":    bson.M{"$meta": "vectorSearchScore"},
		}}},
	}

	cursor, err := mb.db.Collection(dataCollection(name)).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("vector search on %q failed: %w", name, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		models.EmbeddingRecord `bson:",inline"`
		Score                  float64 `bson:"score"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode search results for %q: %w", name, err)
	}

	matches := make([]models.SearchMatch, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, models.SearchMatch{Record: row.EmbeddingRecord, Score: row.Score})
	}
	return matches, nil
}

func (mb *MongoBackend) queryBruteForce(ctx context.Context, name string, vector []float32, topK int, filter *Filter) ([]models.SearchMatch, error) {
	findFilter := filterDoc(filter)
	cursor, err := mb.db.Collection(dataCollection(name)).Find(ctx, findFilter,
		options.Find().SetSort(bson.D{{Key: "order", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to load records of %q: %w", name, err)
	}
	defer cursor.Close(ctx)

	var records []models.EmbeddingRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode records of %q: %w", name, err)
	}

	matches := make([]models.SearchMatch, 0, len(records))
	for _, rec := range records {
		matches = append(matches, models.SearchMatch{Record: rec, Score: CosineSimilarity(vector, rec.Vector)})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func filterDoc(filter *Filter) bson.M {
	doc := bson.M{}
	if filter.IsZero() {
		return doc
	}
	if filter.Source != "" {
		doc["source"] = filter.Source
	}
	if filter.Category != "" {
		doc["category"] = filter.Category
	}
	return doc
}
