package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"alfredoptarigan/resumatch/internal/config"
	"alfredoptarigan/resumatch/internal/logger"
)

const (
	defaultSkillVectorSize = 768
	defaultReferenceLimit  = 5
	skillPayloadSource     = "source"
	skillPayloadText       = "text"
	defaultQdrantGRPCPort  = 6334
)

type SearchResult struct {
	ID     string
	Score  float32
	Text   string
	Source string
}

// SkillIndex stores embedded chunks of skill taxonomies and synonym lists.
type SkillIndex interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, source, text string, embedding []float32) error
	Search(ctx context.Context, embedding []float32, limit int) ([]SearchResult, error)
	DeleteSource(ctx context.Context, source string) error
}

// pointStore is the subset of *qdrant.Client used by the index.
type pointStore interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
}

type qdrantSkillIndex struct {
	points     pointStore
	collection string
	vectorSize uint64
	logger     *zap.Logger
}

// NewSkillIndex connects to Qdrant over gRPC. The port defaults to 6334 when the URL omits it.
func NewSkillIndex(cfg config.QdrantConfig, log *zap.Logger) (SkillIndex, error) {
	parsed, err := url.Parse(cfg.URL)
	if err != nil || parsed.Hostname() == "" {
		return nil, fmt.Errorf("invalid qdrant url %q", cfg.URL)
	}

	port := defaultQdrantGRPCPort
	if p := parsed.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("invalid qdrant port %q: %w", p, err)
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   parsed.Hostname(),
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: parsed.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return newQdrantSkillIndex(client, cfg.Collection, cfg.VectorSize, log), nil
}

func newQdrantSkillIndex(points pointStore, collection string, vectorSize int, log *zap.Logger) *qdrantSkillIndex {
	if vectorSize <= 0 {
		vectorSize = defaultSkillVectorSize
	}
	return &qdrantSkillIndex{
		points:     points,
		collection: collection,
		vectorSize: uint64(vectorSize),
		logger:     logger.OrNop(log),
	}
}

func (q *qdrantSkillIndex) EnsureCollection(ctx context.Context) error {
	exists, err := q.points.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		q.logger.Debug("skill collection exists", zap.String("collection", q.collection))
		return nil
	}

	err = q.points.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.logger.Info("skill collection created", zap.String("collection", q.collection))
	return nil
}

func (q *qdrantSkillIndex) Upsert(ctx context.Context, source, text string, embedding []float32) error {
	if len(embedding) == 0 {
		return errors.New("empty embedding")
	}
	if err := q.checkDimension(embedding); err != nil {
		return err
	}

	_, err := q.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(uuid.NewString()),
			Vectors: qdrant.NewVectors(embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				skillPayloadSource: source,
				skillPayloadText:   text,
			}),
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert skill chunk: %w", err)
	}
	return nil
}

func (q *qdrantSkillIndex) Search(ctx context.Context, embedding []float32, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultReferenceLimit
	}
	if err := q.checkDimension(embedding); err != nil {
		return nil, err
	}

	points, err := q.points.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search skill index: %w", err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		results = append(results, SearchResult{
			ID:     point.GetId().GetUuid(),
			Score:  point.GetScore(),
			Text:   payloadString(point.GetPayload(), skillPayloadText),
			Source: payloadString(point.GetPayload(), skillPayloadSource),
		})
	}
	return results, nil
}

// DeleteSource removes every chunk ingested from source, so re-ingesting a file replaces it.
func (q *qdrantSkillIndex) DeleteSource(ctx context.Context, source string) error {
	_, err := q.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{qdrant.NewMatch(skillPayloadSource, source)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete skill chunks for %s: %w", source, err)
	}
	return nil
}

func (q *qdrantSkillIndex) checkDimension(embedding []float32) error {
	if uint64(len(embedding)) != q.vectorSize {
		return fmt.Errorf("embedding has %d dimensions, collection %s expects %d (check QDRANT_VECTOR_SIZE)",
			len(embedding), q.collection, q.vectorSize)
	}
	return nil
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

// SkillReference turns a job description into prompt context drawn from the skill index.
type SkillReference interface {
	Lookup(ctx context.Context, jobDescription string) (string, error)
}

type skillReference struct {
	index    SkillIndex
	embedder GeminiService
	limit    int
}

func NewSkillReference(index SkillIndex, embedder GeminiService, limit int) SkillReference {
	if limit <= 0 {
		limit = defaultReferenceLimit
	}
	return &skillReference{index: index, embedder: embedder, limit: limit}
}

func (s *skillReference) Lookup(ctx context.Context, jobDescription string) (string, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return "", nil
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, jobDescription)
	if err != nil {
		return "", err
	}

	results, err := s.index.Search(ctx, embedding, s.limit)
	if err != nil {
		return "", err
	}

	return FormatSkillReference(results), nil
}
