// Package qdrantgrpc provides a vector.Driver over Qdrant's gRPC API.
package qdrantgrpc

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/papercomputeco/ragchat/pkg/coreerr"
	"github.com/papercomputeco/ragchat/pkg/vector"
)

const (
	// DefaultAddr is Qdrant's default gRPC listen address.
	DefaultAddr = "localhost:6334"

	// DefaultCollectionName is the collection used when none is configured.
	DefaultCollectionName = "chunks"

	payloadText       = "text"
	payloadDocumentID = "documentId"
	payloadURL        = "url"
)

// Config holds configuration for the gRPC Qdrant driver.
type Config struct {
	// Addr is the host:port of Qdrant's gRPC listener. Defaults to DefaultAddr.
	Addr string

	// CollectionName defaults to DefaultCollectionName.
	CollectionName string
}

// Driver implements vector.Driver using Qdrant's gRPC points service.
type Driver struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	logger      *slog.Logger
}

// NewDriver creates the gRPC client. Connections are established lazily on
// the first call.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	addr := c.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	collection := c.CollectionName
	if collection == "" {
		collection = DefaultCollectionName
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}

	return &Driver{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		logger:      logger.With("component", "qdrant_grpc"),
	}, nil
}

// EnsureCollection creates the collection with cosine distance if it does
// not exist yet.
func (d *Driver) EnsureCollection(ctx context.Context, dimensions uint) error {
	_, err := d.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: d.collection})
	if err == nil {
		return nil
	}
	if status.Code(err) != codes.NotFound {
		return d.classify("get collection", err)
	}

	_, err = d.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{Size: uint64(dimensions), Distance: pb.Distance_Cosine},
		}},
	})
	if err != nil {
		return d.classify("create collection", err)
	}

	d.logger.Info("created qdrant collection", "collection", d.collection, "dimensions", dimensions)
	return nil
}

// Search finds the topK chunks most similar to query.
func (d *Driver) Search(ctx context.Context, query vector.Vector, topK int) ([]vector.Chunk, error) {
	if err := vector.ValidateTopK(topK); err != nil {
		return nil, err
	}

	resp, err := d.points.Search(ctx, &pb.SearchPoints{
		CollectionName: d.collection,
		Vector:         query,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, d.classify("search", err)
	}

	chunks := make([]vector.Chunk, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		chunks = append(chunks, toChunk(pt, query))
	}

	d.logger.Debug("searched qdrant", "top_k", topK, "results", len(chunks))
	return chunks, nil
}

// Save upserts chunks in one call and waits for Qdrant to persist them. An
// empty slice still issues the call.
func (d *Driver) Save(ctx context.Context, chunks []vector.Chunk) error {
	points := make([]*pb.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = toPoint(c)
	}

	wait := true
	_, err := d.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: d.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return d.classify("upsert", err)
	}

	d.logger.Debug("saved chunks to qdrant", "count", len(chunks))
	return nil
}

// Close closes the underlying gRPC connection.
func (d *Driver) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

// classify maps a gRPC failure onto the store taxonomy. codes.Internal plays
// the role of an HTTP 500.
func (d *Driver) classify(op string, err error) *coreerr.Error {
	var classified *coreerr.Error
	switch status.Code(err) {
	case codes.Internal:
		classified = coreerr.Wrap(vector.StoreErrors.Classify(500, ""), err)
	case codes.DeadlineExceeded:
		classified = coreerr.Wrap(vector.StoreErrors.Timeout, err)
	default:
		classified = vector.StoreErrors.FromTransport(err)
	}

	d.logger.Warn("qdrant call failed",
		"op", op,
		"code", status.Code(err).String(),
		"kind", classified.Kind.String(),
		"error", err,
	)
	return classified
}

func pointID(id string) *pb.PointId {
	if n, err := strconv.ParseUint(id, 10, 64); err == nil {
		return &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: n}}
	}
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}}
}

func idString(id *pb.PointId) string {
	if id == nil {
		return ""
	}
	if u, ok := id.GetPointIdOptions().(*pb.PointId_Num); ok {
		return strconv.FormatUint(u.Num, 10)
	}
	return id.GetUuid()
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func toPoint(c vector.Chunk) *pb.PointStruct {
	url := &pb.Value{Kind: &pb.Value_NullValue{NullValue: pb.NullValue_NULL_VALUE}}
	if c.URL != "" {
		url = stringValue(c.URL)
	}

	return &pb.PointStruct{
		Id:      pointID(c.ID),
		Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: c.Vector}}},
		Payload: map[string]*pb.Value{
			payloadText:       stringValue(c.Text),
			payloadDocumentID: stringValue(c.DocumentID),
			payloadURL:        url,
		},
	}
}

// toChunk maps a scored point back to a chunk carrying the query vector.
func toChunk(pt *pb.ScoredPoint, query vector.Vector) vector.Chunk {
	payload := pt.GetPayload()
	return vector.Chunk{
		ID:         idString(pt.GetId()),
		Text:       payload[payloadText].GetStringValue(),
		DocumentID: payload[payloadDocumentID].GetStringValue(),
		URL:        payload[payloadURL].GetStringValue(),
		Vector:     query,
	}
}

var _ vector.Driver = (*Driver)(nil)
