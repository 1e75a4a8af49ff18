// Package vectorutils builds vector.Driver backends from provider names.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/ragchat/pkg/vector"
	"github.com/papercomputeco/ragchat/pkg/vector/pgvector"
	"github.com/papercomputeco/ragchat/pkg/vector/qdrant"
	"github.com/papercomputeco/ragchat/pkg/vector/qdrantgrpc"
	"github.com/papercomputeco/ragchat/pkg/vector/sqlitevec"
)

type NewVectorDriverOpts struct {
	ProviderType string
	TargetURL    string
	Collection   string
	Dimensions   uint
	Timeout      time.Duration

	// EnsureCollection creates the Qdrant collection when missing.
	EnsureCollection bool

	Logger *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "qdrant":
		d, err := qdrant.NewDriver(qdrant.Config{
			URL:            o.TargetURL,
			CollectionName: o.Collection,
			Timeout:        o.Timeout,
		}, o.Logger)
		if err != nil {
			return nil, err
		}
		if o.EnsureCollection {
			if err := d.EnsureCollection(ctx, o.Dimensions); err != nil {
				return nil, fmt.Errorf("ensuring qdrant collection: %w", err)
			}
		}
		return d, nil
	case "qdrant-grpc":
		d, err := qdrantgrpc.NewDriver(qdrantgrpc.Config{
			Addr:           o.TargetURL,
			CollectionName: o.Collection,
		}, o.Logger)
		if err != nil {
			return nil, err
		}
		if o.EnsureCollection {
			if err := d.EnsureCollection(ctx, o.Dimensions); err != nil {
				d.Close()
				return nil, fmt.Errorf("ensuring qdrant collection: %w", err)
			}
		}
		return d, nil
	case "pgvector":
		return pgvector.NewDriver(ctx, pgvector.Config{
			ConnString: o.TargetURL,
			TableName:  o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "sqlite":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.TargetURL,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
