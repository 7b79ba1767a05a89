package store

import (
	"context"
	"errors"

	"github.com/spektr-org/choropleth/engine"
	"github.com/spektr-org/choropleth/schema"
)

// ErrNotFound is returned when no dataset or metadata has been loaded.
var ErrNotFound = errors.New("not found")

// Store persists indicator datasets, one per data type, and the plotting
// metadata that describes them.
type Store interface {
	// PutDataset replaces the rows of a data type. Row order is kept.
	PutDataset(ctx context.Context, dt engine.DataType, rows []engine.Row) error
	Dataset(ctx context.Context, dt engine.DataType) (engine.RowView, error)
	// DataTypes lists the loaded data types in display order.
	DataTypes(ctx context.Context) ([]engine.DataType, error)

	PutMetadata(ctx context.Context, m *schema.Metadata) error
	Metadata(ctx context.Context) (*schema.Metadata, error)
}
