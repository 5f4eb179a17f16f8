package sourcetest

import (
	"context"

	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/source"
)

func (s *Static) Read(ctx context.Context, day db.Date) (*source.Snapshot, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Snap, nil
}

func (s *Static) Close() error { return nil }
