package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventFetcher retrieves raw event collections for a date range. The core
// depends only on the parsed JSON array, never on transport details.
type EventFetcher interface {
	FetchCME(ctx context.Context, start, end time.Time) ([]json.RawMessage, error)
	FetchGST(ctx context.Context, start, end time.Time) ([]json.RawMessage, error)
}
