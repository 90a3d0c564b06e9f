package billing

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"upravdom/internal/logs"
)

// Customer — вход batch-сверки: id у провайдера + сколько мест биллим.
type Customer struct {
	CustomerID string `json:"customer_id"`
	Seats      int    `json:"seats"`
}

// SeatSyncResult — по одному на каждого входного customer'а,
// в исходном порядке.
type SeatSyncResult struct {
	CustomerID string `json:"customer_id"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// SyncSeats сверяет места по всем клиентам. Ошибка одного клиента не
// прерывает остальных и не покидает batch; результат пишется строго
// в свой слот по индексу, поэтому порядок выхода детерминирован при
// любом параллелизме.
func SyncSeats(ctx context.Context, p Provider, customers []Customer, workers int) []SeatSyncResult {
	if workers <= 0 {
		workers = 1
	}
	results := make([]SeatSyncResult, len(customers))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range customers {
		i, c := i, c
		g.Go(func() error {
			results[i] = syncOne(ctx, p, c)
			return nil // никогда не валим группу
		})
	}
	_ = g.Wait()
	return results
}

func syncOne(ctx context.Context, p Provider, c Customer) SeatSyncResult {
	res := SeatSyncResult{CustomerID: c.CustomerID}
	if strings.TrimSpace(c.CustomerID) == "" {
		res.Error = ErrInvalidCustomerID.Error()
		return res
	}
	if err := p.UpdateSeats(ctx, c.CustomerID, c.Seats); err != nil {
		logs.Logger.Warnf("seat sync customer=%s seats=%d: %v", c.CustomerID, c.Seats, err)
		res.Error = err.Error()
		return res
	}
	res.Success = true
	return res
}
