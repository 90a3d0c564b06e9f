package server

import (
	"context"

	"upravdom/internal/billing"
	"upravdom/internal/repo"
)

// Адаптер ClientStore под billing.CustomerSource: клиент → customer
// с актуальным числом мест.
type customerSource struct{ cs *repo.ClientStore }

func newCustomerSource(cs *repo.ClientStore) billing.CustomerSource {
	return &customerSource{cs: cs}
}

func (a *customerSource) ListCustomers(ctx context.Context) ([]billing.Customer, error) {
	clients, err := a.cs.ListBillingCustomers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]billing.Customer, 0, len(clients))
	for _, c := range clients {
		seats, err := a.cs.SeatCount(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, billing.Customer{CustomerID: c.BillingCustomerID, Seats: seats})
	}
	return out, nil
}
