package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrInvalidCustomerID = errors.New("invalid customer id")
	ErrProvider          = errors.New("billing provider error")
)

// Provider — операция провайдера биллинга, которая нам нужна:
// выставить количество оплачиваемых мест у customer'а.
type Provider interface {
	UpdateSeats(ctx context.Context, customerID string, seats int) error
}

// HTTPProvider ходит в REST API провайдера с bearer-токеном.
type HTTPProvider struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewHTTPProvider(baseURL, token string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) UpdateSeats(ctx context.Context, customerID string, seats int) error {
	body, _ := json.Marshal(map[string]any{"seats": seats})
	u := p.BaseURL + "/v1/customers/" + customerID + "/seats"
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.Token)

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrProvider, resp.StatusCode, string(snippet))
	}
	return nil
}
