package viewer

import (
	"context"
	"errors"

	"upravdom/internal/models"
)

var (
	ErrUnauthenticated = errors.New("no recognized principal")
	ErrNoSubscription  = errors.New("principal has no client subscription")
)

type SessionSource interface {
	GetByToken(ctx context.Context, token string) (*models.Session, error)
}

type AdminSource interface {
	GetByUUID(ctx context.Context, id string) (*models.Admin, error)
}

type ClientSource interface {
	GetByUUID(ctx context.Context, id string) (*models.Client, error)
	GetByID(ctx context.Context, id uint) (*models.Client, error)
	GetMemberByUUID(ctx context.Context, id string) (*models.ClientMember, error)
}

type TenantSource interface {
	GetByUUID(ctx context.Context, id string) (*models.Tenant, error)
}

// Resolver превращает bearer-токен сессии в Principal.
type Resolver struct {
	Sessions SessionSource
	Admins   AdminSource
	Clients  ClientSource
	Tenants  TenantSource
}

func NewResolver(sessions SessionSource, admins AdminSource, clients ClientSource, tenants TenantSource) *Resolver {
	return &Resolver{Sessions: sessions, Admins: admins, Clients: clients, Tenants: tenants}
}

func (r *Resolver) Resolve(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrUnauthenticated
	}
	sess, err := r.Sessions.GetByToken(ctx, token)
	if err != nil {
		return Principal{}, ErrUnauthenticated
	}

	switch Kind(sess.Kind) {
	case KindAdmin:
		a, err := r.Admins.GetByUUID(ctx, sess.SubjectUUID)
		if err != nil {
			return Principal{}, ErrUnauthenticated
		}
		return AdminPrincipal(a), nil
	case KindClient:
		c, err := r.Clients.GetByUUID(ctx, sess.SubjectUUID)
		if err != nil {
			return Principal{}, ErrUnauthenticated
		}
		return ClientPrincipal(c), nil
	case KindClientMember:
		m, err := r.Clients.GetMemberByUUID(ctx, sess.SubjectUUID)
		if err != nil {
			return Principal{}, ErrUnauthenticated
		}
		return MemberPrincipal(m), nil
	case KindTenant:
		t, err := r.Tenants.GetByUUID(ctx, sess.SubjectUUID)
		if err != nil {
			return Principal{}, ErrUnauthenticated
		}
		return TenantPrincipal(t), nil
	}
	return Principal{}, ErrUnauthenticated
}

// ClientRowUUID — строка clients, за статусом которой следит realtime-
// наблюдатель данного принципала. У админа подписки нет.
func (r *Resolver) ClientRowUUID(ctx context.Context, p Principal) (string, error) {
	switch p.Kind() {
	case KindClient:
		c, _ := p.Client()
		return c.UUID, nil
	case KindClientMember:
		m, _ := p.Member()
		c, err := r.Clients.GetByID(ctx, m.ClientID)
		if err != nil {
			return "", err
		}
		return c.UUID, nil
	case KindTenant:
		t, _ := p.Tenant()
		if t.ClientID == 0 {
			return "", ErrNoSubscription
		}
		c, err := r.Clients.GetByID(ctx, t.ClientID)
		if err != nil {
			return "", err
		}
		return c.UUID, nil
	}
	return "", ErrNoSubscription
}
