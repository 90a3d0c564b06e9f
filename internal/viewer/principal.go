package viewer

import (
	"encoding/json"

	"upravdom/internal/models"
)

type Kind string

const (
	KindAdmin        Kind = "admin"
	KindClient       Kind = "client"
	KindClientMember Kind = "clientMember"
	KindTenant       Kind = "tenant"
)

// Principal — текущий аутентифицированный субъект. Tagged union:
// заполнен ровно один вариант, соответствующий Kind; состояния вроде
// «и tenant, и admin» непредставимы по построению.
type Principal struct {
	kind         Kind
	admin        *models.Admin
	client       *models.Client
	clientMember *models.ClientMember
	tenant       *models.Tenant
}

func AdminPrincipal(a *models.Admin) Principal        { return Principal{kind: KindAdmin, admin: a} }
func ClientPrincipal(c *models.Client) Principal      { return Principal{kind: KindClient, client: c} }
func MemberPrincipal(m *models.ClientMember) Principal {
	return Principal{kind: KindClientMember, clientMember: m}
}
func TenantPrincipal(t *models.Tenant) Principal { return Principal{kind: KindTenant, tenant: t} }

func (p Principal) Kind() Kind                          { return p.kind }
func (p Principal) Admin() (*models.Admin, bool)        { return p.admin, p.kind == KindAdmin }
func (p Principal) Client() (*models.Client, bool)      { return p.client, p.kind == KindClient }
func (p Principal) Member() (*models.ClientMember, bool) {
	return p.clientMember, p.kind == KindClientMember
}
func (p Principal) Tenant() (*models.Tenant, bool) { return p.tenant, p.kind == KindTenant }

// UserData — общая карточка субъекта для фронта.
type UserData struct {
	UUID  string `json:"uuid"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Kind  Kind   `json:"kind"`
}

func (p Principal) UserData() UserData {
	switch p.kind {
	case KindAdmin:
		return UserData{UUID: p.admin.UUID, Name: p.admin.Name, Email: p.admin.Email, Kind: p.kind}
	case KindClient:
		return UserData{UUID: p.client.UUID, Name: p.client.Name, Email: p.client.Email, Kind: p.kind}
	case KindClientMember:
		return UserData{UUID: p.clientMember.UUID, Name: p.clientMember.Name, Email: p.clientMember.Email, Kind: p.kind}
	case KindTenant:
		return UserData{UUID: p.tenant.UUID, Name: p.tenant.Name, Email: p.tenant.Email, Kind: p.kind}
	}
	return UserData{}
}

// MarshalJSON отдаёт исторический составной вид
// {admin, client, tenant, clientMember, userData} — по одному
// ненулевому полю на вариант.
func (p Principal) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"admin":        p.admin,
		"client":       p.client,
		"clientMember": p.clientMember,
		"tenant":       p.tenant,
		"userData":     p.UserData(),
	})
}
