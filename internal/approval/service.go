package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"upravdom/internal/email"
	"upravdom/internal/logs"
	"upravdom/internal/models"
	"upravdom/internal/repo"
	"upravdom/internal/signedlink"
)

// RequestStore — контракт стора заявок, нужный сервису.
type RequestStore interface {
	GetByUUID(ctx context.Context, id string) (*models.AccessRequest, error)
	Resolve(ctx context.Context, id, from, to string) (changed bool, err error)
}

// Provisioner создаёт аккаунт жильца с временным паролем.
type Provisioner interface {
	Provision(ctx context.Context, in repo.ProvisionInput) (*models.Tenant, string, error)
}

type Service struct {
	Requests RequestStore
	Tenants  Provisioner
	Mail     email.Sender
	LoginURL string
	Timeout  time.Duration // на работу со стором и почтой в рамках одного решения
}

func New(requests RequestStore, tenants Provisioner, mail email.Sender, loginURL string) *Service {
	return &Service{
		Requests: requests,
		Tenants:  tenants,
		Mail:     mail,
		LoginURL: loginURL,
		Timeout:  15 * time.Second,
	}
}

// Outcome — результат решения по заявке.
type Outcome struct {
	RequestUUID string
	Action      signedlink.Action
	Applied     bool // false — заявка уже была решена раньше (идемпотентный повтор)
	EmailSent   bool
}

// Decide применяет решение из проверенной подписанной ссылки.
//
// Переход статуса — условный UPDATE: из параллельных кликов approve и
// reject выигрывает ровно один, остальные получают Applied=false и не
// производят side effects (ни аккаунта, ни повторного письма).
// Если создать аккаунт после одобрения не удалось, статус откатывается
// в pending — заявка не застревает в approved без аккаунта.
func (s *Service) Decide(ctx context.Context, c signedlink.Claims) (Outcome, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := Outcome{RequestUUID: c.RequestUUID, Action: c.Action}

	ar, err := s.Requests.GetByUUID(ctx, c.RequestUUID)
	if err != nil {
		return out, err
	}

	to := models.AccessStatusApproved
	if c.Action == signedlink.ActionReject {
		to = models.AccessStatusRejected
	}

	changed, err := s.Requests.Resolve(ctx, ar.UUID, models.AccessStatusPending, to)
	if err != nil {
		return out, fmt.Errorf("resolve %s: %w", ar.UUID, err)
	}
	if !changed {
		// Уже решена (двойной клик или конкурирующая ссылка) — no-op.
		logs.Logger.Infof("access request %s already resolved (status=%s), action=%s ignored",
			ar.UUID, ar.Status, c.Action)
		return out, nil
	}
	out.Applied = true

	if c.Action == signedlink.ActionReject {
		s.notifyRejected(ar, &out)
		return out, nil
	}

	tenant, pass, err := s.Tenants.Provision(ctx, repo.ProvisionInput{
		Name:        ar.Name,
		Email:       ar.Email,
		BuildingID:  ar.BuildingID,
		ApartmentID: ar.ApartmentID,
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			// Аккаунт уже существует — одобрение остаётся в силе.
			logs.Logger.Warnf("access request %s: tenant %s already provisioned", ar.UUID, ar.Email)
			return out, nil
		}
		// Откат: одобрение без аккаунта хуже, чем повторная попытка.
		// Частый сценарий провала provision — истёкший ctx, поэтому
		// откат идёт на отвязанном контексте со своим таймаутом.
		rbCtx, rbCancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer rbCancel()
		if _, rbErr := s.Requests.Resolve(rbCtx, ar.UUID, models.AccessStatusApproved, models.AccessStatusPending); rbErr != nil {
			logs.Logger.Errorf("access request %s: rollback failed: %v", ar.UUID, rbErr)
		}
		out.Applied = false
		return out, fmt.Errorf("provision tenant: %w", err)
	}

	subject, body, err := email.RenderCredentials(email.CredentialsVars{
		Name:         tenant.Name,
		Email:        tenant.Email,
		TempPassword: pass,
		LoginURL:     s.LoginURL,
	})
	if err == nil {
		err = s.Mail.Send(tenant.Email, subject, "", body)
	}
	if err != nil {
		// Аккаунт создан; письмо можно переотправить вручную.
		logs.Logger.Errorf("access request %s: credentials mail: %v", ar.UUID, err)
		return out, nil
	}
	out.EmailSent = true
	return out, nil
}

func (s *Service) notifyRejected(ar *models.AccessRequest, out *Outcome) {
	subject, body, err := email.RenderRejected(email.RejectedVars{Name: ar.Name})
	if err == nil {
		err = s.Mail.Send(ar.Email, subject, "", body)
	}
	if err != nil {
		logs.Logger.Errorf("access request %s: rejection mail: %v", ar.UUID, err)
		return
	}
	out.EmailSent = true
}
