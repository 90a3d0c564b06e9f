package accessreq

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"upravdom/internal/approval"
	"upravdom/internal/email"
	"upravdom/internal/logs"
	"upravdom/internal/models"
	"upravdom/internal/recaptcha"
	"upravdom/internal/repo"
	"upravdom/internal/signedlink"
)

// Store — то, что обработчикам нужно от стора заявок.
type Store interface {
	Create(ctx context.Context, in repo.SubmitInput) (*models.AccessRequest, error)
}

// Decider применяет решение из проверенной ссылки (approval.Service).
type Decider interface {
	Decide(ctx context.Context, c signedlink.Claims) (approval.Outcome, error)
}

// AdminDirectory — кому рассылать новые заявки.
type AdminDirectory interface {
	ListEmails(ctx context.Context) ([]string, error)
}

type Handler struct {
	store      Store
	decider    Decider
	signer     *signedlink.Signer
	nonces     signedlink.NonceStore
	mail       email.Sender
	captcha    recaptcha.Verifier
	admins     AdminDirectory
	formSecret string
	adminEmail string // fallback, если директория пуста
}

type Options struct {
	Store      Store
	Decider    Decider
	Signer     *signedlink.Signer
	Nonces     signedlink.NonceStore
	Mail       email.Sender
	Captcha    recaptcha.Verifier
	Admins     AdminDirectory
	FormSecret string
	AdminEmail string
}

func NewHandler(o Options) *Handler {
	return &Handler{
		store:      o.Store,
		decider:    o.Decider,
		signer:     o.Signer,
		nonces:     o.Nonces,
		mail:       o.Mail,
		captcha:    o.Captcha,
		admins:     o.Admins,
		formSecret: o.FormSecret,
		adminEmail: o.AdminEmail,
	}
}

type submitRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Message        string `json:"message"`
	BuildingID     string `json:"buildingId"`
	BuildingLabel  string `json:"buildingLabel"`
	ApartmentID    string `json:"apartmentId"`
	ApartmentLabel string `json:"apartmentLabel"`
	RecaptchaToken string `json:"recaptchaToken"`
	FormSecret     string `json:"formSecret"`
}

// POST /api/v1/access-requests
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteFail(w, http.StatusBadRequest, "invalid json body")
		return
	}

	var missing []string
	for _, f := range []struct{ name, val string }{
		{"name", req.Name},
		{"email", req.Email},
		{"buildingId", req.BuildingID},
		{"apartmentId", req.ApartmentID},
		{"recaptchaToken", req.RecaptchaToken},
		{"formSecret", req.FormSecret},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		models.WriteFail(w, http.StatusBadRequest, "missing required fields: "+strings.Join(missing, ", "))
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.FormSecret), []byte(h.formSecret)) != 1 {
		models.WriteFail(w, http.StatusBadRequest, "invalid form secret")
		return
	}
	if err := h.captcha.Verify(r.Context(), req.RecaptchaToken, r.RemoteAddr); err != nil {
		models.WriteFail(w, http.StatusBadRequest, "recaptcha verification failed")
		return
	}

	ar, err := h.store.Create(r.Context(), repo.SubmitInput{
		Name:           req.Name,
		Email:          req.Email,
		Message:        req.Message,
		BuildingID:     req.BuildingID,
		BuildingLabel:  req.BuildingLabel,
		ApartmentID:    req.ApartmentID,
		ApartmentLabel: req.ApartmentLabel,
	})
	if err != nil {
		models.WriteFail(w, http.StatusBadRequest, "could not create access request")
		return
	}

	h.notifyAdmins(r.Context(), ar)
	models.WriteOK(w, nil)
}

// Рассылка заявки с подписанными ссылками. Ошибка почты не валит
// запрос: заявка уже создана, её видно и в админке.
func (h *Handler) notifyAdmins(ctx context.Context, ar *models.AccessRequest) {
	approveURL, err := h.signer.Issue(ar.UUID, signedlink.ActionApprove)
	if err != nil {
		logs.Logger.Errorf("access request %s: issue approve link: %v", ar.UUID, err)
		return
	}
	rejectURL, err := h.signer.Issue(ar.UUID, signedlink.ActionReject)
	if err != nil {
		logs.Logger.Errorf("access request %s: issue reject link: %v", ar.UUID, err)
		return
	}

	subject, body, err := email.RenderAccessRequest(email.AccessRequestVars{
		Name:           ar.Name,
		Email:          ar.Email,
		Message:        ar.Message,
		BuildingLabel:  ar.BuildingLabel,
		ApartmentLabel: ar.ApartmentLabel,
		ApproveURL:     approveURL.String(),
		RejectURL:      rejectURL.String(),
	})
	if err != nil {
		logs.Logger.Errorf("access request %s: render mail: %v", ar.UUID, err)
		return
	}

	var emails []string
	if h.admins != nil {
		emails, err = h.admins.ListEmails(ctx)
		if err != nil {
			logs.Logger.Errorf("access request %s: admin list: %v", ar.UUID, err)
		}
	}
	if len(emails) == 0 && h.adminEmail != "" {
		emails = []string{h.adminEmail}
	}
	for _, to := range emails {
		if err := h.mail.Send(to, subject, "", body); err != nil {
			logs.Logger.Errorf("access request %s: notify %s: %v", ar.UUID, to, err)
		}
	}
}

// GET /api/v1/access-requests/approve?payload=..&sig=..&action=..
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	payload, sig := q.Get("payload"), q.Get("sig")
	if payload == "" || sig == "" {
		models.WriteFail(w, http.StatusBadRequest, "missing payload or sig")
		return
	}

	claims, err := h.signer.Verify(payload, sig, time.Now())
	if err != nil {
		// никаких мутаций при невалидной ссылке
		models.WriteFail(w, http.StatusBadRequest, err.Error())
		return
	}

	// action из URL — справочный; источник истины — подписанный payload
	if adv := q.Get("action"); adv != "" && adv != string(claims.Action) {
		logs.Logger.Warnf("access request %s: advisory action %q != signed %q",
			claims.RequestUUID, adv, claims.Action)
	}
	if h.nonces != nil {
		if seen, _ := h.nonces.Seen(claims.Nonce, time.Now()); seen {
			// повтор клика: решение всё равно идемпотентно по статусу
			logs.Logger.Infof("access request %s: nonce reuse", claims.RequestUUID)
		}
	}

	out, err := h.decider.Decide(r.Context(), claims)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			models.WriteFail(w, http.StatusBadRequest, "unknown access request")
			return
		}
		models.WriteFail(w, http.StatusInternalServerError, err.Error())
		return
	}

	models.WriteOK(w, map[string]any{
		"rejected": out.Action == signedlink.ActionReject && out.Applied,
	})
}
