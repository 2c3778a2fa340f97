package user

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/resource"
)

var (
	// errors
	ErrNotFound             = errors.New("user not found")
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrAwaitingConfirmation = errors.New("account awaiting email confirmation")
	ErrAccountDeactivated   = errors.New("account deactivated")
)

// Service layers the typed auth flows over the generic record engine; the
// users collection stays a plain collection underneath (so the activation
// cascade hook applies to these writes too).
type Service struct {
	engine *resource.Service
	mail   core.EmailService
	conf   *core.Config
}

func NewService(engine *resource.Service, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{engine: engine, mail: mailSvc, conf: conf}
}

// Register creates the account unconfirmed and sends the confirmation email.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	if _, err := svc.GetByEmail(ctx, nu.Email); err == nil {
		return User{}, core.NewValidationError(ErrEmailExists,
			core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return User{}, err
	}

	var usr User
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	rec, err := svc.engine.Create(ctx, resource.Users, resource.Fields{
		"name":            nu.Name,
		"email":           nu.Email,
		"role":            nu.Role,
		"status":          StatusPending,
		"email_confirmed": false,
		"password_hash":   usr.PasswordHash,
	})
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}

	usr = FromRecord(rec)
	svc.sendConfirmationEmail(usr)
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	rec, err := svc.engine.Get(ctx, resource.Users, id)
	if err != nil {
		if errors.Cause(err) == resource.ErrNotFound {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return FromRecord(rec), nil
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	recs, err := svc.engine.List(ctx, resource.Users,
		resource.Filter{"email": core.CleanString(email, true /* lower */)}, nil, 1)
	if err != nil {
		return User{}, err
	}
	if len(recs) == 0 {
		return User{}, ErrNotFound
	}
	return FromRecord(recs[0]), nil
}

// Authenticate checks credentials and the account's state. An unconfirmed
// non-admin account is rejected regardless of password correctness.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrNotFound
	}
	if err = ConfirmGate(usr); err != nil {
		return User{}, err
	}
	if usr.Status == StatusInactive {
		return User{}, ErrAccountDeactivated
	}
	return usr, nil
}

// ConfirmGate always allows admins and blocks every other role while the
// email is unconfirmed.
func ConfirmGate(usr User) error {
	if usr.IsAdmin() {
		return nil
	}
	if !usr.EmailConfirmed {
		return ErrAwaitingConfirmation
	}
	return nil
}

// ConfirmEmail flips email_confirmed through the engine so the users hook
// can cascade activation.
func (svc *Service) ConfirmEmail(ctx context.Context, uid, token string) (User, error) {
	id, err := decodeUID(uid)
	if err != nil {
		return User{}, core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err = svc.verifyToken(usr, token); err != nil {
		return User{}, core.NewValidationError(err)
	}

	rec, err := svc.engine.Update(ctx, resource.Users, usr.ID,
		resource.Fields{"email_confirmed": true})
	if err != nil {
		return User{}, errors.Wrap(err, "confirming email")
	}
	return FromRecord(rec), nil
}

func (svc *Service) sendConfirmationEmail(usr User) {
	token, err := svc.MakeToken(usr)
	if err != nil {
		// registration already succeeded; the user can request a resend
		return
	}
	link := fmt.Sprintf("%s/confirm-email?uid=%s&token=%s", svc.conf.FrontendBaseURL, EncodeUID(usr), token)
	svc.mail.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Confirm your email address",
		Body: fmt.Sprintf(
			"Hi %s,\n\nWelcome to %s! Please confirm your email address by following this link:\n\n%s\n",
			usr.Name, svc.conf.AppName, link),
	})
}
