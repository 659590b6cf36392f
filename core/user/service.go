package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/caseload/caseload/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")

	errInvalidValue = "invalid value"
)

type (
	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists when another user than excludedIDs uses email.
		CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers returns every user sorted by orderings (name then email by default).
		QueryUsers(ctx context.Context, orderings ...core.DBOrdering) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUser(ctx context.Context, id string) error
	}

	ServiceInterface interface {
		CheckEmailUniqueness(email string, exclUsers ...User) error
		Create(nu NewUser) (User, error)
		Query(orderings ...core.DBOrdering) ([]User, error)
		GetByID(id string) (User, error)
		GetByEmail(email string) (User, error)
		Update(usr User, uu UpdateUser) (User, error)
		SetLastLogin(usr User) (User, error)
		RequestEmailVerification(email string) error
		VerifyEmail(ve VerifyEmail) (User, error)
		RequestPasswordReset(email string) error
		ResetPassword(rp ResetUserPassword) error
		Delete(id string) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		tokens  TokenGenerator
		timeout time.Duration
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		tokens:  NewTokenGenerator(conf.SecretKey, conf.Server.PasswordResetTimeoutDelta),
		timeout: 5 * time.Second,
	}
}

func (svc *Service) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), svc.timeout)
}

// Tokens returns the generator used for the emailed one-time tokens.
func (svc *Service) Tokens() TokenGenerator { return svc.tokens }

func (svc *Service) CheckEmailUniqueness(email string, exclUsers ...User) error {
	ctx, cancel := svc.context()
	defer cancel()

	ids := make([]string, 0, len(exclUsers))
	for _, u := range exclUsers {
		ids = append(ids, u.ID)
	}
	if err := svc.repo.CheckEmailUniqueness(ctx, email, ids...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

// Create signs up a new active User and mails them an email verification link.
func (svc *Service) Create(nu NewUser) (User, error) {
	ctx, cancel := svc.context()
	defer cancel()

	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}
	if err = svc.sendEmailVerificationMail(usr); err != nil {
		return User{}, err
	}
	return usr, nil
}

func (svc *Service) Query(orderings ...core.DBOrdering) ([]User, error) {
	if err := CheckOrderings(orderings); err != nil {
		return nil, err
	}
	ctx, cancel := svc.context()
	defer cancel()
	return svc.repo.QueryUsers(ctx, orderings...)
}

func (svc *Service) GetByID(id string) (User, error) {
	ctx, cancel := svc.context()
	defer cancel()
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(email string) (User, error) {
	ctx, cancel := svc.context()
	defer cancel()
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// Update applies a validated UpdateUser to usr.
func (svc *Service) Update(usr User, uu UpdateUser) (User, error) {
	ctx, cancel := svc.context()
	defer cancel()

	usr.Name = uu.Name
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetLastLogin(usr User) (User, error) {
	ctx, cancel := svc.context()
	defer cancel()

	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// RequestEmailVerification mails a new verification link to the unverified User with `email`.
func (svc *Service) RequestEmailVerification(email string) error {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	if usr.EmailVerified || !usr.IsActive {
		return nil
	}
	return svc.sendEmailVerificationMail(usr)
}

func (svc *Service) VerifyEmail(ve VerifyEmail) (User, error) {
	usr, err := svc.getByUID(ve.UID, ve.Token, PurposeEmailVerification)
	if err != nil {
		return User{}, err
	}

	ctx, cancel := svc.context()
	defer cancel()

	usr.EmailVerified = true
	usr.UpdatedAt = time.Now().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "verifying email")
}

// RequestPasswordReset mails a password reset link to the active User with `email`.
func (svc *Service) RequestPasswordReset(email string) error {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return nil
	}
	return svc.sendPasswordResetMail(usr)
}

func (svc *Service) ResetPassword(rp ResetUserPassword) error {
	usr, err := svc.getByUID(rp.UID, rp.Token, PurposePasswordReset)
	if err != nil {
		return err
	}

	ctx, cancel := svc.context()
	defer cancel()

	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "resetting password")
}

func (svc *Service) Delete(id string) error {
	ctx, cancel := svc.context()
	defer cancel()
	return svc.repo.DeleteUser(ctx, id)
}

// getByUID finds the User encoded in uid and checks their token.
// Every failure is reported as a validation error on the faulty field.
func (svc *Service) getByUID(uid, token string, purpose TokenPurpose) (User, error) {
	id, err := decodeUID(uid)
	if err != nil {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "uid", Error: errInvalidValue})
	}
	usr, err := svc.GetByID(id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, core.NewValidationError(nil, core.FieldError{Field: "uid", Error: errInvalidValue})
		}
		return User{}, errors.Wrap(err, "finding user by ID")
	}
	if err = svc.tokens.VerifyToken(usr, purpose, token); err != nil {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "token", Error: errInvalidValue})
	}
	return usr, nil
}

type tokenMailData struct {
	Name  string
	UID   string
	Token string
}

func (svc *Service) sendTokenMail(usr User, purpose TokenPurpose, subject, tmpl string) error {
	token, err := svc.tokens.MakeToken(usr, purpose)
	if err != nil {
		return errors.Wrap(err, "making token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: tokenMailData{Name: usr.Name, UID: EncodeUID(usr), Token: token},
	})
	return nil
}

func (svc *Service) sendEmailVerificationMail(usr User) error {
	return svc.sendTokenMail(usr, PurposeEmailVerification, "Verify your email address", "verify_email")
}

func (svc *Service) sendPasswordResetMail(usr User) error {
	return svc.sendTokenMail(usr, PurposePasswordReset, "Password Reset", "password_reset")
}
