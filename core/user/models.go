package user

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/caseload/caseload/core"
)

// User is a case manager. Users are identified by their email.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	IsActive      bool      `json:"isActive"`
	EmailVerified bool      `json:"emailVerified"`
	IsAdmin       bool      `json:"isAdmin"`
	PasswordHash  []byte    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`           // UTC
	UpdatedAt     time.Time `json:"updatedAt"`           // UTC
	LastLogin     time.Time `json:"lastLogin,omitempty"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// CanLogin reports whether u may be issued a token.
func (u *User) CanLogin() bool {
	return u.IsActive && u.EmailVerified
}

// NewUser contains information needed to sign up a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(svc ServiceInterface) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := core.Validate.Struct(nu); err != nil {
		return core.TranslateErrors(err)
	}
	return svc.CheckEmailUniqueness(nu.Email)
}

// UpdateUser defines what information a User may change on their own account.
type UpdateUser struct {
	Name            string `json:"name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required_with=Password,eqfield=Password"`

	// set from the original user, used by the password policy
	email string
}

func (uu *UpdateUser) Validate(origUsr User) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	uu.email = origUsr.Email
	return core.TranslateErrors(core.Validate.Struct(uu))
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate() error { return core.TranslateErrors(core.Validate.Struct(rp)) }

type VerifyEmail struct {
	Token string `json:"token,omitempty" validate:"required"`
	UID   string `json:"uid,omitempty" validate:"required"`
}

func (ve VerifyEmail) Validate() error { return core.TranslateErrors(core.Validate.Struct(ve)) }

// OrderingColumns maps the JSON fields users may be ordered by to their column.
var OrderingColumns = map[string]string{
	"name":      "name",
	"email":     "email",
	"createdAt": "created_at",
	"lastLogin": "last_login",
}

// CheckOrderings reports unknown ordering fields as a validation error on "ordering".
func CheckOrderings(orderings []core.DBOrdering) error {
	for _, ord := range orderings {
		if _, ok := OrderingColumns[ord.Field]; !ok {
			return core.NewValidationError(nil, core.FieldError{Field: "ordering", Error: "invalid field " + ord.Field})
		}
	}
	return nil
}

// SortUsers sorts users by orderings, then by name and email.
func SortUsers(users []User, orderings []core.DBOrdering) {
	cmp := func(a, b User, field string) int {
		switch field {
		case "email":
			return strings.Compare(a.Email, b.Email)
		case "createdAt":
			return compareTimes(a.CreatedAt, b.CreatedAt)
		case "lastLogin":
			return compareTimes(a.LastLogin, b.LastLogin)
		}
		return strings.Compare(a.Name, b.Name)
	}
	orderings = append(orderings[:len(orderings):len(orderings)],
		core.DBOrdering{Field: "name", Ascending: true},
		core.DBOrdering{Field: "email", Ascending: true},
	)
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range orderings {
			c := cmp(users[i], users[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
