// Package forms holds the field validation shared by the terminal client and the API
// server. Each form reports problems as a field -> message map so callers can show
// them inline next to the offending field.
package forms

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	MsgInvalidEmail     = "enter a valid email address"
	MsgInvalidPassword  = "password must be at least 8 characters and use letters, digits or @$!%*?&#._-"
	MsgPasswordMismatch = "passwords do not match"
	MsgInvalidCode      = "code must be 6 digits"
	MsgTooFewOptions    = "a poll needs at least 2 options"
	MsgEndsInPast       = "end time must be in the future"
)

var (
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	passwordRe = regexp.MustCompile(`^[A-Za-z0-9@$!%*?&#._-]{8,}$`)
	codeRe     = regexp.MustCompile(`^[0-9]{6}$`)
)

// Errors maps a field name to the message shown for it.
type Errors map[string]string

func (e Errors) Valid() bool { return len(e) == 0 }

func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Error joins the messages in field order so the result is stable.
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return strings.Join(parts, "; ")
}

// Err returns nil for a valid form so callers can use the usual err != nil check.
func (e Errors) Err() error {
	if e.Valid() {
		return nil
	}
	return e
}

func ValidEmail(s string) bool    { return emailRe.MatchString(s) }
func ValidPassword(s string) bool { return passwordRe.MatchString(s) }
func ValidCode(s string) bool     { return codeRe.MatchString(s) }

func required(errs Errors, field, value string) bool {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, field+" is required")
		return false
	}
	return true
}

func checkEmail(errs Errors, field, value string) {
	if required(errs, field, value) && !ValidEmail(value) {
		errs.Add(field, MsgInvalidEmail)
	}
}

func checkPassword(errs Errors, field, value string) {
	if required(errs, field, value) && !ValidPassword(value) {
		errs.Add(field, MsgInvalidPassword)
	}
}

func checkConfirm(errs Errors, password, confirm string) {
	if required(errs, "confirm", confirm) && password != confirm {
		errs.Add("confirm", MsgPasswordMismatch)
	}
}

type LoginForm struct {
	Email    string
	Password string
}

// Login only checks presence and email shape; password rules are enforced at signup.
func (f LoginForm) Validate() Errors {
	errs := Errors{}
	checkEmail(errs, "email", f.Email)
	required(errs, "password", f.Password)
	return errs
}

type SignupForm struct {
	Name     string
	Email    string
	Password string
	Confirm  string
}

func (f SignupForm) Validate() Errors {
	errs := Errors{}
	required(errs, "name", f.Name)
	checkEmail(errs, "email", f.Email)
	checkPassword(errs, "password", f.Password)
	checkConfirm(errs, f.Password, f.Confirm)
	return errs
}

type ResetEmailForm struct {
	Email string
}

func (f ResetEmailForm) Validate() Errors {
	errs := Errors{}
	checkEmail(errs, "email", f.Email)
	return errs
}

type ResetCodeForm struct {
	Code string
}

func (f ResetCodeForm) Validate() Errors {
	errs := Errors{}
	if required(errs, "code", f.Code) && !ValidCode(strings.TrimSpace(f.Code)) {
		errs.Add("code", MsgInvalidCode)
	}
	return errs
}

type NewPasswordForm struct {
	Password string
	Confirm  string
}

func (f NewPasswordForm) Validate() Errors {
	errs := Errors{}
	checkPassword(errs, "password", f.Password)
	checkConfirm(errs, f.Password, f.Confirm)
	return errs
}

type ProfileForm struct {
	Name  string
	Email string
}

func (f ProfileForm) Validate() Errors {
	errs := Errors{}
	required(errs, "name", f.Name)
	checkEmail(errs, "email", f.Email)
	return errs
}

type PollForm struct {
	Question string
	Category string
	EndsAt   *time.Time
	Options  []string
}

// Validate checks the poll against now; a nil EndsAt means the poll never ends.
func (f PollForm) Validate(now time.Time) Errors {
	errs := Errors{}
	required(errs, "question", f.Question)
	required(errs, "category", f.Category)
	n := 0
	for _, o := range f.Options {
		if strings.TrimSpace(o) != "" {
			n++
		}
	}
	if n < 2 {
		errs.Add("options", MsgTooFewOptions)
	}
	if f.EndsAt != nil && !f.EndsAt.After(now) {
		errs.Add("ends_at", MsgEndsInPast)
	}
	return errs
}
