package service

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/freemirror/yamdb-final/internal/microservices/http-api/apperr"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/models"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/repository"
)

const (
	maxUsernameLen = 150
	maxEmailLen    = 254
	maxNameLen     = 256
	maxSlugLen     = 50

	msgRequired  = "This field is required."
	msgForbidden = "You do not have permission to perform this action."
	msgNoAuth    = "Authentication credentials were not provided."

	msgUsernameTaken = "A user with that username already exists."
	msgEmailTaken    = "A user with that email already exists."
)

var (
	usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+\-]+$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	nonSlugRun      = regexp.MustCompile(`[^a-z0-9]+`)
)

func tooLong(limit int) string {
	return "Ensure this field has no more than " + strconv.Itoa(limit) + " characters."
}

// checkUsername validates format and uniqueness. exceptID skips the account being edited.
func checkUsername(ctx context.Context, errs apperr.FieldErrors, taken func(context.Context, string, int64) (bool, error), value string, exceptID int64) error {
	switch {
	case value == "":
		errs.Add("username", msgRequired)
		return nil
	case utf8.RuneCountInString(value) > maxUsernameLen:
		errs.Add("username", tooLong(maxUsernameLen))
		return nil
	case value == "me":
		errs.Add("username", `The username "me" is reserved.`)
		return nil
	case !usernamePattern.MatchString(value):
		errs.Add("username", "Username may contain only letters, digits and @/./+/-/_ characters.")
		return nil
	}
	exists, err := taken(ctx, value, exceptID)
	if err != nil {
		return err
	}
	if exists {
		errs.Add("username", msgUsernameTaken)
	}
	return nil
}

func checkEmail(ctx context.Context, errs apperr.FieldErrors, taken func(context.Context, string, int64) (bool, error), value string, exceptID int64) error {
	switch {
	case value == "":
		errs.Add("email", msgRequired)
		return nil
	case len(value) > maxEmailLen:
		errs.Add("email", tooLong(maxEmailLen))
		return nil
	case !emailPattern.MatchString(value):
		errs.Add("email", "Enter a valid email address.")
		return nil
	}
	exists, err := taken(ctx, value, exceptID)
	if err != nil {
		return err
	}
	if exists {
		errs.Add("email", msgEmailTaken)
	}
	return nil
}

// uniqueUserErr reports a unique-index violation from a user write the same way the
// pre-checks do. A concurrent signup or edit can pass the checks and still lose at insert.
func uniqueUserErr(ctx context.Context, repo repository.UserRepository, user *models.User, err error) error {
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	errs := apperr.FieldErrors{}
	if taken, terr := repo.UsernameTaken(ctx, user.Username, user.ID); terr == nil && taken {
		errs.Add("username", msgUsernameTaken)
	}
	if taken, terr := repo.EmailTaken(ctx, user.Email, user.ID); terr == nil && taken {
		errs.Add("email", msgEmailTaken)
	}
	if len(errs) == 0 {
		errs.Add("username", msgUsernameTaken)
	}
	return errs.Err()
}

// checkName validates a required display name.
func checkName(errs apperr.FieldErrors, value string) {
	switch {
	case strings.TrimSpace(value) == "":
		errs.Add("name", msgRequired)
	case utf8.RuneCountInString(value) > maxNameLen:
		errs.Add("name", tooLong(maxNameLen))
	}
}

func checkSlug(errs apperr.FieldErrors, value string) {
	switch {
	case value == "":
		errs.Add("slug", msgRequired)
	case len(value) > maxSlugLen:
		errs.Add("slug", tooLong(maxSlugLen))
	case !slugPattern.MatchString(value):
		errs.Add("slug", "Enter a valid slug consisting of letters, numbers, underscores or hyphens.")
	}
}

// slugify folds name to ASCII, lowercases it and joins the alphanumeric runs with hyphens.
// Letters without an ASCII base form are dropped.
func slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	s := nonSlugRun.ReplaceAllString(strings.ToLower(folded), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	return s
}

// notFound maps gorm's missing-row error to a 404 for resource; other errors pass through.
func notFound(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(resource)
	}
	return err
}
