package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-mail-setup/internal/domain"
	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

// localPartRE is the dot-atom subset mailbox providers accept for new users.
var localPartRE = regexp.MustCompile(`^[a-z0-9]([a-z0-9._-]{0,62}[a-z0-9])?$`)

func init() {
	_ = v.RegisterValidation("domainname", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseDomainName(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("localpart", func(fl validator.FieldLevel) bool {
		return LocalPart(fl.Field().String())
	})
}

// LocalPart reports whether s is an acceptable mailbox name.
func LocalPart(s string) bool {
	s = strings.ToLower(s)
	return localPartRE.MatchString(s) && !strings.Contains(s, "..")
}

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s: %w", strings.Join(msgs, "; "), domain.ErrBadRequest)
	}
	return nil
}
