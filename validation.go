package account

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128

	// MobileRegion is the region used to format mobile numbers as E164
	MobileRegion = "IN"
)

const (
	msgInvalidEmail     = "Enter a valid email address."
	msgEmailTaken       = "A user with this email already exists."
	msgPasswordMismatch = "Password and Confirm Password don't match."
	msgPasswordShort    = "This password is too short. It must contain at least 8 characters."
	msgPasswordLong     = "This password is too long."
	msgPasswordCommon   = "This password is too common."
	msgPasswordNumeric  = "This password is entirely numeric."
	msgPasswordSimilar  = "The password is too similar to the email."
	msgInvalidMobile    = "Invalid mobile number format. Please enter a 10-digit number."
	msgInvalidGender    = "Gender must be M or F."
	msgInvalidDOB       = "Date of birth must use the YYYY-MM-DD format."
)

var mobilePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

var commonPasswords = map[string]struct{}{}

func init() {
	for _, p := range strings.Fields(commonPasswordList) {
		commonPasswords[p] = struct{}{}
	}
}

// EmailRules validates a login or registration address
func EmailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error(msgInvalidEmail),
		validation.Length(3, 254).Error(msgInvalidEmail),
		is.EmailFormat.Error(msgInvalidEmail),
	}
}

// PasswordRules validates password strength. Every failing strength check
// is reported in a single message.
func PasswordRules(email string) []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.By(passwordStrength(email)),
	}
}

// MobileRules validates the optional profile mobile number
func MobileRules() []validation.Rule {
	return []validation.Rule{
		validation.Length(0, 20).Error(msgInvalidMobile),
		validation.Match(mobilePattern).Error(msgInvalidMobile),
	}
}

// ValidatePassword runs PasswordRules as a standalone check
func ValidatePassword(password, email string) error {
	return validation.Validate(password, PasswordRules(email)...)
}

// ValidateMobile runs MobileRules as a standalone check
func ValidateMobile(mobile string) error {
	return validation.Validate(mobile, MobileRules()...)
}

// FormatMobileE164 renders a validated mobile number in E164, empty input
// gives empty output
func FormatMobileE164(mobile string) (string, error) {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" {
		return "", nil
	}

	num, err := phonenumbers.Parse(mobile, MobileRegion)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryValidation, msgInvalidMobile)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New(msgPasswordMismatch)
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens validation errors to field -> message
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = strings.TrimSpace(ferr.Error())
		}
		return out
	}

	if fields, ok := goerrors.GetValidationErrors(err); ok {
		for _, f := range fields {
			out[f.Field] = f.Message
		}
		return out
	}

	out["non_field_errors"] = err.Error()
	return out
}

// NewValidationError converts ozzo errors into the package's validation error
func NewValidationError(err error, message string) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}

	var internal validation.InternalError
	if errors.As(err, &internal) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "validation failed to run")
	}

	fields := FormatValidationErrorToMap(err)
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	fieldErrs := make([]goerrors.FieldError, 0, len(names))
	for _, name := range names {
		fieldErrs = append(fieldErrs, goerrors.FieldError{Field: name, Message: fields[name]})
	}

	return goerrors.NewValidation(message, fieldErrs...).WithCode(goerrors.CodeBadRequest)
}

func passwordStrength(email string) validation.RuleFunc {
	checks := []validation.RuleFunc{
		passwordNotSimilarTo(email),
		passwordMinLength,
		passwordMaxLength,
		passwordNotCommon,
		passwordNotNumeric,
	}

	return func(value any) error {
		var msgs []string
		for _, check := range checks {
			if err := check(value); err != nil {
				msgs = append(msgs, err.Error())
			}
		}
		if len(msgs) == 0 {
			return nil
		}
		return errors.New(strings.Join(msgs, " "))
	}
}

func passwordMaxLength(value any) error {
	s, _ := value.(string)
	if len([]rune(s)) > MaxPasswordLength {
		return errors.New(msgPasswordLong)
	}
	return nil
}

func passwordMinLength(value any) error {
	s, _ := value.(string)
	if len([]rune(s)) < MinPasswordLength {
		return errors.New(msgPasswordShort)
	}
	return nil
}

func passwordNotCommon(value any) error {
	s, _ := value.(string)
	if _, ok := commonPasswords[strings.ToLower(strings.TrimSpace(s))]; ok {
		return errors.New(msgPasswordCommon)
	}
	return nil
}

func passwordNotNumeric(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil
		}
	}
	return errors.New(msgPasswordNumeric)
}

func passwordNotSimilarTo(email string) validation.RuleFunc {
	email = NormalizeEmail(email)
	local, _, _ := strings.Cut(email, "@")

	return func(value any) error {
		s, _ := value.(string)
		pwd := strings.ToLower(s)
		if pwd == "" || email == "" {
			return nil
		}
		if pwd == email || (len(local) >= 4 && strings.Contains(pwd, local)) {
			return errors.New(msgPasswordSimilar)
		}
		return nil
	}
}

const commonPasswordList = `
123456 123456789 12345678 12345 1234567 1234567890 password password1
password123 qwerty qwerty123 qwertyuiop abc123 111111 123123 000000
iloveyou 1q2w3e4r 1qaz2wsx 654321 987654321 666666 121212 555555
letmein welcome welcome1 monkey dragon football baseball sunshine
princess admin admin123 administrator master login starwars superman
batman trustno1 passw0rd p@ssw0rd p@ssword shadow michael jennifer
hunter2 whatever freedom ninja azerty solo access flower hello
hello123 charlie donald loveme zaq12wsx qazwsx asdfghjkl asdfgh
changeme secret secret123 computer internet mustang jordan23 killer
`
