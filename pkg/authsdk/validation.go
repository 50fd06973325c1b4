package authsdk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field limits shared by the server and the SDK.
const (
	MinNameLength     = 2
	MaxNameLength     = 50
	MaxEmailLength    = 100
	MinPasswordLength = 6
	MaxPasswordLength = 128
	MaxPlaceLength    = 100
	MaxAvatarLength   = 500
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	ThemeLight = "light"
	ThemeDark  = "dark"
)

var (
	reName  = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	reEmail = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9\-]+(\.[a-zA-Z0-9\-]+)*\.[a-zA-Z]{2,}$`)
)

// FieldError is one violated rule, addressed by its dotted JSON path.
type FieldError struct {
	Path string `json:"path"`
	Msg  string `json:"msg"`
}

// ValidationErrors lists every violated field, one message per field.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Path + ": " + fe.Msg
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Get returns the message for path, if any.
func (v ValidationErrors) Get(path string) (string, bool) {
	for _, fe := range v {
		if fe.Path == path {
			return fe.Msg, true
		}
	}
	return "", false
}

func (v *ValidationErrors) add(path, msg string) {
	if msg == "" {
		return
	}
	if _, dup := v.Get(path); dup {
		return
	}
	*v = append(*v, FieldError{Path: path, Msg: msg})
}

func (v ValidationErrors) orNil() ValidationErrors {
	if len(v) == 0 {
		return nil
	}
	return v
}

// NormalizeEmail trims and lowercases an address. Uniqueness is defined on
// the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail reports whether email (already normalized) is syntactically valid.
func IsValidEmail(email string) bool {
	return email != "" &&
		len(email) <= MaxEmailLength &&
		!strings.Contains(email, "..") &&
		reEmail.MatchString(email)
}

// IsValidName reports whether a trimmed first or last name is acceptable.
func IsValidName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= MinNameLength && n <= MaxNameLength && reName.MatchString(name)
}

// IsStrongPassword reports whether pw has a lowercase letter, an uppercase
// letter and a digit.
func IsStrongPassword(pw string) bool {
	var lower, upper, digit bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return lower && upper && digit
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// IsValidTheme reports whether theme is one of the known themes.
func IsValidTheme(theme string) bool {
	return theme == ThemeLight || theme == ThemeDark
}

// IsValidLatitude reports whether lat is within [-90, 90].
func IsValidLatitude(lat float64) bool { return lat >= -90 && lat <= 90 }

// IsValidLongitude reports whether lng is within [-180, 180].
func IsValidLongitude(lng float64) bool { return lng >= -180 && lng <= 180 }

func nameMessage(label, raw string, required bool) string {
	name := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(name)
	switch {
	case required && name == "":
		return label + " is required"
	case n < MinNameLength || n > MaxNameLength:
		return label + " must be between 2 and 50 characters"
	case !reName.MatchString(name):
		return label + " can only contain letters and spaces"
	}
	return ""
}

func emailMessage(raw string, checkLength bool) string {
	email := NormalizeEmail(raw)
	switch {
	case email == "":
		return "Email is required"
	case checkLength && len(email) > MaxEmailLength:
		return "Email cannot exceed 100 characters"
	case !IsValidEmail(email):
		return "Please provide a valid email"
	}
	return ""
}

func passwordMessage(label, pw string) string {
	n := utf8.RuneCountInString(pw)
	switch {
	case pw == "":
		return label + " is required"
	case n < MinPasswordLength || n > MaxPasswordLength:
		return label + " must be between 6 and 128 characters"
	case !IsStrongPassword(pw):
		return label + " must contain at least one lowercase letter, one uppercase letter, and one number"
	}
	return ""
}

// Validate checks the registration body. It returns nil when valid.
func (r RegisterRequest) Validate() ValidationErrors {
	var errs ValidationErrors

	errs.add("firstName", nameMessage("First name", r.FirstName, true))
	errs.add("lastName", nameMessage("Last name", r.LastName, true))
	errs.add("email", emailMessage(r.Email, true))
	errs.add("password", passwordMessage("Password", r.Password))

	switch {
	case r.ConfirmPassword == "":
		errs.add("confirmPassword", "Confirm password is required")
	case r.ConfirmPassword != r.Password:
		errs.add("confirmPassword", MsgPasswordsDoNotMatch)
	}

	if r.Role != "" && !IsValidRole(r.Role) {
		errs.add("role", "Role must be either user or admin")
	}

	return errs.orNil()
}

// Normalized returns a copy with names trimmed and the email normalized.
// Passwords are used exactly as entered.
func (r RegisterRequest) Normalized() RegisterRequest {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = NormalizeEmail(r.Email)
	return r
}

// Validate checks the login body. Only presence and email syntax are
// checked; strength rules would reveal nothing useful here.
func (r LoginRequest) Validate() ValidationErrors {
	var errs ValidationErrors

	errs.add("email", emailMessage(r.Email, false))
	if r.Password == "" {
		errs.add("password", "Password is required")
	}

	return errs.orNil()
}

// Normalized returns a copy with the email normalized.
func (r LoginRequest) Normalized() LoginRequest {
	r.Email = NormalizeEmail(r.Email)
	return r
}

// Validate checks only the fields present in the partial update.
func (r UpdateProfileRequest) Validate() ValidationErrors {
	var errs ValidationErrors

	if r.FirstName != nil {
		errs.add("firstName", nameMessage("First name", *r.FirstName, false))
	}
	if r.LastName != nil {
		errs.add("lastName", nameMessage("Last name", *r.LastName, false))
	}
	if r.Avatar != nil && len(*r.Avatar) > MaxAvatarLength {
		errs.add("avatar", "Avatar URL cannot exceed 500 characters")
	}

	if loc := r.Location; loc != nil {
		if loc.City != nil && utf8.RuneCountInString(strings.TrimSpace(*loc.City)) > MaxPlaceLength {
			errs.add("location.city", "City name cannot exceed 100 characters")
		}
		if loc.Country != nil && utf8.RuneCountInString(strings.TrimSpace(*loc.Country)) > MaxPlaceLength {
			errs.add("location.country", "Country name cannot exceed 100 characters")
		}
		if c := loc.Coordinates; c != nil {
			if c.Lat != nil && !IsValidLatitude(*c.Lat) {
				errs.add("location.coordinates.lat", TypeErrorMessage("location.coordinates.lat"))
			}
			if c.Lng != nil && !IsValidLongitude(*c.Lng) {
				errs.add("location.coordinates.lng", TypeErrorMessage("location.coordinates.lng"))
			}
		}
	}

	if theme := r.theme(); theme != nil && !IsValidTheme(*theme) {
		errs.add("preferences.theme", TypeErrorMessage("preferences.theme"))
	}

	return errs.orNil()
}

// theme resolves the preferences.theme value, honouring the top-level shorthand.
func (r UpdateProfileRequest) theme() *string {
	if r.Preferences != nil && r.Preferences.Theme != nil {
		return r.Preferences.Theme
	}
	return r.Theme
}

// Normalized returns a copy with string fields trimmed and the theme
// shorthand folded into preferences.
func (r UpdateProfileRequest) Normalized() UpdateProfileRequest {
	r.FirstName = trimmedPtr(r.FirstName)
	r.LastName = trimmedPtr(r.LastName)
	r.Avatar = trimmedPtr(r.Avatar)

	if r.Location != nil {
		loc := *r.Location
		loc.City = trimmedPtr(loc.City)
		loc.Country = trimmedPtr(loc.Country)
		r.Location = &loc
	}

	if theme := r.theme(); theme != nil {
		prefs := PreferencesUpdate{}
		if r.Preferences != nil {
			prefs = *r.Preferences
		}
		prefs.Theme = theme
		r.Preferences = &prefs
	}
	r.Theme = nil

	return r
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// Validate checks the change-password body.
func (r ChangePasswordRequest) Validate() ValidationErrors {
	var errs ValidationErrors

	if r.CurrentPassword == "" {
		errs.add("currentPassword", "Current password is required")
	}
	errs.add("newPassword", passwordMessage("New password", r.NewPassword))

	switch {
	case r.ConfirmNewPassword == "":
		errs.add("confirmNewPassword", "Confirm new password is required")
	case r.ConfirmNewPassword != r.NewPassword:
		errs.add("confirmNewPassword", "New passwords do not match")
	}

	return errs.orNil()
}

// typeErrorMessages are reported when a field has the wrong JSON type, keyed
// by dotted path. The range and enum rules share these messages.
var typeErrorMessages = map[string]string{
	"location.coordinates.lat":            "Latitude must be between -90 and 90",
	"location.coordinates.lng":            "Longitude must be between -180 and 180",
	"preferences.notifications.email":     "Email notification preference must be a boolean",
	"preferences.notifications.campaigns": "Campaign notification preference must be a boolean",
	"preferences.notifications.blogs":     "Blog notification preference must be a boolean",
	"preferences.theme":                   "Theme must be either light or dark",
	"theme":                               "Theme must be either light or dark",
}

// TypeErrorMessage returns the message for a field whose JSON value had the
// wrong type. Unknown paths get a generic message.
func TypeErrorMessage(path string) string {
	if msg, ok := typeErrorMessages[path]; ok {
		return msg
	}
	return "Invalid value"
}
