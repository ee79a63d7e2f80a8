package addressform

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/angelmondragon/luvwish-checkout/pkg/types"
)

// Field names a form input; values match the JSON keys of types.AddressInput.
type Field string

const (
	FieldName       Field = "name"
	FieldPhone      Field = "phone"
	FieldAddress    Field = "address"
	FieldCity       Field = "city"
	FieldState      Field = "state"
	FieldCountry    Field = "country"
	FieldPostalCode Field = "postalCode"
	FieldLandmark   Field = "landmark"
)

// InputState is the validation state of one input.
type InputState string

const (
	StateUntouched InputState = "untouched"
	StateValid     InputState = "valid"
	StateInvalid   InputState = "invalid"
)

// PendingIDPrefix marks ids generated for addresses not yet saved remotely.
const PendingIDPrefix = "orderaddr-"

type rule struct {
	label string
	tags  string
}

// rules lists every input in display order. Landmark carries no tags and is
// therefore always valid.
var rules = []struct {
	field Field
	rule
}{
	{FieldName, rule{"Name", "required"}},
	{FieldPhone, rule{"Phone", "required,phone10"}},
	{FieldAddress, rule{"Address", "required"}},
	{FieldCity, rule{"City", "required"}},
	{FieldState, rule{"State", "required"}},
	{FieldCountry, rule{"Country", "required"}},
	{FieldPostalCode, rule{"Postal Code", "required,digits"}},
	{FieldLandmark, rule{"Landmark", ""}},
}

var (
	phonePattern  = regexp.MustCompile(`^[0-9]{10}$`)
	digitsPattern = regexp.MustCompile(`^[0-9]+$`)
	validate      = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		return digitsPattern.MatchString(fl.Field().String())
	})
	return v
}

func lookup(field Field) (rule, bool) {
	for _, r := range rules {
		if r.field == field {
			return r.rule, true
		}
	}
	return rule{}, false
}

// ParseField maps a JSON key onto a Field.
func ParseField(name string) (Field, error) {
	field := Field(strings.TrimSpace(name))
	if _, ok := lookup(field); !ok {
		return "", fmt.Errorf("unknown address field %q", name)
	}
	return field, nil
}

// check validates one value and returns the user-facing message, or "".
func check(field Field, value string) string {
	r, ok := lookup(field)
	if !ok || r.tags == "" {
		return ""
	}
	err := validate.Var(strings.TrimSpace(value), r.tags)
	if err == nil {
		return ""
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return r.label + " is invalid"
	}
	switch errs[0].Tag() {
	case "required":
		return r.label + " is required"
	case "phone10":
		return "Enter a valid 10-digit phone number"
	case "digits":
		return r.label + " must be digits"
	}
	return r.label + " is invalid"
}

// Form is the new-address form of the delivery stage. It is stored with the
// checkout session, so all state is exported for serialization.
type Form struct {
	Values types.AddressInput   `json:"values"`
	States map[Field]InputState `json:"states"`
	Errors map[Field]string     `json:"errors,omitempty"`
}

// New returns an empty form with every field untouched.
func New() Form {
	f := Form{}
	f.reset()
	return f
}

func (f *Form) reset() {
	f.Values = types.AddressInput{}
	f.States = make(map[Field]InputState, len(rules))
	for _, r := range rules {
		f.States[r.field] = StateUntouched
	}
	f.Errors = map[Field]string{}
}

func (f *Form) ensure() {
	if f.States == nil || f.Errors == nil {
		values := f.Values
		f.reset()
		f.Values = values
	}
}

// SetField stores value and re-validates that field only.
func (f *Form) SetField(field Field, value string) error {
	if _, ok := lookup(field); !ok {
		return fmt.Errorf("unknown address field %q", field)
	}
	f.ensure()
	f.setValue(field, value)
	f.mark(field, check(field, value))
	return nil
}

func (f *Form) mark(field Field, msg string) {
	if msg == "" {
		f.States[field] = StateValid
		delete(f.Errors, field)
		return
	}
	f.States[field] = StateInvalid
	f.Errors[field] = msg
}

// Valid recomputes the whole-form gate from the current values.
func (f Form) Valid() bool {
	return len(ValidateInput(f.Values)) == 0
}

// Validate checks every field, updating each state, and returns the errors.
func (f *Form) Validate() map[Field]string {
	f.ensure()
	for _, r := range rules {
		f.mark(r.field, check(r.field, f.value(r.field)))
	}
	out := make(map[Field]string, len(f.Errors))
	for k, v := range f.Errors {
		out[k] = v
	}
	return out
}

// Submit turns a valid form into a pending address with a locally generated
// id and resets the form. An invalid form is returned as a field map and the
// values are kept for correction.
func (f *Form) Submit() (types.Address, map[Field]string) {
	if errs := f.Validate(); len(errs) > 0 {
		return types.Address{}, errs
	}
	in := f.Values
	addr := types.Address{
		ID:         PendingIDPrefix + uuid.NewString(),
		Name:       strings.TrimSpace(in.Name),
		Address:    strings.TrimSpace(in.Address),
		City:       strings.TrimSpace(in.City),
		State:      strings.TrimSpace(in.State),
		Country:    strings.TrimSpace(in.Country),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Phone:      strings.TrimSpace(in.Phone),
		Landmark:   trimmedOrNil(in.Landmark),
		IsDefault:  in.IsDefault,
	}
	f.reset()
	return addr, nil
}

// ValidateInput checks a complete address payload without any form state.
func ValidateInput(in types.AddressInput) map[Field]string {
	errs := map[Field]string{}
	for _, r := range rules {
		if msg := check(r.field, valueOf(in, r.field)); msg != "" {
			errs[r.field] = msg
		}
	}
	return errs
}

func (f Form) value(field Field) string {
	return valueOf(f.Values, field)
}

func valueOf(in types.AddressInput, field Field) string {
	switch field {
	case FieldName:
		return in.Name
	case FieldPhone:
		return in.Phone
	case FieldAddress:
		return in.Address
	case FieldCity:
		return in.City
	case FieldState:
		return in.State
	case FieldCountry:
		return in.Country
	case FieldPostalCode:
		return in.PostalCode
	case FieldLandmark:
		if in.Landmark != nil {
			return *in.Landmark
		}
	}
	return ""
}

func (f *Form) setValue(field Field, value string) {
	switch field {
	case FieldName:
		f.Values.Name = value
	case FieldPhone:
		f.Values.Phone = value
	case FieldAddress:
		f.Values.Address = value
	case FieldCity:
		f.Values.City = value
	case FieldState:
		f.Values.State = value
	case FieldCountry:
		f.Values.Country = value
	case FieldPostalCode:
		f.Values.PostalCode = value
	case FieldLandmark:
		v := value
		f.Values.Landmark = &v
	}
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

// Messages converts a field map into the string-keyed form used in responses.
func Messages(errs map[Field]string) map[string]string {
	out := make(map[string]string, len(errs))
	for k, v := range errs {
		out[string(k)] = v
	}
	return out
}

// ValidateField checks a single value, returning the message or "".
func ValidateField(field Field, value string) string {
	return check(field, value)
}
