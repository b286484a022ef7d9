package memory

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validate checks the fields a new memory cannot go without.
func (d *Draft) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Recipient, validation.Required, validation.Length(1, 200)),
		validation.Field(&d.Message, validation.Required),
		validation.Field(&d.Date, validation.Required),
	)
}

// Validate rejects a patch that would blank a required field.
func (p *Patch) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Recipient, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&p.Message, validation.NilOrNotEmpty),
		validation.Field(&p.ScheduledDate, validation.When(p.ClearScheduledDate,
			validation.Nil.Error("cannot be set and cleared at once"))),
		validation.Field(&p.ImageURL, validation.When(p.ClearImageURL,
			validation.Nil.Error("cannot be set and cleared at once"))),
	)
}

var stampRule = validation.By(func(v any) error {
	id, _ := v.(string)
	if _, ok := LookupStamp(id); !ok {
		return errors.New("unknown stamp")
	}
	return nil
})

func validateComment(content string) (string, error) {
	content = strings.TrimSpace(content)
	return content, validation.Validate(content, validation.Required)
}
