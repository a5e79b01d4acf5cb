// Package validate checks participation records against the data-model
// invariants before they are allowed into a session store.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/tally/internal/domain/model"
)

// Validator checks records and whole ingestion batches.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator with the tag-enum rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json names so errors match what clients sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("quality", func(fl validator.FieldLevel) bool {
		return model.Quality(fl.Field().Int()).Valid()
	})
	_ = v.RegisterValidation("frequency", func(fl validator.FieldLevel) bool {
		return model.Frequency(fl.Field().Int()).Valid()
	})
	_ = v.RegisterValidation("contribution_type", func(fl validator.FieldLevel) bool {
		return model.ContributionType(fl.Field().Int()).Valid()
	})
	v.RegisterStructValidation(flagConsistency, model.ParticipationRecord{})

	return &Validator{v: v}
}

// flagConsistency enforces that a flag reason is present iff the record is flagged.
func flagConsistency(sl validator.StructLevel) {
	rec, ok := sl.Current().Interface().(model.ParticipationRecord)
	if !ok {
		return
	}
	switch {
	case rec.Flagged && rec.FlagReason == "":
		sl.ReportError(rec.FlagReason, "flag_reason", "FlagReason", "required_if_flagged", "")
	case !rec.Flagged && rec.FlagReason != "":
		sl.ReportError(rec.FlagReason, "flag_reason", "FlagReason", "excluded_unless_flagged", "")
	}
	if strings.TrimSpace(rec.StudentID) == "" && rec.StudentID != "" {
		sl.ReportError(rec.StudentID, "student_id", "StudentID", "required", "")
	}
}

// Record validates a single record.
func (x *Validator) Record(rec model.ParticipationRecord) error {
	if err := x.v.Struct(rec); err != nil {
		return translate("", err)
	}
	return nil
}

// Batch validates every record and rejects duplicate student ids.
// The first violation found is returned.
func (x *Validator) Batch(records []model.ParticipationRecord) error {
	seen := make(map[string]int, len(records))
	for i, rec := range records {
		prefix := fmt.Sprintf("records[%d]", i)
		if err := x.v.Struct(rec); err != nil {
			return translate(prefix, err)
		}
		if first, dup := seen[rec.StudentID]; dup {
			return model.NewValidationError(prefix+".student_id",
				fmt.Sprintf("duplicate student_id %q (first at records[%d])", rec.StudentID, first))
		}
		seen[rec.StudentID] = i
	}
	return nil
}

func translate(prefix string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.NewValidationError(prefix, err.Error())
	}
	fe := verrs[0]
	// Namespace is "ParticipationRecord.contributions[0].confidence"; drop the type name.
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	if prefix != "" {
		field = prefix + "." + field
	}
	return model.NewValidationError(field, describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "quality":
		return "must be one of Low, Medium, High"
	case "frequency":
		return "must be one of Low, Optimal, High"
	case "contribution_type":
		return "unknown contribution type"
	case "required_if_flagged":
		return "must be set when flagged"
	case "excluded_unless_flagged":
		return "must be empty when not flagged"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
