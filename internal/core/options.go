package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Defaults for Options fields left at zero by front ends.
const (
	DefaultPreviewRows = 5
	MaxPreviewRows     = 1000
	MaxHistogramBins   = 200
)

// Options controls one run of the pipeline. There is no other source of
// settings; front ends build one per request.
type Options struct {
	RemoveDuplicates bool `json:"remove_duplicates"`
	FillMissing      bool `json:"fill_missing"`

	// Columns is the projection. nil keeps every column; empty keeps none.
	Columns []string `json:"columns" validate:"omitempty,dive,required"`

	Describe  bool `json:"describe"`
	Histogram bool `json:"histogram"`

	// ConvertTo is "csv", "excel" or empty for no export.
	ConvertTo string `json:"convert_to" validate:"omitempty,oneof=csv excel xlsx"`

	PreviewRows   int `json:"preview_rows" validate:"min=0,max=1000"`
	HistogramBins int `json:"histogram_bins" validate:"min=0,max=200"`

	// PublishTable, if set, names the Postgres table that receives the result.
	PublishTable string `json:"publish_table" validate:"omitempty,sqlident"`

	Progress ProgressFunc `json:"-"`
}

// Target returns the parsed conversion format.
func (o Options) Target() Format {
	f, _ := ParseFormat(o.ConvertTo)
	return f
}

var (
	validateOnce sync.Once
	validate     *validator.Validate

	identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}(\.[A-Za-z_][A-Za-z0-9_]{0,62})?$`)
)

func optionsValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
			return identRegex.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Validate checks every field and reports all problems at once.
func (o Options) Validate() error {
	err := optionsValidator().Struct(o)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("invalid option: %s", strings.Join(msgs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "required":
		return fmt.Sprintf("%s must not contain blank names", strings.SplitN(field, "[", 2)[0])
	case "sqlident":
		return fmt.Sprintf("%s must be a plain SQL identifier (letters, digits, underscore; optional schema.)", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// withDefaults fills zero values.
func (o Options) withDefaults(previewRows, bins int) Options {
	if o.PreviewRows == 0 {
		o.PreviewRows = previewRows
	}
	if o.HistogramBins == 0 {
		o.HistogramBins = bins
	}
	return o
}
