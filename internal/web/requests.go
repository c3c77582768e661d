package web

import (
	"fmt"
	"net/http"
	"reflect"
	"slices"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/sheetprep/internal/core"
)

// maxBodySize bounds JSON and form request bodies.
const maxBodySize = 1 << 20

// regionRequest selects the data rows of the current table.
type regionRequest struct {
	Mode       string   `json:"mode" form:"mode" validate:"required,oneof=identity manual auto"`
	Start      *int     `json:"start" form:"start" validate:"required_if=Mode manual,omitempty,min=0"`
	End        *int     `json:"end" form:"end" validate:"required_if=Mode manual,omitempty,min=0"`
	Method     string   `json:"method" form:"method"`
	SkipWords  []string `json:"skip_words" form:"skip_words"`
	CutAtBlank bool     `json:"cut_at_blank" form:"cut_at_blank"`
}

// policy builds the region policy. Auto mode defaults to date-pattern
// detection with the default skip words.
func (req regionRequest) policy() (core.Policy, error) {
	switch req.Mode {
	case "manual":
		return core.Manual{Start: *req.Start, End: *req.End}, nil
	case "auto":
		method := core.MethodDatePattern
		if req.Method != "" {
			m, err := core.ParseDetectionMethod(req.Method)
			if err != nil {
				return nil, badRequest(err)
			}
			method = m
		}
		skip := req.SkipWords
		if skip == nil {
			skip = core.DefaultSkipWords
		}
		return core.AutoDetect{SkipWords: skip, Method: method, CutAtBlank: req.CutAtBlank}, nil
	default:
		return core.Identity{}, nil
	}
}

// convertRequest names the columns to convert. The session form posts
// one indexed checkbox per column, so unchecked boxes leave blank entries.
type convertRequest struct {
	Columns  []string `json:"columns" form:"columns" validate:"required,min=1,dive,required"`
	DayFirst bool     `json:"day_first" form:"day_first"`
}

func (req *convertRequest) compact() {
	req.Columns = slices.DeleteFunc(req.Columns, func(c string) bool { return c == "" })
}

type filterRequest struct {
	Column string `json:"column" form:"column" validate:"required"`
	Start  string `json:"start" form:"start" validate:"required_if=Skip false,omitempty,datetime=2006-01-02"`
	End    string `json:"end" form:"end" validate:"required_if=Skip false,omitempty,datetime=2006-01-02"`
	Skip   bool   `json:"skip" form:"skip"`
}

func (req filterRequest) filter() (core.DateFilter, error) {
	f := core.DateFilter{Column: req.Column, Skip: req.Skip}
	if req.Skip {
		return f, nil
	}
	var err error
	if f.Start, err = core.ParseDate(req.Start); err != nil {
		return f, badRequest(err)
	}
	if f.End, err = core.ParseDate(req.End); err != nil {
		return f, badRequest(err)
	}
	return f, nil
}

type findRequest struct {
	Column string   `json:"column" validate:"required"`
	Op     string   `json:"op" validate:"required,oneof=min max count equals"`
	Value  *float64 `json:"value" validate:"required_if=Op equals"`
}

type analyzeRequest struct {
	FromColumn string  `json:"from_column" validate:"required_with=Value"`
	Value      *string `json:"value"`
	Func       string  `json:"func" validate:"required,oneof=count sum average add subtract multiply divide"`
	Target     string  `json:"target" validate:"required_unless=Func count"`
	Operand    float64 `json:"operand"`
}

type postgresExportRequest struct {
	Table   string `json:"table" validate:"required,max=63"`
	Replace bool   `json:"replace"`
}

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field of a request body.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Message
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// formCompacter is implemented by requests whose form encoding leaves
// blank slice entries.
type formCompacter interface {
	compact()
}

// decode reads a JSON or URL-encoded form body into v and validates it.
// Forms use the same field names as JSON.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if render.GetRequestContentType(r) == render.ContentTypeForm {
		if err := render.DecodeForm(r.Body, v); err != nil {
			return badRequest(fmt.Errorf("invalid request form: %w", err))
		}
		if c, ok := v.(formCompacter); ok {
			c.compact()
		}
	} else if err := render.DecodeJSON(r.Body, v); err != nil {
		return badRequest(fmt.Errorf("invalid request body: %w", err))
	}
	if err := s.validate.Struct(v); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return badRequest(fmt.Errorf("invalid request: %w", err))
		}
		out := &ValidationError{}
		for _, fe := range verrs {
			out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
		return out
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_with", "required_unless":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "datetime":
		return "must be a date in YYYY-MM-DD form"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param()
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}
