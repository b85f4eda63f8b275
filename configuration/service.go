package configuration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/stevemurr/simple-config-server/store"
)

// MaxPort is the highest port a configuration may use.
const MaxPort = 19999

// FieldError describes one invalid property of a record.
type FieldError struct {
	Property string `json:"property"`
	Message  string `json:"message"`
}

// ValidationErrors is returned by Save when the record is invalid.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Property + ": " + fe.Message
	}
	return "invalid configuration: " + strings.Join(parts, ", ")
}

// fields is the validated view of a record.
type fields struct {
	Name     string   `json:"name" validate:"required"`
	Hostname string   `json:"hostname" validate:"required"`
	Username string   `json:"username" validate:"required"`
	Port     *float64 `json:"port" validate:"required,integral,gte=0,lte=19999"`
}

// Service validates records before they reach the repository.
type Service struct {
	repo     *Repository
	validate *validator.Validate
}

func NewService(repo *Repository) *Service {
	v := validator.New()
	v.RegisterValidation("integral", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return f == math.Trunc(f)
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return &Service{repo: repo, validate: v}
}

func (s *Service) Find(ctx context.Context, opts store.FindOptions) ([]store.Doc, error) {
	return s.repo.Find(ctx, opts)
}

func (s *Service) FindByID(ctx context.Context, name string) (store.Doc, bool, error) {
	return s.repo.FindByID(ctx, name)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *Service) Remove(ctx context.Context, name string) (bool, error) {
	return s.repo.Remove(ctx, name)
}

// Save validates rec and stores it. It reports whether an existing record
// was replaced.
func (s *Service) Save(ctx context.Context, rec store.Doc) (bool, error) {
	if err := s.Validate(rec); err != nil {
		return false, err
	}
	return s.repo.Save(ctx, rec)
}

// Validate returns ValidationErrors listing every invalid property, or nil.
func (s *Service) Validate(rec store.Doc) error {
	f := fields{
		Name:     text(rec["name"]),
		Hostname: text(rec["hostname"]),
		Username: text(rec["username"]),
	}
	if port, ok := number(rec["port"]); ok {
		f.Port = &port
	}

	err := s.validate.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		msg := "Missing value"
		if fe.Field() == "port" {
			msg = "Port number is invalid"
		}
		out = append(out, FieldError{Property: fe.Field(), Message: msg})
	}
	return out
}

// text returns the string form of v, or "" for values that count as
// missing: nil, false, zero and the empty string.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if !x {
			return ""
		}
	default:
		if n, ok := number(v); ok && n == 0 {
			return ""
		}
	}
	return fmt.Sprint(v)
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}
