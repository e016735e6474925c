package http

import (
	"fmt"
	"reflect"
	"strings"

	"bookhub/internal/book"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("source", validateSource)
	_ = validate.RegisterValidation("notblank", validateNotBlank)
	validate.RegisterStructValidation(validateBookPayload, bookPayload{})
}

// bookPayload is the POST /books body. INTERNAL payloads carry the whole
// book; provider payloads only name the external id.
type bookPayload struct {
	Source        string   `json:"source" validate:"omitempty,source"`
	ExternalID    string   `json:"externalId" validate:"max=200"`
	Title         string   `json:"title" validate:"max=300"`
	Subtitle      string   `json:"subtitle" validate:"max=300"`
	PublishedDate string   `json:"publishedDate" validate:"max=30"`
	Publisher     string   `json:"publisher" validate:"max=200"`
	Description   string   `json:"description"`
	Image         string   `json:"image" validate:"omitempty,url"`
	Authors       []string `json:"authors" validate:"dive,notblank,max=200"`
	Categories    []string `json:"categories" validate:"dive,notblank,max=200"`
}

func (p bookPayload) source() book.Source {
	if strings.TrimSpace(p.Source) == "" {
		return book.SourceInternal
	}
	src, err := book.ParseSource(p.Source)
	if err != nil {
		return book.SourceInternal
	}
	return src
}

func (p bookPayload) toSave() book.SavePayload {
	src := p.source()
	if src != book.SourceInternal {
		return book.SavePayload{Source: src, ExternalID: strings.TrimSpace(p.ExternalID)}
	}
	return book.SavePayload{
		Source: src,
		Book: book.Record{
			Title:          strings.TrimSpace(p.Title),
			Subtitle:       p.Subtitle,
			PublishedDate:  p.PublishedDate,
			Publisher:      p.Publisher,
			Description:    p.Description,
			Image:          p.Image,
			OriginalSource: book.SourceInternal,
			Authors:        p.Authors,
			Categories:     p.Categories,
		},
	}
}

func validateSource(fl validator.FieldLevel) bool {
	_, err := book.ParseSource(fl.Field().String())
	return err == nil
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateBookPayload(sl validator.StructLevel) {
	p := sl.Current().Interface().(bookPayload)
	if p.source() != book.SourceInternal {
		if strings.TrimSpace(p.ExternalID) == "" {
			sl.ReportError(p.ExternalID, "externalId", "ExternalID", "required", "")
		}
		return
	}
	if p.ExternalID != "" {
		sl.ReportError(p.ExternalID, "externalId", "ExternalID", "excluded", "")
	}
	if strings.TrimSpace(p.Title) == "" {
		sl.ReportError(p.Title, "title", "Title", "required", "")
	}
	if len(p.Authors) == 0 {
		sl.ReportError(p.Authors, "authors", "Authors", "min_one", "")
	}
	if len(p.Categories) == 0 {
		sl.ReportError(p.Categories, "categories", "Categories", "min_one", "")
	}
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func ValidateStruct(s any) []ValidationError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ValidationError{{Message: err.Error()}}
	}

	var errors []ValidationError
	for _, err := range verrs {
		field := err.Field()
		tag := err.Tag()
		param := err.Param()

		var message string
		switch tag {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "excluded":
			message = fmt.Sprintf("%s must be empty for INTERNAL books", field)
		case "min_one":
			message = fmt.Sprintf("%s needs at least one entry", field)
		case "notblank":
			message = fmt.Sprintf("%s cannot contain blank names", field)
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", field, param)
		case "url":
			message = fmt.Sprintf("%s must be a valid URL", field)
		case "source":
			message = fmt.Sprintf("%s must be one of INTERNAL, PROVIDER_A, PROVIDER_B", field)
		default:
			message = fmt.Sprintf("%s is invalid", field)
		}

		fieldName := strings.ToLower(field[:1]) + field[1:]
		if i := strings.IndexByte(fieldName, '['); i > 0 {
			fieldName = fieldName[:i]
		}
		errors = append(errors, ValidationError{
			Field:   fieldName,
			Message: message,
		})
	}

	return errors
}
