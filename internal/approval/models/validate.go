package models

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"unicode/utf8"

	dErrors "eventdesk/pkg/domain-errors"
)

const (
	eventNameMinLen = 3
	eventNameMaxLen = 200
	locationMaxLen  = 150
	commentMinLen   = 1
	commentMaxLen   = 2000
)

type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

func (f fieldErrors) toError() error {
	if len(f) == 0 {
		return nil
	}
	details := make(map[string]any, len(f))
	for field, msg := range f {
		details[field] = msg
	}
	return dErrors.New(dErrors.CodeValidation, "request validation failed").
		WithDetails(dErrors.Details{"fields": details})
}

// ValidateSubmitInput normalizes and validates a submission payload. On
// failure the returned error carries a per-field message map in its details
// under the "fields" key.
func ValidateSubmitInput(in SubmitRequestInput) (SubmitRequestInput, error) {
	errs := fieldErrors{}

	in.EventName = strings.TrimSpace(in.EventName)
	if l := utf8.RuneCountInString(in.EventName); l < eventNameMinLen || l > eventNameMaxLen {
		errs.add("eventName", fmt.Sprintf("Event name must be between %d and %d characters", eventNameMinLen, eventNameMaxLen))
	}

	in.EventWebsite = strings.TrimSpace(in.EventWebsite)
	if u, err := url.Parse(in.EventWebsite); err != nil || u.Scheme != "https" || u.Host == "" {
		errs.add("eventWebsite", "Event website must be a valid https URL")
	}

	if !in.Role.Valid() {
		errs.add("role", "Role must be one of speaker, organizer, assistant")
	}
	if !in.TransportationMode.Valid() {
		errs.add("transportationMode", "Transportation mode must be one of air, rail, car, bus, other")
	}

	in.Origin = strings.TrimSpace(in.Origin)
	if l := utf8.RuneCountInString(in.Origin); l < 1 || l > locationMaxLen {
		errs.add("origin", fmt.Sprintf("Origin must be between 1 and %d characters", locationMaxLen))
	}
	in.Destination = strings.TrimSpace(in.Destination)
	if l := utf8.RuneCountInString(in.Destination); l < 1 || l > locationMaxLen {
		errs.add("destination", fmt.Sprintf("Destination must be between 1 and %d characters", locationMaxLen))
	}

	validateCostEstimate(in.CostEstimate, errs)

	if err := errs.toError(); err != nil {
		return SubmitRequestInput{}, err
	}
	return in, nil
}

func validateCostEstimate(c CostEstimate, errs fieldErrors) {
	components := []struct {
		field string
		value float64
	}{
		{"costEstimate.registration", c.Registration},
		{"costEstimate.travel", c.Travel},
		{"costEstimate.hotels", c.Hotels},
		{"costEstimate.meals", c.Meals},
		{"costEstimate.other", c.Other},
	}
	for _, comp := range components {
		if comp.value < 0 {
			errs.add(comp.field, "Cost must be zero or greater")
		}
	}

	if utf8.RuneCountInString(c.CurrencyCode) != 3 {
		errs.add("costEstimate.currencyCode", "Currency code must be a 3-letter ISO code")
	}

	// Amounts arrive as decimal floats; compare in integer cents so inputs
	// like 100.10 + 200.20 = 300.30 are not rejected over binary rounding.
	sumCents := cents(c.Sum())
	if sumCents <= 0 {
		errs.add("costEstimate.total", "At least one cost category must be greater than zero")
	} else if cents(c.Total) != sumCents {
		errs.add("costEstimate.total", "Total must equal the sum of all cost categories")
	}
}

func cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// ValidateDecisionInput validates a decision payload. A comment is required
// for both approvals and rejections.
func ValidateDecisionInput(in DecisionInput) (DecisionInput, error) {
	errs := fieldErrors{}

	if !in.DecisionType.Valid() {
		errs.add("decisionType", "Decision type must be approved or rejected")
	}

	in.Comment = strings.TrimSpace(in.Comment)
	if l := utf8.RuneCountInString(in.Comment); l < commentMinLen || l > commentMaxLen {
		errs.add("comment", fmt.Sprintf("Comment must be between %d and %d characters", commentMinLen, commentMaxLen))
	}

	if in.Version < 1 {
		errs.add("version", "Version must be a positive integer")
	}

	if err := errs.toError(); err != nil {
		return DecisionInput{}, err
	}
	return in, nil
}
