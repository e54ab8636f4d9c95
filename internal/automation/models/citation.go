package models

import (
	"fmt"
	"net/url"
	"strings"

	dErrors "regengine/pkg/domain-errors"
)

// CitationType names the kind of evidence a citation points at.
type CitationType string

const (
	CitationDataDictionary CitationType = "data-dictionary"
	CitationGDPRArticle    CitationType = "gdpr-article"
	CitationPolicyTemplate CitationType = "policy-template"
	CitationPreviousDPIA   CitationType = "previous-dpia"
	CitationLegalBasis     CitationType = "legal-basis"
	CitationCompanyPolicy  CitationType = "company-policy"
)

var citationTypes = map[CitationType]struct{}{
	CitationDataDictionary: {},
	CitationGDPRArticle:    {},
	CitationPolicyTemplate: {},
	CitationPreviousDPIA:   {},
	CitationLegalBasis:     {},
	CitationCompanyPolicy:  {},
}

func (t CitationType) IsValid() bool {
	_, ok := citationTypes[t]
	return ok
}

// ParseCitationType accepts the lowercase wire form, ignoring surrounding space.
func ParseCitationType(s string) (CitationType, error) {
	t := CitationType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown citation type %q", s))
	}
	return t, nil
}

// Citation is a pointer to the evidence behind a step's conclusion.
// Citations are values: once built they are never mutated.
type Citation struct {
	Type        CitationType `json:"type"`
	Reference   string       `json:"reference"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
}

// NewCitation trims its inputs and validates the result.
func NewCitation(t CitationType, reference, description, rawURL string) (Citation, error) {
	c := Citation{
		Type:        t,
		Reference:   strings.TrimSpace(reference),
		Description: strings.TrimSpace(description),
		URL:         strings.TrimSpace(rawURL),
	}
	if err := c.Validate(); err != nil {
		return Citation{}, err
	}
	return c, nil
}

// Validate checks that the type is known, the reference is non-empty and any
// URL is an absolute http(s) URL.
func (c Citation) Validate() error {
	if !c.Type.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown citation type %q", c.Type))
	}
	if strings.TrimSpace(c.Reference) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "citation reference is required")
	}
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("citation url %q must be an absolute http(s) url", c.URL))
		}
	}
	return nil
}

// key identifies a citation for duplicate detection within one step.
func (c Citation) key() string {
	return string(c.Type) + "\x00" + c.Reference
}
