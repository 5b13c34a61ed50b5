package validation

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/shrimptech/internal/domain"
)

// ValidateField checks value against rule. Only the first violated check is
// reported. name is used as the label when the rule has none.
func ValidateField(name, value string, rule Rule) domain.ValidationResult {
	if rule.Label == "" {
		rule.Label = name
	}

	err := validate.Var(value, rule.Tag())
	if err == nil {
		return domain.ValidationResult{Valid: true}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return domain.ValidationResult{Errors: []string{formatFieldError(rule, verrs[0])}}
	}
	return domain.ValidationResult{Errors: []string{rule.Label + " is not valid"}}
}

// ValidateContactForm validates every field of sub against ContactRules and
// concatenates the per-field errors in table order.
func ValidateContactForm(sub domain.ContactSubmission) domain.ValidationResult {
	return validateWith(ContactRules, sub)
}

// ValidateClientContact is ValidateContactForm with the Vietnamese mobile
// rule, used before a form leaves the client.
func ValidateClientContact(sub domain.ContactSubmission) domain.ValidationResult {
	return validateWith(ClientContactRules, sub)
}

func validateWith(rules []FieldRule, sub domain.ContactSubmission) domain.ValidationResult {
	values := map[string]string{
		"name":    sub.Name,
		"email":   sub.Email,
		"phone":   sub.Phone,
		"message": sub.Message,
		"company": sub.Company,
	}

	result := domain.ValidationResult{Valid: true}
	for _, fr := range rules {
		result.Merge(ValidateField(fr.Field, values[fr.Field], fr.Rule))
	}
	return result
}

// ValidateNewsletter validates a newsletter email address.
func ValidateNewsletter(email string) domain.ValidationResult {
	return ValidateField("email", email, EmailRule)
}

// NormalizeContact trims every field and lowercases the email.
func NormalizeContact(sub *domain.ContactSubmission) {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Email = normalizeEmail(sub.Email)
	sub.Phone = strings.TrimSpace(sub.Phone)
	sub.Company = strings.TrimSpace(sub.Company)
	sub.Message = strings.TrimSpace(sub.Message)
	sub.Source = strings.TrimSpace(sub.Source)
}

// NormalizeNewsletter trims and lowercases the email.
func NormalizeNewsletter(sub *domain.NewsletterSubscription) {
	sub.Email = normalizeEmail(sub.Email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
