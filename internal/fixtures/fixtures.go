// Package fixtures holds the static contact and template catalogs the
// simulation treats as ground truth.
package fixtures

import (
	"wacampaign/internal/domain"
	"wacampaign/internal/util"
)

const (
	BlockedPhone  = "919999999999"
	OptedOutPhone = "918888888888"
	InvalidPhone  = "12345"
)

var contacts = []domain.TestContact{
	{Phone: "919876543210", Name: "Naveen", Email: "naveen@example.com", Company: "Acme Corp"},
	{Phone: "919876543211", Name: "Santhi", Email: "santhi@example.com", Company: "Globex"},
	{Phone: "919876543212", Name: "Prakash", Email: "prakash@example.com", Company: "Initech"},
	{Phone: InvalidPhone, Name: "Invalid Number", IsInvalid: true},
	{Phone: BlockedPhone, Name: "Blocked User", IsBlocked: true},
	{Phone: OptedOutPhone, Name: "Opted Out User", Email: "optout@example.com", IsOptedOut: true},
}

var templates = []domain.TestTemplate{
	{
		ID: "tpl_hello_world", Name: "hello_world", Status: domain.TemplateApproved,
		Language: "en_US", Category: "UTILITY",
		Content: "Hello World! Welcome to WhatsApp Business.",
	},
	{
		ID: "tpl_welcome_message", Name: "welcome_message", Status: domain.TemplateApproved,
		Language: "en_US", Category: "MARKETING",
		Content:      "Hi {{1}}, thanks for joining us from {{2}}!",
		HasVariables: true, Variables: []string{"name", "company"},
	},
	{
		ID: "tpl_promo_offer", Name: "promo_offer", Status: domain.TemplatePending,
		Language: "en_US", Category: "MARKETING",
		Content: "Get 20% off this week only!",
	},
	{
		ID: "tpl_unverified_template", Name: "unverified_template", Status: domain.TemplateRejected,
		Language: "en_US", Category: "MARKETING",
		Content: "This template was rejected during review.",
	},
}

// Contacts returns a copy of the full contact catalog.
func Contacts() []domain.TestContact {
	out := make([]domain.TestContact, len(contacts))
	copy(out, contacts)
	return out
}

// ValidContacts returns contacts carrying no edge-case flag.
func ValidContacts() []domain.TestContact {
	var out []domain.TestContact
	for _, c := range contacts {
		if !c.IsInvalid && !c.IsBlocked && !c.IsOptedOut {
			out = append(out, c)
		}
	}
	return out
}

func Templates() []domain.TestTemplate {
	out := make([]domain.TestTemplate, len(templates))
	for i, t := range templates {
		t.Variables = append([]string(nil), t.Variables...)
		out[i] = t
	}
	return out
}

func FindContact(phone string) (domain.TestContact, bool) {
	p := util.NormalizePhone(phone)
	for _, c := range contacts {
		if c.Phone == p {
			return c, true
		}
	}
	return domain.TestContact{}, false
}

func FindTemplate(name string) (domain.TestTemplate, bool) {
	for _, t := range templates {
		if t.Name == name {
			t.Variables = append([]string(nil), t.Variables...)
			return t, true
		}
	}
	return domain.TestTemplate{}, false
}

func MustTemplate(name string) domain.TestTemplate {
	t, ok := FindTemplate(name)
	if !ok {
		panic("fixtures: unknown template " + name)
	}
	return t
}
