package campaign

import (
	"wacampaign/internal/domain"
	"wacampaign/internal/util"
)

// BuildPayload creates a template message for c, filling body parameters
// from the contact fields named by the template's variables.
func BuildPayload(tpl domain.TestTemplate, c domain.TestContact) domain.SendPayload {
	p := domain.SendPayload{
		MessagingProduct: "whatsapp",
		To:               util.NormalizePhone(c.Phone),
		Type:             "template",
		Template: domain.TemplatePayload{
			Name:     tpl.Name,
			Language: domain.LanguagePayload{Code: tpl.Language},
		},
	}
	if !tpl.HasVariables || len(tpl.Variables) == 0 {
		return p
	}
	params := make([]domain.ParameterPayload, 0, len(tpl.Variables))
	for _, v := range tpl.Variables {
		params = append(params, domain.ParameterPayload{Type: "text", Text: contactField(c, v)})
	}
	p.Template.Components = []domain.ComponentPayload{{Type: "body", Parameters: params}}
	return p
}

func contactField(c domain.TestContact, name string) string {
	switch name {
	case "name":
		return c.Name
	case "company":
		return c.Company
	case "email":
		return c.Email
	case "phone":
		return c.Phone
	default:
		return ""
	}
}

// RenderBody produces the text the recipient would see.
func RenderBody(tpl domain.TestTemplate, p domain.SendPayload) string {
	return util.RenderTemplate(tpl.Content, p.BodyTexts(), nil)
}
