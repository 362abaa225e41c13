package fixtures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wacampaign/internal/domain"
	"wacampaign/internal/util"
)

func TestValidContactsAreTheThreeNamedOnes(t *testing.T) {
	var names []string
	for _, c := range ValidContacts() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Naveen", "Santhi", "Prakash"}, names)
}

func TestInvalidContactsFailValidator(t *testing.T) {
	for _, c := range Contacts() {
		if c.IsInvalid {
			assert.False(t, util.ValidatePhoneNumber(c.Phone), c.Phone)
		} else {
			assert.True(t, util.ValidatePhoneNumber(c.Phone), c.Phone)
		}
	}
}

func TestCatalogCopiesAreIsolated(t *testing.T) {
	cs := Contacts()
	cs[0].Name = "changed"
	c, ok := FindContact(cs[0].Phone)
	require.True(t, ok)
	assert.Equal(t, "Naveen", c.Name)

	ts := Templates()
	ts[1].Variables[0] = "changed"
	assert.Equal(t, []string{"name", "company"}, MustTemplate("welcome_message").Variables)
}

func TestFindContactNormalizes(t *testing.T) {
	c, ok := FindContact("+91 99999 99999")
	require.True(t, ok)
	assert.True(t, c.IsBlocked)
}

func TestTemplateStatuses(t *testing.T) {
	assert.Equal(t, domain.TemplateApproved, MustTemplate("hello_world").Status)
	assert.Equal(t, domain.TemplatePending, MustTemplate("promo_offer").Status)
	assert.Equal(t, domain.TemplateRejected, MustTemplate("unverified_template").Status)
	_, ok := FindTemplate("nope")
	assert.False(t, ok)
}
