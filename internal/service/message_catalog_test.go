package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maternal-risk-advisor/internal/domain"
)

// reminderKeywords are the phrases whose presence in a message has always
// triggered the prenatal monitoring reminder.
var reminderKeywords = map[domain.Topic][]string{
	domain.TopicBloodPressure: {"BP", "blood pressure"},
	domain.TopicBloodSugar:    {"sugar", "glucose"},
	domain.TopicDiabetes:      {"diabetes"},
	domain.TopicPregnancy:     {"pregnancy"},
}

func TestCatalog_TopicsAgreeWithKeywords(t *testing.T) {
	for _, catalog := range []*MessageCatalog{CoreCatalog(), ExtendedCatalog()} {
		for _, entry := range catalog.Entries() {
			for topic, keywords := range reminderKeywords {
				mentioned := false
				for _, keyword := range keywords {
					if strings.Contains(entry.Template.Text, keyword) {
						mentioned = true
					}
				}
				tagged := false
				for _, tag := range entry.Template.Topics {
					if tag == topic {
						tagged = true
					}
				}
				assert.Equal(t, mentioned, tagged, "%s %s %q topic %s", entry.Feature, entry.Tier, entry.Template.Text, topic)
			}
		}
	}
}

func TestCatalog_ExtendedIncludesCore(t *testing.T) {
	extended := ExtendedCatalog()
	for _, entry := range CoreCatalog().Entries() {
		template, ok := extended.Lookup(entry.Feature, entry.Tier)
		assert.True(t, ok)
		assert.Equal(t, entry.Template.Text, template.Text)
	}

	_, ok := CoreCatalog().Lookup(domain.FeatureBMI, domain.TierHigh)
	assert.False(t, ok, "extending must not mutate the core catalog")
}

func TestMessageTemplate_Render(t *testing.T) {
	template := MessageTemplate{Text: "BMI {value} is below normal (≤{boundary}) - increase caloric intake"}

	assert.Equal(t, "BMI 17.2 is below normal (≤18.5) - increase caloric intake", template.Render(17.2, 18.5))
	assert.Equal(t, "Check for hypoglycemia symptoms", MessageTemplate{Text: "Check for hypoglycemia symptoms"}.Render(3, 4))
}
