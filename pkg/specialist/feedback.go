package specialist

import (
	"context"

	"github.com/pagbank/agent-router/pkg/router"
	"github.com/pagbank/agent-router/pkg/session"
)

// feedbackCategoryKeywords maps each feedback category to the keywords that
// identify it (spec §4.7: "categorizes by {ui_ux, products, service}
// keyword map").
var feedbackCategoryKeywords = map[string][]string{
	"ui_ux":    {"aplicativo", "app", "tela", "layout", "travando", "difícil de usar"},
	"products": {"produto", "cartão", "conta", "seguro", "investimento", "juros"},
	"service":  {"atendimento", "atendente", "demora", "espera", "suporte"},
}

// categorizeFeedback checks categories in this fixed order so results stay
// deterministic when an utterance matches more than one category.
var feedbackCategoryOrder = []string{"ui_ux", "products", "service"}

// FeedbackCollector implements the Feedback Collector specialist (spec
// §4.7): categorizes the utterance and writes it as a long-term memory
// tagged "feedback" plus its category, for later aggregation.
type FeedbackCollector struct {
	Base
}

var _ router.SpecialistRunner = (*FeedbackCollector)(nil)

func (f *FeedbackCollector) Run(ctx context.Context, st *session.State, utterance string) (string, error) {
	text, err := f.respond(ctx, utterance)
	if err != nil {
		return "", err
	}

	category := categorizeFeedback(router.Normalize(utterance))
	if f.Memory != nil {
		tags := []string{"feedback"}
		if category != "" {
			tags = append(tags, category)
		}
		_, _ = f.Memory.AddUserMemory(ctx, st.CustomerID, utterance, tags)
	}

	return text + " Obrigado pelo seu feedback, isso nos ajuda a melhorar.", nil
}

// categorizeFeedback returns the first matching category in
// feedbackCategoryOrder, or "" if none match.
func categorizeFeedback(normalized string) string {
	for _, category := range feedbackCategoryOrder {
		if containsAny(normalized, feedbackCategoryKeywords[category]) {
			return category
		}
	}
	return ""
}
