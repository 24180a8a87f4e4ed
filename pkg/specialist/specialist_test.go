package specialist_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagbank/agent-router/pkg/config"
	"github.com/pagbank/agent-router/pkg/knowledge"
	"github.com/pagbank/agent-router/pkg/llmclient"
	"github.com/pagbank/agent-router/pkg/protocol"
	"github.com/pagbank/agent-router/pkg/session"
	"github.com/pagbank/agent-router/pkg/specialist"
)

// fakeLLM is a canned llmclient.Client used by every specialist test.
type fakeLLM struct {
	resp string
	err  error
}

func (f *fakeLLM) Complete(context.Context, llmclient.Request) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.resp, nil
}

func (f *fakeLLM) Stream(context.Context, llmclient.Request, func(string)) error { return nil }

// fakeKnowledge lets tests assert the filter a specialist searched with.
type fakeKnowledge struct {
	lastFilter knowledge.Filter
	hits       []knowledge.Result
	err        error
}

func (f *fakeKnowledge) Search(_ context.Context, _ string, filter knowledge.Filter, _ int) ([]knowledge.Result, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

// fakeMemory records every AddUserMemory call.
type fakeMemory struct {
	calls []memCall
}

type memCall struct {
	userID  string
	content string
	tags    []string
}

func (f *fakeMemory) AddUserMemory(_ context.Context, userID, content string, tags []string) (string, error) {
	f.calls = append(f.calls, memCall{userID, content, tags})
	return "mem-1", nil
}

func baseDoc(agentID string) *config.Document {
	return &config.Document{
		Agent:        config.AgentIdentity{AgentID: agentID},
		Model:        config.ModelConfig{ID: "gpt-4o-mini", Temperature: 0.3, MaxTokens: 300},
		Instructions: "instruções de " + agentID,
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCards_SecurityKeywordTriggersEscalation(t *testing.T) {
	c := &specialist.Cards{Base: specialist.Base{Doc: baseDoc("cards"), LLM: &fakeLLM{resp: "claro, posso ajudar"}}}
	st := session.New("sess-1", "cust-1")

	out, err := c.Run(context.Background(), st, "quero bloquear meu cartão, foi roubado")
	require.NoError(t, err)
	assert.Contains(t, out, "transferir")
	assert.True(t, st.HasEscalationFlag("card_security_verification"))
	assert.True(t, st.AwaitingHuman)
}

func TestCards_NonSecurityUtteranceDoesNotEscalate(t *testing.T) {
	c := &specialist.Cards{Base: specialist.Base{Doc: baseDoc("cards"), LLM: &fakeLLM{resp: "seu limite é R$1000"}}}
	st := session.New("sess-1", "cust-1")

	out, err := c.Run(context.Background(), st, "qual meu limite de cartão?")
	require.NoError(t, err)
	assert.Equal(t, "seu limite é R$1000", out)
	assert.False(t, st.AwaitingHuman)
}

func TestCards_KnowledgeUnavailable_StillRespondsWithApologyPrefix(t *testing.T) {
	kb := &fakeKnowledge{err: knowledge.ErrUnavailable}
	c := &specialist.Cards{Base: specialist.Base{
		Doc:       baseDoc("cards"),
		LLM:       &fakeLLM{resp: "seu limite é R$1000"},
		Knowledge: kb,
	}}
	st := session.New("sess-1", "cust-1")

	out, err := c.Run(context.Background(), st, "qual meu limite de cartão?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Não consegui consultar nossa base de conhecimento agora"))
	assert.Contains(t, out, "seu limite é R$1000")
}

func TestDigitalAccount_MentionsFreePixAndCDI(t *testing.T) {
	d := specialist.NewDigitalAccount(specialist.Base{Doc: baseDoc("digital-account"), LLM: &fakeLLM{resp: "ok"}})
	st := session.New("sess-1", "cust-1")

	out, err := d.Run(context.Background(), st, "quero fazer um pix e ver o rendimento do cdb")
	require.NoError(t, err)
	assert.Contains(t, out, "gratuitas")
	assert.Contains(t, out, "100% do CDI")
}

func TestDigitalAccount_WarnsOutsideOperatingHours(t *testing.T) {
	d := specialist.NewDigitalAccount(specialist.Base{
		Doc:   baseDoc("digital-account"),
		LLM:   &fakeLLM{resp: "ok"},
		Clock: fixedClock(time.Date(2026, 7, 31, 23, 0, 0, 0, time.UTC)),
	})
	st := session.New("sess-1", "cust-1")

	out, err := d.Run(context.Background(), st, "preciso de ajuda com minha conta")
	require.NoError(t, err)
	assert.Contains(t, out, "8h às 20h")
}

func TestInvestments_AlwaysAppendsComplianceDisclaimer(t *testing.T) {
	i := &specialist.Investments{Base: specialist.Base{Doc: baseDoc("investments"), LLM: &fakeLLM{resp: "temos um bom CDB"}}}
	st := session.New("sess-1", "cust-1")

	out, err := i.Run(context.Background(), st, "quero investir em cdb")
	require.NoError(t, err)
	assert.Contains(t, out, "não é uma recomendação de investimento")
	assert.Contains(t, out, "FGC")
}

func TestCredit_DetectsScamKeywordAndNeverCallsLLM(t *testing.T) {
	llm := &fakeLLM{err: errors.New("should not be called")}
	c := &specialist.Credit{Base: specialist.Base{Doc: baseDoc("credit"), LLM: llm}}
	st := session.New("sess-1", "cust-1")

	out, err := c.Run(context.Background(), st, "preciso de pagamento antecipado para liberar o empréstimo")
	require.NoError(t, err)
	assert.Contains(t, out, "golpe")
	assert.True(t, st.HasEscalationFlag("fraud_suspected"))
}

func TestCredit_SanitizesGuaranteedApprovalClaims(t *testing.T) {
	c := &specialist.Credit{Base: specialist.Base{Doc: baseDoc("credit"), LLM: &fakeLLM{resp: "Você tem aprovação garantida!"}}}
	st := session.New("sess-1", "cust-1")

	out, err := c.Run(context.Background(), st, "quero um empréstimo consignado")
	require.NoError(t, err)
	assert.NotContains(t, out, "aprovação garantida")
	assert.Contains(t, out, "não pode ser garantida")
}

func TestInsurance_MentionsDrawAndHealthAnchors(t *testing.T) {
	i := &specialist.Insurance{Base: specialist.Base{Doc: baseDoc("insurance"), LLM: &fakeLLM{resp: "ok"}}}
	st := session.New("sess-1", "cust-1")

	out, err := i.Run(context.Background(), st, "o seguro participa de sorteio e tem plano de saúde?")
	require.NoError(t, err)
	assert.Contains(t, out, "R$20.000")
	assert.Contains(t, out, "R$24,90")
}

func TestTechnicalEscalation_GeneratesProtocolAndLogsMemory(t *testing.T) {
	mem := &fakeMemory{}
	te := &specialist.TechnicalEscalation{Base: specialist.Base{
		Doc:       baseDoc("technical-escalation"),
		LLM:       &fakeLLM{resp: "sinto muito pelo transtorno"},
		Memory:    mem,
		Protocols: protocol.NewGenerator(),
		Clock:     fixedClock(time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)),
	}}
	st := session.New("sess-1", "cust-1")

	out, err := te.Run(context.Background(), st, "o app travou na tela branca")
	require.NoError(t, err)
	assert.Contains(t, out, "TECH-20260731100000-")
	require.Len(t, st.Protocols, 1)
	assert.Contains(t, st.Protocols[0], "TECH-")
	require.Len(t, mem.calls, 1)
	assert.Equal(t, []string{"technical_issue"}, mem.calls[0].tags)
}

func TestFeedbackCollector_CategorizesAndTagsMemory(t *testing.T) {
	mem := &fakeMemory{}
	fc := &specialist.FeedbackCollector{Base: specialist.Base{
		Doc:    baseDoc("feedback-collector"),
		LLM:    &fakeLLM{resp: "obrigado"},
		Memory: mem,
	}}
	st := session.New("sess-1", "cust-1")

	_, err := fc.Run(context.Background(), st, "o aplicativo está travando na tela de login")
	require.NoError(t, err)

	require.Len(t, mem.calls, 1)
	assert.Contains(t, mem.calls[0].tags, "feedback")
	assert.Contains(t, mem.calls[0].tags, "ui_ux")
}

func TestFeedbackCollector_NoCategoryStillTagsFeedback(t *testing.T) {
	mem := &fakeMemory{}
	fc := &specialist.FeedbackCollector{Base: specialist.Base{
		Doc:    baseDoc("feedback-collector"),
		LLM:    &fakeLLM{resp: "obrigado"},
		Memory: mem,
	}}
	st := session.New("sess-1", "cust-1")

	_, err := fc.Run(context.Background(), st, "só queria dizer algo aleatório")
	require.NoError(t, err)

	require.Len(t, mem.calls, 1)
	assert.Equal(t, []string{"feedback"}, mem.calls[0].tags)
}

func TestHumanHandoff_EmitsSummaryProtocolAndClosesSession(t *testing.T) {
	hh := &specialist.HumanHandoff{Base: specialist.Base{
		Doc:       baseDoc("human-handoff"),
		Protocols: protocol.NewGenerator(),
		Clock:     fixedClock(time.Date(2026, 7, 31, 12, 30, 0, 0, time.UTC)),
	}}
	st := session.New("sess-1", "cust-1")
	st.SetTopic("cartao")

	out, err := hh.Run(context.Background(), st, "quero falar com um humano")
	require.NoError(t, err)
	assert.Contains(t, out, "PGB-20260731123000-")
	assert.Contains(t, out, "Sessão sess-1")
	assert.True(t, st.Resolved)
	assert.True(t, st.AwaitingHuman)
	require.Len(t, st.Protocols, 1)
}

func TestBase_FoldsKnowledgeHitsIntoPrompt(t *testing.T) {
	kn := &fakeKnowledge{hits: []knowledge.Result{{Content: "PIX é gratuito na conta PagBank"}}}
	llm := &fakeLLM{resp: "ok"}
	d := specialist.NewDigitalAccount(specialist.Base{
		Doc:       baseDoc("digital-account"),
		LLM:       llm,
		Knowledge: kn,
	})
	d.Doc.Knowledge = config.KnowledgeFilter{BusinessUnit: "accounts", Audience: []string{"retail"}}

	st := session.New("sess-1", "cust-1")
	_, err := d.Run(context.Background(), st, "quero saber sobre pix")
	require.NoError(t, err)
	assert.Equal(t, "accounts", kn.lastFilter.BusinessUnit)
	assert.Equal(t, []string{"retail"}, kn.lastFilter.Audience)
}
