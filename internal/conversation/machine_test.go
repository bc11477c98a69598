package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"faqbot/internal/domain"
)

type fakeCatalog struct {
	categories []domain.CategoryOption
	faqs       map[string]domain.QAEntry
}

func (f *fakeCatalog) Categories() []domain.CategoryOption { return f.categories }

func (f *fakeCatalog) Category(id string) (domain.CategoryOption, bool) {
	for _, c := range f.categories {
		if c.ID == id {
			return c, true
		}
	}
	return domain.CategoryOption{}, false
}

func (f *fakeCatalog) FAQOptions(categoryID string) []domain.FAQOption {
	var out []domain.FAQOption
	for id, e := range f.faqs {
		if e.Category == categoryID {
			out = append(out, domain.FAQOption{ID: id, Question: e.Question})
		}
	}
	return out
}

func (f *fakeCatalog) FAQ(id string) (domain.QAEntry, bool) {
	e, ok := f.faqs[id]
	return e, ok
}

type fakeResolver struct {
	directive domain.Directive
	err       error
	query     string
	category  string
}

func (f *fakeResolver) Resolve(_ context.Context, query, category string) (domain.Directive, error) {
	f.query = query
	f.category = category
	return f.directive, f.err
}

type fakeIDs struct {
	mu    sync.Mutex
	count int
}

func (f *fakeIDs) InquiryID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return fmt.Sprintf("inq-%d", f.count)
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		categories: []domain.CategoryOption{
			{ID: "about", Name: "About", Description: "概要の説明です。"},
			{ID: "pricing", Name: "Pricing"},
		},
		faqs: map[string]domain.QAEntry{
			"faq_1": {ID: 1, Question: "Q1", Answer: "A1", Category: "about", Reference: "https://example.com", FAQID: "faq_1"},
		},
	}
}

func newTestMachine(t *testing.T) *Machine {
	t.Helper()
	m, err := NewMachine(testCatalog(), &fakeResolver{}, &fakeIDs{})
	require.NoError(t, err)
	return m
}

func sessionIn(state domain.State) *domain.ConversationSession {
	return &domain.ConversationSession{
		ConversationID: "conv-1",
		State:          state,
		CreatedAt:      time.Now(),
		LastActivityAt: time.Now(),
	}
}

func validForm() domain.InquiryForm {
	return domain.InquiryForm{
		Name:    "山田太郎",
		Company: "株式会社サンプル",
		Email:   "taro@example.com",
		Message: "資料を送ってください。",
	}
}

func TestNewMachine_ValidatesDependencies(t *testing.T) {
	_, err := NewMachine(nil, &fakeResolver{}, &fakeIDs{})
	require.Error(t, err)
	_, err = NewMachine(testCatalog(), nil, &fakeIDs{})
	require.Error(t, err)
	_, err = NewMachine(testCatalog(), &fakeResolver{}, nil)
	require.Error(t, err)
}

func TestApply_Welcome(t *testing.T) {
	m := newTestMachine(t)
	sess := sessionIn(domain.StateInitial)

	out, err := m.Apply(context.Background(), sess, domain.WelcomeEvent{})
	require.NoError(t, err)
	require.Equal(t, domain.StateCategorySelection, sess.State)
	require.Equal(t, domain.DirectiveCategorySelection, out.Directive.Kind)
	require.Len(t, out.Directive.Categories, 2)
	require.NotEmpty(t, out.Directive.Message)
}

func TestApply_WelcomeTwiceRejected(t *testing.T) {
	m := newTestMachine(t)
	sess := sessionIn(domain.StateCategorySelection)

	_, err := m.Apply(context.Background(), sess, domain.WelcomeEvent{})
	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
	require.Equal(t, domain.StateCategorySelection, sess.State)
}

func TestApply_SelectCategory(t *testing.T) {
	m := newTestMachine(t)
	sess := sessionIn(domain.StateCategorySelection)

	out, err := m.Apply(context.Background(), sess, domain.SelectCategoryEvent{CategoryID: "about"})
	require.NoError(t, err)
	require.Equal(t, domain.StateFAQSelection, sess.State)
	require.Equal(t, "about", sess.SelectedCategory)
	require.Equal(t, domain.DirectiveFAQSelection, out.Directive.Kind)
	require.True(t, out.Directive.ShowInquiryButton)
	require.Len(t, out.Directive.FAQs, 1)
	require.Contains(t, out.Directive.Message, "概要の説明です。")
}

func TestApply_SelectCategoryUnknown(t *testing.T) {
	m := newTestMachine(t)
	sess := sessionIn(domain.StateCategorySelection)

	_, err := m.Apply(context.Background(), sess, domain.SelectCategoryEvent{CategoryID: "missing"})
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "category", notFound.Kind)
	// Guard failure leaves the session phase untouched.
	require.Equal(t, domain.StateCategorySelection, sess.State)
	require.Empty(t, sess.SelectedCategory)
}

func TestApply_SelectCategoryWhileBrowsingFAQs(t *testing.T) {
	m := newTestMachine(t)
	sess := sessionIn(domain.StateFAQSelection)

	_, err := m.Apply(context.Background(), sess, domain.SelectCategoryEvent{CategoryID: "pricing"})
	require.NoError(t, err)
	require.Equal(t, "pricing", sess.SelectedCategory)
}

func TestApply_SelectCategoryFromInitialRejected(t *testing.T) {
	m := newTestMachine(t)
	sess := sessionIn(domain.StateInitial)

	_, err := m.Apply(context.Background(), sess, domain.SelectCategoryEvent{CategoryID: "about"})
	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
}

func TestApply_SelectFAQ(t *testing.T) {
	m := newTestMachine(t)
	sess := sessionIn(domain.StateFAQSelection)

	out, err := m.Apply(context.Background(), sess, domain.SelectFAQEvent{FAQID: "faq_1"})
	require.NoError(t, err)
	require.Equal(t, domain.StateFAQSelection, sess.State)
	require.Equal(t, "faq_1", sess.SelectedFAQID)
	require.Equal(t, domain.DirectiveFAQAnswer, out.Directive.Kind)
	require.Equal(t, "A1", out.Directive.Message)
	require.Equal(t, "https://example.com", out.Directive.SourceLabel)
	require.True(t, out.Directive.ShowMoreQuestions)
	require.True(t, out.Directive.ShowInquiryButton)
}

func TestApply_SelectFAQUnknown(t *testing.T) {
	m := newTestMachine(t)
	sess := sessionIn(domain.StateFAQSelection)

	_, err := m.Apply(context.Background(), sess, domain.SelectFAQEvent{FAQID: "missing"})
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "faq", notFound.Kind)
	require.Empty(t, sess.SelectedFAQID)
}

func TestApply_FreeTextKeepsState(t *testing.T) {
	resolver := &fakeResolver{directive: domain.Directive{
		Kind:       domain.DirectiveSearchResult,
		Message:    "answer",
		Confidence: 0.92,
	}}
	m, err := NewMachine(testCatalog(), resolver, &fakeIDs{})
	require.NoError(t, err)

	for _, state := range []domain.State{
		domain.StateInitial,
		domain.StateCategorySelection,
		domain.StateFAQSelection,
		domain.StateInquiryForm,
	} {
		sess := sessionIn(state)
		out, err := m.Apply(context.Background(), sess, domain.FreeTextQueryEvent{Query: "料金は？"})
		require.NoError(t, err, "state %s", state)
		require.Equal(t, state, sess.State, "state %s", state)
		require.True(t, out.Directive.ShowFeedback)
		require.True(t, out.Directive.ShowInquiryButton)
	}
}

func TestApply_FreeTextUsesSelectedCategory(t *testing.T) {
	resolver := &fakeResolver{}
	m, err := NewMachine(testCatalog(), resolver, &fakeIDs{})
	require.NoError(t, err)

	sess := sessionIn(domain.StateFAQSelection)
	sess.SelectedCategory = "pricing"
	_, err = m.Apply(context.Background(), sess, domain.FreeTextQueryEvent{Query: "いくら？"})
	require.NoError(t, err)
	require.Equal(t, "pricing", resolver.category)

	// An explicit category on the event wins.
	_, err = m.Apply(context.Background(), sess, domain.FreeTextQueryEvent{Query: "いくら？", Category: "about"})
	require.NoError(t, err)
	require.Equal(t, "about", resolver.category)
}

func TestApply_FreeTextResolverErrorPropagates(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("boom")}
	m, err := NewMachine(testCatalog(), resolver, &fakeIDs{})
	require.NoError(t, err)

	sess := sessionIn(domain.StateCategorySelection)
	before := sess.InteractionCount
	_, err = m.Apply(context.Background(), sess, domain.FreeTextQueryEvent{Query: "q"})
	require.Error(t, err)
	require.Equal(t, before, sess.InteractionCount)
}

func TestApply_StartInquiry(t *testing.T) {
	m := newTestMachine(t)
	sess := sessionIn(domain.StateCategorySelection)

	out, err := m.Apply(context.Background(), sess, domain.StartInquiryEvent{})
	require.NoError(t, err)
	require.Equal(t, domain.StateInquiryForm, sess.State)
	require.Equal(t, domain.DirectiveInquiryForm, out.Directive.Kind)
}

func TestApply_SubmitInquiry(t *testing.T) {
	m := newTestMachine(t)
	sess := sessionIn(domain.StateInquiryForm)

	out, err := m.Apply(context.Background(), sess, domain.SubmitInquiryEvent{Form: validForm()})
	require.NoError(t, err)
	require.Equal(t, domain.StateCompleted, sess.State)
	require.Equal(t, domain.DirectiveInquiryCompleted, out.Directive.Kind)
	require.Equal(t, "inq-1", out.Directive.InquiryID)
	require.Equal(t, estimatedResponseTime, out.Directive.EstimatedResponseTime)
	require.NotNil(t, out.Inquiry)
	require.Equal(t, "conv-1", out.Inquiry.ConversationID)
	require.Equal(t, "taro@example.com", out.Inquiry.Email)
}

func TestApply_SubmitInquiryValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.InquiryForm)
		fields []string
	}{
		{name: "missing name", mutate: func(f *domain.InquiryForm) { f.Name = " " }, fields: []string{"name"}},
		{name: "missing company", mutate: func(f *domain.InquiryForm) { f.Company = "" }, fields: []string{"company"}},
		{name: "bad email", mutate: func(f *domain.InquiryForm) { f.Email = "not-an-address" }, fields: []string{"email"}},
		{name: "missing message", mutate: func(f *domain.InquiryForm) { f.Message = "" }, fields: []string{"inquiry"}},
		{name: "everything missing", mutate: func(f *domain.InquiryForm) { *f = domain.InquiryForm{} }, fields: []string{"name", "company", "email", "inquiry"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestMachine(t)
			sess := sessionIn(domain.StateInquiryForm)
			form := validForm()
			tc.mutate(&form)

			_, err := m.Apply(context.Background(), sess, domain.SubmitInquiryEvent{Form: form})
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.Equal(t, tc.fields, validationErr.Fields)
			// Rejected submission keeps the form open.
			require.Equal(t, domain.StateInquiryForm, sess.State)
		})
	}
}

func TestApply_CompletedAcceptsOnlyRestart(t *testing.T) {
	m := newTestMachine(t)
	events := []domain.Event{
		domain.WelcomeEvent{},
		domain.SelectCategoryEvent{CategoryID: "about"},
		domain.SelectFAQEvent{FAQID: "faq_1"},
		domain.FreeTextQueryEvent{Query: "q"},
		domain.StartInquiryEvent{},
		domain.SubmitInquiryEvent{Form: validForm()},
	}
	for _, ev := range events {
		sess := sessionIn(domain.StateCompleted)
		_, err := m.Apply(context.Background(), sess, ev)
		var transitionErr *TransitionError
		require.ErrorAs(t, err, &transitionErr, "event %T", ev)
		require.Equal(t, domain.StateCompleted, sess.State, "event %T", ev)
	}

	sess := sessionIn(domain.StateCompleted)
	sess.SelectedCategory = "about"
	out, err := m.Apply(context.Background(), sess, domain.RestartEvent{})
	require.NoError(t, err)
	require.Equal(t, domain.StateCategorySelection, sess.State)
	require.Empty(t, sess.SelectedCategory)
	require.Equal(t, domain.DirectiveCategorySelection, out.Directive.Kind)
}

func TestApply_GuardFailureStillTouchesActivity(t *testing.T) {
	m := newTestMachine(t)
	later := time.Now().Add(time.Hour)
	m.now = func() time.Time { return later }

	sess := sessionIn(domain.StateCompleted)
	_, err := m.Apply(context.Background(), sess, domain.StartInquiryEvent{})
	require.Error(t, err)
	require.Equal(t, later, sess.LastActivityAt)
}

func TestConcurrentSubmitInquiry_SingleAcceptance(t *testing.T) {
	m := newTestMachine(t)
	store := NewStore(time.Hour, zap.NewNop())

	require.NoError(t, store.TransactOrCreate("conv-1", func(sess *domain.ConversationSession) error {
		sess.State = domain.StateInquiryForm
		return nil
	}))

	const workers = 8
	accepted := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Transact("conv-1", func(sess *domain.ConversationSession) error {
				out, err := m.Apply(context.Background(), sess, domain.SubmitInquiryEvent{Form: validForm()})
				if err == nil {
					accepted <- out.Directive.InquiryID
				}
				return err
			})
		}()
	}
	wg.Wait()
	close(accepted)

	var ids []string
	for id := range accepted {
		ids = append(ids, id)
	}
	require.Len(t, ids, 1, "exactly one submission must be accepted")

	sess, ok := store.Get("conv-1")
	require.True(t, ok)
	require.Equal(t, domain.StateCompleted, sess.State)
}
