package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atina-inc/atina-engine/pkg/llm"
	"github.com/atina-inc/atina-engine/pkg/models"
)

type managementFixture struct {
	svc      ManagementService
	dialogue *llm.MockDialogue
	taxonomy *fakeTaxonomyRepo
	tenant   *models.TenantConfig
	sess     *models.ConversationSession
}

func newManagementFixture(t *testing.T) *managementFixture {
	t.Helper()

	tenant := &models.TenantConfig{
		ID:              uuid.New(),
		CostCenterLabel: "property/unit",
		Categories:      []string{"Maintenance"},
		CostCenters:     []string{"Unit 1A"},
	}
	f := &managementFixture{
		dialogue: &llm.MockDialogue{},
		taxonomy: &fakeTaxonomyRepo{categories: tenant.Categories, costCenters: tenant.CostCenters},
		tenant:   tenant,
		sess:     models.NewConversationSession("+5215550001111", tenant.ID, "en"),
	}
	f.svc = NewManagementService(f.taxonomy, f.dialogue, zap.NewNop())
	return f
}

func (f *managementFixture) classify(intent *models.ManagementIntent) {
	f.dialogue.ClassifyFunc = func(ctx context.Context, language, userMessage string, categories, costCenters []string) (*models.ManagementIntent, error) {
		return intent, nil
	}
}

func TestManagement_Enter(t *testing.T) {
	f := newManagementFixture(t)

	reply := f.svc.Enter(f.tenant, f.sess)

	assert.True(t, f.sess.Managing)
	assert.Contains(t, reply, "⚙️")
	assert.Contains(t, reply, "Maintenance")
	assert.Contains(t, reply, "Unit 1A")
}

func TestManagement_List(t *testing.T) {
	f := newManagementFixture(t)
	f.classify(&models.ManagementIntent{Action: "list"})

	reply, err := f.svc.Handle(context.Background(), f.tenant, f.sess, "show me the list")
	require.NoError(t, err)

	assert.Contains(t, reply, "Maintenance")
	assert.Contains(t, reply, "Unit 1A")
	assert.Contains(t, reply, "Properties", "cost-center section uses the tenant's own term, pluralized")
}

func TestManagement_AddRequiresConfirmation(t *testing.T) {
	f := newManagementFixture(t)
	f.classify(&models.ManagementIntent{Action: "add", Kind: "category", Name: "Landscaping"})
	ctx := context.Background()

	reply, err := f.svc.Handle(ctx, f.tenant, f.sess, "add landscaping")
	require.NoError(t, err)

	assert.Contains(t, reply, "Landscaping")
	assert.Contains(t, reply, "(yes/no)")
	require.NotNil(t, f.sess.PendingManagement)
	assert.NotContains(t, f.taxonomy.categories, "Landscaping", "nothing changes before confirmation")

	reply, err = f.svc.Handle(ctx, f.tenant, f.sess, "yes")
	require.NoError(t, err)

	assert.Contains(t, reply, "added")
	assert.Contains(t, f.taxonomy.categories, "Landscaping")
	assert.Nil(t, f.sess.PendingManagement)
}

func TestManagement_PendingCancelledByNo(t *testing.T) {
	f := newManagementFixture(t)
	f.classify(&models.ManagementIntent{Action: "delete", Kind: "category", Name: "Maintenance"})
	ctx := context.Background()

	_, err := f.svc.Handle(ctx, f.tenant, f.sess, "remove maintenance")
	require.NoError(t, err)
	require.NotNil(t, f.sess.PendingManagement)

	reply, err := f.svc.Handle(ctx, f.tenant, f.sess, "no")
	require.NoError(t, err)

	assert.Contains(t, reply, "no changes")
	assert.Nil(t, f.sess.PendingManagement)
	assert.Contains(t, f.taxonomy.categories, "Maintenance")
}

func TestManagement_PendingUnclearAnswerReasks(t *testing.T) {
	f := newManagementFixture(t)
	f.classify(&models.ManagementIntent{Action: "add", Kind: "cost_center", Name: "Unit 9C"})
	ctx := context.Background()

	_, err := f.svc.Handle(ctx, f.tenant, f.sess, "add unit 9c")
	require.NoError(t, err)

	reply, err := f.svc.Handle(ctx, f.tenant, f.sess, "hmm what")
	require.NoError(t, err)

	assert.Contains(t, reply, "Unit 9C", "unclear answers repeat the confirmation question")
	require.NotNil(t, f.sess.PendingManagement)
	assert.NotContains(t, f.taxonomy.costCenters, "Unit 9C")
}

func TestManagement_DeleteUnknownName(t *testing.T) {
	f := newManagementFixture(t)
	f.classify(&models.ManagementIntent{Action: "delete", Kind: "category", Name: "Groceries"})
	ctx := context.Background()

	_, err := f.svc.Handle(ctx, f.tenant, f.sess, "remove groceries")
	require.NoError(t, err)

	reply, err := f.svc.Handle(ctx, f.tenant, f.sess, "yes")
	require.NoError(t, err)

	assert.Contains(t, reply, "couldn't find")
}

func TestManagement_Exit(t *testing.T) {
	f := newManagementFixture(t)
	f.sess.Managing = true
	f.classify(&models.ManagementIntent{Action: "exit"})

	reply, err := f.svc.Handle(context.Background(), f.tenant, f.sess, "exit")
	require.NoError(t, err)

	assert.False(t, f.sess.Managing)
	assert.Contains(t, reply, "leaving settings")
}

func TestManagement_ClassifierFailureFallsBack(t *testing.T) {
	f := newManagementFixture(t)
	f.dialogue.ClassifyFunc = func(ctx context.Context, language, userMessage string, categories, costCenters []string) (*models.ManagementIntent, error) {
		return nil, errors.New("model unavailable")
	}

	reply, err := f.svc.Handle(context.Background(), f.tenant, f.sess, "add something")
	require.NoError(t, err, "classification failure is not a turn failure")
	assert.Contains(t, reply, "didn't catch that")
}

func TestManagement_IncompleteIntentAsksForDetail(t *testing.T) {
	f := newManagementFixture(t)
	f.classify(&models.ManagementIntent{Action: "add", Kind: "category"})

	reply, err := f.svc.Handle(context.Background(), f.tenant, f.sess, "add a category")
	require.NoError(t, err)

	assert.Contains(t, reply, "What exactly")
	assert.Nil(t, f.sess.PendingManagement)
}
