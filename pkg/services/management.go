package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/atina-inc/atina-engine/pkg/apperrors"
	"github.com/atina-inc/atina-engine/pkg/llm"
	"github.com/atina-inc/atina-engine/pkg/models"
	"github.com/atina-inc/atina-engine/pkg/repositories"
)

// ManagementService handles the settings mode where users edit their
// category and cost-center taxonomies by chat. Every mutation requires an
// explicit confirmation turn before it executes.
type ManagementService interface {
	// Enter switches the session into settings mode and returns the
	// welcome message with the current lists.
	Enter(tenant *models.TenantConfig, sess *models.ConversationSession) string
	Handle(ctx context.Context, tenant *models.TenantConfig, sess *models.ConversationSession, text string) (string, error)
}

type managementService struct {
	taxonomyRepo repositories.TaxonomyRepository
	dialogue     llm.DialogueGenerator
	logger       *zap.Logger
}

// NewManagementService creates a ManagementService.
func NewManagementService(taxonomyRepo repositories.TaxonomyRepository, dialogue llm.DialogueGenerator, logger *zap.Logger) ManagementService {
	return &managementService{
		taxonomyRepo: taxonomyRepo,
		dialogue:     dialogue,
		logger:       logger.Named("management"),
	}
}

var _ ManagementService = (*managementService)(nil)

func (s *managementService) Enter(tenant *models.TenantConfig, sess *models.ConversationSession) string {
	sess.Managing = true
	sess.PendingManagement = nil

	intro := msg(sess.Language,
		"⚙️ Modo configuración. Puedes agregar o borrar elementos, o decir \"salir\".\n\n",
		"⚙️ Settings mode. You can add or remove items, or say \"exit\".\n\n")
	return intro + s.describeTaxonomies(tenant, sess.Language)
}

// msg picks the Spanish or English variant by session language.
func msg(language, es, en string) string {
	if strings.HasPrefix(language, "es") {
		return es
	}
	return en
}

func (s *managementService) Handle(ctx context.Context, tenant *models.TenantConfig, sess *models.ConversationSession, text string) (string, error) {
	if sess.PendingManagement != nil {
		return s.resolvePending(ctx, tenant, sess, text)
	}

	intent, err := s.dialogue.ClassifyManagement(ctx, sess.Language, text, tenant.Categories, tenant.CostCenters)
	if err != nil {
		s.logger.Error("Management classification failed", zap.Error(err))
		return msg(sess.Language,
			"No entendí. Puedes decir por ejemplo: \"agregar categoría Mantenimiento\", \"ver lista\" o \"salir\".",
			"I didn't catch that. Try e.g. \"add category Maintenance\", \"show list\" or \"exit\"."), nil
	}

	switch intent.Action {
	case "list":
		return s.describeTaxonomies(tenant, sess.Language), nil

	case "add", "delete":
		if intent.Name == "" || (intent.Kind != "category" && intent.Kind != "cost_center") {
			if intent.Message != "" {
				return intent.Message, nil
			}
			return msg(sess.Language, "¿Qué quieres agregar o borrar exactamente?", "What exactly should I add or remove?"), nil
		}
		sess.PendingManagement = &models.ManagementAction{
			Action: intent.Action,
			Kind:   intent.Kind,
			Name:   intent.Name,
		}
		return s.confirmQuestion(tenant, sess.Language, sess.PendingManagement), nil

	case "exit":
		sess.Managing = false
		sess.PendingManagement = nil
		return msg(sess.Language,
			"Listo, salimos de configuración. Mándame un recibo cuando quieras.",
			"Done, leaving settings. Send me a receipt whenever you're ready."), nil

	default:
		if intent.Message != "" {
			return intent.Message, nil
		}
		return msg(sess.Language,
			"Puedo agregar o borrar categorías, mostrar la lista, o salir.",
			"I can add or remove items, show the list, or exit."), nil
	}
}

func (s *managementService) resolvePending(ctx context.Context, tenant *models.TenantConfig, sess *models.ConversationSession, text string) (string, error) {
	pending := sess.PendingManagement

	if IsNegative(text) {
		sess.PendingManagement = nil
		return msg(sess.Language, "Ok, no hice ningún cambio.", "Ok, no changes made."), nil
	}
	if !IsAffirmative(text) {
		return s.confirmQuestion(tenant, sess.Language, pending), nil
	}

	sess.PendingManagement = nil
	return s.execute(ctx, tenant, sess.Language, pending)
}

func (s *managementService) execute(ctx context.Context, tenant *models.TenantConfig, language string, action *models.ManagementAction) (string, error) {
	var err error
	switch {
	case action.Action == "add" && action.Kind == "category":
		err = s.taxonomyRepo.AddCategory(ctx, tenant.ID, action.Name)
	case action.Action == "add" && action.Kind == "cost_center":
		err = s.taxonomyRepo.AddCostCenter(ctx, tenant.ID, action.Name)
	case action.Action == "delete" && action.Kind == "category":
		err = s.taxonomyRepo.DeleteCategory(ctx, tenant.ID, action.Name)
	case action.Action == "delete" && action.Kind == "cost_center":
		err = s.taxonomyRepo.DeleteCostCenter(ctx, tenant.ID, action.Name)
	default:
		return msg(language, "No entendí el cambio.", "I couldn't apply that change."), nil
	}

	switch {
	case errors.Is(err, apperrors.ErrConflict):
		return fmt.Sprintf(msg(language, "%q ya existe.", "%q already exists."), action.Name), nil
	case errors.Is(err, apperrors.ErrNotFound):
		return fmt.Sprintf(msg(language, "No encontré %q.", "I couldn't find %q."), action.Name), nil
	case err != nil:
		return "", err
	}

	if action.Action == "add" {
		return fmt.Sprintf(msg(language, "Listo, agregué %q.", "Done, added %q."), action.Name), nil
	}
	return fmt.Sprintf(msg(language, "Listo, borré %q.", "Done, removed %q."), action.Name), nil
}

func (s *managementService) confirmQuestion(tenant *models.TenantConfig, language string, action *models.ManagementAction) string {
	kind := s.kindLabel(tenant, language, action.Kind)
	if action.Action == "add" {
		return fmt.Sprintf(msg(language,
			"¿Agrego %q como %s? (sí/no)",
			"Add %q as a %s? (yes/no)"), action.Name, kind)
	}
	return fmt.Sprintf(msg(language,
		"¿Borro %s %q? (sí/no)",
		"Remove the %s %q? (yes/no)"), kind, action.Name)
}

func (s *managementService) kindLabel(tenant *models.TenantConfig, language, kind string) string {
	if kind == "cost_center" {
		return tenant.CostCenterTerm()
	}
	return msg(language, "categoría", "category")
}

// describeTaxonomies renders the current lists for the "list" action.
func (s *managementService) describeTaxonomies(tenant *models.TenantConfig, language string) string {
	term := tenant.CostCenterTerm()
	plural := inflection.Plural(term)

	var b strings.Builder
	b.WriteString(msg(language, "📂 Categorías:\n", "📂 Categories:\n"))
	writeNames(&b, tenant.Categories, msg(language, "(ninguna todavía)", "(none yet)"))

	fmt.Fprintf(&b, "\n🏠 %s:\n", titleCase(plural))
	writeNames(&b, tenant.CostCenters, msg(language, "(ninguno todavía)", "(none yet)"))
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

func writeNames(b *strings.Builder, names []string, empty string) {
	if len(names) == 0 {
		b.WriteString(empty + "\n")
		return
	}
	for _, name := range names {
		fmt.Fprintf(b, "• %s\n", name)
	}
}
