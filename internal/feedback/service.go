package feedback

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vatavaran/vatavaran-backend/pkg/db/models"
	"github.com/vatavaran/vatavaran-backend/pkg/enums"
	pkgerrors "github.com/vatavaran/vatavaran-backend/pkg/errors"
	"github.com/vatavaran/vatavaran-backend/pkg/pagination"
)

const (
	maxShortField = 200
	maxLongField  = 5000
)

type store interface {
	CreateContact(ctx context.Context, msg *models.ContactMessage) (*models.ContactMessage, error)
	CreateSuggestion(ctx context.Context, s *models.ImprovementSuggestion) (*models.ImprovementSuggestion, error)
	ListContacts(ctx context.Context, page pagination.Params) ([]models.ContactMessage, int64, error)
	ListSuggestions(ctx context.Context, priority string, page pagination.Params) ([]models.ImprovementSuggestion, int64, error)
}

// Service handles public feedback intake and the admin listing.
type Service interface {
	SubmitContact(ctx context.Context, req ContactRequest) (*ContactDTO, error)
	SubmitSuggestion(ctx context.Context, req SuggestionRequest) (*SuggestionDTO, error)
	ListContacts(ctx context.Context, page pagination.Params) (*ContactList, error)
	ListSuggestions(ctx context.Context, priority *enums.SuggestionPriority, page pagination.Params) (*SuggestionList, error)
}

type service struct {
	store store
}

func NewService(st store) (Service, error) {
	if st == nil {
		return nil, fmt.Errorf("feedback store required")
	}
	return &service{store: st}, nil
}

func (s *service) SubmitContact(ctx context.Context, req ContactRequest) (*ContactDTO, error) {
	msg := &models.ContactMessage{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
	}
	if err := requireFields(map[string]string{
		"name": msg.Name, "email": msg.Email, "subject": msg.Subject, "message": msg.Message,
	}); err != nil {
		return nil, err
	}
	if err := checkLength("message", msg.Message, maxLongField); err != nil {
		return nil, err
	}
	if err := checkLength("subject", msg.Subject, maxShortField); err != nil {
		return nil, err
	}

	created, err := s.store.CreateContact(ctx, msg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store contact message")
	}
	dto := contactFromModel(*created)
	return &dto, nil
}

func (s *service) SubmitSuggestion(ctx context.Context, req SuggestionRequest) (*SuggestionDTO, error) {
	priority, err := enums.ParseSuggestionPriority(req.Priority)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "priority must be LOW, MEDIUM or HIGH").
			WithDetails(map[string]any{"field": "priority"})
	}
	row := &models.ImprovementSuggestion{
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Category:   strings.TrimSpace(req.Category),
		Priority:   priority,
		Suggestion: strings.TrimSpace(req.Suggestion),
	}
	if err := requireFields(map[string]string{
		"name": row.Name, "email": row.Email, "category": row.Category, "suggestion": row.Suggestion,
	}); err != nil {
		return nil, err
	}
	if err := checkLength("suggestion", row.Suggestion, maxLongField); err != nil {
		return nil, err
	}

	created, err := s.store.CreateSuggestion(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store improvement suggestion")
	}
	dto := suggestionFromModel(*created)
	return &dto, nil
}

func (s *service) ListContacts(ctx context.Context, page pagination.Params) (*ContactList, error) {
	rows, total, err := s.store.ListContacts(ctx, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list contact messages")
	}
	items := make([]ContactDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, contactFromModel(row))
	}
	return &ContactList{Items: items, Pagination: pagination.NewPage(page, total)}, nil
}

func (s *service) ListSuggestions(ctx context.Context, priority *enums.SuggestionPriority, page pagination.Params) (*SuggestionList, error) {
	filter := ""
	if priority != nil {
		filter = string(*priority)
	}
	rows, total, err := s.store.ListSuggestions(ctx, filter, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list improvement suggestions")
	}
	items := make([]SuggestionDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, suggestionFromModel(row))
	}
	return &SuggestionList{Items: items, Pagination: pagination.NewPage(page, total)}, nil
}

// requireFields rejects blank values after trimming. Fields are reported in
// sorted order so the error is stable.
func requireFields(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return pkgerrors.New(pkgerrors.CodeValidation, "all fields are required").
		WithDetails(map[string]any{"missing": missing})
}

func checkLength(field, value string, max int) error {
	if len([]rune(value)) > max {
		return pkgerrors.New(pkgerrors.CodeValidation, field+" is too long").
			WithDetails(map[string]any{"field": field, "max": max})
	}
	return nil
}
