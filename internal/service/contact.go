package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"siteadmin/internal/model"
	"siteadmin/internal/repository"
)

const (
	GroupContact = "contact"
	GroupHours   = "hours"
)

// GroupError reports the failure of one independently saved group.
type GroupError struct {
	Group string
	Err   error
}

func (e *GroupError) Error() string { return "save " + e.Group + ": " + e.Err.Error() }

func (e *GroupError) Unwrap() error { return e.Err }

// FailedGroups lists the groups named by the GroupErrors inside err.
func FailedGroups(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, FailedGroups(e)...)
		}
		return out
	}
	var ge *GroupError
	if errors.As(err, &ge) {
		return []string{ge.Group}
	}
	return nil
}

// ContactService edits the contact_info and business_hours singletons.
type ContactService interface {
	// Get merges both records; absent fields are blank.
	Get(ctx context.Context) (*model.ContactView, error)
	SaveContact(ctx context.Context, info model.ContactInfo) error
	SaveHours(ctx context.Context, hours model.BusinessHours) error
	// SaveAll saves both groups independently; a failure of one does not
	// prevent the other. The returned error joins one GroupError per failure.
	SaveAll(ctx context.Context, v model.ContactView) error
}

type contactService struct {
	base
}

func NewContactService(d Deps) ContactService {
	return &contactService{base: newBase(d)}
}

func (s *contactService) Get(ctx context.Context) (*model.ContactView, error) {
	var v model.ContactView
	info, err := s.repo.Get(ctx, model.PathContactInfo)
	if err != nil {
		return nil, fmt.Errorf("load contact info: %w", err)
	}
	if err := info.Decode(&v.ContactInfo); err != nil {
		return nil, fmt.Errorf("decode contact info: %w", err)
	}
	hours, err := s.repo.Get(ctx, model.PathBusinessHours)
	if err != nil {
		return nil, fmt.Errorf("load business hours: %w", err)
	}
	if err := hours.Decode(&v.BusinessHours); err != nil {
		return nil, fmt.Errorf("decode business hours: %w", err)
	}
	return &v, nil
}

func (s *contactService) SaveContact(ctx context.Context, info model.ContactInfo) (err error) {
	ctx, span := tracer.Start(ctx, "ContactService.SaveContact")
	defer func() { finish(span, err) }()

	info.AddressLine1 = strings.TrimSpace(info.AddressLine1)
	info.AddressLine2 = strings.TrimSpace(info.AddressLine2)
	info.AddressLine3 = strings.TrimSpace(info.AddressLine3)
	info.Email = strings.TrimSpace(info.Email)
	info.Phone = strings.TrimSpace(info.Phone)
	info.WhatsApp = strings.TrimSpace(info.WhatsApp)
	if err := validateStruct(info); err != nil {
		return err
	}

	fields := map[string]any{
		"addressLine1": info.AddressLine1,
		"addressLine2": info.AddressLine2,
		"addressLine3": info.AddressLine3,
		"email":        info.Email,
		"phone":        info.Phone,
		"whatsapp":     info.WhatsApp,
	}
	if _, err := s.repo.Mutate(ctx, model.PathContactInfo, repository.Update(fields)); err != nil {
		return fmt.Errorf("update contact info: %w", err)
	}
	s.log.Info("contact info saved", zap.String("editor", editorContact))
	return nil
}

func (s *contactService) SaveHours(ctx context.Context, hours model.BusinessHours) (err error) {
	ctx, span := tracer.Start(ctx, "ContactService.SaveHours")
	defer func() { finish(span, err) }()

	hours.Weekdays = strings.TrimSpace(hours.Weekdays)
	hours.Saturday = strings.TrimSpace(hours.Saturday)
	hours.Sunday = strings.TrimSpace(hours.Sunday)
	if err := validateStruct(hours); err != nil {
		return err
	}

	fields := map[string]any{
		"weekdays": hours.Weekdays,
		"saturday": hours.Saturday,
		"sunday":   hours.Sunday,
	}
	if _, err := s.repo.Mutate(ctx, model.PathBusinessHours, repository.Update(fields)); err != nil {
		return fmt.Errorf("update business hours: %w", err)
	}
	s.log.Info("business hours saved", zap.String("editor", editorContact))
	return nil
}

func (s *contactService) SaveAll(ctx context.Context, v model.ContactView) error {
	var errs []error
	if err := s.SaveContact(ctx, v.ContactInfo); err != nil {
		errs = append(errs, &GroupError{Group: GroupContact, Err: err})
	}
	if err := s.SaveHours(ctx, v.BusinessHours); err != nil {
		errs = append(errs, &GroupError{Group: GroupHours, Err: err})
	}
	return errors.Join(errs...)
}
