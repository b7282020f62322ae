package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reside-labs/societygate-api/internal/dto"
	"github.com/reside-labs/societygate-api/internal/models"
	appErrors "github.com/reside-labs/societygate-api/pkg/errors"
)

type announcementStoreStub struct {
	announcements map[string]*models.Announcement
	deleted       []string
}

func newAnnouncementStoreStub() *announcementStoreStub {
	return &announcementStoreStub{announcements: make(map[string]*models.Announcement)}
}

func (s *announcementStoreStub) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	var out []models.Announcement
	for _, a := range s.announcements {
		if filter.SocietyID != "" && a.SocietyID != filter.SocietyID {
			continue
		}
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (s *announcementStoreStub) GetByID(ctx context.Context, id string) (*models.Announcement, error) {
	a, ok := s.announcements[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *a
	return &copied, nil
}

func (s *announcementStoreStub) Create(ctx context.Context, announcement *models.Announcement) error {
	if announcement.ID == "" {
		announcement.ID = "ann-" + announcement.Title
	}
	copied := *announcement
	s.announcements[announcement.ID] = &copied
	return nil
}

func (s *announcementStoreStub) Delete(ctx context.Context, id string) error {
	delete(s.announcements, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type broadcasterStub struct {
	broadcasts []*models.Announcement
}

func (b *broadcasterStub) BroadcastAnnouncement(announcement *models.Announcement) {
	b.broadcasts = append(b.broadcasts, announcement)
}

func TestAnnouncementCreateResidentForbidden(t *testing.T) {
	svc := NewAnnouncementService(newAnnouncementStoreStub(), nil, &auditStub{}, nil)

	_, err := svc.Create(context.Background(), dto.CreateAnnouncementRequest{
		Title:    "Water supply",
		Content:  "Water will be off 2pm to 4pm",
		Audience: "ALL",
	}, residentClaims())
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestAnnouncementCreateNormalSkipsBroadcast(t *testing.T) {
	broadcaster := &broadcasterStub{}
	svc := NewAnnouncementService(newAnnouncementStoreStub(), broadcaster, &auditStub{}, nil)

	created, err := svc.Create(context.Background(), dto.CreateAnnouncementRequest{
		Title:    "Diwali decorations",
		Content:  "Lobby decoration this weekend",
		Audience: "residents",
	}, managerClaims())
	require.NoError(t, err)
	require.Equal(t, models.AnnouncementAudienceResidents, created.Audience)
	require.Equal(t, models.AnnouncementPriorityNormal, created.Priority)
	require.Empty(t, broadcaster.broadcasts)
}

func TestAnnouncementEmergencyBroadcasts(t *testing.T) {
	broadcaster := &broadcasterStub{}
	svc := NewAnnouncementService(newAnnouncementStoreStub(), broadcaster, &auditStub{}, nil)

	created, err := svc.Create(context.Background(), dto.CreateAnnouncementRequest{
		Title:    "Fire drill",
		Content:  "Evacuate to the front lawn now",
		Audience: "ALL",
		Priority: models.AnnouncementPriorityEmergency,
	}, managerClaims())
	require.NoError(t, err)
	require.Len(t, broadcaster.broadcasts, 1)
	require.Equal(t, created.ID, broadcaster.broadcasts[0].ID)
}

func TestAnnouncementBlockAudienceRequiresBlock(t *testing.T) {
	svc := NewAnnouncementService(newAnnouncementStoreStub(), nil, &auditStub{}, nil)

	_, err := svc.Create(context.Background(), dto.CreateAnnouncementRequest{
		Title:    "Lift maintenance",
		Content:  "Block B lift down tomorrow",
		Audience: "BLOCK",
	}, managerClaims())
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAnnouncementDeleteScopedToSociety(t *testing.T) {
	store := newAnnouncementStoreStub()
	store.announcements["ann-1"] = &models.Announcement{ID: "ann-1", SocietyID: "soc-2", Title: "Other society"}
	svc := NewAnnouncementService(store, nil, &auditStub{}, nil)

	err := svc.Delete(context.Background(), "ann-1", managerClaims())
	require.ErrorIs(t, err, appErrors.ErrNotFound)
	require.Empty(t, store.deleted)
}
