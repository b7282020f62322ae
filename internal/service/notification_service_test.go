package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reside-labs/societygate-api/internal/models"
	"github.com/reside-labs/societygate-api/pkg/jobs"
)

type inboxStub struct {
	created []models.Notification
}

func (s *inboxStub) Create(ctx context.Context, n *models.Notification) error {
	s.created = append(s.created, *n)
	return nil
}

func (s *inboxStub) ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range s.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *inboxStub) MarkRead(ctx context.Context, id, userID string) error {
	return nil
}

type fanoutDirectoryStub struct {
	ids       map[models.UserRole][]string
	lastRoles []models.UserRole
}

func (d *fanoutDirectoryStub) ListIDsByRoles(ctx context.Context, societyID string, roles []models.UserRole) ([]string, error) {
	d.lastRoles = roles
	var out []string
	for _, role := range roles {
		out = append(out, d.ids[role]...)
	}
	return out, nil
}

func newNotificationFixture() (*NotificationService, *inboxStub, *fanoutDirectoryStub) {
	store := &inboxStub{}
	directory := &fanoutDirectoryStub{ids: map[models.UserRole][]string{
		models.RoleGuard:    {"guard-1", "guard-2"},
		models.RoleResident: {"resident-1", "resident-2"},
		models.RoleManager:  {"manager-1"},
	}}
	svc := NewNotificationService(store, directory, nil, jobs.QueueConfig{})
	return svc, store, directory
}

func deliver(t *testing.T, svc *NotificationService, payload interface{}) {
	t.Helper()
	require.NoError(t, svc.process(context.Background(), jobs.Job{Payload: payload}))
}

func TestVisitorPendingNotifiesHost(t *testing.T) {
	svc, store, _ := newNotificationFixture()

	deliver(t, svc, visitorEventJob{
		Visitor: models.Visitor{ID: "vis-1", SocietyID: "soc-1", HostID: "resident-1", Name: "Ravi Kumar"},
		Event:   VisitorEventPending,
	})

	require.Len(t, store.created, 1)
	require.Equal(t, "resident-1", store.created[0].UserID)
	require.Equal(t, models.NotificationKindVisitor, store.created[0].Kind)
	require.Contains(t, store.created[0].Body, "Ravi Kumar")
}

func TestVisitorApprovedNotifiesGuards(t *testing.T) {
	svc, store, _ := newNotificationFixture()

	deliver(t, svc, visitorEventJob{
		Visitor: models.Visitor{ID: "vis-1", SocietyID: "soc-1", HostID: "resident-1", Name: "Ravi Kumar"},
		Event:   VisitorEventApproved,
	})

	require.Len(t, store.created, 2)
	recipients := []string{store.created[0].UserID, store.created[1].UserID}
	require.ElementsMatch(t, []string{"guard-1", "guard-2"}, recipients)
}

func TestAnnouncementAudienceRouting(t *testing.T) {
	svc, store, directory := newNotificationFixture()

	deliver(t, svc, announcementJob{Announcement: models.Announcement{
		ID:        "ann-1",
		SocietyID: "soc-1",
		Title:     "Water supply",
		Content:   "Off 2pm to 4pm",
		Audience:  models.AnnouncementAudienceResidents,
	}})

	require.Equal(t, []models.UserRole{models.RoleResident}, directory.lastRoles)
	require.Len(t, store.created, 2)
	require.Equal(t, "Water supply", store.created[0].Title)
}

func TestEmergencyAnnouncementPrefixesTitle(t *testing.T) {
	svc, store, _ := newNotificationFixture()

	deliver(t, svc, announcementJob{Announcement: models.Announcement{
		ID:        "ann-1",
		SocietyID: "soc-1",
		Title:     "Fire drill",
		Content:   "Evacuate now",
		Audience:  models.AnnouncementAudienceAll,
		Priority:  models.AnnouncementPriorityEmergency,
	}})

	// ALL reaches residents, guards and managers
	require.Len(t, store.created, 5)
	require.Equal(t, "EMERGENCY: Fire drill", store.created[0].Title)
}

func TestIssueUpdateNotifiesReporter(t *testing.T) {
	svc, store, _ := newNotificationFixture()

	deliver(t, svc, issueEventJob{
		Issue: models.Issue{ID: "iss-1", RaisedBy: "resident-1", Title: "Leaking tap", Status: models.IssueStatusResolved},
		Event: "RESOLVED",
	})

	require.Len(t, store.created, 1)
	require.Equal(t, "resident-1", store.created[0].UserID)
	require.Equal(t, models.NotificationKindIssue, store.created[0].Kind)
	require.Contains(t, store.created[0].Body, "RESOLVED")
}
