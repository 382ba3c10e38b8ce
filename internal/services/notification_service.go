package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
	"github.com/rahulvalluru1-source/fieldtrack/internal/repos"
)

// Alerter delivers high-severity notifications out of band (e-mail).
type Alerter interface {
	Alert(n models.Notification) error
}

type NotificationService struct {
	repo    *repos.NotificationRepo
	pub     Publisher
	alerter Alerter
	lg      *log.Logger
	now     func() time.Time
}

func NewNotificationService(repo *repos.NotificationRepo, pub Publisher, alerter Alerter, lg *log.Logger) *NotificationService {
	if pub == nil {
		pub = nopPublisher{}
	}
	return &NotificationService{repo: repo, pub: pub, alerter: alerter, lg: lg, now: time.Now}
}

// Create persists an UNREAD notification and announces it.
func (s *NotificationService) Create(ctx context.Context, userID *uint, typ models.NotificationType, message string) (*models.Notification, error) {
	n := s.build(userID, typ, message)
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	s.announce(n)
	return n, nil
}

func (s *NotificationService) build(userID *uint, typ models.NotificationType, message string) *models.Notification {
	return &models.Notification{
		UserID:    userID,
		Type:      typ,
		Message:   message,
		Status:    models.NotificationUnread,
		Timestamp: s.now().UTC(),
	}
}

// announce publishes a stored notification. High-severity ones are also
// handed to the alerter in the background.
func (s *NotificationService) announce(n *models.Notification) {
	var subject uint
	if n.UserID != nil {
		subject = *n.UserID
	}
	s.pub.Publish(EventNotificationCreated, subject, n.ToMap())

	if s.alerter != nil && n.Severity() == models.SeverityHigh {
		alert := *n
		go func() {
			if err := s.alerter.Alert(alert); err != nil {
				s.lg.Printf("send %s alert for notification %d: %v", alert.Type, alert.ID, err)
			}
		}()
	}
}

// Broadcast writes a system-wide ADMIN_BROADCAST notification.
func (s *NotificationService) Broadcast(ctx context.Context, message string) (*models.Notification, error) {
	return s.Create(ctx, nil, models.NotificationAdminBroadcast, message)
}

type NotificationQuery struct {
	Type       models.NotificationType
	UnreadOnly bool
	Limit      int
}

// List returns everything to admins and, to employees, their own rows plus
// system-wide ones.
func (s *NotificationService) List(ctx context.Context, viewerID uint, isAdmin bool, q NotificationQuery) ([]models.Notification, error) {
	f := repos.NotificationFilter{Type: q.Type, Limit: q.Limit}
	if q.UnreadOnly {
		f.Status = models.NotificationUnread
	}
	if !isAdmin {
		f.UserID = &viewerID
		f.IncludeSystem = true
	}
	return s.repo.List(ctx, f)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, viewerID uint, isAdmin bool) (*models.Notification, error) {
	n, err := s.repo.Get(ctx, id)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !isAdmin && (n.UserID == nil || *n.UserID != viewerID) {
		return nil, ErrForbidden
	}
	if n.Status == models.NotificationRead {
		return n, nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return nil, err
	}
	n.Status = models.NotificationRead
	return n, nil
}
