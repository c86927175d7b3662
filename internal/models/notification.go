package models

import (
	"encoding/json"
	"time"
)

type NotificationType string

const (
	NotificationTypeNewMessage NotificationType = "NEW_MESSAGE"
	NotificationTypeNewEmail   NotificationType = "NEW_EMAIL"

	NotificationTypeEventCreated    NotificationType = "EVENT_CREATED"
	NotificationTypeEventUpdated    NotificationType = "EVENT_UPDATED"
	NotificationTypeEventCancelled  NotificationType = "EVENT_CANCELLED"
	NotificationTypeEventInvitation NotificationType = "EVENT_INVITATION"
	NotificationTypeEventRSVP       NotificationType = "EVENT_RSVP"
	NotificationTypeEventReminder   NotificationType = "EVENT_REMINDER"

	NotificationTypeTaskAssigned NotificationType = "TASK_ASSIGNED"
	NotificationTypeTaskUpdated  NotificationType = "TASK_UPDATED"
	NotificationTypeTaskDueSoon  NotificationType = "TASK_DUE_SOON"
	NotificationTypeTaskOverdue  NotificationType = "TASK_OVERDUE"

	NotificationTypeApplicationSubmitted   NotificationType = "APPLICATION_SUBMITTED"
	NotificationTypeApplicationReviewed    NotificationType = "APPLICATION_REVIEWED"
	NotificationTypeApplicationAccepted    NotificationType = "APPLICATION_ACCEPTED"
	NotificationTypeApplicationRejected    NotificationType = "APPLICATION_REJECTED"
	NotificationTypeApplicationShortlisted NotificationType = "APPLICATION_SHORTLISTED"
	NotificationTypeApplicationInterview   NotificationType = "APPLICATION_INTERVIEW"

	NotificationTypeAnnouncement  NotificationType = "ANNOUNCEMENT"
	NotificationTypeMaintenance   NotificationType = "MAINTENANCE"
	NotificationTypeSecurityAlert NotificationType = "SECURITY_ALERT"
)

// AllNotificationTypes is the closed set of types the engine delivers.
// The channel matrix is validated against this list at startup.
var AllNotificationTypes = []NotificationType{
	NotificationTypeNewMessage,
	NotificationTypeNewEmail,
	NotificationTypeEventCreated,
	NotificationTypeEventUpdated,
	NotificationTypeEventCancelled,
	NotificationTypeEventInvitation,
	NotificationTypeEventRSVP,
	NotificationTypeEventReminder,
	NotificationTypeTaskAssigned,
	NotificationTypeTaskUpdated,
	NotificationTypeTaskDueSoon,
	NotificationTypeTaskOverdue,
	NotificationTypeApplicationSubmitted,
	NotificationTypeApplicationReviewed,
	NotificationTypeApplicationAccepted,
	NotificationTypeApplicationRejected,
	NotificationTypeApplicationShortlisted,
	NotificationTypeApplicationInterview,
	NotificationTypeAnnouncement,
	NotificationTypeMaintenance,
	NotificationTypeSecurityAlert,
}

type Notification struct {
	ID           string           `json:"id" db:"id"`
	UserID       string           `json:"user_id" db:"user_id"`
	Type         NotificationType `json:"type" db:"type"`
	Title        string           `json:"title" db:"title"`
	Message      string           `json:"message" db:"message"`
	ActionURL    *string          `json:"action_url,omitempty" db:"action_url"`
	Data         json.RawMessage  `json:"data,omitempty" db:"data"`
	Read         bool             `json:"read" db:"read"`
	ReadAt       *time.Time       `json:"read_at,omitempty" db:"read_at"`
	SentViaPush  bool             `json:"sent_via_push" db:"sent_via_push"`
	SentViaEmail bool             `json:"sent_via_email" db:"sent_via_email"`
	Delivered    bool             `json:"delivered" db:"delivered"`
	DeliveredAt  *time.Time       `json:"delivered_at,omitempty" db:"delivered_at"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}
