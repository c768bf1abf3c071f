package http

import (
	"time"

	"uconnect/api/internal/chat"
	"uconnect/api/internal/model"
)

const dateLayout = "2006-01-02"

type userResponse struct {
	ID           string    `json:"id"`
	Registration string    `json:"registration"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	AccessStatus string    `json:"accessStatus"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func mapUser(user model.User) userResponse {
	return userResponse{
		ID:           user.ID,
		Registration: user.Registration,
		Name:         user.Name,
		Email:        user.Email,
		Role:         string(user.Role),
		AccessStatus: string(user.AccessStatus),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

type participantResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func mapParticipants(list []model.Participant) []participantResponse {
	out := make([]participantResponse, 0, len(list))
	for _, p := range list {
		out = append(out, participantResponse{ID: p.ID, Name: p.Name})
	}
	return out
}

type messageResponse struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	AuthorID   *string   `json:"authorId"`
	AuthorName *string   `json:"authorName"`
	Timestamp  time.Time `json:"timestamp"`
	IsRead     bool      `json:"isRead"`
}

func mapMessage(msg model.Message) messageResponse {
	return messageResponse{
		ID:         msg.ID,
		Content:    msg.Content,
		AuthorID:   msg.AuthorID,
		AuthorName: msg.AuthorName,
		Timestamp:  msg.Timestamp,
		IsRead:     msg.IsRead,
	}
}

type conversationResponse struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Type         string                `json:"type"`
	Participants []participantResponse `json:"participants"`
	LastMessage  *messageResponse      `json:"lastMessage"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

func mapConversation(summary model.ConversationSummary) conversationResponse {
	resp := conversationResponse{
		ID:           summary.ID,
		Title:        chat.DisplayTitle(summary.Conversation),
		Type:         string(summary.Type),
		Participants: mapParticipants(summary.Participants),
		CreatedAt:    summary.CreatedAt,
		UpdatedAt:    summary.UpdatedAt,
	}
	if summary.LastMessage != nil {
		last := mapMessage(*summary.LastMessage)
		resp.LastMessage = &last
	}
	return resp
}

type groupResponse struct {
	ID         string                `json:"id"`
	Course     string                `json:"course"`
	ClassGroup string                `json:"classGroup"`
	Subject    string                `json:"subject"`
	Users      []participantResponse `json:"users,omitempty"`
}

func mapGroup(group model.AcademicGroup, withMembers bool) groupResponse {
	resp := groupResponse{ID: group.ID, Course: group.Course, ClassGroup: group.ClassGroup, Subject: group.Subject}
	if withMembers {
		resp.Users = mapParticipants(group.Members)
	}
	return resp
}

type publicationResponse struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Date     time.Time `json:"date"`
	AuthorID string    `json:"authorId"`
}

func mapPublication(pub model.Publication) publicationResponse {
	return publicationResponse{ID: pub.ID, Title: pub.Title, Content: pub.Content, Date: pub.Date, AuthorID: pub.AuthorID}
}

type eventResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     *string   `json:"description"`
	Timestamp       time.Time `json:"timestamp"`
	EventDate       string    `json:"eventDate"`
	StartTime       *string   `json:"startTime"`
	EndTime         *string   `json:"endTime"`
	AcademicGroupID *string   `json:"academicGroupId"`
	CreatorID       *string   `json:"creatorId"`
}

func mapEvent(event model.Event) eventResponse {
	return eventResponse{
		ID:              event.ID,
		Title:           event.Title,
		Description:     event.Description,
		Timestamp:       event.Timestamp,
		EventDate:       event.EventDate.Format(dateLayout),
		StartTime:       event.StartTime,
		EndTime:         event.EndTime,
		AcademicGroupID: event.AcademicGroupID,
		CreatorID:       event.CreatorID,
	}
}

type grantResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Permission string    `json:"permission"`
	CreatedAt  time.Time `json:"createdAt"`
}

func mapGrant(grant model.AccessGrant) grantResponse {
	return grantResponse{ID: grant.ID, UserID: grant.UserID, Permission: grant.Permission, CreatedAt: grant.CreatedAt}
}

func mapSlice[T, R any](items []T, fn func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}
