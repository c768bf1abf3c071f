package memstore

import (
	"context"
	"sort"
	"time"

	"uconnect/api/internal/model"
)

// Groups

func (s *Store) CreateGroup(_ context.Context, group model.AcademicGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.groups {
		if existing.ClassGroup == group.ClassGroup {
			return conflict("create group", "class_group")
		}
	}
	group.Members = nil
	s.groups[group.ID] = group
	s.groupMembers[group.ID] = make(map[string]struct{})
	return nil
}

func (s *Store) membersLocked(groupID string) []model.Participant {
	var members []model.Participant
	for userID := range s.groupMembers[groupID] {
		members = append(members, model.Participant{ID: userID, Name: s.users[userID].Name})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return members
}

func (s *Store) GetGroup(_ context.Context, id string) (model.AcademicGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	group, ok := s.groups[id]
	if !ok {
		return model.AcademicGroup{}, notFound("get group")
	}
	group.Members = s.membersLocked(id)
	return group, nil
}

func (s *Store) GetGroupByClassGroup(_ context.Context, classGroup string) (model.AcademicGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, group := range s.groups {
		if group.ClassGroup == classGroup {
			return group, nil
		}
	}
	return model.AcademicGroup{}, notFound("get group by class group")
}

func (s *Store) ListGroups(_ context.Context, page model.Page) ([]model.AcademicGroup, error) {
	s.mu.RLock()
	groups := make([]model.AcademicGroup, 0, len(s.groups))
	for _, group := range s.groups {
		groups = append(groups, group)
	}
	s.mu.RUnlock()
	sort.Slice(groups, func(i, j int) bool { return groups[i].ClassGroup < groups[j].ClassGroup })
	return paginate(groups, page), nil
}

func (s *Store) UpdateGroup(_ context.Context, id string, patch model.GroupPatch) (model.AcademicGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.groups[id]
	if !ok {
		return model.AcademicGroup{}, notFound("update group")
	}
	if patch.ClassGroup != nil {
		for otherID, other := range s.groups {
			if otherID != id && other.ClassGroup == *patch.ClassGroup {
				return model.AcademicGroup{}, conflict("update group", "class_group")
			}
		}
		group.ClassGroup = *patch.ClassGroup
	}
	if patch.Course != nil {
		group.Course = *patch.Course
	}
	if patch.Subject != nil {
		group.Subject = *patch.Subject
	}
	s.groups[id] = group
	group.Members = s.membersLocked(id)
	return group, nil
}

func (s *Store) DeleteGroup(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return notFound("delete group")
	}
	delete(s.groups, id)
	delete(s.groupMembers, id)
	for eventID, event := range s.events {
		if event.AcademicGroupID != nil && *event.AcademicGroupID == id {
			event.AcademicGroupID = nil
			s.events[eventID] = event
		}
	}
	return nil
}

func (s *Store) AddGroupMember(_ context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.groupMembers[groupID]
	if !ok {
		return notFound("add group member")
	}
	if _, ok := s.users[userID]; !ok {
		return notFound("add group member")
	}
	members[userID] = struct{}{}
	return nil
}

func (s *Store) RemoveGroupMember(_ context.Context, groupID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := s.groupMembers[groupID]
	if _, ok := members[userID]; !ok {
		return false, nil
	}
	delete(members, userID)
	return true, nil
}

func (s *Store) ListGroupMembers(_ context.Context, groupID string) ([]model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.membersLocked(groupID), nil
}

// Publications

func (s *Store) CreatePublication(_ context.Context, pub model.Publication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[pub.AuthorID]; !ok {
		return notFound("create " + string(pub.Kind))
	}
	s.publications[pub.ID] = pub
	return nil
}

func (s *Store) GetPublication(_ context.Context, kind model.PublicationKind, id string) (model.Publication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pub, ok := s.publications[id]
	if !ok || pub.Kind != kind {
		return model.Publication{}, notFound("get " + string(kind))
	}
	return pub, nil
}

func (s *Store) ListPublications(_ context.Context, kind model.PublicationKind, page model.Page) ([]model.Publication, error) {
	s.mu.RLock()
	var pubs []model.Publication
	for _, pub := range s.publications {
		if pub.Kind == kind {
			pubs = append(pubs, pub)
		}
	}
	s.mu.RUnlock()
	sort.Slice(pubs, func(i, j int) bool { return pubs[i].Date.After(pubs[j].Date) })
	return paginate(pubs, page), nil
}

func (s *Store) CountPublications(_ context.Context, kind model.PublicationKind) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, pub := range s.publications {
		if pub.Kind == kind {
			count++
		}
	}
	return count, nil
}

func (s *Store) UpdatePublication(_ context.Context, kind model.PublicationKind, id string, patch model.PublicationPatch) (model.Publication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pub, ok := s.publications[id]
	if !ok || pub.Kind != kind {
		return model.Publication{}, notFound("update " + string(kind))
	}
	if patch.Title != nil {
		pub.Title = *patch.Title
	}
	if patch.Content != nil {
		pub.Content = *patch.Content
	}
	s.publications[id] = pub
	return pub, nil
}

func (s *Store) DeletePublication(_ context.Context, kind model.PublicationKind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pub, ok := s.publications[id]
	if !ok || pub.Kind != kind {
		return notFound("delete " + string(kind))
	}
	delete(s.publications, id)
	return nil
}

// Events

func (s *Store) CreateEvent(_ context.Context, event model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = event
	return nil
}

func (s *Store) GetEvent(_ context.Context, id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	if !ok {
		return model.Event{}, notFound("get event")
	}
	return event, nil
}

func (s *Store) ListEvents(_ context.Context, from, to *time.Time, page model.Page) ([]model.Event, error) {
	s.mu.RLock()
	var events []model.Event
	for _, event := range s.events {
		if from != nil && event.EventDate.Before(*from) {
			continue
		}
		if to != nil && event.EventDate.After(*to) {
			continue
		}
		events = append(events, event)
	}
	s.mu.RUnlock()
	sort.Slice(events, func(i, j int) bool {
		if !events[i].EventDate.Equal(events[j].EventDate) {
			return events[i].EventDate.Before(events[j].EventDate)
		}
		return derefString(events[i].StartTime) < derefString(events[j].StartTime)
	})
	return paginate(events, page), nil
}

func (s *Store) UpdateEvent(_ context.Context, id string, patch model.EventPatch) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return model.Event{}, notFound("update event")
	}
	if patch.Title != nil {
		event.Title = *patch.Title
	}
	if patch.Description != nil {
		event.Description = patch.Description
	}
	if patch.EventDate != nil {
		event.EventDate = *patch.EventDate
	}
	if patch.StartTime != nil {
		event.StartTime = patch.StartTime
	}
	if patch.EndTime != nil {
		event.EndTime = patch.EndTime
	}
	if patch.AcademicGroupID != nil {
		event.AcademicGroupID = patch.AcademicGroupID
	}
	s.events[id] = event
	return event, nil
}

func (s *Store) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return notFound("delete event")
	}
	delete(s.events, id)
	return nil
}

// Access grants

func (s *Store) CreateGrant(_ context.Context, grant model.AccessGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[grant.UserID]; !ok {
		return notFound("create access grant")
	}
	s.grants[grant.ID] = grant
	return nil
}

func (s *Store) GetGrant(_ context.Context, id string) (model.AccessGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	grant, ok := s.grants[id]
	if !ok {
		return model.AccessGrant{}, notFound("get access grant")
	}
	return grant, nil
}

func (s *Store) ListGrants(_ context.Context, userID string) ([]model.AccessGrant, error) {
	s.mu.RLock()
	var grants []model.AccessGrant
	for _, grant := range s.grants {
		if userID == "" || grant.UserID == userID {
			grants = append(grants, grant)
		}
	}
	s.mu.RUnlock()
	sort.Slice(grants, func(i, j int) bool { return grants[i].CreatedAt.Before(grants[j].CreatedAt) })
	return grants, nil
}

func (s *Store) UpdateGrant(_ context.Context, id, permission string) (model.AccessGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.grants[id]
	if !ok {
		return model.AccessGrant{}, notFound("update access grant")
	}
	grant.Permission = permission
	s.grants[id] = grant
	return grant, nil
}

func (s *Store) DeleteGrant(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grants[id]; !ok {
		return notFound("delete access grant")
	}
	delete(s.grants, id)
	return nil
}

func (s *Store) HasPermission(_ context.Context, userID, permission string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, grant := range s.grants {
		if grant.UserID == userID && grant.Permission == permission {
			return true, nil
		}
	}
	return false, nil
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
