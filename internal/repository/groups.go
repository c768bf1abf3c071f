package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"uconnect/api/internal/model"
)

func scanGroup(row pgx.Row) (model.AcademicGroup, error) {
	var group model.AcademicGroup
	err := row.Scan(&group.ID, &group.Course, &group.ClassGroup, &group.Subject)
	return group, err
}

func (s *Store) CreateGroup(ctx context.Context, group model.AcademicGroup) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO academic_groups (id, course, class_group, subject)
		VALUES ($1, $2, $3, $4)
	`, group.ID, group.Course, group.ClassGroup, group.Subject)
	return translate(err, "create group")
}

func (s *Store) GetGroup(ctx context.Context, id string) (model.AcademicGroup, error) {
	group, err := scanGroup(s.q.QueryRow(ctx, `
		SELECT id, course, class_group, subject FROM academic_groups WHERE id = $1
	`, id))
	if err != nil {
		return group, translate(err, "get group")
	}
	group.Members, err = s.ListGroupMembers(ctx, id)
	return group, err
}

func (s *Store) GetGroupByClassGroup(ctx context.Context, classGroup string) (model.AcademicGroup, error) {
	group, err := scanGroup(s.q.QueryRow(ctx, `
		SELECT id, course, class_group, subject FROM academic_groups WHERE class_group = $1
	`, classGroup))
	return group, translate(err, "get group by class group")
}

func (s *Store) ListGroups(ctx context.Context, page model.Page) ([]model.AcademicGroup, error) {
	page = page.Normalize()
	query, args, err := psql.Select("id", "course", "class_group", "subject").
		From("academic_groups").
		OrderBy("class_group").
		Offset(uint64(page.Skip)).
		Limit(uint64(page.Limit)).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "list groups")
	}
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list groups")
	}
	defer rows.Close()

	var groups []model.AcademicGroup
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, translate(err, "list groups")
		}
		groups = append(groups, group)
	}
	return groups, translate(rows.Err(), "list groups")
}

func (s *Store) UpdateGroup(ctx context.Context, id string, patch model.GroupPatch) (model.AcademicGroup, error) {
	builder := psql.Update("academic_groups").Where(sq.Eq{"id": id})
	changed := false
	if patch.Course != nil {
		builder, changed = builder.Set("course", *patch.Course), true
	}
	if patch.ClassGroup != nil {
		builder, changed = builder.Set("class_group", *patch.ClassGroup), true
	}
	if patch.Subject != nil {
		builder, changed = builder.Set("subject", *patch.Subject), true
	}
	if !changed {
		return s.GetGroup(ctx, id)
	}
	if _, err := s.execBuilder(ctx, builder, "update group"); err != nil {
		return model.AcademicGroup{}, err
	}
	return s.GetGroup(ctx, id)
}

func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "academic_groups", id, "delete group")
}

// AddGroupMember is idempotent.
func (s *Store) AddGroupMember(ctx context.Context, groupID, userID string) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO academic_group_members (group_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, groupID, userID)
	return translate(err, "add group member")
}

func (s *Store) RemoveGroupMember(ctx context.Context, groupID, userID string) (bool, error) {
	tag, err := s.q.Exec(ctx, `
		DELETE FROM academic_group_members WHERE group_id = $1 AND user_id = $2
	`, groupID, userID)
	if err != nil {
		return false, translate(err, "remove group member")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListGroupMembers(ctx context.Context, groupID string) ([]model.Participant, error) {
	rows, err := s.q.Query(ctx, `
		SELECT u.id, u.name
		FROM academic_group_members gm
		JOIN users u ON u.id = gm.user_id
		WHERE gm.group_id = $1
		ORDER BY u.name
	`, groupID)
	if err != nil {
		return nil, translate(err, "list group members")
	}
	defer rows.Close()

	var members []model.Participant
	for rows.Next() {
		var member model.Participant
		if err := rows.Scan(&member.ID, &member.Name); err != nil {
			return nil, translate(err, "list group members")
		}
		members = append(members, member)
	}
	return members, translate(rows.Err(), "list group members")
}
