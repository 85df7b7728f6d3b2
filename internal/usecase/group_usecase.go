package usecase

import (
	"context"
	"fmt"
	"strings"

	"snappin/internal/domain/entity"
	"snappin/internal/domain/repository"
	"snappin/pkg/errors"
	"snappin/pkg/logger"
)

type GroupUseCase struct {
	groupRepo repository.GroupRepository
}

func NewGroupUseCase(groupRepo repository.GroupRepository) *GroupUseCase {
	return &GroupUseCase{
		groupRepo: groupRepo,
	}
}

type CreateGroupInput struct {
	Name        string
	CreatedBy   string
	Members     []string
	Avatar      string
	Description string
}

// Create stores a new group. The creator always ends up as a member and as
// the only admin, and every member starts with no unread messages.
func (uc *GroupUseCase) Create(ctx context.Context, input CreateGroupInput) (string, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return "", errors.Validation("Group name is required")
	}
	if len(input.Members) == 0 {
		return "", errors.Validation("A group needs at least one member")
	}
	if strings.TrimSpace(input.CreatedBy) == "" {
		return "", errors.Validation("Group creator is required")
	}

	members := make([]string, 0, len(input.Members)+1)
	seen := make(map[string]bool, len(input.Members)+1)
	for _, m := range append([]string{input.CreatedBy}, input.Members...) {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		members = append(members, m)
	}

	group := &entity.Group{
		Name:        name,
		Avatar:      input.Avatar,
		Description: input.Description,
		Members:     members,
		Admins:      []string{input.CreatedBy},
		CreatedBy:   input.CreatedBy,
	}

	id, err := uc.groupRepo.Create(ctx, group)
	if err != nil {
		logger.Error("CreateGroup Error: Failed to create group %q: %v", name, err)
		return "", err
	}
	return id, nil
}

// AddMember is idempotent: re-adding a member only touches updatedAt.
func (uc *GroupUseCase) AddMember(ctx context.Context, groupID, userID string) error {
	if strings.TrimSpace(groupID) == "" || strings.TrimSpace(userID) == "" {
		return errors.Validation("Group and user are required")
	}
	if err := uc.groupRepo.AddMember(ctx, groupID, userID); err != nil {
		logger.Error("AddMember Error: Failed to add %s to group %s: %v", userID, groupID, err)
		return err
	}
	return nil
}

func (uc *GroupUseCase) Update(ctx context.Context, groupID string, update entity.GroupUpdate) error {
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return errors.Validation("Group name cannot be blank")
		}
		update.Name = &name
	}
	if err := uc.groupRepo.Update(ctx, groupID, update); err != nil {
		logger.Error("UpdateGroup Error: Failed to update group %s: %v", groupID, err)
		return err
	}
	return nil
}

// GroupUpdateFromFields builds an update from loosely typed input and
// rejects any field a group edit may not touch.
func GroupUpdateFromFields(fields map[string]any) (entity.GroupUpdate, error) {
	var update entity.GroupUpdate
	for key, raw := range fields {
		value, ok := raw.(string)
		if !ok {
			return entity.GroupUpdate{}, errors.Validation(fmt.Sprintf("Group field %q must be a string", key))
		}
		switch key {
		case "name":
			update.Name = &value
		case "avatar":
			update.Avatar = &value
		case "description":
			update.Description = &value
		default:
			return entity.GroupUpdate{}, errors.Validation(fmt.Sprintf("Unknown group field %q", key))
		}
	}
	return update, nil
}

func (uc *GroupUseCase) ListForUser(ctx context.Context, userID string) ([]*entity.Group, error) {
	groups, err := uc.groupRepo.ListByUserID(ctx, userID)
	if err != nil {
		logger.Error("ListGroups Error: Failed to fetch groups for user %s: %v", userID, err)
		return nil, err
	}
	return groups, nil
}

// GetGroup returns the group if userID is a member.
func (uc *GroupUseCase) GetGroup(ctx context.Context, userID, groupID string) (*entity.Group, error) {
	group, err := uc.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(userID) {
		return nil, errors.Forbidden("You are not a member of this group", nil)
	}
	return group, nil
}

// EnsureAdmin fails with FORBIDDEN unless userID administers the group.
func (uc *GroupUseCase) EnsureAdmin(ctx context.Context, groupID, userID string) error {
	group, err := uc.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsAdmin(userID) {
		return errors.Forbidden("Only group admins can do this", nil)
	}
	return nil
}
