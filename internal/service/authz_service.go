package service

import (
	"context"
	"fmt"
)

type assignmentChecker interface {
	ExistsForTeacherSection(ctx context.Context, teacherID, sectionID, termID string) (bool, error)
}

type roleChecker interface {
	HasTeacherRole(ctx context.Context, teacherID string) (bool, error)
	HasElevatedRole(ctx context.Context, teacherID string) (bool, error)
}

// AuthzService answers the capability questions shared by the class-session
// and attendance lifecycles: does this teacher hold a timetable assignment to
// a section, or an elevated role that bypasses the assignment check.
type AuthzService struct {
	slots assignmentChecker
	users roleChecker
}

// NewAuthzService constructs the authorization service.
func NewAuthzService(slots assignmentChecker, users roleChecker) *AuthzService {
	return &AuthzService{slots: slots, users: users}
}

// CanManageSection reports whether the teacher may act on the section's
// sessions in the given term. The elevated-role capability is consulted
// before the ownership check.
func (s *AuthzService) CanManageSection(ctx context.Context, teacherID, sectionID, termID string) (bool, error) {
	elevated, err := s.users.HasElevatedRole(ctx, teacherID)
	if err != nil {
		return false, fmt.Errorf("check elevated role: %w", err)
	}
	if elevated {
		return true, nil
	}

	assigned, err := s.slots.ExistsForTeacherSection(ctx, teacherID, sectionID, termID)
	if err != nil {
		return false, fmt.Errorf("check section assignment: %w", err)
	}
	return assigned, nil
}

// HasTeacherRole reports whether the teacher record maps to an active user
// holding the TEACHER role.
func (s *AuthzService) HasTeacherRole(ctx context.Context, teacherID string) (bool, error) {
	return s.users.HasTeacherRole(ctx, teacherID)
}
