package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type assignmentStub struct {
	assigned map[string]bool
	err      error
}

func (m *assignmentStub) ExistsForTeacherSection(ctx context.Context, teacherID, sectionID, termID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.assigned[teacherID+"/"+sectionID], nil
}

type roleCheckerStub struct {
	teachers map[string]bool
	elevated map[string]bool
}

func (m *roleCheckerStub) HasTeacherRole(ctx context.Context, teacherID string) (bool, error) {
	return m.teachers[teacherID], nil
}

func (m *roleCheckerStub) HasElevatedRole(ctx context.Context, teacherID string) (bool, error) {
	return m.elevated[teacherID], nil
}

func TestAuthzServiceCanManageSectionAssigned(t *testing.T) {
	service := NewAuthzService(
		&assignmentStub{assigned: map[string]bool{"teacher-1/section-1": true}},
		&roleCheckerStub{},
	)

	allowed, err := service.CanManageSection(context.Background(), "teacher-1", "section-1", "term-1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = service.CanManageSection(context.Background(), "teacher-2", "section-1", "term-1")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAuthzServiceElevatedRoleBypassesAssignment(t *testing.T) {
	service := NewAuthzService(
		&assignmentStub{},
		&roleCheckerStub{elevated: map[string]bool{"principal-1": true}},
	)

	allowed, err := service.CanManageSection(context.Background(), "principal-1", "section-1", "term-1")
	require.NoError(t, err)
	assert.True(t, allowed)
}
